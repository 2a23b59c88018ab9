package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aws/aws-lambda-go/events"
	"github.com/jun/notesapp/internal/model"
	"github.com/jun/notesapp/internal/notes"
	"github.com/rs/zerolog"
)

// NoteService is the set of note operations the handler exposes.
type NoteService interface {
	List(ctx context.Context) ([]model.Note, error)
	Create(ctx context.Context, in notes.CreateInput) (*model.Note, error)
	Update(ctx context.Context, in notes.UpdateInput) (*model.Note, error)
	Delete(ctx context.Context, in notes.DeleteInput) (*notes.Ack, error)
}

// NoteHandler handles CRUD operations for notes.
type NoteHandler struct {
	service     NoteService
	tokenSecret string
}

// NewNoteHandler creates a new NoteHandler. An empty tokenSecret disables the
// bearer-token check.
func NewNoteHandler(service NoteService, tokenSecret string) *NoteHandler {
	return &NoteHandler{service: service, tokenSecret: tokenSecret}
}

// authorize returns a 401 response when a token is required and missing or invalid.
func (h *NoteHandler) authorize(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, bool) {
	if h.tokenSecret == "" {
		return events.APIGatewayProxyResponse{}, true
	}
	sub, err := GetSubject(req, h.tokenSecret)
	if err != nil {
		zerolog.Ctx(ctx).Warn().Err(err).Msg("unauthorized request")
		return textResponse(http.StatusUnauthorized, "Unauthorized: "+err.Error()), false
	}
	zerolog.Ctx(ctx).UpdateContext(func(c zerolog.Context) zerolog.Context {
		return c.Str("subject", sub)
	})
	return events.APIGatewayProxyResponse{}, true
}

// errorResponse maps a note operation error to a status code and message.
func errorResponse(err error) events.APIGatewayProxyResponse {
	switch {
	case errors.Is(err, notes.ErrValidation):
		return textResponse(http.StatusBadRequest, err.Error())
	case errors.Is(err, notes.ErrNoteNotFound):
		return textResponse(http.StatusNotFound, notes.ErrNoteNotFound.Error())
	case errors.Is(err, notes.ErrCreateIntegrity):
		return textResponse(http.StatusInternalServerError, notes.ErrCreateIntegrity.Error())
	case errors.Is(err, notes.ErrOperationFailed):
		return textResponse(http.StatusInternalServerError, err.Error())
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return textResponse(http.StatusServiceUnavailable, "Request cancelled")
	default:
		return textResponse(http.StatusInternalServerError, "Internal Server Error")
	}
}

// ListNotes returns every note, most recently updated first.
func (h *NoteHandler) ListNotes(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if resp, ok := h.authorize(ctx, req); !ok {
		return resp, nil
	}

	list, err := h.service.List(ctx)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, list), nil
}

// CreateNote creates a note from a {"title","content"} body.
func (h *NoteHandler) CreateNote(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if resp, ok := h.authorize(ctx, req); !ok {
		return resp, nil
	}

	var payload notes.CreateInput
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	note, err := h.service.Create(ctx, payload)
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusCreated, note), nil
}

// UpdateNote applies a partial update to the note named by the id path parameter.
// Fields absent from the body are left unchanged.
func (h *NoteHandler) UpdateNote(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if resp, ok := h.authorize(ctx, req); !ok {
		return resp, nil
	}

	var payload struct {
		Title   *string `json:"title"`
		Content *string `json:"content"`
	}
	if err := json.Unmarshal([]byte(req.Body), &payload); err != nil {
		return textResponse(http.StatusBadRequest, "Invalid request body"), nil
	}

	note, err := h.service.Update(ctx, notes.UpdateInput{
		ID:      req.PathParameters["id"],
		Title:   payload.Title,
		Content: payload.Content,
	})
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, note), nil
}

// DeleteNote removes the note named by the id path parameter.
func (h *NoteHandler) DeleteNote(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	if resp, ok := h.authorize(ctx, req); !ok {
		return resp, nil
	}

	ack, err := h.service.Delete(ctx, notes.DeleteInput{ID: req.PathParameters["id"]})
	if err != nil {
		return errorResponse(err), nil
	}
	return jsonResponse(http.StatusOK, ack), nil
}
