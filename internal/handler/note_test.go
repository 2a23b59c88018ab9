package handler_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-lambda-go/events"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jun/notesapp/internal/adapter/memory"
	"github.com/jun/notesapp/internal/handler"
	"github.com/jun/notesapp/internal/model"
	"github.com/jun/notesapp/internal/notes"
	"github.com/rs/zerolog"
	"go.mongodb.org/mongo-driver/v2/bson"
)

const (
	testSubject     = "test-client-123"
	testTokenSecret = "test-secret"
)

func makeToken(subject string) string {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": subject,
		"exp": time.Now().Add(1 * time.Hour).Unix(),
	})
	signed, _ := token.SignedString([]byte(testTokenSecret))
	return signed
}

func makeRequest(method, path, body string) events.APIGatewayProxyRequest {
	return events.APIGatewayProxyRequest{
		HTTPMethod: method,
		Path:       path,
		Body:       body,
		Headers: map[string]string{
			"Authorization": "Bearer " + makeToken(testSubject),
			"Content-Type":  "application/json",
		},
		PathParameters: map[string]string{},
	}
}

func newHandler(secret string) *handler.NoteHandler {
	svc := notes.NewService(memory.NewMemoryAdapter(), notes.WithLogger(zerolog.Nop()))
	return handler.NewNoteHandler(svc, secret)
}

func createNote(t *testing.T, h *handler.NoteHandler, body string) model.Note {
	t.Helper()
	resp, err := h.CreateNote(context.Background(), makeRequest("POST", "/notes", body))
	if err != nil {
		t.Fatalf("CreateNote returned error: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("Expected 201 Created, got %d: %s", resp.StatusCode, resp.Body)
	}
	var created model.Note
	if err := json.Unmarshal([]byte(resp.Body), &created); err != nil {
		t.Fatalf("Failed to unmarshal created note: %v", err)
	}
	return created
}

func TestNoteHandler_CreateAndList(t *testing.T) {
	h := newHandler(testTokenSecret)
	ctx := context.Background()

	created := createNote(t, h, `{"title":"Groceries","content":"milk"}`)
	if created.ID == "" {
		t.Error("Expected non-empty ID")
	}
	if created.Title != "Groceries" {
		t.Errorf("Expected title 'Groceries', got '%s'", created.Title)
	}
	if created.CreatedAt == "" || created.CreatedAt != created.UpdatedAt {
		t.Errorf("Expected equal timestamps, got %s / %s", created.CreatedAt, created.UpdatedAt)
	}

	listResp, err := h.ListNotes(ctx, makeRequest("GET", "/notes", ""))
	if err != nil {
		t.Fatalf("ListNotes returned error: %v", err)
	}
	if listResp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", listResp.StatusCode)
	}
	if listResp.Headers["Content-Type"] != "application/json" {
		t.Errorf("Expected JSON content type, got %q", listResp.Headers["Content-Type"])
	}

	var list []model.Note
	if err := json.Unmarshal([]byte(listResp.Body), &list); err != nil {
		t.Fatalf("Failed to unmarshal notes: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("Expected 1 note, got %d", len(list))
	}
	if list[0].ID != created.ID {
		t.Errorf("Note ID mismatch: got %s, want %s", list[0].ID, created.ID)
	}
}

func TestNoteHandler_ListEmptyIsArray(t *testing.T) {
	h := newHandler("")

	resp, _ := h.ListNotes(context.Background(), makeRequest("GET", "/notes", ""))
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d", resp.StatusCode)
	}
	if resp.Body != "[]" {
		t.Errorf("Expected empty JSON array, got %s", resp.Body)
	}
}

func TestNoteHandler_UpdateNote(t *testing.T) {
	h := newHandler(testTokenSecret)
	ctx := context.Background()
	created := createNote(t, h, `{"title":"draft","content":"body"}`)

	req := makeRequest("PUT", "/notes/"+created.ID, `{"title":"final"}`)
	req.PathParameters["id"] = created.ID
	resp, err := h.UpdateNote(ctx, req)
	if err != nil {
		t.Fatalf("UpdateNote returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d: %s", resp.StatusCode, resp.Body)
	}

	var updated model.Note
	json.Unmarshal([]byte(resp.Body), &updated)
	if updated.Title != "final" {
		t.Errorf("Expected title 'final', got '%s'", updated.Title)
	}
	if updated.Content != "body" {
		t.Errorf("Expected content unchanged, got '%s'", updated.Content)
	}
}

func TestNoteHandler_DeleteNote(t *testing.T) {
	h := newHandler(testTokenSecret)
	ctx := context.Background()
	created := createNote(t, h, `{"title":"bye"}`)

	req := makeRequest("DELETE", "/notes/"+created.ID, "")
	req.PathParameters["id"] = created.ID
	resp, err := h.DeleteNote(ctx, req)
	if err != nil {
		t.Fatalf("DeleteNote returned error: %v", err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("Expected 200 OK, got %d: %s", resp.StatusCode, resp.Body)
	}
	if resp.Body != `{"success":true}` {
		t.Errorf("Unexpected body: %s", resp.Body)
	}

	// Second delete: gone
	resp, _ = h.DeleteNote(ctx, req)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("Expected 404 Not Found, got %d", resp.StatusCode)
	}
	if resp.Body != "Note not found" {
		t.Errorf("Expected 'Note not found', got %q", resp.Body)
	}
}

func TestNoteHandler_Errors(t *testing.T) {
	h := newHandler(testTokenSecret)
	ctx := context.Background()
	missing := bson.NewObjectID().Hex()

	tests := []struct {
		name       string
		call       func() (events.APIGatewayProxyResponse, error)
		wantStatus int
		wantBody   string
	}{
		{
			name: "create malformed json",
			call: func() (events.APIGatewayProxyResponse, error) {
				return h.CreateNote(ctx, makeRequest("POST", "/notes", `{"title":`))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Invalid request body",
		},
		{
			name: "create empty title",
			call: func() (events.APIGatewayProxyResponse, error) {
				return h.CreateNote(ctx, makeRequest("POST", "/notes", `{"title":"  "}`))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Title is required",
		},
		{
			name: "create long title",
			call: func() (events.APIGatewayProxyResponse, error) {
				return h.CreateNote(ctx, makeRequest("POST", "/notes", `{"title":"`+strings.Repeat("a", 201)+`"}`))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Title must be 200 characters or less",
		},
		{
			name: "update missing note",
			call: func() (events.APIGatewayProxyResponse, error) {
				req := makeRequest("PUT", "/notes/"+missing, `{"content":"x"}`)
				req.PathParameters["id"] = missing
				return h.UpdateNote(ctx, req)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "Note not found",
		},
		{
			name: "update without id",
			call: func() (events.APIGatewayProxyResponse, error) {
				return h.UpdateNote(ctx, makeRequest("PUT", "/notes/", `{"content":"x"}`))
			},
			wantStatus: http.StatusBadRequest,
			wantBody:   "Note ID is required",
		},
		{
			name: "delete missing note",
			call: func() (events.APIGatewayProxyResponse, error) {
				req := makeRequest("DELETE", "/notes/"+missing, "")
				req.PathParameters["id"] = missing
				return h.DeleteNote(ctx, req)
			},
			wantStatus: http.StatusNotFound,
			wantBody:   "Note not found",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := tt.call()
			if err != nil {
				t.Fatalf("Handler returned error: %v", err)
			}
			if resp.StatusCode != tt.wantStatus {
				t.Errorf("Expected %d, got %d: %s", tt.wantStatus, resp.StatusCode, resp.Body)
			}
			if resp.Body != tt.wantBody {
				t.Errorf("Expected body %q, got %q", tt.wantBody, resp.Body)
			}
		})
	}
}

// failingService fails every operation the way a broken store would.
type failingService struct {
	err error
}

func (f failingService) List(context.Context) ([]model.Note, error) { return nil, f.err }
func (f failingService) Create(context.Context, notes.CreateInput) (*model.Note, error) {
	return nil, f.err
}
func (f failingService) Update(context.Context, notes.UpdateInput) (*model.Note, error) {
	return nil, f.err
}
func (f failingService) Delete(context.Context, notes.DeleteInput) (*notes.Ack, error) {
	return nil, f.err
}

func TestNoteHandler_GenericFailureHidesCause(t *testing.T) {
	cause := errors.New("Authentication failed. Check your MongoDB credentials.")
	h := handler.NewNoteHandler(failingService{err: &notes.OperationError{Op: notes.OpList, Err: cause}}, "")

	resp, _ := h.ListNotes(context.Background(), makeRequest("GET", "/notes", ""))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	if resp.Body != "Failed to fetch notes" {
		t.Errorf("Expected generic message, got %q", resp.Body)
	}
}

func TestNoteHandler_CreateIntegrity(t *testing.T) {
	h := handler.NewNoteHandler(failingService{err: notes.ErrCreateIntegrity}, "")

	resp, _ := h.CreateNote(context.Background(), makeRequest("POST", "/notes", `{"title":"x"}`))
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("Expected 500, got %d", resp.StatusCode)
	}
	if resp.Body != "Note created but could not be retrieved" {
		t.Errorf("Unexpected body %q", resp.Body)
	}
}

func TestNoteHandler_Unauthorized(t *testing.T) {
	h := newHandler(testTokenSecret)
	req := makeRequest("GET", "/notes", "")
	delete(req.Headers, "Authorization")

	resp, err := h.ListNotes(context.Background(), req)
	if err != nil {
		t.Fatalf("ListNotes returned error: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("Expected 401 Unauthorized, got %d", resp.StatusCode)
	}
}

func TestNoteHandler_NoSecretSkipsTokenCheck(t *testing.T) {
	h := newHandler("")
	req := makeRequest("POST", "/notes", `{"title":"open"}`)
	req.Headers = map[string]string{}

	resp, _ := h.CreateNote(context.Background(), req)
	if resp.StatusCode != http.StatusCreated {
		t.Errorf("Expected 201 Created without a token, got %d: %s", resp.StatusCode, resp.Body)
	}
}
