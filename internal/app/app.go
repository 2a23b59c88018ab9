package app

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/kms"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/jun/notesapp/internal/adapter"
	"github.com/jun/notesapp/internal/adapter/memory"
	"github.com/jun/notesapp/internal/adapter/mongostore"
	"github.com/jun/notesapp/internal/config"
	"github.com/jun/notesapp/internal/crypto"
	"github.com/jun/notesapp/internal/handler"
	"github.com/jun/notesapp/internal/mongodb"
	"github.com/jun/notesapp/internal/notes"
	"github.com/jun/notesapp/internal/secret"
)

// App holds the dependencies for the Lambda function.
type App struct {
	noteHandler      *handler.NoteHandler
	apiGatewaySecret string
	devMode          bool
	frontendURL      string
	logger           zerolog.Logger
}

// NewApp initializes the application dependencies. No database connection is
// made here; the first note operation establishes it.
func NewApp(ctx context.Context, cfg config.Config, logger zerolog.Logger) (*App, error) {
	resolver, err := newResolver(ctx, cfg, logger)
	if err != nil {
		return nil, err
	}

	// Storage
	var store adapter.NoteStore
	switch cfg.Storage {
	case config.StorageMemory:
		store = memory.NewMemoryAdapter()
		logger.Info().Msg("using in-memory note store")
	default:
		manager := mongodb.NewManager(resolver, cfg.MongoURIParam, mongodb.WithLogger(logger.With().Str("component", "mongodb").Logger()))
		store = mongostore.NewStore(manager)
		logger.Info().Str("param", cfg.MongoURIParam).Msg("using MongoDB note store")
	}

	// Secrets resolved at startup. A missing secret disables its check.
	var tokenSecret string
	if cfg.APITokenSecretParam != "" {
		tokenSecret, err = resolver.GetSecret(ctx, cfg.APITokenSecretParam)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to resolve API token secret; token check disabled")
		}
	}
	var apiGatewaySecret string
	if !cfg.DevMode {
		apiGatewaySecret, err = resolver.GetSecret(ctx, cfg.APIGatewaySecretParam)
		if err != nil {
			logger.Warn().Err(err).Msg("failed to resolve API gateway secret; origin check disabled")
		}
	}

	service := notes.NewService(store, notes.WithLogger(logger))

	return &App{
		noteHandler:      handler.NewNoteHandler(service, tokenSecret),
		apiGatewaySecret: apiGatewaySecret,
		devMode:          cfg.DevMode,
		frontendURL:      cfg.FrontendURL,
		logger:           logger,
	}, nil
}

// newResolver builds the secret source named by cfg.SecretSource. The AWS SDK
// config is only loaded when a source needs it.
func newResolver(ctx context.Context, cfg config.Config, logger zerolog.Logger) (secret.Resolver, error) {
	if cfg.SecretSource == config.SecretSourceEnv {
		logger.Info().Msg("using EnvResolver")
		return secret.NewEnvResolver(), nil
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, fmt.Errorf("unable to load SDK config: %w", err)
	}

	switch cfg.SecretSource {
	case config.SecretSourceKMS:
		logger.Info().Str("key", cfg.KMSKeyID).Msg("using KMSEnvResolver")
		return secret.NewKMSEnvResolver(newEncryptor(cfg, awsCfg)), nil
	default:
		logger.Info().Msg("using SSMResolver (SSM Parameter Store)")
		return secret.NewSSMResolver(ssm.NewFromConfig(awsCfg)), nil
	}
}

func newEncryptor(cfg config.Config, awsCfg aws.Config) crypto.Encryptor {
	if cfg.DevMode {
		return crypto.NewMockEncryptor()
	}
	return crypto.NewKMSService(kms.NewFromConfig(awsCfg), cfg.KMSKeyID)
}

// HandleRequest routes API Gateway requests to the appropriate handler.
func (app *App) HandleRequest(ctx context.Context, req events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	path := req.Path
	method := req.HTTPMethod

	requestID := req.RequestContext.RequestID
	if requestID == "" {
		requestID = uuid.NewString()
	}
	logger := app.logger.With().
		Str("request_id", requestID).
		Str("method", method).
		Str("path", path).
		Logger()
	ctx = logger.WithContext(ctx)
	logger.Debug().Msg("request")

	// CORS Preflight
	if method == http.MethodOptions {
		return app.corsResponse(events.APIGatewayProxyResponse{StatusCode: http.StatusNoContent}), nil
	}

	// Verify Request Origin (CloudFront only)
	if !app.devMode && app.apiGatewaySecret != "" {
		if req.Headers["X-Origin-Verify"] != app.apiGatewaySecret && req.Headers["x-origin-verify"] != app.apiGatewaySecret {
			logger.Warn().Msg("missing or invalid X-Origin-Verify header")
			return events.APIGatewayProxyResponse{
				StatusCode: http.StatusForbidden,
				Body:       "Forbidden: Access denied",
			}, nil
		}
	}

	// Strip /api prefix if present (for CloudFront proxying)
	path = strings.TrimPrefix(path, "/api")

	if req.PathParameters == nil {
		req.PathParameters = make(map[string]string)
	}

	if path == "/notes" || path == "/notes/" {
		switch method {
		case http.MethodGet:
			return app.serve(ctx, req, app.noteHandler.ListNotes), nil
		case http.MethodPost:
			return app.serve(ctx, req, app.noteHandler.CreateNote), nil
		}
	}

	// /notes/{id} and /notes/{id}/delete
	if rest, ok := strings.CutPrefix(path, "/notes/"); ok && rest != "" {
		parts := strings.Split(strings.Trim(rest, "/"), "/")
		req.PathParameters["id"] = parts[0]

		switch {
		case len(parts) == 1 && (method == http.MethodPut || method == http.MethodPatch):
			return app.serve(ctx, req, app.noteHandler.UpdateNote), nil
		case len(parts) == 1 && method == http.MethodDelete:
			return app.serve(ctx, req, app.noteHandler.DeleteNote), nil
		case len(parts) == 2 && parts[1] == "delete" && method == http.MethodPost:
			return app.serve(ctx, req, app.noteHandler.DeleteNote), nil
		}
	}

	return app.corsResponse(events.APIGatewayProxyResponse{
		StatusCode: http.StatusNotFound,
		Body:       fmt.Sprintf("Not Found: %s %s", method, path),
	}), nil
}

// corsResponse adds CORS headers to an API Gateway response.
func (app *App) corsResponse(resp events.APIGatewayProxyResponse) events.APIGatewayProxyResponse {
	if resp.Headers == nil {
		resp.Headers = make(map[string]string)
	}
	resp.Headers["Access-Control-Allow-Origin"] = app.frontendURL
	resp.Headers["Access-Control-Allow-Credentials"] = "true"
	resp.Headers["Access-Control-Allow-Methods"] = "GET,POST,PUT,PATCH,DELETE,OPTIONS"
	resp.Headers["Access-Control-Allow-Headers"] = "Content-Type,Authorization"
	return resp
}

type route func(context.Context, events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error)

// serve runs h and adds CORS headers, replacing a handler error with a 500.
func (app *App) serve(ctx context.Context, req events.APIGatewayProxyRequest, h route) events.APIGatewayProxyResponse {
	resp, err := h(ctx, req)
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Msg("handler error")
		resp = events.APIGatewayProxyResponse{StatusCode: http.StatusInternalServerError, Body: "Internal Server Error"}
	}
	zerolog.Ctx(ctx).Info().Int("status", resp.StatusCode).Msg("request handled")
	return app.corsResponse(resp)
}
