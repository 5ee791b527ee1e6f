// Package server exposes project, generation and validation operations over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"

	"github.com/alantheprice/reqgen/internal/domain/project"
	"github.com/alantheprice/reqgen/pkg/events"
	"github.com/alantheprice/reqgen/pkg/interfaces"
	"github.com/alantheprice/reqgen/pkg/orchestration"
	"github.com/alantheprice/reqgen/pkg/store"
	"github.com/alantheprice/reqgen/pkg/utils"
	"github.com/alantheprice/reqgen/pkg/validation"
)

// ProviderLister reports which providers can serve requests
type ProviderLister interface {
	GetAvailableProviders() []string
	DefaultProvider() string
}

// Deps are the services the HTTP surface is built on
type Deps struct {
	Orchestrator *orchestration.Orchestrator
	Projects     interfaces.ProjectStore
	Providers    ProviderLister
	Templates    interfaces.TemplateProvider
	Validator    *validation.Validator
	Bus          *events.EventBus
	Logger       *utils.Logger

	// DefaultMaxRetries applies when a generate request omits max_retries
	DefaultMaxRetries int
}

// Server is the JSON API
type Server struct {
	deps     Deps
	router   *mux.Router
	upgrader websocket.Upgrader
	logger   *utils.Logger

	// runs tracks asynchronous generations
	runs sync.WaitGroup
}

// New creates a server and registers its routes
func New(deps Deps) *Server {
	if deps.Logger == nil {
		deps.Logger = utils.GetLogger()
	}
	if deps.Validator == nil {
		deps.Validator = validation.NewValidator()
	}
	s := &Server{
		deps:   deps,
		logger: deps.Logger,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				origin := r.Header.Get("Origin")
				if origin == "" {
					return true
				}
				return strings.Contains(origin, "localhost") || strings.Contains(origin, "127.0.0.1")
			},
		},
	}
	s.router = s.routes()
	return s
}

func (s *Server) routes() *mux.Router {
	r := mux.NewRouter()
	r.Use(s.recoverMiddleware, s.logMiddleware)

	r.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.HandleFunc("/projects", s.handleCreateProject).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}", s.handleGetProject).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/documents", s.handleGetDocuments).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/requirements", s.handleGenerate).Methods(http.MethodPost)
	api.HandleFunc("/projects/{id}/progress", s.handleProgress).Methods(http.MethodGet)
	api.HandleFunc("/projects/{id}/progress/stream", s.handleProgressStream).Methods(http.MethodGet)
	api.HandleFunc("/providers", s.handleProviders).Methods(http.MethodGet)
	api.HandleFunc("/templates", s.handleTemplates).Methods(http.MethodGet)
	api.HandleFunc("/validate", s.handleValidate).Methods(http.MethodPost)
	return r
}

// Handler returns the routed handler
func (s *Server) Handler() http.Handler {
	return s.router
}

// Wait blocks until every asynchronous generation has finished
func (s *Server) Wait() {
	s.runs.Wait()
}

// ListenAndServe serves on addr until ctx is cancelled, then shuts down and
// waits for running generations.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.LogProcessStep(fmt.Sprintf("Listening on %s", addr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("failed to shut down server: %w", err)
	}
	s.Wait()
	return nil
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		next.ServeHTTP(w, r)
		s.logger.LogFields("http request", map[string]any{
			"method":   r.Method,
			"path":     r.URL.Path,
			"duration": time.Since(started).String(),
		})
	})
}

func (s *Server) recoverMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		defer func() {
			if rec := recover(); rec != nil {
				s.logger.LogError(fmt.Errorf("handler panic on %s: %v", r.URL.Path, rec))
				writeError(w, http.StatusInternalServerError, "internal server error")
			}
		}()
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

// writeStoreError maps store failures onto HTTP statuses
func writeStoreError(w http.ResponseWriter, err error) {
	if errors.Is(err, store.ErrProjectNotFound) {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error())
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

type createProjectRequest struct {
	Name          string `json:"name"`
	Description   string `json:"description"`
	ClientContext string `json:"client_context"`
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var req createProjectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}
	p, err := s.deps.Projects.CreateProject(r.Context(), req.Name, req.Description, req.ClientContext)
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	p, err := s.deps.Projects.GetProject(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

// handleGetDocuments lists stored documents. ?latest=true keeps only the newest
// version of each type.
func (s *Server) handleGetDocuments(w http.ResponseWriter, r *http.Request) {
	docs, err := s.deps.Projects.GetDocuments(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		writeStoreError(w, err)
		return
	}
	if latest, _ := strconv.ParseBool(r.URL.Query().Get("latest")); latest {
		writeJSON(w, http.StatusOK, project.Latest(docs))
		return
	}
	writeJSON(w, http.StatusOK, docs)
}

type generateRequest struct {
	AdditionalContext map[string]string `json:"additional_context"`
	MaxRetries        *int              `json:"max_retries"`
	PreferredProvider string            `json:"preferred_provider"`
	Async             bool              `json:"async"`
}

func (s *Server) handleGenerate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	var body generateRequest
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request body")
			return
		}
	}
	if _, err := s.deps.Projects.GetProject(r.Context(), id); err != nil {
		writeStoreError(w, err)
		return
	}

	req := orchestration.Request{
		ProjectID:         id,
		AdditionalContext: body.AdditionalContext,
		MaxRetries:        s.deps.DefaultMaxRetries,
		PreferredProvider: body.PreferredProvider,
	}
	if body.MaxRetries != nil {
		req.MaxRetries = *body.MaxRetries
	}

	if !body.Async {
		writeJSON(w, http.StatusOK, s.deps.Orchestrator.GenerateRequirements(r.Context(), req))
		return
	}

	// The run outlives the request.
	ctx := context.WithoutCancel(r.Context())
	s.runs.Add(1)
	go func() {
		defer s.runs.Done()
		s.deps.Orchestrator.GenerateRequirements(ctx, req)
	}()
	writeJSON(w, http.StatusAccepted, map[string]string{
		"project_id":   id,
		"status":       "accepted",
		"progress_url": fmt.Sprintf("/api/projects/%s/progress", id),
	})
}

func (s *Server) handleProgress(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.deps.Orchestrator.GetGenerationProgress(mux.Vars(r)["id"]))
}

// handleProgressStream sends the current snapshot, then every update for the
// project until its run reaches a terminal state or the client goes away.
func (s *Server) handleProgressStream(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Logf("websocket upgrade failed: %v", err)
		return
	}
	safeConn := NewSafeConn(conn)
	defer safeConn.Close()

	// Subscribe before taking the snapshot so no update falls in between.
	subscriber := "progress-" + uuid.NewString()
	eventCh := s.deps.Bus.Subscribe(subscriber)
	defer s.deps.Bus.Unsubscribe(subscriber)

	snapshot := s.deps.Orchestrator.GetGenerationProgress(id)
	if err := safeConn.WriteJSON(progressMessage(snapshot)); err != nil {
		return
	}
	if snapshot.Terminal() {
		_ = safeConn.CloseNormal("generation finished")
		return
	}

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case <-readDone:
			return
		case <-r.Context().Done():
			return
		case event, ok := <-eventCh:
			if !ok {
				return
			}
			progress, ok := event.Data.(*orchestration.ProjectProgress)
			if !ok || progress.ProjectID != id {
				continue
			}
			if err := safeConn.WriteJSON(progressMessage(progress)); err != nil {
				s.logger.Logf("websocket write failed for %s: %v", id, err)
				return
			}
			if progress.Terminal() {
				_ = safeConn.CloseNormal("generation finished")
				return
			}
		}
	}
}

func progressMessage(p *orchestration.ProjectProgress) map[string]any {
	return map[string]any{"type": events.EventTypeProgressUpdated, "data": p}
}

func (s *Server) handleProviders(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"available": s.deps.Providers.GetAvailableProviders(),
		"default":   s.deps.Providers.DefaultProvider(),
	})
}

func (s *Server) handleTemplates(w http.ResponseWriter, r *http.Request) {
	names, err := s.deps.Templates.List()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"templates": names})
}

type validateRequest struct {
	DocumentType string `json:"document_type"`
	Content      string `json:"content"`
	Format       string `json:"format"`
}

func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	var result *validation.Result
	switch {
	case strings.EqualFold(req.Format, "yaml"):
		result = s.deps.Validator.ValidateYaml(req.Content)
	case req.DocumentType != "":
		result = s.deps.Validator.ValidateDocument(strings.ToUpper(req.DocumentType), req.Content)
	default:
		result = s.deps.Validator.ValidateMarkdownStructure(req.Content)
	}
	writeJSON(w, http.StatusOK, result)
}
