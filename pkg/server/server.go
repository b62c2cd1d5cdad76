package server

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/oarkflow/json"
	"github.com/oarkflow/log"

	"github.com/oarkflow/script"
	"github.com/oarkflow/script/pkg/events"
	"github.com/oarkflow/script/pkg/fileutil"
	"github.com/oarkflow/script/pkg/session"
	"github.com/oarkflow/script/pkg/storage"
)

type Config struct {
	Version        string
	RequestTimeout time.Duration
	// ContextOptions are applied to every interpreter context the server creates.
	ContextOptions []script.Option
	// Store enables saved scripts and history. Nil disables those endpoints.
	Store *storage.Store
	// Transcript receives every run when set.
	Transcript *fileutil.JSONAppender[storage.RunRecord]
	Logger     *log.Logger
	// Events receives session lifecycle and run events when set.
	Events *events.EventBus
	// AccessLog turns on the request logger middleware.
	AccessLog bool
}

type Server struct {
	app      *fiber.App
	sessions *session.Manager
	config   Config
	logger   *log.Logger
}

type ExecuteRequest struct {
	Source string `json:"source"`
}

type ScriptRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

const (
	codeBadRequest  = "BAD_REQUEST"
	codeNotFound    = "NOT_FOUND"
	codeConflict    = "CONFLICT"
	codeUnavailable = "UNAVAILABLE"
	codeInternal    = "INTERNAL"
)

// apiError carries the machine readable code next to the HTTP status.
type apiError struct {
	status  int
	code    string
	message string
}

func (e *apiError) Error() string { return e.message }

func newAPIError(status int, code, message string) error {
	return &apiError{status: status, code: code, message: message}
}

func errorHandler(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	code := codeInternal
	var ae *apiError
	var fe *fiber.Error
	switch {
	case errors.As(err, &ae):
		status, code = ae.status, ae.code
	case errors.As(err, &fe):
		status = fe.Code
		switch fe.Code {
		case fiber.StatusNotFound:
			code = codeNotFound
		case fiber.StatusBadRequest:
			code = codeBadRequest
		}
	}
	return c.Status(status).JSON(fiber.Map{
		"error": err.Error(),
		"code":  code,
	})
}

func NewServer(cfg Config) *Server {
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 30 * time.Second
	}
	if cfg.Logger == nil {
		cfg.Logger = &log.DefaultLogger
	}
	app := fiber.New(fiber.Config{
		ErrorHandler:          errorHandler,
		DisableStartupMessage: true,
		JSONEncoder: func(v any) ([]byte, error) {
			return json.Marshal(v)
		},
		JSONDecoder: func(data []byte, v any) error {
			return json.Unmarshal(data, v)
		},
	})
	server := &Server{
		app:    app,
		config: cfg,
		logger: cfg.Logger,
	}
	server.sessions = session.NewManager(
		session.WithContextOptions(cfg.ContextOptions...),
		session.WithLogger(cfg.Logger),
		session.WithEvents(cfg.Events),
		session.WithHook(func(ctx context.Context, src string, res *session.Result) {
			server.record(ctx, src, "", res)
		}),
	)
	server.setupRoutes()
	return server
}

func (s *Server) setupRoutes() {
	s.app.Use(cors.New())
	if s.config.AccessLog {
		s.app.Use(logger.New())
	}

	s.app.Get("/api/health", s.healthHandler)

	s.app.Post("/api/execute", s.executeHandler)

	s.app.Get("/api/sessions", s.listSessionsHandler)
	s.app.Post("/api/sessions", s.createSessionHandler)
	s.app.Post("/api/sessions/:id/execute", s.executeSessionHandler)
	s.app.Delete("/api/sessions/:id", s.closeSessionHandler)

	s.app.Get("/api/scripts", s.listScriptsHandler)
	s.app.Post("/api/scripts", s.createScriptHandler)
	s.app.Get("/api/scripts/:id", s.getScriptHandler)
	s.app.Put("/api/scripts/:id", s.updateScriptHandler)
	s.app.Delete("/api/scripts/:id", s.deleteScriptHandler)
	s.app.Post("/api/scripts/:id/run", s.runScriptHandler)

	s.app.Get("/api/history", s.historyHandler)
}

// App exposes the fiber application, mainly for tests.
func (s *Server) App() *fiber.App { return s.app }

func (s *Server) Sessions() *session.Manager { return s.sessions }

func (s *Server) healthHandler(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "healthy",
		"version":   s.config.Version,
		"sessions":  s.sessions.Len(),
		"storage":   s.config.Store != nil,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) requestContext(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.UserContext(), s.config.RequestTimeout)
}

func parseSource(c *fiber.Ctx) (string, error) {
	var req ExecuteRequest
	if err := c.BodyParser(&req); err != nil {
		return "", newAPIError(fiber.StatusBadRequest, codeBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Source) == "" {
		return "", newAPIError(fiber.StatusBadRequest, codeBadRequest, "Source cannot be empty")
	}
	return req.Source, nil
}

func (s *Server) executeHandler(c *fiber.Ctx) error {
	src, err := parseSource(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	res, err := session.RunOnce(ctx, src, s.config.ContextOptions...)
	if err != nil {
		return err
	}
	s.record(ctx, src, "", res)
	return c.JSON(res)
}

func (s *Server) listSessionsHandler(c *fiber.Ctx) error {
	return c.JSON(s.sessions.List())
}

func (s *Server) createSessionHandler(c *fiber.Ctx) error {
	sess, err := s.sessions.Create()
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(sess.Info())
}

func (s *Server) executeSessionHandler(c *fiber.Ctx) error {
	src, err := parseSource(c)
	if err != nil {
		return err
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	res, err := s.sessions.Execute(ctx, c.Params("id"), src)
	if err != nil {
		return sessionError(err)
	}
	return c.JSON(res)
}

func (s *Server) closeSessionHandler(c *fiber.Ctx) error {
	if err := s.sessions.Close(c.Params("id")); err != nil {
		return sessionError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func sessionError(err error) error {
	if errors.Is(err, session.ErrSessionNotFound) {
		return newAPIError(fiber.StatusNotFound, codeNotFound, err.Error())
	}
	return err
}

func (s *Server) requireStore() (*storage.Store, error) {
	if s.config.Store == nil {
		return nil, newAPIError(fiber.StatusServiceUnavailable, codeUnavailable, "storage is not configured")
	}
	return s.config.Store, nil
}

func storeError(err error) error {
	switch {
	case errors.Is(err, storage.ErrScriptNotFound):
		return newAPIError(fiber.StatusNotFound, codeNotFound, err.Error())
	case errors.Is(err, storage.ErrScriptName):
		return newAPIError(fiber.StatusBadRequest, codeBadRequest, err.Error())
	case strings.Contains(err.Error(), "UNIQUE"):
		return newAPIError(fiber.StatusConflict, codeConflict, "a script with this name already exists")
	}
	return err
}

func (s *Server) listScriptsHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	scripts, err := store.ListScripts(c.UserContext())
	if err != nil {
		return storeError(err)
	}
	if scripts == nil {
		scripts = []storage.ScriptRecord{}
	}
	return c.JSON(scripts)
}

func (s *Server) createScriptHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	var req ScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return newAPIError(fiber.StatusBadRequest, codeBadRequest, "Invalid request body")
	}
	rec, err := store.SaveScript(c.UserContext(), req.Name, req.Description, req.Source)
	if err != nil {
		return storeError(err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

func (s *Server) getScriptHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	rec, err := store.GetScript(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	return c.JSON(rec)
}

func (s *Server) updateScriptHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	var req ScriptRequest
	if err := c.BodyParser(&req); err != nil {
		return newAPIError(fiber.StatusBadRequest, codeBadRequest, "Invalid request body")
	}
	existing, err := store.GetScript(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	if req.Name != "" {
		existing.Name = req.Name
	}
	if req.Source != "" {
		existing.Source = req.Source
	}
	existing.Description = req.Description
	rec, err := store.UpdateScript(c.UserContext(), existing)
	if err != nil {
		return storeError(err)
	}
	return c.JSON(rec)
}

func (s *Server) deleteScriptHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	existing, err := store.GetScript(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	if err := store.DeleteScript(c.UserContext(), existing.ID); err != nil {
		return storeError(err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}

func (s *Server) runScriptHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	rec, err := store.GetScript(c.UserContext(), c.Params("id"))
	if err != nil {
		return storeError(err)
	}
	ctx, cancel := s.requestContext(c)
	defer cancel()
	res, err := session.RunOnce(ctx, rec.Source, s.config.ContextOptions...)
	if err != nil {
		return err
	}
	s.record(ctx, rec.Source, rec.ID, res)
	return c.JSON(res)
}

func (s *Server) historyHandler(c *fiber.Ctx) error {
	store, err := s.requireStore()
	if err != nil {
		return err
	}
	runs, err := store.ListRuns(c.UserContext(), c.QueryInt("limit", 50))
	if err != nil {
		return err
	}
	if runs == nil {
		runs = []storage.RunRecord{}
	}
	return c.JSON(runs)
}

// record stores a finished run in the history and the transcript. Failures
// are logged and never reach the client.
func (s *Server) record(ctx context.Context, src, scriptID string, res *session.Result) {
	if s.config.Store == nil && s.config.Transcript == nil {
		return
	}
	run := res.Record(src, scriptID)
	if s.config.Store != nil {
		if _, err := s.config.Store.RecordRun(context.WithoutCancel(ctx), run); err != nil {
			s.logger.Error().Err(err).Str("run", run.ID).Msg("failed to record run")
		}
	}
	if s.config.Transcript != nil {
		if err := s.config.Transcript.Append(run); err != nil {
			s.logger.Error().Err(err).Str("run", run.ID).Msg("failed to append transcript")
		}
	}
}

func (s *Server) Start(addr string) error {
	s.logger.Info().Str("address", addr).Msg("Starting script server")
	return s.app.Listen(addr)
}

func (s *Server) Shutdown() error {
	s.logger.Info().Msg("Shutting down script server gracefully")
	return s.app.Shutdown()
}
