package api

import (
	"context"
	"errors"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/pulsetrack/timerd/internal/health"
	"github.com/pulsetrack/timerd/internal/metrics"
	"github.com/pulsetrack/timerd/internal/timer"
)

// ArchiveReader reads back archived sessions for the API surface. Writes go
// through the state machine only.
type ArchiveReader interface {
	GetSession(ctx context.Context, id string) (*timer.Session, error)
	ListSessions(ctx context.Context, userID string, limit int) ([]*timer.Session, error)
}

// Handlers holds dependencies for HTTP handlers.
type Handlers struct {
	machine *timer.StateMachine
	archive ArchiveReader
	checker *health.Checker
	metrics *metrics.Metrics
	policy  PolicyResponse
	logger  zerolog.Logger
	now     func() time.Time
}

// NewHandlers creates a new Handlers instance.
func NewHandlers(machine *timer.StateMachine, archive ArchiveReader, checker *health.Checker, m *metrics.Metrics, policy PolicyResponse, logger zerolog.Logger) *Handlers {
	return &Handlers{
		machine: machine,
		archive: archive,
		checker: checker,
		metrics: m,
		policy:  policy,
		logger:  logger.With().Str("component", "handlers").Logger(),
		now:     time.Now,
	}
}

// Start handles POST /api/v1/timer/start.
func (h *Handlers) Start(c *fiber.Ctx) error {
	defer h.observe("start", time.Now())

	var req StartRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	session, err := h.machine.Start(c.Context(), userID(c), timer.StartInput{
		ProjectID:       req.ProjectID,
		SelectedTaskIDs: req.SelectedTaskIDs,
		CustomStartTime: req.CustomStartTime,
	})
	if err != nil {
		return h.timerError(c, "start", err)
	}

	h.metrics.RecordOperation("start", "ok")
	return c.Status(fiber.StatusCreated).JSON(h.activeResponse(session))
}

// Pause handles POST /api/v1/timer/pause.
func (h *Handlers) Pause(c *fiber.Ctx) error {
	defer h.observe("pause", time.Now())

	session, err := h.machine.Pause(c.Context(), userID(c))
	if err != nil {
		return h.timerError(c, "pause", err)
	}

	h.metrics.RecordOperation("pause", "ok")
	return c.JSON(h.activeResponse(session))
}

// Resume handles POST /api/v1/timer/resume.
func (h *Handlers) Resume(c *fiber.Ctx) error {
	defer h.observe("resume", time.Now())

	session, err := h.machine.Resume(c.Context(), userID(c))
	if err != nil {
		return h.timerError(c, "resume", err)
	}

	h.metrics.RecordOperation("resume", "ok")
	return c.JSON(h.activeResponse(session))
}

// Cancel handles POST /api/v1/timer/cancel. Nothing is archived.
func (h *Handlers) Cancel(c *fiber.Ctx) error {
	defer h.observe("cancel", time.Now())

	if err := h.machine.Cancel(c.Context(), userID(c)); err != nil {
		return h.timerError(c, "cancel", err)
	}

	h.metrics.RecordOperation("cancel", "ok")
	return c.JSON(ActiveResponse{Active: nil})
}

// Finish handles POST /api/v1/timer/finish.
func (h *Handlers) Finish(c *fiber.Ctx) error {
	defer h.observe("finish", time.Now())

	var req FinishRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	session, err := h.machine.Finish(c.Context(), userID(c), timer.CompletionInput{
		Title:       req.Title,
		Description: req.Description,
		Visibility:  timer.Visibility(req.Visibility),
		Tags:        req.Tags,
		GroupIDs:    req.GroupIDs,
	})
	if err != nil {
		return h.timerError(c, "finish", err)
	}

	h.metrics.RecordOperation("finish", "ok")
	return c.Status(fiber.StatusCreated).JSON(SessionResponse{Session: session})
}

// GetActive handles GET /api/v1/timer. Absence (including a self-healed
// stale record) is a 200 with a null active session, never an error.
func (h *Handlers) GetActive(c *fiber.Ctx) error {
	defer h.observe("get", time.Now())

	session, err := h.machine.GetEffective(c.Context(), userID(c))
	if err != nil {
		return h.timerError(c, "get", err)
	}
	return c.JSON(h.activeResponse(session))
}

// Heartbeat handles POST /api/v1/timer/heartbeat: the periodic client
// autosave. Semantically a read of effective state, so stale records are
// reaped lazily on the client's own interval.
func (h *Handlers) Heartbeat(c *fiber.Ctx) error {
	defer h.observe("heartbeat", time.Now())

	session, err := h.machine.GetEffective(c.Context(), userID(c))
	if err != nil {
		return h.timerError(c, "heartbeat", err)
	}

	h.logger.Debug().Str("user_id", userID(c)).Bool("active", session != nil).Msg("heartbeat")
	return c.JSON(h.activeResponse(session))
}

// UpdateTasks handles PUT /api/v1/timer/tasks.
func (h *Handlers) UpdateTasks(c *fiber.Ctx) error {
	defer h.observe("update_tasks", time.Now())

	var req TasksRequest
	if err := c.BodyParser(&req); err != nil {
		return problemResponse(c, fiber.StatusBadRequest,
			"invalid_body", "Bad Request",
			"Invalid request body: "+err.Error())
	}

	session, err := h.machine.UpdateTasks(c.Context(), userID(c), req.SelectedTaskIDs)
	if err != nil {
		return h.timerError(c, "update_tasks", err)
	}

	h.metrics.RecordOperation("update_tasks", "ok")
	return c.JSON(h.activeResponse(session))
}

// GetSession handles GET /api/v1/sessions/:id.
func (h *Handlers) GetSession(c *fiber.Ctx) error {
	session, err := h.archive.GetSession(c.Context(), c.Params("id"))
	if err != nil {
		return h.timerError(c, "get_session", err)
	}
	if session == nil || session.UserID != userID(c) {
		return problemResponse(c, fiber.StatusNotFound,
			"session_not_found", "Not Found",
			"No such session")
	}
	return c.JSON(SessionResponse{Session: session})
}

// ListSessions handles GET /api/v1/sessions.
func (h *Handlers) ListSessions(c *fiber.Ctx) error {
	limit := c.QueryInt("limit", 50)
	sessions, err := h.archive.ListSessions(c.Context(), userID(c), limit)
	if err != nil {
		return h.timerError(c, "list_sessions", err)
	}
	return c.JSON(SessionListResponse{Sessions: sessions})
}

// Policy handles GET /api/v1/timer/policy.
func (h *Handlers) Policy(c *fiber.Ctx) error {
	return c.JSON(h.policy)
}

// Liveness handles GET /healthz.
func (h *Handlers) Liveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{"status": "ok"})
}

// Readiness handles GET /readyz.
func (h *Handlers) Readiness(c *fiber.Ctx) error {
	results := h.checker.RunAll(c.Context())

	allOK := true
	for _, s := range results {
		if s == health.StatusDown {
			allOK = false
			break
		}
	}

	if !allOK {
		return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
			"status": "not_ready",
			"checks": results,
		})
	}
	return c.JSON(fiber.Map{"status": "ready", "checks": results})
}

func (h *Handlers) activeResponse(session *timer.ActiveSession) ActiveResponse {
	resp := ActiveResponse{Active: session}
	if session != nil {
		elapsed := session.ElapsedSeconds(h.now())
		resp.ElapsedSeconds = &elapsed
	}
	return resp
}

func (h *Handlers) observe(operation string, start time.Time) {
	h.metrics.ObserveDuration(operation, time.Since(start).Seconds())
}

// timerError maps the state machine's error taxonomy onto problem details.
func (h *Handlers) timerError(c *fiber.Ctx, operation string, err error) error {
	type mapping struct {
		sentinel error
		status   int
		errType  string
		title    string
	}

	mappings := []mapping{
		{timer.ErrAlreadyActive, fiber.StatusConflict, "already_active", "Conflict"},
		{timer.ErrNotRunning, fiber.StatusConflict, "not_running", "Conflict"},
		{timer.ErrNotPaused, fiber.StatusConflict, "not_paused", "Conflict"},
		{timer.ErrNoActiveTimer, fiber.StatusConflict, "no_active_timer", "Conflict"},
		{timer.ErrTooShort, fiber.StatusUnprocessableEntity, "too_short", "Unprocessable Entity"},
		{timer.ErrInvalidInput, fiber.StatusBadRequest, "invalid_input", "Bad Request"},
	}

	for _, m := range mappings {
		if errors.Is(err, m.sentinel) {
			h.metrics.RecordOperation(operation, m.errType)
			return problemResponse(c, m.status, m.errType, m.title, err.Error())
		}
	}

	h.metrics.RecordOperation(operation, "error")
	h.logger.Error().Err(err).Str("operation", operation).Msg("operation failed")
	return problemResponse(c, fiber.StatusInternalServerError,
		"internal_error", "Internal Server Error",
		"An internal error occurred")
}
