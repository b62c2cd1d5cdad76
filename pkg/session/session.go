package session

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/oarkflow/log"
	"github.com/oarkflow/xid"

	oerrors "github.com/oarkflow/errors"

	"github.com/oarkflow/script"
	"github.com/oarkflow/script/pkg/events"
	"github.com/oarkflow/script/pkg/storage"
)

var ErrSessionNotFound = oerrors.New("session not found")

// Result is the outcome of one run.
type Result struct {
	RunID     string        `json:"run_id"`
	SessionID string        `json:"session_id,omitempty"`
	Output    string        `json:"output"`
	Warnings  []string      `json:"warnings,omitempty"`
	Value     any           `json:"-"`
	Result    string        `json:"result,omitempty"`
	Error     string        `json:"error,omitempty"`
	Code      string        `json:"code,omitempty"`
	Duration  time.Duration `json:"duration"`
}

func (r *Result) Success() bool { return r.Error == "" }

// Record converts the result into a history record.
func (r *Result) Record(src, scriptID string) storage.RunRecord {
	return storage.RunRecord{
		ID:         r.RunID,
		ScriptID:   scriptID,
		SessionID:  r.SessionID,
		Source:     src,
		Output:     r.Output,
		Warnings:   r.Warnings,
		Result:     r.Result,
		Success:    r.Success(),
		Error:      r.Error,
		DurationMs: float64(r.Duration) / float64(time.Millisecond),
		CreatedAt:  time.Now().UTC(),
	}
}

// Run executes src on runner and captures everything a caller reports.
func Run(ctx context.Context, runner *script.Runner, src string) *Result {
	c := runner.Context()
	start := time.Now()
	value, err := runner.ExecuteWithResult(ctx, src)
	res := &Result{
		RunID:    xid.New().String(),
		Output:   c.Output().String(),
		Value:    value,
		Duration: time.Since(start),
	}
	for _, w := range c.Warnings() {
		res.Warnings = append(res.Warnings, w.String())
	}
	if value != nil {
		res.Result = script.FormatValue(value)
	}
	if err != nil {
		res.Error = err.Error()
		var se *script.ScriptError
		if errors.As(err, &se) {
			res.Code = string(se.Code)
			res.Error = se.Describe()
		}
	}
	return res
}

// RunOnce executes src in a fresh context.
func RunOnce(ctx context.Context, src string, opts ...script.Option) (*Result, error) {
	c, err := script.NewContext(opts...)
	if err != nil {
		return nil, err
	}
	return Run(ctx, script.NewRunner(c), src), nil
}

// Session is one interpreter context. Runs on a session are serialized.
type Session struct {
	ID        string
	CreatedAt time.Time

	mu       sync.Mutex
	runner   *script.Runner
	lastUsed time.Time
	runs     int
}

// Info is a snapshot of a session for listings.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	LastUsed  time.Time `json:"last_used"`
	Runs      int       `json:"runs"`
	Variables []string  `json:"variables"`
	Classes   []string  `json:"classes"`
}

func (s *Session) Info() Info {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.runner.Context()
	classes := c.ClassNames()
	sort.Strings(classes)
	return Info{
		ID:        s.ID,
		CreatedAt: s.CreatedAt,
		LastUsed:  s.lastUsed,
		Runs:      s.runs,
		Variables: c.VariableNames(),
		Classes:   classes,
	}
}

// Hook observes every session run.
type Hook func(ctx context.Context, src string, res *Result)

type Option func(*Manager)

func WithContextOptions(opts ...script.Option) Option {
	return func(m *Manager) {
		m.contextOpts = append(m.contextOpts, opts...)
	}
}

func WithLogger(l *log.Logger) Option {
	return func(m *Manager) {
		if l != nil {
			m.logger = l
		}
	}
}

// WithEvents publishes session and run events on bus.
func WithEvents(bus *events.EventBus) Option {
	return func(m *Manager) {
		m.events = bus
	}
}

func WithHook(h Hook) Option {
	return func(m *Manager) {
		if h != nil {
			m.hooks = append(m.hooks, h)
		}
	}
}

// Manager owns the named sessions. Idle sessions live until closed.
type Manager struct {
	mu          sync.RWMutex
	sessions    map[string]*Session
	contextOpts []script.Option
	logger      *log.Logger
	hooks       []Hook
	events      *events.EventBus
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		sessions: make(map[string]*Session),
		logger:   &log.DefaultLogger,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

func (m *Manager) Create() (*Session, error) {
	id := xid.New().String()
	opts := append([]script.Option{script.WithID(id), script.WithLogger(m.logger)}, m.contextOpts...)
	c, err := script.NewContext(opts...)
	if err != nil {
		return nil, err
	}
	now := time.Now().UTC()
	s := &Session{ID: id, CreatedAt: now, lastUsed: now, runner: script.NewRunner(c)}
	m.mu.Lock()
	m.sessions[id] = s
	m.mu.Unlock()
	m.logger.Info().Str("session", id).Msg("session created")
	m.events.Publish(context.Background(), events.Event{Type: events.EventSessionCreated, Source: id})
	return s, nil
}

func (m *Manager) Get(id string) (*Session, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return s, nil
}

// List returns the sessions ordered by creation time.
func (m *Manager) List() []Info {
	m.mu.RLock()
	sessions := make([]*Session, 0, len(m.sessions))
	for _, s := range m.sessions {
		sessions = append(sessions, s)
	}
	m.mu.RUnlock()
	sort.Slice(sessions, func(i, j int) bool {
		if sessions[i].CreatedAt.Equal(sessions[j].CreatedAt) {
			return sessions[i].ID < sessions[j].ID
		}
		return sessions[i].CreatedAt.Before(sessions[j].CreatedAt)
	})
	out := make([]Info, len(sessions))
	for i, s := range sessions {
		out[i] = s.Info()
	}
	return out
}

func (m *Manager) Close(id string) error {
	m.mu.Lock()
	_, ok := m.sessions[id]
	delete(m.sessions, id)
	m.mu.Unlock()
	if !ok {
		return ErrSessionNotFound
	}
	m.logger.Info().Str("session", id).Msg("session closed")
	m.events.Publish(context.Background(), events.Event{Type: events.EventSessionClosed, Source: id})
	return nil
}

func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}

// Execute runs src on session id. Script failures are reported in the
// result; the error is only set when the session does not exist.
func (m *Manager) Execute(ctx context.Context, id, src string) (*Result, error) {
	s, err := m.Get(id)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	res := Run(ctx, s.runner, src)
	s.runs++
	s.lastUsed = time.Now().UTC()
	s.mu.Unlock()

	res.SessionID = id
	event := events.Event{
		Type:    events.EventRunFinished,
		Source:  id,
		Payload: map[string]any{"run_id": res.RunID, "duration": res.Duration},
	}
	if res.Success() {
		m.logger.Debug().Str("session", id).Str("run", res.RunID).Dur("elapsed", res.Duration).Msg("session run finished")
	} else {
		m.logger.Warn().Str("session", id).Str("run", res.RunID).Str("code", res.Code).Msg("session run failed")
		event.Type = events.EventRunFailed
		event.Payload["code"] = res.Code
		event.Payload["error"] = res.Error
	}
	m.events.Publish(ctx, event)
	for _, h := range m.hooks {
		h(ctx, src, res)
	}
	return res, nil
}
