package session

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/kgee-io/kgee/pkg/models"
	"github.com/kgee-io/kgee/pkg/research"
)

// SupervisorRunner is the research loop the manager hands each session to.
type SupervisorRunner interface {
	Run(ctx context.Context, state *models.ResearchState, observer research.Observer) *models.ResearchState
}

// ProgressPublisher receives per-session progress updates for the streaming
// surfaces. May be nil.
type ProgressPublisher interface {
	PublishProgress(sessionID string, state models.ResearchState)
}

// Manager owns the research session registry: id -> session. Sessions are
// evicted after completion plus the retention window, or immediately on
// explicit deletion.
type Manager struct {
	mu        sync.RWMutex
	sessions  map[string]*Session
	retention time.Duration
	publisher ProgressPublisher
}

// NewManager creates a session manager. retention bounds how long finished
// sessions stay readable.
func NewManager(retention time.Duration, publisher ProgressPublisher) *Manager {
	if retention <= 0 {
		retention = time.Hour
	}
	return &Manager{
		sessions:  make(map[string]*Session),
		retention: retention,
		publisher: publisher,
	}
}

// NewSessionID creates a research session id of the form research_<hex12>.
func NewSessionID() string {
	buf := make([]byte, 6)
	if _, err := rand.Read(buf); err != nil {
		// Fall back to a time-derived suffix; collisions are checked on insert.
		return fmt.Sprintf("research_%012x", time.Now().UnixNano()&0xffffffffffff)
	}
	return "research_" + hex.EncodeToString(buf)
}

// Create registers a new pending session.
func (m *Manager) Create(params Params) *Session {
	sess := &Session{
		ID:        NewSessionID(),
		Params:    params,
		CreatedAt: time.Now().UTC(),
	}
	sess.state = *models.NewResearchState(params.Query, params.Namespace, params.MaxIterations)

	m.mu.Lock()
	for m.sessions[sess.ID] != nil {
		sess.ID = NewSessionID()
	}
	m.sessions[sess.ID] = sess
	m.mu.Unlock()

	slog.Info("research_session_created", "session_id", sess.ID, "query", params.Query)
	return sess
}

// Get returns a session by id.
func (m *Manager) Get(id string) (*Session, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sess, ok := m.sessions[id]
	return sess, ok
}

// Cancel cancels a session's background task. Returns false for unknown ids.
// Cancelling a finished session is a no-op that still reports success.
func (m *Manager) Cancel(id, reason string) bool {
	sess, ok := m.Get(id)
	if !ok {
		return false
	}
	sess.Cancel(reason)
	slog.Info("research_session_cancelled", "session_id", id, "reason", reason)
	return true
}

// Delete removes a session from the registry.
func (m *Manager) Delete(id string) {
	m.mu.Lock()
	delete(m.sessions, id)
	m.mu.Unlock()
}

// Start launches the research run as a background task owned by the
// session. The task terminates on completion, overall timeout, or cancel.
func (m *Manager) Start(sess *Session, runner SupervisorRunner) {
	ctx, cancel := context.WithTimeout(context.Background(), sess.Params.Timeout)
	sess.SetCancelFunc(cancel)

	go func() {
		defer cancel()

		state := models.NewResearchState(sess.Params.Query, sess.Params.Namespace, sess.Params.MaxIterations)
		observer := &managerObserver{manager: m, session: sess}

		runner.Run(ctx, state, observer)

		switch {
		case sess.terminal():
			// Cancelled while running; nothing more to record.
		case ctx.Err() == context.DeadlineExceeded && state.CurrentStep != models.StepComplete:
			sess.Fail(fmt.Sprintf("Research timeout after %s", sess.Params.Timeout))
		default:
			sess.Complete()
		}

		snap := sess.Snapshot()
		slog.Info("research_session_finished",
			"session_id", sess.ID,
			"status", snap.Status,
			"total_time_ms", snap.TotalTimeMS)
		if m.publisher != nil {
			m.publisher.PublishProgress(sess.ID, snap.State)
		}
	}()
}

// managerObserver forwards state updates to the session and the progress
// publisher.
type managerObserver struct {
	manager *Manager
	session *Session
}

func (o *managerObserver) OnStateUpdate(state models.ResearchState) {
	o.session.OnStateUpdate(state)
	if o.manager.publisher != nil {
		o.manager.publisher.PublishProgress(o.session.ID, state)
	}
}

// RunEviction sweeps finished sessions past the retention window until ctx
// is cancelled.
func (m *Manager) RunEviction(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			m.evictExpired()
		}
	}
}

func (m *Manager) evictExpired() {
	cutoff := time.Now().UTC().Add(-m.retention)

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, sess := range m.sessions {
		snap := sess.Snapshot()
		finished := snap.CompletedAt != nil && snap.CompletedAt.Before(cutoff)
		cancelled := snap.Status == StatusCancelled && sess.CreatedAt.Before(cutoff)
		if finished || cancelled {
			delete(m.sessions, id)
			slog.Debug("research_session_evicted", "session_id", id)
		}
	}
}

// Len reports the registry size.
func (m *Manager) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.sessions)
}
