package goRelay

import (
	"context"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"github.com/MrEthical07/goRelay/broker"
)

// session is the process-local record of one durable connection: its engine
// instance, its broker subscriptions, and the one-shot cleanup gate that
// every termination trigger funnels into.
type session struct {
	id        string
	createdAt time.Time
	lastSeen  atomic.Int64

	engine ProtocolEngine

	// ctx scopes the session: it is canceled by cleanup and by client
	// disconnect, and every broker call made on behalf of the session
	// uses it.
	ctx    context.Context
	cancel context.CancelFunc

	mu   sync.Mutex
	subs []*broker.Subscription

	cleanupOnce sync.Once
	done        chan struct{}
}

func newSession(id string, engine ProtocolEngine, parent context.Context) *session {
	ctx, cancel := context.WithCancel(parent)
	s := &session{
		id:        id,
		createdAt: time.Now(),
		engine:    engine,
		ctx:       ctx,
		cancel:    cancel,
		done:      make(chan struct{}),
	}
	s.touch()
	return s
}

func (s *session) touch() {
	s.lastSeen.Store(time.Now().Unix())
}

func (s *session) addSubscription(sub *broker.Subscription) {
	s.mu.Lock()
	s.subs = append(s.subs, sub)
	s.mu.Unlock()
}

func (s *session) drainSubscriptions() []*broker.Subscription {
	s.mu.Lock()
	subs := s.subs
	s.subs = nil
	s.mu.Unlock()
	return subs
}

func (s *session) info() SessionInfo {
	return SessionInfo{
		SessionID: s.id,
		CreatedAt: s.createdAt.Unix(),
		LastSeen:  s.lastSeen.Load(),
	}
}

// sessionRegistry is the process-local map of active sessions. Each session
// mutates only its own entry, so a single mutex around the map suffices;
// there is no cross-session locking.
type sessionRegistry struct {
	mu       sync.Mutex
	sessions map[string]*session
}

func newSessionRegistry() *sessionRegistry {
	return &sessionRegistry{
		sessions: make(map[string]*session),
	}
}

func (r *sessionRegistry) add(s *session) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.sessions[s.id]; exists {
		return false
	}
	r.sessions[s.id] = s
	return true
}

func (r *sessionRegistry) remove(id string) {
	r.mu.Lock()
	delete(r.sessions, id)
	r.mu.Unlock()
}

func (r *sessionRegistry) get(id string) (*session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	return s, ok
}

func (r *sessionRegistry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// active returns a snapshot of current sessions. Callers operate on the
// snapshot without holding the registry lock, so a session may already be
// mid-cleanup by the time it is visited; cleanup idempotency makes that safe.
func (r *sessionRegistry) active() []*session {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*session, 0, len(r.sessions))
	for _, s := range r.sessions {
		out = append(out, s)
	}
	return out
}

// stale returns sessions whose last activity is older than maxIdle.
func (r *sessionRegistry) stale(now time.Time, maxIdle time.Duration) []*session {
	cutoff := now.Add(-maxIdle).Unix()

	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*session
	for _, s := range r.sessions {
		if s.lastSeen.Load() < cutoff {
			out = append(out, s)
		}
	}
	return out
}

// Sessions returns a point-in-time view of all active sessions, sorted by
// creation time.
//
//	Docs: docs/operations.md
func (rel *Relay) Sessions() []SessionInfo {
	if rel == nil || rel.registry == nil {
		return nil
	}

	active := rel.registry.active()
	out := make([]SessionInfo, 0, len(active))
	for _, s := range active {
		out = append(out, s.info())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt < out[j].CreatedAt })
	return out
}

// SessionCount returns the number of sessions currently registered.
func (rel *Relay) SessionCount() int {
	if rel == nil || rel.registry == nil {
		return 0
	}
	return rel.registry.len()
}

// CloseSession terminates one session through the same idempotent cleanup
// path as every other trigger. It reports whether the session was found.
// Applications use it to close a session on engine-initiated shutdown.
func (rel *Relay) CloseSession(sessionID string) bool {
	if rel == nil || rel.registry == nil {
		return false
	}

	s, ok := rel.registry.get(sessionID)
	if !ok {
		return false
	}
	rel.closeSession(s, "application")
	return true
}

func (rel *Relay) sweepLoop(ctx context.Context) {
	defer close(rel.sweepDone)

	if rel.config.Session.SweepInterval <= 0 {
		<-ctx.Done()
		return
	}

	ticker := time.NewTicker(rel.config.Session.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			for _, s := range rel.registry.stale(now, rel.config.Session.MaxDuration) {
				rel.closeSession(s, "sweep")
			}
		}
	}
}
