package wizard

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	core "skillswap/internal/wizard"
)

const (
	EventState  = "wizard_state"
	EventClosed = "wizard_closed"
	EventPong   = "pong"
	EventError  = "error"
)

// Event is pushed to websocket subscribers of one wizard.
type Event struct {
	Type     string `json:"type"`
	WizardID string `json:"wizardId"`
	Payload  any    `json:"payload,omitempty"`
}

// Publisher fans events out to a wizard's subscribers.
type Publisher interface {
	Publish(wizardID string, event *Event)
	CloseRoom(wizardID string)
}

type entry struct {
	owner    string
	w        *core.Wizard
	lastSeen time.Time
}

// Registry owns the live wizards, one per booking attempt.
type Registry struct {
	mu      sync.Mutex
	entries map[string]*entry

	base    core.Options
	idleTTL time.Duration
	pub     Publisher
	now     func() time.Time
	log     *zap.Logger
}

// NewRegistry builds wizards from base. base.OnClose is ignored; the
// registry publishes close events itself.
func NewRegistry(base core.Options, idleTTL time.Duration, pub Publisher, log *zap.Logger) *Registry {
	if log == nil {
		log = zap.NewNop()
	}
	if base.Logger == nil {
		base.Logger = log
	}
	return &Registry{
		entries: make(map[string]*entry),
		base:    base,
		idleTTL: idleTTL,
		pub:     pub,
		now:     time.Now,
		log:     log,
	}
}

// Create opens a new wizard for owner. ctx must carry the owner's principal;
// background fetches keep its values.
func (r *Registry) Create(ctx context.Context, owner string, teacher core.Teacher, skill core.Skill) (string, *core.Wizard) {
	id := uuid.NewString()

	opts := r.base
	opts.Logger = r.base.Logger.With(zap.String("wizard_id", id), zap.String("user_id", owner))
	opts.OnClose = func() {
		r.publish(id, &Event{Type: EventClosed, WizardID: id})
	}
	w := core.New(opts)
	w.OnChange(func(s core.Snapshot) {
		r.publish(id, &Event{Type: EventState, WizardID: id, Payload: s})
	})

	r.mu.Lock()
	r.entries[id] = &entry{owner: owner, w: w, lastSeen: r.now()}
	r.mu.Unlock()

	w.Open(ctx, teacher, skill)
	r.log.Debug("wizard opened", zap.String("wizard_id", id), zap.String("user_id", owner), zap.String("teacher_id", teacher.ID))
	return id, w
}

// Get returns owner's wizard and marks it active.
func (r *Registry) Get(id, owner string) (*core.Wizard, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.entries[id]
	if !ok {
		return nil, ErrNotFound
	}
	if e.owner != owner {
		return nil, ErrForbidden
	}
	e.lastSeen = r.now()
	return e.w, nil
}

// Remove closes the wizard and forgets it.
func (r *Registry) Remove(id, owner string) error {
	r.mu.Lock()
	e, ok := r.entries[id]
	switch {
	case !ok:
		r.mu.Unlock()
		return ErrNotFound
	case e.owner != owner:
		r.mu.Unlock()
		return ErrForbidden
	}
	delete(r.entries, id)
	r.mu.Unlock()

	e.w.Close()
	if r.pub != nil {
		r.pub.CloseRoom(id)
	}
	return nil
}

// Sweep evicts wizards idle for longer than the TTL and returns how many.
func (r *Registry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var stale []string
	var wizards []*core.Wizard
	for id, e := range r.entries {
		if e.lastSeen.Before(cutoff) {
			stale = append(stale, id)
			wizards = append(wizards, e.w)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for i, w := range wizards {
		w.Close()
		if r.pub != nil {
			r.pub.CloseRoom(stale[i])
		}
	}
	if len(stale) > 0 {
		r.log.Info("evicted idle wizards", zap.Int("count", len(stale)))
	}
	return len(stale)
}

// Run sweeps every interval until ctx is done.
func (r *Registry) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			r.Sweep()
		}
	}
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

func (r *Registry) publish(id string, ev *Event) {
	if r.pub != nil {
		r.pub.Publish(id, ev)
	}
}
