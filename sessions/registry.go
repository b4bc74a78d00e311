// Package sessions owns one quiz session per browsing session and runs the
// delayed auto-advance after correct submissions.
package sessions

import (
	"context"
	"math/rand"
	"strconv"
	"sync"
	"time"

	"studyquiz-server/logger"
	"studyquiz-server/quiz"
	"studyquiz-server/utils"
)

type Options struct {
	AutoAdvanceDelay time.Duration
	IdleTTL          time.Duration
	SweepInterval    time.Duration
}

type entry struct {
	mu        sync.Mutex
	session   *quiz.Session
	lastSeen  time.Time
	introSeen bool
	timer     *time.Timer
}

// Registry maps browsing-session IDs to quiz sessions.
type Registry struct {
	store *quiz.Store
	opts  Options
	log   *logger.Logger
	now   func() time.Time

	mu      sync.Mutex
	entries map[string]*entry
}

func New(store *quiz.Store, opts Options, log *logger.Logger) *Registry {
	return &Registry{
		store:   store,
		opts:    opts,
		log:     log,
		now:     time.Now,
		entries: make(map[string]*entry),
	}
}

func (r *Registry) Store() *quiz.Store { return r.store }

// entry returns the entry for id, creating it with every category selected.
// lastSeen is refreshed under r.mu, the lock Sweep evicts under.
func (r *Registry) entry(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := r.now()
	e, ok := r.entries[id]
	if !ok {
		seed := utils.SeedFrom(id, strconv.FormatInt(now.UnixNano(), 10))
		s := quiz.NewSession(r.store, nil, rand.New(rand.NewSource(seed)))
		l := r.log.With("tab_id", id)
		s.Subscribe(func(c quiz.Change) {
			l.Debug("Session transition", "kind", c.Kind, "position", c.Position, "from", c.From)
		})
		e = &entry{session: s, lastSeen: now}
		r.entries[id] = e
		r.log.Debug("Created quiz session", "tab_id", id, "questions", s.Len())
	}
	e.lastSeen = now
	return e
}

// Do runs fn on the session of id while holding its lock and returns the
// change together with a view taken under the same lock. A change carrying
// an advance ticket schedules the delayed advance.
func (r *Registry) Do(id string, fn func(*quiz.Session) (quiz.Change, error)) (quiz.Change, quiz.View, error) {
	e := r.entry(id)
	e.mu.Lock()
	defer e.mu.Unlock()

	c, err := fn(e.session)
	if err != nil {
		return c, e.session.View(), err
	}
	if c.Kind == quiz.ChangeNavigated || c.Kind == quiz.ChangeReset {
		stopTimer(e)
	}
	if c.Advance != nil {
		r.schedule(id, e, *c.Advance)
	}
	return c, e.session.View(), nil
}

// View returns the current view of id.
func (r *Registry) View(id string) quiz.View {
	_, v, _ := r.Do(id, func(*quiz.Session) (quiz.Change, error) {
		return quiz.Change{Kind: quiz.ChangeNone}, nil
	})
	return v
}

// schedule must be called with e.mu held.
func (r *Registry) schedule(id string, e *entry, t quiz.AdvanceTicket) {
	stopTimer(e)
	if r.opts.AutoAdvanceDelay <= 0 {
		e.session.ApplyAdvance(t)
		return
	}
	e.timer = time.AfterFunc(r.opts.AutoAdvanceDelay, func() {
		e.mu.Lock()
		defer e.mu.Unlock()
		if c := e.session.ApplyAdvance(t); c.Kind == quiz.ChangeNone {
			r.log.Debug("Dropped stale auto-advance", "tab_id", id, "position", t.Position)
		}
	})
}

func stopTimer(e *entry) {
	if e.timer != nil {
		e.timer.Stop()
		e.timer = nil
	}
}

// IntroSeen reports the session scoped intro flag of id.
func (r *Registry) IntroSeen(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.entries[id]
	return ok && e.introSeen
}

func (r *Registry) SetIntroSeen(id string, seen bool) {
	e := r.entry(id)
	r.mu.Lock()
	e.introSeen = seen
	r.mu.Unlock()
}

func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// Sweep evicts sessions idle for longer than the TTL and returns how many went.
func (r *Registry) Sweep(now time.Time) int {
	r.mu.Lock()
	var stale []*entry
	for id, e := range r.entries {
		if now.Sub(e.lastSeen) > r.opts.IdleTTL {
			stale = append(stale, e)
			delete(r.entries, id)
		}
	}
	r.mu.Unlock()

	for _, e := range stale {
		e.mu.Lock()
		stopTimer(e)
		e.mu.Unlock()
	}
	return len(stale)
}

// Run sweeps on a ticker until ctx is done.
func (r *Registry) Run(ctx context.Context) {
	if r.opts.SweepInterval <= 0 {
		<-ctx.Done()
		r.Close()
		return
	}
	ticker := time.NewTicker(r.opts.SweepInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			r.Close()
			return
		case now := <-ticker.C:
			if n := r.Sweep(now); n > 0 {
				r.log.Info("Evicted idle quiz sessions", "evicted", n, "remaining", r.Len())
			}
		}
	}
}

// Close stops every pending auto-advance.
func (r *Registry) Close() {
	r.mu.Lock()
	entries := make([]*entry, 0, len(r.entries))
	for _, e := range r.entries {
		entries = append(entries, e)
	}
	r.mu.Unlock()
	for _, e := range entries {
		e.mu.Lock()
		stopTimer(e)
		e.mu.Unlock()
	}
}
