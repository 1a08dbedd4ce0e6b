package countdown

import (
	"sync"
	"time"

	"fastcal/internal/clock"
	appLog "fastcal/internal/log"
	"fastcal/internal/model"
)

// DefaultPeriod is the tick interval of a running countdown.
const DefaultPeriod = time.Second

// Repository is the read-only dataset view a Session selects from.
type Repository interface {
	ListSubRegions(region string) []string
	Resolve(region, subRegion string) model.DaySequence
}

// Scheduler runs job every period until the returned cancel func is called.
// A run already dispatched when cancel returns may still execute; Session
// discards such runs by generation.
type Scheduler interface {
	Every(period time.Duration, job func()) (cancel func(), err error)
}

// Selection is the outcome of SelectSubRegion.
type Selection struct {
	Region     string
	SubRegion  string
	Sequence   model.DaySequence
	Today      *model.DayEntry
	Generation uint64
}

// Session owns the active selection and its one periodic tick job. Changing
// the selection cancels the previous job before the new sequence becomes
// visible, and ticks scheduled for an older selection are discarded.
//
// The tick callback runs with the session locked; it must not call back
// into the Session.
type Session struct {
	engine *Engine
	source *clock.Source
	repo   Repository
	sched  Scheduler
	period time.Duration
	onTick func(Result)

	mu        sync.Mutex
	region    string
	subRegion string
	seq       model.DaySequence
	gen       uint64
	cancel    func()
}

// SessionOption configures a Session.
type SessionOption func(*Session)

// WithScheduler makes SelectSubRegion start a periodic job on sched. Without
// one the owner drives Tick itself.
func WithScheduler(sched Scheduler) SessionOption {
	return func(s *Session) { s.sched = sched }
}

// WithPeriod overrides DefaultPeriod.
func WithPeriod(d time.Duration) SessionOption {
	return func(s *Session) {
		if d > 0 {
			s.period = d
		}
	}
}

// OnTick registers the callback for scheduled ticks.
func OnTick(fn func(Result)) SessionOption {
	return func(s *Session) { s.onTick = fn }
}

// NewSession creates a Session with nothing selected.
func NewSession(repo Repository, source *clock.Source, opts ...SessionOption) *Session {
	s := &Session{
		engine: NewEngine(source.Location()),
		source: source,
		repo:   repo,
		period: DefaultPeriod,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SelectRegion lists the sub-regions of region. It does not touch the
// active countdown.
func (s *Session) SelectRegion(region string) []string {
	return s.repo.ListSubRegions(region)
}

// SelectSubRegion resolves (region, subRegion), makes it the active
// selection and (re)starts the tick job. An empty name clears the
// selection.
func (s *Session) SelectSubRegion(region, subRegion string) (Selection, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.stopLocked()
	s.gen++

	if region == "" || subRegion == "" {
		s.region, s.subRegion, s.seq = "", "", nil
		return Selection{Generation: s.gen}, nil
	}

	s.region, s.subRegion = region, subRegion
	s.seq = s.repo.Resolve(region, subRegion)

	sel := Selection{
		Region:     region,
		SubRegion:  subRegion,
		Sequence:   s.seq,
		Generation: s.gen,
	}
	if today, ok := s.seq.Find(s.source.Today()); ok {
		sel.Today = &today
	}

	appLog.Info("countdown selection changed",
		"region", region,
		"sub_region", subRegion,
		"days", len(s.seq),
		"generation", s.gen,
	)

	if s.sched != nil {
		gen := s.gen
		cancel, err := s.sched.Every(s.period, func() { s.scheduledTick(gen) })
		if err != nil {
			return sel, err
		}
		s.cancel = cancel
	}
	return sel, nil
}

// Clear drops the selection and stops the tick job.
func (s *Session) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.stopLocked()
	s.gen++
	s.region, s.subRegion, s.seq = "", "", nil
}

// Close stops the tick job.
func (s *Session) Close() { s.Clear() }

// Tick evaluates the active selection against the current time.
func (s *Session) Tick() Result {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.evaluateLocked()
}

// Active returns the current selection names and generation.
func (s *Session) Active() (region, subRegion string, generation uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.region, s.subRegion, s.gen
}

func (s *Session) scheduledTick(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return
	}
	r := s.evaluateLocked()
	if r.Err != nil {
		appLog.Debug("countdown entry unusable", "region", s.region, "sub_region", s.subRegion, "reason", r.Err.Error())
	}
	if s.onTick != nil {
		s.onTick(r)
	}
}

func (s *Session) evaluateLocked() Result {
	now := s.source.Now()
	return s.engine.Evaluate(now, now.Format(clock.DateLayout), s.seq)
}

func (s *Session) stopLocked() {
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
}
