package scenario

import (
	"math/rand"
	"sync"
	"time"

	"github.com/verdantio/cropsense/pkg/agro"
)

// State describes where a scheduled scenario is in its lifecycle.
type State string

const (
	StatePending State = "pending"
	StateActive  State = "active"
	StateExpired State = "expired"
)

// Status is a point-in-time view of one scheduled scenario.
type Status struct {
	Name     string        `json:"name"`
	State    State         `json:"state"`
	StartAt  time.Time     `json:"start_at"`
	Duration time.Duration `json:"duration"`
	Progress float64       `json:"progress"`
}

type entry struct {
	scenario Scenario
	startAt  time.Time
	duration time.Duration
}

// Manager schedules scenarios and applies the active ones to readings in
// the order they were scheduled. A fixed seed and an injected clock make a
// whole simulation run reproducible.
type Manager struct {
	mu      sync.Mutex
	entries []entry
	rng     *rand.Rand
	now     func() time.Time
}

// Option configures a Manager.
type Option func(*Manager)

// WithClock replaces the wall clock, for tests and replayed simulations.
func WithClock(now func() time.Time) Option {
	return func(m *Manager) { m.now = now }
}

// NewManager creates a Manager seeded for reproducible scenario noise.
func NewManager(seed int64, opts ...Option) *Manager {
	m := &Manager{
		rng: rand.New(rand.NewSource(seed)),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Schedule registers a scenario to run over [startAt, startAt+duration).
func (m *Manager) Schedule(s Scenario, startAt time.Time, duration time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = append(m.entries, entry{scenario: s, startAt: startAt, duration: duration})
}

// Apply runs the value through every active scenario that covers the sensor
// type, in scheduling order.
func (m *Manager) Apply(st agro.SensorType, value float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, e := range m.entries {
		progress, active := e.progressAt(now)
		if !active || !e.scenario.Applies(st) {
			continue
		}
		value = e.scenario.Apply(value, st, progress, m.rng)
	}
	return value
}

// Statuses reports every scheduled scenario and its lifecycle state.
func (m *Manager) Statuses() []Status {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	out := make([]Status, len(m.entries))
	for i, e := range m.entries {
		s := Status{
			Name:     e.scenario.Name(),
			StartAt:  e.startAt,
			Duration: e.duration,
		}
		switch progress, active := e.progressAt(now); {
		case active:
			s.State = StateActive
			s.Progress = progress
		case now.Before(e.startAt):
			s.State = StatePending
		default:
			s.State = StateExpired
			s.Progress = 1
		}
		out[i] = s
	}
	return out
}

// Done reports whether every scheduled scenario has expired.
func (m *Manager) Done() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for _, e := range m.entries {
		if now.Before(e.startAt.Add(e.duration)) {
			return false
		}
	}
	return len(m.entries) > 0
}

func (e entry) progressAt(now time.Time) (progress float64, active bool) {
	if now.Before(e.startAt) || e.duration <= 0 {
		return 0, false
	}
	elapsed := now.Sub(e.startAt)
	if elapsed >= e.duration {
		return 1, false
	}
	return float64(elapsed) / float64(e.duration), true
}
