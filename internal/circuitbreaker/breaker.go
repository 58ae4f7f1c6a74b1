// Package circuitbreaker keeps a flapping external command (a disconnected
// monitor, a stuck i2c bus) from being hammered every tick. After a run of
// failures the breaker trips and calls are rejected until a probe window
// opens; a successful probe run closes it again.
package circuitbreaker

import (
	"errors"
	"sync"
	"time"
)

// ErrOpen is returned when the breaker is rejecting calls.
var ErrOpen = errors.New("circuit breaker open")

// State is the breaker's position.
type State int

const (
	StateClosed  State = iota // calls pass through
	StateOpen                 // calls rejected
	StateProbing              // limited calls allowed to test recovery
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateProbing:
		return "probing"
	default:
		return "unknown"
	}
}

// Config tunes a breaker. Zero values fall back to defaults suited to
// per-tick device commands.
type Config struct {
	// TripAfter is the run of consecutive failures that opens the breaker.
	TripAfter int
	// CloseAfter is the run of probe successes that closes it again.
	CloseAfter int
	// ProbeAfter is how long the breaker stays open before allowing probes.
	ProbeAfter time.Duration
	// OnStateChange, if set, observes every transition.
	OnStateChange func(from, to State)
}

// Breaker is safe for concurrent use.
type Breaker struct {
	mu           sync.Mutex
	state        State
	failureRun   int
	probesPassed int
	trippedAt    time.Time
	cfg          Config
}

// New creates a breaker in the closed state.
func New(cfg Config) *Breaker {
	if cfg.TripAfter <= 0 {
		cfg.TripAfter = 3
	}
	if cfg.CloseAfter <= 0 {
		cfg.CloseAfter = 1
	}
	if cfg.ProbeAfter <= 0 {
		cfg.ProbeAfter = 2 * time.Minute
	}
	return &Breaker{state: StateClosed, cfg: cfg}
}

// Do runs fn if the breaker allows it and records the outcome. When the
// breaker is open, fn is not run and ErrOpen is returned.
func (b *Breaker) Do(fn func() error) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err)
	return err
}

// State returns the current position, promoting open→probing when the probe
// window has arrived.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.state == StateOpen && time.Since(b.trippedAt) > b.cfg.ProbeAfter {
		b.transition(StateProbing)
	}
	return b.state
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	switch b.state {
	case StateOpen:
		if time.Since(b.trippedAt) > b.cfg.ProbeAfter {
			b.transition(StateProbing)
			return nil
		}
		return ErrOpen
	default:
		return nil
	}
}

func (b *Breaker) record(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if err != nil {
		b.failureRun++
		b.probesPassed = 0
		b.trippedAt = time.Now()
		if b.state == StateProbing || b.failureRun >= b.cfg.TripAfter {
			b.transition(StateOpen)
		}
		return
	}

	b.failureRun = 0
	if b.state == StateProbing {
		b.probesPassed++
		if b.probesPassed >= b.cfg.CloseAfter {
			b.transition(StateClosed)
		}
	}
}

func (b *Breaker) transition(to State) {
	from := b.state
	if from == to {
		return
	}
	b.state = to
	b.probesPassed = 0
	if to == StateClosed {
		b.failureRun = 0
	}
	if b.cfg.OnStateChange != nil {
		b.cfg.OnStateChange(from, to)
	}
}
