package game

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

// startCountdownFrom is where the pre-round 3-2-1 overlay begins.
const startCountdownFrom = 3

// Clicker runs one client's click battle. On the PLAY signal it first walks a
// locally timed 3-2-1 countdown (STARTING) with no network signal of its own,
// so the two clients' actual start instants can drift by their timer
// scheduling. Every activation during PLAY publishes the raw count.
type Clicker struct {
	mu sync.Mutex

	clock   clockwork.Clock
	publish Publisher

	phase      Phase
	clicks     int
	timeLeft   float64
	startCount int

	cancel context.CancelFunc

	// OnCountdown, OnTick and OnGameOver notify the owning connection. Set
	// them before Start; they are invoked without the engine lock held.
	OnCountdown func(count int)
	OnTick      func(timeLeft float64)
	OnGameOver  func(clicks int)
}

// NewClicker builds an engine in the WAITING phase.
func NewClicker(clock clockwork.Clock, publish Publisher) *Clicker {
	return &Clicker{
		clock:   clock,
		publish: publish,
		phase:   PhaseWaiting,
	}
}

// Start transitions to STARTING and launches the countdown-then-round loop.
func (g *Clicker) Start(ctx context.Context) error {
	g.mu.Lock()
	next, err := g.phase.Transition(PhaseStarting)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.phase = next
	g.startCount = startCountdownFrom
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	onCountdown := g.OnCountdown
	g.mu.Unlock()

	if onCountdown != nil {
		onCountdown(startCountdownFrom)
	}
	go g.run(runCtx)
	return nil
}

func (g *Clicker) run(ctx context.Context) {
	countdown := g.clock.NewTicker(time.Second)
	for {
		select {
		case <-ctx.Done():
			countdown.Stop()
			return
		case <-countdown.Chan():
			if g.countdownTick() {
				countdown.Stop()
				goto play
			}
		}
	}

play:
	ticker := g.clock.NewTicker(tickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.Chan():
			if g.tick() {
				return
			}
		}
	}
}

// countdownTick steps the 3-2-1 overlay. Returns true once the round begins.
func (g *Clicker) countdownTick() bool {
	g.mu.Lock()
	if g.phase != PhaseStarting {
		g.mu.Unlock()
		return true
	}
	g.startCount--
	if g.startCount > 0 {
		count := g.startCount
		onCountdown := g.OnCountdown
		g.mu.Unlock()
		if onCountdown != nil {
			onCountdown(count)
		}
		return false
	}

	// Countdown exhausted: the round really starts here.
	g.phase = PhasePlay
	g.clicks = 0
	g.timeLeft = GameDuration
	g.mu.Unlock()
	return true
}

func (g *Clicker) tick() bool {
	g.mu.Lock()
	if g.phase != PhasePlay {
		g.mu.Unlock()
		return true
	}
	if g.timeLeft <= tickStep {
		g.timeLeft = 0
		g.mu.Unlock()
		g.end()
		return true
	}
	g.timeLeft -= tickStep
	remaining := g.timeLeft
	onTick := g.OnTick
	g.mu.Unlock()

	if onTick != nil {
		onTick(remaining)
	}
	return false
}

// Click counts one activation. There is no correctness check and no batching:
// each activation during PLAY increments the counter and publishes it.
// Activations outside PLAY are dropped without a write.
func (g *Clicker) Click() {
	g.mu.Lock()
	if g.phase != PhasePlay {
		g.mu.Unlock()
		return
	}
	g.clicks++
	clicks := g.clicks
	g.mu.Unlock()

	g.publish(models.ScoreUpdate{Clicks: clicks, Alive: true})
}

func (g *Clicker) end() {
	g.mu.Lock()
	next, err := g.phase.Transition(PhaseGameOver)
	if err != nil {
		g.mu.Unlock()
		return
	}
	g.phase = next
	if g.cancel != nil {
		g.cancel()
	}
	clicks := g.clicks
	onGameOver := g.OnGameOver
	g.mu.Unlock()

	if onGameOver != nil {
		onGameOver(clicks)
	}
}

// Phase returns the current round phase.
func (g *Clicker) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Clicks returns the current click count.
func (g *Clicker) Clicks() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.clicks
}

// TimeLeft returns the remaining seconds.
func (g *Clicker) TimeLeft() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeLeft
}
