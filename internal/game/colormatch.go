package game

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

const (
	// GameDuration is the round length in seconds and the ceiling the time
	// bonus is clamped to.
	GameDuration = 30.0
	// TimeBonus is the seconds restored by a correct answer.
	TimeBonus = 2.0

	tickInterval = 100 * time.Millisecond
	tickStep     = 0.1
)

// Publisher pushes the owner's score fields toward the room store. Every
// scoring event triggers one immediate publish; there is no batching.
type Publisher func(update models.ScoreUpdate)

// ColorMatch runs one client's color/word round: a local question stream, a
// 100ms countdown timer, and one-mistake-and-out scoring. The timer is
// wall-clock-approximate and independent per client; the round ends when this
// client's own time expires, not at a shared deadline.
type ColorMatch struct {
	mu sync.Mutex

	clock   clockwork.Clock
	rng     *rand.Rand
	publish Publisher

	phase    Phase
	score    int
	combo    int
	timeLeft float64
	question Question

	cancel context.CancelFunc

	// OnQuestion, OnTick and OnGameOver notify the owning connection. Set
	// them before Start; they are invoked without the engine lock held.
	OnQuestion func(Question)
	OnTick     func(timeLeft float64)
	OnGameOver func(score, combo int)
}

// NewColorMatch builds an engine in the WAITING phase.
func NewColorMatch(clock clockwork.Clock, rng *rand.Rand, publish Publisher) *ColorMatch {
	return &ColorMatch{
		clock:   clock,
		rng:     rng,
		publish: publish,
		phase:   PhaseWaiting,
	}
}

// Start transitions to PLAY, resets score state, deals the first question and
// launches the tick loop. Called when the room's status flips to PLAY.
func (g *ColorMatch) Start(ctx context.Context) error {
	g.mu.Lock()
	next, err := g.phase.Transition(PhasePlay)
	if err != nil {
		g.mu.Unlock()
		return err
	}
	g.phase = next
	g.score = 0
	g.combo = 0
	g.timeLeft = GameDuration
	g.question = generateQuestion(g.rng)
	q := g.question
	runCtx, cancel := context.WithCancel(ctx)
	g.cancel = cancel
	onQuestion := g.OnQuestion
	g.mu.Unlock()

	if onQuestion != nil {
		onQuestion(q)
	}
	go g.run(runCtx)
	return nil
}

// run decrements the remaining time by 0.1 every 100ms until it reaches zero.
func (g *ColorMatch) run(ctx context.Context) {
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

// tick advances the timer once. Returns true when the round ended.
func (g *ColorMatch) tick() bool {
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

// Answer scores one pick. A correct answer awards
// 100 + floor(combo/5)*50 + ceil(remaining) points, extends the clock, and
// deals the next question; a wrong answer ends the round on the spot.
func (g *ColorMatch) Answer(colorID string) {
	g.mu.Lock()
	if g.phase != PhasePlay {
		g.mu.Unlock()
		return
	}

	if !g.question.Answer(colorID) {
		g.mu.Unlock()
		g.end()
		return
	}

	comboBonus := g.combo / 5 * 50
	speedBonus := int(math.Ceil(g.timeLeft))
	g.score += 100 + comboBonus + speedBonus
	g.combo++
	g.timeLeft = math.Min(g.timeLeft+TimeBonus, GameDuration)
	g.question = generateQuestion(g.rng)

	score, combo, q := g.score, g.combo, g.question
	onQuestion := g.OnQuestion
	g.mu.Unlock()

	g.publish(models.ScoreUpdate{Score: score, Combo: combo, Alive: true})
	if onQuestion != nil {
		onQuestion(q)
	}
}

// end moves to GAME_OVER and publishes the final score with alive=false, on
// both the timeout and the wrong-answer path.
func (g *ColorMatch) end() {
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
	score, combo := g.score, g.combo
	onGameOver := g.OnGameOver
	g.mu.Unlock()

	g.publish(models.ScoreUpdate{Score: score, Combo: combo, Alive: false})
	if onGameOver != nil {
		onGameOver(score, combo)
	}
}

// Phase returns the current round phase.
func (g *ColorMatch) Phase() Phase {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.phase
}

// Score returns the current score and combo.
func (g *ColorMatch) Score() (score, combo int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.score, g.combo
}

// TimeLeft returns the remaining seconds.
func (g *ColorMatch) TimeLeft() float64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.timeLeft
}

// Question returns the question currently on screen.
func (g *ColorMatch) Question() Question {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.question
}
