package game

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yama-shu/gourmet-battle/internal/models"
)

// mockPublisher collects score publishes instead of writing to a room store.
type mockPublisher struct {
	mu      sync.Mutex
	updates []models.ScoreUpdate
}

func (m *mockPublisher) publish(u models.ScoreUpdate) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.updates = append(m.updates, u)
}

func (m *mockPublisher) all() []models.ScoreUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.ScoreUpdate(nil), m.updates...)
}

func (m *mockPublisher) last() *models.ScoreUpdate {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.updates) == 0 {
		return nil
	}
	u := m.updates[len(m.updates)-1]
	return &u
}

func newTestColorMatch(t *testing.T) (*ColorMatch, *mockPublisher) {
	t.Helper()
	pub := &mockPublisher{}
	g := NewColorMatch(clockwork.NewFakeClock(), rand.New(rand.NewSource(1)), pub.publish)
	return g, pub
}

// correctAnswerID returns the color id that answers the current question.
func correctAnswerID(q Question) string {
	if q.Type == QuestionText {
		return q.Text.ID
	}
	return q.Color.ID
}

// wrongAnswerID returns a palette id that does not answer the question.
func wrongAnswerID(q Question) string {
	want := correctAnswerID(q)
	for _, c := range Colors {
		if c.ID != want {
			return c.ID
		}
	}
	return ""
}

func TestColorMatchStartDealsQuestion(t *testing.T) {
	g, _ := newTestColorMatch(t)

	var dealt []Question
	g.OnQuestion = func(q Question) { dealt = append(dealt, q) }

	require.NoError(t, g.Start(context.Background()))
	assert.Equal(t, PhasePlay, g.Phase())
	assert.InDelta(t, GameDuration, g.TimeLeft(), 1e-9)
	require.Len(t, dealt, 1)
	assert.Equal(t, g.Question(), dealt[0])
}

func TestColorMatchScoringFormula(t *testing.T) {
	g, pub := newTestColorMatch(t)
	require.NoError(t, g.Start(context.Background()))

	// combo=12 and remaining=7.4 must award 100 + floor(12/5)*50 + ceil(7.4).
	g.mu.Lock()
	g.score = 1000
	g.combo = 12
	g.timeLeft = 7.4
	q := g.question
	g.mu.Unlock()

	g.Answer(correctAnswerID(q))

	score, combo := g.Score()
	assert.Equal(t, 1000+208, score)
	assert.Equal(t, 13, combo)

	last := pub.last()
	require.NotNil(t, last, "correct answer must publish immediately")
	assert.Equal(t, 1000+208, last.Score)
	assert.Equal(t, 13, last.Combo)
	assert.True(t, last.Alive)
}

func TestColorMatchTimeBonusClamped(t *testing.T) {
	g, _ := newTestColorMatch(t)
	require.NoError(t, g.Start(context.Background()))

	// Near the ceiling the bonus must clamp to the initial duration.
	g.mu.Lock()
	g.timeLeft = GameDuration - 0.5
	q := g.question
	g.mu.Unlock()

	g.Answer(correctAnswerID(q))
	assert.InDelta(t, GameDuration, g.TimeLeft(), 1e-9)
}

func TestColorMatchCorrectAnswerDealsNextQuestion(t *testing.T) {
	g, _ := newTestColorMatch(t)

	var dealt []Question
	g.OnQuestion = func(q Question) { dealt = append(dealt, q) }
	require.NoError(t, g.Start(context.Background()))

	g.Answer(correctAnswerID(g.Question()))
	require.Len(t, dealt, 2, "a correct answer must deal the next question")
	assert.Equal(t, PhasePlay, g.Phase())
}

func TestColorMatchWrongAnswerEndsRound(t *testing.T) {
	g, pub := newTestColorMatch(t)

	gameOver := false
	g.OnGameOver = func(score, combo int) { gameOver = true }
	require.NoError(t, g.Start(context.Background()))

	// Bank a couple of correct answers first.
	g.Answer(correctAnswerID(g.Question()))
	g.Answer(correctAnswerID(g.Question()))
	score, _ := g.Score()
	require.Greater(t, score, 0)

	g.Answer(wrongAnswerID(g.Question()))

	assert.Equal(t, PhaseGameOver, g.Phase())
	assert.True(t, gameOver)

	last := pub.last()
	require.NotNil(t, last)
	assert.False(t, last.Alive, "round end must publish alive=false")
	assert.Equal(t, score, last.Score, "final publish carries the last score")

	// Further answers must be dropped.
	before := len(pub.all())
	g.Answer(correctAnswerID(g.Question()))
	assert.Len(t, pub.all(), before)
}

func TestColorMatchTimerExpiryEndsRound(t *testing.T) {
	pub := &mockPublisher{}
	fc := clockwork.NewFakeClock()
	g := NewColorMatch(fc, rand.New(rand.NewSource(1)), pub.publish)

	done := make(chan struct{})
	g.OnGameOver = func(score, combo int) { close(done) }

	require.NoError(t, g.Start(context.Background()))

	// Shrink the clock so expiry is three ticks away.
	g.mu.Lock()
	g.timeLeft = 0.3
	g.mu.Unlock()

	fc.BlockUntil(1) // run loop has registered its ticker
	for i := 0; i < 3; i++ {
		fc.Advance(tickInterval)
		want := 0.3 - float64(i+1)*tickStep
		// Let the run loop consume the tick before advancing again.
		require.Eventually(t, func() bool {
			return g.Phase() == PhaseGameOver || g.TimeLeft() <= want+1e-9
		}, time.Second, time.Millisecond)
	}

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("round did not end after timer expiry")
	}
	assert.Equal(t, PhaseGameOver, g.Phase())
	last := pub.last()
	require.NotNil(t, last)
	assert.False(t, last.Alive)
}

func TestColorMatchCannotStartTwice(t *testing.T) {
	g, _ := newTestColorMatch(t)
	require.NoError(t, g.Start(context.Background()))
	require.Error(t, g.Start(context.Background()))
}
