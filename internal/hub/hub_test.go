package hub_test

import (
	"context"
	"encoding/json"
	"math/rand"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/triviahub/triviad/internal/domain"
	"github.com/triviahub/triviad/internal/event"
	"github.com/triviahub/triviad/internal/game"
	"github.com/triviahub/triviad/internal/hub"
	"github.com/triviahub/triviad/internal/telemetry"
)

const answerWindow = 15 * time.Second

func TestHub_GameRoundTrip(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ts := startServer(t, clock)
	defer ts.Close()

	ali := dial(t, ts)
	// Wait for the first join broadcast so the two joins cannot reorder.
	waitForRoster(t, ali, func(ps []participant) bool { return len(ps) == 1 })

	sara := dial(t, ts)
	waitForRoster(t, ali, func(ps []participant) bool { return len(ps) == 2 })

	send(t, ali, hub.ClientMessage{Action: hub.ActionSetName, Name: "Ali"})
	roster := waitForRoster(t, sara, func(ps []participant) bool {
		return len(ps) == 2 && ps[0].Name == "Ali"
	})
	aliID := roster[0].ID

	send(t, ali, hub.ClientMessage{Action: hub.ActionStartGame})

	revealed := waitForEvent(t, ali, domain.EventNameQuestionRevealed)
	var q struct {
		ID         string `json:"id"`
		Statement  string `json:"statement"`
		Ordinal    int    `json:"question_number"`
		Total      int    `json:"total_questions"`
		DurationMs int64  `json:"duration_ms"`
	}
	require.NoError(t, json.Unmarshal(revealed.Data, &q))
	assert.Equal(t, 1, q.Ordinal)
	assert.Equal(t, 1, q.Total)
	assert.Equal(t, answerWindow.Milliseconds(), q.DurationMs)
	assert.Equal(t, "2+2?", q.Statement)

	// Sara also receives the reveal before any answer lands.
	waitForEvent(t, sara, domain.EventNameQuestionRevealed)

	// The accepted-answer counter tells us when the submission has landed,
	// since a submission itself triggers no broadcast.
	correct := telemetry.AnswersSubmitted.WithLabelValues("correct")
	before := testutil.ToFloat64(correct)

	send(t, ali, hub.ClientMessage{Action: hub.ActionSubmitAnswer, QuestionID: q.ID, Answer: "4"})

	require.Eventually(t, func() bool {
		return testutil.ToFloat64(correct) > before
	}, time.Second, time.Millisecond)

	clock.Advance(answerWindow)

	result := waitForEvent(t, sara, domain.EventNameRoundResult)
	var rr struct {
		CorrectAnswer string        `json:"correct_answer"`
		Participants  []participant `json:"participants"`
	}
	require.NoError(t, json.Unmarshal(result.Data, &rr))
	assert.Equal(t, "4", rr.CorrectAnswer)
	require.Len(t, rr.Participants, 2)

	scores := make(map[string]int)
	for _, p := range rr.Participants {
		scores[p.ID] = p.Score
	}
	assert.Equal(t, 250, scores[aliID])
}

func TestHub_DisconnectUpdatesRoster(t *testing.T) {
	clock := clockwork.NewFakeClock()
	ts := startServer(t, clock)
	defer ts.Close()

	c1 := dial(t, ts)
	c2 := dial(t, ts)

	waitForRoster(t, c1, func(ps []participant) bool { return len(ps) == 2 })

	require.NoError(t, c2.Close())

	roster := waitForRoster(t, c1, func(ps []participant) bool {
		return len(ps) == 1
	})
	assert.Len(t, roster, 1)
}

// --- helpers ---

type participant struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Score int    `json:"score"`
}

type notification struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
}

func (n notification) roster() []participant {
	var d struct {
		Participants []participant `json:"participants"`
	}
	_ = json.Unmarshal(n.Data, &d)
	return d.Participants
}

func startServer(t *testing.T, clock clockwork.Clock) *httptest.Server {
	t.Helper()

	eb := event.NewBus()
	g := game.NewService(game.Config{
		EventBus: eb,
		Supply: staticSupply{
			{ID: "q1", Statement: "2+2?", Answer: "4"},
		},
		Clock:        clock,
		Rand:         rand.New(rand.NewSource(7)),
		AnswerWindow: answerWindow,
	})
	t.Cleanup(g.Close)

	h := hub.New(hub.Config{EventBus: eb, Game: g})
	return httptest.NewServer(http.HandlerFunc(h.Serve))
}

type staticSupply []domain.Question

func (s staticSupply) FetchAll(context.Context) ([]domain.Question, error) {
	out := make([]domain.Question, len(s))
	copy(out, s)
	return out, nil
}

func dial(t *testing.T, ts *httptest.Server) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(ts.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })

	return conn
}

func send(t *testing.T, conn *websocket.Conn, msg hub.ClientMessage) {
	t.Helper()
	require.NoError(t, conn.WriteJSON(msg))
}

// waitForEvent reads messages until one with the given event name arrives.
func waitForEvent(t *testing.T, conn *websocket.Conn, name string) notification {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var n notification
		require.NoError(t, conn.ReadJSON(&n), "waiting for %q", name)
		if n.Event == name {
			return n
		}
	}
}

// waitForRoster reads roster updates until one satisfies the predicate.
func waitForRoster(t *testing.T, conn *websocket.Conn, ok func([]participant) bool) []participant {
	t.Helper()

	deadline := time.Now().Add(2 * time.Second)
	require.NoError(t, conn.SetReadDeadline(deadline))

	for {
		var n notification
		require.NoError(t, conn.ReadJSON(&n), "waiting for roster")
		if n.Event != domain.EventNameRosterUpdated {
			continue
		}
		if ps := n.roster(); ok(ps) {
			return ps
		}
	}
}
