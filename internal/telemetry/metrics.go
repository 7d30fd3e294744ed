package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	SessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triviad",
		Name:      "sessions_started_total",
		Help:      "Number of sessions that passed the start guard and began playing.",
	})

	QuestionsRevealed = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "triviad",
		Name:      "questions_revealed_total",
		Help:      "Number of questions broadcast to participants.",
	})

	AnswersSubmitted = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "triviad",
		Name:      "answers_submitted_total",
		Help:      "Number of accepted answer submissions by verdict.",
	}, []string{"verdict"})

	ConnectedParticipants = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "triviad",
		Name:      "connected_participants",
		Help:      "Number of currently connected participants.",
	})
)
