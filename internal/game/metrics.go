package game

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics are the gameplay counters exported on /metrics.
type Metrics struct {
	sessionsActive  prometheus.Gauge
	sessionsStarted *prometheus.CounterVec
	releases        *prometheus.CounterVec
	levelsCompleted *prometheus.CounterVec
	picks           *prometheus.CounterVec
	answers         *prometheus.CounterVec
	quizzesFinished *prometheus.CounterVec
	idlePauses      prometheus.Counter
}

// NewMetrics builds the gameplay metrics and registers them with reg when it is non-nil.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		sessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "minigames",
			Name:      "sessions_active",
			Help:      "Sessions currently held in memory.",
		}),
		sessionsStarted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "sessions_started_total",
			Help:      "Sessions created, by game.",
		}, []string{"game"}),
		releases: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "piece_releases_total",
			Help:      "Piece releases and flips evaluated by the matcher, by outcome.",
		}, []string{"outcome"}),
		levelsCompleted: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "levels_completed_total",
			Help:      "Tangram levels completed, by level id.",
		}, []string{"level"}),
		picks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "pair_picks_total",
			Help:      "Resolved pair picks, by side and correctness.",
		}, []string{"side", "correct"}),
		answers: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "quiz_answers_total",
			Help:      "Quiz answers, by operation and correctness.",
		}, []string{"operation", "correct"}),
		quizzesFinished: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "quizzes_finished_total",
			Help:      "Quiz matches played to the last question, by operation.",
		}, []string{"operation"}),
		idlePauses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "minigames",
			Name:      "idle_pauses_total",
			Help:      "Sessions paused by the idle worker.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.sessionsActive, m.sessionsStarted, m.releases, m.levelsCompleted, m.picks, m.answers, m.quizzesFinished, m.idlePauses)
	}
	return m
}
