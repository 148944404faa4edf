// Package metrics — счетчики работы движка интервью в формате Prometheus
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	sessionsStarted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_started_total",
		Help: "Количество начатых сессий интервью",
	})

	sessionsCompleted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_completed_total",
		Help: "Количество завершенных сессий интервью",
	})

	sessionsAborted = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_sessions_aborted_total",
		Help: "Количество прерванных сессий интервью",
	})

	turnsBegun = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_turns_begun_total",
		Help: "Количество заданных вопросов",
	})

	turnsScored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_turns_scored_total",
		Help: "Количество оцененных ответов",
	})

	turnsFailed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "interview_turns_failed_total",
		Help: "Количество ходов, завершившихся отказом",
	})

	adapterCalls = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "interview_adapter_calls_total",
		Help: "Вызовы внешних адаптеров по адаптеру и исходу",
	}, []string{"adapter", "outcome"})
)

func SessionStarted()   { sessionsStarted.Inc() }
func SessionCompleted() { sessionsCompleted.Inc() }
func SessionAborted()   { sessionsAborted.Inc() }
func TurnBegun()        { turnsBegun.Inc() }
func TurnScored()       { turnsScored.Inc() }
func TurnFailed()       { turnsFailed.Inc() }

// AdapterCall фиксирует вызов внешнего адаптера.
// adapter: transcribe | evaluate | classify; outcome: ok | error
func AdapterCall(adapter string, success bool) {
	outcome := "ok"
	if !success {
		outcome = "error"
	}
	adapterCalls.WithLabelValues(adapter, outcome).Inc()
}
