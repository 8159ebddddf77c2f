// Package metrics exposes business counters for the game service on /metrics.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	betTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bet_requests_total",
			Help: "Total bet requests by result and slot",
		},
		[]string{"result", "slot"},
	)

	betDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bet_request_duration_ms",
			Help:    "Bet request duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 10),
		},
		[]string{"result"},
	)

	drawTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "draw_requests_total",
			Help: "Total draw submissions by result and mode",
		},
		[]string{"result", "mode"},
	)

	drawDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "draw_request_duration_ms",
			Help:    "Draw and settlement duration in milliseconds",
			Buckets: prometheus.ExponentialBuckets(5, 2, 12),
		},
		[]string{"result"},
	)

	settledBets = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "settled_bets_total",
			Help: "Bets settled by resulting status (won, lost, error)",
		},
		[]string{"status"},
	)

	fundsTransitions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "funds_transitions_total",
			Help: "Deposit and withdrawal requests by kind and status",
		},
		[]string{"kind", "status"},
	)
)

func result(err error) string {
	if err != nil {
		return "fail"
	}
	return "success"
}

// RecordBet records one bet placement call.
func RecordBet(err error, slot string, started time.Time) {
	res := result(err)
	betTotal.WithLabelValues(res, slot).Inc()
	betDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}

// RecordDraw records a draw call. mode is "draw" for a fresh draw and "resume"
// when an already drawn slot is settled again.
func RecordDraw(err error, mode string, started time.Time) {
	res := result(err)
	if mode == "" {
		mode = "unknown"
	}
	drawTotal.WithLabelValues(res, mode).Inc()
	drawDuration.WithLabelValues(res).Observe(float64(time.Since(started).Milliseconds()))
}

func RecordSettled(status string) {
	settledBets.WithLabelValues(status).Inc()
}

// RecordFunds counts a deposit or withdrawal reaching status.
func RecordFunds(kind, status string) {
	fundsTransitions.WithLabelValues(kind, status).Inc()
}
