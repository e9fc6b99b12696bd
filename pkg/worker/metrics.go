package worker

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	eventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "courier_events_total",
		Help: "Events handled per subscription and outcome.",
	}, []string{"subscription", "outcome"})

	eventDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "courier_event_duration_seconds",
		Help:    "Time spent handling an event, retries included.",
		Buckets: prometheus.DefBuckets,
	}, []string{"subscription"})
)
