package kv

import (
	"context"
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	opsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bayni_kv_operations_total",
			Help: "Key-value store operations by backend, operation and result",
		},
		[]string{"backend", "op", "result"},
	)

	opDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "bayni_kv_operation_duration_seconds",
			Help:    "Key-value store operation latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"backend", "op"},
	)
)

type instrumented struct {
	next    Store
	backend string
}

// Instrument wraps a Store so that every operation is counted and timed.
func Instrument(next Store, backend string) Store {
	return &instrumented{next: next, backend: backend}
}

func (i *instrumented) Get(ctx context.Context, key string) (string, error) {
	start := time.Now()
	value, err := i.next.Get(ctx, key)
	i.observe("get", start, err)
	return value, err
}

func (i *instrumented) Set(ctx context.Context, key, value string) error {
	start := time.Now()
	err := i.next.Set(ctx, key, value)
	i.observe("set", start, err)
	return err
}

func (i *instrumented) Remove(ctx context.Context, key string) error {
	start := time.Now()
	err := i.next.Remove(ctx, key)
	i.observe("remove", start, err)
	return err
}

func (i *instrumented) Close() error {
	return i.next.Close()
}

func (i *instrumented) observe(op string, start time.Time, err error) {
	result := "ok"
	switch {
	case errors.Is(err, ErrNotFound):
		result = "miss"
	case err != nil:
		result = "error"
	}
	opsTotal.WithLabelValues(i.backend, op, result).Inc()
	opDuration.WithLabelValues(i.backend, op).Observe(time.Since(start).Seconds())
}
