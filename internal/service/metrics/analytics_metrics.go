package metrics

import (
    "sync"

    "github.com/prometheus/client_golang/prometheus"
)

var (
    once sync.Once

    ReportLatency = prometheus.NewHistogramVec(
        prometheus.HistogramOpts{
            Namespace: "sellingview",
            Subsystem: "reports",
            Name:      "latency_seconds",
            Help:      "Latency of report endpoints",
            Buckets:   prometheus.DefBuckets,
        },
        []string{"endpoint"},
    )

    ReportErrors = prometheus.NewCounterVec(
        prometheus.CounterOpts{
            Namespace: "sellingview",
            Subsystem: "reports",
            Name:      "errors_total",
            Help:      "Errors by report endpoint",
        },
        []string{"endpoint"},
    )
)

func Register() {
    once.Do(func() {
        prometheus.MustRegister(ReportLatency, ReportErrors)
    })
}
