package moderation

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var verdictCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_moderation_verdicts_total",
	Help: "Number of moderation verdicts by deciding stage and result",
}, []string{"stage", "result"})
