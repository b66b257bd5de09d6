package poster

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var postCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_poster_runs_total",
	Help: "Synthetic post attempts by result",
}, []string{"result"})

var stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
	Name: "anonrelay_poster_state",
	Help: "Current poster state (0 disabled, 1 idle, 2 generating, 3 publishing)",
})
