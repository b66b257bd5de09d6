package relay

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var publishCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_relay_published_total",
	Help: "Number of messages published to the channel",
}, []string{"kind"})

var publishErrorCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_relay_publish_errors_total",
	Help: "Number of publish attempts that failed",
}, []string{"kind"})

var rejectCount = promauto.NewCounter(prometheus.CounterOpts{
	Name: "anonrelay_relay_rejected_total",
	Help: "Number of submissions rejected by moderation",
})

var retractCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_relay_retractions_total",
	Help: "Number of retraction attempts by result",
}, []string{"result"})
