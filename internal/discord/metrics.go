package discord

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var eventCount = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_discord_events_total",
	Help: "Gateway events converted and dispatched",
}, []string{"type"})

var mediaFetchErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "anonrelay_discord_media_fetch_errors_total",
	Help: "Attachments that could not be downloaded for relaying",
}, []string{"kind"})
