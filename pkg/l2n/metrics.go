package l2n

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// netExtractionsTotal counts completed net extractions
	netExtractionsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "l2n_net_extractions_total",
		Help: "Completed net extractions",
	})

	// probeTotal counts net probes by result
	probeTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "l2n_probe_total",
		Help: "Net probes by result",
	}, []string{"result"})
)
