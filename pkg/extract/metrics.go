package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// clustersTotal counts root clusters by geometry cache result
	clustersTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "l2n_device_clusters_total",
		Help: "Root clusters visited by device extraction, by geometry cache result",
	}, []string{"result"})

	// devicesTotal counts devices added to circuits
	devicesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "l2n_devices_total",
		Help: "Devices created by device extraction",
	})

	// errorsTotal counts recognition errors
	errorsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "l2n_device_errors_total",
		Help: "Recognition errors recorded by device extraction",
	})
)
