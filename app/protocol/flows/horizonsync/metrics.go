package horizonsync

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "horizon_sync"

type metrics struct {
	kernelsSynced prometheus.Counter
	outputsSynced prometheus.Counter
	peersBanned   prometheus.Counter
	rollbacks     prometheus.Counter
}

func newMetrics(registerer prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		kernelsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "kernels_synced",
			Help:      "Number of kernels downloaded and verified",
		}),
		outputsSynced: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "outputs_synced",
			Help:      "Number of outputs downloaded and verified, pruned ones included",
		}),
		peersBanned: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "peers_banned",
			Help:      "Number of sync peers banned for misbehaving",
		}),
		rollbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: metricsNamespace,
			Name:      "rollbacks",
			Help:      "Number of horizon sync sessions rolled back",
		}),
	}
	if registerer == nil {
		return m, nil
	}
	for _, collector := range []prometheus.Collector{m.kernelsSynced, m.outputsSynced, m.peersBanned, m.rollbacks} {
		err := registerer.Register(collector)
		if err != nil {
			return nil, err
		}
	}
	return m, nil
}
