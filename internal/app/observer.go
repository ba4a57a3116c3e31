package app

import (
	"context"

	"recipe-planner/internal/gateway"
	"recipe-planner/internal/logger"
	"recipe-planner/internal/metrics"
)

// RecordRequests returns a gateway observer that stores every API call in
// the metrics store.
func RecordRequests(store *metrics.Store, log *logger.Logger) gateway.Observer {
	if log == nil {
		log = logger.Nop()
	}
	return func(ri gateway.RequestInfo) {
		err := store.Record(context.Background(), metrics.RequestMetric{
			Operation: ri.Operation,
			Status:    ri.Status,
			Failed:    ri.Err != nil,
			Latency:   ri.Latency,
		})
		if err != nil {
			log.Warn("failed to record request metric", "op", ri.Operation, "error", err)
		}
	}
}
