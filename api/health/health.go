// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package health

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/luxfi/log"
	"github.com/luxfi/metric"
)

// AllTag is the label applied to every check.
const AllTag = "all"

// Checker reports its own health. A non-nil error means unhealthy.
type Checker interface {
	HealthCheck(context.Context) (interface{}, error)
}

// Result is the outcome of one check.
type Result struct {
	Details   interface{}   `json:"message,omitempty"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
	Duration  time.Duration `json:"duration"`
}

// Reply is written by the handler for every request.
type Reply struct {
	Checks  map[string]Result `json:"checks"`
	Healthy bool              `json:"healthy"`
}

type Health struct {
	log     log.Logger
	metrics *healthMetrics
	checks  map[string]Checker
}

func New(log log.Logger, namespace string, registerer metric.Registerer) (*Health, error) {
	m, err := newMetrics(namespace, registerer)
	if err != nil {
		return nil, err
	}
	return &Health{
		log:     log,
		metrics: m,
		checks:  make(map[string]Checker),
	}, nil
}

// Register adds a named check. It is not safe to call concurrently with
// Check.
func (h *Health) Register(name string, checker Checker) {
	h.checks[name] = checker
}

// Check runs every registered check.
func (h *Health) Check(ctx context.Context) *Reply {
	reply := &Reply{
		Checks:  make(map[string]Result, len(h.checks)),
		Healthy: true,
	}
	failing := 0
	for name, checker := range h.checks {
		start := time.Now()
		details, err := checker.HealthCheck(ctx)
		result := Result{
			Details:   details,
			Timestamp: start,
			Duration:  time.Since(start),
		}
		if err != nil {
			result.Error = err.Error()
			reply.Healthy = false
			failing++
			h.log.Warn("failing health check",
				log.String("name", name),
				log.Err(err),
			)
		}
		reply.Checks[name] = result
	}
	h.metrics.failingChecks.WithLabelValues(AllTag).Set(float64(failing))
	return reply
}

// ServeHTTP writes the check results. Unhealthy replies use status 503.
func (h *Health) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reply := h.Check(r.Context())

	w.Header().Set("Content-Type", "application/json")
	if !reply.Healthy {
		w.WriteHeader(http.StatusServiceUnavailable)
	}
	if err := json.NewEncoder(w).Encode(reply); err != nil {
		h.log.Debug("failed to write health reply",
			log.Err(err),
		)
	}
}
