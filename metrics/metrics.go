// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package metrics

import (
	"errors"

	"github.com/luxfi/metric"
)

const reasonLabel = "reason"

var (
	_ Metrics = (*metricsImpl)(nil)

	errRegistryRequired = errors.New("registerer must implement metric.Registry")
)

type Metrics interface {
	metric.APIInterceptor

	// Mark that a ticket was issued. [discarded] is set when it replaced
	// an outstanding ticket.
	MarkTicketIssued(discarded bool)
	// Mark that a registration committed.
	MarkRegistered(fee, deposit uint64)
	// Mark that a registration aborted.
	MarkRegistrationAborted(reason string)
	// Mark that a deposit was withdrawn.
	MarkWithdrawn(amount uint64)
	// Mark that the treasury was withdrawn.
	MarkFeesWithdrawn(amount uint64)
	// Set the current treasury total.
	SetTotalFees(total uint64)
}

type metricsImpl struct {
	metric.APIInterceptor

	ticketsIssued    metric.Counter
	ticketsDiscarded metric.Counter

	registrations        metric.Counter
	abortedRegistrations metric.CounterVec
	deposited            metric.Counter
	feesCollected        metric.Counter

	withdrawn     metric.Counter
	feesWithdrawn metric.Counter
	totalFees     metric.Gauge
}

func New(registerer metric.Registerer) (Metrics, error) {
	registry, ok := registerer.(metric.Registry)
	if !ok {
		return nil, errRegistryRequired
	}
	apiInterceptor, err := metric.NewAPIInterceptor(registry)
	m := &metricsImpl{
		APIInterceptor: apiInterceptor,

		ticketsIssued: metric.NewCounter(metric.CounterOpts{
			Name: "tickets_issued",
			Help: "Number of tickets issued",
		}),
		ticketsDiscarded: metric.NewCounter(metric.CounterOpts{
			Name: "tickets_discarded",
			Help: "Number of tickets issued by discarding an outstanding ticket",
		}),
		registrations: metric.NewCounter(metric.CounterOpts{
			Name: "registrations",
			Help: "Number of committed name registrations",
		}),
		abortedRegistrations: metric.NewCounterVec(
			metric.CounterOpts{
				Name: "registrations_aborted",
				Help: "Number of aborted name registrations",
			},
			[]string{reasonLabel},
		),
		deposited: metric.NewCounter(metric.CounterOpts{
			Name: "deposited",
			Help: "Cumulative amount (in base units) deposited into registration entries",
		}),
		feesCollected: metric.NewCounter(metric.CounterOpts{
			Name: "fees_collected",
			Help: "Cumulative amount (in base units) of registration fees collected",
		}),
		withdrawn: metric.NewCounter(metric.CounterOpts{
			Name: "withdrawn",
			Help: "Cumulative amount (in base units) withdrawn from registration entries",
		}),
		feesWithdrawn: metric.NewCounter(metric.CounterOpts{
			Name: "fees_withdrawn",
			Help: "Cumulative amount (in base units) withdrawn from the treasury",
		}),
		totalFees: metric.NewGauge(metric.GaugeOpts{
			Name: "total_fees",
			Help: "Amount (in base units) currently held by the treasury",
		}),
	}

	err = errors.Join(
		err,
		registerer.Register(metric.AsCollector(m.ticketsIssued)),
		registerer.Register(metric.AsCollector(m.ticketsDiscarded)),
		registerer.Register(metric.AsCollector(m.registrations)),
		registerer.Register(metric.AsCollector(m.abortedRegistrations)),
		registerer.Register(metric.AsCollector(m.deposited)),
		registerer.Register(metric.AsCollector(m.feesCollected)),
		registerer.Register(metric.AsCollector(m.withdrawn)),
		registerer.Register(metric.AsCollector(m.feesWithdrawn)),
		registerer.Register(metric.AsCollector(m.totalFees)),
	)
	return m, err
}

func (m *metricsImpl) MarkTicketIssued(discarded bool) {
	m.ticketsIssued.Inc()
	if discarded {
		m.ticketsDiscarded.Inc()
	}
}

func (m *metricsImpl) MarkRegistered(fee, deposit uint64) {
	m.registrations.Inc()
	m.feesCollected.Add(float64(fee))
	m.deposited.Add(float64(deposit))
}

func (m *metricsImpl) MarkRegistrationAborted(reason string) {
	m.abortedRegistrations.With(metric.Labels{
		reasonLabel: reason,
	}).Inc()
}

func (m *metricsImpl) MarkWithdrawn(amount uint64) {
	m.withdrawn.Add(float64(amount))
}

func (m *metricsImpl) MarkFeesWithdrawn(amount uint64) {
	m.feesWithdrawn.Add(float64(amount))
}

func (m *metricsImpl) SetTotalFees(total uint64) {
	m.totalFees.Set(float64(total))
}
