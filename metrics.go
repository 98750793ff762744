// Copyright (c) 2019 Perlin
//
// Permission is hereby granted, free of charge, to any person obtaining a copy of
// this software and associated documentation files (the "Software"), to deal in
// the Software without restriction, including without limitation the rights to
// use, copy, modify, merge, publish, distribute, sublicense, and/or sell copies of
// the Software, and to permit persons to whom the Software is furnished to do so,
// subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY, FITNESS
// FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE AUTHORS OR
// COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER
// IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN
// CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.

package sortition

import (
	"context"
	"time"

	"github.com/perlin-network/sortition/log"
	"github.com/rcrowley/go-metrics"
)

type Metrics struct {
	registry metrics.Registry

	updated  metrics.Meter
	banned   metrics.Meter
	evicted  metrics.Meter
	reported metrics.Meter

	selected  metrics.Meter
	failed    metrics.Meter
	resampled metrics.Meter

	totalWeight metrics.Gauge
	eligible    metrics.Gauge

	selectLatency metrics.Timer
}

func NewMetrics(ctx context.Context) *Metrics {
	registry := metrics.NewRegistry()

	m := &Metrics{
		registry: registry,

		updated:  metrics.NewRegisteredMeter("pool.updated", registry),
		banned:   metrics.NewRegisteredMeter("pool.banned", registry),
		evicted:  metrics.NewRegisteredMeter("pool.evicted", registry),
		reported: metrics.NewRegisteredMeter("misbehavior.reported", registry),

		selected:  metrics.NewRegisteredMeter("group.selected", registry),
		failed:    metrics.NewRegisteredMeter("group.failed", registry),
		resampled: metrics.NewRegisteredMeter("draw.resampled", registry),

		totalWeight: metrics.NewRegisteredGauge("pool.total_weight", registry),
		eligible:    metrics.NewRegisteredGauge("pool.eligible", registry),

		selectLatency: metrics.NewRegisteredTimer("select.latency", registry),
	}

	go func() {
		logger := log.Metrics()

		for {
			select {
			case <-time.After(1 * time.Second):
				logger.Info().
					Int64("pool.updated", m.updated.Count()).
					Int64("pool.banned", m.banned.Count()).
					Int64("pool.evicted", m.evicted.Count()).
					Int64("pool.total_weight", m.totalWeight.Value()).
					Int64("pool.eligible", m.eligible.Value()).
					Int64("group.selected", m.selected.Count()).
					Int64("group.failed", m.failed.Count()).
					Int64("draw.resampled", m.resampled.Count()).
					Int64("misbehavior.reported", m.reported.Count()).
					Float64("rps.selected", m.selected.Rate1()).
					Str("select.latency.max.ms", time.Duration(m.selectLatency.Max()).String()).
					Str("select.latency.min.ms", time.Duration(m.selectLatency.Min()).String()).
					Str("select.latency.mean.ms", time.Duration(m.selectLatency.Mean()).String()).
					Msg("Updated metrics.")
			case <-ctx.Done():
				return
			}
		}
	}()

	return m
}

func (m *Metrics) Registry() metrics.Registry {
	return m.registry
}

func (m *Metrics) Stop() {
	m.updated.Stop()
	m.banned.Stop()
	m.evicted.Stop()
	m.reported.Stop()

	m.selected.Stop()
	m.failed.Stop()
	m.resampled.Stop()

	m.selectLatency.Stop()
}

func (m *Metrics) markUpdated(totalWeight uint64, eligible int) {
	if m == nil {
		return
	}

	m.updated.Mark(1)
	m.totalWeight.Update(int64(totalWeight))
	m.eligible.Update(int64(eligible))
}

func (m *Metrics) markBanned() {
	if m != nil {
		m.banned.Mark(1)
	}
}

func (m *Metrics) markEvicted() {
	if m != nil {
		m.evicted.Mark(1)
	}
}

func (m *Metrics) markReported() {
	if m != nil {
		m.reported.Mark(1)
	}
}

func (m *Metrics) markSelection(start time.Time, resampled int, err error) {
	if m == nil {
		return
	}

	m.selectLatency.UpdateSince(start)
	m.resampled.Mark(int64(resampled))

	if err != nil {
		m.failed.Mark(1)
		return
	}

	m.selected.Mark(1)
}
