// Copyright (c) 2024 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import "net/http"

// noopMetrics is the service in force until prometheus is initialized. Every
// meter it hands out is the shared discard meter.
type noopMetrics struct{}

func defaultNoopMetrics() Metrics { return noopMetrics{} }

func (noopMetrics) GetOrCreateHistogramMeter(string, []int64) HistogramMeter { return discard }
func (noopMetrics) GetOrCreateCountMeter(string) CountMeter                  { return discard }
func (noopMetrics) GetOrCreateCountVecMeter(string, []string) CountVecMeter  { return discard }
func (noopMetrics) GetOrCreateGaugeMeter(string) GaugeMeter                  { return discard }

// GetOrCreateHandler returns nil: there is nothing to expose.
func (noopMetrics) GetOrCreateHandler() http.Handler { return nil }

// RegisterCollector drops c. Store statistics are only collected by prometheus.
func (noopMetrics) RegisterCollector(Collector) {}

var discard = &discardMeter{}

type discardMeter struct{}

func (discardMeter) Observe(int64)                         {}
func (discardMeter) Add(int64)                             {}
func (discardMeter) AddWithLabel(int64, map[string]string) {}
func (discardMeter) Set(int64)                             {}
