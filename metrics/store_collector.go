// Copyright (c) 2025 The VeChainThor developers

// Distributed under the GNU Lesser General Public License v3.0 software license, see the accompanying
// file LICENSE or <https://www.gnu.org/licenses/lgpl-3.0.html>

package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// StoreStats is a point-in-time view of a kv store backend.
type StoreStats struct {
	IORead         uint64
	IOWrite        uint64
	BlockCacheSize int
	OpenedTables   int
	AliveSnapshots int32
	AliveIterators int32
}

// StoreCollector collects backend statistics of a named kv store.
// It implements prometheus.Collector interface.
type StoreCollector struct {
	stats func() (StoreStats, error)

	ioReadDesc    *prometheus.Desc
	ioWriteDesc   *prometheus.Desc
	cacheSizeDesc *prometheus.Desc
	tablesDesc    *prometheus.Desc
	snapshotsDesc *prometheus.Desc
	iteratorsDesc *prometheus.Desc
}

// NewStoreCollector creates a collector reading stats of the named store.
func NewStoreCollector(store string, stats func() (StoreStats, error)) *StoreCollector {
	labels := prometheus.Labels{"store": store}
	desc := func(name, help string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "store", name), help, nil, labels)
	}
	return &StoreCollector{
		stats: stats,

		ioReadDesc:    desc("read_bytes_total", "Total number of bytes read by the store."),
		ioWriteDesc:   desc("write_bytes_total", "Total number of bytes written by the store."),
		cacheSizeDesc: desc("block_cache_bytes", "Size of the block cache."),
		tablesDesc:    desc("opened_tables", "Number of opened tables."),
		snapshotsDesc: desc("alive_snapshots", "Number of unreleased snapshots."),
		iteratorsDesc: desc("alive_iterators", "Number of unreleased iterators."),
	}
}

// Describe implements prometheus.Collector.
func (c *StoreCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ioReadDesc
	ch <- c.ioWriteDesc
	ch <- c.cacheSizeDesc
	ch <- c.tablesDesc
	ch <- c.snapshotsDesc
	ch <- c.iteratorsDesc
}

// Collect implements prometheus.Collector.
func (c *StoreCollector) Collect(ch chan<- prometheus.Metric) {
	s, err := c.stats()
	if err != nil {
		logger.Warn("unable to collect store stats", "err", err)
		return
	}
	ch <- prometheus.MustNewConstMetric(c.ioReadDesc, prometheus.CounterValue, float64(s.IORead))
	ch <- prometheus.MustNewConstMetric(c.ioWriteDesc, prometheus.CounterValue, float64(s.IOWrite))
	ch <- prometheus.MustNewConstMetric(c.cacheSizeDesc, prometheus.GaugeValue, float64(s.BlockCacheSize))
	ch <- prometheus.MustNewConstMetric(c.tablesDesc, prometheus.GaugeValue, float64(s.OpenedTables))
	ch <- prometheus.MustNewConstMetric(c.snapshotsDesc, prometheus.GaugeValue, float64(s.AliveSnapshots))
	ch <- prometheus.MustNewConstMetric(c.iteratorsDesc, prometheus.GaugeValue, float64(s.AliveIterators))
}
