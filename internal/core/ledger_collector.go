package core

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"mycoledger/pkg/domain"
)

// SnapshotSource returns the committed ledger state to export.
type SnapshotSource func(ctx context.Context) (domain.Snapshot, error)

// LedgerCollector exports record counts and per-network aggregates, computed
// from a fresh snapshot on every scrape.
type LedgerCollector struct {
	source  SnapshotSource
	timeout time.Duration

	records    *prometheus.Desc
	capacity   *prometheus.Desc
	funding    *prometheus.Desc
	health     *prometheus.Desc
	efficiency *prometheus.Desc
}

// NewLedgerCollector constructs a collector over source.
func NewLedgerCollector(source SnapshotSource) *LedgerCollector {
	perNetwork := []string{"network_id", "name"}
	return &LedgerCollector{
		source:     source,
		timeout:    10 * time.Second,
		records:    prometheus.NewDesc("mycoledger_records", "Ledger records by entity.", []string{"entity"}, nil),
		capacity:   prometheus.NewDesc("mycoledger_network_carbon_capacity", "Latest measured carbon stored per network.", perNetwork, nil),
		funding:    prometheus.NewDesc("mycoledger_network_total_funding", "Accumulated funding per network.", perNetwork, nil),
		health:     prometheus.NewDesc("mycoledger_network_health_score", "Network health score (0-100).", perNetwork, nil),
		efficiency: prometheus.NewDesc("mycoledger_network_carbon_efficiency", "Carbon capacity per hectare.", perNetwork, nil),
	}
}

// Describe implements prometheus.Collector.
func (c *LedgerCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.records
	ch <- c.capacity
	ch <- c.funding
	ch <- c.health
	ch <- c.efficiency
}

// Collect implements prometheus.Collector.
func (c *LedgerCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), c.timeout)
	defer cancel()
	snapshot, err := c.source(ctx)
	if err != nil {
		ch <- prometheus.NewInvalidMetric(c.records, err)
		return
	}

	counts := map[domain.EntityType]int{
		domain.EntityNetwork:           len(snapshot.Networks),
		domain.EntityTree:              len(snapshot.Trees),
		domain.EntityInoculation:       len(snapshot.Inoculations),
		domain.EntityCarbonMeasurement: len(snapshot.CarbonMeasurements),
	}
	for entity, n := range counts {
		ch <- prometheus.MustNewConstMetric(c.records, prometheus.GaugeValue, float64(n), string(entity))
	}

	treesByNetwork := make(map[uint64][]domain.Tree)
	for _, t := range snapshot.Trees {
		treesByNetwork[t.NetworkID] = append(treesByNetwork[t.NetworkID], t)
	}
	ids := make([]uint64, 0, len(snapshot.Networks))
	for id := range snapshot.Networks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		n := snapshot.Networks[id]
		labels := []string{strconv.FormatUint(id, 10), n.Name}
		ch <- prometheus.MustNewConstMetric(c.capacity, prometheus.GaugeValue, float64(n.CarbonCapacity), labels...)
		ch <- prometheus.MustNewConstMetric(c.funding, prometheus.GaugeValue, float64(n.TotalFunding), labels...)
		ch <- prometheus.MustNewConstMetric(c.health, prometheus.GaugeValue, float64(domain.HealthScore(treesByNetwork[id])), labels...)
		ch <- prometheus.MustNewConstMetric(c.efficiency, prometheus.GaugeValue, float64(domain.CarbonEfficiency(n)), labels...)
	}
}
