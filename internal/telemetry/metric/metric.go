package metric

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds all snapdist metrics.
type Metrics struct {
	// Engine operations
	SavesTotal   prometheus.Counter
	BuildsTotal  prometheus.Counter
	ReloadsTotal prometheus.Counter

	// Per-attribute encode/decode activity, labeled by type tag.
	AttributesEncoded *prometheus.CounterVec
	AttributesDecoded *prometheus.CounterVec

	// Recoverable failure modes
	EncodeDowngrades   prometheus.Counter
	DispatchMisses     prometheus.Counter
	LookupMisses       prometheus.Counter
	ChecksumMismatches prometheus.Counter

	// Catalog
	CatalogEntries prometheus.Gauge
}

// New creates and registers all metrics with the given registerer.
// Passing nil uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	m := &Metrics{
		SavesTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_saves_total",
			Help: "Total number of snapshot save operations.",
		}),
		BuildsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_builds_total",
			Help: "Total number of snapshot build operations.",
		}),
		ReloadsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_reloads_total",
			Help: "Total number of full reload operations.",
		}),
		AttributesEncoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapdist_attributes_encoded_total",
			Help: "Complex attributes encoded, by type tag.",
		}, []string{"type_tag"}),
		AttributesDecoded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "snapdist_attributes_decoded_total",
			Help: "Complex attributes decoded, by type tag.",
		}, []string{"type_tag"}),
		EncodeDowngrades: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_encode_downgrades_total",
			Help: "Simple attributes downgraded to null at save time.",
		}),
		DispatchMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_dispatch_misses_total",
			Help: "Complex attributes skipped at decode time due to an unregistered type tag.",
		}),
		LookupMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_lookup_misses_total",
			Help: "Single-attribute reloads requested for names absent from the loaded manifests.",
		}),
		ChecksumMismatches: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "snapdist_checksum_mismatches_total",
			Help: "Encoded files whose content checksum did not match the manifest.",
		}),
		CatalogEntries: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "snapdist_catalog_entries",
			Help: "Number of snapshots currently registered in the catalog.",
		}),
	}

	reg.MustRegister(
		m.SavesTotal,
		m.BuildsTotal,
		m.ReloadsTotal,
		m.AttributesEncoded,
		m.AttributesDecoded,
		m.EncodeDowngrades,
		m.DispatchMisses,
		m.LookupMisses,
		m.ChecksumMismatches,
		m.CatalogEntries,
	)
	return m
}
