package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the marketplace ledger.
type Metrics struct {
	// --- Core processing ---
	OpsApplied  *prometheus.CounterVec
	OpsRejected *prometheus.CounterVec
	OpDuration  *prometheus.HistogramVec
	Journals    *prometheus.CounterVec
	Sequence    prometheus.Gauge

	// --- Marketplace ---
	ListingsOpen      prometheus.Gauge
	SalesSettled      *prometheus.CounterVec
	SaleVolume        *prometheus.CounterVec
	FeesCollected     *prometheus.CounterVec
	AssetsIssued      prometheus.Counter
	ListingsWithdrawn *prometheus.CounterVec

	// --- Channels & backpressure ---
	ChannelSize         *prometheus.GaugeVec
	ChannelCapacity     *prometheus.GaugeVec
	ProjectionDrops     *prometheus.CounterVec
	PublishDrops        prometheus.Counter
	PersistBackpressure prometheus.Counter

	// --- Idempotency ---
	IdempotencyDuplicates *prometheus.CounterVec

	// --- Persistence & snapshot ---
	PersistOpsWritten      prometheus.Counter
	PersistJournalsWritten prometheus.Counter
	PersistBatchDur        prometheus.Histogram
	PersistErrors          *prometheus.CounterVec
	SnapshotTaken          prometheus.Counter
	SnapshotDuration       prometheus.Histogram
	SnapshotLastSeq        prometheus.Gauge
	ReplayOpsTotal         prometheus.Counter

	// --- HTTP API ---
	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec
}

// NewMetrics creates and registers all Prometheus metrics.
func NewMetrics() *Metrics {
	latencyBuckets := []float64{
		0.000001, 0.000005, 0.00001, 0.000025, 0.00005,
		0.0001, 0.00025, 0.0005, 0.001, 0.002, 0.005, 0.01,
	}

	return &Metrics{
		OpsApplied: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_core_ops_applied_total",
			Help: "Operations successfully applied by the core",
		}, []string{"op_type"}),

		OpsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_core_ops_rejected_total",
			Help: "Operations rejected (duplicate, validation, conflict, funds)",
		}, []string{"op_type", "reason"}),

		OpDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_core_op_apply_duration_seconds",
			Help:    "Time to apply a single operation in the core",
			Buckets: latencyBuckets,
		}, []string{"op_type"}),

		Journals: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_core_journals_generated_total",
			Help: "Journal entries generated",
		}, []string{"journal_type"}),

		Sequence: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "market_core_sequence",
			Help: "Current global operation sequence",
		}),

		ListingsOpen: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "market_listings_open",
			Help: "Open listings across all marketplaces",
		}),

		SalesSettled: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_sales_settled_total",
			Help: "Purchases settled",
		}, []string{"marketplace"}),

		SaleVolume: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_sale_volume_total",
			Help: "Gross sale volume in smallest currency units",
		}, []string{"marketplace"}),

		FeesCollected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_fees_collected_total",
			Help: "Fees routed to marketplace treasuries",
		}, []string{"marketplace"}),

		AssetsIssued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_assets_issued_total",
			Help: "Asset identities created",
		}),

		ListingsWithdrawn: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_listings_withdrawn_total",
			Help: "Listings cancelled by their maker",
		}, []string{"marketplace"}),

		ChannelSize: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "market_channel_size",
			Help: "Current items in channel",
		}, []string{"name"}),

		ChannelCapacity: promauto.NewGaugeVec(prometheus.GaugeOpts{
			Name: "market_channel_capacity",
			Help: "Channel capacity (constant)",
		}, []string{"name"}),

		ProjectionDrops: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_projection_drops_total",
			Help: "Outputs dropped due to full projection channel",
		}, []string{"projection"}),

		PublishDrops: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_publish_drops_total",
			Help: "Outputs dropped due to full publish channel",
		}),

		PersistBackpressure: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_persist_backpressure_total",
			Help: "Times the core blocked on the persist channel",
		}),

		IdempotencyDuplicates: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_idempotency_duplicates_total",
			Help: "Duplicates caught (cache/postgres)",
		}, []string{"op_type", "tier"}),

		PersistOpsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_persist_ops_written_total",
			Help: "Operations written to the log",
		}),

		PersistJournalsWritten: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_persist_journals_written_total",
			Help: "Journal rows written to the log",
		}),

		PersistBatchDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_persist_batch_duration_seconds",
			Help:    "Postgres batch write duration",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),

		PersistErrors: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_persist_errors_total",
			Help: "Postgres write errors",
		}, []string{"kind"}),

		SnapshotTaken: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_snapshot_taken_total",
			Help: "Snapshots persisted",
		}),

		SnapshotDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "market_snapshot_duration_seconds",
			Help:    "Snapshot build and write duration",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0, 5.0},
		}),

		SnapshotLastSeq: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "market_snapshot_last_sequence",
			Help: "Sequence of the most recent snapshot",
		}),

		ReplayOpsTotal: promauto.NewCounter(prometheus.CounterOpts{
			Name: "market_replay_ops_total",
			Help: "Operations replayed from the log during recovery",
		}),

		HTTPRequests: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "market_http_requests_total",
			Help: "HTTP API requests",
		}, []string{"route", "code"}),

		HTTPDuration: promauto.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "market_http_request_duration_seconds",
			Help:    "HTTP API request duration",
			Buckets: []float64{0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1.0},
		}, []string{"route"}),
	}
}
