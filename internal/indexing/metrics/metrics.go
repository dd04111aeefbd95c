package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlocksProcessed tracks total blocks processed per chain
	BlocksProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_blocks_processed_total",
			Help: "Total number of blocks processed",
		},
		[]string{"chain"},
	)

	// TransactionsProcessed tracks raw transactions seen
	TransactionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_transactions_processed_total",
			Help: "Total number of transactions decoded",
		},
		[]string{"chain"},
	)

	// MessagesIndexed tracks stored messages per type
	MessagesIndexed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_messages_indexed_total",
			Help: "Total number of messages written to the store",
		},
		[]string{"chain", "type"},
	)

	// DecodeErrors tracks skipped transactions and messages
	DecodeErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_decode_errors_total",
			Help: "Total number of transactions or messages skipped on decode errors",
		},
		[]string{"chain"},
	)

	// WindowRetries tracks block range fetch retries
	WindowRetries = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_window_retries_total",
			Help: "Total number of block range fetch retries",
		},
		[]string{"chain"},
	)

	// WindowsAbandoned tracks windows given up after exhausting retries
	WindowsAbandoned = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_windows_abandoned_total",
			Help: "Total number of windows abandoned after exhausting retries",
		},
		[]string{"chain"},
	)

	// GapsPending tracks abandoned windows waiting for rescan
	GapsPending = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gravity_indexer_gaps_pending",
			Help: "Number of abandoned windows waiting for rescan",
		},
		[]string{"chain"},
	)

	// RunsTotal tracks indexing runs by result
	RunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_runs_total",
			Help: "Total number of indexing runs",
		},
		[]string{"chain", "result"},
	)

	// RunDuration tracks how long an indexing run takes
	RunDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gravity_indexer_run_duration_seconds",
			Help:    "Duration of indexing runs in seconds",
			Buckets: prometheus.ExponentialBuckets(1, 4, 10),
		},
		[]string{"chain"},
	)

	// RPCCallsTotal tracks chain reader calls
	RPCCallsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_rpc_calls_total",
			Help: "Total number of RPC calls",
		},
		[]string{"chain", "method"},
	)

	// RPCErrorsTotal tracks chain reader errors
	RPCErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "gravity_indexer_rpc_errors_total",
			Help: "Total number of RPC errors",
		},
		[]string{"chain", "method"},
	)

	// RPCLatency tracks RPC call latency
	RPCLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gravity_indexer_rpc_latency_seconds",
			Help:    "RPC call latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"chain", "method"},
	)

	// ChainLatestBlock tracks the latest block height of the chain
	ChainLatestBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gravity_indexer_chain_latest_block",
			Help: "Latest block height of the chain",
		},
		[]string{"chain"},
	)

	// IndexerLatestBlock tracks the checkpoint height
	IndexerLatestBlock = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "gravity_indexer_checkpoint_block",
			Help: "Highest block height fully indexed",
		},
		[]string{"chain"},
	)

	// QueryDuration tracks read endpoint scan latency
	QueryDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "gravity_indexer_query_duration_seconds",
			Help:    "Duration of store scans serving read endpoints",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"query"},
	)

	// DBConnectionPoolUsage tracks postgres pool usage in percent
	DBConnectionPoolUsage = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "gravity_indexer_db_connection_pool_usage_percent",
			Help: "Percentage of the postgres connection pool in use",
		},
	)
)
