// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// セッション解決、ハートビート、回収ワーカーから利用する。
type MetricsCollector interface {
	RecordSessionMinted()
	RecordSessionResumed()
	RecordHeartbeat(result string)
	RecordCleanup(presenceDeleted, usersDeleted, usersAnonymized int64, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	sessionsMinted   prometheus.Counter
	sessionsResumed  prometheus.Counter
	heartbeats       *prometheus.CounterVec
	presenceDeleted  prometheus.Counter
	usersDeleted     prometheus.Counter
	usersAnonymized  prometheus.Counter
	cleanupDuration  prometheus.Histogram
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		sessionsMinted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otoba_sessions_minted_total",
			Help: "新規発行されたセッションの合計数",
		}),
		sessionsResumed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otoba_sessions_resumed_total",
			Help: "再開された既存セッションの合計数",
		}),
		heartbeats: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "otoba_heartbeats_total",
			Help: "結果別のハートビート数",
		}, []string{"result"}),
		presenceDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otoba_cleanup_presence_deleted_total",
			Help: "回収された失効プレゼンス行の合計数",
		}),
		usersDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otoba_cleanup_users_deleted_total",
			Help: "回収された放棄匿名ユーザーの合計数",
		}),
		usersAnonymized: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "otoba_cleanup_users_anonymized_total",
			Help: "匿名化された放棄匿名ユーザーの合計数",
		}),
		cleanupDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "otoba_cleanup_duration_seconds",
			Help:    "回収実行の所要時間（秒）",
			Buckets: prometheus.DefBuckets,
		}),
	}

	reg.MustRegister(
		c.sessionsMinted,
		c.sessionsResumed,
		c.heartbeats,
		c.presenceDeleted,
		c.usersDeleted,
		c.usersAnonymized,
		c.cleanupDuration,
	)

	return c
}

// RecordSessionMinted は新規セッション発行を記録する。
func (c *Collector) RecordSessionMinted() {
	c.sessionsMinted.Inc()
}

// RecordSessionResumed は既存セッション再開を記録する。
func (c *Collector) RecordSessionResumed() {
	c.sessionsResumed.Inc()
}

// RecordHeartbeat はハートビートの結果を記録する。
// resultは "ok", "throttled", "not_found", "error" のいずれか。
func (c *Collector) RecordHeartbeat(result string) {
	c.heartbeats.WithLabelValues(result).Inc()
}

// RecordCleanup は回収実行の結果を記録する。
func (c *Collector) RecordCleanup(presenceDeleted, usersDeleted, usersAnonymized int64, duration time.Duration) {
	c.presenceDeleted.Add(float64(presenceDeleted))
	c.usersDeleted.Add(float64(usersDeleted))
	c.usersAnonymized.Add(float64(usersAnonymized))
	c.cleanupDuration.Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// SetupMetricsRoute は/metricsエンドポイントを提供するHTTPハンドラーを返す。
// Prometheusスクレイプに対応する。
func SetupMetricsRoute(gatherer prometheus.Gatherer) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(gatherer))
	return mux
}
