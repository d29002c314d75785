// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// MetricsCollector はメトリクス収集のインターフェース。
// キャッシュ層とストアアダプタから利用する。
type MetricsCollector interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordCoalescedWait()
	RecordStaleDiscard()
	RecordRefetchFailure()
	RecordStoreRequest(op string, statusCode int)
	RecordStoreLatency(op string, duration time.Duration)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	cacheHit       prometheus.Counter
	cacheMiss      prometheus.Counter
	coalescedWait  prometheus.Counter
	staleDiscard   prometheus.Counter
	refetchFailure prometheus.Counter
	storeRequest   *prometheus.CounterVec
	storeLatency   *prometheus.HistogramVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		cacheHit: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passerelle_cache_hit_total",
			Help: "鮮度ウィンドウ内でスナップショットを再利用した回数",
		}),
		cacheMiss: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passerelle_cache_miss_total",
			Help: "リフェッチを起動した回数",
		}),
		coalescedWait: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passerelle_cache_coalesced_total",
			Help: "進行中のフェッチ結果に合流した読み取りの回数",
		}),
		staleDiscard: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passerelle_cache_stale_discard_total",
			Help: "シーケンス番号により破棄された古いフェッチ結果の回数",
		}),
		refetchFailure: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "passerelle_cache_refetch_fail_total",
			Help: "リフェッチ失敗の合計数",
		}),
		storeRequest: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "passerelle_store_request_total",
			Help: "操作・HTTPステータス別のストアリクエスト数",
		}, []string{"op", "status_code"}),
		storeLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "passerelle_store_latency_seconds",
			Help:    "ストア操作のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"op"}),
	}

	reg.MustRegister(
		c.cacheHit,
		c.cacheMiss,
		c.coalescedWait,
		c.staleDiscard,
		c.refetchFailure,
		c.storeRequest,
		c.storeLatency,
	)

	return c
}

// RecordCacheHit はキャッシュヒットを記録する。
func (c *Collector) RecordCacheHit() {
	c.cacheHit.Inc()
}

// RecordCacheMiss はキャッシュミス（リフェッチ起動）を記録する。
func (c *Collector) RecordCacheMiss() {
	c.cacheMiss.Inc()
}

// RecordCoalescedWait は進行中フェッチへの合流を記録する。
func (c *Collector) RecordCoalescedWait() {
	c.coalescedWait.Inc()
}

// RecordStaleDiscard は古いフェッチ結果の破棄を記録する。
func (c *Collector) RecordStaleDiscard() {
	c.staleDiscard.Inc()
}

// RecordRefetchFailure はリフェッチ失敗を記録する。
func (c *Collector) RecordRefetchFailure() {
	c.refetchFailure.Inc()
}

// RecordStoreRequest はストアリクエストの完了を操作・ステータス別に記録する。
func (c *Collector) RecordStoreRequest(op string, statusCode int) {
	c.storeRequest.WithLabelValues(op, strconv.Itoa(statusCode)).Inc()
}

// RecordStoreLatency はストア操作のレイテンシを記録する。
func (c *Collector) RecordStoreLatency(op string, duration time.Duration) {
	c.storeLatency.WithLabelValues(op).Observe(duration.Seconds())
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// NopCollector は何も記録しないMetricsCollector実装。
// メトリクスが不要なテストで使用する。
type NopCollector struct{}

func (NopCollector) RecordCacheHit()                               {}
func (NopCollector) RecordCacheMiss()                              {}
func (NopCollector) RecordCoalescedWait()                          {}
func (NopCollector) RecordStaleDiscard()                           {}
func (NopCollector) RecordRefetchFailure()                         {}
func (NopCollector) RecordStoreRequest(op string, statusCode int)  {}
func (NopCollector) RecordStoreLatency(op string, d time.Duration) {}
