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
// 認証サービス、ミドルウェア、ワーカーから利用する。
type MetricsCollector interface {
	RecordLogin(provider, outcome string)
	ObserveCallbackDuration(provider string, d time.Duration)
	RecordUserCreated(provider string)
	RecordDuplicateRecovered(provider string)
	RecordGateDenied()
	RecordHTTPStatus(statusCode int)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	logins             *prometheus.CounterVec
	callbackLatency    *prometheus.HistogramVec
	usersCreated       *prometheus.CounterVec
	duplicateRecovered *prometheus.CounterVec
	gateDenied         prometheus.Counter
	httpStatus         *prometheus.CounterVec
	sessionsPurged     prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cricketstats_login_total",
			Help: "プロバイダー・結果別のログイン試行数",
		}, []string{"provider", "outcome"}),
		callbackLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "cricketstats_oauth_callback_seconds",
			Help:    "OAuthコールバック処理のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		usersCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cricketstats_users_created_total",
			Help: "初回ログインで作成されたユーザー数",
		}, []string{"provider"}),
		duplicateRecovered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cricketstats_duplicate_first_login_total",
			Help: "同時初回ログインの競合を再検索で解決した回数",
		}, []string{"provider"}),
		gateDenied: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricketstats_gate_denied_total",
			Help: "未ログインで書き込み操作を拒否した回数",
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "cricketstats_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "cricketstats_sessions_purged_total",
			Help: "期限切れで削除したセッション数",
		}),
	}

	reg.MustRegister(
		c.logins,
		c.callbackLatency,
		c.usersCreated,
		c.duplicateRecovered,
		c.gateDenied,
		c.httpStatus,
		c.sessionsPurged,
	)

	return c
}

// RecordLogin はログイン試行の結果を記録する。outcomeは "success" または失敗コード。
func (c *Collector) RecordLogin(provider, outcome string) {
	c.logins.WithLabelValues(provider, outcome).Inc()
}

// ObserveCallbackDuration はコールバック処理時間を記録する。
func (c *Collector) ObserveCallbackDuration(provider string, d time.Duration) {
	c.callbackLatency.WithLabelValues(provider).Observe(d.Seconds())
}

// RecordUserCreated はユーザー作成を記録する。
func (c *Collector) RecordUserCreated(provider string) {
	c.usersCreated.WithLabelValues(provider).Inc()
}

// RecordDuplicateRecovered は作成競合からの回復を記録する。
func (c *Collector) RecordDuplicateRecovered(provider string) {
	c.duplicateRecovered.WithLabelValues(provider).Inc()
}

// RecordGateDenied はアクセスゲートでの拒否を記録する。
func (c *Collector) RecordGateDenied() {
	c.gateDenied.Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordSessionsPurged は削除した期限切れセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)
