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
// サービス層とワーカーから利用する。
type MetricsCollector interface {
	RecordLoginSuccess(provider string)
	RecordLoginFailure(provider string)
	RecordUserCreated(provider string)
	RecordAuthzDenied(resource string)
	RecordHTTPStatus(statusCode int)
	RecordOAuthLatency(provider string, duration time.Duration)
	RecordSessionsPurged(count int64)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	loginSuccess   *prometheus.CounterVec
	loginFail      *prometheus.CounterVec
	userCreated    *prometheus.CounterVec
	authzDenied    *prometheus.CounterVec
	httpStatus     *prometheus.CounterVec
	oauthLatency   *prometheus.HistogramVec
	sessionsPurged prometheus.Counter
}

// compile-time interface check
var _ MetricsCollector = (*Collector)(nil)

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		loginSuccess: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_login_success_total",
			Help: "プロバイダー別のログイン成功の合計数",
		}, []string{"provider"}),
		loginFail: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_login_fail_total",
			Help: "プロバイダー別のログイン失敗の合計数",
		}, []string{"provider"}),
		userCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_user_created_total",
			Help: "初回ログインで作成されたユーザーの合計数",
		}, []string{"provider"}),
		authzDenied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_authz_denied_total",
			Help: "所有権チェックで拒否された操作の合計数",
		}, []string{"resource"}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "catalog_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		oauthLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "catalog_oauth_latency_seconds",
			Help:    "外部IdPとのコード交換のレイテンシ（秒）",
			Buckets: prometheus.DefBuckets,
		}, []string{"provider"}),
		sessionsPurged: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "catalog_sessions_purged_total",
			Help: "クリーンアップで削除された期限切れセッションの合計数",
		}),
	}

	reg.MustRegister(
		c.loginSuccess,
		c.loginFail,
		c.userCreated,
		c.authzDenied,
		c.httpStatus,
		c.oauthLatency,
		c.sessionsPurged,
	)

	return c
}

// RecordLoginSuccess はログイン成功を記録する。
func (c *Collector) RecordLoginSuccess(provider string) {
	c.loginSuccess.WithLabelValues(provider).Inc()
}

// RecordLoginFailure はログイン失敗を記録する。
func (c *Collector) RecordLoginFailure(provider string) {
	c.loginFail.WithLabelValues(provider).Inc()
}

// RecordUserCreated は初回ログインによるユーザー作成を記録する。
func (c *Collector) RecordUserCreated(provider string) {
	c.userCreated.WithLabelValues(provider).Inc()
}

// RecordAuthzDenied は所有権チェックによる拒否を記録する。
func (c *Collector) RecordAuthzDenied(resource string) {
	c.authzDenied.WithLabelValues(resource).Inc()
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordOAuthLatency はコード交換のレイテンシを記録する。
func (c *Collector) RecordOAuthLatency(provider string, duration time.Duration) {
	c.oauthLatency.WithLabelValues(provider).Observe(duration.Seconds())
}

// RecordSessionsPurged はクリーンアップで削除されたセッション数を記録する。
func (c *Collector) RecordSessionsPurged(count int64) {
	c.sessionsPurged.Add(float64(count))
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
