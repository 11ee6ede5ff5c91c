// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 認証操作の種類
const (
	OperationSignup = "signup"
	OperationSignin = "signin"
)

// 認証操作の結果
const (
	OutcomeSuccess            = "success"
	OutcomeInvalidInput       = "invalid_input"
	OutcomeConflict           = "conflict"
	OutcomeInvalidCredentials = "invalid_credentials"
	OutcomeError              = "error"
)

// トークン検証の結果
const (
	TokenValid         = "valid"
	TokenMissing       = "missing"
	TokenInvalid       = "invalid"
	TokenMisconfigured = "misconfigured"
)

// MetricsCollector はメトリクス収集のインターフェース。
// サービス層とミドルウェアから利用する。
type MetricsCollector interface {
	RecordAuthAttempt(operation, outcome string)
	RecordTokenVerification(result string)
	RecordPasswordHash(duration time.Duration)
	RecordHTTPStatus(statusCode int)
}

// Collector はPrometheusメトリクスを収集する実装。
type Collector struct {
	authAttempts       *prometheus.CounterVec
	tokenVerifications *prometheus.CounterVec
	passwordHash       prometheus.Histogram
	httpStatus         *prometheus.CounterVec
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duniaauth_auth_attempts_total",
			Help: "サインアップ・サインインの試行数（操作・結果別）",
		}, []string{"operation", "outcome"}),
		tokenVerifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duniaauth_token_verifications_total",
			Help: "認証ガードでのトークン検証数（結果別）",
		}, []string{"result"}),
		passwordHash: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "duniaauth_password_hash_seconds",
			Help:    "パスワードハッシュ計算の所要時間（秒）",
			Buckets: []float64{0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "duniaauth_http_responses_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
	}

	reg.MustRegister(
		c.authAttempts,
		c.tokenVerifications,
		c.passwordHash,
		c.httpStatus,
	)

	return c
}

// RecordAuthAttempt は認証操作の試行を記録する。
func (c *Collector) RecordAuthAttempt(operation, outcome string) {
	c.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// RecordTokenVerification はトークン検証の結果を記録する。
func (c *Collector) RecordTokenVerification(result string) {
	c.tokenVerifications.WithLabelValues(result).Inc()
}

// RecordPasswordHash はパスワードハッシュの所要時間を記録する。
func (c *Collector) RecordPasswordHash(duration time.Duration) {
	c.passwordHash.Observe(duration.Seconds())
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// Nop は何も記録しないMetricsCollector。
type Nop struct{}

func (Nop) RecordAuthAttempt(string, string) {}
func (Nop) RecordTokenVerification(string) {}
func (Nop) RecordPasswordHash(time.Duration) {}
func (Nop) RecordHTTPStatus(int) {}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
