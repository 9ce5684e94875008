// Package metrics はPrometheusメトリクスの収集と公開を提供する。
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Collector はPrometheusメトリクスを収集する実装。
// サービス層・ワーカー・ミドルウェアは各自の小さなインターフェース越しに利用する。
type Collector struct {
	httpStatus       *prometheus.CounterVec
	uploads          *prometheus.CounterVec
	thumbGenerated   prometheus.Counter
	thumbFailed      prometheus.Counter
	thumbEnqueueFail prometheus.Counter
}

// NewCollector は新しいCollectorを生成し、指定されたレジストリにメトリクスを登録する。
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		httpStatus: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filebox_http_status_total",
			Help: "HTTPステータスコード別のレスポンス数",
		}, []string{"status_code"}),
		uploads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "filebox_uploads_total",
			Help: "作成されたエントリ数（種別別）",
		}, []string{"kind"}),
		thumbGenerated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filebox_thumbnail_generated_total",
			Help: "サムネイル生成に成功したジョブ数",
		}),
		thumbFailed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filebox_thumbnail_failed_total",
			Help: "サムネイル生成に恒久失敗したジョブ数",
		}),
		thumbEnqueueFail: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "filebox_thumbnail_enqueue_failed_total",
			Help: "投入に失敗したサムネイルジョブ数（アップロード自体は成功）",
		}),
	}

	reg.MustRegister(
		c.httpStatus,
		c.uploads,
		c.thumbGenerated,
		c.thumbFailed,
		c.thumbEnqueueFail,
	)

	return c
}

// RecordHTTPStatus はHTTPステータスコードを記録する。
func (c *Collector) RecordHTTPStatus(statusCode int) {
	c.httpStatus.WithLabelValues(strconv.Itoa(statusCode)).Inc()
}

// RecordUpload はエントリ作成を種別別に記録する。
func (c *Collector) RecordUpload(kind string) {
	c.uploads.WithLabelValues(kind).Inc()
}

// RecordThumbnailGenerated はサムネイル生成成功を記録する。
func (c *Collector) RecordThumbnailGenerated() {
	c.thumbGenerated.Inc()
}

// RecordThumbnailFailed はサムネイル生成の恒久失敗を記録する。
func (c *Collector) RecordThumbnailFailed() {
	c.thumbFailed.Inc()
}

// RecordThumbnailEnqueueFailure はジョブ投入失敗を記録する。
func (c *Collector) RecordThumbnailEnqueueFailure() {
	c.thumbEnqueueFail.Inc()
}

// Handler はPrometheusスクレイプ用のHTTPハンドラーを返す。
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
