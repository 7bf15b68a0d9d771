// Package metrics 封装基于 Prometheus 的指标采集，覆盖日志分发计数与管理端 HTTP 请求。
package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics 持有独立的 Prometheus 注册中心及预定义指标。
type Metrics struct {
	registry *prometheus.Registry

	// 日志分发
	LogRecordsTotal    *prometheus.CounterVec // 已分发记录 (维度: domain, level)
	LogSuppressedTotal *prometheus.CounterVec // 被域门限拦下的记录 (维度: domain, level)
	LogHandlerFailures *prometheus.CounterVec // 输出端写入失败 (维度: domain)
	LogDomains         prometheus.Gauge       // 当前注册的域数量

	// 管理端 HTTP
	HTTPRequestsTotal     *prometheus.CounterVec
	HTTPRequestDuration   *prometheus.HistogramVec
	HTTPInFlight          *prometheus.GaugeVec
	HTTPSlowRequestsTotal *prometheus.CounterVec

	BuildInfo *prometheus.GaugeVec
}

// NewMetrics 初始化指标采集器，并注册 Go 运行时与进程指标。
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	m := &Metrics{registry: reg}

	m.LogRecordsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "log_records_total",
		Help: "Total number of log records dispatched to handlers",
	}, []string{"domain", "level"})

	m.LogSuppressedTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "log_records_suppressed_total",
		Help: "Total number of log records rejected by the domain level",
	}, []string{"domain", "level"})

	m.LogHandlerFailures = m.NewCounterVec(prometheus.CounterOpts{
		Name: "log_handler_failures_total",
		Help: "Total number of failed handler deliveries",
	}, []string{"domain"})

	m.LogDomains = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "log_domains",
		Help: "Number of registered log domains",
	})
	reg.MustRegister(m.LogDomains)

	m.HTTPRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_requests_total",
		Help: "Total number of HTTP requests",
	}, []string{"method", "path", "status"})

	m.HTTPRequestDuration = m.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "http_server_request_duration_seconds",
		Help:    "HTTP request latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "path"})

	m.HTTPInFlight = m.NewGaugeVec(prometheus.GaugeOpts{
		Name: "http_server_in_flight_requests",
		Help: "Number of HTTP requests being served",
	}, []string{"method", "path"})

	m.HTTPSlowRequestsTotal = m.NewCounterVec(prometheus.CounterOpts{
		Name: "http_server_slow_requests_total",
		Help: "Total number of HTTP requests slower than the configured threshold",
	}, []string{"method", "path"})

	return m
}

// NewCounterVec 创建并注册一个新的计数器指标。
func (m *Metrics) NewCounterVec(opts prometheus.CounterOpts, labelNames []string) *prometheus.CounterVec {
	cv := prometheus.NewCounterVec(opts, labelNames)
	m.registry.MustRegister(cv)
	return cv
}

// NewGaugeVec 创建并注册一个新的仪表盘指标。
func (m *Metrics) NewGaugeVec(opts prometheus.GaugeOpts, labelNames []string) *prometheus.GaugeVec {
	gv := prometheus.NewGaugeVec(opts, labelNames)
	m.registry.MustRegister(gv)
	return gv
}

// NewHistogramVec 创建并注册一个新的直方图指标。
func (m *Metrics) NewHistogramVec(opts prometheus.HistogramOpts, labelNames []string) *prometheus.HistogramVec {
	hv := prometheus.NewHistogramVec(opts, labelNames)
	m.registry.MustRegister(hv)
	return hv
}

// Registry 返回内部注册中心，主要用于测试采集。
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler 返回用于暴露指标的 HTTP 处理器。
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Expose 在 addr 上启动独立的指标服务，返回用于优雅关闭的清理函数。
// 启动失败通过 onError 报告。
func (m *Metrics) Expose(addr string, onError func(error)) func() {
	srv := &http.Server{
		Addr:              addr,
		Handler:           m.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) && onError != nil {
			onError(err)
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(ctx); err != nil && onError != nil {
			onError(err)
		}
	}
}
