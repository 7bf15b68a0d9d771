package metrics

import "github.com/windofthesky/mysql-router/logging"

var _ logging.Observer = (*Metrics)(nil)

// 以下方法实现 logging.Observer。nil 接收者安全。

func (m *Metrics) RecordDispatched(domain, level string) {
	if m == nil {
		return
	}
	m.LogRecordsTotal.WithLabelValues(domain, level).Inc()
}

func (m *Metrics) RecordSuppressed(domain, level string) {
	if m == nil {
		return
	}
	m.LogSuppressedTotal.WithLabelValues(domain, level).Inc()
}

func (m *Metrics) HandlerFailed(domain string) {
	if m == nil {
		return
	}
	m.LogHandlerFailures.WithLabelValues(domain).Inc()
}

func (m *Metrics) DomainsChanged(count int) {
	if m == nil {
		return
	}
	m.LogDomains.Set(float64(count))
}
