package logging

import (
	"context"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/trace"
)

// SlogHandler 是一个 slog.Handler，把 slog 的记录转成一行文本送入注册表的某个域。
// 属性以 key=value 追加在消息之后；上下文中存在有效的 OpenTelemetry Span 时追加 trace_id 和 span_id。
type SlogHandler struct {
	reg    *Registry
	domain string
	prefix string   // WithGroup 累积的分组前缀，如 "req."
	attrs  []string // WithAttrs 预先渲染好的 key=value
}

// NewSlogHandler 创建写入 r 中 domain 域的 slog.Handler。
func NewSlogHandler(r *Registry, domain string) *SlogHandler {
	return &SlogHandler{reg: r, domain: resolveName(domain)}
}

// NewSlogLogger 返回写入 r 中 domain 域的 *slog.Logger。
func NewSlogLogger(r *Registry, domain string) *slog.Logger {
	return slog.New(NewSlogHandler(r, domain))
}

// FromSlogLevel 把 slog 级别映射到本包的级别。
func FromSlogLevel(l slog.Level) Level {
	switch {
	case l < slog.LevelInfo:
		return LevelDebug
	case l < slog.LevelWarn:
		return LevelInfo
	case l < slog.LevelError:
		return LevelWarning
	default:
		return LevelError
	}
}

// Enabled 实现 slog.Handler。
func (h *SlogHandler) Enabled(_ context.Context, l slog.Level) bool {
	return h.reg.Enabled(FromSlogLevel(l), h.domain)
}

// Handle 实现 slog.Handler。
func (h *SlogHandler) Handle(ctx context.Context, r slog.Record) error {
	var b strings.Builder
	b.WriteString(r.Message)
	for _, a := range h.attrs {
		b.WriteByte(' ')
		b.WriteString(a)
	}
	r.Attrs(func(a slog.Attr) bool {
		appendAttr(&b, h.prefix, a)
		return true
	})

	if ctx != nil {
		spanCtx := trace.SpanContextFromContext(ctx)
		if spanCtx.IsValid() {
			appendAttr(&b, "", slog.String("trace_id", spanCtx.TraceID().String()))
			appendAttr(&b, "", slog.String("span_id", spanCtx.SpanID().String()))
		}
	}
	return h.reg.Log(FromSlogLevel(r.Level), h.domain, "%s", b.String())
}

// WithAttrs 实现 slog.Handler。
func (h *SlogHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	if len(attrs) == 0 {
		return h
	}
	h2 := *h
	h2.attrs = slices.Clone(h.attrs)
	for _, a := range attrs {
		var b strings.Builder
		appendAttr(&b, h.prefix, a)
		if b.Len() > 0 {
			h2.attrs = append(h2.attrs, b.String()[1:])
		}
	}
	return &h2
}

// WithGroup 实现 slog.Handler。
func (h *SlogHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	h2 := *h
	h2.prefix = h.prefix + name + "."
	return &h2
}

// appendAttr 以 " key=value" 的形式写入属性，分组属性展开为 group.key。
func appendAttr(b *strings.Builder, prefix string, a slog.Attr) {
	a.Value = a.Value.Resolve()
	if a.Equal(slog.Attr{}) {
		return
	}
	if a.Value.Kind() == slog.KindGroup {
		p := prefix
		if a.Key != "" {
			p = prefix + a.Key + "."
		}
		for _, ga := range a.Value.Group() {
			appendAttr(b, p, ga)
		}
		return
	}
	b.WriteByte(' ')
	b.WriteString(prefix)
	b.WriteString(a.Key)
	b.WriteByte('=')
	s := a.Value.String()
	if s == "" || strings.ContainsAny(s, " =\"\n\t") {
		s = strconv.Quote(s)
	}
	b.WriteString(s)
}
