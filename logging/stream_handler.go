package logging

import (
	"io"
	"sync"

	"github.com/windofthesky/mysql-router/xerrors"
)

type flusher interface {
	Flush() error
}

// StreamHandler 把记录写到一个已经打开的 io.Writer。
// 内部互斥锁保证每条记录以一次完整的 Write 落到流上，并发调用不会交错同一行。
type StreamHandler struct {
	*BaseHandler

	mu     sync.Mutex
	w      io.Writer
	closed bool
}

// NewStreamHandler 创建写入 w 的输出端，w 的生命周期由调用方管理。
func NewStreamHandler(w io.Writer, level Level) *StreamHandler {
	h := &StreamHandler{w: w}
	h.BaseHandler = NewBaseHandler(level, h.write)
	return h
}

func (h *StreamHandler) write(_ Record, line []byte) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return xerrors.Closed("log handler is closed")
	}
	n, err := h.w.Write(line)
	if err != nil {
		return err
	}
	if n < len(line) {
		return io.ErrShortWrite
	}
	// 带缓冲的流在返回前刷出。*os.File 本身不带缓冲，不需要 Sync。
	if f, ok := h.w.(flusher); ok {
		return f.Flush()
	}
	return nil
}

// shutdown 等待正在进行的写入结束后把输出端标记为关闭，再执行 release。
// 重复调用时 release 不再执行。
func (h *StreamHandler) shutdown(release func() error) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil
	}
	h.closed = true
	if release == nil {
		return nil
	}
	return release()
}
