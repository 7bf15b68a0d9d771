package logging

import (
	"strconv"
	"strings"
	"sync/atomic"

	"github.com/windofthesky/mysql-router/xerrors"
)

// timeLayout 日志行中的时间格式，本地时间，精确到秒。
const timeLayout = "2006-01-02 15:04:05"

// Handler 是日志输出端的抽象。
//
// Handle 必须先用自身级别再过滤一次，未通过时直接返回 nil；通过时格式化并同步写出。
// 写入失败通过返回值告知调用方，不得 panic 或退出进程。
// 注册表按接口值判等来识别同一个 Handler，因此实现应使用指针类型。
type Handler interface {
	Handle(r Record) error
	Level() Level
	SetLevel(level Level)
}

// Sink 是输出端的写入原语，line 为 Format 的结果（含换行符）。
type Sink func(r Record, line []byte) error

// BaseHandler 实现 Handler 的公共部分：级别门限、格式化，以及把写入交给 Sink。
// 自定义输出端可以嵌入 *BaseHandler，只需提供 Sink。
type BaseHandler struct {
	level atomic.Int32
	sink  Sink
}

// NewBaseHandler 创建一个以 level 为门限、写入 sink 的 BaseHandler。
// level 为 LevelNotSet 时该输出端不做额外过滤。
func NewBaseHandler(level Level, sink Sink) *BaseHandler {
	h := &BaseHandler{sink: sink}
	h.level.Store(int32(level))
	return h
}

// Level 返回当前门限。
func (h *BaseHandler) Level() Level {
	return Level(h.level.Load())
}

// SetLevel 修改门限，对之后的 Handle 调用立即生效。
func (h *BaseHandler) SetLevel(level Level) {
	h.level.Store(int32(level))
}

// Handle 过滤、格式化并写出一条记录。
func (h *BaseHandler) Handle(r Record) error {
	if !h.Level().Admits(r.Level) {
		return nil
	}
	if err := h.sink(r, Format(r)); err != nil {
		if _, ok := xerrors.FromError(err); ok {
			return err
		}
		return xerrors.WriteFailed("log handler write failed", err).WithContext("domain", r.Domain)
	}
	return nil
}

// Format 生成一条记录的标准文本行：
//
//	<YYYY-MM-DD hh:mm:ss> <pid> <LEVEL> <domain>: <message>\n
//
// 解析日志的工具依赖这个格式，不要改动。多行消息的后续行以制表符缩进。
func Format(r Record) []byte {
	var b strings.Builder
	b.Grow(len(timeLayout) + len(r.Domain) + len(r.Message) + 24)
	b.WriteString(r.Created.Format(timeLayout))
	b.WriteByte(' ')
	b.WriteString(strconv.Itoa(r.ProcessID))
	b.WriteByte(' ')
	b.WriteString(r.Level.String())
	b.WriteByte(' ')
	b.WriteString(r.Domain)
	b.WriteString(": ")
	writeMessage(&b, r.Message)
	b.WriteByte('\n')
	return []byte(b.String())
}

func writeMessage(b *strings.Builder, s string) {
	s = strings.TrimSuffix(s, "\n")
	for {
		i := strings.IndexByte(s, '\n')
		if i == -1 {
			b.WriteString(s)
			return
		}
		b.WriteString(s[:i+1])
		b.WriteByte('\t')
		s = s[i+1:]
	}
}
