package logging

import (
	"errors"
	"fmt"
	"os"
	"sync"

	"github.com/windofthesky/mysql-router/xerrors"
)

// Log 是所有调用点的统一入口。
//
// 流程：解析域（空名表示顶层域）→ 域门限 → 构造 Record → 按注册顺序交给快照中的每个输出端。
// 未通过域门限时不会格式化消息，也不会触碰任何输出端。
// 单个输出端失败不影响其他输出端，所有失败合并后返回；调用方可以忽略这个返回值。
func (r *Registry) Log(level Level, name string, format string, args ...any) error {
	if err := checkRecordLevel(level); err != nil {
		return err
	}
	d, err := r.snapshot(name)
	if err != nil {
		return err
	}
	return r.dispatch(d, d.name, level, format, args)
}

// logOrRoot 与 Log 相同，但 name 未注册时改用顶层域的门限与输出端，记录中保留原域名。
func (r *Registry) logOrRoot(level Level, name string, format string, args []any) error {
	if err := checkRecordLevel(level); err != nil {
		return err
	}
	d, err := r.snapshotOrRoot(name)
	if err != nil {
		return err
	}
	return r.dispatch(d, resolveName(name), level, format, args)
}

func (r *Registry) snapshotOrRoot(name string) (*domain, error) {
	d, err := r.snapshot(name)
	if xerrors.Is(err, xerrors.ErrNotFound) {
		return r.snapshot(RootDomain)
	}
	return d, err
}

func checkRecordLevel(level Level) error {
	if level == LevelNotSet || !level.Valid() {
		return xerrors.InvalidArg("cannot log at this level").WithDetail("level=%s", level)
	}
	return nil
}

// dispatch 以快照 d 的门限与输出端处理一条记录，recDomain 写入 Record.Domain。
func (r *Registry) dispatch(d *domain, recDomain string, level Level, format string, args []any) error {
	if !d.level.Admits(level) {
		if r.observer != nil {
			r.observer.RecordSuppressed(d.name, level.String())
		}
		return nil
	}

	rec := Record{
		Level:     level,
		ProcessID: r.pid,
		Created:   r.now(),
		Domain:    recDomain,
		Message:   fmt.Sprintf(format, args...),
	}

	var errs []error
	for _, h := range d.handlers {
		if herr := handleSafely(h, rec); herr != nil {
			errs = append(errs, herr)
			if r.observer != nil {
				r.observer.HandlerFailed(d.name)
			}
		}
	}
	if r.observer != nil {
		r.observer.RecordDispatched(d.name, level.String())
	}
	return errors.Join(errs...)
}

// handleSafely 把输出端的 panic 转成写入错误，日志不能让宿主进程崩溃。
func handleSafely(h Handler, rec Record) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = xerrors.WriteFailed("log handler panicked", fmt.Errorf("%v", p)).WithContext("domain", rec.Domain)
		}
	}()
	return h.Handle(rec)
}

// Enabled 判断 level 级别的记录能否通过 name 域的门限。
func (r *Registry) Enabled(level Level, name string) bool {
	d, err := r.snapshot(name)
	if err != nil {
		return false
	}
	return d.level.Admits(level)
}

// Logger 返回绑定到 name 域的调用点句柄。
func (r *Registry) Logger(name string) DomainLogger {
	return DomainLogger{reg: r, name: resolveName(name)}
}

// DomainLogger 把域名绑定到调用点，相当于每个组件自己的日志入口。
// 零值以及 For 返回的值在每次调用时使用当前的默认注册表。
// Error/Warning/Info/Debug 在域未注册时改由顶层域处理；Log 则如实返回 NotFound。
type DomainLogger struct {
	reg  *Registry
	name string
}

// For 返回绑定到默认注册表 name 域的句柄，通常在包级变量中使用：
//
//	var log = logging.For("routing")
func For(name string) DomainLogger {
	return DomainLogger{name: resolveName(name)}
}

func (l DomainLogger) registry() *Registry {
	if l.reg != nil {
		return l.reg
	}
	return Default()
}

// Name 返回绑定的域名。
func (l DomainLogger) Name() string {
	return resolveName(l.name)
}

// Log 以指定级别记录，返回分发结果。
func (l DomainLogger) Log(level Level, format string, args ...any) error {
	return l.registry().Log(level, l.name, format, args...)
}

// Enabled 判断 level 级别的记录能否通过该域的门限，域未注册时看顶层域。
func (l DomainLogger) Enabled(level Level) bool {
	d, err := l.registry().snapshotOrRoot(l.name)
	return err == nil && d.level.Admits(level)
}

func (l DomainLogger) Error(format string, args ...any) {
	_ = l.registry().logOrRoot(LevelError, l.name, format, args)
}

func (l DomainLogger) Warning(format string, args ...any) {
	_ = l.registry().logOrRoot(LevelWarning, l.name, format, args)
}

func (l DomainLogger) Info(format string, args ...any) {
	_ = l.registry().logOrRoot(LevelInfo, l.name, format, args)
}

func (l DomainLogger) Debug(format string, args ...any) {
	_ = l.registry().logOrRoot(LevelDebug, l.name, format, args)
}

var (
	defaultMu       sync.Mutex
	defaultRegistry *Registry
)

// Default 返回进程级默认注册表。首次调用时创建，并挂上一个写 stderr 的输出端。
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultRegistry == nil {
		defaultRegistry = NewRegistry()
		_ = defaultRegistry.RegisterHandler(NewStreamHandler(os.Stderr, LevelNotSet))
	}
	return defaultRegistry
}

// SetDefault 替换默认注册表并返回原来的注册表（可能为 nil）。原注册表不会被关闭。
func SetDefault(r *Registry) *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	prev := defaultRegistry
	defaultRegistry = r
	return prev
}

// Error 在默认注册表的顶层域记录错误。
func Error(format string, args ...any) {
	_ = Default().Log(LevelError, RootDomain, format, args...)
}

// Warning 在默认注册表的顶层域记录警告。
func Warning(format string, args ...any) {
	_ = Default().Log(LevelWarning, RootDomain, format, args...)
}

// Info 在默认注册表的顶层域记录常规信息。
func Info(format string, args ...any) {
	_ = Default().Log(LevelInfo, RootDomain, format, args...)
}

// Debug 在默认注册表的顶层域记录调试信息。
func Debug(format string, args ...any) {
	_ = Default().Log(LevelDebug, RootDomain, format, args...)
}
