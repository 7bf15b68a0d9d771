package logging

import (
	"errors"
	"io"
	"os"
	"slices"
	"sort"
	"sync"
	"time"

	"github.com/windofthesky/mysql-router/xerrors"
)

// RootDomain 顶层域的名称。空域名解析到它；它在注册表创建时注册且不可注销。
const RootDomain = "main"

// Observer 接收分发过程中的计数事件，通常由 metrics.Metrics 实现。
// 回调必须是并发安全的。DomainsChanged 在注册表锁内调用，保证计数按修改顺序到达，
// 实现中不得回调注册表。
type Observer interface {
	RecordDispatched(domain, level string)
	RecordSuppressed(domain, level string)
	HandlerFailed(domain string)
	DomainsChanged(count int)
}

// domain 是某个域在某一时刻的不可变快照，修改时整体替换（写时复制）。
// 分发过程拿到的快照中级别与输出端列表总是同一版本。
type domain struct {
	name     string
	level    Level
	handlers []Handler
}

func (d *domain) with(level Level, handlers []Handler) *domain {
	return &domain{name: d.name, level: level, handlers: handlers}
}

// DomainInfo 用于对外展示域的当前状态。
type DomainInfo struct {
	Name     string `json:"name"`
	Level    Level  `json:"level"`
	Handlers int    `json:"handlers"`
}

// Option 配置 Registry。
type Option func(*Registry)

// WithDefaultLevel 设置新注册域的初始级别，默认为 DefaultLevel。
func WithDefaultLevel(level Level) Option {
	return func(r *Registry) {
		if level.Valid() {
			r.defaultLevel = level
		}
	}
}

// WithObserver 设置分发计数回调。
func WithObserver(o Observer) Option {
	return func(r *Registry) {
		r.observer = o
	}
}

// WithClock 替换记录时间戳的来源。
func WithClock(now func() time.Time) Option {
	return func(r *Registry) {
		if now != nil {
			r.now = now
		}
	}
}

// WithProcessID 替换记录中的进程号。
func WithProcessID(pid int) Option {
	return func(r *Registry) {
		r.pid = pid
	}
}

// Registry 维护域名到（有效级别，输出端列表）的映射，并负责把记录分发给输出端。
//
// 所有方法都可以在任意 goroutine 中并发调用。注册表的锁只在查表或修改列表时持有，
// 从不跨越对输出端的调用。Close 之后的任何操作都返回 Closed 错误。
type Registry struct {
	mu           sync.RWMutex
	domains      map[string]*domain
	handlers     []Handler
	closed       bool
	defaultLevel Level

	observer Observer
	now      func() time.Time
	pid      int
}

// NewRegistry 初始化注册表并注册顶层域。
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		domains:      make(map[string]*domain),
		defaultLevel: DefaultLevel,
		now:          time.Now,
		pid:          os.Getpid(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.domains[RootDomain] = &domain{name: RootDomain, level: r.defaultLevel}
	r.observeDomains(len(r.domains))
	return r
}

func resolveName(name string) string {
	if name == "" {
		return RootDomain
	}
	return name
}

// RegisterDomain 以默认级别、空输出端列表创建域；域已存在时不做任何修改。
func (r *Registry) RegisterDomain(name string) error {
	name = resolveName(name)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errClosed()
	}
	if _, ok := r.domains[name]; !ok {
		r.domains[name] = &domain{name: name, level: r.defaultLevel}
		r.observeDomains(len(r.domains))
	}
	r.mu.Unlock()
	return nil
}

// UnregisterDomain 删除域。已经拿到快照的分发会正常完成。
// 顶层域不可删除；未知域直接忽略。
func (r *Registry) UnregisterDomain(name string) error {
	name = resolveName(name)
	if name == RootDomain {
		return xerrors.InvalidArg("root log domain cannot be unregistered")
	}

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errClosed()
	}
	if _, ok := r.domains[name]; ok {
		delete(r.domains, name)
		r.observeDomains(len(r.domains))
	}
	r.mu.Unlock()
	return nil
}

// SetLogLevel 把当前所有域的级别改为 level。
// 这是一次批量修改，之后注册的域仍然从默认级别开始。
func (r *Registry) SetLogLevel(level Level) error {
	if !level.Valid() {
		return errInvalidLevel(level)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	for name, d := range r.domains {
		r.domains[name] = d.with(level, d.handlers)
	}
	return nil
}

// SetDomainLogLevel 修改单个域的级别。域不存在时先以默认设置创建再修改。
func (r *Registry) SetDomainLogLevel(name string, level Level) error {
	if !level.Valid() {
		return errInvalidLevel(level)
	}
	name = resolveName(name)

	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return errClosed()
	}
	d, ok := r.domains[name]
	if !ok {
		d = &domain{name: name}
	}
	r.domains[name] = d.with(level, d.handlers)
	if !ok {
		r.observeDomains(len(r.domains))
	}
	r.mu.Unlock()
	return nil
}

// DomainLevel 返回域的当前级别。
func (r *Registry) DomainLevel(name string) (Level, error) {
	d, err := r.snapshot(name)
	if err != nil {
		return LevelNotSet, err
	}
	return d.level, nil
}

// HasDomain 判断域是否已注册。
func (r *Registry) HasDomain(name string) bool {
	_, err := r.snapshot(name)
	return err == nil
}

// Domains 返回按名称排序的所有域的状态快照。
func (r *Registry) Domains() []DomainInfo {
	r.mu.RLock()
	out := make([]DomainInfo, 0, len(r.domains))
	for _, d := range r.domains {
		out = append(out, DomainInfo{Name: d.name, Level: d.level, Handlers: len(d.handlers)})
	}
	r.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// RegisterHandler 把 h 加入已注册集合，并挂到调用时刻存在的每一个域上。
// 之后新注册的域不会自动获得 h；再次调用会把 h 补挂到这些域上，已挂载的域不会重复。
func (r *Registry) RegisterHandler(h Handler) error {
	if h == nil {
		return xerrors.InvalidArg("log handler is nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	if !slices.Contains(r.handlers, h) {
		r.handlers = append(r.handlers, h)
	}
	r.attach([]Handler{h})
	return nil
}

// AttachHandlers 把已注册集合中的输出端按注册顺序补挂到当前所有域上，
// 等价于对每个已注册的输出端再调用一次 RegisterHandler。
// 运行期间新建域（配置热更新、管理接口）之后调用，使新域也有输出。
func (r *Registry) AttachHandlers() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	r.attach(r.handlers)
	return nil
}

// attach 把 hs 中尚未挂载的输出端追加到每个域，调用方持有写锁。
func (r *Registry) attach(hs []Handler) {
	for name, d := range r.domains {
		var missing []Handler
		for _, h := range hs {
			if !slices.Contains(d.handlers, h) {
				missing = append(missing, h)
			}
		}
		if len(missing) == 0 {
			continue
		}
		handlers := make([]Handler, len(d.handlers), len(d.handlers)+len(missing))
		copy(handlers, d.handlers)
		r.domains[name] = d.with(d.level, append(handlers, missing...))
	}
}

// UnregisterHandler 从所有域和已注册集合中移除 h，h 不存在时什么也不做。
// 移除后 h 交还调用方，注册表不会关闭它。
func (r *Registry) UnregisterHandler(h Handler) error {
	if h == nil {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.closed {
		return errClosed()
	}
	r.handlers = slices.DeleteFunc(slices.Clone(r.handlers), func(x Handler) bool { return x == h })
	for name, d := range r.domains {
		if !slices.Contains(d.handlers, h) {
			continue
		}
		handlers := slices.DeleteFunc(slices.Clone(d.handlers), func(x Handler) bool { return x == h })
		r.domains[name] = d.with(d.level, handlers)
	}
	return nil
}

// Handlers 返回已注册输出端的快照，按注册顺序排列。
func (r *Registry) Handlers() []Handler {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return slices.Clone(r.handlers)
}

// Close 销毁注册表：清空所有域，并关闭仍处于注册状态且实现了 io.Closer 的输出端。
// 重复调用返回 nil。
func (r *Registry) Close() error {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil
	}
	r.closed = true
	handlers := r.handlers
	r.handlers = nil
	r.domains = make(map[string]*domain)
	r.observeDomains(0)
	r.mu.Unlock()

	var errs []error
	for _, h := range handlers {
		if c, ok := h.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// snapshot 在读锁内取出域的当前快照。
func (r *Registry) snapshot(name string) (*domain, error) {
	name = resolveName(name)

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		return nil, errClosed()
	}
	d, ok := r.domains[name]
	if !ok {
		return nil, xerrors.NotFound("log domain is not registered").WithContext("domain", name)
	}
	return d, nil
}

// observeDomains 在持有写锁（或构造期间）时调用。
func (r *Registry) observeDomains(n int) {
	if r.observer != nil {
		r.observer.DomainsChanged(n)
	}
}

func errClosed() error {
	return xerrors.Closed("log registry is closed")
}

func errInvalidLevel(level Level) error {
	return xerrors.InvalidArg("invalid log level").WithDetail("level=%s", level)
}
