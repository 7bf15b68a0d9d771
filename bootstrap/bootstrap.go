// Package bootstrap 把配置装配成可用的日志注册表：域、级别、输出端以及指标。
package bootstrap

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"

	"github.com/windofthesky/mysql-router/config"
	"github.com/windofthesky/mysql-router/logging"
	"github.com/windofthesky/mysql-router/metrics"
	"github.com/windofthesky/mysql-router/xerrors"
)

// HostDomains 是宿主进程自身组件使用的域，初始化时总会注册。
var HostDomains = []string{"app", "admin", "config", "http"}

// Bootstrapper 处理日志基础设施的初始化与销毁
type Bootstrapper struct {
	ServiceName string
	Version     string
	Watch       bool // Initialize 之后是否监听配置文件变化

	Config   *config.Config
	Registry *logging.Registry
	Metrics  *metrics.Metrics

	mu          sync.Mutex
	loader      *config.Loader
	handlers    map[string]logging.Handler // 配置中的输出端名 -> 实例
	prevDefault *logging.Registry
	installed   bool
}

// New 创建一个新的引导器实例
func New(serviceName, version string) *Bootstrapper {
	return &Bootstrapper{
		ServiceName: serviceName,
		Version:     version,
		Watch:       true,
		loader:      config.NewLoader(),
	}
}

// Initialize 加载 path 指定的配置文件并完成装配。
// 配置变化时重新应用域级别与输出端级别；输出端的增删需要重启。
func (b *Bootstrapper) Initialize(path string) error {
	conf, err := b.loader.Load(path)
	if err != nil {
		return err
	}
	if err := b.Apply(conf); err != nil {
		return err
	}
	config.PrintWithMask(conf)

	b.loader.OnReload(b.reload)
	if b.Watch {
		b.loader.Watch()
	}
	return nil
}

// Apply 按 conf 构建注册表并将其设为进程默认注册表。之前由 Apply 建立的注册表会被关闭。
func (b *Bootstrapper) Apply(conf *config.Config) error {
	levels, err := conf.Log.Levels()
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid log configuration")
	}

	var m *metrics.Metrics
	opts := []logging.Option{logging.WithDefaultLevel(levels.Default)}
	if conf.Metrics.Enabled {
		m = metrics.NewMetrics()
		m.RegisterBuildInfo(b.ServiceName, b.Version)
		opts = append(opts, logging.WithObserver(m))
	}
	reg := logging.NewRegistry(opts...)

	for _, name := range HostDomains {
		if err := reg.RegisterDomain(name); err != nil {
			return err
		}
	}
	if err := ApplyLevels(reg, conf.Log); err != nil {
		_ = reg.Close()
		return err
	}

	handlers := make(map[string]logging.Handler, len(conf.Log.Handlers))
	for _, hc := range conf.Log.Handlers {
		h, err := BuildHandler(hc, levels.Handlers[hc.Name])
		if err == nil {
			err = reg.RegisterHandler(h)
		}
		if err != nil {
			// 已注册的输出端由 Close 统一释放
			return errors.Join(fmt.Errorf("log handler %q: %w", hc.Name, err), reg.Close())
		}
		handlers[hc.Name] = h
	}

	b.mu.Lock()
	old := b.Registry
	b.Config = conf
	b.Registry = reg
	b.Metrics = m
	b.handlers = handlers
	prev := logging.SetDefault(reg)
	if !b.installed {
		b.prevDefault = prev
		b.installed = true
	}
	b.mu.Unlock()

	if old != nil {
		_ = old.Close()
	}

	logging.For("app").Info("log registry initialized: service=%s version=%s handlers=%d", b.ServiceName, b.Version, len(handlers))
	return nil
}

func (b *Bootstrapper) reload(conf *config.Config) {
	b.mu.Lock()
	reg := b.Registry
	handlers := b.handlers
	b.mu.Unlock()
	if reg == nil {
		return
	}

	log := reg.Logger("config")
	if err := ApplyLevels(reg, conf.Log); err != nil {
		log.Error("reapply log levels failed: %v", err)
		return
	}
	// 新配置可能引入新域，把已有输出端补挂上去
	if err := reg.AttachHandlers(); err != nil {
		log.Error("attach log handlers failed: %v", err)
		return
	}
	levels, _ := conf.Log.Levels()
	for name, h := range handlers {
		if lvl, ok := levels.Handlers[name]; ok {
			h.SetLevel(lvl)
		}
	}

	b.mu.Lock()
	b.Config = conf
	b.mu.Unlock()
	log.Info("log levels reloaded")
}

// Loader 返回引导器使用的配置加载器。
func (b *Bootstrapper) Loader() *config.Loader {
	return b.loader
}

// Handler 按配置中的名称查找已构建的输出端。
func (b *Bootstrapper) Handler(name string) (logging.Handler, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	h, ok := b.handlers[name]
	return h, ok
}

// Close 销毁注册表（连同其输出端），并恢复之前的默认注册表。
func (b *Bootstrapper) Close() error {
	b.mu.Lock()
	reg := b.Registry
	b.Registry = nil
	b.handlers = nil
	if b.installed {
		logging.SetDefault(b.prevDefault)
		b.installed = false
	}
	b.mu.Unlock()

	if reg == nil {
		return nil
	}
	return reg.Close()
}

// BuildHandler 根据配置构造输出端。
func BuildHandler(hc config.HandlerConfig, level logging.Level) (logging.Handler, error) {
	switch hc.Type {
	case "stream":
		switch strings.ToLower(hc.Output) {
		case "stdout":
			return logging.NewStreamHandler(os.Stdout, level), nil
		case "stderr", "":
			return logging.NewStreamHandler(os.Stderr, level), nil
		default:
			return nil, xerrors.InvalidArg("stream output must be stdout or stderr").WithContext("output", hc.Output)
		}
	case "file":
		h, err := logging.NewFileHandler(hc.Output, level)
		if err != nil {
			return nil, err
		}
		return h, nil
	default:
		return nil, xerrors.InvalidArg("unknown log handler type").WithContext("type", hc.Type)
	}
}

// ApplyLevels 先应用全局级别，再逐个应用域级别，域级别优先。
// 配置中出现但尚未注册的域会被创建。
func ApplyLevels(r *logging.Registry, lc config.LogConfig) error {
	levels, err := lc.Levels()
	if err != nil {
		return xerrors.Wrap(err, xerrors.ErrInvalidArg, "invalid log configuration")
	}
	if levels.HasGlobal {
		if err := r.SetLogLevel(levels.Global); err != nil {
			return err
		}
	}
	for name, lvl := range levels.Domains {
		if err := r.SetDomainLogLevel(name, lvl); err != nil {
			return err
		}
	}
	return nil
}
