package app

import (
	"time"

	"github.com/windofthesky/mysql-router/server"
)

const defaultShutdownTimeout = 10 * time.Second

// Option 配置应用程序选项。
type Option func(*options)

type options struct {
	servers         []server.Server
	cleanups        []func() // 关闭时逆序执行，最后执行的通常是日志注册表的销毁
	lifecycle       *Lifecycle
	shutdownTimeout time.Duration
}

// WithServer 添加由应用程序启动和关闭的服务器。
func WithServer(servers ...server.Server) Option {
	return func(o *options) {
		o.servers = append(o.servers, servers...)
	}
}

// WithCleanup 添加一个关闭时执行的清理函数。
func WithCleanup(cleanup func()) Option {
	return func(o *options) {
		if cleanup != nil {
			o.cleanups = append(o.cleanups, cleanup)
		}
	}
}

// WithLifecycle 使用外部构造的生命周期管理器。
func WithLifecycle(lc *Lifecycle) Option {
	return func(o *options) {
		o.lifecycle = lc
	}
}

// WithShutdownTimeout 设置关闭阶段的总超时。
func WithShutdownTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.shutdownTimeout = d
		}
	}
}
