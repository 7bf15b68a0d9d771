package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/windofthesky/mysql-router/logging"
)

// Hook 定义了生命周期钩子，包含启动和停止逻辑
type Hook struct {
	Name    string
	OnStart func(ctx context.Context) error
	OnStop  func(ctx context.Context) error
}

// Lifecycle 管理应用程序中多个组件的生命周期
type Lifecycle struct {
	log     logging.DomainLogger
	mu      sync.Mutex
	hooks   []Hook
	started int // 已成功启动的钩子数量
}

// NewLifecycle 创建一个新的生命周期管理器
func NewLifecycle(log logging.DomainLogger) *Lifecycle {
	return &Lifecycle{log: log}
}

// Append 添加一个生命周期钩子
func (l *Lifecycle) Append(hook Hook) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.hooks = append(l.hooks, hook)
}

// Start 按顺序启动所有组件。某个组件启动失败时，已启动的组件按相反顺序停止。
func (l *Lifecycle) Start(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]Hook(nil), l.hooks...)
	l.mu.Unlock()

	for i, hook := range hooks {
		if hook.OnStart != nil {
			l.log.Info("lifecycle: starting component %s", hook.Name)
			if err := hook.OnStart(ctx); err != nil {
				l.log.Error("lifecycle: failed to start component %s: %v", hook.Name, err)
				l.setStarted(i)
				return errors.Join(fmt.Errorf("start %s: %w", hook.Name, err), l.Stop(ctx))
			}
		}
		l.setStarted(i + 1)
	}
	return nil
}

func (l *Lifecycle) setStarted(n int) {
	l.mu.Lock()
	l.started = n
	l.mu.Unlock()
}

// Stop 以相反的顺序停止已启动的组件，收集全部错误。
func (l *Lifecycle) Stop(ctx context.Context) error {
	l.mu.Lock()
	hooks := append([]Hook(nil), l.hooks[:l.started]...)
	l.started = 0
	l.mu.Unlock()

	var errs []error
	for i := len(hooks) - 1; i >= 0; i-- {
		hook := hooks[i]
		if hook.OnStop == nil {
			continue
		}
		l.log.Info("lifecycle: stopping component %s", hook.Name)
		if err := hook.OnStop(ctx); err != nil {
			l.log.Error("lifecycle: failed to stop component %s: %v", hook.Name, err)
			errs = append(errs, fmt.Errorf("stop %s: %w", hook.Name, err))
		}
	}
	return errors.Join(errs...)
}
