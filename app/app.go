// Package app 提供了应用程序的构建和管理功能，包括服务的启动、停止和资源清理。
package app

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/sourcegraph/conc"

	"github.com/windofthesky/mysql-router/logging"
)

// App 是应用程序的核心容器：启动服务器，等待退出信号，然后优雅地关闭所有资源。
type App struct {
	name string
	log  logging.DomainLogger
	opts options
}

// New 创建一个新的应用程序实例。
func New(name string, log logging.DomainLogger, opts ...Option) *App {
	o := options{shutdownTimeout: defaultShutdownTimeout}
	for _, opt := range opts {
		opt(&o)
	}
	return &App{name: name, log: log, opts: o}
}

// Run 启动应用程序并阻塞到收到 SIGINT/SIGTERM。
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	return a.RunContext(ctx)
}

// RunContext 启动生命周期钩子与所有服务器，ctx 结束或任一服务器失败时开始关闭。
// 关闭顺序：服务器 → 生命周期钩子（逆序）→ 清理函数（逆序）。
func (a *App) RunContext(ctx context.Context) error {
	a.log.Info("application starting: name=%s pid=%d", a.name, os.Getpid())

	lc := a.opts.lifecycle
	if lc == nil {
		lc = NewLifecycle(a.log)
	}
	if err := lc.Start(ctx); err != nil {
		a.runCleanups()
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	var wg conc.WaitGroup
	serveErrs := make(chan error, len(a.opts.servers))
	for _, srv := range a.opts.servers {
		wg.Go(func() {
			if err := srv.Start(runCtx); err != nil {
				a.log.Error("server failed: %v", err)
				serveErrs <- err
				cancel()
			}
		})
	}

	<-runCtx.Done()
	a.log.Info("shutting down application: name=%s", a.name)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), a.opts.shutdownTimeout)
	defer shutdownCancel()

	var errs []error
	for _, srv := range a.opts.servers {
		if err := srv.Stop(shutdownCtx); err != nil {
			a.log.Error("server failed to stop: %v", err)
			errs = append(errs, err)
		}
	}
	wg.Wait()
	close(serveErrs)
	for err := range serveErrs {
		errs = append(errs, err)
	}

	if err := lc.Stop(shutdownCtx); err != nil {
		errs = append(errs, err)
	}
	a.runCleanups()

	if err := errors.Join(errs...); err != nil {
		return err
	}
	a.log.Info("application shut down gracefully")
	return nil
}

func (a *App) runCleanups() {
	for i := len(a.opts.cleanups) - 1; i >= 0; i-- {
		a.opts.cleanups[i]()
	}
}
