package app

import (
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/windofthesky/mysql-router/admin"
	"github.com/windofthesky/mysql-router/bootstrap"
	"github.com/windofthesky/mysql-router/middleware"
	"github.com/windofthesky/mysql-router/response"
	"github.com/windofthesky/mysql-router/server"
)

// Builder 把配置、日志注册表、管理接口与指标组装成一个 App.
type Builder struct {
	serviceName string
	version     string
	configPath  string
	watch       bool
	registerGin []func(*gin.Engine, *bootstrap.Bootstrapper)
	appOpts     []Option
}

// NewBuilder 创建一个新的应用构建器，默认配置路径为 ./configs/<service>/config.toml.
func NewBuilder(serviceName string) *Builder {
	return &Builder{
		serviceName: serviceName,
		configPath:  fmt.Sprintf("./configs/%s/config.toml", serviceName),
		watch:       true,
	}
}

// ParseFlags 从命令行读取 -conf 覆盖配置路径.
func (b *Builder) ParseFlags(args []string) *Builder {
	fs := flag.NewFlagSet(b.serviceName, flag.ContinueOnError)
	path := fs.String("conf", b.configPath, "path to config file")
	if err := fs.Parse(args); err == nil {
		b.configPath = *path
	}
	return b
}

// WithConfigPath 设置配置文件路径.
func (b *Builder) WithConfigPath(path string) *Builder {
	b.configPath = path
	return b
}

// WithVersion 设置构建版本，写入 build_info 指标.
func (b *Builder) WithVersion(version string) *Builder {
	b.version = version
	return b
}

// WithWatch 控制是否监听配置文件变化.
func (b *Builder) WithWatch(watch bool) *Builder {
	b.watch = watch
	return b
}

// WithGin 注册额外的管理路由.
func (b *Builder) WithGin(register func(*gin.Engine, *bootstrap.Bootstrapper)) *Builder {
	if register != nil {
		b.registerGin = append(b.registerGin, register)
	}
	return b
}

// WithOption 追加 App 选项.
func (b *Builder) WithOption(opts ...Option) *Builder {
	b.appOpts = append(b.appOpts, opts...)
	return b
}

// Build 构建并组装完整的 App 实例.
// 日志注册表的销毁被注册为第一个清理函数，因此在所有其他清理之后执行。
func (b *Builder) Build() (*App, *bootstrap.Bootstrapper, error) {
	boot := bootstrap.New(b.serviceName, b.version)
	boot.Watch = b.watch
	if err := boot.Initialize(b.configPath); err != nil {
		return nil, nil, fmt.Errorf("bootstrap %s: %w", b.serviceName, err)
	}

	opts := []Option{WithCleanup(func() {
		if err := boot.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "close log registry: %v\n", err)
		}
	})}

	conf := boot.Config
	if conf.Metrics.Enabled && conf.Metrics.Addr != "" && boot.Metrics != nil {
		appLog := boot.Registry.Logger("app")
		stop := boot.Metrics.Expose(conf.Metrics.Addr, func(err error) {
			appLog.Error("metrics server failed: addr=%s err=%v", conf.Metrics.Addr, err)
		})
		opts = append(opts, WithCleanup(stop))
	}
	if conf.Admin.Enabled {
		engine := b.adminEngine(boot)
		srv := server.NewGinServer(engine, conf.Admin.Addr, boot.Registry.Logger("admin"), server.GinOptions{
			ReadHeaderTimeout: conf.Admin.ReadHeaderTimeout,
			ShutdownTimeout:   conf.Admin.ShutdownTimeout,
		})
		opts = append(opts, WithServer(srv))
	}
	opts = append(opts, WithShutdownTimeout(conf.Admin.ShutdownTimeout))
	opts = append(opts, b.appOpts...)

	return New(b.serviceName, boot.Registry.Logger("app"), opts...), boot, nil
}

func (b *Builder) adminEngine(boot *bootstrap.Bootstrapper) *gin.Engine {
	conf := boot.Config
	httpLog := boot.Registry.Logger("http")

	engine := server.NewDefaultGinEngine(
		middleware.Recovery(httpLog),
		middleware.RequestID(),
		middleware.AccessLog(httpLog),
		middleware.HTTPMetricsMiddlewareWithOptions(boot.Metrics, middleware.MetricsOptions{
			SlowThreshold: conf.Admin.SlowThreshold,
			SkipPaths:     []string{conf.Metrics.Path},
		}),
		middleware.MaxBodyBytes(conf.Admin.MaxBodyBytes),
	)

	engine.GET("/sys/health", func(c *gin.Context) {
		response.SuccessWithRawData(c, gin.H{
			"status":    "UP",
			"service":   b.serviceName,
			"version":   b.version,
			"timestamp": time.Now().Unix(),
		})
	})
	if conf.Metrics.Enabled && conf.Metrics.Addr == "" && boot.Metrics != nil {
		engine.GET(conf.Metrics.Path, gin.WrapH(boot.Metrics.Handler()))
	}

	secured := engine.Group("/", middleware.TokenAuth(conf.Admin.Token))
	admin.Register(secured, boot.Registry)

	for _, register := range b.registerGin {
		register(engine, boot)
	}
	engine.NoRoute(func(c *gin.Context) {
		response.ErrorWithStatus(c, http.StatusNotFound, "not found", c.Request.URL.Path)
	})
	return engine
}
