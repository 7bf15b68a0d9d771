package adapter

import (
	"fmt"
	"os"

	"google.golang.org/grpc/grpclog"

	"github.com/windofthesky/mysql-router/logging"
)

// GRPC 实现 grpclog.LoggerV2。Fatal 系列先以 FATAL 级别记录，再调用 Exit 结束进程。
type GRPC struct {
	log  logging.DomainLogger
	Exit func(code int)
}

var _ grpclog.LoggerV2 = (*GRPC)(nil)

// NewGRPC 创建写入 log 对应域的 gRPC 日志器。
func NewGRPC(log logging.DomainLogger) *GRPC {
	return &GRPC{log: log, Exit: os.Exit}
}

// InstallGRPC 注册 domain 域并把它设为 gRPC 的全局日志器。
// 必须在任何 gRPC 调用之前执行。
func InstallGRPC(r *logging.Registry, domain string) (*GRPC, error) {
	if err := r.RegisterDomain(domain); err != nil {
		return nil, err
	}
	g := NewGRPC(r.Logger(domain))
	grpclog.SetLoggerV2(g)
	return g, nil
}

func (g *GRPC) Info(args ...any)                 { g.log.Info("%s", fmt.Sprint(args...)) }
func (g *GRPC) Infoln(args ...any)               { g.log.Info("%s", sprintln(args)) }
func (g *GRPC) Infof(format string, args ...any) { g.log.Info(format, args...) }

func (g *GRPC) Warning(args ...any)                 { g.log.Warning("%s", fmt.Sprint(args...)) }
func (g *GRPC) Warningln(args ...any)               { g.log.Warning("%s", sprintln(args)) }
func (g *GRPC) Warningf(format string, args ...any) { g.log.Warning(format, args...) }

func (g *GRPC) Error(args ...any)                 { g.log.Error("%s", fmt.Sprint(args...)) }
func (g *GRPC) Errorln(args ...any)               { g.log.Error("%s", sprintln(args)) }
func (g *GRPC) Errorf(format string, args ...any) { g.log.Error(format, args...) }

func (g *GRPC) Fatal(args ...any)                 { g.fatal("%s", fmt.Sprint(args...)) }
func (g *GRPC) Fatalln(args ...any)               { g.fatal("%s", sprintln(args)) }
func (g *GRPC) Fatalf(format string, args ...any) { g.fatal(format, args...) }

func (g *GRPC) fatal(format string, args ...any) {
	_ = g.log.Log(logging.LevelFatal, format, args...)
	g.Exit(1)
}

// V 报告 gRPC 的冗长级别 l 是否输出：0 跟随 INFO 门限，更高的级别需要域开到 DEBUG。
func (g *GRPC) V(l int) bool {
	if l <= 0 {
		return g.log.Enabled(logging.LevelInfo)
	}
	return g.log.Enabled(logging.LevelDebug)
}

// sprintln 与 fmt.Sprintln 相同但不带结尾换行，记录本身会补上换行。
func sprintln(args []any) string {
	s := fmt.Sprintln(args...)
	return s[:len(s)-1]
}
