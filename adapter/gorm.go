// Package adapter 把第三方库的日志接口接到日志域上，使 gorm、gRPC、kafka-go 的输出
// 与宿主程序共用同一套级别与输出端。
package adapter

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm/logger"

	"github.com/windofthesky/mysql-router/logging"
)

// Gorm 实现 gorm.io/gorm/logger.Interface。
// 慢查询记为 Warning，失败的查询记为 Error，其余 SQL 记为 Debug。
type Gorm struct {
	log           logging.DomainLogger
	mode          logger.LogLevel
	SlowThreshold time.Duration
}

// NewGorm 创建写入 log 对应域的 gorm 日志器。
func NewGorm(log logging.DomainLogger, slowThreshold time.Duration) *Gorm {
	return &Gorm{log: log, mode: logger.Info, SlowThreshold: slowThreshold}
}

// LogMode 返回一个使用 gorm 级别 level 的副本，在域门限之外再过滤一次。
func (g *Gorm) LogMode(level logger.LogLevel) logger.Interface {
	cp := *g
	cp.mode = level
	return &cp
}

func (g *Gorm) Info(_ context.Context, msg string, data ...any) {
	if g.mode >= logger.Info {
		g.log.Info(msg, data...)
	}
}

func (g *Gorm) Warn(_ context.Context, msg string, data ...any) {
	if g.mode >= logger.Warn {
		g.log.Warning(msg, data...)
	}
}

func (g *Gorm) Error(_ context.Context, msg string, data ...any) {
	if g.mode >= logger.Error {
		g.log.Error(msg, data...)
	}
}

// Trace 记录一条 SQL 的耗时、影响行数与错误。未找到记录不视为错误。
func (g *Gorm) Trace(_ context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.mode <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)

	switch {
	case err != nil && !errors.Is(err, logger.ErrRecordNotFound) && g.mode >= logger.Error:
		sql, rows := fc()
		g.log.Error("gorm trace error: %v elapsed=%s%s sql=%s", err, elapsed, rowsField(rows), sql)
	case g.SlowThreshold != 0 && elapsed > g.SlowThreshold && g.mode >= logger.Warn:
		sql, rows := fc()
		g.log.Warning("gorm slow query: elapsed=%s threshold=%s%s sql=%s", elapsed, g.SlowThreshold, rowsField(rows), sql)
	case g.mode >= logger.Info && g.log.Enabled(logging.LevelDebug):
		sql, rows := fc()
		g.log.Debug("gorm trace: elapsed=%s%s sql=%s", elapsed, rowsField(rows), sql)
	}
}

func rowsField(rows int64) string {
	if rows == -1 {
		return ""
	}
	return fmt.Sprintf(" rows=%d", rows)
}
