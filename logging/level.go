package logging

import (
	"strconv"
	"strings"

	"github.com/windofthesky/mysql-router/xerrors"
)

// Level 日志级别，数值越小越严重。
// 比较时按数值进行：记录级别不大于门限级别即可通过。
type Level int32

const (
	// LevelFatal 致命错误，通常记录后进程随即退出。
	LevelFatal Level = iota
	// LevelError 功能异常，需要人工介入，但进程继续运行。
	LevelError
	// LevelWarning 潜在问题，暂不影响运行。
	LevelWarning
	// LevelInfo 常规运行信息。
	LevelInfo
	// LevelDebug 调试细节。
	LevelDebug
	// LevelNotSet 未设置。作为门限时不做任何过滤，永远比其他级别“宽松”。
	LevelNotSet
)

const (
	// DefaultLevel 未显式配置时域所使用的级别。
	DefaultLevel = LevelWarning
	// DefaultLevelName DefaultLevel 在配置文件中的名称。
	DefaultLevelName = "warning"
)

var levelNames = [...]string{
	LevelFatal:   "FATAL",
	LevelError:   "ERROR",
	LevelWarning: "WARNING",
	LevelInfo:    "INFO",
	LevelDebug:   "DEBUG",
	LevelNotSet:  "NOTSET",
}

// Valid 判断级别是否为已定义的取值。
func (l Level) Valid() bool {
	return l >= LevelFatal && l <= LevelNotSet
}

// Admits 以 l 作为门限，判断 r 级别的记录能否通过。
func (l Level) Admits(r Level) bool {
	return r <= l
}

func (l Level) String() string {
	if l.Valid() {
		return levelNames[l]
	}
	return "LEVEL(" + strconv.Itoa(int(l)) + ")"
}

// MarshalText 使级别在 TOML/JSON 中以名称出现。
func (l Level) MarshalText() ([]byte, error) {
	if !l.Valid() {
		return nil, xerrors.InvalidArg("invalid log level").WithDetail("level=%d", int(l))
	}
	return []byte(strings.ToLower(l.String())), nil
}

// UnmarshalText 见 ParseLevel。
func (l *Level) UnmarshalText(b []byte) error {
	v, err := ParseLevel(string(b))
	if err != nil {
		return err
	}
	*l = v
	return nil
}

// ParseLevel 将名称解析为级别，大小写不敏感，额外接受 "warn"。
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "fatal":
		return LevelFatal, nil
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "info":
		return LevelInfo, nil
	case "debug":
		return LevelDebug, nil
	case "notset":
		return LevelNotSet, nil
	}
	return LevelNotSet, xerrors.InvalidArg("unknown log level").WithDetail("level=%q", s)
}
