// Package config 提供日志设施的配置加载、校验与热更新能力。
// 配置文件为 TOML，任意键都可以用 APP_ 前缀的环境变量覆盖，例如 APP_LOG_LEVEL=debug。
package config

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/go-playground/validator/v10"
	"github.com/spf13/viper"

	"github.com/windofthesky/mysql-router/logging"
)

var log = logging.For("config")

// Config 全局顶级配置结构.
type Config struct {
	Version string        `mapstructure:"version" toml:"version"`
	Log     LogConfig     `mapstructure:"log"     toml:"log"`
	Admin   AdminConfig   `mapstructure:"admin"   toml:"admin"`
	Metrics MetricsConfig `mapstructure:"metrics" toml:"metrics"`
}

// LogConfig 定义域级别与输出端。
type LogConfig struct {
	Level        string            `mapstructure:"level"         toml:"level"         validate:"omitempty,loglevel"`                           // 全局级别，非空时覆盖所有域。
	DefaultLevel string            `mapstructure:"default_level" toml:"default_level" validate:"omitempty,loglevel"`                           // 新注册域的初始级别。
	Domains      map[string]string `mapstructure:"domains"       toml:"domains"       validate:"omitempty,dive,keys,required,endkeys,loglevel"` // 域名 -> 级别。
	Handlers     []HandlerConfig   `mapstructure:"handlers"      toml:"handlers"      validate:"dive"`
}

// HandlerConfig 描述一个输出端。
// Type 为 stream 时 Output 取 stdout 或 stderr；为 file 时 Output 是文件路径。
type HandlerConfig struct {
	Name   string `mapstructure:"name"   toml:"name"   validate:"required"`
	Type   string `mapstructure:"type"   toml:"type"   validate:"required,oneof=stream file"`
	Output string `mapstructure:"output" toml:"output" validate:"required"`
	Level  string `mapstructure:"level"  toml:"level"  validate:"omitempty,loglevel"`
}

// AdminConfig 运行时管理接口配置.
type AdminConfig struct {
	Enabled           bool          `mapstructure:"enabled"             toml:"enabled"`
	Addr              string        `mapstructure:"addr"                toml:"addr"                validate:"required_if=Enabled true"`
	Token             string        `mapstructure:"token"               toml:"token"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" toml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout"    toml:"shutdown_timeout"`
	SlowThreshold     time.Duration `mapstructure:"slow_threshold"      toml:"slow_threshold"`
	MaxBodyBytes      int64         `mapstructure:"max_body_bytes"      toml:"max_body_bytes"`
}

// MetricsConfig 普罗米修斯监控指标暴露配置.
// Addr 为空时指标挂在管理接口的 Path 上，否则在 Addr 上单独监听。
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" toml:"enabled"`
	Path    string `mapstructure:"path"    toml:"path"`
	Addr    string `mapstructure:"addr"    toml:"addr"`
}

// LevelSet 是 LogConfig 中所有级别字符串解析后的结果。
type LevelSet struct {
	Global    logging.Level // HasGlobal 为 false 时无意义
	HasGlobal bool
	Default   logging.Level
	Domains   map[string]logging.Level
	Handlers  map[string]logging.Level
}

// Levels 解析并校验所有级别字符串。未配置的输出端级别为 LevelNotSet。
func (c LogConfig) Levels() (LevelSet, error) {
	set := LevelSet{
		Default:  logging.DefaultLevel,
		Domains:  make(map[string]logging.Level, len(c.Domains)),
		Handlers: make(map[string]logging.Level, len(c.Handlers)),
	}

	var err error
	if c.Level != "" {
		if set.Global, err = logging.ParseLevel(c.Level); err != nil {
			return set, fmt.Errorf("log.level: %w", err)
		}
		set.HasGlobal = true
	}
	if c.DefaultLevel != "" {
		if set.Default, err = logging.ParseLevel(c.DefaultLevel); err != nil {
			return set, fmt.Errorf("log.default_level: %w", err)
		}
	}
	for name, s := range c.Domains {
		lvl, perr := logging.ParseLevel(s)
		if perr != nil {
			return set, fmt.Errorf("log.domains.%s: %w", name, perr)
		}
		set.Domains[name] = lvl
	}
	for _, h := range c.Handlers {
		lvl := logging.LevelNotSet
		if h.Level != "" {
			if lvl, err = logging.ParseLevel(h.Level); err != nil {
				return set, fmt.Errorf("log.handlers.%s: %w", h.Name, err)
			}
		}
		set.Handlers[h.Name] = lvl
	}
	return set, nil
}

// Loader 负责读取、校验配置并在文件变化时触发回调。
type Loader struct {
	v        *viper.Viper
	validate *validator.Validate
	debounce time.Duration

	mu      sync.Mutex
	current *Config
	hooks   []func(*Config)
}

// NewLoader 创建加载器并注册 loglevel 校验规则。
func NewLoader() *Loader {
	validate := validator.New()
	_ = validate.RegisterValidation("loglevel", func(fl validator.FieldLevel) bool {
		_, err := logging.ParseLevel(fl.Field().String())
		return err == nil
	})

	v := viper.New()
	v.SetConfigType("toml")
	v.SetEnvPrefix("APP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	return &Loader{v: v, validate: validate, debounce: 500 * time.Millisecond}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("version", "")
	v.SetDefault("log.level", "")
	v.SetDefault("log.default_level", logging.DefaultLevelName)
	v.SetDefault("admin.enabled", false)
	v.SetDefault("admin.addr", ":8089")
	v.SetDefault("admin.token", "")
	v.SetDefault("admin.read_header_timeout", 5*time.Second)
	v.SetDefault("admin.shutdown_timeout", 5*time.Second)
	v.SetDefault("admin.slow_threshold", time.Second)
	v.SetDefault("admin.max_body_bytes", int64(1<<20))
	v.SetDefault("metrics.enabled", false)
	v.SetDefault("metrics.path", "/metrics")
	v.SetDefault("metrics.addr", "")
}

// Load 读取 path 指定的配置文件并校验。
func (l *Loader) Load(path string) (*Config, error) {
	l.v.SetConfigFile(path)
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	conf, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = conf
	l.mu.Unlock()
	return conf, nil
}

func (l *Loader) decode() (*Config, error) {
	conf := new(Config)
	if err := l.v.Unmarshal(conf); err != nil {
		return nil, fmt.Errorf("unmarshal config error: %w", err)
	}
	if err := l.validate.Struct(conf); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	if _, err := conf.Log.Levels(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return conf, nil
}

// Reload 重新读取配置文件。新配置校验通过后替换当前配置并依次调用回调；
// 校验失败时保留原配置。
func (l *Loader) Reload() (*Config, error) {
	if err := l.v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("read config error: %w", err)
	}
	conf, err := l.decode()
	if err != nil {
		return nil, err
	}

	l.mu.Lock()
	l.current = conf
	hooks := append([]func(*Config){}, l.hooks...)
	l.mu.Unlock()

	for _, hook := range hooks {
		hook(conf)
	}
	return conf, nil
}

// Watch 监听配置文件变化并自动 Reload。
func (l *Loader) Watch() {
	l.v.OnConfigChange(func(event fsnotify.Event) {
		log.Info("detecting config change: %s", event.Name)
		// 编辑器保存时常触发多次事件
		time.Sleep(l.debounce)

		if _, err := l.Reload(); err != nil {
			log.Error("config reload rejected: %v", err)
			return
		}
		log.Info("config hot-reloaded and validated successfully")
	})
	l.v.WatchConfig()
}

// OnReload 注册配置热更新回调。
func (l *Loader) OnReload(hook func(*Config)) {
	if hook == nil {
		return
	}
	l.mu.Lock()
	l.hooks = append(l.hooks, hook)
	l.mu.Unlock()
}

// Current 返回最近一次成功加载的配置。
func (l *Loader) Current() *Config {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.current
}

// PrintWithMask 脱敏后把配置写入 config 域.
func PrintWithMask(conf any) {
	masked, err := MaskedJSON(conf)
	if err != nil {
		log.Error("failed to mask config for printing: %v", err)
		return
	}
	log.Info("current effective configuration:\n%s", masked)
}

// MaskedJSON 返回敏感字段被替换为 ****** 的缩进 JSON。
func MaskedJSON(conf any) (string, error) {
	data, err := json.Marshal(conf)
	if err != nil {
		return "", err
	}

	var configMap map[string]any
	if err := json.Unmarshal(data, &configMap); err != nil {
		return "", err
	}

	mask(configMap)

	out, err := json.MarshalIndent(configMap, "", "  ")
	if err != nil {
		return "", err
	}
	return string(out), nil
}

func mask(configMap map[string]any) {
	sensitiveKeys := []string{"password", "secret", "dsn", "key", "token"}

	for key, val := range configMap {
		if subMap, ok := val.(map[string]any); ok {
			mask(subMap)

			continue
		}

		if slice, ok := val.([]any); ok {
			for _, item := range slice {
				if itemMap, ok := item.(map[string]any); ok {
					mask(itemMap)
				}
			}

			continue
		}

		for _, sensitiveKey := range sensitiveKeys {
			if strings.Contains(strings.ToLower(key), sensitiveKey) {
				configMap[key] = "******"

				break
			}
		}
	}
}
