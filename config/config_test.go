package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windofthesky/mysql-router/logging"
)

const sampleConfig = `
version = "1.0.0"

[log]
level = ""
default_level = "info"

[log.domains]
routing = "debug"
metadata_cache = "warning"

[[log.handlers]]
name = "console"
type = "stream"
output = "stderr"

[[log.handlers]]
name = "file"
type = "file"
output = "/var/log/router/router.log"
level = "error"

[admin]
enabled = true
addr = "127.0.0.1:8089"
token = "s3cr3t"
slow_threshold = "250ms"
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "router.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	l := NewLoader()
	conf, err := l.Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)

	assert.Equal(t, "1.0.0", conf.Version)
	assert.Equal(t, "info", conf.Log.DefaultLevel)
	assert.Equal(t, map[string]string{"routing": "debug", "metadata_cache": "warning"}, conf.Log.Domains)
	require.Len(t, conf.Log.Handlers, 2)
	assert.Equal(t, HandlerConfig{Name: "file", Type: "file", Output: "/var/log/router/router.log", Level: "error"}, conf.Log.Handlers[1])

	assert.True(t, conf.Admin.Enabled)
	assert.Equal(t, 250*time.Millisecond, conf.Admin.SlowThreshold)
	assert.Equal(t, 5*time.Second, conf.Admin.ShutdownTimeout, "defaults fill missing keys")
	assert.Equal(t, "/metrics", conf.Metrics.Path)
	assert.Same(t, conf, l.Current())
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("APP_LOG_LEVEL", "debug")
	conf, err := NewLoader().Load(writeConfig(t, sampleConfig))
	require.NoError(t, err)
	assert.Equal(t, "debug", conf.Log.Level)
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	cases := map[string]string{
		"bad default level": "[log]\ndefault_level = \"loud\"\n",
		"bad domain level":  "[log.domains]\nrouting = \"verbose\"\n",
		"bad handler type":  "[[log.handlers]]\nname = \"x\"\ntype = \"syslog\"\noutput = \"x\"\n",
		"missing output":    "[[log.handlers]]\nname = \"x\"\ntype = \"file\"\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewLoader().Load(writeConfig(t, body))
			assert.Error(t, err)
		})
	}

	_, err := NewLoader().Load(filepath.Join(t.TempDir(), "absent.toml"))
	assert.Error(t, err)
}

func TestLevels(t *testing.T) {
	set, err := LogConfig{
		Level:        "error",
		DefaultLevel: "debug",
		Domains:      map[string]string{"routing": "info"},
		Handlers:     []HandlerConfig{{Name: "a"}, {Name: "b", Level: "warning"}},
	}.Levels()
	require.NoError(t, err)

	assert.True(t, set.HasGlobal)
	assert.Equal(t, logging.LevelError, set.Global)
	assert.Equal(t, logging.LevelDebug, set.Default)
	assert.Equal(t, logging.LevelInfo, set.Domains["routing"])
	assert.Equal(t, logging.LevelNotSet, set.Handlers["a"])
	assert.Equal(t, logging.LevelWarning, set.Handlers["b"])

	set, err = LogConfig{}.Levels()
	require.NoError(t, err)
	assert.False(t, set.HasGlobal)
	assert.Equal(t, logging.DefaultLevel, set.Default)

	_, err = LogConfig{Domains: map[string]string{"x": "nope"}}.Levels()
	assert.ErrorContains(t, err, "log.domains.x")
}

func TestReloadRunsHooksOnlyForValidConfig(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	l := NewLoader()
	_, err := l.Load(path)
	require.NoError(t, err)

	var got []*Config
	l.OnReload(func(c *Config) { got = append(got, c) })
	l.OnReload(nil)

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"debug\"\n"), 0o644))
	conf, err := l.Reload()
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "debug", got[0].Log.Level)
	assert.Same(t, conf, l.Current())

	require.NoError(t, os.WriteFile(path, []byte("[log]\nlevel = \"chatty\"\n"), 0o644))
	_, err = l.Reload()
	assert.Error(t, err)
	assert.Len(t, got, 1, "rejected config does not reach hooks")
	assert.Equal(t, "debug", l.Current().Log.Level)
}

func TestMaskedJSON(t *testing.T) {
	out, err := MaskedJSON(Config{Admin: AdminConfig{Token: "s3cr3t", Addr: ":8089"}})
	require.NoError(t, err)
	assert.NotContains(t, out, "s3cr3t")
	assert.Contains(t, out, `"Token": "******"`)
	assert.Contains(t, out, `"Addr": ":8089"`)
}
