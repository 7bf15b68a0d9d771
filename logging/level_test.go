package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windofthesky/mysql-router/xerrors"
)

func TestLevelOrdering(t *testing.T) {
	ordered := []Level{LevelFatal, LevelError, LevelWarning, LevelInfo, LevelDebug, LevelNotSet}
	for i := 1; i < len(ordered); i++ {
		assert.Less(t, ordered[i-1], ordered[i], "%s must be more severe than %s", ordered[i-1], ordered[i])
	}
}

func TestLevelAdmits(t *testing.T) {
	assert := assert.New(t)
	for gate := LevelFatal; gate <= LevelNotSet; gate++ {
		for rec := LevelFatal; rec < LevelNotSet; rec++ {
			assert.Equal(rec <= gate, gate.Admits(rec), "gate=%s record=%s", gate, rec)
		}
	}
	// NotSet 门限不拦截任何可记录的级别
	for rec := LevelFatal; rec <= LevelDebug; rec++ {
		assert.True(LevelNotSet.Admits(rec))
	}
}

func TestLevelString(t *testing.T) {
	assert.Equal(t, "FATAL", LevelFatal.String())
	assert.Equal(t, "WARNING", LevelWarning.String())
	assert.Equal(t, "NOTSET", LevelNotSet.String())
	assert.Equal(t, "LEVEL(42)", Level(42).String())
	assert.False(t, Level(-1).Valid())
}

func TestParseLevel(t *testing.T) {
	cases := map[string]Level{
		"fatal":   LevelFatal,
		"ERROR":   LevelError,
		"Warning": LevelWarning,
		"warn":    LevelWarning,
		" info ":  LevelInfo,
		"debug":   LevelDebug,
		"notset":  LevelNotSet,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}

	_, err := ParseLevel("verbose")
	require.Error(t, err)
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidArg))

	lvl, err := ParseLevel(DefaultLevelName)
	require.NoError(t, err)
	assert.Equal(t, DefaultLevel, lvl)
}

func TestLevelText(t *testing.T) {
	b, err := LevelInfo.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "info", string(b))

	var l Level
	require.NoError(t, l.UnmarshalText([]byte("debug")))
	assert.Equal(t, LevelDebug, l)

	assert.Error(t, l.UnmarshalText([]byte("loud")))
	_, err = Level(99).MarshalText()
	assert.Error(t, err)
}
