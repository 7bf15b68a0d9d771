package logging

import (
	"bytes"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sourcegraph/conc"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/windofthesky/mysql-router/xerrors"
)

func newTestRegistry(opts ...Option) *Registry {
	opts = append([]Option{WithClock(func() time.Time { return testTime }), WithProcessID(4242)}, opts...)
	return NewRegistry(opts...)
}

func attached(r *Registry, name string) []Handler {
	d, err := r.snapshot(name)
	if err != nil {
		return nil
	}
	return d.handlers
}

type closingHandler struct {
	*BaseHandler
	closes atomic.Int32
}

func newClosingHandler() *closingHandler {
	return &closingHandler{BaseHandler: NewBaseHandler(LevelNotSet, func(Record, []byte) error { return nil })}
}

func (h *closingHandler) Close() error {
	h.closes.Add(1)
	return nil
}

func TestRootDomainAlwaysRegistered(t *testing.T) {
	r := newTestRegistry()
	assert.True(t, r.HasDomain(RootDomain))
	assert.True(t, r.HasDomain(""), "empty name resolves to the root domain")

	err := r.UnregisterDomain("")
	assert.True(t, xerrors.Is(err, xerrors.ErrInvalidArg))
	assert.True(t, r.HasDomain(RootDomain))
}

func TestRegisterDomainIdempotent(t *testing.T) {
	r := newTestRegistry()
	h := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)

	require.NoError(t, r.RegisterDomain("core"))
	require.NoError(t, r.SetDomainLogLevel("core", LevelDebug))
	require.NoError(t, r.RegisterHandler(h))
	require.NoError(t, r.RegisterDomain("core"))

	lvl, err := r.DomainLevel("core")
	require.NoError(t, err)
	assert.Equal(t, LevelDebug, lvl)
	assert.Equal(t, []Handler{h}, attached(r, "core"))

	count := 0
	for _, d := range r.Domains() {
		if d.Name == "core" {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestNewDomainStartsAtDefaultLevel(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterDomain("a"))
	lvl, _ := r.DomainLevel("a")
	assert.Equal(t, DefaultLevel, lvl)

	r2 := newTestRegistry(WithDefaultLevel(LevelNotSet))
	require.NoError(t, r2.RegisterDomain("a"))
	lvl, _ = r2.DomainLevel("a")
	assert.Equal(t, LevelNotSet, lvl)
}

func TestUnregisterDomain(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterDomain("gone"))
	require.NoError(t, r.UnregisterDomain("gone"))
	assert.False(t, r.HasDomain("gone"))
	require.NoError(t, r.UnregisterDomain("gone"), "unknown domain is a no-op")

	_, err := r.DomainLevel("gone")
	assert.True(t, xerrors.Is(err, xerrors.ErrNotFound))
}

func TestGlobalLevelIsNotSticky(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterDomain("a"))
	require.NoError(t, r.RegisterDomain("b"))
	require.NoError(t, r.SetLogLevel(LevelDebug))

	for _, d := range r.Domains() {
		assert.Equal(t, LevelDebug, d.Level, d.Name)
	}

	require.NoError(t, r.RegisterDomain("late"))
	lvl, _ := r.DomainLevel("late")
	assert.Equal(t, DefaultLevel, lvl, "domains registered after a global change start at the default")

	assert.True(t, xerrors.Is(r.SetLogLevel(Level(17)), xerrors.ErrInvalidArg))
}

func TestSetDomainLevelCreatesUnknownDomain(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.SetDomainLogLevel("metadata_cache", LevelInfo))
	assert.True(t, r.HasDomain("metadata_cache"))
	lvl, _ := r.DomainLevel("metadata_cache")
	assert.Equal(t, LevelInfo, lvl)

	// 只影响目标域
	root, _ := r.DomainLevel(RootDomain)
	assert.Equal(t, DefaultLevel, root)
}

func TestRegisterHandlerBroadcastsAtCallTime(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterDomain("early"))

	h := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	require.NoError(t, r.RegisterHandler(h))
	assert.Equal(t, []Handler{h}, attached(r, "early"))
	assert.Equal(t, []Handler{h}, attached(r, RootDomain))

	// 之后注册的域不会自动获得已有的输出端
	require.NoError(t, r.RegisterDomain("late"))
	assert.Empty(t, attached(r, "late"))

	// 再次广播只补挂缺失的域
	require.NoError(t, r.RegisterHandler(h))
	assert.Equal(t, []Handler{h}, attached(r, "late"))
	assert.Equal(t, []Handler{h}, attached(r, "early"))
	assert.Equal(t, []Handler{h}, r.Handlers())
}

func TestRegisterHandlerKeepsRegistrationOrder(t *testing.T) {
	r := newTestRegistry()
	h1 := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	h2 := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	require.NoError(t, r.RegisterHandler(h1))
	require.NoError(t, r.RegisterHandler(h2))
	assert.Equal(t, []Handler{h1, h2}, attached(r, RootDomain))

	assert.True(t, xerrors.Is(r.RegisterHandler(nil), xerrors.ErrInvalidArg))
}

func TestAttachHandlersReachesLateDomains(t *testing.T) {
	r := newTestRegistry()
	h1 := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	h2 := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	require.NoError(t, r.RegisterHandler(h1))
	require.NoError(t, r.RegisterDomain("late"))
	require.NoError(t, r.RegisterHandler(h2))
	assert.Equal(t, []Handler{h2}, attached(r, "late"))

	require.NoError(t, r.AttachHandlers())
	assert.Equal(t, []Handler{h2, h1}, attached(r, "late"), "missing handlers are appended")
	assert.Equal(t, []Handler{h1, h2}, attached(r, RootDomain))

	require.NoError(t, r.AttachHandlers())
	assert.Len(t, attached(r, "late"), 2)

	require.NoError(t, r.Close())
	assert.True(t, xerrors.Is(r.AttachHandlers(), xerrors.ErrClosed))
}

func TestUnregisterHandler(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterDomain("a"))
	h1 := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	h2 := NewStreamHandler(&bytes.Buffer{}, LevelNotSet)
	require.NoError(t, r.RegisterHandler(h1))
	require.NoError(t, r.RegisterHandler(h2))

	require.NoError(t, r.UnregisterHandler(h1))
	assert.Equal(t, []Handler{h2}, attached(r, "a"))
	assert.Equal(t, []Handler{h2}, attached(r, RootDomain))
	assert.Equal(t, []Handler{h2}, r.Handlers())

	require.NoError(t, r.UnregisterHandler(h1), "second unregister is harmless")
	require.NoError(t, r.UnregisterHandler(nil))
	assert.Equal(t, []Handler{h2}, attached(r, "a"))
}

func TestUnregisterHandlerDoesNotClose(t *testing.T) {
	r := newTestRegistry()
	h := newClosingHandler()
	require.NoError(t, r.RegisterHandler(h))
	require.NoError(t, r.UnregisterHandler(h))
	require.NoError(t, r.Close())
	assert.Zero(t, h.closes.Load())
}

func TestCloseReleasesHandlersOnce(t *testing.T) {
	r := newTestRegistry()
	require.NoError(t, r.RegisterDomain("a"))
	require.NoError(t, r.RegisterDomain("b"))
	h := newClosingHandler()
	require.NoError(t, r.RegisterHandler(h))

	require.NoError(t, r.Close())
	require.NoError(t, r.Close())
	assert.Equal(t, int32(1), h.closes.Load(), "shared handler is closed exactly once")

	assert.True(t, xerrors.Is(r.RegisterDomain("c"), xerrors.ErrClosed))
	assert.True(t, xerrors.Is(r.SetLogLevel(LevelInfo), xerrors.ErrClosed))
	assert.True(t, xerrors.Is(r.SetDomainLogLevel("a", LevelInfo), xerrors.ErrClosed))
	assert.True(t, xerrors.Is(r.RegisterHandler(h), xerrors.ErrClosed))
	assert.True(t, xerrors.Is(r.UnregisterHandler(h), xerrors.ErrClosed))
	assert.True(t, xerrors.Is(r.Log(LevelError, "a", "x"), xerrors.ErrClosed))
	assert.Empty(t, r.Domains())
}

func TestConcurrentMutationAndDispatch(t *testing.T) {
	r := newTestRegistry(WithDefaultLevel(LevelDebug))
	var buf bytes.Buffer
	h := NewStreamHandler(&buf, LevelNotSet)
	require.NoError(t, r.RegisterDomain("hot"))

	var wg conc.WaitGroup
	wg.Go(func() {
		for i := 0; i < 200; i++ {
			_ = r.RegisterHandler(h)
			_ = r.UnregisterHandler(h)
		}
	})
	wg.Go(func() {
		for i := 0; i < 200; i++ {
			_ = r.SetDomainLogLevel("hot", LevelDebug)
			_ = r.SetLogLevel(LevelInfo)
		}
	})
	wg.Go(func() {
		for i := 0; i < 200; i++ {
			_ = r.RegisterDomain("churn")
			_ = r.UnregisterDomain("churn")
		}
	})
	for i := 0; i < 4; i++ {
		wg.Go(func() {
			for j := 0; j < 200; j++ {
				_ = r.Log(LevelInfo, "hot", "n=%d", j)
				_ = r.Domains()
			}
		})
	}
	wg.Wait()

	require.NoError(t, r.Close())
}
