package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sweetpotato0/ai-dispatch/agent"
	errorskg "github.com/sweetpotato0/ai-dispatch/errors"
	"github.com/sweetpotato0/ai-dispatch/router"
)

type echoAgent struct {
	agent.Base
}

func (e *echoAgent) CanHandle(context.Context, string) float64 { return 1 }

func (e *echoAgent) Respond(_ context.Context, query string) string {
	return "heard " + query
}

func echoFactory(built *[]string) Factory {
	return func(id string) (*router.Router, error) {
		*built = append(*built, id)
		return router.New().Register(&echoAgent{Base: agent.NewBase("Echo")}), nil
	}
}

func TestSessionRunAndClose(t *testing.T) {
	sess := New("s1", router.New().Register(&echoAgent{Base: agent.NewBase("Echo")}))
	assert.Equal(t, "s1", sess.ID())
	assert.Equal(t, StateActive, sess.GetState())

	out, err := sess.Run(context.Background(), "hi")
	require.NoError(t, err)
	assert.Equal(t, "Echo: heard hi", out)
	assert.Equal(t, 1, sess.Turns())

	require.NoError(t, sess.Close())
	assert.Equal(t, StateClosed, sess.GetState())
	assert.ErrorIs(t, sess.Close(), errorskg.ErrSessionClosed)

	_, err = sess.Run(context.Background(), "again")
	assert.ErrorIs(t, err, errorskg.ErrSessionClosed)
}

// slowAgent records the highest number of overlapping Respond calls.
type slowAgent struct {
	agent.Base
	inFlight atomic.Int32
	peak     atomic.Int32
}

func (s *slowAgent) CanHandle(context.Context, string) float64 { return 1 }

func (s *slowAgent) Respond(_ context.Context, query string) string {
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		p := s.peak.Load()
		if n <= p || s.peak.CompareAndSwap(p, n) {
			break
		}
	}
	time.Sleep(5 * time.Millisecond)
	return query
}

func TestSessionSerialisesTurns(t *testing.T) {
	slow := &slowAgent{Base: agent.NewBase("Slow")}
	sess := New("s", router.New().Register(slow))

	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := sess.Run(context.Background(), "q")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, slow.peak.Load())
	assert.Equal(t, 4, sess.Turns())
	assert.Equal(t, 8, slow.Memory().Len())
}

func TestManagerIsolatesSessions(t *testing.T) {
	var built []string
	m := NewManager(echoFactory(&built))

	_, err := m.Route(context.Background(), "alice", "one")
	require.NoError(t, err)
	_, err = m.Route(context.Background(), "bob", "two")
	require.NoError(t, err)
	_, err = m.Route(context.Background(), "alice", "three")
	require.NoError(t, err)

	assert.Equal(t, []string{"alice", "bob"}, built)
	assert.Equal(t, 2, m.Len())

	alice, ok := m.Get("alice")
	require.True(t, ok)
	mem := alice.Router().Agents()[0].Memory()
	assert.Equal(t, []string{"User: one", "Echo: heard one", "User: three", "Echo: heard three"}, mem.Transcript())

	bob, ok := m.Get("bob")
	require.True(t, ok)
	assert.Equal(t, 2, bob.Router().Agents()[0].Memory().Len())
}

func TestManagerEvictsLeastRecentlyUsed(t *testing.T) {
	var built []string
	m := NewManager(echoFactory(&built), WithCapacity(1))

	first, err := m.GetOrCreate("a")
	require.NoError(t, err)
	_, err = m.GetOrCreate("b")
	require.NoError(t, err)

	assert.Equal(t, []string{"b"}, m.IDs())
	assert.Equal(t, StateClosed, first.GetState())

	_, err = m.GetOrCreate("a")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "a"}, built)
}

func TestManagerExpiresIdleSessions(t *testing.T) {
	var built []string
	m := NewManager(echoFactory(&built), WithTTL(20*time.Millisecond))

	sess, err := m.GetOrCreate("a")
	require.NoError(t, err)

	assert.Eventually(t, func() bool {
		_, ok := m.Get("a")
		return !ok
	}, time.Second, 10*time.Millisecond)
	_ = sess
}

func TestManagerNegativeTTLNeverExpires(t *testing.T) {
	var built []string
	m := NewManager(echoFactory(&built), WithTTL(-1))

	first, err := m.GetOrCreate("local")
	require.NoError(t, err)
	time.Sleep(30 * time.Millisecond)

	again, err := m.GetOrCreate("local")
	require.NoError(t, err)
	assert.Same(t, first, again)
	assert.Equal(t, []string{"local"}, built)
}

func TestManagerDeleteAndClose(t *testing.T) {
	var built []string
	m := NewManager(echoFactory(&built))

	a, err := m.GetOrCreate("a")
	require.NoError(t, err)
	b, err := m.GetOrCreate("b")
	require.NoError(t, err)

	m.Delete("a")
	m.Delete("missing")
	assert.Equal(t, StateClosed, a.GetState())
	assert.Equal(t, 1, m.Len())

	m.Close()
	assert.Equal(t, StateClosed, b.GetState())
	assert.Equal(t, 0, m.Len())
}

func TestManagerErrors(t *testing.T) {
	var built []string
	m := NewManager(echoFactory(&built))
	_, err := m.Route(context.Background(), "  ", "hi")
	assert.ErrorIs(t, err, errorskg.ErrInvalidInput)

	boom := errors.New("boom")
	failing := NewManager(func(string) (*router.Router, error) { return nil, boom })
	_, err = failing.GetOrCreate("x")
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 0, failing.Len())

	_, err = NewManager(nil).GetOrCreate("x")
	assert.ErrorIs(t, err, errorskg.ErrNotConfigured)
}
