package table

import (
	"context"
	"io"
	"math/rand"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bokk3/gamble-fun-sub001/internal/ai"
	"github.com/bokk3/gamble-fun-sub001/internal/game"
	"github.com/bokk3/gamble-fun-sub001/internal/store"
)

func registryConfig(t *testing.T, id string) Config {
	t.Helper()
	return Config{
		TableID:        id,
		SmallBlind:     1,
		BigBlind:       2,
		MinBuyIn:       50,
		MaxBuyIn:       200,
		MaxSeats:       6,
		TurnTimeout:    30 * time.Second,
		InterHandDelay: time.Hour,
		GraceWindow:    time.Minute,
		Clock:          quartz.NewMock(t),
		Logger:         log.New(io.Discard),
		Sink:           newMemSink(),
		Store:          &memStore{},
		Ledger:         store.NewMemLedger(map[string]int{"alice": 1000}),
		Engine:         ai.NewEngine(rand.New(rand.NewSource(1))),
		RNG:            rand.New(rand.NewSource(2)),
	}
}

func TestRegistryLifecycle(t *testing.T) {
	ctx := context.Background()
	r := NewRegistry(log.New(io.Discard))
	t.Cleanup(r.Close)

	r.Define(registryConfig(t, "low-stakes"))
	r.Define(registryConfig(t, "high-stakes"))

	t.Run("listing covers defined tables", func(t *testing.T) {
		list := r.List()
		require.Len(t, list, 2)
		assert.Equal(t, "high-stakes", list[0].ID)
		assert.Equal(t, "low-stakes", list[1].ID)
	})

	t.Run("tables start lazily", func(t *testing.T) {
		_, ok := r.Get("low-stakes")
		assert.False(t, ok)

		o, ok := r.GetOrCreate("low-stakes")
		require.True(t, ok)
		require.NotNil(t, o)

		again, ok := r.GetOrCreate("low-stakes")
		require.True(t, ok)
		assert.Same(t, o, again)
	})

	t.Run("unknown table is not created", func(t *testing.T) {
		_, ok := r.GetOrCreate("no-such-table")
		assert.False(t, ok)
	})

	t.Run("table is torn down when the last seat leaves", func(t *testing.T) {
		o, ok := r.GetOrCreate("high-stakes")
		require.True(t, ok)

		alice := game.HumanIdentity("alice")
		_, err := o.Join(ctx, alice, "Alice", 100)
		require.NoError(t, err)
		_, err = o.Leave(ctx, alice)
		require.NoError(t, err)

		require.Eventually(t, func() bool {
			_, ok := r.Get("high-stakes")
			return !ok
		}, 5*time.Second, 10*time.Millisecond)
	})
}
