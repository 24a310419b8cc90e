package event

import (
	"sync"
	"testing"

	"github.com/pattamap/server/internal/grid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmitVisibleNextFrame(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(e Toast) { got = append(got, e.Text) })

	Emit(b, Toast{Text: "Moved Ruby to (1,3)"})
	b.DispatchAll()
	assert.Empty(t, got, "not swapped yet")

	b.SwapBuffers()
	assert.Equal(t, 1, b.Pending())
	b.DispatchAll()
	assert.Equal(t, []string{"Moved Ruby to (1,3)"}, got)
	assert.Equal(t, 0, b.Pending())

	b.SwapBuffers()
	b.DispatchAll()
	assert.Len(t, got, 1, "delivered once")
}

func TestDispatchOrderFollowsFirstEmit(t *testing.T) {
	b := NewBus()
	var seq []string
	Subscribe(b, func(DropSettled) { seq = append(seq, "settled") })
	Subscribe(b, func(Toast) { seq = append(seq, "toast") })
	Subscribe(b, func(Pulse) { seq = append(seq, "pulse") })

	for i := 0; i < 3; i++ {
		Emit(b, Toast{})
		Emit(b, Pulse{})
		Emit(b, DropSettled{})
		b.SwapBuffers()
		b.DispatchAll()
	}
	require.Len(t, seq, 9)
	assert.Equal(t, []string{"toast", "pulse", "settled"}, seq[:3])
	assert.Equal(t, seq[:3], seq[6:])
}

func TestHandlerEmitLandsNextFrame(t *testing.T) {
	b := NewBus()
	var loaded int
	Subscribe(b, func(DropSettled) { Emit(b, EntitiesLoaded{Entities: make([]grid.Entity, 4)}) })
	Subscribe(b, func(e EntitiesLoaded) { loaded = len(e.Entities) })

	Emit(b, DropSettled{EntityID: "e1", Outcome: "committed"})
	b.SwapBuffers()
	b.DispatchAll()
	assert.Zero(t, loaded)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, 4, loaded)
}

func TestConcurrentEmit(t *testing.T) {
	b := NewBus()
	count := 0
	Subscribe(b, func(Pulse) { count++ })

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				Emit(b, Pulse{})
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for j := 0; j < 50; j++ {
			_ = b.Pending()
		}
	}()
	wg.Wait()
	assert.Zero(t, b.Pending(), "emits wait in the back buffer")
	b.SwapBuffers()
	assert.Equal(t, 400, b.Pending())
	b.DispatchAll()
	assert.Equal(t, 400, count)
	assert.Zero(t, b.Pending())
}
