package main

import (
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/gopxl/beep"
	"github.com/gopxl/beep/generators"
	"github.com/gopxl/beep/speaker"
	"github.com/pattamap/server/internal/core/event"
	"go.uber.org/zap"
)

const (
	sampleRate = beep.SampleRate(44100)
	pulseFreq  = 660
)

// busNotifier and busHaptics hand coordinator feedback to the frame loop. They are
// called from commit goroutines, so they only emit.
type busNotifier struct{ bus *event.Bus }

func (n busNotifier) Success(msg string) {
	event.Emit(n.bus, event.Toast{Level: event.ToastSuccess, Text: msg})
}

func (n busNotifier) Error(msg string) {
	event.Emit(n.bus, event.Toast{Level: event.ToastError, Text: msg})
}

type busHaptics struct{ bus *event.Bus }

func (h busHaptics) Vibrate(pattern []time.Duration) {
	event.Emit(h.bus, event.Pulse{Pattern: pattern})
}

// pulsePlayer renders vibration patterns as short tones, or rings the terminal bell
// when audio is off or unavailable.
type pulsePlayer struct {
	audio  bool
	screen tcell.Screen
	log    *zap.Logger
}

func newPulsePlayer(sound bool, screen tcell.Screen, log *zap.Logger) *pulsePlayer {
	p := &pulsePlayer{screen: screen, log: log}
	if sound {
		if err := speaker.Init(sampleRate, sampleRate.N(time.Second/10)); err != nil {
			// Non-fatal, the bell still works
			log.Warn("audio init failed", zap.Error(err))
		} else {
			p.audio = true
		}
	}
	return p
}

func (p *pulsePlayer) Play(pattern []time.Duration) {
	if !p.audio {
		_ = p.screen.Beep()
		return
	}
	s, err := pulseStreamer(pattern)
	if err != nil {
		p.log.Debug("pulse", zap.Error(err))
		return
	}
	speaker.Play(s)
}

func (p *pulsePlayer) Close() {
	if p.audio {
		speaker.Close()
	}
}

// pulseStreamer turns an on/off pattern into tone and silence segments.
func pulseStreamer(pattern []time.Duration) (beep.Streamer, error) {
	parts := make([]beep.Streamer, 0, len(pattern))
	for i, d := range pattern {
		n := sampleRate.N(d)
		if i%2 == 1 {
			parts = append(parts, beep.Silence(n))
			continue
		}
		tone, err := generators.SineTone(sampleRate, pulseFreq)
		if err != nil {
			return nil, err
		}
		parts = append(parts, beep.Take(n, tone))
	}
	return beep.Seq(parts...), nil
}
