// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package stream

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// fastConfig keeps the tests quick and deterministic.
func fastConfig() Config {
	return Config{
		BaseDelay:         time.Microsecond,
		SentencePause:     time.Microsecond,
		MarkupDelay:       time.Microsecond,
		CompressThreshold: 0,
		Jitter:            0,
	}
}

// =============================================================================
// DELAY POLICY TESTS
// =============================================================================

func TestDelayFor_PacingRules(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jitter = 0
	rng := rand.New(rand.NewSource(1))

	base := delayFor('a', 100, cfg, rng)
	sentence := delayFor('.', 100, cfg, rng)
	newline := delayFor('\n', 100, cfg, rng)
	markup := delayFor('*', 100, cfg, rng)

	if sentence <= base {
		t.Errorf("sentence pause %v should exceed base %v", sentence, base)
	}
	if newline != sentence {
		t.Errorf("newline pause %v should match sentence pause %v", newline, sentence)
	}
	if markup >= base {
		t.Errorf("markup delay %v should be below base %v", markup, base)
	}
}

func TestDelayFor_LongTextCompression(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Jitter = 0
	rng := rand.New(rand.NewSource(1))

	short := delayFor('a', cfg.CompressThreshold, cfg, rng)
	long := delayFor('a', cfg.CompressThreshold+1, cfg, rng)

	if long >= short {
		t.Errorf("compressed delay %v should be below uncompressed %v", long, short)
	}
	if want := short / time.Duration(cfg.CompressDivisor); long != want {
		t.Errorf("compressed delay = %v, want %v", long, want)
	}
}

func TestDelayFor_JitterBounded(t *testing.T) {
	cfg := Config{BaseDelay: 10 * time.Millisecond, Jitter: 5 * time.Millisecond}
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 100; i++ {
		d := delayFor('a', 10, cfg, rng)
		if d < cfg.BaseDelay || d >= cfg.BaseDelay+cfg.Jitter {
			t.Fatalf("delay %v outside [base, base+jitter)", d)
		}
	}
}

// =============================================================================
// REVEAL LOOP TESTS
// =============================================================================

func TestRenderer_RevealsFullText(t *testing.T) {
	msg := model.NewBotMessage("hello, world")
	var last string

	r := New(msg, fastConfig()).OnTick(func(visible string) { last = visible })

	if !msg.IsStreaming() {
		t.Fatal("IsStreaming should be set at renderer creation")
	}

	r.Start(context.Background())

	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not finish")
	}

	if last != msg.Text {
		t.Errorf("final visible text = %q, want %q", last, msg.Text)
	}
	if msg.IsStreaming() {
		t.Error("IsStreaming should flip false at end of reveal")
	}
}

func TestRenderer_CursorMonotone(t *testing.T) {
	msg := model.NewBotMessage("abcdefghij")
	var lengths []int

	r := New(msg, fastConfig()).OnTick(func(visible string) {
		lengths = append(lengths, len([]rune(visible)))
	})
	r.Start(context.Background())
	<-r.Done()

	if len(lengths) != 10 {
		t.Fatalf("ticks = %d, want one per rune (10)", len(lengths))
	}
	for i := 1; i < len(lengths); i++ {
		if lengths[i] != lengths[i-1]+1 {
			t.Fatalf("cursor not monotone by one: %v", lengths)
		}
	}
}

func TestRenderer_StopCancelsEarly(t *testing.T) {
	msg := model.NewBotMessage("a very long answer that keeps going and going")

	cfg := fastConfig()
	cfg.BaseDelay = 50 * time.Millisecond // slow enough to interrupt

	r := New(msg, cfg)
	r.Start(context.Background())

	time.Sleep(20 * time.Millisecond)
	r.Stop()

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("Stop did not end the reveal loop")
	}

	if msg.IsStreaming() {
		t.Error("IsStreaming should flip false on stop")
	}
	// Canonical text is untouched by early cancellation.
	if msg.Text != "a very long answer that keeps going and going" {
		t.Errorf("Text mutated: %q", msg.Text)
	}
}

func TestRenderer_IndependentInstances(t *testing.T) {
	first := New(model.NewBotMessage("first message"), fastConfig())
	second := New(model.NewBotMessage("second message"), fastConfig())

	// Starting the second does not wait on the first.
	first.Start(context.Background())
	second.Start(context.Background())

	for _, r := range []*Renderer{first, second} {
		select {
		case <-r.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("renderer did not finish")
		}
	}
}

func TestRenderer_ConcurrentFlagReads(t *testing.T) {
	msg := model.NewBotMessage("answer read from another goroutine while revealing")
	r := New(msg, fastConfig())

	// A UI goroutine polls the flag for the whole reveal; under -race
	// this catches unsynchronized writes from the tick loop.
	stop := make(chan struct{})
	go func() {
		for {
			select {
			case <-stop:
				return
			default:
				_ = msg.IsStreaming()
				_ = r.Visible()
			}
		}
	}()

	r.Start(context.Background())
	select {
	case <-r.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("reveal did not finish")
	}
	close(stop)

	if msg.IsStreaming() {
		t.Error("IsStreaming should flip false at end of reveal")
	}
}

func TestRenderer_EmptyText(t *testing.T) {
	msg := model.NewBotMessage("")
	r := New(msg, fastConfig())
	r.Start(context.Background())

	select {
	case <-r.Done():
	case <-time.After(time.Second):
		t.Fatal("empty reveal did not finish")
	}
	if msg.IsStreaming() {
		t.Error("IsStreaming should flip false immediately for empty text")
	}
}
