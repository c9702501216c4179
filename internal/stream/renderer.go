// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package stream replays completed response text as a human-paced reveal.
package stream

import (
	"context"
	"math/rand"
	"strings"
	"sync"
	"time"

	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// PACING CONFIGURATION
// =============================================================================

// Config holds the pacing knobs for the simulated token stream. The text
// is already fully resident in memory; this is presentation-layer timing
// only and must never be conflated with a real network stream.
type Config struct {
	// BaseDelay is the default inter-rune delay.
	BaseDelay time.Duration

	// SentencePause extends the delay after sentence punctuation and
	// line breaks.
	SentencePause time.Duration

	// MarkupDelay applies while passing through markup control
	// characters, so formatting syntax does not read as typing.
	MarkupDelay time.Duration

	// CompressThreshold is the rune count beyond which every delay is
	// uniformly compressed, keeping long answers tolerable.
	CompressThreshold int

	// CompressDivisor divides delays once the threshold is exceeded.
	CompressDivisor int

	// Jitter adds up to this much random variation per tick.
	Jitter time.Duration
}

// DefaultConfig returns the default pacing.
func DefaultConfig() Config {
	return Config{
		BaseDelay:         18 * time.Millisecond,
		SentencePause:     180 * time.Millisecond,
		MarkupDelay:       time.Millisecond,
		CompressThreshold: 1200,
		CompressDivisor:   4,
		Jitter:            8 * time.Millisecond,
	}
}

// sentenceEnders pause the reveal the way a reader pauses.
const sentenceEnders = ".!?\n"

// markupChars are control characters of markdown syntax; the cursor slides
// through them at close to full speed.
const markupChars = "*_`#>[]()|~-"

// delayFor computes the inter-tick delay after revealing rune r in a text
// of total runes.
func delayFor(r rune, total int, cfg Config, rng *rand.Rand) time.Duration {
	var d time.Duration
	switch {
	case strings.ContainsRune(sentenceEnders, r):
		d = cfg.SentencePause
	case strings.ContainsRune(markupChars, r):
		d = cfg.MarkupDelay
	default:
		d = cfg.BaseDelay
	}

	if cfg.CompressThreshold > 0 && total > cfg.CompressThreshold && cfg.CompressDivisor > 1 {
		d /= time.Duration(cfg.CompressDivisor)
	}

	if cfg.Jitter > 0 {
		d += time.Duration(rng.Int63n(int64(cfg.Jitter)))
	}
	return d
}

// =============================================================================
// RENDERER
// =============================================================================

// Renderer owns one message's reveal: a monotonically increasing rune
// cursor over the terminal message's canonical text, advanced by a
// cancelable scheduled-tick loop. Renderers are independent; starting a
// new message's reveal never waits on a prior one.
type Renderer struct {
	msg *model.Message
	cfg Config

	mu     sync.Mutex
	cursor int
	runes  []rune
	cancel context.CancelFunc
	done   chan struct{}

	// onTick is invoked from the tick goroutine after each advance;
	// onDone once, when the cursor reaches the end or Stop is called.
	onTick func(visible string)
	onDone func()
}

// New creates a renderer for a resolved bot message. The message's
// streaming flag is set immediately and flips false when the cursor
// reaches the text length.
func New(msg *model.Message, cfg Config) *Renderer {
	msg.SetStreaming(true)
	return &Renderer{
		msg:   msg,
		cfg:   cfg,
		runes: []rune(msg.Text),
		done:  make(chan struct{}),
	}
}

// OnTick sets the per-advance callback. Must be set before Start.
func (r *Renderer) OnTick(fn func(visible string)) *Renderer {
	r.onTick = fn
	return r
}

// OnDone sets the completion callback. Must be set before Start.
func (r *Renderer) OnDone(fn func()) *Renderer {
	r.onDone = fn
	return r
}

// Start begins the reveal loop in its own goroutine.
func (r *Renderer) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	r.mu.Lock()
	r.cancel = cancel
	r.mu.Unlock()

	go r.run(ctx)
}

// run is the scheduled-tick loop.
func (r *Renderer) run(ctx context.Context) {
	defer r.finish()

	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	total := len(r.runes)

	timer := time.NewTimer(0)
	defer timer.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-timer.C:
		}

		r.mu.Lock()
		if r.cursor >= total {
			r.mu.Unlock()
			return
		}
		r.cursor++
		revealed := r.runes[r.cursor-1]
		visible := string(r.runes[:r.cursor])
		r.mu.Unlock()

		if r.onTick != nil {
			r.onTick(visible)
		}

		timer.Reset(delayFor(revealed, total, r.cfg, rng))
	}
}

// finish flips the streaming flag and signals completion exactly once.
func (r *Renderer) finish() {
	r.msg.SetStreaming(false)
	if r.onDone != nil {
		r.onDone()
	}
	close(r.done)
}

// Stop cancels the reveal. The message keeps its full canonical text; only
// the cosmetic pacing ends early.
func (r *Renderer) Stop() {
	r.mu.Lock()
	cancel := r.cancel
	r.mu.Unlock()
	if cancel != nil {
		cancel()
	}
}

// Visible returns the currently revealed prefix of the text.
func (r *Renderer) Visible() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return string(r.runes[:r.cursor])
}

// Done returns a channel closed when the reveal has finished or been
// stopped.
func (r *Renderer) Done() <-chan struct{} {
	return r.done
}
