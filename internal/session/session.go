// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package session provides the top-level chat session orchestrator.
package session

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/bus"
	"github.com/jeranaias/docchat-tui/internal/mode"
	"github.com/jeranaias/docchat-tui/internal/model"
	"github.com/jeranaias/docchat-tui/internal/store"
	"github.com/jeranaias/docchat-tui/internal/stream"
)

// =============================================================================
// SESSION AGGREGATE
// =============================================================================

// Session is the owned aggregate for one authenticated identity: the
// message log, the mode state machine, and the plumbing that ties them to
// the network facade and the persistence adapter. There are no ambient
// singletons; construct one Session per identity and thread it
// explicitly.
type Session struct {
	mu sync.Mutex

	identity    string // email; empty means unauthenticated
	displayName string

	log     *model.Log
	machine *mode.Machine
	client  *api.Client
	adapter *store.Adapter
	events  *bus.Bus
	logger  *zap.Logger

	streamCfg stream.Config

	// inFlight guards the one-send-at-a-time rule: the send affordance
	// is disabled while a placeholder is unresolved.
	inFlight bool

	// renderers maps message ID to its active reveal.
	renderers map[string]*stream.Renderer

	// onChange requests attention from the UI shell after any visible
	// state change. Called outside the session lock.
	onChange func()
}

// Options configures a session.
type Options struct {
	Identity    string
	DisplayName string
	Client      *api.Client
	Adapter     *store.Adapter
	Events      *bus.Bus
	Logger      *zap.Logger
	StreamCfg   stream.Config

	// OnChange is invoked after visible state changes so the UI shell
	// can redraw. Optional.
	OnChange func()
}

// New constructs a session. The mode machine's deactivation
// notifications are wired to the backend's knowledge-base flag,
// best-effort.
func New(opts Options) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &Session{
		identity:    opts.Identity,
		displayName: opts.DisplayName,
		log:         model.NewLog(),
		client:      opts.Client,
		adapter:     opts.Adapter,
		events:      opts.Events,
		logger:      logger,
		streamCfg:   opts.StreamCfg,
		renderers:   make(map[string]*stream.Renderer),
		onChange:    opts.OnChange,
	}
	s.machine = mode.NewMachine(&kbNotifier{session: s})
	return s
}

// kbNotifier forwards mode-machine notifications to the backend's single
// knowledge-base flag. Failures are logged and swallowed: the client's
// exclusive selection wins, a stale server flag merely degrades answers.
type kbNotifier struct {
	session *Session
}

func (n *kbNotifier) KnowledgeBaseActivated() {
	n.session.setKnowledgeBaseFlag(true)
}

func (n *kbNotifier) KnowledgeBaseDeactivated() {
	n.session.setKnowledgeBaseFlag(false)
}

// setKnowledgeBaseFlag runs while s.mu is held (machine transitions
// happen under the session lock), so the identity is captured before the
// call leaves the lock.
func (s *Session) setKnowledgeBaseFlag(activate bool) {
	if s.client == nil || s.identity == "" {
		return
	}
	identity := s.identity
	go func() {
		if err := s.client.SetKnowledgeBase(context.Background(), identity, activate); err != nil {
			s.logger.Warn("knowledge base flag update failed",
				zap.Bool("activate", activate), zap.Error(err))
		}
	}()
}

// =============================================================================
// ACCESSORS
// =============================================================================

// Identity returns the authenticated email, empty if unauthenticated.
func (s *Session) Identity() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.identity
}

// Authenticated reports whether an identity is present.
func (s *Session) Authenticated() bool {
	return s.Identity() != ""
}

// Mode returns the active context mode.
func (s *Session) Mode() mode.Mode {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.Current()
}

// ActiveDataset returns the CSV pointer.
func (s *Session) ActiveDataset() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ActiveDataset()
}

// ActiveWebsite returns the website pointer.
func (s *Session) ActiveWebsite() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.ActiveWebsite()
}

// KnownDatasets returns the dataset catalog.
func (s *Session) KnownDatasets() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.KnownDatasets()
}

// KnownWebsites returns the website catalog.
func (s *Session) KnownWebsites() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.machine.KnownWebsites()
}

// Messages returns the log contents in order. The slice is shared; treat
// it as read-only.
func (s *Session) Messages() []*model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.log.Messages()
}

// CanSend reports whether a new user turn may start.
func (s *Session) CanSend() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return !s.inFlight
}

// VisibleText returns the text to display for a message: the reveal
// prefix while streaming, the canonical text otherwise.
func (s *Session) VisibleText(m *model.Message) string {
	s.mu.Lock()
	r := s.renderers[m.ID]
	s.mu.Unlock()

	if m.IsStreaming() && r != nil {
		return r.Visible()
	}
	return m.Text
}

// SetOnChange installs the UI redraw hook. Shells call this once before
// mounting; the hook must be safe to call from any goroutine.
func (s *Session) SetOnChange(fn func()) {
	s.mu.Lock()
	s.onChange = fn
	s.mu.Unlock()
}

// notify requests attention from the UI shell. Never called with s.mu
// held; the hook may call back into accessors.
func (s *Session) notify() {
	s.mu.Lock()
	fn := s.onChange
	s.mu.Unlock()
	if fn != nil {
		fn()
	}
}

// =============================================================================
// PERSISTENCE
// =============================================================================

// persist writes the durable per-identity snapshot. Best-effort: every
// log mutation calls it, failures are logged inside the adapter.
func (s *Session) persist() {
	s.mu.Lock()
	identity := s.identity
	if identity == "" || s.adapter == nil {
		s.mu.Unlock()
		return
	}
	snap := s.log.Snapshot()
	datasets := s.machine.KnownDatasets()
	websites := s.machine.KnownWebsites()
	activeDataset := s.machine.ActiveDataset()
	activeWebsite := s.machine.ActiveWebsite()
	s.mu.Unlock()

	durable := s.adapter.Durable()
	// An empty log writes no snapshot. Rewriting an empty one after a
	// reset would make the next mount treat it as a restored
	// conversation and skip the remote history pull.
	if len(snap.Messages) > 0 {
		s.adapter.SetJSON(durable, store.UserKey(store.KeyPrefixChatLog, identity), snap)
	}
	s.adapter.SetJSON(durable, store.UserKey(store.KeyPrefixKnownDatasets, identity), datasets)
	s.adapter.SetJSON(durable, store.UserKey(store.KeyPrefixKnownWebsites, identity), websites)
	s.adapter.SetJSON(durable, store.UserKey(store.KeyPrefixActiveDataset, identity), activeDataset)
	s.adapter.SetJSON(durable, store.UserKey(store.KeyPrefixActiveWebsite, identity), activeWebsite)
}

// =============================================================================
// STREAMING
// =============================================================================

// startReveal begins the simulated stream for a resolved bot message.
func (s *Session) startReveal(m *model.Message) {
	if m.Text == "" {
		return
	}

	r := stream.New(m, s.streamCfg).
		OnTick(func(string) { s.notify() }).
		OnDone(func() {
			s.mu.Lock()
			delete(s.renderers, m.ID)
			s.mu.Unlock()
			s.notify()
		})

	s.mu.Lock()
	s.renderers[m.ID] = r
	s.mu.Unlock()

	r.Start(context.Background())
}

// StopReveals cancels all active reveals, leaving canonical text intact.
func (s *Session) StopReveals() {
	s.mu.Lock()
	active := make([]*stream.Renderer, 0, len(s.renderers))
	for _, r := range s.renderers {
		active = append(active, r)
	}
	s.mu.Unlock()

	for _, r := range active {
		r.Stop()
	}
}
