// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package session

import (
	"context"
	"errors"
	"strings"

	"go.uber.org/zap"

	"github.com/jeranaias/docchat-tui/internal/api"
	"github.com/jeranaias/docchat-tui/internal/bus"
	"github.com/jeranaias/docchat-tui/internal/mode"
	"github.com/jeranaias/docchat-tui/internal/model"
)

// =============================================================================
// SEND CYCLE
// =============================================================================

// ErrBusy reports a send attempted while an earlier turn's reply is still
// pending.
var ErrBusy = errors.New("a reply is still pending")

const signInNotice = "Please sign in to chat. Your messages need an account to be answered."

// Send runs one user turn: append the user message and a placeholder,
// call the facade for the active mode, resolve the placeholder in place,
// persist, and start the simulated stream. Exactly one turn may be in
// flight at a time.
func (s *Session) Send(ctx context.Context, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	s.mu.Lock()
	if s.inFlight {
		s.mu.Unlock()
		return ErrBusy
	}

	// Any text at all gets the sign-in notice first; even a greeting
	// needs an identity to be answered.
	if s.identity == "" {
		s.log.Append(model.NewUserMessage(text))
		s.log.Append(model.NewNoticeMessage(signInNotice))
		s.mu.Unlock()
		s.notify()
		return nil
	}

	// Greetings are answered locally; they never reach the backend.
	if reply, ok := s.greetingReply(text); ok {
		s.log.Append(model.NewUserMessage(text))
		bot := model.NewBotMessage(reply)
		s.log.Append(bot)
		s.mu.Unlock()
		s.persist()
		s.startReveal(bot)
		s.notify()
		return nil
	}

	s.log.Append(model.NewUserMessage(text))
	pending := s.log.AppendPlaceholder()
	s.inFlight = true
	identity := s.identity
	current := s.machine.Current()
	dataset := s.machine.ActiveDataset()
	website := s.machine.ActiveWebsite()
	s.mu.Unlock()
	s.notify()

	result := s.dispatch(ctx, current, identity, text, dataset, website)

	s.mu.Lock()
	s.inFlight = false
	bot := s.resultMessage(current, website, result)
	if err := s.log.Resolve(pending, bot); err != nil {
		// The log was cleared while the call was airborne. The reply
		// belongs to a conversation that no longer exists; drop it.
		s.mu.Unlock()
		s.logger.Debug("discarded reply for cleared conversation", zap.Error(err))
		s.notify()
		return nil
	}
	s.mu.Unlock()

	if current == mode.Website && !result.OK {
		s.handleWebsiteFailure(website, result.Error)
	}

	s.persist()
	if result.OK {
		s.startReveal(bot)
	}
	s.notify()
	return nil
}

// dispatch routes a turn to the facade call for the active mode. Plain
// and KnowledgeBase share an endpoint; the backend's knowledge-base flag
// decides retrieval.
func (s *Session) dispatch(ctx context.Context, m mode.Mode, identity, text, dataset, website string) api.ChatResult {
	switch m {
	case mode.Csv:
		return s.client.SendMessage(ctx, identity, text, dataset)
	case mode.Website:
		return s.client.ChatWithWebsite(ctx, identity, website, text)
	default:
		return s.client.SendMessage(ctx, identity, text, "")
	}
}

// resultMessage converts a facade result into the bot message that
// resolves the placeholder.
func (s *Session) resultMessage(m mode.Mode, website string, r api.ChatResult) *model.Message {
	if !r.OK {
		return model.NewBotMessage(r.Error)
	}

	bot := model.NewBotMessage(r.Text)
	bot.SourceDocument = r.SourceDocument
	bot.SuggestedFollowUps = r.SuggestedFollowUps
	bot.Visualizations = r.Visualizations
	if m == mode.Website {
		bot.SourceURL = website
	}
	return bot
}

// websiteFailureMarkers are the error-text fragments treated as evidence
// the site itself cannot be ingested, as opposed to a transient backend
// fault. A match evicts the site from the catalog.
var websiteFailureMarkers = []string{"fail", "unavailable", "incorrect"}

// handleWebsiteFailure decides whether a website-mode error means the
// site is bad. If so the site is evicted, the mode drops to Plain, and a
// follow-up notice tells the user what happened.
func (s *Session) handleWebsiteFailure(website, errText string) {
	lower := strings.ToLower(errText)
	evict := false
	for _, marker := range websiteFailureMarkers {
		if strings.Contains(lower, marker) {
			evict = true
			break
		}
	}
	if !evict {
		return
	}

	s.mu.Lock()
	s.machine.EvictWebsite(website)
	s.log.Append(model.NewNoticeMessage(
		"I couldn't read " + website + ", so I've removed it and switched back to normal chat. " +
			"You can add it again with /web once it's reachable."))
	s.mu.Unlock()
	s.logger.Info("evicted website after failure", zap.String("url", website))
}

// =============================================================================
// SUGGESTED FOLLOW-UPS
// =============================================================================

// ErrNoSuggestion reports a follow-up selection with nothing to select.
var ErrNoSuggestion = errors.New("no such suggestion")

// Suggestions returns the follow-ups offered by the latest bot reply, or
// nil when the latest reply offered none.
func (s *Session) Suggestions() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	msgs := s.log.Messages()
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].Role == model.RoleBot && !msgs[i].IsPlaceholder() {
			return msgs[i].SuggestedFollowUps
		}
	}
	return nil
}

// SelectSuggestion turns the latest reply's n-th follow-up (1-based) into
// a user turn. The selection goes through the bus so any surface that
// offers suggestions shares one path; without a bus it is sent directly.
func (s *Session) SelectSuggestion(ctx context.Context, n int) error {
	suggestions := s.Suggestions()
	if n < 1 || n > len(suggestions) {
		return ErrNoSuggestion
	}
	text := suggestions[n-1]
	if s.events != nil {
		s.events.PublishSuggestionClicked(text)
		return nil
	}
	return s.Send(ctx, text)
}

// =============================================================================
// BUS WIRING
// =============================================================================

// SubscribeBus attaches the session to the process event bus: uploads
// grow the dataset catalog, deletions shrink it, and clicked suggestions
// become ordinary user turns.
func (s *Session) SubscribeBus(ctx context.Context) error {
	if s.events == nil {
		return nil
	}
	return s.events.Subscribe(ctx, bus.Handlers{
		DocumentUploaded: func(ev bus.DocumentUploaded) {
			if ev.Kind != "csv" {
				return
			}
			s.mu.Lock()
			s.machine.AddDataset(ev.Filename)
			err := s.machine.ActivateDataset(ev.Filename)
			s.mu.Unlock()
			if err != nil {
				s.logger.Warn("could not activate uploaded dataset",
					zap.String("filename", ev.Filename), zap.Error(err))
			}
			s.persist()
			s.notify()
		},
		DocumentDeleted: func(ev bus.DocumentDeleted) {
			s.mu.Lock()
			s.machine.RemoveDataset(ev.Filename)
			s.mu.Unlock()
			s.persist()
			s.notify()
		},
		SuggestionClicked: func(ev bus.SuggestionClicked) {
			if err := s.Send(ctx, ev.Text); err != nil {
				s.logger.Debug("suggestion turn rejected", zap.Error(err))
			}
		},
	})
}
