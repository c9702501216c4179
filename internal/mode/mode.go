// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package mode owns the four-way exclusive context mode.
package mode

import (
	"errors"
	"sort"
)

// =============================================================================
// MODE TYPE
// =============================================================================

// Mode is the single active backend context a user message is routed
// through. Exactly one mode is active at any time.
type Mode int

const (
	Plain Mode = iota
	KnowledgeBase
	Csv
	Website
)

// String returns the mode name.
func (m Mode) String() string {
	switch m {
	case KnowledgeBase:
		return "knowledge-base"
	case Csv:
		return "csv"
	case Website:
		return "website"
	default:
		return "plain"
	}
}

// Stateful reports whether the mode carries server-side or pointer state
// that must be released when another mode takes over.
func (m Mode) Stateful() bool {
	return m != Plain
}

// =============================================================================
// ERRORS
// =============================================================================

var (
	// ErrNoDatasets is reported when activating CSV mode with no known
	// dataset to point at.
	ErrNoDatasets = errors.New("no files available")

	// ErrNoWebsite is reported when activating website mode without a URL.
	ErrNoWebsite = errors.New("no website selected")

	// ErrUnknownDataset is reported when selecting a dataset that was
	// never activated for this identity.
	ErrUnknownDataset = errors.New("unknown dataset")
)

// =============================================================================
// DEACTIVATION NOTIFIER
// =============================================================================

// Notifier receives best-effort deactivation notifications so the
// backend's single knowledge-base flag stays consistent with the client's
// exclusive selection. Errors are the notifier's problem; the machine
// never blocks a transition on them.
type Notifier interface {
	KnowledgeBaseDeactivated()
	KnowledgeBaseActivated()
}

// NopNotifier discards all notifications.
type NopNotifier struct{}

func (NopNotifier) KnowledgeBaseDeactivated() {}
func (NopNotifier) KnowledgeBaseActivated()   {}

// =============================================================================
// STATE MACHINE
// =============================================================================

// Machine is the mode state machine for one session. It owns the active
// mode, the dataset/website pointers, and the per-identity catalogs of
// previously activated CSV files and embedded websites. Not safe for
// concurrent use; the session orchestrator is the only mutator.
type Machine struct {
	mode          Mode
	activeDataset string
	activeWebsite string

	knownDatasets map[string]struct{}
	knownWebsites map[string]struct{}

	// latestDataset remembers the most recently added catalog entry so
	// CSV mode can be re-entered without naming a file.
	latestDataset string

	notifier Notifier
}

// NewMachine creates a machine in Plain mode with empty catalogs.
func NewMachine(n Notifier) *Machine {
	if n == nil {
		n = NopNotifier{}
	}
	return &Machine{
		knownDatasets: make(map[string]struct{}),
		knownWebsites: make(map[string]struct{}),
		notifier:      n,
	}
}

// Current returns the active mode.
func (m *Machine) Current() Mode {
	return m.mode
}

// ActiveDataset returns the dataset pointer; valid only in Csv mode.
func (m *Machine) ActiveDataset() string {
	return m.activeDataset
}

// ActiveWebsite returns the website pointer; valid only in Website mode.
func (m *Machine) ActiveWebsite() string {
	return m.activeWebsite
}

// leave releases whichever stateful mode is active, notifying the backend
// when the knowledge base was the one being left.
func (m *Machine) leave() {
	if m.mode == KnowledgeBase {
		m.notifier.KnowledgeBaseDeactivated()
	}
	m.mode = Plain
}

// ActivateKnowledgeBase switches to document knowledge-base mode.
func (m *Machine) ActivateKnowledgeBase() {
	if m.mode == KnowledgeBase {
		return
	}
	m.leave()
	m.mode = KnowledgeBase
	m.notifier.KnowledgeBaseActivated()
}

// ActivateDataset selects a CSV dataset and switches to Csv mode as one
// combined operation; the mode is never settable without a pointer.
func (m *Machine) ActivateDataset(name string) error {
	if name == "" {
		return ErrNoDatasets
	}
	if _, known := m.knownDatasets[name]; !known {
		return ErrUnknownDataset
	}
	m.leave()
	m.mode = Csv
	m.activeDataset = name
	return nil
}

// ActivateLatestDataset switches to Csv mode pointing at the most
// recently added dataset. With an empty catalog this is a no-op reporting
// ErrNoDatasets rather than entering an invalid state.
func (m *Machine) ActivateLatestDataset() error {
	if len(m.knownDatasets) == 0 {
		return ErrNoDatasets
	}
	return m.ActivateDataset(m.latestDataset)
}

// ActivateWebsite selects a website and switches to Website mode as one
// combined operation, recording the URL in the catalog.
func (m *Machine) ActivateWebsite(url string) error {
	if url == "" {
		return ErrNoWebsite
	}
	m.leave()
	m.mode = Website
	m.activeWebsite = url
	m.knownWebsites[url] = struct{}{}
	return nil
}

// Deactivate returns the machine to Plain mode.
func (m *Machine) Deactivate() {
	m.leave()
}

// =============================================================================
// CATALOGS
// =============================================================================

// AddDataset records a successfully activated CSV file.
func (m *Machine) AddDataset(name string) {
	if name == "" {
		return
	}
	m.knownDatasets[name] = struct{}{}
	m.latestDataset = name
}

// KnownDatasets returns the dataset catalog, sorted for stable display.
func (m *Machine) KnownDatasets() []string {
	return sortedKeys(m.knownDatasets)
}

// KnownWebsites returns the website catalog, sorted for stable display.
func (m *Machine) KnownWebsites() []string {
	return sortedKeys(m.knownWebsites)
}

// HasWebsite reports whether a URL is in the website catalog.
func (m *Machine) HasWebsite(url string) bool {
	_, ok := m.knownWebsites[url]
	return ok
}

// EvictWebsite removes a URL from the catalog, clearing the pointer and
// dropping back to Plain when it was the active one.
func (m *Machine) EvictWebsite(url string) {
	delete(m.knownWebsites, url)
	if m.activeWebsite == url {
		m.activeWebsite = ""
		if m.mode == Website {
			m.mode = Plain
		}
	}
}

// RemoveDataset removes a filename from the catalog, clearing the pointer
// and dropping back to Plain when it was the active one.
func (m *Machine) RemoveDataset(name string) {
	delete(m.knownDatasets, name)
	if m.latestDataset == name {
		m.latestDataset = ""
	}
	if m.activeDataset == name {
		m.activeDataset = ""
		if m.mode == Csv {
			m.mode = Plain
		}
	}
}

// =============================================================================
// LIFECYCLE
// =============================================================================

// SignOut forces Plain mode, clears both pointers, and empties the
// website catalog. Catalogs are per-identity and must never leak across
// identities.
func (m *Machine) SignOut() {
	m.mode = Plain
	m.activeDataset = ""
	m.activeWebsite = ""
	m.latestDataset = ""
	m.knownDatasets = make(map[string]struct{})
	m.knownWebsites = make(map[string]struct{})
}

// ClearPointers nulls the dataset and website pointers without touching
// the catalogs.
func (m *Machine) ClearPointers() {
	m.activeDataset = ""
	m.activeWebsite = ""
	if m.mode == Csv || m.mode == Website {
		m.mode = Plain
	}
}

// ChatReset applies a conversation reset. Each stateful context is
// released only when the cleared transcript held no content of its kind:
// content that was present proves the context is still meaningfully
// populated, and it survives the reset.
func (m *Machine) ChatReset(hadPDF, hadCSV, hadWebsite bool) {
	if !hadCSV {
		m.activeDataset = ""
		if m.mode == Csv {
			m.mode = Plain
		}
	}
	if !hadWebsite {
		m.activeWebsite = ""
		if m.mode == Website {
			m.mode = Plain
		}
	}
	if !hadPDF && m.mode == KnowledgeBase {
		m.leave()
	}
}

// ClearDatasets empties the dataset catalog.
func (m *Machine) ClearDatasets() {
	m.knownDatasets = make(map[string]struct{})
	m.latestDataset = ""
}

// ClearWebsites empties the website catalog.
func (m *Machine) ClearWebsites() {
	m.knownWebsites = make(map[string]struct{})
}

// Hydrate restores catalogs and pointers from storage. The mode itself is
// never restored: every session starts in Plain regardless of what was
// durably stored.
func (m *Machine) Hydrate(datasets, websites []string, activeDataset, activeWebsite string) {
	for _, d := range datasets {
		m.AddDataset(d)
	}
	for _, w := range websites {
		if w != "" {
			m.knownWebsites[w] = struct{}{}
		}
	}
	m.activeDataset = activeDataset
	m.activeWebsite = activeWebsite
	m.mode = Plain
}

// sortedKeys returns map keys in sorted order.
func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
