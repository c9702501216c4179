// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package mode

import (
	"errors"
	"testing"
)

// recordingNotifier counts knowledge-base flag notifications.
type recordingNotifier struct {
	activated   int
	deactivated int
}

func (n *recordingNotifier) KnowledgeBaseActivated()   { n.activated++ }
func (n *recordingNotifier) KnowledgeBaseDeactivated() { n.deactivated++ }

// =============================================================================
// EXCLUSIVITY TESTS
// =============================================================================

func TestMachine_ExactlyOneActive(t *testing.T) {
	m := NewMachine(nil)
	m.AddDataset("data.csv")

	steps := []struct {
		name     string
		activate func() error
		want     Mode
	}{
		{"kb", func() error { m.ActivateKnowledgeBase(); return nil }, KnowledgeBase},
		{"csv", func() error { return m.ActivateDataset("data.csv") }, Csv},
		{"website", func() error { return m.ActivateWebsite("https://a.com") }, Website},
		{"kb again", func() error { m.ActivateKnowledgeBase(); return nil }, KnowledgeBase},
		{"website again", func() error { return m.ActivateWebsite("https://b.com") }, Website},
	}

	for _, step := range steps {
		if err := step.activate(); err != nil {
			t.Fatalf("%s: %v", step.name, err)
		}
		if m.Current() != step.want {
			t.Errorf("%s: mode = %v, want %v", step.name, m.Current(), step.want)
		}
	}
}

func TestMachine_ActivationDeactivatesPrior(t *testing.T) {
	n := &recordingNotifier{}
	m := NewMachine(n)
	m.AddDataset("data.csv")

	m.ActivateKnowledgeBase()
	if n.activated != 1 {
		t.Errorf("activated = %d, want 1", n.activated)
	}

	// Leaving KB for CSV must notify the backend to drop its flag.
	if err := m.ActivateDataset("data.csv"); err != nil {
		t.Fatalf("ActivateDataset: %v", err)
	}
	if n.deactivated != 1 {
		t.Errorf("deactivated = %d, want 1", n.deactivated)
	}

	// CSV -> Website involves no KB flag traffic.
	m.ActivateWebsite("https://a.com")
	if n.deactivated != 1 {
		t.Errorf("deactivated = %d after website switch, want still 1", n.deactivated)
	}
}

func TestMachine_ActivateKnowledgeBaseIdempotent(t *testing.T) {
	n := &recordingNotifier{}
	m := NewMachine(n)

	m.ActivateKnowledgeBase()
	m.ActivateKnowledgeBase()

	if n.activated != 1 {
		t.Errorf("activated = %d, want 1 (re-activation is a no-op)", n.activated)
	}
}

// =============================================================================
// POINTER REQUIREMENT TESTS
// =============================================================================

func TestMachine_CsvRequiresKnownDataset(t *testing.T) {
	m := NewMachine(nil)

	err := m.ActivateLatestDataset()
	if !errors.Is(err, ErrNoDatasets) {
		t.Errorf("ActivateLatestDataset on empty catalog = %v, want ErrNoDatasets", err)
	}
	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain after refused activation", m.Current())
	}

	if err := m.ActivateDataset("ghost.csv"); !errors.Is(err, ErrUnknownDataset) {
		t.Errorf("ActivateDataset(unknown) = %v, want ErrUnknownDataset", err)
	}
}

func TestMachine_WebsiteRequiresURL(t *testing.T) {
	m := NewMachine(nil)
	if err := m.ActivateWebsite(""); !errors.Is(err, ErrNoWebsite) {
		t.Errorf("ActivateWebsite(\"\") = %v, want ErrNoWebsite", err)
	}
}

func TestMachine_DeactivateReturnsToPlain(t *testing.T) {
	n := &recordingNotifier{}
	m := NewMachine(n)

	m.ActivateKnowledgeBase()
	m.Deactivate()

	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain", m.Current())
	}
	if n.deactivated != 1 {
		t.Errorf("deactivated = %d, want 1", n.deactivated)
	}
}

// =============================================================================
// CATALOG TESTS
// =============================================================================

func TestMachine_CatalogsSurviveModeSwitches(t *testing.T) {
	m := NewMachine(nil)
	m.AddDataset("a.csv")
	m.ActivateWebsite("https://a.com")
	m.ActivateKnowledgeBase()
	m.Deactivate()

	if got := m.KnownDatasets(); len(got) != 1 || got[0] != "a.csv" {
		t.Errorf("KnownDatasets = %v", got)
	}
	if got := m.KnownWebsites(); len(got) != 1 || got[0] != "https://a.com" {
		t.Errorf("KnownWebsites = %v", got)
	}
}

func TestMachine_EvictWebsite(t *testing.T) {
	m := NewMachine(nil)
	m.ActivateWebsite("https://bad.example")

	m.EvictWebsite("https://bad.example")

	if m.HasWebsite("https://bad.example") {
		t.Error("evicted URL should be absent from the catalog")
	}
	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain after evicting the active site", m.Current())
	}
	if m.ActiveWebsite() != "" {
		t.Errorf("ActiveWebsite = %q, want empty", m.ActiveWebsite())
	}
}

func TestMachine_RemoveDataset(t *testing.T) {
	m := NewMachine(nil)
	m.AddDataset("data.csv")
	if err := m.ActivateDataset("data.csv"); err != nil {
		t.Fatal(err)
	}

	m.RemoveDataset("data.csv")

	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain", m.Current())
	}
	if m.ActiveDataset() != "" {
		t.Errorf("ActiveDataset = %q, want empty", m.ActiveDataset())
	}
	if err := m.ActivateLatestDataset(); !errors.Is(err, ErrNoDatasets) {
		t.Errorf("ActivateLatestDataset = %v, want ErrNoDatasets", err)
	}
}

// =============================================================================
// LIFECYCLE TESTS
// =============================================================================

func TestMachine_SignOutClearsEverything(t *testing.T) {
	m := NewMachine(nil)
	m.AddDataset("a.csv")
	m.ActivateWebsite("https://a.com")

	m.SignOut()

	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain", m.Current())
	}
	if m.ActiveWebsite() != "" || m.ActiveDataset() != "" {
		t.Error("pointers should be cleared on sign-out")
	}
	if len(m.KnownWebsites()) != 0 {
		t.Error("website catalog should be emptied on sign-out")
	}
	if len(m.KnownDatasets()) != 0 {
		t.Error("dataset catalog should be emptied on sign-out")
	}
}

func TestMachine_HydrateNeverRestoresMode(t *testing.T) {
	m := NewMachine(nil)
	m.Hydrate([]string{"a.csv"}, []string{"https://a.com"}, "a.csv", "")

	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain (modes are never auto-reactivated)", m.Current())
	}
	if m.ActiveDataset() != "a.csv" {
		t.Errorf("ActiveDataset = %q, want hydrated pointer", m.ActiveDataset())
	}
	if !m.HasWebsite("https://a.com") {
		t.Error("website catalog should hydrate")
	}
}

func TestMachine_ChatResetReleasesOnlyUnsupportedContexts(t *testing.T) {
	m := NewMachine(nil)
	m.AddDataset("sales.csv")
	if err := m.ActivateDataset("sales.csv"); err != nil {
		t.Fatalf("ActivateDataset: %v", err)
	}

	// Transcript held CSV content: the context survives the reset.
	m.ChatReset(false, true, false)
	if m.Current() != Csv || m.ActiveDataset() != "sales.csv" {
		t.Errorf("mode = %v dataset = %q, want Csv/sales.csv to survive", m.Current(), m.ActiveDataset())
	}

	// Transcript held no CSV content: pointer and mode are released.
	m.ChatReset(false, false, false)
	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain", m.Current())
	}
	if m.ActiveDataset() != "" {
		t.Errorf("dataset pointer = %q, want empty", m.ActiveDataset())
	}
	if len(m.KnownDatasets()) != 1 {
		t.Error("catalog must survive chat reset")
	}
}

func TestMachine_ChatResetNotifiesKnowledgeBaseRelease(t *testing.T) {
	n := &recordingNotifier{}
	m := NewMachine(n)
	m.ActivateKnowledgeBase()

	m.ChatReset(true, false, false)
	if m.Current() != KnowledgeBase {
		t.Error("knowledge base with PDF content should outlive reset")
	}

	m.ChatReset(false, false, false)
	if m.Current() != Plain {
		t.Errorf("mode = %v, want Plain", m.Current())
	}
	if n.deactivated != 1 {
		t.Errorf("deactivation notifications = %d, want 1", n.deactivated)
	}
}
