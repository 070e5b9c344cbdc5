package stats

import (
	"errors"
	"testing"
)

func TestCollector_Apply(t *testing.T) {
	c := NewCollector()

	events := []Event{
		{Type: EventTypeScanned},
		{Type: EventTypeScanned},
		{Type: EventTypeScanned},
		{Type: EventTypeScanned},
		{Type: EventTypeImported},
		{Type: EventTypeImportedNoLabel},
		{Type: EventTypeDuplicate},
		{Type: EventTypeFailed, Err: errors.New("boom")},
	}
	for _, evt := range events {
		c.Apply(evt)
	}

	summary := c.Snapshot()
	if summary.Scanned != 4 {
		t.Errorf("Scanned = %d, want 4", summary.Scanned)
	}
	if summary.Imported != 1 {
		t.Errorf("Imported = %d, want 1", summary.Imported)
	}
	if summary.ImportedNoLabel != 1 {
		t.Errorf("ImportedNoLabel = %d, want 1", summary.ImportedNoLabel)
	}
	if summary.Duplicates != 1 {
		t.Errorf("Duplicates = %d, want 1", summary.Duplicates)
	}
	if summary.Failed != 1 {
		t.Errorf("Failed = %d, want 1", summary.Failed)
	}
	if summary.LastError == nil || summary.LastError.Error() != "boom" {
		t.Errorf("LastError = %v, want boom", summary.LastError)
	}
}

func TestSummary_SuccessfulImports(t *testing.T) {
	s := Summary{
		Imported:        3,
		ImportedNoLabel: 1,
		LabelFailures:   2,
		DryRun:          4,
		Duplicates:      7,
		Failed:          5,
	}

	if got := s.SuccessfulImports(); got != 10 {
		t.Errorf("SuccessfulImports() = %d, want 10", got)
	}
}

func TestSummary_LogAttrs(t *testing.T) {
	s := Summary{Scanned: 2, Failed: 1, LastError: errors.New("boom")}

	attrs := s.LogAttrs()
	if len(attrs)%2 != 0 {
		t.Fatalf("LogAttrs() length %d is not key-value paired", len(attrs))
	}

	found := false
	for i := 0; i < len(attrs); i += 2 {
		if attrs[i] == "lastError" {
			found = true
			if attrs[i+1] != "boom" {
				t.Errorf("lastError = %v, want boom", attrs[i+1])
			}
		}
	}
	if !found {
		t.Error("expected lastError attr when LastError is set")
	}
}

func TestSnapshot_IsCopy(t *testing.T) {
	c := NewCollector()
	c.Apply(Event{Type: EventTypeImported})

	first := c.Snapshot()
	c.Apply(Event{Type: EventTypeImported})

	if first.Imported != 1 {
		t.Errorf("snapshot mutated: Imported = %d, want 1", first.Imported)
	}
	if c.Snapshot().Imported != 2 {
		t.Errorf("collector lost an event")
	}
}
