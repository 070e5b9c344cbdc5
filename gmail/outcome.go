package gmail

import "fmt"

// Status classifies the result of one import attempt. Callers count and
// branch on the status, never on display text.
type Status int

const (
	StatusImported Status = iota
	StatusImportedNoLabel
	StatusImportedLabelFailed
	StatusSkippedDuplicate
	StatusDryRun
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusImported:
		return "imported"
	case StatusImportedNoLabel:
		return "imported_no_label"
	case StatusImportedLabelFailed:
		return "imported_label_failed"
	case StatusSkippedDuplicate:
		return "skipped_duplicate"
	case StatusDryRun:
		return "dry_run"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// Imported reports whether the message ended up in the mailbox. Label
// trouble does not undo an import.
func (s Status) Imported() bool {
	switch s {
	case StatusImported, StatusImportedNoLabel, StatusImportedLabelFailed, StatusDryRun:
		return true
	}
	return false
}

// Outcome is the result of processing one input item. Exactly one Outcome
// exists per item; it is never mutated after creation.
type Outcome struct {
	Status  Status
	Name    string
	GmailID string
	Reason  string
}

// Summary renders a one-line human-readable description for progress output.
func (o Outcome) Summary() string {
	switch o.Status {
	case StatusImported:
		return fmt.Sprintf("IMPORTED: %s", o.Name)
	case StatusImportedNoLabel:
		return fmt.Sprintf("IMPORTED (no label): %s", o.Name)
	case StatusImportedLabelFailed:
		return fmt.Sprintf("IMPORTED (label failed): %s", o.Name)
	case StatusSkippedDuplicate:
		return fmt.Sprintf("SKIPPED (duplicate): %s", o.Name)
	case StatusDryRun:
		return fmt.Sprintf("DRY-RUN: %s", o.Name)
	case StatusFailed:
		return fmt.Sprintf("FAILED: %s", o.Reason)
	}
	return o.Name
}
