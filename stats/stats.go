package stats

import (
	"fmt"
	"sort"
	"sync"
)

type EventType string

const (
	EventTypeScanned         EventType = "scanned"
	EventTypeFiltered        EventType = "filtered"
	EventTypeImported        EventType = "imported"
	EventTypeImportedNoLabel EventType = "imported_no_label"
	EventTypeLabelFailed     EventType = "label_failed"
	EventTypeDuplicate       EventType = "duplicate"
	EventTypeDryRun          EventType = "dry_run"
	EventTypeFailed          EventType = "failed"
)

type Event struct {
	Type   EventType
	Name   string
	Detail string
	Err    error
}

// Summary aggregates one batch. Imported-family counters are split so the
// log can show label trouble, while the final report folds them together.
type Summary struct {
	Scanned         int
	Filtered        int
	Imported        int
	ImportedNoLabel int
	LabelFailures   int
	Duplicates      int
	DryRun          int
	Failed          int
	LastError       error
}

// SuccessfulImports counts every outcome that put (or, dry-run, would have
// put) a message into the mailbox.
func (s Summary) SuccessfulImports() int {
	return s.Imported + s.ImportedNoLabel + s.LabelFailures + s.DryRun
}

func (s Summary) LogAttrs() []any {
	attrs := []any{
		"scanned", s.Scanned,
		"filtered", s.Filtered,
		"imported", s.Imported,
		"importedNoLabel", s.ImportedNoLabel,
		"labelFailures", s.LabelFailures,
		"duplicates", s.Duplicates,
		"dryRun", s.DryRun,
		"failed", s.Failed,
	}
	if s.LastError != nil {
		attrs = append(attrs, "lastError", s.LastError.Error())
	}
	return attrs
}

type Collector struct {
	mu      sync.Mutex
	summary Summary
}

func NewCollector() *Collector {
	return &Collector{}
}

func (c *Collector) Apply(evt Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	switch evt.Type {
	case EventTypeScanned:
		c.summary.Scanned++
	case EventTypeFiltered:
		c.summary.Filtered++
	case EventTypeImported:
		c.summary.Imported++
	case EventTypeImportedNoLabel:
		c.summary.ImportedNoLabel++
	case EventTypeLabelFailed:
		c.summary.LabelFailures++
	case EventTypeDuplicate:
		c.summary.Duplicates++
	case EventTypeDryRun:
		c.summary.DryRun++
	case EventTypeFailed:
		c.summary.Failed++
		if evt.Err != nil {
			c.summary.LastError = evt.Err
		}
	}
}

func (c *Collector) Snapshot() Summary {
	c.mu.Lock()
	summary := c.summary
	c.mu.Unlock()
	return summary
}

// PrettyPrintTop prints the top N most frequent items in a map.
func PrettyPrintTop(m map[string]int, limit int) {
	type pair struct {
		Key   string
		Value int
	}

	var pairs []pair
	for k, v := range m {
		pairs = append(pairs, pair{k, v})
	}

	sort.Slice(pairs, func(i, j int) bool {
		return pairs[i].Value > pairs[j].Value
	})

	for i := 0; i < limit && i < len(pairs); i++ {
		fmt.Printf("%d. %s (%d)\n", i+1, pairs[i].Key, pairs[i].Value)
	}
}
