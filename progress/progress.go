package progress

import (
	"sync"

	"github.com/pterm/pterm"

	"github.com/emltools/eml-to-gmail/stats"
)

// Bar renders a progress bar while the batch runs. It is only enabled at the
// default "info" log level; other levels fall back to plain log lines so the
// bar does not fight the logger for the terminal.
type Bar struct {
	pb      *pterm.ProgressbarPrinter
	total   int
	mu      sync.Mutex
	enabled bool
}

func New(total int, logLevel string) *Bar {
	bar := &Bar{
		total:   total,
		enabled: logLevel == "info",
	}

	if bar.enabled {
		pb, _ := pterm.DefaultProgressbar.
			WithTotal(total).
			WithTitle("Importing messages").
			Start()
		bar.pb = pb

		pterm.Info.Printf("Found %d message(s) to import\n", total)
	}

	return bar
}

func (b *Bar) Enabled() bool {
	return b.enabled
}

// Update advances the bar on scanned items and surfaces outcomes in the
// title; failures are printed above the bar so they stay visible.
func (b *Bar) Update(evt stats.Event) {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	switch evt.Type {
	case stats.EventTypeScanned:
		b.pb.Increment()
	case stats.EventTypeFailed:
		if evt.Err != nil {
			pterm.Error.Printf("%v\n", evt.Err)
		}
	default:
		if evt.Detail != "" {
			b.pb.UpdateTitle(truncate(evt.Detail, 60))
		}
	}
}

func (b *Bar) Stop() {
	if !b.enabled || b.pb == nil {
		return
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	if b.pb.Current < b.total {
		b.pb.Current = b.total
	}
	b.pb.Stop()
}

// PrintReport emits the final counters. The duplicate line is only shown
// when duplicate checking ran, matching what the batch actually did.
func PrintReport(summary stats.Summary, dupChecking bool) {
	pterm.Println()
	pterm.Success.Printf("Successfully imported: %d\n", summary.SuccessfulImports())
	if dupChecking {
		pterm.Info.Printf("Skipped duplicates: %d\n", summary.Duplicates)
	}
	if summary.Filtered > 0 {
		pterm.Info.Printf("Filtered out: %d\n", summary.Filtered)
	}
	if summary.Failed > 0 {
		pterm.Error.Printf("Failed imports: %d\n", summary.Failed)
	} else {
		pterm.Info.Printf("Failed imports: %d\n", summary.Failed)
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
