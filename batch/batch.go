// Package batch drives the import sequentially: one message is fully
// processed before the next begins, so the Gmail session is only ever used
// from one goroutine. The dominant cost is network round trips; a bounded
// worker pool over the per-item loop would be the natural extension point,
// since outcomes are independent per item.
package batch

import (
	"context"
	"errors"
	"log/slog"

	"github.com/emltools/eml-to-gmail/eml"
	"github.com/emltools/eml-to-gmail/filter"
	"github.com/emltools/eml-to-gmail/gmail"
	"github.com/emltools/eml-to-gmail/progress"
	"github.com/emltools/eml-to-gmail/stats"
)

type Batch struct {
	importer  *gmail.Importer
	filter    *filter.Filter
	collector *stats.Collector
	bar       *progress.Bar
	logger    *slog.Logger
}

func New(importer *gmail.Importer, f *filter.Filter, bar *progress.Bar, logger *slog.Logger) (*Batch, error) {
	if importer == nil {
		return nil, errors.New("importer must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Batch{
		importer:  importer,
		filter:    f,
		collector: stats.NewCollector(),
		bar:       bar,
		logger:    logger,
	}, nil
}

// Run processes every message the sources yield and returns the aggregate
// summary. One item's failure never halts the rest; only a cancelled context
// or a broken source stops the loop early, and even then the summary covers
// everything processed so far.
func (b *Batch) Run(ctx context.Context, paths []string) (stats.Summary, error) {
	err := eml.Stream(paths, func(item eml.Item) error {
		if err := ctx.Err(); err != nil {
			return err
		}

		b.apply(stats.Event{Type: stats.EventTypeScanned, Name: item.Name})

		if item.ReadErr == nil && b.filter != nil && !b.filter.Allows(item.Raw) {
			b.apply(stats.Event{Type: stats.EventTypeFiltered, Name: item.Name})
			b.logger.Debug("filtered out", "name", item.Name)
			return nil
		}

		outcome := b.importer.ImportOne(ctx, item)
		b.report(outcome)
		return nil
	})

	if b.bar != nil {
		b.bar.Stop()
	}

	return b.collector.Snapshot(), err
}

func (b *Batch) report(outcome gmail.Outcome) {
	evt := eventFor(outcome)
	b.apply(evt)

	if b.bar == nil || !b.bar.Enabled() {
		b.logger.Info("processed", "name", outcome.Name, "status", outcome.Status.String())
	} else {
		b.logger.Debug("processed", "name", outcome.Name, "status", outcome.Status.String())
	}
}

func (b *Batch) apply(evt stats.Event) {
	b.collector.Apply(evt)
	if b.bar != nil {
		b.bar.Update(evt)
	}
}

func eventFor(outcome gmail.Outcome) stats.Event {
	evt := stats.Event{Name: outcome.Name, Detail: outcome.Summary()}
	switch outcome.Status {
	case gmail.StatusImported:
		evt.Type = stats.EventTypeImported
	case gmail.StatusImportedNoLabel:
		evt.Type = stats.EventTypeImportedNoLabel
	case gmail.StatusImportedLabelFailed:
		evt.Type = stats.EventTypeLabelFailed
	case gmail.StatusSkippedDuplicate:
		evt.Type = stats.EventTypeDuplicate
	case gmail.StatusDryRun:
		evt.Type = stats.EventTypeDryRun
	case gmail.StatusFailed:
		evt.Type = stats.EventTypeFailed
		evt.Err = errors.New(outcome.Reason)
	}
	return evt
}
