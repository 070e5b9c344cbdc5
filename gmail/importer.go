package gmail

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gmailapi "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/emltools/eml-to-gmail/eml"
	"github.com/emltools/eml-to-gmail/state"
)

type Options struct {
	Label           string
	CheckDuplicates bool
	DryRun          bool
}

// Importer performs the per-message import against a Session. It never
// returns an error to its caller; every failure mode is folded into the
// Outcome so one bad message cannot stop a batch.
type Importer struct {
	session Session
	tracker state.Tracker
	opts    Options
	logger  *slog.Logger
}

func NewImporter(session Session, tracker state.Tracker, opts Options, logger *slog.Logger) (*Importer, error) {
	if session == nil && !opts.DryRun {
		return nil, fmt.Errorf("session must not be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		session: session,
		tracker: tracker,
		opts:    opts,
		logger:  logger,
	}, nil
}

// Exists reports whether a message with the given Message-ID header is
// already present in the mailbox. Any search failure is reported as "not
// found": a false negative merely risks a duplicate import, while a false
// positive would silently drop a message.
func (im *Importer) Exists(ctx context.Context, messageIDHeader string) bool {
	clean := cleanMessageID(messageIDHeader)
	if clean == "" {
		return false
	}

	matches, err := im.session.Search(ctx, "rfc822msgid:"+clean, 1)
	if err != nil {
		attrs := []any{"messageID", clean, "err", err}
		var apiErr *googleapi.Error
		if errors.As(err, &apiErr) {
			attrs = append(attrs, "status", apiErr.Code)
		}
		im.logger.Warn("duplicate check failed, importing anyway", attrs...)
		return false
	}
	return len(matches) > 0
}

// ResolveLabel maps a label name to its id, creating the label when absent.
// The second return is false when the remote end failed; the caller is
// expected to proceed unlabeled.
func (im *Importer) ResolveLabel(ctx context.Context, name string) (string, bool) {
	labels, err := im.session.ListLabels(ctx)
	if err != nil {
		im.logger.Warn("list labels failed", "label", name, "err", err)
		return "", false
	}

	for _, label := range labels {
		if label.Name == name {
			return label.Id, true
		}
	}

	created, err := im.session.CreateLabel(ctx, &gmailapi.Label{
		Name:                  name,
		LabelListVisibility:   "labelShow",
		MessageListVisibility: "show",
	})
	if err != nil {
		im.logger.Warn("create label failed", "label", name, "err", err)
		return "", false
	}

	im.logger.Info("created label", "label", name, "id", created.Id)
	return created.Id, true
}

// ImportOne runs the full pipeline for a single item: duplicate check,
// payload encoding, timestamp preservation, submission, best-effort label.
func (im *Importer) ImportOne(ctx context.Context, item eml.Item) Outcome {
	if item.ReadErr != nil {
		return Outcome{
			Status: StatusFailed,
			Name:   item.Name,
			Reason: fmt.Sprintf("%s - %v", item.Name, item.ReadErr),
		}
	}

	headers := eml.Parse(item.Raw)
	messageID := cleanMessageID(headers.MessageID)

	if im.opts.CheckDuplicates && messageID != "" {
		if im.tracker != nil && im.tracker.AlreadyImported(messageID) {
			return Outcome{Status: StatusSkippedDuplicate, Name: item.Name}
		}
		if !im.opts.DryRun && im.Exists(ctx, headers.MessageID) {
			return Outcome{Status: StatusSkippedDuplicate, Name: item.Name}
		}
	}

	if im.opts.DryRun {
		return Outcome{Status: StatusDryRun, Name: item.Name}
	}

	msg := &gmailapi.Message{
		Raw: base64.URLEncoding.EncodeToString(item.Raw),
	}
	if receivedAt, ok := eml.ReceivedAt(headers.Date); ok {
		msg.InternalDate = receivedAt.UnixMilli()
	}

	imported, err := im.session.Import(ctx, msg)
	if err != nil {
		return Outcome{
			Status: StatusFailed,
			Name:   item.Name,
			Reason: fmt.Sprintf("%s - %v", item.Name, err),
		}
	}

	if im.tracker != nil && messageID != "" {
		if err := im.tracker.MarkImported(messageID, imported.Id); err != nil {
			im.logger.Warn("journal write failed", "messageID", messageID, "err", err)
		}
	}

	if im.opts.Label == "" {
		return Outcome{Status: StatusImported, Name: item.Name, GmailID: imported.Id}
	}

	labelID, ok := im.ResolveLabel(ctx, im.opts.Label)
	if !ok {
		return Outcome{Status: StatusImportedNoLabel, Name: item.Name, GmailID: imported.Id}
	}

	if err := im.session.AddLabels(ctx, imported.Id, []string{labelID}); err != nil {
		im.logger.Warn("label apply failed", "name", item.Name, "label", im.opts.Label, "err", err)
		return Outcome{Status: StatusImportedLabelFailed, Name: item.Name, GmailID: imported.Id}
	}

	return Outcome{Status: StatusImported, Name: item.Name, GmailID: imported.Id}
}

// cleanMessageID strips the surrounding angle brackets a Message-ID header
// usually carries; the search key must be bare.
func cleanMessageID(header string) string {
	return strings.Trim(header, "<> ")
}
