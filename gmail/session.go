package gmail

import (
	"context"
	"fmt"

	gmailapi "google.golang.org/api/gmail/v1"
)

// Session is the slice of the Gmail API the importer needs. Keeping it this
// small lets tests substitute a fake and keeps every remote interaction
// explicit at the call site.
type Session interface {
	ListLabels(ctx context.Context) ([]*gmailapi.Label, error)
	CreateLabel(ctx context.Context, label *gmailapi.Label) (*gmailapi.Label, error)
	Search(ctx context.Context, query string, maxResults int64) ([]*gmailapi.Message, error)
	Import(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Message, error)
	AddLabels(ctx context.Context, id string, labelIDs []string) error
}

type apiSession struct {
	svc *gmailapi.Service
}

// NewSession wraps an authorized Gmail service.
func NewSession(svc *gmailapi.Service) Session {
	return &apiSession{svc: svc}
}

func (s *apiSession) ListLabels(ctx context.Context) ([]*gmailapi.Label, error) {
	resp, err := s.svc.Users.Labels.List("me").Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("list labels: %w", err)
	}
	return resp.Labels, nil
}

func (s *apiSession) CreateLabel(ctx context.Context, label *gmailapi.Label) (*gmailapi.Label, error) {
	created, err := s.svc.Users.Labels.Create("me", label).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("create label %q: %w", label.Name, err)
	}
	return created, nil
}

func (s *apiSession) Search(ctx context.Context, query string, maxResults int64) ([]*gmailapi.Message, error) {
	resp, err := s.svc.Users.Messages.List("me").Q(query).MaxResults(maxResults).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("search messages: %w", err)
	}
	return resp.Messages, nil
}

// Import submits a raw message for ingestion. This is a bulk migration, not
// live delivery, so spam classification and calendar processing are
// suppressed.
func (s *apiSession) Import(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Message, error) {
	imported, err := s.svc.Users.Messages.Import("me", msg).
		NeverMarkSpam(true).
		ProcessForCalendar(false).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("import message: %w", err)
	}
	return imported, nil
}

func (s *apiSession) AddLabels(ctx context.Context, id string, labelIDs []string) error {
	req := &gmailapi.ModifyMessageRequest{AddLabelIds: labelIDs}
	if _, err := s.svc.Users.Messages.Modify("me", id, req).Context(ctx).Do(); err != nil {
		return fmt.Errorf("modify labels on %s: %w", id, err)
	}
	return nil
}
