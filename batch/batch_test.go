package batch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	gmailapi "google.golang.org/api/gmail/v1"

	"github.com/emltools/eml-to-gmail/eml"
	"github.com/emltools/eml-to-gmail/filter"
	"github.com/emltools/eml-to-gmail/gmail"
	"github.com/emltools/eml-to-gmail/state"
)

// stubSession fails any import whose body contains "FAILME" and accepts the
// rest.
type stubSession struct {
	imports int
}

func (s *stubSession) ListLabels(ctx context.Context) ([]*gmailapi.Label, error) {
	return nil, nil
}

func (s *stubSession) CreateLabel(ctx context.Context, label *gmailapi.Label) (*gmailapi.Label, error) {
	return &gmailapi.Label{Id: "Label_1", Name: label.Name}, nil
}

func (s *stubSession) Search(ctx context.Context, query string, maxResults int64) ([]*gmailapi.Message, error) {
	return nil, nil
}

func (s *stubSession) Import(ctx context.Context, msg *gmailapi.Message) (*gmailapi.Message, error) {
	raw, err := base64.URLEncoding.DecodeString(msg.Raw)
	if err != nil {
		return nil, err
	}
	if strings.Contains(string(raw), "FAILME") {
		return nil, errors.New("rejected")
	}
	s.imports++
	return &gmailapi.Message{Id: fmt.Sprintf("msg_%d", s.imports)}, nil
}

func (s *stubSession) AddLabels(ctx context.Context, id string, labelIDs []string) error {
	return nil
}

func writeMessages(t *testing.T, dir string, bodies map[string]string) []string {
	t.Helper()
	for name, body := range bodies {
		raw := fmt.Sprintf("Message-ID: <%s@example.com>\r\nSubject: %s\r\n\r\n%s\r\n", name, name, body)
		if err := os.WriteFile(filepath.Join(dir, name+".eml"), []byte(raw), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := eml.Discover(dir, false)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	return files
}

func newBatch(t *testing.T, session gmail.Session, f *filter.Filter, opts gmail.Options) *Batch {
	t.Helper()
	importer, err := gmail.NewImporter(session, state.NewMemoryTracker(), opts, nil)
	if err != nil {
		t.Fatalf("NewImporter() error = %v", err)
	}
	b, err := New(importer, f, nil, nil)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return b
}

func TestRun_FailureIsolation(t *testing.T) {
	files := writeMessages(t, t.TempDir(), map[string]string{
		"alpha": "fine",
		"beta":  "FAILME please",
		"gamma": "fine",
		"delta": "FAILME again",
		"echo":  "fine",
	})

	b := newBatch(t, &stubSession{}, nil, gmail.Options{CheckDuplicates: true})

	summary, err := b.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Scanned != 5 {
		t.Errorf("Scanned = %d, want 5", summary.Scanned)
	}
	if summary.Failed != 2 {
		t.Errorf("Failed = %d, want 2", summary.Failed)
	}
	if summary.SuccessfulImports() != 3 {
		t.Errorf("SuccessfulImports() = %d, want 3", summary.SuccessfulImports())
	}
	if summary.LastError == nil {
		t.Error("expected LastError to carry the final failure")
	}
}

func TestRun_Filtered(t *testing.T) {
	files := writeMessages(t, t.TempDir(), map[string]string{
		"keep": "wanted content",
		"drop": "newsletter blast",
	})

	f, err := filter.New(filter.Options{ExcludeBody: []string{"newsletter"}})
	if err != nil {
		t.Fatalf("filter.New() error = %v", err)
	}

	b := newBatch(t, &stubSession{}, f, gmail.Options{})

	summary, err := b.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Filtered != 1 {
		t.Errorf("Filtered = %d, want 1", summary.Filtered)
	}
	if summary.Imported != 1 {
		t.Errorf("Imported = %d, want 1", summary.Imported)
	}
}

func TestRun_DryRunTouchesNothing(t *testing.T) {
	files := writeMessages(t, t.TempDir(), map[string]string{
		"one": "body",
		"two": "body",
	})

	session := &stubSession{}
	b := newBatch(t, session, nil, gmail.Options{DryRun: true, CheckDuplicates: true})

	summary, err := b.Run(context.Background(), files)
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if session.imports != 0 {
		t.Errorf("imports = %d, want 0 in dry-run", session.imports)
	}
	if summary.DryRun != 2 {
		t.Errorf("DryRun = %d, want 2", summary.DryRun)
	}
	if summary.SuccessfulImports() != 2 {
		t.Errorf("SuccessfulImports() = %d, want 2", summary.SuccessfulImports())
	}
}

func TestRun_CancelledContext(t *testing.T) {
	files := writeMessages(t, t.TempDir(), map[string]string{"one": "body"})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := newBatch(t, &stubSession{}, nil, gmail.Options{})

	summary, err := b.Run(ctx, files)
	if err == nil {
		t.Fatal("expected context cancellation error")
	}
	if summary.Scanned != 0 {
		t.Errorf("Scanned = %d, want 0 after immediate cancel", summary.Scanned)
	}
}

func TestNew_RequiresImporter(t *testing.T) {
	if _, err := New(nil, nil, nil, nil); err == nil {
		t.Error("expected error for nil importer")
	}
}
