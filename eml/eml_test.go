package eml

import (
	"os"
	"path/filepath"
	"testing"
)

const sampleMessage = "Message-ID: <abc@example.com>\r\n" +
	"Date: Mon, 01 Jan 2024 10:00:00 +0000\r\n" +
	"From: sender@example.com\r\n" +
	"Subject: Test\r\n" +
	"\r\n" +
	"Body content\r\n"

func TestParse(t *testing.T) {
	headers := Parse([]byte(sampleMessage))

	if headers.MessageID != "<abc@example.com>" {
		t.Errorf("MessageID = %q, want %q", headers.MessageID, "<abc@example.com>")
	}
	if headers.Date != "Mon, 01 Jan 2024 10:00:00 +0000" {
		t.Errorf("Date = %q, want %q", headers.Date, "Mon, 01 Jan 2024 10:00:00 +0000")
	}
}

func TestParse_MissingHeaders(t *testing.T) {
	raw := []byte("From: sender@example.com\r\n\r\nBody\r\n")
	headers := Parse(raw)

	if headers.MessageID != "" {
		t.Errorf("MessageID = %q, want empty", headers.MessageID)
	}
	if headers.Date != "" {
		t.Errorf("Date = %q, want empty", headers.Date)
	}
}

func TestParse_Malformed(t *testing.T) {
	headers := Parse([]byte("not a message at all"))

	if headers.MessageID != "" || headers.Date != "" {
		t.Errorf("expected empty headers for malformed input, got %+v", headers)
	}
}

func TestReceivedAt(t *testing.T) {
	received, ok := ReceivedAt("Mon, 01 Jan 2024 10:00:00 +0000")
	if !ok {
		t.Fatal("expected date to parse")
	}

	if got := received.UnixMilli(); got != 1704103200000 {
		t.Errorf("UnixMilli() = %d, want 1704103200000", got)
	}
}

func TestReceivedAt_Invalid(t *testing.T) {
	if _, ok := ReceivedAt(""); ok {
		t.Error("expected empty date to be rejected")
	}
	if _, ok := ReceivedAt("not a date"); ok {
		t.Error("expected malformed date to be rejected")
	}
}

func TestDiscover_SortedOrder(t *testing.T) {
	dir := t.TempDir()
	for _, name := range []string{"c.eml", "a.eml", "b.eml", "notes.txt"} {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(sampleMessage), 0o644); err != nil {
			t.Fatalf("write %s: %v", name, err)
		}
	}

	files, err := Discover(dir, false)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}

	want := []string{
		filepath.Join(dir, "a.eml"),
		filepath.Join(dir, "b.eml"),
		filepath.Join(dir, "c.eml"),
	}
	if len(files) != len(want) {
		t.Fatalf("got %d files, want %d", len(files), len(want))
	}
	for i := range want {
		if files[i] != want[i] {
			t.Errorf("files[%d] = %q, want %q", i, files[i], want[i])
		}
	}
}

func TestDiscover_SingleFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "one.eml")
	if err := os.WriteFile(path, []byte(sampleMessage), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	files, err := Discover(path, false)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 || files[0] != path {
		t.Errorf("files = %v, want [%s]", files, path)
	}
}

func TestDiscover_Recursive(t *testing.T) {
	dir := t.TempDir()
	sub := filepath.Join(dir, "sub")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("mkdir: %v", err)
	}
	if err := os.WriteFile(filepath.Join(sub, "deep.eml"), []byte(sampleMessage), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	if _, err := Discover(dir, false); err == nil {
		t.Error("expected no-input error without recursion")
	}

	files, err := Discover(dir, true)
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	if len(files) != 1 {
		t.Errorf("got %d files, want 1", len(files))
	}
}

func TestDiscover_Empty(t *testing.T) {
	if _, err := Discover(t.TempDir(), false); err == nil {
		t.Error("expected error for an empty directory")
	}
}

func TestStream_EmlFiles(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "msg.eml")
	if err := os.WriteFile(path, []byte(sampleMessage), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var items []Item
	err := Stream([]string{path}, func(item Item) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ReadErr != nil {
		t.Errorf("ReadErr = %v, want nil", items[0].ReadErr)
	}
	if items[0].Name != path {
		t.Errorf("Name = %q, want %q", items[0].Name, path)
	}
	if string(items[0].Raw) != sampleMessage {
		t.Error("Raw does not match file content")
	}
}

func TestStream_UnreadableFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.eml")

	var items []Item
	err := Stream([]string{path}, func(item Item) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if len(items) != 1 {
		t.Fatalf("got %d items, want 1", len(items))
	}
	if items[0].ReadErr == nil {
		t.Error("expected ReadErr for a missing file")
	}
}

func TestStream_Mbox(t *testing.T) {
	mbox := "From sender@example.com Mon Jan  1 10:00:00 2024\n" +
		"Message-ID: <one@example.com>\n" +
		"Subject: First\n" +
		"\n" +
		"Body one\n" +
		"\n" +
		"From sender@example.com Mon Jan  1 11:00:00 2024\n" +
		"Message-ID: <two@example.com>\n" +
		"Subject: Second\n" +
		"\n" +
		"Body two\n"

	path := filepath.Join(t.TempDir(), "archive.mbox")
	if err := os.WriteFile(path, []byte(mbox), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	var items []Item
	err := Stream([]string{path}, func(item Item) error {
		items = append(items, item)
		return nil
	})
	if err != nil {
		t.Fatalf("Stream() error = %v", err)
	}

	if len(items) != 2 {
		t.Fatalf("got %d items, want 2", len(items))
	}
	if items[0].Name != path+"#0" {
		t.Errorf("Name = %q, want %q", items[0].Name, path+"#0")
	}
	if got := Parse(items[1].Raw).MessageID; got != "<two@example.com>" {
		t.Errorf("second member MessageID = %q, want <two@example.com>", got)
	}

	if n := Count([]string{path}); n != 2 {
		t.Errorf("Count() = %d, want 2", n)
	}
}
