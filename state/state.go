package state

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Tracker remembers which Message-IDs were already imported so re-runs can
// skip them without a remote search. Entries are only written after the
// remote service confirmed the import.
type Tracker interface {
	AlreadyImported(messageID string) bool
	MarkImported(messageID, gmailID string) error
}

type MemoryTracker struct {
	mu       sync.RWMutex
	imported map[string]string
}

func NewMemoryTracker() *MemoryTracker {
	return &MemoryTracker{imported: make(map[string]string)}
}

func (m *MemoryTracker) AlreadyImported(messageID string) bool {
	if messageID == "" {
		return false
	}

	m.mu.RLock()
	_, ok := m.imported[messageID]
	m.mu.RUnlock()
	return ok
}

func (m *MemoryTracker) MarkImported(messageID, gmailID string) error {
	if messageID == "" {
		return nil
	}

	m.mu.Lock()
	m.imported[messageID] = gmailID
	m.mu.Unlock()
	return nil
}

func (m *MemoryTracker) Len() int {
	m.mu.RLock()
	n := len(m.imported)
	m.mu.RUnlock()
	return n
}

// FileTracker persists the journal so future runs skip known imports before
// touching the network.
type FileTracker struct {
	*MemoryTracker
	path    string
	persist bool
	writer  *bufio.Writer
	file    *os.File
	writeMu sync.Mutex
}

type journalRecord struct {
	MessageID string `json:"message_id"`
	GmailID   string `json:"gmail_id"`
}

func NewFileTracker(stateDir string, persist bool) (*FileTracker, error) {
	if strings.TrimSpace(stateDir) == "" {
		return nil, fmt.Errorf("state directory is empty")
	}

	if err := os.MkdirAll(stateDir, 0o755); err != nil {
		return nil, fmt.Errorf("create state directory: %w", err)
	}

	tracker := &FileTracker{
		MemoryTracker: NewMemoryTracker(),
		path:          filepath.Join(stateDir, "imported.jsonl"),
		persist:       persist,
	}

	if err := tracker.load(); err != nil {
		return nil, err
	}

	if persist {
		file, err := os.OpenFile(tracker.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
		if err != nil {
			return nil, fmt.Errorf("open journal for append: %w", err)
		}
		tracker.file = file
		tracker.writer = bufio.NewWriter(file)
	}

	return tracker, nil
}

func (f *FileTracker) load() error {
	file, err := os.Open(f.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("open journal: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for line := 1; scanner.Scan(); line++ {
		text := scanner.Bytes()
		if len(text) == 0 {
			continue
		}

		var record journalRecord
		if err := json.Unmarshal(text, &record); err != nil {
			return fmt.Errorf("parse journal line %d: %w", line, err)
		}
		if record.MessageID == "" {
			continue
		}

		f.mu.Lock()
		f.imported[record.MessageID] = record.GmailID
		f.mu.Unlock()
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("read journal: %w", err)
	}

	return nil
}

func (f *FileTracker) MarkImported(messageID, gmailID string) error {
	if messageID == "" {
		return nil
	}

	f.mu.Lock()
	if _, exists := f.imported[messageID]; exists {
		f.mu.Unlock()
		return nil
	}
	f.imported[messageID] = gmailID
	f.mu.Unlock()

	if !f.persist {
		return nil
	}

	data, err := json.Marshal(journalRecord{MessageID: messageID, GmailID: gmailID})
	if err != nil {
		return fmt.Errorf("encode journal record: %w", err)
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	if _, err := f.writer.Write(data); err != nil {
		return fmt.Errorf("write journal record: %w", err)
	}
	if err := f.writer.WriteByte('\n'); err != nil {
		return fmt.Errorf("write newline: %w", err)
	}

	return nil
}

// Close flushes and closes the journal.
func (f *FileTracker) Close() error {
	if !f.persist || f.file == nil {
		return nil
	}

	f.writeMu.Lock()
	defer f.writeMu.Unlock()

	var firstErr error
	if err := f.writer.Flush(); err != nil {
		firstErr = fmt.Errorf("flush journal: %w", err)
	}
	if err := f.file.Sync(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("sync journal: %w", err)
	}
	if err := f.file.Close(); err != nil && firstErr == nil {
		firstErr = fmt.Errorf("close journal: %w", err)
	}

	return firstErr
}
