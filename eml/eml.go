package eml

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/mail"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	mboxlib "github.com/emersion/go-mbox"
)

var ErrNoInput = errors.New("no .eml or .mbox files found")

// Item is a single message pulled from an input source. A failed read still
// produces an Item so the batch can account for it; ReadErr carries the
// failure.
type Item struct {
	Name    string
	Raw     []byte
	ReadErr error
}

// Headers is the best-effort view of the two headers the importer needs.
// Either field may be empty when the header is absent or the message is
// malformed; parsing never fails.
type Headers struct {
	MessageID string
	Date      string
}

// Parse extracts Message-ID and Date from a raw message. Malformed input
// yields empty fields, never an error.
func Parse(raw []byte) Headers {
	msg, err := mail.ReadMessage(bytes.NewReader(raw))
	if err != nil {
		return Headers{}
	}
	return Headers{
		MessageID: strings.TrimSpace(msg.Header.Get("Message-Id")),
		Date:      strings.TrimSpace(msg.Header.Get("Date")),
	}
}

// ReceivedAt parses an RFC 5322 date header. The second return is false when
// the header is empty or unparseable, in which case the import omits the
// explicit timestamp and the service defaults to now.
func ReceivedAt(dateHeader string) (time.Time, bool) {
	if dateHeader == "" {
		return time.Time{}, false
	}
	t, err := mail.ParseDate(dateHeader)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Discover resolves the input path into a sorted list of message sources: a
// single .eml or .mbox file, or a directory of them (optionally recursed).
func Discover(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat input path: %w", err)
	}

	if !info.IsDir() {
		if !isInputFile(path) {
			return nil, fmt.Errorf("%s: not an .eml or .mbox file", path)
		}
		return []string{path}, nil
	}

	var files []string
	if recursive {
		err = filepath.WalkDir(path, func(p string, d os.DirEntry, err error) error {
			if err != nil {
				return err
			}
			if !d.IsDir() && isInputFile(p) {
				files = append(files, p)
			}
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("walk %s: %w", path, err)
		}
	} else {
		entries, err := os.ReadDir(path)
		if err != nil {
			return nil, fmt.Errorf("read dir %s: %w", path, err)
		}
		for _, entry := range entries {
			if !entry.IsDir() && isInputFile(entry.Name()) {
				files = append(files, filepath.Join(path, entry.Name()))
			}
		}
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in %s", ErrNoInput, path)
	}

	sort.Strings(files)
	return files, nil
}

func isInputFile(path string) bool {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".eml":
		return true
	case ".mbox":
		return true
	}
	return false
}

// Stream yields one Item per message across the given sources, in order.
// .eml files yield themselves; .mbox archives yield each member message,
// named "<archive>#<index>". Unreadable sources yield an Item with ReadErr
// set rather than aborting the stream.
func Stream(paths []string, fn func(Item) error) error {
	for _, path := range paths {
		if strings.EqualFold(filepath.Ext(path), ".mbox") {
			if err := streamMbox(path, fn); err != nil {
				return err
			}
			continue
		}

		raw, readErr := os.ReadFile(path)
		if err := fn(Item{Name: path, Raw: raw, ReadErr: readErr}); err != nil {
			return err
		}
	}
	return nil
}

func streamMbox(path string, fn func(Item) error) error {
	file, err := os.Open(path)
	if err != nil {
		return fn(Item{Name: path, ReadErr: err})
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	for idx := 0; ; idx++ {
		name := fmt.Sprintf("%s#%d", path, idx)

		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fn(Item{Name: name, ReadErr: err})
		}

		raw, readErr := io.ReadAll(msgReader)
		if err := fn(Item{Name: name, Raw: raw, ReadErr: readErr}); err != nil {
			return err
		}
	}
}

// Count returns the total number of messages the sources will yield, for
// sizing the progress bar. Archives that cannot be opened count as one so the
// total still matches what Stream emits.
func Count(paths []string) int {
	total := 0
	for _, path := range paths {
		if !strings.EqualFold(filepath.Ext(path), ".mbox") {
			total++
			continue
		}
		n, err := countMbox(path)
		if err != nil {
			total++
			continue
		}
		total += n
	}
	return total
}

func countMbox(path string) (int, error) {
	file, err := os.Open(path)
	if err != nil {
		return 0, err
	}
	defer file.Close()

	reader := mboxlib.NewReader(file)
	count := 0
	for {
		msgReader, err := reader.NextMessage()
		if err != nil {
			if errors.Is(err, io.EOF) {
				return count, nil
			}
			return count, err
		}
		count++
		if _, err := io.Copy(io.Discard, msgReader); err != nil {
			continue
		}
	}
}
