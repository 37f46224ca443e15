// Package handoff persists the state an export leaves for the next
// reconciliation: the name of the uploaded feed, the full fetched batch and
// a running log of submissions that were not exported.
package handoff

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/ubuntu/decorate"

	"github.com/JonMunkholm/permits/internal/submission"
)

const (
	exportNameFile = "last_export.txt"
	snapshotFile   = "exported_submissions.json"
	failuresFile   = "failed_records.txt"

	failureSeparator = "|"
)

// ErrNotFound is returned when no export has written the requested state.
var ErrNotFound = errors.New("handoff state not found")

// Failure is one line of the failures log.
type Failure struct {
	SubmissionID string
	Status       string
	Reason       string
}

// Store reads and writes hand-off files in one directory.
type Store struct {
	dir string
	mu  sync.Mutex
}

// New returns a store rooted at dir. The directory is created on first write.
func New(dir string) *Store {
	return &Store{dir: dir}
}

// Dir returns the store directory.
func (s *Store) Dir() string { return s.dir }

// WriteExportName records the file name of the feed just uploaded.
func (s *Store) WriteExportName(name string) (err error) {
	defer decorate.OnError(&err, "write export name")
	return s.writeAtomic(exportNameFile, []byte(strings.TrimSpace(name)+"\n"))
}

// ExportName returns the file name of the last uploaded feed.
func (s *Store) ExportName() (_ string, err error) {
	defer decorate.OnError(&err, "read export name")

	b, err := os.ReadFile(s.path(exportNameFile))
	if errors.Is(err, fs.ErrNotExist) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	name := strings.TrimSpace(string(b))
	if name == "" {
		return "", ErrNotFound
	}
	return name, nil
}

// WriteSnapshot stores the full fetched batch keyed by submission ID.
func (s *Store) WriteSnapshot(subs []submission.Raw) (err error) {
	defer decorate.OnError(&err, "write snapshot")

	byID := make(map[string]submission.Raw, len(subs))
	for _, sub := range subs {
		byID[sub.ID] = sub
	}
	b, err := json.Marshal(byID)
	if err != nil {
		return err
	}
	return s.writeAtomic(snapshotFile, b)
}

// Snapshot returns the batch stored by the last export.
func (s *Store) Snapshot() (_ map[string]submission.Raw, err error) {
	defer decorate.OnError(&err, "read snapshot")

	b, err := os.ReadFile(s.path(snapshotFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	byID := make(map[string]submission.Raw)
	if err := json.Unmarshal(b, &byID); err != nil {
		return nil, err
	}
	return byID, nil
}

// AppendFailures adds entries not already logged and returns how many were
// written. Entries are deduplicated by submission ID.
func (s *Store) AppendFailures(entries []Failure) (_ int, err error) {
	defer decorate.OnError(&err, "append failures")

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, err := s.readFailures()
	if err != nil {
		return 0, err
	}
	seen := make(map[string]bool, len(existing))
	for _, f := range existing {
		seen[f.SubmissionID] = true
	}

	var b strings.Builder
	n := 0
	for _, e := range entries {
		if e.SubmissionID == "" || seen[e.SubmissionID] {
			continue
		}
		seen[e.SubmissionID] = true
		b.WriteString(strings.Join([]string{clean(e.SubmissionID), clean(e.Status), clean(e.Reason)}, failureSeparator))
		b.WriteByte('\n')
		n++
	}
	if n == 0 {
		return 0, nil
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return 0, err
	}
	f, err := os.OpenFile(s.path(failuresFile), os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return 0, err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = cerr
		}
	}()
	if _, err := f.WriteString(b.String()); err != nil {
		return 0, err
	}
	return n, nil
}

// Failures returns every logged failure. A missing log is empty.
func (s *Store) Failures() (_ []Failure, err error) {
	defer decorate.OnError(&err, "read failures")

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readFailures()
}

func (s *Store) readFailures() ([]Failure, error) {
	f, err := os.Open(s.path(failuresFile))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var out []Failure
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		parts := strings.SplitN(line, failureSeparator, 3)
		for len(parts) < 3 {
			parts = append(parts, "")
		}
		out = append(out, Failure{SubmissionID: parts[0], Status: parts[1], Reason: parts[2]})
	}
	return out, scanner.Err()
}

func (s *Store) path(name string) string {
	return filepath.Join(s.dir, name)
}

func (s *Store) writeAtomic(name string, data []byte) error {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(s.dir, "."+name+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), s.path(name))
}

func clean(s string) string {
	s = strings.ReplaceAll(s, failureSeparator, " ")
	return strings.Join(strings.Fields(s), " ")
}

// String describes the store for logs.
func (s *Store) String() string {
	return fmt.Sprintf("handoff(%s)", s.dir)
}
