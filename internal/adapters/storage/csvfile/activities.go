package csvfile

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"iter"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/domain"
)

// activityHeader lists the event log columns in file order. Notes may be absent in older files.
var activityHeader = []string{"Timestamp", "Duration", "Client", "Project", "Task", "Notes"}

var _ app.EventStore = (*Store)(nil)

// Store is an append-only RFC 4180 event log. It does not reject duplicate timestamps.
type Store struct {
	path string
	mu   sync.Mutex
}

// NewStore returns a store backed by the file at path. The file is created on first append.
func NewStore(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("csv path is required")
	}
	return &Store{path: path}, nil
}

// Record appends one event row, writing the header first when the file is new.
func (s *Store) Record(ctx context.Context, event domain.ActivityLogged) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	return appendRows(s.path, activityHeader, [][]string{{
		event.Timestamp.UTC().Format(time.RFC3339),
		domain.FormatDuration(event.Duration),
		event.Client,
		event.Project,
		event.Task,
		event.Notes,
	}})
}

// Replay streams rows inside rng in file order. A missing file replays nothing.
func (s *Store) Replay(ctx context.Context, rng domain.ReplayRange) iter.Seq2[domain.ActivityLogged, error] {
	return func(yield func(domain.ActivityLogged, error) bool) {
		for row, err := range readRecords(ctx, s.path, activityHeader[:5]) {
			if err != nil {
				yield(domain.ActivityLogged{}, err)
				return
			}
			event, err := parseActivity(row)
			if err != nil {
				yield(domain.ActivityLogged{}, fmt.Errorf("%s line %d: %w", s.path, row.line, err))
				return
			}
			if !rng.Contains(event.Timestamp) {
				continue
			}
			if !yield(event, nil) {
				return
			}
		}
	}
}

// parseActivity converts one record into an event.
func parseActivity(r record) (domain.ActivityLogged, error) {
	timestamp, err := time.Parse(time.RFC3339, r.get("Timestamp"))
	if err != nil {
		return domain.ActivityLogged{}, fmt.Errorf("%w: %v", domain.ErrInvalidTimestamp, err)
	}
	duration, err := domain.ParseDuration(r.get("Duration"))
	if err != nil {
		return domain.ActivityLogged{}, err
	}
	return domain.NewActivityLogged(timestamp, duration, r.get("Client"), r.get("Project"), r.get("Task"), r.get("Notes"))
}

// record is one parsed row addressed by header name.
type record struct {
	line   int
	index  map[string]int
	fields []string
}

// get returns the named column, or "" when the column is absent.
func (r record) get(column string) string {
	i, ok := r.index[column]
	if !ok || i >= len(r.fields) {
		return ""
	}
	return r.fields[i]
}

// readRecords streams rows of the csv file at path. Required columns must be present in the header.
func readRecords(ctx context.Context, path string, required []string) iter.Seq2[record, error] {
	return func(yield func(record, error) bool) {
		file, err := os.Open(path)
		if errors.Is(err, fs.ErrNotExist) {
			return
		}
		if err != nil {
			yield(record{}, fmt.Errorf("open csv %s: %w", path, err))
			return
		}
		defer file.Close()

		reader := csv.NewReader(file)
		reader.FieldsPerRecord = -1
		header, err := reader.Read()
		if errors.Is(err, io.EOF) {
			return
		}
		if err != nil {
			yield(record{}, fmt.Errorf("read csv header %s: %w", path, err))
			return
		}
		index := make(map[string]int, len(header))
		for i, name := range header {
			index[strings.TrimSpace(strings.TrimPrefix(name, "\ufeff"))] = i
		}
		for _, column := range required {
			if _, ok := index[column]; !ok {
				yield(record{}, fmt.Errorf("csv %s: missing column %q", path, column))
				return
			}
		}

		for {
			if err := ctx.Err(); err != nil {
				yield(record{}, err)
				return
			}
			fields, err := reader.Read()
			if errors.Is(err, io.EOF) {
				return
			}
			if err != nil {
				yield(record{}, fmt.Errorf("read csv %s: %w", path, err))
				return
			}
			line, _ := reader.FieldPos(0)
			if !yield(record{line: line, index: index, fields: fields}, nil) {
				return
			}
		}
	}
}

// appendRows appends rows to path, creating the file and its header when it does not exist yet.
func appendRows(path string, header []string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("open csv %s: %w", path, err)
	}
	info, err := file.Stat()
	if err != nil {
		_ = file.Close()
		return fmt.Errorf("stat csv %s: %w", path, err)
	}

	writer := csv.NewWriter(file)
	writer.UseCRLF = true
	if info.Size() == 0 {
		if err := writer.Write(header); err != nil {
			_ = file.Close()
			return fmt.Errorf("write csv header %s: %w", path, err)
		}
	}
	if err := writer.WriteAll(rows); err != nil {
		_ = file.Close()
		return fmt.Errorf("write csv %s: %w", path, err)
	}
	return file.Close()
}
