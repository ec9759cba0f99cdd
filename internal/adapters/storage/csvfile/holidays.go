package csvfile

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"cloud.google.com/go/civil"
	"github.com/hylla/timelog/internal/app"
	"github.com/hylla/timelog/internal/domain"
)

// holidayHeader lists the holiday file columns in file order.
var holidayHeader = []string{"Date", "Title"}

var _ app.HolidayRepository = (*HolidayFile)(nil)

// HolidayFile reads and upserts holidays in a Date,Title csv file, one row per date.
type HolidayFile struct {
	path string
	mu   sync.Mutex
}

// NewHolidayFile returns a repository backed by the file at path.
func NewHolidayFile(path string) (*HolidayFile, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("holiday csv path is required")
	}
	return &HolidayFile{path: path}, nil
}

// FindAllByDate returns holidays in [startInclusive, endExclusive) ordered by date. A missing file has no holidays.
func (h *HolidayFile) FindAllByDate(ctx context.Context, startInclusive, endExclusive civil.Date) ([]domain.Holiday, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	all, err := h.readAll(ctx)
	if err != nil {
		return nil, err
	}
	out := make([]domain.Holiday, 0, len(all))
	for _, holiday := range all {
		if holiday.Date.Before(startInclusive) || !holiday.Date.Before(endExclusive) {
			continue
		}
		out = append(out, holiday)
	}
	return out, nil
}

// SaveHolidays upserts holidays by date and rewrites the file.
func (h *HolidayFile) SaveHolidays(ctx context.Context, holidays []domain.Holiday) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	existing, err := h.readAll(ctx)
	if err != nil {
		return err
	}
	merged := mergeHolidays(existing, holidays)

	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)
	writer.UseCRLF = true
	if err := writer.Write(holidayHeader); err != nil {
		return fmt.Errorf("encode holiday header: %w", err)
	}
	for _, holiday := range merged {
		if err := writer.Write([]string{holiday.Date.String(), holiday.Title}); err != nil {
			return fmt.Errorf("encode holiday %s: %w", holiday.Date, err)
		}
	}
	writer.Flush()
	if err := writer.Error(); err != nil {
		return fmt.Errorf("encode holidays: %w", err)
	}
	return writeFileAtomic(h.path, buf.Bytes())
}

// readAll returns every holiday in the file ordered by date, one per date. Later rows win.
func (h *HolidayFile) readAll(ctx context.Context) ([]domain.Holiday, error) {
	var rows []domain.Holiday
	for r, err := range readRecords(ctx, h.path, holidayHeader) {
		if err != nil {
			return nil, err
		}
		date, err := civil.ParseDate(strings.TrimSpace(r.get("Date")))
		if err != nil {
			return nil, fmt.Errorf("%s line %d: %w: %v", h.path, r.line, domain.ErrInvalidDate, err)
		}
		rows = append(rows, domain.Holiday{Date: date, Title: r.get("Title")})
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return mergeHolidays(nil, rows), nil
}

// mergeHolidays overlays updates onto base by date and returns the result ordered by date.
func mergeHolidays(base, updates []domain.Holiday) []domain.Holiday {
	byDate := make(map[civil.Date]domain.Holiday, len(base)+len(updates))
	for _, holiday := range base {
		byDate[holiday.Date] = holiday
	}
	for _, holiday := range updates {
		byDate[holiday.Date] = holiday
	}
	out := slices.Collect(maps.Values(byDate))
	slices.SortFunc(out, func(a, b domain.Holiday) int {
		return a.Date.Compare(b.Date)
	})
	return out
}

// writeFileAtomic replaces path with data through a temp file and rename.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create csv dir: %w", err)
	}
	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("write csv %s: %w", tmpPath, err)
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("replace csv %s: %w", path, err)
	}
	return nil
}
