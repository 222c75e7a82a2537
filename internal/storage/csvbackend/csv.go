package csvbackend

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/FranksOps/finch/internal/storage"
)

var _ storage.Backend = (*csvBackend)(nil)

type csvBackend struct {
	mu   sync.Mutex
	file *os.File
}

// columns defines the CSV layout. Suggestions are stored as a JSON array in
// a single cell.
var columns = []string{
	"id",
	"query",
	"headless",
	"suggestions_json",
	"count",
	"strategy",
	"challenged",
	"challenge_src",
	"duration_ms",
	"created_at",
	"error",
}

// New creates a CSV-backed audit store. A header row is written when the
// file is empty.
func New(filePath string) (storage.Backend, error) {
	f, err := os.OpenFile(filePath, os.O_APPEND|os.O_CREATE|os.O_RDWR, 0644)
	if err != nil {
		return nil, fmt.Errorf("open audit file: %w", err)
	}

	info, err := f.Stat()
	if err != nil {
		_ = f.Close()
		return nil, fmt.Errorf("stat audit file: %w", err)
	}

	if info.Size() == 0 {
		w := csv.NewWriter(f)
		if err := w.Write(columns); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("write header: %w", err)
		}
		w.Flush()
		if err := w.Error(); err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("flush header: %w", err)
		}
	}

	return &csvBackend{file: f}, nil
}

func (b *csvBackend) Save(ctx context.Context, rec *storage.Record) error {
	suggestionsJSON, err := json.Marshal(rec.Suggestions)
	if err != nil {
		return fmt.Errorf("marshal suggestions: %w", err)
	}

	row := []string{
		rec.ID,
		rec.Query,
		strconv.FormatBool(rec.Headless),
		string(suggestionsJSON),
		strconv.Itoa(rec.Count),
		rec.Strategy,
		strconv.FormatBool(rec.Challenged),
		rec.ChallengeSrc,
		strconv.FormatInt(rec.Duration.Milliseconds(), 10),
		rec.CreatedAt.Format(time.RFC3339Nano),
		rec.Error,
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	w := csv.NewWriter(b.file)
	if err := w.Write(row); err != nil {
		return fmt.Errorf("append audit row: %w", err)
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush audit row: %w", err)
	}
	return nil
}

func (b *csvBackend) Query(ctx context.Context, filter storage.Filter) ([]*storage.Record, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if _, err := b.file.Seek(0, io.SeekStart); err != nil {
		return nil, fmt.Errorf("seek audit file: %w", err)
	}
	defer func() {
		_, _ = b.file.Seek(0, io.SeekEnd)
	}()

	r := csv.NewReader(b.file)
	rows, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read audit file: %w", err)
	}

	var matched []*storage.Record
	for i, row := range rows {
		if i == 0 || len(row) != len(columns) {
			continue // header or malformed row
		}

		rec, err := parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("parse audit row %d: %w", i, err)
		}

		if filter.Query != "" && rec.Query != filter.Query {
			continue
		}
		if filter.Failed != nil && rec.Failed() != *filter.Failed {
			continue
		}
		if filter.Since != nil && rec.CreatedAt.Before(*filter.Since) {
			continue
		}

		matched = append(matched, rec)
	}

	for i, j := 0, len(matched)-1; i < j; i, j = i+1, j-1 {
		matched[i], matched[j] = matched[j], matched[i]
	}

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return []*storage.Record{}, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}

	return matched, nil
}

func parseRow(row []string) (*storage.Record, error) {
	headless, err := strconv.ParseBool(row[2])
	if err != nil {
		return nil, fmt.Errorf("headless: %w", err)
	}

	var suggestions []string
	if err := json.Unmarshal([]byte(row[3]), &suggestions); err != nil {
		return nil, fmt.Errorf("suggestions: %w", err)
	}

	count, err := strconv.Atoi(row[4])
	if err != nil {
		return nil, fmt.Errorf("count: %w", err)
	}

	challenged, err := strconv.ParseBool(row[6])
	if err != nil {
		return nil, fmt.Errorf("challenged: %w", err)
	}

	durationMs, err := strconv.ParseInt(row[8], 10, 64)
	if err != nil {
		return nil, fmt.Errorf("duration_ms: %w", err)
	}

	createdAt, err := time.Parse(time.RFC3339Nano, row[9])
	if err != nil {
		return nil, fmt.Errorf("created_at: %w", err)
	}

	return &storage.Record{
		ID:           row[0],
		Query:        row[1],
		Headless:     headless,
		Suggestions:  suggestions,
		Count:        count,
		Strategy:     row[5],
		Challenged:   challenged,
		ChallengeSrc: row[7],
		Duration:     time.Duration(durationMs) * time.Millisecond,
		CreatedAt:    createdAt,
		Error:        row[10],
	}, nil
}

func (b *csvBackend) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.file.Close()
}
