package report

import (
	"encoding/json"
	"fmt"
	"io"
	"text/template"
	"time"

	"github.com/FranksOps/finch/internal/storage"
)

// Summary aggregates a window of audit records.
type Summary struct {
	TotalRequests    int            `json:"total_requests"`
	TotalErrors      int            `json:"total_errors"`
	TotalChallenges  int            `json:"total_challenges"`
	EmptyResults     int            `json:"empty_results"`
	TotalSuggestions int            `json:"total_suggestions"`
	ByStrategy       map[string]int `json:"by_strategy"`
	ChallengesBySrc  map[string]int `json:"challenges_by_src"`
	StartTime        time.Time      `json:"start_time"`
	EndTime          time.Time      `json:"end_time"`
	Span             time.Duration  `json:"span"`
}

// Generate builds a Summary from audit records.
func Generate(records []*storage.Record) Summary {
	s := Summary{
		ByStrategy:      make(map[string]int),
		ChallengesBySrc: make(map[string]int),
	}

	if len(records) == 0 {
		return s
	}

	s.StartTime = records[0].CreatedAt
	s.EndTime = records[0].CreatedAt

	for _, r := range records {
		s.TotalRequests++
		if r.Failed() {
			s.TotalErrors++
		} else {
			s.TotalSuggestions += r.Count
			if r.Count == 0 {
				s.EmptyResults++
			}
			if r.Strategy != "" {
				s.ByStrategy[r.Strategy]++
			}
		}
		if r.Challenged {
			s.TotalChallenges++
			s.ChallengesBySrc[r.ChallengeSrc]++
		}

		if r.CreatedAt.Before(s.StartTime) {
			s.StartTime = r.CreatedAt
		}
		if r.CreatedAt.After(s.EndTime) {
			s.EndTime = r.CreatedAt
		}
	}

	s.Span = s.EndTime.Sub(s.StartTime)
	return s
}

// WriteJSON writes the summary as indented JSON.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable summary.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Finch Suggestion Audit
----------------------
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Span:          {{.Span}}
Requests:      {{.TotalRequests}}
Errors:        {{.TotalErrors}}
Empty results: {{.EmptyResults}}
Suggestions:   {{.TotalSuggestions}}

Extraction strategies:
{{- range $name, $count := .ByStrategy}}
  {{$name}}: {{$count}}
{{- else}}
  None
{{- end}}

Challenges: {{.TotalChallenges}}
{{- range $src, $count := .ChallengesBySrc}}
  {{$src}}: {{$count}}
{{- else}}
  None
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse report template: %w", err)
	}
	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}
