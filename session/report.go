package session

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/Masterminds/sprig"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed report.tmpl
var reportFS embed.FS

// Report renders a human-readable trace of the run.
func Report(log *Log) (string, error) {
	caser := cases.Title(language.English)
	funcs := sprig.TxtFuncMap()
	funcs["heading"] = func(s string) string { return caser.String(s) }
	tmpl, err := template.New("report.tmpl").Funcs(funcs).ParseFS(reportFS, "report.tmpl")
	if err != nil {
		return "", fmt.Errorf("could not parse the report template: %v", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, log); err != nil {
		return "", fmt.Errorf("could not render the report: %v", err)
	}
	return buf.String(), nil
}

// Name is the script name, or a placeholder when the script has none.
func (l *Log) Name() string {
	if l.Script.Name == "" {
		return "untitled session"
	}
	return l.Script.Name
}

// Frames is the total number of rendered frames.
func (l *Log) Frames() int { return len(l.Audio) }

// Seconds is the rendered duration.
func (l *Log) Seconds() float64 {
	return float64(len(l.Audio)) / float64(l.Script.SampleRate)
}

// Peak is the highest peak level over the whole run.
func (l *Log) Peak() float32 {
	var peak float32
	for _, b := range l.Blocks {
		if b.Peak > peak {
			peak = b.Peak
		}
	}
	return peak
}

// StatusCounts tallies the block statuses by name.
func (l *Log) StatusCounts() map[string]int {
	counts := map[string]int{}
	for _, b := range l.Blocks {
		counts[b.Status.String()]++
	}
	return counts
}

// Eventful returns the blocks where something happened: events went in,
// replies came out, or the status changed from the previous block.
func (l *Log) Eventful() []BlockLog {
	var out []BlockLog
	for i, b := range l.Blocks {
		if b.Sent > 0 || len(b.Replies) > 0 || i == 0 || b.Status != l.Blocks[i-1].Status {
			out = append(out, b)
		}
	}
	return out
}
