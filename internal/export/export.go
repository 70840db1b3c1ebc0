// Package export renders a merged schedule as CSV, Markdown or ICS.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format identifies an export output format.
type Format string

const (
	FormatCSV      Format = "csv"
	FormatMarkdown Format = "markdown"
	FormatICS      Format = "ics"
)

// ErrUnknownFormat is returned for formats Render does not support.
var ErrUnknownFormat = errors.New("export: unknown format")

// ParseFormat validates a format string supplied by a caller.
func ParseFormat(s string) (Format, error) {
	switch Format(strings.ToLower(strings.TrimSpace(s))) {
	case FormatCSV:
		return FormatCSV, nil
	case FormatMarkdown:
		return FormatMarkdown, nil
	case FormatICS:
		return FormatICS, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
	}
}

// Slot is one renderable duty block with its people already resolved.
// Empty PrimaryID means the slot is unassigned.
type Slot struct {
	Index         int
	Start         time.Time
	End           time.Time
	PrimaryID     string
	PrimaryName   string
	SecondaryID   string
	SecondaryName string
	Notes         string
}

// Document is the renderable schedule.
type Document struct {
	ScheduleID string
	TeamName   string
	Year       int
	Slots      []Slot
}

const dateLayout = "2006-01-02"

// Render produces the schedule in the requested format.
func Render(doc Document, format Format) ([]byte, error) {
	switch format {
	case FormatCSV:
		return renderCSV(doc)
	case FormatMarkdown:
		return renderMarkdown(doc), nil
	case FormatICS:
		return renderICS(doc), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownFormat, string(format))
	}
}

func renderCSV(doc Document) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"slot", "start", "end", "primary_id", "primary_name", "secondary_id", "secondary_name", "notes"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	for _, slot := range doc.Slots {
		record := []string{
			fmt.Sprintf("%d", slot.Index),
			slot.Start.Format(dateLayout),
			slot.End.Format(dateLayout),
			slot.PrimaryID,
			slot.PrimaryName,
			slot.SecondaryID,
			slot.SecondaryName,
			slot.Notes,
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func renderMarkdown(doc Document) []byte {
	var b strings.Builder

	fmt.Fprintf(&b, "# On-call schedule %s %d\n\n", doc.TeamName, doc.Year)
	b.WriteString("| Slot | Start | End | Primary | Secondary | Notes |\n")
	b.WriteString("| --- | --- | --- | --- | --- | --- |\n")

	for _, slot := range doc.Slots {
		fmt.Fprintf(&b, "| %d | %s | %s | %s | %s | %s |\n",
			slot.Index,
			slot.Start.Format(dateLayout),
			slot.End.Format(dateLayout),
			displayName(slot.PrimaryName, slot.PrimaryID),
			displayName(slot.SecondaryName, slot.SecondaryID),
			slot.Notes,
		)
	}

	return []byte(b.String())
}

// renderICS emits an RFC 5545 calendar with one all-day event per slot.
// DTEND is exclusive, so it points at the day after the slot's last day.
func renderICS(doc Document) []byte {
	var b strings.Builder
	line := func(s string) {
		b.WriteString(s)
		b.WriteString("\r\n")
	}

	line("BEGIN:VCALENDAR")
	line("VERSION:2.0")
	line("PRODID:-//oncall-scheduler//EN")
	line("CALSCALE:GREGORIAN")

	for _, slot := range doc.Slots {
		line("BEGIN:VEVENT")
		line(fmt.Sprintf("UID:%s-%d@oncall", doc.ScheduleID, slot.Index))
		line("DTSTART;VALUE=DATE:" + slot.Start.Format("20060102"))
		line("DTEND;VALUE=DATE:" + slot.End.AddDate(0, 0, 1).Format("20060102"))

		summary := "On-call: " + displayName(slot.PrimaryName, slot.PrimaryID)
		if slot.SecondaryID != "" || slot.SecondaryName != "" {
			summary += " / " + displayName(slot.SecondaryName, slot.SecondaryID)
		}
		line("SUMMARY:" + escapeICS(summary))

		if slot.Notes != "" {
			line("DESCRIPTION:" + escapeICS(slot.Notes))
		}
		line("END:VEVENT")
	}

	line("END:VCALENDAR")
	return []byte(b.String())
}

// displayName prefers the person's name, falling back to the raw id, and
// marks unassigned roles explicitly.
func displayName(name, id string) string {
	if name != "" {
		return name
	}
	if id != "" {
		return id
	}
	return "unassigned"
}

// escapeICS escapes text per RFC 5545 section 3.3.11.
func escapeICS(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(s)
}
