package export

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func sampleDocument() Document {
	return Document{
		ScheduleID: "sch1",
		TeamName:   "Platform",
		Year:       2024,
		Slots: []Slot{
			{
				Index:         1,
				Start:         time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC),
				End:           time.Date(2024, time.January, 7, 0, 0, 0, 0, time.UTC),
				PrimaryID:     "p1",
				PrimaryName:   "Alice",
				SecondaryID:   "p2",
				SecondaryName: "Bob",
			},
			{
				Index:       2,
				Start:       time.Date(2024, time.January, 8, 0, 0, 0, 0, time.UTC),
				End:         time.Date(2024, time.January, 14, 0, 0, 0, 0, time.UTC),
				PrimaryID:   "p2",
				PrimaryName: "Bob",
				Notes:       "holiday cover",
			},
		},
	}
}

func TestRenderCSV(t *testing.T) {
	t.Parallel()

	out, err := Render(sampleDocument(), FormatCSV)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	want := "slot,start,end,primary_id,primary_name,secondary_id,secondary_name,notes\n" +
		"1,2024-01-01,2024-01-07,p1,Alice,p2,Bob,\n" +
		"2,2024-01-08,2024-01-14,p2,Bob,,,holiday cover\n"
	if string(out) != want {
		t.Errorf("Unexpected CSV output:\n%s\nwant:\n%s", out, want)
	}
}

func TestRenderMarkdown(t *testing.T) {
	t.Parallel()

	out, err := Render(sampleDocument(), FormatMarkdown)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	if !strings.HasPrefix(text, "# On-call schedule Platform 2024\n") {
		t.Errorf("Expected title line, got:\n%s", text)
	}
	if !strings.Contains(text, "| 1 | 2024-01-01 | 2024-01-07 | Alice | Bob |  |") {
		t.Errorf("Missing slot 1 row in:\n%s", text)
	}
	if !strings.Contains(text, "| 2 | 2024-01-08 | 2024-01-14 | Bob | unassigned | holiday cover |") {
		t.Errorf("Missing slot 2 row in:\n%s", text)
	}
}

func TestRenderICS(t *testing.T) {
	t.Parallel()

	out, err := Render(sampleDocument(), FormatICS)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}

	text := string(out)
	if !strings.HasSuffix(text, "END:VCALENDAR\r\n") {
		t.Error("Expected CRLF terminated calendar")
	}
	for _, want := range []string{
		"BEGIN:VCALENDAR\r\n",
		"PRODID:-//oncall-scheduler//EN\r\n",
		"UID:sch1-1@oncall\r\n",
		"DTSTART;VALUE=DATE:20240101\r\n",
		// DTEND is exclusive: the day after January 7.
		"DTEND;VALUE=DATE:20240108\r\n",
		"SUMMARY:On-call: Alice / Bob\r\n",
		"UID:sch1-2@oncall\r\n",
		"SUMMARY:On-call: Bob\r\n",
		"DESCRIPTION:holiday cover\r\n",
	} {
		if !strings.Contains(text, want) {
			t.Errorf("Missing %q in ICS output:\n%s", want, text)
		}
	}
}

func TestRenderICS_StableUIDs(t *testing.T) {
	t.Parallel()

	first, err := Render(sampleDocument(), FormatICS)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	second, err := Render(sampleDocument(), FormatICS)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if string(first) != string(second) {
		t.Error("Expected identical output for identical input")
	}
}

func TestRenderICS_EscapesText(t *testing.T) {
	t.Parallel()

	doc := sampleDocument()
	doc.Slots[0].Notes = "swap; ping ops, then\nhand over"

	out, err := Render(doc, FormatICS)
	if err != nil {
		t.Fatalf("Render failed: %v", err)
	}
	if !strings.Contains(string(out), "DESCRIPTION:swap\\; ping ops\\, then\\nhand over\r\n") {
		t.Errorf("Expected escaped description, got:\n%s", out)
	}
}

func TestParseFormat(t *testing.T) {
	t.Parallel()

	cases := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{input: "csv", want: FormatCSV},
		{input: "Markdown", want: FormatMarkdown},
		{input: " ics ", want: FormatICS},
		{input: "xml", wantErr: true},
		{input: "", wantErr: true},
	}

	for _, tc := range cases {
		got, err := ParseFormat(tc.input)
		if tc.wantErr {
			if !errors.Is(err, ErrUnknownFormat) {
				t.Errorf("ParseFormat(%q): expected ErrUnknownFormat, got %v", tc.input, err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseFormat(%q) failed: %v", tc.input, err)
			continue
		}
		if got != tc.want {
			t.Errorf("ParseFormat(%q) = %q, want %q", tc.input, got, tc.want)
		}
	}
}

func TestRender_UnknownFormat(t *testing.T) {
	t.Parallel()

	_, err := Render(sampleDocument(), Format("pdf"))
	if !errors.Is(err, ErrUnknownFormat) {
		t.Errorf("Expected ErrUnknownFormat, got %v", err)
	}
}
