package export

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"truck-inspection-backend/internal/checklist"
)

// Layout constants, in millimetres on an A4 page.
const (
	marginX     = 10.0
	itemX       = 12.0
	startY      = 10.0
	pageBreakAt = 270.0

	placeholderTime = "—"
	displayLayout   = "2006-01-02 15:04:05"
)

// Line is one positioned text run of the exported document.
type Line struct {
	Page     int
	X, Y     float64
	FontSize float64
	Text     string
}

// Exporter renders a checklist snapshot as a paginated PDF.
type Exporter struct {
	loc *time.Location
}

// New creates an Exporter that prints times in loc.
func New(loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{loc: loc}
}

// FileName is the download name for a snapshot's document.
func FileName(snap checklist.Snapshot) string {
	return fmt.Sprintf("Truck_%s_Inspection.pdf", strings.ReplaceAll(truckLabel(snap), "/", ""))
}

func truckLabel(snap checklist.Snapshot) string {
	if snap.TruckNumber == nil {
		return "N/A"
	}
	return fmt.Sprintf("%d", *snap.TruckNumber)
}

// Lines lays out the document: a header, then per section its title and per
// item a status line, an optional notes line and a time line. A new page
// starts whenever an item ends below pageBreakAt.
func (e *Exporter) Lines(snap checklist.Snapshot, now time.Time) []Line {
	inspector := snap.Inspector
	if inspector == "" {
		inspector = "Unknown"
	}

	page, y := 1, startY
	var lines []Line
	emit := func(x, size float64, text string, advance float64) {
		lines = append(lines, Line{Page: page, X: x, Y: y, FontSize: size, Text: text})
		y += advance
	}

	emit(marginX, 16, "Truck Inspection Report", 8)
	emit(marginX, 12, "Truck Number: "+truckLabel(snap), 6)
	emit(marginX, 12, "Inspector: "+inspector, 6)
	emit(marginX, 12, "Date: "+now.In(e.loc).Format(displayLayout), 10)

	if snap.Checklist == nil {
		return lines
	}

	for _, section := range snap.Checklist.Sections {
		emit(marginX, 14, section.Title, 7)

		for _, item := range section.Items {
			status := "Defect"
			if item.Checked {
				status = "OK"
			}
			emit(itemX, 11, fmt.Sprintf("• %s - %s", item.Label, status), 5)

			if strings.TrimSpace(item.Notes) != "" {
				emit(itemX, 10, "   Notes: "+item.Notes, 5)
			}

			stamp := placeholderTime
			if item.CheckTimestamp != nil {
				stamp = item.CheckTimestamp.In(e.loc).Format(displayLayout)
			}
			emit(itemX, 10, "   Time: "+stamp, 6)

			if y > pageBreakAt {
				page++
				y = startY
			}
		}
		y += 5
	}
	return lines
}

// Render writes the snapshot as a PDF to w. It only reads the snapshot.
func (e *Exporter) Render(w io.Writer, snap checklist.Snapshot, now time.Time) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("Truck Inspection Report", true)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	page := 0
	for _, line := range e.Lines(snap, now) {
		for page < line.Page {
			pdf.AddPage()
			page++
		}
		pdf.SetFont("Helvetica", "", line.FontSize)
		pdf.Text(line.X, line.Y, tr(line.Text))
	}

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render pdf: %w", err)
	}
	return nil
}
