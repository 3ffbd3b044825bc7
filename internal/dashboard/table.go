package dashboard

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"truck-inspection-backend/internal/parse"
)

// WriteTable prints the summary as a text table with a totals footer.
func WriteTable(w io.Writer, s Summary, loc *time.Location) {
	if s.Empty {
		fmt.Fprintln(w, s.Message)
		return
	}
	if loc == nil {
		loc = time.Local
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Truck", "Inspector", "OK", "Defects", "Date/Time"})
	for _, row := range s.Rows {
		when := row.Timestamp
		if t, err := parse.Timestamp(row.Timestamp); err == nil {
			when = t.In(loc).Format("2006-01-02 15:04:05")
		}
		table.Append([]string{
			strconv.FormatInt(row.TruckNumber, 10),
			row.Inspector,
			strconv.Itoa(row.OK),
			strconv.Itoa(row.Defect),
			when,
		})
	}
	table.SetFooter([]string{"Total", "", strconv.Itoa(s.TotalOK), strconv.Itoa(s.TotalDefect), ""})
	table.Render()
}
