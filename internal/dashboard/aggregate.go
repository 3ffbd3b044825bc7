package dashboard

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"truck-inspection-backend/internal/model"
	"truck-inspection-backend/internal/parse"
)

// NoDataMessage is shown in place of the table and chart when nothing has been saved.
const NoDataMessage = "No inspections saved yet."

// Row is the summary of one inspection.
type Row struct {
	TruckNumber int64  `json:"truckNumber"`
	Inspector   string `json:"inspector"`
	Timestamp   string `json:"timestamp"`
	OK          int    `json:"ok"`
	Defect      int    `json:"defect"`
	// Anomalous marks a record stored without results; it counts as zero.
	Anomalous bool `json:"anomalous,omitempty"`
}

// Chart is the bar chart projection: one label per row and two series
// aligned by index.
type Chart struct {
	Labels []string `json:"labels"`
	OK     []int    `json:"ok"`
	Defect []int    `json:"defect"`
}

// Summary is everything the dashboard renders.
type Summary struct {
	Empty       bool   `json:"empty"`
	Message     string `json:"message,omitempty"`
	Rows        []Row  `json:"rows"`
	TotalOK     int    `json:"totalOk"`
	TotalDefect int    `json:"totalDefects"`
	Chart       *Chart `json:"chart,omitempty"`
}

// Aggregate builds the dashboard summary. Rows are ordered newest first;
// records with equal (or equally unparseable) timestamps keep their stored order.
func Aggregate(records []model.InspectionRecord) Summary {
	if len(records) == 0 {
		return Summary{Empty: true, Message: NoDataMessage, Rows: []Row{}}
	}

	type entry struct {
		rec model.InspectionRecord
		at  time.Time
	}
	entries := make([]entry, len(records))
	for i, rec := range records {
		entries[i] = entry{rec: rec, at: parse.TimestampOrZero(rec.Timestamp)}
	}
	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].at.After(entries[j].at)
	})

	summary := Summary{
		Rows: make([]Row, 0, len(entries)),
		Chart: &Chart{
			Labels: make([]string, 0, len(entries)),
			OK:     make([]int, 0, len(entries)),
			Defect: make([]int, 0, len(entries)),
		},
	}
	for _, e := range entries {
		ok, defect := e.rec.Results.Counts()
		summary.Rows = append(summary.Rows, Row{
			TruckNumber: e.rec.TruckNumber,
			Inspector:   e.rec.Inspector,
			Timestamp:   e.rec.Timestamp,
			OK:          ok,
			Defect:      defect,
			Anomalous:   e.rec.Results == nil,
		})
		summary.TotalOK += ok
		summary.TotalDefect += defect

		summary.Chart.Labels = append(summary.Chart.Labels, fmt.Sprintf("Truck %d", e.rec.TruckNumber))
		summary.Chart.OK = append(summary.Chart.OK, ok)
		summary.Chart.Defect = append(summary.Chart.Defect, defect)
	}
	return summary
}

// Lister reads the Persisted List.
type Lister interface {
	ListAll(ctx context.Context) ([]model.InspectionRecord, error)
}

// Service loads and aggregates the Persisted List. It never writes.
type Service struct {
	repo   Lister
	logger *zap.SugaredLogger
}

// NewService creates a dashboard service.
func NewService(repo Lister, logger *zap.SugaredLogger) *Service {
	return &Service{repo: repo, logger: logger}
}

// Load reads the whole list and aggregates it. A read failure is logged and
// rendered as an empty dashboard.
func (s *Service) Load(ctx context.Context) Summary {
	records, err := s.repo.ListAll(ctx)
	if err != nil {
		s.logger.Errorw("failed to read inspections, showing empty dashboard", "err", err)
		records = nil
	}

	summary := Aggregate(records)
	for _, row := range summary.Rows {
		if row.Anomalous {
			s.logger.Warnw("inspection without results", "truck", row.TruckNumber, "timestamp", row.Timestamp)
		}
	}
	return summary
}
