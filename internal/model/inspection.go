package model

import (
	"time"

	"gorm.io/datatypes"
)

// Status is the outcome recorded for a single checklist item.
type Status string

const (
	StatusOK     Status = "OK"
	StatusDefect Status = "Defect"
)

// ItemResult is the recorded state of one item at submission time.
type ItemResult struct {
	Status         Status  `json:"status"`
	CheckTimestamp *string `json:"checkTimestamp"`
	Notes          string  `json:"notes"`
}

// Results maps section title -> item label -> result.
type Results map[string]map[string]ItemResult

// Counts returns the number of OK and Defect items. Any other status is ignored.
func (r Results) Counts() (ok, defect int) {
	for _, section := range r {
		for _, item := range section {
			switch item.Status {
			case StatusOK:
				ok++
			case StatusDefect:
				defect++
			}
		}
	}
	return ok, defect
}

// InspectionRecord is one completed walkthrough of a truck's checklist.
type InspectionRecord struct {
	TruckNumber int64   `json:"truckNumber"`
	Inspector   string  `json:"inspector"`
	Timestamp   string  `json:"timestamp"`
	Results     Results `json:"results"`
}

// Inspection is the database row backing an InspectionRecord.
type Inspection struct {
	ID          int64          `gorm:"primaryKey;autoIncrement"`
	TruckNumber int64          `gorm:"index;not null"`
	Inspector   string         `gorm:"size:256;not null"`
	Timestamp   string         `gorm:"size:64;not null"`
	Results     datatypes.JSON `gorm:"not null"`
	CreatedAt   time.Time      `gorm:"not null"`
}
