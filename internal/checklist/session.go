package checklist

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"truck-inspection-backend/internal/model"
	"truck-inspection-backend/internal/parse"
)

// Clock returns the current instant.
type Clock func() time.Time

// Source is the part of the catalog a session reads from.
type Source interface {
	Trucks(ctx context.Context) ([]model.TruckRef, error)
	Definition(ctx context.Context, truckID int64) (model.Definition, error)
}

// Recorder persists submitted inspections.
type Recorder interface {
	Append(ctx context.Context, rec model.InspectionRecord) error
}

// Options configures sessions created by a Manager.
type Options struct {
	// DefaultTruck is selected when a session opens, if it is in the registry.
	DefaultTruck int64
	TTL          time.Duration
	Clock        Clock
	// OnSubmit is called after a record has been appended.
	OnSubmit func(model.InspectionRecord)
}

// Tab is one truck selector. Exactly one tab is active once a truck is selected.
type Tab struct {
	ID     int64  `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// Snapshot is a read-only copy of a session's form state.
type Snapshot struct {
	ID          string     `json:"id"`
	Tabs        []Tab      `json:"tabs"`
	TruckNumber *int64     `json:"truckNumber"`
	Inspector   string     `json:"inspector"`
	Checklist   *Checklist `json:"checklist"`
	LoadError   string     `json:"loadError,omitempty"`
}

// Session holds the transient state of one checklist page.
// All methods are safe for concurrent use.
type Session struct {
	id       string
	source   Source
	recorder Recorder
	now      Clock
	onSubmit func(model.InspectionRecord)
	logger   *zap.SugaredLogger

	mu         sync.Mutex
	trucks     []model.TruckRef
	selected   *model.TruckRef
	checklist  *Checklist
	inspector  string
	loadErr    string
	generation uint64
}

// NewSession creates a session over an already loaded registry.
func NewSession(id string, trucks []model.TruckRef, source Source, recorder Recorder, opts Options, logger *zap.SugaredLogger) *Session {
	now := opts.Clock
	if now == nil {
		now = time.Now
	}
	return &Session{
		id:       id,
		source:   source,
		recorder: recorder,
		now:      now,
		onSubmit: opts.OnSubmit,
		logger:   logger,
		trucks:   trucks,
	}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

func (s *Session) lookup(truckID int64) (model.TruckRef, bool) {
	for _, t := range s.trucks {
		if t.ID == truckID {
			return t, true
		}
	}
	return model.TruckRef{}, false
}

// SelectTruck makes truckID the active tab and loads a blank checklist for it.
//
// Every call bumps the session generation; a definition that arrives after a
// newer selection has been made is dropped. Load failures do not return an
// error: the checklist is left empty and LoadError describes the failure.
func (s *Session) SelectTruck(ctx context.Context, truckID int64) error {
	s.mu.Lock()
	truck, ok := s.lookup(truckID)
	if !ok {
		s.mu.Unlock()
		return fmt.Errorf("%w: %d", ErrUnknownTruck, truckID)
	}
	s.selected = &truck
	s.checklist = nil
	s.loadErr = ""
	s.generation++
	gen := s.generation
	s.mu.Unlock()

	def, err := s.source.Definition(ctx, truckID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.generation {
		s.logger.Debugw("discarding stale checklist load", "session", s.id, "truck", truckID)
		return nil
	}
	if err != nil {
		s.loadErr = fmt.Sprintf("Error loading checklist: %v. Make sure the truck JSON file exists.", err)
		s.logger.Errorw("checklist load error", "session", s.id, "truck", truckID, "err", err)
		return nil
	}
	s.checklist = Render(def)
	return nil
}

// Toggle flips an item. Checking stamps the current time; unchecking clears it.
func (s *Session) Toggle(section, item string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checklist == nil {
		return Item{}, &ItemError{Section: section, Item: item}
	}
	it, err := s.checklist.find(section, item)
	if err != nil {
		return Item{}, err
	}
	it.Checked = !it.Checked
	if it.Checked {
		now := s.now()
		it.CheckTimestamp = &now
	} else {
		it.CheckTimestamp = nil
	}
	return *it, nil
}

// SetNotes replaces an item's free-text notes.
func (s *Session) SetNotes(section, item, text string) (Item, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checklist == nil {
		return Item{}, &ItemError{Section: section, Item: item}
	}
	it, err := s.checklist.find(section, item)
	if err != nil {
		return Item{}, err
	}
	it.Notes = text
	return *it, nil
}

// SetInspector records the inspector name field as typed.
func (s *Session) SetInspector(name string) {
	s.mu.Lock()
	s.inspector = name
	s.mu.Unlock()
}

// SelectAll checks every item and stamps each with the current time. Notes are kept.
func (s *Session) SelectAll() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.checklist == nil {
		return
	}
	now := s.now()
	s.checklist.each(func(it *Item) {
		stamp := now
		it.Checked = true
		it.CheckTimestamp = &stamp
	})
}

// Submit validates the form, appends one record and reloads a blank checklist
// for the same truck. On validation or save failure nothing is reset.
func (s *Session) Submit(ctx context.Context, inspector string) (model.InspectionRecord, error) {
	s.mu.Lock()
	s.inspector = inspector

	if s.selected == nil {
		s.mu.Unlock()
		s.logger.Infow("validation failed: no truck selected", "session", s.id)
		return model.InspectionRecord{}, &ValidationError{Field: FieldTruck, Err: ErrNoTruckSelected}
	}
	name := strings.TrimSpace(inspector)
	if name == "" {
		s.mu.Unlock()
		s.logger.Infow("validation failed: inspector name is required", "session", s.id)
		return model.InspectionRecord{}, &ValidationError{Field: FieldInspector, Err: ErrInspectorRequired}
	}

	results := model.Results{}
	if s.checklist != nil {
		results = s.checklist.Results()
	}
	rec := model.InspectionRecord{
		TruckNumber: s.selected.ID,
		Inspector:   name,
		Timestamp:   parse.FormatTimestamp(s.now()),
		Results:     results,
	}

	if err := s.recorder.Append(ctx, rec); err != nil {
		s.mu.Unlock()
		s.logger.Errorw("failed to save inspection", "session", s.id, "truck", rec.TruckNumber, "err", err)
		return model.InspectionRecord{}, fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}

	truckID := s.selected.ID
	s.inspector = ""
	s.mu.Unlock()

	s.logger.Infow("inspection saved", "session", s.id, "truck", truckID, "inspector", name)
	if s.onSubmit != nil {
		s.onSubmit(rec)
	}

	if err := s.SelectTruck(ctx, truckID); err != nil {
		s.logger.Warnw("failed to reselect truck after submit", "session", s.id, "truck", truckID, "err", err)
	}
	return rec, nil
}

// Snapshot returns a copy of the current form state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	tabs := make([]Tab, 0, len(s.trucks))
	for _, t := range s.trucks {
		tabs = append(tabs, Tab{
			ID:     t.ID,
			Name:   t.Name,
			Active: s.selected != nil && s.selected.ID == t.ID,
		})
	}

	snap := Snapshot{
		ID:        s.id,
		Tabs:      tabs,
		Inspector: s.inspector,
		Checklist: s.checklist.clone(),
		LoadError: s.loadErr,
	}
	if s.selected != nil {
		id := s.selected.ID
		snap.TruckNumber = &id
	}
	return snap
}
