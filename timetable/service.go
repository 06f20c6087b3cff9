package timetable

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"timetable-backend/cache"
	"timetable-backend/models"
)

var ErrInvalidMode = errors.New("unknown insert mode")

// Generator is the solver the service calls; *Client implements it.
type Generator interface {
	Generate(ctx context.Context, req *GenerationRequest, departmentID *uint) (*GenerationResponse, error)
}

// ResultCache keeps the latest organized view; *cache.Client implements it.
type ResultCache interface {
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

type ServiceConfig struct {
	Days     []string
	Times    []string
	Mode     string
	CacheTTL time.Duration
}

type Service struct {
	store Store
	gen   Generator
	cache ResultCache
	cfg   ServiceConfig
}

func NewService(store Store, gen Generator, cache ResultCache, cfg ServiceConfig) *Service {
	if cfg.Mode == "" {
		cfg.Mode = ModeUpsert
	}
	return &Service{store: store, gen: gen, cache: cache, cfg: cfg}
}

func (s *Service) Days() []string  { return s.cfg.Days }
func (s *Service) Times() []string { return s.cfg.Times }

type GenerateOptions struct {
	DepartmentID *uint              `json:"department_id,omitempty"`
	ClassID      *uint              `json:"class_id,omitempty"`
	Mode         string             `json:"mode,omitempty"`
	Payload      *GenerationRequest `json:"payload,omitempty"`
	Overrides    *Overrides         `json:"overrides,omitempty"`
}

type GenerateResult struct {
	RunID           string             `json:"run_id,omitempty"`
	Mode            string             `json:"mode"`
	DryRun          bool               `json:"dry_run"`
	FitnessScore    float64            `json:"fitness_score"`
	GenerationCount int                `json:"generation_count"`
	RowsMapped      int                `json:"rows_mapped"`
	RowsInserted    int                `json:"rows_inserted"`
	Report          MapReport          `json:"report"`
	Validation      *ValidationResult  `json:"validation,omitempty"`
	Request         *GenerationRequest `json:"request"`
	Organized       Organized          `json:"organized"`
	Rows            []Row              `json:"rows"`
}

// GenerateAndPersist runs the full pipeline and writes the result.
func (s *Service) GenerateAndPersist(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	return s.run(ctx, opts, false)
}

// Preview runs the pipeline without writing entries.
func (s *Service) Preview(ctx context.Context, opts GenerateOptions) (*GenerateResult, error) {
	return s.run(ctx, opts, true)
}

func (s *Service) run(ctx context.Context, opts GenerateOptions, dryRun bool) (*GenerateResult, error) {
	mode := opts.Mode
	if mode == "" {
		mode = s.cfg.Mode
	}
	if mode != ModeUpsert && mode != ModeReplace {
		return nil, fmt.Errorf("%w %q", ErrInvalidMode, mode)
	}

	refs, err := s.store.LoadReferences(ctx, opts.DepartmentID)
	if err != nil {
		return nil, err
	}
	if err := checkReferences(refs); err != nil {
		return nil, err
	}

	req := opts.Payload
	if req == nil {
		req = AssemblePayload(refs, PayloadOptions{Times: s.cfg.Times, Overrides: opts.Overrides})
	} else if opts.Overrides != nil {
		ApplyOverrides(req, opts.Overrides)
	}

	res := &GenerateResult{Mode: mode, DryRun: dryRun, Request: req, Rows: []Row{}}
	run := &models.GenerationRun{
		ID:           uuid.NewString(),
		DepartmentID: opts.DepartmentID,
		Mode:         mode,
		Request:      toJSON(req),
	}
	if !dryRun {
		res.RunID = run.ID
	}

	log.Printf("🔄 Generating timetable (classes=%d subjects=%d teachers=%d rooms=%d slots=%d, mode=%s, dry_run=%v)",
		len(refs.Classes), len(refs.Subjects), len(refs.Teachers), len(refs.Rooms), len(refs.TimeSlots), mode, dryRun)

	resp, err := s.gen.Generate(ctx, req, opts.DepartmentID)
	if err != nil {
		s.finish(ctx, run, models.RunFailed, err, dryRun)
		return nil, err
	}
	run.Response = datatypes.JSON(resp.Raw)
	res.FitnessScore = resp.FitnessScore
	res.GenerationCount = resp.GenerationCount

	organized := Organize(resp, s.cfg.Days, s.cfg.Times)
	keyMap := ClassKeyMap(organized, refs.Classes)
	if opts.ClassID != nil {
		organized = FilterByClass(organized, *opts.ClassID, keyMap)
	}
	res.Organized = organized

	rows, report := MapRows(organized, s.cfg.Days, refs.TimeSlots, keyMap, NewResolver(refs))
	rows, dropped := FilterValid(rows, refs)
	report.DroppedInvalidFK = dropped
	assignDepartments(rows, refs.Classes, opts.DepartmentID)

	res.Report = report
	res.RowsMapped = len(rows)
	res.Rows = rows
	run.RowsMapped = len(rows)
	run.Skipped = report.Skipped()

	if len(rows) == 0 {
		log.Printf("⚠️ No timetable rows mapped from %d cells (unknown day=%d, no time slot=%d, unresolved=%d, no class=%d, invalid fk=%d) samples=%v",
			report.Cells, report.SkippedUnknownDay, report.SkippedNoTimeSlot, report.SkippedUnresolved,
			report.SkippedNoClass, report.DroppedInvalidFK, report.Samples)
		s.finish(ctx, run, models.RunEmpty, nil, dryRun)
		return res, nil
	}

	validation, err := Validate(rows, refs.TimeSlots, refs.Teachers, ValidateOptions{
		ThrowOnConflict: true,
		RequireTeachers: true,
		Log:             true,
	})
	res.Validation = validation
	if validation != nil {
		run.Conflicts = validation.TotalConflicts
	}
	if err != nil {
		s.finish(ctx, run, models.RunRejected, err, dryRun)
		return res, err
	}

	if dryRun {
		return res, nil
	}

	inserted, err := s.store.SaveEntries(ctx, rows, SaveOptions{Mode: mode, DepartmentID: opts.DepartmentID})
	if err != nil {
		s.finish(ctx, run, models.RunFailed, err, dryRun)
		return res, fmt.Errorf("persist timetable entries: %w", err)
	}
	res.RowsInserted = inserted
	run.RowsInserted = inserted
	s.finish(ctx, run, models.RunSucceeded, nil, dryRun)

	if s.cache != nil {
		if err := s.cache.SetJSON(ctx, cache.LastGenerationKey(opts.DepartmentID), res, s.cfg.CacheTTL); err != nil && !errors.Is(err, cache.ErrDisabled) {
			log.Printf("⚠️ Could not cache generation result: %v", err)
		}
	}

	log.Printf("✅ Timetable persisted: %d rows (%s), %d cells skipped", inserted, mode, report.Skipped())
	return res, nil
}

func checkReferences(refs *References) error {
	var missing []string
	if len(refs.Classes) == 0 {
		missing = append(missing, "classes")
	}
	if len(refs.Subjects) == 0 {
		missing = append(missing, "subjects")
	}
	if len(refs.Teachers) == 0 {
		missing = append(missing, "teachers")
	}
	if len(refs.Rooms) == 0 {
		missing = append(missing, "rooms")
	}
	if len(refs.TimeSlots) == 0 {
		missing = append(missing, "time slots")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: no %v", ErrNoReferenceData, missing)
	}
	return nil
}

// assignDepartments stamps rows with the scoped department, else the class's own.
func assignDepartments(rows []Row, classes []models.Class, departmentID *uint) {
	byClass := make(map[uint]*uint, len(classes))
	for _, c := range classes {
		byClass[c.ID] = c.DepartmentID
	}
	for i := range rows {
		if departmentID != nil {
			d := *departmentID
			rows[i].DepartmentID = &d
			continue
		}
		rows[i].DepartmentID = byClass[rows[i].ClassID]
	}
}

// finish records the run. Dry runs are not recorded.
func (s *Service) finish(ctx context.Context, run *models.GenerationRun, status string, cause error, dryRun bool) {
	if dryRun {
		return
	}
	run.Status = status
	if cause != nil {
		run.Error = cause.Error()
	}
	if err := s.store.RecordRun(ctx, run); err != nil {
		log.Printf("⚠️ Could not record generation run %s: %v", run.ID, err)
	}
}

func toJSON(v interface{}) datatypes.JSON {
	data, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	return datatypes.JSON(data)
}

// ValidateRows checks caller-supplied rows against the stored reference data
// without throwing on conflicts.
func (s *Service) ValidateRows(ctx context.Context, rows []Row, departmentID *uint) (*ValidationResult, error) {
	refs, err := s.store.LoadReferences(ctx, departmentID)
	if err != nil {
		return nil, err
	}
	return Validate(rows, refs.TimeSlots, refs.Teachers, ValidateOptions{Log: true})
}

// StoredConflicts runs conflict detection over entries already in the database.
func (s *Service) StoredConflicts(ctx context.Context, departmentID *uint) (Conflicts, error) {
	entries, err := s.store.ListEntries(ctx, EntryFilter{DepartmentID: departmentID})
	if err != nil {
		return Conflicts{}, err
	}
	rows := make([]Row, len(entries))
	for i, e := range entries {
		rows[i] = RowFromEntry(e)
	}
	return FindConflicts(rows), nil
}
