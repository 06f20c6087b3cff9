package timetable

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timetable-backend/models"
)

// Insert modes
const (
	ModeUpsert  = "upsert"
	ModeReplace = "replace"
)

type SaveOptions struct {
	Mode         string
	DepartmentID *uint
}

type EntryFilter struct {
	ClassID      *uint
	TeacherID    *uint
	RoomID       *uint
	SubjectID    *uint
	TimeSlotID   *uint
	DepartmentID *uint
}

// Store is the persistence the pipeline needs.
type Store interface {
	LoadReferences(ctx context.Context, departmentID *uint) (*References, error)
	SaveEntries(ctx context.Context, rows []Row, opts SaveOptions) (int, error)
	ClearClasses(ctx context.Context, classIDs []uint) (int64, error)
	ListEntries(ctx context.Context, filter EntryFilter) ([]models.TimetableEntry, error)
	RecordRun(ctx context.Context, run *models.GenerationRun) error
	ListRuns(ctx context.Context, departmentID *uint, limit int) ([]models.GenerationRun, error)
}

type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

// LoadReferences reads all reference tables concurrently. With a department,
// classes, teachers and subjects are limited to it; rooms and time slots also
// include the shared rows that have no department.
func (s *GormStore) LoadReferences(ctx context.Context, departmentID *uint) (*References, error) {
	refs := &References{}
	g, ctx := errgroup.WithContext(ctx)

	scoped := func(shared bool) *gorm.DB {
		q := s.db.WithContext(ctx).Order("id")
		if departmentID == nil {
			return q
		}
		if shared {
			return q.Where("department_id = ? OR department_id IS NULL", *departmentID)
		}
		return q.Where("department_id = ?", *departmentID)
	}

	g.Go(func() error {
		return wrap("departments", s.db.WithContext(ctx).Order("id").Find(&refs.Departments).Error)
	})
	g.Go(func() error { return wrap("classes", scoped(false).Find(&refs.Classes).Error) })
	g.Go(func() error { return wrap("teachers", scoped(false).Find(&refs.Teachers).Error) })
	g.Go(func() error { return wrap("subjects", scoped(false).Find(&refs.Subjects).Error) })
	g.Go(func() error { return wrap("rooms", scoped(true).Find(&refs.Rooms).Error) })
	g.Go(func() error {
		return wrap("time slots", scoped(true).Order("slot").Find(&refs.TimeSlots).Error)
	})
	g.Go(func() error {
		q := s.db.WithContext(ctx).Order("id")
		if departmentID != nil {
			q = q.Where("teacher_id IN (?)",
				s.db.Model(&models.TeacherProfile{}).Select("id").Where("department_id = ?", *departmentID))
		}
		return wrap("teacher subjects", q.Find(&refs.TeacherSubjects).Error)
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return refs, nil
}

func wrap(what string, err error) error {
	if err != nil {
		return fmt.Errorf("load %s: %w", what, err)
	}
	return nil
}

// SaveEntries writes rows in one transaction. Upsert updates the existing entry
// for each (class_id, time_slot_id); replace first deletes the department's
// entries (when scoped) and every entry of the affected classes.
func (s *GormStore) SaveEntries(ctx context.Context, rows []Row, opts SaveOptions) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}

	entries := make([]models.TimetableEntry, len(rows))
	classSet := map[uint]struct{}{}
	classIDs := make([]uint, 0)
	for i, r := range rows {
		entries[i] = r.Entry()
		if _, ok := classSet[r.ClassID]; !ok {
			classSet[r.ClassID] = struct{}{}
			classIDs = append(classIDs, r.ClassID)
		}
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if opts.Mode == ModeReplace {
			res := replaceScope(tx, classIDs, opts.DepartmentID).Delete(&models.TimetableEntry{})
			if res.Error != nil {
				return fmt.Errorf("clear existing entries: %w", res.Error)
			}
			log.Printf("🗑️ Replaced %d existing timetable entries", res.RowsAffected)
			return tx.CreateInBatches(&entries, 200).Error
		}
		return tx.Clauses(entryUpsert()).CreateInBatches(&entries, 200).Error
	})
	if err != nil {
		return 0, err
	}
	return len(entries), nil
}

// replaceScope selects the entries a replace run deletes: every entry of the
// affected classes, plus the whole department when one is given.
func replaceScope(tx *gorm.DB, classIDs []uint, departmentID *uint) *gorm.DB {
	if departmentID != nil {
		return tx.Where("department_id = ? OR class_id IN ?", *departmentID, classIDs)
	}
	return tx.Where("class_id IN ?", classIDs)
}

// entryUpsert overwrites the assignment held by an existing (class, time slot) entry.
func entryUpsert() clause.OnConflict {
	return clause.OnConflict{
		Columns: []clause.Column{{Name: "class_id"}, {Name: "time_slot_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"subject_id", "teacher_id", "room_id", "type", "department_id",
		}),
	}
}

func (s *GormStore) ClearClasses(ctx context.Context, classIDs []uint) (int64, error) {
	if len(classIDs) == 0 {
		return 0, nil
	}
	res := s.db.WithContext(ctx).Where("class_id IN ?", classIDs).Delete(&models.TimetableEntry{})
	return res.RowsAffected, res.Error
}

func (s *GormStore) ListEntries(ctx context.Context, f EntryFilter) ([]models.TimetableEntry, error) {
	q := s.db.WithContext(ctx).Model(&models.TimetableEntry{}).Preload("TimeSlot")
	if f.ClassID != nil {
		q = q.Where("class_id = ?", *f.ClassID)
	}
	if f.TeacherID != nil {
		q = q.Where("teacher_id = ?", *f.TeacherID)
	}
	if f.RoomID != nil {
		q = q.Where("room_id = ?", *f.RoomID)
	}
	if f.SubjectID != nil {
		q = q.Where("subject_id = ?", *f.SubjectID)
	}
	if f.TimeSlotID != nil {
		q = q.Where("time_slot_id = ?", *f.TimeSlotID)
	}
	if f.DepartmentID != nil {
		q = q.Where("department_id = ?", *f.DepartmentID)
	}

	var entries []models.TimetableEntry
	if err := q.Order("class_id, time_slot_id").Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *GormStore) RecordRun(ctx context.Context, run *models.GenerationRun) error {
	return s.db.WithContext(ctx).Create(run).Error
}

func (s *GormStore) ListRuns(ctx context.Context, departmentID *uint, limit int) ([]models.GenerationRun, error) {
	q := s.db.WithContext(ctx).Omit("request", "response").Order("created_at DESC")
	if departmentID != nil {
		q = q.Where("department_id = ?", *departmentID)
	}
	if limit > 0 {
		q = q.Limit(limit)
	}
	var runs []models.GenerationRun
	if err := q.Find(&runs).Error; err != nil {
		return nil, err
	}
	return runs, nil
}
