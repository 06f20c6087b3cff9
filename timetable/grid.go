package timetable

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/jmoiron/sqlx"
)

// GridRow is a timetable entry joined with its display columns.
type GridRow struct {
	EntryID      uint   `db:"entry_id" json:"entry_id"`
	ClassID      uint   `db:"class_id" json:"class_id"`
	ClassName    string `db:"class_name" json:"class_name"`
	TimeSlotID   uint   `db:"time_slot_id" json:"time_slot_id"`
	Day          string `db:"day" json:"day"`
	Slot         int    `db:"slot" json:"slot"`
	StartTime    string `db:"start_time" json:"start_time"`
	EndTime      string `db:"end_time" json:"end_time"`
	SubjectID    uint   `db:"subject_id" json:"subject_id"`
	SubjectName  string `db:"subject_name" json:"subject_name"`
	SubjectCode  string `db:"subject_code" json:"subject_code"`
	TeacherID    uint   `db:"teacher_id" json:"teacher_id"`
	TeacherName  string `db:"teacher_name" json:"teacher_name"`
	RoomID       uint   `db:"room_id" json:"room_id"`
	RoomNumber   string `db:"room_number" json:"room_number"`
	Type         string `db:"type" json:"type"`
	DepartmentID *uint  `db:"department_id" json:"department_id,omitempty"`
}

type GridFilter struct {
	ClassID      *uint
	TeacherID    *uint
	RoomID       *uint
	DepartmentID *uint
}

// GridReader runs the joined read queries over the sqlx pool.
type GridReader struct {
	db *sqlx.DB
}

func NewGridReader(db *sqlx.DB) *GridReader {
	return &GridReader{db: db}
}

const gridSelect = `
SELECT e.id AS entry_id,
       e.class_id,
       c.class_name,
       e.time_slot_id,
       ts.day,
       ts.slot,
       COALESCE(ts.start_time, '') AS start_time,
       COALESCE(ts.end_time, '') AS end_time,
       e.subject_id,
       s.subject_name,
       s.subject_code,
       e.teacher_id,
       COALESCE(NULLIF(t.name, ''), TRIM(t.first_name || ' ' || t.last_name)) AS teacher_name,
       e.room_id,
       r.room_number,
       COALESCE(e.type, 'THEORY') AS type,
       e.department_id
FROM timetable_entries e
JOIN classes c ON c.id = e.class_id
JOIN time_slots ts ON ts.id = e.time_slot_id
JOIN subjects s ON s.id = e.subject_id
JOIN teacher_profile t ON t.id = e.teacher_id
JOIN room r ON r.id = e.room_id`

func buildGridQuery(f GridFilter) (string, []interface{}) {
	var where []string
	var args []interface{}
	add := func(col string, v *uint) {
		if v != nil {
			args = append(args, *v)
			where = append(where, fmt.Sprintf("%s = $%d", col, len(args)))
		}
	}
	add("e.class_id", f.ClassID)
	add("e.teacher_id", f.TeacherID)
	add("e.room_id", f.RoomID)
	add("e.department_id", f.DepartmentID)

	q := gridSelect
	if len(where) > 0 {
		q += "\nWHERE " + strings.Join(where, " AND ")
	}
	q += "\nORDER BY c.class_name, ts.slot, e.time_slot_id"
	return q, args
}

func (g *GridReader) Query(ctx context.Context, f GridFilter) ([]GridRow, error) {
	q, args := buildGridQuery(f)
	rows := []GridRow{}
	if err := g.db.SelectContext(ctx, &rows, q, args...); err != nil {
		return nil, fmt.Errorf("query timetable grid: %w", err)
	}
	SortGrid(rows)
	return rows, nil
}

// SortGrid orders rows by class name, weekday, slot.
func SortGrid(rows []GridRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if a.ClassName != b.ClassName {
			return a.ClassName < b.ClassName
		}
		if da, db := dayRank(a.Day), dayRank(b.Day); da != db {
			return da < db
		}
		return a.Slot < b.Slot
	})
}

// SortByDay orders rows by weekday, then start time and slot, then class name.
func SortByDay(rows []GridRow) {
	sort.SliceStable(rows, func(i, j int) bool {
		a, b := rows[i], rows[j]
		if da, db := dayRank(a.Day), dayRank(b.Day); da != db {
			return da < db
		}
		if a.Slot != b.Slot {
			return a.Slot < b.Slot
		}
		return a.ClassName < b.ClassName
	})
}

func dayRank(d string) int {
	if i, ok := DayIndex(d); ok {
		return i
	}
	return 1 << 20
}

// ClassGrid is one class's week: day -> "HH:MM" (or slot#N) -> row.
type ClassGrid struct {
	ClassID   uint                          `json:"class_id"`
	ClassName string                        `json:"class_name"`
	Days      map[string]map[string]GridRow `json:"days"`
}

// GroupByClass splits sorted grid rows into per-class grids in input order.
func GroupByClass(rows []GridRow) []ClassGrid {
	var out []ClassGrid
	pos := map[uint]int{}
	for _, r := range rows {
		i, ok := pos[r.ClassID]
		if !ok {
			i = len(out)
			pos[r.ClassID] = i
			out = append(out, ClassGrid{ClassID: r.ClassID, ClassName: r.ClassName, Days: map[string]map[string]GridRow{}})
		}
		cells, ok := out[i].Days[r.Day]
		if !ok {
			cells = map[string]GridRow{}
			out[i].Days[r.Day] = cells
		}
		cells[CellLabel(r)] = r
	}
	return out
}

func CellLabel(r GridRow) string {
	if t := NormalizeHHMM(r.StartTime); t != "" {
		return t
	}
	return fmt.Sprintf("slot#%d", r.Slot)
}
