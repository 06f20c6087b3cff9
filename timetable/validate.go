package timetable

import (
	"errors"
	"fmt"
	"log"
	"sort"
	"strconv"
	"strings"

	"timetable-backend/models"
)

var ErrNoReferenceData = errors.New("not enough reference data to generate a timetable")

// ConflictItem is one double-booking: several rows sharing a key within a time slot.
type ConflictItem struct {
	Key        string `json:"key"`
	TimeSlotID uint   `json:"time_slot_id"`
	Rows       []Row  `json:"rows"`
}

type Conflicts struct {
	Teacher []ConflictItem `json:"teacher_conflicts"`
	Room    []ConflictItem `json:"room_conflicts"`
	Class   []ConflictItem `json:"class_conflicts"`
}

func (c Conflicts) Total() int {
	return len(c.Teacher) + len(c.Room) + len(c.Class)
}

// ConflictError rejects a timetable that double-books a teacher, room or class.
type ConflictError struct {
	Conflicts Conflicts
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("Validation failed: %d teacher, %d room, %d class conflicts detected.",
		len(e.Conflicts.Teacher), len(e.Conflicts.Room), len(e.Conflicts.Class))
}

// MissingTeachersError lists teachers referenced by rows that do not exist.
type MissingTeachersError struct {
	Missing []string
}

func (e *MissingTeachersError) Error() string {
	sample := e.Missing
	if len(sample) > 3 {
		sample = sample[:3]
	}
	return fmt.Sprintf("Unknown teacher name(s) for department: %d missing. Samples: %s",
		len(e.Missing), strings.Join(sample, ", "))
}

// refKey prefers the ID and falls back to the normalized name.
func refKey(id uint, name string) string {
	if id != 0 {
		return strconv.FormatUint(uint64(id), 10)
	}
	return NormalizeName(name)
}

// FindConflicts groups rows by (teacher, slot), (room, slot) and (class, slot).
// Any group with more than one row is a conflict. Output is sorted by key.
func FindConflicts(rows []Row) Conflicts {
	teacher := map[string][]Row{}
	room := map[string][]Row{}
	class := map[string][]Row{}

	push := func(m map[string][]Row, ref string, r Row) {
		if ref == "" || r.TimeSlotID == 0 {
			return
		}
		key := ref + "::" + strconv.FormatUint(uint64(r.TimeSlotID), 10)
		m[key] = append(m[key], r)
	}

	for _, r := range rows {
		push(teacher, refKey(r.TeacherID, r.TeacherName), r)
		push(room, refKey(r.RoomID, r.RoomName), r)
		push(class, refKey(r.ClassID, r.ClassName), r)
	}

	return Conflicts{
		Teacher: conflictList(teacher),
		Room:    conflictList(room),
		Class:   conflictList(class),
	}
}

func conflictList(m map[string][]Row) []ConflictItem {
	out := []ConflictItem{}
	for key, rows := range m {
		if len(rows) > 1 {
			out = append(out, ConflictItem{Key: key, TimeSlotID: rows[0].TimeSlotID, Rows: rows})
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out
}

// SlotMeta is what DescribeTimeSlot needs to know about a time slot.
type SlotMeta struct {
	Day       string
	Slot      *int
	StartTime string
	EndTime   string
}

func BuildTimeSlotLookup(slots []models.TimeSlot) map[uint]SlotMeta {
	out := make(map[uint]SlotMeta, len(slots))
	for _, ts := range slots {
		slot := ts.Slot
		out[ts.ID] = SlotMeta{Day: ts.Day, Slot: &slot, StartTime: ts.StartTime, EndTime: ts.EndTime}
	}
	return out
}

// DescribeTimeSlot renders a time slot for log lines, e.g. "MON (09:00-10:00) [id=3]".
func DescribeTimeSlot(id uint, lookup map[uint]SlotMeta) string {
	meta, ok := lookup[id]
	if !ok {
		return fmt.Sprintf("time_slot_id=%d", id)
	}
	var when string
	switch {
	case meta.StartTime != "" && meta.EndTime != "":
		when = meta.StartTime + "-" + meta.EndTime
	case meta.StartTime != "":
		when = meta.StartTime
	case meta.Slot != nil:
		when = fmt.Sprintf("slot#%d", *meta.Slot)
	default:
		when = "time=N/A"
	}
	return fmt.Sprintf("%s (%s) [id=%d]", orDefault(meta.Day, "?"), when, id)
}

// EnsureTeachersExist returns the teachers referenced by rows that are not in
// teachers. A row matches by teacher ID or by normalized name. With strict set,
// a non-empty result is also returned as *MissingTeachersError.
func EnsureTeachersExist(rows []Row, teachers []models.TeacherProfile, strict bool) ([]string, error) {
	ids := make(map[uint]struct{}, len(teachers))
	names := make(map[string]struct{}, len(teachers))
	for _, t := range teachers {
		ids[t.ID] = struct{}{}
		if n := NormalizeName(t.Name); n != "" {
			names[n] = struct{}{}
		}
	}

	seen := map[string]struct{}{}
	var missing []string
	for _, r := range rows {
		if r.TeacherID != 0 {
			if _, ok := ids[r.TeacherID]; ok {
				continue
			}
		}
		if n := NormalizeName(r.TeacherName); n != "" {
			if _, ok := names[n]; ok {
				continue
			}
		}
		label := strings.TrimSpace(r.TeacherName)
		if label == "" && r.TeacherID != 0 {
			label = fmt.Sprintf("id=%d", r.TeacherID)
		}
		if label == "" {
			continue
		}
		if _, dup := seen[label]; !dup {
			seen[label] = struct{}{}
			missing = append(missing, label)
		}
	}

	if strict && len(missing) > 0 {
		return missing, &MissingTeachersError{Missing: missing}
	}
	return missing, nil
}

// DuplicateEmpIDs reports emp_ids shared by differently named teachers.
func DuplicateEmpIDs(teachers []models.TeacherProfile) map[string][]string {
	byEmp := map[string][]string{}
	for _, t := range teachers {
		emp := strings.TrimSpace(t.EmpID)
		if emp == "" || t.Name == "" {
			continue
		}
		found := false
		for _, n := range byEmp[emp] {
			if n == t.Name {
				found = true
				break
			}
		}
		if !found {
			byEmp[emp] = append(byEmp[emp], t.Name)
		}
	}
	out := map[string][]string{}
	for emp, names := range byEmp {
		if len(names) > 1 {
			sort.Strings(names)
			out[emp] = names
		}
	}
	return out
}

type ValidateOptions struct {
	ThrowOnConflict bool
	RequireTeachers bool
	Log             bool
}

type ValidationResult struct {
	Conflicts       Conflicts           `json:"conflicts"`
	TotalConflicts  int                 `json:"total_conflicts"`
	MissingTeachers []string            `json:"missing_teachers,omitempty"`
	DuplicateEmpIDs map[string][]string `json:"duplicate_emp_ids,omitempty"`
}

// Validate checks rows before they are written. Teacher existence is checked
// first, then conflicts.
func Validate(rows []Row, timeSlots []models.TimeSlot, teachers []models.TeacherProfile, opts ValidateOptions) (*ValidationResult, error) {
	res := &ValidationResult{}

	if len(teachers) > 0 {
		res.DuplicateEmpIDs = DuplicateEmpIDs(teachers)
		if opts.Log {
			for emp, names := range res.DuplicateEmpIDs {
				log.Printf("⚠️ Multiple teacher names map to emp_id=%s: %v", emp, names)
			}
		}
	}

	missing, err := EnsureTeachersExist(rows, teachers, opts.RequireTeachers)
	res.MissingTeachers = missing
	if opts.Log && len(missing) > 0 {
		log.Printf("⚠️ Missing teacher_profile entries: %d (%v)", len(missing), missing)
	}
	if err != nil {
		return res, err
	}

	res.Conflicts = FindConflicts(rows)
	res.TotalConflicts = res.Conflicts.Total()

	if opts.Log && res.TotalConflicts > 0 {
		logConflicts(res.Conflicts, BuildTimeSlotLookup(timeSlots))
	}

	if opts.ThrowOnConflict && res.TotalConflicts > 0 {
		return res, &ConflictError{Conflicts: res.Conflicts}
	}
	return res, nil
}

func logConflicts(c Conflicts, lookup map[uint]SlotMeta) {
	bucket := func(label string, items []ConflictItem) {
		if len(items) == 0 {
			return
		}
		log.Printf("⚠️ %s conflicts: %d", label, len(items))
		for _, item := range items {
			ref := strings.SplitN(item.Key, "::", 2)[0]
			log.Printf("   %s=%s @ %s -> %d entries", strings.ToLower(label), ref,
				DescribeTimeSlot(item.TimeSlotID, lookup), len(item.Rows))
		}
	}
	bucket("Teacher", c.Teacher)
	bucket("Room", c.Room)
	bucket("Class", c.Class)
}
