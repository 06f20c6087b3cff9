package timetable

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"timetable-backend/models"
)

// References is the reference data a generation run is built from. Slice order
// matters: the solver addresses subjects, teachers, classes and rooms by their
// position in these slices.
type References struct {
	Departments     []models.Department     `json:"departments"`
	Classes         []models.Class          `json:"classes"`
	Teachers        []models.TeacherProfile `json:"teachers"`
	Subjects        []models.Subject        `json:"subjects"`
	Rooms           []models.Room           `json:"rooms"`
	TimeSlots       []models.TimeSlot       `json:"time_slots"`
	TeacherSubjects []models.TeacherSubject `json:"teacher_subjects"`
}

// GenerationRequest is the body sent to the solver. Map keys are decimal subject indices.
type GenerationRequest struct {
	NumClasses      int              `json:"num_classes"`
	Days            int              `json:"days"`
	SlotsPerDay     int              `json:"slots_per_day"`
	TotalRooms      int              `json:"total_rooms"`
	TotalTeachers   int              `json:"total_teachers"`
	SubjectHours    map[string]int   `json:"subject_hours"`
	SubjectTeachers map[string][]int `json:"subject_teachers"`
	SubjectNames    []string         `json:"subject_names"`
	TeacherNames    []string         `json:"teacher_names"`
	ClassNames      []string         `json:"class_names"`
	RoomNames       []string         `json:"room_names"`
	MaxHoursPerDay  *int             `json:"max_hours_per_day,omitempty"`
	MaxHoursPerWeek *int             `json:"max_hours_per_week,omitempty"`
	PopulationSize  *int             `json:"population_size,omitempty"`
	Generations     *int             `json:"generations,omitempty"`
	MutationRate    *float64         `json:"mutation_rate,omitempty"`
}

// FlexString decodes a JSON string or number into its string form.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// Int returns the value as an int when it is a plain non-negative integer.
func (f FlexString) Int() (int, bool) {
	s := strings.TrimSpace(string(f))
	if !isDigits(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	return n, err == nil
}

// SlotInfo is one cell as returned by the solver.
type SlotInfo struct {
	SubjectID   *int       `json:"subject_id"`
	SubjectName string     `json:"subject_name"`
	TeacherID   *int       `json:"teacher_id"`
	TeacherName string     `json:"teacher_name"`
	RoomID      *int       `json:"room_id"`
	RoomName    FlexString `json:"room_name"`
	ClassID     FlexString `json:"class_id"`
	ClassName   string     `json:"class_name"`
	Day         FlexString `json:"day"`
	Slot        *int       `json:"slot"`
	StartTime   string     `json:"start_time,omitempty"`
	IsFree      bool       `json:"is_free"`
	SessionType string     `json:"session_type,omitempty"`
	Type        string     `json:"type,omitempty"`
}

type ClassTimetable struct {
	ClassID   FlexString   `json:"class_id"`
	ClassName string       `json:"class_name"`
	Timetable [][]SlotInfo `json:"timetable"`
}

type CombinedSlot struct {
	Day         int        `json:"day"`
	Slot        int        `json:"slot"`
	Assignments []SlotInfo `json:"assignments"`
}

// GenerationResponse holds whichever of the three solver shapes was returned.
// Slots is filled when the body is a bare JSON array.
type GenerationResponse struct {
	Success           bool             `json:"success"`
	FitnessScore      float64          `json:"fitness_score"`
	GenerationCount   int              `json:"generation_count"`
	StudentTimetables []ClassTimetable `json:"student_timetables,omitempty"`
	TeacherTimetables json.RawMessage  `json:"teacher_timetables,omitempty"`
	CombinedView      []CombinedSlot   `json:"combined_view,omitempty"`
	Slots             []SlotInfo       `json:"slots,omitempty"`

	Raw json.RawMessage `json:"-"`
}

// ParseResponse decodes a solver body in any of the accepted shapes.
func ParseResponse(body []byte) (*GenerationResponse, error) {
	trimmed := bytes.TrimSpace(body)
	resp := &GenerationResponse{Raw: json.RawMessage(trimmed)}
	if len(trimmed) > 0 && trimmed[0] == '[' {
		if err := json.Unmarshal(trimmed, &resp.Slots); err != nil {
			return nil, err
		}
		resp.Success = true
		return resp, nil
	}
	if err := json.Unmarshal(trimmed, resp); err != nil {
		return nil, err
	}
	return resp, nil
}

// Slot is one filled cell of an organized timetable.
type Slot struct {
	SubjectID   *int   `json:"subject_id,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	TeacherID   *int   `json:"teacher_id,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	RoomID      *int   `json:"room_id,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
	ClassID     string `json:"class_id"`
	ClassName   string `json:"class_name,omitempty"`
	Day         string `json:"day"`
	SlotIndex   *int   `json:"slot,omitempty"`
	StartTime   string `json:"start_time"`
	Type        string `json:"type"`
}

// Organized is class key -> day name -> "HH:MM" -> slot.
type Organized map[string]map[string]map[string]*Slot

func (o Organized) put(classKey, day, time string, s *Slot) {
	days, ok := o[classKey]
	if !ok {
		days = map[string]map[string]*Slot{}
		o[classKey] = days
	}
	cells, ok := days[day]
	if !ok {
		cells = map[string]*Slot{}
		days[day] = cells
	}
	cells[time] = s
}

// Cells counts the filled slots.
func (o Organized) Cells() int {
	n := 0
	for _, days := range o {
		for _, cells := range days {
			for _, s := range cells {
				if s != nil {
					n++
				}
			}
		}
	}
	return n
}

// Session types
const (
	TypeTheory = "Theory"
	TypeLab    = "Lab"
)

// Row is a timetable entry ready to persist. The name fields are carried for
// validation messages and for rows supplied by callers without IDs.
type Row struct {
	ClassID      uint   `json:"class_id"`
	TimeSlotID   uint   `json:"time_slot_id"`
	SubjectID    uint   `json:"subject_id"`
	TeacherID    uint   `json:"teacher_id"`
	RoomID       uint   `json:"room_id"`
	Type         string `json:"type"`
	DepartmentID *uint  `json:"department_id,omitempty"`

	ClassName   string `json:"class_name,omitempty"`
	SubjectName string `json:"subject_name,omitempty"`
	TeacherName string `json:"teacher_name,omitempty"`
	RoomName    string `json:"room_name,omitempty"`
}

// Entry converts r into its database row.
func (r Row) Entry() models.TimetableEntry {
	typ := strings.ToUpper(strings.TrimSpace(r.Type))
	if typ == "" {
		typ = models.SubjectTheory
	}
	return models.TimetableEntry{
		ClassID:      r.ClassID,
		TimeSlotID:   r.TimeSlotID,
		SubjectID:    r.SubjectID,
		TeacherID:    r.TeacherID,
		RoomID:       r.RoomID,
		Type:         typ,
		DepartmentID: r.DepartmentID,
	}
}

// RowFromEntry is the inverse of Row.Entry.
func RowFromEntry(e models.TimetableEntry) Row {
	return Row{
		ClassID:      e.ClassID,
		TimeSlotID:   e.TimeSlotID,
		SubjectID:    e.SubjectID,
		TeacherID:    e.TeacherID,
		RoomID:       e.RoomID,
		Type:         e.Type,
		DepartmentID: e.DepartmentID,
	}
}
