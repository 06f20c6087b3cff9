package importer

import (
	"fmt"
	"io"
	"strings"

	"timetable-backend/models"
)

// Required header columns per entity.
var (
	RoomColumns     = []string{"room_number", "capacity", "room_type"}
	ClassColumns    = []string{"class_name", "department", "semester", "section", "students", "academic_year"}
	SubjectColumns  = []string{"subject_name", "subject_code", "credits", "semester", "type", "hours_per_week"}
	TeacherColumns  = []string{"name", "email", "emp_id", "department", "designation"}
	TimeSlotColumns = []string{"day", "slot", "start_time", "end_time"}
)

// RoomRecord is a room row; Row is its spreadsheet row number.
type RoomRecord struct {
	models.RoomRequest
	Row int `json:"row"`
}

type RoomImport struct {
	Rooms   []RoomRecord `json:"rooms"`
	Skipped int          `json:"skipped"`
	Errors  []RowError   `json:"errors,omitempty"`
}

// ParseRooms reads rooms. Rows with an unknown room type are skipped.
func ParseRooms(r io.Reader) (*RoomImport, error) {
	s, err := readSheet(r, RoomColumns)
	if err != nil {
		return nil, err
	}
	out := &RoomImport{}
	s.each(func(rowNum int, get func(string) string) {
		number := get("room_number")
		if number == "" {
			out.Errors = append(out.Errors, RowError{rowNum, "room_number is required"})
			return
		}
		capacity, err := parseInt(get("capacity"))
		if err != nil || capacity == nil || *capacity <= 0 {
			out.Errors = append(out.Errors, RowError{rowNum, fmt.Sprintf("invalid capacity %q", get("capacity"))})
			return
		}
		roomType, ok := canonicalRoomType(get("room_type"))
		if !ok {
			out.Skipped++
			return
		}
		out.Rooms = append(out.Rooms, RoomRecord{
			RoomRequest: models.RoomRequest{
				RoomNumber: number,
				Name:       get("name"),
				RoomType:   roomType,
				Capacity:   capacity,
			},
			Row: rowNum,
		})
	})
	return out, nil
}

func canonicalRoomType(v string) (string, bool) {
	for _, t := range models.RoomTypes {
		if strings.EqualFold(strings.TrimSpace(v), t) {
			return t, true
		}
	}
	return "", false
}

// ClassRecord is a class row; Department is resolved to an ID by the caller.
type ClassRecord struct {
	models.ClassRequest
	Department string `json:"department"`
	Row        int    `json:"row"`
}

type ClassImport struct {
	Classes []ClassRecord `json:"classes"`
	Errors  []RowError    `json:"errors,omitempty"`
}

func ParseClasses(r io.Reader) (*ClassImport, error) {
	s, err := readSheet(r, ClassColumns)
	if err != nil {
		return nil, err
	}
	out := &ClassImport{}
	s.each(func(rowNum int, get func(string) string) {
		name := get("class_name")
		if name == "" {
			out.Errors = append(out.Errors, RowError{rowNum, "class_name is required"})
			return
		}
		semester, err := parseInt(get("semester"))
		if err != nil {
			out.Errors = append(out.Errors, RowError{rowNum, "semester: " + err.Error()})
			return
		}
		students, err := parseInt(get("students"))
		if err != nil {
			out.Errors = append(out.Errors, RowError{rowNum, "students: " + err.Error()})
			return
		}
		out.Classes = append(out.Classes, ClassRecord{
			ClassRequest: models.ClassRequest{
				ClassName:     name,
				Semester:      semester,
				Section:       get("section"),
				StudentsCount: students,
				AcademicYear:  get("academic_year"),
			},
			Department: get("department"),
			Row:        rowNum,
		})
	})
	return out, nil
}

type SubjectRecord struct {
	models.SubjectRequest
	Department string `json:"department,omitempty"`
	Row        int    `json:"row"`
}

type SubjectImport struct {
	Subjects []SubjectRecord `json:"subjects"`
	Errors   []RowError      `json:"errors,omitempty"`
}

func ParseSubjects(r io.Reader) (*SubjectImport, error) {
	s, err := readSheet(r, SubjectColumns)
	if err != nil {
		return nil, err
	}
	out := &SubjectImport{}
	s.each(func(rowNum int, get func(string) string) {
		name, code := get("subject_name"), get("subject_code")
		if name == "" || code == "" {
			out.Errors = append(out.Errors, RowError{rowNum, "subject_name and subject_code are required"})
			return
		}
		typ, err := NormalizeSubjectType(get("type"))
		if err != nil {
			out.Errors = append(out.Errors, RowError{rowNum, err.Error()})
			return
		}
		rec := SubjectRecord{
			SubjectRequest: models.SubjectRequest{SubjectName: name, SubjectCode: code, Type: typ},
			Department:     get("department"),
			Row:            rowNum,
		}
		for col, dst := range map[string]**int{
			"credits":        &rec.Credits,
			"semester":       &rec.Semester,
			"hours_per_week": &rec.HoursPerWeek,
		} {
			v, err := parseInt(get(col))
			if err != nil {
				out.Errors = append(out.Errors, RowError{rowNum, col + ": " + err.Error()})
				return
			}
			*dst = v
		}
		out.Subjects = append(out.Subjects, rec)
	})
	return out, nil
}

var subjectTypes = map[string]string{
	"theory":   models.SubjectTheory,
	"lab":      models.SubjectLab,
	"tutorial": models.SubjectTutorial,
	"elective": models.SubjectElective,
}

// NormalizeSubjectType maps a case-insensitive subject type to its stored form.
func NormalizeSubjectType(raw string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(raw))
	if key == "" {
		return "", fmt.Errorf("missing subject type. Allowed: Theory, Lab")
	}
	if t, ok := subjectTypes[key]; ok {
		return t, nil
	}
	return "", fmt.Errorf("invalid subject type %q. Allowed: Theory, Lab", raw)
}

type TeacherRecord struct {
	models.TeacherRequest
	Department string `json:"department"`
	Row        int    `json:"row"`
}

type TeacherImport struct {
	Teachers []TeacherRecord `json:"teachers"`
	Errors   []RowError      `json:"errors,omitempty"`
}

func ParseTeachers(r io.Reader) (*TeacherImport, error) {
	s, err := readSheet(r, TeacherColumns)
	if err != nil {
		return nil, err
	}
	out := &TeacherImport{}
	s.each(func(rowNum int, get func(string) string) {
		name, email, emp := get("name"), get("email"), get("emp_id")
		if name == "" || email == "" || emp == "" {
			out.Errors = append(out.Errors, RowError{rowNum, "name, email and emp_id are required"})
			return
		}
		maxHours, err := parseInt(get("max_hours"))
		if err != nil {
			out.Errors = append(out.Errors, RowError{rowNum, "max_hours: " + err.Error()})
			return
		}
		out.Teachers = append(out.Teachers, TeacherRecord{
			TeacherRequest: models.TeacherRequest{
				Name:        name,
				Email:       strings.ToLower(email),
				EmpID:       emp,
				Designation: get("designation"),
				MaxHours:    maxHours,
			},
			Department: get("department"),
			Row:        rowNum,
		})
	})
	return out, nil
}

type TimeSlotRecord struct {
	models.TimeSlotRequest
	Department string `json:"department,omitempty"`
	Row        int    `json:"row"`
}

type TimeSlotImport struct {
	TimeSlots []TimeSlotRecord `json:"time_slots"`
	Errors    []RowError       `json:"errors,omitempty"`
}

func ParseTimeSlots(r io.Reader) (*TimeSlotImport, error) {
	s, err := readSheet(r, TimeSlotColumns)
	if err != nil {
		return nil, err
	}
	out := &TimeSlotImport{}
	s.each(func(rowNum int, get func(string) string) {
		day := get("day")
		if day == "" {
			out.Errors = append(out.Errors, RowError{rowNum, "day is required"})
			return
		}
		slot, err := parseInt(get("slot"))
		if err != nil || slot == nil {
			out.Errors = append(out.Errors, RowError{rowNum, fmt.Sprintf("invalid slot %q", get("slot"))})
			return
		}
		out.TimeSlots = append(out.TimeSlots, TimeSlotRecord{
			TimeSlotRequest: models.TimeSlotRequest{
				Day:       day,
				Slot:      *slot,
				StartTime: get("start_time"),
				EndTime:   get("end_time"),
				Label:     get("label"),
			},
			Department: get("department"),
			Row:        rowNum,
		})
	})
	return out, nil
}
