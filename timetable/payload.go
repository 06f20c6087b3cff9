package timetable

import (
	"fmt"
	"strconv"

	"timetable-backend/models"
)

// Overrides replace computed payload fields when set.
type Overrides struct {
	Days            *int             `json:"days,omitempty"`
	SlotsPerDay     *int             `json:"slots_per_day,omitempty"`
	MaxHoursPerDay  *int             `json:"max_hours_per_day,omitempty"`
	MaxHoursPerWeek *int             `json:"max_hours_per_week,omitempty"`
	PopulationSize  *int             `json:"population_size,omitempty"`
	Generations     *int             `json:"generations,omitempty"`
	MutationRate    *float64         `json:"mutation_rate,omitempty"`
	SubjectHours    map[string]int   `json:"subject_hours,omitempty"`
	SubjectTeachers map[string][]int `json:"subject_teachers,omitempty"`
}

type PayloadOptions struct {
	// Times is the configured period list; its length bounds slots_per_day when
	// there are no time slots.
	Times     []string
	Overrides *Overrides
}

const (
	defaultDays        = 5
	defaultSlotsPerDay = 6
)

// AssemblePayload builds the solver request from reference data.
func AssemblePayload(refs *References, opts PayloadOptions) *GenerationRequest {
	deptNames := make(map[uint]string, len(refs.Departments))
	for _, d := range refs.Departments {
		deptNames[d.ID] = d.Name
	}

	teacherNames := make([]string, len(refs.Teachers))
	for i, t := range refs.Teachers {
		teacherNames[i] = orDefault(t.Name, "Unknown")
	}

	subjectNames := make([]string, len(refs.Subjects))
	for i, s := range refs.Subjects {
		subjectNames[i] = orDefault(s.SubjectName, "Subject")
	}

	classNames := make([]string, 0, len(refs.Classes))
	for _, c := range refs.Classes {
		classNames = append(classNames, className(c, deptNames))
	}
	if len(classNames) == 0 {
		classNames = []string{"Class A"}
	}

	roomNames := make([]string, len(refs.Rooms))
	for i, r := range refs.Rooms {
		roomNames[i] = orDefault(r.RoomNumber, strconv.FormatUint(uint64(r.ID), 10))
	}

	req := &GenerationRequest{
		NumClasses:      atLeastOne(len(refs.Classes)),
		Days:            countDays(refs.TimeSlots),
		SlotsPerDay:     slotsPerDay(refs.TimeSlots, len(opts.Times)),
		TotalRooms:      atLeastOne(len(refs.Rooms)),
		TotalTeachers:   atLeastOne(len(refs.Teachers)),
		SubjectHours:    subjectHours(refs.Subjects),
		SubjectTeachers: subjectTeachers(refs),
		SubjectNames:    subjectNames,
		TeacherNames:    teacherNames,
		ClassNames:      classNames,
		RoomNames:       roomNames,
	}

	if opts.Overrides != nil {
		ApplyOverrides(req, opts.Overrides)
	}
	return req
}

// ApplyOverrides copies every set field of o onto req.
func ApplyOverrides(req *GenerationRequest, o *Overrides) {
	if o.Days != nil {
		req.Days = *o.Days
	}
	if o.SlotsPerDay != nil {
		req.SlotsPerDay = *o.SlotsPerDay
	}
	if o.MaxHoursPerDay != nil {
		req.MaxHoursPerDay = o.MaxHoursPerDay
	}
	if o.MaxHoursPerWeek != nil {
		req.MaxHoursPerWeek = o.MaxHoursPerWeek
	}
	if o.PopulationSize != nil {
		req.PopulationSize = o.PopulationSize
	}
	if o.Generations != nil {
		req.Generations = o.Generations
	}
	if o.MutationRate != nil {
		req.MutationRate = o.MutationRate
	}
	if o.SubjectHours != nil {
		req.SubjectHours = make(map[string]int, len(o.SubjectHours))
		for k, v := range o.SubjectHours {
			req.SubjectHours[k] = v
		}
	}
	if o.SubjectTeachers != nil {
		req.SubjectTeachers = make(map[string][]int, len(o.SubjectTeachers))
		for k, idxs := range o.SubjectTeachers {
			kept := make([]int, 0, len(idxs))
			for _, i := range idxs {
				if i >= 0 {
					kept = append(kept, i)
				}
			}
			req.SubjectTeachers[k] = kept
		}
	}
}

func className(c models.Class, deptNames map[uint]string) string {
	if c.ClassName != "" {
		return c.ClassName
	}
	dept := ""
	if c.DepartmentID != nil {
		dept = deptNames[*c.DepartmentID]
	}
	semester := ""
	if c.Semester != nil {
		semester = strconv.Itoa(*c.Semester)
	}
	return fmt.Sprintf("%s-%s%s", orDefault(dept, "Class"), orDefault(c.Section, "A"), semester)
}

func countDays(slots []models.TimeSlot) int {
	if len(slots) == 0 {
		return defaultDays
	}
	seen := map[string]struct{}{}
	for _, s := range slots {
		seen[s.Day] = struct{}{}
	}
	return len(seen)
}

func slotsPerDay(slots []models.TimeSlot, times int) int {
	n := 0
	if len(slots) > 0 {
		first := slots[0].Day
		for _, s := range slots {
			if s.Day == first {
				n++
			}
		}
	} else {
		n = times
		if n > defaultSlotsPerDay {
			n = defaultSlotsPerDay
		}
	}
	if n == 0 {
		return defaultSlotsPerDay
	}
	return n
}

func subjectHours(subjects []models.Subject) map[string]int {
	out := make(map[string]int, len(subjects))
	for i, s := range subjects {
		switch {
		case s.HoursPerWeek != nil:
			out[strconv.Itoa(i)] = *s.HoursPerWeek
		case i%2 == 0:
			out[strconv.Itoa(i)] = 3
		default:
			out[strconv.Itoa(i)] = 4
		}
	}
	return out
}

// subjectTeachers lists teacher indices per subject index: explicit
// teacher/subject links first, then teachers of the subject's department, then [0].
func subjectTeachers(refs *References) map[string][]int {
	teacherIdx := make(map[uint]int, len(refs.Teachers))
	byDept := map[string][]int{}
	for i, t := range refs.Teachers {
		teacherIdx[t.ID] = i
		key := deptKey(t.DepartmentID)
		byDept[key] = append(byDept[key], i)
	}

	linked := map[uint][]int{}
	for _, ts := range refs.TeacherSubjects {
		if idx, ok := teacherIdx[ts.TeacherID]; ok {
			linked[ts.SubjectID] = append(linked[ts.SubjectID], idx)
		}
	}

	out := make(map[string][]int, len(refs.Subjects))
	for i, s := range refs.Subjects {
		key := strconv.Itoa(i)
		switch {
		case len(linked[s.ID]) > 0:
			out[key] = linked[s.ID]
		case len(byDept[deptKey(s.DepartmentID)]) > 0:
			out[key] = byDept[deptKey(s.DepartmentID)]
		default:
			out[key] = []int{0}
		}
	}
	return out
}

func deptKey(id *uint) string {
	if id == nil {
		return "__unknown__"
	}
	return strconv.FormatUint(uint64(*id), 10)
}

func orDefault(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}
