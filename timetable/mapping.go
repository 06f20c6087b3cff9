package timetable

import (
	"fmt"
	"strconv"
	"strings"

	"timetable-backend/models"
)

// MapReport explains how many organized cells became rows and why the rest did not.
type MapReport struct {
	Cells             int      `json:"cells"`
	Mapped            int      `json:"mapped"`
	SkippedNoClass    int      `json:"skipped_no_class"`
	SkippedUnknownDay int      `json:"skipped_unknown_day"`
	SkippedNoTimeSlot int      `json:"skipped_no_time_slot"`
	SkippedUnresolved int      `json:"skipped_unresolved"`
	DroppedInvalidFK  int      `json:"dropped_invalid_fk"`
	Samples           []string `json:"samples,omitempty"`
}

const maxReportSamples = 10

func (r *MapReport) sample(format string, args ...interface{}) {
	if len(r.Samples) < maxReportSamples {
		r.Samples = append(r.Samples, fmt.Sprintf(format, args...))
	}
}

func (r *MapReport) Skipped() int {
	return r.SkippedNoClass + r.SkippedUnknownDay + r.SkippedNoTimeSlot + r.SkippedUnresolved + r.DroppedInvalidFK
}

type dayTime struct {
	day  int
	time string
}

type daySlot struct {
	day  int
	slot int
}

// TimeSlotIndex finds time slot IDs by (day, HH:MM) or (day, slot index).
// Slots stored with a numeric day are also kept in the numeric maps so a
// 1-based Monday can be matched one day later.
type TimeSlotIndex struct {
	byTime        map[dayTime]uint
	bySlot        map[daySlot]uint
	numericByTime map[dayTime]uint
	numericBySlot map[daySlot]uint
}

func NewTimeSlotIndex(slots []models.TimeSlot) *TimeSlotIndex {
	idx := &TimeSlotIndex{
		byTime:        make(map[dayTime]uint, len(slots)),
		bySlot:        make(map[daySlot]uint, len(slots)),
		numericByTime: map[dayTime]uint{},
		numericBySlot: map[daySlot]uint{},
	}
	for _, ts := range slots {
		day, ok := DayIndex(ts.Day)
		if !ok {
			continue
		}
		numeric := isDigits(strings.TrimSpace(ts.Day))
		if t := NormalizeHHMM(ts.StartTime); t != "" {
			addFirst(idx.byTime, dayTime{day, t}, ts.ID)
			if numeric {
				addFirst(idx.numericByTime, dayTime{day, t}, ts.ID)
			}
		}
		addFirst(idx.bySlot, daySlot{day, ts.Slot}, ts.ID)
		if numeric {
			addFirst(idx.numericBySlot, daySlot{day, ts.Slot}, ts.ID)
		}
	}
	return idx
}

func addFirst[K comparable](m map[K]uint, k K, id uint) {
	if _, dup := m[k]; !dup {
		m[k] = id
	}
}

// Lookup tries (day, time), (day+1, time), (day, slot), (day+1, slot). The +1
// steps only match slots whose day was stored as a number, for schemas that
// number Monday as 1.
func (idx *TimeSlotIndex) Lookup(day int, time string, slot *int) (uint, bool) {
	hhmm := NormalizeHHMM(time)
	if hhmm != "" {
		if id, ok := idx.byTime[dayTime{day, hhmm}]; ok {
			return id, true
		}
		if id, ok := idx.numericByTime[dayTime{day + 1, hhmm}]; ok {
			return id, true
		}
	}
	if slot != nil {
		if id, ok := idx.bySlot[daySlot{day, *slot}]; ok {
			return id, true
		}
		if id, ok := idx.numericBySlot[daySlot{day + 1, *slot}]; ok {
			return id, true
		}
	}
	return 0, false
}

// MapRows converts an organized timetable into insertable rows. Day names are
// matched against days (case-insensitive); cells that cannot be placed or
// resolved are skipped and counted in the report.
func MapRows(organized Organized, days []string, timeSlots []models.TimeSlot, keyMap map[string]uint, resolver *Resolver) ([]Row, MapReport) {
	var report MapReport
	var rows []Row

	dayIdx := make(map[string]int, len(days))
	for i, d := range days {
		dayIdx[strings.ToLower(strings.TrimSpace(d))] = i
	}
	tsIndex := NewTimeSlotIndex(timeSlots)

	for _, classKey := range sortedKeys(organized) {
		dayCells := organized[classKey]
		classID, classOK := resolveClassKey(classKey, keyMap)

		for _, dayName := range sortedDayKeys(dayCells) {
			cells := dayCells[dayName]
			for _, label := range sortedStrings(cells) {
				slot := cells[label]
				if slot == nil {
					continue
				}
				report.Cells++

				if !classOK {
					report.SkippedNoClass++
					report.sample("class key %q has no class id", classKey)
					continue
				}

				day, ok := dayIdx[strings.ToLower(strings.TrimSpace(dayName))]
				if !ok {
					report.SkippedUnknownDay++
					report.sample("unknown day %q", dayName)
					continue
				}

				tsID, ok := tsIndex.Lookup(day, label, slot.SlotIndex)
				if !ok {
					report.SkippedNoTimeSlot++
					report.sample("no time slot for %s %s (day %d)", dayName, label, day)
					continue
				}

				subjectID, okS := resolver.Subject(slot)
				teacherID, okT := resolver.Teacher(slot)
				roomID, okR := resolver.Room(slot)
				if !okS || !okT || !okR {
					report.SkippedUnresolved++
					report.sample("unresolved subject=%q teacher=%q room=%q", slot.SubjectName, slot.TeacherName, slot.RoomName)
					continue
				}

				typ := slot.Type
				if typ == "" {
					typ = TypeTheory
				}
				rows = append(rows, Row{
					ClassID:     classID,
					TimeSlotID:  tsID,
					SubjectID:   subjectID,
					TeacherID:   teacherID,
					RoomID:      roomID,
					Type:        typ,
					ClassName:   slot.ClassName,
					SubjectName: slot.SubjectName,
					TeacherName: slot.TeacherName,
					RoomName:    slot.RoomName,
				})
			}
		}
	}

	report.Mapped = len(rows)
	return rows, report
}

func resolveClassKey(key string, keyMap map[string]uint) (uint, bool) {
	if id, ok := keyMap[key]; ok {
		return id, true
	}
	if isDigits(key) {
		if n, err := strconv.ParseUint(key, 10, 64); err == nil && n > 0 {
			return uint(n), true
		}
	}
	return 0, false
}

// FilterValid drops rows whose class, subject, teacher or room is not in refs.
// It returns the kept rows and the number dropped.
func FilterValid(rows []Row, refs *References) ([]Row, int) {
	classes := idSet(len(refs.Classes))
	for _, c := range refs.Classes {
		classes[c.ID] = struct{}{}
	}
	subjects := idSet(len(refs.Subjects))
	for _, s := range refs.Subjects {
		subjects[s.ID] = struct{}{}
	}
	teachers := idSet(len(refs.Teachers))
	for _, t := range refs.Teachers {
		teachers[t.ID] = struct{}{}
	}
	rooms := idSet(len(refs.Rooms))
	for _, r := range refs.Rooms {
		rooms[r.ID] = struct{}{}
	}

	kept := rows[:0:0]
	for _, r := range rows {
		_, okC := classes[r.ClassID]
		_, okS := subjects[r.SubjectID]
		_, okT := teachers[r.TeacherID]
		_, okR := rooms[r.RoomID]
		if okC && okS && okT && okR {
			kept = append(kept, r)
		}
	}
	return kept, len(rows) - len(kept)
}

func idSet(n int) map[uint]struct{} {
	return make(map[uint]struct{}, n)
}
