package timetable

import (
	"sort"
	"strconv"
	"strings"

	"timetable-backend/models"
)

// Organize folds a solver response into class key -> day -> time -> slot.
// Free cells are dropped. Indices beyond days/times fall back to their decimal form.
func Organize(resp *GenerationResponse, days, times []string) Organized {
	organized := Organized{}
	if resp == nil {
		return organized
	}

	switch {
	case len(resp.StudentTimetables) > 0:
		for _, ct := range resp.StudentTimetables {
			classKey := ct.ClassID.String()
			if _, ok := organized[classKey]; !ok {
				organized[classKey] = map[string]map[string]*Slot{}
			}
			for dayIdx, daySlots := range ct.Timetable {
				day := DayName(days, dayIdx)
				for slotIdx, info := range daySlots {
					if info.IsFree {
						continue
					}
					idx := slotIdx
					s := toSlot(info, classKey, day, TimeLabel(times, slotIdx), &idx)
					if s.ClassName == "" {
						s.ClassName = ct.ClassName
					}
					organized.put(classKey, day, s.StartTime, s)
				}
			}
		}

	case len(resp.CombinedView) > 0:
		for _, item := range resp.CombinedView {
			day := DayName(days, item.Day)
			time := TimeLabel(times, item.Slot)
			for _, info := range item.Assignments {
				if info.IsFree {
					continue
				}
				idx := item.Slot
				classKey := info.ClassID.String()
				organized.put(classKey, day, time, toSlot(info, classKey, day, time, &idx))
			}
		}

	case len(resp.Slots) > 0:
		for _, info := range resp.Slots {
			if info.IsFree {
				continue
			}
			day := info.Day.String()
			if n, ok := info.Day.Int(); ok {
				day = DayName(days, n)
			}
			time := NormalizeHHMM(info.StartTime)
			if time == "" && info.Slot != nil {
				time = TimeLabel(times, *info.Slot)
			}
			classKey := info.ClassID.String()
			organized.put(classKey, day, time, toSlot(info, classKey, day, time, info.Slot))
		}
	}

	return organized
}

func toSlot(info SlotInfo, classKey, day, time string, slotIdx *int) *Slot {
	return &Slot{
		SubjectID:   info.SubjectID,
		SubjectName: info.SubjectName,
		TeacherID:   info.TeacherID,
		TeacherName: info.TeacherName,
		RoomID:      info.RoomID,
		RoomName:    info.RoomName.String(),
		ClassID:     classKey,
		ClassName:   info.ClassName,
		Day:         day,
		SlotIndex:   slotIdx,
		StartTime:   time,
		Type:        sessionType(info),
	}
}

// sessionType: "lecture" is Theory, any other session type is Lab, none is Theory
// unless the cell already names a type.
func sessionType(info SlotInfo) string {
	st := strings.ToLower(strings.TrimSpace(info.SessionType))
	switch {
	case st == "lecture":
		return TypeTheory
	case st != "":
		return TypeLab
	}
	switch strings.ToLower(strings.TrimSpace(info.Type)) {
	case "lab":
		return TypeLab
	default:
		return TypeTheory
	}
}

// ClassKeyMap maps organized class keys to database class IDs. Keys that are all
// decimal and match no real class ID are treated as positions in classes. Keys
// still unmapped are matched through the class name carried by their slots.
// It returns nil when nothing maps.
func ClassKeyMap(organized Organized, classes []models.Class) map[string]uint {
	if len(organized) == 0 || len(classes) == 0 {
		return nil
	}

	keys := sortedKeys(organized)
	mapping := map[string]uint{}

	realIDs := make(map[string]struct{}, len(classes))
	for _, c := range classes {
		realIDs[strconv.FormatUint(uint64(c.ID), 10)] = struct{}{}
	}

	indexed := true
	for _, k := range keys {
		if _, isReal := realIDs[k]; !isDigits(k) || isReal {
			indexed = false
			break
		}
	}
	if indexed {
		for _, k := range keys {
			if pos, err := strconv.Atoi(k); err == nil && pos < len(classes) {
				mapping[k] = classes[pos].ID
			}
		}
	}

	byName := make(map[string]uint, len(classes))
	for _, c := range classes {
		if n := NormalizeName(c.ClassName); n != "" {
			byName[n] = c.ID
		}
	}
	for _, k := range keys {
		if _, done := mapping[k]; done {
			continue
		}
		if name := firstClassName(organized[k]); name != "" {
			if id, ok := byName[NormalizeName(name)]; ok {
				mapping[k] = id
			}
		}
	}

	if len(mapping) == 0 {
		return nil
	}
	return mapping
}

func firstClassName(days map[string]map[string]*Slot) string {
	for _, day := range sortedDayKeys(days) {
		cells := days[day]
		for _, t := range sortedStrings(cells) {
			if s := cells[t]; s != nil && s.ClassName != "" {
				return s.ClassName
			}
		}
	}
	return ""
}

// FilterByClass keeps only the class with the given ID: by direct key first,
// then through keyMap. No match yields an empty result.
func FilterByClass(organized Organized, classID uint, keyMap map[string]uint) Organized {
	target := strconv.FormatUint(uint64(classID), 10)
	if days, ok := organized[target]; ok {
		return Organized{target: days}
	}
	for _, k := range sortedKeys(organized) {
		if id, ok := keyMap[k]; ok && id == classID {
			return Organized{k: organized[k]}
		}
	}
	return Organized{}
}

// sortedKeys orders class keys numerically when they are numbers.
func sortedKeys(o Organized) []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		a, b := keys[i], keys[j]
		if isDigits(a) && isDigits(b) && len(a) != len(b) {
			return len(a) < len(b)
		}
		return a < b
	})
	return keys
}

// sortedDayKeys orders day names by weekday, unknown names last.
func sortedDayKeys(days map[string]map[string]*Slot) []string {
	keys := make([]string, 0, len(days))
	for k := range days {
		keys = append(keys, k)
	}
	rank := func(s string) int {
		if i, ok := DayIndex(s); ok {
			return i
		}
		return 1 << 20
	}
	sort.Slice(keys, func(i, j int) bool {
		ri, rj := rank(keys[i]), rank(keys[j])
		if ri != rj {
			return ri < rj
		}
		return keys[i] < keys[j]
	})
	return keys
}

func sortedStrings(m map[string]*Slot) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
