package timetable

import (
	"reflect"
	"testing"

	"timetable-backend/models"
)

var (
	testDays  = []string{"Monday", "Tuesday", "Wednesday", "Thursday", "Friday"}
	testTimes = []string{"09:00", "10:00"}
)

func mustParse(t *testing.T, body string) *GenerationResponse {
	t.Helper()
	resp, err := ParseResponse([]byte(body))
	if err != nil {
		t.Fatalf("ParseResponse: %v", err)
	}
	return resp
}

func TestOrganizeStudentTimetables(t *testing.T) {
	resp := mustParse(t, `{
		"success": true, "fitness_score": 0.9, "generation_count": 12,
		"student_timetables": [{
			"class_id": 0, "class_name": "CSE-A",
			"timetable": [
				[
					{"subject_id": 0, "subject_name": "Math", "teacher_id": 0, "teacher_name": "Alice",
					 "room_id": 0, "room_name": "R101", "class_id": 0, "day": 0, "slot": 0,
					 "is_free": false, "session_type": "lecture"},
					{"is_free": true, "day": 0, "slot": 1}
				],
				[
					{"subject_id": 1, "subject_name": "Physics", "teacher_id": 2, "teacher_name": "Carol",
					 "room_id": 1, "room_name": 101, "class_id": 0, "class_name": "CSE-A", "day": 1, "slot": 0,
					 "is_free": false, "session_type": "practical"}
				]
			]
		}]
	}`)
	if resp.FitnessScore != 0.9 || resp.GenerationCount != 12 {
		t.Errorf("metadata = %v/%d", resp.FitnessScore, resp.GenerationCount)
	}

	o := Organize(resp, testDays, testTimes)
	if got := o.Cells(); got != 2 {
		t.Fatalf("Cells = %d, want 2", got)
	}
	mon := o["0"]["Monday"]
	if len(mon) != 1 {
		t.Fatalf("Monday cells = %d, want 1 (free slot dropped)", len(mon))
	}
	math := mon["09:00"]
	if math == nil || math.SubjectName != "Math" || math.Type != TypeTheory {
		t.Fatalf("Monday 09:00 = %+v", math)
	}
	if math.ClassName != "CSE-A" {
		t.Errorf("class name not inherited from class timetable: %q", math.ClassName)
	}
	if math.SlotIndex == nil || *math.SlotIndex != 0 {
		t.Errorf("slot index = %v", math.SlotIndex)
	}
	phys := o["0"]["Tuesday"]["09:00"]
	if phys == nil || phys.Type != TypeLab || phys.RoomName != "101" {
		t.Fatalf("Tuesday 09:00 = %+v", phys)
	}
}

func TestOrganizeCombinedView(t *testing.T) {
	resp := mustParse(t, `{"combined_view": [
		{"day": 0, "slot": 1, "assignments": [
			{"class_id": "5", "subject_name": "Math", "teacher_name": "Alice", "room_name": "R1"},
			{"class_id": 6, "subject_name": "Art", "teacher_name": "Bob", "room_name": "R2", "is_free": true}
		]},
		{"day": 7, "slot": 9, "assignments": [
			{"class_id": 5, "subject_name": "Chem", "teacher_name": "Dan", "room_name": "R3", "type": "lab"}
		]}
	]}`)

	o := Organize(resp, testDays, testTimes)
	if s := o["5"]["Monday"]["10:00"]; s == nil || s.SubjectName != "Math" {
		t.Fatalf("Monday 10:00 = %+v", s)
	}
	if _, ok := o["6"]; ok {
		t.Error("free assignment must be dropped")
	}
	chem := o["5"]["7"]["9"]
	if chem == nil || chem.Type != TypeLab {
		t.Fatalf("out-of-range indices should fall back to decimal keys, got %+v", o["5"])
	}
}

func TestOrganizeFlatList(t *testing.T) {
	resp := mustParse(t, `[
		{"class_id": 3, "day": "Wednesday", "start_time": "9:00:00", "subject_name": "X"},
		{"class_id": 3, "day": 1, "slot": 1, "subject_name": "Y"},
		{"class_id": 3, "day": "Monday", "start_time": "09:00", "is_free": true}
	]`)
	if !resp.Success || len(resp.Slots) != 3 {
		t.Fatalf("flat parse = %+v", resp)
	}

	o := Organize(resp, testDays, testTimes)
	if s := o["3"]["Wednesday"]["09:00"]; s == nil || s.SubjectName != "X" {
		t.Errorf("Wednesday 09:00 = %+v", s)
	}
	if s := o["3"]["Tuesday"]["10:00"]; s == nil || s.SubjectName != "Y" {
		t.Errorf("Tuesday 10:00 = %+v", s)
	}
	if _, ok := o["3"]["Monday"]; ok {
		t.Error("free slot must be dropped")
	}
}

func TestOrganizeNil(t *testing.T) {
	if o := Organize(nil, testDays, testTimes); len(o) != 0 {
		t.Errorf("Organize(nil) = %v", o)
	}
}

func TestClassKeyMapByPosition(t *testing.T) {
	o := Organized{}
	o.put("0", "Monday", "09:00", &Slot{})
	o.put("1", "Monday", "09:00", &Slot{})
	classes := []models.Class{{ID: 10}, {ID: 11}}

	got := ClassKeyMap(o, classes)
	if want := map[string]uint{"0": 10, "1": 11}; !reflect.DeepEqual(got, want) {
		t.Errorf("ClassKeyMap = %v, want %v", got, want)
	}
}

func TestClassKeyMapByName(t *testing.T) {
	o := Organized{}
	o.put("10", "Monday", "09:00", &Slot{})
	o.put("1", "Tuesday", "09:00", &Slot{ClassName: "cse-b "})
	classes := []models.Class{{ID: 10, ClassName: "CSE-A"}, {ID: 11, ClassName: "CSE-B"}}

	got := ClassKeyMap(o, classes)
	if want := map[string]uint{"1": 11}; !reflect.DeepEqual(got, want) {
		t.Errorf("ClassKeyMap = %v, want %v", got, want)
	}
}

func TestClassKeyMapNoMatch(t *testing.T) {
	o := Organized{}
	o.put("abc", "Monday", "09:00", &Slot{ClassName: "nobody"})
	if got := ClassKeyMap(o, []models.Class{{ID: 1, ClassName: "A"}}); got != nil {
		t.Errorf("ClassKeyMap = %v, want nil", got)
	}
	if got := ClassKeyMap(o, nil); got != nil {
		t.Errorf("ClassKeyMap without classes = %v", got)
	}
}

func TestFilterByClass(t *testing.T) {
	o := Organized{}
	o.put("0", "Monday", "09:00", &Slot{SubjectName: "A"})
	o.put("1", "Monday", "09:00", &Slot{SubjectName: "B"})
	keyMap := map[string]uint{"0": 10, "1": 11}

	got := FilterByClass(o, 11, keyMap)
	if len(got) != 1 || got["1"] == nil {
		t.Errorf("FilterByClass(11) = %v", got)
	}

	direct := FilterByClass(o, 0, keyMap)
	if len(direct) != 1 || direct["0"] == nil {
		t.Errorf("direct key match failed: %v", direct)
	}

	if none := FilterByClass(o, 99, keyMap); len(none) != 0 {
		t.Errorf("FilterByClass(99) = %v, want empty", none)
	}
}
