package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/xuri/excelize/v2"

	"timetable-backend/auth"
	"timetable-backend/cache"
	"timetable-backend/models"
	"timetable-backend/timetable"
)

type fakeStore struct {
	refs    *timetable.References
	saved   []timetable.Row
	entries []models.TimetableEntry
	runs    []models.GenerationRun
	cleared []uint
	filter  timetable.EntryFilter
}

func (f *fakeStore) LoadReferences(ctx context.Context, departmentID *uint) (*timetable.References, error) {
	return f.refs, nil
}

func (f *fakeStore) SaveEntries(ctx context.Context, rows []timetable.Row, opts timetable.SaveOptions) (int, error) {
	f.saved = append(f.saved, rows...)
	return len(rows), nil
}

func (f *fakeStore) ClearClasses(ctx context.Context, classIDs []uint) (int64, error) {
	f.cleared = append(f.cleared, classIDs...)
	return int64(len(classIDs)), nil
}

func (f *fakeStore) ListEntries(ctx context.Context, filter timetable.EntryFilter) ([]models.TimetableEntry, error) {
	f.filter = filter
	return f.entries, nil
}

func (f *fakeStore) RecordRun(ctx context.Context, run *models.GenerationRun) error {
	f.runs = append(f.runs, *run)
	return nil
}

func (f *fakeStore) ListRuns(ctx context.Context, departmentID *uint, limit int) ([]models.GenerationRun, error) {
	return f.runs, nil
}

type fakeGenerator struct {
	resp    *timetable.GenerationResponse
	err     error
	gotDept *uint
}

func (f *fakeGenerator) Generate(ctx context.Context, req *timetable.GenerationRequest, departmentID *uint) (*timetable.GenerationResponse, error) {
	f.gotDept = departmentID
	return f.resp, f.err
}

type fakeGrid struct {
	rows   []timetable.GridRow
	filter timetable.GridFilter
}

func (f *fakeGrid) Query(ctx context.Context, filter timetable.GridFilter) ([]timetable.GridRow, error) {
	f.filter = filter
	return f.rows, nil
}

type memoryCache struct {
	data map[string][]byte
}

func (m *memoryCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	b, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.data[key] = b
	return nil
}

func (m *memoryCache) GetJSON(ctx context.Context, key string, dst interface{}) (bool, error) {
	b, ok := m.data[key]
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(b, dst)
}

func testRefs() *timetable.References {
	return &timetable.References{
		Classes:  []models.Class{{ID: 10, ClassName: "CSE-A", DepartmentID: uptr(1)}},
		Subjects: []models.Subject{{ID: 20, SubjectName: "Math"}},
		Teachers: []models.TeacherProfile{{ID: 30, Name: "Alice", EmpID: "E1"}},
		Rooms:    []models.Room{{ID: 40, RoomNumber: "R101"}},
		TimeSlots: []models.TimeSlot{
			{ID: 100, Day: "Monday", Slot: 0, StartTime: "09:00"},
		},
	}
}

func oneCell(teacher string) *timetable.GenerationResponse {
	return &timetable.GenerationResponse{
		Success: true,
		StudentTimetables: []timetable.ClassTimetable{{
			ClassID: "0",
			Timetable: [][]timetable.SlotInfo{{{
				SubjectName: "Math", TeacherName: teacher, RoomName: "R101", SessionType: "lecture",
			}}},
		}},
	}
}

func newTimetableHandler(store *fakeStore, gen timetable.Generator, grid *fakeGrid, c *memoryCache) *TimetableHandler {
	svc := timetable.NewService(store, gen, c, timetable.ServiceConfig{
		Days:  []string{"Monday", "Tuesday"},
		Times: []string{"09:00", "10:00"},
	})
	return NewTimetableHandler(svc, store, grid, c)
}

var admin = &auth.JWTClaims{UserID: 1, Email: "admin@uni.edu", Role: models.RoleAdmin}

func TestGenerateEndpoint(t *testing.T) {
	store := &fakeStore{refs: testRefs()}
	c := &memoryCache{data: map[string][]byte{}}
	h := newTimetableHandler(store, &fakeGenerator{resp: oneCell("Alice")}, &fakeGrid{}, c)

	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/generate", strings.NewReader(`{"mode":"replace"}`)), admin)
	rec := httptest.NewRecorder()
	h.Generate(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}

	var res timetable.GenerateResult
	decodeBody(t, rec, &res)
	if res.RowsInserted != 1 || res.Mode != timetable.ModeReplace || res.RunID == "" {
		t.Errorf("result = %+v", res)
	}
	if len(store.saved) != 1 || store.saved[0].TeacherID != 30 {
		t.Errorf("saved = %+v", store.saved)
	}

	rec = httptest.NewRecorder()
	h.GetLast(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/last", nil), admin))
	if rec.Code != http.StatusOK || !strings.Contains(rec.Body.String(), res.RunID) {
		t.Errorf("last = %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateScopesHOD(t *testing.T) {
	gen := &fakeGenerator{resp: oneCell("Alice")}
	h := newTimetableHandler(&fakeStore{refs: testRefs()}, gen, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})

	hod := &auth.JWTClaims{Role: models.RoleHOD, DepartmentID: uptr(1)}
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/preview", strings.NewReader(`{"department_id": 7}`)), hod)
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	if gen.gotDept == nil || *gen.gotDept != 1 {
		t.Errorf("generator department = %v, want 1", gen.gotDept)
	}
}

func TestGenerateErrorStatuses(t *testing.T) {
	noRooms := testRefs()
	noRooms.Rooms = nil

	cases := []struct {
		name   string
		refs   *timetable.References
		gen    *fakeGenerator
		body   string
		status int
	}{
		{"no reference data", noRooms, &fakeGenerator{}, `{}`, http.StatusUnprocessableEntity},
		{"bad mode", testRefs(), &fakeGenerator{}, `{"mode":"merge"}`, http.StatusUnprocessableEntity},
		{"solver error", testRefs(), &fakeGenerator{err: &timetable.GeneratorError{StatusCode: 500, Message: "Backend error: 500"}}, `{}`, http.StatusBadGateway},
		{"bad body", testRefs(), &fakeGenerator{}, `{`, http.StatusBadRequest},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTimetableHandler(&fakeStore{refs: tc.refs}, tc.gen, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})
			rec := httptest.NewRecorder()
			h.Generate(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/generate", strings.NewReader(tc.body)), admin))
			if rec.Code != tc.status {
				t.Errorf("status = %d, want %d (%s)", rec.Code, tc.status, rec.Body.String())
			}
		})
	}
}

func TestGenerateChunkedEmptyBody(t *testing.T) {
	h := newTimetableHandler(&fakeStore{refs: testRefs()}, &fakeGenerator{resp: oneCell("Alice")}, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})
	req := withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/preview", strings.NewReader("")), admin)
	req.ContentLength = -1
	rec := httptest.NewRecorder()
	h.Preview(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateConflictStatus(t *testing.T) {
	refs := testRefs()
	refs.Classes = append(refs.Classes, models.Class{ID: 11, ClassName: "CSE-B", DepartmentID: uptr(1)})
	cellFor := func() []timetable.SlotInfo {
		return []timetable.SlotInfo{{SubjectName: "Math", TeacherName: "Alice", RoomName: "R101", SessionType: "lecture"}}
	}
	gen := &fakeGenerator{resp: &timetable.GenerationResponse{StudentTimetables: []timetable.ClassTimetable{
		{ClassID: "0", Timetable: [][]timetable.SlotInfo{cellFor()}},
		{ClassID: "1", Timetable: [][]timetable.SlotInfo{cellFor()}},
	}}}
	store := &fakeStore{refs: refs}
	h := newTimetableHandler(store, gen, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})

	rec := httptest.NewRecorder()
	h.Generate(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/generate", nil), admin))
	if rec.Code != http.StatusConflict {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var body struct {
		Error     string              `json:"error"`
		Conflicts timetable.Conflicts `json:"conflicts"`
	}
	decodeBody(t, rec, &body)
	if len(body.Conflicts.Teacher) != 1 || len(body.Conflicts.Room) != 1 {
		t.Errorf("conflicts = %+v", body.Conflicts)
	}
	if len(store.saved) != 0 {
		t.Error("conflicting timetable was saved")
	}
}

func TestGeneratorOverHTTP(t *testing.T) {
	solver := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer solver.Close()

	h := newTimetableHandler(&fakeStore{refs: testRefs()}, timetable.NewClient(solver.URL, time.Second), &fakeGrid{}, &memoryCache{data: map[string][]byte{}})
	rec := httptest.NewRecorder()
	h.Generate(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/generate", nil), admin))
	if rec.Code != http.StatusBadGateway {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]interface{}
	decodeBody(t, rec, &body)
	if body["error"] != "Backend error: 503" || body["backend_status"] != float64(503) {
		t.Errorf("body = %v", body)
	}
}

func TestValidateEndpoint(t *testing.T) {
	h := newTimetableHandler(&fakeStore{refs: testRefs()}, &fakeGenerator{}, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})
	body := `{"rows":[
		{"class_id":10,"time_slot_id":100,"subject_id":20,"teacher_id":30,"room_id":40},
		{"class_id":11,"time_slot_id":100,"subject_id":20,"teacher_id":30,"room_id":41}
	]}`
	rec := httptest.NewRecorder()
	h.Validate(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/timetable/validate", strings.NewReader(body)), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d body = %s", rec.Code, rec.Body.String())
	}
	var res struct {
		Valid  bool                       `json:"valid"`
		Result timetable.ValidationResult `json:"result"`
	}
	decodeBody(t, rec, &res)
	if res.Valid || len(res.Result.Conflicts.Teacher) != 1 {
		t.Errorf("result = %+v", res)
	}
}

func TestEntriesEndpoints(t *testing.T) {
	store := &fakeStore{refs: testRefs(), entries: []models.TimetableEntry{{ClassID: 10, TimeSlotID: 100}}}
	h := newTimetableHandler(store, &fakeGenerator{}, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})

	rec := httptest.NewRecorder()
	h.GetEntries(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/entries?teacher_id=30&room_id=x", nil), admin))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bad filter status = %d", rec.Code)
	}

	hod := &auth.JWTClaims{Role: models.RoleHOD, DepartmentID: uptr(1)}
	rec = httptest.NewRecorder()
	h.GetEntries(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/entries?teacher_id=30&department_id=5", nil), hod))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	if store.filter.TeacherID == nil || *store.filter.TeacherID != 30 || *store.filter.DepartmentID != 1 {
		t.Errorf("filter = %+v", store.filter)
	}

	// HOD may only clear classes that have entries in their department.
	rec = httptest.NewRecorder()
	h.DeleteEntries(rec, withClaims(httptest.NewRequest(http.MethodDelete, "/api/timetable/entries?class_ids=10,12", nil), hod))
	if rec.Code != http.StatusOK {
		t.Fatalf("delete status = %d body = %s", rec.Code, rec.Body.String())
	}
	if len(store.cleared) != 1 || store.cleared[0] != 10 {
		t.Errorf("cleared = %v", store.cleared)
	}

	rec = httptest.NewRecorder()
	h.DeleteEntries(rec, withClaims(httptest.NewRequest(http.MethodDelete, "/api/timetable/entries", strings.NewReader(`{"class_ids":[]}`)), admin))
	if rec.Code != http.StatusUnprocessableEntity {
		t.Errorf("empty class_ids status = %d", rec.Code)
	}
}

func TestClassTimetableAndExport(t *testing.T) {
	grid := &fakeGrid{rows: []timetable.GridRow{
		{ClassID: 10, ClassName: "CSE-A", Day: "Monday", Slot: 0, StartTime: "09:00:00", SubjectCode: "MA1", SubjectName: "Math", TeacherName: "Alice", RoomNumber: "R101"},
	}}
	h := newTimetableHandler(&fakeStore{refs: testRefs()}, &fakeGenerator{}, grid, &memoryCache{data: map[string][]byte{}})

	req := mux.SetURLVars(withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/classes/10", nil), admin), map[string]string{"id": "10"})
	rec := httptest.NewRecorder()
	h.GetClassTimetable(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		ClassName string                                  `json:"class_name"`
		Days      map[string]map[string]timetable.GridRow `json:"days"`
		DayOrder  []string                                `json:"day_order"`
	}
	decodeBody(t, rec, &body)
	if body.ClassName != "CSE-A" || body.Days["Monday"]["09:00"].TeacherName != "Alice" || len(body.DayOrder) != 2 {
		t.Errorf("grid = %+v", body)
	}
	if grid.filter.ClassID == nil || *grid.filter.ClassID != 10 {
		t.Errorf("grid filter = %+v", grid.filter)
	}

	rec = httptest.NewRecorder()
	h.Export(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/export", nil), admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("export status = %d", rec.Code)
	}
	if !strings.HasPrefix(rec.Header().Get("Content-Disposition"), "attachment;") {
		t.Errorf("content disposition = %q", rec.Header().Get("Content-Disposition"))
	}
	f, err := excelize.OpenReader(bytes.NewReader(rec.Body.Bytes()))
	if err != nil {
		t.Fatalf("export is not a workbook: %v", err)
	}
	defer f.Close()
	if sheets := f.GetSheetList(); len(sheets) != 1 || sheets[0] != "CSE-A" {
		t.Errorf("sheets = %v", sheets)
	}
}

func TestLastNotCached(t *testing.T) {
	h := newTimetableHandler(&fakeStore{refs: testRefs()}, &fakeGenerator{}, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})
	rec := httptest.NewRecorder()
	h.GetLast(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/last?department_id=2", nil), admin))
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d", rec.Code)
	}
	if cache.LastGenerationKey(uptr(2)) != "timetable:last:dept:2" {
		t.Error("unexpected cache key")
	}
}

func TestConflictsEndpoint(t *testing.T) {
	store := &fakeStore{entries: []models.TimetableEntry{
		{ClassID: 1, TimeSlotID: 5, TeacherID: 7, RoomID: 9},
		{ClassID: 2, TimeSlotID: 5, TeacherID: 7, RoomID: 8},
	}}
	h := newTimetableHandler(store, &fakeGenerator{}, &fakeGrid{}, &memoryCache{data: map[string][]byte{}})
	rec := httptest.NewRecorder()
	h.GetConflicts(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/timetable/conflicts", nil), admin))
	var body struct {
		Total int `json:"total"`
	}
	decodeBody(t, rec, &body)
	if rec.Code != http.StatusOK || body.Total != 1 {
		t.Errorf("status = %d total = %d", rec.Code, body.Total)
	}
}

func TestMySchedule(t *testing.T) {
	grid := &fakeGrid{rows: []timetable.GridRow{
		{ClassName: "B", Day: "Tuesday", Slot: 0},
		{ClassName: "A", Day: "Monday", Slot: 1},
		{ClassName: "C", Day: "Monday", Slot: 0},
	}}
	h := NewPortalHandler(nil, grid, nil)

	rec := httptest.NewRecorder()
	h.MySchedule(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/me/schedule", nil), &auth.JWTClaims{Role: models.RoleTeacher}))
	if rec.Code != http.StatusNotFound {
		t.Errorf("unlinked teacher status = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.MySchedule(rec, withClaims(httptest.NewRequest(http.MethodGet, "/api/me/schedule", nil), &auth.JWTClaims{Role: models.RoleTeacher, TeacherID: uptr(30)}))
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body struct {
		TotalHours int           `json:"total_hours"`
		Days       []scheduleDay `json:"days"`
	}
	decodeBody(t, rec, &body)
	if body.TotalHours != 3 || len(body.Days) != 2 || body.Days[0].Day != "Monday" || body.Days[0].Entries[0].ClassName != "C" {
		t.Errorf("schedule = %+v", body)
	}
	if grid.filter.TeacherID == nil || *grid.filter.TeacherID != 30 {
		t.Errorf("grid filter = %+v", grid.filter)
	}
}
