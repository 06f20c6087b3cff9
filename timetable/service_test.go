package timetable

import (
	"context"
	"errors"
	"testing"
	"time"

	"timetable-backend/models"
)

type fakeStore struct {
	refs     *References
	saved    []Row
	saveOpts SaveOptions
	runs     []models.GenerationRun
	entries  []models.TimetableEntry
}

func (f *fakeStore) LoadReferences(ctx context.Context, departmentID *uint) (*References, error) {
	return f.refs, nil
}

func (f *fakeStore) SaveEntries(ctx context.Context, rows []Row, opts SaveOptions) (int, error) {
	f.saved = append(f.saved, rows...)
	f.saveOpts = opts
	return len(rows), nil
}

func (f *fakeStore) ClearClasses(ctx context.Context, classIDs []uint) (int64, error) {
	return 0, nil
}

func (f *fakeStore) ListEntries(ctx context.Context, filter EntryFilter) ([]models.TimetableEntry, error) {
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
	resp    *GenerationResponse
	err     error
	calls   int
	gotReq  *GenerationRequest
	gotDept *uint
}

func (f *fakeGenerator) Generate(ctx context.Context, req *GenerationRequest, departmentID *uint) (*GenerationResponse, error) {
	f.calls++
	f.gotReq = req
	f.gotDept = departmentID
	return f.resp, f.err
}

type fakeCache struct {
	keys []string
}

func (f *fakeCache) SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error {
	f.keys = append(f.keys, key)
	return nil
}

func serviceRefs() *References {
	return &References{
		Classes: []models.Class{
			{ID: 10, ClassName: "CSE-A", DepartmentID: uptr(1)},
			{ID: 11, ClassName: "CSE-B", DepartmentID: uptr(1)},
		},
		Subjects: []models.Subject{{ID: 20, SubjectName: "Math"}},
		Teachers: []models.TeacherProfile{{ID: 30, Name: "Alice", EmpID: "E1"}, {ID: 31, Name: "Bob", EmpID: "E2"}},
		Rooms:    []models.Room{{ID: 40, RoomNumber: "R101"}, {ID: 41, RoomNumber: "R102"}},
		TimeSlots: []models.TimeSlot{
			{ID: 100, Day: "Monday", Slot: 0, StartTime: "09:00"},
			{ID: 101, Day: "Monday", Slot: 1, StartTime: "10:00"},
		},
	}
}

func cell(teacher, room string) SlotInfo {
	return SlotInfo{SubjectName: "Math", TeacherName: teacher, RoomName: FlexString(room), SessionType: "lecture"}
}

func newTestService(store Store, gen Generator, c ResultCache) *Service {
	return NewService(store, gen, c, ServiceConfig{
		Days:  []string{"Monday", "Tuesday"},
		Times: []string{"09:00", "10:00"},
	})
}

func TestGenerateAndPersist(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{resp: &GenerationResponse{
		Success:      true,
		FitnessScore: 0.75,
		StudentTimetables: []ClassTimetable{
			{ClassID: "0", Timetable: [][]SlotInfo{{cell("Alice", "R101"), {IsFree: true}}}},
		},
	}}
	c := &fakeCache{}

	res, err := newTestService(store, gen, c).GenerateAndPersist(context.Background(), GenerateOptions{})
	if err != nil {
		t.Fatalf("GenerateAndPersist: %v", err)
	}

	if gen.gotReq == nil || gen.gotReq.NumClasses != 2 || gen.gotDept != nil {
		t.Errorf("generator request = %+v dept=%v", gen.gotReq, gen.gotDept)
	}
	if res.RowsInserted != 1 || res.RowsMapped != 1 || res.Mode != ModeUpsert {
		t.Errorf("result = %+v", res)
	}
	if len(store.saved) != 1 {
		t.Fatalf("saved = %+v", store.saved)
	}
	row := store.saved[0]
	if row.ClassID != 10 || row.TimeSlotID != 100 || row.SubjectID != 20 || row.TeacherID != 30 || row.RoomID != 40 {
		t.Errorf("row = %+v", row)
	}
	if row.DepartmentID == nil || *row.DepartmentID != 1 {
		t.Errorf("row department = %v", row.DepartmentID)
	}
	if store.saveOpts.Mode != ModeUpsert {
		t.Errorf("save mode = %q", store.saveOpts.Mode)
	}
	if len(store.runs) != 1 || store.runs[0].Status != models.RunSucceeded || store.runs[0].ID != res.RunID {
		t.Errorf("runs = %+v", store.runs)
	}
	if len(c.keys) != 1 || c.keys[0] != "timetable:last:all" {
		t.Errorf("cache keys = %v", c.keys)
	}
}

func TestGenerateRejectsConflicts(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{resp: &GenerationResponse{StudentTimetables: []ClassTimetable{
		{ClassID: "0", Timetable: [][]SlotInfo{{cell("Alice", "R101")}}},
		{ClassID: "1", Timetable: [][]SlotInfo{{cell("Alice", "R102")}}},
	}}}

	res, err := newTestService(store, gen, nil).GenerateAndPersist(context.Background(), GenerateOptions{})
	var ce *ConflictError
	if !errors.As(err, &ce) || len(ce.Conflicts.Teacher) != 1 {
		t.Fatalf("err = %v", err)
	}
	if res == nil || res.Validation == nil || res.Validation.TotalConflicts != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(store.saved) != 0 {
		t.Error("conflicting rows were saved")
	}
	if len(store.runs) != 1 || store.runs[0].Status != models.RunRejected || store.runs[0].Conflicts != 1 {
		t.Errorf("runs = %+v", store.runs)
	}
}

func TestGenerateNothingMappedIsNoop(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{resp: &GenerationResponse{StudentTimetables: []ClassTimetable{
		{ClassID: "0", Timetable: [][]SlotInfo{{cell("Nobody", "Nowhere")}}},
	}}}

	res, err := newTestService(store, gen, nil).GenerateAndPersist(context.Background(), GenerateOptions{})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if res.RowsMapped != 0 || res.RowsInserted != 0 || res.Report.SkippedUnresolved != 1 {
		t.Errorf("result = %+v", res)
	}
	if len(store.saved) != 0 {
		t.Error("saved rows on empty mapping")
	}
	if len(store.runs) != 1 || store.runs[0].Status != models.RunEmpty {
		t.Errorf("runs = %+v", store.runs)
	}
}

func TestGenerateGeneratorFailure(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{err: &GeneratorError{StatusCode: 502, Message: "bad gateway"}}

	_, err := newTestService(store, gen, nil).GenerateAndPersist(context.Background(), GenerateOptions{})
	if !errors.Is(err, ErrGenerator) {
		t.Fatalf("err = %v", err)
	}
	if len(store.runs) != 1 || store.runs[0].Status != models.RunFailed || store.runs[0].Error != "bad gateway" {
		t.Errorf("runs = %+v", store.runs)
	}
}

func TestGenerateNeedsReferenceData(t *testing.T) {
	refs := serviceRefs()
	refs.Rooms = nil
	gen := &fakeGenerator{}

	_, err := newTestService(&fakeStore{refs: refs}, gen, nil).GenerateAndPersist(context.Background(), GenerateOptions{})
	if !errors.Is(err, ErrNoReferenceData) {
		t.Fatalf("err = %v", err)
	}
	if gen.calls != 0 {
		t.Error("generator called without reference data")
	}
}

func TestGenerateReplaceScopedToClass(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{resp: &GenerationResponse{StudentTimetables: []ClassTimetable{
		{ClassID: "0", Timetable: [][]SlotInfo{{cell("Alice", "R101")}}},
		{ClassID: "1", Timetable: [][]SlotInfo{{cell("Bob", "R102")}}},
	}}}
	dept := uint(1)
	class := uint(11)

	res, err := newTestService(store, gen, nil).GenerateAndPersist(context.Background(), GenerateOptions{
		DepartmentID: &dept,
		ClassID:      &class,
		Mode:         ModeReplace,
	})
	if err != nil {
		t.Fatalf("err = %v", err)
	}
	if gen.gotDept == nil || *gen.gotDept != 1 {
		t.Errorf("generator dept = %v", gen.gotDept)
	}
	if len(store.saved) != 1 || store.saved[0].ClassID != 11 || store.saved[0].TeacherID != 31 {
		t.Fatalf("saved = %+v", store.saved)
	}
	if store.saveOpts.Mode != ModeReplace || store.saveOpts.DepartmentID == nil {
		t.Errorf("save opts = %+v", store.saveOpts)
	}
	if len(res.Organized) != 1 {
		t.Errorf("organized not filtered: %v", res.Organized)
	}
}

func TestPreviewDoesNotPersist(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{resp: &GenerationResponse{StudentTimetables: []ClassTimetable{
		{ClassID: "0", Timetable: [][]SlotInfo{{cell("Alice", "R101")}}},
	}}}

	res, err := newTestService(store, gen, nil).Preview(context.Background(), GenerateOptions{})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if !res.DryRun || res.RowsMapped != 1 || res.RowsInserted != 0 || res.RunID != "" {
		t.Errorf("result = %+v", res)
	}
	if len(store.saved) != 0 || len(store.runs) != 0 {
		t.Error("preview wrote to the store")
	}
}

func TestGenerateUsesCallerPayload(t *testing.T) {
	store := &fakeStore{refs: serviceRefs()}
	gen := &fakeGenerator{resp: &GenerationResponse{}}
	payload := &GenerationRequest{NumClasses: 42}

	_, err := newTestService(store, gen, nil).Preview(context.Background(), GenerateOptions{
		Payload:   payload,
		Overrides: &Overrides{Days: iptr(3)},
	})
	if err != nil {
		t.Fatalf("Preview: %v", err)
	}
	if gen.gotReq.NumClasses != 42 || gen.gotReq.Days != 3 {
		t.Errorf("request = %+v", gen.gotReq)
	}
}

func TestUnknownMode(t *testing.T) {
	_, err := newTestService(&fakeStore{refs: serviceRefs()}, &fakeGenerator{}, nil).
		GenerateAndPersist(context.Background(), GenerateOptions{Mode: "merge"})
	if !errors.Is(err, ErrInvalidMode) {
		t.Fatalf("err = %v, want ErrInvalidMode", err)
	}
}

func TestStoredConflicts(t *testing.T) {
	store := &fakeStore{entries: []models.TimetableEntry{
		{ClassID: 1, TimeSlotID: 5, TeacherID: 7, RoomID: 9},
		{ClassID: 2, TimeSlotID: 5, TeacherID: 8, RoomID: 9},
	}}
	c, err := newTestService(store, nil, nil).StoredConflicts(context.Background(), nil)
	if err != nil {
		t.Fatalf("StoredConflicts: %v", err)
	}
	if len(c.Room) != 1 || c.Total() != 1 {
		t.Errorf("conflicts = %+v", c)
	}
}
