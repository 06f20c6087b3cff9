package timetable

import "timetable-backend/models"

// Resolver turns the names and indices in solver slots into database IDs.
// Normalized names are tried first; the solver's positional indices into the
// reference slices are the fallback.
type Resolver struct {
	subjectByName map[string]uint
	teacherByName map[string]uint
	roomByName    map[string]uint

	subjects []models.Subject
	teachers []models.TeacherProfile
	rooms    []models.Room
}

func NewResolver(refs *References) *Resolver {
	r := &Resolver{
		subjectByName: make(map[string]uint, len(refs.Subjects)),
		teacherByName: make(map[string]uint, len(refs.Teachers)*2),
		roomByName:    make(map[string]uint, len(refs.Rooms)*2),
		subjects:      refs.Subjects,
		teachers:      refs.Teachers,
		rooms:         refs.Rooms,
	}
	for _, s := range refs.Subjects {
		addName(r.subjectByName, s.SubjectName, s.ID)
		addName(r.subjectByName, s.SubjectCode, s.ID)
	}
	for _, t := range refs.Teachers {
		addName(r.teacherByName, t.Name, t.ID)
		addName(r.teacherByName, t.EmpID, t.ID)
	}
	for _, rm := range refs.Rooms {
		addName(r.roomByName, rm.RoomNumber, rm.ID)
		addName(r.roomByName, rm.Name, rm.ID)
	}
	return r
}

// addName keeps the first ID registered for a normalized name.
func addName(m map[string]uint, name string, id uint) {
	n := NormalizeName(name)
	if n == "" {
		return
	}
	if _, taken := m[n]; !taken {
		m[n] = id
	}
}

func (r *Resolver) Subject(s *Slot) (uint, bool) {
	if id, ok := r.subjectByName[NormalizeName(s.SubjectName)]; ok {
		return id, true
	}
	if i, ok := index(s.SubjectID, len(r.subjects)); ok {
		return r.subjects[i].ID, true
	}
	return 0, false
}

func (r *Resolver) Teacher(s *Slot) (uint, bool) {
	if id, ok := r.teacherByName[NormalizeName(s.TeacherName)]; ok {
		return id, true
	}
	if i, ok := index(s.TeacherID, len(r.teachers)); ok {
		return r.teachers[i].ID, true
	}
	return 0, false
}

func (r *Resolver) Room(s *Slot) (uint, bool) {
	if id, ok := r.roomByName[NormalizeName(s.RoomName)]; ok {
		return id, true
	}
	if i, ok := index(s.RoomID, len(r.rooms)); ok {
		return r.rooms[i].ID, true
	}
	return 0, false
}

func index(p *int, n int) (int, bool) {
	if p == nil || *p < 0 || *p >= n {
		return 0, false
	}
	return *p, true
}
