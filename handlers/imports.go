package handlers

import (
	"errors"
	"fmt"
	"log"
	"mime/multipart"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"timetable-backend/importer"
	"timetable-backend/models"
)

const maxUploadSize = 10 << 20

// ImportHandler loads spreadsheets into the reference tables. Each row is saved
// on its own, so one bad row does not discard the rest of the sheet.
type ImportHandler struct {
	db *gorm.DB
}

func NewImportHandler(db *gorm.DB) *ImportHandler {
	return &ImportHandler{db: db}
}

type ImportSummary struct {
	Created int                 `json:"created"`
	Updated int                 `json:"updated"`
	Skipped int                 `json:"skipped"`
	Errors  []importer.RowError `json:"errors"`
}

func (s *ImportSummary) fail(e importer.RowError) {
	s.Errors = append(s.Errors, e)
}

func (s *ImportSummary) saved(created bool) {
	if created {
		s.Created++
	} else {
		s.Updated++
	}
}

func (h *ImportHandler) ImportRooms(w http.ResponseWriter, r *http.Request) {
	file, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	parsed, err := importer.ParseRooms(file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	db := h.db.WithContext(r.Context())
	sum := &ImportSummary{Skipped: parsed.Skipped, Errors: parsed.Errors}
	for _, rec := range parsed.Rooms {
		req := rec.RoomRequest
		var room models.Room
		created, err := findOrNew(db.Where("LOWER(room_number) = ?", strings.ToLower(req.RoomNumber)), &room)
		if err == nil {
			// Keep the stored department and name unless the sheet sets one.
			if req.Name == "" {
				req.Name = room.Name
			}
			req.DepartmentID = room.DepartmentID
			req.Apply(&room)
			err = db.Save(&room).Error
		}
		if err != nil {
			sum.fail(importer.RowError{Row: rec.Row, Message: fmt.Sprintf("%s: %v", req.RoomNumber, err)})
			continue
		}
		sum.saved(created)
	}
	finishImport(w, "rooms", sum)
}

func (h *ImportHandler) ImportClasses(w http.ResponseWriter, r *http.Request) {
	file, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	parsed, err := importer.ParseClasses(file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	db := h.db.WithContext(r.Context())
	depts := newDepartmentResolver(db, scopeFromRequest(r))
	sum := &ImportSummary{Errors: parsed.Errors}
	for _, rec := range parsed.Classes {
		err := func() error {
			dept, err := depts.resolve(rec.Department)
			if err != nil {
				return err
			}
			rec.DepartmentID = dept

			var class models.Class
			created, err := findOrNew(db.Where("LOWER(class_name) = ?", strings.ToLower(rec.ClassName)), &class)
			if err != nil {
				return err
			}
			if !created && !inScope(depts.scope, class.DepartmentID) {
				return errors.New("class belongs to another department")
			}
			rec.Apply(&class)
			if err := db.Save(&class).Error; err != nil {
				return err
			}
			sum.saved(created)
			return nil
		}()
		if err != nil {
			sum.fail(importer.RowError{Row: rec.Row, Message: fmt.Sprintf("%s: %v", rec.ClassName, err)})
		}
	}
	finishImport(w, "classes", sum)
}

func (h *ImportHandler) ImportSubjects(w http.ResponseWriter, r *http.Request) {
	file, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	parsed, err := importer.ParseSubjects(file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	db := h.db.WithContext(r.Context())
	depts := newDepartmentResolver(db, scopeFromRequest(r))
	sum := &ImportSummary{Errors: parsed.Errors}
	for _, rec := range parsed.Subjects {
		err := func() error {
			dept, err := depts.resolve(rec.Department)
			if err != nil {
				return err
			}
			rec.DepartmentID = dept

			var subject models.Subject
			created, err := findOrNew(db.Where("LOWER(subject_code) = ?", strings.ToLower(rec.SubjectCode)), &subject)
			if err != nil {
				return err
			}
			if !created && !inScope(depts.scope, subject.DepartmentID) {
				return errors.New("subject belongs to another department")
			}
			rec.Apply(&subject)
			if err := db.Save(&subject).Error; err != nil {
				return err
			}
			sum.saved(created)
			return nil
		}()
		if err != nil {
			sum.fail(importer.RowError{Row: rec.Row, Message: fmt.Sprintf("%s: %v", rec.SubjectCode, err)})
		}
	}
	finishImport(w, "subjects", sum)
}

func (h *ImportHandler) ImportTeachers(w http.ResponseWriter, r *http.Request) {
	file, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	parsed, err := importer.ParseTeachers(file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	db := h.db.WithContext(r.Context())
	depts := newDepartmentResolver(db, scopeFromRequest(r))
	sum := &ImportSummary{Errors: parsed.Errors}
	for _, rec := range parsed.Teachers {
		err := func() error {
			dept, err := depts.resolve(rec.Department)
			if err != nil {
				return err
			}
			rec.DepartmentID = dept

			var teacher models.TeacherProfile
			created, err := findOrNew(db.Where("emp_id = ? OR LOWER(email) = ?", rec.EmpID, rec.Email), &teacher)
			if err != nil {
				return err
			}
			if !created && !inScope(depts.scope, teacher.DepartmentID) {
				return errors.New("teacher belongs to another department")
			}
			if !created {
				rec.Phone, rec.Bio = teacher.Phone, teacher.Bio
			}
			if rec.FirstName == "" && rec.LastName == "" {
				rec.FirstName, rec.LastName = splitName(rec.Name)
			}
			rec.Apply(&teacher)
			if err := db.Omit("Subjects").Save(&teacher).Error; err != nil {
				return err
			}
			sum.saved(created)
			return nil
		}()
		if err != nil {
			sum.fail(importer.RowError{Row: rec.Row, Message: fmt.Sprintf("%s: %v", rec.EmpID, err)})
		}
	}
	finishImport(w, "teachers", sum)
}

func (h *ImportHandler) ImportTimeSlots(w http.ResponseWriter, r *http.Request) {
	file, ok := readUpload(w, r)
	if !ok {
		return
	}
	defer file.Close()

	parsed, err := importer.ParseTimeSlots(file)
	if err != nil {
		writeImportError(w, err)
		return
	}

	db := h.db.WithContext(r.Context())
	depts := newDepartmentResolver(db, scopeFromRequest(r))
	sum := &ImportSummary{Errors: parsed.Errors}
	for _, rec := range parsed.TimeSlots {
		err := func() error {
			dept, err := depts.resolve(rec.Department)
			if err != nil {
				return err
			}
			rec.DepartmentID = dept
			normalizeTimeSlot(&rec.TimeSlotRequest)

			q := db.Where("LOWER(day) = ? AND slot = ?", strings.ToLower(rec.Day), rec.Slot)
			if dept == nil {
				q = q.Where("department_id IS NULL")
			} else {
				q = q.Where("department_id = ?", *dept)
			}
			var slot models.TimeSlot
			created, err := findOrNew(q, &slot)
			if err != nil {
				return err
			}
			rec.Apply(&slot)
			if err := db.Save(&slot).Error; err != nil {
				return err
			}
			sum.saved(created)
			return nil
		}()
		if err != nil {
			sum.fail(importer.RowError{Row: rec.Row, Message: fmt.Sprintf("%s #%d: %v", rec.Day, rec.Slot, err)})
		}
	}
	finishImport(w, "time slots", sum)
}

// findOrNew loads the first match into dst. It reports true when nothing
// matched and dst is left as a new row.
func findOrNew(q *gorm.DB, dst interface{}) (bool, error) {
	err := q.First(dst).Error
	if err == nil {
		return false, nil
	}
	if isNotFound(err) {
		return true, nil
	}
	return false, err
}

// departmentResolver maps department names from a sheet to IDs, creating
// unknown departments. Scoped callers always resolve to their own department.
type departmentResolver struct {
	db    *gorm.DB
	scope *uint
	cache map[string]*uint
}

func newDepartmentResolver(db *gorm.DB, scope *uint) *departmentResolver {
	return &departmentResolver{db: db, scope: scope, cache: map[string]*uint{}}
}

func (d *departmentResolver) resolve(name string) (*uint, error) {
	if d.scope != nil {
		return d.scope, nil
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, nil
	}
	key := strings.ToLower(name)
	if id, ok := d.cache[key]; ok {
		return id, nil
	}

	var dept models.Department
	err := d.db.Where("LOWER(name) = ?", key).First(&dept).Error
	if isNotFound(err) {
		dept = models.Department{Name: name}
		err = d.db.Create(&dept).Error
		if err == nil {
			log.Printf("✅ Department created from import: %s (ID: %d)", dept.Name, dept.ID)
		}
	}
	if err != nil {
		return nil, fmt.Errorf("department %q: %w", name, err)
	}
	id := dept.ID
	d.cache[key] = &id
	return &id, nil
}

func readUpload(w http.ResponseWriter, r *http.Request) (multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		writeError(w, http.StatusBadRequest, "Expected a multipart upload under 10MB")
		return nil, false
	}
	file, _, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Missing file field")
		return nil, false
	}
	return file, true
}

func writeImportError(w http.ResponseWriter, err error) {
	var mc *importer.MissingColumnsError
	if errors.As(err, &mc) {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":   err.Error(),
			"missing": mc.Columns,
		})
		return
	}
	log.Printf("❌ Error reading workbook: %v", err)
	writeError(w, http.StatusBadRequest, "Could not read spreadsheet: "+err.Error())
}

func finishImport(w http.ResponseWriter, what string, sum *ImportSummary) {
	if sum.Errors == nil {
		sum.Errors = []importer.RowError{}
	}
	log.Printf("📊 Imported %s: %d created, %d updated, %d skipped, %d errors",
		what, sum.Created, sum.Updated, sum.Skipped, len(sum.Errors))
	writeJSON(w, http.StatusOK, sum)
}
