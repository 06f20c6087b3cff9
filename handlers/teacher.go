package handlers

import (
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timetable-backend/models"
)

type TeacherHandler struct {
	db *gorm.DB
}

func NewTeacherHandler(db *gorm.DB) *TeacherHandler {
	return &TeacherHandler{db: db}
}

func (h *TeacherHandler) GetTeachers(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	q := h.db.WithContext(r.Context()).Model(&models.TeacherProfile{})
	q = ilike(q, r, "name", "name")
	q = ilike(q, r, "email", "email")
	q = ilike(q, r, "emp_id", "emp_id")
	q = ilike(q, r, "designation", "designation")

	dept, err := queryUint(r, "department_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if scope := scopeFromRequest(r); scope != nil {
		dept = scope
	}
	if dept != nil {
		q = q.Where("department_id = ?", *dept)
	}
	if r.URL.Query().Get("with_subjects") == "true" {
		q = q.Preload("Subjects")
	}

	var teachers []models.TeacherProfile
	meta, err := paginate(q, p, &teachers, "id", "name", "email", "emp_id", "designation", "max_hours", "created_at")
	if err != nil {
		log.Printf("❌ Error fetching teachers: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, teachers)
}

func (h *TeacherHandler) GetTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, ok := h.load(w, r, true)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, teacher)
}

func (h *TeacherHandler) CreateTeacher(w http.ResponseWriter, r *http.Request) {
	var req models.TeacherRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)

	var teacher models.TeacherProfile
	req.Apply(&teacher)
	if err := h.db.WithContext(r.Context()).Create(&teacher).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Teacher with this email, emp_id or phone already exists")
			return
		}
		log.Printf("❌ Error creating teacher: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Teacher created: %s <%s> (ID: %d)", teacher.Name, teacher.Email, teacher.ID)
	writeJSON(w, http.StatusCreated, teacher)
}

func (h *TeacherHandler) UpdateTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, ok := h.load(w, r, false)
	if !ok {
		return
	}
	var req models.TeacherRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)
	req.Apply(&teacher)

	if err := h.db.WithContext(r.Context()).Omit(clause.Associations).Save(&teacher).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Teacher with this email, emp_id or phone already exists")
			return
		}
		log.Printf("❌ Error updating teacher %d: %v", teacher.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Teacher updated: %s (ID: %d)", teacher.Name, teacher.ID)
	writeJSON(w, http.StatusOK, teacher)
}

// DeleteTeacher refuses while timetable entries reference the teacher; subject
// links go with it and any login account is detached.
func (h *TeacherHandler) DeleteTeacher(w http.ResponseWriter, r *http.Request) {
	teacher, ok := h.load(w, r, false)
	if !ok {
		return
	}
	db := h.db.WithContext(r.Context())
	if inUse(w, db, "teacher_id", teacher.ID, "Teacher") {
		return
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("teacher_id = ?", teacher.ID).Delete(&models.TeacherSubject{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.User{}).Where("teacher_id = ?", teacher.ID).Update("teacher_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.TeacherProfile{}, teacher.ID).Error
	})
	if err != nil {
		log.Printf("❌ Error deleting teacher %d: %v", teacher.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("🗑️ Teacher deleted: %s (ID: %d)", teacher.Name, teacher.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *TeacherHandler) GetTeacherSubjects(w http.ResponseWriter, r *http.Request) {
	teacher, ok := h.load(w, r, true)
	if !ok {
		return
	}
	if teacher.Subjects == nil {
		teacher.Subjects = []models.Subject{}
	}
	writeJSON(w, http.StatusOK, teacher.Subjects)
}

// SetTeacherSubjects replaces the teacher's subject links with subject_ids.
func (h *TeacherHandler) SetTeacherSubjects(w http.ResponseWriter, r *http.Request) {
	teacher, ok := h.load(w, r, false)
	if !ok {
		return
	}
	var req models.TeacherSubjectsRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	ids := uniqueIDs(req.SubjectIDs)

	db := h.db.WithContext(r.Context())
	if len(ids) > 0 {
		var found int64
		if err := db.Model(&models.Subject{}).Where("id IN ?", ids).Count(&found).Error; err != nil {
			log.Printf("❌ Error checking subjects: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		if int(found) != len(ids) {
			writeError(w, http.StatusUnprocessableEntity, "Unknown subject ID in subject_ids")
			return
		}
	}

	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("teacher_id = ?", teacher.ID).Delete(&models.TeacherSubject{}).Error; err != nil {
			return err
		}
		if len(ids) == 0 {
			return nil
		}
		links := make([]models.TeacherSubject, len(ids))
		for i, id := range ids {
			links[i] = models.TeacherSubject{TeacherID: teacher.ID, SubjectID: id}
		}
		return tx.Create(&links).Error
	})
	if err != nil {
		log.Printf("❌ Error saving subjects for teacher %d: %v", teacher.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Teacher %d now teaches %d subject(s)", teacher.ID, len(ids))
	h.GetTeacherSubjects(w, r)
}

func (h *TeacherHandler) load(w http.ResponseWriter, r *http.Request, withSubjects bool) (models.TeacherProfile, bool) {
	var teacher models.TeacherProfile
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid teacher ID")
		return teacher, false
	}
	q := h.db.WithContext(r.Context())
	if withSubjects {
		q = q.Preload("Subjects")
	}
	if err := q.First(&teacher, id).Error; err != nil || !inScope(scopeFromRequest(r), teacher.DepartmentID) {
		writeError(w, http.StatusNotFound, "Teacher not found")
		return teacher, false
	}
	return teacher, true
}

func uniqueIDs(ids []uint) []uint {
	seen := make(map[uint]struct{}, len(ids))
	out := make([]uint, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
