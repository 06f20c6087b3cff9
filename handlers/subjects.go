package handlers

import (
	"log"
	"net/http"
	"strings"

	"gorm.io/gorm"

	"timetable-backend/importer"
	"timetable-backend/models"
)

type SubjectHandler struct {
	db *gorm.DB
}

func NewSubjectHandler(db *gorm.DB) *SubjectHandler {
	return &SubjectHandler{db: db}
}

func (h *SubjectHandler) GetSubjects(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	q := h.db.WithContext(r.Context()).Model(&models.Subject{})
	q = ilike(q, r, "subject_name", "subject_name")
	q = ilike(q, r, "subject_code", "subject_code")
	if t := r.URL.Query().Get("type"); t != "" {
		q = q.Where("type = ?", strings.ToUpper(t))
	}

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

	var subjects []models.Subject
	meta, err := paginate(q, p, &subjects, "id", "subject_name", "subject_code", "semester", "type", "credits", "hours_per_week", "created_at")
	if err != nil {
		log.Printf("❌ Error fetching subjects: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, subjects)
}

func (h *SubjectHandler) GetSubject(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, subject)
}

func (h *SubjectHandler) CreateSubject(w http.ResponseWriter, r *http.Request) {
	var req models.SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !normalizeSubjectType(w, &req) {
		return
	}
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)

	var subject models.Subject
	req.Apply(&subject)
	if err := h.db.WithContext(r.Context()).Create(&subject).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Subject with this name or code already exists")
			return
		}
		log.Printf("❌ Error creating subject: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Subject created: %s %s (ID: %d)", subject.SubjectCode, subject.SubjectName, subject.ID)
	writeJSON(w, http.StatusCreated, subject)
}

func (h *SubjectHandler) UpdateSubject(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.SubjectRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !normalizeSubjectType(w, &req) {
		return
	}
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)
	req.Apply(&subject)

	if err := h.db.WithContext(r.Context()).Save(&subject).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Subject with this name or code already exists")
			return
		}
		log.Printf("❌ Error updating subject %d: %v", subject.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Subject updated: %s (ID: %d)", subject.SubjectCode, subject.ID)
	writeJSON(w, http.StatusOK, subject)
}

func (h *SubjectHandler) DeleteSubject(w http.ResponseWriter, r *http.Request) {
	subject, ok := h.load(w, r)
	if !ok {
		return
	}
	db := h.db.WithContext(r.Context())
	if inUse(w, db, "subject_id", subject.ID, "Subject") {
		return
	}
	err := db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("subject_id = ?", subject.ID).Delete(&models.TeacherSubject{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Subject{}, subject.ID).Error
	})
	if err != nil {
		log.Printf("❌ Error deleting subject %d: %v", subject.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("🗑️ Subject deleted: %s (ID: %d)", subject.SubjectCode, subject.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *SubjectHandler) load(w http.ResponseWriter, r *http.Request) (models.Subject, bool) {
	var subject models.Subject
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid subject ID")
		return subject, false
	}
	if err := h.db.WithContext(r.Context()).First(&subject, id).Error; err != nil || !inScope(scopeFromRequest(r), subject.DepartmentID) {
		writeError(w, http.StatusNotFound, "Subject not found")
		return subject, false
	}
	return subject, true
}

// normalizeSubjectType canonicalizes req.Type (default THEORY) or writes 422.
func normalizeSubjectType(w http.ResponseWriter, req *models.SubjectRequest) bool {
	if strings.TrimSpace(req.Type) == "" {
		req.Type = models.SubjectTheory
		return true
	}
	t, err := importer.NormalizeSubjectType(req.Type)
	if err != nil {
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":  err.Error(),
			"fields": map[string]string{"type": "oneof"},
		})
		return false
	}
	req.Type = t
	return true
}
