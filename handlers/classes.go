package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"timetable-backend/models"
)

type ClassHandler struct {
	db *gorm.DB
}

func NewClassHandler(db *gorm.DB) *ClassHandler {
	return &ClassHandler{db: db}
}

func (h *ClassHandler) GetClasses(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	q := h.db.WithContext(r.Context()).Model(&models.Class{}).Preload("Department")
	q = ilike(q, r, "class_name", "class_name")
	q = ilike(q, r, "section", "section")
	q = ilike(q, r, "academic_year", "academic_year")

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
	if sem, err := queryUint(r, "semester"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if sem != nil {
		q = q.Where("semester = ?", *sem)
	}

	var classes []models.Class
	meta, err := paginate(q, p, &classes, "id", "class_name", "semester", "section", "academic_year", "students_count", "created_at")
	if err != nil {
		log.Printf("❌ Error fetching classes: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, classes)
}

func (h *ClassHandler) GetClass(w http.ResponseWriter, r *http.Request) {
	class, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, class)
}

func (h *ClassHandler) CreateClass(w http.ResponseWriter, r *http.Request) {
	var req models.ClassRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)

	var class models.Class
	req.Apply(&class)
	if err := h.db.WithContext(r.Context()).Create(&class).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Class with this name already exists")
			return
		}
		log.Printf("❌ Error creating class: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Class created: %s (ID: %d)", class.ClassName, class.ID)
	writeJSON(w, http.StatusCreated, class)
}

func (h *ClassHandler) UpdateClass(w http.ResponseWriter, r *http.Request) {
	class, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.ClassRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)
	req.Apply(&class)
	class.Department = nil

	if err := h.db.WithContext(r.Context()).Save(&class).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Class with this name already exists")
			return
		}
		log.Printf("❌ Error updating class %d: %v", class.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Class updated: %s (ID: %d)", class.ClassName, class.ID)
	writeJSON(w, http.StatusOK, class)
}

// DeleteClass removes the class together with its timetable entries and
// detaches its students.
func (h *ClassHandler) DeleteClass(w http.ResponseWriter, r *http.Request) {
	class, ok := h.load(w, r)
	if !ok {
		return
	}

	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("class_id = ?", class.ID).Delete(&models.TimetableEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Model(&models.StudentProfile{}).Where("class_id = ?", class.ID).Update("class_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Class{}, class.ID).Error
	})
	if err != nil {
		log.Printf("❌ Error deleting class %d: %v", class.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("🗑️ Class deleted: %s (ID: %d)", class.ClassName, class.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *ClassHandler) load(w http.ResponseWriter, r *http.Request) (models.Class, bool) {
	var class models.Class
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid class ID")
		return class, false
	}
	if err := h.db.WithContext(r.Context()).Preload("Department").First(&class, id).Error; err != nil {
		if !isNotFound(err) {
			log.Printf("❌ Error fetching class %d: %v", id, err)
		}
		writeError(w, http.StatusNotFound, "Class not found")
		return class, false
	}
	if !inScope(scopeFromRequest(r), class.DepartmentID) {
		writeError(w, http.StatusNotFound, "Class not found")
		return class, false
	}
	return class, true
}
