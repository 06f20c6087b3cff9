package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"timetable-backend/models"
)

type StudentHandler struct {
	db *gorm.DB
}

func NewStudentHandler(db *gorm.DB) *StudentHandler {
	return &StudentHandler{db: db}
}

func (h *StudentHandler) GetStudents(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	db := h.db.WithContext(r.Context())
	q := db.Model(&models.StudentProfile{}).Preload("Class")
	q = ilike(q, r, "first_name", "first_name")
	q = ilike(q, r, "last_name", "last_name")
	q = ilike(q, r, "roll_number", "roll_number")

	if classID, err := queryUint(r, "class_id"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if classID != nil {
		q = q.Where("class_id = ?", *classID)
	}
	if scope := scopeFromRequest(r); scope != nil {
		q = q.Where("class_id IN (?)", db.Model(&models.Class{}).Select("id").Where("department_id = ?", *scope))
	}

	var students []models.StudentProfile
	meta, err := paginate(q, p, &students, "id", "first_name", "last_name", "roll_number", "semester", "created_at")
	if err != nil {
		log.Printf("❌ Error fetching students: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, students)
}

func (h *StudentHandler) GetStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) CreateStudent(w http.ResponseWriter, r *http.Request) {
	var req models.StudentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.classAllowed(w, r, req.ClassID) {
		return
	}

	var student models.StudentProfile
	req.Apply(&student)
	if err := h.db.WithContext(r.Context()).Create(&student).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Student with this roll number already exists")
			return
		}
		log.Printf("❌ Error creating student: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Student created: %s %s (ID: %d)", student.FirstName, student.LastName, student.ID)
	writeJSON(w, http.StatusCreated, student)
}

func (h *StudentHandler) UpdateStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.StudentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if !h.classAllowed(w, r, req.ClassID) {
		return
	}
	req.Apply(&student)
	student.Class = nil

	if err := h.db.WithContext(r.Context()).Omit(clause.Associations).Save(&student).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Student with this roll number already exists")
			return
		}
		log.Printf("❌ Error updating student %d: %v", student.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Student updated: %s %s (ID: %d)", student.FirstName, student.LastName, student.ID)
	writeJSON(w, http.StatusOK, student)
}

func (h *StudentHandler) DeleteStudent(w http.ResponseWriter, r *http.Request) {
	student, ok := h.load(w, r)
	if !ok {
		return
	}
	err := h.db.WithContext(r.Context()).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&models.User{}).Where("student_id = ?", student.ID).Update("student_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&models.StudentProfile{}, student.ID).Error
	})
	if err != nil {
		log.Printf("❌ Error deleting student %d: %v", student.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("🗑️ Student deleted: ID %d", student.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *StudentHandler) load(w http.ResponseWriter, r *http.Request) (models.StudentProfile, bool) {
	var student models.StudentProfile
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid student ID")
		return student, false
	}
	if err := h.db.WithContext(r.Context()).Preload("Class").First(&student, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Student not found")
		return student, false
	}
	if scope := scopeFromRequest(r); scope != nil && (student.Class == nil || !inScope(scope, student.Class.DepartmentID)) {
		writeError(w, http.StatusNotFound, "Student not found")
		return student, false
	}
	return student, true
}

// classAllowed checks that classID exists and is visible to the caller.
func (h *StudentHandler) classAllowed(w http.ResponseWriter, r *http.Request, classID *uint) bool {
	scope := scopeFromRequest(r)
	if classID == nil {
		if scope != nil {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
				"error":  "validation failed",
				"fields": map[string]string{"class_id": "required"},
			})
			return false
		}
		return true
	}
	var class models.Class
	if err := h.db.WithContext(r.Context()).First(&class, *classID).Error; err != nil || !inScope(scope, class.DepartmentID) {
		writeError(w, http.StatusUnprocessableEntity, "Unknown class_id")
		return false
	}
	return true
}
