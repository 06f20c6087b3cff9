package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"timetable-backend/models"
)

type DepartmentHandler struct {
	db *gorm.DB
}

func NewDepartmentHandler(db *gorm.DB) *DepartmentHandler {
	return &DepartmentHandler{db: db}
}

func (h *DepartmentHandler) GetDepartments(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	q := ilike(h.db.WithContext(r.Context()).Model(&models.Department{}), r, "name", "name")

	var departments []models.Department
	meta, err := paginate(q, p, &departments, "id", "name", "created_at")
	if err != nil {
		log.Printf("❌ Error fetching departments: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, departments)
}

func (h *DepartmentHandler) GetDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}
	var dept models.Department
	if err := h.db.WithContext(r.Context()).First(&dept, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Department not found")
		return
	}
	writeJSON(w, http.StatusOK, dept)
}

func (h *DepartmentHandler) CreateDepartment(w http.ResponseWriter, r *http.Request) {
	var req models.DepartmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	dept := models.Department{Name: req.Name}
	if err := h.db.WithContext(r.Context()).Create(&dept).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Department with this name already exists")
			return
		}
		log.Printf("❌ Error creating department: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Department created: %s (ID: %d)", dept.Name, dept.ID)
	writeJSON(w, http.StatusCreated, dept)
}

func (h *DepartmentHandler) UpdateDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}
	var req models.DepartmentRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	db := h.db.WithContext(r.Context())
	var dept models.Department
	if err := db.First(&dept, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Department not found")
		return
	}
	dept.Name = req.Name
	if err := db.Save(&dept).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Department with this name already exists")
			return
		}
		log.Printf("❌ Error updating department %d: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Department updated: %s (ID: %d)", dept.Name, dept.ID)
	writeJSON(w, http.StatusOK, dept)
}

// DeleteDepartment refuses while classes still reference the department.
func (h *DepartmentHandler) DeleteDepartment(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid department ID")
		return
	}

	db := h.db.WithContext(r.Context())
	var classes int64
	if err := db.Model(&models.Class{}).Where("department_id = ?", id).Count(&classes).Error; err != nil {
		log.Printf("❌ Error checking department %d usage: %v", id, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if classes > 0 {
		writeError(w, http.StatusConflict, "Department still has classes")
		return
	}

	res := db.Delete(&models.Department{}, id)
	if res.Error != nil {
		log.Printf("❌ Error deleting department %d: %v", id, res.Error)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if res.RowsAffected == 0 {
		writeError(w, http.StatusNotFound, "Department not found")
		return
	}

	log.Printf("🗑️ Department deleted: ID %d", id)
	w.WriteHeader(http.StatusNoContent)
}
