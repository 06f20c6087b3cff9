package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"timetable-backend/models"
	"timetable-backend/timetable"
)

type TimeSlotHandler struct {
	db *gorm.DB
}

func NewTimeSlotHandler(db *gorm.DB) *TimeSlotHandler {
	return &TimeSlotHandler{db: db}
}

func (h *TimeSlotHandler) GetTimeSlots(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	q := h.db.WithContext(r.Context()).Model(&models.TimeSlot{})
	if day := r.URL.Query().Get("day"); day != "" {
		q = q.Where("day ILIKE ?", day)
	}
	if scope := scopeFromRequest(r); scope != nil {
		q = q.Where("department_id = ? OR department_id IS NULL", *scope)
	}

	var slots []models.TimeSlot
	if p.sortBy == "" {
		p.sortBy = "slot"
	}
	meta, err := paginate(q, p, &slots, "id", "day", "slot", "start_time", "end_time")
	if err != nil {
		log.Printf("❌ Error fetching time slots: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, slots)
}

func (h *TimeSlotHandler) GetTimeSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.load(w, r, false)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *TimeSlotHandler) CreateTimeSlot(w http.ResponseWriter, r *http.Request) {
	var req models.TimeSlotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	normalizeTimeSlot(&req)
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)

	var slot models.TimeSlot
	req.Apply(&slot)
	if err := h.db.WithContext(r.Context()).Create(&slot).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Time slot already exists for this day and period")
			return
		}
		log.Printf("❌ Error creating time slot: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Time slot created: %s #%d (ID: %d)", slot.Day, slot.Slot, slot.ID)
	writeJSON(w, http.StatusCreated, slot)
}

func (h *TimeSlotHandler) UpdateTimeSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.load(w, r, true)
	if !ok {
		return
	}
	var req models.TimeSlotRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	normalizeTimeSlot(&req)
	req.DepartmentID = scopedDepartment(scopeFromRequest(r), req.DepartmentID)
	req.Apply(&slot)

	if err := h.db.WithContext(r.Context()).Save(&slot).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Time slot already exists for this day and period")
			return
		}
		log.Printf("❌ Error updating time slot %d: %v", slot.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, slot)
}

func (h *TimeSlotHandler) DeleteTimeSlot(w http.ResponseWriter, r *http.Request) {
	slot, ok := h.load(w, r, true)
	if !ok {
		return
	}
	db := h.db.WithContext(r.Context())
	if inUse(w, db, "time_slot_id", slot.ID, "Time slot") {
		return
	}
	if err := db.Delete(&models.TimeSlot{}, slot.ID).Error; err != nil {
		log.Printf("❌ Error deleting time slot %d: %v", slot.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("🗑️ Time slot deleted: %s #%d (ID: %d)", slot.Day, slot.Slot, slot.ID)
	w.WriteHeader(http.StatusNoContent)
}

// load fetches the slot in the path. Scoped callers can read shared slots but
// only change their own department's.
func (h *TimeSlotHandler) load(w http.ResponseWriter, r *http.Request, write bool) (models.TimeSlot, bool) {
	var slot models.TimeSlot
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid time slot ID")
		return slot, false
	}
	if err := h.db.WithContext(r.Context()).First(&slot, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Time slot not found")
		return slot, false
	}
	scope := scopeFromRequest(r)
	if write && !inScope(scope, slot.DepartmentID) {
		if slot.DepartmentID == nil {
			writeError(w, http.StatusForbidden, "Shared time slots can only be changed by an administrator")
		} else {
			writeError(w, http.StatusNotFound, "Time slot not found")
		}
		return slot, false
	}
	if !write && slot.DepartmentID != nil && !inScope(scope, slot.DepartmentID) {
		writeError(w, http.StatusNotFound, "Time slot not found")
		return slot, false
	}
	return slot, true
}

// normalizeTimeSlot stores start and end times as HH:MM when they parse.
func normalizeTimeSlot(req *models.TimeSlotRequest) {
	if t := timetable.NormalizeHHMM(req.StartTime); t != "" {
		req.StartTime = t
	}
	if t := timetable.NormalizeHHMM(req.EndTime); t != "" {
		req.EndTime = t
	}
}
