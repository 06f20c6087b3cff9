package handlers

import (
	"log"
	"net/http"

	"gorm.io/gorm"

	"timetable-backend/models"
)

type RoomHandler struct {
	db *gorm.DB
}

func NewRoomHandler(db *gorm.DB) *RoomHandler {
	return &RoomHandler{db: db}
}

// GetRooms lists rooms. Scoped callers see their department's rooms and shared ones.
func (h *RoomHandler) GetRooms(w http.ResponseWriter, r *http.Request) {
	p := parseList(r)
	q := h.db.WithContext(r.Context()).Model(&models.Room{})
	q = ilike(q, r, "room_number", "room_number")
	q = ilike(q, r, "name", "name")
	if t := r.URL.Query().Get("room_type"); t != "" {
		q = q.Where("room_type = ?", t)
	}
	if scope := scopeFromRequest(r); scope != nil {
		q = q.Where("department_id = ? OR department_id IS NULL", *scope)
	}
	if min, err := queryUint(r, "min_capacity"); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	} else if min != nil {
		q = q.Where("capacity >= ?", *min)
	}

	var rooms []models.Room
	meta, err := paginate(q, p, &rooms, "id", "room_number", "name", "room_type", "capacity", "created_at")
	if err != nil {
		log.Printf("❌ Error fetching rooms: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writePage(w, meta, rooms)
}

func (h *RoomHandler) GetRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.load(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	var req models.RoomRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}

	var room models.Room
	req.Apply(&room)
	if err := h.db.WithContext(r.Context()).Create(&room).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Room with this number already exists")
			return
		}
		log.Printf("❌ Error creating room: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Room created: %s (ID: %d)", room.RoomNumber, room.ID)
	writeJSON(w, http.StatusCreated, room)
}

func (h *RoomHandler) UpdateRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.load(w, r)
	if !ok {
		return
	}
	var req models.RoomRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	req.Apply(&room)

	if err := h.db.WithContext(r.Context()).Save(&room).Error; err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Room with this number already exists")
			return
		}
		log.Printf("❌ Error updating room %d: %v", room.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ Room updated: %s (ID: %d)", room.RoomNumber, room.ID)
	writeJSON(w, http.StatusOK, room)
}

func (h *RoomHandler) DeleteRoom(w http.ResponseWriter, r *http.Request) {
	room, ok := h.load(w, r)
	if !ok {
		return
	}
	if inUse(w, h.db.WithContext(r.Context()), "room_id", room.ID, "Room") {
		return
	}
	if err := h.db.WithContext(r.Context()).Delete(&models.Room{}, room.ID).Error; err != nil {
		log.Printf("❌ Error deleting room %d: %v", room.ID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("🗑️ Room deleted: %s (ID: %d)", room.RoomNumber, room.ID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *RoomHandler) load(w http.ResponseWriter, r *http.Request) (models.Room, bool) {
	var room models.Room
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid room ID")
		return room, false
	}
	if err := h.db.WithContext(r.Context()).First(&room, id).Error; err != nil {
		writeError(w, http.StatusNotFound, "Room not found")
		return room, false
	}
	return room, true
}

// inUse writes 409 when timetable entries still reference the row.
func inUse(w http.ResponseWriter, db *gorm.DB, column string, id uint, what string) bool {
	var n int64
	if err := db.Model(&models.TimetableEntry{}).Where(column+" = ?", id).Count(&n).Error; err != nil {
		log.Printf("❌ Error checking %s %d usage: %v", what, id, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return true
	}
	if n > 0 {
		writeError(w, http.StatusConflict, what+" is used by timetable entries")
		return true
	}
	return false
}
