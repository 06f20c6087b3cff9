package handlers

import (
	"context"
	"log"
	"net/http"
	"time"

	"golang.org/x/sync/errgroup"
	"gorm.io/gorm"

	"timetable-backend/middleware"
	"timetable-backend/models"
	"timetable-backend/timetable"
)

// PortalHandler serves the signed-in teacher's and student's own views.
type PortalHandler struct {
	db   *gorm.DB
	grid GridQuerier
	svc  *timetable.Service
}

func NewPortalHandler(db *gorm.DB, grid GridQuerier, svc *timetable.Service) *PortalHandler {
	return &PortalHandler{db: db, grid: grid, svc: svc}
}

type scheduleDay struct {
	Day     string              `json:"day"`
	Entries []timetable.GridRow `json:"entries"`
}

// MySchedule lists the calling teacher's classes, grouped by weekday.
func (h *PortalHandler) MySchedule(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if claims.TeacherID == nil {
		writeError(w, http.StatusNotFound, "No teacher profile linked to this account")
		return
	}

	rows, err := h.grid.Query(r.Context(), timetable.GridFilter{TeacherID: claims.TeacherID})
	if err != nil {
		log.Printf("❌ Error reading schedule for teacher %d: %v", *claims.TeacherID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"teacher_id":  *claims.TeacherID,
		"total_hours": len(rows),
		"days":        groupByDay(rows),
	})
}

// groupByDay keeps weekday order and sorts each day by slot.
func groupByDay(rows []timetable.GridRow) []scheduleDay {
	sorted := append([]timetable.GridRow(nil), rows...)
	timetable.SortByDay(sorted)

	var days []scheduleDay
	for _, r := range sorted {
		if n := len(days); n == 0 || days[n-1].Day != r.Day {
			days = append(days, scheduleDay{Day: r.Day})
		}
		days[len(days)-1].Entries = append(days[len(days)-1].Entries, r)
	}
	if days == nil {
		days = []scheduleDay{}
	}
	return days
}

// MyTimetable returns the calling student's class grid.
func (h *PortalHandler) MyTimetable(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}
	if claims.StudentID == nil {
		writeError(w, http.StatusNotFound, "No student profile linked to this account")
		return
	}

	var student models.StudentProfile
	if err := h.db.WithContext(r.Context()).First(&student, *claims.StudentID).Error; err != nil {
		writeError(w, http.StatusNotFound, "Student profile not found")
		return
	}
	if student.ClassID == nil {
		writeError(w, http.StatusNotFound, "Student is not assigned to a class")
		return
	}

	rows, err := h.grid.Query(r.Context(), timetable.GridFilter{ClassID: student.ClassID})
	if err != nil {
		log.Printf("❌ Error reading timetable for class %d: %v", *student.ClassID, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	grid := timetable.ClassGrid{ClassID: *student.ClassID, Days: map[string]map[string]timetable.GridRow{}}
	if grids := timetable.GroupByClass(rows); len(grids) > 0 {
		grid = grids[0]
	}
	writeJSON(w, http.StatusOK, classGridResponse{ClassGrid: grid, DayOrder: h.svc.Days(), TimeOrder: h.svc.Times()})
}

type DashboardStats struct {
	Departments int64 `json:"departments"`
	Teachers    int64 `json:"teachers"`
	Rooms       int64 `json:"rooms"`
	Subjects    int64 `json:"subjects"`
	Classes     int64 `json:"classes"`
	TimeSlots   int64 `json:"time_slots"`
	Entries     int64 `json:"timetable_entries"`
	Conflicts   int   `json:"conflicts"`
}

// Stats counts the reference tables concurrently. Scoped callers see their department.
func (h *PortalHandler) Stats(w http.ResponseWriter, r *http.Request) {
	scope := scopeFromRequest(r)
	var stats DashboardStats

	g, ctx := errgroup.WithContext(r.Context())
	count := func(model interface{}, dst *int64, shared bool) {
		g.Go(func() error {
			q := h.db.WithContext(ctx).Model(model)
			if scope != nil {
				if shared {
					q = q.Where("department_id = ? OR department_id IS NULL", *scope)
				} else {
					q = q.Where("department_id = ?", *scope)
				}
			}
			return q.Count(dst).Error
		})
	}
	if scope == nil {
		count(&models.Department{}, &stats.Departments, false)
	} else {
		stats.Departments = 1
	}
	count(&models.TeacherProfile{}, &stats.Teachers, false)
	count(&models.Room{}, &stats.Rooms, true)
	count(&models.Subject{}, &stats.Subjects, false)
	count(&models.Class{}, &stats.Classes, false)
	count(&models.TimeSlot{}, &stats.TimeSlots, true)
	count(&models.TimetableEntry{}, &stats.Entries, false)
	g.Go(func() error {
		c, err := h.svc.StoredConflicts(ctx, scope)
		stats.Conflicts = c.Total()
		return err
	})

	if err := g.Wait(); err != nil {
		log.Printf("❌ Error computing dashboard stats: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

type HealthHandler struct {
	ping  func(ctx context.Context) error
	redis interface{ Enabled() bool }
}

// NewHealthHandler takes the database ping (e.g. (*sqlx.DB).PingContext) and the cache client.
func NewHealthHandler(ping func(ctx context.Context) error, redis interface{ Enabled() bool }) *HealthHandler {
	return &HealthHandler{ping: ping, redis: redis}
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	status, code := "ok", http.StatusOK
	database := "up"
	if h.ping != nil {
		if err := h.ping(ctx); err != nil {
			log.Printf("❌ Health check: database unreachable: %v", err)
			status, code, database = "degraded", http.StatusServiceUnavailable, "down"
		}
	}
	cacheState := "disabled"
	if h.redis != nil && h.redis.Enabled() {
		cacheState = "up"
	}

	writeJSON(w, code, map[string]interface{}{
		"status":    status,
		"service":   "timetable-backend",
		"database":  database,
		"cache":     cacheState,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
