package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"timetable-backend/cache"
	"timetable-backend/importer"
	"timetable-backend/timetable"
)

// GridQuerier reads joined timetable rows; *timetable.GridReader implements it.
type GridQuerier interface {
	Query(ctx context.Context, f timetable.GridFilter) ([]timetable.GridRow, error)
}

// ResultReader reads cached generation results; *cache.Client implements it.
type ResultReader interface {
	GetJSON(ctx context.Context, key string, dst interface{}) (bool, error)
}

type TimetableHandler struct {
	svc   *timetable.Service
	store timetable.Store
	grid  GridQuerier
	cache ResultReader
}

func NewTimetableHandler(svc *timetable.Service, store timetable.Store, grid GridQuerier, cache ResultReader) *TimetableHandler {
	return &TimetableHandler{svc: svc, store: store, grid: grid, cache: cache}
}

func (h *TimetableHandler) Generate(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, false)
}

func (h *TimetableHandler) Preview(w http.ResponseWriter, r *http.Request) {
	h.generate(w, r, true)
}

func (h *TimetableHandler) generate(w http.ResponseWriter, r *http.Request, dryRun bool) {
	var opts timetable.GenerateOptions
	// An empty body, chunked or not, means default options.
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&opts); err != nil && !errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}
	}
	opts.DepartmentID = scopedDepartment(scopeFromRequest(r), opts.DepartmentID)

	run := h.svc.GenerateAndPersist
	if dryRun {
		run = h.svc.Preview
	}
	res, err := run(r.Context(), opts)
	if err != nil {
		writeGenerationError(w, res, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// writeGenerationError maps pipeline errors to HTTP statuses.
func writeGenerationError(w http.ResponseWriter, res *timetable.GenerateResult, err error) {
	var conflict *timetable.ConflictError
	var missing *timetable.MissingTeachersError
	var genErr *timetable.GeneratorError

	switch {
	case errors.As(err, &conflict):
		body := map[string]interface{}{
			"error":     err.Error(),
			"conflicts": conflict.Conflicts,
		}
		if res != nil {
			body["report"] = res.Report
		}
		writeJSON(w, http.StatusConflict, body)
	case errors.As(err, &missing):
		writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
			"error":            err.Error(),
			"missing_teachers": missing.Missing,
		})
	case errors.Is(err, timetable.ErrNoReferenceData), errors.Is(err, timetable.ErrInvalidMode):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &genErr):
		writeJSON(w, http.StatusBadGateway, map[string]interface{}{
			"error":          genErr.Message,
			"backend_status": genErr.StatusCode,
		})
	case errors.Is(err, timetable.ErrGenerator):
		var netErr net.Error
		if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
			writeError(w, http.StatusGatewayTimeout, "Timetable generator timed out")
			return
		}
		writeError(w, http.StatusBadGateway, err.Error())
	default:
		log.Printf("❌ Timetable generation failed: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

type validateRequest struct {
	Rows         []timetable.Row `json:"rows"`
	DepartmentID *uint           `json:"department_id"`
}

// Validate checks caller-supplied rows for conflicts and unknown teachers without saving them.
func (h *TimetableHandler) Validate(w http.ResponseWriter, r *http.Request) {
	var req validateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	res, err := h.svc.ValidateRows(r.Context(), req.Rows, scopedDepartment(scopeFromRequest(r), req.DepartmentID))
	if err != nil {
		log.Printf("❌ Error validating timetable rows: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"valid":  res.TotalConflicts == 0 && len(res.MissingTeachers) == 0,
		"result": res,
	})
}

func (h *TimetableHandler) GetEntries(w http.ResponseWriter, r *http.Request) {
	var f timetable.EntryFilter
	for key, dst := range map[string]**uint{
		"class_id":      &f.ClassID,
		"teacher_id":    &f.TeacherID,
		"room_id":       &f.RoomID,
		"subject_id":    &f.SubjectID,
		"time_slot_id":  &f.TimeSlotID,
		"department_id": &f.DepartmentID,
	} {
		v, err := queryUint(r, key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = v
	}
	if scope := scopeFromRequest(r); scope != nil {
		f.DepartmentID = scope
	}

	entries, err := h.store.ListEntries(r.Context(), f)
	if err != nil {
		log.Printf("❌ Error fetching timetable entries: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

type clearRequest struct {
	ClassIDs []uint `json:"class_ids" validate:"required,min=1,dive,min=1"`
}

// DeleteEntries clears every entry of the listed classes. Scoped callers can
// only clear classes that have entries in their department.
func (h *TimetableHandler) DeleteEntries(w http.ResponseWriter, r *http.Request) {
	var req clearRequest
	if raw := r.URL.Query().Get("class_ids"); raw != "" {
		ids, err := parseIDList(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		req.ClassIDs = ids
		if !validateStruct(w, &req) {
			return
		}
	} else if !decodeAndValidate(w, r, &req) {
		return
	}

	ids := uniqueIDs(req.ClassIDs)
	if scope := scopeFromRequest(r); scope != nil {
		entries, err := h.store.ListEntries(r.Context(), timetable.EntryFilter{DepartmentID: scope})
		if err != nil {
			log.Printf("❌ Error fetching timetable entries: %v", err)
			writeError(w, http.StatusInternalServerError, "Internal server error")
			return
		}
		owned := map[uint]bool{}
		for _, e := range entries {
			owned[e.ClassID] = true
		}
		kept := ids[:0]
		for _, id := range ids {
			if owned[id] {
				kept = append(kept, id)
			}
		}
		ids = kept
	}

	n, err := h.store.ClearClasses(r.Context(), ids)
	if err != nil {
		log.Printf("❌ Error clearing timetable entries: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	log.Printf("🗑️ Cleared %d timetable entries for %d class(es)", n, len(ids))
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": n, "class_ids": ids})
}

type classGridResponse struct {
	timetable.ClassGrid
	DayOrder  []string `json:"day_order"`
	TimeOrder []string `json:"time_order"`
}

// GetClassTimetable returns one class's week as a day x time grid.
func (h *TimetableHandler) GetClassTimetable(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid class ID")
		return
	}
	f := timetable.GridFilter{ClassID: &id, DepartmentID: scopeFromRequest(r)}
	grid, ok := h.classGrid(w, r, f)
	if !ok {
		return
	}
	grid.ClassID = id
	writeJSON(w, http.StatusOK, classGridResponse{ClassGrid: grid, DayOrder: h.svc.Days(), TimeOrder: h.svc.Times()})
}

func (h *TimetableHandler) classGrid(w http.ResponseWriter, r *http.Request, f timetable.GridFilter) (timetable.ClassGrid, bool) {
	rows, err := h.grid.Query(r.Context(), f)
	if err != nil {
		log.Printf("❌ Error reading timetable grid: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return timetable.ClassGrid{}, false
	}
	grids := timetable.GroupByClass(rows)
	if len(grids) == 0 {
		return timetable.ClassGrid{Days: map[string]map[string]timetable.GridRow{}}, true
	}
	return grids[0], true
}

func (h *TimetableHandler) GetConflicts(w http.ResponseWriter, r *http.Request) {
	dept, err := queryUint(r, "department_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dept = scopedDepartment(scopeFromRequest(r), dept)

	conflicts, err := h.svc.StoredConflicts(r.Context(), dept)
	if err != nil {
		log.Printf("❌ Error checking stored conflicts: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"total":     conflicts.Total(),
		"conflicts": conflicts,
	})
}

func (h *TimetableHandler) GetRuns(w http.ResponseWriter, r *http.Request) {
	dept, err := queryUint(r, "department_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dept = scopedDepartment(scopeFromRequest(r), dept)

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > maxPageSize {
		limit = 20
	}
	runs, err := h.store.ListRuns(r.Context(), dept, limit)
	if err != nil {
		log.Printf("❌ Error fetching generation runs: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}

// GetLast returns the cached result of the latest successful generation.
func (h *TimetableHandler) GetLast(w http.ResponseWriter, r *http.Request) {
	dept, err := queryUint(r, "department_id")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	dept = scopedDepartment(scopeFromRequest(r), dept)

	var res json.RawMessage
	found, err := h.cache.GetJSON(r.Context(), cache.LastGenerationKey(dept), &res)
	if err != nil && !errors.Is(err, cache.ErrDisabled) {
		log.Printf("⚠️ Could not read cached generation: %v", err)
	}
	if !found {
		writeError(w, http.StatusNotFound, "No cached generation result")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(res)
}

// Export streams the stored timetable as an xlsx workbook, one sheet per class.
func (h *TimetableHandler) Export(w http.ResponseWriter, r *http.Request) {
	var f timetable.GridFilter
	for key, dst := range map[string]**uint{
		"class_id":      &f.ClassID,
		"teacher_id":    &f.TeacherID,
		"room_id":       &f.RoomID,
		"department_id": &f.DepartmentID,
	} {
		v, err := queryUint(r, key)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		*dst = v
	}
	f.DepartmentID = scopedDepartment(scopeFromRequest(r), f.DepartmentID)

	rows, err := h.grid.Query(r.Context(), f)
	if err != nil {
		log.Printf("❌ Error reading timetable grid: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	filename := fmt.Sprintf("timetable_%s.xlsx", time.Now().Format("20060102_150405"))
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	if err := importer.ExportTimetable(w, timetable.GroupByClass(rows)); err != nil {
		log.Printf("❌ Error writing timetable export: %v", err)
		return
	}
	log.Printf("📊 Exported %d timetable rows to %s", len(rows), filename)
}

func parseIDList(raw string) ([]uint, error) {
	var ids []uint
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid class id %q", part)
		}
		ids = append(ids, uint(v))
	}
	return ids, nil
}
