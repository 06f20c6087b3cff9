package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gorilla/mux"
	"gorm.io/gorm"

	"timetable-backend/auth"
	"timetable-backend/middleware"
	"timetable-backend/models"
)

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("❌ Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// decodeAndValidate decodes the JSON body into dst and runs struct validation.
// It writes the error response itself and reports whether the handler may go on.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		log.Printf("❌ Error decoding %s %s: %v", r.Method, r.URL.Path, err)
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return validateStruct(w, dst)
}

func validateStruct(w http.ResponseWriter, v interface{}) bool {
	err := validate.Struct(v)
	if err == nil {
		return true
	}
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		writeError(w, http.StatusBadRequest, "Invalid input")
		return false
	}
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		fields[fe.Field()] = fe.Tag()
	}
	writeJSON(w, http.StatusUnprocessableEntity, map[string]interface{}{
		"error":  "validation failed",
		"fields": fields,
	})
	return false
}

func pathID(r *http.Request, key string) (uint, error) {
	v, err := strconv.ParseUint(mux.Vars(r)[key], 10, 64)
	if err != nil || v == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(v), nil
}

// queryUint parses an optional numeric query parameter.
func queryUint(r *http.Request, key string) (*uint, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid %s", key)
	}
	u := uint(v)
	return &u, nil
}

type listParams struct {
	page   int
	limit  int
	sortBy string
}

const maxPageSize = 100

func parseList(r *http.Request) listParams {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	if page < 1 {
		page = 1
	}
	limit, _ := strconv.Atoi(q.Get("limit"))
	if limit < 1 {
		limit = 10
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}
	return listParams{page: page, limit: limit, sortBy: q.Get("sortBy")}
}

func (p listParams) offset() int {
	return (p.page - 1) * p.limit
}

// order turns sortBy ("field" or "-field") into an ORDER BY clause. Only the
// listed columns are accepted; anything else sorts by id.
func (p listParams) order(sortable ...string) string {
	field, dir := p.sortBy, "ASC"
	if strings.HasPrefix(field, "-") {
		field, dir = strings.TrimPrefix(field, "-"), "DESC"
	}
	for _, col := range sortable {
		if field == col {
			return col + " " + dir
		}
	}
	return "id ASC"
}

// ilike adds a case-insensitive contains filter when the query parameter is set.
// Leading and trailing '*' wildcards are ignored.
func ilike(q *gorm.DB, r *http.Request, param, column string) *gorm.DB {
	v := strings.Trim(r.URL.Query().Get(param), "*")
	if v == "" {
		return q
	}
	return q.Where(column+" ILIKE ?", "%"+v+"%")
}

// paginate counts q, then loads the requested page into dst.
func paginate(q *gorm.DB, p listParams, dst interface{}, sortable ...string) (models.Meta, error) {
	var total int64
	if err := q.Session(&gorm.Session{}).Count(&total).Error; err != nil {
		return models.Meta{}, err
	}
	if err := q.Order(p.order(sortable...)).Offset(p.offset()).Limit(p.limit).Find(dst).Error; err != nil {
		return models.Meta{}, err
	}
	return models.NewMeta(total, p.page, p.limit), nil
}

func writePage(w http.ResponseWriter, meta models.Meta, items interface{}) {
	writeJSON(w, http.StatusOK, models.PaginatedResponse{Meta: meta, Items: items})
}

// departmentScope returns the department a caller is confined to, or nil for
// roles that see every department. A scoped role without a department sees nothing.
func departmentScope(claims *auth.JWTClaims) *uint {
	if claims == nil || claims.Can(auth.PermViewAll) {
		return nil
	}
	if claims.DepartmentID == nil {
		none := uint(0)
		return &none
	}
	d := *claims.DepartmentID
	return &d
}

func scopeFromRequest(r *http.Request) *uint {
	return departmentScope(middleware.GetUserClaims(r.Context()))
}

// inScope reports whether a row's department is visible to scope.
func inScope(scope, rowDept *uint) bool {
	if scope == nil {
		return true
	}
	return rowDept != nil && *rowDept == *scope
}

// scopedDepartment picks the department a write lands in: scoped callers
// always write into their own department.
func scopedDepartment(scope, requested *uint) *uint {
	if scope != nil {
		return scope
	}
	return requested
}

func isNotFound(err error) bool {
	return errors.Is(err, gorm.ErrRecordNotFound)
}

// isUniqueViolation matches PostgreSQL's unique_violation (23505) as surfaced by the pgx driver.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "23505") || strings.Contains(msg, "duplicate key")
}
