package handlers

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/mux"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"timetable-backend/auth"
	"timetable-backend/models"
)

// dryRunDB builds statements without a database. Lookups find a zero row,
// which for time slots is a shared slot with no department.
func dryRunDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(postgres.New(postgres.Config{DSN: "host=localhost user=test dbname=test sslmode=disable"}),
		&gorm.Config{DryRun: true, DisableAutomaticPing: true, SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open dry-run db: %v", err)
	}
	return db
}

func TestTimeSlotWritesStayInDepartment(t *testing.T) {
	h := NewTimeSlotHandler(dryRunDB(t))
	hod := &auth.JWTClaims{Role: models.RoleHOD, DepartmentID: uptr(4)}
	admin := &auth.JWTClaims{Role: models.RoleAdmin}
	body := `{"day":"Monday","slot":1,"start_time":"9:00","department_id":9}`

	req := func(method string, claims *auth.JWTClaims) *http.Request {
		r := httptest.NewRequest(method, "/api/time-slots/5", strings.NewReader(body))
		return mux.SetURLVars(withClaims(r, claims), map[string]string{"id": "5"})
	}

	rec := httptest.NewRecorder()
	h.CreateTimeSlot(rec, withClaims(httptest.NewRequest(http.MethodPost, "/api/time-slots", strings.NewReader(body)), hod))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create status = %d body = %s", rec.Code, rec.Body.String())
	}
	var created models.TimeSlot
	decodeBody(t, rec, &created)
	if created.DepartmentID == nil || *created.DepartmentID != 4 || created.StartTime != "09:00" {
		t.Errorf("created = %+v", created)
	}

	rec = httptest.NewRecorder()
	h.UpdateTimeSlot(rec, req(http.MethodPut, hod))
	if rec.Code != http.StatusForbidden {
		t.Errorf("hod update of shared slot = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.DeleteTimeSlot(rec, req(http.MethodDelete, hod))
	if rec.Code != http.StatusForbidden {
		t.Errorf("hod delete of shared slot = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.GetTimeSlot(rec, req(http.MethodGet, hod))
	if rec.Code != http.StatusOK {
		t.Errorf("hod read of shared slot = %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	h.UpdateTimeSlot(rec, req(http.MethodPut, admin))
	if rec.Code != http.StatusOK {
		t.Fatalf("admin update = %d body = %s", rec.Code, rec.Body.String())
	}
	var updated models.TimeSlot
	decodeBody(t, rec, &updated)
	if updated.DepartmentID == nil || *updated.DepartmentID != 9 {
		t.Errorf("admin update department = %v", updated.DepartmentID)
	}
}

func TestScopedImportKeepsOwnDepartment(t *testing.T) {
	// a scoped resolver never reaches the database
	d := newDepartmentResolver(nil, uptr(4))
	for _, name := range []string{"Physics", "", "CSE"} {
		got, err := d.resolve(name)
		if err != nil || got == nil || *got != 4 {
			t.Errorf("resolve(%q) = %v, %v", name, got, err)
		}
	}
}
