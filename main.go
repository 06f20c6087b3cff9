package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"timetable-backend/auth"
	"timetable-backend/cache"
	"timetable-backend/config"
	"timetable-backend/database"
	"timetable-backend/handlers"
	"timetable-backend/middleware"
	"timetable-backend/timetable"

	"github.com/gorilla/mux"
)

type app struct {
	auth       *handlers.AuthHandler
	depts      *handlers.DepartmentHandler
	classes    *handlers.ClassHandler
	rooms      *handlers.RoomHandler
	subjects   *handlers.SubjectHandler
	teachers   *handlers.TeacherHandler
	students   *handlers.StudentHandler
	timeSlots  *handlers.TimeSlotHandler
	imports    *handlers.ImportHandler
	timetable  *handlers.TimetableHandler
	portal     *handlers.PortalHandler
	health     *handlers.HealthHandler
	authMW     *middleware.AuthMiddleware
	loginLimit func(http.Handler) http.Handler
}

func main() {
	log.Println("🚀 Starting Timetable Backend Server...")

	cfg := config.Load()
	log.Printf("📋 Configuration loaded: Server Port %s, generator %s", cfg.ServerPort, cfg.GeneratorURL)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.InitDB(cfg)
	if err != nil {
		log.Fatal("❌ Error initializing database:", err)
	}
	sqlDB, err := db.DB()
	if err != nil {
		log.Fatal("❌ Error getting SQL DB:", err)
	}
	defer sqlDB.Close()

	if err := database.Migrate(db, cfg.SeedAdminEmail, cfg.SeedAdminPassword); err != nil {
		log.Fatal("❌ Error migrating database:", err)
	}

	readDB, err := database.InitReadDB(cfg)
	if err != nil {
		log.Fatal("❌ Error initializing read database:", err)
	}
	defer readDB.Close()

	cacheClient := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisPassword, cfg.CacheTTL)
	defer cacheClient.Close()

	jwtService := auth.NewJWTService(cfg.JWTSecret, cfg.JWTExpiry)

	store := timetable.NewGormStore(db)
	grid := timetable.NewGridReader(readDB)
	svc := timetable.NewService(store, timetable.NewClient(cfg.GeneratorURL, cfg.GeneratorTimeout), cacheClient, timetable.ServiceConfig{
		Days:     cfg.TimetableDays,
		Times:    cfg.TimetableTimes,
		Mode:     cfg.TimetableMode,
		CacheTTL: cfg.CacheTTL,
	})

	a := &app{
		auth:       handlers.NewAuthHandler(db, jwtService),
		depts:      handlers.NewDepartmentHandler(db),
		classes:    handlers.NewClassHandler(db),
		rooms:      handlers.NewRoomHandler(db),
		subjects:   handlers.NewSubjectHandler(db),
		teachers:   handlers.NewTeacherHandler(db),
		students:   handlers.NewStudentHandler(db),
		timeSlots:  handlers.NewTimeSlotHandler(db),
		imports:    handlers.NewImportHandler(db),
		timetable:  handlers.NewTimetableHandler(svc, store, grid, cacheClient),
		portal:     handlers.NewPortalHandler(db, grid, svc),
		health:     handlers.NewHealthHandler(readDB.PingContext, cacheClient),
		authMW:     middleware.NewAuthMiddleware(jwtService),
		loginLimit: middleware.LoginRateLimiter(cacheClient, cfg.LoginRateLimit, cfg.LoginRateWindow),
	}

	r := mux.NewRouter()
	r.Use(middleware.CORS)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging)
	setupRoutes(r, a)

	srv := &http.Server{
		Addr:              ":" + cfg.ServerPort,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
		// generation waits on the solver
		WriteTimeout: cfg.GeneratorTimeout + 30*time.Second,
	}

	go func() {
		log.Printf("✅ Server successfully started on %s", srv.Addr)
		log.Printf("🌐 Available at: http://localhost%s", srv.Addr)
		log.Printf("🔐 JWT Expiry: %d hours", cfg.JWTExpiry)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("❌ Server error:", err)
		}
	}()

	<-ctx.Done()
	log.Println("🔄 Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("❌ Graceful shutdown failed: %v", err)
	}
	log.Println("✅ Server stopped")
}

func guard(h http.HandlerFunc, perms ...string) http.Handler {
	return middleware.RequirePermission(perms...)(h)
}

func setupRoutes(r *mux.Router, a *app) {
	api := r.PathPrefix("/api").Subrouter()

	// Public
	api.Handle("/auth/login", a.loginLimit(http.HandlerFunc(a.auth.Login))).Methods("POST")
	api.HandleFunc("/auth/register", a.auth.Register).Methods("POST")

	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(a.authMW.AuthMiddleware)

	protected.HandleFunc("/auth/me", a.auth.GetCurrentUser).Methods("GET")
	protected.Handle("/users", guard(a.auth.CreateUser, auth.PermManageUsers)).Methods("POST")

	// Departments
	protected.HandleFunc("/departments", a.depts.GetDepartments).Methods("GET")
	protected.HandleFunc("/departments/{id}", a.depts.GetDepartment).Methods("GET")
	protected.Handle("/departments", guard(a.depts.CreateDepartment, auth.PermManageDepartments)).Methods("POST")
	protected.Handle("/departments/{id}", guard(a.depts.UpdateDepartment, auth.PermManageDepartments)).Methods("PUT", "PATCH")
	protected.Handle("/departments/{id}", guard(a.depts.DeleteDepartment, auth.PermManageDepartments)).Methods("DELETE")

	// Classes
	protected.Handle("/classes/import", guard(a.imports.ImportClasses, auth.PermManageDeptClasses)).Methods("POST")
	protected.HandleFunc("/classes", a.classes.GetClasses).Methods("GET")
	protected.HandleFunc("/classes/{id}", a.classes.GetClass).Methods("GET")
	protected.Handle("/classes", guard(a.classes.CreateClass, auth.PermManageDeptClasses)).Methods("POST")
	protected.Handle("/classes/{id}", guard(a.classes.UpdateClass, auth.PermManageDeptClasses)).Methods("PUT", "PATCH")
	protected.Handle("/classes/{id}", guard(a.classes.DeleteClass, auth.PermManageDeptClasses)).Methods("DELETE")

	// Rooms
	protected.Handle("/rooms/import", guard(a.imports.ImportRooms, auth.PermManageRooms)).Methods("POST")
	protected.HandleFunc("/rooms", a.rooms.GetRooms).Methods("GET")
	protected.HandleFunc("/rooms/{id}", a.rooms.GetRoom).Methods("GET")
	protected.Handle("/rooms", guard(a.rooms.CreateRoom, auth.PermManageRooms)).Methods("POST")
	protected.Handle("/rooms/{id}", guard(a.rooms.UpdateRoom, auth.PermManageRooms)).Methods("PUT", "PATCH")
	protected.Handle("/rooms/{id}", guard(a.rooms.DeleteRoom, auth.PermManageRooms)).Methods("DELETE")

	// Subjects
	protected.Handle("/subjects/import", guard(a.imports.ImportSubjects, auth.PermManageDeptSubjects)).Methods("POST")
	protected.HandleFunc("/subjects", a.subjects.GetSubjects).Methods("GET")
	protected.HandleFunc("/subjects/{id}", a.subjects.GetSubject).Methods("GET")
	protected.Handle("/subjects", guard(a.subjects.CreateSubject, auth.PermManageDeptSubjects)).Methods("POST")
	protected.Handle("/subjects/{id}", guard(a.subjects.UpdateSubject, auth.PermManageDeptSubjects)).Methods("PUT", "PATCH")
	protected.Handle("/subjects/{id}", guard(a.subjects.DeleteSubject, auth.PermManageDeptSubjects)).Methods("DELETE")

	// Teachers
	protected.Handle("/teachers/import", guard(a.imports.ImportTeachers, auth.PermManageDeptTeachers)).Methods("POST")
	protected.Handle("/teachers", guard(a.teachers.GetTeachers, auth.PermManageDeptTeachers, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/teachers/{id}", guard(a.teachers.GetTeacher, auth.PermManageDeptTeachers, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/teachers", guard(a.teachers.CreateTeacher, auth.PermManageDeptTeachers)).Methods("POST")
	protected.Handle("/teachers/{id}", guard(a.teachers.UpdateTeacher, auth.PermManageDeptTeachers)).Methods("PUT", "PATCH")
	protected.Handle("/teachers/{id}", guard(a.teachers.DeleteTeacher, auth.PermManageDeptTeachers)).Methods("DELETE")
	protected.Handle("/teachers/{id}/subjects", guard(a.teachers.GetTeacherSubjects, auth.PermManageDeptTeachers, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/teachers/{id}/subjects", guard(a.teachers.SetTeacherSubjects, auth.PermManageDeptTeachers)).Methods("PUT")

	// Students
	protected.Handle("/students", guard(a.students.GetStudents, auth.PermManageDeptClasses, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/students/{id}", guard(a.students.GetStudent, auth.PermManageDeptClasses, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/students", guard(a.students.CreateStudent, auth.PermManageDeptClasses)).Methods("POST")
	protected.Handle("/students/{id}", guard(a.students.UpdateStudent, auth.PermManageDeptClasses)).Methods("PUT", "PATCH")
	protected.Handle("/students/{id}", guard(a.students.DeleteStudent, auth.PermManageDeptClasses)).Methods("DELETE")

	// Time slots
	protected.Handle("/time-slots/import", guard(a.imports.ImportTimeSlots, auth.PermCreateTimetables)).Methods("POST")
	protected.HandleFunc("/time-slots", a.timeSlots.GetTimeSlots).Methods("GET")
	protected.HandleFunc("/time-slots/{id}", a.timeSlots.GetTimeSlot).Methods("GET")
	protected.Handle("/time-slots", guard(a.timeSlots.CreateTimeSlot, auth.PermCreateTimetables)).Methods("POST")
	protected.Handle("/time-slots/{id}", guard(a.timeSlots.UpdateTimeSlot, auth.PermCreateTimetables)).Methods("PUT", "PATCH")
	protected.Handle("/time-slots/{id}", guard(a.timeSlots.DeleteTimeSlot, auth.PermCreateTimetables)).Methods("DELETE")

	// Timetable
	viewTimetable := []string{auth.PermViewDepartment, auth.PermViewSchedule, auth.PermViewClasses, auth.PermViewClassSchedule}
	editTimetable := []string{auth.PermCreateTimetables, auth.PermEditTimetables}
	protected.Handle("/timetable/generate", guard(a.timetable.Generate, auth.PermCreateTimetables)).Methods("POST")
	protected.Handle("/timetable/preview", guard(a.timetable.Preview, auth.PermCreateTimetables)).Methods("POST")
	protected.Handle("/timetable/validate", guard(a.timetable.Validate, editTimetable...)).Methods("POST")
	protected.Handle("/timetable/entries", guard(a.timetable.GetEntries, viewTimetable...)).Methods("GET")
	protected.Handle("/timetable/entries", guard(a.timetable.DeleteEntries, editTimetable...)).Methods("DELETE")
	protected.Handle("/timetable/classes/{id}", guard(a.timetable.GetClassTimetable, viewTimetable...)).Methods("GET")
	protected.Handle("/timetable/conflicts", guard(a.timetable.GetConflicts, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/timetable/runs", guard(a.timetable.GetRuns, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/timetable/last", guard(a.timetable.GetLast, auth.PermViewDepartment)).Methods("GET")
	protected.Handle("/timetable/export", guard(a.timetable.Export, viewTimetable...)).Methods("GET")

	// Portals
	protected.Handle("/me/schedule", guard(a.portal.MySchedule, auth.PermViewSchedule)).Methods("GET")
	protected.Handle("/me/timetable", guard(a.portal.MyTimetable, auth.PermViewClassSchedule)).Methods("GET")
	protected.Handle("/dashboard/stats", guard(a.portal.Stats, auth.PermViewDepartment)).Methods("GET")

	r.HandleFunc("/", rootHandler).Methods("GET")
	r.HandleFunc("/health", a.health.Health).Methods("GET")

	// Preflight for any path; CORS middleware writes the headers.
	r.Methods("OPTIONS").HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func rootHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	html := `
<!DOCTYPE html>
<html>
<head>
    <title>Timetable Backend API</title>
    <style>
        body { font-family: Arial, sans-serif; margin: 2rem; background: #f4f5f7; }
        .container { background: white; padding: 2rem; border-radius: 10px; max-width: 720px; margin: auto; }
        .status { background: #4CAF50; color: white; padding: 0.4rem 1rem; border-radius: 20px; display: inline-block; }
        code { background: #f1f3f4; padding: 0 4px; }
    </style>
</head>
<body>
    <div class="container">
        <h1>🗓️ Timetable Backend API</h1>
        <div class="status">✅ Server is running</div>
        <p><strong>Auth:</strong> <code>POST /api/auth/login</code>, <code>POST /api/auth/register</code>, <code>GET /api/auth/me</code></p>
        <p><strong>Reference data:</strong> <code>/api/departments</code>, <code>/api/classes</code>, <code>/api/rooms</code>,
            <code>/api/subjects</code>, <code>/api/teachers</code>, <code>/api/students</code>, <code>/api/time-slots</code>
            (each with <code>POST .../import</code> for xlsx uploads where applicable)</p>
        <p><strong>Timetable:</strong> <code>POST /api/timetable/generate</code>, <code>POST /api/timetable/preview</code>,
            <code>GET /api/timetable/entries</code>, <code>GET /api/timetable/classes/{id}</code>, <code>GET /api/timetable/export</code></p>
        <p><strong>Portals:</strong> <code>GET /api/me/schedule</code>, <code>GET /api/me/timetable</code>, <code>GET /api/dashboard/stats</code></p>
    </div>
</body>
</html>`
	w.Write([]byte(html))
}
