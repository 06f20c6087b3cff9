package handlers

import (
	"log"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"timetable-backend/auth"
	"timetable-backend/middleware"
	"timetable-backend/models"
)

type AuthHandler struct {
	db         *gorm.DB
	jwtService *auth.JWTService
}

func NewAuthHandler(db *gorm.DB, jwtService *auth.JWTService) *AuthHandler {
	return &AuthHandler{
		db:         db,
		jwtService: jwtService,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.User
	if err := h.db.WithContext(r.Context()).Where("email = ?", email).First(&user).Error; err != nil {
		log.Printf("❌ User not found: %s", email)
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !auth.CheckPassword(req.Password, user.Password) {
		log.Printf("❌ Invalid password for user: %s", email)
		writeError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.jwtService.GenerateToken(&user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ User logged in successfully: %s (role: %s)", user.Email, user.Role)
	writeJSON(w, http.StatusOK, models.LoginResponse{Token: token, User: user})
}

// Register is the public sign-up: it only creates teacher and student accounts.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	if req.Role != models.RoleTeacher && req.Role != models.RoleStudent {
		writeError(w, http.StatusForbidden, "Only teacher and student accounts can self-register")
		return
	}
	h.createAccount(w, r, req)
}

// CreateUser lets user managers create accounts of any role.
func (h *AuthHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if !decodeAndValidate(w, r, &req) {
		return
	}
	h.createAccount(w, r, req)
}

func (h *AuthHandler) createAccount(w http.ResponseWriter, r *http.Request, req models.RegisterRequest) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	db := h.db.WithContext(r.Context())

	var existing models.User
	if err := db.Where("email = ?", req.Email).First(&existing).Error; err == nil {
		log.Printf("❌ User already exists: %s", req.Email)
		writeError(w, http.StatusConflict, "User with this email already exists")
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		log.Printf("❌ Error hashing password: %v", err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	user := models.User{
		Email:        req.Email,
		Password:     hashed,
		Role:         req.Role,
		DepartmentID: req.DepartmentID,
	}

	err = db.Transaction(func(tx *gorm.DB) error {
		switch req.Role {
		case models.RoleTeacher:
			teacher, err := linkTeacherProfile(tx, req)
			if err != nil {
				return err
			}
			user.TeacherID = &teacher.ID
			if user.DepartmentID == nil {
				user.DepartmentID = teacher.DepartmentID
			}
		case models.RoleStudent:
			first, last := splitName(req.Name)
			student := models.StudentProfile{FirstName: first, LastName: last}
			if err := tx.Create(&student).Error; err != nil {
				return err
			}
			user.StudentID = &student.ID
		}

		if err := tx.Create(&user).Error; err != nil {
			return err
		}

		switch {
		case user.TeacherID != nil:
			return tx.Model(&models.TeacherProfile{}).Where("id = ?", *user.TeacherID).Update("user_id", user.ID).Error
		case user.StudentID != nil:
			return tx.Model(&models.StudentProfile{}).Where("id = ?", *user.StudentID).Update("user_id", user.ID).Error
		}
		return nil
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "Account is already linked to another user")
			return
		}
		log.Printf("❌ Error creating user %s: %v", req.Email, err)
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	token, err := h.jwtService.GenerateToken(&user)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	log.Printf("✅ User registered successfully: %s (role: %s)", user.Email, user.Role)
	writeJSON(w, http.StatusCreated, models.LoginResponse{Token: token, User: user})
}

// linkTeacherProfile reuses the teacher profile with the same email, or
// creates a placeholder one with a generated emp_id.
func linkTeacherProfile(tx *gorm.DB, req models.RegisterRequest) (*models.TeacherProfile, error) {
	var teacher models.TeacherProfile
	err := tx.Where("LOWER(email) = ?", req.Email).First(&teacher).Error
	if err == nil {
		return &teacher, nil
	}
	if !isNotFound(err) {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		name = strings.SplitN(req.Email, "@", 2)[0]
	}
	first, last := splitName(name)
	teacher = models.TeacherProfile{
		EmpID:        "TMP-" + strings.ToUpper(uuid.NewString()[:8]),
		FirstName:    first,
		LastName:     last,
		Name:         name,
		Email:        req.Email,
		DepartmentID: req.DepartmentID,
	}
	if err := tx.Create(&teacher).Error; err != nil {
		return nil, err
	}
	return &teacher, nil
}

func splitName(name string) (string, string) {
	parts := strings.Fields(name)
	switch len(parts) {
	case 0:
		return "New", "User"
	case 1:
		return parts[0], ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

func (h *AuthHandler) GetCurrentUser(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetUserClaims(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "Not authenticated")
		return
	}

	var user models.User
	if err := h.db.WithContext(r.Context()).Preload("Student").Preload("Teacher").First(&user, claims.UserID).Error; err != nil {
		log.Printf("❌ Error fetching user: %v", err)
		writeError(w, http.StatusNotFound, "User not found")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"user":        user,
		"permissions": auth.Permissions(user.Role),
	})
}
