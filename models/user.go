package models

import (
	"time"

	"gorm.io/gorm"
)

// User roles
const (
	RoleAdmin       = "admin"
	RoleHOD         = "hod"
	RoleCoordinator = "coordinator"
	RoleTeacher     = "teacher"
	RoleStudent     = "student"
)

type User struct {
	ID           uint            `json:"id" gorm:"primaryKey;autoIncrement"`
	Email        string          `json:"email" gorm:"unique;not null;size:255"`
	Password     string          `json:"-" gorm:"not null;size:255"`
	Role         string          `json:"role" gorm:"not null;size:50;index"`
	DepartmentID *uint           `json:"department_id,omitempty"`
	TeacherID    *uint           `json:"teacher_id,omitempty" gorm:"unique"`
	StudentID    *uint           `json:"student_id,omitempty" gorm:"unique"`
	Teacher      *TeacherProfile `json:"teacher,omitempty" gorm:"foreignKey:TeacherID"`
	Student      *StudentProfile `json:"student,omitempty" gorm:"foreignKey:StudentID"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at"`
	DeletedAt    gorm.DeletedAt  `json:"-" gorm:"index"`
}

func (User) TableName() string {
	return "users"
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6"`
}

type LoginResponse struct {
	Token string `json:"token"`
	User  User   `json:"user"`
}

type RegisterRequest struct {
	Email        string `json:"email" validate:"required,email"`
	Password     string `json:"password" validate:"required,min=6"`
	Role         string `json:"role" validate:"required,oneof=admin hod coordinator teacher student"`
	Name         string `json:"name" validate:"omitempty,max=200"`
	DepartmentID *uint  `json:"department_id"`
}
