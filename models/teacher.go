package models

import (
	"time"
)

type TeacherProfile struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID       *uint     `json:"user_id,omitempty" gorm:"unique"`
	EmpID        string    `json:"emp_id" gorm:"unique;not null;size:50"`
	FirstName    string    `json:"first_name,omitempty" gorm:"size:100"`
	LastName     string    `json:"last_name,omitempty" gorm:"size:100"`
	Name         string    `json:"name" gorm:"size:200;index"`
	Email        string    `json:"email" gorm:"unique;not null;size:255"`
	Phone        *string   `json:"phone,omitempty" gorm:"unique;size:20"`
	Designation  string    `json:"designation,omitempty" gorm:"size:100"`
	MaxHours     *int      `json:"max_hours,omitempty"`
	Bio          string    `json:"bio,omitempty"`
	DepartmentID *uint     `json:"department_id,omitempty" gorm:"index"`
	Subjects     []Subject `json:"subjects,omitempty" gorm:"many2many:teacher_subjects;joinForeignKey:TeacherID;joinReferences:SubjectID"`
	CreatedAt    time.Time `json:"created_at"`
}

func (TeacherProfile) TableName() string {
	return "teacher_profile"
}

// TeacherSubject links a teacher to a subject they can teach.
type TeacherSubject struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	TeacherID uint      `json:"teacher_id" gorm:"not null;uniqueIndex:idx_teacher_subject"`
	SubjectID uint      `json:"subject_id" gorm:"not null;uniqueIndex:idx_teacher_subject"`
	CreatedAt time.Time `json:"created_at"`
}

func (TeacherSubject) TableName() string {
	return "teacher_subjects"
}

type TeacherRequest struct {
	EmpID        string  `json:"emp_id" validate:"required,max=50"`
	FirstName    string  `json:"first_name" validate:"omitempty,max=100"`
	LastName     string  `json:"last_name" validate:"omitempty,max=100"`
	Name         string  `json:"name" validate:"required,max=200"`
	Email        string  `json:"email" validate:"required,email"`
	Phone        *string `json:"phone" validate:"omitempty,max=20"`
	Designation  string  `json:"designation" validate:"omitempty,max=100"`
	MaxHours     *int    `json:"max_hours" validate:"omitempty,min=0,max=60"`
	Bio          string  `json:"bio"`
	DepartmentID *uint   `json:"department_id"`
}

func (r TeacherRequest) Apply(t *TeacherProfile) {
	t.EmpID = r.EmpID
	t.FirstName = r.FirstName
	t.LastName = r.LastName
	t.Name = r.Name
	t.Email = r.Email
	t.Phone = r.Phone
	t.Designation = r.Designation
	t.MaxHours = r.MaxHours
	t.Bio = r.Bio
	t.DepartmentID = r.DepartmentID
}

type TeacherSubjectsRequest struct {
	SubjectIDs []uint `json:"subject_ids" validate:"dive,min=1"`
}
