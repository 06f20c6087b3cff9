package models

import "time"

// Subject and session types as stored in the database.
const (
	SubjectTheory   = "THEORY"
	SubjectLab      = "LAB"
	SubjectTutorial = "TUTORIAL"
	SubjectElective = "ELECTIVE"
)

type Subject struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	SubjectName  string    `json:"subject_name" gorm:"unique;not null;size:200"`
	SubjectCode  string    `json:"subject_code" gorm:"unique;not null;size:50"`
	Semester     *int      `json:"semester,omitempty"`
	Type         string    `json:"type,omitempty" gorm:"size:20;default:THEORY"`
	Credits      *int      `json:"credits,omitempty"`
	HoursPerWeek *int      `json:"hours_per_week,omitempty"`
	DepartmentID *uint     `json:"department_id,omitempty" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Subject) TableName() string {
	return "subjects"
}

type SubjectRequest struct {
	SubjectName  string `json:"subject_name" validate:"required,max=200"`
	SubjectCode  string `json:"subject_code" validate:"required,max=50"`
	Semester     *int   `json:"semester" validate:"omitempty,min=1,max=12"`
	Type         string `json:"type" validate:"omitempty"`
	Credits      *int   `json:"credits" validate:"omitempty,min=0,max=30"`
	HoursPerWeek *int   `json:"hours_per_week" validate:"omitempty,min=0,max=40"`
	DepartmentID *uint  `json:"department_id"`
}

func (r SubjectRequest) Apply(s *Subject) {
	s.SubjectName = r.SubjectName
	s.SubjectCode = r.SubjectCode
	s.Semester = r.Semester
	s.Type = r.Type
	s.Credits = r.Credits
	s.HoursPerWeek = r.HoursPerWeek
	s.DepartmentID = r.DepartmentID
}
