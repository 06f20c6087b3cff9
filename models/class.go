package models

import "time"

type Class struct {
	ID            uint        `json:"id" gorm:"primaryKey;autoIncrement"`
	ClassName     string      `json:"class_name" gorm:"unique;not null;size:100"`
	Semester      *int        `json:"semester,omitempty"`
	AcademicYear  string      `json:"academic_year,omitempty" gorm:"size:20"`
	Section       string      `json:"section,omitempty" gorm:"size:20"`
	StudentsCount *int        `json:"students_count,omitempty"`
	DepartmentID  *uint       `json:"department_id,omitempty" gorm:"index"`
	Department    *Department `json:"department,omitempty" gorm:"foreignKey:DepartmentID"`
	CreatedAt     time.Time   `json:"created_at"`
}

func (Class) TableName() string {
	return "classes"
}

type ClassRequest struct {
	ClassName     string `json:"class_name" validate:"required,max=100"`
	Semester      *int   `json:"semester" validate:"omitempty,min=1,max=12"`
	AcademicYear  string `json:"academic_year" validate:"omitempty,max=20"`
	Section       string `json:"section" validate:"omitempty,max=20"`
	StudentsCount *int   `json:"students_count" validate:"omitempty,min=0"`
	DepartmentID  *uint  `json:"department_id"`
}

func (r ClassRequest) Apply(c *Class) {
	c.ClassName = r.ClassName
	c.Semester = r.Semester
	c.AcademicYear = r.AcademicYear
	c.Section = r.Section
	c.StudentsCount = r.StudentsCount
	c.DepartmentID = r.DepartmentID
}
