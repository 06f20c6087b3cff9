package models

import "time"

type StudentProfile struct {
	ID         uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	UserID     *uint     `json:"user_id,omitempty" gorm:"unique"`
	FirstName  string    `json:"first_name" gorm:"size:100"`
	LastName   string    `json:"last_name" gorm:"size:100"`
	Phone      string    `json:"phone_number,omitempty" gorm:"column:phone_number;size:20"`
	Semester   *int      `json:"semester,omitempty"`
	RollNumber *string   `json:"roll_number,omitempty" gorm:"unique;size:50"`
	ClassID    *uint     `json:"class_id,omitempty" gorm:"index"`
	Class      *Class    `json:"class,omitempty" gorm:"foreignKey:ClassID"`
	Bio        string    `json:"bio,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

func (StudentProfile) TableName() string {
	return "student_profile"
}

type StudentRequest struct {
	FirstName  string  `json:"first_name" validate:"required,max=100"`
	LastName   string  `json:"last_name" validate:"required,max=100"`
	Phone      string  `json:"phone_number" validate:"omitempty,max=20"`
	Semester   *int    `json:"semester" validate:"omitempty,min=1,max=12"`
	RollNumber *string `json:"roll_number" validate:"omitempty,max=50"`
	ClassID    *uint   `json:"class_id"`
	Bio        string  `json:"bio"`
}

func (r StudentRequest) Apply(s *StudentProfile) {
	s.FirstName = r.FirstName
	s.LastName = r.LastName
	s.Phone = r.Phone
	s.Semester = r.Semester
	s.RollNumber = r.RollNumber
	s.ClassID = r.ClassID
	s.Bio = r.Bio
}
