package models

import "time"

type Department struct {
	ID        uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	Name      string    `json:"name" gorm:"unique;not null;size:200"`
	CreatedAt time.Time `json:"created_at"`
}

func (Department) TableName() string {
	return "department"
}

type DepartmentRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}
