package models

import "time"

// Room types. The spreadsheet import uses Lecture/Lab, the schema enum the upper-case set.
const (
	RoomTypeLecture   = "Lecture"
	RoomTypeLab       = "Lab"
	RoomTypeClassroom = "CLASSROOM"
	RoomTypeLabUpper  = "LAB"
	RoomTypeSeminar   = "SEMINAR"
	RoomTypeOther     = "OTHER"
)

var RoomTypes = []string{RoomTypeLecture, RoomTypeLab}

type Room struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	RoomNumber   string    `json:"room_number" gorm:"unique;not null;size:50"`
	Name         string    `json:"name,omitempty" gorm:"size:100"`
	RoomType     string    `json:"room_type,omitempty" gorm:"size:20"`
	Capacity     *int      `json:"capacity,omitempty"`
	DepartmentID *uint     `json:"department_id,omitempty" gorm:"index"`
	CreatedAt    time.Time `json:"created_at"`
}

func (Room) TableName() string {
	return "room"
}

type RoomRequest struct {
	RoomNumber   string `json:"room_number" validate:"required,max=50"`
	Name         string `json:"name" validate:"omitempty,max=100"`
	RoomType     string `json:"room_type" validate:"omitempty,oneof=Lecture Lab CLASSROOM LAB SEMINAR OTHER"`
	Capacity     *int   `json:"capacity" validate:"omitempty,min=1"`
	DepartmentID *uint  `json:"department_id"`
}

func (r RoomRequest) Apply(room *Room) {
	room.RoomNumber = r.RoomNumber
	room.Name = r.Name
	room.RoomType = r.RoomType
	room.Capacity = r.Capacity
	room.DepartmentID = r.DepartmentID
}
