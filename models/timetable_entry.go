package models

import (
	"time"

	"gorm.io/datatypes"
)

// TimetableEntry is one scheduled lesson. (class_id, time_slot_id) is unique.
type TimetableEntry struct {
	ID           uint      `json:"id" gorm:"primaryKey;autoIncrement"`
	ClassID      uint      `json:"class_id" gorm:"not null;uniqueIndex:idx_entry_class_slot"`
	TimeSlotID   uint      `json:"time_slot_id" gorm:"not null;uniqueIndex:idx_entry_class_slot;index"`
	SubjectID    uint      `json:"subject_id" gorm:"not null"`
	TeacherID    uint      `json:"teacher_id" gorm:"not null;index"`
	RoomID       uint      `json:"room_id" gorm:"not null;index"`
	Type         string    `json:"type" gorm:"size:20;default:THEORY"`
	DepartmentID *uint     `json:"department_id,omitempty" gorm:"index"`
	TimeSlot     *TimeSlot `json:"time_slot,omitempty" gorm:"foreignKey:TimeSlotID"`
	CreatedAt    time.Time `json:"created_at"`

	Class   *Class          `json:"-" gorm:"foreignKey:ClassID;constraint:OnDelete:CASCADE"`
	Subject *Subject        `json:"-" gorm:"foreignKey:SubjectID"`
	Teacher *TeacherProfile `json:"-" gorm:"foreignKey:TeacherID"`
	Room    *Room           `json:"-" gorm:"foreignKey:RoomID"`
}

func (TimetableEntry) TableName() string {
	return "timetable_entries"
}

// Generation run statuses
const (
	RunSucceeded = "succeeded"
	RunEmpty     = "empty"
	RunRejected  = "rejected"
	RunFailed    = "failed"
)

// GenerationRun keeps the audit trail of each solver call.
type GenerationRun struct {
	ID           string         `json:"id" gorm:"type:uuid;primaryKey"`
	DepartmentID *uint          `json:"department_id,omitempty" gorm:"index"`
	Mode         string         `json:"mode" gorm:"size:20"`
	Status       string         `json:"status" gorm:"size:20;index"`
	RowsMapped   int            `json:"rows_mapped"`
	RowsInserted int            `json:"rows_inserted"`
	Skipped      int            `json:"skipped"`
	Conflicts    int            `json:"conflicts"`
	Request      datatypes.JSON `json:"request,omitempty" gorm:"type:jsonb"`
	Response     datatypes.JSON `json:"response,omitempty" gorm:"type:jsonb"`
	Error        string         `json:"error,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

func (GenerationRun) TableName() string {
	return "generation_runs"
}
