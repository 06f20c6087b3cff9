package models

// TimeSlot is one teaching period. Day is stored as text because imported data mixes
// weekday codes (MON), full names (Monday) and numeric indices.
type TimeSlot struct {
	ID           uint   `json:"id" gorm:"primaryKey;autoIncrement"`
	Day          string `json:"day" gorm:"not null;size:20;index"`
	Slot         int    `json:"slot" gorm:"not null"`
	StartTime    string `json:"start_time,omitempty" gorm:"size:16"`
	EndTime      string `json:"end_time,omitempty" gorm:"size:16"`
	Label        string `json:"label,omitempty" gorm:"size:100"`
	DepartmentID *uint  `json:"department_id,omitempty" gorm:"index"`
}

func (TimeSlot) TableName() string {
	return "time_slots"
}

type TimeSlotRequest struct {
	Day          string `json:"day" validate:"required,max=20"`
	Slot         int    `json:"slot" validate:"min=0,max=23"`
	StartTime    string `json:"start_time" validate:"omitempty,max=16"`
	EndTime      string `json:"end_time" validate:"omitempty,max=16"`
	Label        string `json:"label" validate:"omitempty,max=100"`
	DepartmentID *uint  `json:"department_id"`
}

func (r TimeSlotRequest) Apply(ts *TimeSlot) {
	ts.Day = r.Day
	ts.Slot = r.Slot
	ts.StartTime = r.StartTime
	ts.EndTime = r.EndTime
	ts.Label = r.Label
	ts.DepartmentID = r.DepartmentID
}
