package models

import "time"

// AttendanceDateLayout is the calendar-day format attendance is keyed on
const AttendanceDateLayout = "2006-01-02"

// TransportAttendance records whether a student rode a route on a given day.
// At most one record exists per (student, route, date).
type TransportAttendance struct {
	ID        string    `gorm:"primaryKey;type:varchar(64)" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`

	StudentID string  `gorm:"type:varchar(64);uniqueIndex:idx_transport_attendance_day,priority:1" json:"studentId"`
	RouteID   string  `gorm:"type:varchar(64);uniqueIndex:idx_transport_attendance_day,priority:2" json:"routeId"`
	Date      string  `gorm:"type:varchar(10);uniqueIndex:idx_transport_attendance_day,priority:3" json:"date"`
	BusID     *string `gorm:"type:varchar(64)" json:"busId,omitempty"`
	Present   bool    `json:"present"`
}
