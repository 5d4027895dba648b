package models

// Student is a read-only directory entry owned by the wider school system
type Student struct {
	ID        string `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name      string `gorm:"type:varchar(255)" json:"name"`
	ClassName string `gorm:"type:varchar(100)" json:"className,omitempty"`
}

// Route is a read-only transport route directory entry
type Route struct {
	ID    string  `gorm:"primaryKey;type:varchar(64)" json:"id"`
	Name  string  `gorm:"type:varchar(255)" json:"name"`
	BusID *string `gorm:"type:varchar(64)" json:"busId,omitempty"`
}
