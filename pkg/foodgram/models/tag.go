package models

// Tag labels recipes. Name, color and slug are each unique.
type Tag struct {
	ID    uint   `gorm:"primarykey" json:"id"`
	Name  string `gorm:"size:200;uniqueIndex;not null" json:"name"`
	Color string `gorm:"size:7;uniqueIndex;not null;default:'#F29C1B'" json:"color"`
	Slug  string `gorm:"size:50;uniqueIndex;not null" json:"slug"`
}
