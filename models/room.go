package models

import (
	"encoding/json"
	"time"
)

// DateLayout is the storage format of an occupied night.
const DateLayout = "2006-01-02"

// 房间表
type Room struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id"`
	HotelID     string     `gorm:"type:varchar(36);index;not null" bson:"hotelId" json:"hotelId"`
	Title       string     `gorm:"type:varchar(255);not null" bson:"title" json:"title"`
	Price       int        `gorm:"type:int;not null" bson:"price" json:"price"`
	MaxPeople   int        `gorm:"type:int;not null" bson:"maxPeople" json:"maxPeople"`
	Desc        string     `gorm:"type:text" bson:"desc" json:"desc"`
	RoomNumbers []RoomUnit `gorm:"foreignKey:RoomID" bson:"roomNumbers" json:"roomNumbers"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt   time.Time  `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}

// RoomUnit is one physically bookable instance of a Room, e.g. room 101.
type RoomUnit struct {
	ID               string     `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id"`
	RoomID           string     `gorm:"type:varchar(36);uniqueIndex:idx_room_number;not null" bson:"-" json:"-"`
	Number           int        `gorm:"type:int;uniqueIndex:idx_room_number;not null" bson:"number" json:"number"`
	UnavailableDates []UnitDate `gorm:"foreignKey:RoomUnitID" bson:"unavailableDates" json:"unavailableDates"`
}

// UnitDate 已占用日期
//
// One occupied night of a RoomUnit. The (unit, date) pair is unique.
type UnitDate struct {
	ID         uint   `gorm:"primaryKey;autoIncrement" bson:"-" json:"-"`
	RoomUnitID string `gorm:"type:varchar(36);uniqueIndex:idx_unit_date;not null" bson:"-" json:"-"`
	Date       string `gorm:"type:varchar(10);uniqueIndex:idx_unit_date;not null" bson:"date" json:"date"`
}

// Time returns the night as UTC midnight. A malformed value yields the zero time.
func (d UnitDate) Time() time.Time {
	t, _ := time.Parse(DateLayout, d.Date)
	return t
}

// MarshalJSON renders the date as a bare string.
func (d UnitDate) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Date)
}

// UnmarshalJSON accepts a bare string.
func (d *UnitDate) UnmarshalJSON(b []byte) error {
	return json.Unmarshal(b, &d.Date)
}
