package models

import (
	"time"

	"github.com/lib/pq"
)

// Hotel 酒店表
//
// CheapestPrice is entered by an administrator and is not derived from the
// prices of the hotel's rooms. Rooms lists the owned Room ids in creation
// order; it is maintained by room create/delete and ignored on hotel writes.
type Hotel struct {
	ID            string         `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id"`
	Name          string         `gorm:"type:varchar(255);not null" bson:"name" json:"name"`
	Type          string         `gorm:"type:varchar(20);index;not null" bson:"type" json:"type"`
	City          string         `gorm:"type:varchar(255);index;not null" bson:"city" json:"city"`
	Address       string         `gorm:"type:varchar(255)" bson:"address" json:"address"`
	Distance      string         `gorm:"type:varchar(255)" bson:"distance" json:"distance"`
	Title         string         `gorm:"type:varchar(255)" bson:"title" json:"title"`
	Desc          string         `gorm:"type:text" bson:"desc" json:"desc"`
	CheapestPrice int            `gorm:"type:int;index" bson:"cheapestPrice" json:"cheapestPrice"`
	Rating        float64        `gorm:"type:float" bson:"rating" json:"rating"`
	Featured      bool           `gorm:"default:false" bson:"featured" json:"featured"`
	Photos        pq.StringArray `gorm:"type:text" bson:"photos" json:"photos"`
	Rooms         []string       `gorm:"-" bson:"rooms" json:"rooms"`
	CreatedAt     time.Time      `gorm:"autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt     time.Time      `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}
