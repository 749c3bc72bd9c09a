package models

import "time"

// User 用户表
type User struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" bson:"_id" json:"_id"`
	Username  string    `gorm:"type:varchar(255);uniqueIndex;not null" bson:"username" json:"username"`
	Email     string    `gorm:"type:varchar(255);uniqueIndex;not null" bson:"email" json:"email"`
	Password  string    `gorm:"type:varchar(255);not null" bson:"password" json:"-"`
	IsAdmin   bool      `gorm:"default:false" bson:"isAdmin" json:"isAdmin"`
	Country   string    `gorm:"type:varchar(255)" bson:"country,omitempty" json:"country,omitempty"`
	City      string    `gorm:"type:varchar(255)" bson:"city,omitempty" json:"city,omitempty"`
	Phone     string    `gorm:"type:varchar(50)" bson:"phone,omitempty" json:"phone,omitempty"`
	Img       string    `gorm:"type:varchar(1024)" bson:"img,omitempty" json:"img,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" bson:"createdAt" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" bson:"updatedAt" json:"updatedAt"`
}
