package models

import (
	"time"
)

const (
	RoleDataEntry = 1
	RoleAnalyst   = 2
	RoleAdmin     = 3
)

// SystemUserEmail is the fallback account used for CLI and queue-triggered
// imports where no authenticated user is available.
const SystemUserEmail = "system@court-returns.local"

type User struct {
	UserID    int        `gorm:"primaryKey;autoIncrement;column:user_id" json:"user_id"`
	FirstName string     `gorm:"column:first_name" json:"first_name"`
	LastName  string     `gorm:"column:last_name" json:"last_name"`
	Email     string     `gorm:"column:email;unique" json:"email"`
	Password  string     `gorm:"column:password" json:"-"`
	RoleID    int        `gorm:"column:role_id;not null;default:1" json:"role_id"`
	IsActive  bool       `gorm:"column:is_active;not null;default:true" json:"is_active"`
	CreateAt  *time.Time `gorm:"column:create_at;autoCreateTime" json:"create_at"`
	UpdateAt  *time.Time `gorm:"column:update_at;autoUpdateTime" json:"update_at"`
	DeleteAt  *time.Time `gorm:"column:delete_at" json:"delete_at,omitempty"`
}

func (User) TableName() string {
	return "users"
}

func (u *User) FullName() string {
	if u.LastName == "" {
		return u.FirstName
	}
	return u.FirstName + " " + u.LastName
}
