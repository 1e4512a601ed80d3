package model

import "time"

// 账号角色
const (
	RoleStudent = "student"
	RoleAdmin   = "admin"
)

// User 账号表 — 对应 users
// 账号创建后不可修改、不可删除；角色在创建时确定
type User struct {
	UserID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"user_id"`
	Username     string    `gorm:"type:varchar(255);not null;uniqueIndex"          json:"username"`
	Email        string    `gorm:"type:varchar(255);not null;uniqueIndex"          json:"email"`
	PasswordHash string    `gorm:"type:varchar(255);not null"                      json:"-"`
	Role         string    `gorm:"type:varchar(20);not null;default:'student'"     json:"role"` // student | admin
	CreatedAt    time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"              json:"created_at"`
}

// TableName 指定表名
func (User) TableName() string { return "users" }
