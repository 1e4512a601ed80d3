package model

import "time"

// 请假申请状态：pending 为初始态，approved / rejected 为终态
const (
	LeaveStatusPending  = "pending"
	LeaveStatusApproved = "approved"
	LeaveStatusRejected = "rejected"
)

// Leave 请假申请表 — 对应 leaves
type Leave struct {
	LeaveID       string    `gorm:"type:uuid;primaryKey;default:gen_random_uuid()" json:"leave_id"`
	UserID        string    `gorm:"type:uuid;not null;index"                       json:"user_id"`
	FromDate      Date      `gorm:"type:date;not null"                             json:"from_date"`
	ToDate        Date      `gorm:"type:date;not null"                             json:"to_date"`
	Reason        string    `gorm:"type:text;not null"                             json:"reason"`
	Status        string    `gorm:"type:varchar(20);not null;default:'pending'"    json:"status"` // pending | approved | rejected
	AdminComments *string   `gorm:"type:text"                                      json:"admin_comments,omitempty"`
	AppliedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"applied_at"`
	UpdatedAt     time.Time `gorm:"not null;default:CURRENT_TIMESTAMP"             json:"updated_at"`

	// 关联
	User *User `gorm:"foreignKey:UserID;references:UserID" json:"user,omitempty"`
}

// TableName 指定表名
func (Leave) TableName() string { return "leaves" }

// IsTerminal 是否已处于终态（已审批或已驳回）
func (l *Leave) IsTerminal() bool {
	return l.Status == LeaveStatusApproved || l.Status == LeaveStatusRejected
}
