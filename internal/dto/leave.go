package dto

// ── 请假模块 DTO ──

// SubmitLeaveRequest 提交请假申请
// 字段合法性由 Service 层统一校验，以便返回具体出错字段
type SubmitLeaveRequest struct {
	FromDate string `json:"from_date"`
	ToDate   string `json:"to_date"`
	Reason   string `json:"reason"`
}

// DecideLeaveRequest 审批请假申请
type DecideLeaveRequest struct {
	Action  string `json:"action"` // approve | reject
	Comment string `json:"comment"`
}

// LeaveListRequest 管理员列表查询参数
type LeaveListRequest struct {
	Status string `form:"status" binding:"omitempty,oneof=pending approved rejected"`
}

// ── 请假模块响应 ──

// LeaveResponse 请假申请响应
type LeaveResponse struct {
	ID            string         `json:"id"`
	UserID        string         `json:"user_id"`
	FromDate      string         `json:"from_date"`
	ToDate        string         `json:"to_date"`
	Days          int            `json:"days"`
	Reason        string         `json:"reason"`
	Status        string         `json:"status"`
	AdminComments string         `json:"admin_comments"`
	AppliedAt     string         `json:"applied_at"`
	UpdatedAt     string         `json:"updated_at"`
	Owner         *OwnerResponse `json:"owner,omitempty"`
}

// OwnerResponse 申请人简要信息（管理员视图）
type OwnerResponse struct {
	Username string `json:"username"`
	Email    string `json:"email"`
}

// StatusCounts 各状态数量
type StatusCounts struct {
	Pending  int64 `json:"pending"`
	Approved int64 `json:"approved"`
	Rejected int64 `json:"rejected"`
	Total    int64 `json:"total"`
}

// LeaveDashboardResponse 首页概览
type LeaveDashboardResponse struct {
	Counts StatusCounts    `json:"counts"`
	Recent []LeaveResponse `json:"recent"`
}
