package handler

import (
	"errors"
	"net/http"
	"net/url"

	"github.com/gin-gonic/gin"

	"leave-tracker/internal/dto"
	"leave-tracker/internal/service"
	"leave-tracker/pkg/response"
)

const (
	xlsxContentType     = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	calendarContentType = "text/calendar; charset=utf-8"
)

// LeaveHandler 请假模块 HTTP 处理器
type LeaveHandler struct {
	leaveSvc  service.LeaveService
	exportSvc service.ExportService
}

// NewLeaveHandler 创建 LeaveHandler
func NewLeaveHandler(leaveSvc service.LeaveService, exportSvc service.ExportService) *LeaveHandler {
	return &LeaveHandler{leaveSvc: leaveSvc, exportSvc: exportSvc}
}

// ── 学生 ──

// Submit 提交请假申请
// POST /api/v1/leaves
func (h *LeaveHandler) Submit(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.SubmitLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.leaveSvc.Submit(c.Request.Context(), identity, &req)
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	response.Created(c, result)
}

// ListMine 本人请假记录
// GET /api/v1/leaves
func (h *LeaveHandler) ListMine(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.leaveSvc.ListForOwner(c.Request.Context(), identity)
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	response.OK(c, result)
}

// Dashboard 首页概览（学生与管理员共用）
// GET /api/v1/leaves/dashboard
// GET /api/v1/admin/leaves/dashboard
func (h *LeaveHandler) Dashboard(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	result, err := h.leaveSvc.Dashboard(c.Request.Context(), identity)
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	response.OK(c, result)
}

// Calendar 已批准请假的 iCalendar 订阅
// GET /api/v1/leaves/calendar.ics
func (h *LeaveHandler) Calendar(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	body, err := h.exportSvc.ExportCalendar(c.Request.Context(), identity)
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="leaves.ics"`)
	c.Data(http.StatusOK, calendarContentType, []byte(body))
}

// ── 管理员 ──

// AdminList 全部请假记录
// GET /api/v1/admin/leaves?status=pending
func (h *LeaveHandler) AdminList(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.LeaveListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		response.InvalidField(c, "status", "状态必须为 pending、approved 或 rejected")
		return
	}

	result, err := h.leaveSvc.ListAll(c.Request.Context(), identity, req.Status)
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	response.OK(c, result)
}

// Decide 审批请假申请
// POST /api/v1/admin/leaves/:id/decision
func (h *LeaveHandler) Decide(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	var req dto.DecideLeaveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.leaveSvc.Decide(c.Request.Context(), identity, c.Param("id"), &req)
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	response.OK(c, result)
}

// Export 导出请假记录为 Excel
// GET /api/v1/admin/leaves/export?status=approved
func (h *LeaveHandler) Export(c *gin.Context) {
	identity, ok := MustGetIdentity(c)
	if !ok {
		return
	}

	buf, filename, err := h.exportSvc.ExportLeaves(c.Request.Context(), identity, c.Query("status"))
	if err != nil {
		handleLeaveError(c, err)
		return
	}

	c.Header("Content-Description", "File Transfer")
	c.Header("Content-Disposition", "attachment; filename*=UTF-8''"+url.QueryEscape(filename))
	c.Data(http.StatusOK, xlsxContentType, buf.Bytes())
}

func handleLeaveError(c *gin.Context, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		response.InvalidField(c, ve.Field, ve.Detail)
	case errors.Is(err, service.ErrUnauthenticated):
		response.Unauthorized(c, 10002, "未认证")
	case errors.Is(err, service.ErrUnauthorized):
		response.Forbidden(c, 10003, service.ErrUnauthorized.Error())
	case errors.Is(err, service.ErrLeaveNotFound):
		response.NotFound(c, 12001, "请假申请不存在")
	case errors.Is(err, service.ErrAlreadyDecided):
		response.Conflict(c, 12002, "该申请已审批，不能重复处理")
	case errors.Is(err, service.ErrInvalidAction):
		response.BadRequest(c, 12003, "审批操作必须为 approve 或 reject")
	case errors.Is(err, service.ErrStoreUnavailable):
		response.StoreUnavailable(c)
	default:
		response.InternalError(c)
	}
}
