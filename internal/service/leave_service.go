package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"leave-tracker/internal/dto"
	"leave-tracker/internal/model"
	"leave-tracker/internal/repository"
	pkgerrors "leave-tracker/pkg/errors"
)

// 审批动作
const (
	ActionApprove = "approve"
	ActionReject  = "reject"
)

// dashboardRecentLimit 首页展示的最近申请条数
const dashboardRecentLimit = 5

const secondsPerDay = 24 * 60 * 60

var actionStatus = map[string]string{
	ActionApprove: model.LeaveStatusApproved,
	ActionReject:  model.LeaveStatusRejected,
}

// LeaveService 请假流程业务接口
//
// 状态机：pending → approved | rejected，两个终态均不可再变更。
// 所有操作显式接收调用者身份，并在业务层再次校验角色。
type LeaveService interface {
	// Submit 学生提交请假申请
	Submit(ctx context.Context, caller *Identity, req *dto.SubmitLeaveRequest) (*dto.LeaveResponse, error)
	// ListForOwner 学生查看本人全部申请（提交时间倒序）
	ListForOwner(ctx context.Context, caller *Identity) ([]dto.LeaveResponse, error)
	// ListAll 管理员查看全部申请（含申请人用户名与邮箱，提交时间倒序）
	ListAll(ctx context.Context, caller *Identity, status string) ([]dto.LeaveResponse, error)
	// Decide 管理员审批；仅 pending 状态可审批
	Decide(ctx context.Context, caller *Identity, leaveID string, req *dto.DecideLeaveRequest) (*dto.LeaveResponse, error)
	// Dashboard 首页概览：学生为本人数据，管理员为全局数据
	Dashboard(ctx context.Context, caller *Identity) (*dto.LeaveDashboardResponse, error)
}

type leaveService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewLeaveService 创建 LeaveService 实例
// loc 决定"今天"的日历日期
func NewLeaveService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) LeaveService {
	return &leaveService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// today 业务时区下的当前日期
func (s *leaveService) today() model.Date {
	return model.NewDate(s.now().In(s.loc))
}

// ────────────────────── Submit ──────────────────────

func (s *leaveService) Submit(ctx context.Context, caller *Identity, req *dto.SubmitLeaveRequest) (*dto.LeaveResponse, error) {
	if err := caller.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}

	from, err := model.ParseDate(req.FromDate)
	if err != nil {
		return nil, invalid("from_date", "日期格式无效，应为 YYYY-MM-DD")
	}
	to, err := model.ParseDate(req.ToDate)
	if err != nil {
		return nil, invalid("to_date", "日期格式无效，应为 YYYY-MM-DD")
	}
	if from.After(to.Time) {
		return nil, invalid("to_date", "结束日期不能早于开始日期")
	}
	if from.Before(s.today().Time) {
		return nil, invalid("from_date", "开始日期不能早于今天")
	}
	reason := strings.TrimSpace(req.Reason)
	if reason == "" {
		return nil, invalid("reason", "请假事由不能为空")
	}

	now := s.now().UTC()
	leave := &model.Leave{
		UserID:    caller.UserID,
		FromDate:  from,
		ToDate:    to,
		Reason:    reason,
		Status:    model.LeaveStatusPending,
		AppliedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Leave.Create(ctx, leave); err != nil {
		s.logger.Error("创建请假申请失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, storeError(err)
	}

	s.logger.Info("请假申请已提交",
		zap.String("leave_id", leave.LeaveID),
		zap.String("user_id", caller.UserID),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
	return toLeaveResponse(leave), nil
}

// ────────────────────── ListForOwner ──────────────────────

func (s *leaveService) ListForOwner(ctx context.Context, caller *Identity) ([]dto.LeaveResponse, error) {
	if err := caller.requireRole(model.RoleStudent); err != nil {
		return nil, err
	}

	leaves, err := s.repo.Leave.ListByOwner(ctx, caller.UserID, 0)
	if err != nil {
		s.logger.Error("查询本人请假记录失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, storeError(err)
	}
	return toLeaveResponses(leaves), nil
}

// ────────────────────── ListAll ──────────────────────

func (s *leaveService) ListAll(ctx context.Context, caller *Identity, status string) ([]dto.LeaveResponse, error) {
	if err := caller.requireRole(model.RoleAdmin); err != nil {
		return nil, err
	}
	if status != "" && !isLeaveStatus(status) {
		return nil, invalid("status", "状态必须为 pending、approved 或 rejected")
	}

	leaves, err := s.repo.Leave.ListAll(ctx, status, 0)
	if err != nil {
		s.logger.Error("查询全部请假记录失败", zap.Error(err))
		return nil, storeError(err)
	}
	return toLeaveResponses(leaves), nil
}

// ────────────────────── Decide ──────────────────────

func (s *leaveService) Decide(ctx context.Context, caller *Identity, leaveID string, req *dto.DecideLeaveRequest) (*dto.LeaveResponse, error) {
	if err := caller.requireRole(model.RoleAdmin); err != nil {
		return nil, err
	}

	status, ok := actionStatus[strings.ToLower(strings.TrimSpace(req.Action))]
	if !ok {
		return nil, ErrInvalidAction
	}
	if _, err := uuid.Parse(leaveID); err != nil {
		return nil, ErrLeaveNotFound
	}

	comment := strings.TrimSpace(req.Comment)
	now := s.now().UTC()

	var decided *model.Leave
	err := s.repo.Transaction(ctx, func(tx *repository.Repository) error {
		if err := tx.Leave.Decide(ctx, leaveID, status, comment, now); err != nil {
			if !errors.Is(err, pkgerrors.ErrStatusConflict) {
				return storeError(err)
			}
			// 条件更新未命中：区分记录不存在与已审批
			current, getErr := tx.Leave.GetByID(ctx, leaveID)
			if getErr != nil {
				if errors.Is(getErr, gorm.ErrRecordNotFound) {
					return ErrLeaveNotFound
				}
				return storeError(getErr)
			}
			if !current.IsTerminal() {
				return storeError(err)
			}
			return ErrAlreadyDecided
		}

		leave, err := tx.Leave.GetByID(ctx, leaveID)
		if err != nil {
			return storeError(err)
		}
		decided = leave
		return nil
	})
	if err != nil {
		if errors.Is(err, ErrLeaveNotFound) || errors.Is(err, ErrAlreadyDecided) {
			return nil, err
		}
		s.logger.Error("审批请假申请失败", zap.String("leave_id", leaveID), zap.Error(err))
		if !errors.Is(err, ErrStoreUnavailable) {
			err = storeError(err)
		}
		return nil, err
	}

	s.logger.Info("请假申请已审批",
		zap.String("leave_id", leaveID),
		zap.String("status", status),
		zap.String("admin_id", caller.UserID),
	)
	return toLeaveResponse(decided), nil
}

// ────────────────────── Dashboard ──────────────────────

func (s *leaveService) Dashboard(ctx context.Context, caller *Identity) (*dto.LeaveDashboardResponse, error) {
	if caller == nil || caller.UserID == "" {
		return nil, ErrUnauthenticated
	}

	var (
		ownerID string
		recent  []model.Leave
		err     error
	)
	switch caller.Role {
	case model.RoleStudent:
		ownerID = caller.UserID
		recent, err = s.repo.Leave.ListByOwner(ctx, caller.UserID, dashboardRecentLimit)
	case model.RoleAdmin:
		recent, err = s.repo.Leave.ListAll(ctx, model.LeaveStatusPending, dashboardRecentLimit)
	default:
		return nil, ErrUnauthorized
	}
	if err != nil {
		s.logger.Error("查询最近请假记录失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, storeError(err)
	}

	counts, err := s.repo.Leave.CountByStatus(ctx, ownerID)
	if err != nil {
		s.logger.Error("统计请假记录失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return nil, storeError(err)
	}

	return &dto.LeaveDashboardResponse{
		Counts: dto.StatusCounts{
			Pending:  counts[model.LeaveStatusPending],
			Approved: counts[model.LeaveStatusApproved],
			Rejected: counts[model.LeaveStatusRejected],
			Total:    counts[model.LeaveStatusPending] + counts[model.LeaveStatusApproved] + counts[model.LeaveStatusRejected],
		},
		Recent: toLeaveResponses(recent),
	}, nil
}

// ── 展示辅助 ──

// InclusiveDayCount 计算首尾都计入的请假天数。
// 日期无法解析时返回 1，展示层不因格式问题报错。
func InclusiveDayCount(fromDate, toDate string) int {
	from, err := model.ParseDate(fromDate)
	if err != nil {
		return 1
	}
	to, err := model.ParseDate(toDate)
	if err != nil {
		return 1
	}
	return dayCount(from, to)
}

// dayCount 两个日期均为 UTC 零点，按秒差计算，不经过 time.Duration（约 292 年即溢出）
func dayCount(from, to model.Date) int {
	return int((to.Unix()-from.Unix())/secondsPerDay) + 1
}

func isLeaveStatus(status string) bool {
	switch status {
	case model.LeaveStatusPending, model.LeaveStatusApproved, model.LeaveStatusRejected:
		return true
	}
	return false
}

func toLeaveResponse(l *model.Leave) *dto.LeaveResponse {
	resp := &dto.LeaveResponse{
		ID:        l.LeaveID,
		UserID:    l.UserID,
		FromDate:  l.FromDate.String(),
		ToDate:    l.ToDate.String(),
		Days:      dayCount(l.FromDate, l.ToDate),
		Reason:    l.Reason,
		Status:    l.Status,
		AppliedAt: l.AppliedAt.UTC().Format(time.RFC3339),
		UpdatedAt: l.UpdatedAt.UTC().Format(time.RFC3339),
	}
	if l.AdminComments != nil {
		resp.AdminComments = *l.AdminComments
	}
	if l.User != nil {
		resp.Owner = &dto.OwnerResponse{Username: l.User.Username, Email: l.User.Email}
	}
	return resp
}

func toLeaveResponses(leaves []model.Leave) []dto.LeaveResponse {
	result := make([]dto.LeaveResponse, 0, len(leaves))
	for i := range leaves {
		result = append(result, *toLeaveResponse(&leaves[i]))
	}
	return result
}
