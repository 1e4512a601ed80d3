// Package bootstrap 运维命令使用的示例数据初始化
package bootstrap

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"leave-tracker/internal/model"
	"leave-tracker/internal/repository"
	"leave-tracker/internal/service"
)

// SampleStudentPassword 示例学生账号的统一密码
const SampleStudentPassword = "student123"

type sampleLeave struct {
	owner   string
	from    string
	to      string
	reason  string
	status  string
	comment string
}

var sampleStudents = []string{"student1", "student2"}

var sampleLeaves = []sampleLeave{
	{owner: "student1", from: "2024-01-15", to: "2024-01-17", reason: "Medical appointment", status: model.LeaveStatusApproved},
	{owner: "student1", from: "2024-01-20", to: "2024-01-22", reason: "Family emergency", status: model.LeaveStatusRejected, comment: "Need more documentation"},
	{owner: "student2", from: "2024-01-25", to: "2024-01-27", reason: "Personal work", status: model.LeaveStatusPending},
}

// Result 初始化结果
type Result struct {
	Admin    *model.User
	Students []*model.User
	Leaves   int
}

// Seed 写入管理员、示例学生与示例请假申请。
// 示例申请为历史日期，直接经由仓储写入，不经过提交校验。
func Seed(ctx context.Context, accounts service.AccountService, leaves repository.LeaveRepository, now time.Time, logger *zap.Logger) (*Result, error) {
	admin, err := accounts.EnsureSingleAdmin(ctx)
	if err != nil {
		return nil, fmt.Errorf("创建管理员失败: %w", err)
	}

	result := &Result{Admin: admin}
	owners := make(map[string]string, len(sampleStudents))
	for _, name := range sampleStudents {
		user, err := accounts.CreateAccount(ctx, name, name+"@college.edu", SampleStudentPassword, model.RoleStudent)
		if err != nil {
			return nil, fmt.Errorf("创建示例学生 %s 失败: %w", name, err)
		}
		owners[name] = user.UserID
		result.Students = append(result.Students, user)
	}

	for i, s := range sampleLeaves {
		from, err := model.ParseDate(s.from)
		if err != nil {
			return nil, err
		}
		to, err := model.ParseDate(s.to)
		if err != nil {
			return nil, err
		}

		// 按列表顺序错开提交时间，保证排序稳定
		appliedAt := now.UTC().Add(time.Duration(i-len(sampleLeaves)) * time.Minute)
		leave := &model.Leave{
			UserID:    owners[s.owner],
			FromDate:  from,
			ToDate:    to,
			Reason:    s.reason,
			Status:    model.LeaveStatusPending,
			AppliedAt: appliedAt,
			UpdatedAt: appliedAt,
		}
		if err := leaves.Create(ctx, leave); err != nil {
			return nil, fmt.Errorf("创建示例请假失败: %w", err)
		}
		if s.status != model.LeaveStatusPending {
			if err := leaves.Decide(ctx, leave.LeaveID, s.status, s.comment, appliedAt); err != nil {
				return nil, fmt.Errorf("写入示例审批结果失败: %w", err)
			}
		}
		result.Leaves++
	}

	logger.Info("示例数据已写入",
		zap.String("admin", admin.Username),
		zap.Int("students", len(result.Students)),
		zap.Int("leaves", result.Leaves),
	)
	return result, nil
}
