package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"time"

	ics "github.com/arran4/golang-ical"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"leave-tracker/internal/model"
	"leave-tracker/internal/repository"
)

// ── 导出模块业务错误 ──

var ErrExportGenerateFail = errors.New("生成导出文件失败")

// calendarProductID iCalendar PRODID
const calendarProductID = "-//leave-tracker//leaves//CN"

// ExportService 导出业务接口
//
//   - 管理员：全部请假申请导出为 Excel (.xlsx)，可按状态过滤
//   - 学生：本人已批准的请假导出为 iCalendar (.ics)，每条申请一个全天事件
type ExportService interface {
	// ExportLeaves 导出请假申请为 Excel；返回内容与建议文件名
	ExportLeaves(ctx context.Context, caller *Identity, status string) (*bytes.Buffer, string, error)
	// ExportCalendar 导出本人已批准的请假为 iCalendar 文本
	ExportCalendar(ctx context.Context, caller *Identity) (string, error)
}

type exportService struct {
	repo   *repository.Repository
	loc    *time.Location
	now    func() time.Time
	logger *zap.Logger
}

// NewExportService 创建 ExportService 实例
func NewExportService(repo *repository.Repository, loc *time.Location, logger *zap.Logger) ExportService {
	return &exportService{repo: repo, loc: loc, now: time.Now, logger: logger}
}

// ═══════════════════════════════════════════════════════════
// ExportLeaves — 导出请假申请为 Excel
// ═══════════════════════════════════════════════════════════
//
// 输出格式：
//   - Sheet "请假申请"，第 1 行为标题，第 2 行为表头
//   - 每条申请一行，顺序与管理员列表一致（提交时间倒序）

func (s *exportService) ExportLeaves(ctx context.Context, caller *Identity, status string) (*bytes.Buffer, string, error) {
	if err := caller.requireRole(model.RoleAdmin); err != nil {
		return nil, "", err
	}
	if status != "" && !isLeaveStatus(status) {
		return nil, "", invalid("status", "状态必须为 pending、approved 或 rejected")
	}

	leaves, err := s.repo.Leave.ListAll(ctx, status, 0)
	if err != nil {
		s.logger.Error("查询导出数据失败", zap.Error(err))
		return nil, "", storeError(err)
	}

	f := excelize.NewFile()
	defer f.Close()

	sheetName := "请假申请"
	idx, _ := f.NewSheet(sheetName)
	f.SetActiveSheet(idx)
	f.DeleteSheet("Sheet1")

	headers := []string{"申请编号", "用户名", "邮箱", "开始日期", "结束日期", "天数", "事由", "状态", "审批意见", "提交时间", "更新时间"}
	widths := []float64{38, 14, 24, 12, 12, 6, 36, 10, 30, 20, 20}
	for i, w := range widths {
		f.SetColWidth(sheetName, colName(i), colName(i), w)
	}

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#4472C4"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})

	// 标题行
	today := model.NewDate(s.now().In(s.loc)).String()
	f.SetCellValue(sheetName, "A1", fmt.Sprintf("请假申请汇总（%s）", today))
	f.MergeCell(sheetName, "A1", cell(colName(len(headers)-1), 1))
	f.SetCellStyle(sheetName, "A1", "A1", headerStyle)

	// 表头
	for i, h := range headers {
		f.SetCellValue(sheetName, cell(colName(i), 2), h)
	}
	f.SetCellStyle(sheetName, "A2", cell(colName(len(headers)-1), 2), headerStyle)

	// 数据行
	for i := range leaves {
		resp := toLeaveResponse(&leaves[i])
		var username, email string
		if resp.Owner != nil {
			username, email = resp.Owner.Username, resp.Owner.Email
		}
		values := []interface{}{
			resp.ID, username, email, resp.FromDate, resp.ToDate, resp.Days,
			resp.Reason, statusLabel(resp.Status), resp.AdminComments,
			leaves[i].AppliedAt.In(s.loc).Format("2006-01-02 15:04"),
			leaves[i].UpdatedAt.In(s.loc).Format("2006-01-02 15:04"),
		}
		row := i + 3
		for col, v := range values {
			f.SetCellValue(sheetName, cell(colName(col), row), v)
		}
	}

	buf := new(bytes.Buffer)
	if err := f.Write(buf); err != nil {
		s.logger.Error("写入 Excel 失败", zap.Error(err))
		return nil, "", ErrExportGenerateFail
	}

	filename := fmt.Sprintf("请假申请_%s.xlsx", today)
	if status != "" {
		filename = fmt.Sprintf("请假申请_%s_%s.xlsx", status, today)
	}
	return buf, filename, nil
}

// ═══════════════════════════════════════════════════════════
// ExportCalendar — 导出已批准请假为 iCalendar
// ═══════════════════════════════════════════════════════════
//
// DTEND 为全天事件的排他结束日，即 to_date 的次日。

func (s *exportService) ExportCalendar(ctx context.Context, caller *Identity) (string, error) {
	if err := caller.requireRole(model.RoleStudent); err != nil {
		return "", err
	}

	leaves, err := s.repo.Leave.ListByOwner(ctx, caller.UserID, 0)
	if err != nil {
		s.logger.Error("查询日历导出数据失败", zap.String("user_id", caller.UserID), zap.Error(err))
		return "", storeError(err)
	}

	cal := ics.NewCalendar()
	cal.SetMethod(ics.MethodPublish)
	cal.SetProductId(calendarProductID)

	stamp := s.now().UTC()
	for i := range leaves {
		l := &leaves[i]
		if l.Status != model.LeaveStatusApproved {
			continue
		}
		event := cal.AddEvent(l.LeaveID + "@leave-tracker")
		event.SetDtStampTime(stamp)
		event.SetAllDayStartAt(l.FromDate.Time)
		event.SetAllDayEndAt(l.ToDate.AddDate(0, 0, 1))
		event.SetSummary("请假：" + l.Reason)
		if l.AdminComments != nil && *l.AdminComments != "" {
			event.SetDescription(*l.AdminComments)
		}
	}

	return cal.Serialize(), nil
}

// ── 辅助函数 ──

func statusLabel(status string) string {
	switch status {
	case model.LeaveStatusPending:
		return "待审批"
	case model.LeaveStatusApproved:
		return "已批准"
	case model.LeaveStatusRejected:
		return "已驳回"
	}
	return status
}

func colName(idx int) string {
	name, _ := excelize.ColumnNumberToName(idx + 1)
	return name
}

func cell(col string, row int) string {
	return fmt.Sprintf("%s%d", col, row)
}
