package service

import (
	"errors"
	"fmt"
)

// ── 业务错误 ──

var (
	ErrInvalidRequest    = errors.New("请求参数无效")
	ErrDuplicateIdentity = errors.New("用户名或邮箱已存在")
	ErrAuthFailed        = errors.New("用户名或密码错误")
	ErrUnauthenticated   = errors.New("未认证")
	ErrUnauthorized      = errors.New("请以正确的角色登录")
	ErrUserNotFound      = errors.New("用户不存在")
	ErrLeaveNotFound     = errors.New("请假申请不存在")
	ErrAlreadyDecided    = errors.New("该申请已审批，不能重复处理")
	ErrInvalidAction     = errors.New("无效的审批操作")
	ErrAdminExists       = errors.New("管理员账号已存在")
	ErrStoreUnavailable  = errors.New("数据存储不可用")
)

// ValidationError 字段级校验错误，errors.Is(err, ErrInvalidRequest) 为 true
type ValidationError struct {
	Field  string
	Detail string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Detail)
}

// Is 使 ValidationError 归入 ErrInvalidRequest
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidRequest
}

func invalid(field, detail string) error {
	return &ValidationError{Field: field, Detail: detail}
}

// storeError 将底层存储错误归入 ErrStoreUnavailable，保留原始错误信息
func storeError(err error) error {
	return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
}
