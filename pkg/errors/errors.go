package errors

import "errors"

var (
	// ErrStatusConflict 条件更新未命中：记录已不处于期望的前置状态
	ErrStatusConflict = errors.New("记录状态已变化，请刷新后重试")
	// ErrDuplicateKey 违反唯一约束
	ErrDuplicateKey = errors.New("记录已存在")
)
