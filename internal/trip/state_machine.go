package trip

import (
	"fmt"
	"time"
)

// AllowTransition 定义行程状态机的允许流转关系。
// active 是唯一的非终态。
var AllowTransition = map[Status][]Status{
	StatusActive:    {StatusCompleted, StatusCancelled},
	StatusCompleted: {},
	StatusCancelled: {},
}

// CanTransition 判断 from -> to 是否是一个允许的状态流转。
func CanTransition(from, to Status) bool {
	if from == to {
		return true
	}
	allowed, ok := AllowTransition[from]
	if !ok {
		return false
	}
	for _, s := range allowed {
		if s == to {
			return true
		}
	}
	return false
}

// ApplyTransition 对行程应用状态变更，维护结束时间与 ActiveKey。
// 仅在 CanTransition 返回 true 时调用。
func ApplyTransition(tr *Trip, to Status, now time.Time) error {
	if tr == nil {
		return fmt.Errorf("trip is nil")
	}
	from := tr.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid trip status transition: %s -> %s", from, to)
	}

	tr.Status = to

	switch to {
	case StatusCompleted, StatusCancelled:
		if tr.EndTime == nil {
			t := now
			tr.EndTime = &t
		}
		tr.ActiveKey = nil
	}
	return nil
}
