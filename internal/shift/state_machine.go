package shift

import (
	"fmt"
	"time"
)

// AllowTransition 定义班次状态机的允许流转关系。
// active 是唯一的非终态，completed / cancelled 均为终态。
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

// ApplyTransition 对班次应用状态变更，并维护收班时间与 ActiveKey。
// 仅在 CanTransition 返回 true 时调用。
func ApplyTransition(sh *Shift, to Status, now time.Time) error {
	if sh == nil {
		return fmt.Errorf("shift is nil")
	}
	from := sh.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid shift status transition: %s -> %s", from, to)
	}

	sh.Status = to

	switch to {
	case StatusCompleted, StatusCancelled:
		if sh.EndTime == nil {
			t := now
			sh.EndTime = &t
		}
		// 释放唯一键，司机可以开下一个班次
		sh.ActiveKey = nil
	}
	return nil
}
