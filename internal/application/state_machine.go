package application

import (
	"fmt"
	"time"
)

// AllowTransition 定义申请状态机的允许流转关系。
// in_review 可以退回 pending，approved / rejected 为终态。
var AllowTransition = map[Status][]Status{
	StatusPending:  {StatusInReview, StatusApproved, StatusRejected},
	StatusInReview: {StatusApproved, StatusRejected, StatusPending},
	StatusApproved: {},
	StatusRejected: {},
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

// ApplyTransition 对申请应用状态变更，维护 IsApproved / ApprovedAt。
// 审批的账号开通副作用由服务层负责，这里只管状态字段。
func ApplyTransition(a *Application, to Status, now time.Time) error {
	if a == nil {
		return fmt.Errorf("application is nil")
	}
	from := a.Status
	if !CanTransition(from, to) {
		return fmt.Errorf("invalid application status transition: %s -> %s", from, to)
	}

	a.Status = to

	switch to {
	case StatusApproved:
		a.IsApproved = true
		if a.ApprovedAt == nil {
			t := now
			a.ApprovedAt = &t
		}
	default:
		a.IsApproved = false
	}
	return nil
}
