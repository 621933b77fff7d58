package application

import "time"

// Status 申请状态枚举（持久化为字符串）。
type Status string

const (
	StatusPending  Status = "pending"   // 已提交，待处理
	StatusInReview Status = "in_review" // 审核中
	StatusApproved Status = "approved"  // 已通过（终态）
	StatusRejected Status = "rejected"  // 已驳回（终态）
)

// ValidStatus 是否为已知状态。
func ValidStatus(s Status) bool {
	switch s {
	case StatusPending, StatusInReview, StatusApproved, StatusRejected:
		return true
	}
	return false
}

// Address 居住地址。
type Address struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state"`
	ZipCode string `json:"zipCode"`
}

// CDL 商用驾照信息。
type CDL struct {
	LicenseNumber     string    `json:"licenseNumber"`
	State             string    `json:"state"`
	ExpirationDate    time.Time `json:"expirationDate"`
	Endorsements      []string  `json:"endorsements,omitempty"`
	YearsOfExperience int       `json:"yearsOfExperience"`
}

// Employment 一段雇佣经历。
type Employment struct {
	Employer  string     `json:"employer"`
	Position  string     `json:"position"`
	StartDate time.Time  `json:"startDate"`
	EndDate   *time.Time `json:"endDate,omitempty"`
	Reason    string     `json:"reasonForLeaving,omitempty"`
}

// DrivingHistory 事故/违章记录。
type DrivingHistory struct {
	Accidents  []string `json:"accidents,omitempty"`
	Violations []string `json:"violations,omitempty"`
}

// Reference 推荐人。
type Reference struct {
	Name     string `json:"name"`
	Phone    string `json:"phone"`
	Relation string `json:"relation,omitempty"`
}

// Application 司机入职申请 GORM 模型。
// Status 和 LinkedUserID 只能通过状态流转修改，普通字段编辑不得触碰。
type Application struct {
	ID string `gorm:"primaryKey;size:36" json:"id"`

	// 身份信息
	Email       string    `gorm:"uniqueIndex;size:255;not null" json:"email"`
	FirstName   string    `gorm:"size:64;not null" json:"firstName"`
	LastName    string    `gorm:"size:64;not null" json:"lastName"`
	Phone       string    `gorm:"size:32" json:"phone"`
	DateOfBirth time.Time `json:"dateOfBirth"`

	// 结构化子记录
	Address           Address           `gorm:"serializer:json" json:"address"`
	CDL               CDL               `gorm:"serializer:json" json:"cdl"`
	EmploymentHistory []Employment      `gorm:"serializer:json" json:"employmentHistory"`
	DrivingHistory    DrivingHistory    `gorm:"serializer:json" json:"drivingHistory"`
	References        []Reference       `gorm:"serializer:json" json:"references"`
	Documents         map[string]string `gorm:"serializer:json" json:"documents,omitempty"`

	// 法务确认
	BackgroundCheckConsent bool `gorm:"not null;default:false" json:"backgroundCheckConsent"`
	DrugTestConsent        bool `gorm:"not null;default:false" json:"drugTestConsent"`

	// 流转状态
	Status          Status     `gorm:"type:varchar(16);index;not null" json:"status"`
	IsApproved      bool       `gorm:"not null;default:false" json:"isApproved"`
	RejectionReason string     `gorm:"size:500" json:"rejectionReason,omitempty"`
	Comments        string     `gorm:"size:500" json:"comments,omitempty"`
	LinkedUserID    *string    `gorm:"size:36" json:"linkedUserId,omitempty"`
	ApprovedAt      *time.Time `json:"approvedAt,omitempty"`

	CreatedAt time.Time `gorm:"autoCreateTime" json:"createdAt"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updatedAt"`
}

// FullName 申请人姓名。
func (a *Application) FullName() string {
	return a.FirstName + " " + a.LastName
}
