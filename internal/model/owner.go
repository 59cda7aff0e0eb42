package model

// OwnerStatus represents owner account status
type OwnerStatus string

const (
	OwnerStatusActive   OwnerStatus = "active"
	OwnerStatusInactive OwnerStatus = "inactive"
)

// Owner is a dashboard account that can register domains
type Owner struct {
	BaseModel
	Email            string      `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	PasswordHash     string      `gorm:"type:varchar(255);not null" json:"-"`
	Status           OwnerStatus `gorm:"type:enum('active','inactive');default:'active'" json:"status"`
	// BillingCustomerID links the account to the payments provider
	BillingCustomerID string `gorm:"type:varchar(128)" json:"-"`
}

// TableName specifies the table name for Owner model
func (Owner) TableName() string {
	return "owners"
}
