package model

type UserRole string

const (
	RoleUser    UserRole = "user"
	RoleCompany UserRole = "company"
)

// swagger:model User
type User struct {
	BaseModel
	FullName            string   `gorm:"size:100;not null;index" json:"full_name"`
	Email               string   `gorm:"size:100;uniqueIndex;not null" json:"email"`
	Password            string   `gorm:"size:100;not null" json:"-"`
	Role                UserRole `gorm:"size:16;not null;index" json:"role"`
	UserPhoneNumber     string   `gorm:"size:32" json:"user_phone_number,omitempty"`
	Domain              string   `gorm:"size:255" json:"domain,omitempty"`
	BusinessPhoneNumber string   `gorm:"size:32;index" json:"business_phone_number,omitempty"`
}

func (User) TableName() string {
	return "users"
}

// CompanyKey 公司用户的作用域标识
func (u *User) CompanyKey() string {
	return NormalizePhone(u.BusinessPhoneNumber)
}
