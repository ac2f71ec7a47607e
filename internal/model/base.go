package model

import (
	"strings"
	"time"
)

// swagger:model
type BaseModel struct {
	ID        uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// NormalizePhone 公司号码即公司作用域标识: 去掉 +，转大写
func NormalizePhone(phone string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(phone), "+", ""))
}

// NormalizeCategory 服务类别对应的向量命名空间
func NormalizeCategory(category string) string {
	return strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(category), " ", "_"))
}

// ServiceScope 请求指向的 (公司, 类别) 文档命名空间
type ServiceScope struct {
	CompanyKey string
	Category   string
}

func NewServiceScope(businessPhone, category string) ServiceScope {
	return ServiceScope{
		CompanyKey: NormalizePhone(businessPhone),
		Category:   strings.TrimSpace(category),
	}
}

// Namespace 返回类别的规范化形式
func (s ServiceScope) Namespace() string {
	return NormalizeCategory(s.Category)
}

// Collection 向量库集合名
func (s ServiceScope) Collection() string {
	return s.CompanyKey + "/" + s.Namespace()
}
