package model

// CompanyService 公司登记的服务及其知识文档
type CompanyService struct {
	BaseModel
	BusinessPhoneNumber string `gorm:"size:32;not null;index:idx_company_category" json:"business_phone_number"`
	ServiceCategory     string `gorm:"size:100;not null" json:"service_category"`
	Namespace           string `gorm:"size:100;not null;index:idx_company_category" json:"namespace"`
	PDFFilename         string `gorm:"size:255;not null" json:"pdf_filename"`
	DocumentURL         string `gorm:"size:512" json:"document_url"`
	ContactEmail        string `gorm:"size:100" json:"contact_email"`
	ContactPhone        string `gorm:"size:32" json:"contact_phone"`
	ChunkCount          int    `json:"chunk_count"`
}

func (CompanyService) TableName() string {
	return "company_services"
}

func (s *CompanyService) Scope() ServiceScope {
	return ServiceScope{CompanyKey: s.BusinessPhoneNumber, Category: s.ServiceCategory}
}

// ServiceCatalogEntry 用户端服务目录
type ServiceCatalogEntry struct {
	CompanyName       string   `json:"company_name"`
	ServiceCategories []string `json:"service_categories"`
}
