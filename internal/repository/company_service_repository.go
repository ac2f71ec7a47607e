package repository

import (
	"context"
	"solveit_backend/internal/model"
	"sort"
	"strings"

	"gorm.io/gorm"
)

type CompanyServiceRepository struct {
	DB *gorm.DB
}

func NewCompanyServiceRepository(db *gorm.DB) *CompanyServiceRepository {
	return &CompanyServiceRepository{DB: db}
}

func (r *CompanyServiceRepository) Create(ctx context.Context, svc *model.CompanyService) error {
	return r.DB.WithContext(ctx).Create(svc).Error
}

func (r *CompanyServiceRepository) UpdateChunkCount(ctx context.Context, id uint, count int) error {
	return r.DB.WithContext(ctx).Model(&model.CompanyService{}).
		Where("id = ?", id).
		Update("chunk_count", count).Error
}

func (r *CompanyServiceRepository) Delete(ctx context.Context, id uint) error {
	return r.DB.WithContext(ctx).Delete(&model.CompanyService{}, id).Error
}

// FindByScope 按公司作用域和规范化类别查找服务
func (r *CompanyServiceRepository) FindByScope(ctx context.Context, scope model.ServiceScope) (*model.CompanyService, error) {
	var svc model.CompanyService
	err := r.DB.WithContext(ctx).
		Where("business_phone_number = ? AND namespace = ?", scope.CompanyKey, scope.Namespace()).
		Order("id DESC").
		First(&svc).Error
	if err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *CompanyServiceRepository) ListByCompany(ctx context.Context, companyKey string) ([]model.CompanyService, error) {
	var services []model.CompanyService
	err := r.DB.WithContext(ctx).
		Where("business_phone_number = ?", companyKey).
		Order("created_at ASC").
		Find(&services).Error
	return services, err
}

// ListCatalog 按公司名分组的服务目录，类别按字母排序
func (r *CompanyServiceRepository) ListCatalog(ctx context.Context) ([]model.ServiceCatalogEntry, error) {
	var companies []model.User
	if err := r.DB.WithContext(ctx).
		Where("role = ?", model.RoleCompany).
		Order("full_name ASC").
		Find(&companies).Error; err != nil {
		return nil, err
	}

	var services []model.CompanyService
	if err := r.DB.WithContext(ctx).Find(&services).Error; err != nil {
		return nil, err
	}

	byKey := make(map[string][]string)
	for _, s := range services {
		byKey[s.BusinessPhoneNumber] = appendUnique(byKey[s.BusinessPhoneNumber], s.ServiceCategory)
	}

	grouped := make(map[string][]string)
	var order []string
	for _, c := range companies {
		categories, ok := byKey[c.CompanyKey()]
		if !ok {
			continue
		}
		name := strings.TrimSpace(c.FullName)
		if _, seen := grouped[name]; !seen {
			order = append(order, name)
		}
		for _, cat := range categories {
			grouped[name] = appendUnique(grouped[name], cat)
		}
	}

	entries := make([]model.ServiceCatalogEntry, 0, len(order))
	for _, name := range order {
		categories := grouped[name]
		sort.Strings(categories)
		entries = append(entries, model.ServiceCatalogEntry{CompanyName: name, ServiceCategories: categories})
	}
	return entries, nil
}

func appendUnique(list []string, v string) []string {
	for _, existing := range list {
		if existing == v {
			return list
		}
	}
	return append(list, v)
}
