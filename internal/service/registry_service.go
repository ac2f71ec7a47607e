package service

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"solveit_backend/internal/model"
	"solveit_backend/internal/util"
	"solveit_backend/pkg/logger"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

type CompanyServiceRepo interface {
	Create(ctx context.Context, svc *model.CompanyService) error
	UpdateChunkCount(ctx context.Context, id uint, count int) error
	Delete(ctx context.Context, id uint) error
	ListByCompany(ctx context.Context, companyKey string) ([]model.CompanyService, error)
	ListCatalog(ctx context.Context) ([]model.ServiceCatalogEntry, error)
}

// DocumentIndexer 写入向量库
type DocumentIndexer interface {
	Index(ctx context.Context, scope model.ServiceScope, chunks []DocumentChunk) error
}

// RegisterServiceInput 公司登记服务时上传的表单
type RegisterServiceInput struct {
	Category     string
	ContactEmail string
	ContactPhone string
	Filename     string
	Document     []byte
}

// RegistryService 服务登记、文档入库与服务目录
type RegistryService struct {
	Users    UserFinder
	Services CompanyServiceRepo
	Indexer  DocumentIndexer
	Storage  *StorageService
	Chunker  Chunker
}

func NewRegistryService(users UserFinder, services CompanyServiceRepo, indexer DocumentIndexer, storage *StorageService, chunker Chunker) *RegistryService {
	return &RegistryService{
		Users:    users,
		Services: services,
		Indexer:  indexer,
		Storage:  storage,
		Chunker:  chunker,
	}
}

func (s *RegistryService) Register(ctx context.Context, requester Requester, in RegisterServiceInput) (*model.CompanyService, error) {
	if requester.Role != model.RoleCompany {
		return nil, fmt.Errorf("%w: only companies can register services", util.ErrForbidden)
	}
	category := strings.TrimSpace(in.Category)
	if category == "" {
		return nil, fmt.Errorf("%w: service_category is required", util.ErrValidation)
	}
	if len(in.Document) == 0 || !util.IsPDF(in.Document) {
		return nil, fmt.Errorf("%w: a PDF document is required", util.ErrValidation)
	}

	company, err := s.Users.FindByID(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: company account", util.ErrNotFound)
	}
	scope := model.NewServiceScope(company.BusinessPhoneNumber, category)

	pages, err := ExtractPDFPages(in.Document)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrValidation, err)
	}
	texts := s.Chunker.SplitPages(pages)
	if len(texts) == 0 {
		return nil, fmt.Errorf("%w: document contains no indexable text", util.ErrValidation)
	}

	svc := &model.CompanyService{
		BusinessPhoneNumber: scope.CompanyKey,
		ServiceCategory:     category,
		Namespace:           scope.Namespace(),
		PDFFilename:         filepath.Base(in.Filename),
		ContactEmail:        strings.TrimSpace(in.ContactEmail),
		ContactPhone:        strings.TrimSpace(in.ContactPhone),
	}

	var key string
	if s.Storage.Enabled() {
		key = NewKey("documents/"+scope.CompanyKey, ".pdf")
		url, err := s.Storage.Upload(ctx, key, bytes.NewReader(in.Document), int64(len(in.Document)), util.MimePDF)
		if err != nil {
			return nil, fmt.Errorf("%w: upload document: %v", util.ErrStore, err)
		}
		svc.DocumentURL = url
	}

	if err := s.Services.Create(ctx, svc); err != nil {
		s.cleanupDocument(ctx, key)
		return nil, fmt.Errorf("%w: create service: %v", util.ErrStore, err)
	}

	chunks := make([]DocumentChunk, len(texts))
	for i, text := range texts {
		chunks[i] = DocumentChunk{
			ID:      strconv.FormatUint(uint64(svc.ID), 10) + "-" + strconv.Itoa(i),
			Content: text,
			Metadata: map[string]string{
				"service_id": strconv.FormatUint(uint64(svc.ID), 10),
				"filename":   svc.PDFFilename,
			},
		}
	}
	if err := s.Indexer.Index(ctx, scope, chunks); err != nil {
		if delErr := s.Services.Delete(ctx, svc.ID); delErr != nil {
			logger.Log.Error("Rollback service failed", zap.Error(delErr), zap.Uint("serviceId", svc.ID))
		}
		s.cleanupDocument(ctx, key)
		return nil, fmt.Errorf("%w: index document: %v", util.ErrProvider, err)
	}

	if err := s.Services.UpdateChunkCount(ctx, svc.ID, len(chunks)); err != nil {
		logger.Log.Warn("Update chunk count failed", zap.Error(err), zap.Uint("serviceId", svc.ID))
	}
	svc.ChunkCount = len(chunks)

	logger.Log.Info("Service registered",
		zap.Uint("serviceId", svc.ID),
		zap.String("collection", scope.Collection()),
		zap.Int("chunks", len(chunks)),
	)
	return svc, nil
}

func (s *RegistryService) cleanupDocument(ctx context.Context, key string) {
	if key == "" {
		return
	}
	if err := s.Storage.Delete(ctx, key); err != nil {
		logger.Log.Warn("Delete uploaded document failed", zap.Error(err), zap.String("key", key))
	}
}

// MyServices 没有登记任何服务时返回 ErrNotFound
func (s *RegistryService) MyServices(ctx context.Context, requester Requester) ([]model.CompanyService, error) {
	if requester.Role != model.RoleCompany {
		return nil, fmt.Errorf("%w: only companies can view their services", util.ErrForbidden)
	}
	company, err := s.Users.FindByID(ctx, requester.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: company account", util.ErrNotFound)
	}

	services, err := s.Services.ListByCompany(ctx, company.CompanyKey())
	if err != nil {
		return nil, fmt.Errorf("%w: list services: %v", util.ErrStore, err)
	}
	if len(services) == 0 {
		return nil, fmt.Errorf("%w: no services registered", util.ErrNotFound)
	}
	return services, nil
}

// Catalog 用户可选择的公司与服务类别
func (s *RegistryService) Catalog(ctx context.Context) ([]model.ServiceCatalogEntry, error) {
	entries, err := s.Services.ListCatalog(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list catalog: %v", util.ErrStore, err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("%w: no services found", util.ErrNotFound)
	}
	return entries, nil
}
