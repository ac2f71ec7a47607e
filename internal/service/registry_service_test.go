package service

import (
	"context"
	"errors"
	"solveit_backend/internal/model"
	"solveit_backend/internal/util"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIndexer struct {
	err    error
	chunks []DocumentChunk
}

func (f *fakeIndexer) Index(ctx context.Context, scope model.ServiceScope, chunks []DocumentChunk) error {
	f.chunks = append(f.chunks, chunks...)
	return f.err
}

func newRegistry(f *fixture) (*RegistryService, *fakeIndexer) {
	indexer := &fakeIndexer{}
	return NewRegistryService(f.users, f.services, indexer, &StorageService{}, Chunker{Size: 1024, Overlap: 0.3, MinLength: 100}), indexer
}

func TestRegistryService_RegisterValidation(t *testing.T) {
	f := newFixture(t)
	registry, indexer := newRegistry(f)
	ctx := context.Background()

	_, err := registry.Register(ctx, f.requester(), RegisterServiceInput{Category: "Billing", Document: []byte("%PDF-1.4")})
	assert.ErrorIs(t, err, util.ErrForbidden)

	_, err = registry.Register(ctx, f.companyRequester(), RegisterServiceInput{Category: " ", Document: []byte("%PDF-1.4")})
	assert.ErrorIs(t, err, util.ErrValidation)

	_, err = registry.Register(ctx, f.companyRequester(), RegisterServiceInput{Category: "Roaming", Filename: "a.txt", Document: []byte("plain text")})
	assert.ErrorIs(t, err, util.ErrValidation)

	// PDF 头正确但内容损坏
	_, err = registry.Register(ctx, f.companyRequester(), RegisterServiceInput{Category: "Roaming", Filename: "a.pdf", Document: []byte("%PDF-1.4\n%broken")})
	assert.ErrorIs(t, err, util.ErrValidation)

	assert.Empty(t, indexer.chunks)
	services, err := f.services.ListByCompany(ctx, "15550100")
	require.NoError(t, err)
	assert.Len(t, services, 1)
}

func TestRegistryService_MyServicesAndCatalog(t *testing.T) {
	f := newFixture(t)
	registry, _ := newRegistry(f)
	ctx := context.Background()

	services, err := registry.MyServices(ctx, f.companyRequester())
	require.NoError(t, err)
	require.Len(t, services, 1)
	assert.Equal(t, "Billing", services[0].ServiceCategory)

	_, err = registry.MyServices(ctx, f.requester())
	assert.ErrorIs(t, err, util.ErrForbidden)

	empty := &model.User{FullName: "Initech", Email: "it@initech.test", Password: "x", Role: model.RoleCompany, BusinessPhoneNumber: "777"}
	require.NoError(t, f.users.Create(ctx, empty))
	_, err = registry.MyServices(ctx, Requester{UserID: empty.ID, Role: model.RoleCompany})
	assert.ErrorIs(t, err, util.ErrNotFound)

	catalog, err := registry.Catalog(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.ServiceCatalogEntry{{CompanyName: "Acme", ServiceCategories: []string{"Billing"}}}, catalog)
}

func TestRegistryService_CatalogEmpty(t *testing.T) {
	registry := NewRegistryService(nil, emptyCatalogRepo{}, nil, nil, Chunker{})

	_, err := registry.Catalog(context.Background())
	assert.ErrorIs(t, err, util.ErrNotFound)
}

type emptyCatalogRepo struct{ CompanyServiceRepo }

func (emptyCatalogRepo) ListCatalog(ctx context.Context) ([]model.ServiceCatalogEntry, error) {
	return nil, nil
}

func TestRegistryService_StoreErrorOnCatalog(t *testing.T) {
	registry := NewRegistryService(nil, failingCatalogRepo{}, nil, nil, Chunker{})
	_, err := registry.Catalog(context.Background())
	assert.ErrorIs(t, err, util.ErrStore)
}

type failingCatalogRepo struct{ CompanyServiceRepo }

func (failingCatalogRepo) ListCatalog(ctx context.Context) ([]model.ServiceCatalogEntry, error) {
	return nil, errors.New("connection reset")
}
