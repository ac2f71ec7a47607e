package repository

import (
	"context"
	"solveit_backend/internal/model"
	"solveit_backend/internal/util"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(&model.User{}, &model.CompanyService{}, &model.ServiceInteraction{}))
	return db
}

func seedCompany(t *testing.T, db *gorm.DB, name, phone string) *model.User {
	t.Helper()
	company := &model.User{
		FullName:            name,
		Email:               phone + "@corp.test",
		Password:            "x",
		Role:                model.RoleCompany,
		BusinessPhoneNumber: phone,
	}
	require.NoError(t, db.Create(company).Error)
	return company
}

func pendingInteraction(email, company string, at time.Time) *model.ServiceInteraction {
	return &model.ServiceInteraction{
		UserEmail:           email,
		ServiceCategory:     "Billing",
		BusinessPhoneNumber: company,
		RequestType:         model.RequestText,
		RequestContent:      "why was I charged twice?",
		Status:              model.StatusPending,
		CreatedAt:           at,
	}
}

func TestUserRepository_FindCompanyByName(t *testing.T) {
	db := newTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedCompany(t, db, "Acme", "15550001")
	require.NoError(t, repo.Create(ctx, &model.User{
		FullName: "Acme", Email: "person@acme.test", Password: "x", Role: model.RoleUser,
	}))

	company, err := repo.FindCompanyByName(ctx, "Acme")
	require.NoError(t, err)
	assert.Equal(t, model.RoleCompany, company.Role)
	assert.Equal(t, "15550001", company.CompanyKey())

	_, err = repo.FindCompanyByName(ctx, "Globex")
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	user, err := repo.FindByEmail(ctx, "person@acme.test")
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, user.Role)
}

func TestCompanyServiceRepository_FindByScope(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompanyServiceRepository(db)
	ctx := context.Background()

	scope := model.NewServiceScope("+15550001", "Internet Plans")
	require.NoError(t, repo.Create(ctx, &model.CompanyService{
		BusinessPhoneNumber: scope.CompanyKey,
		ServiceCategory:     "Internet Plans",
		Namespace:           scope.Namespace(),
		PDFFilename:         "plans.pdf",
	}))

	found, err := repo.FindByScope(ctx, model.NewServiceScope("15550001", "internet plans"))
	require.NoError(t, err)
	assert.Equal(t, "INTERNET_PLANS", found.Namespace)

	_, err = repo.FindByScope(ctx, model.NewServiceScope("15550002", "Internet Plans"))
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCompanyServiceRepository_ListCatalog(t *testing.T) {
	db := newTestDB(t)
	repo := NewCompanyServiceRepository(db)
	ctx := context.Background()

	seedCompany(t, db, "Zeta", "200")
	seedCompany(t, db, "Acme", "100")
	seedCompany(t, db, "Idle", "300")

	for _, s := range []model.CompanyService{
		{BusinessPhoneNumber: "100", ServiceCategory: "Billing", Namespace: "BILLING", PDFFilename: "a.pdf"},
		{BusinessPhoneNumber: "100", ServiceCategory: "Activation", Namespace: "ACTIVATION", PDFFilename: "b.pdf"},
		{BusinessPhoneNumber: "100", ServiceCategory: "Billing", Namespace: "BILLING", PDFFilename: "c.pdf"},
		{BusinessPhoneNumber: "200", ServiceCategory: "Roaming", Namespace: "ROAMING", PDFFilename: "d.pdf"},
	} {
		s := s
		require.NoError(t, repo.Create(ctx, &s))
	}

	catalog, err := repo.ListCatalog(ctx)
	require.NoError(t, err)
	require.Len(t, catalog, 2)
	assert.Equal(t, "Acme", catalog[0].CompanyName)
	assert.Equal(t, []string{"Activation", "Billing"}, catalog[0].ServiceCategories)
	assert.Equal(t, "Zeta", catalog[1].CompanyName)
	assert.Equal(t, []string{"Roaming"}, catalog[1].ServiceCategories)
}

func TestInteractionRepository_CreateRejectsInvalid(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)

	answer := "done"
	bad := pendingInteraction("u@x.test", "100", time.Now().UTC())
	bad.ResponseContent = &answer

	err := repo.Create(context.Background(), bad)
	assert.ErrorIs(t, err, util.ErrStore)

	var count int64
	db.Model(&model.ServiceInteraction{}).Count(&count)
	assert.Zero(t, count)
}

func TestInteractionRepository_ListFilters(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	require.NoError(t, repo.Create(ctx, pendingInteraction("a@x.test", "100", day.Add(-time.Minute))))
	require.NoError(t, repo.Create(ctx, pendingInteraction("a@x.test", "100", day)))
	require.NoError(t, repo.Create(ctx, pendingInteraction("a@x.test", "100", day.Add(23*time.Hour+59*time.Minute))))
	require.NoError(t, repo.Create(ctx, pendingInteraction("a@x.test", "100", day.Add(24*time.Hour))))
	require.NoError(t, repo.Create(ctx, pendingInteraction("b@x.test", "200", day.Add(time.Hour))))

	from := day
	before := day.Add(24 * time.Hour)
	list, err := repo.List(ctx, InteractionFilter{UserEmail: "a@x.test", CreatedFrom: &from, CreatedBefore: &before})
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.True(t, list[0].CreatedAt.After(list[1].CreatedAt))

	list, err = repo.List(ctx, InteractionFilter{CompanyKey: "200", Status: model.StatusPending})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "b@x.test", list[0].UserEmail)
}

func TestInteractionRepository_Complete(t *testing.T) {
	db := newTestDB(t)
	repo := NewInteractionRepository(db)
	ctx := context.Background()

	created := time.Date(2024, 3, 10, 8, 0, 0, 0, time.UTC)
	interaction := pendingInteraction("a@x.test", "100", created)
	require.NoError(t, repo.Create(ctx, interaction))

	done, err := repo.Complete(ctx, interaction.ID, "refund issued", created.Add(time.Hour))
	require.NoError(t, err)
	assert.Equal(t, model.StatusCompleted, done.Status)
	require.NotNil(t, done.ResponseContent)
	assert.Equal(t, "refund issued", *done.ResponseContent)
	require.NotNil(t, done.CompletedAt)

	_, err = repo.Complete(ctx, interaction.ID, "second answer", created.Add(2*time.Hour))
	assert.ErrorIs(t, err, util.ErrAlreadyCompleted)

	reloaded, err := repo.FindByID(ctx, interaction.ID)
	require.NoError(t, err)
	assert.Equal(t, "refund issued", *reloaded.ResponseContent)

	_, err = repo.Complete(ctx, 9999, "x", created)
	assert.ErrorIs(t, err, util.ErrNotFound)
}
