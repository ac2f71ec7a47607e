package service

import (
	"context"
	"errors"
	"solveit_backend/internal/model"
	"solveit_backend/internal/repository"
	"sync"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
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

type fixture struct {
	db           *gorm.DB
	users        *repository.UserRepository
	services     *repository.CompanyServiceRepository
	interactions *repository.InteractionRepository
	company      *model.User
	user         *model.User
}

// newFixture 预置公司 Acme（电话 +1 555 0100）及其 Billing 服务和一个普通用户
func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:           db,
		users:        repository.NewUserRepository(db),
		services:     repository.NewCompanyServiceRepository(db),
		interactions: repository.NewInteractionRepository(db),
	}
	ctx := context.Background()

	f.company = &model.User{FullName: "Acme", Email: "support@acme.test", Password: "x", Role: model.RoleCompany, BusinessPhoneNumber: "+15550100"}
	require.NoError(t, f.users.Create(ctx, f.company))
	f.user = &model.User{FullName: "Jo", Email: "jo@mail.test", Password: "x", Role: model.RoleUser}
	require.NoError(t, f.users.Create(ctx, f.user))

	require.NoError(t, f.services.Create(ctx, &model.CompanyService{
		BusinessPhoneNumber: "15550100",
		ServiceCategory:     "Billing",
		Namespace:           "BILLING",
		PDFFilename:         "billing.pdf",
	}))
	return f
}

func (f *fixture) requester() Requester {
	return Requester{UserID: f.user.ID, Email: f.user.Email, Role: model.RoleUser}
}

func (f *fixture) companyRequester() Requester {
	return Requester{UserID: f.company.ID, Email: f.company.Email, Role: model.RoleCompany}
}

func (f *fixture) count(t *testing.T) int64 {
	t.Helper()
	var n int64
	require.NoError(t, f.db.Model(&model.ServiceInteraction{}).Count(&n).Error)
	return n
}

// callLog 记录 provider 调用顺序
type callLog struct {
	mu    sync.Mutex
	calls []string
}

func (l *callLog) add(name string) {
	l.mu.Lock()
	l.calls = append(l.calls, name)
	l.mu.Unlock()
}

func (l *callLog) list() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.calls...)
}

type fakeTranscriber struct {
	log  *callLog
	text string
	err  error
}

func (f *fakeTranscriber) Transcribe(ctx context.Context, audio []byte, filename string) (*Transcription, error) {
	f.log.add("transcribe")
	if f.err != nil {
		return nil, f.err
	}
	return &Transcription{Text: f.text, Language: "english"}, nil
}

type fakeRetriever struct {
	log      *callLog
	snippets []Snippet
	err      error
	hook     func(ctx context.Context) error
	scopes   []model.ServiceScope
	mu       sync.Mutex
}

func (f *fakeRetriever) Search(ctx context.Context, query string, scope model.ServiceScope, topK int) ([]Snippet, error) {
	f.log.add("retrieve")
	f.mu.Lock()
	f.scopes = append(f.scopes, scope)
	f.mu.Unlock()
	if f.hook != nil {
		if err := f.hook(ctx); err != nil {
			return nil, err
		}
	}
	return f.snippets, f.err
}

type fakeGenerator struct {
	log      *callLog
	segments []string
	err      error
	last     GenerationRequest
	hook     func()
	mu       sync.Mutex
}

func (f *fakeGenerator) Generate(ctx context.Context, req GenerationRequest) ([]string, error) {
	f.log.add("generate")
	f.mu.Lock()
	f.last = req
	f.mu.Unlock()
	if f.hook != nil {
		f.hook()
	}
	return f.segments, f.err
}

type failingStore struct{}

func (failingStore) Create(ctx context.Context, interaction *model.ServiceInteraction) error {
	return errors.New("disk full")
}

type recordedPush struct {
	userIDs []uint
	msg     WSMessage
}

type fakeNotifier struct {
	mu     sync.Mutex
	pushes []recordedPush
}

func (n *fakeNotifier) PushToUsers(userIDs []uint, msg WSMessage) {
	n.mu.Lock()
	n.pushes = append(n.pushes, recordedPush{userIDs: userIDs, msg: msg})
	n.mu.Unlock()
}

type fakeMailer struct {
	to, subject, body string
	err               error
	sent              int
}

func (m *fakeMailer) Send(ctx context.Context, to, subject, body string) error {
	m.sent++
	m.to, m.subject, m.body = to, subject, body
	return m.err
}

// stepClock 每次调用前进一秒
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := c.now
	c.now = c.now.Add(time.Second)
	return t
}
