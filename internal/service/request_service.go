package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"solveit_backend/internal/model"
	"solveit_backend/internal/util"
	"solveit_backend/pkg/logger"
	"solveit_backend/pkg/monitoring"
	"solveit_backend/pkg/tracing"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Requester 已认证的调用方
type Requester struct {
	UserID uint
	Email  string
	Role   model.UserRole
}

func RequesterFromClaims(claims *util.Claims) Requester {
	return Requester{UserID: claims.UserID, Email: claims.Email, Role: claims.Role}
}

// RequestInput Audio 与 Text 必须恰好提供一个
type RequestInput struct {
	Audio         []byte
	AudioFilename string
	Text          *string
}

func TextInput(text string) RequestInput {
	return RequestInput{Text: &text}
}

func AudioInput(audio []byte, filename string) RequestInput {
	return RequestInput{Audio: audio, AudioFilename: filename}
}

type OutcomeKind string

const (
	OutcomeAnswered OutcomeKind = "answered"
	OutcomePending  OutcomeKind = "pending"
)

// Outcome 一次请求的终态
type Outcome struct {
	Kind        OutcomeKind
	Answer      string
	Reason      model.FallbackReason
	Interaction *model.ServiceInteraction
}

// Body 返回给用户的响应体
func (o *Outcome) Body() map[string]string {
	if o.Kind == OutcomeAnswered {
		return map[string]string{"answer": o.Answer}
	}
	return map[string]string{"message": util.PendingReviewMessage}
}

type CompanyFinder interface {
	FindCompanyByName(ctx context.Context, name string) (*model.User, error)
}

type ServiceFinder interface {
	FindByScope(ctx context.Context, scope model.ServiceScope) (*model.CompanyService, error)
}

type InteractionStore interface {
	Create(ctx context.Context, interaction *model.ServiceInteraction) error
}

// RequestOptions 流水线参数
type RequestOptions struct {
	TopK           int
	PersistTimeout time.Duration
	ArchiveAudio   bool
}

// RequestService 用户请求处理流水线：转写 -> 检索 -> 生成 -> 置信度判定 -> 落库
type RequestService struct {
	Companies   CompanyFinder
	Services    ServiceFinder
	Store       InteractionStore
	Transcriber Transcriber
	Retriever   Retriever
	Generator   Generator
	Policy      *FallbackPolicy
	Storage     *StorageService
	Notifier    Notifier
	Options     RequestOptions
	Now         func() time.Time
}

func NewRequestService(
	companies CompanyFinder,
	services ServiceFinder,
	store InteractionStore,
	transcriber Transcriber,
	retriever Retriever,
	generator Generator,
	policy *FallbackPolicy,
	opts RequestOptions,
) *RequestService {
	if opts.TopK <= 0 {
		opts.TopK = 2
	}
	if opts.PersistTimeout <= 0 {
		opts.PersistTimeout = 10 * time.Second
	}
	return &RequestService{
		Companies:   companies,
		Services:    services,
		Store:       store,
		Transcriber: transcriber,
		Retriever:   retriever,
		Generator:   generator,
		Policy:      policy,
		Options:     opts,
		Now:         func() time.Time { return time.Now().UTC() },
	}
}

// target 请求解析出的公司与服务
type target struct {
	company *model.User
	service *model.CompanyService
	scope   model.ServiceScope
}

func (s *RequestService) Resolve(ctx context.Context, requester Requester, companyName, category string, input RequestInput) (*Outcome, error) {
	createdAt := s.Now()

	ctx, span := tracing.StartSpan(ctx, "pipeline.resolve",
		attribute.String("company", companyName),
		attribute.String("category", category),
	)
	outcome, err := s.resolve(ctx, requester, companyName, category, input, createdAt)
	tracing.EndSpan(span, err)
	return outcome, err
}

func (s *RequestService) resolve(ctx context.Context, requester Requester, companyName, category string, input RequestInput, createdAt time.Time) (*Outcome, error) {
	if requester.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: only users can submit requests", util.ErrForbidden)
	}
	if err := validateInput(input); err != nil {
		return nil, err
	}

	tgt, err := s.lookupTarget(ctx, companyName, category)
	if err != nil {
		return nil, err
	}

	interaction := &model.ServiceInteraction{
		UserID:              requester.UserID,
		UserEmail:           requester.Email,
		ServiceCategory:     tgt.service.ServiceCategory,
		BusinessPhoneNumber: tgt.scope.CompanyKey,
		CreatedAt:           createdAt,
	}

	query, err := s.normalizeInput(ctx, input, interaction)
	if err != nil {
		return nil, err
	}
	interaction.RequestContent = query

	// 以下分支都必须落库恰好一条记录
	snippets, err := s.search(ctx, query, tgt.scope)
	if err != nil || len(snippets) == 0 {
		return s.fallback(ctx, interaction, tgt, model.FallbackNoContext, err)
	}

	segments, err := s.generate(ctx, GenerationRequest{
		Category: tgt.service.ServiceCategory,
		Query:    query,
		Context:  joinSnippets(snippets),
	})
	if err != nil {
		return s.fallback(ctx, interaction, tgt, model.FallbackGenerationFailed, err)
	}

	generated := ParseGeneratedOutput(NormalizeSegments(segments))
	if strings.TrimSpace(generated.Raw) == "" {
		return s.fallback(ctx, interaction, tgt, model.FallbackGenerationFailed, errors.New("empty generation output"))
	}
	if generated.Parsed && generated.Answer == "" {
		return s.fallback(ctx, interaction, tgt, model.FallbackLowConfidence, errors.New("answer field is empty"))
	}
	// 短语匹配覆盖模型的完整原始输出，不只是 answer 字段
	if phrase, ok := s.Policy.Match(generated.Raw); ok {
		return s.fallback(ctx, interaction, tgt, model.FallbackLowConfidence, fmt.Errorf("matched phrase %q", phrase))
	}

	completedAt := s.Now()
	if completedAt.Before(createdAt) {
		completedAt = createdAt
	}
	raw := generated.Raw
	interaction.Status = model.StatusCompleted
	interaction.ResponseContent = &raw
	interaction.CompletedAt = &completedAt

	if err := s.persist(ctx, interaction); err != nil {
		return nil, err
	}

	monitoring.ObserveOutcome(string(OutcomeAnswered), "")
	s.notify(requester.UserID, EventInteractionCompleted, interaction)

	return &Outcome{
		Kind:        OutcomeAnswered,
		Answer:      generated.DisplayAnswer(),
		Interaction: interaction,
	}, nil
}

func validateInput(input RequestInput) error {
	hasAudio := input.Audio != nil
	hasText := input.Text != nil
	switch {
	case hasAudio && hasText:
		return fmt.Errorf("%w: provide either audio or request_text, not both", util.ErrValidation)
	case !hasAudio && !hasText:
		return fmt.Errorf("%w: audio or request_text is required", util.ErrValidation)
	case hasAudio && len(input.Audio) == 0:
		return fmt.Errorf("%w: audio is empty", util.ErrValidation)
	case hasText && strings.TrimSpace(*input.Text) == "":
		return fmt.Errorf("%w: request_text is empty", util.ErrValidation)
	}
	return nil
}

func (s *RequestService) lookupTarget(ctx context.Context, companyName, category string) (*target, error) {
	companyName = strings.TrimSpace(companyName)
	if companyName == "" || strings.TrimSpace(category) == "" {
		return nil, fmt.Errorf("%w: company_name and service_category are required", util.ErrValidation)
	}

	company, err := s.Companies.FindCompanyByName(ctx, companyName)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: company %q", util.ErrNotFound, companyName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find company: %v", util.ErrStore, err)
	}

	scope := model.NewServiceScope(company.BusinessPhoneNumber, category)
	svc, err := s.Services.FindByScope(ctx, scope)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: service %q for company %q", util.ErrNotFound, category, companyName)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find service: %v", util.ErrStore, err)
	}

	return &target{company: company, service: svc, scope: scope}, nil
}

func (s *RequestService) normalizeInput(ctx context.Context, input RequestInput, interaction *model.ServiceInteraction) (string, error) {
	if input.Text != nil {
		interaction.RequestType = model.RequestText
		return strings.TrimSpace(*input.Text), nil
	}

	interaction.RequestType = model.RequestAudio

	ctx, span := tracing.StartSpan(ctx, "provider.transcribe")
	start := time.Now()
	result, err := s.Transcriber.Transcribe(ctx, input.Audio, input.AudioFilename)
	monitoring.ObserveProvider("transcription", start, err)
	tracing.EndSpan(span, err)

	if err != nil {
		if errors.Is(err, util.ErrValidation) || errors.Is(err, util.ErrProvider) {
			return "", err
		}
		return "", fmt.Errorf("%w: transcription: %v", util.ErrProvider, err)
	}

	text := ""
	if result != nil {
		text = strings.TrimSpace(result.Text)
	}
	if text == "" {
		return "", fmt.Errorf("%w: transcription produced no text", util.ErrValidation)
	}

	s.archiveAudio(ctx, input, interaction)
	return text, nil
}

// archiveAudio 归档失败不影响请求结果
func (s *RequestService) archiveAudio(ctx context.Context, input RequestInput, interaction *model.ServiceInteraction) {
	if !s.Options.ArchiveAudio || !s.Storage.Enabled() {
		return
	}
	ext := util.AudioExtension(input.AudioFilename)
	url, err := s.Storage.Upload(ctx, NewKey("audio", ext), bytes.NewReader(input.Audio), int64(len(input.Audio)), util.DetectMimeType(input.Audio))
	if err != nil {
		logger.Log.Warn("Audio archive failed", zap.Error(err), zap.String("user", interaction.UserEmail))
		return
	}
	interaction.AudioURL = &url
}

func (s *RequestService) search(ctx context.Context, query string, scope model.ServiceScope) ([]Snippet, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.retrieve", attribute.String("collection", scope.Collection()))
	start := time.Now()
	snippets, err := s.Retriever.Search(ctx, query, scope, s.Options.TopK)
	monitoring.ObserveProvider("retrieval", start, err)
	tracing.EndSpan(span, err)
	return snippets, err
}

func (s *RequestService) generate(ctx context.Context, req GenerationRequest) ([]string, error) {
	ctx, span := tracing.StartSpan(ctx, "provider.generate")
	start := time.Now()
	segments, err := s.Generator.Generate(ctx, req)
	monitoring.ObserveProvider("generation", start, err)
	tracing.EndSpan(span, err)
	return segments, err
}

// joinSnippets 保持检索返回的顺序
func joinSnippets(snippets []Snippet) string {
	texts := make([]string, len(snippets))
	for i, sn := range snippets {
		texts[i] = sn.Text
	}
	return strings.Join(texts, "\n\n")
}

// fallback 转人工：落库 pending 记录并通知公司
func (s *RequestService) fallback(ctx context.Context, interaction *model.ServiceInteraction, tgt *target, reason model.FallbackReason, cause error) (*Outcome, error) {
	interaction.Status = model.StatusPending
	interaction.ResponseContent = nil
	interaction.CompletedAt = nil
	interaction.FallbackReason = &reason

	if err := s.persist(ctx, interaction); err != nil {
		return nil, err
	}

	fields := []zap.Field{
		zap.Uint("interactionId", interaction.ID),
		zap.String("reason", string(reason)),
		zap.String("collection", tgt.scope.Collection()),
	}
	if cause != nil {
		fields = append(fields, zap.NamedError("cause", cause))
	}
	logger.Log.Info("Request deferred to human review", fields...)

	monitoring.ObserveOutcome(string(OutcomePending), string(reason))
	s.notify(tgt.company.ID, EventInteractionPending, interaction)

	return &Outcome{Kind: OutcomePending, Reason: reason, Interaction: interaction}, nil
}

// persist 脱离调用方的取消信号，调用方超时或断开也要写完
func (s *RequestService) persist(ctx context.Context, interaction *model.ServiceInteraction) error {
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.Options.PersistTimeout)
	defer cancel()

	if err := s.Store.Create(storeCtx, interaction); err != nil {
		logger.Log.Error("Persist interaction failed", zap.Error(err), zap.String("user", interaction.UserEmail))
		if errors.Is(err, util.ErrStore) {
			return err
		}
		return fmt.Errorf("%w: %v", util.ErrStore, err)
	}
	return nil
}

func (s *RequestService) notify(userID uint, eventType string, interaction *model.ServiceInteraction) {
	if s.Notifier == nil || userID == 0 {
		return
	}
	s.Notifier.PushToUsers([]uint{userID}, WSMessage{Type: eventType, Data: interaction})
}
