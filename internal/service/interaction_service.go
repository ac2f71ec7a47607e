package service

import (
	"context"
	"errors"
	"fmt"
	"solveit_backend/internal/model"
	"solveit_backend/internal/repository"
	"solveit_backend/internal/util"
	"solveit_backend/pkg/logger"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DateRange 按天过滤，下界含当天 00:00 UTC，上界为结束日期次日 00:00 UTC（不含）
type DateRange struct {
	From   *time.Time
	Before *time.Time
}

// ParseDateRange 接受 YYYY-MM-DD，两端均可省略
func ParseDateRange(startDate, endDate string) (DateRange, error) {
	var r DateRange
	if startDate = strings.TrimSpace(startDate); startDate != "" {
		start, err := time.ParseInLocation(util.DateFormat, startDate, time.UTC)
		if err != nil {
			return r, fmt.Errorf("%w: start_date must be YYYY-MM-DD", util.ErrValidation)
		}
		r.From = &start
	}
	if endDate = strings.TrimSpace(endDate); endDate != "" {
		end, err := time.ParseInLocation(util.DateFormat, endDate, time.UTC)
		if err != nil {
			return r, fmt.Errorf("%w: end_date must be YYYY-MM-DD", util.ErrValidation)
		}
		before := end.AddDate(0, 0, 1)
		r.Before = &before
	}
	if r.From != nil && r.Before != nil && !r.From.Before(*r.Before) {
		return r, fmt.Errorf("%w: end_date is before start_date", util.ErrValidation)
	}
	return r, nil
}

type UserFinder interface {
	FindByID(ctx context.Context, id uint) (*model.User, error)
}

type InteractionRepo interface {
	FindByID(ctx context.Context, id uint) (*model.ServiceInteraction, error)
	List(ctx context.Context, filter repository.InteractionFilter) ([]model.ServiceInteraction, error)
	Complete(ctx context.Context, id uint, response string, completedAt time.Time) (*model.ServiceInteraction, error)
}

// InteractionService 交互记录查询与人工回复
type InteractionService struct {
	Users        UserFinder
	Interactions InteractionRepo
	Notifier     Notifier
	Mailer       Mailer
	Now          func() time.Time
}

func NewInteractionService(users UserFinder, interactions InteractionRepo, notifier Notifier, mailer Mailer) *InteractionService {
	if mailer == nil {
		mailer = NoopMailer{}
	}
	return &InteractionService{
		Users:        users,
		Interactions: interactions,
		Notifier:     notifier,
		Mailer:       mailer,
		Now:          func() time.Time { return time.Now().UTC() },
	}
}

func (s *InteractionService) ListForUser(ctx context.Context, requester Requester, r DateRange, pendingOnly bool) ([]model.ServiceInteraction, error) {
	if requester.Role != model.RoleUser {
		return nil, fmt.Errorf("%w: only users can view their requests", util.ErrForbidden)
	}
	filter := repository.InteractionFilter{
		UserEmail:     requester.Email,
		CreatedFrom:   r.From,
		CreatedBefore: r.Before,
	}
	if pendingOnly {
		filter.Status = model.StatusPending
	}
	return s.Interactions.List(ctx, filter)
}

func (s *InteractionService) ListForCompany(ctx context.Context, requester Requester, r DateRange, pendingOnly bool) ([]model.ServiceInteraction, error) {
	company, err := s.company(ctx, requester)
	if err != nil {
		return nil, err
	}
	filter := repository.InteractionFilter{
		CompanyKey:    company.CompanyKey(),
		CreatedFrom:   r.From,
		CreatedBefore: r.Before,
	}
	if pendingOnly {
		filter.Status = model.StatusPending
	}
	return s.Interactions.List(ctx, filter)
}

// Respond 人工回复 pending 记录，只能处理本公司的记录
func (s *InteractionService) Respond(ctx context.Context, requester Requester, id uint, content string) (*model.ServiceInteraction, error) {
	company, err := s.company(ctx, requester)
	if err != nil {
		return nil, err
	}

	existing, err := s.Interactions.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if existing.BusinessPhoneNumber != company.CompanyKey() {
		return nil, fmt.Errorf("%w: interaction %d", util.ErrNotFound, id)
	}

	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: response_content cannot be empty", util.ErrValidation)
	}
	if existing.Status == model.StatusCompleted {
		return nil, fmt.Errorf("%w: interaction %d", util.ErrAlreadyCompleted, id)
	}

	completedAt := s.Now()
	if completedAt.Before(existing.CreatedAt) {
		completedAt = existing.CreatedAt
	}
	updated, err := s.Interactions.Complete(ctx, id, content, completedAt)
	if err != nil {
		return nil, err
	}
	logger.Log.Info("Interaction completed by company",
		zap.Uint("interactionId", id),
		zap.String("company", requester.Email),
	)

	if s.Notifier != nil && updated.UserID != 0 {
		s.Notifier.PushToUsers([]uint{updated.UserID}, WSMessage{Type: EventInteractionCompleted, Data: updated})
	}
	s.sendAnsweredMail(ctx, updated)

	return updated, nil
}

func (s *InteractionService) sendAnsweredMail(ctx context.Context, interaction *model.ServiceInteraction) {
	if interaction.ResponseContent == nil {
		return
	}
	subject := fmt.Sprintf("Your Request #%d Has Been Answered", interaction.ID)
	body := fmt.Sprintf("Dear User,\n\nYour service request has been processed.\n\nYour Request:\n%s\n\nOur Response:\n%s\n\nBest regards,\nSolveIT Support Team",
		interaction.RequestContent, *interaction.ResponseContent)

	// 答复已提交，邮件不随请求取消
	if err := s.Mailer.Send(context.WithoutCancel(ctx), interaction.UserEmail, subject, body); err != nil {
		logger.Log.Error("Failed to send notification email", zap.Error(err), zap.Uint("interactionId", interaction.ID))
	}
}

func (s *InteractionService) company(ctx context.Context, requester Requester) (*model.User, error) {
	if requester.Role != model.RoleCompany {
		return nil, fmt.Errorf("%w: only companies can access this endpoint", util.ErrForbidden)
	}
	company, err := s.Users.FindByID(ctx, requester.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: company account", util.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: find company: %v", util.ErrStore, err)
	}
	return company, nil
}
