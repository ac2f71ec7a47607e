package service

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"solveit_backend/internal/config"
	"solveit_backend/internal/model"
	"solveit_backend/internal/repository"
	"solveit_backend/internal/util"
	"strings"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// RegisterInput 注册表单，公司需要域名和业务电话
type RegisterInput struct {
	FullName            string `json:"full_name" binding:"required"`
	Email               string `json:"email" binding:"required"`
	Password            string `json:"password" binding:"required"`
	UserPhoneNumber     string `json:"user_phone_number"`
	Domain              string `json:"domain"`
	BusinessPhoneNumber string `json:"business_phone_number"`
}

type AuthService struct {
	UserRepo *repository.UserRepository
	Cfg      *config.Config
}

func NewAuthService(userRepo *repository.UserRepository, cfg *config.Config) *AuthService {
	return &AuthService{
		UserRepo: userRepo,
		Cfg:      cfg,
	}
}

func (s *AuthService) Register(ctx context.Context, role model.UserRole, in RegisterInput) (*model.User, error) {
	user := &model.User{
		FullName: strings.TrimSpace(in.FullName),
		Email:    strings.ToLower(strings.TrimSpace(in.Email)),
		Role:     role,
	}
	if user.FullName == "" {
		return nil, fmt.Errorf("%w: full_name is required", util.ErrValidation)
	}
	if _, err := mail.ParseAddress(user.Email); err != nil {
		return nil, fmt.Errorf("%w: email is invalid", util.ErrValidation)
	}
	if len(in.Password) < 6 {
		return nil, fmt.Errorf("%w: password must be at least 6 characters", util.ErrValidation)
	}

	switch role {
	case model.RoleUser:
		user.UserPhoneNumber = strings.TrimSpace(in.UserPhoneNumber)
	case model.RoleCompany:
		user.Domain = strings.TrimSpace(in.Domain)
		user.BusinessPhoneNumber = strings.TrimSpace(in.BusinessPhoneNumber)
		if user.BusinessPhoneNumber == "" {
			return nil, fmt.Errorf("%w: business_phone_number is required", util.ErrValidation)
		}
		if user.CompanyKey() == "" {
			return nil, fmt.Errorf("%w: business_phone_number is invalid", util.ErrValidation)
		}
	default:
		return nil, fmt.Errorf("%w: unknown role %q", util.ErrValidation, role)
	}

	if role == model.RoleCompany {
		_, err := s.UserRepo.FindCompanyByName(ctx, user.FullName)
		if err == nil {
			return nil, util.ErrCompanyNameTaken
		} else if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: %v", util.ErrStore, err)
		}
	}

	_, err := s.UserRepo.FindByEmail(ctx, user.Email)
	if err == nil {
		return nil, util.ErrEmailRegistered
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: %v", util.ErrStore, err)
	}

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(in.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, err
	}
	user.Password = string(hashedPassword)

	if err := s.UserRepo.Create(ctx, user); err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStore, err)
	}
	return user, nil
}

// Login 返回 token 和用户信息
func (s *AuthService) Login(ctx context.Context, email, password string) (string, *model.User, error) {
	user, err := s.UserRepo.FindByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		return "", nil, util.ErrInvalidCredential
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.Password), []byte(password)); err != nil {
		return "", nil, util.ErrInvalidCredential
	}

	token, err := util.GenerateJWT(user, s.Cfg.JWT.Secret, s.Cfg.JWT.ExpireTime)
	if err != nil {
		return "", nil, err
	}
	return token, user, nil
}

func (s *AuthService) CurrentUser(ctx context.Context, claims *util.Claims) (*model.User, error) {
	if claims == nil {
		return nil, fmt.Errorf("%w: missing claims", util.ErrInvalidCredential)
	}
	user, err := s.UserRepo.FindByID(ctx, claims.UserID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%w: user %d", util.ErrNotFound, claims.UserID)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %v", util.ErrStore, err)
	}
	return user, nil
}
