package model

import (
	"errors"
	"time"

	"gorm.io/gorm"
)

type InteractionStatus string

const (
	StatusPending   InteractionStatus = "pending"
	StatusCompleted InteractionStatus = "completed"
)

type RequestType string

const (
	RequestAudio RequestType = "audio"
	RequestText  RequestType = "text"
)

// FallbackReason 转人工的原因
type FallbackReason string

const (
	FallbackNoContext        FallbackReason = "no_context"
	FallbackGenerationFailed FallbackReason = "generation_failed"
	FallbackLowConfidence    FallbackReason = "low_confidence"
)

// ServiceInteraction 一次用户请求及其处理结果的审计记录
// status 只允许 pending -> completed；completed 为终态
type ServiceInteraction struct {
	ID                  uint              `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID              uint              `gorm:"index" json:"user_id"`
	UserEmail           string            `gorm:"size:100;not null;index" json:"user_email"`
	ServiceCategory     string            `gorm:"size:100" json:"service_category"`
	BusinessPhoneNumber string            `gorm:"size:32;index" json:"business_phone_number"`
	RequestType         RequestType       `gorm:"size:16;default:'text'" json:"request_type"`
	RequestContent      string            `gorm:"type:text;not null" json:"request_content"`
	ResponseContent     *string           `gorm:"type:text" json:"response_content"`
	Status              InteractionStatus `gorm:"size:16;not null;default:'pending';index" json:"status"`
	FallbackReason      *FallbackReason   `gorm:"size:32" json:"fallback_reason,omitempty"`
	AudioURL            *string           `gorm:"size:512" json:"audio_url,omitempty"`
	CreatedAt           time.Time         `gorm:"index" json:"created_at"`
	CompletedAt         *time.Time        `json:"completed_at"`
}

func (ServiceInteraction) TableName() string {
	return "service_interactions"
}

var (
	errResponseWithoutCompletion = errors.New("response_content set on a non-completed interaction")
	errCompletionWithoutResponse = errors.New("completed interaction without response_content")
	errCompletedAtMismatch       = errors.New("completed_at must be set iff status is completed")
	errCompletedBeforeCreated    = errors.New("completed_at precedes created_at")
	errUnknownStatus             = errors.New("unknown interaction status")
	errEmptyRequest              = errors.New("request_content is empty")
)

// Validate 校验记录的状态不变量
func (i *ServiceInteraction) Validate() error {
	if i.RequestContent == "" {
		return errEmptyRequest
	}
	switch i.Status {
	case StatusPending:
		if i.ResponseContent != nil {
			return errResponseWithoutCompletion
		}
		if i.CompletedAt != nil {
			return errCompletedAtMismatch
		}
	case StatusCompleted:
		if i.ResponseContent == nil {
			return errCompletionWithoutResponse
		}
		if i.CompletedAt == nil {
			return errCompletedAtMismatch
		}
		if i.CompletedAt.Before(i.CreatedAt) {
			return errCompletedBeforeCreated
		}
	default:
		return errUnknownStatus
	}
	return nil
}

// BeforeCreate 入库前拒绝不满足不变量的记录
func (i *ServiceInteraction) BeforeCreate(tx *gorm.DB) error {
	return i.Validate()
}
