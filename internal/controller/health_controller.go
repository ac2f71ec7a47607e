package controller

import (
	"context"
	"net/http"
	"solveit_backend/internal/config"
	"solveit_backend/internal/util"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/go-redis/redis/v8"
	"gorm.io/gorm"
)

// VectorStats 健康检查需要的向量库统计
type VectorStats interface {
	CollectionCount() int
}

type HealthController struct {
	DB      *gorm.DB
	Redis   *redis.Client
	Vectors VectorStats
	AI      config.AIConfig
}

func NewHealthController(db *gorm.DB, rdb *redis.Client, vectors VectorStats, ai config.AIConfig) *HealthController {
	return &HealthController{DB: db, Redis: rdb, Vectors: vectors, AI: ai}
}

// @Summary 健康检查
// @Description 数据库不可用时返回 503；Redis 不可用时降级为本地推送，状态为 degraded
// @Tags 系统
// @Produce json
// @Success 200 {object} util.Response
// @Failure 503 {object} util.Response "数据库不可用"
// @Router /api/health [get]
func (c *HealthController) HealthCheck(ctx *gin.Context) {
	sqlDB, err := c.DB.DB()
	if err != nil {
		util.LogInternalError(ctx, err)
		return
	}

	pingCtx, cancel := context.WithTimeout(ctx.Request.Context(), 2*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(pingCtx); err != nil {
		util.Error(ctx, http.StatusServiceUnavailable, "Database unavailable")
		return
	}

	status := "ok"
	redisState := "disabled"
	if c.Redis != nil {
		redisState = "up"
		if err := c.Redis.Ping(pingCtx).Err(); err != nil {
			redisState = "down"
			status = "degraded"
		}
	}

	components := gin.H{
		"database":  "up",
		"redis":     redisState,
		"providers": c.providers(),
	}
	if c.Vectors != nil {
		components["vector_store"] = gin.H{"collections": c.Vectors.CollectionCount()}
	}

	util.Success(ctx, gin.H{
		"status":     status,
		"components": components,
	})
}

// providers 只报告模型名和密钥是否配置，不回显密钥
func (c *HealthController) providers() gin.H {
	configured := func(keys ...string) bool {
		for _, k := range keys {
			if k != "" {
				return true
			}
		}
		return false
	}
	return gin.H{
		"generation":    gin.H{"model": c.AI.Model, "configured": configured(c.AI.APIKey)},
		"transcription": gin.H{"model": c.AI.TranscriptionModel, "configured": configured(c.AI.TranscriptionKey, c.AI.APIKey)},
		"embedding":     gin.H{"model": c.AI.EmbeddingModel, "configured": configured(c.AI.EmbeddingKey, c.AI.APIKey)},
	}
}
