package controller

import (
	"solveit_backend/internal/service"
	"solveit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type UserDashboardController struct {
	RequestService     *service.RequestService
	InteractionService *service.InteractionService
	RegistryService    *service.RegistryService
}

func NewUserDashboardController(requestService *service.RequestService, interactionService *service.InteractionService, registryService *service.RegistryService) *UserDashboardController {
	return &UserDashboardController{
		RequestService:     requestService,
		InteractionService: interactionService,
		RegistryService:    registryService,
	}
}

// UserRequest godoc
// @Summary 提交服务请求
// @Description audio 与 request_text 二选一。能自动答复时返回 answer，否则转人工并返回 message
// @Tags 用户面板
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   company_name formData string true "公司名称"
// @Param   service_category formData string true "服务类别"
// @Param   audio formData file false "语音请求"
// @Param   request_text formData string false "文字请求"
// @Success 200 {object} util.Response{data=object} "answer 或 message"
// @Failure 400 {object} util.Response "请求参数错误"
// @Failure 403 {object} util.Response "仅限普通用户"
// @Failure 404 {object} util.Response "公司或服务不存在"
// @Failure 502 {object} util.Response "语音转写失败"
// @Router /api/user-dashboard/user-request [post]
func (c *UserDashboardController) UserRequest(ctx *gin.Context) {
	requester := service.RequesterFromClaims(util.GetUserFromContext(ctx))

	var input service.RequestInput
	if text, ok := ctx.GetPostForm("request_text"); ok {
		input.Text = &text
	}

	if fileHeader, err := ctx.FormFile("audio"); err == nil {
		file, err := fileHeader.Open()
		if err != nil {
			util.BadRequest(ctx, "Failed to open audio file")
			return
		}
		defer file.Close()

		data, err := readUpload(file, maxAudioBytes)
		if err != nil {
			util.HandleError(ctx, err)
			return
		}
		input.Audio = data
		input.AudioFilename = fileHeader.Filename
	}

	outcome, err := c.RequestService.Resolve(
		ctx.Request.Context(),
		requester,
		ctx.PostForm("company_name"),
		ctx.PostForm("service_category"),
		input,
	)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, outcome.Body())
}

// GetAllServices godoc
// @Summary 服务目录
// @Description 按公司分组列出所有已登记的服务类别
// @Tags 用户面板
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.ServiceCatalogEntry}
// @Failure 404 {object} util.Response "暂无服务"
// @Router /api/user-dashboard/get-all-services [get]
func (c *UserDashboardController) GetAllServices(ctx *gin.Context) {
	catalog, err := c.RegistryService.Catalog(ctx.Request.Context())
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, catalog)
}

// Logs godoc
// @Summary 我的请求记录
// @Tags 用户面板
// @Produce  json
// @Security ApiKeyAuth
// @Param   start_date query string false "起始日期 YYYY-MM-DD"
// @Param   end_date query string false "结束日期 YYYY-MM-DD（含当天）"
// @Success 200 {object} util.Response{data=[]model.ServiceInteraction}
// @Failure 400 {object} util.Response "日期格式错误"
// @Router /api/user-dashboard/logs [get]
func (c *UserDashboardController) Logs(ctx *gin.Context) {
	c.list(ctx, false)
}

// PendingLogs godoc
// @Summary 我的待处理请求
// @Tags 用户面板
// @Produce  json
// @Security ApiKeyAuth
// @Param   start_date query string false "起始日期 YYYY-MM-DD"
// @Param   end_date query string false "结束日期 YYYY-MM-DD（含当天）"
// @Success 200 {object} util.Response{data=[]model.ServiceInteraction}
// @Router /api/user-dashboard/pending-logs [get]
func (c *UserDashboardController) PendingLogs(ctx *gin.Context) {
	c.list(ctx, true)
}

func (c *UserDashboardController) list(ctx *gin.Context, pendingOnly bool) {
	dateRange, err := service.ParseDateRange(ctx.Query("start_date"), ctx.Query("end_date"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	requester := service.RequesterFromClaims(util.GetUserFromContext(ctx))
	logs, err := c.InteractionService.ListForUser(ctx.Request.Context(), requester, dateRange, pendingOnly)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}
