package controller

import (
	"solveit_backend/internal/service"
	"solveit_backend/internal/util"
	"strconv"

	"github.com/gin-gonic/gin"
)

// maxDocumentBytes 知识文档上传上限
const maxDocumentBytes = 50 << 20

type CompanyDashboardController struct {
	RegistryService    *service.RegistryService
	InteractionService *service.InteractionService
}

func NewCompanyDashboardController(registryService *service.RegistryService, interactionService *service.InteractionService) *CompanyDashboardController {
	return &CompanyDashboardController{
		RegistryService:    registryService,
		InteractionService: interactionService,
	}
}

// UpdateResponseRequest 人工答复
// swagger:model UpdateResponseRequest
type UpdateResponseRequest struct {
	ResponseContent string `json:"response_content"`
}

// RegisterService godoc
// @Summary 登记服务
// @Description 上传 PDF 知识文档，文本分块后写入该服务类别的向量集合
// @Tags 公司面板
// @Accept  multipart/form-data
// @Produce  json
// @Security ApiKeyAuth
// @Param   service_category formData string true "服务类别"
// @Param   contact_email formData string false "联系邮箱"
// @Param   contact_phone formData string false "联系电话"
// @Param   file formData file true "PDF 文档"
// @Success 201 {object} util.Response{data=model.CompanyService}
// @Failure 400 {object} util.Response "文件缺失或不是 PDF"
// @Failure 403 {object} util.Response "仅限公司账号"
// @Failure 502 {object} util.Response "向量化失败"
// @Router /api/company-dashboard/register-service [post]
func (c *CompanyDashboardController) RegisterService(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		util.BadRequest(ctx, "PDF file is required")
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		util.BadRequest(ctx, "Failed to open uploaded file")
		return
	}
	defer file.Close()

	data, err := readUpload(file, maxDocumentBytes)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	requester := service.RequesterFromClaims(util.GetUserFromContext(ctx))
	svc, err := c.RegistryService.Register(ctx.Request.Context(), requester, service.RegisterServiceInput{
		Category:     ctx.PostForm("service_category"),
		ContactEmail: ctx.PostForm("contact_email"),
		ContactPhone: ctx.PostForm("contact_phone"),
		Filename:     fileHeader.Filename,
		Document:     data,
	})
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Created(ctx, svc)
}

// MyServices godoc
// @Summary 本公司已登记的服务
// @Tags 公司面板
// @Produce  json
// @Security ApiKeyAuth
// @Success 200 {object} util.Response{data=[]model.CompanyService}
// @Failure 404 {object} util.Response "尚未登记服务"
// @Router /api/company-dashboard/my-services [get]
func (c *CompanyDashboardController) MyServices(ctx *gin.Context) {
	requester := service.RequesterFromClaims(util.GetUserFromContext(ctx))
	services, err := c.RegistryService.MyServices(ctx.Request.Context(), requester)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, services)
}

// Logs godoc
// @Summary 本公司收到的请求记录
// @Tags 公司面板
// @Produce  json
// @Security ApiKeyAuth
// @Param   start_date query string false "起始日期 YYYY-MM-DD"
// @Param   end_date query string false "结束日期 YYYY-MM-DD（含当天）"
// @Success 200 {object} util.Response{data=[]model.ServiceInteraction}
// @Router /api/company-dashboard/logs [get]
func (c *CompanyDashboardController) Logs(ctx *gin.Context) {
	c.list(ctx, false)
}

// PendingLogs godoc
// @Summary 待人工审核的请求
// @Tags 公司面板
// @Produce  json
// @Security ApiKeyAuth
// @Param   start_date query string false "起始日期 YYYY-MM-DD"
// @Param   end_date query string false "结束日期 YYYY-MM-DD（含当天）"
// @Success 200 {object} util.Response{data=[]model.ServiceInteraction}
// @Router /api/company-dashboard/pending-logs [get]
func (c *CompanyDashboardController) PendingLogs(ctx *gin.Context) {
	c.list(ctx, true)
}

func (c *CompanyDashboardController) list(ctx *gin.Context, pendingOnly bool) {
	dateRange, err := service.ParseDateRange(ctx.Query("start_date"), ctx.Query("end_date"))
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	requester := service.RequesterFromClaims(util.GetUserFromContext(ctx))
	logs, err := c.InteractionService.ListForCompany(ctx.Request.Context(), requester, dateRange, pendingOnly)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}
	util.Success(ctx, logs)
}

// UpdateResponse godoc
// @Summary 人工答复待处理请求
// @Description pending -> completed，并通知请求用户
// @Tags 公司面板
// @Accept  json
// @Produce  json
// @Security ApiKeyAuth
// @Param   id path int true "请求记录 ID"
// @Param   body body UpdateResponseRequest true "答复内容"
// @Success 200 {object} util.Response
// @Failure 400 {object} util.Response "答复内容为空"
// @Failure 404 {object} util.Response "记录不存在"
// @Failure 409 {object} util.Response "已答复"
// @Router /api/company-dashboard/update-response/{id} [patch]
func (c *CompanyDashboardController) UpdateResponse(ctx *gin.Context) {
	id, err := strconv.ParseUint(ctx.Param("id"), 10, 64)
	if err != nil {
		util.BadRequest(ctx, "Invalid interaction id")
		return
	}

	var req UpdateResponseRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		util.BadRequest(ctx, err.Error())
		return
	}

	requester := service.RequesterFromClaims(util.GetUserFromContext(ctx))
	if _, err := c.InteractionService.Respond(ctx.Request.Context(), requester, uint(id), req.ResponseContent); err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, gin.H{"message": "Response submitted and user notified."})
}
