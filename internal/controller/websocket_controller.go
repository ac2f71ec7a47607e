package controller

import (
	"solveit_backend/internal/service"
	"solveit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

type WebSocketController struct {
	Hub *service.NotificationHub
}

func NewWebSocketController(hub *service.NotificationHub) *WebSocketController {
	return &WebSocketController{Hub: hub}
}

// CompanyUpdates godoc
// @Summary 公司端实时推送
// @Description 新的待审核请求以 INTERACTION_PENDING 事件推送
// @Tags 实时推送
// @Param   token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/company-dashboard/updates [get]
func (ctrl *WebSocketController) CompanyUpdates(c *gin.Context) {
	ctrl.serve(c)
}

// UserUpdates godoc
// @Summary 用户端实时推送
// @Description 请求得到答复时以 INTERACTION_COMPLETED 事件推送
// @Tags 实时推送
// @Param   token query string true "JWT Token"
// @Success 101 {string} string "Switching Protocols"
// @Router /ws/user-dashboard/updates [get]
func (ctrl *WebSocketController) UserUpdates(c *gin.Context) {
	ctrl.serve(c)
}

func (ctrl *WebSocketController) serve(c *gin.Context) {
	claims := util.GetUserFromContext(c)
	if claims == nil {
		util.Unauthorized(c)
		return
	}
	ctrl.Hub.ServeWs(c.Writer, c.Request, claims.UserID)
}
