package controller

import (
	"io"
	"net/http"
	"solveit_backend/internal/service"
	"solveit_backend/internal/util"

	"github.com/gin-gonic/gin"
)

// maxAudioBytes 单次上传的音频上限
const maxAudioBytes = 25 << 20

type TranscriptionController struct {
	Transcriber service.Transcriber
}

func NewTranscriptionController(transcriber service.Transcriber) *TranscriptionController {
	return &TranscriptionController{Transcriber: transcriber}
}

// Transcribe godoc
// @Summary 语音转文字
// @Description 请求体为原始音频字节，返回转写文本与识别出的语言
// @Tags 语音
// @Accept  octet-stream
// @Produce  json
// @Security ApiKeyAuth
// @Param   filename query string false "原始文件名，用于推断格式"
// @Success 200 {object} util.Response{data=service.Transcription}
// @Failure 400 {object} util.Response "音频为空或过长"
// @Failure 502 {object} util.Response "转写服务失败"
// @Router /transcribe [post]
func (c *TranscriptionController) Transcribe(ctx *gin.Context) {
	body, err := io.ReadAll(http.MaxBytesReader(ctx.Writer, ctx.Request.Body, maxAudioBytes))
	if err != nil {
		util.BadRequest(ctx, "Failed to read audio body")
		return
	}
	if len(body) == 0 {
		util.BadRequest(ctx, "Audio body is empty")
		return
	}

	filename := ctx.DefaultQuery("filename", "audio.wav")
	result, err := c.Transcriber.Transcribe(ctx.Request.Context(), body, filename)
	if err != nil {
		util.HandleError(ctx, err)
		return
	}

	util.Success(ctx, result)
}
