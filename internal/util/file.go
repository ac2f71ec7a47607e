package util

import (
	"errors"
	"net/http"
	"path/filepath"
	"strings"
)

// DetectMimeType 按内容嗅探 MIME 类型
func DetectMimeType(data []byte) string {
	n := len(data)
	if n > 512 {
		n = 512
	}
	return http.DetectContentType(data[:n])
}

// ValidateMimeType 校验内容类型是否在允许列表中
// allowedTypes: 允许的 MIME 前缀或完整类型，如 "audio/", "application/pdf"
func ValidateMimeType(data []byte, allowedTypes []string) (string, error) {
	mimeType := DetectMimeType(data)

	for _, allowed := range allowedTypes {
		if strings.HasPrefix(mimeType, allowed) || mimeType == allowed {
			return mimeType, nil
		}
	}

	return mimeType, errors.New("invalid file type: " + mimeType)
}

// IsPDF 检测是否为 PDF
func IsPDF(data []byte) bool {
	return DetectMimeType(data) == MimePDF
}

// AudioExtension 返回允许的音频扩展名，未知时默认 .webm
func AudioExtension(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	for _, allowed := range AllowedAudioExtensions {
		if ext == allowed {
			return ext
		}
	}
	return ".webm"
}
