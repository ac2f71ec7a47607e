package util

const (
	DateFormat = "2006-01-02"
	TimeFormat = "2006-01-02 15:04:05"
)

const (
	StorageLocal = "local"
	StorageMinio = "minio"
	StorageOSS   = "oss"
	StorageNone  = "none"
)

// 文件上传相关常量
const (
	MimeAudio       = "audio/"
	MimeVideoWebm   = "video/webm"
	MimePDF         = "application/pdf"
	MimeOctetStream = "application/octet-stream"
)

// PendingReviewMessage 转人工时返回给用户的提示
const PendingReviewMessage = "Your request was submitted. Awaiting specialist review."

var (
	AllowedAudioExtensions = []string{".webm", ".wav", ".mp3", ".m4a", ".ogg", ".mp4", ".mpeg", ".mpga"}
)
