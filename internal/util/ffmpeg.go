package util

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"

	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// AudioInfo 音频元数据
type AudioInfo struct {
	Duration float64 `json:"duration"` // 秒
	Format   string  `json:"format"`
}

// ProbeAudio 将音频写入临时文件后用 ffprobe 读取时长
func ProbeAudio(data []byte, ext string) (*AudioInfo, error) {
	tmp, err := os.CreateTemp("", "solveit-audio-*"+ext)
	if err != nil {
		return nil, fmt.Errorf("create temp audio: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return nil, fmt.Errorf("write temp audio: %w", err)
	}
	tmp.Close()

	out, err := ffmpeg.Probe(tmp.Name())
	if err != nil {
		return nil, fmt.Errorf("probe audio: %w", err)
	}
	return parseProbeOutput(out)
}

func parseProbeOutput(out string) (*AudioInfo, error) {
	var result struct {
		Format struct {
			Duration string `json:"duration"`
			Format   string `json:"format_name"`
		} `json:"format"`
	}
	if err := json.Unmarshal([]byte(out), &result); err != nil {
		return nil, fmt.Errorf("parse probe output: %w", err)
	}

	duration, err := strconv.ParseFloat(result.Format.Duration, 64)
	if err != nil {
		duration = 0
	}

	return &AudioInfo{Duration: duration, Format: result.Format.Format}, nil
}

// FFprobeAvailable 检查 ffprobe 是否已安装
func FFprobeAvailable() bool {
	_, err := exec.LookPath("ffprobe")
	return err == nil
}
