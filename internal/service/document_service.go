package service

import (
	"bytes"
	"fmt"
	"solveit_backend/internal/config"
	"strings"
	"unicode/utf8"

	"github.com/ledongthuc/pdf"
)

// Chunker 按字符切分文本，相邻片段按比例重叠
type Chunker struct {
	Size      int
	Overlap   float64
	MinLength int
}

func NewChunker(cfg config.RetrievalConfig) Chunker {
	return Chunker{Size: cfg.ChunkSize, Overlap: cfg.ChunkOverlap, MinLength: cfg.MinChunkLength}
}

// Split 过短的片段被丢弃
func (c Chunker) Split(text string) []string {
	runes := []rune(strings.TrimSpace(text))
	if len(runes) == 0 {
		return nil
	}

	size := c.Size
	if size <= 0 {
		size = 1024
	}
	step := int(float64(size) * (1 - c.Overlap))
	if step <= 0 {
		step = size
	}

	var chunks []string
	for start := 0; start < len(runes); start += step {
		end := start + size
		if end > len(runes) {
			end = len(runes)
		}
		chunk := strings.TrimSpace(string(runes[start:end]))
		if utf8.RuneCountInString(chunk) >= c.MinLength {
			chunks = append(chunks, chunk)
		}
		if end == len(runes) {
			break
		}
	}
	return chunks
}

// SplitPages 每页单独切分，片段不跨页
func (c Chunker) SplitPages(pages []string) []string {
	var chunks []string
	for _, page := range pages {
		chunks = append(chunks, c.Split(page)...)
	}
	return chunks
}

// ExtractPDFPages 逐页提取纯文本，跳过空白页
func ExtractPDFPages(data []byte) ([]string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return nil, fmt.Errorf("open pdf: %w", err)
	}

	var pages []string
	for i := 1; i <= reader.NumPage(); i++ {
		page := reader.Page(i)
		if page.V.IsNull() {
			continue
		}
		text, err := page.GetPlainText(nil)
		if err != nil {
			return nil, fmt.Errorf("read pdf page %d: %w", i, err)
		}
		if text = strings.TrimSpace(text); text != "" {
			pages = append(pages, text)
		}
	}
	return pages, nil
}
