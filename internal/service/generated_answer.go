package service

import (
	"encoding/json"
	"strings"
)

// UnparsedAnswer 模型输出无法解析为 JSON 时返回给用户的固定文案
const UnparsedAnswer = "Sorry, I could not parse the response from the AI model."

// GeneratedAnswer 模型输出的解析结果，Parsed 为 false 时 Answer 为原文
type GeneratedAnswer struct {
	Raw    string
	Answer string
	Parsed bool
}

// DisplayAnswer 面向用户的答案
func (g GeneratedAnswer) DisplayAnswer() string {
	if !g.Parsed {
		return UnparsedAnswer
	}
	return g.Answer
}

// NormalizeSegments 单段直接取出，多段按顺序拼接
func NormalizeSegments(segments []string) string {
	if len(segments) == 1 {
		return segments[0]
	}
	return strings.Join(segments, "")
}

// ParseGeneratedOutput 期望 {"answer": "..."}，允许外层包裹 ```json 代码块
func ParseGeneratedOutput(raw string) GeneratedAnswer {
	body := stripCodeFence(strings.TrimSpace(raw))

	var payload struct {
		Answer json.RawMessage `json:"answer"`
	}
	if err := json.Unmarshal([]byte(body), &payload); err != nil {
		return GeneratedAnswer{Raw: raw, Answer: raw}
	}

	return GeneratedAnswer{Raw: raw, Answer: answerText(payload.Answer), Parsed: true}
}

// answerText answer 字段不是字符串时保留其 JSON 文本
func answerText(v json.RawMessage) string {
	if len(v) == 0 || string(v) == "null" {
		return ""
	}
	var s string
	if err := json.Unmarshal(v, &s); err == nil {
		return strings.TrimSpace(s)
	}
	return string(v)
}

func stripCodeFence(s string) string {
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.TrimPrefix(s, "```")
	if nl := strings.IndexByte(s, '\n'); nl >= 0 {
		s = s[nl+1:]
	}
	return strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(s), "```"))
}
