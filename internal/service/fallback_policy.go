package service

import (
	"strings"
	"sync"
)

// FallbackPolicy 低置信度短语表，可在运行时替换
type FallbackPolicy struct {
	mu      sync.RWMutex
	phrases []string
}

func NewFallbackPolicy(phrases []string) *FallbackPolicy {
	p := &FallbackPolicy{}
	p.SetPhrases(phrases)
	return p
}

// SetPhrases 保持原有顺序，统一转小写，丢弃空串
func (p *FallbackPolicy) SetPhrases(phrases []string) {
	normalized := make([]string, 0, len(phrases))
	for _, phrase := range phrases {
		phrase = strings.ToLower(strings.TrimSpace(phrase))
		if phrase != "" {
			normalized = append(normalized, phrase)
		}
	}

	p.mu.Lock()
	p.phrases = normalized
	p.mu.Unlock()
}

func (p *FallbackPolicy) Phrases() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	out := make([]string, len(p.phrases))
	copy(out, p.phrases)
	return out
}

// Match 返回第一个命中的短语
func (p *FallbackPolicy) Match(text string) (string, bool) {
	lowered := strings.ToLower(text)

	p.mu.RLock()
	defer p.mu.RUnlock()
	for _, phrase := range p.phrases {
		if strings.Contains(lowered, phrase) {
			return phrase, true
		}
	}
	return "", false
}

func (p *FallbackPolicy) IsLowConfidence(text string) bool {
	_, ok := p.Match(text)
	return ok
}
