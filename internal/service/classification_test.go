package service

import (
	"fmt"
	"solveit_backend/internal/config"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFallbackPolicy_Match(t *testing.T) {
	p := NewFallbackPolicy(config.DefaultFallbackPhrases)

	cases := map[string]bool{
		"I'm sorry, I couldn't find the answer to that question.": true,
		"That is NOT AVAILABLE IN THE DOCUMENTS.":                 true,
		"We cannot find your order":                               true,
		"Our office is open 9 to 5.":                              false,
		"Sorry, something went wrong":                             false,
		"":                                                        false,
	}
	for text, want := range cases {
		assert.Equal(t, want, p.IsLowConfidence(text), text)
		// 重复判定结果一致
		assert.Equal(t, p.IsLowConfidence(text), p.IsLowConfidence(text), text)
	}

	phrase, ok := p.Match("I'm sorry, I couldn't find the answer")
	assert.True(t, ok)
	assert.Equal(t, "i couldn't find the answer", phrase)
}

func TestFallbackPolicy_SetPhrases(t *testing.T) {
	p := NewFallbackPolicy([]string{"  Escalate  ", ""})
	assert.Equal(t, []string{"escalate"}, p.Phrases())
	assert.True(t, p.IsLowConfidence("please ESCALATE this"))

	p.SetPhrases([]string{"unknown"})
	assert.False(t, p.IsLowConfidence("please escalate this"))
}

func TestFallbackPolicy_ConcurrentReload(t *testing.T) {
	p := NewFallbackPolicy(config.DefaultFallbackPhrases)

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			p.SetPhrases([]string{fmt.Sprintf("phrase-%d", i), "i'm sorry"})
		}(i)
		go func() {
			defer wg.Done()
			assert.True(t, p.IsLowConfidence("I'm sorry"))
		}()
	}
	wg.Wait()
}

func TestNormalizeSegments(t *testing.T) {
	assert.Equal(t, "only", NormalizeSegments([]string{"only"}))
	assert.Equal(t, "ab", NormalizeSegments([]string{"a", "b"}))
	assert.Equal(t, "", NormalizeSegments(nil))
}

func TestParseGeneratedOutput(t *testing.T) {
	cases := []struct {
		name    string
		raw     string
		parsed  bool
		answer  string
		display string
	}{
		{"object", `{"answer": "Open 9-5"}`, true, "Open 9-5", "Open 9-5"},
		{"fenced", "```json\n{\"answer\": \"Open 9-5\"}\n```", true, "Open 9-5", "Open 9-5"},
		{"missing field", `{"reply": "x"}`, true, "", ""},
		{"non-string answer", `{"answer": 42}`, true, "42", "42"},
		{"plain text", "Sorry, something went wrong", false, "Sorry, something went wrong", UnparsedAnswer},
		{"truncated", `{"answer": "Open`, false, `{"answer": "Open`, UnparsedAnswer},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := ParseGeneratedOutput(tc.raw)
			assert.Equal(t, tc.raw, got.Raw)
			assert.Equal(t, tc.parsed, got.Parsed)
			assert.Equal(t, tc.answer, got.Answer)
			assert.Equal(t, tc.display, got.DisplayAnswer())
		})
	}
}
