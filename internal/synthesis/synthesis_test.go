package synthesis

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nichefinder/nichefinder/internal/research"
)

const validJSON = `{
  "title": "Dog Walking Apps",
  "category": "Pet Services",
  "growth_score": 78,
  "pain_score": 65,
  "competition_score": 40,
  "ai_summary": "Owners struggle to find reliable walkers.",
  "signals": [
    {"source_type": "reddit", "content_snippet": "can't find a walker", "source_url": "https://reddit.com/r/dogs/1"},
    {"source_type": "youtube", "content_snippet": "side hustle video", "source_url": "https://youtube.com/watch?v=abc"},
    {"source_type": "google_trends", "content_snippet": "search interest rising", "source_url": "https://example.com/trend"}
  ]
}`

type stubLLM struct {
	response string
	err      error
	gotUser  string
}

func (s *stubLLM) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	s.gotUser = userPrompt
	return s.response, s.err
}

func sampleData() research.ResearchData {
	return research.ResearchData{
		Query: "dog walking app",
		Google: []research.WebResult{
			{Title: "Top dog walking startups", Snippet: "a roundup", Link: "https://example.com/roundup"},
		},
		Reddit: []research.WebResult{
			{Title: "Anyone else hate scheduling walkers?", Snippet: "so frustrating", Link: "https://reddit.com/r/dogs/1"},
		},
		YouTube: []research.VideoResult{
			{Title: "I built a dog walking app", ChannelTitle: "DevVlog", Description: "journey", VideoID: "abc123"},
		},
	}
}

func TestBuildPromptEmbedsAllSections(t *testing.T) {
	prompt := BuildPrompt(sampleData())
	assert.Contains(t, prompt, `"dog walking app"`)
	assert.Contains(t, prompt, `"Top dog walking startups" — a roundup (https://example.com/roundup)`)
	assert.Contains(t, prompt, `"Anyone else hate scheduling walkers?" — so frustrating (https://reddit.com/r/dogs/1)`)
	assert.Contains(t, prompt, `"I built a dog walking app" by DevVlog — journey (https://youtube.com/watch?v=abc123)`)
}

func TestBuildPromptStatesNoResultsForEmptySections(t *testing.T) {
	prompt := BuildPrompt(research.ResearchData{Query: "q"})
	assert.Equal(t, 3, strings.Count(prompt, "No results found."))
}

func TestBuildPromptCapsItemsAtFive(t *testing.T) {
	data := sampleData()
	data.Google = nil
	for i := 0; i < 8; i++ {
		data.Google = append(data.Google, research.WebResult{Title: "t", Snippet: "s", Link: "l"})
	}
	prompt := BuildPrompt(data)
	assert.Contains(t, prompt, "  5. ")
	assert.NotContains(t, prompt, "  6. ")
}

func TestParseAnalysisValid(t *testing.T) {
	analysis, err := ParseAnalysis(validJSON)
	require.NoError(t, err)
	assert.Equal(t, "Dog Walking Apps", analysis.Title)
	assert.Equal(t, 78, analysis.GrowthScore)
	assert.Len(t, analysis.Signals, 3)
}

func TestParseAnalysisStripsCodeFences(t *testing.T) {
	fenced := "```json\n" + validJSON + "\n```"
	analysis, err := ParseAnalysis(fenced)
	require.NoError(t, err)
	assert.Equal(t, "Dog Walking Apps", analysis.Title)
}

func TestParseAnalysisClampsScores(t *testing.T) {
	raw := strings.Replace(validJSON, `"growth_score": 78`, `"growth_score": 140`, 1)
	raw = strings.Replace(raw, `"pain_score": 65`, `"pain_score": -3`, 1)
	analysis, err := ParseAnalysis(raw)
	require.NoError(t, err)
	assert.Equal(t, 100, analysis.GrowthScore)
	assert.Equal(t, 0, analysis.PainScore)
}

func TestParseAnalysisRejectsBadInput(t *testing.T) {
	cases := map[string]string{
		"empty":           "",
		"not json":        "the market looks great!",
		"missing title":   strings.Replace(validJSON, `"Dog Walking Apps"`, `""`, 1),
		"no signals":      strings.Replace(validJSON, `"signals": [`, `"signals2": [`, 1),
		"unknown source":  strings.Replace(validJSON, `"source_type": "reddit"`, `"source_type": "tiktok"`, 1),
		"empty signal url": strings.Replace(validJSON, `"https://reddit.com/r/dogs/1"`, `""`, 1),
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := ParseAnalysis(raw)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrSynthesis)
		})
	}
}

func TestAnalyzeWrapsProviderErrors(t *testing.T) {
	a := NewAnalyzer(&stubLLM{err: errors.New("api returned status: 500")})
	_, err := a.Analyze(context.Background(), sampleData())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrSynthesis)
}

func TestAnalyzePassesPromptToProvider(t *testing.T) {
	llm := &stubLLM{response: validJSON}
	a := NewAnalyzer(llm)
	analysis, err := a.Analyze(context.Background(), sampleData())
	require.NoError(t, err)
	assert.Equal(t, "Dog Walking Apps", analysis.Title)
	assert.Contains(t, llm.gotUser, "REDDIT DISCUSSIONS")
}
