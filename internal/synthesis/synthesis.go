package synthesis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/nichefinder/nichefinder/internal/research"
	"github.com/nichefinder/nichefinder/internal/store"
	"github.com/nichefinder/nichefinder/provider"
)

// ErrSynthesis indicates the generative call failed or returned output
// that does not satisfy the analysis schema. It is never retried.
var ErrSynthesis = errors.New("synthesis failed")

// Signal is one evidentiary item picked by the model.
type Signal struct {
	SourceType     string `json:"source_type"`
	ContentSnippet string `json:"content_snippet"`
	SourceURL      string `json:"source_url"`
}

// Analysis is the structured result of one synthesis call. Scores are
// on a 0-100 scale; total_score is derived later by the store.
type Analysis struct {
	Title            string   `json:"title"`
	Category         string   `json:"category"`
	GrowthScore      int      `json:"growth_score"`
	PainScore        int      `json:"pain_score"`
	CompetitionScore int      `json:"competition_score"`
	AISummary        string   `json:"ai_summary"`
	Signals          []Signal `json:"signals"`
}

// Analyzer turns a research bundle into a scored market analysis.
type Analyzer struct {
	LLM provider.Provider
}

// NewAnalyzer builds an Analyzer over the given LLM provider.
func NewAnalyzer(llm provider.Provider) *Analyzer {
	return &Analyzer{LLM: llm}
}

const systemPrompt = `You are a market research analyst. You respond ONLY with a single valid JSON object of the following shape, no other text:
{
  "title": "string",
  "category": "string",
  "growth_score": 0,
  "pain_score": 0,
  "competition_score": 0,
  "ai_summary": "string",
  "signals": [
    {"source_type": "reddit|youtube|google_trends", "content_snippet": "string", "source_url": "string"}
  ]
}
All scores are integers between 0 and 100. The signals array contains exactly 3 entries, one per source_type.`

// Analyze builds the analysis prompt from the research bundle, invokes
// the model in JSON mode and validates the parsed result.
func (a *Analyzer) Analyze(ctx context.Context, data research.ResearchData) (Analysis, error) {
	raw, err := a.LLM.CompleteJSON(ctx, systemPrompt, BuildPrompt(data))
	if err != nil {
		return Analysis{}, fmt.Errorf("%w: %v", ErrSynthesis, err)
	}
	return ParseAnalysis(raw)
}

// promptItems is how many results per source are embedded in the prompt.
const promptItems = 5

// BuildPrompt renders the research bundle into the analysis prompt.
// Empty sequences are stated as "No results found." rather than omitted.
func BuildPrompt(data research.ResearchData) string {
	var google []string
	for i, r := range data.Google {
		if i >= promptItems {
			break
		}
		google = append(google, fmt.Sprintf("  %d. %q — %s (%s)", i+1, r.Title, r.Snippet, r.Link))
	}
	var reddit []string
	for i, r := range data.Reddit {
		if i >= promptItems {
			break
		}
		reddit = append(reddit, fmt.Sprintf("  %d. %q — %s (%s)", i+1, r.Title, r.Snippet, r.Link))
	}
	var youtube []string
	for i, v := range data.YouTube {
		if i >= promptItems {
			break
		}
		youtube = append(youtube, fmt.Sprintf("  %d. %q by %s — %s (https://youtube.com/watch?v=%s)", i+1, v.Title, v.ChannelTitle, v.Description, v.VideoID))
	}

	return fmt.Sprintf(`Analyze the following REAL data collected from Google, Reddit, and YouTube about the niche query: %q.

=== GOOGLE SEARCH RESULTS ===
%s

=== REDDIT DISCUSSIONS ===
%s

=== YOUTUBE VIDEOS ===
%s

Based on this real data, provide:
1. A concise title for this niche opportunity.
2. A market category.
3. A growth_score (0-100): How much momentum and growing interest does this niche show?
4. A pain_score (0-100): How intense are the pain points people express? Are they actively seeking solutions?
5. A competition_score (0-100): How saturated is this market? How many established players exist?
6. An ai_summary: A 2-3 paragraph market thesis grounded in the data above. Reference specific signals you observed.
7. Exactly 3 market signals — pick the most compelling real evidence from the data:
   - One from reddit (use an actual Reddit link from the data above)
   - One from youtube (use an actual YouTube link from the data above)
   - One from google_trends (use the most relevant Google result link)
   Each signal should have a content_snippet that quotes or summarizes the real finding.`,
		data.Query, section(google), section(reddit), section(youtube))
}

func section(lines []string) string {
	if len(lines) == 0 {
		return "  No results found."
	}
	return strings.Join(lines, "\n")
}

// ParseAnalysis decodes and validates raw model output. The output is
// untrusted: scores are clamped to [0,100] and every signal must carry
// a known source type plus non-empty snippet and URL.
func ParseAnalysis(raw string) (Analysis, error) {
	text := stripFences(raw)
	if text == "" {
		return Analysis{}, fmt.Errorf("%w: empty response", ErrSynthesis)
	}

	var analysis Analysis
	if err := json.Unmarshal([]byte(text), &analysis); err != nil {
		return Analysis{}, fmt.Errorf("%w: parse: %v", ErrSynthesis, err)
	}

	if strings.TrimSpace(analysis.Title) == "" {
		return Analysis{}, fmt.Errorf("%w: missing title", ErrSynthesis)
	}
	if strings.TrimSpace(analysis.AISummary) == "" {
		return Analysis{}, fmt.Errorf("%w: missing ai_summary", ErrSynthesis)
	}
	if len(analysis.Signals) == 0 {
		return Analysis{}, fmt.Errorf("%w: no signals", ErrSynthesis)
	}
	for i, sig := range analysis.Signals {
		switch sig.SourceType {
		case store.SourceReddit, store.SourceYouTube, store.SourceGoogleTrends:
		default:
			return Analysis{}, fmt.Errorf("%w: signal %d has unknown source_type %q", ErrSynthesis, i, sig.SourceType)
		}
		if strings.TrimSpace(sig.ContentSnippet) == "" || strings.TrimSpace(sig.SourceURL) == "" {
			return Analysis{}, fmt.Errorf("%w: signal %d is incomplete", ErrSynthesis, i)
		}
	}

	analysis.GrowthScore = clampScore(analysis.GrowthScore)
	analysis.PainScore = clampScore(analysis.PainScore)
	analysis.CompetitionScore = clampScore(analysis.CompetitionScore)
	return analysis, nil
}

func clampScore(n int) int {
	if n < 0 {
		return 0
	}
	if n > 100 {
		return 100
	}
	return n
}

// stripFences removes a wrapping markdown code block if present.
func stripFences(text string) string {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	endIdx := len(lines) - 1
	for i := len(lines) - 1; i > 0; i-- {
		if strings.TrimSpace(lines[i]) == "```" {
			endIdx = i
			break
		}
	}
	return strings.TrimSpace(strings.Join(lines[1:endIdx], "\n"))
}
