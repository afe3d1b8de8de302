package service

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/dos-platform/tutor-api/internal/models"
	"github.com/dos-platform/tutor-api/pkg/openai"
)

const summarySystemPrompt = "You are a Director of Studies reviewing a tutoring session transcript. " +
	"Return strict JSON with exactly these keys: summaryMd, keyTakeaways, citations. " +
	"summaryMd: markdown 2-4 paragraphs assessing performance. " +
	"keyTakeaways: up to 6 short strings of topics covered. " +
	"citations: up to 5 concrete personalized study recommendations."

const progressSystemPrompt = "You analyse student tutorial transcripts. Return strict JSON with keys: " +
	"confidenceScore (0..1), strengths (string[]), improvements (string[]), " +
	"focus (string[]), repeat ({ concept, reason, priority }[]). " +
	"priority must be one of high|medium|low."

const defaultConfidenceScore = 0.6

// ProgressAnalysis is the analyzer's output before persistence.
type ProgressAnalysis struct {
	ConfidenceScore float64
	Strengths       []string
	Improvements    []string
	Focus           []string
	Repeat          []RepeatRecommendation
}

// RepeatRecommendation is one concept the analyzer wants revisited.
type RepeatRecommendation struct {
	Concept  string
	Reason   string
	Priority string
}

// InsightService generates post-session summaries and progress analyses
// from transcript text. An unconfigured model client degrades to
// placeholder output instead of failing the end-of-session flow.
type InsightService struct {
	client openai.Client
	model  string
	logger *zap.Logger
}

// NewInsightService constructs an InsightService. model is the chat model
// used for both summarization and progress analysis.
func NewInsightService(client openai.Client, model string, logger *zap.Logger) *InsightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InsightService{client: client, model: model, logger: logger}
}

// Summarize turns a transcript into a study note.
func (s *InsightService) Summarize(ctx context.Context, transcriptText string) *models.SessionSummary {
	if s.client == nil || !s.client.Configured() {
		return &models.SessionSummary{
			SummaryMd:    "No summary generated because OPENAI_API_KEY is not set.",
			KeyTakeaways: []string{},
			Citations:    []string{},
		}
	}

	parsed, err := s.client.GenerateJSON(ctx, s.model, summarySystemPrompt, transcriptText)
	if err != nil {
		s.logger.Warn("summary generation failed, using placeholder", zap.Error(err))
		return &models.SessionSummary{
			SummaryMd:    "No summary generated.",
			KeyTakeaways: []string{},
			Citations:    []string{},
		}
	}

	summaryMd := stringValue(parsed["summaryMd"])
	if summaryMd == "" {
		summaryMd = "No summary generated."
	}
	return &models.SessionSummary{
		SummaryMd:    summaryMd,
		KeyTakeaways: stringSlice(parsed["keyTakeaways"]),
		Citations:    stringSlice(parsed["citations"]),
	}
}

// AnalyzeProgress extracts a confidence score, strengths, improvement areas
// and repeat recommendations from a transcript.
func (s *InsightService) AnalyzeProgress(ctx context.Context, transcriptText string) *ProgressAnalysis {
	fallback := &ProgressAnalysis{
		ConfidenceScore: defaultConfidenceScore,
		Strengths:       []string{},
		Improvements:    []string{},
		Focus:           []string{},
		Repeat:          []RepeatRecommendation{},
	}
	if s.client == nil || !s.client.Configured() {
		return fallback
	}

	userContent := transcriptText
	if strings.TrimSpace(userContent) == "" {
		userContent = "No transcript content available."
	}

	parsed, err := s.client.GenerateJSON(ctx, s.model, progressSystemPrompt, userContent)
	if err != nil {
		s.logger.Warn("progress analysis failed, using placeholder", zap.Error(err))
		return fallback
	}

	score := defaultConfidenceScore
	if raw, ok := parsed["confidenceScore"].(float64); ok {
		score = raw
	}

	analysis := &ProgressAnalysis{
		ConfidenceScore: models.ClampScore(score),
		Strengths:       stringSlice(parsed["strengths"]),
		Improvements:    stringSlice(parsed["improvements"]),
		Focus:           stringSlice(parsed["focus"]),
		Repeat:          []RepeatRecommendation{},
	}

	items, _ := parsed["repeat"].([]interface{})
	for _, raw := range items {
		item, ok := raw.(map[string]interface{})
		if !ok {
			continue
		}
		concept := strings.TrimSpace(stringValue(item["concept"]))
		reason := strings.TrimSpace(stringValue(item["reason"]))
		if concept == "" || reason == "" {
			continue
		}
		priority := models.NormalizePriority(strings.ToLower(strings.TrimSpace(stringValue(item["priority"]))))
		analysis.Repeat = append(analysis.Repeat, RepeatRecommendation{Concept: concept, Reason: reason, Priority: priority})
	}
	return analysis
}

func stringValue(v interface{}) string {
	s, _ := v.(string)
	return s
}

func stringSlice(v interface{}) []string {
	items, ok := v.([]interface{})
	if !ok {
		return []string{}
	}
	out := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
