package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dos-platform/tutor-api/internal/models"
)

func TestSummarizePlaceholderWhenUnconfigured(t *testing.T) {
	svc := NewInsightService(&fakeOpenAI{configured: false}, "gpt-4o-mini", nil)
	summary := svc.Summarize(context.Background(), "some transcript")
	require.Equal(t, "No summary generated because OPENAI_API_KEY is not set.", summary.SummaryMd)
	require.Empty(t, summary.KeyTakeaways)
	require.Empty(t, summary.Citations)
}

func TestSummarizePlaceholderOnFailure(t *testing.T) {
	client := &fakeOpenAI{configured: true, genErr: errors.New("timeout")}
	svc := NewInsightService(client, "gpt-4o-mini", nil)
	summary := svc.Summarize(context.Background(), "some transcript")
	require.Equal(t, "No summary generated.", summary.SummaryMd)
}

func TestSummarizeParsesResponse(t *testing.T) {
	client := &fakeOpenAI{configured: true, response: map[string]interface{}{
		"summaryMd":    "## Session review\nGood progress on forces.",
		"keyTakeaways": []interface{}{"resultant forces", "free-body diagrams"},
		"citations":    []interface{}{"Review Newton's second law"},
	}}
	svc := NewInsightService(client, "gpt-4o-mini", nil)

	summary := svc.Summarize(context.Background(), "[t] Student: hi")
	require.Equal(t, "## Session review\nGood progress on forces.", summary.SummaryMd)
	require.Equal(t, []string{"resultant forces", "free-body diagrams"}, summary.KeyTakeaways)
	require.Equal(t, []string{"Review Newton's second law"}, summary.Citations)
	require.Contains(t, client.lastSystem, "Director of Studies")
	require.Equal(t, "[t] Student: hi", client.lastUser)
}

func TestAnalyzeProgressDefaults(t *testing.T) {
	svc := NewInsightService(&fakeOpenAI{configured: false}, "gpt-4o-mini", nil)
	analysis := svc.AnalyzeProgress(context.Background(), "")
	require.InDelta(t, 0.6, analysis.ConfidenceScore, 1e-9)
	require.Empty(t, analysis.Repeat)
}

func TestAnalyzeProgressParsesAndNormalizes(t *testing.T) {
	client := &fakeOpenAI{configured: true, response: map[string]interface{}{
		"confidenceScore": 1.7,
		"strengths":       []interface{}{"clear reasoning"},
		"improvements":    []interface{}{"units"},
		"focus":           []interface{}{"practice papers"},
		"repeat": []interface{}{
			map[string]interface{}{"concept": "moments", "reason": "struggled with pivots", "priority": "HIGH"},
			map[string]interface{}{"concept": "", "reason": "missing concept is dropped"},
			map[string]interface{}{"concept": "vectors", "reason": "sign errors", "priority": "urgent"},
		},
	}}
	svc := NewInsightService(client, "gpt-4o-mini", nil)

	analysis := svc.AnalyzeProgress(context.Background(), "transcript text")
	require.InDelta(t, 1.0, analysis.ConfidenceScore, 1e-9)
	require.Equal(t, []string{"clear reasoning"}, analysis.Strengths)
	require.Len(t, analysis.Repeat, 2)
	require.Equal(t, models.PriorityHigh, analysis.Repeat[0].Priority)
	require.Equal(t, models.PriorityMedium, analysis.Repeat[1].Priority)
}

func TestAnalyzeProgressEmptyTranscriptSubstitution(t *testing.T) {
	client := &fakeOpenAI{configured: true, response: map[string]interface{}{}}
	svc := NewInsightService(client, "gpt-4o-mini", nil)
	_ = svc.AnalyzeProgress(context.Background(), "   ")
	require.Equal(t, "No transcript content available.", client.lastUser)
}
