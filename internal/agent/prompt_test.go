package agent

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dos-platform/tutor-api/internal/models"
)

func TestFormatReferencesFallback(t *testing.T) {
	require.Equal(t, NoMatchesFallback, FormatReferences(nil))
	require.Equal(t, NoMatchesFallback, FormatReferences([]models.RetrievedChunk{}))
}

func TestFormatReferences(t *testing.T) {
	refs := FormatReferences([]models.RetrievedChunk{
		{ChunkID: 7, DocTitle: "Forces", Content: "F = ma relates force and acceleration."},
		{ChunkID: 9, DocTitle: "Forces", Content: "Weight is mass times gravitational field strength."},
	})
	require.Contains(t, refs, "[Forces:7]\nF = ma relates force and acceleration.")
	require.Contains(t, refs, "[Forces:9]")
	require.NotContains(t, refs, NoMatchesFallback)
}

func TestBuildSystemPromptDefaults(t *testing.T) {
	prompt := BuildSystemPrompt(PromptInput{
		CourseName: "GCSE Physics",
		TopicName:  "Forces",
		References: NoMatchesFallback,
		Persona:    models.DefaultPersona(),
	})
	require.Contains(t, prompt, "You are TutorBot, a voice-first subject tutor")
	require.Contains(t, prompt, "Current course: GCSE Physics")
	require.Contains(t, prompt, "Current topic: Forces")
	require.Contains(t, prompt, "None flagged yet")
	require.Contains(t, prompt, "No specific focus set")
	require.Contains(t, prompt, NoMatchesFallback)
}

func TestBuildSystemPromptWithContext(t *testing.T) {
	prompt := BuildSystemPrompt(PromptInput{
		CourseName:       "GCSE Physics",
		TopicName:        "Forces",
		References:       "[Forces:7]\nF = ma",
		Persona:          models.ResolvedPersona{Name: "Ada", Prompt: "Be playful."},
		RepeatConcepts:   []string{"resultant forces", "free-body diagrams"},
		RecommendedFocus: []string{"exam technique"},
	})
	require.Contains(t, prompt, "You are Ada,")
	require.Contains(t, prompt, "Tutor personality: Be playful.")
	require.Contains(t, prompt, "resultant forces, free-body diagrams")
	require.Contains(t, prompt, "Current recommended focus: exam technique")
}
