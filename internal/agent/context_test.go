package agent

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChatContextKeepsSingleSystemMessage(t *testing.T) {
	ctx := NewChatContext()
	ctx.SetSystem("first instructions")
	ctx.Append(RoleUser, "what is a force?")
	ctx.Append(RoleAssistant, "let's think about pushes and pulls")
	ctx.SetSystem("second instructions")
	ctx.Append(RoleUser, "and what about weight?")
	ctx.SetSystem("third instructions")

	messages := ctx.Messages()
	systemCount := 0
	for _, m := range messages {
		if m.Role == RoleSystem {
			systemCount++
		}
	}
	require.Equal(t, 1, systemCount)
	require.Equal(t, RoleSystem, messages[0].Role)
	require.Equal(t, "third instructions", messages[0].Content)
	require.Len(t, messages, 4)
}

func TestChatContextLatestUser(t *testing.T) {
	ctx := NewChatContext()
	require.Empty(t, ctx.LatestUser())

	ctx.SetSystem("instructions")
	ctx.Append(RoleUser, "first question")
	ctx.Append(RoleAssistant, "an answer")
	ctx.Append(RoleUser, "second question")
	require.Equal(t, "second question", ctx.LatestUser())
}
