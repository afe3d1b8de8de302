package agent

// Message roles in the conversation context.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one entry in the conversation context.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// ChatContext is the conversation state handed to the voice pipeline. It
// holds at most one system message, always at the front, so grounding is
// current to the latest user utterance rather than the session start.
type ChatContext struct {
	messages []Message
}

// NewChatContext returns an empty context.
func NewChatContext() *ChatContext {
	return &ChatContext{}
}

// SetSystem replaces any prior system content with the freshly built
// instructions. Called before every tutor turn.
func (c *ChatContext) SetSystem(content string) {
	kept := c.messages[:0]
	for _, m := range c.messages {
		if m.Role != RoleSystem {
			kept = append(kept, m)
		}
	}
	c.messages = append([]Message{{Role: RoleSystem, Content: content}}, kept...)
}

// Append adds a non-system message.
func (c *ChatContext) Append(role, content string) {
	c.messages = append(c.messages, Message{Role: role, Content: content})
}

// Messages returns a copy of the current context.
func (c *ChatContext) Messages() []Message {
	out := make([]Message, len(c.messages))
	copy(out, c.messages)
	return out
}

// LatestUser returns the most recent user message, or "" when none exists.
func (c *ChatContext) LatestUser() string {
	for i := len(c.messages) - 1; i >= 0; i-- {
		if c.messages[i].Role == RoleUser {
			return c.messages[i].Content
		}
	}
	return ""
}
