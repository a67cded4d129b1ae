package thread

// Role identifies who authored a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Route is the server's routing decision for a query: which downstream
// agent(s) will answer. The server may also emit transient routes such as
// "greet" or "guardrail"; only the three routes below are persisted.
type Route string

const (
	RoutePDF    Route = "pdf"
	RouteClaims Route = "claims"
	RouteBoth   Route = "both"
)

// KnownRoute reports whether raw is one of the persisted route tags.
func KnownRoute(raw string) (Route, bool) {
	switch Route(raw) {
	case RoutePDF, RouteClaims, RouteBoth:
		return Route(raw), true
	}
	return "", false
}

// Message is a single entry in a thread's conversation log. Content is
// mutable only while the message is the trailing assistant message of an
// active stream; every other message is immutable once appended.
type Message struct {
	ID      string `json:"id"`
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// Thread is one persisted conversation. Timestamps are Unix milliseconds,
// matching the blob format of the original web client.
type Thread struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	CreatedAt int64     `json:"createdAt"`
	UpdatedAt int64     `json:"updatedAt"`
	Messages  []Message `json:"messages"`
	LastRoute Route     `json:"lastRoute,omitempty"`
}

// PlaceholderTitle is the title of a thread before its first user message.
const PlaceholderTitle = "New chat"

// titleMaxChars is how much of the first user message becomes the title.
const titleMaxChars = 48

// deriveTitle returns the title a thread should carry after msg is appended.
// Only the first user message of a placeholder-titled thread changes it.
func deriveTitle(current string, msg Message) string {
	if current != PlaceholderTitle || msg.Role != RoleUser {
		return current
	}
	title := msg.Content
	if r := []rune(title); len(r) > titleMaxChars {
		title = string(r[:titleMaxChars])
	}
	if title == "" {
		return PlaceholderTitle
	}
	return title
}

// foldAssistantToken is the streaming fold step: it either starts a new
// assistant message containing token, or concatenates token onto the
// trailing assistant message. No other message is ever touched. newID is
// consulted only when a new message has to be created.
func foldAssistantToken(msgs []Message, newID func() string, token string) []Message {
	n := len(msgs)
	if n == 0 || msgs[n-1].Role != RoleAssistant {
		return append(msgs, Message{ID: newID(), Role: RoleAssistant, Content: token})
	}
	msgs[n-1].Content += token
	return msgs
}
