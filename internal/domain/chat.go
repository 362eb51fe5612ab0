package domain

// ChatMessage is the provider-agnostic chat message shape passed to
// the generative fallback. The per-user conversation history is a
// slice of these, replaced wholesale after every fallback turn.
type ChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}
