package entities

// AIResponse is what an AI engine produces for a single inbound message.
// Confidence is in [0, 1]; Intent is one of the closed intent vocabulary
// labels, or "error" for a degraded provider-failure response.
type AIResponse struct {
	Content          string         `json:"content"`
	Confidence       float64        `json:"confidence"`
	Intent           string         `json:"intent"`
	Entities         map[string]any `json:"entities"`
	SuggestedActions []string       `json:"suggested_actions,omitempty"`
}
