package types

// TokenUsage represents token consumption reported by an upstream provider,
// or estimated locally when the upstream reports nothing.
type TokenUsage struct {
	PromptTokens     int `json:"prompt_tokens,omitempty"`
	CompletionTokens int `json:"completion_tokens,omitempty"`
	TotalTokens      int `json:"total_tokens,omitempty"`
}

// Empty reports whether no counts were recorded at all.
func (u TokenUsage) Empty() bool {
	return u.PromptTokens == 0 && u.CompletionTokens == 0 && u.TotalTokens == 0
}

// Normalize fills TotalTokens from the two parts when the upstream did not
// report a total directly.
func (u TokenUsage) Normalize() TokenUsage {
	if u.TotalTokens == 0 {
		u.TotalTokens = u.PromptTokens + u.CompletionTokens
	}
	return u
}

// Merge keeps the most informative of two snapshots field by field.
// Streaming providers report prompt tokens early and completion tokens late;
// the fold keeps whatever each event carried.
func (u TokenUsage) Merge(other TokenUsage) TokenUsage {
	if other.PromptTokens > 0 {
		u.PromptTokens = other.PromptTokens
	}
	if other.CompletionTokens > 0 {
		u.CompletionTokens = other.CompletionTokens
	}
	if other.TotalTokens > 0 {
		u.TotalTokens = other.TotalTokens
	}
	return u
}
