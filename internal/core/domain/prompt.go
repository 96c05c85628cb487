package domain

// PromptRequest is the assembled input for the generation model.
type PromptRequest struct {
	// System is the fixed grounding instruction.
	System string

	// Context is the retrieved chunk texts joined with a separator.
	Context string

	// History is the prior conversation, oldest first.
	History []Turn

	// Question is the user's question as submitted.
	Question string

	// UserMessage is the final user message combining context and question.
	UserMessage string
}

// Messages returns the chat messages in order: system, history, user.
func (p PromptRequest) Messages() []Message {
	msgs := make([]Message, 0, len(p.History)+2)
	if p.System != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: p.System})
	}
	for _, t := range p.History {
		msgs = append(msgs, Message{Role: t.Role, Content: t.Content})
	}
	return append(msgs, Message{Role: RoleUser, Content: p.UserMessage})
}

// Answer is the result of a retrieval-augmented generation.
type Answer struct {
	// Text is the generated answer.
	Text string `json:"text"`

	// Query is the text actually used for retrieval.
	Query string `json:"query"`

	// Sources are the chunks placed in the prompt, best first.
	Sources []ScoredChunk `json:"sources"`
}
