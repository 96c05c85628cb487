package driven

// PromptStore provides access to LLM prompt templates.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// Unknown names return domain.ErrNotFound.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names.
const (
	// PromptSystem is the grounding instruction placed before retrieved context.
	// This prompt has no format placeholders.
	PromptSystem = "system"

	// PromptReformulate rewrites a follow-up question into a standalone query.
	// The template expects %s (conversation transcript) then %s (question).
	PromptReformulate = "reformulate"
)
