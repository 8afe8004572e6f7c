package driven

// PromptStore provides access to LLM prompt templates.
// Implementations may load prompts from files or embed them in the binary.
type PromptStore interface {
	// Load returns the prompt template for the given name.
	// If the prompt is not found, implementations should return a sensible default
	// or an error, depending on whether the prompt is required.
	Load(name string) (string, error)

	// Reload clears any cached prompts, forcing fresh loads on next access.
	Reload()
}

// Well-known prompt names used by the reply service.
const (
	// PromptReplySystem is the system message sent with every reply request.
	// This prompt has no format placeholders.
	PromptReplySystem = "reply_system"

	// PromptReplyPreamble opens the user prompt, before the masked message.
	// This prompt has no format placeholders.
	PromptReplyPreamble = "reply_preamble"

	// PromptReplyInstruction closes the user prompt, after the retrieved documents.
	// This prompt has no format placeholders.
	PromptReplyInstruction = "reply_instruction"
)
