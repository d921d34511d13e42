package driven

// PromptStore serves the prompt templates sent to the LLM.
type PromptStore interface {
	// Load returns the named template.
	Load(name string) (string, error)

	// Reload drops cached templates.
	Reload()
}

// Prompt names.
const (
	// PromptAnswer wraps the retrieved context and the question. It holds
	// exactly two %s verbs: context first, then question.
	PromptAnswer = "answer"

	// PromptAnswerSystem is sent as the system turn ahead of PromptAnswer.
	// It has no verbs.
	PromptAnswerSystem = "answer_system"
)
