// Package driven lists what the core services need from the outside:
// embeddings, the similarity index and its persistence, configuration,
// and optionally a language model, a mutation journal, page extractors,
// post-processors and prompt templates.
//
// A nil optional port switches its feature off. Without an LLMService ask
// and chat fail with ErrLLMUnavailable; without a MutationJournal history
// is empty; without a PromptStore the built-in prompts are used.
//
// Nothing here imports an adapter.
package driven
