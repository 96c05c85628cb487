// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - EmbeddingService: Turns text into vectors
//   - VectorIndex: Exact similarity search over embedded chunks
//   - IndexStore: Opens or creates a persisted VectorIndex
//   - DocumentSource: Supplies documents to index
//   - PostProcessor: Turns a document into chunks
//   - ConfigStore: Application configuration
//   - PromptStore: Editable prompt templates
//
// # Optional Interfaces
//
//   - LLMService: Answer generation and LLM query reformulation. Without it
//     only retrieval is available.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter package
package driven
