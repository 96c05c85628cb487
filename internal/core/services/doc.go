// Package services implements the driving port interfaces.
// Services contain the core business logic and orchestrate
// calls to driven ports (adapters).
//
//   - IndexService: chunk, embed and insert documents; build-if-absent
//   - Retriever: embed a query and search the vector index
//   - Assembler: build the generation prompt from retrieved chunks
//   - Pipeline: retrieve, assemble, generate
//   - Conversation: multi-turn answering with history
//   - SessionRegistry: conversations by handle
//   - SettingsService: typed settings over the config store
//
// Services are pure Go with no CGO.
package services
