// Package driven defines the interfaces that core calls OUT to infrastructure.
//
// These are the "driven" or "secondary" ports in hexagonal architecture.
// Core services depend on these interfaces, and infrastructure adapters
// implement them.
//
// # Required Interfaces
//
//   - Detector: Finds one kind of PII in text
//   - TextExtractor, ExtractorRegistry: Turn corpus files into plain text
//   - PostProcessor, PostProcessorPipeline: Turn documents into chunks
//   - EmbeddingService: Generates vector embeddings
//   - VectorIndex, VectorIndexFactory: Exact nearest-neighbour search
//   - IndexStore: Publishes and loads index generations
//   - LLMService: Reply generation. The offline generator stands in when no provider is reachable.
//   - PromptStore: Prompt templates
//   - ConfigStore: Application configuration
//
// # Optional Interfaces
//
// These can be nil - the application degrades gracefully:
//
//   - BuildLedger: Build history. Without it, builds are not recorded.
//   - CustomerDirectory: Customer and store lookups. Without it, replies are not personalised.
//   - IndexWatcher: Hot reload of published generations.
//
// # Import Rules
//
//   - Can Import: domain package only
//   - Cannot Import: Any adapter, detector, extractor or processor package
package driven
