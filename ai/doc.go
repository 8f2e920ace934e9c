// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.


// Package ai provides abstractions for the remote AI services used by docpipe.
//
// This package defines interfaces for the two remote calls the pipeline
// makes: document text extraction and embedding generation. It follows the
// dependency inversion principle, allowing the pipeline and batch runners
// to depend on abstractions rather than concrete implementations.
//
// # Design Principles
//
// The package is designed around three key interfaces:
//
//   - Extractor: Converts a raw document into text
//   - Embedder: Generates vector embeddings from text
//   - AIProvider: Aggregates AI services for convenient initialization
//
// # Implementation Packages
//
// The ai package includes three implementation sub-packages:
//
//   - ai/openai: Embeddings via OpenAI-compatible APIs
//   - ai/docling: Extraction via a docling-serve HTTP endpoint
//   - ai/mock: Test doubles for unit testing without external dependencies
//
// # Constructor Return Type Pattern
//
// Public constructors (openai.NewProvider, openai.NewEmbedder,
// docling.NewExtractor) return INTERFACE types to enforce abstraction and
// prevent accidental coupling to concrete implementations.
//
//	provider, err := openai.NewProvider(config)  // returns ai.AIProvider
//
// Test utility constructors (mock.NewMockEmbedder, mock.NewMockExtractor)
// return CONCRETE types to enable test assertions and behavior injection
// via the mock's public fields (CallCount, EmbedTextsFunc, Reset, etc.).
//
// # Usage Example
//
//	config := ai.DefaultConfig()
//	provider, err := openai.NewProvider(config)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	result, err := provider.Extractor().Extract(ctx, "/uploads/report.pdf")
//	vectors, err := provider.Embedder().EmbedTexts(ctx, texts)
package ai
