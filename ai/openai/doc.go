// Package openai implements the ai package interfaces against
// OpenAI-compatible embedding APIs (Ollama, LocalAI, vLLM, OpenAI itself).
//
// The embedder is built on langchaingo's OpenAI client and works with any
// server that speaks the /v1/embeddings wire protocol. The provider pairs
// that embedder with a docling-serve extractor so callers can obtain both
// services from a single configuration.
package openai
