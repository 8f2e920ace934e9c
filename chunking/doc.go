// Package chunking splits extracted document text into token-bounded
// chunks suitable for embedding.
//
// The Splitter measures text with a tiktoken encoding and divides it at
// the coarsest boundary that fits the budget: paragraphs first, then
// sentences, then individual words. Splits never drop or alter bytes, so
// joining the resulting units reproduces the original text exactly. That
// property lets callers re-chunk a document at any time without touching
// the stored extraction.
package chunking
