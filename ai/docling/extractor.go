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


// Package docling implements document text extraction against a
// docling-serve HTTP endpoint.
package docling

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/poiesic/docpipe/ai"
)

const convertPath = "/v1alpha/convert/file"

// Extractor implements ai.Extractor by uploading documents to a
// docling-serve instance and returning the converted markdown.
type Extractor struct {
	host   string
	client *http.Client
	logger *slog.Logger
}

// convertResponse mirrors the subset of the docling-serve response we consume.
type convertResponse struct {
	Document struct {
		MdContent   string `json:"md_content"`
		TextContent string `json:"text_content"`
	} `json:"document"`
	Status string `json:"status"`
}

// NewExtractor creates a new extractor talking to the docling-serve
// instance named by config.ExtractorHost.
//
// Returns ai.Extractor interface to enforce abstraction.
func NewExtractor(config *ai.Config) (ai.Extractor, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}

	return &Extractor{
		host: config.ExtractorHost,
		client: &http.Client{
			// Large PDFs with OCR can take minutes to convert.
			Timeout: 5 * time.Minute,
		},
		logger: slog.Default().With("component", "docling-extractor"),
	}, nil
}

// Extract uploads the file at path and returns the extracted text.
// Plain text and markdown files are read directly without a round trip
// to the conversion service.
func (e *Extractor) Extract(ctx context.Context, path string) (*ai.ExtractionResult, error) {
	start := time.Now()

	switch strings.ToLower(filepath.Ext(path)) {
	case ".txt", ".md", ".markdown":
		content, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", path, err)
		}
		return &ai.ExtractionResult{
			Text:     string(content),
			Method:   "direct",
			Duration: time.Since(start),
		}, nil
	}

	result, err := e.convert(ctx, path)
	if err != nil {
		return nil, err
	}
	result.Duration = time.Since(start)

	e.logger.Debug("extracted document",
		"path", path,
		"method", result.Method,
		"chars", len(result.Text),
		"duration", result.Duration)

	return result, nil
}

func (e *Extractor) convert(ctx context.Context, path string) (*ai.ExtractionResult, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer file.Close()

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("files", filepath.Base(path))
	if err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return nil, fmt.Errorf("reading %s: %w", path, err)
	}
	if err := writer.WriteField("to_formats", "md"); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("building upload form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.host+convertPath, &body)
	if err != nil {
		return nil, fmt.Errorf("building extraction request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("extraction service: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("extraction service returned %d: %s", resp.StatusCode, string(snippet))
	}

	var converted convertResponse
	if err := json.NewDecoder(resp.Body).Decode(&converted); err != nil {
		return nil, fmt.Errorf("decoding extraction response: %w", err)
	}

	text := converted.Document.MdContent
	method := "docling"
	if text == "" {
		text = converted.Document.TextContent
		method = "docling-text"
	}

	return &ai.ExtractionResult{
		Text:   text,
		Method: method,
	}, nil
}
