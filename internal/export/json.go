// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package export

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/jeranaias/grace-tui/internal/storage"
)

// JSONFormat tags every JSON export. The suffix is the layout version.
const JSONFormat = "grace.transcript/v1"

// Document is the layout of a JSON export: a small envelope around the
// unfiltered transcript.
type Document struct {
	Format       string              `json:"format"`
	ExportedAt   time.Time           `json:"exported_at"`
	MessageCount int                 `json:"message_count"`
	Transcript   *storage.Transcript `json:"transcript"`
}

// JSONExporter writes a Document. Options do not apply: the transcript is
// always complete so the file can be read back with ReadDocument.
type JSONExporter struct {
	now func() time.Time
}

// NewJSONExporter creates a JSON exporter.
func NewJSONExporter() *JSONExporter {
	return &JSONExporter{now: time.Now}
}

// Export encodes t as an indented Document.
func (e *JSONExporter) Export(t *storage.Transcript) ([]byte, error) {
	if t == nil {
		return nil, fmt.Errorf("transcript is nil")
	}
	doc := Document{
		Format:       JSONFormat,
		ExportedAt:   e.now().UTC(),
		MessageCount: t.MessageCount(),
		Transcript:   t,
	}
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode transcript: %w", err)
	}
	return append(data, '\n'), nil
}

func (e *JSONExporter) FileExtension() string { return ".json" }

func (e *JSONExporter) MimeType() string { return "application/json" }

// ReadDocument decodes a JSON export written by any v1 grace.
func ReadDocument(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decode export: %w", err)
	}
	if !strings.HasPrefix(doc.Format, "grace.transcript/") {
		return nil, fmt.Errorf("not a grace transcript export (format %q)", doc.Format)
	}
	if doc.Format != JSONFormat {
		return nil, fmt.Errorf("unsupported export version %q", doc.Format)
	}
	if doc.Transcript == nil {
		return nil, fmt.Errorf("export has no transcript")
	}
	return &doc, nil
}
