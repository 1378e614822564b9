// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package gemini

import "strings"

// Content roles understood by the API.
const (
	RoleUser  = "user"
	RoleModel = "model"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// Part is one piece of a Content. Only text parts are used.
type Part struct {
	Text string `json:"text,omitempty"`
}

// Content is a single turn of chat history.
type Content struct {
	Role  string `json:"role,omitempty"`
	Parts []Part `json:"parts"`
}

// UserContent builds a user turn.
func UserContent(text string) Content {
	return Content{Role: RoleUser, Parts: []Part{{Text: text}}}
}

// ModelContent builds a model turn.
func ModelContent(text string) Content {
	return Content{Role: RoleModel, Parts: []Part{{Text: text}}}
}

// SystemInstruction builds the role-less content used for system instructions.
func SystemInstruction(text string) *Content {
	if strings.TrimSpace(text) == "" {
		return nil
	}
	return &Content{Parts: []Part{{Text: text}}}
}

// GenerationConfig tunes sampling. Zero values are omitted so the service
// defaults apply.
type GenerationConfig struct {
	Temperature     *float64 `json:"temperature,omitempty"`
	MaxOutputTokens int      `json:"maxOutputTokens,omitempty"`
}

// Request is the generateContent request body.
type Request struct {
	Contents          []Content         `json:"contents"`
	SystemInstruction *Content          `json:"systemInstruction,omitempty"`
	GenerationConfig  *GenerationConfig `json:"generationConfig,omitempty"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// Candidate is one generated alternative.
type Candidate struct {
	Content      Content `json:"content"`
	FinishReason string  `json:"finishReason,omitempty"`
}

// PromptFeedback explains why a prompt produced no candidates.
type PromptFeedback struct {
	BlockReason string `json:"blockReason,omitempty"`
}

// UsageMetadata reports token accounting.
type UsageMetadata struct {
	PromptTokenCount     int `json:"promptTokenCount,omitempty"`
	CandidatesTokenCount int `json:"candidatesTokenCount,omitempty"`
	TotalTokenCount      int `json:"totalTokenCount,omitempty"`
}

// ErrorBody is the error object the API returns instead of candidates.
type ErrorBody struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Status  string `json:"status"`
}

// Response is the generateContent response body.
type Response struct {
	Candidates     []Candidate     `json:"candidates,omitempty"`
	PromptFeedback *PromptFeedback `json:"promptFeedback,omitempty"`
	UsageMetadata  *UsageMetadata  `json:"usageMetadata,omitempty"`
	ModelVersion   string          `json:"modelVersion,omitempty"`
	Error          *ErrorBody      `json:"error,omitempty"`
}

// Text returns the concatenated text parts of the first candidate, or "" if
// there is none.
func (r *Response) Text() string {
	if r == nil || len(r.Candidates) == 0 {
		return ""
	}
	var sb strings.Builder
	for _, p := range r.Candidates[0].Content.Parts {
		sb.WriteString(p.Text)
	}
	return sb.String()
}

// emptyReason describes why a response without text came back.
func (r *Response) emptyReason() string {
	if r.PromptFeedback != nil && r.PromptFeedback.BlockReason != "" {
		return "prompt blocked: " + r.PromptFeedback.BlockReason
	}
	if len(r.Candidates) == 0 {
		return "no candidates"
	}
	if fr := r.Candidates[0].FinishReason; fr != "" {
		return "finish reason " + fr
	}
	return "no text parts"
}

// =============================================================================
// MODEL LISTING
// =============================================================================

// ModelInfo describes a model available to the API key.
type ModelInfo struct {
	Name             string   `json:"name"`
	DisplayName      string   `json:"displayName"`
	InputTokenLimit  int      `json:"inputTokenLimit"`
	OutputTokenLimit int      `json:"outputTokenLimit"`
	Methods          []string `json:"supportedGenerationMethods"`
}

// ID returns the model name without the "models/" prefix.
func (m ModelInfo) ID() string {
	return strings.TrimPrefix(m.Name, "models/")
}

// CanGenerate reports whether the model supports generateContent.
func (m ModelInfo) CanGenerate() bool {
	for _, method := range m.Methods {
		if method == "generateContent" {
			return true
		}
	}
	return false
}

type modelsResponse struct {
	Models        []ModelInfo `json:"models"`
	NextPageToken string      `json:"nextPageToken"`
}
