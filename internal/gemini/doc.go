// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package gemini is a minimal client for the Gemini generateContent API.
//
// It covers exactly what a chat session needs: one non-streaming
// generateContent call with chat history and a system instruction, plus
// model listing for diagnostics. Responses are classified into typed errors
// so callers can decide whether to fall back to another model:
//
//   - ErrNotConfigured: no API key
//   - *APIError: explicit error object in the body or a non-2xx status
//   - ErrEmptyResponse: well-formed body without any text (blocked, filtered)
//   - ErrMalformedResponse: body that is not the expected JSON
//
// # Usage
//
//	client := gemini.NewClient(apiKey).WithRateLimit(15)
//	resp, err := client.Generate(ctx, "gemini-2.0-flash", &gemini.Request{
//	    Contents: []gemini.Content{gemini.UserContent("hello")},
//	})
//	if err == nil {
//	    fmt.Println(resp.Text())
//	}
//
// The client never retries; picking another model is the caller's decision.
package gemini
