// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for grace.
//
// # Configuration Precedence
//
// Values are resolved (highest first) from:
//   - Environment variables (GRACE_*, plus the legacy API key names)
//   - A .env file in the working directory (never overriding the real environment)
//   - ~/.grace/config.toml, or the file named by --config / GRACE_CONFIG
//   - Built-in defaults
//
// The API key is looked up in GRACE_API_KEY, GEMINI_API_KEY, VITE_API_KEY,
// NEXT_PUBLIC_API_KEY and API_KEY, in that order. A missing key is not a
// configuration error; the session refuses to start instead.
//
// # Usage
//
//	_ = config.LoadDotEnv()
//	cfg, err := config.Load("")
//	if err != nil {
//	    return err
//	}
//	client := cfg.NewClient()
//	ctrl := counsel.New(client, cfg.CounselPersona())
//
// Watch reloads the file when it changes so a running UI can pick up persona
// edits for its next session.
package config
