// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/jeranaias/grace-tui/internal/config"
	"github.com/jeranaias/grace-tui/internal/gemini"
)

const configUsage = `grace config [show|path|init|get|set|set-key|keys|models]`

// HandleConfig shows and edits the configuration file.
func HandleConfig(ctx context.Context, env *Env) error {
	p := NewArgParser(env.Args.Rest, "force", "f")

	sub := strings.ToLower(p.Subcommand())
	switch sub {
	case "", "show":
		return configShow(env)
	case "path":
		path, err := env.ConfigPath()
		if err != nil {
			return err
		}
		fmt.Fprintln(env.Out, path)
		return nil
	case "init":
		return configInit(env, p.BoolFlag("force", "f"))
	case "get":
		return configGet(env, p)
	case "set":
		return configSet(env, p)
	case "set-key":
		return configSetKey(env)
	case "keys":
		for _, k := range config.Keys() {
			fmt.Fprintln(env.Out, k)
		}
		return nil
	case "models":
		return configModels(ctx, env)
	}
	return &UsageError{Reason: fmt.Sprintf("unknown config subcommand %q", sub), Usage: configUsage}
}

func configShow(env *Env) error {
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	path, _ := env.ConfigPath()

	exists := "not created yet, using defaults"
	if _, err := os.Stat(path); err == nil {
		exists = "present"
	}
	key := WarningStyle.Render("not set")
	if src := cfg.APIKeySource(); src != "" {
		key = fmt.Sprintf("set from %s (fingerprint %s)", src, gemini.Fingerprint(cfg.Gemini.APIKey))
	}

	fmt.Fprintln(env.Out, field("Config file", path+" ("+exists+")"))
	fmt.Fprintln(env.Out, field("API key", key))
	fmt.Fprintln(env.Out)
	fmt.Fprintln(env.Out, cfg.String())
	return nil
}

func configInit(env *Env, force bool) error {
	path, err := env.ConfigPath()
	if err != nil {
		return err
	}
	if _, err := os.Stat(path); err == nil && !force {
		return &UsageError{Reason: fmt.Sprintf("%s already exists; pass --force to overwrite", path)}
	}
	if err := config.Save(config.Default(), path); err != nil {
		return &CommandError{Command: "config", Action: "init", Err: err}
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render("Wrote "+path))
	return nil
}

func configGet(env *Env, p *ArgParser) error {
	key := p.Positional(1)
	if key == "" {
		return ErrMissingArgument("key", "grace config get <key>")
	}
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	val, err := cfg.Get(key)
	if err != nil {
		return &UsageError{Reason: err.Error()}
	}

	switch v := val.(type) {
	case nil:
		fmt.Fprintln(env.Out, "(unset)")
	case []string:
		fmt.Fprintln(env.Out, strings.Join(v, ","))
	default:
		if key == "gemini.api_key" {
			if s, _ := v.(string); s != "" {
				v = "[REDACTED fingerprint=" + gemini.Fingerprint(s) + "]"
			}
		}
		fmt.Fprintln(env.Out, v)
	}
	return nil
}

// loadFileOnly reads the config file without environment overrides, so a
// save never writes values that came from the environment.
func loadFileOnly(path string) (*config.Config, error) {
	cfg := config.Default()
	if _, err := os.Stat(path); err == nil {
		if err := config.LoadTOML(cfg, path); err != nil {
			return nil, &ConfigError{Err: err}
		}
	} else if !errors.Is(err, os.ErrNotExist) {
		return nil, &ConfigError{Err: err}
	}
	cfg.SetDefaults()
	return cfg, nil
}

// updateFile applies fn to the file-only config, validates and saves it.
func updateFile(env *Env, fn func(*config.Config) error) (string, error) {
	path, err := env.ConfigPath()
	if err != nil {
		return "", err
	}
	cfg, err := loadFileOnly(path)
	if err != nil {
		return "", err
	}
	if err := fn(cfg); err != nil {
		return "", err
	}
	if err := cfg.Validate(); err != nil {
		return "", &UsageError{Reason: err.Error()}
	}
	if err := config.Save(cfg, path); err != nil {
		return "", &CommandError{Command: "config", Action: "save", Err: err}
	}
	return path, nil
}

func configSet(env *Env, p *ArgParser) error {
	key := p.Positional(1)
	if key == "" || p.PositionalCount() < 3 {
		return ErrMissingArgument("key and value", "grace config set <key> <value>")
	}
	value := JoinPositionalArgs(p, 2)

	path, err := updateFile(env, func(cfg *config.Config) error {
		if err := cfg.Set(key, value); err != nil {
			return &UsageError{Reason: err.Error()}
		}
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render(fmt.Sprintf("Set %s in %s", key, path)))
	return nil
}

func configSetKey(env *Env) error {
	key, err := ReadSecret(env.In, env.Out, "Gemini API key: ")
	if err != nil {
		if errors.Is(err, errNoInput) {
			return ErrMissingArgument("API key", "grace config set-key")
		}
		return err
	}
	key = strings.TrimSpace(key)
	if key == "" {
		return ErrMissingArgument("API key", "grace config set-key")
	}

	path, err := updateFile(env, func(cfg *config.Config) error {
		cfg.Gemini.APIKey = key
		return nil
	})
	if err != nil {
		return err
	}
	fmt.Fprintln(env.Out, SuccessStyle.Render(fmt.Sprintf("Saved API key (fingerprint %s) to %s", gemini.Fingerprint(key), path)))
	return nil
}

// configModels lists the models that support generateContent. Configured
// candidates are starred.
func configModels(ctx context.Context, env *Env) error {
	cfg, err := env.LoadConfig()
	if err != nil {
		return err
	}
	models, err := cfg.NewClient().WithLogger(env.Logger).ListModels(ctx)
	if err != nil {
		if errors.Is(err, gemini.ErrNotConfigured) {
			return &ConfigError{Err: err}
		}
		return &CommandError{Command: "config", Action: "models", Err: err}
	}

	candidates := make(map[string]bool, len(cfg.Gemini.Models))
	for _, m := range cfg.Gemini.Models {
		candidates[strings.TrimSpace(m)] = true
	}

	var usable []gemini.ModelInfo
	for _, m := range models {
		if m.CanGenerate() {
			usable = append(usable, m)
		}
	}
	sort.Slice(usable, func(i, j int) bool { return usable[i].ID() < usable[j].ID() })

	for _, m := range usable {
		mark := " "
		if candidates[m.ID()] {
			mark = "*"
		}
		fmt.Fprintf(env.Out, "%s %-36s %s\n", mark, m.ID(), DimStyle.Render(m.DisplayName))
	}
	fmt.Fprintln(env.Out)
	fmt.Fprintln(env.Out, DimStyle.Render(fmt.Sprintf("%d models; * marks a configured candidate", len(usable))))
	return nil
}
