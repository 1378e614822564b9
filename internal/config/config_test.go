// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/grace-tui/internal/counsel"
)

// clearEnv blanks every variable Load looks at so the developer's shell
// cannot leak into the tests.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range APIKeyEnvVars {
		t.Setenv(name, "")
	}
	for _, name := range []string{"GRACE_MODELS", "GRACE_BASE_URL", "GRACE_DB", "GRACE_LOG_LEVEL", "GRACE_THEME", PathEnv} {
		t.Setenv(name, "")
	}
}

func writeFile(t *testing.T, path, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(body), 0600))
}

func TestDefault_IsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, counsel.DefaultModels, cfg.Gemini.Models)
	assert.Equal(t, counsel.DefaultName, cfg.Persona.Name)
	assert.Equal(t, 60*time.Second, cfg.Timeout())
	assert.Nil(t, cfg.GenerationConfig())
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Gemini.Models, cfg.Gemini.Models)
	assert.Empty(t, cfg.APIKeySource())
}

func TestLoad_FileValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[gemini]
api_key = "file-key"
models = ["m1", "m2"]
timeout_secs = 15
temperature = 0.5
max_output_tokens = 300

[persona]
name = "Hope"
system_instruction = "Be gentle."
opening_prompt = ""
greeting = "Hi there."

[ui]
theme = "dark"
word_wrap = 72
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "file-key", cfg.Gemini.APIKey)
	assert.Equal(t, "file", cfg.APIKeySource())
	assert.Equal(t, []string{"m1", "m2"}, cfg.Gemini.Models)
	assert.Equal(t, 15*time.Second, cfg.Timeout())
	assert.Equal(t, "dark", cfg.UI.Theme)
	assert.Equal(t, 72, cfg.UI.WordWrap)

	gc := cfg.GenerationConfig()
	require.NotNil(t, gc)
	assert.InDelta(t, 0.5, *gc.Temperature, 1e-9)
	assert.Equal(t, 300, gc.MaxOutputTokens)

	p := cfg.CounselPersona()
	assert.Equal(t, "Hope", p.Name)
	assert.Equal(t, []string{"m1", "m2"}, p.Models)
	assert.Empty(t, p.OpeningPrompt)
	assert.Equal(t, "Hi there.", p.Greeting)
}

func TestLoad_UnknownKeyRejected(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[gemini]\nmodelz = [\"x\"]\n")

	_, err := Load(path)
	var verrs ValidateErrors
	require.ErrorAs(t, err, &verrs)
	assert.Equal(t, "gemini.modelz", verrs[0].Field)
}

func TestLoad_BadTOML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, "[gemini\n")
	_, err := Load(path)
	assert.Error(t, err)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "config.toml")
	writeFile(t, path, `
[gemini]
timeout_secs = -1
[log]
level = "loud"
[ui]
theme = "neon"
`)
	_, err := Load(path)
	require.Error(t, err)

	var verrs ValidateErrors
	require.True(t, errors.As(err, &verrs))
	fields := map[string]bool{}
	for _, v := range verrs {
		fields[v.Field] = true
	}
	assert.True(t, fields["gemini.timeout_secs"])
	assert.True(t, fields["log.level"])
	assert.True(t, fields["ui.theme"])
}

func TestLoad_GraceConfigEnv(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "alt.toml")
	writeFile(t, path, "[persona]\nname = \"Alt\"\n")
	t.Setenv(PathEnv, path)

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "Alt", cfg.Persona.Name)
}

func TestApplyEnvOverrides_KeyOrder(t *testing.T) {
	clearEnv(t)
	t.Setenv("API_KEY", "generic")
	t.Setenv("VITE_API_KEY", "vite")

	cfg := Default()
	cfg.Gemini.APIKey = "from-file"
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "vite", cfg.Gemini.APIKey)
	assert.Equal(t, "VITE_API_KEY", cfg.APIKeySource())

	t.Setenv("GRACE_API_KEY", "grace")
	cfg.ApplyEnvOverrides()
	assert.Equal(t, "grace", cfg.Gemini.APIKey)
	assert.Equal(t, "GRACE_API_KEY", cfg.APIKeySource())
}

func TestApplyEnvOverrides_Models(t *testing.T) {
	clearEnv(t)
	t.Setenv("GRACE_MODELS", " a , ,b ")
	t.Setenv("GRACE_DB", "/tmp/x.db")

	cfg := Default()
	cfg.ApplyEnvOverrides()
	assert.Equal(t, []string{"a", "b"}, cfg.Gemini.Models)
	assert.Equal(t, "/tmp/x.db", cfg.Storage.DatabasePath)
}

func TestLoadDotEnv_DoesNotOverride(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, ".env")
	writeFile(t, envFile, "GRACE_TEST_DOTENV_A=from-file\nGRACE_TEST_DOTENV_B=from-file\n")

	t.Setenv("GRACE_TEST_DOTENV_A", "from-shell")
	os.Unsetenv("GRACE_TEST_DOTENV_B")
	t.Cleanup(func() { os.Unsetenv("GRACE_TEST_DOTENV_B") })

	require.NoError(t, LoadDotEnv(envFile, filepath.Join(dir, "missing.env")))
	assert.Equal(t, "from-shell", os.Getenv("GRACE_TEST_DOTENV_A"))
	assert.Equal(t, "from-file", os.Getenv("GRACE_TEST_DOTENV_B"))
}

func TestSave_RoundTrip(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "sub", "config.toml")

	cfg := Default()
	cfg.Gemini.APIKey = "secret"
	cfg.Gemini.Models = []string{"x", "y"}
	require.NoError(t, cfg.Set("gemini.temperature", "0.9"))
	require.NoError(t, Save(cfg, path))

	if runtime.GOOS != "windows" {
		info, err := os.Stat(path)
		require.NoError(t, err)
		assert.Equal(t, os.FileMode(0600), info.Mode().Perm())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "# grace configuration file"))

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "secret", loaded.Gemini.APIKey)
	assert.Equal(t, []string{"x", "y"}, loaded.Gemini.Models)
	require.NotNil(t, loaded.Gemini.Temperature)
	assert.InDelta(t, 0.9, *loaded.Gemini.Temperature, 1e-9)
	assert.Equal(t, cfg.Persona.SystemInstruction, loaded.Persona.SystemInstruction)
}

func TestGetSet(t *testing.T) {
	cfg := Default()

	require.NoError(t, cfg.Set("ui.theme", "light"))
	v, err := cfg.Get("ui.theme")
	require.NoError(t, err)
	assert.Equal(t, "light", v)

	require.NoError(t, cfg.Set("gemini.timeout_secs", "30"))
	assert.Equal(t, 30, cfg.Gemini.TimeoutSecs)

	require.NoError(t, cfg.Set("storage.autosave", "false"))
	assert.False(t, cfg.Storage.Autosave)

	require.NoError(t, cfg.Set("gemini.models", "a, b"))
	assert.Equal(t, []string{"a", "b"}, cfg.Gemini.Models)

	v, err = cfg.Get("gemini.temperature")
	require.NoError(t, err)
	assert.Nil(t, v)

	assert.Error(t, cfg.Set("gemini.timeout_secs", "soon"))
	assert.Error(t, cfg.Set("nope.key", "x"))
	assert.Error(t, cfg.Set("gemini", "x"))
	_, err = cfg.Get("ui.missing")
	assert.Error(t, err)
}

func TestKeys(t *testing.T) {
	keys := Keys()
	assert.Contains(t, keys, "gemini.api_key")
	assert.Contains(t, keys, "persona.system_instruction")
	assert.Contains(t, keys, "ui.show_timestamps")
	for _, k := range keys {
		_, err := Default().Get(k)
		assert.NoError(t, err, k)
	}
}

func TestString_RedactsKey(t *testing.T) {
	cfg := Default()
	cfg.Gemini.APIKey = "AIza-super-secret"
	s := cfg.String()
	assert.NotContains(t, s, "super-secret")
	assert.Contains(t, s, "REDACTED")
	assert.Equal(t, "AIza-super-secret", cfg.Gemini.APIKey)
}

func TestClone_IsDeep(t *testing.T) {
	cfg := Default()
	clone := cfg.Clone()
	clone.Gemini.Models[0] = "changed"
	assert.NotEqual(t, "changed", cfg.Gemini.Models[0])
}

func TestNewClient(t *testing.T) {
	cfg := Default()
	cfg.Gemini.BaseURL = "http://localhost:1234/v1beta/"
	c := cfg.NewClient()
	assert.False(t, c.IsConfigured())
	assert.Equal(t, "http://localhost:1234/v1beta", c.BaseURL())
}

func TestWatch_ReloadsOnWrite(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	writeFile(t, path, "[persona]\nname = \"One\"\n")

	got := make(chan string, 4)
	w, err := NewWatcher(path, 20*time.Millisecond, func(cfg *Config, err error) {
		if err == nil {
			got <- cfg.Persona.Name
		}
	})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, w.Start(ctx))
	defer w.Close()

	// Unrelated files in the same directory are ignored.
	writeFile(t, filepath.Join(dir, "other.txt"), "x")
	writeFile(t, path, "[persona]\nname = \"Two\"\n")

	select {
	case name := <-got:
		assert.Equal(t, "Two", name)
	case <-time.After(3 * time.Second):
		t.Fatal("watcher did not reload")
	}
}

func TestNewWatcher_NilCallback(t *testing.T) {
	_, err := NewWatcher("x.toml", 0, nil)
	assert.Error(t, err)
}
