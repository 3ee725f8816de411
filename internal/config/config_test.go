package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSetDefaults_EmptyConfig(t *testing.T) {
	cfg := &Config{}
	setDefaults(cfg)

	checks := []struct {
		name string
		got  interface{}
		want interface{}
	}{
		{"Log.Level", cfg.Log.Level, "info"},
		{"TTS.Provider", cfg.TTS.Provider, "google"},
		{"TTS.Voice", cfg.TTS.Voice, "professional_female"},
		{"TTS.Region", cfg.TTS.Region, "global"},
		{"TTS.Concurrency", cfg.TTS.Concurrency, 4},
		{"TTS.MaxAttempts", cfg.TTS.MaxAttempts, 3},
		{"TTS.RetryBackoffMs", cfg.TTS.RetryBackoffMs, 500},
		{"TTS.FailureThreshold", cfg.TTS.FailureThreshold, 0.5},
		{"TTS.MaxChunkBytes", cfg.TTS.MaxChunkBytes, 4500},
		{"TTS.UnitPauseMs", cfg.TTS.UnitPauseMs, 1500},
		{"TTS.Google.SampleRate", cfg.TTS.Google.SampleRate, 24000},
		{"TTS.Edge.Voice", cfg.TTS.Edge.Voice, "en-US-AriaNeural"},
		{"TTS.Tencent.Region", cfg.TTS.Tencent.Region, "ap-guangzhou"},
		{"TTS.Cache.MaxEntries", cfg.TTS.Cache.MaxEntries, 512},
		{"Output.Dir", cfg.Output.Dir, "output"},
		{"Output.Base", cfg.Output.Base, "interview_dialogue"},
		{"Output.Format", cfg.Output.Format, "wav"},
	}

	for _, c := range checks {
		switch want := c.want.(type) {
		case int:
			if c.got.(int) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case float64:
			if c.got.(float64) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		case string:
			if c.got.(string) != want {
				t.Errorf("%s: got %v, want %v", c.name, c.got, want)
			}
		}
	}

	if cfg.TTS.Cache.Enabled {
		t.Error("cache should be disabled by default")
	}
	if cfg.Output.Playlist {
		t.Error("playlist should be disabled by default")
	}
}

func TestSetDefaults_DoesNotOverride(t *testing.T) {
	cfg := &Config{
		TTS: TTSConfig{
			Provider:      "edge",
			Voice:         "fast_review",
			Concurrency:   2,
			MaxChunkBytes: 1000,
			Edge:          EdgeConfig{Voice: "custom-voice"},
		},
		Output: OutputConfig{Base: "mock_interview", Format: "mp3"},
		Log:    LogConfig{Level: "debug"},
	}
	setDefaults(cfg)

	if cfg.TTS.Provider != "edge" {
		t.Errorf("TTS.Provider should not be overridden: got %s", cfg.TTS.Provider)
	}
	if cfg.TTS.Voice != "fast_review" {
		t.Errorf("TTS.Voice should not be overridden: got %s", cfg.TTS.Voice)
	}
	if cfg.TTS.Concurrency != 2 {
		t.Errorf("TTS.Concurrency should not be overridden: got %d", cfg.TTS.Concurrency)
	}
	if cfg.TTS.MaxChunkBytes != 1000 {
		t.Errorf("TTS.MaxChunkBytes should not be overridden: got %d", cfg.TTS.MaxChunkBytes)
	}
	if cfg.TTS.Edge.Voice != "custom-voice" {
		t.Errorf("TTS.Edge.Voice should not be overridden: got %s", cfg.TTS.Edge.Voice)
	}
	if cfg.Output.Base != "mock_interview" {
		t.Errorf("Output.Base should not be overridden: got %s", cfg.Output.Base)
	}
	if cfg.Output.Format != "mp3" {
		t.Errorf("Output.Format should not be overridden: got %s", cfg.Output.Format)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("Log.Level should not be overridden: got %s", cfg.Log.Level)
	}
}

func TestLoad_ValidYAML(t *testing.T) {
	yamlContent := `
tts:
  provider: tencent
  voice: confident_male
  concurrency: 6
  tencent:
    secret_id: test-id
    secret_key: test-key
    voice_type: 101051
output:
  dir: /tmp/narration
  base: backend_round
log:
  level: debug
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.TTS.Provider != "tencent" {
		t.Errorf("TTS.Provider: got %q, want %q", cfg.TTS.Provider, "tencent")
	}
	if cfg.TTS.Voice != "confident_male" {
		t.Errorf("TTS.Voice: got %q, want %q", cfg.TTS.Voice, "confident_male")
	}
	if cfg.TTS.Concurrency != 6 {
		t.Errorf("TTS.Concurrency: got %d, want 6", cfg.TTS.Concurrency)
	}
	if cfg.TTS.Tencent.VoiceType != 101051 {
		t.Errorf("TTS.Tencent.VoiceType: got %d, want 101051", cfg.TTS.Tencent.VoiceType)
	}
	if cfg.Output.Base != "backend_round" {
		t.Errorf("Output.Base: got %q, want %q", cfg.Output.Base, "backend_round")
	}
	// Defaults should be applied for unset fields
	if cfg.TTS.MaxChunkBytes != 4500 {
		t.Errorf("TTS.MaxChunkBytes should default to 4500, got %d", cfg.TTS.MaxChunkBytes)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_SECRET_KEY", "  secret-from-env  ")

	yamlContent := `
tts:
  tencent:
    secret_key: "${TEST_SECRET_KEY}"
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	// 展开后应当去除首尾空白
	if cfg.TTS.Tencent.SecretKey != "secret-from-env" {
		t.Errorf("expected expanded+trimmed secret, got %q", cfg.TTS.Tencent.SecretKey)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for nonexistent file")
	}
}

func TestLoad_CustomPresets(t *testing.T) {
	yamlContent := `
tts:
  presets:
    - name: calm_narrator
      voice: en-GB-Chirp3-HD-Puck
      rate: 0.8
      gain_db: 1.5
`
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "config.yaml")
	if err := os.WriteFile(tmpFile, []byte(yamlContent), 0644); err != nil {
		t.Fatalf("failed to write temp file: %v", err)
	}

	cfg, err := Load(tmpFile)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(cfg.TTS.Presets) != 1 {
		t.Fatalf("expected 1 preset, got %d", len(cfg.TTS.Presets))
	}
	p := cfg.TTS.Presets[0]
	if p.Name != "calm_narrator" || p.Voice != "en-GB-Chirp3-HD-Puck" || p.Rate != 0.8 {
		t.Errorf("unexpected preset: %+v", p)
	}
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name    string
		mutate  func(*Config)
		wantSub string
	}{
		{"unknown provider", func(c *Config) { c.TTS.Provider = "polly" }, "提供商"},
		{"threshold above one", func(c *Config) { c.TTS.FailureThreshold = 1.5 }, "failure_threshold"},
		{"threshold negative", func(c *Config) { c.TTS.FailureThreshold = -0.1 }, "failure_threshold"},
		{"tiny chunk limit", func(c *Config) { c.TTS.MaxChunkBytes = 10 }, "max_chunk_bytes"},
		{"unknown format", func(c *Config) { c.Output.Format = "ogg" }, "输出格式"},
		{"nameless preset", func(c *Config) { c.TTS.Presets = []PresetConfig{{Voice: "x"}} }, "name"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := Default()
			tc.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("expected validation error")
			}
			if !strings.Contains(err.Error(), tc.wantSub) {
				t.Errorf("expected error mentioning %q, got: %v", tc.wantSub, err)
			}
		})
	}
}

func TestDefault_IsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config should validate: %v", err)
	}
}
