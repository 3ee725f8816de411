package config

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config 是 PrepBuddy 的顶层配置结构。
type Config struct {
	Log    LogConfig    `yaml:"log"`
	TTS    TTSConfig    `yaml:"tts"`
	Output OutputConfig `yaml:"output"`
}

// LogConfig 日志配置。
type LogConfig struct {
	Level      string `yaml:"level"`
	File       string `yaml:"file"`
	MaxSizeMB  int    `yaml:"max_size_mb"`
	MaxBackups int    `yaml:"max_backups"`
	MaxAgeDays int    `yaml:"max_age_days"`
}

// TTSConfig 语音合成配置。
type TTSConfig struct {
	Provider string `yaml:"provider"` // google | edge | tencent
	Voice    string `yaml:"voice"`    // 音色预设名
	Region   string `yaml:"region"`   // global 或区域端点前缀

	// Concurrency 并发合成请求数，限制在 [1, 8]。
	Concurrency int `yaml:"concurrency"`
	// MaxAttempts 单个文本块的最大尝试次数（含首次）。
	MaxAttempts int `yaml:"max_attempts"`
	// RetryBackoffMs 首次重试前的等待毫秒数，此后逐次翻倍。
	RetryBackoffMs int `yaml:"retry_backoff_ms"`
	// FailureThreshold 失败单元占比超过该值时中止运行，(0, 1]。
	FailureThreshold float64 `yaml:"failure_threshold"`
	// MaxChunkBytes 单个文本块的最大字节数，须低于提供商上限。
	MaxChunkBytes int `yaml:"max_chunk_bytes"`
	// UnitPauseMs 问答单元之间插入的静音毫秒数。
	UnitPauseMs int `yaml:"unit_pause_ms"`

	Google  GoogleConfig   `yaml:"google"`
	Edge    EdgeConfig     `yaml:"edge"`
	Tencent TencentConfig  `yaml:"tencent"`
	Cache   CacheConfig    `yaml:"cache"`
	Presets []PresetConfig `yaml:"presets"`
}

// GoogleConfig Google Cloud TTS 配置。
type GoogleConfig struct {
	// CredentialsFile 服务账号密钥文件路径，
	// 为空则使用 GOOGLE_APPLICATION_CREDENTIALS 等默认凭证。
	CredentialsFile string `yaml:"credentials_file"`
	SampleRate      int    `yaml:"sample_rate"`
}

// EdgeConfig Edge TTS 配置。
type EdgeConfig struct {
	Voice string `yaml:"voice"`
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string  `yaml:"secret_id"`
	SecretKey string  `yaml:"secret_key"`
	Region    string  `yaml:"region"`
	VoiceType int64   `yaml:"voice_type"`
	Speed     float64 `yaml:"speed"`
	Volume    float64 `yaml:"volume"`
}

// CacheConfig 合成结果缓存配置。
type CacheConfig struct {
	Enabled    bool   `yaml:"enabled"`
	Path       string `yaml:"path"`
	MaxEntries int    `yaml:"max_entries"`
}

// PresetConfig 自定义音色预设，按 name 覆盖或补充内置预设。
type PresetConfig struct {
	Name     string  `yaml:"name"`
	Voice    string  `yaml:"voice"`
	Language string  `yaml:"language"`
	Rate     float64 `yaml:"rate"`
	GainDb   float64 `yaml:"gain_db"`
	Region   string  `yaml:"region"`
}

// OutputConfig 产物输出配置。
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Base   string `yaml:"base"`
	Format string `yaml:"format"` // wav | mp3（mp3 仅批量模式）
	// Playlist 为 true 时批量模式额外生成 M3U 播放列表。
	Playlist bool `yaml:"playlist"`
}

// Load 读取 YAML 配置文件并返回 Config。
// 支持 ${VAR_NAME} 形式的环境变量展开。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件 %s 失败: %w", path, err)
	}

	// 展开环境变量，如 ${TENCENT_SECRET_KEY}
	expanded := os.Expand(string(data), func(key string) string {
		return os.Getenv(key)
	})

	cfg := &Config{}
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("解析配置文件 %s 失败: %w", path, err)
	}

	setDefaults(cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default 返回一份填好默认值的配置，供不带配置文件运行时使用。
func Default() *Config {
	cfg := &Config{}
	setDefaults(cfg)
	return cfg
}

// setDefaults 为未设置的配置项填充默认值。
func setDefaults(cfg *Config) {
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.TTS.Provider == "" {
		cfg.TTS.Provider = "google"
	}
	if cfg.TTS.Voice == "" {
		cfg.TTS.Voice = "professional_female"
	}
	if cfg.TTS.Region == "" {
		cfg.TTS.Region = "global"
	}
	if cfg.TTS.Concurrency == 0 {
		cfg.TTS.Concurrency = 4
	}
	if cfg.TTS.MaxAttempts == 0 {
		cfg.TTS.MaxAttempts = 3
	}
	if cfg.TTS.RetryBackoffMs == 0 {
		cfg.TTS.RetryBackoffMs = 500
	}
	if cfg.TTS.FailureThreshold == 0 {
		cfg.TTS.FailureThreshold = 0.5
	}
	if cfg.TTS.MaxChunkBytes == 0 {
		// Google 单次请求上限 5000 字节，留出余量
		cfg.TTS.MaxChunkBytes = 4500
	}
	if cfg.TTS.UnitPauseMs == 0 {
		cfg.TTS.UnitPauseMs = 1500
	}
	if cfg.TTS.Google.SampleRate == 0 {
		cfg.TTS.Google.SampleRate = 24000
	}
	if cfg.TTS.Edge.Voice == "" {
		cfg.TTS.Edge.Voice = "en-US-AriaNeural"
	}
	if cfg.TTS.Tencent.Region == "" {
		cfg.TTS.Tencent.Region = "ap-guangzhou"
	}
	if cfg.TTS.Tencent.VoiceType == 0 {
		cfg.TTS.Tencent.VoiceType = 101001 // 智瑜
	}
	if cfg.TTS.Tencent.Volume == 0 {
		cfg.TTS.Tencent.Volume = 5
	}
	if cfg.TTS.Cache.Path == "" {
		cfg.TTS.Cache.Path = "data/tts-cache.db"
	}
	if cfg.TTS.Cache.MaxEntries == 0 {
		cfg.TTS.Cache.MaxEntries = 512
	}
	if cfg.Output.Dir == "" {
		cfg.Output.Dir = "output"
	}
	if cfg.Output.Base == "" {
		cfg.Output.Base = "interview_dialogue"
	}
	if cfg.Output.Format == "" {
		cfg.Output.Format = "wav"
	}

	// Go 不会自动展开 ~，需要手动替换为用户主目录
	cfg.Output.Dir = expandHome(cfg.Output.Dir)
	cfg.TTS.Cache.Path = expandHome(cfg.TTS.Cache.Path)

	// 环境变量展开后常见多余空白
	cfg.TTS.Tencent.SecretID = strings.TrimSpace(cfg.TTS.Tencent.SecretID)
	cfg.TTS.Tencent.SecretKey = strings.TrimSpace(cfg.TTS.Tencent.SecretKey)
}

// Validate 检查配置取值是否可用。
func (c *Config) Validate() error {
	switch c.TTS.Provider {
	case "google", "edge", "tencent":
	default:
		return fmt.Errorf("不支持的 TTS 提供商: %s（可选 google、edge、tencent）", c.TTS.Provider)
	}
	if c.TTS.FailureThreshold <= 0 || c.TTS.FailureThreshold > 1 {
		return fmt.Errorf("failure_threshold 必须在 (0, 1] 范围内: %v", c.TTS.FailureThreshold)
	}
	if c.TTS.MaxChunkBytes < 100 {
		return fmt.Errorf("max_chunk_bytes 过小: %d", c.TTS.MaxChunkBytes)
	}
	switch c.Output.Format {
	case "wav", "mp3":
	default:
		return fmt.Errorf("不支持的输出格式: %s（可选 wav、mp3）", c.Output.Format)
	}
	for _, p := range c.TTS.Presets {
		if p.Name == "" {
			return fmt.Errorf("自定义音色预设缺少 name 字段")
		}
	}
	return nil
}

func expandHome(path string) string {
	if strings.HasPrefix(path, "~/") {
		home, _ := os.UserHomeDir()
		if home != "" {
			return home + path[1:]
		}
	}
	return path
}
