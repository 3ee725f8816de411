package pipeline

import (
	"context"
	"fmt"
	"io"

	"github.com/iabetor/prepbuddy/internal/audio"
	"github.com/iabetor/prepbuddy/internal/config"
	"github.com/iabetor/prepbuddy/internal/logger"
	"github.com/iabetor/prepbuddy/internal/tts"
)

// Pipeline 把问答文档变成音频产物：解析、切分、并发合成、拼装写盘。
// 一个实例可以串行执行多次 Run。
type Pipeline struct {
	cfg    *config.Config
	opts   Options
	engine tts.Engine
	preset tts.VoicePreset

	// decode 把引擎返回的 MP3 解成交错立体声样本，测试时可替换。
	decode func(data []byte) ([]int16, int, error)
}

// Options 控制流水线的运行方式。
type Options struct {
	// Batch 为 true 时每个问答单元输出独立文件。
	Batch bool
	// OnPhase 运行阶段变化时的回调，可为 nil。
	OnPhase func(from, to Phase)
}

// New 根据配置构建流水线，完成音色预设解析与引擎初始化。
func New(ctx context.Context, cfg *config.Config, opts Options) (*Pipeline, error) {
	// 单文件模式要在 PCM 层拼接静音，只有 wav 能承载
	if cfg.Output.Format == "mp3" && !opts.Batch {
		return nil, fmt.Errorf("[pipeline] mp3 格式只支持批量模式，单文件输出请改用 wav")
	}

	preset, err := resolvePreset(cfg)
	if err != nil {
		return nil, err
	}

	engine, err := buildEngine(ctx, cfg, preset)
	if err != nil {
		return nil, err
	}

	if cfg.TTS.Cache.Enabled {
		cached, cerr := tts.NewCachedEngine(engine, tts.CacheConfig{
			Path:       cfg.TTS.Cache.Path,
			MaxEntries: cfg.TTS.Cache.MaxEntries,
		})
		if cerr != nil {
			logger.Warnf("[pipeline] 初始化合成缓存失败，本次不启用缓存: %v", cerr)
		} else {
			engine = cached
		}
	}

	logger.Infof("[pipeline] 引擎 %s 就绪，音色预设 %s（%s）",
		engine.Name(), preset.Name, preset.ProviderVoice)

	return &Pipeline{
		cfg:    cfg,
		opts:   opts,
		engine: engine,
		preset: preset,
		decode: audio.DecodeMP3,
	}, nil
}

// resolvePreset 把配置里的自定义预设并入内置目录后解析出目标音色。
func resolvePreset(cfg *config.Config) (tts.VoicePreset, error) {
	extra := make([]tts.VoicePreset, 0, len(cfg.TTS.Presets))
	for _, p := range cfg.TTS.Presets {
		extra = append(extra, tts.VoicePreset{
			Name:          p.Name,
			ProviderVoice: p.Voice,
			LanguageCode:  p.Language,
			SpeakingRate:  p.Rate,
			VolumeGainDb:  p.GainDb,
			Region:        p.Region,
		})
	}
	return tts.ResolvePreset(cfg.TTS.Voice, extra)
}

// buildEngine 按配置选择并初始化 TTS 引擎。
func buildEngine(ctx context.Context, cfg *config.Config, preset tts.VoicePreset) (tts.Engine, error) {
	switch cfg.TTS.Provider {
	case "google":
		// 预设自带区域时优先于全局配置
		region := cfg.TTS.Region
		if preset.Region != "" {
			region = preset.Region
		}
		return tts.NewGoogleEngine(ctx, tts.GoogleConfig{
			CredentialsFile: cfg.TTS.Google.CredentialsFile,
			Region:          region,
			SampleRate:      cfg.TTS.Google.SampleRate,
		})
	case "edge":
		return tts.NewEdgeEngine(cfg.TTS.Edge.Voice), nil
	case "tencent":
		return tts.NewTencentEngine(tts.TencentConfig{
			SecretID:  cfg.TTS.Tencent.SecretID,
			SecretKey: cfg.TTS.Tencent.SecretKey,
			Region:    cfg.TTS.Tencent.Region,
			VoiceType: cfg.TTS.Tencent.VoiceType,
			Speed:     cfg.TTS.Tencent.Speed,
			Volume:    cfg.TTS.Tencent.Volume,
		})
	default:
		return nil, fmt.Errorf("[pipeline] 不支持的 TTS 提供商: %s", cfg.TTS.Provider)
	}
}

// Close 释放引擎持有的连接与缓存句柄。
func (p *Pipeline) Close() error {
	if closer, ok := p.engine.(io.Closer); ok {
		return closer.Close()
	}
	return nil
}
