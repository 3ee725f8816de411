package tts

import (
	"context"
	"fmt"
	"log"

	texttospeech "cloud.google.com/go/texttospeech/apiv1"
	"cloud.google.com/go/texttospeech/apiv1/texttospeechpb"
	"google.golang.org/api/option"
)

// GoogleConfig Google Cloud TTS 配置。
type GoogleConfig struct {
	// CredentialsFile 服务账号密钥文件路径，
	// 为空时使用 GOOGLE_APPLICATION_CREDENTIALS 等默认凭证链。
	CredentialsFile string
	// Region 区域端点，global 或空表示全局端点。
	Region string
	// SampleRate 输出音频采样率（Hz）。
	SampleRate int
}

// GoogleEngine 使用 Google Cloud TTS 实现语音合成，输出 MP3 数据。
// Chirp3-HD 系列音色原生理解文本中的停顿标记。
type GoogleEngine struct {
	client     *texttospeech.Client
	sampleRate int
}

// NewGoogleEngine 创建 Google Cloud TTS 引擎。
// 区域不是 global 时走 {region}-texttospeech.googleapis.com 区域端点。
func NewGoogleEngine(ctx context.Context, cfg GoogleConfig) (*GoogleEngine, error) {
	if cfg.Region == "" {
		cfg.Region = "global"
	}
	if cfg.SampleRate == 0 {
		cfg.SampleRate = 24000
	}

	var opts []option.ClientOption
	if cfg.Region != "global" {
		endpoint := fmt.Sprintf("%s-texttospeech.googleapis.com:443", cfg.Region)
		opts = append(opts, option.WithEndpoint(endpoint))
	}
	if cfg.CredentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(cfg.CredentialsFile))
	}

	client, err := texttospeech.NewClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建 Google TTS 客户端失败: %w", err)
	}

	log.Printf("[tts] Google TTS 引擎已初始化 (region=%s, sample_rate=%d)", cfg.Region, cfg.SampleRate)

	return &GoogleEngine{client: client, sampleRate: cfg.SampleRate}, nil
}

// Name 实现 Engine 接口。
func (g *GoogleEngine) Name() string { return "google" }

// Synthesize 按指定音色将文本合成为 MP3 数据。
// 非 Chirp3-HD 音色不理解停顿标记，合成前先去除。
func (g *GoogleEngine) Synthesize(ctx context.Context, text string, voice VoicePreset) ([]byte, error) {
	if !SupportsPauseMarkup(voice.ProviderVoice) {
		text = StripPauseMarkup(text)
	}

	log.Printf("[tts] google: 正在合成 %d 个字符，音色=%s", len([]rune(text)), voice.ProviderVoice)

	req := &texttospeechpb.SynthesizeSpeechRequest{
		Input: &texttospeechpb.SynthesisInput{
			InputSource: &texttospeechpb.SynthesisInput_Text{Text: text},
		},
		Voice: &texttospeechpb.VoiceSelectionParams{
			LanguageCode: voice.LanguageCode,
			Name:         voice.ProviderVoice,
		},
		AudioConfig: &texttospeechpb.AudioConfig{
			AudioEncoding:   texttospeechpb.AudioEncoding_MP3,
			SampleRateHertz: int32(g.sampleRate),
			SpeakingRate:    voice.SpeakingRate,
			VolumeGainDb:    voice.VolumeGainDb,
		},
	}

	resp, err := g.client.SynthesizeSpeech(ctx, req)
	if err != nil {
		return nil, classify("google", err)
	}
	if len(resp.AudioContent) == 0 {
		return nil, &ProviderError{Provider: "google", Transient: true, Err: fmt.Errorf("未返回音频数据")}
	}

	log.Printf("[tts] google: 收到 %d 字节 MP3 数据", len(resp.AudioContent))

	return resp.AudioContent, nil
}

// VoiceInfo 描述服务商音色目录中的一个条目。
type VoiceInfo struct {
	Name       string
	Gender     string
	SampleRate int32
}

// ListVoices 查询指定语言可用的音色列表。
func (g *GoogleEngine) ListVoices(ctx context.Context, languageCode string) ([]VoiceInfo, error) {
	resp, err := g.client.ListVoices(ctx, &texttospeechpb.ListVoicesRequest{
		LanguageCode: languageCode,
	})
	if err != nil {
		return nil, classify("google", err)
	}

	voices := make([]VoiceInfo, 0, len(resp.Voices))
	for _, v := range resp.Voices {
		voices = append(voices, VoiceInfo{
			Name:       v.Name,
			Gender:     v.SsmlGender.String(),
			SampleRate: v.NaturalSampleRateHertz,
		})
	}
	return voices, nil
}

// Close 释放底层客户端连接。
func (g *GoogleEngine) Close() error {
	return g.client.Close()
}
