package tts

import "context"

// Engine 定义语音合成后端接口。
type Engine interface {
	// Name 返回后端名称，用于日志和缓存键。
	Name() string
	// Synthesize 按指定音色将文本合成为 MP3 音频数据。
	// 失败时返回 *ProviderError，调用方据此判断是否可重试。
	Synthesize(ctx context.Context, text string, voice VoicePreset) ([]byte, error)
}
