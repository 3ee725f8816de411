package tts

import (
	"bytes"
	"context"
	"fmt"
	"log"

	"github.com/pp-group/edge-tts-go/biz/service/tts/edge"
)

// EdgeEngine 使用微软 Edge TTS 实现语音合成，免费且无需凭证，
// 适合在没有云端账号时快速出活。
type EdgeEngine struct {
	voice string
}

// NewEdgeEngine 创建指定语音的 Edge TTS 引擎。
// Edge 的语音标识（如 en-US-AriaNeural）来自自身配置，
// 不使用音色预设里的服务商音色名。
func NewEdgeEngine(voice string) *EdgeEngine {
	return &EdgeEngine{voice: voice}
}

// Name 实现 Engine 接口。
func (e *EdgeEngine) Name() string { return "edge" }

// Synthesize 将文本合成为 MP3 数据。
// Edge TTS 不理解停顿标记，合成前统一去除。
func (e *EdgeEngine) Synthesize(ctx context.Context, text string, voice VoicePreset) ([]byte, error) {
	text = StripPauseMarkup(text)

	log.Printf("[tts] edge-tts: 正在合成 %d 个字符，语音=%s", len([]rune(text)), e.voice)

	// 创建 Communicate 实例并通过 Stream() 获取 MP3 音频块
	comm, err := edge.NewCommunicate(text, edge.WithVoice(e.voice))
	if err != nil {
		return nil, classify("edge", fmt.Errorf("创建实例失败: %w", err))
	}

	ch, err := comm.Stream()
	if err != nil {
		return nil, classify("edge", fmt.Errorf("开始流式合成失败: %w", err))
	}

	// 从 channel 收集所有音频数据
	var mp3Buf bytes.Buffer
	for msg := range ch {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}
		// Stream() 返回的 map 中，type=="audio" 的条目包含音频数据
		if msgType, ok := msg["type"].(string); ok && msgType == "audio" {
			if data, ok := msg["data"].([]byte); ok {
				mp3Buf.Write(data)
			}
		}
	}

	if mp3Buf.Len() == 0 {
		return nil, &ProviderError{
			Provider:  "edge",
			Transient: true,
			Err:       fmt.Errorf("未收到音频数据"),
		}
	}

	log.Printf("[tts] edge-tts: 收到 %d 字节 MP3 数据", mp3Buf.Len())

	return mp3Buf.Bytes(), nil
}
