package tts

import (
	"context"
	"encoding/base64"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"
	tts "github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/tts/v20190823"

	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common"
	"github.com/tencentcloud/tencentcloud-sdk-go/tencentcloud/common/profile"
)

// TencentEngine 使用腾讯云 TTS 实现语音合成。
// 适用于中国大陆网络环境，支持多种中文音色。
type TencentEngine struct {
	client    *tts.Client
	voiceType int64
	speed     float64
	volume    float64
}

// TencentConfig 腾讯云 TTS 配置。
type TencentConfig struct {
	SecretID  string
	SecretKey string
	VoiceType int64
	Region    string
	Speed     float64 // 语速，[-2, 6]，0 为正常语速
	Volume    float64 // 音量，[-10, 10]，0 为正常音量
}

// NewTencentEngine 创建腾讯云 TTS 引擎。
func NewTencentEngine(cfg TencentConfig) (*TencentEngine, error) {
	if cfg.SecretID == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("[tts] 腾讯云 TTS 需要 SecretID 和 SecretKey")
	}

	if cfg.VoiceType == 0 {
		cfg.VoiceType = 101001 // 默认音色：智瑜（精品女声）
	}
	if cfg.Region == "" {
		cfg.Region = "ap-guangzhou"
	}

	credential := common.NewCredential(cfg.SecretID, cfg.SecretKey)
	cpf := profile.NewClientProfile()
	cpf.HttpProfile.Endpoint = "tts.tencentcloudapi.com"

	client, err := tts.NewClient(credential, cfg.Region, cpf)
	if err != nil {
		return nil, fmt.Errorf("[tts] 创建腾讯云 TTS 客户端失败: %w", err)
	}

	log.Printf("[tts] 腾讯云 TTS 引擎已初始化 (voice=%d, region=%s)", cfg.VoiceType, cfg.Region)

	return &TencentEngine{
		client:    client,
		voiceType: cfg.VoiceType,
		speed:     cfg.Speed,
		volume:    cfg.Volume,
	}, nil
}

// Name 实现 Engine 接口。
func (e *TencentEngine) Name() string { return "tencent" }

// Synthesize 将文本合成为 MP3 数据。
// 腾讯云音色不理解停顿标记，合成前统一去除。
func (e *TencentEngine) Synthesize(ctx context.Context, text string, voice VoicePreset) ([]byte, error) {
	text = StripPauseMarkup(text)

	log.Printf("[tts] 腾讯云 TTS: 正在合成 %d 个字符，音色=%d", len([]rune(text)), e.voiceType)

	request := tts.NewTextToVoiceRequest()
	request.Text = common.StringPtr(text)
	request.SessionId = common.StringPtr(uuid.NewString())
	request.VoiceType = common.Int64Ptr(e.voiceType)
	request.Codec = common.StringPtr("mp3")
	request.Speed = common.Float64Ptr(e.speed)
	request.Volume = common.Float64Ptr(e.volume)
	request.PrimaryLanguage = common.Int64Ptr(primaryLanguage(voice.LanguageCode))

	response, err := e.client.TextToVoiceWithContext(ctx, request)
	if err != nil {
		return nil, classify("tencent", err)
	}

	if response.Response == nil || response.Response.Audio == nil {
		return nil, &ProviderError{
			Provider:  "tencent",
			Transient: true,
			Err:       fmt.Errorf("未返回音频数据"),
		}
	}

	// Base64 解码
	mp3Data, err := base64.StdEncoding.DecodeString(*response.Response.Audio)
	if err != nil {
		return nil, classify("tencent", fmt.Errorf("Base64 解码失败: %w", err))
	}

	log.Printf("[tts] 腾讯云 TTS: 收到 %d 字节 MP3 数据", len(mp3Data))

	return mp3Data, nil
}

// primaryLanguage 把 BCP-47 语言代码映射到腾讯云的主语言类型。
// 1 为中文（默认），2 为英文。
func primaryLanguage(languageCode string) int64 {
	if strings.HasPrefix(strings.ToLower(languageCode), "en") {
		return 2
	}
	return 1
}
