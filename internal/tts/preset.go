package tts

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// VoicePreset 描述一个可直接用于合成的音色配置。
// 预设在流水线启动时按名称解析一次，之后不再变化。
type VoicePreset struct {
	Name          string  // 预设名，如 professional_female
	ProviderVoice string  // 服务商侧的音色标识
	LanguageCode  string  // BCP-47 语言代码，如 en-US
	SpeakingRate  float64 // 语速倍率，1.0 为正常语速
	VolumeGainDb  float64 // 音量增益（dB）
	Region        string  // 区域端点，空或 global 表示全局端点
}

// ErrUnknownPreset 表示请求的音色预设不存在。
var ErrUnknownPreset = errors.New("未知的音色预设")

// builtinPresets 是内置音色目录，按名称索引。
var builtinPresets = map[string]VoicePreset{
	"confident_male": {
		Name:          "confident_male",
		ProviderVoice: "en-US-Chirp3-HD-Charon",
		LanguageCode:  "en-US",
		SpeakingRate:  0.9,
		VolumeGainDb:  2.0,
	},
	"professional_female": {
		Name:          "professional_female",
		ProviderVoice: "en-US-Chirp3-HD-Leda",
		LanguageCode:  "en-US",
		SpeakingRate:  0.9,
		VolumeGainDb:  1.0,
	},
	"authoritative_neutral": {
		Name:          "authoritative_neutral",
		ProviderVoice: "en-US-Chirp3-HD-Charon",
		LanguageCode:  "en-US",
		SpeakingRate:  0.85,
		VolumeGainDb:  3.0,
	},
	"fast_review": {
		Name:          "fast_review",
		ProviderVoice: "en-US-Chirp3-HD-Leda",
		LanguageCode:  "en-US",
		SpeakingRate:  2.0,
		VolumeGainDb:  1.0,
	},
}

// ResolvePreset 按名称解析音色预设。extra 中的同名预设覆盖内置预设。
// 预设不存在时返回 ErrUnknownPreset 并附上全部可用名称。
func ResolvePreset(name string, extra []VoicePreset) (VoicePreset, error) {
	catalog := make(map[string]VoicePreset, len(builtinPresets)+len(extra))
	for n, p := range builtinPresets {
		catalog[n] = p
	}
	for _, p := range extra {
		if p.Name == "" {
			continue
		}
		catalog[p.Name] = normalizePreset(p)
	}

	p, ok := catalog[name]
	if !ok {
		names := make([]string, 0, len(catalog))
		for n := range catalog {
			names = append(names, n)
		}
		sort.Strings(names)
		return VoicePreset{}, fmt.Errorf("%w: %q，可用预设: %s",
			ErrUnknownPreset, name, strings.Join(names, ", "))
	}
	return p, nil
}

// PresetNames 返回全部内置预设名称，按字典序排列。
func PresetNames() []string {
	names := make([]string, 0, len(builtinPresets))
	for n := range builtinPresets {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// LookupPreset 返回指定名称的内置预设，供展示用途。
func LookupPreset(name string) (VoicePreset, bool) {
	p, ok := builtinPresets[name]
	return p, ok
}

// normalizePreset 为用户自定义预设补齐缺省字段。
func normalizePreset(p VoicePreset) VoicePreset {
	if p.LanguageCode == "" {
		p.LanguageCode = "en-US"
	}
	if p.SpeakingRate == 0 {
		p.SpeakingRate = 1.0
	}
	return p
}
