package tts

import "strings"

// 文本中的停顿标记。Google Chirp3-HD 系列音色原生理解这些标记，
// 其他音色在合成前用 StripPauseMarkup 去除。
const (
	PauseShort  = "[pause short]"
	PauseMedium = "[pause medium]"
	PauseLong   = "[pause long]"
)

var pauseTokens = []string{PauseShort, PauseMedium, PauseLong}

// SupportsPauseMarkup 判断音色是否原生支持停顿标记。
func SupportsPauseMarkup(providerVoice string) bool {
	return strings.Contains(providerVoice, "Chirp3-HD")
}

// StripPauseMarkup 去除文本中的全部停顿标记并压缩多余空白。
func StripPauseMarkup(text string) string {
	for _, tok := range pauseTokens {
		text = strings.ReplaceAll(text, tok, "")
	}
	return strings.Join(strings.Fields(text), " ")
}
