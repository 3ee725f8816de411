package speech

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/iabetor/prepbuddy/internal/document"
	"github.com/iabetor/prepbuddy/internal/tts"
)

// 切分默认值。块上限留出余量，低于 Google 单次请求 5000 字节的限制。
const (
	DefaultMaxChunkBytes = 4500
	DefaultUnitPause     = 1500 * time.Millisecond
)

// Chunk 是一次合成调用的最小单位。
// Pause 为 true 时表示单元之间的静音块，不携带文本。
type Chunk struct {
	Unit     int             // 所属问答单元下标，静音块为 -1
	Seq      int             // 全局序号，决定拼接顺序
	Text     string          // 待合成文本
	Pause    bool            // 是否为静音块
	PauseDur time.Duration   // 静音时长，仅静音块有效
	Voice    tts.VoicePreset // 整次运行统一使用的音色
}

// Options 控制切分行为。
type Options struct {
	// MaxChunkBytes 单块文本的字节上限，0 表示使用 DefaultMaxChunkBytes。
	MaxChunkBytes int
	// UnitPause 单元之间插入的静音时长，0 表示不插入静音块。
	UnitPause time.Duration
}

// BuildUtterance 把一个问答单元组织成朗读文本。
// 问题与答案之间插入停顿标记，句末缺少标点时补句号。
func BuildUtterance(u document.QAUnit) string {
	q := ensureSentenceEnd(u.Question)
	a := ensureSentenceEnd(u.Answer)
	return "Question: " + tts.PauseShort + " " + q + " " + tts.PauseMedium +
		" Answer: " + tts.PauseShort + " " + a
}

// ensureSentenceEnd 在文本缺少句末标点时补上句号。
func ensureSentenceEnd(s string) string {
	s = strings.TrimSpace(s)
	if s == "" {
		return s
	}
	r, _ := utf8.DecodeLastRuneInString(s)
	if isSentenceEnd(r) {
		return s
	}
	return s + "."
}
