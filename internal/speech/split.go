package speech

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/iabetor/prepbuddy/internal/document"
	"github.com/iabetor/prepbuddy/internal/tts"
)

// sentenceEnders 是切分时认可的句末字符。
var sentenceEnders = []rune{'。', '！', '？', '；', '.', '!', '?', '\n'}

func isSentenceEnd(r rune) bool {
	for _, ender := range sentenceEnders {
		if r == ender {
			return true
		}
	}
	return false
}

// Split 把问答单元展开为按序的合成块，并在相邻单元之间插入静音块。
// 返回块序列和切分过程中产生的警告。
func Split(units []document.QAUnit, voice tts.VoicePreset, opts Options) ([]Chunk, []string) {
	if opts.MaxChunkBytes <= 0 {
		opts.MaxChunkBytes = DefaultMaxChunkBytes
	}

	var chunks []Chunk
	var warns []string
	seq := 0
	for i, u := range units {
		// 静音块只出现在单元之间，不出现在单元内部
		if i > 0 && opts.UnitPause > 0 {
			chunks = append(chunks, Chunk{
				Unit:     -1,
				Seq:      seq,
				Pause:    true,
				PauseDur: opts.UnitPause,
				Voice:    voice,
			})
			seq++
		}

		parts, overflow := splitText(BuildUtterance(u), opts.MaxChunkBytes)
		if overflow > 0 {
			warns = append(warns, fmt.Sprintf(
				"单元 %d 中有 %d 个句子超过 %d 字节上限，已按字节强制切分",
				u.Index, overflow, opts.MaxChunkBytes))
		}
		for _, p := range parts {
			chunks = append(chunks, Chunk{
				Unit:  u.Index,
				Seq:   seq,
				Text:  p,
				Voice: voice,
			})
			seq++
		}
	}
	return chunks, warns
}

// splitText 按句末边界把文本切成不超过 limit 字节的片段。
// 单句超限时按字节强制切分，返回片段和被强制切分的句子数。
func splitText(text string, limit int) ([]string, int) {
	var parts []string
	overflow := 0

	var current strings.Builder
	flush := func() {
		s := strings.TrimSpace(current.String())
		if s != "" {
			parts = append(parts, s)
		}
		current.Reset()
	}

	remaining := text
	for remaining != "" {
		sentence, rest, found := extractSentence(remaining)
		if !found {
			// 末尾没有句末标点的部分按一个句子处理
			sentence, rest = remaining, ""
		}
		remaining = rest

		sentence = strings.TrimSpace(sentence)
		if sentence == "" {
			continue
		}

		if len(sentence) > limit {
			flush()
			parts = append(parts, hardSplit(sentence, limit)...)
			overflow++
			continue
		}

		if current.Len() > 0 && current.Len()+1+len(sentence) > limit {
			flush()
		}
		if current.Len() > 0 {
			current.WriteString(" ")
		}
		current.WriteString(sentence)
	}
	flush()
	return parts, overflow
}

// extractSentence 尝试从文本中提取第一个完整句子。
func extractSentence(text string) (string, string, bool) {
	for i, r := range text {
		if isSentenceEnd(r) {
			splitAt := i + utf8.RuneLen(r)
			return text[:splitAt], text[splitAt:], true
		}
	}
	return "", text, false
}

// hardSplit 按字节上限强制切分超长句子，切点回退到最近的字符边界，
// 保证不会切断多字节字符。
func hardSplit(s string, limit int) []string {
	var out []string
	for len(s) > limit {
		cut := limit
		for cut > 0 && !utf8.RuneStart(s[cut]) {
			cut--
		}
		if cut == 0 {
			// 只有非法 UTF-8 才会走到这里，保底按上限硬切
			cut = limit
		}
		if p := strings.TrimSpace(s[:cut]); p != "" {
			out = append(out, p)
		}
		s = s[cut:]
	}
	if p := strings.TrimSpace(s); p != "" {
		out = append(out, p)
	}
	return out
}
