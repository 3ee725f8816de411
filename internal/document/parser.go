package document

import (
	"regexp"
	"strings"
)

// 各格式的行级模式。问题与答案都只看单行开头。
var (
	reQuestionPrefix = regexp.MustCompile(`(?i)^q\s*[:：]\s*(.*)$`)
	reAnswerPrefix   = regexp.MustCompile(`(?i)^a\s*[:：]\s*(.*)$`)
	reNumberedQ      = regexp.MustCompile(`(?i)^q(\d+)(?:[.:：]|\s)\s*(.*)$`)
	reWordQuestion   = regexp.MustCompile(`(?i)^question\s*[:：]\s*(.*)$`)
	reWordAnswer     = regexp.MustCompile(`(?i)^answer\s*[:：]\s*(.*)$`)
	reListItem       = regexp.MustCompile(`^(\d+)[.)]\s+(.*)$`)
)

// matcher 描述一种问答格式：如何识别问题行以及所属的答案行。
type matcher struct {
	format   Format
	question func(line string) (string, bool)
	answer   func(line string) (string, bool)
}

// matchers 按优先级排列，靠前的格式先生效。
var matchers = []matcher{
	{FormatQAPrefix, reGroup(reQuestionPrefix, 1), reGroup(reAnswerPrefix, 1)},
	{FormatNumberedQ, reGroup(reNumberedQ, 2), reGroup(reAnswerPrefix, 1)},
	{FormatWordPrefix, reGroup(reWordQuestion, 1), reGroup(reWordAnswer, 1)},
	{FormatListItem, reGroup(reListItem, 2), reGroup(reWordAnswer, 1)},
	{FormatNatural, naturalQuestion, nil},
}

// reGroup 把正则的指定捕获组包装成匹配函数。
func reGroup(re *regexp.Regexp, group int) func(string) (string, bool) {
	return func(line string) (string, bool) {
		m := re.FindStringSubmatch(line)
		if m == nil {
			return "", false
		}
		return m[group], true
	}
}

// naturalQuestion 把以问号结尾的行视为问题（兜底格式）。
func naturalQuestion(line string) (string, bool) {
	if strings.HasSuffix(line, "?") || strings.HasSuffix(line, "？") {
		return line, true
	}
	return "", false
}

// matchQuestion 按优先级尝试所有格式的问题模式。
func matchQuestion(line string) (matcher, string, bool) {
	for _, m := range matchers {
		if q, ok := m.question(line); ok {
			return m, q, true
		}
	}
	return matcher{}, "", false
}

// Parse 在单次扫描中识别全部五种问答格式，按文档顺序产出问答单元。
// 问答结构之外的文本按排版噪声忽略；被丢弃的问题记录为警告。
// 整篇文档没有任何问答对时返回 ErrNoQAPairs。
func Parse(raw string) ([]QAUnit, []ParseWarning, error) {
	lines := strings.Split(raw, "\n")

	var units []QAUnit
	var warns []ParseWarning

	i := 0
	for i < len(lines) {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			i++
			continue
		}
		m, q, ok := matchQuestion(line)
		if !ok {
			i++
			continue
		}

		ans, next, found := scanAnswer(m, lines, i+1)
		if !found && m.format != FormatNatural {
			// 前缀格式没扫到答案时退回兜底规则：
			// 问题以问号结尾的，下一条非空行即答案
			if _, natural := naturalQuestion(q); natural {
				if a, n, ok := scanAnswer(matcher{format: FormatNatural}, lines, i+1); ok {
					m.format = FormatNatural
					ans, next, found = a, n, true
				}
			}
		}
		if !found {
			warns = append(warns, ParseWarning{Line: i + 1, Reason: "问题没有找到对应的答案"})
			i = next
			continue
		}

		q = strings.TrimSpace(q)
		ans = strings.TrimSpace(ans)
		if q == "" || ans == "" {
			warns = append(warns, ParseWarning{Line: i + 1, Reason: "问题或答案为空，已丢弃"})
			i = next
			continue
		}

		units = append(units, QAUnit{
			Index:        len(units),
			Question:     q,
			Answer:       ans,
			SourceFormat: m.format,
		})
		i = next
	}

	if len(units) == 0 {
		return nil, warns, ErrNoQAPairs
	}
	return units, warns, nil
}

// scanAnswer 从 start 行开始向后寻找 m 所属格式的答案。
// 返回答案文本、继续解析的行号和是否找到。
// 找到答案之前遇到新的问题行（任意格式）时放弃当前问题，从该行继续。
func scanAnswer(m matcher, lines []string, start int) (string, int, bool) {
	if m.format == FormatNatural {
		// 兜底格式只接受下一条非空行，且该行本身不能是问题
		for j := start; j < len(lines); j++ {
			cand := strings.TrimSpace(lines[j])
			if cand == "" {
				continue
			}
			if _, _, isQ := matchQuestion(cand); isQ {
				return "", j, false
			}
			return cand, j + 1, true
		}
		return "", len(lines), false
	}

	for j := start; j < len(lines); j++ {
		cand := strings.TrimSpace(lines[j])
		if cand == "" {
			continue
		}
		if a, ok := m.answer(cand); ok {
			return collectContinuation(a, lines, j+1)
		}
		if _, _, isQ := matchQuestion(cand); isQ {
			return "", j, false
		}
		// 问题与答案之间的其他行视为排版噪声
	}
	return "", len(lines), false
}

// collectContinuation 把答案行之后紧随的普通行并入答案，
// 直到空行或新的问题行为止。
func collectContinuation(answer string, lines []string, start int) (string, int, bool) {
	j := start
	for ; j < len(lines); j++ {
		cand := strings.TrimSpace(lines[j])
		if cand == "" {
			break
		}
		if _, _, isQ := matchQuestion(cand); isQ {
			break
		}
		answer += " " + cand
	}
	return answer, j, true
}
