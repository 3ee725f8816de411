package document

import "errors"

// Format 标识问答单元匹配到的启发式格式。
type Format string

const (
	// FormatQAPrefix 形如 Q: / A: 的前缀对。
	FormatQAPrefix Format = "qa"
	// FormatNumberedQ 形如 Q1 / Q2. 的编号问题，答案为 A: 行。
	FormatNumberedQ Format = "numbered-q"
	// FormatWordPrefix 形如 Question: / Answer: 的前缀对。
	FormatWordPrefix Format = "question-word"
	// FormatListItem 形如 1. 或 1) 的列表项问题，答案为 Answer: 行。
	FormatListItem Format = "list"
	// FormatNatural 以问号结尾的行作为问题，下一条非空行作为答案。
	FormatNatural Format = "natural"
)

// QAUnit 一条问答对。Index 为文档顺序下标（从 0 开始，连续）。
type QAUnit struct {
	Index        int
	Question     string
	Answer       string
	SourceFormat Format
}

// ParseWarning 记录解析中被丢弃的内容，行号从 1 开始。
type ParseWarning struct {
	Line   int
	Reason string
}

// ErrNoQAPairs 在整篇文档未解析出任何问答对时返回。
var ErrNoQAPairs = errors.New("文档中未找到问答对")
