package pipeline

import (
	"sync"

	"github.com/iabetor/prepbuddy/internal/logger"
)

// Phase 表示一次运行所处的阶段。
type Phase int

const (
	// PhaseIdle — 尚未开始。
	PhaseIdle Phase = iota
	// PhaseParsing — 正在读取并解析输入文档。
	PhaseParsing
	// PhaseSynthesizing — 正在并发合成文本块。
	PhaseSynthesizing
	// PhaseAssembling — 正在拼装并写出音频产物。
	PhaseAssembling
	// PhaseDone — 运行成功结束。
	PhaseDone
	// PhaseFailed — 运行失败结束。
	PhaseFailed
)

var phaseNames = [...]string{
	"Idle",
	"Parsing",
	"Synthesizing",
	"Assembling",
	"Done",
	"Failed",
}

func (p Phase) String() string {
	if int(p) < len(phaseNames) {
		return phaseNames[p]
	}
	return "Unknown"
}

// Tracker 管理线程安全的运行阶段切换，每次 Run 使用一个新实例。
type Tracker struct {
	mu       sync.RWMutex
	current  Phase
	onChange func(from, to Phase)
}

// NewTracker 创建一个初始阶段为 Idle 的跟踪器。
func NewTracker() *Tracker {
	return &Tracker{
		current: PhaseIdle,
	}
}

// SetOnChange 注册阶段变化时的回调函数。
func (tr *Tracker) SetOnChange(fn func(from, to Phase)) {
	tr.mu.Lock()
	tr.onChange = fn
	tr.mu.Unlock()
}

// Current 返回当前阶段。
func (tr *Tracker) Current() Phase {
	tr.mu.RLock()
	defer tr.mu.RUnlock()
	return tr.current
}

// Advance 尝试推进阶段。只有合法的推进才会生效：
//
//	Idle         → Parsing       （读入文档）
//	Parsing      → Synthesizing  （开始派发合成请求）
//	Synthesizing → Assembling    （全部块已返回）
//	Assembling   → Done          （产物写盘完成）
//
// 任何阶段都可以进入 Failed（用于中止运行）。
func (tr *Tracker) Advance(to Phase) bool {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	if !validAdvance(tr.current, to) {
		logger.Warnf("[pipeline] 非法阶段切换 %s → %s", tr.current, to)
		return false
	}

	from := tr.current
	tr.current = to
	logger.Debugf("[pipeline] 阶段 %s → %s", from, to)

	if tr.onChange != nil {
		tr.onChange(from, to)
	}
	return true
}

// Fail 无条件把阶段置为 Failed。
func (tr *Tracker) Fail() {
	tr.mu.Lock()
	defer tr.mu.Unlock()

	from := tr.current
	tr.current = PhaseFailed
	if from != PhaseFailed {
		logger.Debugf("[pipeline] 阶段 %s → Failed", from)
		if tr.onChange != nil {
			tr.onChange(from, PhaseFailed)
		}
	}
}

// validAdvance 检查阶段推进是否合法。
func validAdvance(from, to Phase) bool {
	// 始终允许进入 Failed（中止路径）
	if to == PhaseFailed {
		return true
	}
	switch from {
	case PhaseIdle:
		return to == PhaseParsing
	case PhaseParsing:
		return to == PhaseSynthesizing
	case PhaseSynthesizing:
		return to == PhaseAssembling
	case PhaseAssembling:
		return to == PhaseDone
	}
	return false
}
