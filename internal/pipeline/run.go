package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iabetor/prepbuddy/internal/document"
	"github.com/iabetor/prepbuddy/internal/logger"
	"github.com/iabetor/prepbuddy/internal/speech"
	"github.com/iabetor/prepbuddy/internal/tts"
)

// maxConcurrency 并发合成请求数上限，对齐云端速率限制。
const maxConcurrency = 8

// ErrThresholdExceeded 表示失败单元占比超过配置阈值，运行被中止。
var ErrThresholdExceeded = errors.New("失败单元占比超过阈值")

// Result 单个合成块的结果，Audio 为引擎返回的 MP3 数据。
type Result struct {
	Chunk speech.Chunk
	Audio []byte
	Err   error
}

// Artifact 一个写盘完成的音频产物。
type Artifact struct {
	Name string
	Path string
	Size int
}

// UnitFailure 一个合成失败的问答单元及首个失败原因。
type UnitFailure struct {
	Unit   int
	Reason string
}

// Outcome 一次运行的汇总。运行出错时已知的部分仍会填充。
type Outcome struct {
	RunID            string
	TotalUnits       int
	SynthesizedUnits int
	Artifacts        []Artifact
	FailedUnits      []UnitFailure
	Warnings         []string
}

// Run 执行一次完整流程：读文档、解析、切分、合成、拼装写盘。
func (p *Pipeline) Run(ctx context.Context, inputPath string) (*Outcome, error) {
	out := &Outcome{RunID: uuid.NewString()}
	tr := NewTracker()
	if p.opts.OnPhase != nil {
		tr.SetOnChange(p.opts.OnPhase)
	}

	logger.Infof("[pipeline] 运行 %s 开始: input=%s provider=%s preset=%s batch=%v",
		out.RunID, inputPath, p.engine.Name(), p.preset.Name, p.opts.Batch)

	tr.Advance(PhaseParsing)
	data, err := os.ReadFile(inputPath)
	if err != nil {
		tr.Fail()
		return out, fmt.Errorf("[pipeline] 读取输入文件失败: %w", err)
	}

	units, parseWarns, err := document.Parse(string(data))
	for _, w := range parseWarns {
		msg := fmt.Sprintf("第 %d 行: %s", w.Line, w.Reason)
		logger.Warnf("[pipeline] 解析警告: %s", msg)
		out.Warnings = append(out.Warnings, msg)
	}
	if err != nil {
		tr.Fail()
		return out, err
	}
	out.TotalUnits = len(units)

	chunks, splitWarns := speech.Split(units, p.preset, speech.Options{
		MaxChunkBytes: p.cfg.TTS.MaxChunkBytes,
		UnitPause:     time.Duration(p.cfg.TTS.UnitPauseMs) * time.Millisecond,
	})
	for _, w := range splitWarns {
		logger.Warnf("[pipeline] %s", w)
		out.Warnings = append(out.Warnings, w)
	}
	logger.Infof("[pipeline] 解析出 %d 个问答单元，切分为 %d 个合成块", len(units), len(chunks))

	tr.Advance(PhaseSynthesizing)
	results, failed := p.synthesizeAll(ctx, chunks, len(units))

	if err := ctx.Err(); err != nil {
		tr.Fail()
		recordFailures(out, failed)
		return out, err
	}

	if exceedsThreshold(len(failed), out.TotalUnits, p.cfg.TTS.FailureThreshold) {
		tr.Fail()
		recordFailures(out, failed)
		return out, fmt.Errorf("%w: %d/%d 个单元失败", ErrThresholdExceeded, len(failed), out.TotalUnits)
	}

	tr.Advance(PhaseAssembling)
	artifacts, assembleWarns, err := p.assemble(results, failed)
	out.Warnings = append(out.Warnings, assembleWarns...)
	out.Artifacts = artifacts
	recordFailures(out, failed)
	if err != nil {
		tr.Fail()
		return out, err
	}

	tr.Advance(PhaseDone)
	logger.Infof("[pipeline] 运行 %s 完成: 单元 %d/%d，产物 %d 个，警告 %d 条",
		out.RunID, out.SynthesizedUnits, out.TotalUnits, len(out.Artifacts), len(out.Warnings))
	return out, nil
}

// synthesizeAll 用有界工作池并发合成全部文本块。
// 返回与 chunks 对齐的结果切片和失败单元表（单元号 → 首个失败原因）。
func (p *Pipeline) synthesizeAll(ctx context.Context, chunks []speech.Chunk, totalUnits int) ([]Result, map[int]string) {
	results := make([]Result, len(chunks))
	jobs := make([]int, 0, len(chunks))
	for i, c := range chunks {
		// 静音块不经过引擎
		results[i] = Result{Chunk: c}
		if !c.Pause {
			jobs = append(jobs, i)
		}
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	tracker := &failureTracker{
		failed: make(map[int]string),
		total:  totalUnits,
		limit:  p.cfg.TTS.FailureThreshold,
		cancel: cancel,
	}

	workers := p.cfg.TTS.Concurrency
	if workers < 1 {
		workers = 1
	}
	if workers > maxConcurrency {
		workers = maxConcurrency
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan int)
	var wg sync.WaitGroup
	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobCh {
				c := chunks[i]
				audioData, err := p.synthesizeChunk(runCtx, c)
				// 每个槽位只有一个 goroutine 写入
				results[i] = Result{Chunk: c, Audio: audioData, Err: err}
				if err != nil {
					tracker.mark(c.Unit, failureReason(err))
				}
			}
		}()
	}

dispatch:
	for _, i := range jobs {
		select {
		case jobCh <- i:
		case <-runCtx.Done():
			break dispatch
		}
	}
	close(jobCh)
	wg.Wait()

	// 取消后未派发的块补上取消错误，保持结果切片完整
	if runCtx.Err() != nil {
		for _, i := range jobs {
			r := &results[i]
			if r.Audio == nil && r.Err == nil {
				r.Err = runCtx.Err()
				tracker.mark(r.Chunk.Unit, failureReason(r.Err))
			}
		}
	}

	return results, tracker.failed
}

// synthesizeChunk 合成单个文本块，瞬时错误按翻倍退避重试。
// 永久性错误和上下文取消不重试。
func (p *Pipeline) synthesizeChunk(ctx context.Context, c speech.Chunk) ([]byte, error) {
	maxAttempts := p.cfg.TTS.MaxAttempts
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	backoff := time.Duration(p.cfg.TTS.RetryBackoffMs) * time.Millisecond

	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		data, err := p.engine.Synthesize(ctx, c.Text, c.Voice)
		if err == nil {
			return data, nil
		}
		lastErr = err

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		if !tts.IsTransient(err) {
			return nil, err
		}
		if attempt < maxAttempts {
			logger.Warnf("[pipeline] 块 %d（单元 %d）第 %d/%d 次尝试失败，%v 后重试: %v",
				c.Seq, c.Unit, attempt, maxAttempts, backoff, err)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
			backoff *= 2
		}
	}
	logger.Warnf("[pipeline] 块 %d（单元 %d）尝试 %d 次后仍失败: %v", c.Seq, c.Unit, maxAttempts, lastErr)
	return nil, lastErr
}

// failureTracker 汇总失败单元并在超过阈值时取消运行。
type failureTracker struct {
	mu      sync.Mutex
	failed  map[int]string
	total   int
	limit   float64
	cancel  context.CancelFunc
	tripped bool
}

// mark 记录一个单元的失败原因（保留首个），超过阈值时触发取消。
func (t *failureTracker) mark(unit int, reason string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.failed[unit]; !ok {
		t.failed[unit] = reason
	}
	if !t.tripped && exceedsThreshold(len(t.failed), t.total, t.limit) {
		t.tripped = true
		logger.Errorf("[pipeline] 失败单元 %d/%d 超过阈值 %.0f%%，停止派发合成请求",
			len(t.failed), t.total, t.limit*100)
		t.cancel()
	}
}

// exceedsThreshold 判断失败单元占比是否超过阈值。
func exceedsThreshold(failed, total int, threshold float64) bool {
	if total == 0 {
		return false
	}
	return float64(failed) > threshold*float64(total)
}

// failureReason 把错误转成适合展示给用户的失败原因。
func failureReason(err error) string {
	switch {
	case errors.Is(err, context.Canceled):
		return "运行已取消"
	case errors.Is(err, context.DeadlineExceeded):
		return "合成超时"
	default:
		return err.Error()
	}
}

// recordFailures 把失败表按单元号排序后写入汇总，并更新成功单元数。
func recordFailures(out *Outcome, failed map[int]string) {
	units := make([]int, 0, len(failed))
	for u := range failed {
		units = append(units, u)
	}
	sort.Ints(units)
	for _, u := range units {
		out.FailedUnits = append(out.FailedUnits, UnitFailure{Unit: u, Reason: failed[u]})
	}
	out.SynthesizedUnits = out.TotalUnits - len(out.FailedUnits)
}
