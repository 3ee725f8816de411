package pipeline

import (
	"bytes"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/iabetor/prepbuddy/internal/audio"
	"github.com/iabetor/prepbuddy/internal/logger"
)

// failedChunkSilence 合成失败的文本块在单文件成品中占位的静音时长。
const failedChunkSilence = 500 * time.Millisecond

// assemble 把合成结果拼装成音频产物。failed 表会被补充
// 拼装阶段新发现的失败单元（解码失败、整单元无可用音频）。
func (p *Pipeline) assemble(results []Result, failed map[int]string) ([]Artifact, []string, error) {
	if p.opts.Batch {
		return p.assembleBatch(results, failed)
	}
	return p.assembleSingle(results, failed)
}

// assembleSingle 把全部块按顺序拼成一个 wav 文件。
// 失败块以固定时长静音占位，保持成品的整体节奏与顺序。
func (p *Pipeline) assembleSingle(results []Result, failed map[int]string) ([]Artifact, []string, error) {
	var warns []string

	type segment struct {
		samples []int16       // 单声道样本，nil 表示静音
		silence time.Duration // samples 为 nil 时的静音时长
	}
	segs := make([]segment, 0, len(results))
	sampleRate := 0

	for _, r := range results {
		switch {
		case r.Chunk.Pause:
			segs = append(segs, segment{silence: r.Chunk.PauseDur})
		case r.Err != nil:
			segs = append(segs, segment{silence: failedChunkSilence})
		default:
			stereo, rate, err := p.decode(r.Audio)
			if err != nil {
				msg := fmt.Sprintf("单元 %d 的音频解码失败，以静音占位: %v", r.Chunk.Unit, err)
				logger.Warnf("[pipeline] %s", msg)
				warns = append(warns, msg)
				if _, ok := failed[r.Chunk.Unit]; !ok {
					failed[r.Chunk.Unit] = "音频解码失败"
				}
				segs = append(segs, segment{silence: failedChunkSilence})
				continue
			}
			// 静音段长度取决于采样率，以首个成功解码的块为准
			if sampleRate == 0 {
				sampleRate = rate
			} else if rate != sampleRate {
				msg := fmt.Sprintf("单元 %d 采样率 %d 与首块 %d 不一致", r.Chunk.Unit, rate, sampleRate)
				logger.Warnf("[pipeline] %s", msg)
				warns = append(warns, msg)
			}
			segs = append(segs, segment{samples: audio.DownmixMono(stereo)})
		}
	}
	if sampleRate == 0 {
		sampleRate = audio.DefaultSampleRate
	}

	var pcm []int16
	for _, s := range segs {
		if s.samples != nil {
			pcm = append(pcm, s.samples...)
		} else {
			pcm = append(pcm, audio.Silence(s.silence, sampleRate)...)
		}
	}

	name := sanitizeBaseName(p.cfg.Output.Base) + ".wav"
	path := filepath.Join(p.cfg.Output.Dir, name)
	wavData := audio.WrapWAV(audio.Int16ToBytes(pcm), sampleRate, audio.OutputChannels, audio.OutputBitsPerSample)
	if err := audio.WriteFile(path, wavData); err != nil {
		return nil, warns, err
	}

	logger.Infof("[pipeline] 已写出 %s（%d 字节，%d Hz）", path, len(wavData), sampleRate)
	return []Artifact{{Name: name, Path: path, Size: len(wavData)}}, warns, nil
}

// assembleBatch 为每个问答单元输出独立文件，文件名保留原始单元序号。
// 没有任何成功块的单元被跳过并记入 failed，不产出文件。
func (p *Pipeline) assembleBatch(results []Result, failed map[int]string) ([]Artifact, []string, error) {
	var warns []string

	// 按单元分组，保持文档顺序
	order := make([]int, 0)
	parts := make(map[int][][]byte)
	seen := make(map[int]bool)
	for _, r := range results {
		if r.Chunk.Pause {
			continue
		}
		u := r.Chunk.Unit
		if !seen[u] {
			seen[u] = true
			order = append(order, u)
		}
		if r.Err == nil && len(r.Audio) > 0 {
			parts[u] = append(parts[u], r.Audio)
		}
	}

	base := sanitizeBaseName(p.cfg.Output.Base)
	ext := p.cfg.Output.Format
	artifacts := make([]Artifact, 0, len(order))

	for _, u := range order {
		good := parts[u]
		if len(good) == 0 {
			if _, exists := failed[u]; !exists {
				failed[u] = "单元内没有合成成功的块"
			}
			logger.Warnf("[pipeline] 单元 %d 没有可用音频，跳过输出", u)
			continue
		}

		// 文件名保留从 1 起的原始单元序号，被跳过的单元留下空号
		name := fmt.Sprintf("%s_%03d.%s", base, u+1, ext)
		path := filepath.Join(p.cfg.Output.Dir, name)

		var data []byte
		if ext == "mp3" {
			// MP3 帧自带同步头，顺序拼接即可连续播放
			data = bytes.Join(good, nil)
		} else {
			pcm, rate, dwarns, derr := p.decodeUnit(u, good)
			warns = append(warns, dwarns...)
			if derr != nil {
				if _, exists := failed[u]; !exists {
					failed[u] = "音频解码失败"
				}
				continue
			}
			data = audio.WrapWAV(audio.Int16ToBytes(pcm), rate, audio.OutputChannels, audio.OutputBitsPerSample)
		}

		if err := audio.WriteFile(path, data); err != nil {
			return artifacts, warns, err
		}
		artifacts = append(artifacts, Artifact{Name: name, Path: path, Size: len(data)})
	}

	if p.cfg.Output.Playlist && len(artifacts) > 0 {
		if err := p.writePlaylist(base, artifacts); err != nil {
			msg := fmt.Sprintf("写播放列表失败: %v", err)
			logger.Warnf("[pipeline] %s", msg)
			warns = append(warns, msg)
		}
	}

	logger.Infof("[pipeline] 批量输出完成，共 %d 个文件", len(artifacts))
	return artifacts, warns, nil
}

// decodeUnit 解码一个单元的全部成功块并拼成单声道 PCM。
func (p *Pipeline) decodeUnit(unit int, parts [][]byte) ([]int16, int, []string, error) {
	var warns []string
	var pcm []int16
	rate := 0
	for _, part := range parts {
		stereo, r, err := p.decode(part)
		if err != nil {
			msg := fmt.Sprintf("单元 %d 的音频解码失败: %v", unit, err)
			logger.Warnf("[pipeline] %s", msg)
			warns = append(warns, msg)
			return nil, 0, warns, err
		}
		if rate == 0 {
			rate = r
		} else if r != rate {
			msg := fmt.Sprintf("单元 %d 采样率 %d 与首块 %d 不一致", unit, r, rate)
			logger.Warnf("[pipeline] %s", msg)
			warns = append(warns, msg)
		}
		pcm = append(pcm, audio.DownmixMono(stereo)...)
	}
	if rate == 0 {
		rate = audio.DefaultSampleRate
	}
	return pcm, rate, warns, nil
}

// writePlaylist 生成 m3u 播放列表，方便按顺序试听批量产物。
func (p *Pipeline) writePlaylist(base string, artifacts []Artifact) error {
	var b strings.Builder
	b.WriteString("#EXTM3U\n")
	for _, a := range artifacts {
		b.WriteString(a.Name)
		b.WriteByte('\n')
	}
	path := filepath.Join(p.cfg.Output.Dir, base+".m3u")
	if err := audio.WriteFile(path, []byte(b.String())); err != nil {
		return err
	}
	logger.Infof("[pipeline] 已写出播放列表 %s", path)
	return nil
}

// sanitizeBaseName 替换文件名中不安全的字符，空名回退为 output。
func sanitizeBaseName(base string) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return "output"
	}
	var b strings.Builder
	for _, r := range base {
		switch {
		case strings.ContainsRune(`/\:*?"<>|`, r):
			b.WriteRune('_')
		case unicode.IsControl(r):
			b.WriteRune('_')
		default:
			b.WriteRune(r)
		}
	}
	return b.String()
}
