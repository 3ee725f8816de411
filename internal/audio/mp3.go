package audio

import (
	"bytes"
	"fmt"
	"io"

	"github.com/hajimehoshi/go-mp3"
)

// DefaultSampleRate 是云端引擎输出音频的默认采样率。
const DefaultSampleRate = 24000

// DecodeMP3 将 MP3 数据解码为交错立体声 int16 样本。
// go-mp3 的输出固定为 16-bit LE 立体声，单声道源也会被复制成双声道。
// 返回样本数据和采样率。
func DecodeMP3(data []byte) ([]int16, int, error) {
	if len(data) == 0 {
		return nil, 0, fmt.Errorf("[audio] MP3 数据为空")
	}

	decoder, err := mp3.NewDecoder(bytes.NewReader(data))
	if err != nil {
		return nil, 0, fmt.Errorf("[audio] MP3 解码失败: %w", err)
	}

	sampleRate := decoder.SampleRate()

	pcmData, err := io.ReadAll(decoder)
	if err != nil {
		return nil, 0, fmt.Errorf("[audio] 读取 PCM 数据失败: %w", err)
	}

	// 每个立体声帧 4 字节：左声道 2 字节 + 右声道 2 字节
	const bytesPerFrame = 4
	if len(pcmData)%bytesPerFrame != 0 {
		// 截掉不完整的尾部帧
		pcmData = pcmData[:len(pcmData)/bytesPerFrame*bytesPerFrame]
	}

	return BytesToInt16(pcmData), sampleRate, nil
}
