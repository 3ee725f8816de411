package audio

// WAV 输出参数。产物统一为 16-bit 单声道 PCM。
const (
	wavHeaderSize = 44
	formatPCM     = 1

	// OutputChannels 输出声道数（单声道）。
	OutputChannels = 1
	// OutputBitsPerSample 输出位深。
	OutputBitsPerSample = 16
)

// WrapWAV 给原始 PCM 数据加上标准 44 字节 WAV 头。
func WrapWAV(pcm []byte, sampleRate, channels, bitsPerSample int) []byte {
	dataSize := len(pcm)
	byteRate := sampleRate * channels * bitsPerSample / 8
	blockAlign := channels * bitsPerSample / 8

	header := make([]byte, wavHeaderSize)

	// RIFF 块
	copy(header[0:4], "RIFF")
	putLE32(header[4:8], uint32(36+dataSize))
	copy(header[8:12], "WAVE")

	// fmt 子块
	copy(header[12:16], "fmt ")
	putLE32(header[16:20], 16)
	putLE16(header[20:22], formatPCM)
	putLE16(header[22:24], uint16(channels))
	putLE32(header[24:28], uint32(sampleRate))
	putLE32(header[28:32], uint32(byteRate))
	putLE16(header[32:34], uint16(blockAlign))
	putLE16(header[34:36], uint16(bitsPerSample))

	// data 子块
	copy(header[36:40], "data")
	putLE32(header[40:44], uint32(dataSize))

	return append(header, pcm...)
}

func putLE16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

func putLE32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}
