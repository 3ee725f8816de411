package audio

import "time"

// BytesToInt16 将小端字节切片转换为 int16 样本。
func BytesToInt16(b []byte) []int16 {
	n := len(b) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		out[i] = int16(b[2*i]) | int16(b[2*i+1])<<8
	}
	return out
}

// Int16ToBytes 将 int16 样本转换为小端字节切片。
func Int16ToBytes(in []int16) []byte {
	out := make([]byte, len(in)*2)
	for i, s := range in {
		out[2*i] = byte(s)
		out[2*i+1] = byte(s >> 8)
	}
	return out
}

// DownmixMono 将交错立体声样本混合为单声道，左右声道取平均。
func DownmixMono(stereo []int16) []int16 {
	n := len(stereo) / 2
	out := make([]int16, n)
	for i := 0; i < n; i++ {
		left := int32(stereo[2*i])
		right := int32(stereo[2*i+1])
		out[i] = int16((left + right) / 2)
	}
	return out
}

// Silence 生成指定时长的单声道静音样本。
func Silence(d time.Duration, sampleRate int) []int16 {
	if d <= 0 || sampleRate <= 0 {
		return nil
	}
	n := int(int64(sampleRate) * int64(d) / int64(time.Second))
	return make([]int16, n)
}
