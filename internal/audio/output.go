package audio

import (
	"fmt"
	"os"
	"path/filepath"
)

// WriteFile 把音频数据写入目标路径，目录不存在时先创建。
func WriteFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("[audio] 创建输出目录失败: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("[audio] 写入 %s 失败: %w", path, err)
	}
	return nil
}
