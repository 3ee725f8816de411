package tts

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ProviderError 是合成后端返回的错误，携带提供商信息和可重试标记。
type ProviderError struct {
	Provider  string // 提供商名称，如 google
	Code      string // 提供商侧错误码，可能为空
	Transient bool   // 为 true 时重试有意义
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("[tts] %s 合成失败（%s）: %v", e.Provider, e.Code, e.Err)
	}
	return fmt.Sprintf("[tts] %s 合成失败: %v", e.Provider, e.Err)
}

func (e *ProviderError) Unwrap() error { return e.Err }

// IsTransient 判断错误是否为值得重试的瞬时错误。
func IsTransient(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Transient
	}
	return false
}

// classify 把后端原始错误包装为 ProviderError。
// 上下文取消与超时原样透传，调用方据此终止而不是重试。
func classify(provider string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}

	if st, ok := status.FromError(err); ok {
		return &ProviderError{
			Provider:  provider,
			Code:      st.Code().String(),
			Transient: transientCode(st.Code()),
			Err:       err,
		}
	}

	return &ProviderError{
		Provider:  provider,
		Transient: IsNetworkError(err) || IsQuotaError(err),
		Err:       err,
	}
}

// transientCode 判断 gRPC 状态码是否为瞬时错误。
func transientCode(c codes.Code) bool {
	switch c {
	case codes.ResourceExhausted, codes.Unavailable, codes.DeadlineExceeded,
		codes.Aborted, codes.Internal:
		return true
	}
	return false
}

// IsNetworkError 判断是否为网络错误。
func IsNetworkError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	networkErrors := []string{
		"connection refused",
		"connection reset",
		"timeout",
		"no such host",
		"network is unreachable",
		"i/o timeout",
		"eof",
	}

	for _, pattern := range networkErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}

// IsQuotaError 判断是否为额度或限流错误。
func IsQuotaError(err error) bool {
	if err == nil {
		return false
	}
	errStr := strings.ToLower(err.Error())

	quotaErrors := []string{
		"quota",
		"rate limit",
		"limitexceeded",          // 腾讯云限流错误码
		"resourceinsufficient",   // 腾讯云资源不足
		"too many requests",
	}

	for _, pattern := range quotaErrors {
		if strings.Contains(errStr, pattern) {
			return true
		}
	}
	return false
}
