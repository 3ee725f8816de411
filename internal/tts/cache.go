package tts

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/iabetor/prepbuddy/internal/database"
	"github.com/iabetor/prepbuddy/internal/logger"
)

// CacheConfig 合成结果缓存配置。
type CacheConfig struct {
	Path       string // 缓存数据库文件路径
	MaxEntries int    // 缓存条目上限，超出后按最久未用淘汰
}

// CachedEngine 在底层引擎之上增加 SQLite 结果缓存。
// 相同提供商、音色参数和文本的重复合成直接命中缓存，不再请求服务商。
// 缓存读写失败只记录警告，永远不会让合成本身失败。
type CachedEngine struct {
	inner      Engine
	db         *database.DB
	maxEntries int
}

// NewCachedEngine 打开或创建缓存数据库并包装底层引擎。
func NewCachedEngine(inner Engine, cfg CacheConfig) (*CachedEngine, error) {
	if cfg.Path == "" {
		cfg.Path = "data/tts-cache.db"
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = 512
	}

	db, err := database.Open(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("[tts] 打开缓存数据库失败: %w", err)
	}
	if err := db.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("[tts] 初始化缓存表失败: %w", err)
	}

	logger.Infof("[tts] 合成缓存已启用: %s (上限 %d 条)", cfg.Path, cfg.MaxEntries)

	return &CachedEngine{inner: inner, db: db, maxEntries: cfg.MaxEntries}, nil
}

// Name 实现 Engine 接口，返回底层引擎名称。
func (c *CachedEngine) Name() string { return c.inner.Name() }

// Synthesize 先查缓存，未命中时调用底层引擎并写回缓存。
func (c *CachedEngine) Synthesize(ctx context.Context, text string, voice VoicePreset) ([]byte, error) {
	key := cacheKey(c.inner.Name(), text, voice)

	var audio []byte
	err := c.db.QueryRowContext(ctx,
		`SELECT audio FROM synth_cache WHERE cache_key = ?`, key).Scan(&audio)
	switch {
	case err == nil:
		if _, uerr := c.db.ExecContext(ctx,
			`UPDATE synth_cache SET last_used = ? WHERE cache_key = ?`,
			time.Now().UnixNano(), key); uerr != nil {
			logger.Warnf("[tts] 更新缓存使用时间失败: %v", uerr)
		}
		logger.Debugf("[tts] 缓存命中: %d 字节", len(audio))
		return audio, nil
	case !errors.Is(err, sql.ErrNoRows):
		logger.Warnf("[tts] 查询缓存失败: %v", err)
	}

	audio, err = c.inner.Synthesize(ctx, text, voice)
	if err != nil {
		return nil, err
	}

	c.store(ctx, key, voice, audio)
	return audio, nil
}

// store 写入缓存并淘汰超出上限的最久未用条目。
func (c *CachedEngine) store(ctx context.Context, key string, voice VoicePreset, audio []byte) {
	if _, err := c.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO synth_cache (cache_key, provider, voice, audio, last_used)
		 VALUES (?, ?, ?, ?, ?)`,
		key, c.inner.Name(), voice.Name, audio, time.Now().UnixNano()); err != nil {
		logger.Warnf("[tts] 写入缓存失败: %v", err)
		return
	}

	res, err := c.db.ExecContext(ctx,
		`DELETE FROM synth_cache WHERE cache_key IN (
			SELECT cache_key FROM synth_cache ORDER BY last_used DESC LIMIT -1 OFFSET ?)`,
		c.maxEntries)
	if err != nil {
		logger.Warnf("[tts] 淘汰缓存失败: %v", err)
		return
	}
	if n, _ := res.RowsAffected(); n > 0 {
		logger.Debugf("[tts] 已淘汰 %d 条缓存", n)
	}
}

// cacheKey 由提供商、音色参数和文本共同决定，任一变化都会绕开旧缓存。
func cacheKey(provider, text string, voice VoicePreset) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%s|%s|%.3f|%.3f|%s",
		provider, voice.ProviderVoice, voice.LanguageCode,
		voice.SpeakingRate, voice.VolumeGainDb, text)
	return hex.EncodeToString(h.Sum(nil))
}

// Close 关闭缓存数据库，底层引擎可关闭时一并关闭。
func (c *CachedEngine) Close() error {
	if closer, ok := c.inner.(io.Closer); ok {
		if err := closer.Close(); err != nil {
			logger.Warnf("[tts] 关闭底层引擎失败: %v", err)
		}
	}
	return c.db.Close()
}
