package middleware

import (
	stdcontext "context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/auditguard/embedding-go/internal/config"
	"github.com/auditguard/embedding-go/internal/database"
	"github.com/auditguard/embedding-go/internal/logger"
	"github.com/beego/beego/v2/server/web/context"
	"go.uber.org/zap"
)

// API密钥校验过滤器
// 未配置任何密钥时放行（开发模式），配置后要求X-API-Key头匹配
func APIKeyFilter(ctx *context.Context) {
	cfg := config.GetConfig()
	if len(cfg.Auth.APIKeys) == 0 {
		return
	}

	key := ctx.Input.Header("X-API-Key")
	if key == "" {
		abortJSON(ctx, http.StatusUnauthorized, "missing API key")
		return
	}
	for _, allowed := range cfg.Auth.APIKeys {
		if key == allowed {
			return
		}
	}

	logger.Warn("Rejected request with invalid API key",
		zap.String("path", ctx.Request.URL.Path),
		zap.String("remote", ctx.Request.RemoteAddr))
	abortJSON(ctx, http.StatusUnauthorized, "invalid API key")
}

// 滑动窗口限流器，按API密钥（无密钥时按来源IP）限制每分钟请求数
// Redis可用时用INCR+过期实现分布式计数，否则退回进程内窗口
type rateLimiter struct {
	mu        sync.Mutex
	windows   map[string][]time.Time
	lastSweep time.Time
}

var limiter = &rateLimiter{windows: make(map[string][]time.Time)}

func (l *rateLimiter) allow(identity string, limit int) bool {
	now := time.Now()
	cutoff := now.Add(-time.Minute)

	l.mu.Lock()
	defer l.mu.Unlock()

	// 定期清理停止请求的identity，避免map随轮换的客户端无限增长
	if now.Sub(l.lastSweep) > time.Minute {
		for id, window := range l.windows {
			if len(window) == 0 || !window[len(window)-1].After(cutoff) {
				delete(l.windows, id)
			}
		}
		l.lastSweep = now
	}

	window := l.windows[identity]
	kept := window[:0]
	for _, t := range window {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	if len(kept) >= limit {
		l.windows[identity] = kept
		return false
	}
	l.windows[identity] = append(kept, now)
	return true
}

func allowRedis(identity string, limit int) (bool, error) {
	rdb := database.RedisClient
	ctx := stdcontext.Background()
	key := fmt.Sprintf("ratelimit:%s:%d", identity, time.Now().Unix()/60)

	count, err := rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if count == 1 {
		rdb.Expire(ctx, key, 2*time.Minute)
	}
	return count <= int64(limit), nil
}

// RateLimitFilter 请求限流过滤器
func RateLimitFilter(ctx *context.Context) {
	cfg := config.GetConfig()
	if !cfg.Auth.RateLimitEnabled {
		return
	}

	identity := ctx.Input.Header("X-API-Key")
	if identity == "" {
		identity = ctx.Request.RemoteAddr
	}

	allowed := false
	if database.RedisClient != nil {
		ok, err := allowRedis(identity, cfg.Auth.RateLimitPerMinute)
		if err != nil {
			// Redis不可用时降级到本地窗口
			logger.Warn("Rate limit redis check failed, falling back to local window", zap.Error(err))
			allowed = limiter.allow(identity, cfg.Auth.RateLimitPerMinute)
		} else {
			allowed = ok
		}
	} else {
		allowed = limiter.allow(identity, cfg.Auth.RateLimitPerMinute)
	}

	if !allowed {
		abortJSON(ctx, http.StatusTooManyRequests, "rate limit exceeded")
	}
}

func abortJSON(ctx *context.Context, status int, message string) {
	ctx.Output.SetStatus(status)
	ctx.Output.Header("Content-Type", "application/json; charset=utf-8")
	body, _ := json.Marshal(map[string]interface{}{
		"success": false,
		"error":   message,
	})
	ctx.Output.Body(body)
}
