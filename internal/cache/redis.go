// Package cache 提供 Redis 缓存操作的封装
// 处理生成会话锁、最新预览快照、JWT 黑名单等需要快速访问的数据
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"arzuno-builder-server/internal/config"
)

// RedisCache 封装 Redis 客户端，提供业务相关的缓存操作
type RedisCache struct {
	client *redis.Client // Redis 客户端实例
}

// NewRedisCache 创建 RedisCache 实例
// 参数:
//   - cfg: 应用配置（包含 Redis 连接信息）
//
// 返回:
//   - *RedisCache: 缓存实例
//   - error: 连接错误
func NewRedisCache(cfg *config.Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Redis.Host, cfg.Redis.Port),
		Username: cfg.Redis.Username, // 部分云厂商 Redis 需要用户名
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
		PoolSize: cfg.Redis.PoolSize,
	})

	// 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// Close 关闭 Redis 连接
func (c *RedisCache) Close() error {
	return c.client.Close()
}

// ==================== 生成会话锁 ====================
// 同一画框同一时刻只允许一个生成会话
// 锁跨服务实例生效，持有者标识用于区分"自己重入"和"他人占用"

// AcquireGenerationLock 尝试获取画框的生成锁
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - owner: 锁持有者标识（本次会话的 UUID）
//   - ttl: 锁的自动过期时间，防止实例崩溃后永久锁死
//
// 返回:
//   - bool: 是否获取成功
//   - error: Redis 操作错误
func (c *RedisCache) AcquireGenerationLock(ctx context.Context, frameID, owner string, ttl time.Duration) (bool, error) {
	// SETNX 只在 Key 不存在时写入，原子操作
	return c.client.SetNX(ctx, fmt.Sprintf("generation:lock:%s", frameID), owner, ttl).Result()
}

// ReleaseGenerationLock 释放画框的生成锁
// 只有锁的持有者可以释放，避免误删他人的锁
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - owner: 锁持有者标识
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) ReleaseGenerationLock(ctx context.Context, frameID, owner string) error {
	key := fmt.Sprintf("generation:lock:%s", frameID)
	val, err := c.client.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil // 锁已过期，无需释放
	}
	if err != nil {
		return err
	}
	if val != owner {
		return nil // 锁已被他人持有，不动
	}
	return c.client.Del(ctx, key).Err()
}

// RefreshGenerationLock 续期画框的生成锁
// 长时间的生成会话期间定期调用，避免锁提前过期
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - ttl: 新的过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) RefreshGenerationLock(ctx context.Context, frameID string, ttl time.Duration) error {
	return c.client.Expire(ctx, fmt.Sprintf("generation:lock:%s", frameID), ttl).Err()
}

// GetGenerationLockOwner 获取当前持有生成锁的会话标识
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - string: 持有者标识，无锁返回空字符串
//   - error: Redis 操作错误
func (c *RedisCache) GetGenerationLockOwner(ctx context.Context, frameID string) (string, error) {
	owner, err := c.client.Get(ctx, fmt.Sprintf("generation:lock:%s", frameID)).Result()
	if err == redis.Nil {
		return "", nil
	}
	return owner, err
}

// ==================== 预览快照缓存 ====================
// 缓存画框最近一次提交的完整 HTML 片段
// 新连接的预览端先读缓存，避免每次都查数据库

// SetLatestDesignCode 缓存画框最近提交的设计代码
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - designCode: 完整的 HTML 片段
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) SetLatestDesignCode(ctx context.Context, frameID, designCode string) error {
	// 24 小时过期，冷画框的快照自然淘汰
	return c.client.Set(ctx, fmt.Sprintf("frame:%s:design_code", frameID), designCode, 24*time.Hour).Err()
}

// GetLatestDesignCode 获取画框最近提交的设计代码
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - string: HTML 片段，缓存未命中返回空字符串
//   - bool: 是否命中缓存
//   - error: Redis 操作错误
func (c *RedisCache) GetLatestDesignCode(ctx context.Context, frameID string) (string, bool, error) {
	code, err := c.client.Get(ctx, fmt.Sprintf("frame:%s:design_code", frameID)).Result()
	if err == redis.Nil {
		return "", false, nil
	}
	if err != nil {
		return "", false, err
	}
	return code, true, nil
}

// ClearLatestDesignCode 清除画框的快照缓存
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) ClearLatestDesignCode(ctx context.Context, frameID string) error {
	return c.client.Del(ctx, fmt.Sprintf("frame:%s:design_code", frameID)).Err()
}

// ==================== JWT 黑名单 ====================
// 用于实现 Token 强制失效（登出）功能

// BlacklistToken 将 Token 加入黑名单
// 登出时调用，使当前 Token 失效
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值（不存储原始 Token）
//   - expireAt: Token 的原始过期时间
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) BlacklistToken(ctx context.Context, tokenHash string, expireAt time.Time) error {
	// 计算剩余有效时间
	ttl := time.Until(expireAt)
	if ttl <= 0 {
		// Token 已过期，无需加入黑名单
		return nil
	}

	// 设置黑名单 Key
	// 值为 "1" 表示已加入黑名单
	// TTL 设置为 Token 的剩余有效期，过期后自动删除（因为 Token 本身也过期了）
	return c.client.Set(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash), "1", ttl).Err()
}

// IsTokenBlacklisted 检查 Token 是否在黑名单中
// JWT 验证中间件调用
// 参数:
//   - ctx: 上下文
//   - tokenHash: Token 的哈希值
//
// 返回:
//   - bool: 是否在黑名单中
func (c *RedisCache) IsTokenBlacklisted(ctx context.Context, tokenHash string) bool {
	// EXISTS 命令返回存在的 Key 数量
	return c.client.Exists(ctx, fmt.Sprintf("jwt:blacklist:%s", tokenHash)).Val() > 0
}

// ==================== Pub/Sub ====================
// 用于多服务实例间的预览更新广播
// 生成会话可能跑在 A 实例，而预览端的 WebSocket 连在 B 实例

// PublishPreviewUpdate 发布画框的预览更新
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//   - message: 消息内容（会被 JSON 序列化）
//
// 返回:
//   - error: Redis 操作错误
func (c *RedisCache) PublishPreviewUpdate(ctx context.Context, frameID string, message interface{}) error {
	data, err := json.Marshal(message)
	if err != nil {
		return err
	}
	// PUBLISH 发布消息到指定频道
	// 所有订阅该频道的实例都会收到消息
	return c.client.Publish(ctx, fmt.Sprintf("frame:%s:preview", frameID), data).Err()
}

// SubscribePreviewUpdates 订阅画框的预览更新
// 返回 PubSub 对象，调用方负责关闭
// 参数:
//   - ctx: 上下文
//   - frameID: 画框业务标识
//
// 返回:
//   - *redis.PubSub: PubSub 订阅对象
func (c *RedisCache) SubscribePreviewUpdates(ctx context.Context, frameID string) *redis.PubSub {
	return c.client.Subscribe(ctx, fmt.Sprintf("frame:%s:preview", frameID))
}

// ==================== 通用方法 ====================

// Ping 检查 Redis 连接
// 参数:
//   - ctx: 上下文
//
// 返回:
//   - error: 如果连接失败返回错误
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}
