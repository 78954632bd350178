package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/c42705/stargety-oasis-sub008/config"
)

type RedisClient struct {
	Client *redis.Client
}

// NewRedisClient 初始化并返回一个新的 RedisClient 实例
func NewRedisClient(cfg *config.RedisConfig) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password, // 密码，没有则留空
		DB:       cfg.DB,       // 数据库
		PoolSize: cfg.PoolSize, // 连接池大小
		// 可选：添加超时配置
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	// PING 测试连接
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("redis client connection test failed: %w", err)
	}

	return &RedisClient{
		Client: client,
	}, nil
}

// Close 关闭 Redis 连接
func (r *RedisClient) Close() error {
	return r.Client.Close()
}

// OnlineUser 在线列表里的用户信息
type OnlineUser struct {
	UserID   uint   `json:"user_id"`
	Username string `json:"username"`
}

func onlineUsersKey(roomType, roomID string) string {
	return fmt.Sprintf("%s:room:%s:online_users", roomType, roomID)
}

// AddOnlineUser 把用户加入房间在线列表，Hash field 为用户名
func (r *RedisClient) AddOnlineUser(ctx context.Context, roomType, roomID string, user OnlineUser) error {
	key := onlineUsersKey(roomType, roomID)

	data, err := json.Marshal(user)
	if err != nil {
		return err
	}
	if err := r.Client.HSet(ctx, key, user.Username, data).Err(); err != nil {
		return err
	}

	// 设置过期时间（24小时），防止进程异常退出后残留
	return r.Client.Expire(ctx, key, 24*time.Hour).Err()
}

// RemoveOnlineUser 把用户移出房间在线列表
func (r *RedisClient) RemoveOnlineUser(ctx context.Context, roomType, roomID, username string) error {
	key := onlineUsersKey(roomType, roomID)
	return r.Client.HDel(ctx, key, username).Err()
}

// GetOnlineUsers 获取指定房间的在线用户
func (r *RedisClient) GetOnlineUsers(ctx context.Context, roomType, roomID string) ([]OnlineUser, error) {
	key := onlineUsersKey(roomType, roomID)
	result, err := r.Client.HGetAll(ctx, key).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to fetch online users for key %s: %w", key, err)
	}

	users := make([]OnlineUser, 0, len(result))
	for _, data := range result {
		var user OnlineUser
		if err := json.Unmarshal([]byte(data), &user); err != nil {
			log.Printf("Failed to unmarshal online user: %v", err)
			continue
		}
		users = append(users, user)
	}
	return users, nil
}

func roomStatsKey(roomType, roomID string) string {
	return fmt.Sprintf("%s:room:%s:stats", roomType, roomID)
}

// TouchRoomActivity 房间事件统计，由 Kafka 消费者调用
func (r *RedisClient) TouchRoomActivity(ctx context.Context, roomType, roomID, event string) error {
	key := roomStatsKey(roomType, roomID)
	pipe := r.Client.Pipeline()
	pipe.HSet(ctx, key, "last_event", event, "last_event_at", time.Now().Format(time.RFC3339))
	pipe.HIncrBy(ctx, key, "event_count", 1)
	pipe.Expire(ctx, key, 24*time.Hour)
	_, err := pipe.Exec(ctx)
	return err
}

// GetRoomStats 读取房间事件统计
func (r *RedisClient) GetRoomStats(ctx context.Context, roomType, roomID string) (map[string]string, error) {
	return r.Client.HGetAll(ctx, roomStatsKey(roomType, roomID)).Result()
}
