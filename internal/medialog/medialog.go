package medialog

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/notes-bin/slotbed/internal/model"

	"github.com/redis/go-redis/v9"
)

// Client 把媒体日志存成每个 owner 一个有序集合：
// member 是对象路径，score 是 createdAt 的毫秒时间戳。
type Client struct {
	*redis.Client
}

func NewClient(addr, password string, db, poolSize int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
		PoolSize: poolSize,
	})
	_, err := client.Ping(context.Background()).Result()
	if err != nil {
		return nil, err
	}
	slog.Info("Connected to Redis")
	return &Client{client}, nil
}

func logKey(owner string) string {
	return fmt.Sprintf("medialog:%s", owner)
}

// Insert 追加一条媒体记录
func (c *Client) Insert(ctx context.Context, rec *model.MediaRecord) error {
	return c.ZAdd(ctx, logKey(rec.Owner), redis.Z{
		Score:  float64(rec.CreatedAt.UnixMilli()),
		Member: rec.Path,
	}).Err()
}

// DeleteWhere 按路径集合删除记录，路径不存在时静默跳过
func (c *Client) DeleteWhere(ctx context.Context, owner string, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	members := make([]interface{}, len(paths))
	for i, p := range paths {
		members[i] = p
	}
	return c.ZRem(ctx, logKey(owner), members...).Err()
}

// QueryByPrefix 返回 owner 名下前缀匹配的全部记录，按 createdAt 倒序。
// 一次 ZRevRange 取完整快照，前缀过滤在本地做。
func (c *Client) QueryByPrefix(ctx context.Context, owner, prefix string) ([]model.MediaRecord, error) {
	zs, err := c.ZRevRangeWithScores(ctx, logKey(owner), 0, -1).Result()
	if err != nil {
		return nil, err
	}
	return recordsFromSnapshot(owner, prefix, zs), nil
}

// recordsFromSnapshot 从有序集合快照还原记录：member 是路径，score 是毫秒时间戳。
// 纯函数，保持传入顺序，非字符串 member 跳过。
func recordsFromSnapshot(owner, prefix string, zs []redis.Z) []model.MediaRecord {
	records := make([]model.MediaRecord, 0, len(zs))
	for _, z := range zs {
		path, ok := z.Member.(string)
		if !ok || !strings.HasPrefix(path, prefix) {
			continue
		}
		records = append(records, model.MediaRecord{
			Owner:     owner,
			Path:      path,
			CreatedAt: time.UnixMilli(int64(z.Score)),
		})
	}
	return records
}
