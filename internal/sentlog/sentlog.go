package sentlog

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// claimTTL 去重键存活时间，覆盖当天即可，48 小时留出时区余量
const claimTTL = 48 * time.Hour

// Log 批量发送去重日志
// 只用于抑制重复发送，待发送集合的计算永远不依赖这里的数据。
// Redis 不可用时放行（fail-open），宁可重发也不丢提醒。
type Log struct {
	rdb    *redis.Client
	logger *zap.Logger
}

// New 创建去重日志
func New(addr, password string, logger *zap.Logger) *Log {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
	})
	return &Log{rdb: rdb, logger: logger}
}

// Claim 占用 (车辆, 到期日, 发送日) 去重键
// 返回 true 表示占用成功、应当发送；false 表示今天已经发过。
func (l *Log) Claim(ctx context.Context, vehicleID int64, dueDate time.Time) bool {
	key := fmt.Sprintf("vims:sent:%d:%s:%s",
		vehicleID,
		dueDate.Format("2006-01-02"),
		time.Now().Format("2006-01-02"),
	)

	ok, err := l.rdb.SetNX(ctx, key, 1, claimTTL).Result()
	if err != nil {
		l.logger.Warn("Sent-log unavailable, sending without dedupe", zap.Error(err))
		return true
	}
	return ok
}

// Close 关闭 Redis 连接
func (l *Log) Close() error {
	return l.rdb.Close()
}
