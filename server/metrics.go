package server

import (
	"sync/atomic"
)

// Metrics 记录运行期的关键指标（用于监控与调试）
type Metrics struct {
	Connections    int64 // 建立的连接数
	Disconnections int64 // 断开的连接数
	ClaimsAccepted int64 // 成功认领名字
	ClaimsRejected int64 // 被拒绝的认领
	MovesApplied   int64 // 生效的移动
	MovesIgnored   int64 // 未加入或 userId 不匹配而忽略的移动
	RateLimited    int64 // 因限速丢弃的移动
	Malformed      int64 // 格式错误被丢弃的消息
	Broadcasts     int64 // 全量广播次数
	SlowConsumers  int64 // 因发送队列满被断开的连接
}

func (m *Metrics) IncConnections()    { atomic.AddInt64(&m.Connections, 1) }
func (m *Metrics) IncDisconnections() { atomic.AddInt64(&m.Disconnections, 1) }
func (m *Metrics) IncClaimsAccepted() { atomic.AddInt64(&m.ClaimsAccepted, 1) }
func (m *Metrics) IncClaimsRejected() { atomic.AddInt64(&m.ClaimsRejected, 1) }
func (m *Metrics) IncMovesApplied()   { atomic.AddInt64(&m.MovesApplied, 1) }
func (m *Metrics) IncMovesIgnored()   { atomic.AddInt64(&m.MovesIgnored, 1) }
func (m *Metrics) IncRateLimited()    { atomic.AddInt64(&m.RateLimited, 1) }
func (m *Metrics) IncMalformed()      { atomic.AddInt64(&m.Malformed, 1) }
func (m *Metrics) IncBroadcasts()     { atomic.AddInt64(&m.Broadcasts, 1) }
func (m *Metrics) IncSlowConsumers()  { atomic.AddInt64(&m.SlowConsumers, 1) }

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *Metrics) Snapshot() map[string]any {
	return map[string]any{
		"connections":     atomic.LoadInt64(&m.Connections),
		"disconnections":  atomic.LoadInt64(&m.Disconnections),
		"claims_accepted": atomic.LoadInt64(&m.ClaimsAccepted),
		"claims_rejected": atomic.LoadInt64(&m.ClaimsRejected),
		"moves_applied":   atomic.LoadInt64(&m.MovesApplied),
		"moves_ignored":   atomic.LoadInt64(&m.MovesIgnored),
		"rate_limited":    atomic.LoadInt64(&m.RateLimited),
		"malformed":       atomic.LoadInt64(&m.Malformed),
		"broadcasts":      atomic.LoadInt64(&m.Broadcasts),
		"slow_consumers":  atomic.LoadInt64(&m.SlowConsumers),
	}
}
