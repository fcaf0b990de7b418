package server

import (
	"collabmap/protocol"
)

// Channel 权威端看到的传输通道（发送端）。
// Enqueue 不得阻塞；返回 false 表示发送队列已满。
type Channel interface {
	ID() ConnID
	Enqueue(msg []byte) bool
	Close()
}

// Broadcaster 广播引擎：维护所有已打开的通道，把全量花名册推给每一个。
// 与 Store 一样只在 World 循环协程内使用。
type Broadcaster struct {
	channels map[ConnID]Channel
	order    []ConnID
	metrics  *Metrics
}

// NewBroadcaster 创建广播引擎
func NewBroadcaster(metrics *Metrics) *Broadcaster {
	return &Broadcaster{
		channels: make(map[ConnID]Channel),
		metrics:  metrics,
	}
}

// Attach 登记通道；同 ID 重复登记时替换旧通道
func (b *Broadcaster) Attach(ch Channel) {
	id := ch.ID()
	if _, ok := b.channels[id]; !ok {
		b.order = append(b.order, id)
	}
	b.channels[id] = ch
}

// Detach 移除通道，幂等
func (b *Broadcaster) Detach(id ConnID) (Channel, bool) {
	ch, ok := b.channels[id]
	if !ok {
		return nil, false
	}
	delete(b.channels, id)
	for i, v := range b.order {
		if v == id {
			b.order = append(b.order[:i], b.order[i+1:]...)
			break
		}
	}
	return ch, true
}

// Has 通道是否仍在广播集合内
func (b *Broadcaster) Has(id ConnID) bool {
	_, ok := b.channels[id]
	return ok
}

// Len 已打开通道数
func (b *Broadcaster) Len() int { return len(b.order) }

// Send 单播一条消息
func (b *Broadcaster) Send(id ConnID, msg any) {
	ch, ok := b.channels[id]
	if !ok {
		return
	}
	payload, err := protocol.Encode(msg)
	if err != nil {
		Log.Errorw("encode message failed", "conn", id, "error", err)
		return
	}
	if !ch.Enqueue(payload) {
		b.dropSlow(ch)
	}
}

// Broadcast 将一份 userUpdate 推给所有通道（包括触发事件的那个）
func (b *Broadcaster) Broadcast(roster []Participant) {
	payload, err := protocol.Encode(protocol.NewUserUpdate(users(roster)))
	if err != nil {
		Log.Errorw("encode roster failed", "error", err)
		return
	}
	var slow []Channel
	for _, id := range b.order {
		ch := b.channels[id]
		if !ch.Enqueue(payload) {
			slow = append(slow, ch)
		}
	}
	for _, ch := range slow {
		b.dropSlow(ch)
	}
	if b.metrics != nil {
		b.metrics.IncBroadcasts()
	}
}

// dropSlow 队列满的慢消费者直接移出并断开，参与者由读协程走正常的离开流程移除。
func (b *Broadcaster) dropSlow(ch Channel) {
	b.Detach(ch.ID())
	if b.metrics != nil {
		b.metrics.IncSlowConsumers()
	}
	Log.Warnw("send queue full, closing connection", "conn", ch.ID())
	ch.Close()
}
