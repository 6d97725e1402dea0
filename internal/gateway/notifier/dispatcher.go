package notifier

import (
	"sync"

	"tradewind/internal/logger"
)

const queueSize = 64

// Dispatcher 把一条消息异步广播到所有已启用的通道。单个通道阻塞或
// 失败不影响其它通道，队列满时丢弃并记日志。
type Dispatcher struct {
	channels []TextNotifier
	queues   map[string]chan string
	wg       sync.WaitGroup
	once     sync.Once
}

func NewDispatcher(channels ...TextNotifier) *Dispatcher {
	d := &Dispatcher{
		channels: channels,
		queues:   make(map[string]chan string, len(channels)),
	}
	for _, ch := range channels {
		q := make(chan string, queueSize)
		d.queues[ch.Name()] = q
		d.wg.Add(1)
		go d.drain(ch, q)
	}
	return d
}

func (d *Dispatcher) drain(ch TextNotifier, q chan string) {
	defer d.wg.Done()
	for text := range q {
		if err := ch.SendText(text); err != nil {
			logger.Warnf("通知发送失败 channel=%s err=%v", ch.Name(), err)
		}
	}
}

// Send 渲染并投递消息，不等待发送结果。
func (d *Dispatcher) Send(msg Message) {
	text := msg.RenderMarkdown()
	for name, q := range d.queues {
		select {
		case q <- text:
		default:
			logger.Warnf("通知队列已满，丢弃消息 channel=%s", name)
		}
	}
}

// Close 排空队列并等待发送 goroutine 退出。
func (d *Dispatcher) Close() {
	d.once.Do(func() {
		for _, q := range d.queues {
			close(q)
		}
		d.wg.Wait()
	})
}
