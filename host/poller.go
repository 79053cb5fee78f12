package host

import (
	"time"

	"github.com/vsariola/silta"
)

// MessagePoller periodically drains the engine's diagnostic message queue
// and forwards the messages to the host as alerts. It runs in its own
// goroutine, independent of the real-time path; the engine's message queue
// is the only engine surface it touches.
type MessagePoller struct {
	broker   *Broker
	engine   silta.Engine
	interval time.Duration
}

const defaultPollInterval = 100 * time.Millisecond

func NewMessagePoller(broker *Broker, engine silta.Engine) *MessagePoller {
	return &MessagePoller{broker: broker, engine: engine, interval: defaultPollInterval}
}

// Run polls until the broker's ClosePoller channel is signalled. Call as a
// goroutine; wait for FinishedPoller to know it has stopped.
func (p *MessagePoller) Run() {
	defer close(p.broker.FinishedPoller)
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()
	for {
		select {
		case <-p.broker.ClosePoller:
			p.drain()
			return
		case <-ticker.C:
			p.drain()
		}
	}
}

func (p *MessagePoller) drain() {
	for {
		message, ok := p.engine.NextMessage()
		if !ok {
			return
		}
		trySend(p.broker.ToHost, MsgToHost{Data: Alert{
			Name:     "EngineMessage",
			Message:  message,
			Priority: Notify,
			Duration: defaultAlertDuration,
		}})
	}
}
