package main

import (
	"github.com/vadiminshakov/madao/internal/events"
	"go.uber.org/zap"
)

// notificationLog mirrors user messages into the log. In CLI runs it is the only
// place they surface.
type notificationLog struct {
	notifier *events.Notifier
	ch       chan events.Message
	done     chan struct{}
	l        *zap.Logger
}

// startNotificationLog subscribes before returning, so every message published
// afterwards is logged.
func startNotificationLog(l *zap.Logger, notifier *events.Notifier) *notificationLog {
	n := &notificationLog{
		notifier: notifier,
		ch:       notifier.Subscribe(),
		done:     make(chan struct{}),
		l:        l,
	}
	go n.run()
	return n
}

func (n *notificationLog) run() {
	defer close(n.done)
	for msg := range n.ch {
		if msg.Severity == events.SeverityError {
			n.l.Error(msg.Text, zap.String("id", msg.ID))
			continue
		}
		n.l.Info(msg.Text, zap.String("id", msg.ID))
	}
}

// Stop unsubscribes and waits until the buffered messages are logged.
func (n *notificationLog) Stop() {
	n.notifier.Unsubscribe(n.ch)
	<-n.done
}
