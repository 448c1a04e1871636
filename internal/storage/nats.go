package storage

import (
	"context"
	"fmt"
	"sync"

	"github.com/nats-io/nats.go"
)

const defaultNATSSubject = "tvscout.changes"

// NATSFeed publishes changes on a NATS subject.
type NATSFeed struct {
	conn    *nats.Conn
	subject string
}

func NewNATSFeed(conn *nats.Conn, subject string) *NATSFeed {
	if subject == "" {
		subject = defaultNATSSubject
	}
	return &NATSFeed{conn: conn, subject: subject}
}

func (f *NATSFeed) Publish(_ context.Context, change Change) error {
	payload, err := encodeChange(change)
	if err != nil {
		return err
	}
	if err := f.conn.Publish(f.subject, payload); err != nil {
		return fmt.Errorf("failed to publish change: %w", err)
	}
	return nil
}

func (f *NATSFeed) Subscribe(ctx context.Context, fn func(Change)) (func(), error) {
	sub, err := f.conn.Subscribe(f.subject, func(m *nats.Msg) {
		if change, ok := decodeChange(m.Data); ok {
			fn(change)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to subscribe to %s: %w", f.subject, err)
	}
	// make sure the server has registered interest before callers publish
	if err := f.conn.Flush(); err != nil {
		_ = sub.Unsubscribe()
		return nil, fmt.Errorf("failed to flush subscription: %w", err)
	}

	stop := make(chan struct{})
	go func() {
		select {
		case <-ctx.Done():
			_ = sub.Unsubscribe()
		case <-stop:
		}
	}()

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			_ = sub.Unsubscribe()
		})
	}, nil
}
