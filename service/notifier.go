package service

import "context"

// Notification is what a shopper is told when a cart operation fails.
type Notification struct {
	Op        string
	ProductID int64
	Kind      Kind
	Message   string
}

// Notifier receives a Notification for every failed operation. It is called
// before the operation returns and must not block.
type Notifier interface {
	Notify(ctx context.Context, n Notification)
}

type NotifierFunc func(ctx context.Context, n Notification)

func (f NotifierFunc) Notify(ctx context.Context, n Notification) { f(ctx, n) }
