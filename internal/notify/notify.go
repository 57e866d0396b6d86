// Package notify delivers trade event notifications.
package notify

import (
	"context"
	"sync"
	"time"

	"github.com/Cikle/Alpatrader/internal/models"
)

// Notifier defines the interface for sending notifications.
type Notifier interface {
	Send(ctx context.Context, n Notification) error
	SendOrder(ctx context.Context, order models.Order, result models.OrderResult) error
	SendExit(ctx context.Context, trigger models.ExitTrigger) error
	SendError(ctx context.Context, err error, detail string) error
}

// Channel defines the interface for a notification channel.
type Channel interface {
	Name() string
	Send(ctx context.Context, n Notification) error
	IsEnabled() bool
}

// Notification represents a notification message.
type Notification struct {
	Type      NotificationType
	Title     string
	Message   string
	Data      map[string]interface{}
	Timestamp time.Time
}

// NotificationType represents the type of notification.
type NotificationType string

const (
	NotificationTrade NotificationType = "trade"
	NotificationExit  NotificationType = "exit"
	NotificationError NotificationType = "error"
	NotificationInfo  NotificationType = "info"
)

// Level filters which notifications are delivered.
type Level string

const (
	LevelAll        Level = "all"
	LevelTradesOnly Level = "trades_only"
	LevelErrorsOnly Level = "errors_only"
)

// MultiNotifier fans notifications out to multiple channels.
type MultiNotifier struct {
	mu       sync.RWMutex
	channels []Channel
	level    Level
}

// NewMultiNotifier creates a notifier with the given delivery level.
func NewMultiNotifier(level Level, channels ...Channel) *MultiNotifier {
	if level == "" {
		level = LevelAll
	}
	return &MultiNotifier{channels: channels, level: level}
}

// AddChannel registers an additional channel.
func (m *MultiNotifier) AddChannel(ch Channel) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.channels = append(m.channels, ch)
}

func (m *MultiNotifier) passes(t NotificationType) bool {
	switch m.level {
	case LevelTradesOnly:
		return t == NotificationTrade || t == NotificationExit
	case LevelErrorsOnly:
		return t == NotificationError
	default:
		return true
	}
}

// Send delivers to every enabled channel. The first channel error is
// returned but delivery continues to the remaining channels.
func (m *MultiNotifier) Send(ctx context.Context, n Notification) error {
	if !m.passes(n.Type) {
		return nil
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = time.Now()
	}

	m.mu.RLock()
	channels := make([]Channel, len(m.channels))
	copy(channels, m.channels)
	m.mu.RUnlock()

	var firstErr error
	for _, ch := range channels {
		if !ch.IsEnabled() {
			continue
		}
		if err := ch.Send(ctx, n); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// SendOrder notifies about an order submission.
func (m *MultiNotifier) SendOrder(ctx context.Context, order models.Order, result models.OrderResult) error {
	title := "Order submitted"
	if !result.Accepted {
		title = "Order rejected"
	}
	return m.Send(ctx, Notification{
		Type:    NotificationTrade,
		Title:   title,
		Message: order.Ticker,
		Data: map[string]interface{}{
			"ticker":      order.Ticker,
			"side":        string(order.Side),
			"asset_class": string(order.Class),
			"quantity":    order.Quantity,
			"tag":         order.Tag,
			"order_id":    result.OrderID,
			"status":      result.Status,
			"reason":      result.Reason,
		},
	})
}

// SendExit notifies about a position close.
func (m *MultiNotifier) SendExit(ctx context.Context, trigger models.ExitTrigger) error {
	return m.Send(ctx, Notification{
		Type:    NotificationExit,
		Title:   "Position closing",
		Message: trigger.Ticker,
		Data: map[string]interface{}{
			"ticker":   trigger.Ticker,
			"reason":   string(trigger.Reason),
			"detail":   trigger.Detail,
			"quantity": trigger.Quantity,
		},
	})
}

// SendError notifies about a failure worth surfacing.
func (m *MultiNotifier) SendError(ctx context.Context, err error, detail string) error {
	return m.Send(ctx, Notification{
		Type:    NotificationError,
		Title:   "Error",
		Message: detail,
		Data:    map[string]interface{}{"error": err.Error()},
	})
}
