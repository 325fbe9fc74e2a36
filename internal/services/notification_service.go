package services

import (
	"context"
	"encoding/json"

	"github.com/parkgolf/golf-bff/internal/rpc"
)

// Notification operations.
const (
	OpNotificationsList     = "notifications.list"
	OpNotificationsCreate   = "notifications.create"
	OpNotificationsMarkRead = "notifications.markRead"
)

// NotificationService talks to the notification domain.
type NotificationService struct{ base }

// NewNotificationService wraps c.
func NewNotificationService(c Caller, t rpc.Timeouts) *NotificationService {
	return &NotificationService{base: newBase(c, t)}
}

// List returns the caller's notifications.
func (s *NotificationService) List(ctx context.Context, p Principal, query Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpNotificationsList, query, list)
}

// Create sends a notification.
func (s *NotificationService) Create(ctx context.Context, p Principal, body Params) (json.RawMessage, error) {
	return s.call(ctx, p, OpNotificationsCreate, record(body), quick)
}

// MarkRead marks one notification as read.
func (s *NotificationService) MarkRead(ctx context.Context, p Principal, id any) (json.RawMessage, error) {
	return s.call(ctx, p, OpNotificationsMarkRead, Params{keyNotificationID: id}, quick)
}
