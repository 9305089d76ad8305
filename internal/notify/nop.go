package notify

import (
	"context"

	"github.com/google/uuid"
)

// NopNotifier drops every notice. Used when no broker is configured and in
// tests.
type NopNotifier struct{}

// CourierAssignment does nothing.
func (NopNotifier) CourierAssignment(context.Context, uuid.UUID, AssignmentNotice) error { return nil }

// CustomerOTP does nothing.
func (NopNotifier) CustomerOTP(context.Context, uuid.UUID, OTPNotice) error { return nil }

var _ Notifier = NopNotifier{}
