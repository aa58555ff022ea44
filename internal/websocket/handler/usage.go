// internal/websocket/handler/usage.go
package handler

import (
	"context"
	"fmt"

	"salescoach-service/internal/domain/billing"
	wstypes "salescoach-service/internal/domain/websocket"
	ws "salescoach-service/internal/websocket"
)

type UsageReader interface {
	GetCurrentUsage(ctx context.Context, organizationID string) (*billing.Usage, error)
}

// UsageHandler answers usage.get with the organization's current month.
type UsageHandler struct {
	usage UsageReader
}

func NewUsageHandler(usage UsageReader) *UsageHandler {
	return &UsageHandler{usage: usage}
}

// SupportedEvents returns events this handler supports
func (h *UsageHandler) SupportedEvents() []wstypes.EventType {
	return []wstypes.EventType{wstypes.EventTypeUsageGet}
}

func (h *UsageHandler) HandleMessage(ctx context.Context, client *ws.Client, msg *wstypes.WSMessage) error {
	if msg.Type != wstypes.EventTypeUsageGet {
		return fmt.Errorf("unsupported event type: %s", msg.Type)
	}

	usage, err := h.usage.GetCurrentUsage(ctx, client.GetOrganizationID())
	if err != nil {
		return fmt.Errorf("failed to read usage: %w", err)
	}

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeUsageUpdated, wstypes.UsageData{
		OrganizationID:       usage.OrganizationID,
		Month:                usage.Month,
		CallsUsed:            usage.CallsUsed,
		RoleplaySessionsUsed: usage.RoleplaySessionsUsed,
	}))
	return nil
}
