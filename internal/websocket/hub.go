// internal/websocket/hub.go
package websocket

import (
	"context"
	"sync"

	"salescoach-service/internal/domain/billing"
	wstypes "salescoach-service/internal/domain/websocket"
	"salescoach-service/internal/pkg/jwt"

	"go.uber.org/zap"
)

type TokenVerifier interface {
	VerifyAccessToken(token string) (*jwt.Claims, error)
}

type TokenBlacklist interface {
	IsTokenBlacklisted(ctx context.Context, jti string) (bool, error)
}

type Hub struct {
	// Registered clients by organization ID
	clients map[string]map[*Client]bool
	mu      sync.RWMutex

	// Registration/unregistration
	register   chan *Client
	unregister chan *Client

	// Broadcasting
	broadcast chan *BroadcastMessage

	// Closed once Run returns
	done chan struct{}

	// Handler registry for modular message handling
	handlerRegistry *HandlerRegistry

	// Auth dependencies; blacklist may be nil
	verifier  TokenVerifier
	blacklist TokenBlacklist

	logger *zap.Logger
}

type BroadcastMessage struct {
	OrganizationIDs []string
	Channel         wstypes.ChannelType
	Message         *wstypes.WSMessage
}

func NewHub(verifier TokenVerifier, blacklist TokenBlacklist, logger *zap.Logger) *Hub {
	return &Hub{
		clients:         make(map[string]map[*Client]bool),
		register:        make(chan *Client),
		unregister:      make(chan *Client),
		broadcast:       make(chan *BroadcastMessage, 256),
		done:            make(chan struct{}),
		handlerRegistry: NewHandlerRegistry(),
		verifier:        verifier,
		blacklist:       blacklist,
		logger:          logger,
	}
}

// AuthenticateClient validates the JWT token and returns the identity of the connection
func (h *Hub) AuthenticateClient(ctx context.Context, token string) (*ClientAuth, error) {
	claims, err := h.verifier.VerifyAccessToken(token)
	if err != nil {
		return nil, err
	}

	if h.blacklist != nil {
		blacklisted, err := h.blacklist.IsTokenBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if blacklisted {
			return nil, ErrTokenBlacklisted
		}
	}

	if claims.OrganizationID == "" {
		return nil, ErrNoOrganization
	}

	return &ClientAuth{
		UserID:         claims.UserID,
		OrganizationID: claims.OrganizationID,
		SessionID:      claims.ID,
		Roles:          claims.Roles,
	}, nil
}

// RegisterHandler registers a message handler
func (h *Hub) RegisterHandler(handler MessageHandler) {
	h.handlerRegistry.Register(handler)
}

// HandleClientMessage processes a message from a client using registered handlers
func (h *Hub) HandleClientMessage(ctx context.Context, client *Client, msg *wstypes.WSMessage) (bool, error) {
	handler, exists := h.handlerRegistry.GetHandler(msg.Type)
	if !exists {
		return false, nil
	}
	return true, handler.HandleMessage(ctx, client, msg)
}

func (h *Hub) Run(ctx context.Context) {
	defer close(h.done)

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return

		case client := <-h.register:
			h.registerClient(client)

		case client := <-h.unregister:
			h.unregisterClient(client)

		case msg := <-h.broadcast:
			h.BroadcastMessage(msg)
		}
	}
}

// Join hands the client to the run loop. It reports false, without
// blocking, once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// requestUnregister never blocks once the hub has stopped
func (h *Hub) requestUnregister(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) registerClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.clients[client.organizationID] == nil {
		h.clients[client.organizationID] = make(map[*Client]bool)
	}
	h.clients[client.organizationID][client] = true

	h.logger.Info("websocket client connected",
		zap.String("user_id", client.userID),
		zap.String("organization_id", client.organizationID),
		zap.Int("total", h.totalClients()),
	)

	client.SendMessage(wstypes.NewMessage(wstypes.EventTypeConnected, map[string]interface{}{
		"user_id":         client.userID,
		"organization_id": client.organizationID,
		"session_id":      client.sessionID,
		"channels":        client.Channels(),
	}))
}

func (h *Hub) unregisterClient(client *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if clients, ok := h.clients[client.organizationID]; ok {
		if _, exists := clients[client]; exists {
			delete(clients, client)
			client.Close()

			if len(clients) == 0 {
				delete(h.clients, client.organizationID)
			}

			h.logger.Info("websocket client disconnected",
				zap.String("user_id", client.userID),
				zap.String("organization_id", client.organizationID),
				zap.Int("total", h.totalClients()),
			)
		}
	}
}

func (h *Hub) BroadcastMessage(msg *BroadcastMessage) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	send := func(clients map[*Client]bool) {
		for client := range clients {
			if client.IsSubscribed(msg.Channel) {
				client.SendMessage(msg.Message)
			}
		}
	}

	if msg.OrganizationIDs == nil {
		for _, clients := range h.clients {
			send(clients)
		}
		return
	}
	for _, orgID := range msg.OrganizationIDs {
		send(h.clients[orgID])
	}
}

// PublishUsage pushes a usage snapshot to every connection of the organization.
// It never blocks the caller; events are dropped when the queue is full.
func (h *Hub) PublishUsage(organizationID string, usage *billing.Usage) {
	if usage == nil {
		return
	}
	msg := &BroadcastMessage{
		OrganizationIDs: []string{organizationID},
		Channel:         wstypes.ChannelUsage,
		Message: wstypes.NewMessage(wstypes.EventTypeUsageUpdated, wstypes.UsageData{
			OrganizationID:       organizationID,
			Month:                usage.Month,
			CallsUsed:            usage.CallsUsed,
			RoleplaySessionsUsed: usage.RoleplaySessionsUsed,
		}),
	}

	select {
	case h.broadcast <- msg:
	default:
		h.logger.Warn("websocket broadcast queue full, dropping usage event",
			zap.String("organization_id", organizationID),
		)
	}
}

func (h *Hub) GetConnectedClients(organizationID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients[organizationID])
}

func (h *Hub) TotalClients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.totalClients()
}

func (h *Hub) totalClients() int {
	total := 0
	for _, clients := range h.clients {
		total += len(clients)
	}
	return total
}

func (h *Hub) shutdown() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for orgID, clients := range h.clients {
		for client := range clients {
			client.Close()
		}
		delete(h.clients, orgID)
	}
}
