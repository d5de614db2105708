package service

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

// Sender orchestrates an outbound message: preflight connection check, gateway
// send, persistence, webhook dispatch. Persistence is all-or-nothing with
// respect to the gateway call; a message row only exists if the gateway
// accepted the send.
type Sender struct {
	gateway    Gateway
	messages   repo.MessageRepository
	dispatcher Dispatcher
}

func NewSender(gateway Gateway, messages repo.MessageRepository, dispatcher Dispatcher) *Sender {
	return &Sender{
		gateway:    gateway,
		messages:   messages,
		dispatcher: dispatcher,
	}
}

func (s *Sender) Send(ctx context.Context, inst model.Instance, recipient, body, kind string) (model.Message, error) {
	if inst.GatewayName == "" {
		return model.Message{}, ErrNotConfigured
	}

	// The stored status may be stale; the preflight check asks the gateway
	// directly.
	if MapStatus(s.gateway.QueryState(ctx, inst.GatewayName)) != model.StatusConnected {
		return model.Message{}, ErrNotConnected
	}

	if kind == "" {
		kind = "text"
	}

	if _, err := s.gateway.SendText(ctx, inst.GatewayName, recipient, body); err != nil {
		return model.Message{}, fmt.Errorf("%w: %v", ErrSendFailed, err)
	}

	msg := model.Message{
		ID:          uuid.NewString(),
		InstanceID:  inst.ID,
		PhoneNumber: recipient,
		Body:        body,
		Kind:        kind,
		Direction:   model.DirectionOutgoing,
		Status:      "sent",
		CreatedAt:   time.Now().UTC(),
	}
	if err := s.messages.Create(ctx, msg); err != nil {
		return model.Message{}, err
	}

	s.dispatcher.Dispatch(inst.ID, model.EventMessageSent, map[string]any{
		"message_id": msg.ID,
		"to":         recipient,
	})

	return msg, nil
}
