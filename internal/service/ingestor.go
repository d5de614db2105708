package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/telenexus-admin/Api/internal/model"
	"github.com/telenexus-admin/Api/internal/repo"
)

type OutcomeStatus string

const (
	OutcomeProcessed OutcomeStatus = "processed"
	OutcomeIgnored   OutcomeStatus = "ignored"
	OutcomeError     OutcomeStatus = "error"
)

// Outcome is what the push endpoint acknowledges with. The gateway has no
// useful retry semantics, so failures are embedded here instead of being
// signalled through the HTTP status.
type Outcome struct {
	Status OutcomeStatus `json:"status"`
	Reason string        `json:"reason,omitempty"`
}

// Ingestor normalizes unsolicited gateway pushes into canonical state changes
// and incoming messages. It never creates instances.
type Ingestor struct {
	instances  repo.InstanceRepository
	messages   repo.MessageRepository
	dispatcher Dispatcher
	dedupe     Deduper
}

func NewIngestor(instances repo.InstanceRepository, messages repo.MessageRepository, dispatcher Dispatcher, dedupe Deduper) *Ingestor {
	return &Ingestor{
		instances:  instances,
		messages:   messages,
		dispatcher: dispatcher,
		dedupe:     dedupe,
	}
}

func (ing *Ingestor) Ingest(ctx context.Context, payload map[string]any) (outcome Outcome) {
	defer func() {
		if r := recover(); r != nil {
			slog.Error("ingest: panic recovered", "panic", r)
			outcome = Outcome{Status: OutcomeError, Reason: fmt.Sprintf("panic: %v", r)}
		}
	}()

	name := extractInstanceName(payload)
	if name == "" {
		return Outcome{Status: OutcomeIgnored, Reason: "no instance name"}
	}

	inst, err := ing.instances.GetByGatewayName(ctx, name)
	if errors.Is(err, repo.ErrNotFound) {
		return Outcome{Status: OutcomeIgnored, Reason: "instance not found"}
	}
	if err != nil {
		return Outcome{Status: OutcomeError, Reason: err.Error()}
	}

	event, _ := payload["event"].(string)
	switch event {
	case "connection.update":
		return ing.handleConnectionUpdate(ctx, inst, payload)
	case "messages.upsert", "messages.update":
		return ing.handleMessages(ctx, inst, payload)
	default:
		// Unknown events are acknowledged without effect.
		return Outcome{Status: OutcomeProcessed}
	}
}

// extractInstanceName checks the places the gateway has been seen to put the
// instance name; its payload shape is not uniform across event types.
func extractInstanceName(payload map[string]any) string {
	if s, ok := payload["instanceName"].(string); ok && s != "" {
		return s
	}
	switch v := payload["instance"].(type) {
	case string:
		return v
	case map[string]any:
		return stringField(v, "instanceName")
	}
	return ""
}

func (ing *Ingestor) handleConnectionUpdate(ctx context.Context, inst model.Instance, payload map[string]any) Outcome {
	data, _ := payload["data"].(map[string]any)
	raw := stringField(data, "state")
	if raw == "" {
		raw = stringField(payload, "state")
	}
	status := MapStatus(raw)

	phone := inst.PhoneNumber
	if status == model.StatusConnected {
		if owner := stringField(data, "owner"); owner != "" {
			phone = model.TrimJIDSuffix(owner)
		}
	}

	// Push events are authoritative: persist unconditionally, unlike the
	// pull path which diffs first.
	if err := ing.instances.UpdateState(ctx, inst.ID, status, phone, time.Now().UTC()); err != nil {
		return Outcome{Status: OutcomeError, Reason: err.Error()}
	}

	ing.dispatcher.Dispatch(inst.ID, model.InstanceEvent(status), map[string]any{
		"instance_id": inst.ID,
		"status":      string(status),
	})

	return Outcome{Status: OutcomeProcessed}
}

func (ing *Ingestor) handleMessages(ctx context.Context, inst model.Instance, payload map[string]any) Outcome {
	for _, item := range messageItems(payload["data"]) {
		ing.ingestMessage(ctx, inst, item)
	}
	return Outcome{Status: OutcomeProcessed}
}

// messageItems normalizes the event's message data to a sequence; the gateway
// sends a single object for lone messages and an array for batches.
func messageItems(data any) []map[string]any {
	switch v := data.(type) {
	case map[string]any:
		return []map[string]any{v}
	case []any:
		var out []map[string]any
		for _, item := range v {
			if m, ok := item.(map[string]any); ok {
				out = append(out, m)
			}
		}
		return out
	}
	return nil
}

func (ing *Ingestor) ingestMessage(ctx context.Context, inst model.Instance, item map[string]any) {
	key, _ := item["key"].(map[string]any)

	// Messages the instance itself sent come back through the same event
	// stream; they must not be re-ingested as incoming.
	if fromMe, _ := key["fromMe"].(bool); fromMe {
		return
	}

	text := messageText(item)
	if text == "" {
		return
	}

	if externalID := stringField(key, "id"); externalID != "" && ing.dedupe != nil {
		first, err := ing.dedupe.FirstSeen(ctx, "gwmsg:"+externalID)
		if err == nil && !first {
			return
		}
	}

	sender := model.TrimJIDSuffix(stringField(key, "remoteJid"))

	msg := model.Message{
		ID:          uuid.NewString(),
		InstanceID:  inst.ID,
		PhoneNumber: sender,
		Body:        text,
		Kind:        "text",
		Direction:   model.DirectionIncoming,
		Status:      "received",
		CreatedAt:   time.Now().UTC(),
	}
	if err := ing.messages.Create(ctx, msg); err != nil {
		slog.Error("ingest: failed to persist incoming message", "instance", inst.ID, "err", err)
		return
	}

	ing.dispatcher.Dispatch(inst.ID, model.EventMessageReceived, map[string]any{
		"message_id": msg.ID,
		"from":       sender,
		"message":    text,
	})
}

// messageText resolves the body from the subtype-dependent nesting, preferring
// the plain conversation field over the extended-text one.
func messageText(item map[string]any) string {
	msg, _ := item["message"].(map[string]any)
	if s := stringField(msg, "conversation"); s != "" {
		return s
	}
	if ext, ok := msg["extendedTextMessage"].(map[string]any); ok {
		return stringField(ext, "text")
	}
	return ""
}

func stringField(m map[string]any, key string) string {
	if m == nil {
		return ""
	}
	s, _ := m[key].(string)
	return s
}
