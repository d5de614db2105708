package model

// Webhook event names. Instance status events are derived with InstanceEvent so
// instance.connected / instance.connecting / instance.disconnected always track
// the InstanceStatus vocabulary.
const (
	EventMessageSent     = "message.sent"
	EventMessageReceived = "message.received"
	EventTest            = "test"
)

func InstanceEvent(status InstanceStatus) string {
	return "instance." + string(status)
}
