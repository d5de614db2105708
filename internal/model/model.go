package model

import "time"

type InstanceStatus string

const (
	StatusDisconnected InstanceStatus = "disconnected"
	StatusConnecting   InstanceStatus = "connecting"
	StatusConnected    InstanceStatus = "connected"
)

type Direction string

const (
	DirectionIncoming Direction = "incoming"
	DirectionOutgoing Direction = "outgoing"
)

// Instance is a user-owned connection slot to the chat gateway. GatewayName
// identifies the gateway-side resource and never changes once set; it is empty
// when gateway provisioning failed at creation time.
type Instance struct {
	ID          string         `json:"id"`
	UserID      string         `json:"user_id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	GatewayName string         `json:"gateway_name,omitempty"`
	Status      InstanceStatus `json:"status"`
	PhoneNumber string         `json:"phone_number,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Message is immutable after creation; Status is fixed at whatever value it was
// persisted with.
type Message struct {
	ID          string    `json:"id"`
	InstanceID  string    `json:"instance_id"`
	PhoneNumber string    `json:"phone_number"`
	Body        string    `json:"message"`
	Kind        string    `json:"message_type"`
	Direction   Direction `json:"direction"`
	Status      string    `json:"status"`
	CreatedAt   time.Time `json:"created_at"`
}

type Webhook struct {
	ID            string     `json:"id"`
	InstanceID    string     `json:"instance_id"`
	URL           string     `json:"url"`
	Events        []string   `json:"events"`
	IsActive      bool       `json:"is_active"`
	CreatedAt     time.Time  `json:"created_at"`
	LastTriggered *time.Time `json:"last_triggered,omitempty"`
}

type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Name         string    `json:"name"`
	Company      string    `json:"company,omitempty"`
	IsActive     bool      `json:"is_active"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type APIKey struct {
	ID          string     `json:"id"`
	UserID      string     `json:"user_id"`
	Name        string     `json:"name"`
	Key         string     `json:"key"`
	Permissions []string   `json:"permissions"`
	IsActive    bool       `json:"is_active"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsed    *time.Time `json:"last_used,omitempty"`
}

type ActivityLog struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	InstanceID string         `json:"instance_id,omitempty"`
	Action     string         `json:"action"`
	Details    map[string]any `json:"details,omitempty"`
	IPAddress  string         `json:"ip_address,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
