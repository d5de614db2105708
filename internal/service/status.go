package service

import (
	"strings"

	"github.com/telenexus-admin/Api/internal/model"
)

// MapStatus folds the gateway's raw connection-state vocabulary into the
// canonical instance status. Total and case-insensitive; anything it does not
// recognize maps to disconnected.
func MapStatus(raw string) model.InstanceStatus {
	switch strings.ToLower(raw) {
	case "open":
		return model.StatusConnected
	case "connecting":
		return model.StatusConnecting
	case "close", "closed":
		return model.StatusDisconnected
	default:
		return model.StatusDisconnected
	}
}
