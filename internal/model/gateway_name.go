package model

import "strings"

const gatewayNamePrefix = "tnx"

// GatewayInstanceName derives the gateway-side resource name for an instance.
// The result is deterministic for a given owner and instance name. It is
// computed once at provisioning time and stored; it must never be re-derived
// for an existing instance because the instance name is user-visible while the
// gateway name is an immutable external identifier.
func GatewayInstanceName(userID, name string) string {
	prefix := strings.ReplaceAll(userID, "-", "")
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	return gatewayNamePrefix + "_" + prefix + "_" + sanitizeName(name)
}

func sanitizeName(name string) string {
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	return b.String()
}
