package model

import "strings"

// TrimJIDSuffix strips the gateway addressing suffix from a JID, e.g.
// "254700000000@s.whatsapp.net" -> "254700000000". Values without a suffix
// pass through unchanged.
func TrimJIDSuffix(jid string) string {
	if i := strings.IndexByte(jid, '@'); i >= 0 {
		return jid[:i]
	}
	return jid
}

// NormalizeRecipient reduces a user-supplied phone number to the bare digit
// form the gateway addresses by.
func NormalizeRecipient(phone string) string {
	phone = TrimJIDSuffix(phone)
	var b strings.Builder
	for _, r := range phone {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
