package transport

import (
	"tribe-notify.io/notify/internal/config"
)

// NewWhatsAppTransport creates a WhatsApp adapter. The provider exposes
// WhatsApp through the same messaging API as SMS with "whatsapp:"
// address prefixes, so this wraps the SMS adapter.
func NewWhatsAppTransport(cfg config.TransportConfig) *SMSTransport {
	return newSMSTransport(cfg, "whatsapp:")
}
