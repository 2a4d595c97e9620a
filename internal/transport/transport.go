// Package transport implements the delivery channel adapters. Each
// channel provider is a black-box collaborator behind the Transport
// interface; the engine never sees provider wire formats.
package transport

import (
	"context"
	"errors"
	"fmt"

	"tribe-notify.io/notify/internal/domain"
)

// ErrNoTransport is returned when no adapter is registered for a channel.
var ErrNoTransport = errors.New("no transport registered for channel")

// Message is one rendered delivery: the address comes from the
// recipient record, the subject/body from the template catalog.
type Message struct {
	To      string
	Subject string
	Body    string
}

// Transport sends one message through a single channel provider and
// returns the provider's message identifier.
type Transport interface {
	Send(ctx context.Context, msg Message) (messageID string, err error)
}

// Registry maps channels to their configured adapters.
type Registry struct {
	transports map[domain.Channel]Transport
}

// NewRegistry creates an empty transport registry.
func NewRegistry() *Registry {
	return &Registry{transports: make(map[domain.Channel]Transport)}
}

// Register installs an adapter for a channel, replacing any existing one.
func (r *Registry) Register(ch domain.Channel, t Transport) {
	r.transports[ch] = t
}

// Send routes one message to the channel's adapter.
func (r *Registry) Send(ctx context.Context, ch domain.Channel, msg Message) (string, error) {
	t, ok := r.transports[ch]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrNoTransport, ch)
	}
	return t.Send(ctx, msg)
}
