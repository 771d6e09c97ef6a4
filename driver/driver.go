// Package driver defines the contract between the SDK and a provider
// driver: the integration layer that owns the identity provider's UI or
// redirect mechanics.
//
// A driver attaches to the event bus, consumes the request events emitted by
// the auth package (__authenticateMobileEmail and friends) and answers them
// with the matching completion or error events, echoing the FlowID carried
// by the request payload. Everything between request and completion, from
// OTP entry and wallet prompts to OAuth redirects, is the driver's business.
package driver

import "github.com/piazza-xyz/piazza-go/events"

// Driver is a provider integration attached to an event bus.
type Driver interface {
	// Attach subscribes the driver to the request events it serves. A
	// driver signals readiness by emitting the provider-ready event once it
	// can accept requests.
	Attach(bus *events.Bus) error
}
