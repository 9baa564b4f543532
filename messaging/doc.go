// Package messaging provides a provider-based API for sending and receiving messages.
// Providers implement the Producer and Receiver interfaces and register with a Manager under the
// URL schemes they handle; the Manager routes each call to the provider for the URL's scheme.
//
// The only provider in this package is the local provider for the "chan" scheme, which passes
// messages through in-process Go channels and needs no messaging server. No other protocol is
// implemented here.
package messaging
