// Package twitch is a client for the Twitch Helix API with managed OAuth
// token lifecycle.
//
// A Client runs in one of two modes: app mode obtains an app access token via
// the client credentials grant at construction, user mode takes an existing
// user access token (plus refresh token) supplied by the host application.
// Failed requests run a bounded validate-refresh-retry protocol; token
// refreshes, readiness and request errors are delivered to registered
// listeners.
package twitch
