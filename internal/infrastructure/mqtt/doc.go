// Package mqtt provides the optional broadcast relay.
//
// When enabled, every notification payload the hub fans out to HTTP
// subscribers is also published to the broker as a retained message, so
// late-joining MQTT consumers immediately see the current resource
// list. The relay is publish-only; thingsd never subscribes.
//
// Connection management follows the usual broker conventions:
//
//   - Auto-reconnect with exponential backoff.
//   - Last Will and Testament on thingsd/system/status so consumers can
//     distinguish a crash from a graceful shutdown.
//   - Online/offline status published retained on the same topic.
package mqtt
