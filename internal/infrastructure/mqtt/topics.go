package mqtt

// Topic layout. Everything thingsd publishes lives under a single
// root so brokers shared with other services stay tidy.
//
//	thingsd/things         - retained, the full resource list as JSON
//	thingsd/system/status  - retained, online/offline lifecycle
const (
	// TopicThings carries every broadcast payload, retained so new
	// subscribers see the current list immediately.
	TopicThings = "thingsd/things"

	// TopicSystemStatus carries lifecycle status and the LWT.
	TopicSystemStatus = "thingsd/system/status"
)
