// Package noc defines how the memory system sees the network on chip.
//
// The network is an opaque point-to-point transfer primitive. It accepts a
// payload travelling from one endpoint to another and notifies a delivery
// client once the simulated latency has passed. The network may deliver
// transfers between the same pair of endpoints in a different order than they
// are sent.
package noc

// An EndpointID identifies a component that is attached to the network.
type EndpointID int

// A DeliveryClient is notified when a transferred payload arrives.
type DeliveryClient interface {
	Delivered(payload any)
}

// A Transport moves payloads between endpoints.
type Transport interface {
	// Transfer starts moving the payload. The client is notified after the
	// transfer completes.
	Transfer(
		src, dst EndpointID,
		sizeBytes int,
		payload any,
		client DeliveryClient,
	)
}
