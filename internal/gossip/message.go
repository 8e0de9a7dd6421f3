// Package gossip defines the peer-to-peer message envelope gateways use to
// propagate heartbeat observations, and the duplicate-suppression set that
// gives each message exactly-once application per gateway.
//
// Only the HEARTBEAT message type is processed by the current gateway;
// NODE_UPDATE and RING_SYNC are reserved tags for forward compatibility and
// are never emitted by this implementation.
package gossip

import (
	"github.com/google/uuid"
)

// Type tags the shape of a Message's Data payload.
type Type string

const (
	// Heartbeat carries a single node's liveness observation.
	Heartbeat Type = "HEARTBEAT"
	// NodeUpdate is reserved for future cluster-topology messages.
	NodeUpdate Type = "NODE_UPDATE"
	// RingSync is reserved for future full-ring reconciliation messages.
	RingSync Type = "RING_SYNC"
)

// HeartbeatData is the payload of a Heartbeat message.
type HeartbeatData struct {
	NodeID    string  `json:"node_id"`
	Address   string  `json:"address"`
	Port      int     `json:"port"`
	Timestamp float64 `json:"timestamp"`
}

// Message is the wire format exchanged between gateways over POST /gossip.
type Message struct {
	MessageID string        `json:"message_id"`
	Type      Type          `json:"message_type"`
	SenderID  string        `json:"sender_id"`
	Data      HeartbeatData `json:"data"`
	Timestamp float64       `json:"timestamp"`
}

// NewHeartbeat builds a fresh HEARTBEAT message originating from senderID.
// A new MessageID is minted on every call so replays of the same local
// heartbeat are distinct gossip events.
func NewHeartbeat(senderID string, data HeartbeatData) Message {
	return Message{
		MessageID: uuid.NewString(),
		Type:      Heartbeat,
		SenderID:  senderID,
		Data:      data,
		Timestamp: data.Timestamp,
	}
}
