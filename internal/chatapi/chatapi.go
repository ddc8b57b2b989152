// Package chatapi defines the wire-level shapes a chat-transport
// adapter (internal/telegram or any other front door) translates to
// and from: an inbound webhook payload becomes an InboundMessage, and
// the Orchestrator's reply or pending InterruptPayload becomes an
// OutboundMessage. Kept as plain data with no pipeline logic, the same
// way the teacher's internal/telegram/types.go separates wire shapes
// from WebhookHandler's behavior.
package chatapi

import "convoassist/internal/hitl"

// InboundMessage is a transport-agnostic inbound turn.
type InboundMessage struct {
	UserID             string
	Phone              string
	Language           string
	Text               string
	ExternalID         string
	ReplyToExternalID  string
	RequestID          string
	CapabilityCalendar bool
	CapabilityEmail    bool
}

// OutboundKind discriminates OutboundMessage.
type OutboundKind string

const (
	OutboundReply     OutboundKind = "reply"
	OutboundInterrupt OutboundKind = "interrupt"
)

// OutboundMessage is what the Orchestrator hands back to a transport
// adapter: either a finished assistant reply or a pending interrupt.
type OutboundMessage struct {
	Kind      OutboundKind
	Reply     string
	Interrupt *hitl.InterruptPayload
}
