// Package dul pins down the narrow interface the DIMSE core needs from
// the DICOM Upper Layer. The DUL itself -- TCP lifecycle, A-ASSOCIATE /
// A-RELEASE / A-ABORT PDUs, the ARTIM timer, presentation-context
// negotiation -- is out of scope here and lives in a separate package;
// this one only names the shape of the collaborator.
package dul

import "github.com/mdimse/dimse/pdu"

// EventType enumerates the DUL-level events the core can push onto a
// DUL's event queue. Evt19 (an unrecognized or invalid PDU forces an
// abort) is the only event type defined here, and the only one the
// DIMSE layer raises.
type EventType int

const (
	// Evt19 signals an invalid or unparseable PDU was received. DIMSE
	// raises this when it cannot convert a completed message into a
	// primitive; the DUL decides the ARTIM/abort consequences.
	Evt19 EventType = 19
)

// Event is a single entry pushed onto a DUL's event queue.
type Event struct {
	Type EventType
	Err  error
}

// Provider is the capability the DIMSE service provider consumes from
// the DUL of an established association: send a P_DATA PDU, push an
// event (e.g. Evt19 on protocol error), and check liveness.
type Provider interface {
	// SendPDU hands a fully formed P_DATA PDU to the DUL for
	// transmission. The DUL owns the socket and ordering guarantees;
	// DIMSE never buffers for retransmission.
	SendPDU(p *pdu.PDataTf) error

	// PushEvent enqueues a DUL-level event (e.g. Evt19 on a peer
	// protocol error). The DUL's own state machine interprets it.
	PushEvent(evt Event)

	// IsAlive reports whether the underlying association is still
	// usable for sending.
	IsAlive() bool
}
