// Package event is the association-scoped event bus (spec §4.7): a
// small pub/sub layer that separates fire-and-forget notifications
// (DIMSE_SENT, PDU_RECV, ...) from the small set of service
// "intervention" events that carry a result back to the caller
// (C_ECHO, C_STORE, C_FIND, ...).
//
// Notifications accept any number of handlers and never fail the
// association: a handler panic or error is logged and swallowed.
// Interventions accept at most one handler and propagate whatever
// that handler returns, since the dispatcher (package service) turns
// a propagated error into a protocol-level failure status.
package event

import (
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// Tag identifies the kind of event travelling through the bus.
type Tag int

// Notification event tags. Zero or more handlers; errors are logged,
// never propagated.
const (
	DIMSESent Tag = iota
	DIMSERecv
	ACSESent
	ACSERecv
	PDUSent
	PDURecv
	FSMTransition
	ConnOpen
	ConnClose
	Aborted
	Accepted
	Rejected
	Released
	Requested
	Established
)

// Intervention event tags. At most one handler; its error propagates.
const (
	CEcho Tag = iota + 100
	CStore
	CFind
	CGet
	CMove
	NEventReport
	NGet
	NSet
	NAction
	NCreate
	NDelete
	AsyncOps
	SOPCommon
	SOPExtended
	UserID
)

func (t Tag) String() string {
	switch t {
	case DIMSESent:
		return "DIMSE_SENT"
	case DIMSERecv:
		return "DIMSE_RECV"
	case ACSESent:
		return "ACSE_SENT"
	case ACSERecv:
		return "ACSE_RECV"
	case PDUSent:
		return "PDU_SENT"
	case PDURecv:
		return "PDU_RECV"
	case FSMTransition:
		return "FSM_TRANSITION"
	case ConnOpen:
		return "CONN_OPEN"
	case ConnClose:
		return "CONN_CLOSE"
	case Aborted:
		return "ABORTED"
	case Accepted:
		return "ACCEPTED"
	case Rejected:
		return "REJECTED"
	case Released:
		return "RELEASED"
	case Requested:
		return "REQUESTED"
	case Established:
		return "ESTABLISHED"
	case CEcho:
		return "C_ECHO"
	case CStore:
		return "C_STORE"
	case CFind:
		return "C_FIND"
	case CGet:
		return "C_GET"
	case CMove:
		return "C_MOVE"
	case NEventReport:
		return "N_EVENT_REPORT"
	case NGet:
		return "N_GET"
	case NSet:
		return "N_SET"
	case NAction:
		return "N_ACTION"
	case NCreate:
		return "N_CREATE"
	case NDelete:
		return "N_DELETE"
	case AsyncOps:
		return "ASYNC_OPS"
	case SOPCommon:
		return "SOP_COMMON"
	case SOPExtended:
		return "SOP_EXTENDED"
	case UserID:
		return "USER_ID"
	default:
		return fmt.Sprintf("Tag(%d)", int(t))
	}
}

// IsIntervention reports whether t belongs to the intervention family
// (at most one handler, propagating errors) rather than notification.
func (t Tag) IsIntervention() bool { return t >= CEcho }

// Event is a single occurrence on the bus: which association it
// belongs to, what kind it is, when it happened, and the
// event-specific attributes a handler needs.
type Event struct {
	Association string
	Tag         Tag
	At          time.Time
	Attrs       map[string]interface{}
}

// New creates an event for the given association and tag with no
// attributes set.
func New(association string, tag Tag, at time.Time) Event {
	return Event{Association: association, Tag: tag, At: at, Attrs: map[string]interface{}{}}
}

// With attaches an attribute and returns the event for chaining.
func (e Event) With(key string, value interface{}) Event {
	e.Attrs[key] = value
	return e
}

// Get reads back an attribute previously set with With.
func (e Event) Get(key string) (interface{}, bool) {
	v, ok := e.Attrs[key]
	return v, ok
}

// NotificationHandler receives a fire-and-forget event. A returned
// error is logged, never surfaced to the caller of Notify.
type NotificationHandler func(Event) error

// InterventionHandler receives a service-intervention event and
// returns the handler's result (or an error, which Intervene callers
// turn into a protocol failure status).
type InterventionHandler func(Event) (interface{}, error)

// Bus is the association-scoped event bus: a small routing table from
// Tag to its handlers, built once at association setup and consulted
// on every DIMSE send/receive and every dispatched service request.
type Bus struct {
	notification map[Tag][]NotificationHandler
	intervention map[Tag]InterventionHandler
}

// NewBus returns an empty bus ready for handler registration.
func NewBus() *Bus {
	return &Bus{
		notification: make(map[Tag][]NotificationHandler),
		intervention: make(map[Tag]InterventionHandler),
	}
}

// OnNotify registers an additional handler for a notification tag.
func (b *Bus) OnNotify(tag Tag, h NotificationHandler) {
	b.notification[tag] = append(b.notification[tag], h)
}

// OnIntervene binds the single handler for an intervention tag,
// replacing any previous binding.
func (b *Bus) OnIntervene(tag Tag, h InterventionHandler) {
	b.intervention[tag] = h
}

// Notify fires every handler bound to a notification tag. Handler
// errors are logged and otherwise ignored; protocol flow never stops
// because of one (spec §4.7).
func (b *Bus) Notify(e Event) {
	for _, h := range b.notification[e.Tag] {
		if err := b.safeNotify(h, e); err != nil {
			logrus.WithField("event", e.Tag.String()).WithField("association", e.Association).Warnf("notification handler error: %v", err)
		}
	}
}

func (b *Bus) safeNotify(h NotificationHandler, e Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in notification handler: %v", r)
		}
	}()
	return h(e)
}

// ErrNoHandler is returned by Intervene when the peer negotiated a
// service no handler was bound for -- a programmer error the
// dispatcher turns into a failure status.
var ErrNoHandler = fmt.Errorf("no handler bound for intervention event")

// Intervene calls the single handler bound to an intervention tag and
// returns its result. A handler panic is converted to an error so it
// can be translated into a protocol failure status rather than
// crashing the association task.
func (b *Bus) Intervene(e Event) (result interface{}, err error) {
	h, ok := b.intervention[e.Tag]
	if !ok {
		return nil, ErrNoHandler
	}
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic in intervention handler: %v", r)
		}
	}()
	return h(e)
}
