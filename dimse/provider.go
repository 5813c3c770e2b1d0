package dimse

import (
	"fmt"
	"sync"
	"time"

	"github.com/mdimse/dimse/dul"
	"github.com/mdimse/dimse/event"
	"github.com/mdimse/dimse/pdu"
	"github.com/sirupsen/logrus"
)

// Config holds the per-association tunables the teacher's code left
// as hardcoded constants (spec §4.3, §9): no globals, one value per
// provider instance so multiple associations in the same process
// never fight over shared state.
type Config struct {
	// Name identifies the association in events and log lines.
	Name string
	// CancelMapCapacity bounds the cancel map; excess C-CANCEL
	// primitives are silently dropped. Zero means the default of 10.
	CancelMapCapacity int
	// EnforceUIDConformance turns on strict UID-grammar validation in
	// primitive constructors.
	EnforceUIDConformance bool
	// UseShortDIMSEAET turns off the 16-byte right-pad for AE-title
	// fields.
	UseShortDIMSEAET bool
}

func (c Config) cancelMapCapacity() int {
	if c.CancelMapCapacity <= 0 {
		return 10
	}
	return c.CancelMapCapacity
}

// Indication is one completed inbound message as surfaced by
// GetMsg/PeekMsg: the primitive, the presentation context it arrived
// on, and the reassembled Data Set payload (nil when the command
// carried none). The payload stays opaque here; decoding it is the
// handler's business, under the context's transfer syntax.
type Indication struct {
	ContextID byte
	Primitive Message
	Data      []byte
}

// Provider is the per-association DIMSE service provider (spec §3,
// §4.4): it reassembles inbound PDVs into primitives, fragments
// outbound primitives into PDVs, queues indications for the
// association task, and keeps C-CANCEL traffic out of that queue.
//
// A Provider is owned exclusively by one association; it holds only a
// weak reference to the DUL (via the dul.Provider interface) and never
// outlives it.
type Provider struct {
	dul    dul.Provider
	config Config
	bus    *event.Bus

	maxPduSize   int
	dimseTimeout time.Duration // zero means wait forever

	mu        sync.Mutex
	cancelMap map[MessageID]*CCancelRq
	head      *Indication // set by PeekMsg, drained before msgQueue
	msgQueue  chan Indication

	partial *PartialMessage
}

// NewProvider builds a Provider bound to a DUL collaborator. maxPduSize
// is the maximum PDV payload negotiated by the DUL; dimseTimeout bounds
// GetMsg(block=true) waits (zero means wait forever).
func NewProvider(d dul.Provider, bus *event.Bus, config Config, maxPduSize int, dimseTimeout time.Duration) *Provider {
	return &Provider{
		dul:          d,
		config:       config,
		bus:          bus,
		maxPduSize:   maxPduSize,
		dimseTimeout: dimseTimeout,
		cancelMap:    make(map[MessageID]*CCancelRq),
		msgQueue:     make(chan Indication, 64),
	}
}

// Config returns the provider's construction-time configuration.
func (p *Provider) Config() Config { return p.config }

// SendMsg encodes primitive (plus dataBytes, when the primitive says a
// Data Set follows) as a message and pushes every produced P_DATA
// through the DUL, emitting DIMSE_SENT before fragmentation (spec
// §4.4).
func (p *Provider) SendMsg(primitive Message, contextID byte, dataBytes []byte) error {
	p.bus.Notify(event.New(p.name(), event.DIMSESent, time.Now()).
		With("primitive", primitive).With("contextID", contextID))

	it, err := EncodeMsg(primitive, contextID, p.maxPduSize, dataBytes)
	if err != nil {
		return fmt.Errorf("SendMsg: failed to fragment message: %w", err)
	}
	for {
		fragment, ok := it.Next()
		if !ok {
			break
		}
		if err := p.dul.SendPDU(&fragment); err != nil {
			return fmt.Errorf("SendMsg: failed to send PDU: %w", err)
		}
	}
	return nil
}

// GetMsg dequeues the next completed indication. If block is true, it
// waits up to dimseTimeout (or forever, if the timeout is zero); on
// timeout it returns nil. Non-blocking mode returns immediately.
func (p *Provider) GetMsg(block bool) *Indication {
	if ind := p.takeHead(); ind != nil {
		return ind
	}
	if !block {
		select {
		case ind := <-p.msgQueue:
			return &ind
		default:
			return nil
		}
	}
	if p.dimseTimeout <= 0 {
		ind := <-p.msgQueue
		return &ind
	}
	select {
	case ind := <-p.msgQueue:
		return &ind
	case <-time.After(p.dimseTimeout):
		return nil
	}
}

// PeekMsg reads the head indication without consuming it: the next
// GetMsg returns the same indication. Returns nil when the queue is
// empty.
func (p *Provider) PeekMsg() *Indication {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.head != nil {
		return p.head
	}
	select {
	case ind := <-p.msgQueue:
		p.head = &ind
		return p.head
	default:
		return nil
	}
}

func (p *Provider) takeHead() *Indication {
	p.mu.Lock()
	defer p.mu.Unlock()
	ind := p.head
	p.head = nil
	return ind
}

// IsCancelled reports whether a C-CANCEL targeting messageID has
// arrived. Long-running C-FIND/C-GET/C-MOVE handlers poll this between
// yields (spec §4.6, §5): cancellation is advisory and out-of-band,
// never a forcible interrupt.
func (p *Provider) IsCancelled(messageID MessageID) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.cancelMap[messageID]
	return ok
}

// CancelFor returns the most recent C-CANCEL primitive recorded
// against messageID, if any.
func (p *Provider) CancelFor(messageID MessageID) (*CCancelRq, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	c, ok := p.cancelMap[messageID]
	return c, ok
}

// ClearCancel drops the cancel-map entry for messageID once the
// operation it targeted has finished, freeing its slot under the cap.
func (p *Provider) ClearCancel(messageID MessageID) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.cancelMap, messageID)
}

// ReceivePrimitive is invoked by the DUL for every inbound P_DATA_TF.
// It follows the 8-step contract of spec §4.4 exactly: feed the PDU to
// the in-progress message, and once complete either record a C-CANCEL
// in the cancel map or enqueue the indication.
func (p *Provider) ReceivePrimitive(pdata *pdu.PDataTf) error {
	if p.partial == nil {
		p.partial = &PartialMessage{}
	}

	complete, err := p.partial.decodeMsg(pdata)
	if err != nil {
		p.dul.PushEvent(dul.Event{Type: dul.Evt19, Err: err})
		p.partial = nil
		return fmt.Errorf("ReceivePrimitive: %w", err)
	}
	if !complete {
		return nil
	}

	ind := Indication{
		ContextID: p.partial.ContextID(),
		Primitive: p.partial.Command(),
		Data:      p.partial.DataBytes(),
	}
	p.partial = nil

	p.bus.Notify(event.New(p.name(), event.DIMSERecv, time.Now()).
		With("primitive", ind.Primitive).With("contextID", ind.ContextID).With("data", ind.Data))

	if cancel, ok := ind.Primitive.(*CCancelRq); ok {
		p.mu.Lock()
		if len(p.cancelMap) < p.config.cancelMapCapacity() {
			p.cancelMap[cancel.MessageIDBeingRespondedTo] = cancel
		} else {
			logrus.Warnf("cancel map at capacity (%d); dropping C-CANCEL for message %d",
				p.config.cancelMapCapacity(), cancel.MessageIDBeingRespondedTo)
		}
		p.mu.Unlock()
		return nil
	}

	// msgQueue is a bounded buffer; if it fills up the association task
	// has stopped consuming and this blocks rather than drops, since
	// indications must not be silently lost.
	p.msgQueue <- ind
	return nil
}

func (p *Provider) name() string {
	if p.config.Name != "" {
		return p.config.Name
	}
	return fmt.Sprintf("assoc-%p", p)
}
