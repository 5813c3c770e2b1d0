// Package service is the service-class dispatcher (spec §4.5): it
// looks up the SOP Class UID of each inbound request in a static
// registry, hands the request to the single handler bound for that
// class via the association's event bus, validates whatever status
// the handler returns, and emits the response primitive(s).
//
// Grounded on yasushi-saito-go-netdicom/serviceprovider.go's
// providerCommandState.handleCEcho/handleCStore/handleCFind -- the
// same per-request dispatch shape, generalized here to the full
// status-validation and streaming rules of spec §4.5 instead of the
// teacher's direct single-status passthrough.
package service

import (
	"time"

	"github.com/grailbio/go-dicom"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/dimse"
	"github.com/mdimse/dimse/event"
	"github.com/sirupsen/logrus"
)

// Class describes what the dispatcher needs to know about a SOP Class
// UID: which status codes are legitimate for it, so an out-of-set
// status can be logged rather than silently accepted.
type Class struct {
	SOPClassUID string
	ValidStatus map[dimse.StatusCode]bool
}

// Registry maps SOP Class UID to its Class. A nil or missing entry
// means no valid-status set is known for that class, so handler
// statuses are passed through unchecked; whether a SOP class can be
// served at all is decided by KindOf (see Serve).
type Registry map[string]*Class

// NewRegistry builds an empty registry ready for Register calls.
func NewRegistry() Registry { return make(Registry) }

// Register binds a SOP Class UID to a Class.
func (r Registry) Register(c *Class) { r[c.SOPClassUID] = c }

// Lookup returns the Class bound to sopClassUID, or nil if none.
func (r Registry) Lookup(sopClassUID string) *Class { return r[sopClassUID] }

// Context is the presentation-context triple negotiated by the DUL
// (spec §3): the context ID, the abstract syntax (SOP Class UID) it
// was negotiated for, and the transfer syntax that governs the opaque
// Data Set payload.
type Context struct {
	ID                byte
	AbstractSyntaxUID string
	TransferSyntaxUID string
}

// Dispatcher routes indications to the bound handlers on the
// association's event bus and emits the resulting response
// primitive(s) via Send.
type Dispatcher struct {
	Registry    Registry
	Bus         *event.Bus
	Association string
	// Send transmits a response primitive (with optional Data Set
	// bytes) on the given presentation context.
	Send func(primitive dimse.Message, contextID byte, dataBytes []byte) error
	// CGet and CMove hand retrieve requests to the sub-operation
	// engines (package retrieve); the association owner wires them at
	// setup. Serve aborts the association when one is nil but the peer
	// negotiated the corresponding service.
	CGet  func(ctx Context, rq *dimse.CGetRq, dataBytes []byte)
	CMove func(ctx Context, rq *dimse.CMoveRq, dataBytes []byte)
}

// StatusResult is what a handler may hand back in its bag form: Status
// plus whichever optional fields are recognized for the current
// message type (spec §4.1, §4.5).
type StatusResult struct {
	Status                         dimse.Status
	NumberOfRemainingSuboperations uint16
	NumberOfCompletedSuboperations uint16
	NumberOfFailedSuboperations    uint16
	NumberOfWarningSuboperations   uint16
	AffectedSOPInstanceUID         string
}

// translateStatus applies the spec §4.5 status-validation rules to
// whatever a handler returned: an int becomes Status directly; a
// StatusResult bag is copied through (with validity logging); nil
// means a bag missing Status (0xC001); anything else is 0xC002.
func translateStatus(class *Class, raw interface{}) StatusResult {
	switch v := raw.(type) {
	case int:
		return checkValid(class, StatusResult{Status: dimse.Status{Status: dimse.StatusCode(v)}})
	case dimse.StatusCode:
		return checkValid(class, StatusResult{Status: dimse.Status{Status: v}})
	case dimse.Status:
		return checkValid(class, StatusResult{Status: v})
	case StatusResult:
		return checkValid(class, v)
	case nil:
		return StatusResult{Status: dimse.Status{Status: dimse.StatusNoStatusInResultBag}}
	default:
		return StatusResult{Status: dimse.Status{Status: dimse.StatusWrongResultType}}
	}
}

func checkValid(class *Class, r StatusResult) StatusResult {
	if class != nil && len(class.ValidStatus) > 0 && !class.ValidStatus[r.Status.Status] {
		logrus.Warnf("status 0x%04x is not in the valid set for SOP class %s", uint16(r.Status.Status), class.SOPClassUID)
	}
	return r
}

func (d *Dispatcher) intervene(tag event.Tag, e event.Event) (interface{}, error) {
	return d.Bus.Intervene(e)
}

func (d *Dispatcher) newEvent(tag event.Tag) event.Event {
	return event.New(d.Association, tag, time.Now())
}

// HandleCEcho dispatches a C-ECHO-RQ. Handler exceptions (and panics)
// are swallowed per spec §4.5: "verification must not fail because of
// user code".
func (d *Dispatcher) HandleCEcho(ctx Context, rq *dimse.CEchoRq) {
	status := dimse.Success
	func() {
		defer func() {
			if r := recover(); r != nil {
				logrus.Warnf("C-ECHO handler panicked: %v", r)
			}
		}()
		result, err := d.intervene(event.CEcho, d.newEvent(event.CEcho).With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID))
		if err != nil {
			logrus.Warnf("C-ECHO handler error (swallowed): %v", err)
			return
		}
		if result != nil {
			status = translateStatus(nil, result).Status
		}
	}()
	resp := &dimse.CEchoRsp{
		AffectedSOPClassUID:       rq.AffectedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    status,
	}
	d.sendOrLog(resp, ctx.ID)
}

// HandleCStore dispatches a C-STORE-RQ. The request's Data Set bytes
// are handed to the handler undecoded, along with the transfer syntax,
// so the handler can decode on its own terms (spec §4.5).
func (d *Dispatcher) HandleCStore(ctx Context, rq *dimse.CStoreRq, dataBytes []byte) {
	resp := &dimse.CStoreRsp{
		AffectedSOPClassUID:       rq.AffectedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.AffectedSOPInstanceUID,
	}

	class := d.Registry.Lookup(rq.AffectedSOPClassUID)
	result, err := d.intervene(event.CStore, d.newEvent(event.CStore).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID).With("data", dataBytes))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.CStoreHandlerException, ErrorComment: err.Error()}
		d.sendOrLog(resp, ctx.ID)
		return
	}
	sr := translateStatus(class, result)
	resp.Status = sr.Status
	if sr.AffectedSOPInstanceUID != "" {
		resp.AffectedSOPInstanceUID = sr.AffectedSOPInstanceUID
	}
	d.sendOrLog(resp, ctx.ID)
}

// FindYield is one pending step of a C-FIND handler's response
// sequence (spec §4.5): a status plus the Identifier dataset to send
// alongside it. The handler is expected to close its channel once done,
// optionally after a final non-Pending yield.
type FindYield struct {
	Status     interface{}
	Identifier []*dicom.Element
}

// HandleCFind dispatches a C-FIND-RQ, streaming (status, Identifier)
// pairs from the handler's results channel.
func (d *Dispatcher) HandleCFind(ctx Context, rq *dimse.CFindRq, dataBytes []byte) {
	fail := func(status dimse.StatusCode, comment string) {
		d.sendOrLog(&dimse.CFindRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: status, ErrorComment: comment},
		}, ctx.ID)
	}

	// The request Identifier is decoded before the handler is called
	// (spec §4.5): a corrupt payload must never reach user code.
	if _, err := datasetcodec.Decode(dataBytes, ctx.TransferSyntaxUID); err != nil {
		fail(dimse.CFindRequestDecodeFailed, "Unable to decode the dataset")
		return
	}

	results, err := d.intervene(event.CFind, d.newEvent(event.CFind).With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID).With("data", dataBytes))
	if err != nil {
		fail(dimse.CFindHandlerException, err.Error())
		return
	}
	stream, ok := results.(<-chan FindYield)
	if !ok {
		fail(dimse.StatusWrongResultType, "")
		return
	}

	class := d.Registry.Lookup(rq.AffectedSOPClassUID)
	terminated := false
	for y := range stream {
		sr := translateStatus(class, y.Status)
		if sr.Status.Status.Category() == dimse.CategoryPending {
			payload, err := datasetcodec.Encode(y.Identifier, ctx.TransferSyntaxUID)
			if err != nil || len(payload) == 0 {
				fail(dimse.CFindResponseEncodeFailed, "")
				terminated = true
				break
			}
			d.Send(&dimse.CFindRsp{
				AffectedSOPClassUID:       rq.AffectedSOPClassUID,
				MessageIDBeingRespondedTo: rq.MessageID,
				CommandDataSetType:        dimse.CommandDataSetTypeNonNull,
				Status:                    sr.Status,
			}, ctx.ID, payload)
			continue
		}
		d.sendOrLog(&dimse.CFindRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    sr.Status,
		}, ctx.ID)
		terminated = true
		// Drain the channel until the handler closes it ("log and
		// stop"): yields after a terminal status are ignored, and a full
		// drain is deterministic where a non-blocking receive would
		// depend on scheduling timing.
		extra := 0
		for range stream {
			extra++
		}
		if extra > 0 {
			logrus.Warnf("C-FIND %d: handler yielded %d result(s) after terminal status %v; ignored", rq.MessageID, extra, sr.Status.Status)
		}
		break
	}
	if !terminated {
		d.sendOrLog(&dimse.CFindRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Success,
		}, ctx.ID)
	}
}

func (d *Dispatcher) sendOrLog(primitive dimse.Message, contextID byte) {
	if err := d.Send(primitive, contextID, nil); err != nil {
		logrus.Errorf("failed to send response on context %d: %v", contextID, err)
	}
}
