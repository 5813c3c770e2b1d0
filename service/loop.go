package service

import (
	"fmt"

	"github.com/mdimse/dimse/dimse"
	"github.com/sirupsen/logrus"
)

// MessageSource is the slice of the DIMSE provider the association
// loop consumes: a blocking dequeue of completed indications.
// *dimse.Provider satisfies it.
type MessageSource interface {
	GetMsg(block bool) *dimse.Indication
}

// Serve is the association-level loop of spec §4.5: it dequeues each
// indication, resolves its presentation context, looks up the service
// class for the SOP Class UID, and routes the request to the bound
// handler. It returns when GetMsg times out (the caller decides
// whether to abort or retry at a higher layer, spec §7) or after
// abort has been called.
//
// contexts maps presentation-context ID to the negotiated context
// triple; abort is invoked -- once -- when the peer sends a request on
// an unknown context or for a SOP class this association cannot serve.
func (d *Dispatcher) Serve(src MessageSource, contexts map[byte]Context, abort func(error)) {
	for {
		ind := src.GetMsg(true)
		if ind == nil {
			return
		}
		ctx, ok := contexts[ind.ContextID]
		if !ok {
			abort(fmt.Errorf("request on unknown presentation context %d", ind.ContextID))
			return
		}
		if !d.dispatch(ctx, ind, abort) {
			return
		}
	}
}

// dispatch routes one indication. It returns false when the loop must
// stop (the association was aborted).
func (d *Dispatcher) dispatch(ctx Context, ind *dimse.Indication, abort func(error)) bool {
	unservable := func(sopClassUID string, want Kind) bool {
		kind := KindOf(sopClassUID)
		if kind != want {
			abort(fmt.Errorf("SOP class %s cannot be served as %s (have %s)", sopClassUID, want, kind))
			return true
		}
		return false
	}

	switch rq := ind.Primitive.(type) {
	case *dimse.CEchoRq:
		if unservable(rq.AffectedSOPClassUID, KindVerification) {
			return false
		}
		d.HandleCEcho(ctx, rq)
	case *dimse.CStoreRq:
		if unservable(rq.AffectedSOPClassUID, KindStorage) {
			return false
		}
		d.HandleCStore(ctx, rq, ind.Data)
	case *dimse.CFindRq:
		if unservable(rq.AffectedSOPClassUID, KindQueryRetrieveFind) {
			return false
		}
		d.HandleCFind(ctx, rq, ind.Data)
	case *dimse.CGetRq:
		if unservable(rq.AffectedSOPClassUID, KindQueryRetrieveGet) {
			return false
		}
		if d.CGet == nil {
			abort(fmt.Errorf("no retrieve engine wired for C-GET"))
			return false
		}
		d.CGet(ctx, rq, ind.Data)
	case *dimse.CMoveRq:
		if unservable(rq.AffectedSOPClassUID, KindQueryRetrieveMove) {
			return false
		}
		if d.CMove == nil {
			abort(fmt.Errorf("no retrieve engine wired for C-MOVE"))
			return false
		}
		d.CMove(ctx, rq, ind.Data)
	case *dimse.NEventReportRq:
		if unservable(rq.AffectedSOPClassUID, KindNormalized) {
			return false
		}
		d.HandleNEventReport(ctx, rq, ind.Data)
	case *dimse.NGetRq:
		if unservable(rq.RequestedSOPClassUID, KindNormalized) {
			return false
		}
		d.HandleNGet(ctx, rq)
	case *dimse.NSetRq:
		if unservable(rq.RequestedSOPClassUID, KindNormalized) {
			return false
		}
		d.HandleNSet(ctx, rq, ind.Data)
	case *dimse.NActionRq:
		if unservable(rq.RequestedSOPClassUID, KindNormalized) {
			return false
		}
		d.HandleNAction(ctx, rq, ind.Data)
	case *dimse.NCreateRq:
		if unservable(rq.AffectedSOPClassUID, KindNormalized) {
			return false
		}
		d.HandleNCreate(ctx, rq, ind.Data)
	case *dimse.NDeleteRq:
		if unservable(rq.RequestedSOPClassUID, KindNormalized) {
			return false
		}
		d.HandleNDelete(ctx, rq)
	default:
		// Response primitives land here when the association is also
		// acting as an SCU; this server loop has nothing to do with
		// them, and dropping one must not kill the association.
		logrus.Warnf("ignoring unexpected primitive %s on context %d", ind.Primitive, ind.ContextID)
	}
	return true
}
