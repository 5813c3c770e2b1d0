// Package retrieve is the composite retrieve sub-operation engine
// (spec §4.6): it drives a C-GET or C-MOVE as a sequence of C-STORE
// sub-operations, keeping the running [remaining, failed, warning,
// completed] tally and the failed-SOP-instance-UID list that the
// final response rolls up into.
//
// Grounded on the same handler/dispatcher split as package service:
// the association owner supplies the sub-operation count and a stream
// of (status, dataset) pairs (spec's "generator yield" ported to a Go
// channel, per spec.md §9 "Generators → lazy iterators / channels"),
// and the engine is responsible only for the counter bookkeeping,
// interim/final response shape, and bulk-data stripping -- it never
// talks to a socket directly.
package retrieve

import (
	"github.com/grailbio/go-dicom"
	"github.com/grailbio/go-dicom/dicomtag"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/dimse"
	"github.com/mdimse/dimse/service"
	"github.com/sirupsen/logrus"
)

// Yield is one pending sub-operation handed to the engine by the
// owning handler: a status (translated the same way package service
// translates dispatcher statuses) and the dataset to store, or a nil
// Dataset if the handler could not produce one.
type Yield struct {
	Status  interface{}
	Dataset []*dicom.Element
}

// Destination is the C-MOVE move destination a handler resolves an
// AE title to. A zero value (empty Address) means "unknown" (spec
// §4.6: respond 0xA801 and perform no sub-operations).
type Destination struct {
	Address string
	Port    int
}

// GetResult is what a C-GET intervention handler returns: the total
// sub-operation count the engine should expect, followed by the
// stream of per-instance yields. The handler closes Yields once done.
type GetResult struct {
	Total  int
	Yields <-chan Yield
}

// MoveResult is what a C-MOVE intervention handler returns: the
// resolved destination (zero value if unknown), the total
// sub-operation count, and the yield stream.
type MoveResult struct {
	Destination Destination
	Total       int
	Yields      <-chan Yield
}

// StoreSender performs one C-STORE sub-operation against the
// appropriate association -- the same association for C-GET, or a
// freshly opened one for C-MOVE -- and reports the peer's response
// status plus the stored instance's SOP Instance UID (best-effort, for
// the failed-UID list).
type StoreSender interface {
	SendCStore(ds []*dicom.Element, moveOriginatorAET string, moveOriginatorMessageID dimse.MessageID) (status interface{}, sopInstanceUID string, err error)
}

// AssociationOpener opens the new DIMSE-over-DUL association a C-MOVE
// sub-operation run needs (spec §4.6): "the engine opens a new
// DIMSE-over-DUL association to that endpoint using the same AE title
// as local." Association/ACSE negotiation itself is outside this
// module's C1-C8 scope; callers supply their own implementation.
type AssociationOpener interface {
	Open(localAETitle string, dest Destination) (StoreSender, error)
}

// tracker is the engine's running [remaining, failed, warning,
// completed] tally plus the failed-SOP-instance-UID list (spec §4.6).
type tracker struct {
	remaining  int
	failed     int
	warning    int
	completed  int
	failedUIDs []string
}

func (t *tracker) addFailed(sopInstanceUID string) {
	t.failed++
	t.failedUIDs = append(t.failedUIDs, sopInstanceUID)
}

func (t *tracker) addWarning(sopInstanceUID string) {
	t.warning++
	t.failedUIDs = append(t.failedUIDs, sopInstanceUID)
}

// sopInstanceUID best-effort extracts (0008,0018) from a dataset so it
// can be recorded in the failed-UID list.
func sopInstanceUID(ds []*dicom.Element) string {
	for _, elem := range ds {
		if elem.Tag == dicomtag.SOPInstanceUID {
			if s, err := elem.GetString(); err == nil {
				return s
			}
		}
	}
	return ""
}

// FailedSOPInstanceUIDList (0008,0058), carried in the final
// response's Identifier when any sub-operation failed.
var failedSOPInstanceUIDListTag = dicomtag.Tag{Group: 0x0008, Element: 0x0058}

func failedUIDListDataset(uids []string) []*dicom.Element {
	vals := make([]interface{}, len(uids))
	for i, u := range uids {
		vals[i] = u
	}
	return []*dicom.Element{dicom.MustNewElement(failedSOPInstanceUIDListTag, vals...)}
}

// GetEngine runs C-GET retrieves: every sub-operation's C-STORE is
// issued on the same association the C-GET-RQ arrived on.
//
// Cancellation (spec §4.6 "C-CANCEL handling during retrieve") is the
// bound handler's responsibility: it observes the cancel map directly
// (via whatever closure the caller gives it) and is expected to yield
// a Cancel-status pair on its next turn, which the loop below handles
// like any other terminal status.
type GetEngine struct {
	Send              func(primitive dimse.Message, contextID byte, dataBytes []byte) error
	Store             StoreSender
	TransferSyntaxUID string
	StripBulkData     bool
}

// HandleCGet is the dispatcher entry point for a C-GET-RQ (spec §4.5,
// §4.6): it decodes the request Identifier, hands it to the bound
// C-GET handler via intervene, and -- on success -- drives the
// sub-operation loop. intervene is expected to invoke the single bound
// C_GET intervention handler and return its GetResult.
func (e *GetEngine) HandleCGet(ctx service.Context, rq *dimse.CGetRq, dataBytes []byte, intervene func(identifier []*dicom.Element) (interface{}, error)) error {
	fail := func(status dimse.StatusCode) error {
		return e.Send(&dimse.CGetRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: status},
		}, ctx.ID, nil)
	}

	identifier, err := datasetcodec.Decode(dataBytes, ctx.TransferSyntaxUID)
	if err != nil {
		return fail(dimse.CGetRequestDecodeFailed)
	}

	raw, err := intervene(identifier)
	if err != nil {
		return fail(dimse.CGetHandlerException)
	}
	result, ok := raw.(GetResult)
	if !ok {
		return fail(dimse.CGetHandlerException)
	}
	if result.Total < 0 {
		return fail(dimse.CGetBadSuboperationCount)
	}
	return e.Run(ctx, rq, result)
}

// HandleCMove is the C-MOVE counterpart of HandleCGet.
func (e *MoveEngine) HandleCMove(ctx service.Context, rq *dimse.CMoveRq, dataBytes []byte, intervene func(identifier []*dicom.Element) (interface{}, error)) error {
	fail := func(status dimse.StatusCode) error {
		return e.Send(&dimse.CMoveRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: status},
		}, ctx.ID, nil)
	}

	identifier, err := datasetcodec.Decode(dataBytes, ctx.TransferSyntaxUID)
	if err != nil {
		return fail(dimse.CMoveRequestDecodeFailed)
	}

	raw, err := intervene(identifier)
	if err != nil {
		return fail(dimse.CMoveHandlerException)
	}
	result, ok := raw.(MoveResult)
	if !ok {
		return fail(dimse.CMoveBadYield)
	}
	if result.Total < 0 {
		return fail(dimse.CMoveBadSuboperationCount)
	}
	return e.Run(ctx, rq, result)
}

// Run drives one C-GET retrieve to completion, emitting interim and
// final CGetRsp primitives via Send.
func (e *GetEngine) Run(ctx service.Context, rq *dimse.CGetRq, result GetResult) error {
	t := &tracker{remaining: result.Total}
	strip := e.StripBulkData || service.IsRetrieveWithoutBulkData(ctx.AbstractSyntaxUID)

	send := func(status dimse.Status, final bool) error {
		resp := &dimse.CGetRsp{
			AffectedSOPClassUID:           rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo:      rq.MessageID,
			CommandDataSetType:             dimse.CommandDataSetTypeNull,
			NumberOfCompletedSuboperations: uint16(t.completed),
			NumberOfFailedSuboperations:    uint16(t.failed),
			NumberOfWarningSuboperations:   uint16(t.warning),
			Status:                         status,
		}
		if status.Status.Category() == dimse.CategoryPending || status.Status.Category() == dimse.CategoryCancel {
			resp.NumberOfRemainingSuboperations = uint16(t.remaining)
		}
		var dataBytes []byte
		if final && len(t.failedUIDs) > 0 {
			payload, err := datasetcodec.Encode(failedUIDListDataset(t.failedUIDs), e.TransferSyntaxUID)
			if err == nil {
				dataBytes = payload
				resp.CommandDataSetType = dimse.CommandDataSetTypeNonNull
			}
		}
		return e.Send(resp, ctx.ID, dataBytes)
	}

	for y := range result.Yields {
		if t.remaining <= 0 {
			logrus.Warnf("C-GET %d: ignoring yield after sub-operation count exhausted", rq.MessageID)
			continue
		}
		cat := statusCategory(y.Status)
		if cat != dimse.CategoryPending {
			// Remaining stays live on Cancel (the response may report
			// it); Failure/Warning fold it into the failed count.
			if cat == dimse.CategoryFailure || cat == dimse.CategoryWarning {
				t.failed += t.remaining
				t.remaining = 0
			}
			return send(statusOf(y.Status), true)
		}

		if y.Dataset == nil {
			t.remaining--
			t.addFailed("")
			if err := send(dimse.Status{Status: dimse.StatusPending}, false); err != nil {
				return err
			}
			continue
		}

		ds := y.Dataset
		if strip {
			ds = datasetcodec.StripBulkData(ds)
		}
		uid := sopInstanceUID(ds)
		storeStatus, reportedUID, err := e.Store.SendCStore(ds, "", 0)
		t.remaining--
		if reportedUID != "" {
			uid = reportedUID
		}
		if err != nil {
			t.addFailed(uid)
		} else {
			switch statusCategory(storeStatus) {
			case dimse.CategoryFailure:
				t.addFailed(uid)
			case dimse.CategoryWarning:
				t.addWarning(uid)
			default:
				t.completed++
			}
		}
		if err := send(dimse.Status{Status: dimse.StatusPending}, false); err != nil {
			return err
		}
	}

	if t.failed == 0 && t.warning == 0 {
		return send(dimse.Success, true)
	}
	return send(dimse.Status{Status: dimse.WarningSuboperations}, true)
}

// MoveEngine runs C-MOVE retrieves: the destination is resolved first;
// every sub-operation's C-STORE is then issued on a freshly opened
// association to that destination.
type MoveEngine struct {
	Send              func(primitive dimse.Message, contextID byte, dataBytes []byte) error
	Opener            AssociationOpener
	LocalAETitle      string
	TransferSyntaxUID string
	StripBulkData     bool
}

// Run drives one C-MOVE retrieve to completion.
func (e *MoveEngine) Run(ctx service.Context, rq *dimse.CMoveRq, result MoveResult) error {
	respond := func(status dimse.StatusCode) error {
		return e.Send(&dimse.CMoveRsp{
			AffectedSOPClassUID:       rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo: rq.MessageID,
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
			Status:                    dimse.Status{Status: status},
		}, ctx.ID, nil)
	}

	if result.Destination.Address == "" {
		return respond(dimse.CMoveMoveDestinationUnknown)
	}
	if result.Destination.Port <= 0 || result.Destination.Port > 65535 {
		return respond(dimse.CMoveBadDestination)
	}

	store, err := e.Opener.Open(e.LocalAETitle, result.Destination)
	if err != nil {
		return respond(dimse.CMoveHandlerException)
	}

	t := &tracker{remaining: result.Total}

	send := func(status dimse.Status, final bool) error {
		resp := &dimse.CMoveRsp{
			AffectedSOPClassUID:           rq.AffectedSOPClassUID,
			MessageIDBeingRespondedTo:      rq.MessageID,
			CommandDataSetType:             dimse.CommandDataSetTypeNull,
			NumberOfCompletedSuboperations: uint16(t.completed),
			NumberOfFailedSuboperations:    uint16(t.failed),
			NumberOfWarningSuboperations:   uint16(t.warning),
			Status:                         status,
		}
		if status.Status.Category() == dimse.CategoryPending || status.Status.Category() == dimse.CategoryCancel {
			resp.NumberOfRemainingSuboperations = uint16(t.remaining)
		}
		var dataBytes []byte
		if final && len(t.failedUIDs) > 0 {
			payload, err := datasetcodec.Encode(failedUIDListDataset(t.failedUIDs), e.TransferSyntaxUID)
			if err == nil {
				dataBytes = payload
				resp.CommandDataSetType = dimse.CommandDataSetTypeNonNull
			}
		}
		return e.Send(resp, ctx.ID, dataBytes)
	}

	for y := range result.Yields {
		if t.remaining <= 0 {
			logrus.Warnf("C-MOVE %d: ignoring yield after sub-operation count exhausted", rq.MessageID)
			continue
		}
		cat := statusCategory(y.Status)
		if cat != dimse.CategoryPending {
			if cat == dimse.CategoryFailure || cat == dimse.CategoryWarning {
				t.failed += t.remaining
				t.remaining = 0
			}
			return send(statusOf(y.Status), true)
		}

		if y.Dataset == nil {
			t.remaining--
			t.addFailed("")
			if err := send(dimse.Status{Status: dimse.StatusPending}, false); err != nil {
				return err
			}
			continue
		}

		ds := y.Dataset
		if e.StripBulkData {
			ds = datasetcodec.StripBulkData(ds)
		}
		uid := sopInstanceUID(ds)
		storeStatus, reportedUID, err := store.SendCStore(ds, e.LocalAETitle, rq.MessageID)
		t.remaining--
		if reportedUID != "" {
			uid = reportedUID
		}
		if err != nil {
			t.addFailed(uid)
		} else {
			switch statusCategory(storeStatus) {
			case dimse.CategoryFailure:
				t.addFailed(uid)
			case dimse.CategoryWarning:
				t.addWarning(uid)
			default:
				t.completed++
			}
		}
		if err := send(dimse.Status{Status: dimse.StatusPending}, false); err != nil {
			return err
		}
	}

	if t.failed == 0 && t.warning == 0 {
		return send(dimse.Success, true)
	}
	return send(dimse.Status{Status: dimse.WarningSuboperations}, true)
}

// statusOf/statusCategory translate the same handler-returned bag
// shapes package service accepts (int, StatusCode, Status) without
// depending on service's status-validation-set logic, which is
// registry-specific and not needed here.
func statusOf(raw interface{}) dimse.Status {
	switch v := raw.(type) {
	case int:
		return dimse.Status{Status: dimse.StatusCode(v)}
	case dimse.StatusCode:
		return dimse.Status{Status: v}
	case dimse.Status:
		return v
	default:
		return dimse.Status{Status: dimse.StatusWrongResultType}
	}
}

func statusCategory(raw interface{}) dimse.Category {
	return statusOf(raw).Status.Category()
}
