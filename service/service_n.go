// Normalized (N-*) service dispatch (spec §4.5): unlike the streaming
// composite services, each N-service is a single request -> single
// response exchange, so these handlers follow the same status-
// validation rules as HandleCStore without the pending-stream loop.
package service

import (
	"github.com/grailbio/go-dicom"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/dimse"
	"github.com/mdimse/dimse/event"
	"github.com/sirupsen/logrus"
)

// NGetResult is what an N-GET intervention handler returns: a status
// plus the Attribute List elements to serialize as the response's Data
// Set (spec §6: AttributeIdentifierList selects which attributes the
// handler should populate here).
type NGetResult struct {
	Status        interface{}
	AttributeList []*dicom.Element
}

// HandleNEventReport dispatches an N-EVENT-REPORT-RQ.
func (d *Dispatcher) HandleNEventReport(ctx Context, rq *dimse.NEventReportRq, dataBytes []byte) {
	resp := &dimse.NEventReportRsp{
		AffectedSOPClassUID:       rq.AffectedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.AffectedSOPInstanceUID,
		EventTypeID:               rq.EventTypeID,
	}
	class := d.Registry.Lookup(rq.AffectedSOPClassUID)
	result, err := d.intervene(event.NEventReport, d.newEvent(event.NEventReport).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID).With("data", dataBytes))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.NEventReportHandlerException, ErrorComment: err.Error()}
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

// HandleNGet dispatches an N-GET-RQ, encoding the handler's returned
// Attribute List in the context's transfer syntax.
func (d *Dispatcher) HandleNGet(ctx Context, rq *dimse.NGetRq) {
	resp := &dimse.NGetRsp{
		AffectedSOPClassUID:       rq.RequestedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.RequestedSOPInstanceUID,
	}
	class := d.Registry.Lookup(rq.RequestedSOPClassUID)
	raw, err := d.intervene(event.NGet, d.newEvent(event.NGet).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.NGetHandlerException, ErrorComment: err.Error()}
		d.sendOrLog(resp, ctx.ID)
		return
	}
	result, ok := raw.(NGetResult)
	if !ok {
		resp.Status = translateStatus(class, raw).Status
		d.sendOrLog(resp, ctx.ID)
		return
	}
	sr := translateStatus(class, result.Status)
	resp.Status = sr.Status
	if sr.Status.Status.Category() != dimse.CategorySuccess || len(result.AttributeList) == 0 {
		d.sendOrLog(resp, ctx.ID)
		return
	}
	payload, err := datasetcodec.Encode(result.AttributeList, ctx.TransferSyntaxUID)
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.StatusCannotUnderstand, ErrorComment: err.Error()}
		d.sendOrLog(resp, ctx.ID)
		return
	}
	resp.CommandDataSetType = dimse.CommandDataSetTypeNonNull
	if err := d.Send(resp, ctx.ID, payload); err != nil {
		logrus.Errorf("failed to send N-GET response on context %d: %v", ctx.ID, err)
	}
}

// HandleNSet dispatches an N-SET-RQ. ModificationList is delivered to
// the handler undecoded, mirroring HandleCStore's Data Set handoff.
func (d *Dispatcher) HandleNSet(ctx Context, rq *dimse.NSetRq, dataBytes []byte) {
	resp := &dimse.NSetRsp{
		AffectedSOPClassUID:       rq.RequestedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.RequestedSOPInstanceUID,
	}
	class := d.Registry.Lookup(rq.RequestedSOPClassUID)
	result, err := d.intervene(event.NSet, d.newEvent(event.NSet).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID).With("data", dataBytes))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.NSetHandlerException, ErrorComment: err.Error()}
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

// HandleNAction dispatches an N-ACTION-RQ.
func (d *Dispatcher) HandleNAction(ctx Context, rq *dimse.NActionRq, dataBytes []byte) {
	resp := &dimse.NActionRsp{
		AffectedSOPClassUID:       rq.RequestedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.RequestedSOPInstanceUID,
		ActionTypeID:              rq.ActionTypeID,
	}
	class := d.Registry.Lookup(rq.RequestedSOPClassUID)
	result, err := d.intervene(event.NAction, d.newEvent(event.NAction).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID).With("data", dataBytes))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.NActionHandlerException, ErrorComment: err.Error()}
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

// HandleNCreate dispatches an N-CREATE-RQ. The handler is expected to
// return the newly assigned SOP Instance UID via StatusResult's
// AffectedSOPInstanceUID field when the request itself didn't carry
// one (the common case -- the SCP mints the instance UID).
func (d *Dispatcher) HandleNCreate(ctx Context, rq *dimse.NCreateRq, dataBytes []byte) {
	resp := &dimse.NCreateRsp{
		AffectedSOPClassUID:       rq.AffectedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.AffectedSOPInstanceUID,
	}
	class := d.Registry.Lookup(rq.AffectedSOPClassUID)
	result, err := d.intervene(event.NCreate, d.newEvent(event.NCreate).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID).With("data", dataBytes))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.NCreateHandlerException, ErrorComment: err.Error()}
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

// HandleNDelete dispatches an N-DELETE-RQ.
func (d *Dispatcher) HandleNDelete(ctx Context, rq *dimse.NDeleteRq) {
	resp := &dimse.NDeleteRsp{
		AffectedSOPClassUID:       rq.RequestedSOPClassUID,
		MessageIDBeingRespondedTo: rq.MessageID,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		AffectedSOPInstanceUID:    rq.RequestedSOPInstanceUID,
	}
	class := d.Registry.Lookup(rq.RequestedSOPClassUID)
	result, err := d.intervene(event.NDelete, d.newEvent(event.NDelete).
		With("request", rq).With("context", ctx).With("transferSyntax", ctx.TransferSyntaxUID))
	if err != nil {
		resp.Status = dimse.Status{Status: dimse.NDeleteHandlerException, ErrorComment: err.Error()}
		d.sendOrLog(resp, ctx.ID)
		return
	}
	sr := translateStatus(class, result)
	resp.Status = sr.Status
	d.sendOrLog(resp, ctx.ID)
}
