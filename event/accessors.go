package event

import (
	"fmt"

	"github.com/grailbio/go-dicom"
	"github.com/mdimse/dimse/datasetcodec"
)

// Payload accessors. An intervention event carries the request's raw
// Data Set bytes under the "data" attribute and the context's transfer
// syntax under "transferSyntax"; these helpers decode the bytes on
// first access and cache the result, so handlers that never look
// inside the payload never pay for a parse.

const (
	attrData           = "data"
	attrTransferSyntax = "transferSyntax"
	attrDecodedPayload = "decodedPayload"
)

func (e Event) decodePayload() ([]*dicom.Element, error) {
	if cached, ok := e.Attrs[attrDecodedPayload]; ok {
		if elems, ok := cached.([]*dicom.Element); ok {
			return elems, nil
		}
	}
	raw, ok := e.Attrs[attrData]
	if !ok {
		return nil, fmt.Errorf("event %s carries no payload", e.Tag)
	}
	payload, ok := raw.([]byte)
	if !ok || len(payload) == 0 {
		return nil, fmt.Errorf("event %s carries an empty payload", e.Tag)
	}
	ts, _ := e.Attrs[attrTransferSyntax].(string)
	if ts == "" {
		return nil, fmt.Errorf("event %s has no transfer syntax to decode its payload with", e.Tag)
	}
	elems, err := datasetcodec.Decode(payload, ts)
	if err != nil {
		return nil, fmt.Errorf("event %s: %w", e.Tag, err)
	}
	e.Attrs[attrDecodedPayload] = elems
	return elems, nil
}

// Identifier decodes the C-FIND/C-GET/C-MOVE request Identifier.
func (e Event) Identifier() ([]*dicom.Element, error) { return e.decodePayload() }

// DataSet decodes the C-STORE request Data Set.
func (e Event) DataSet() ([]*dicom.Element, error) { return e.decodePayload() }

// AttributeList decodes an N-CREATE/N-SET/N-GET attribute list payload.
func (e Event) AttributeList() ([]*dicom.Element, error) { return e.decodePayload() }

// EventInformation decodes an N-EVENT-REPORT request payload.
func (e Event) EventInformation() ([]*dicom.Element, error) { return e.decodePayload() }

// EventReply decodes an N-EVENT-REPORT response payload.
func (e Event) EventReply() ([]*dicom.Element, error) { return e.decodePayload() }

// ActionInformation decodes an N-ACTION request payload.
func (e Event) ActionInformation() ([]*dicom.Element, error) { return e.decodePayload() }

// ActionReply decodes an N-ACTION response payload.
func (e Event) ActionReply() ([]*dicom.Element, error) { return e.decodePayload() }

// ModificationList decodes an N-SET request payload.
func (e Event) ModificationList() ([]*dicom.Element, error) { return e.decodePayload() }
