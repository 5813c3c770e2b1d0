package dimse

import (
	"fmt"
	"io"

	"github.com/mdimse/dimse/commandset"
	"github.com/suyashkumar/dicom"
)

// NGetRq has no Data Set of its own; AttributeIdentifierList selects
// which attributes the SCP should return in NGetRsp's payload.
type NGetRq struct {
	RequestedSOPClassUID    string
	MessageID               MessageID
	RequestedSOPInstanceUID string
	AttributeIdentifierList []byte
	CommandDataSetType      CommandDataSetType
	Extra                   []*dicom.Element
}

func (v *NGetRq) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return fmt.Errorf("NGetRq.Encode: failed to create CommandField element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.RequestedSOPClassUID, v.RequestedSOPClassUID)
	if err != nil {
		return fmt.Errorf("NGetRq.Encode: failed to create RequestedSOPClassUID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.MessageID, v.MessageID)
	if err != nil {
		return fmt.Errorf("NGetRq.Encode: failed to create MessageID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.RequestedSOPInstanceUID, v.RequestedSOPInstanceUID)
	if err != nil {
		return fmt.Errorf("NGetRq.Encode: failed to create RequestedSOPInstanceUID element: %w", err)
	}
	elems = append(elems, elem)

	if len(v.AttributeIdentifierList) > 0 {
		elem, err = NewElement(commandset.AttributeIdentifierList, v.AttributeIdentifierList)
		if err != nil {
			return fmt.Errorf("NGetRq.Encode: failed to create AttributeIdentifierList element: %w", err)
		}
		elems = append(elems, elem)
	}

	elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType))
	if err != nil {
		return fmt.Errorf("NGetRq.Encode: failed to create CommandDataSetType element: %w", err)
	}
	elems = append(elems, elem)

	elems = append(elems, v.Extra...)
	if err := EncodeElements(e, elems); err != nil {
		return fmt.Errorf("NGetRq.Encode: failed to encode elements: %w", err)
	}
	return nil
}

func (v *NGetRq) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NGetRq) CommandField() uint16 { return CommandFieldNGetRq }
func (v *NGetRq) GetMessageID() MessageID { return v.MessageID }
func (v *NGetRq) GetStatus() *Status    { return nil }
func (v *NGetRq) String() string {
	return fmt.Sprintf("NGetRq{RequestedSOPClassUID:%v MessageID:%v RequestedSOPInstanceUID:%v}", v.RequestedSOPClassUID, v.MessageID, v.RequestedSOPInstanceUID)
}

func (NGetRq) decode(d *MessageDecoder) (*NGetRq, error) {
	v := &NGetRq{}
	var err error

	if v.RequestedSOPClassUID, err = d.GetString(commandset.RequestedSOPClassUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nGetRq.decode: failed to decode RequestedSOPClassUID: %w", err)
	}
	if v.MessageID, err = d.GetUInt16(commandset.MessageID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nGetRq.decode: failed to decode MessageID: %w", err)
	}
	if v.RequestedSOPInstanceUID, err = d.GetString(commandset.RequestedSOPInstanceUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nGetRq.decode: failed to decode RequestedSOPInstanceUID: %w", err)
	}
	if v.AttributeIdentifierList, err = d.GetBytes(commandset.AttributeIdentifierList, OptionalElement); err != nil {
		return nil, fmt.Errorf("nGetRq.decode: failed to decode AttributeIdentifierList: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("nGetRq.decode: failed to decode CommandDataSetType: %w", err)
	}

	v.Extra = d.UnparsedElements()
	return v, nil
}

// NGetRsp carries the requested AttributeList as its Data Set payload.
type NGetRsp struct {
	AffectedSOPClassUID       string
	MessageIDBeingRespondedTo MessageID
	CommandDataSetType        CommandDataSetType
	AffectedSOPInstanceUID    string
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *NGetRsp) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return fmt.Errorf("NGetRsp.Encode: failed to create CommandField element: %w", err)
	}
	elems = append(elems, elem)

	if v.AffectedSOPClassUID != "" {
		elem, err = NewElement(commandset.AffectedSOPClassUID, v.AffectedSOPClassUID)
		if err != nil {
			return fmt.Errorf("NGetRsp.Encode: failed to create AffectedSOPClassUID element: %w", err)
		}
		elems = append(elems, elem)
	}

	elem, err = NewElement(commandset.MessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	if err != nil {
		return fmt.Errorf("NGetRsp.Encode: failed to create MessageIDBeingRespondedTo element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType))
	if err != nil {
		return fmt.Errorf("NGetRsp.Encode: failed to create CommandDataSetType element: %w", err)
	}
	elems = append(elems, elem)

	if v.AffectedSOPInstanceUID != "" {
		elem, err = NewElement(commandset.AffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
		if err != nil {
			return fmt.Errorf("NGetRsp.Encode: failed to create AffectedSOPInstanceUID element: %w", err)
		}
		elems = append(elems, elem)
	}

	statusElems, err := v.Status.ToElements()
	if err != nil {
		return fmt.Errorf("NGetRsp.Encode: failed to create Status elements: %w", err)
	}
	elems = append(elems, statusElems...)

	elems = append(elems, v.Extra...)
	if err := EncodeElements(e, elems); err != nil {
		return fmt.Errorf("NGetRsp.Encode: failed to encode elements: %w", err)
	}
	return nil
}

func (v *NGetRsp) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NGetRsp) CommandField() uint16 { return CommandFieldNGetRsp }
func (v *NGetRsp) GetMessageID() MessageID { return v.MessageIDBeingRespondedTo }
func (v *NGetRsp) GetStatus() *Status    { return &v.Status }
func (v *NGetRsp) String() string {
	return fmt.Sprintf("NGetRsp{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func (NGetRsp) decode(d *MessageDecoder) (*NGetRsp, error) {
	v := &NGetRsp{}
	var err error

	if v.AffectedSOPClassUID, err = d.GetString(commandset.AffectedSOPClassUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("nGetRsp.decode: failed to decode AffectedSOPClassUID: %w", err)
	}
	if v.MessageIDBeingRespondedTo, err = d.GetUInt16(commandset.MessageIDBeingRespondedTo, RequiredElement); err != nil {
		return nil, fmt.Errorf("nGetRsp.decode: failed to decode MessageIDBeingRespondedTo: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("nGetRsp.decode: failed to decode CommandDataSetType: %w", err)
	}
	if v.AffectedSOPInstanceUID, err = d.GetString(commandset.AffectedSOPInstanceUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("nGetRsp.decode: failed to decode AffectedSOPInstanceUID: %w", err)
	}
	if v.Status, err = d.GetStatus(); err != nil {
		return nil, fmt.Errorf("nGetRsp.decode: failed to decode Status: %w", err)
	}

	v.Extra = d.UnparsedElements()
	return v, nil
}
