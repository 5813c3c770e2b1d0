package dimse

import (
	"fmt"
	"io"

	"github.com/mdimse/dimse/commandset"
	"github.com/suyashkumar/dicom"
)

// NActionRq carries ActionInformation as its Data Set payload.
type NActionRq struct {
	RequestedSOPClassUID    string
	MessageID               MessageID
	RequestedSOPInstanceUID string
	ActionTypeID            uint16
	CommandDataSetType      CommandDataSetType
	Extra                   []*dicom.Element
}

func (v *NActionRq) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to create CommandField element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.RequestedSOPClassUID, v.RequestedSOPClassUID)
	if err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to create RequestedSOPClassUID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.MessageID, v.MessageID)
	if err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to create MessageID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.RequestedSOPInstanceUID, v.RequestedSOPInstanceUID)
	if err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to create RequestedSOPInstanceUID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.ActionTypeID, v.ActionTypeID)
	if err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to create ActionTypeID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType))
	if err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to create CommandDataSetType element: %w", err)
	}
	elems = append(elems, elem)

	elems = append(elems, v.Extra...)
	if err := EncodeElements(e, elems); err != nil {
		return fmt.Errorf("NActionRq.Encode: failed to encode elements: %w", err)
	}
	return nil
}

func (v *NActionRq) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NActionRq) CommandField() uint16 { return CommandFieldNActionRq }
func (v *NActionRq) GetMessageID() MessageID { return v.MessageID }
func (v *NActionRq) GetStatus() *Status    { return nil }
func (v *NActionRq) String() string {
	return fmt.Sprintf("NActionRq{RequestedSOPClassUID:%v MessageID:%v RequestedSOPInstanceUID:%v ActionTypeID:%v}", v.RequestedSOPClassUID, v.MessageID, v.RequestedSOPInstanceUID, v.ActionTypeID)
}

func (NActionRq) decode(d *MessageDecoder) (*NActionRq, error) {
	v := &NActionRq{}
	var err error

	if v.RequestedSOPClassUID, err = d.GetString(commandset.RequestedSOPClassUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nActionRq.decode: failed to decode RequestedSOPClassUID: %w", err)
	}
	if v.MessageID, err = d.GetUInt16(commandset.MessageID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nActionRq.decode: failed to decode MessageID: %w", err)
	}
	if v.RequestedSOPInstanceUID, err = d.GetString(commandset.RequestedSOPInstanceUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nActionRq.decode: failed to decode RequestedSOPInstanceUID: %w", err)
	}
	if v.ActionTypeID, err = d.GetUInt16(commandset.ActionTypeID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nActionRq.decode: failed to decode ActionTypeID: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("nActionRq.decode: failed to decode CommandDataSetType: %w", err)
	}

	v.Extra = d.UnparsedElements()
	return v, nil
}

// NActionRsp carries ActionReply as its Data Set payload.
type NActionRsp struct {
	AffectedSOPClassUID       string
	MessageIDBeingRespondedTo MessageID
	CommandDataSetType        CommandDataSetType
	AffectedSOPInstanceUID    string
	ActionTypeID              uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *NActionRsp) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return fmt.Errorf("NActionRsp.Encode: failed to create CommandField element: %w", err)
	}
	elems = append(elems, elem)

	if v.AffectedSOPClassUID != "" {
		elem, err = NewElement(commandset.AffectedSOPClassUID, v.AffectedSOPClassUID)
		if err != nil {
			return fmt.Errorf("NActionRsp.Encode: failed to create AffectedSOPClassUID element: %w", err)
		}
		elems = append(elems, elem)
	}

	elem, err = NewElement(commandset.MessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	if err != nil {
		return fmt.Errorf("NActionRsp.Encode: failed to create MessageIDBeingRespondedTo element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType))
	if err != nil {
		return fmt.Errorf("NActionRsp.Encode: failed to create CommandDataSetType element: %w", err)
	}
	elems = append(elems, elem)

	if v.AffectedSOPInstanceUID != "" {
		elem, err = NewElement(commandset.AffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
		if err != nil {
			return fmt.Errorf("NActionRsp.Encode: failed to create AffectedSOPInstanceUID element: %w", err)
		}
		elems = append(elems, elem)
	}

	if v.ActionTypeID != 0 {
		elem, err = NewElement(commandset.ActionTypeID, v.ActionTypeID)
		if err != nil {
			return fmt.Errorf("NActionRsp.Encode: failed to create ActionTypeID element: %w", err)
		}
		elems = append(elems, elem)
	}

	statusElems, err := v.Status.ToElements()
	if err != nil {
		return fmt.Errorf("NActionRsp.Encode: failed to create Status elements: %w", err)
	}
	elems = append(elems, statusElems...)

	elems = append(elems, v.Extra...)
	if err := EncodeElements(e, elems); err != nil {
		return fmt.Errorf("NActionRsp.Encode: failed to encode elements: %w", err)
	}
	return nil
}

func (v *NActionRsp) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NActionRsp) CommandField() uint16 { return CommandFieldNActionRsp }
func (v *NActionRsp) GetMessageID() MessageID { return v.MessageIDBeingRespondedTo }
func (v *NActionRsp) GetStatus() *Status    { return &v.Status }
func (v *NActionRsp) String() string {
	return fmt.Sprintf("NActionRsp{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func (NActionRsp) decode(d *MessageDecoder) (*NActionRsp, error) {
	v := &NActionRsp{}
	var err error

	if v.AffectedSOPClassUID, err = d.GetString(commandset.AffectedSOPClassUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("nActionRsp.decode: failed to decode AffectedSOPClassUID: %w", err)
	}
	if v.MessageIDBeingRespondedTo, err = d.GetUInt16(commandset.MessageIDBeingRespondedTo, RequiredElement); err != nil {
		return nil, fmt.Errorf("nActionRsp.decode: failed to decode MessageIDBeingRespondedTo: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("nActionRsp.decode: failed to decode CommandDataSetType: %w", err)
	}
	if v.AffectedSOPInstanceUID, err = d.GetString(commandset.AffectedSOPInstanceUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("nActionRsp.decode: failed to decode AffectedSOPInstanceUID: %w", err)
	}
	if v.ActionTypeID, err = d.GetUInt16(commandset.ActionTypeID, OptionalElement); err != nil {
		return nil, fmt.Errorf("nActionRsp.decode: failed to decode ActionTypeID: %w", err)
	}
	if v.Status, err = d.GetStatus(); err != nil {
		return nil, fmt.Errorf("nActionRsp.decode: failed to decode Status: %w", err)
	}

	v.Extra = d.UnparsedElements()
	return v, nil
}
