package dimse

import (
	"fmt"
	"io"

	"github.com/mdimse/dimse/commandset"
	"github.com/suyashkumar/dicom"
)

// NCreateRq carries an initial AttributeList as its Data Set payload.
// AffectedSOPInstanceUID is optional: the SCP may assign it instead.
type NCreateRq struct {
	AffectedSOPClassUID    string
	MessageID              MessageID
	AffectedSOPInstanceUID string
	CommandDataSetType     CommandDataSetType
	Extra                  []*dicom.Element
}

func (v *NCreateRq) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return fmt.Errorf("NCreateRq.Encode: failed to create CommandField element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.AffectedSOPClassUID, v.AffectedSOPClassUID)
	if err != nil {
		return fmt.Errorf("NCreateRq.Encode: failed to create AffectedSOPClassUID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.MessageID, v.MessageID)
	if err != nil {
		return fmt.Errorf("NCreateRq.Encode: failed to create MessageID element: %w", err)
	}
	elems = append(elems, elem)

	if v.AffectedSOPInstanceUID != "" {
		elem, err = NewElement(commandset.AffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
		if err != nil {
			return fmt.Errorf("NCreateRq.Encode: failed to create AffectedSOPInstanceUID element: %w", err)
		}
		elems = append(elems, elem)
	}

	elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType))
	if err != nil {
		return fmt.Errorf("NCreateRq.Encode: failed to create CommandDataSetType element: %w", err)
	}
	elems = append(elems, elem)

	elems = append(elems, v.Extra...)
	if err := EncodeElements(e, elems); err != nil {
		return fmt.Errorf("NCreateRq.Encode: failed to encode elements: %w", err)
	}
	return nil
}

func (v *NCreateRq) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NCreateRq) CommandField() uint16 { return CommandFieldNCreateRq }
func (v *NCreateRq) GetMessageID() MessageID { return v.MessageID }
func (v *NCreateRq) GetStatus() *Status    { return nil }
func (v *NCreateRq) String() string {
	return fmt.Sprintf("NCreateRq{AffectedSOPClassUID:%v MessageID:%v AffectedSOPInstanceUID:%v}", v.AffectedSOPClassUID, v.MessageID, v.AffectedSOPInstanceUID)
}

func (NCreateRq) decode(d *MessageDecoder) (*NCreateRq, error) {
	v := &NCreateRq{}
	var err error

	if v.AffectedSOPClassUID, err = d.GetString(commandset.AffectedSOPClassUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nCreateRq.decode: failed to decode AffectedSOPClassUID: %w", err)
	}
	if v.MessageID, err = d.GetUInt16(commandset.MessageID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nCreateRq.decode: failed to decode MessageID: %w", err)
	}
	if v.AffectedSOPInstanceUID, err = d.GetString(commandset.AffectedSOPInstanceUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("nCreateRq.decode: failed to decode AffectedSOPInstanceUID: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("nCreateRq.decode: failed to decode CommandDataSetType: %w", err)
	}

	v.Extra = d.UnparsedElements()
	return v, nil
}

// NCreateRsp echoes back the fully assigned AttributeList.
type NCreateRsp struct {
	AffectedSOPClassUID       string
	MessageIDBeingRespondedTo MessageID
	CommandDataSetType        CommandDataSetType
	AffectedSOPInstanceUID    string
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *NCreateRsp) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to create CommandField element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.AffectedSOPClassUID, v.AffectedSOPClassUID)
	if err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to create AffectedSOPClassUID element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.MessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo)
	if err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to create MessageIDBeingRespondedTo element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType))
	if err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to create CommandDataSetType element: %w", err)
	}
	elems = append(elems, elem)

	elem, err = NewElement(commandset.AffectedSOPInstanceUID, v.AffectedSOPInstanceUID)
	if err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to create AffectedSOPInstanceUID element: %w", err)
	}
	elems = append(elems, elem)

	statusElems, err := v.Status.ToElements()
	if err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to create Status elements: %w", err)
	}
	elems = append(elems, statusElems...)

	elems = append(elems, v.Extra...)
	if err := EncodeElements(e, elems); err != nil {
		return fmt.Errorf("NCreateRsp.Encode: failed to encode elements: %w", err)
	}
	return nil
}

func (v *NCreateRsp) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NCreateRsp) CommandField() uint16 { return CommandFieldNCreateRsp }
func (v *NCreateRsp) GetMessageID() MessageID { return v.MessageIDBeingRespondedTo }
func (v *NCreateRsp) GetStatus() *Status    { return &v.Status }
func (v *NCreateRsp) String() string {
	return fmt.Sprintf("NCreateRsp{MessageIDBeingRespondedTo:%v AffectedSOPInstanceUID:%v Status:%v}", v.MessageIDBeingRespondedTo, v.AffectedSOPInstanceUID, v.Status)
}

func (NCreateRsp) decode(d *MessageDecoder) (*NCreateRsp, error) {
	v := &NCreateRsp{}
	var err error

	if v.AffectedSOPClassUID, err = d.GetString(commandset.AffectedSOPClassUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nCreateRsp.decode: failed to decode AffectedSOPClassUID: %w", err)
	}
	if v.MessageIDBeingRespondedTo, err = d.GetUInt16(commandset.MessageIDBeingRespondedTo, RequiredElement); err != nil {
		return nil, fmt.Errorf("nCreateRsp.decode: failed to decode MessageIDBeingRespondedTo: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("nCreateRsp.decode: failed to decode CommandDataSetType: %w", err)
	}
	if v.AffectedSOPInstanceUID, err = d.GetString(commandset.AffectedSOPInstanceUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("nCreateRsp.decode: failed to decode AffectedSOPInstanceUID: %w", err)
	}
	if v.Status, err = d.GetStatus(); err != nil {
		return nil, fmt.Errorf("nCreateRsp.decode: failed to decode Status: %w", err)
	}

	v.Extra = d.UnparsedElements()
	return v, nil
}
