package dimse

import (
	"fmt"
	"io"

	"github.com/mdimse/dimse/commandset"
	"github.com/suyashkumar/dicom"
)

// NEventReportRq carries EventInformation as its opaque Data Set
// payload (never decoded by the core, spec §3).
type NEventReportRq struct {
	AffectedSOPClassUID    string
	MessageID              MessageID
	AffectedSOPInstanceUID string
	EventTypeID            uint16
	CommandDataSetType     CommandDataSetType
	Extra                  []*dicom.Element
}

func (v *NEventReportRq) Encode(e io.Writer) error {
	elems := []*dicom.Element{}

	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return err
	}
	elems = append(elems, elem)

	if elem, err = NewElement(commandset.AffectedSOPClassUID, v.AffectedSOPClassUID); err != nil {
		return fmt.Errorf("NEventReportRq.Encode: %w", err)
	}
	elems = append(elems, elem)

	if elem, err = NewElement(commandset.MessageID, v.MessageID); err != nil {
		return fmt.Errorf("NEventReportRq.Encode: %w", err)
	}
	elems = append(elems, elem)

	if elem, err = NewElement(commandset.AffectedSOPInstanceUID, v.AffectedSOPInstanceUID); err != nil {
		return fmt.Errorf("NEventReportRq.Encode: %w", err)
	}
	elems = append(elems, elem)

	if elem, err = NewElement(commandset.EventTypeID, v.EventTypeID); err != nil {
		return fmt.Errorf("NEventReportRq.Encode: %w", err)
	}
	elems = append(elems, elem)

	if elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType)); err != nil {
		return fmt.Errorf("NEventReportRq.Encode: %w", err)
	}
	elems = append(elems, elem)

	elems = append(elems, v.Extra...)
	return EncodeElements(e, elems)
}

func (v *NEventReportRq) HasData() bool       { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NEventReportRq) CommandField() uint16 { return CommandFieldNEventReportRq }
func (v *NEventReportRq) GetMessageID() MessageID { return v.MessageID }
func (v *NEventReportRq) GetStatus() *Status  { return nil }
func (v *NEventReportRq) String() string {
	return fmt.Sprintf("NEventReportRq{AffectedSOPClassUID:%v MessageID:%v AffectedSOPInstanceUID:%v EventTypeID:%v}", v.AffectedSOPClassUID, v.MessageID, v.AffectedSOPInstanceUID, v.EventTypeID)
}

func (NEventReportRq) decode(d *MessageDecoder) (*NEventReportRq, error) {
	v := &NEventReportRq{}
	var err error
	if v.AffectedSOPClassUID, err = d.GetString(commandset.AffectedSOPClassUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("NEventReportRq.decode: %w", err)
	}
	if v.MessageID, err = d.GetUInt16(commandset.MessageID, RequiredElement); err != nil {
		return nil, fmt.Errorf("NEventReportRq.decode: %w", err)
	}
	if v.AffectedSOPInstanceUID, err = d.GetString(commandset.AffectedSOPInstanceUID, RequiredElement); err != nil {
		return nil, fmt.Errorf("NEventReportRq.decode: %w", err)
	}
	if v.EventTypeID, err = d.GetUInt16(commandset.EventTypeID, RequiredElement); err != nil {
		return nil, fmt.Errorf("NEventReportRq.decode: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("NEventReportRq.decode: %w", err)
	}
	v.Extra = d.UnparsedElements()
	return v, nil
}

// NEventReportRsp carries EventReply as its opaque Data Set payload.
type NEventReportRsp struct {
	AffectedSOPClassUID       string
	MessageIDBeingRespondedTo MessageID
	CommandDataSetType        CommandDataSetType
	AffectedSOPInstanceUID    string
	EventTypeID               uint16
	Status                    Status
	Extra                     []*dicom.Element
}

func (v *NEventReportRsp) Encode(e io.Writer) error {
	elems := []*dicom.Element{}
	elem, err := NewElement(commandset.CommandField, v.CommandField())
	if err != nil {
		return err
	}
	elems = append(elems, elem)

	if v.AffectedSOPClassUID != "" {
		if elem, err = NewElement(commandset.AffectedSOPClassUID, v.AffectedSOPClassUID); err != nil {
			return fmt.Errorf("NEventReportRsp.Encode: %w", err)
		}
		elems = append(elems, elem)
	}

	if elem, err = NewElement(commandset.MessageIDBeingRespondedTo, v.MessageIDBeingRespondedTo); err != nil {
		return fmt.Errorf("NEventReportRsp.Encode: %w", err)
	}
	elems = append(elems, elem)

	if elem, err = NewElement(commandset.CommandDataSetType, uint16(v.CommandDataSetType)); err != nil {
		return fmt.Errorf("NEventReportRsp.Encode: %w", err)
	}
	elems = append(elems, elem)

	if v.AffectedSOPInstanceUID != "" {
		if elem, err = NewElement(commandset.AffectedSOPInstanceUID, v.AffectedSOPInstanceUID); err != nil {
			return fmt.Errorf("NEventReportRsp.Encode: %w", err)
		}
		elems = append(elems, elem)
	}

	if v.EventTypeID != 0 {
		if elem, err = NewElement(commandset.EventTypeID, v.EventTypeID); err != nil {
			return fmt.Errorf("NEventReportRsp.Encode: %w", err)
		}
		elems = append(elems, elem)
	}

	statusElems, err := v.Status.ToElements()
	if err != nil {
		return fmt.Errorf("NEventReportRsp.Encode: %w", err)
	}
	elems = append(elems, statusElems...)
	elems = append(elems, v.Extra...)
	return EncodeElements(e, elems)
}

func (v *NEventReportRsp) HasData() bool        { return v.CommandDataSetType != CommandDataSetTypeNull }
func (v *NEventReportRsp) CommandField() uint16 { return CommandFieldNEventReportRsp }
func (v *NEventReportRsp) GetMessageID() MessageID { return v.MessageIDBeingRespondedTo }
func (v *NEventReportRsp) GetStatus() *Status   { return &v.Status }
func (v *NEventReportRsp) String() string {
	return fmt.Sprintf("NEventReportRsp{MessageIDBeingRespondedTo:%v Status:%v}", v.MessageIDBeingRespondedTo, v.Status)
}

func (NEventReportRsp) decode(d *MessageDecoder) (*NEventReportRsp, error) {
	v := &NEventReportRsp{}
	var err error
	if v.AffectedSOPClassUID, err = d.GetString(commandset.AffectedSOPClassUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("NEventReportRsp.decode: %w", err)
	}
	if v.MessageIDBeingRespondedTo, err = d.GetUInt16(commandset.MessageIDBeingRespondedTo, RequiredElement); err != nil {
		return nil, fmt.Errorf("NEventReportRsp.decode: %w", err)
	}
	if v.CommandDataSetType, err = d.GetCommandDataSetType(); err != nil {
		return nil, fmt.Errorf("NEventReportRsp.decode: %w", err)
	}
	if v.AffectedSOPInstanceUID, err = d.GetString(commandset.AffectedSOPInstanceUID, OptionalElement); err != nil {
		return nil, fmt.Errorf("NEventReportRsp.decode: %w", err)
	}
	if v.EventTypeID, err = d.GetUInt16(commandset.EventTypeID, OptionalElement); err != nil {
		return nil, fmt.Errorf("NEventReportRsp.decode: %w", err)
	}
	if v.Status, err = d.GetStatus(); err != nil {
		return nil, fmt.Errorf("NEventReportRsp.decode: %w", err)
	}
	v.Extra = d.UnparsedElements()
	return v, nil
}
