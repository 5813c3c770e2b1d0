package dimse

import (
	"encoding/binary"
	"fmt"

	"github.com/mdimse/dimse/commandset"
	"github.com/suyashkumar/dicom"
	dicomtag "github.com/suyashkumar/dicom/pkg/tag"
)

// Helper class for extracting values from a list of DicomElement.
type MessageDecoder struct {
	elements map[dicomtag.Tag]*dicom.Element
}

type isOptionalElement int

const (
	RequiredElement isOptionalElement = iota
	OptionalElement
)

type CommandDataSetType uint16

const (
	// CommandDataSetTypeNull indicates that the DIMSE message has no data payload,
	// when set in commandset.CommandDataSetType. Any other value indicates the
	// existence of a payload.
	CommandDataSetTypeNull CommandDataSetType = 0x101

	// CommandDataSetTypeNonNull indicates that the DIMSE message has a data
	// payload, when set in commandset.CommandDataSetType.
	CommandDataSetTypeNonNull CommandDataSetType = 1
)

func (d *MessageDecoder) Decode(commandField uint16) (Message, error) {
	switch commandField {
	case CommandFieldCStoreRq:
		return CStoreRq{}.decode(d)
	case CommandFieldCStoreRsp:
		return CStoreRsp{}.decode(d)
	case CommandFieldCFindRq:
		return CFindRq{}.decode(d)
	case CommandFieldCFindRsp:
		return CFindRsp{}.decode(d)
	case CommandFieldCGetRq:
		return CGetRq{}.decode(d)
	case CommandFieldCGetRsp:
		return CGetRsp{}.decode(d)
	case CommandFieldCMoveRq:
		return CMoveRq{}.decode(d)
	case CommandFieldCMoveRsp:
		return CMoveRsp{}.decode(d)
	case CommandFieldCEchoRq:
		return CEchoRq{}.decode(d)
	case CommandFieldCEchoRsp:
		return CEchoRsp{}.decode(d)
	case CommandFieldCCancelRq:
		return CCancelRq{}.decode(d)
	case CommandFieldNEventReportRq:
		return NEventReportRq{}.decode(d)
	case CommandFieldNEventReportRsp:
		return NEventReportRsp{}.decode(d)
	case CommandFieldNGetRq:
		return NGetRq{}.decode(d)
	case CommandFieldNGetRsp:
		return NGetRsp{}.decode(d)
	case CommandFieldNSetRq:
		return NSetRq{}.decode(d)
	case CommandFieldNSetRsp:
		return NSetRsp{}.decode(d)
	case CommandFieldNActionRq:
		return NActionRq{}.decode(d)
	case CommandFieldNActionRsp:
		return NActionRsp{}.decode(d)
	case CommandFieldNCreateRq:
		return NCreateRq{}.decode(d)
	case CommandFieldNCreateRsp:
		return NCreateRsp{}.decode(d)
	case CommandFieldNDeleteRq:
		return NDeleteRq{}.decode(d)
	case CommandFieldNDeleteRsp:
		return NDeleteRsp{}.decode(d)
	default:
		return nil, fmt.Errorf("unknown DIMSE command 0x%x", commandField)
	}
}

func (d *MessageDecoder) UnparsedElements() []*dicom.Element {
	elems := make([]*dicom.Element, 0, len(d.elements))
	for _, elem := range d.elements {
		elems = append(elems, elem)
	}
	return elems
}

func (d *MessageDecoder) GetStatus() (s Status, err error) {
	statusCode, err := d.GetUInt16(commandset.Status, RequiredElement)
	if err != nil {
		return s, fmt.Errorf("GetStatus: failed to get status code: %w", err)
	}
	s.Status = StatusCode(statusCode)
	s.ErrorComment, err = d.GetString(commandset.ErrorComment, OptionalElement)
	if err != nil {
		return s, fmt.Errorf("GetStatus: failed to get error comment: %w", err)
	}
	return s, nil
}

func (d *MessageDecoder) GetCommandDataSetType() (CommandDataSetType, error) {
	cmdDataSetType, err := d.GetUInt16(commandset.CommandDataSetType, RequiredElement)
	if err != nil {
		return CommandDataSetTypeNull, fmt.Errorf("GetCommandDataSetType: failed to get command data set type: %w", err)
	}
	return CommandDataSetType(cmdDataSetType), nil
}

func (d *MessageDecoder) GetString(tag dicomtag.Tag, optional isOptionalElement) (string, error) {
	elem := d.elements[tag]
	if elem == nil {
		if optional == RequiredElement {
			return "", fmt.Errorf("GetString: tag %s not found", tag.String())
		}
		return "", nil
	}
	if elem.Value == nil {
		return "", fmt.Errorf("GetString: tag %s has no value", tag.String())
	}
	rawValue := elem.Value.GetValue()
	if rawValue == nil {
		return "", fmt.Errorf("GetString: tag %s has a nil value", tag.String())
	}
	v, ok := rawValue.([]string)
	if !ok {
		return "", fmt.Errorf("GetString: failed to convert tag %s to []string, got %d", tag.String(), elem.Value.ValueType())
	}
	if len(v) == 0 {
		return "", nil
	}
	delete(d.elements, tag)
	return v[0], nil
}

// Find an element with "tag", and extract a uint16 from it. Errors are returned to the caller.
func (d *MessageDecoder) GetUInt16(tag dicomtag.Tag, optional isOptionalElement) (uint16, error) {
	elem := d.elements[tag]
	if elem == nil {
		if optional == RequiredElement {
			return 0, fmt.Errorf("GetUInt16: tag %s not found", tag.String())
		}
		return 0, nil
	}
	if elem.Value == nil {
		return 0, fmt.Errorf("GetUInt16: tag %s has no value", tag.String())
	}
	if elem.Value.ValueType() != dicom.Ints {
		return 0, fmt.Errorf("GetUInt16: element %s is not an int, got %v", tag.String(), elem.Value.ValueType())
	}
	rawValue := elem.Value.GetValue()
	if rawValue == nil {
		return 0, fmt.Errorf("GetUInt16: tag %s has a nil value", tag.String())
	}
	v, ok := rawValue.([]int)
	if !ok {
		return 0, fmt.Errorf("GetUInt16: failed to convert tag %s to []int", tag.String())
	}
	if len(v) == 0 {
		return 0, nil
	}
	if v[0] < 0 || v[0] > 65535 {
		return 0, fmt.Errorf("GetUInt16: value %v is out of range for uint16", v)
	}
	delete(d.elements, tag)
	return uint16(v[0]), nil
}

// GetUInt32 extracts a 32-bit unsigned value from a UL-VR field. The
// sub-operation counters are US and are read with GetUInt16.
func (d *MessageDecoder) GetUInt32(tag dicomtag.Tag, optional isOptionalElement) (uint32, error) {
	elem := d.elements[tag]
	if elem == nil {
		if optional == RequiredElement {
			return 0, fmt.Errorf("GetUInt32: tag %s not found", tag.String())
		}
		return 0, nil
	}
	if elem.Value == nil || elem.Value.ValueType() != dicom.Ints {
		return 0, fmt.Errorf("GetUInt32: element %s is not an int", tag.String())
	}
	v, ok := elem.Value.GetValue().([]int)
	if !ok || len(v) == 0 {
		return 0, nil
	}
	if v[0] < 0 {
		return 0, fmt.Errorf("GetUInt32: value %v is out of range for uint32", v)
	}
	delete(d.elements, tag)
	return uint32(v[0]), nil
}

// GetBytes extracts a raw byte payload, used for AT-VR fields like
// OffendingElement and AttributeIdentifierList where the core treats
// the value as opaque.
func (d *MessageDecoder) GetBytes(tag dicomtag.Tag, optional isOptionalElement) ([]byte, error) {
	elem := d.elements[tag]
	if elem == nil {
		if optional == RequiredElement {
			return nil, fmt.Errorf("GetBytes: tag %s not found", tag.String())
		}
		return nil, nil
	}
	if elem.Value == nil {
		return nil, nil
	}
	switch v := elem.Value.GetValue().(type) {
	case []byte:
		delete(d.elements, tag)
		return v, nil
	case []int:
		buf := make([]byte, 0, len(v)*4)
		for _, n := range v {
			tmp := make([]byte, 4)
			binary.LittleEndian.PutUint32(tmp, uint32(n))
			buf = append(buf, tmp...)
		}
		delete(d.elements, tag)
		return buf, nil
	default:
		return nil, fmt.Errorf("GetBytes: unsupported value type for tag %s", tag.String())
	}
}
