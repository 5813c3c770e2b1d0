package dimse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/mdimse/dimse/commandset"
	"github.com/mdimse/dimse/pdu"
	"github.com/suyashkumar/dicom"
	dicomtag "github.com/suyashkumar/dicom/pkg/tag"
)

// Message defines the common interface for all DIMSE message types. It
// is the wire-facing half of what spec §3 calls the "Message object":
// a Command Set (plus, optionally, an opaque Data Set) that knows how
// to serialize itself and how to report the handful of command-field
// values the provider and dispatcher need without type-switching.
type Message interface {
	fmt.Stringer // Print human-readable description for debugging.
	Encode(io.Writer) error
	// GetMessageID extracts the message ID field.
	GetMessageID() MessageID
	// CommandField returns the command field value of this message.
	CommandField() uint16
	// GetStatus returns the the response status value. It is nil for request message
	// types, and non-nil for response message types.
	GetStatus() *Status
	// HasData is true if we expect P_DATA_TF packets after the command packets.
	HasData() bool
}

// Command field values re-exported from commandset so existing call
// sites (CommandFieldCStoreRq, etc.) keep working without two
// independent tables drifting apart.
const (
	CommandFieldCStoreRq        = commandset.FieldCStoreRq
	CommandFieldCStoreRsp       = commandset.FieldCStoreRsp
	CommandFieldCFindRq         = commandset.FieldCFindRq
	CommandFieldCFindRsp        = commandset.FieldCFindRsp
	CommandFieldCGetRq          = commandset.FieldCGetRq
	CommandFieldCGetRsp         = commandset.FieldCGetRsp
	CommandFieldCMoveRq         = commandset.FieldCMoveRq
	CommandFieldCMoveRsp        = commandset.FieldCMoveRsp
	CommandFieldCEchoRq         = commandset.FieldCEchoRq
	CommandFieldCEchoRsp        = commandset.FieldCEchoRsp
	CommandFieldCCancelRq       = commandset.FieldCCancelRq
	CommandFieldNEventReportRq  = commandset.FieldNEventReportRq
	CommandFieldNEventReportRsp = commandset.FieldNEventReportRsp
	CommandFieldNGetRq          = commandset.FieldNGetRq
	CommandFieldNGetRsp         = commandset.FieldNGetRsp
	CommandFieldNSetRq          = commandset.FieldNSetRq
	CommandFieldNSetRsp         = commandset.FieldNSetRsp
	CommandFieldNActionRq       = commandset.FieldNActionRq
	CommandFieldNActionRsp      = commandset.FieldNActionRsp
	CommandFieldNCreateRq       = commandset.FieldNCreateRq
	CommandFieldNCreateRsp      = commandset.FieldNCreateRsp
	CommandFieldNDeleteRq       = commandset.FieldNDeleteRq
	CommandFieldNDeleteRsp      = commandset.FieldNDeleteRsp
)

type MessageID = uint16

// ReadMessage decodes a list of Command Set elements into the typed
// Message they represent. It fails with an error wrapped as
// dimseerr.PeerProtocol-worthy when the command field is missing or
// unrecognized -- callers at the provider level turn that into a DUL
// Evt19 abort, per spec §4.2.
func ReadMessage(elements []*dicom.Element) (message Message, err error) {
	mDecoder := MessageDecoder{
		elements: make(map[dicomtag.Tag]*dicom.Element),
	}
	for _, elem := range elements {
		mDecoder.elements[elem.Tag] = elem
	}
	commandField, err := mDecoder.GetUInt16(commandset.CommandField, RequiredElement)
	if err != nil {
		return nil, fmt.Errorf("ReadMessage: failed to get command field: %w", err)
	}
	return mDecoder.Decode(commandField)
}

// DecodeMessage parses a raw Command Set buffer (Implicit VR Little
// Endian, reassembled from the command PDVs) into its typed Message.
func DecodeMessage(raw []byte) (Message, error) {
	elems, err := DecodeCommandSetElements(raw)
	if err != nil {
		return nil, fmt.Errorf("DecodeMessage: %w", err)
	}
	return ReadMessage(elems)
}

// EncodeMessage serializes the given message's Command Set, including
// the CommandGroupLength element computed over the remainder (spec
// §4.1: "written first with a placeholder then back-patched" -- here
// achieved by buffering the body first, since its length is needed
// before the group-length element can be written at all).
func EncodeMessage(out io.Writer, v Message) error {
	writer, err := dicom.NewWriter(out)
	if err != nil {
		return fmt.Errorf("EncodeMessage: error creating writer: %w", err)
	}
	subEncoderBuffer := bytes.Buffer{}
	if err := v.Encode(&subEncoderBuffer); err != nil {
		return fmt.Errorf("EncodeMessage: error encoding message: %w", err)
	}
	// DIMSE messages are always encoded Implicit+LE. See P3.7 6.3.1.
	writer.SetTransferSyntax(binary.LittleEndian, true)
	element, err := NewElement(commandset.CommandGroupLength, subEncoderBuffer.Len())
	if err != nil {
		return fmt.Errorf("EncodeMessage: failed to create CommandGroupLength element: %w", err)
	}
	writer.WriteElement(element)
	out.Write(subEncoderBuffer.Bytes())
	return nil
}

// FragmentIterator is the "lazy, finite, non-restartable sequence of
// P_DATA" spec §4.2 calls for. Fragments are precomputed (the total
// size is always known up front here) but handed out one at a time;
// once exhausted, Next always returns ok=false.
type FragmentIterator struct {
	pdus []pdu.PDataTf
	pos  int
}

// Next returns the next P_DATA PDU, or ok=false once the sequence is
// exhausted.
func (it *FragmentIterator) Next() (pdu.PDataTf, bool) {
	if it.pos >= len(it.pdus) {
		return pdu.PDataTf{}, false
	}
	p := it.pdus[it.pos]
	it.pos++
	return p, true
}

// Remaining reports how many PDUs are left to hand out.
func (it *FragmentIterator) Remaining() int { return len(it.pdus) - it.pos }

// EncodeMsg assembles v (and, if v.HasData(), dataBytes) into the
// sequence of P_DATA PDUs the DUL should send for presentation context
// contextID, respecting maxPduSize (spec §4.2, invariants 2-4):
//   - each PDV's payload is <= maxPduSize - pdu.PDVHeaderBytes
//   - command and data fragments never share a PDV
//   - the last-fragment bit is set on exactly one command fragment,
//     and -- when a Data Set is present -- exactly one data fragment.
func EncodeMsg(v Message, contextID byte, maxPduSize int, dataBytes []byte) (*FragmentIterator, error) {
	var commandBuf bytes.Buffer
	if err := EncodeMessage(&commandBuf, v); err != nil {
		return nil, fmt.Errorf("EncodeMsg: failed to encode command set: %w", err)
	}

	fragmentSize := maxPduSize - pdu.PDVHeaderBytes
	if fragmentSize <= 0 {
		return nil, fmt.Errorf("EncodeMsg: maxPduSize %d too small for PDV header", maxPduSize)
	}

	var pdus []pdu.PDataTf
	pdus = append(pdus, fragmentPDUs(contextID, commandBuf.Bytes(), fragmentSize, true)...)
	if v.HasData() {
		pdus = append(pdus, fragmentPDUs(contextID, dataBytes, fragmentSize, false)...)
	}
	return &FragmentIterator{pdus: pdus}, nil
}

// fragmentPDUs splits buf into command/data PDVs of at most fragmentSize
// bytes (maxPduSize minus the PDV header), one per PDU. The final fragment carries the last-fragment bit.
func fragmentPDUs(contextID byte, buf []byte, fragmentSize int, command bool) []pdu.PDataTf {
	if len(buf) == 0 {
		item := pdu.PresentationDataValueItem{ContextID: contextID, Command: command, Last: true, Value: nil}
		return []pdu.PDataTf{{Items: []pdu.PresentationDataValueItem{item}}}
	}
	var pdus []pdu.PDataTf
	for offset := 0; offset < len(buf); offset += fragmentSize {
		end := offset + fragmentSize
		if end > len(buf) {
			end = len(buf)
		}
		last := end == len(buf)
		item := pdu.PresentationDataValueItem{
			ContextID: contextID,
			Command:   command,
			Last:      last,
			Value:     buf[offset:end],
		}
		pdus = append(pdus, pdu.PDataTf{Items: []pdu.PresentationDataValueItem{item}})
	}
	return pdus
}
