package dimse_test

import (
	"bytes"
	"encoding/binary"
	"testing"

	"github.com/mdimse/dimse/dimse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseCommandSet mirrors the reassembly path in partial.go: interpret
// a raw Command Set buffer via DecodeMessage.
func parseCommandSet(t *testing.T, buf []byte) dimse.Message {
	t.Helper()
	msg, err := dimse.DecodeMessage(buf)
	require.NoError(t, err)
	return msg
}

func TestCEchoRqRoundTrip(t *testing.T) {
	rq := &dimse.CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           7,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}

	var buf bytes.Buffer
	require.NoError(t, dimse.EncodeMessage(&buf, rq))

	got := parseCommandSet(t, buf.Bytes())
	echo, ok := got.(*dimse.CEchoRq)
	require.True(t, ok, "expected *CEchoRq, got %T", got)
	assert.Equal(t, "1.2.840.10008.1.1", echo.AffectedSOPClassUID)
	assert.EqualValues(t, 7, echo.MessageID)
	assert.Equal(t, dimse.CommandDataSetTypeNull, echo.CommandDataSetType)
	assert.False(t, echo.HasData())
	assert.Equal(t, dimse.CommandFieldCEchoRq, echo.CommandField())
}

// TestCEchoRqEncodedLength exercises the §8 scenario 1 header: the
// encoded Command Set for this exact C-ECHO-RQ starts with the
// CommandGroupLength element itself: tag (0000,0000), VR-implicit
// length 4, 12 bytes in all. Its value covers only the body that
// follows it: 56 bytes (0x00000038) once CommandField,
// AffectedSOPClassUID, MessageID and CommandDataSetType are all
// written, so the whole Command Set is 68 bytes.
func TestCEchoRqEncodedLength(t *testing.T) {
	rq := &dimse.CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           7,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}

	var buf bytes.Buffer
	require.NoError(t, dimse.EncodeMessage(&buf, rq))

	b := buf.Bytes()
	require.GreaterOrEqual(t, len(b), 12)
	// CommandGroupLength element: tag 0000,0000 then a 4-byte length
	// field (always 4 for UL under Implicit VR LE) then the value.
	assert.Equal(t, []byte{0x00, 0x00, 0x00, 0x00}, b[0:4])
	assert.Equal(t, []byte{0x04, 0x00, 0x00, 0x00}, b[4:8])
	groupLength := binary.LittleEndian.Uint32(b[8:12])
	assert.EqualValues(t, len(b)-12, groupLength)
}

func TestCEchoRspRoundTrip(t *testing.T) {
	rsp := &dimse.CEchoRsp{
		MessageIDBeingRespondedTo: 7,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.Success,
	}

	var buf bytes.Buffer
	require.NoError(t, dimse.EncodeMessage(&buf, rsp))

	got := parseCommandSet(t, buf.Bytes())
	echo, ok := got.(*dimse.CEchoRsp)
	require.True(t, ok)
	assert.EqualValues(t, 7, echo.MessageIDBeingRespondedTo)
	assert.Equal(t, dimse.StatusSuccess, echo.Status.Status)
}

func TestCStoreRqRoundTrip(t *testing.T) {
	rq := &dimse.CStoreRq{
		AffectedSOPClassUID:                  "1.2.840.10008.5.1.4.1.1.2",
		MessageID:                            7,
		Priority:                             2,
		CommandDataSetType:                   dimse.CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID:               "1.2.392.200036.9116.2.6.1.48.1215709044.1459316254.522441",
		MoveOriginatorApplicationEntityTitle: "UNITTEST_SCP",
		MoveOriginatorMessageID:              3,
	}

	var buf bytes.Buffer
	require.NoError(t, dimse.EncodeMessage(&buf, rq))

	got := parseCommandSet(t, buf.Bytes())
	store, ok := got.(*dimse.CStoreRq)
	require.True(t, ok)
	assert.Equal(t, rq.AffectedSOPClassUID, store.AffectedSOPClassUID)
	assert.EqualValues(t, 7, store.MessageID)
	assert.EqualValues(t, 2, store.Priority)
	assert.Equal(t, rq.AffectedSOPInstanceUID, store.AffectedSOPInstanceUID)
	assert.Equal(t, "UNITTEST_SCP", store.MoveOriginatorApplicationEntityTitle)
	assert.EqualValues(t, 3, store.MoveOriginatorMessageID)
	assert.True(t, store.HasData())
}

// TestCStoreFragmentation exercises the §8 scenario: a C-STORE-RQ plus
// a small Data Set, fragmented at maxPduSize=16382, must produce
// exactly two P_DATA PDUs -- one command PDV (last-fragment bit set,
// header 0x03) and one data PDV (last-fragment bit set, header 0x02).
func TestCStoreFragmentation(t *testing.T) {
	rq := &dimse.CStoreRq{
		AffectedSOPClassUID:                  "1.2.840.10008.5.1.4.1.1.2",
		MessageID:                            7,
		Priority:                             2,
		CommandDataSetType:                   dimse.CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID:               "1.2.392.200036.9116.2.6.1.48.1215709044.1459316254.522441",
		MoveOriginatorApplicationEntityTitle: "UNITTEST_SCP",
		MoveOriginatorMessageID:              3,
	}
	// A stand-in for a (PatientID="Test1101", PatientName="Tube HeNe")
	// Data Set -- the DIMSE core never looks inside it, so any 38-byte
	// payload exercises the fragmentation boundary the same way.
	dataBytes := bytes.Repeat([]byte{0xAB}, 38)

	it, err := dimse.EncodeMsg(rq, 1, 16382, dataBytes)
	require.NoError(t, err)

	first, ok := it.Next()
	require.True(t, ok)
	require.Len(t, first.Items, 1)
	assert.True(t, first.Items[0].Command)
	assert.True(t, first.Items[0].Last)
	assert.Equal(t, byte(1), first.Items[0].ContextID)

	second, ok := it.Next()
	require.True(t, ok)
	require.Len(t, second.Items, 1)
	assert.False(t, second.Items[0].Command)
	assert.True(t, second.Items[0].Last)
	assert.Equal(t, dataBytes, second.Items[0].Value)

	_, ok = it.Next()
	assert.False(t, ok, "expected exactly two P_DATA PDUs")
}

// TestDecodeMessagePreservesUnknownTags exercises spec §4.1: an
// unrecognized tag in group 0x0000 is kept as opaque bytes and does
// not block decoding.
func TestDecodeMessagePreservesUnknownTags(t *testing.T) {
	rq := &dimse.CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           7,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}
	var buf bytes.Buffer
	require.NoError(t, dimse.EncodeMessage(&buf, rq))
	// Append a private (0000,5110) element: tag, 4-byte length, value.
	raw := append(buf.Bytes(), 0x00, 0x00, 0x10, 0x51, 0x02, 0x00, 0x00, 0x00, 0xAB, 0xCD)

	got, err := dimse.DecodeMessage(raw)
	require.NoError(t, err)
	echo, ok := got.(*dimse.CEchoRq)
	require.True(t, ok)
	assert.EqualValues(t, 7, echo.MessageID)
	found := false
	for _, elem := range echo.Extra {
		if elem.Tag.Group == 0x0000 && elem.Tag.Element == 0x5110 {
			found = true
		}
	}
	assert.True(t, found, "unknown group-0x0000 element must survive decoding")
}

// TestMessageRoundTrips encodes one of every remaining message type
// and decodes it back, comparing the printed form the way the original
// per-type tests did. Field-level assertions for the composite
// requests live in the dedicated tests above.
func TestMessageRoundTrips(t *testing.T) {
	msgs := []dimse.Message{
		&dimse.CFindRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.1", MessageID: 11, Priority: 0, CommandDataSetType: dimse.CommandDataSetTypeNonNull},
		&dimse.CFindRsp{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.1", MessageIDBeingRespondedTo: 11, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
		&dimse.CGetRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 12, Priority: 1, CommandDataSetType: dimse.CommandDataSetTypeNonNull},
		&dimse.CGetRsp{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageIDBeingRespondedTo: 12, CommandDataSetType: dimse.CommandDataSetTypeNull, NumberOfRemainingSuboperations: 3, NumberOfCompletedSuboperations: 2, NumberOfFailedSuboperations: 1, NumberOfWarningSuboperations: 4, Status: dimse.Status{Status: dimse.StatusPending}},
		&dimse.CMoveRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.2.2", MessageID: 13, Priority: 2, MoveDestination: "REMOTE_SCP", CommandDataSetType: dimse.CommandDataSetTypeNonNull},
		&dimse.CMoveRsp{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.2.2", MessageIDBeingRespondedTo: 13, CommandDataSetType: dimse.CommandDataSetTypeNull, NumberOfCompletedSuboperations: 5, Status: dimse.Success},
		&dimse.CCancelRq{MessageIDBeingRespondedTo: 13, CommandDataSetType: dimse.CommandDataSetTypeNull},
		&dimse.NEventReportRq{AffectedSOPClassUID: "1.2.840.10008.1.20.1", MessageID: 14, AffectedSOPInstanceUID: "1.2.3", EventTypeID: 1, CommandDataSetType: dimse.CommandDataSetTypeNull},
		&dimse.NEventReportRsp{AffectedSOPClassUID: "1.2.840.10008.1.20.1", MessageIDBeingRespondedTo: 14, AffectedSOPInstanceUID: "1.2.3", EventTypeID: 1, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
		&dimse.NGetRq{RequestedSOPClassUID: "1.2.840.10008.5.1.1.16", MessageID: 15, RequestedSOPInstanceUID: "1.2.4", CommandDataSetType: dimse.CommandDataSetTypeNull},
		&dimse.NGetRsp{AffectedSOPClassUID: "1.2.840.10008.5.1.1.16", MessageIDBeingRespondedTo: 15, AffectedSOPInstanceUID: "1.2.4", CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
		&dimse.NSetRq{RequestedSOPClassUID: "1.2.840.10008.3.1.2.3.3", MessageID: 16, RequestedSOPInstanceUID: "1.2.5", CommandDataSetType: dimse.CommandDataSetTypeNonNull},
		&dimse.NSetRsp{AffectedSOPClassUID: "1.2.840.10008.3.1.2.3.3", MessageIDBeingRespondedTo: 16, AffectedSOPInstanceUID: "1.2.5", CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
		&dimse.NActionRq{RequestedSOPClassUID: "1.2.840.10008.1.20.1", MessageID: 17, RequestedSOPInstanceUID: "1.2.6", ActionTypeID: 1, CommandDataSetType: dimse.CommandDataSetTypeNonNull},
		&dimse.NActionRsp{AffectedSOPClassUID: "1.2.840.10008.1.20.1", MessageIDBeingRespondedTo: 17, AffectedSOPInstanceUID: "1.2.6", ActionTypeID: 1, CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
		&dimse.NCreateRq{AffectedSOPClassUID: "1.2.840.10008.5.1.1.1", MessageID: 18, AffectedSOPInstanceUID: "1.2.7", CommandDataSetType: dimse.CommandDataSetTypeNonNull},
		&dimse.NCreateRsp{AffectedSOPClassUID: "1.2.840.10008.5.1.1.1", MessageIDBeingRespondedTo: 18, AffectedSOPInstanceUID: "1.2.7", CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
		&dimse.NDeleteRq{RequestedSOPClassUID: "1.2.840.10008.5.1.1.1", MessageID: 19, RequestedSOPInstanceUID: "1.2.8", CommandDataSetType: dimse.CommandDataSetTypeNull},
		&dimse.NDeleteRsp{AffectedSOPClassUID: "1.2.840.10008.5.1.1.1", MessageIDBeingRespondedTo: 19, AffectedSOPInstanceUID: "1.2.8", CommandDataSetType: dimse.CommandDataSetTypeNull, Status: dimse.Success},
	}
	for _, m := range msgs {
		var buf bytes.Buffer
		require.NoError(t, dimse.EncodeMessage(&buf, m), "%T", m)
		got := parseCommandSet(t, buf.Bytes())
		assert.Equal(t, m.CommandField(), got.CommandField(), "%T", m)
		assert.Equal(t, m.String(), got.String(), "%T", m)
	}
}

// PartialMessage reassembly across PDU fragments is exercised in
// partial_internal_test.go, which lives in package dimse since
// decodeMsg is unexported.
