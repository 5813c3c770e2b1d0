package dimse

import (
	"bytes"
	"testing"

	"github.com/mdimse/dimse/dimseerr"
	"github.com/mdimse/dimse/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestPartialMessageCommandOnly exercises the no-Data-Set path (spec
// §4.2/§8): a single P_DATA_TF carrying one last-fragment command PDV
// completes the message immediately.
func TestPartialMessageCommandOnly(t *testing.T) {
	rq := &CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           7,
		CommandDataSetType:  CommandDataSetTypeNull,
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeMessage(&buf, rq))

	p := &PartialMessage{}
	done, err := p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewCommandPDV(1, buf.Bytes(), true),
	}})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, byte(1), p.ContextID())
	echo, ok := p.Command().(*CEchoRq)
	require.True(t, ok)
	assert.Equal(t, "1.2.840.10008.1.1", echo.AffectedSOPClassUID)
	assert.Empty(t, p.DataBytes())
}

// TestPartialMessageCommandSplitAcrossPDUs exercises reassembly of a
// command set fragmented across more than one P_DATA_TF.
func TestPartialMessageCommandSplitAcrossPDUs(t *testing.T) {
	rq := &CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           7,
		CommandDataSetType:  CommandDataSetTypeNull,
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeMessage(&buf, rq))
	raw := buf.Bytes()
	require.Greater(t, len(raw), 4)
	first, rest := raw[:4], raw[4:]

	p := &PartialMessage{}
	done, err := p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewCommandPDV(1, first, false),
	}})
	require.NoError(t, err)
	assert.False(t, done)

	done, err = p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewCommandPDV(1, rest, true),
	}})
	require.NoError(t, err)
	assert.True(t, done)
	_, ok := p.Command().(*CEchoRq)
	assert.True(t, ok)
}

// TestPartialMessageCommandThenData exercises the full C-STORE path: a
// command PDV followed by a separate data PDV, each arriving in its own
// P_DATA_TF, per spec §4.2 invariant "command before data".
func TestPartialMessageCommandThenData(t *testing.T) {
	rq := &CStoreRq{
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		MessageID:              7,
		Priority:               2,
		CommandDataSetType:     CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID: "1.2.3.4.5",
	}
	var buf bytes.Buffer
	require.NoError(t, EncodeMessage(&buf, rq))
	dataBytes := bytes.Repeat([]byte{0xAB}, 16)

	p := &PartialMessage{}
	done, err := p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewCommandPDV(3, buf.Bytes(), true),
	}})
	require.NoError(t, err)
	assert.False(t, done, "command alone must not complete a message expecting a Data Set")

	done, err = p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewDataPDV(3, dataBytes, true),
	}})
	require.NoError(t, err)
	assert.True(t, done)
	assert.Equal(t, dataBytes, p.DataBytes())
	store, ok := p.Command().(*CStoreRq)
	require.True(t, ok)
	assert.Equal(t, rq.AffectedSOPInstanceUID, store.AffectedSOPInstanceUID)
}

// TestPartialMessageDataBeforeCommandIsInvalid exercises the invariant
// that a data fragment may never arrive before the command set is
// complete.
func TestPartialMessageDataBeforeCommandIsInvalid(t *testing.T) {
	p := &PartialMessage{}
	_, err := p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewDataPDV(1, []byte{0x01}, true),
	}})
	require.Error(t, err)
	assert.True(t, dimseerr.Is(err, dimseerr.PeerProtocol))
}

// TestPartialMessageMixedContextIsInvalid exercises the invariant that
// every PDV of an in-progress message shares one presentation context.
func TestPartialMessageMixedContextIsInvalid(t *testing.T) {
	p := &PartialMessage{}
	_, err := p.decodeMsg(&pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewCommandPDV(1, []byte{0x00}, false),
		pdu.NewCommandPDV(2, []byte{0x00}, false),
	}})
	assert.Error(t, err)
}
