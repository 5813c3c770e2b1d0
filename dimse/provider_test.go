package dimse_test

import (
	"testing"
	"time"

	"github.com/mdimse/dimse/dimse"
	"github.com/mdimse/dimse/dul"
	"github.com/mdimse/dimse/event"
	"github.com/mdimse/dimse/pdu"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeDUL records everything the provider hands to the Upper Layer.
type fakeDUL struct {
	sent   []pdu.PDataTf
	events []dul.Event
	alive  bool
}

func (f *fakeDUL) SendPDU(p *pdu.PDataTf) error { f.sent = append(f.sent, *p); return nil }
func (f *fakeDUL) PushEvent(evt dul.Event)      { f.events = append(f.events, evt) }
func (f *fakeDUL) IsAlive() bool                { return f.alive }

func newTestProvider(t *testing.T, cfg dimse.Config, timeout time.Duration) (*dimse.Provider, *fakeDUL) {
	t.Helper()
	d := &fakeDUL{alive: true}
	return dimse.NewProvider(d, event.NewBus(), cfg, 16382, timeout), d
}

// feed runs a primitive through the outbound codec and replays every
// produced P_DATA into the provider's inbound path, the way a DUL
// loopback would.
func feed(t *testing.T, p *dimse.Provider, primitive dimse.Message, contextID byte, dataBytes []byte) {
	t.Helper()
	it, err := dimse.EncodeMsg(primitive, contextID, 16382, dataBytes)
	require.NoError(t, err)
	for {
		fragment, ok := it.Next()
		if !ok {
			break
		}
		require.NoError(t, p.ReceivePrimitive(&fragment))
	}
}

func TestProviderQueuesIndication(t *testing.T) {
	p, _ := newTestProvider(t, dimse.Config{}, 0)
	feed(t, p, &dimse.CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           7,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}, 1, nil)

	ind := p.GetMsg(false)
	require.NotNil(t, ind)
	assert.Equal(t, byte(1), ind.ContextID)
	echo, ok := ind.Primitive.(*dimse.CEchoRq)
	require.True(t, ok)
	assert.EqualValues(t, 7, echo.MessageID)
	assert.Empty(t, ind.Data)

	assert.Nil(t, p.GetMsg(false), "queue must be empty after the dequeue")
}

func TestProviderCarriesDataSetBytes(t *testing.T) {
	p, _ := newTestProvider(t, dimse.Config{}, 0)
	payload := []byte{0x10, 0x20, 0x30, 0x40}
	feed(t, p, &dimse.CStoreRq{
		AffectedSOPClassUID:    "1.2.840.10008.5.1.4.1.1.2",
		MessageID:              9,
		Priority:               0,
		CommandDataSetType:     dimse.CommandDataSetTypeNonNull,
		AffectedSOPInstanceUID: "1.2.3.4",
	}, 3, payload)

	ind := p.GetMsg(false)
	require.NotNil(t, ind)
	assert.Equal(t, payload, ind.Data)
	_, ok := ind.Primitive.(*dimse.CStoreRq)
	assert.True(t, ok)
}

func TestProviderGetMsgTimeout(t *testing.T) {
	p, _ := newTestProvider(t, dimse.Config{}, 20*time.Millisecond)
	start := time.Now()
	assert.Nil(t, p.GetMsg(true))
	assert.GreaterOrEqual(t, time.Since(start), 20*time.Millisecond)
}

func TestProviderPeekDoesNotConsume(t *testing.T) {
	p, _ := newTestProvider(t, dimse.Config{}, 0)
	feed(t, p, &dimse.CEchoRq{
		AffectedSOPClassUID: "1.2.840.10008.1.1",
		MessageID:           5,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}, 1, nil)

	peeked := p.PeekMsg()
	require.NotNil(t, peeked)
	again := p.PeekMsg()
	require.NotNil(t, again)
	assert.Same(t, peeked.Primitive, again.Primitive)

	got := p.GetMsg(false)
	require.NotNil(t, got)
	assert.Same(t, peeked.Primitive, got.Primitive)
	assert.Nil(t, p.GetMsg(false))
}

// TestProviderCancelBypassesQueue exercises spec §4.4 step 6 / §5: a
// C-CANCEL goes to the cancel map, never the message queue.
func TestProviderCancelBypassesQueue(t *testing.T) {
	p, _ := newTestProvider(t, dimse.Config{}, 0)
	feed(t, p, &dimse.CCancelRq{
		MessageIDBeingRespondedTo: 42,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
	}, 1, nil)

	assert.Nil(t, p.GetMsg(false), "C-CANCEL must not surface as an indication")
	assert.True(t, p.IsCancelled(42))
	assert.False(t, p.IsCancelled(43))

	c, ok := p.CancelFor(42)
	require.True(t, ok)
	assert.EqualValues(t, 42, c.MessageIDBeingRespondedTo)

	p.ClearCancel(42)
	assert.False(t, p.IsCancelled(42))
}

// TestProviderCancelMapCap exercises spec §8 invariant 6: the cancel
// map never exceeds its capacity; excess entries are dropped.
func TestProviderCancelMapCap(t *testing.T) {
	p, _ := newTestProvider(t, dimse.Config{}, 0)
	for id := 1; id <= 12; id++ {
		feed(t, p, &dimse.CCancelRq{
			MessageIDBeingRespondedTo: dimse.MessageID(id),
			CommandDataSetType:        dimse.CommandDataSetTypeNull,
		}, 1, nil)
	}
	held := 0
	for id := 1; id <= 12; id++ {
		if p.IsCancelled(dimse.MessageID(id)) {
			held++
		}
	}
	assert.Equal(t, 10, held)
	assert.False(t, p.IsCancelled(11))
	assert.False(t, p.IsCancelled(12))
}

// TestProviderInvalidMessagePushesEvt19 exercises spec §4.2/§7: a
// completed message that cannot be converted escalates to the DUL as
// Evt19 rather than surfacing as a DIMSE response.
func TestProviderInvalidMessagePushesEvt19(t *testing.T) {
	p, d := newTestProvider(t, dimse.Config{}, 0)
	garbage := &pdu.PDataTf{Items: []pdu.PresentationDataValueItem{
		pdu.NewCommandPDV(1, []byte{0xDE, 0xAD, 0xBE, 0xEF}, true),
	}}
	err := p.ReceivePrimitive(garbage)
	require.Error(t, err)
	require.Len(t, d.events, 1)
	assert.Equal(t, dul.Evt19, d.events[0].Type)
	assert.Nil(t, p.GetMsg(false))
}

func TestProviderSendMsgFragmentsThroughDUL(t *testing.T) {
	p, d := newTestProvider(t, dimse.Config{}, 0)
	err := p.SendMsg(&dimse.CEchoRsp{
		AffectedSOPClassUID:       "1.2.840.10008.1.1",
		MessageIDBeingRespondedTo: 7,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
		Status:                    dimse.Success,
	}, 1, nil)
	require.NoError(t, err)
	require.Len(t, d.sent, 1)
	require.Len(t, d.sent[0].Items, 1)
	assert.True(t, d.sent[0].Items[0].Command)
	assert.True(t, d.sent[0].Items[0].Last)
}
