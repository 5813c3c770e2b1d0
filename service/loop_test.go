package service_test

import (
	"testing"
	"time"

	"github.com/grailbio/go-dicom"
	"github.com/grailbio/go-dicom/dicomtag"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/dimse"
	"github.com/mdimse/dimse/dul"
	"github.com/mdimse/dimse/event"
	"github.com/mdimse/dimse/pdu"
	"github.com/mdimse/dimse/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const implicitLE = "1.2.840.10008.1.2"

type nullDUL struct{}

func (nullDUL) SendPDU(p *pdu.PDataTf) error { return nil }
func (nullDUL) PushEvent(evt dul.Event)      {}
func (nullDUL) IsAlive() bool                { return true }

// feed replays a primitive through the provider's inbound path.
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

// TestServeCancelDuringCFind exercises the end-to-end C-CANCEL flow:
// the peer sends a C-FIND-RQ then a C-CANCEL-RQ for the same message
// ID; the cancel bypasses the message queue, the handler observes it
// via IsCancelled, and the dispatcher emits exactly one response with
// the Cancel status.
func TestServeCancelDuringCFind(t *testing.T) {
	bus := event.NewBus()
	provider := dimse.NewProvider(nullDUL{}, bus, dimse.Config{}, 16382, 30*time.Millisecond)
	rec := &capture{}
	d := &service.Dispatcher{
		Registry:    service.NewRegistry(),
		Bus:         bus,
		Association: "test-assoc",
		Send:        rec.send,
	}

	identifier, err := datasetcodec.Encode([]*dicom.Element{
		dicom.MustNewElement(dicomtag.QueryRetrieveLevel, "PATIENT"),
		dicom.MustNewElement(dicomtag.PatientName, "*"),
	}, implicitLE)
	require.NoError(t, err)

	feed(t, provider, &dimse.CFindRq{
		AffectedSOPClassUID: service.PatientRootQRFindUID,
		MessageID:           42,
		CommandDataSetType:  dimse.CommandDataSetTypeNonNull,
	}, 1, identifier)
	feed(t, provider, &dimse.CCancelRq{
		MessageIDBeingRespondedTo: 42,
		CommandDataSetType:        dimse.CommandDataSetTypeNull,
	}, 1, nil)

	bus.OnIntervene(event.CFind, func(e event.Event) (interface{}, error) {
		results := make(chan service.FindYield, 1)
		require.True(t, provider.IsCancelled(42), "the cancel must be visible before the first yield")
		results <- service.FindYield{Status: dimse.StatusCancel}
		close(results)
		return (<-chan service.FindYield)(results), nil
	})

	d.Serve(provider, map[byte]service.Context{
		1: {ID: 1, AbstractSyntaxUID: service.PatientRootQRFindUID, TransferSyntaxUID: implicitLE},
	}, func(err error) { t.Fatalf("unexpected abort: %v", err) })

	require.Len(t, rec.sent, 1)
	resp := rec.sent[0].(*dimse.CFindRsp)
	assert.Equal(t, dimse.StatusCancel, resp.Status.Status)
	assert.EqualValues(t, 42, resp.MessageIDBeingRespondedTo)
}

// TestServeAbortsOnUnservableSOPClass exercises spec §4.5 step 2: a
// request for a SOP class outside the static service-class table
// aborts the association instead of producing a DIMSE response.
func TestServeAbortsOnUnservableSOPClass(t *testing.T) {
	bus := event.NewBus()
	provider := dimse.NewProvider(nullDUL{}, bus, dimse.Config{}, 16382, 30*time.Millisecond)
	rec := &capture{}
	d := &service.Dispatcher{Registry: service.NewRegistry(), Bus: bus, Association: "test-assoc", Send: rec.send}

	feed(t, provider, &dimse.CEchoRq{
		AffectedSOPClassUID: "1.2.3.999",
		MessageID:           1,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}, 1, nil)

	var aborted error
	d.Serve(provider, map[byte]service.Context{
		1: {ID: 1, AbstractSyntaxUID: "1.2.3.999", TransferSyntaxUID: implicitLE},
	}, func(err error) { aborted = err })

	assert.Error(t, aborted)
	assert.Empty(t, rec.sent)
}

func TestServeRoutesEchoAndReturnsOnTimeout(t *testing.T) {
	bus := event.NewBus()
	provider := dimse.NewProvider(nullDUL{}, bus, dimse.Config{}, 16382, 20*time.Millisecond)
	rec := &capture{}
	d := &service.Dispatcher{Registry: service.NewRegistry(), Bus: bus, Association: "test-assoc", Send: rec.send}
	bus.OnIntervene(event.CEcho, func(e event.Event) (interface{}, error) {
		return dimse.Success, nil
	})

	feed(t, provider, &dimse.CEchoRq{
		AffectedSOPClassUID: service.VerificationSOPClassUID,
		MessageID:           3,
		CommandDataSetType:  dimse.CommandDataSetTypeNull,
	}, 1, nil)

	done := make(chan struct{})
	go func() {
		d.Serve(provider, map[byte]service.Context{
			1: {ID: 1, AbstractSyntaxUID: service.VerificationSOPClassUID, TransferSyntaxUID: implicitLE},
		}, func(err error) { t.Errorf("unexpected abort: %v", err) })
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Serve did not return after the DIMSE timeout elapsed")
	}
	require.Len(t, rec.sent, 1)
	resp := rec.sent[0].(*dimse.CEchoRsp)
	assert.Equal(t, dimse.StatusSuccess, resp.Status.Status)
	assert.EqualValues(t, 3, resp.MessageIDBeingRespondedTo)
}

func TestKindOfTable(t *testing.T) {
	assert.Equal(t, service.KindVerification, service.KindOf(service.VerificationSOPClassUID))
	assert.Equal(t, service.KindStorage, service.KindOf("1.2.840.10008.5.1.4.1.1.2"))
	assert.Equal(t, service.KindQueryRetrieveFind, service.KindOf(service.PatientRootQRFindUID))
	assert.Equal(t, service.KindQueryRetrieveGet, service.KindOf(service.StudyRootQRGetUID))
	assert.Equal(t, service.KindQueryRetrieveMove, service.KindOf(service.StudyRootQRMoveUID))
	assert.Equal(t, service.KindNormalized, service.KindOf(service.ModalityPerformedProcedureStepUID))
	assert.Equal(t, service.KindUnknown, service.KindOf("1.2.3.999"))
	assert.True(t, service.IsRetrieveWithoutBulkData(service.CompositeInstanceRetrieveWithoutBulkDataGetUID))
	assert.False(t, service.IsRetrieveWithoutBulkData(service.PatientRootQRGetUID))
}
