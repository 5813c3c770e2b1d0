package event_test

import (
	"errors"
	"testing"
	"time"

	"github.com/grailbio/go-dicom"
	"github.com/grailbio/go-dicom/dicomtag"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/event"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNotifyFansOutAndSwallowsErrors(t *testing.T) {
	bus := event.NewBus()
	var calls []string
	bus.OnNotify(event.DIMSESent, func(e event.Event) error {
		calls = append(calls, "first")
		return errors.New("handler one failed")
	})
	bus.OnNotify(event.DIMSESent, func(e event.Event) error {
		calls = append(calls, "second")
		return nil
	})

	assert.NotPanics(t, func() {
		bus.Notify(event.New("assoc", event.DIMSESent, time.Now()))
	})
	assert.Equal(t, []string{"first", "second"}, calls)
}

func TestNotifySwallowsPanics(t *testing.T) {
	bus := event.NewBus()
	ran := false
	bus.OnNotify(event.DIMSERecv, func(e event.Event) error {
		panic("handler blew up")
	})
	bus.OnNotify(event.DIMSERecv, func(e event.Event) error {
		ran = true
		return nil
	})
	assert.NotPanics(t, func() {
		bus.Notify(event.New("assoc", event.DIMSERecv, time.Now()))
	})
	assert.True(t, ran, "a panicking handler must not starve later handlers")
}

func TestInterveneSingleHandlerAndNoBinding(t *testing.T) {
	bus := event.NewBus()
	_, err := bus.Intervene(event.New("assoc", event.CEcho, time.Now()))
	assert.ErrorIs(t, err, event.ErrNoHandler)

	bus.OnIntervene(event.CEcho, func(e event.Event) (interface{}, error) {
		return 0x0000, nil
	})
	result, err := bus.Intervene(event.New("assoc", event.CEcho, time.Now()))
	require.NoError(t, err)
	assert.Equal(t, 0x0000, result)
}

func TestIntervenePanicBecomesError(t *testing.T) {
	bus := event.NewBus()
	bus.OnIntervene(event.CStore, func(e event.Event) (interface{}, error) {
		panic("user code")
	})
	_, err := bus.Intervene(event.New("assoc", event.CStore, time.Now()))
	assert.Error(t, err)
}

func TestTagRoles(t *testing.T) {
	assert.False(t, event.DIMSESent.IsIntervention())
	assert.False(t, event.ConnClose.IsIntervention())
	assert.True(t, event.CEcho.IsIntervention())
	assert.True(t, event.NDelete.IsIntervention())
	assert.True(t, event.UserID.IsIntervention())
	assert.Equal(t, "DIMSE_SENT", event.DIMSESent.String())
	assert.Equal(t, "C_FIND", event.CFind.String())
}

// TestLazyPayloadAccessors exercises spec §4.7: the Identifier/DataSet
// helpers decode the raw payload with the context's transfer syntax on
// first access only.
func TestLazyPayloadAccessors(t *testing.T) {
	const implicitLE = "1.2.840.10008.1.2"
	payload, err := datasetcodec.Encode([]*dicom.Element{
		dicom.MustNewElement(dicomtag.PatientID, "Test1101"),
	}, implicitLE)
	require.NoError(t, err)

	e := event.New("assoc", event.CFind, time.Now()).
		With("data", payload).
		With("transferSyntax", implicitLE)

	elems, err := e.Identifier()
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, dicomtag.PatientID, elems[0].Tag)

	// Second access hits the cache and yields the same elements.
	again, err := e.DataSet()
	require.NoError(t, err)
	assert.Equal(t, elems, again)
}

func TestAccessorWithoutPayloadFails(t *testing.T) {
	e := event.New("assoc", event.CStore, time.Now())
	_, err := e.DataSet()
	assert.Error(t, err)

	e = e.With("data", []byte{0x01}) // no transfer syntax attached
	_, err = e.DataSet()
	assert.Error(t, err)
}
