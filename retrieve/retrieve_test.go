package retrieve_test

import (
	"errors"
	"testing"

	"github.com/grailbio/go-dicom"
	"github.com/grailbio/go-dicom/dicomtag"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/dimse"
	"github.com/mdimse/dimse/retrieve"
	"github.com/mdimse/dimse/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type capture struct {
	sent []dimse.Message
	data [][]byte
}

func (c *capture) send(primitive dimse.Message, contextID byte, dataBytes []byte) error {
	c.sent = append(c.sent, primitive)
	c.data = append(c.data, dataBytes)
	return nil
}

type fakeStore struct {
	status  interface{}
	uid     string
	err     error
	sent    int
}

func (f *fakeStore) SendCStore(ds []*dicom.Element, moveOriginatorAET string, moveOriginatorMessageID dimse.MessageID) (interface{}, string, error) {
	f.sent++
	return f.status, f.uid, f.err
}

func yieldsOf(items ...retrieve.Yield) <-chan retrieve.Yield {
	ch := make(chan retrieve.Yield, len(items))
	for _, it := range items {
		ch <- it
	}
	close(ch)
	return ch
}

func TestGetEngineRunAllSucceed(t *testing.T) {
	rec := &capture{}
	store := &fakeStore{status: dimse.Success, uid: "1.2.3"}
	e := &retrieve.GetEngine{Send: rec.send, Store: store, TransferSyntaxUID: "1.2.840.10008.1.2"}

	rq := &dimse.CGetRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 1}
	result := retrieve.GetResult{
		Total: 2,
		Yields: yieldsOf(
			retrieve.Yield{Status: dimse.StatusPending, Dataset: []*dicom.Element{dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3")}},
			retrieve.Yield{Status: dimse.StatusPending, Dataset: []*dicom.Element{dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.4")}},
		),
	}

	require.NoError(t, e.Run(service.Context{ID: 1}, rq, result))
	require.Len(t, rec.sent, 3) // two interim pendings + one final
	final := rec.sent[2].(*dimse.CGetRsp)
	assert.Equal(t, dimse.StatusSuccess, final.Status.Status)
	assert.EqualValues(t, 2, final.NumberOfCompletedSuboperations)
	assert.EqualValues(t, 0, final.NumberOfFailedSuboperations)
	assert.Equal(t, 2, store.sent)
}

func TestGetEngineRunSubStoreFailureTallies(t *testing.T) {
	rec := &capture{}
	store := &fakeStore{err: errors.New("peer refused")}
	e := &retrieve.GetEngine{Send: rec.send, Store: store, TransferSyntaxUID: "1.2.840.10008.1.2"}

	rq := &dimse.CGetRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 1}
	result := retrieve.GetResult{
		Total: 1,
		Yields: yieldsOf(
			retrieve.Yield{Status: dimse.StatusPending, Dataset: []*dicom.Element{dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3")}},
		),
	}

	require.NoError(t, e.Run(service.Context{ID: 1}, rq, result))
	final := rec.sent[len(rec.sent)-1].(*dimse.CGetRsp)
	assert.Equal(t, dimse.WarningSuboperations, final.Status.Status)
	assert.EqualValues(t, 1, final.NumberOfFailedSuboperations)
}

// TestHandleCGetRejectsNegativeTotal exercises the bad-suboperation-count
// status: a handler that reports a negative Total is a programmer error.
func TestHandleCGetRejectsNegativeTotal(t *testing.T) {
	rec := &capture{}
	e := &retrieve.GetEngine{Send: rec.send, TransferSyntaxUID: "1.2.840.10008.1.2"}
	rq := &dimse.CGetRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 1, CommandDataSetType: dimse.CommandDataSetTypeNonNull}

	err := e.HandleCGet(service.Context{ID: 1, TransferSyntaxUID: "1.2.840.10008.1.2"}, rq, nil, func(identifier []*dicom.Element) (interface{}, error) {
		return retrieve.GetResult{Total: -1, Yields: yieldsOf()}, nil
	})
	require.NoError(t, err)
	require.Len(t, rec.sent, 1)
	resp := rec.sent[0].(*dimse.CGetRsp)
	assert.Equal(t, dimse.CGetBadSuboperationCount, resp.Status.Status)
}

// seqStore returns a different status per sub-operation, in order.
type seqStore struct {
	statuses []interface{}
	uids     []string
	sent     int
}

func (s *seqStore) SendCStore(ds []*dicom.Element, moveOriginatorAET string, moveOriginatorMessageID dimse.MessageID) (interface{}, string, error) {
	i := s.sent
	s.sent++
	return s.statuses[i], s.uids[i], nil
}

// TestGetEngineRunOneFailingSubOp drives a two-instance C-GET where
// the first C-STORE sub-op is refused and the second succeeds: the
// final response must be the 0xB000 warning rollup, carry the tallies,
// omit NumberOfRemainingSuboperations, and attach the failed instance
// UID in its Identifier.
func TestGetEngineRunOneFailingSubOp(t *testing.T) {
	rec := &capture{}
	store := &seqStore{
		statuses: []interface{}{dimse.StatusCannotUnderstand, dimse.StatusSuccess},
		uids:     []string{"1.2.3.A", "1.2.3.B"},
	}
	e := &retrieve.GetEngine{Send: rec.send, Store: store, TransferSyntaxUID: "1.2.840.10008.1.2"}

	rq := &dimse.CGetRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 4}
	result := retrieve.GetResult{
		Total: 2,
		Yields: yieldsOf(
			retrieve.Yield{Status: dimse.StatusPending, Dataset: []*dicom.Element{dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3.A")}},
			retrieve.Yield{Status: dimse.StatusPending, Dataset: []*dicom.Element{dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3.B")}},
		),
	}
	require.NoError(t, e.Run(service.Context{ID: 1}, rq, result))

	require.Len(t, rec.sent, 3)
	for i, m := range rec.sent[:2] {
		interim := m.(*dimse.CGetRsp)
		assert.Equal(t, dimse.StatusPending, interim.Status.Status, "response %d", i)
		assert.EqualValues(t, 1-i, interim.NumberOfRemainingSuboperations)
	}
	final := rec.sent[2].(*dimse.CGetRsp)
	assert.Equal(t, dimse.WarningSuboperations, final.Status.Status)
	assert.EqualValues(t, 1, final.NumberOfFailedSuboperations)
	assert.EqualValues(t, 1, final.NumberOfCompletedSuboperations)
	assert.EqualValues(t, 0, final.NumberOfWarningSuboperations)
	assert.EqualValues(t, 0, final.NumberOfRemainingSuboperations)
	assert.True(t, final.HasData(), "the warning rollup carries the failed-UID Identifier")
	require.Len(t, rec.data, 3)
	require.NotEmpty(t, rec.data[2])

	elems, err := datasetcodec.Decode(rec.data[2], "1.2.840.10008.1.2")
	require.NoError(t, err)
	require.Len(t, elems, 1)
	assert.Equal(t, dicomtag.Tag{Group: 0x0008, Element: 0x0058}, elems[0].Tag)
	uid, err := elems[0].GetString()
	require.NoError(t, err)
	assert.Equal(t, "1.2.3.A", uid)
}

type fakeOpener struct {
	store retrieve.StoreSender
	err   error
}

func (f *fakeOpener) Open(localAETitle string, dest retrieve.Destination) (retrieve.StoreSender, error) {
	return f.store, f.err
}

func TestMoveEngineRunUnknownDestination(t *testing.T) {
	rec := &capture{}
	e := &retrieve.MoveEngine{Send: rec.send, Opener: &fakeOpener{}, LocalAETitle: "LOCAL"}
	rq := &dimse.CMoveRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 1}

	require.NoError(t, e.Run(service.Context{ID: 1}, rq, retrieve.MoveResult{}))
	require.Len(t, rec.sent, 1)
	resp := rec.sent[0].(*dimse.CMoveRsp)
	assert.Equal(t, dimse.CMoveMoveDestinationUnknown, resp.Status.Status)
}

// TestMoveEngineRunBadDestinationPort exercises the new port-range
// check: a resolved destination with an invalid port never opens an
// association.
func TestMoveEngineRunBadDestinationPort(t *testing.T) {
	rec := &capture{}
	opener := &fakeOpener{}
	e := &retrieve.MoveEngine{Send: rec.send, Opener: opener, LocalAETitle: "LOCAL"}
	rq := &dimse.CMoveRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 1}

	result := retrieve.MoveResult{Destination: retrieve.Destination{Address: "10.0.0.5", Port: 0}}
	require.NoError(t, e.Run(service.Context{ID: 1}, rq, result))
	require.Len(t, rec.sent, 1)
	resp := rec.sent[0].(*dimse.CMoveRsp)
	assert.Equal(t, dimse.CMoveBadDestination, resp.Status.Status)
}

func TestMoveEngineRunSuccess(t *testing.T) {
	rec := &capture{}
	store := &fakeStore{status: dimse.Success, uid: "1.2.3"}
	opener := &fakeOpener{store: store}
	e := &retrieve.MoveEngine{Send: rec.send, Opener: opener, LocalAETitle: "LOCAL", TransferSyntaxUID: "1.2.840.10008.1.2"}
	rq := &dimse.CMoveRq{AffectedSOPClassUID: "1.2.840.10008.5.1.4.1.2.1.3", MessageID: 1}

	result := retrieve.MoveResult{
		Destination: retrieve.Destination{Address: "10.0.0.5", Port: 104},
		Total:       1,
		Yields: yieldsOf(
			retrieve.Yield{Status: dimse.StatusPending, Dataset: []*dicom.Element{dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3")}},
		),
	}
	require.NoError(t, e.Run(service.Context{ID: 1}, rq, result))
	final := rec.sent[len(rec.sent)-1].(*dimse.CMoveRsp)
	assert.Equal(t, dimse.StatusSuccess, final.Status.Status)
	assert.EqualValues(t, 1, final.NumberOfCompletedSuboperations)
	assert.Equal(t, 1, store.sent)
}
