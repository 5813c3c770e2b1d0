package datasetcodec_test

import (
	"testing"

	"github.com/grailbio/go-dicom"
	"github.com/grailbio/go-dicom/dicomtag"
	"github.com/mdimse/dimse/datasetcodec"
	"github.com/mdimse/dimse/dimseerr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const implicitLE = "1.2.840.10008.1.2"

func TestEncodeDecodeRoundTrip(t *testing.T) {
	in := []*dicom.Element{
		dicom.MustNewElement(dicomtag.PatientID, "Test1101"),
		dicom.MustNewElement(dicomtag.PatientName, "Tube^HeNe"),
	}
	payload, err := datasetcodec.Encode(in, implicitLE)
	require.NoError(t, err)
	require.NotEmpty(t, payload)

	out, err := datasetcodec.Decode(payload, implicitLE)
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, dicomtag.PatientID, out[0].Tag)
	assert.Equal(t, dicomtag.PatientName, out[1].Tag)
}

func TestDecodeCorruptPayloadFails(t *testing.T) {
	_, err := datasetcodec.Decode([]byte{0xFF, 0xFE, 0x01}, implicitLE)
	require.Error(t, err)
	assert.True(t, dimseerr.Is(err, dimseerr.PayloadDecode))
}

func TestStripBulkDataRemovesPixelData(t *testing.T) {
	ds := []*dicom.Element{
		dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3"),
		{Tag: dicomtag.Tag{Group: 0x7fe0, Element: 0x0010}, Value: []interface{}{[]byte{0x00}}},
		{Tag: dicomtag.Tag{Group: 0x6002, Element: 0x3000}, Value: []interface{}{[]byte{0x00}}}, // repeated Overlay Data group
		{Tag: dicomtag.Tag{Group: 0x5004, Element: 0x3000}, Value: []interface{}{[]byte{0x00}}}, // repeated Curve Data group
	}
	out := datasetcodec.StripBulkData(ds)
	require.Len(t, out, 1)
	assert.Equal(t, dicomtag.SOPInstanceUID, out[0].Tag)
}

func TestStripBulkDataDropsNestedWaveformData(t *testing.T) {
	item := &dicom.Element{
		Tag: dicomtag.Item,
		Value: []interface{}{
			&dicom.Element{Tag: dicomtag.Tag{Group: 0x5400, Element: 0x1004}, Value: []interface{}{uint16(16)}}, // Waveform Bits Allocated
			&dicom.Element{Tag: dicomtag.Tag{Group: 0x5400, Element: 0x1010}, Value: []interface{}{[]byte{0x00}}},
		},
	}
	ds := []*dicom.Element{
		{Tag: dicomtag.Tag{Group: 0x5400, Element: 0x0100}, Value: []interface{}{item}},
	}
	out := datasetcodec.StripBulkData(ds)
	require.Len(t, out, 1)
	seqItem, ok := out[0].Value[0].(*dicom.Element)
	require.True(t, ok)
	require.Len(t, seqItem.Value, 1, "WaveformData must be stripped from the sequence item")
	kept, ok := seqItem.Value[0].(*dicom.Element)
	require.True(t, ok)
	assert.Equal(t, dicomtag.Tag{Group: 0x5400, Element: 0x1004}, kept.Tag)
}

func TestStripBulkDataLeavesOrdinaryElements(t *testing.T) {
	ds := []*dicom.Element{
		dicom.MustNewElement(dicomtag.PatientID, "Test1101"),
		dicom.MustNewElement(dicomtag.SOPInstanceUID, "1.2.3"),
	}
	out := datasetcodec.StripBulkData(ds)
	assert.Equal(t, ds, out)
}
