// Package datasetcodec decodes and re-encodes DIMSE Data Set payloads
// -- the opaque byte blobs the core never looks inside (spec §3). The
// core only needs this for three things: turning an Identifier back
// into elements for C-FIND/C-GET/C-MOVE query matching, re-encoding a
// handler's response Identifier in the context's transfer syntax, and
// locating/stripping bulk-data elements for "Composite Instance
// Retrieve Without Bulk Data" (spec §4.6).
//
// It is built on grailbio/go-dicom, the external dataset codec
// collaborator the core's C1/C2 layers otherwise never touch --
// suyashkumar/dicom, used elsewhere in this module, only models the
// Command Set (group 0x0000); decoding an arbitrary Data Set in a
// caller-chosen transfer syntax is what go-dicom/dicomio was written
// for, grounded on yasushi-saito-go-netdicom/serviceprovider.go's
// readElementsInBytes/writeElementsToBytes helpers.
package datasetcodec

import (
	"bytes"
	"fmt"

	"github.com/grailbio/go-dicom"
	"github.com/grailbio/go-dicom/dicomio"
	"github.com/grailbio/go-dicom/dicomtag"
	"github.com/mdimse/dimse/dimseerr"
	"github.com/sirupsen/logrus"
)

// Decode parses a Data Set payload encoded in transferSyntaxUID into
// its elements.
func Decode(payload []byte, transferSyntaxUID string) ([]*dicom.Element, error) {
	decoder := dicomio.NewBytesDecoderWithTransferSyntax(payload, transferSyntaxUID)
	var elems []*dicom.Element
	for !decoder.EOF() {
		elem := dicom.ReadElement(decoder, dicom.ReadOptions{})
		if decoder.Error() != nil {
			return nil, dimseerr.New(dimseerr.PayloadDecode, fmt.Errorf("datasetcodec.Decode: %w", decoder.Error()))
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// Encode serializes elements in transferSyntaxUID. Used to turn a
// C-FIND/C-GET handler's Identifier back into the opaque bytes the
// Data Set PDV carries.
func Encode(elems []*dicom.Element, transferSyntaxUID string) ([]byte, error) {
	encoder := dicomio.NewBytesEncoderWithTransferSyntax(transferSyntaxUID)
	for _, elem := range elems {
		dicom.WriteElement(encoder, elem)
	}
	if encoder.Error() != nil {
		return nil, fmt.Errorf("datasetcodec.Encode: %w", encoder.Error())
	}
	return encoder.Bytes(), nil
}

// bulkDataTags are the elements spec §4.6 names for "Composite
// Instance Retrieve Without Bulk Data": pixel data, float/double pixel
// data, pixel-data provider URL, spectroscopy data, overlay data,
// curve data, audio sample data, encapsulated document.
var bulkDataTags = []dicomtag.Tag{
	{Group: 0x7fe0, Element: 0x0010}, // Pixel Data
	{Group: 0x7fe0, Element: 0x0008}, // Float Pixel Data
	{Group: 0x7fe0, Element: 0x0009}, // Double Float Pixel Data
	{Group: 0x0028, Element: 0x7fe0}, // Pixel Data Provider URL
	{Group: 0x5600, Element: 0x0020}, // Spectroscopy Data
	{Group: 0x6000, Element: 0x3000}, // Overlay Data (repeating group, base case)
	{Group: 0x5000, Element: 0x3000}, // Curve Data (repeating group, base case)
	{Group: 0x5400, Element: 0x100a}, // Audio Sample Data
	{Group: 0x0042, Element: 0x0011}, // Encapsulated Document
}

var waveformSequenceTag = dicomtag.Tag{Group: 0x5400, Element: 0x0100}
var waveformDataTag = dicomtag.Tag{Group: 0x5400, Element: 0x1010}

func isBulkDataTag(t dicomtag.Tag) bool {
	for _, bd := range bulkDataTags {
		if t == bd {
			return true
		}
	}
	// Overlay Data / Curve Data repeat across groups 0x6000-0x60FF
	// and 0x5000-0x50FF respectively; every group in each range matches.
	if t.Element == 0x3000 && (t.Group&0xff00) == 0x6000 {
		return true
	}
	if t.Element == 0x3000 && (t.Group&0xff00) == 0x5000 {
		return true
	}
	return false
}

// StripBulkData removes the bulk-data elements named in spec §4.6 from
// elems (including WaveformData nested inside each WaveformSequence
// item), returning a new slice. Each dropped element is logged at debug
// level.
func StripBulkData(elems []*dicom.Element) []*dicom.Element {
	out := make([]*dicom.Element, 0, len(elems))
	for _, elem := range elems {
		if isBulkDataTag(elem.Tag) {
			logrus.Debugf("stripping bulk-data element %v for retrieve-without-bulk-data", elem.Tag)
			continue
		}
		if elem.Tag == waveformSequenceTag {
			elem = stripWaveformData(elem)
		}
		out = append(out, elem)
	}
	return out
}

// stripWaveformData rebuilds a WaveformSequence with WaveformData
// removed from each item. Sequence values hold their items as
// *dicom.Element entries whose own Value lists the item's elements.
func stripWaveformData(seq *dicom.Element) *dicom.Element {
	newValue := make([]interface{}, 0, len(seq.Value))
	for _, v := range seq.Value {
		item, ok := v.(*dicom.Element)
		if !ok {
			newValue = append(newValue, v)
			continue
		}
		newItemValue := make([]interface{}, 0, len(item.Value))
		for _, iv := range item.Value {
			if elem, ok := iv.(*dicom.Element); ok && elem.Tag == waveformDataTag {
				logrus.Debugf("stripping WaveformData nested in WaveformSequence")
				continue
			}
			newItemValue = append(newItemValue, iv)
		}
		itemClone := *item
		itemClone.Value = newItemValue
		newValue = append(newValue, &itemClone)
	}
	clone := *seq
	clone.Value = newValue
	return &clone
}

// DecodeBytes is a convenience wrapper for callers holding a
// bytes.Reader rather than a []byte.
func DecodeBytes(r *bytes.Reader, transferSyntaxUID string) ([]*dicom.Element, error) {
	buf := make([]byte, r.Len())
	if _, err := r.Read(buf); err != nil {
		return nil, fmt.Errorf("datasetcodec.DecodeBytes: %w", err)
	}
	return Decode(buf, transferSyntaxUID)
}
