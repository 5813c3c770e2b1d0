package dimse

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/mdimse/dimse/commandset"
	"github.com/suyashkumar/dicom"
	"github.com/suyashkumar/dicom/pkg/tag"
)

// NewElement builds a Command Set element for one of the scalar Go
// values the per-message Encode methods hand it: strings become UI/AE/
// LO elements, uint16/int/MessageID become US elements (UL for
// CommandGroupLength). The element is
// constructed directly, with its VR taken from the commandset table:
// the dataset library's dicom.NewElement resolves VRs through its
// Part-6 dictionary, which has no entries for group 0x0000, so routing
// through it fails for every Command Set tag.
func NewElement(t tag.Tag, v interface{}) (*dicom.Element, error) {
	vr := commandset.VROf(t)
	var data interface{}
	switch val := v.(type) {
	case string:
		data = []string{val}
	case []string:
		data = val
	case uint16:
		data = []int{int(val)}
	case int:
		data = []int{val}
	case uint32:
		data = []int{int(val)}
	case []byte:
		// AT payloads (OffendingElement, AttributeIdentifierList) stay
		// opaque bytes; OB keeps the writer on its byte path, and under
		// Implicit VR the raw VR string never reaches the wire.
		vr = "OB"
		data = val
	default:
		return nil, fmt.Errorf("NewElement: unsupported value type %T for tag %s", v, t.String())
	}
	value, err := dicom.NewValue(data)
	if err != nil {
		return nil, fmt.Errorf("NewElement: failed to build value for tag %s: %w", t.String(), err)
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, vr),
		RawValueRepresentation: vr,
		Value:                  value,
	}, nil
}

// DecodeCommandSetElements parses a raw Command Set buffer into
// elements. The Command Set is always Implicit VR Little Endian (spec
// §3) regardless of the negotiated transfer syntax, so the layout is
// fixed -- tag (4 bytes), length (4 bytes), value -- and no
// transfer-syntax inference is needed. The dataset library's Parse
// cannot be used here: it infers the transfer syntax by peeking 100
// bytes, which fails outright for small messages (a C-ECHO Command Set
// is 56 bytes), and its dictionary knows no group-0x0000 tags anyway.
// Unknown tags in group 0x0000 are preserved as opaque bytes and do
// not block decoding (spec §4.1).
func DecodeCommandSetElements(raw []byte) ([]*dicom.Element, error) {
	var elems []*dicom.Element
	r := bytes.NewReader(raw)
	for r.Len() > 0 {
		var group, element uint16
		var length uint32
		if err := binary.Read(r, binary.LittleEndian, &group); err != nil {
			return nil, fmt.Errorf("DecodeCommandSetElements: truncated tag: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &element); err != nil {
			return nil, fmt.Errorf("DecodeCommandSetElements: truncated tag: %w", err)
		}
		if err := binary.Read(r, binary.LittleEndian, &length); err != nil {
			return nil, fmt.Errorf("DecodeCommandSetElements: truncated length for (%04x,%04x): %w", group, element, err)
		}
		if int64(length) > int64(r.Len()) {
			return nil, fmt.Errorf("DecodeCommandSetElements: element (%04x,%04x) declares %d bytes but only %d remain", group, element, length, r.Len())
		}
		val := make([]byte, length)
		if _, err := io.ReadFull(r, val); err != nil {
			return nil, fmt.Errorf("DecodeCommandSetElements: truncated value for (%04x,%04x): %w", group, element, err)
		}
		elem, err := newDecodedElement(tag.Tag{Group: group, Element: element}, val)
		if err != nil {
			return nil, err
		}
		elems = append(elems, elem)
	}
	return elems, nil
}

// newDecodedElement turns one raw Command Set value into an element,
// typed by the commandset VR table. Byte-valued VRs (AT and anything
// unknown) keep their raw bytes.
func newDecodedElement(t tag.Tag, raw []byte) (*dicom.Element, error) {
	vr := commandset.VROf(t)
	var data interface{}
	switch vr {
	case "US":
		vals := make([]int, 0, len(raw)/2)
		for i := 0; i+1 < len(raw); i += 2 {
			vals = append(vals, int(binary.LittleEndian.Uint16(raw[i:i+2])))
		}
		data = vals
	case "UL":
		vals := make([]int, 0, len(raw)/4)
		for i := 0; i+3 < len(raw); i += 4 {
			vals = append(vals, int(binary.LittleEndian.Uint32(raw[i:i+4])))
		}
		data = vals
	case "UI", "AE", "LO":
		// Strip the even-length padding: NUL for UI, trailing spaces
		// for the text VRs.
		data = []string{strings.TrimRight(string(raw), "\x00 ")}
	default:
		vr = "OB"
		data = raw
	}
	value, err := dicom.NewValue(data)
	if err != nil {
		return nil, fmt.Errorf("newDecodedElement: tag %s: %w", t.String(), err)
	}
	return &dicom.Element{
		Tag:                    t,
		ValueRepresentation:    tag.GetVRKind(t, vr),
		RawValueRepresentation: vr,
		ValueLength:            uint32(len(raw)),
		Value:                  value,
	}, nil
}

// EncodeElements writes elems to w in ascending tag order, Implicit VR
// Little Endian, per spec §4.1 ("Elements are written in ascending tag
// order"). CommandGroupLength is not written here -- EncodeMessage
// prepends it once the body length is known.
func EncodeElements(w io.Writer, elems []*dicom.Element) error {
	sorted := make([]*dicom.Element, len(elems))
	copy(sorted, elems)
	sort.Slice(sorted, func(i, j int) bool {
		return tagLess(sorted[i].Tag, sorted[j].Tag)
	})
	writer, err := dicom.NewWriter(w)
	if err != nil {
		return fmt.Errorf("EncodeElements: failed to create writer: %w", err)
	}
	// Command Set is always Implicit VR Little Endian, P3.7 6.3.1.
	writer.SetTransferSyntax(binary.LittleEndian, true)
	for _, elem := range sorted {
		if err := writer.WriteElement(elem); err != nil {
			return fmt.Errorf("EncodeElements: failed to write element %s: %w", elem.Tag.String(), err)
		}
	}
	return nil
}

func tagLess(a, b tag.Tag) bool {
	if a.Group != b.Group {
		return a.Group < b.Group
	}
	return a.Element < b.Element
}
