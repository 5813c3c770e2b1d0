// Package pdu holds the narrow slice of DICOM Upper Layer PDU structure
// that DIMSE fragmentation needs: the P-DATA-TF PDU and its
// Presentation-Data-Value items. Everything else about the Upper Layer
// (A-ASSOCIATE, A-RELEASE, A-ABORT, the ARTIM timer) belongs to the DUL
// and is out of scope here; see the dul package for the interface the
// core consumes instead of a concrete Upper Layer implementation.
package pdu

import "fmt"

// PDVHeaderBytes is the per-PDV overhead: a 4-byte item length, one
// context-ID byte and one header byte. It does not count towards the
// PDV's own declared length, but it does count against maxPduSize when
// sizing fragments. P3.8 9.3.2.2.1 & 9.3.2.2.2.
const PDVHeaderBytes = 4 + 1 + 1

// PresentationDataValueItem is a single fragment inside a P-DATA-TF
// PDU: either a piece of the Command Set or a piece of the Data Set,
// tagged with the presentation context it belongs to and whether it is
// the final fragment of its kind.
type PresentationDataValueItem struct {
	ContextID byte

	// Command is true for a Command Set fragment, false for a Data Set
	// fragment. Command and Data fragments never share one PDV.
	Command bool
	// Last is true exactly once per kind (command, data) per message.
	Last bool

	Value []byte
}

func (v PresentationDataValueItem) headerByte() byte {
	var h byte
	if v.Command {
		h |= 1
	}
	if v.Last {
		h |= 2
	}
	return h
}

func (v PresentationDataValueItem) String() string {
	kind := "data"
	if v.Command {
		kind = "command"
	}
	return fmt.Sprintf("pdv{context:%d kind:%s last:%v bytes:%d}", v.ContextID, kind, v.Last, len(v.Value))
}

// PDataTf is a P-DATA-TF PDU: one or more PDV items carrying Command
// Set and/or Data Set fragments for a single presentation context.
type PDataTf struct {
	Items []PresentationDataValueItem
}

func (p PDataTf) String() string {
	return fmt.Sprintf("P_DATA_TF{items:%v}", p.Items)
}

// NewCommandPDV builds a command-fragment PDV.
func NewCommandPDV(contextID byte, value []byte, last bool) PresentationDataValueItem {
	return PresentationDataValueItem{ContextID: contextID, Command: true, Last: last, Value: value}
}

// NewDataPDV builds a data-fragment PDV.
func NewDataPDV(contextID byte, value []byte, last bool) PresentationDataValueItem {
	return PresentationDataValueItem{ContextID: contextID, Command: false, Last: last, Value: value}
}
