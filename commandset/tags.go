// Package commandset is the tag table for the DICOM Command Set
// (group 0x0000), as laid out in spec §6 / P3.7 E.1. It is the
// replacement for the commandset package the teacher's dimse files
// import but which was not part of the retrieved snapshot -- the tag
// values and VRs here are taken straight from the standard's Command
// Set table, not invented.
package commandset

import "github.com/suyashkumar/dicom/pkg/tag"

var (
	CommandGroupLength                   = tag.Tag{Group: 0x0000, Element: 0x0000}
	AffectedSOPClassUID                  = tag.Tag{Group: 0x0000, Element: 0x0002}
	RequestedSOPClassUID                 = tag.Tag{Group: 0x0000, Element: 0x0003}
	CommandField                         = tag.Tag{Group: 0x0000, Element: 0x0100}
	MessageID                            = tag.Tag{Group: 0x0000, Element: 0x0110}
	MessageIDBeingRespondedTo            = tag.Tag{Group: 0x0000, Element: 0x0120}
	MoveDestination                      = tag.Tag{Group: 0x0000, Element: 0x0600}
	Priority                             = tag.Tag{Group: 0x0000, Element: 0x0700}
	CommandDataSetType                   = tag.Tag{Group: 0x0000, Element: 0x0800}
	Status                               = tag.Tag{Group: 0x0000, Element: 0x0900}
	OffendingElement                     = tag.Tag{Group: 0x0000, Element: 0x0901}
	ErrorComment                         = tag.Tag{Group: 0x0000, Element: 0x0902}
	AffectedSOPInstanceUID               = tag.Tag{Group: 0x0000, Element: 0x1000}
	RequestedSOPInstanceUID              = tag.Tag{Group: 0x0000, Element: 0x1001}
	EventTypeID                          = tag.Tag{Group: 0x0000, Element: 0x1002}
	AttributeIdentifierList              = tag.Tag{Group: 0x0000, Element: 0x1005}
	ActionTypeID                         = tag.Tag{Group: 0x0000, Element: 0x1008}
	NumberOfRemainingSuboperations       = tag.Tag{Group: 0x0000, Element: 0x1020}
	NumberOfCompletedSuboperations       = tag.Tag{Group: 0x0000, Element: 0x1021}
	NumberOfFailedSuboperations          = tag.Tag{Group: 0x0000, Element: 0x1022}
	NumberOfWarningSuboperations         = tag.Tag{Group: 0x0000, Element: 0x1023}
	MoveOriginatorApplicationEntityTitle = tag.Tag{Group: 0x0000, Element: 0x1030}
	MoveOriginatorMessageID              = tag.Tag{Group: 0x0000, Element: 0x1031}
)

// vrByTag gives each Command Set tag its VR from the P3.7 E.1 table.
// The dataset library's Part-6 dictionary has no entries for group
// 0x0000 (its only hit there is the generic group-length fallback), so
// the codec resolves VRs here instead of through tag.Find.
var vrByTag = map[tag.Tag]string{
	CommandGroupLength:                   "UL",
	AffectedSOPClassUID:                  "UI",
	RequestedSOPClassUID:                 "UI",
	CommandField:                         "US",
	MessageID:                            "US",
	MessageIDBeingRespondedTo:            "US",
	MoveDestination:                      "AE",
	Priority:                             "US",
	CommandDataSetType:                   "US",
	Status:                               "US",
	OffendingElement:                     "AT",
	ErrorComment:                         "LO",
	AffectedSOPInstanceUID:               "UI",
	RequestedSOPInstanceUID:              "UI",
	EventTypeID:                          "US",
	AttributeIdentifierList:              "AT",
	ActionTypeID:                         "US",
	NumberOfRemainingSuboperations:       "US",
	NumberOfCompletedSuboperations:       "US",
	NumberOfFailedSuboperations:          "US",
	NumberOfWarningSuboperations:         "US",
	MoveOriginatorApplicationEntityTitle: "AE",
	MoveOriginatorMessageID:              "US",
}

// VROf returns the VR for a Command Set tag, or "UN" for a tag outside
// the table (unknown group-0x0000 tags are carried as opaque bytes).
func VROf(t tag.Tag) string {
	if vr, ok := vrByTag[t]; ok {
		return vr
	}
	return "UN"
}

// Priority values, P3.7 E.2.
const (
	PriorityLow    uint16 = 2
	PriorityMedium uint16 = 0
	PriorityHigh   uint16 = 1
)

// CommandField values identifying each message type, P3.7 E.1.
const (
	FieldCStoreRq        uint16 = 0x0001
	FieldCStoreRsp       uint16 = 0x8001
	FieldCGetRq          uint16 = 0x0010
	FieldCGetRsp         uint16 = 0x8010
	FieldCFindRq         uint16 = 0x0020
	FieldCFindRsp        uint16 = 0x8020
	FieldCMoveRq         uint16 = 0x0021
	FieldCMoveRsp        uint16 = 0x8021
	FieldCEchoRq         uint16 = 0x0030
	FieldCEchoRsp        uint16 = 0x8030
	FieldCCancelRq       uint16 = 0x0FFF
	FieldNEventReportRq  uint16 = 0x0100
	FieldNEventReportRsp uint16 = 0x8100
	FieldNGetRq          uint16 = 0x0110
	FieldNGetRsp         uint16 = 0x8110
	FieldNSetRq          uint16 = 0x0120
	FieldNSetRsp         uint16 = 0x8120
	FieldNActionRq       uint16 = 0x0130
	FieldNActionRsp      uint16 = 0x8130
	FieldNCreateRq       uint16 = 0x0140
	FieldNCreateRsp      uint16 = 0x8140
	FieldNDeleteRq       uint16 = 0x0150
	FieldNDeleteRsp      uint16 = 0x8150
)

// CommandDataSetType: 0x0101 means no Data Set follows; any other
// value (we always write 1) means one does.
const (
	DataSetTypeNull    uint16 = 0x0101
	DataSetTypeNonNull uint16 = 0x0001
)
