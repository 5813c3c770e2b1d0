package service

// DICOM SOP Class UID listing and the mapping from SOP Class UID to
// the service class that serves it. Translated from sop_class.py in
// pynetdicom3; see also https://www.dicomlibrary.com/dicom/sop/.

// Kind names the service class a SOP Class UID belongs to, which
// decides the request primitive the dispatcher expects for it and
// whether multi-response streaming applies.
type Kind int

const (
	KindUnknown Kind = iota
	// KindVerification serves C-ECHO.
	KindVerification
	// KindStorage serves C-STORE.
	KindStorage
	// KindQueryRetrieveFind serves C-FIND.
	KindQueryRetrieveFind
	// KindQueryRetrieveGet serves C-GET.
	KindQueryRetrieveGet
	// KindQueryRetrieveMove serves C-MOVE.
	KindQueryRetrieveMove
	// KindNormalized serves the N-* operations.
	KindNormalized
)

func (k Kind) String() string {
	switch k {
	case KindVerification:
		return "Verification"
	case KindStorage:
		return "Storage"
	case KindQueryRetrieveFind:
		return "QueryRetrieveFind"
	case KindQueryRetrieveGet:
		return "QueryRetrieveGet"
	case KindQueryRetrieveMove:
		return "QueryRetrieveMove"
	case KindNormalized:
		return "Normalized"
	default:
		return "Unknown"
	}
}

// Well-known SOP Class UIDs.
const (
	VerificationSOPClassUID = "1.2.840.10008.1.1"

	PatientRootQRFindUID    = "1.2.840.10008.5.1.4.1.2.1.1"
	PatientRootQRMoveUID    = "1.2.840.10008.5.1.4.1.2.1.2"
	PatientRootQRGetUID     = "1.2.840.10008.5.1.4.1.2.1.3"
	StudyRootQRFindUID      = "1.2.840.10008.5.1.4.1.2.2.1"
	StudyRootQRMoveUID      = "1.2.840.10008.5.1.4.1.2.2.2"
	StudyRootQRGetUID       = "1.2.840.10008.5.1.4.1.2.2.3"
	PatientStudyOnlyFindUID = "1.2.840.10008.5.1.4.1.2.3.1"
	PatientStudyOnlyMoveUID = "1.2.840.10008.5.1.4.1.2.3.2"
	PatientStudyOnlyGetUID  = "1.2.840.10008.5.1.4.1.2.3.3"
	ModalityWorklistFindUID = "1.2.840.10008.5.1.4.31"

	// CompositeInstanceRetrieveWithoutBulkDataGetUID triggers the
	// bulk-data stripping pass in the retrieve engine.
	CompositeInstanceRetrieveWithoutBulkDataGetUID = "1.2.840.10008.5.1.4.1.2.5.3"

	ModalityPerformedProcedureStepUID = "1.2.840.10008.3.1.2.3.3"
	StorageCommitmentPushModelUID     = "1.2.840.10008.1.20.1"
	BasicFilmSessionUID               = "1.2.840.10008.5.1.1.1"
	BasicFilmBoxUID                   = "1.2.840.10008.5.1.1.2"
	BasicGrayscaleImageBoxUID         = "1.2.840.10008.5.1.1.4"
	PrinterUID                        = "1.2.840.10008.5.1.1.16"
)

// storageClassUIDs is the composite Storage service family. Not
// exhaustive across every retired class in the standard, but covers
// the image, waveform, presentation-state, SR and document classes a
// working archive negotiates.
var storageClassUIDs = []string{
	"1.2.840.10008.5.1.4.1.1.1",       // Computed Radiography Image Storage
	"1.2.840.10008.5.1.4.1.1.1.1",     // Digital X-Ray Image Storage - Presentation
	"1.2.840.10008.5.1.4.1.1.1.2",     // Digital Mammography X-Ray - Presentation
	"1.2.840.10008.5.1.4.1.1.1.2.1",   // Digital Mammography X-Ray - Processing
	"1.2.840.10008.5.1.4.1.1.1.3",     // Digital Intra-Oral X-Ray - Presentation
	"1.2.840.10008.5.1.4.1.1.2",       // CT Image Storage
	"1.2.840.10008.5.1.4.1.1.2.1",     // Enhanced CT Image Storage
	"1.2.840.10008.5.1.4.1.1.2.2",     // Legacy Converted Enhanced CT Image Storage
	"1.2.840.10008.5.1.4.1.1.3.1",     // Ultrasound Multi-frame Image Storage
	"1.2.840.10008.5.1.4.1.1.4",       // MR Image Storage
	"1.2.840.10008.5.1.4.1.1.4.1",     // Enhanced MR Image Storage
	"1.2.840.10008.5.1.4.1.1.4.2",     // MR Spectroscopy Storage
	"1.2.840.10008.5.1.4.1.1.4.3",     // Enhanced MR Color Image Storage
	"1.2.840.10008.5.1.4.1.1.6.1",     // Ultrasound Image Storage
	"1.2.840.10008.5.1.4.1.1.7",       // Secondary Capture Image Storage
	"1.2.840.10008.5.1.4.1.1.7.1",     // Multi-frame Single Bit SC Image Storage
	"1.2.840.10008.5.1.4.1.1.7.2",     // Multi-frame Grayscale Byte SC Image Storage
	"1.2.840.10008.5.1.4.1.1.7.3",     // Multi-frame Grayscale Word SC Image Storage
	"1.2.840.10008.5.1.4.1.1.7.4",     // Multi-frame True Color SC Image Storage
	"1.2.840.10008.5.1.4.1.1.9.1.1",   // 12-lead ECG Waveform Storage
	"1.2.840.10008.5.1.4.1.1.9.1.2",   // General ECG Waveform Storage
	"1.2.840.10008.5.1.4.1.1.9.4.1",   // Basic Voice Audio Waveform Storage
	"1.2.840.10008.5.1.4.1.1.11.1",    // Grayscale Softcopy Presentation State Storage
	"1.2.840.10008.5.1.4.1.1.12.1",    // X-Ray Angiographic Image Storage
	"1.2.840.10008.5.1.4.1.1.12.2",    // X-Ray Radiofluoroscopic Image Storage
	"1.2.840.10008.5.1.4.1.1.20",      // Nuclear Medicine Image Storage
	"1.2.840.10008.5.1.4.1.1.66",      // Raw Data Storage
	"1.2.840.10008.5.1.4.1.1.66.4",    // Segmentation Storage
	"1.2.840.10008.5.1.4.1.1.77.1.1",  // VL Endoscopic Image Storage
	"1.2.840.10008.5.1.4.1.1.77.1.2",  // VL Microscopic Image Storage
	"1.2.840.10008.5.1.4.1.1.77.1.4",  // VL Photographic Image Storage
	"1.2.840.10008.5.1.4.1.1.88.11",   // Basic Text SR Storage
	"1.2.840.10008.5.1.4.1.1.88.22",   // Enhanced SR Storage
	"1.2.840.10008.5.1.4.1.1.88.33",   // Comprehensive SR Storage
	"1.2.840.10008.5.1.4.1.1.104.1",   // Encapsulated PDF Storage
	"1.2.840.10008.5.1.4.1.1.128",     // PET Image Storage
	"1.2.840.10008.5.1.4.1.1.481.1",   // RT Image Storage
	"1.2.840.10008.5.1.4.1.1.481.2",   // RT Dose Storage
	"1.2.840.10008.5.1.4.1.1.481.3",   // RT Structure Set Storage
	"1.2.840.10008.5.1.4.1.1.481.5",   // RT Plan Storage
}

var kindBySOPClassUID = buildKindTable()

func buildKindTable() map[string]Kind {
	m := map[string]Kind{
		VerificationSOPClassUID: KindVerification,

		PatientRootQRFindUID:    KindQueryRetrieveFind,
		StudyRootQRFindUID:      KindQueryRetrieveFind,
		PatientStudyOnlyFindUID: KindQueryRetrieveFind,
		ModalityWorklistFindUID: KindQueryRetrieveFind,

		PatientRootQRGetUID:    KindQueryRetrieveGet,
		StudyRootQRGetUID:      KindQueryRetrieveGet,
		PatientStudyOnlyGetUID: KindQueryRetrieveGet,

		CompositeInstanceRetrieveWithoutBulkDataGetUID: KindQueryRetrieveGet,

		PatientRootQRMoveUID:    KindQueryRetrieveMove,
		StudyRootQRMoveUID:      KindQueryRetrieveMove,
		PatientStudyOnlyMoveUID: KindQueryRetrieveMove,

		ModalityPerformedProcedureStepUID: KindNormalized,
		StorageCommitmentPushModelUID:     KindNormalized,
		BasicFilmSessionUID:               KindNormalized,
		BasicFilmBoxUID:                   KindNormalized,
		BasicGrayscaleImageBoxUID:         KindNormalized,
		PrinterUID:                        KindNormalized,
	}
	for _, uid := range storageClassUIDs {
		m[uid] = KindStorage
	}
	return m
}

// KindOf maps a SOP Class UID to its service class. KindUnknown means
// the peer negotiated a context this implementation cannot serve.
func KindOf(sopClassUID string) Kind { return kindBySOPClassUID[sopClassUID] }

// IsRetrieveWithoutBulkData reports whether a C-GET abstract syntax
// selects the "Composite Instance Retrieve Without Bulk Data" service,
// which strips bulk-data elements from each sub-operation's dataset.
func IsRetrieveWithoutBulkData(sopClassUID string) bool {
	return sopClassUID == CompositeInstanceRetrieveWithoutBulkDataGetUID
}
