package dimse_test

import (
	"testing"

	"github.com/mdimse/dimse/dimse"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestMessageIDRange exercises spec §8 invariant 5: an int field
// outside its allowed range raises a range-error.
func TestMessageIDRange(t *testing.T) {
	_, err := dimse.ValidateMessageID(-1)
	require.Error(t, err)
	var rangeErr *dimse.RangeError
	assert.ErrorAs(t, err, &rangeErr)

	_, err = dimse.ValidateMessageID(65536)
	require.Error(t, err)

	id, err := dimse.ValidateMessageID(65535)
	require.NoError(t, err)
	assert.EqualValues(t, 65535, id)
}

func TestPriorityRange(t *testing.T) {
	assert.NoError(t, dimse.ValidatePriority(0))
	assert.NoError(t, dimse.ValidatePriority(1))
	assert.NoError(t, dimse.ValidatePriority(2))
	assert.Error(t, dimse.ValidatePriority(3))
}

// TestStrictUIDConformance exercises spec §3: under strict
// conformance, a malformed UID raises a value-error; by default the
// same UID is accepted untouched.
func TestStrictUIDConformance(t *testing.T) {
	lenient := dimse.Config{}
	uid, err := dimse.ValidateUID(lenient, "AffectedSOPClassUID", "not-a-uid!")
	require.NoError(t, err)
	assert.Equal(t, "not-a-uid!", uid)

	strict := dimse.Config{EnforceUIDConformance: true}
	_, err = dimse.ValidateUID(strict, "AffectedSOPClassUID", "not-a-uid!")
	require.Error(t, err)
	var valueErr *dimse.ValueError
	assert.ErrorAs(t, err, &valueErr)

	uid, err = dimse.ValidateUID(strict, "AffectedSOPClassUID", "1.2.840.10008.1.1")
	require.NoError(t, err)
	assert.Equal(t, "1.2.840.10008.1.1", uid)
}

func TestUIDTooLong(t *testing.T) {
	longUID := "1.2.3.4.5.6.7.8.9.10.11.12.13.14.15.16.17.18.19.20.21.22.23.24.25.26.27.28"
	_, err := dimse.ValidateUID(dimse.Config{}, "AffectedSOPClassUID", longUID)
	require.Error(t, err)
}

// TestAETitlePadding exercises spec §3/§9: long-form AE titles are
// right-padded to 16 bytes; short-form ones are trimmed and kept
// short; whitespace-only input becomes unset.
func TestAETitlePadding(t *testing.T) {
	long := dimse.Config{}
	aet, err := dimse.ValidateAETitle(long, "MoveDestination", "REMOTE")
	require.NoError(t, err)
	assert.Len(t, aet, 16)
	assert.Equal(t, "REMOTE          ", aet)

	short := dimse.Config{UseShortDIMSEAET: true}
	aet, err = dimse.ValidateAETitle(short, "MoveDestination", "REMOTE")
	require.NoError(t, err)
	assert.Equal(t, "REMOTE", aet)

	aet, err = dimse.ValidateAETitle(long, "MoveDestination", "   ")
	require.NoError(t, err)
	assert.Equal(t, "", aet)
}

func TestNewCEchoRqValidation(t *testing.T) {
	_, err := dimse.NewCEchoRq(dimse.Config{}, -1, "1.2.840.10008.1.1")
	assert.Error(t, err)

	rq, err := dimse.NewCEchoRq(dimse.Config{}, 7, "1.2.840.10008.1.1")
	require.NoError(t, err)
	assert.True(t, rq.IsValidRequest())
}

func TestNewCMoveRqRequiresDestination(t *testing.T) {
	_, err := dimse.NewCMoveRq(dimse.Config{}, 1, "1.2.840.10008.5.1.4.1.2.1.1", 0, "")
	assert.Error(t, err)

	rq, err := dimse.NewCMoveRq(dimse.Config{}, 1, "1.2.840.10008.5.1.4.1.2.1.1", 0, "REMOTE")
	require.NoError(t, err)
	assert.True(t, rq.IsValidRequest())
}

func TestIsValidRequestCatchesMissingFields(t *testing.T) {
	rq := &dimse.CStoreRq{}
	assert.False(t, rq.IsValidRequest())
}
