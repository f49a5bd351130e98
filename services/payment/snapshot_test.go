package payment

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSuccessPayloadRoundTrip(t *testing.T) {
	snapshot := SuccessSnapshot{
		ReferenceNo: "ref-1",
		FirstName:   "Aisha",
		Lines: []SnapshotLine{
			{ProgramName: "Goat Share", AmountInPence: 7000},
			{ProgramName: "Water Well", AmountInPence: 15000},
		},
	}

	payload, err := EncodeSuccessPayload(snapshot)
	assert.NoError(t, err)
	assert.NotEmpty(t, payload)

	got, err := DecodeSuccessPayload(payload)
	assert.NoError(t, err)
	assert.Equal(t, snapshot, got)
}

func TestSuccessPayloadRejectsGarbage(t *testing.T) {
	for _, payload := range []string{"", "not-a-payload", "YWJjZGVm"} {
		_, err := DecodeSuccessPayload(payload)
		assert.Error(t, err, payload)
	}
}

func TestSuccessPayloadRejectsTampering(t *testing.T) {
	payload, err := EncodeSuccessPayload(SuccessSnapshot{ReferenceNo: "ref-1"})
	assert.NoError(t, err)

	tampered := []byte(payload)
	if tampered[len(tampered)-1] == 'A' {
		tampered[len(tampered)-1] = 'B'
	} else {
		tampered[len(tampered)-1] = 'A'
	}

	_, err = DecodeSuccessPayload(string(tampered))
	assert.Error(t, err)
}
