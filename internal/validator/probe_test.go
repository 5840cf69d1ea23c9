package validator

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestValidateProtocolFrameAcceptsKnownVerbs(t *testing.T) {
	for _, verb := range []string{"EVENT", "EOSE", "NOTICE", "OK", "AUTH", "CLOSED"} {
		assert.NoError(t, validateProtocolFrame([]byte(`["`+verb+`","sub1"]`)))
	}
}

func TestValidateProtocolFrameRejectsUnknownVerb(t *testing.T) {
	assert.Error(t, validateProtocolFrame([]byte(`["GARBAGE"]`)))
}

func TestValidateProtocolFrameRejectsNonArray(t *testing.T) {
	assert.Error(t, validateProtocolFrame([]byte(`{"not":"an array"}`)))
}

func TestValidateProtocolFrameRejectsEmptyArray(t *testing.T) {
	assert.Error(t, validateProtocolFrame([]byte(`[]`)))
}
