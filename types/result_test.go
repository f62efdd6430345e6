package types

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsMustAbort(t *testing.T) {
	tests := []struct {
		name   string
		result Result
		want   bool
	}{
		{"fatal error code", ErrorResult(CodeMustAbort, "model crashed"), true},
		{"other error code", ErrorResult("frame_too_dark", ""), false},
		{"fatal code on feedback kind", FeedbackResult(CodeMustAbort, ""), false},
		{"network failure", NetworkFailureResult(errors.New("reset")), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.result.IsMustAbort())
		})
	}
}

func TestResultConstructors(t *testing.T) {
	cal := CalibrationResult(CodeVisibilityValid)
	assert.Equal(t, KindCalibration, cal.Kind)
	assert.Equal(t, CodeVisibilityValid, cal.Code)

	mgmt := ManagementResult("registered", "s1")
	assert.Equal(t, KindManagement, mgmt.Kind)
	assert.Equal(t, "s1", mgmt.SessionID)

	cause := errors.New("connection reset")
	nf := NetworkFailureResult(cause)
	assert.Equal(t, KindNetworkFailure, nf.Kind)
	assert.ErrorIs(t, nf.Cause, cause)

	sum := SummaryResult(&SessionSummary{SessionID: "s1"})
	assert.Equal(t, KindSummary, sum.Kind)
	assert.Equal(t, "s1", sum.Summary.SessionID)
}

func TestKindAndOutcomeStrings(t *testing.T) {
	assert.Equal(t, "calibration", KindCalibration.String())
	assert.Equal(t, "network_failure", KindNetworkFailure.String())
	assert.Equal(t, "unknown(42)", ResultKind(42).String())

	assert.Equal(t, "completed", OutcomeCompleted.String())
	assert.Equal(t, "aborted", OutcomeAborted.String())
}
