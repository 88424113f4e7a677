package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "matricula/pkg/domain-errors"
)

func TestFormatApplicantNumber(t *testing.T) {
	t.Run("seventh allocation of 2025 semester 1", func(t *testing.T) {
		n, err := FormatApplicantNumber(Period{Year: 2025, SemesterCode: "1"}, 7)
		require.NoError(t, err)
		assert.Equal(t, ApplicantNumber("2025100007"), n)
	})

	t.Run("sequence is zero padded to five digits", func(t *testing.T) {
		n, err := FormatApplicantNumber(Period{Year: 2024, SemesterCode: "2"}, 12345)
		require.NoError(t, err)
		assert.Equal(t, "2024212345", n.String())
	})

	t.Run("rejects sequence zero", func(t *testing.T) {
		_, err := FormatApplicantNumber(Period{Year: 2025, SemesterCode: "1"}, 0)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})

	t.Run("rejects sequence overflow", func(t *testing.T) {
		_, err := FormatApplicantNumber(Period{Year: 2025, SemesterCode: "1"}, 100000)
		require.Error(t, err)
	})

	t.Run("rejects malformed semester code", func(t *testing.T) {
		_, err := FormatApplicantNumber(Period{Year: 2025, SemesterCode: "x"}, 1)
		require.Error(t, err)
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestParseApplicantNumber(t *testing.T) {
	t.Run("round trips components", func(t *testing.T) {
		n, err := ParseApplicantNumber("2025100007")
		require.NoError(t, err)
		assert.Equal(t, 2025, n.Year())
		assert.Equal(t, "1", n.SemesterCode())
		assert.Equal(t, 7, n.Sequence())
		assert.Equal(t, Period{Year: 2025, SemesterCode: "1"}, n.Period())
	})

	t.Run("rejects empty", func(t *testing.T) {
		_, err := ParseApplicantNumber("")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects wrong length", func(t *testing.T) {
		_, err := ParseApplicantNumber("20251007")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})

	t.Run("rejects non numeric", func(t *testing.T) {
		_, err := ParseApplicantNumber("20251000a7")
		assert.True(t, dErrors.HasCode(err, dErrors.CodeInvalidInput))
	})
}

func TestPeriodPrefix(t *testing.T) {
	assert.Equal(t, "20251", Period{Year: 2025, SemesterCode: "1"}.Prefix())
}
