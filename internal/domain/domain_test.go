package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, ResourceType("mamba"), NormalizeType("  Mamba "))
	assert.True(t, ResourceType("tabor").Valid())
	assert.False(t, ResourceType("two words").Valid())
	assert.False(t, ResourceType("").Valid())
}

func TestParseVerdict(t *testing.T) {
	t.Parallel()

	tests := []struct {
		raw  string
		want Verdict
	}{
		{raw: "good", want: VerdictGood},
		{raw: " BROKEN ", want: VerdictBad},
		{raw: "working", want: VerdictWorking},
		{raw: "banned", want: VerdictBlocked},
		{raw: "error", want: VerdictError},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.raw, func(t *testing.T) {
			t.Parallel()

			got, err := ParseVerdict(tc.raw)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}

	_, err := ParseVerdict("meh")
	require.ErrorIs(t, err, ErrInvalidVerdict)
	assert.True(t, IsRejection(err))
}

func TestVerdictMapsToStateAndAction(t *testing.T) {
	assert.Equal(t, ReceiptBlocked, VerdictBlocked.ReceiptState())
	assert.Equal(t, ActionStatusBad, VerdictBad.Action())
	assert.Equal(t, ActionStatusWorking, VerdictWorking.Action())
}

func TestReceiptStateClassification(t *testing.T) {
	assert.True(t, ReceiptNone.Unmarked())
	assert.True(t, ReceiptNew.Unmarked())
	assert.False(t, ReceiptGood.Unmarked())
	assert.True(t, ReceiptBad.Defective())
	assert.True(t, ReceiptError.Defective())
	assert.False(t, ReceiptUsed.Defective())
}

func TestCloseAt(t *testing.T) {
	issued := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	now := issued.Add(95 * time.Minute)

	end, minutes := CloseAt(issued, 60, now)
	assert.Equal(t, issued.Add(time.Hour), end)
	assert.Equal(t, 60, minutes)

	end, minutes = CloseAt(issued, LifetimeUntilBlocked, now)
	assert.Equal(t, now, end)
	assert.Equal(t, 95, minutes)

	end, minutes = CloseAt(issued, 0, now)
	assert.Equal(t, now, end)
	assert.Equal(t, 95, minutes)

	end, minutes = CloseAt(issued, 1<<40, now)
	assert.Equal(t, MaxLifetimeMinutes, minutes)
	assert.True(t, end.After(issued))
	assert.Equal(t, time.Duration(MaxLifetimeMinutes)*time.Minute, end.Sub(issued))
}

func TestValidateLifetime(t *testing.T) {
	require.NoError(t, ValidateLifetime(-1))
	require.NoError(t, ValidateLifetime(0))
	require.NoError(t, ValidateLifetime(1440))
	require.ErrorIs(t, ValidateLifetime(-2), ErrInvalidLifetime)
	require.NoError(t, ValidateLifetime(MaxLifetimeMinutes))
	require.ErrorIs(t, ValidateLifetime(MaxLifetimeMinutes+1), ErrInvalidLifetime)
	require.ErrorIs(t, ValidateLifetime(1<<40), ErrInvalidLifetime)
}

func TestRoleCapabilities(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleManager.Can(CapabilityIssue))
	assert.False(t, RoleManager.Can(CapabilityIngest))
	assert.True(t, RoleAdmin.Can(CapabilityIngest))
	assert.False(t, RoleAdmin.Can(CapabilityImport))
	assert.True(t, RoleOwner.Can(CapabilitySweep))
	assert.False(t, RoleNone.Can(CapabilityIssue))

	role, ok := ParseRole(" Admin ")
	require.True(t, ok)
	assert.Equal(t, RoleAdmin, role)
	_, ok = ParseRole("intern")
	assert.False(t, ok)
}

func TestActorRequire(t *testing.T) {
	require.NoError(t, Actor{ID: 1, Role: RoleOwner}.Require(CapabilityImport))

	err := Actor{ID: 2, Role: RoleManager}.Require(CapabilityReport)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "manager role cannot report")

	err = Actor{ID: 3}.Require(CapabilityIssue)
	require.ErrorIs(t, err, ErrForbidden)
	assert.Contains(t, err.Error(), "not registered")
}

func TestIsRetryable(t *testing.T) {
	assert.False(t, IsRetryable(nil))
	assert.False(t, IsRetryable(Reject(ErrNotOwner, "nope")))
	assert.True(t, IsRetryable(ErrAllocationConflict))
}

func TestDayWindow(t *testing.T) {
	day := time.Date(2026, 3, 1, 17, 45, 0, 0, time.UTC)
	window := DayWindow(day)

	assert.Equal(t, time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC), window.From)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), window.To)
}

func TestPurchaseTotalsAveragePrice(t *testing.T) {
	assert.True(t, PurchaseTotals{}.AveragePrice().IsZero())
}
