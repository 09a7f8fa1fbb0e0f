package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRoyaltyMapValidate(t *testing.T) {
	tests := []struct {
		name    string
		royalty RoyaltyMap
		wantErr error
	}{
		{
			name:    "nil map is valid",
			royalty: nil,
		},
		{
			name:    "single recipient",
			royalty: RoyaltyMap{"artist.near": 2000},
		},
		{
			name: "sum exactly at the cap",
			royalty: RoyaltyMap{
				"a.near": 5000,
				"b.near": 5000,
			},
		},
		{
			name: "sum above the cap",
			royalty: RoyaltyMap{
				"a.near": 6000,
				"b.near": 5000,
			},
			wantErr: assert.AnError,
		},
		{
			name: "too many recipients",
			royalty: RoyaltyMap{
				"a": 1, "b": 1, "c": 1, "d": 1, "e": 1, "f": 1, "g": 1,
			},
			wantErr: ErrTooManyRecipients,
		},
		{
			name:    "empty recipient",
			royalty: RoyaltyMap{"": 100},
			wantErr: assert.AnError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.royalty.Validate()
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			if tt.wantErr != assert.AnError {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestTokenClone(t *testing.T) {
	original := Token{
		OwnerID:        "alice.near",
		Approvals:      map[AccountID]uint64{"bob.near": 0},
		NextApprovalID: 1,
		Royalty:        RoyaltyMap{"artist.near": 500},
	}

	clone := original.Clone()
	clone.Approvals["carol.near"] = 1
	clone.Royalty["artist.near"] = 9999

	assert.Len(t, original.Approvals, 1)
	assert.Equal(t, BasisPoints(500), original.Royalty["artist.near"])
	assert.Equal(t, original.OwnerID, clone.OwnerID)
	assert.Equal(t, original.NextApprovalID, clone.NextApprovalID)
}

func TestParseAmount(t *testing.T) {
	v, err := ParseAmount("10000000000000000000")
	require.NoError(t, err)
	assert.Equal(t, "10000000000000000000", v.Dec())

	_, err = ParseAmount("")
	assert.Error(t, err)

	_, err = ParseAmount("12x3")
	assert.Error(t, err)

	_, err = ParseAmount("-5")
	assert.Error(t, err)
}
