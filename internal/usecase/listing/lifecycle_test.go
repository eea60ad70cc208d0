package listing

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainListing "wanderhub/internal/domain/listing"
)

func activeListing(ownerID uuid.UUID) *domainListing.Listing {
	return &domainListing.Listing{
		ID:      uuid.New(),
		Title:   "Bike",
		Price:   100,
		OwnerID: ownerID,
	}
}

func pendingListing(ownerID, buyerID uuid.UUID) *domainListing.Listing {
	l := activeListing(ownerID)
	l.PurchaseRequest = &domainListing.PurchaseRequest{
		BuyerID:     buyerID,
		RequestedAt: time.Now(),
	}
	return l
}

func soldListing(ownerID, buyerID uuid.UUID) *domainListing.Listing {
	l := activeListing(ownerID)
	l.IsSold = true
	l.BuyerID = &buyerID
	return l
}

func TestValidateOperation(t *testing.T) {
	owner := uuid.New()
	buyer := uuid.New()

	tests := []struct {
		name    string
		listing *domainListing.Listing
		op      Operation
		wantErr error
	}{
		{"edit active", activeListing(owner), OpEdit, nil},
		{"delete active", activeListing(owner), OpDelete, nil},
		{"buy active", activeListing(owner), OpBuy, nil},
		{"approve active", activeListing(owner), OpApprove, domainListing.ErrNoRequest},
		{"decline active", activeListing(owner), OpDecline, domainListing.ErrNoRequest},

		{"edit pending", pendingListing(owner, buyer), OpEdit, domainListing.ErrRequestPending},
		{"delete pending", pendingListing(owner, buyer), OpDelete, domainListing.ErrRequestPending},
		{"buy pending", pendingListing(owner, buyer), OpBuy, domainListing.ErrRequestPending},
		{"approve pending", pendingListing(owner, buyer), OpApprove, nil},
		{"decline pending", pendingListing(owner, buyer), OpDecline, nil},

		{"edit sold", soldListing(owner, buyer), OpEdit, domainListing.ErrListingSold},
		{"delete sold", soldListing(owner, buyer), OpDelete, domainListing.ErrListingSold},
		{"buy sold", soldListing(owner, buyer), OpBuy, domainListing.ErrListingSold},
		{"approve sold", soldListing(owner, buyer), OpApprove, domainListing.ErrListingSold},
		{"decline sold", soldListing(owner, buyer), OpDecline, domainListing.ErrListingSold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateOperation(tt.listing, tt.op)
			if tt.wantErr == nil {
				assert.NoError(t, err)
			} else {
				assert.ErrorIs(t, err, tt.wantErr)
			}
		})
	}
}

func TestValidateCaller(t *testing.T) {
	owner := uuid.New()
	stranger := uuid.New()
	l := activeListing(owner)

	for _, op := range []Operation{OpEdit, OpDelete, OpApprove, OpDecline} {
		t.Run(string(op)+" by owner", func(t *testing.T) {
			require.NoError(t, ValidateCaller(l, op, owner))
		})
		t.Run(string(op)+" by stranger", func(t *testing.T) {
			assert.ErrorIs(t, ValidateCaller(l, op, stranger), domainListing.ErrNotOwner)
		})
	}

	t.Run("buy by stranger", func(t *testing.T) {
		require.NoError(t, ValidateCaller(l, OpBuy, stranger))
	})
	t.Run("buy by owner", func(t *testing.T) {
		assert.ErrorIs(t, ValidateCaller(l, OpBuy, owner), domainListing.ErrOwnListing)
	})
}

func TestStateDerivation(t *testing.T) {
	owner := uuid.New()
	buyer := uuid.New()

	assert.Equal(t, domainListing.StateActive, activeListing(owner).State())
	assert.Equal(t, domainListing.StateRequestPending, pendingListing(owner, buyer).State())
	assert.Equal(t, domainListing.StateSold, soldListing(owner, buyer).State())
}
