package models

import (
	"encoding/json"
	"testing"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decimalPtr(s string) *decimal.Decimal {
	d := decimal.RequireFromString(s)
	return &d
}

func timePtr(t time.Time) *time.Time {
	return &t
}

func stringPtr(s string) *string {
	return &s
}

func validInput(proposalType string) CreateProposalInput {
	in := CreateProposalInput{
		Type:        proposalType,
		Title:       "Mountain bike",
		Description: "Hardly used, great condition",
		ListingID:   42,
		ReceiverID:  uuid.NewString(),
		Message:     "Interested?",
	}
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	switch ProposalType(proposalType) {
	case ProposalTypeRental:
		in.RentPerDay = decimalPtr("12.50")
		in.StartDate = timePtr(start)
		in.EndDate = timePtr(start.AddDate(0, 0, 4))
	case ProposalTypeSale:
		in.Price = decimalPtr("199.99")
	case ProposalTypeSwap:
		in.SwapWith = stringPtr("Road bike")
	}
	return in
}

func fieldErrors(t *testing.T, err error) validation.Errors {
	t.Helper()
	require.Error(t, err)
	errs, ok := err.(validation.Errors)
	require.True(t, ok, "expected validation.Errors, got %T", err)
	return errs
}

func TestCreateProposalInputValidate(t *testing.T) {
	t.Run("each variant accepts its own fields", func(t *testing.T) {
		for _, proposalType := range []string{"rental", "sale", "swap", "giveaway"} {
			assert.NoError(t, validInput(proposalType).Validate(), "type %s", proposalType)
		}
	})

	t.Run("unknown type is rejected on proposal_type", func(t *testing.T) {
		in := validInput("sale")
		in.Type = "loan"
		errs := fieldErrors(t, in.Validate())
		assert.Contains(t, errs, "proposal_type")
	})

	t.Run("missing variant fields are reported per field", func(t *testing.T) {
		tests := []struct {
			proposalType string
			clear        func(*CreateProposalInput)
			field        string
		}{
			{"rental", func(in *CreateProposalInput) { in.RentPerDay = nil }, "rent_per_day"},
			{"rental", func(in *CreateProposalInput) { in.StartDate = nil }, "start_date"},
			{"rental", func(in *CreateProposalInput) { in.EndDate = nil }, "end_date"},
			{"sale", func(in *CreateProposalInput) { in.Price = nil }, "offered_price"},
			{"swap", func(in *CreateProposalInput) { in.SwapWith = nil }, "swap_with"},
		}
		for _, tt := range tests {
			in := validInput(tt.proposalType)
			tt.clear(&in)
			errs := fieldErrors(t, in.Validate())
			assert.Contains(t, errs, tt.field, "type %s", tt.proposalType)
			assert.Len(t, errs, 1, "type %s should only flag %s", tt.proposalType, tt.field)
		}
	})

	t.Run("variant fields of other types are not required", func(t *testing.T) {
		in := validInput("giveaway")
		assert.NoError(t, in.Validate())
	})

	t.Run("non-positive amounts are rejected", func(t *testing.T) {
		rental := validInput("rental")
		rental.RentPerDay = decimalPtr("0")
		errs := fieldErrors(t, rental.Validate())
		assert.Contains(t, errs, "rent_per_day")

		sale := validInput("sale")
		sale.Price = decimalPtr("-5")
		errs = fieldErrors(t, sale.Validate())
		assert.Contains(t, errs, "offered_price")
	})

	t.Run("rental period must move forward", func(t *testing.T) {
		in := validInput("rental")
		in.EndDate = in.StartDate
		errs := fieldErrors(t, in.Validate())
		assert.Contains(t, errs, "end_date")
	})

	t.Run("receiver must be a uuid", func(t *testing.T) {
		in := validInput("sale")
		in.ReceiverID = "not-a-uuid"
		errs := fieldErrors(t, in.Validate())
		assert.Contains(t, errs, "receiver_id")
	})
}

func TestToProposal(t *testing.T) {
	in := validInput("rental")
	p, err := in.ToProposal()
	require.NoError(t, err)

	assert.Equal(t, StatusPending, p.Status)
	assert.Equal(t, ProposalTypeRental, p.Type)

	details, ok := p.Details.(RentalDetails)
	require.True(t, ok)
	assert.Equal(t, int64(4), details.Days())
}

func TestProposalAmount(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		details ProposalDetails
		want    string
	}{
		{
			name: "rental multiplies rate by whole days",
			details: RentalDetails{
				RentPerDay: decimal.RequireFromString("12.50"),
				StartDate:  start,
				EndDate:    start.AddDate(0, 0, 4),
			},
			want: "50",
		},
		{
			name:    "sale settles at the offered price",
			details: SaleDetails{Price: decimal.RequireFromString("199.99")},
			want:    "199.99",
		},
		{
			name:    "swap settles at zero",
			details: SwapDetails{SwapWith: "Road bike"},
			want:    "0",
		},
		{
			name:    "giveaway settles at zero",
			details: GiveawayDetails{},
			want:    "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := Proposal{Details: tt.details}
			assert.True(t, p.Amount().Equal(decimal.RequireFromString(tt.want)),
				"got %s, want %s", p.Amount(), tt.want)
		})
	}
}

func TestProposalJSONRoundTrip(t *testing.T) {
	start := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)

	proposals := []Proposal{
		{
			ID: 1, Type: ProposalTypeRental, Title: "Bike", ListingID: 7,
			SenderID: uuid.New(), ReceiverID: uuid.New(), Status: StatusPending,
			CreatedAt: start,
			Details: RentalDetails{
				RentPerDay: decimal.RequireFromString("12.50"),
				StartDate:  start,
				EndDate:    start.AddDate(0, 0, 2),
			},
		},
		{
			ID: 2, Type: ProposalTypeSale, Title: "Bike", ListingID: 7,
			SenderID: uuid.New(), ReceiverID: uuid.New(), Status: StatusAccepted,
			CreatedAt: start,
			Details:   SaleDetails{Price: decimal.RequireFromString("199.99")},
		},
		{
			ID: 3, Type: ProposalTypeSwap, Title: "Bike", ListingID: 7,
			SenderID: uuid.New(), ReceiverID: uuid.New(), Status: StatusRejected,
			CreatedAt: start,
			Details:   SwapDetails{SwapWith: "Road bike"},
		},
		{
			ID: 4, Type: ProposalTypeGiveaway, Title: "Bike", ListingID: 7,
			SenderID: uuid.New(), ReceiverID: uuid.New(), Status: StatusCancelled,
			CreatedAt: start,
			Details:   GiveawayDetails{},
		},
	}

	for _, original := range proposals {
		raw, err := json.Marshal(&original)
		require.NoError(t, err)

		var restored Proposal
		require.NoError(t, json.Unmarshal(raw, &restored))

		assert.Equal(t, original.ID, restored.ID)
		assert.Equal(t, original.Type, restored.Type)
		assert.Equal(t, original.Status, restored.Status)
		assert.Equal(t, original.Type, restored.Details.ProposalType())
		assert.True(t, original.Amount().Equal(restored.Amount()),
			"amount drifted for type %s", original.Type)
	}
}

func TestProposalJSONOmitsForeignVariantFields(t *testing.T) {
	p := Proposal{
		ID: 2, Type: ProposalTypeSale,
		SenderID: uuid.New(), ReceiverID: uuid.New(), Status: StatusPending,
		Details: SaleDetails{Price: decimal.RequireFromString("10")},
	}

	raw, err := json.Marshal(&p)
	require.NoError(t, err)

	var flat map[string]any
	require.NoError(t, json.Unmarshal(raw, &flat))

	assert.Contains(t, flat, "offered_price")
	assert.NotContains(t, flat, "rent_per_day")
	assert.NotContains(t, flat, "swap_with")
}

func TestParticipant(t *testing.T) {
	sender, receiver, outsider := uuid.New(), uuid.New(), uuid.New()
	p := Proposal{SenderID: sender, ReceiverID: receiver}

	assert.True(t, p.Participant(sender))
	assert.True(t, p.Participant(receiver))
	assert.False(t, p.Participant(outsider))
}
