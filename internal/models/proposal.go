package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/vmihailenco/msgpack/v5"
)

// ProposalType discriminates the four proposal variants. It is immutable
// after creation.
type ProposalType string

const (
	ProposalTypeRental   ProposalType = "rental"
	ProposalTypeSale     ProposalType = "sale"
	ProposalTypeSwap     ProposalType = "swap"
	ProposalTypeGiveaway ProposalType = "giveaway"
)

// ProposalDetails is the variant payload of a proposal. Exactly one
// implementation is attached, selected by the proposal type.
type ProposalDetails interface {
	ProposalType() ProposalType
}

// RentalDetails is the payload of a rental proposal.
type RentalDetails struct {
	RentPerDay decimal.Decimal
	StartDate  time.Time
	EndDate    time.Time
}

func (RentalDetails) ProposalType() ProposalType { return ProposalTypeRental }

// Days returns the number of whole days the rental covers.
func (d RentalDetails) Days() int64 {
	return int64(d.EndDate.Sub(d.StartDate).Hours() / 24)
}

// SaleDetails is the payload of a sale proposal.
type SaleDetails struct {
	Price decimal.Decimal
}

func (SaleDetails) ProposalType() ProposalType { return ProposalTypeSale }

// SwapDetails is the payload of a swap proposal.
type SwapDetails struct {
	SwapWith string
}

func (SwapDetails) ProposalType() ProposalType { return ProposalTypeSwap }

// GiveawayDetails is the payload of a giveaway proposal. It carries no extra
// fields.
type GiveawayDetails struct{}

func (GiveawayDetails) ProposalType() ProposalType { return ProposalTypeGiveaway }

// Proposal is an offer on a listing exchanged between two users. One physical
// record, four logical variants distinguished by Type.
type Proposal struct {
	ID           int64
	Type         ProposalType
	Title        string
	Description  string
	ListingID    int64
	ListingTitle string
	SenderID     uuid.UUID
	ReceiverID   uuid.UUID
	Status       Status
	Message      string
	CreatedAt    time.Time
	Details      ProposalDetails
}

// Participant reports whether the given user is the sender or receiver.
func (p *Proposal) Participant(userID uuid.UUID) bool {
	return p.SenderID == userID || p.ReceiverID == userID
}

// Amount returns the monetary value the proposal settles at when accepted.
// Swap and giveaway proposals settle at zero.
func (p *Proposal) Amount() decimal.Decimal {
	switch d := p.Details.(type) {
	case RentalDetails:
		return d.RentPerDay.Mul(decimal.NewFromInt(d.Days()))
	case SaleDetails:
		return d.Price
	default:
		return decimal.Zero
	}
}

// proposalWire is the flat projection used on the wire: JSON responses and
// msgpack-encoded cache values. Variant fields are pointers so that only the
// populated variant shows up.
type proposalWire struct {
	ID           int64        `json:"id" msgpack:"id"`
	Type         ProposalType `json:"proposal_type" msgpack:"proposal_type"`
	Title        string       `json:"title" msgpack:"title"`
	Description  string       `json:"description" msgpack:"description"`
	ListingID    int64        `json:"listing_id" msgpack:"listing_id"`
	ListingTitle string       `json:"listing_title,omitempty" msgpack:"listing_title"`
	SenderID     uuid.UUID    `json:"sender_id" msgpack:"sender_id"`
	ReceiverID   uuid.UUID    `json:"receiver_id" msgpack:"receiver_id"`
	Status       Status       `json:"status" msgpack:"status"`
	Message      string       `json:"message,omitempty" msgpack:"message"`
	CreatedAt    time.Time    `json:"created_at" msgpack:"created_at"`
	RentPerDay   *string      `json:"rent_per_day,omitempty" msgpack:"rent_per_day"`
	StartDate    *time.Time   `json:"start_date,omitempty" msgpack:"start_date"`
	EndDate      *time.Time   `json:"end_date,omitempty" msgpack:"end_date"`
	OfferedPrice *string      `json:"offered_price,omitempty" msgpack:"offered_price"`
	SwapWith     *string      `json:"swap_with,omitempty" msgpack:"swap_with"`
}

func (p *Proposal) wire() proposalWire {
	w := proposalWire{
		ID:           p.ID,
		Type:         p.Type,
		Title:        p.Title,
		Description:  p.Description,
		ListingID:    p.ListingID,
		ListingTitle: p.ListingTitle,
		SenderID:     p.SenderID,
		ReceiverID:   p.ReceiverID,
		Status:       p.Status,
		Message:      p.Message,
		CreatedAt:    p.CreatedAt,
	}
	switch d := p.Details.(type) {
	case RentalDetails:
		rent := d.RentPerDay.String()
		start, end := d.StartDate, d.EndDate
		w.RentPerDay, w.StartDate, w.EndDate = &rent, &start, &end
	case SaleDetails:
		price := d.Price.String()
		w.OfferedPrice = &price
	case SwapDetails:
		swapWith := d.SwapWith
		w.SwapWith = &swapWith
	}
	return w
}

func (p *Proposal) fromWire(w proposalWire) error {
	p.ID = w.ID
	p.Type = w.Type
	p.Title = w.Title
	p.Description = w.Description
	p.ListingID = w.ListingID
	p.ListingTitle = w.ListingTitle
	p.SenderID = w.SenderID
	p.ReceiverID = w.ReceiverID
	p.Status = w.Status
	p.Message = w.Message
	p.CreatedAt = w.CreatedAt

	switch w.Type {
	case ProposalTypeRental:
		if w.RentPerDay == nil || w.StartDate == nil || w.EndDate == nil {
			return fmt.Errorf("rental proposal %d is missing variant fields", w.ID)
		}
		rent, err := decimal.NewFromString(*w.RentPerDay)
		if err != nil {
			return fmt.Errorf("rental proposal %d: parsing rent_per_day: %w", w.ID, err)
		}
		p.Details = RentalDetails{RentPerDay: rent, StartDate: *w.StartDate, EndDate: *w.EndDate}
	case ProposalTypeSale:
		if w.OfferedPrice == nil {
			return fmt.Errorf("sale proposal %d is missing offered_price", w.ID)
		}
		price, err := decimal.NewFromString(*w.OfferedPrice)
		if err != nil {
			return fmt.Errorf("sale proposal %d: parsing offered_price: %w", w.ID, err)
		}
		p.Details = SaleDetails{Price: price}
	case ProposalTypeSwap:
		if w.SwapWith == nil {
			return fmt.Errorf("swap proposal %d is missing swap_with", w.ID)
		}
		p.Details = SwapDetails{SwapWith: *w.SwapWith}
	case ProposalTypeGiveaway:
		p.Details = GiveawayDetails{}
	default:
		return fmt.Errorf("proposal %d has unknown type %q", w.ID, w.Type)
	}
	return nil
}

// MarshalJSON flattens the variant payload into the proposal object.
func (p *Proposal) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.wire())
}

// UnmarshalJSON restores the variant payload from the flat projection.
func (p *Proposal) UnmarshalJSON(data []byte) error {
	var w proposalWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}
	return p.fromWire(w)
}

// EncodeMsgpack implements msgpack.CustomEncoder for cached values.
func (p *Proposal) EncodeMsgpack(enc *msgpack.Encoder) error {
	return enc.Encode(p.wire())
}

// DecodeMsgpack implements msgpack.CustomDecoder for cached values.
func (p *Proposal) DecodeMsgpack(dec *msgpack.Decoder) error {
	var w proposalWire
	if err := dec.Decode(&w); err != nil {
		return err
	}
	return p.fromWire(w)
}

// CreateProposalInput is the untrusted payload of POST /proposals. All
// variant fields are optional; Validate requires exactly the set selected by
// proposal_type.
type CreateProposalInput struct {
	Type        string           `json:"proposal_type"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	ListingID   int64            `json:"listing_id"`
	ReceiverID  string           `json:"receiver_id"`
	Message     string           `json:"message"`
	RentPerDay  *decimal.Decimal `json:"rent_per_day"`
	StartDate   *time.Time       `json:"start_date"`
	EndDate     *time.Time       `json:"end_date"`
	Price       *decimal.Decimal `json:"offered_price"`
	SwapWith    *string          `json:"swap_with"`
}

// positiveDecimal rejects zero and negative amounts. Required handles nil.
func positiveDecimal(value interface{}) error {
	d, ok := value.(*decimal.Decimal)
	if !ok || d == nil {
		return nil
	}
	if d.Sign() <= 0 {
		return errors.New("must be greater than zero")
	}
	return nil
}

// Validate checks the common fields first, then the fields of the variant
// selected by proposal_type. Every failure is keyed by the offending field.
func (in CreateProposalInput) Validate() error {
	fields := []*validation.FieldRules{
		validation.Field(&in.Type,
			validation.Required,
			validation.In(
				string(ProposalTypeRental),
				string(ProposalTypeSale),
				string(ProposalTypeSwap),
				string(ProposalTypeGiveaway),
			).Error("must be one of: rental, sale, swap, giveaway"),
		),
		validation.Field(&in.Title, validation.Required, validation.Length(1, 100)),
		validation.Field(&in.Description, validation.Required, validation.Length(1, 1000)),
		validation.Field(&in.ListingID, validation.Required, validation.Min(int64(1))),
		validation.Field(&in.ReceiverID, validation.Required, is.UUID),
		validation.Field(&in.Message, validation.Length(0, 500)),
	}

	switch ProposalType(in.Type) {
	case ProposalTypeRental:
		fields = append(fields,
			validation.Field(&in.RentPerDay, validation.Required, validation.By(positiveDecimal)),
			validation.Field(&in.StartDate, validation.Required),
			validation.Field(&in.EndDate, validation.Required, validation.By(func(value interface{}) error {
				end, _ := value.(*time.Time)
				if end == nil || in.StartDate == nil {
					return nil
				}
				if !end.After(*in.StartDate) {
					return errors.New("must be after start_date")
				}
				return nil
			})),
		)
	case ProposalTypeSale:
		fields = append(fields,
			validation.Field(&in.Price, validation.Required, validation.By(positiveDecimal)),
		)
	case ProposalTypeSwap:
		fields = append(fields,
			validation.Field(&in.SwapWith, validation.Required, validation.Length(1, 200)),
		)
	}

	return validation.ValidateStruct(&in, fields...)
}

// ToProposal builds a pending proposal from validated input.
func (in CreateProposalInput) ToProposal() (*Proposal, error) {
	receiverID, err := uuid.Parse(in.ReceiverID)
	if err != nil {
		return nil, fmt.Errorf("parsing receiver_id: %w", err)
	}

	p := &Proposal{
		Type:        ProposalType(in.Type),
		Title:       in.Title,
		Description: in.Description,
		ListingID:   in.ListingID,
		ReceiverID:  receiverID,
		Status:      StatusPending,
		Message:     in.Message,
	}

	switch p.Type {
	case ProposalTypeRental:
		p.Details = RentalDetails{RentPerDay: *in.RentPerDay, StartDate: *in.StartDate, EndDate: *in.EndDate}
	case ProposalTypeSale:
		p.Details = SaleDetails{Price: *in.Price}
	case ProposalTypeSwap:
		p.Details = SwapDetails{SwapWith: *in.SwapWith}
	case ProposalTypeGiveaway:
		p.Details = GiveawayDetails{}
	default:
		return nil, fmt.Errorf("unknown proposal type %q", in.Type)
	}

	return p, nil
}

// ProposalImage is an image attached to a proposal.
type ProposalImage struct {
	ID         uuid.UUID `json:"id" msgpack:"id"`
	ProposalID int64     `json:"proposal_id" msgpack:"proposal_id"`
	URL        string    `json:"url" msgpack:"url"`
	PreviewURL string    `json:"preview_url,omitempty" msgpack:"preview_url"`
	PublicID   string    `json:"public_id" msgpack:"public_id"`
	FileName   string    `json:"file_name,omitempty" msgpack:"file_name"`
	Position   int       `json:"position" msgpack:"position"`
	CreatedAt  time.Time `json:"created_at" msgpack:"created_at"`
}

// Transaction is the durable record written when a proposal is accepted. The
// balance aggregate is derived from these rows.
type Transaction struct {
	ID         int64           `json:"id"`
	ProposalID int64           `json:"proposal_id"`
	SenderID   uuid.UUID       `json:"sender_id"`
	ReceiverID uuid.UUID       `json:"receiver_id"`
	Amount     decimal.Decimal `json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}
