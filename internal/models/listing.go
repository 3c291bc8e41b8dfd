package models

import (
	"time"

	"github.com/google/uuid"
)

// Listing is an item offered on the marketplace. Proposals hold a non-owning
// reference to its id plus a denormalized copy of the title.
type Listing struct {
	ID          int64          `json:"id" msgpack:"id"`
	UserID      uuid.UUID      `json:"user_id" msgpack:"user_id"`
	Title       string         `json:"title" msgpack:"title"`
	Description string         `json:"description" msgpack:"description"`
	Categories  []string       `json:"categories" msgpack:"categories"`
	Status      string         `json:"status" msgpack:"status"`
	Images      []ListingImage `json:"images" msgpack:"images"`
	CreatedAt   time.Time      `json:"created_at" msgpack:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at" msgpack:"updated_at"`
}

// ListingImage is an image attached to a listing.
type ListingImage struct {
	ID         uuid.UUID `json:"id" msgpack:"id"`
	ListingID  int64     `json:"listing_id" msgpack:"listing_id"`
	URL        string    `json:"url" msgpack:"url"`
	PreviewURL string    `json:"preview_url,omitempty" msgpack:"preview_url"`
	PublicID   string    `json:"public_id" msgpack:"public_id"`
	FileName   string    `json:"file_name,omitempty" msgpack:"file_name"`
	IsMain     bool      `json:"is_main" msgpack:"is_main"`
	Position   int       `json:"position" msgpack:"position"`
	CreatedAt  time.Time `json:"created_at" msgpack:"created_at"`
}

// Favorite marks a listing saved by a user.
type Favorite struct {
	ID        uuid.UUID `json:"id" msgpack:"id"`
	UserID    uuid.UUID `json:"user_id" msgpack:"user_id"`
	ListingID int64     `json:"listing_id" msgpack:"listing_id"`
	CreatedAt time.Time `json:"created_at" msgpack:"created_at"`
	Listing   *Listing  `json:"listing,omitempty" msgpack:"listing"`
}

// User is the minimal user projection exposed by the API.
type User struct {
	ID        uuid.UUID `json:"id" msgpack:"id"`
	Username  string    `json:"username,omitempty" msgpack:"username"`
	FirstName string    `json:"first_name,omitempty" msgpack:"first_name"`
	LastName  string    `json:"last_name,omitempty" msgpack:"last_name"`
	AvatarURL string    `json:"avatar_url,omitempty" msgpack:"avatar_url"`
}
