package core

import (
	"encoding/json"
	"errors"
	"strings"
	"time"
)

type (
	// Date is a calendar day carried as an ISO date string ("2006-01-02")
	// on the wire.
	Date struct {
		time.Time
	}

	// Receipt is a single spending record owned by exactly one user.
	// The ID is assigned once at creation and never changes.
	Receipt struct {
		ID          string  `json:"id"`
		Transaction string  `json:"transaction"`
		Amount      float64 `json:"amount"`
		Date        Date    `json:"date"`
		Category    string  `json:"category"`
	}

	// Name is the split form of a provider's single full-name string.
	Name struct {
		First string `json:"first"`
		Last  string `json:"last"`
		Full  string `json:"full"`
	}

	// Picture is a flattened provider profile picture.
	Picture struct {
		URL    string `json:"url"`
		Width  int    `json:"width"`
		Height int    `json:"height"`
	}

	// User is the resolved identity a receipt partition is keyed by.
	User struct {
		ID      string  `json:"id"`
		Name    Name    `json:"name"`
		Picture Picture `json:"picture"`
	}
)

// Storage errors.
var (
	ErrNotFound         = errors.New("record not found")
	ErrAlreadyExists    = errors.New("record already exists")
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Auth errors.
var (
	ErrInvalidState         = errors.New("authorization state mismatch")
	ErrExchangeFailed       = errors.New("code exchange failed")
	ErrNoToken              = errors.New("no access token in session")
	ErrIdentityFetchFailed  = errors.New("identity fetch failed")
	ErrMalformedIdentity    = errors.New("malformed identity response")
	ErrSessionPersistFailed = errors.New("session persist failed")
	ErrSessionDestroyFailed = errors.New("session destroy failed")
)

// Request-shape errors.
var (
	ErrValidationFailed     = errors.New("validation failed")
	ErrEmptyTransaction     = errors.New("empty transaction")
	ErrInvalidReceiptAmount = errors.New("invalid amount")
	ErrInvalidReceiptDate   = errors.New("invalid date")
	ErrEmptyCategory        = errors.New("empty category")
)

const dateLayout = "2006-01-02"

// NewDate creates a Date from year, month, day.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// ParseDate parses an ISO date string ("2006-01-02").
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return Date{}, ErrInvalidReceiptDate
	}
	return Date{Time: t}, nil
}

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return json.Marshal(d.Format(dateLayout))
}

func (d *Date) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return ErrInvalidReceiptDate
	}
	parsed, err := ParseDate(s)
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}

// Key returns the receipt's store key.
func (r Receipt) Key() string {
	return r.ID
}

func (r Receipt) Validate() error {
	if len(strings.TrimSpace(r.Transaction)) == 0 {
		return ErrEmptyTransaction
	}
	if len(r.Transaction) > 200 {
		return errors.New("transaction too long (max 200 characters)")
	}
	if r.Amount <= 0 {
		return ErrInvalidReceiptAmount
	}
	if r.Date.IsZero() {
		return ErrInvalidReceiptDate
	}
	if strings.TrimSpace(r.Category) == "" {
		return ErrEmptyCategory
	}
	return nil
}

func (u User) Validate() error {
	if u.ID == "" {
		return ErrMalformedIdentity
	}
	if u.Name.Full == "" {
		return ErrMalformedIdentity
	}
	return nil
}

// SplitName splits a provider's single full-name string into first and
// last tokens on whitespace. Single-token names use the same token for
// both ends, matching how a lone word is both first and last.
func SplitName(full string) Name {
	fields := strings.Fields(full)
	n := Name{Full: full}
	if len(fields) > 0 {
		n.First = fields[0]
		n.Last = fields[len(fields)-1]
	}
	return n
}
