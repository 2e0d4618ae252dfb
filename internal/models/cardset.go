package models

import (
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://www.bigweb.co.jp"
	cardsetListPath  = "/ja/products/%E3%83%9D%E3%82%B1%E3%83%A2%E3%83%B3/list"
	cardsetQueryName = "cardsets"
)

// SyncState is the checkpoint kept per cardset.
type SyncState int

const (
	Unsynced SyncState = iota
	Synced
)

func (s SyncState) String() string {
	if s == Synced {
		return "synced"
	}
	return "unsynced"
}

func (s SyncState) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

func (s *SyncState) UnmarshalText(text []byte) error {
	switch string(text) {
	case "synced":
		*s = Synced
	case "unsynced", "":
		*s = Unsynced
	default:
		return fmt.Errorf("unknown sync state %q", text)
	}
	return nil
}

// CardsetURL is a cardset listing URL. Its cardset id is the stable key.
type CardsetURL struct {
	u *url.URL
}

func ParseCardsetURL(raw string) (CardsetURL, error) {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return CardsetURL{}, fmt.Errorf("failed to parse cardset url %q: %w", raw, err)
	}
	if u.Query().Get(cardsetQueryName) == "" {
		return CardsetURL{}, fmt.Errorf("cardset url %q has no %s parameter", raw, cardsetQueryName)
	}
	return CardsetURL{u: u}, nil
}

func CardsetURLFromID(baseURL, id string) (CardsetURL, error) {
	if id == "" {
		return CardsetURL{}, fmt.Errorf("cardset id is required")
	}
	return ParseCardsetURL(strings.TrimRight(baseURL, "/") + cardsetListPath + "?" + cardsetQueryName + "=" + url.QueryEscape(id))
}

// CardsetIndexURL is the listing page that carries the cardset buttons.
func CardsetIndexURL(baseURL string) string {
	return strings.TrimRight(baseURL, "/") + cardsetListPath + "?" + cardsetQueryName + "=7615"
}

func (c CardsetURL) CardsetID() string {
	if c.u == nil {
		return ""
	}
	return c.u.Query().Get(cardsetQueryName)
}

// Origin drops every query parameter except the cardset id.
func (c CardsetURL) Origin() string {
	if c.u == nil {
		return ""
	}
	origin := *c.u
	q := url.Values{}
	q.Set(cardsetQueryName, c.CardsetID())
	origin.RawQuery = q.Encode()
	origin.Fragment = ""
	return origin.String()
}

func (c CardsetURL) String() string {
	if c.u == nil {
		return ""
	}
	return c.u.String()
}

// Cardset is a collection of cards sharing one source listing.
type Cardset struct {
	ID          string    `json:"id"`
	Ref         string    `json:"ref"`
	Name        string    `json:"name"`
	URL         string    `json:"url"`
	ResultCount int       `json:"result_count"`
	SyncState   SyncState `json:"sync_state"`
	UpdatedAt   time.Time `json:"updated_at,omitempty"`
}
