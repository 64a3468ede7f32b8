//go:build !wasm
// +build !wasm

package gorm

import (
	"testing"
	"time"

	aa "github.com/workpail/anyauth"
)

func TestJSONMapRoundTrip(t *testing.T) {
	m := JSONMap{"k": "v", "n": float64(3)}

	value, err := m.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got JSONMap
	if err := got.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got["k"] != "v" || got["n"] != float64(3) {
		t.Errorf("round trip mismatch: %+v", got)
	}

	var nilMap JSONMap
	if value, err := nilMap.Value(); err != nil || value != nil {
		t.Errorf("nil map should produce nil value, got (%v, %v)", value, err)
	}
	if err := got.Scan(nil); err != nil || got != nil {
		t.Errorf("scanning nil should clear the map, got (%+v, %v)", got, err)
	}
}

func TestTokenColumnRoundTrip(t *testing.T) {
	expiry := time.Now().Add(time.Hour).Truncate(time.Second)
	col := TokenColumn{Tokens: &aa.TokenBundle{
		AccessToken:  "at",
		RefreshToken: "rt",
		ExpiresAt:    &expiry,
	}}

	value, err := col.Value()
	if err != nil {
		t.Fatalf("Value: %v", err)
	}

	var got TokenColumn
	if err := got.Scan(value); err != nil {
		t.Fatalf("Scan: %v", err)
	}
	if got.Tokens == nil || got.Tokens.AccessToken != "at" || got.Tokens.RefreshToken != "rt" {
		t.Errorf("token round trip mismatch: %+v", got.Tokens)
	}
	if got.Tokens.ExpiresAt == nil || !got.Tokens.ExpiresAt.Equal(expiry) {
		t.Errorf("expiry round trip mismatch: %v", got.Tokens.ExpiresAt)
	}

	empty := TokenColumn{}
	if value, err := empty.Value(); err != nil || value != nil {
		t.Errorf("empty column should produce nil value, got (%v, %v)", value, err)
	}
}

func TestLinkModelConversion(t *testing.T) {
	link := &aa.StrategyLink{
		ID:           "l1",
		UserID:       "u1",
		StrategyName: "github",
		StrategyID:   "gh-1",
		Profile:      map[string]any{"login": "dave"},
		Tokens:       &aa.TokenBundle{AccessToken: "at"},
	}

	got := LinkToModel(link).ToLink()
	if got.ID != link.ID || got.UserID != link.UserID {
		t.Errorf("identity fields mismatch: %+v", got)
	}
	if got.StrategyName != "github" || got.StrategyID != "gh-1" {
		t.Errorf("key fields mismatch: %+v", got)
	}
	if got.Profile["login"] != "dave" {
		t.Errorf("profile mismatch: %+v", got.Profile)
	}
	if got.Tokens == nil || got.Tokens.AccessToken != "at" {
		t.Errorf("tokens mismatch: %+v", got.Tokens)
	}
}
