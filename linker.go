package anyauth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Linker resolves candidate identities into canonical users and manages the
// linked-strategies set. It relies on the link store's uniqueness guarantee
// for (strategy name, strategy id) rather than in-process locks.
type Linker struct {
	users UserStore
	links LinkStore
}

func NewLinker(users UserStore, links LinkStore) *Linker {
	return &Linker{users: users, links: links}
}

// ResolveOrCreate turns a candidate identity into a canonical user. A known
// (strategyName, providerID) pair loads the owning user; an unknown one
// creates a user seeded from the identity and links it. A duplicate-key
// failure on the link insert means a concurrent callback won the race, so
// the pair is re-resolved as a lookup instead of surfacing an error.
func (l *Linker) ResolveOrCreate(ctx context.Context, strategyName string, ident *Identity, tokens *TokenBundle) (*User, error) {
	if l.links == nil || l.users == nil {
		return nil, ErrDatabaseRequired
	}
	if ident == nil || ident.ProviderID == "" {
		return nil, fmt.Errorf("candidate identity missing provider id")
	}

	link, err := l.links.GetLink(ctx, strategyName, ident.ProviderID)
	if err == nil {
		return l.users.GetUser(ctx, link.UserID)
	}
	if !errors.Is(err, ErrLinkNotFound) {
		return nil, fmt.Errorf("looking up link %s/%s: %w", strategyName, ident.ProviderID, err)
	}

	now := time.Now()
	user := &User{
		ID:        uuid.NewString(),
		Username:  ident.Username,
		Email:     ident.Email,
		Profile:   ident.Profile,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := l.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("creating user: %w", err)
	}

	err = l.links.CreateLink(ctx, &StrategyLink{
		ID:           uuid.NewString(),
		UserID:       user.ID,
		StrategyName: strategyName,
		StrategyID:   ident.ProviderID,
		Profile:      ident.Profile,
		Tokens:       tokens,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err == nil {
		return user, nil
	}
	if !errors.Is(err, ErrDuplicateLink) {
		return nil, fmt.Errorf("creating link %s/%s: %w", strategyName, ident.ProviderID, err)
	}

	// Lost the insert race: a concurrent first-time callback claimed the
	// identity between our lookup and insert. Resolve to the winner.
	slog.Info("link insert raced, re-resolving", "strategy", strategyName, "provider_id", ident.ProviderID)
	link, err = l.links.GetLink(ctx, strategyName, ident.ProviderID)
	if err != nil {
		return nil, fmt.Errorf("re-resolving link %s/%s: %w", strategyName, ident.ProviderID, err)
	}
	return l.users.GetUser(ctx, link.UserID)
}

// Link adds a strategy link to an already-authenticated user. A uniqueness
// violation means the external identity belongs to someone, surfaced as
// ErrDuplicateLink for the caller to report.
func (l *Linker) Link(ctx context.Context, userID, strategyName, providerID string, profile map[string]any, tokens *TokenBundle) (*StrategyLink, error) {
	if l.links == nil {
		return nil, ErrDatabaseRequired
	}
	now := time.Now()
	link := &StrategyLink{
		ID:           uuid.NewString(),
		UserID:       userID,
		StrategyName: strategyName,
		StrategyID:   providerID,
		Profile:      profile,
		Tokens:       tokens,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := l.links.CreateLink(ctx, link); err != nil {
		if errors.Is(err, ErrDuplicateLink) {
			return nil, ErrDuplicateLink
		}
		return nil, fmt.Errorf("creating link %s/%s: %w", strategyName, providerID, err)
	}
	return link, nil
}

// Unlink removes the user's link for the named strategy. It refuses with
// ErrLastStrategy when that is the user's only remaining link: a user
// created through a strategy flow must never end up with zero ways in.
func (l *Linker) Unlink(ctx context.Context, userID, strategyName string) error {
	if l.links == nil {
		return ErrDatabaseRequired
	}
	links, err := l.links.ListUserLinks(ctx, userID)
	if err != nil {
		return fmt.Errorf("listing links for %s: %w", userID, err)
	}

	found := false
	for _, link := range links {
		if link.StrategyName == strategyName {
			found = true
			break
		}
	}
	if !found {
		return ErrLinkNotFound
	}
	if len(links) == 1 {
		return ErrLastStrategy
	}

	return l.links.DeleteLink(ctx, userID, strategyName)
}

// ListLinks returns all links for a user.
func (l *Linker) ListLinks(ctx context.Context, userID string) ([]*StrategyLink, error) {
	if l.links == nil {
		return nil, ErrDatabaseRequired
	}
	return l.links.ListUserLinks(ctx, userID)
}
