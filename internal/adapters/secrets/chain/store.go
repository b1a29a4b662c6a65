// Package chain resolves stockroom secrets (database DSN, redis password)
// across ordered tiers, pass first and plain files second by default.
package chain

import (
	"context"
	"errors"
	"fmt"
	"strings"

	filestore "github.com/bnema/stockroom/internal/adapters/secrets/file"
	passstore "github.com/bnema/stockroom/internal/adapters/secrets/pass"
	"github.com/bnema/stockroom/internal/ports"
)

// Tier is one named secret backend in lookup order.
type Tier struct {
	Name  string
	Store ports.SecretStore
}

type Store struct {
	tiers []Tier
}

var _ ports.SecretStore = (*Store)(nil)

var errNoTiers = errors.New("secret chain needs at least one tier")

func NewStore(tiers ...Tier) (*Store, error) {
	if len(tiers) == 0 {
		return nil, errNoTiers
	}
	for i, tier := range tiers {
		if tier.Store == nil {
			return nil, fmt.Errorf("secret tier %d (%s) is nil", i, tier.Name)
		}
	}
	return &Store{tiers: tiers}, nil
}

func NewPassFirstWithFileFallback(passPrefix string, fileRoot string) (*Store, error) {
	return NewStore(
		Tier{Name: "pass", Store: passstore.NewStore(passPrefix)},
		Tier{Name: "file", Store: filestore.NewStore(fileRoot)},
	)
}

// Put writes to the first tier that accepts the value.
func (s *Store) Put(ctx context.Context, key string, value string) error {
	var failures []error
	for _, tier := range s.tiers {
		err := tier.Store.Put(ctx, key, value)
		if err == nil {
			return nil
		}
		if isContextErr(err) {
			return err
		}
		failures = append(failures, fmt.Errorf("%s put: %w", tier.Name, err))
	}
	return fmt.Errorf("store secret %q: %w", key, errors.Join(failures...))
}

// Get returns the value from the first tier holding key. When no tier has it
// and at least one tier reported it missing, the error matches
// ports.ErrSecretNotFound and names the tiers searched; failures of other
// tiers are joined for diagnosis.
func (s *Store) Get(ctx context.Context, key string) (string, error) {
	var missed []string
	var failures []error
	for _, tier := range s.tiers {
		value, err := tier.Store.Get(ctx, key)
		switch {
		case err == nil:
			return value, nil
		case isContextErr(err):
			return "", err
		case errors.Is(err, ports.ErrSecretNotFound):
			missed = append(missed, tier.Name)
		default:
			failures = append(failures, fmt.Errorf("%s get: %w", tier.Name, err))
		}
	}

	if len(missed) == 0 {
		return "", fmt.Errorf("read secret %q: %w", key, errors.Join(failures...))
	}
	notFound := fmt.Errorf("secret %q not in %s: %w", key, strings.Join(missed, ", "), ports.ErrSecretNotFound)
	return "", errors.Join(append([]error{notFound}, failures...)...)
}

// Delete clears key from every tier. A tier that never held it is not a failure.
func (s *Store) Delete(ctx context.Context, key string) error {
	var failures []error
	for _, tier := range s.tiers {
		err := tier.Store.Delete(ctx, key)
		switch {
		case err == nil, errors.Is(err, ports.ErrSecretNotFound):
		case isContextErr(err):
			return err
		default:
			failures = append(failures, fmt.Errorf("%s delete: %w", tier.Name, err))
		}
	}
	if len(failures) == 0 {
		return nil
	}
	return fmt.Errorf("delete secret %q: %w", key, errors.Join(failures...))
}

func isContextErr(err error) bool {
	return errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded)
}
