// Package directory serves the read-only reference data checkout needs:
// customers, payment methods and currencies.
package directory

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/odyssey-erp/odyssey-pos/internal/backoffice"
)

var ErrCustomerRequired = errors.New("directory: customer id required")

// Source is the uncached directory, normally the backoffice client.
type Source interface {
	GetCustomer(ctx context.Context, customerID string) (*backoffice.Customer, error)
	ListPaymentMethods(ctx context.Context) ([]backoffice.PaymentMethod, error)
	ListCurrencies(ctx context.Context) ([]backoffice.Currency, error)
}

// References are the lists a checkout needs before creating an order.
type References struct {
	PaymentMethods []backoffice.PaymentMethod
	Currencies     []backoffice.Currency
}

// Service fronts Source with the Redis cache. Concurrent misses for the same
// key share one upstream call.
type Service struct {
	source Source
	cache  *Cache
	group  singleflight.Group
	logger *slog.Logger
}

// NewService builds the directory service.
func NewService(source Source, cache *Cache, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{source: source, cache: cache, logger: logger}
}

// PaymentMethods lists the payment methods.
func (s *Service) PaymentMethods(ctx context.Context) ([]backoffice.PaymentMethod, error) {
	var out []backoffice.PaymentMethod
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.source.ListPaymentMethods(ctx)
	}, "payment_methods")
	if err != nil {
		return nil, fmt.Errorf("directory: payment methods: %w", err)
	}
	return out, nil
}

// Currencies lists the currencies.
func (s *Service) Currencies(ctx context.Context) ([]backoffice.Currency, error) {
	var out []backoffice.Currency
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.source.ListCurrencies(ctx)
	}, "currencies")
	if err != nil {
		return nil, fmt.Errorf("directory: currencies: %w", err)
	}
	return out, nil
}

// Customer looks up one customer.
func (s *Service) Customer(ctx context.Context, customerID string) (backoffice.Customer, error) {
	if customerID == "" {
		return backoffice.Customer{}, ErrCustomerRequired
	}
	var out backoffice.Customer
	err := s.cached(ctx, &out, func(ctx context.Context) (any, error) {
		return s.source.GetCustomer(ctx, customerID)
	}, "customer", customerID)
	if err != nil {
		return backoffice.Customer{}, fmt.Errorf("directory: customer %s: %w", customerID, err)
	}
	return out, nil
}

// LoadCheckoutReferences loads payment methods and currencies concurrently.
func (s *Service) LoadCheckoutReferences(ctx context.Context) (References, error) {
	var refs References
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		methods, err := s.PaymentMethods(ctx)
		refs.PaymentMethods = methods
		return err
	})
	g.Go(func() error {
		currencies, err := s.Currencies(ctx)
		refs.Currencies = currencies
		return err
	})
	if err := g.Wait(); err != nil {
		return References{}, err
	}
	return refs, nil
}

// Warm invalidates the cache and reloads the reference lists.
func (s *Service) Warm(ctx context.Context) (References, error) {
	ver, err := s.cache.Bump(ctx)
	if err != nil {
		return References{}, fmt.Errorf("directory: bump cache: %w", err)
	}
	refs, err := s.LoadCheckoutReferences(ctx)
	if err != nil {
		return References{}, err
	}
	s.logger.Info("directory cache warmed",
		slog.Int64("version", ver),
		slog.Int("payment_methods", len(refs.PaymentMethods)),
		slog.Int("currencies", len(refs.Currencies)))
	return refs, nil
}

// cached resolves the versioned key, then coalesces concurrent loads of it.
func (s *Service) cached(ctx context.Context, dest any, loader func(context.Context) (any, error), parts ...string) error {
	key, err := s.cache.Key(ctx, parts...)
	if err != nil {
		return err
	}
	ch := s.group.DoChan(key, func() (any, error) {
		var raw rawJSON
		if err := s.cache.FetchJSON(ctx, key, &raw, loader); err != nil {
			return nil, err
		}
		return raw, nil
	})
	select {
	case <-ctx.Done():
		return ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return res.Err
		}
		return res.Val.(rawJSON).decode(dest)
	}
}
