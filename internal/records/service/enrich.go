package service

import (
	"context"

	"github.com/hydroaid/hydroaid-backend/internal/records/domain"
	"github.com/hydroaid/hydroaid-backend/internal/records/repository"
)

// Enricher replaces payer and reporter references with display identities.
type Enricher struct {
	store repository.Store
}

func NewEnricher(store repository.Store) *Enricher {
	return &Enricher{store: store}
}

// Donations fills Payer on every donation in place.
func (e *Enricher) Donations(ctx context.Context, ds []domain.Donation) error {
	refs := make([]string, 0, len(ds))
	for _, d := range ds {
		refs = append(refs, d.PayerRef)
	}
	users, err := e.lookup(ctx, refs)
	if err != nil {
		return err
	}
	for i := range ds {
		a := resolve(users, ds[i].PayerRef, domain.AnonymousDonor)
		ds[i].Payer = &a
	}
	return nil
}

// Issues fills Reporter on every issue in place.
func (e *Enricher) Issues(ctx context.Context, is []domain.Issue) error {
	refs := make([]string, 0, len(is))
	for _, i := range is {
		refs = append(refs, i.ReporterRef)
	}
	users, err := e.lookup(ctx, refs)
	if err != nil {
		return err
	}
	for i := range is {
		a := resolve(users, is[i].ReporterRef, domain.AnonymousReporter)
		is[i].Reporter = &a
	}
	return nil
}

func (e *Enricher) lookup(ctx context.Context, refs []string) (map[string]domain.User, error) {
	seen := make(map[string]struct{}, len(refs))
	ids := make([]string, 0, len(refs))
	for _, ref := range refs {
		if ref == "" || ref == domain.AnonymousActor {
			continue
		}
		if _, ok := seen[ref]; ok {
			continue
		}
		seen[ref] = struct{}{}
		ids = append(ids, ref)
	}
	if len(ids) == 0 {
		return map[string]domain.User{}, nil
	}
	return e.store.UsersByID(ctx, ids)
}

// resolve falls back to the anonymous identity for the sentinel and for
// references that no longer point at a user.
func resolve(users map[string]domain.User, ref string, anonymous domain.Actor) domain.Actor {
	if u, ok := users[ref]; ok {
		return u.Actor()
	}
	if ref == "" || ref == domain.AnonymousActor {
		return anonymous
	}
	return domain.Actor{ID: ref}
}
