// Package refs checks that referenced documents exist before a write.
package refs

import (
	"context"
	"fmt"

	"github.com/safar/shop-api/internal/store"
)

type Validator struct {
	finder store.ReferenceFinder
}

func NewValidator(finder store.ReferenceFinder) *Validator {
	return &Validator{finder: finder}
}

// Existing returns the subset of ids present in coll.
func (v *Validator) Existing(ctx context.Context, coll store.Collection, ids []string) (map[string]struct{}, error) {
	found, err := v.finder.Existing(ctx, coll, store.Dedupe(ids))
	if err != nil {
		return nil, fmt.Errorf("check %s references: %w", coll, err)
	}
	return found, nil
}

// AllExist reports whether every distinct id resolves. Repeated ids count once.
func (v *Validator) AllExist(ctx context.Context, coll store.Collection, ids []string) (bool, error) {
	unique := store.Dedupe(ids)
	if len(unique) == 0 {
		return true, nil
	}
	found, err := v.Existing(ctx, coll, unique)
	if err != nil {
		return false, err
	}
	for _, id := range unique {
		if _, ok := found[id]; !ok {
			return false, nil
		}
	}
	return true, nil
}
