package services

import (
	"fmt"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

// deriveChildContext builds the context a parent record hands to the
// parent's children: a copy of the parent context extended with the fields
// of the parent's ChildContext hook.
func deriveChildContext(parent *domain.Stream, rec domain.Record, pctx domain.Context) (domain.Context, error) {
	if parent.Hooks.ChildContext == nil {
		return pctx, nil
	}
	fields, err := parent.Hooks.ChildContext(rec, pctx)
	if err != nil {
		return domain.Context{}, fmt.Errorf("%w: stream %s child context: %w", domain.ErrMalformedResponse, parent.Name, err)
	}
	return pctx.With(fields), nil
}

// shouldSkip evaluates a stream's skip pre-check against a partition context.
func shouldSkip(stream *domain.Stream, pctx domain.Context) (bool, string) {
	if stream.Hooks.Skip == nil {
		return false, ""
	}
	return stream.Hooks.Skip(pctx)
}

// mergeContext copies context fields the schema declares into a record,
// never overwriting a non-null payload value.
func mergeContext(stream *domain.Stream, rec domain.Record, pctx domain.Context) domain.Record {
	for _, k := range pctx.Keys() {
		if !stream.Schema.Has(k) {
			continue
		}
		if v, ok := rec[k]; ok && v != nil {
			continue
		}
		v, _ := pctx.Get(k)
		rec[k] = v
	}
	return rec
}
