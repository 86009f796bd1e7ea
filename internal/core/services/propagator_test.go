package services

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/tap-github/internal/core/domain"
)

func TestDeriveChildContext(t *testing.T) {
	streams := newTestStreams()
	parent := domain.NewContext(map[string]any{"org": "acme", "repo": "tap"})

	t.Run("extends a copy of the parent context", func(t *testing.T) {
		child, err := deriveChildContext(streams.issues, domain.Record{"number": int64(7), "comments": int64(2)}, parent)

		require.NoError(t, err)
		assert.Equal(t, []string{"comments", "issue_number", "org", "repo"}, child.Keys())
		assert.Equal(t, 2, parent.Len())
	})

	t.Run("no hook passes the context through", func(t *testing.T) {
		child, err := deriveChildContext(streams.comments, domain.Record{"id": 1}, parent)

		require.NoError(t, err)
		assert.Equal(t, parent.Describe(), child.Describe())
	})

	t.Run("hook failure", func(t *testing.T) {
		s := &domain.Stream{Name: "broken", Hooks: domain.Hooks{
			ChildContext: func(domain.Record, domain.Context) (map[string]any, error) {
				return nil, errors.New("no number")
			},
		}}

		_, err := deriveChildContext(s, domain.Record{}, parent)

		assert.ErrorIs(t, err, domain.ErrMalformedResponse)
	})
}

func TestShouldSkip(t *testing.T) {
	comments := newTestStreams().comments

	skip, reason := shouldSkip(comments, domain.NewContext(map[string]any{"comments": int64(0)}))
	assert.True(t, skip)
	assert.Equal(t, "no comments", reason)

	skip, _ = shouldSkip(comments, domain.NewContext(map[string]any{"comments": int64(3)}))
	assert.False(t, skip)

	skip, _ = shouldSkip(newTestStreams().issues, domain.Context{})
	assert.False(t, skip)
}

func TestMergeContext(t *testing.T) {
	issues := newTestStreams().issues
	pctx := domain.NewContext(map[string]any{"org": "acme", "repo": "tap", "repo_id": 9})

	rec := mergeContext(issues, domain.Record{"id": 1, "org": "Acme", "repo": nil}, pctx)

	assert.Equal(t, "Acme", rec["org"], "payload values win")
	assert.Equal(t, "tap", rec["repo"], "null payload values are filled")
	assert.NotContains(t, rec, "repo_id", "undeclared fields are not merged")
}
