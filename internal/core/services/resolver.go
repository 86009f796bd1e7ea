package services

import (
	"fmt"
	"slices"

	"github.com/custodia-labs/tap-github/internal/core/domain"
	"github.com/custodia-labs/tap-github/internal/logger"
)

// StreamTree is the set of streams active for a configuration.
type StreamTree struct {
	// Mode is the active query mode.
	Mode domain.QueryMode

	// Roots are the streams without a parent, in family order.
	Roots []*domain.Stream

	// All holds every active stream, parents before children.
	All []*domain.Stream

	byName   map[string]*domain.Stream
	children map[string][]*domain.Stream
}

// Lookup returns the stream with the given name.
func (t *StreamTree) Lookup(name string) (*domain.Stream, bool) {
	s, ok := t.byName[name]
	return s, ok
}

// Children returns the direct children of a stream in registration order.
func (t *StreamTree) Children(name string) []*domain.Stream {
	return t.children[name]
}

// ResolveStreams validates the configuration and builds the stream tree of
// every family supporting the active query mode. The active set is closed
// over parent references: a stream always brings its ancestors.
func ResolveStreams(cfg *domain.TapConfig, families []domain.StreamFamily) (*StreamTree, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	mode, err := cfg.Mode()
	if err != nil {
		return nil, err
	}

	tree := &StreamTree{
		Mode:     mode,
		byName:   make(map[string]*domain.Stream),
		children: make(map[string][]*domain.Stream),
	}

	for _, family := range families {
		if !family.Supports(mode) {
			continue
		}
		streams, err := family.Build(cfg)
		if err != nil {
			return nil, fmt.Errorf("build %s streams: %w", family.Name, err)
		}
		for _, s := range streams {
			chain := s.Ancestors()
			slices.Reverse(chain)
			for _, member := range append(chain, s) {
				if err := tree.add(member); err != nil {
					return nil, err
				}
			}
		}
	}

	if len(tree.All) == 0 {
		return nil, fmt.Errorf("%w: no streams support query mode %s", domain.ErrConfiguration, mode)
	}

	for _, name := range cfg.Exclude {
		if _, ok := tree.byName[name]; !ok {
			logger.Warn("exclude: unknown stream %q", name)
		}
	}

	return tree, nil
}

func (t *StreamTree) add(s *domain.Stream) error {
	if existing, ok := t.byName[s.Name]; ok {
		if existing != s {
			return fmt.Errorf("%w: stream %s defined twice", domain.ErrConfiguration, s.Name)
		}
		return nil
	}
	t.byName[s.Name] = s
	t.All = append(t.All, s)
	if s.IsRoot() {
		t.Roots = append(t.Roots, s)
	} else {
		t.children[s.Parent.Name] = append(t.children[s.Parent.Name], s)
	}
	return nil
}

// selection holds which streams emit records and which run at all.
type selection struct {
	selected map[string]bool
	needed   map[string]bool
}

// selectStreams applies exclude and skip_parent_streams. A stream is needed
// when it is selected or has a selected descendant.
func selectStreams(tree *StreamTree, cfg *domain.TapConfig) selection {
	sel := selection{
		selected: make(map[string]bool, len(tree.All)),
		needed:   make(map[string]bool, len(tree.All)),
	}
	for _, s := range tree.All {
		sel.selected[s.Name] = !cfg.IsExcluded(s.Name) && !(s.IsRoot() && cfg.SkipParentStreams)
	}
	for i := len(tree.All) - 1; i >= 0; i-- {
		s := tree.All[i]
		needed := sel.selected[s.Name]
		for _, child := range tree.Children(s.Name) {
			needed = needed || sel.needed[child.Name]
		}
		sel.needed[s.Name] = needed
	}
	return sel
}
