// Package knowledge resolves the per-business knowledge base consulted by
// the chat widget: services, FAQ, opening hours, contact email.
package knowledge

import (
	"context"
	"errors"

	"github.com/vitrineapp/vitrine-ai-platform/pkg/logging"
)

// ErrNotFound indicates no stored record exists for a slug.
var ErrNotFound = errors.New("knowledge: business not found")

// Source provides stored knowledge bases, typically projected from the
// business record store. Implementations return ErrNotFound (possibly
// wrapped) for unknown slugs.
type Source interface {
	KnowledgeBase(ctx context.Context, slug string) (*KnowledgeBase, error)
}

// Resolver produces the effective knowledge base for a request.
// Resolution order: caller-supplied payload, stored record, built-in
// default, absent.
type Resolver struct {
	source   Source
	defaults map[string]*KnowledgeBase
	logger   *logging.Logger
}

// NewResolver builds a resolver. source may be nil (no record store
// configured); defaults may be nil to disable the built-in catalog.
func NewResolver(source Source, defaults map[string]*KnowledgeBase, logger *logging.Logger) *Resolver {
	if logger == nil {
		logger = logging.Default()
	}
	return &Resolver{
		source:   source,
		defaults: defaults,
		logger:   logger,
	}
}

// Resolve returns the effective knowledge base for slug, or nil when none
// applies. A caller-supplied payload is trusted verbatim. Store lookup
// failures are logged and degrade to the next source: the chat flow must
// keep answering even when the record store is down.
func (r *Resolver) Resolve(ctx context.Context, slug string, payload *KnowledgeBase) *KnowledgeBase {
	if payload != nil {
		return payload
	}

	if r.source != nil {
		kb, err := r.source.KnowledgeBase(ctx, slug)
		switch {
		case err == nil && kb != nil:
			return kb
		case errors.Is(err, ErrNotFound):
			// fall through to defaults
		case err != nil:
			r.logger.Warn("knowledge lookup failed, falling back", "slug", slug, "error", err)
		}
	}

	if kb, ok := r.defaults[slug]; ok {
		return kb
	}
	return nil
}
