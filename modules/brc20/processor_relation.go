package brc20

import (
	"context"

	"github.com/cockroachdb/errors"
	"github.com/subfrost/brc20shrew/common/errs"
	"github.com/subfrost/brc20shrew/modules/brc20/internal/ordinals"
)

// resolveRelations validates and records the parent and delegate references of
// a freshly created inscription. Parent ids were already narrowed to
// inscriptions carried by the reveal tx inputs; delegates are accepted only
// when the target exists and linking would not close a delegation cycle.
func (p *Processor) resolveRelations(ctx context.Context, entry *ordinals.InscriptionEntry) error {
	if len(entry.Inscription.Parents) > 0 {
		p.newInscriptionParents[entry.Id] = entry.Inscription.Parents
	}

	if entry.Inscription.Delegate == nil {
		return nil
	}
	target := *entry.Inscription.Delegate

	if _, err := p.getInscriptionEntryById(ctx, target); err != nil {
		if errors.Is(err, errs.NotFound) {
			// dangling delegate, content falls back to the inscription's own
			return nil
		}
		return errors.Wrap(err, "failed to get delegate target entry")
	}

	// walk the validated delegate chain from the target; reaching the source
	// again would close a cycle, so the link is refused
	cursor := target
	for {
		if cursor == entry.Id {
			return nil
		}
		next, err := p.getInscriptionDelegate(ctx, cursor)
		if err != nil {
			if errors.Is(err, errs.NotFound) {
				break
			}
			return errors.Wrap(err, "failed to walk delegate chain")
		}
		cursor = next
	}

	p.newInscriptionDelegates[entry.Id] = target
	return nil
}

func (p *Processor) getInscriptionDelegate(ctx context.Context, source ordinals.InscriptionId) (ordinals.InscriptionId, error) {
	if delegate, ok := p.newInscriptionDelegates[source]; ok {
		return delegate, nil
	}
	delegate, err := p.brc20Dg.GetInscriptionDelegate(ctx, source)
	if err != nil {
		return ordinals.InscriptionId{}, errors.WithStack(err)
	}
	return delegate, nil
}
