package extract

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/parser"
)

// Chain reads typed text with the keyword grammar and only calls the fallback
// (normally Gemini) for media or text the grammar does not understand.
type Chain struct {
	grammar  parser.Grammar
	fallback Extractor
	limits   Limits
	logger   *log.Logger
}

// NewChain builds a chain. fallback may be nil, in which case media input is
// rejected.
func NewChain(grammar parser.Grammar, fallback Extractor, limits Limits, logger *log.Logger) *Chain {
	return &Chain{grammar: grammar, fallback: fallback, limits: limits, logger: logger}
}

// Extract implements Extractor.
func (c *Chain) Extract(ctx context.Context, in Input, existing *models.Record, now time.Time) (models.Partial, error) {
	if err := c.limits.Check(in); err != nil {
		return models.Partial{}, err
	}

	if in.Kind == KindText {
		p, err := c.grammar.Parse(in.Text, now)
		if err == nil {
			return p, nil
		}
		if !errors.Is(err, parser.ErrNoAmounts) {
			return models.Partial{}, &models.ExtractionError{Modality: in.Kind.String(), Err: err}
		}
		c.logger.Debug("grammar found nothing, falling back", "text", in.Text)
	}

	if c.fallback == nil {
		reason := "Je n'ai trouvé aucun montant. Exemple : CB 1000 ESP 500 TR 100"
		if in.Kind != KindText {
			reason = "Lecture des photos et audios indisponible, envoie les montants en texte."
		}
		return models.Partial{}, &models.ExtractionError{Modality: in.Kind.String(), Reason: reason}
	}
	return c.fallback.Extract(ctx, in, existing, now)
}

// GrammarOnly adapts a Grammar to the Extractor interface for text input.
type GrammarOnly struct {
	Grammar parser.Grammar
}

func (g GrammarOnly) Extract(_ context.Context, in Input, _ *models.Record, now time.Time) (models.Partial, error) {
	if in.Kind != KindText {
		return models.Partial{}, &models.ExtractionError{Modality: in.Kind.String(), Reason: "texte uniquement"}
	}
	p, err := g.Grammar.Parse(in.Text, now)
	if err != nil {
		return models.Partial{}, &models.ExtractionError{Modality: in.Kind.String(), Err: err}
	}
	return p, nil
}
