// Package extract turns raw operator input (typed text, a photo of the till
// receipt, a voice note) into a candidate ledger record.
package extract

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yurifrl/compta/pkg/models"
)

type Kind int

const (
	KindText Kind = iota
	KindImage
	KindAudio
)

func (k Kind) String() string {
	switch k {
	case KindImage:
		return "image"
	case KindAudio:
		return "audio"
	default:
		return "text"
	}
}

// Input is one inbound message. Data is only set for media.
type Input struct {
	Kind     Kind
	Text     string
	Data     []byte
	MIMEType string
	Size     int64
	Duration time.Duration
}

// Extractor produces a candidate record. existing is the record currently in
// progress (nil when starting from scratch) so that an edit like "cb 1200"
// can be interpreted against it. Failures are *models.ExtractionError.
type Extractor interface {
	Extract(ctx context.Context, in Input, existing *models.Record, now time.Time) (models.Partial, error)
}

// Limits bounds accepted media.
type Limits struct {
	MaxFileBytes int64
	MaxAudio     time.Duration
}

func DefaultLimits() Limits {
	return Limits{MaxFileBytes: 20 << 20, MaxAudio: 3 * time.Minute}
}

// Check rejects media the extractor should not even try to read.
func (l Limits) Check(in Input) error {
	if in.Kind == KindText {
		return nil
	}
	if l.MaxFileBytes > 0 && in.Size > l.MaxFileBytes {
		return &models.ExtractionError{
			Modality: in.Kind.String(),
			Reason:   fmt.Sprintf("Fichier trop lourd (max %dMB).", l.MaxFileBytes>>20),
		}
	}
	if in.MIMEType != "" && !strings.HasPrefix(in.MIMEType, "image/") && !strings.HasPrefix(in.MIMEType, "audio/") {
		return &models.ExtractionError{
			Modality: in.Kind.String(),
			Reason:   "Format non supporté. Envoie une image ou un audio.",
		}
	}
	if in.Kind == KindAudio && l.MaxAudio > 0 && in.Duration > l.MaxAudio {
		return &models.ExtractionError{
			Modality: in.Kind.String(),
			Reason:   fmt.Sprintf("Audio trop long (max %d min).", int(l.MaxAudio.Minutes())),
		}
	}
	return nil
}

// KindOf guesses the kind of a document from its MIME type.
func KindOf(mimeType string) Kind {
	switch {
	case strings.HasPrefix(mimeType, "image/"):
		return KindImage
	case strings.HasPrefix(mimeType, "audio/"):
		return KindAudio
	default:
		return KindText
	}
}
