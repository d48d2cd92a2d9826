package bot

import (
	"errors"
	"fmt"

	"github.com/yurifrl/compta/pkg/extract"
	"github.com/yurifrl/compta/pkg/ledger"
	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/parser"
	"github.com/yurifrl/compta/pkg/reconcile"
	"github.com/yurifrl/compta/pkg/report"
	"github.com/yurifrl/compta/pkg/session"
	"github.com/yurifrl/compta/pkg/validate"
)

func (t *turn) startEntry() []Reply {
	t.sess.Reset(t.now)
	draft := models.NewRecord(t.now)
	t.sess.Draft = &draft
	t.sess.State = session.CollectingInput
	return []Reply{{Text: entryPrompt, Buttons: [][]Choice{menuRow}}}
}

// absorb extracts figures from the incoming message and merges them into the
// draft.
func (t *turn) absorb() []Reply {
	in := t.ev.Input
	fresh := t.sess.State == session.CollectingInput

	var existing *models.Record
	if !fresh {
		existing = t.sess.Draft
	}
	candidate, err := t.Extractor.Extract(t.ctx, in, existing, t.now)
	if err != nil {
		return t.extractionFailed(in.Kind, err)
	}

	base := t.sess.Draft
	if base == nil {
		blank := models.NewRecord(t.now)
		base = &blank
	}
	merged := reconcile.Reconcile(candidate, base)
	if merged.Date == "" {
		merged.Date = t.today()
	}

	res := t.Validator.Amounts(merged)
	if !res.OK() {
		return []Reply{{Text: errorsText(res.Errors), Buttons: [][]Choice{menuRow}}}
	}

	if fresh || merged.Date != base.Date || candidate.DatePhrase != "" {
		t.sess.DateUnconfirmed = true
		t.sess.DatePhrase = candidate.DatePhrase
	}
	t.sess.Draft = &merged
	t.sess.Warnings = warningMessages(res.Warnings)
	t.log.Debug("draft updated", "modality", in.Kind, "date", merged.Date, "changes", len(reconcile.Diff(*base, merged)))

	if verr := t.Validator.Date(merged.Date); verr != nil {
		t.sess.State = session.AwaitingDateFix
		return []Reply{{Text: errorsText([]*models.ValidationError{verr}) + "\n\n" + dateFixPrompt}}
	}
	return t.next()
}

func (t *turn) extractionFailed(kind extract.Kind, err error) []Reply {
	t.log.Warn("extraction failed", "modality", kind, "error", err)

	var ee *models.ExtractionError
	if errors.As(err, &ee) && ee.Reason != "" {
		return []Reply{{Text: "❌ " + ee.Reason, Buttons: [][]Choice{menuRow}}}
	}
	text := "❌ Type non supporté."
	switch kind {
	case extract.KindText:
		text = "❌ Je n'ai pas compris.\n\nEx : _CB 1200 ESP 450 TR 80_"
	case extract.KindImage:
		text = "❌ Image illisible.\n\n_Essaie en texte ou avec une photo plus nette._"
	case extract.KindAudio:
		text = "❌ Audio incompréhensible.\n\n_Réessaie ou écris les montants._"
	}
	return []Reply{{Text: text, Buttons: [][]Choice{menuRow}}}
}

func (t *turn) fixDate(text string) []Reply {
	if t.sess.Draft == nil {
		t.sess.Reset(t.now)
		return []Reply{{Text: staleAction, Buttons: [][]Choice{menuRow}}}
	}
	d := parser.ParseDate(text, t.now)
	if verr := t.Validator.Date(d.Date); verr != nil {
		return []Reply{{Text: "❌ " + verr.Message + "\n\n" + dateFixPrompt}}
	}
	t.sess.Draft.Date = d.Date
	if d.Relative() {
		t.sess.DatePhrase = d.Phrase
		t.sess.DateUnconfirmed = true
		return t.disambiguate()
	}
	t.sess.DatePhrase = ""
	t.sess.DateUnconfirmed = false
	return t.next()
}

// next moves a draft whose amounts are valid to its next pending step.
func (t *turn) next() []Reply {
	if len(t.sess.Warnings) > 0 {
		t.sess.State = session.AwaitingWarningAck
		return []Reply{warningsReply(t.sess.Warnings)}
	}
	if t.sess.DateUnconfirmed {
		return t.disambiguate()
	}
	return t.review()
}

func (t *turn) disambiguate() []Reply {
	timing := validate.Classify(t.sess.Draft.Date, t.now)
	if timing == validate.Today && t.sess.DatePhrase == "" {
		t.sess.DateUnconfirmed = false
		return t.review()
	}
	t.sess.State = session.AwaitingDateConfirm
	return []Reply{dateConfirmReply(t.sess.Draft.Date, t.sess.DatePhrase, timing)}
}

func (t *turn) review() []Reply {
	t.sess.State = session.Reviewing
	return []Reply{reviewReply(*t.sess.Draft)}
}

func (t *turn) send() []Reply {
	draft := *t.sess.Draft
	if res := t.Validator.Record(draft); !res.OK() {
		return []Reply{{Text: errorsText(res.Errors), Buttons: reviewReply(draft).Buttons}}
	}
	if t.sess.PastEdit && draft.Date == t.sess.OriginalDate {
		return t.commit()
	}

	err := t.checkOverwrite(draft)
	var conflict *models.ConflictError
	switch {
	case errors.As(err, &conflict):
		t.sess.Conflict = &conflict.Existing
		t.sess.State = session.AwaitingOverwriteDecision
		return []Reply{overwriteReply(conflict.Existing, draft)}
	case err != nil:
		t.log.Error("failed to check existing entry", "date", draft.Date, "error", err)
		return []Reply{{Text: "❌ Erreur de lecture du registre. Réessaie.", Buttons: reviewReply(draft).Buttons}}
	}
	return t.commit()
}

// checkOverwrite returns a ConflictError when the day already holds figures.
func (t *turn) checkOverwrite(draft models.Record) error {
	existing, err := t.Ledger.ReadDay(t.ctx, draft.Date)
	if err != nil {
		return err
	}
	if existing != nil && existing.HasActuals() {
		return &models.ConflictError{Date: draft.Date, Existing: *existing}
	}
	return nil
}

func (t *turn) commit() []Reply {
	draft := *t.sess.Draft
	replaced := t.sess.Conflict

	if err := t.Ledger.WriteDay(t.ctx, draft.Date, draft); err != nil {
		t.log.Error("failed to write day", "date", draft.Date, "error", err)
		t.sess.Conflict = nil
		t.sess.State = session.Reviewing
		return []Reply{{
			Text: "❌ Erreur envoi. Réessaie.\n\n_Ta saisie est conservée._",
			Buttons: [][]Choice{
				{choice("🔄 Réessayer", ActSend, "")},
				menuRow,
			},
		}}
	}
	t.log.Info("day committed", "date", draft.Date, "total", draft.TotalActual.String(), "declared", draft.TotalDeclared.String(), "replaced", replaced != nil)

	var note string
	if t.sess.PastEdit && t.sess.OriginalDate != "" && t.sess.OriginalDate != draft.Date {
		if err := t.Ledger.DeleteDay(t.ctx, t.sess.OriginalDate); err != nil && !errors.Is(err, ledger.ErrNoEntry) {
			t.log.Error("failed to clear moved day", "date", t.sess.OriginalDate, "error", err)
			note = fmt.Sprintf("\n\n⚠️ L'ancienne date (%s) n'a pas pu être effacée.", models.FormatDateShort(t.sess.OriginalDate))
		} else {
			t.deleted(t.sess.OriginalDate)
		}
	}
	t.committed(draft, replaced)

	t.sess.Reset(t.now)
	return []Reply{{
		Text: fmt.Sprintf("✅ *Envoyé en compta !*\n\n📅 %s\n💰 Déclaré : *%s*%s",
			models.FormatDateLong(draft.Date), models.FormatEUR(draft.TotalDeclared), note),
		Buttons: afterDoneButtons(),
	}}
}

func (t *turn) committed(r models.Record, replaced *models.Record) {
	for _, h := range t.Hooks {
		if err := h.DayCommitted(t.ctx, r, replaced); err != nil {
			t.log.Warn("commit hook failed", "date", r.Date, "error", err)
		}
	}
}

func (t *turn) deleted(date string) {
	for _, h := range t.Hooks {
		if err := h.DayDeleted(t.ctx, date); err != nil {
			t.log.Warn("delete hook failed", "date", date, "error", err)
		}
	}
}

func (t *turn) recap(offset int) []Reply {
	month := models.MonthOf(t.now).Offset(offset)
	rc, _, err := ledger.Recap(t.ctx, t.Ledger, month)
	if err != nil {
		t.log.Error("failed to load recap", "month", month, "error", err)
		return []Reply{storeFailure("Erreur lors du chargement.")}
	}
	return []Reply{recapReply(rc, offset)}
}

func (t *turn) cumul() []Reply {
	month := models.MonthOf(t.now)
	rc, _, err := ledger.Recap(t.ctx, t.Ledger, month)
	if err != nil {
		t.log.Error("failed to load cumul", "month", month, "error", err)
		return []Reply{storeFailure("Erreur lors du chargement.")}
	}
	return []Reply{cumulReply(rc)}
}

func (t *turn) pdf(offset int) []Reply {
	if t.Reports == nil {
		return []Reply{storeFailure("PDF indisponible.")}
	}
	month := models.MonthOf(t.now).Offset(offset)
	rc, records, err := ledger.Recap(t.ctx, t.Ledger, month)
	if err != nil {
		t.log.Error("failed to load month", "month", month, "error", err)
		return []Reply{storeFailure("Erreur lors du chargement.")}
	}
	data, err := t.Reports.Render(month, records, rc)
	if err != nil {
		t.log.Error("failed to render report", "month", month, "error", err)
		return []Reply{storeFailure("Erreur lors de la génération du PDF.")}
	}
	t.log.Info("report generated", "month", month, "days", rc.DaysFilled, "bytes", len(data))
	return []Reply{{
		Document: &Document{
			Name:    report.Filename(month),
			Data:    data,
			Caption: fmt.Sprintf("📄 *%s*\n\nPDF prêt pour ta comptable !", month.Label()),
		},
		Buttons: [][]Choice{menuRow},
	}}
}

// loadDay reads a day offered by the picker. A nil record with no replies
// means the caller should continue.
func (t *turn) loadDay(date string) (*models.Record, []Reply) {
	if t.Validator.Date(date) != nil {
		return nil, []Reply{{Text: staleAction, Buttons: [][]Choice{menuRow}}}
	}
	existing, err := t.Ledger.ReadDay(t.ctx, date)
	if err != nil {
		t.log.Error("failed to read day", "date", date, "error", err)
		return nil, []Reply{storeFailure("Erreur lors du chargement.")}
	}
	if existing == nil || existing.IsEmpty() {
		return nil, []Reply{emptyDayReply(date)}
	}
	return existing, nil
}

func (t *turn) pickModify(date string) []Reply {
	existing, replies := t.loadDay(date)
	if existing == nil {
		return replies
	}
	t.sess.Reset(t.now)
	r := existing.Persisted()
	t.sess.Draft = &r
	t.sess.PastEdit = true
	t.sess.OriginalDate = date
	t.sess.State = session.ModifyingPast
	return []Reply{{
		Text: fmt.Sprintf("🔧 *%s*\n\n%s\n\n✏️ *Que veux-tu modifier ?*\nEx : _CB 1500_ ou _total déclaré 2000_",
			models.FormatDateLong(date), figures(r)),
		Buttons: [][]Choice{
			{choice("📋 Voir le récap", ActBackToReview, "")},
			menuRow,
		},
	}}
}

func (t *turn) pickDelete(date string) []Reply {
	existing, replies := t.loadDay(date)
	if existing == nil {
		return replies
	}
	t.sess.Reset(t.now)
	t.sess.PendingDelete = date
	t.sess.State = session.AwaitingDeleteConfirm
	return []Reply{deleteConfirmReply(*existing)}
}

func (t *turn) deleteDay(date string) []Reply {
	if date != t.sess.PendingDelete {
		return []Reply{{Text: staleAction, Buttons: [][]Choice{menuRow}}}
	}
	err := t.Ledger.DeleteDay(t.ctx, date)
	switch {
	case errors.Is(err, ledger.ErrNoEntry):
		t.sess.Reset(t.now)
		return []Reply{emptyDayReply(date)}
	case err != nil:
		t.log.Error("failed to delete day", "date", date, "error", err)
		return []Reply{{
			Text:    "❌ Erreur lors de la suppression. Réessaie.",
			Buttons: deleteConfirmReply(models.Record{Date: date}).Buttons,
		}}
	}
	t.log.Info("day deleted", "date", date)
	t.deleted(date)
	t.sess.Reset(t.now)
	return []Reply{{
		Text:    fmt.Sprintf("✅ Recette du %s supprimée.", models.FormatDateLong(date)),
		Buttons: [][]Choice{menuRow},
	}}
}
