package bot

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/yurifrl/compta/pkg/models"
	"github.com/yurifrl/compta/pkg/validate"
)

const helpText = `📖 *AIDE*

➕ *Nouvelle recette*
Envoie une photo du ticket Z, un message vocal ou écris les montants.
Ex : _CB 1200 ESP 450 TR 80_

✏️ *Modifier*
Change un montant : _CB 1500_, _TR déclaré 50_, _total déclaré 2000_

📅 *Dates*
_15/01_, _15/01/2025_, _hier_, _demain_

📊 *Récap du mois*
Réel, déclaré et non déclaré du mois en cours ou précédent.

📄 *PDF*
Le récapitulatif déclaré à envoyer à ta comptable.

💰 *Cumul*
Le non déclaré cumulé du mois en cours.

🔧 *Modifier / 🗑️ Supprimer*
Une recette des 7 derniers jours.`

const entryPrompt = "📝 *Envoie-moi la recette :*\n\n📸 Photo du ticket\n🎤 Message vocal\n✍️ Ou écris les montants"

const modifyPrompt = "✏️ *Que veux-tu modifier ?*\n\nEx :\n• _CB 1200_\n• _TR déclaré 50_\n• _total déclaré 1500_"

const dateFixPrompt = "📅 *Envoie la date :*\n\n• JJ/MM (ex: 15/01)\n• JJ/MM/AAAA\n• hier, demain"

const useButtons = "👆 Utilise les boutons ci-dessus."

const staleAction = "Cette action n'est plus disponible."

func menuReply(firstName string) Reply {
	greeting := "👋"
	if firstName != "" {
		greeting = "👋 *" + firstName + "*"
	}
	return Reply{
		Text: greeting + "\n\n🍽️ *Compta du resto*\n\n_Que veux-tu faire ?_",
		Buttons: [][]Choice{
			{choice("➕ Nouvelle recette", ActNewEntry, "")},
			{choice("📊 Récap du mois", ActRecap, "0"), choice("💰 Cumul", ActCumul, "")},
			{choice("🔧 Modifier", ActModifyPast, ""), choice("🗑️ Supprimer", ActDeletePast, "")},
			{choice("📄 PDF comptable", ActPDFMenu, ""), choice("❓ Aide", ActHelp, "")},
		},
	}
}

func bullets(lines []string) string {
	var b strings.Builder
	for _, l := range lines {
		b.WriteString("\n• ")
		b.WriteString(l)
	}
	return b.String()
}

func errorsText(errs []*models.ValidationError) string {
	lines := make([]string, len(errs))
	for i, e := range errs {
		lines[i] = e.Message
	}
	return "❌ *Erreur :*\n" + bullets(lines)
}

func warningsReply(warnings []string) Reply {
	return Reply{
		Text: "⚠️ *Attention :*\n" + bullets(warnings),
		Buttons: [][]Choice{
			{choice("✅ Continuer", ActWarnContinue, ""), choice("✏️ Modifier", ActWarnEdit, "")},
		},
	}
}

func warningMessages(ws []*models.ValidationWarning) []string {
	out := make([]string, len(ws))
	for i, w := range ws {
		out[i] = w.Message
	}
	return out
}

func figures(r models.Record) string {
	return fmt.Sprintf(
		"*RÉEL*\nCB : %s\nESP : %s\nTR : %s\nDép : %s\n*Total : %s*\n\n*DÉCLARÉ*\nCB : %s\nESP : %s\nTR : %s\nDép : %s\n*Total : %s*\n\n💸 Non déclaré : *%s*",
		models.FormatEUR(r.CardActual),
		models.FormatEUR(r.CashActual),
		models.FormatEUR(r.MealVoucherActual),
		models.FormatEUR(r.ExpenseActual),
		models.FormatEUR(r.TotalActual),
		models.FormatEUR(r.CardDeclared()),
		models.FormatEUR(r.CashDeclared()),
		models.FormatEUR(r.MealVoucherDeclared),
		models.FormatEUR(r.ExpenseDeclared),
		models.FormatEUR(r.TotalDeclared),
		models.FormatEUR(r.Undeclared),
	)
}

func reviewReply(r models.Record) Reply {
	return Reply{
		Text: fmt.Sprintf("📋 *RÉCAPITULATIF*\n📅 %s\n\n%s", models.FormatDateLong(r.Date), figures(r)),
		Buttons: [][]Choice{
			{choice("✅ Envoyer en compta !", ActSend, "")},
			{choice("📅 Date", ActModifyDate, ""), choice("✏️ Montants", ActModifyAmounts, "")},
			menuRow,
		},
	}
}

func dateConfirmReply(date, phrase string, timing validate.Timing) Reply {
	long := models.FormatDateLong(date)
	if phrase != "" {
		return Reply{
			Text: fmt.Sprintf("📅 *%s* = %s\n\nC'est bien ça ?", phrase, long),
			Buttons: [][]Choice{
				{choice("✅ Oui", ActDateConfirm, ""), choice("✏️ Non, autre date", ActDateFix, "")},
			},
		}
	}
	kind := "Date passée"
	if timing == validate.Future {
		kind = "Date future"
	}
	return Reply{
		Text: fmt.Sprintf("📅 *%s :* %s\n\nCorrect ?", kind, long),
		Buttons: [][]Choice{
			{choice("✅ Oui", ActDateConfirm, ""), choice("📅 Aujourd'hui", ActDateToday, "")},
			{choice("✏️ Corriger", ActDateFix, "")},
		},
	}
}

func overwriteReply(existing, draft models.Record) Reply {
	return Reply{
		Text: fmt.Sprintf("⚠️ *ATTENTION !*\n\n%s a déjà une recette :\n\nAncienne : %s\nNouvelle : %s\n\nRemplacer ?",
			models.FormatDateLong(draft.Date), models.FormatEUR(existing.TotalActual), models.FormatEUR(draft.TotalActual)),
		Buttons: [][]Choice{
			{choice("🔄 Oui, remplacer", ActOverwriteReplace, ""), choice("❌ Non, annuler", ActOverwriteCancel, "")},
		},
	}
}

func afterDoneButtons() [][]Choice {
	return [][]Choice{{choice("➕ Nouvelle recette", ActNewEntry, ""), choice("🏠 Menu", ActMenu, "")}}
}

func recapReply(rc models.Recap, offset int) Reply {
	nav := choice("⬅️ Mois précédent", ActRecap, "-1")
	if offset != 0 {
		nav = choice("➡️ Mois en cours", ActRecap, "0")
	}
	buttons := [][]Choice{{nav}, menuRow}

	if rc.DaysFilled == 0 {
		return Reply{Text: fmt.Sprintf("📊 *%s*\n\nAucune donnée pour ce mois.", rc.Month.Label()), Buttons: buttons}
	}
	text := fmt.Sprintf(
		"📊 *%s*\n\n*RÉEL*\nCB : %s\nESP : %s\nTR : %s\nDép : %s\n*Total : %s*\n\n*DÉCLARÉ*\nCB : %s\nESP : %s\nTR : %s\nDép : %s\n*Total : %s*\n\n💸 *Non déclaré : %s*\n\n📅 Jours remplis : %d/%d",
		rc.Month.Label(),
		models.FormatEUR(rc.TotalCard),
		models.FormatEUR(rc.TotalCash),
		models.FormatEUR(rc.TotalMealVoucher),
		models.FormatEUR(rc.TotalExpense),
		models.FormatEUR(rc.TotalActual),
		models.FormatEUR(rc.CardDeclared),
		models.FormatEUR(rc.CashDeclared),
		models.FormatEUR(rc.MealVoucherDeclared),
		models.FormatEUR(rc.ExpenseDeclared),
		models.FormatEUR(rc.TotalDeclared),
		models.FormatEUR(rc.TotalUndeclared),
		rc.DaysFilled, rc.Month.Days(),
	)
	return Reply{Text: text, Buttons: buttons}
}

func cumulReply(rc models.Recap) Reply {
	return Reply{
		Text: fmt.Sprintf("💰 *CUMUL NON DÉCLARÉ*\n%s\n\n*%s*\n\n_%d jour(s) rempli(s)_",
			rc.Month.Label(), models.FormatEUR(rc.TotalUndeclared), rc.DaysFilled),
		Buttons: [][]Choice{menuRow},
	}
}

func pdfMenuReply(now time.Time) Reply {
	cur := models.MonthOf(now)
	return Reply{
		Text: "📄 *PDF pour la comptable*\n\nQuel mois ?",
		Buttons: [][]Choice{
			{choice("📄 "+cur.Label(), ActPDF, "0")},
			{choice("📄 "+cur.Offset(-1).Label(), ActPDF, "-1")},
			menuRow,
		},
	}
}

// pickerReply lists the last days of the current month, most recent first.
func pickerReply(title string, pick Action, now time.Time, days int) Reply {
	month := models.MonthOf(now)
	var rows [][]Choice
	var row []Choice
	for i := 0; i < days; i++ {
		day := now.Day() - i
		if day < 1 {
			break
		}
		date := month.Date(day)
		label := models.FormatDateShort(date)
		switch i {
		case 0:
			label = "Auj."
		case 1:
			label = "Hier"
		}
		row = append(row, choice(label, pick, date))
		if len(row) == 4 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	rows = append(rows, menuRow)
	return Reply{Text: title, Buttons: rows}
}

func emptyDayReply(date string) Reply {
	return Reply{
		Text: fmt.Sprintf("📅 %s\n\nAucune recette ce jour.", models.FormatDateLong(date)),
		Buttons: [][]Choice{
			{choice("➕ Ajouter", ActNewEntry, ""), choice("🏠 Menu", ActMenu, "")},
		},
	}
}

func deleteConfirmReply(r models.Record) Reply {
	return Reply{
		Text: fmt.Sprintf("⚠️ *SUPPRIMER ?*\n\n📅 %s\nTotal réel : %s\nTotal déclaré : %s",
			models.FormatDateLong(r.Date), models.FormatEUR(r.TotalActual), models.FormatEUR(r.TotalDeclared)),
		Buttons: [][]Choice{
			{choice("🗑️ Oui, supprimer", ActDeleteOK, r.Date), choice("❌ Non, annuler", ActMenu, "")},
		},
	}
}

func storeFailure(what string) Reply {
	return Reply{Text: "❌ " + what, Buttons: [][]Choice{menuRow}}
}

func parseOffset(arg string) int {
	n, err := strconv.Atoi(arg)
	if err != nil || n > 0 {
		return 0
	}
	return n
}
