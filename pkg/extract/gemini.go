package extract

import (
	"context"
	"fmt"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"

	"github.com/yurifrl/compta/pkg/models"
)

const DefaultModel = "gemini-2.0-flash"

var promptTemplate = template.Must(template.New("prompt").Parse(`Tu aides un restaurateur à saisir la recette de sa journée.
Nous sommes le {{.Today}}.

Extrais uniquement les montants réellement mentionnés :
- cb : carte bancaire (réel)
- espece : espèces (réel)
- ticket_restaurant : tickets restaurant (réel)
- depense : dépenses payées en caisse (réel)
- total_declare : total déclaré, seulement s'il est donné explicitement. Ne le calcule jamais.
- tr_declare : tickets restaurant déclarés, seulement s'ils sont donnés
- dep_declare : dépenses déclarées, seulement si elles sont données
- date : au format YYYY-MM-DD si une date est mentionnée
- date_phrase : le mot utilisé si la date est relative (hier, demain, aujourd'hui, avant-hier)

Règles :
- N'invente aucun montant.
- Un champ non mentionné vaut null. Un montant dit "zéro" vaut 0.
- Pour une photo de ticket de caisse, lis les totaux par moyen de paiement.
- Pour un audio, transcris puis applique les mêmes règles.
{{if .Existing}}
Saisie en cours de modification :
date {{.Existing.Date}}, cb {{.Existing.CardActual}}, espece {{.Existing.CashActual}}, ticket_restaurant {{.Existing.MealVoucherActual}}, depense {{.Existing.ExpenseActual}}, total_declare {{.Existing.TotalDeclared}}, tr_declare {{.Existing.MealVoucherDeclared}}, dep_declare {{.Existing.ExpenseDeclared}}.
Ne renvoie que les champs que l'utilisateur veut changer, les autres à null.
{{end}}
Réponds uniquement avec un objet JSON :
{"date": null, "date_phrase": null, "cb": null, "espece": null, "ticket_restaurant": null, "depense": null, "total_declare": null, "tr_declare": null, "dep_declare": null}
{{if .Text}}
Message :
{{.Text}}{{end}}`))

// Gemini reads text, receipt photos and voice notes through the Gemini API.
type Gemini struct {
	client *genai.Client
	model  *genai.GenerativeModel
	logger *log.Logger
}

func NewGemini(ctx context.Context, apiKey, model string, logger *log.Logger) (*Gemini, error) {
	if apiKey == "" {
		return nil, fmt.Errorf("gemini: missing api key")
	}
	if model == "" {
		model = DefaultModel
	}
	client, err := genai.NewClient(ctx, option.WithAPIKey(apiKey))
	if err != nil {
		return nil, fmt.Errorf("gemini: create client: %w", err)
	}
	m := client.GenerativeModel(model)
	m.SetTemperature(0.1)
	m.SetMaxOutputTokens(500)
	m.ResponseMIMEType = "application/json"

	return &Gemini{client: client, model: m, logger: logger}, nil
}

func (g *Gemini) Close() error {
	return g.client.Close()
}

// Extract implements Extractor.
func (g *Gemini) Extract(ctx context.Context, in Input, existing *models.Record, now time.Time) (models.Partial, error) {
	fail := func(reason string, err error) (models.Partial, error) {
		return models.Partial{}, &models.ExtractionError{Modality: in.Kind.String(), Reason: reason, Err: err}
	}

	var prompt strings.Builder
	err := promptTemplate.Execute(&prompt, struct {
		Today    string
		Text     string
		Existing *models.Record
	}{now.Format(models.DateLayout), in.Text, existing})
	if err != nil {
		return fail("", err)
	}

	parts := []genai.Part{genai.Text(prompt.String())}
	if in.Kind != KindText {
		if len(in.Data) == 0 {
			return fail("fichier vide", nil)
		}
		parts = append(parts, genai.Blob{MIMEType: in.MIMEType, Data: in.Data})
	}

	g.logger.Debug("calling gemini", "kind", in.Kind, "bytes", len(in.Data), "editing", existing != nil)
	resp, err := g.model.GenerateContent(ctx, parts...)
	if err != nil {
		return fail("", err)
	}

	answer := responseText(resp)
	if answer == "" {
		return fail("réponse vide", nil)
	}
	draft, err := DecodeDraft(answer)
	if err != nil {
		g.logger.Debug("unreadable gemini answer", "answer", answer)
		return fail("réponse illisible", err)
	}
	p := draft.Partial()
	if p.IsEmpty() {
		return fail("aucun montant trouvé", nil)
	}
	return p, nil
}

func responseText(resp *genai.GenerateContentResponse) string {
	if resp == nil {
		return ""
	}
	var b strings.Builder
	for _, c := range resp.Candidates {
		if c.Content == nil {
			continue
		}
		for _, part := range c.Content.Parts {
			if t, ok := part.(genai.Text); ok {
				b.WriteString(string(t))
			}
		}
		break
	}
	return b.String()
}
