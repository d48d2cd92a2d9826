package parser

import (
	"errors"
	"regexp"
	"strings"
	"time"
	"unicode"

	"github.com/shopspring/decimal"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"

	"github.com/yurifrl/compta/pkg/models"
)

// ErrNoAmounts is returned when a message carries neither an amount nor a date
// the grammar understands.
var ErrNoAmounts = errors.New("no recognisable amount")

// Grammar turns a free-text message into a candidate record. Fields the
// message does not mention stay absent.
type Grammar interface {
	Parse(text string, now time.Time) (models.Partial, error)
}

type category int

const (
	catNone category = iota
	catCard
	catCash
	catMealVoucher
	catExpense
	catTotal
)

var categoryNames = map[string]category{
	"cb":    catCard,
	"esp":   catCash,
	"tr":    catMealVoucher,
	"dep":   catExpense,
	"total": catTotal,
}

// defaultKeywords are folded (lower case, no accents).
var defaultKeywords = map[string]category{
	"cb":          catCard,
	"carte":       catCard,
	"cartes":      catCard,
	"bleue":       catCard,
	"esp":         catCash,
	"espece":      catCash,
	"especes":     catCash,
	"cash":        catCash,
	"liquide":     catCash,
	"liquides":    catCash,
	"tr":          catMealVoucher,
	"ticket":      catMealVoucher,
	"tickets":     catMealVoucher,
	"resto":       catMealVoucher,
	"restaurant":  catMealVoucher,
	"dep":         catExpense,
	"depense":     catExpense,
	"depenses":    catExpense,
	"total":       catTotal,
	"declare":     catTotal,
	"declares":    catTotal,
	"declaree":    catTotal,
	"declarees":   catTotal,
	"decl":        catTotal,
	"declaration": catTotal,
}

var qualifiers = map[string]bool{
	"declare":   true,
	"declares":  true,
	"declaree":  true,
	"declarees": true,
	"decl":      true,
}

// Parser is the keyword grammar used for typed reports ("CB 1000 ESP 500")
// and targeted edits ("tr déclaré 40").
type Parser struct {
	keywords map[string]category
}

type Option func(*Parser)

// WithKeywords adds synonyms. Keys are words, values one of cb, esp, tr, dep
// or total. Unknown categories are ignored.
func WithKeywords(extra map[string]string) Option {
	return func(p *Parser) {
		for word, name := range extra {
			if c, ok := categoryNames[fold(name)]; ok {
				p.keywords[fold(word)] = c
			}
		}
	}
}

func New(opts ...Option) *Parser {
	p := &Parser{keywords: make(map[string]category, len(defaultKeywords))}
	for k, v := range defaultKeywords {
		p.keywords[k] = v
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

var tokenPattern = regexp.MustCompile(`\d{1,2}/\d{1,2}(?:/\d{2,4})?|\d{4}-\d{2}-\d{2}|\d{1,3}(?:[ .\x{a0}\x{202f}]\d{3})+(?:,\d+)?\b|\d+(?:[.,]\d+)?|[a-z]+(?:['-][a-z]+)*`)

// groupedAmount is a French amount with thousands separators: "1.200",
// "1 200,50". The comma is the decimal separator.
var groupedAmount = regexp.MustCompile(`^(\d{1,3})((?:[ .\x{a0}\x{202f}]\d{3})+)(,\d+)?$`)

type token struct {
	word   string
	number decimal.Decimal
	isNum  bool
	date   string
	// ambiguous marks a number whose grouping cannot be read safely.
	ambiguous bool
}

// phrase is a category keyword plus the qualifiers that follow it.
type phrase struct {
	cat      category
	declared bool
	pos      int
}

// Parse implements Grammar.
func (p *Parser) Parse(text string, now time.Time) (models.Partial, error) {
	var out models.Partial
	tokens := tokenize(fold(text), now)
	for _, t := range tokens {
		if t.ambiguous {
			return out, ErrNoAmounts
		}
	}

	// Dates first, so "10/06" is not read as an amount.
	for i := 0; i < len(tokens); i++ {
		t := tokens[i]
		if t.date != "" {
			out.Date, out.DatePhrase = t.date, ""
			continue
		}
		if t.isNum {
			continue
		}
		candidate := t.word
		if t.word == "avant" && i+1 < len(tokens) && tokens[i+1].word == "hier" {
			candidate = "avant hier"
			i++
		}
		if rel, ok := relativeDays[candidate]; ok {
			out.Date = now.AddDate(0, 0, rel.offset).Format(models.DateLayout)
			out.DatePhrase = rel.label
		}
	}

	phrases, numbers := p.group(tokens)
	numberFirst := len(numbers) > 0 && len(phrases) > 0 && numbers[0] < phrases[0].pos

	used := make(map[int]bool)
	for _, ph := range phrases {
		var idx int
		if numberFirst {
			idx = previousNumber(tokens, ph.pos, used)
		} else {
			idx = nextNumber(tokens, ph.pos, used)
		}
		if idx < 0 {
			continue
		}
		used[idx] = true
		field, ok := ph.field()
		if !ok {
			continue
		}
		amount := tokens[idx].number
		if prev, seen := out.Get(field).Get(); seen && !ph.declared && field != models.TotalActual {
			// "cb 500 carte 200" adds up.
			amount = prev.Add(amount)
		}
		out.Set(field, amount)
	}

	if out.IsEmpty() {
		return out, ErrNoAmounts
	}
	return out, nil
}

func (ph phrase) field() (models.Field, bool) {
	switch ph.cat {
	case catCard:
		// Declared card is always the actual card.
		return models.CardActual, true
	case catCash:
		if ph.declared {
			return 0, false
		}
		return models.CashActual, true
	case catMealVoucher:
		if ph.declared {
			return models.MealVoucherDeclared, true
		}
		return models.MealVoucherActual, true
	case catExpense:
		if ph.declared {
			return models.ExpenseDeclared, true
		}
		return models.ExpenseActual, true
	case catTotal:
		if ph.declared {
			return models.TotalDeclared, true
		}
		return models.TotalActual, true
	}
	return 0, false
}

// group collapses keywords and their qualifiers into phrases and returns the
// positions of the amount tokens.
func (p *Parser) group(tokens []token) ([]phrase, []int) {
	var phrases []phrase
	var numbers []int
	open := -1
	for i, t := range tokens {
		switch {
		case t.isNum:
			numbers = append(numbers, i)
			open = -1
		case t.date != "":
			open = -1
		case qualifiers[t.word] && open >= 0:
			phrases[open].declared = true
		default:
			c, ok := p.keywords[t.word]
			if !ok {
				continue
			}
			ph := phrase{cat: c, pos: i}
			if qualifiers[t.word] {
				ph.declared = true
			}
			phrases = append(phrases, ph)
			open = len(phrases) - 1
		}
	}
	return phrases, numbers
}

func nextNumber(tokens []token, from int, used map[int]bool) int {
	for i := from + 1; i < len(tokens); i++ {
		if tokens[i].isNum {
			if used[i] {
				return -1
			}
			return i
		}
		if tokens[i].date != "" {
			return -1
		}
	}
	return -1
}

func previousNumber(tokens []token, from int, used map[int]bool) int {
	for i := from - 1; i >= 0; i-- {
		if tokens[i].isNum {
			if used[i] {
				return -1
			}
			return i
		}
		if tokens[i].date != "" {
			return -1
		}
	}
	return -1
}

func tokenize(s string, now time.Time) []token {
	var tokens []token
	for _, loc := range tokenPattern.FindAllStringIndex(s, -1) {
		raw := s[loc[0]:loc[1]]
		switch {
		case strings.Contains(raw, "/") || (strings.Count(raw, "-") == 2 && raw[0] >= '0' && raw[0] <= '9'):
			tokens = append(tokens, token{date: ParseDate(raw, now).Date})
		case groupedAmount.MatchString(raw):
			tokens = append(tokens, groupedToken(raw, s[loc[1]:]))
		case raw[0] >= '0' && raw[0] <= '9':
			if d, err := decimal.NewFromString(strings.Replace(raw, ",", ".", 1)); err == nil {
				tokens = append(tokens, token{number: d, isNum: true})
			}
		default:
			tokens = append(tokens, token{word: raw})
		}
	}
	return tokens
}

// groupedToken reads a thousands-grouped amount. Space grouping is only
// trusted for a single group after one or two digits: "100 200" could be two
// amounts and "1 200 500" three.
func groupedToken(raw, rest string) token {
	m := groupedAmount.FindStringSubmatch(raw)
	spaced := strings.IndexFunc(m[2], func(r rune) bool { return r != '.' && (r < '0' || r > '9') }) >= 0
	groups := len(strings.FieldsFunc(m[2], func(r rune) bool { return r < '0' || r > '9' }))
	if spaced && (groups > 1 || len(m[1]) == 3) {
		return token{ambiguous: true}
	}
	// "1 200.50" or "1.200,50,3": separators that do not add up.
	if len(rest) > 1 && (rest[0] == '.' || rest[0] == ',') && rest[1] >= '0' && rest[1] <= '9' {
		return token{ambiguous: true}
	}
	digits := m[1] + strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, m[2])
	if m[3] != "" {
		digits += "." + m[3][1:]
	}
	d, err := decimal.NewFromString(digits)
	if err != nil {
		return token{ambiguous: true}
	}
	return token{number: d, isNum: true}
}

var lower = cases.Lower(language.French)

// fold lower-cases s and strips accents: "Dépense Déclarée" becomes
// "depense declaree". Typographic apostrophes are normalised.
func fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	out = strings.ReplaceAll(out, "’", "'")
	return lower.String(out)
}

// Fold exposes the grammar's normalisation so spreadsheet headers and typed
// text are matched the same way.
func Fold(s string) string {
	return fold(s)
}
