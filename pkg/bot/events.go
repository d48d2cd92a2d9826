package bot

import (
	"strings"

	"github.com/yurifrl/compta/pkg/extract"
)

// Action is the verb carried by a quick-reply button.
type Action string

const (
	ActMenu     Action = "menu"
	ActHelp     Action = "help"
	ActNewEntry Action = "new"
	ActRecap    Action = "recap"     // arg: month offset
	ActPDFMenu  Action = "pdf"       //
	ActPDF      Action = "pdf_month" // arg: month offset
	ActCumul    Action = "cumul"

	ActModifyPast Action = "past"
	ActPickModify Action = "past_day" // arg: date
	ActDeletePast Action = "del"
	ActPickDelete Action = "del_day" // arg: date
	ActDeleteOK   Action = "del_ok"  // arg: date

	ActSend          Action = "send"
	ActModifyAmounts Action = "edit"
	ActModifyDate    Action = "edit_date"
	ActBackToReview  Action = "back"

	ActWarnContinue Action = "warn_ok"
	ActWarnEdit     Action = "warn_edit"

	ActDateConfirm Action = "date_ok"
	ActDateFix     Action = "date_fix"
	ActDateToday   Action = "date_today"

	ActOverwriteReplace Action = "ow_yes"
	ActOverwriteCancel  Action = "ow_no"
)

// EncodeCallback packs an action and its optional argument into button data.
func EncodeCallback(a Action, arg string) string {
	if arg == "" {
		return string(a)
	}
	return string(a) + ":" + arg
}

// DecodeCallback is the inverse of EncodeCallback.
func DecodeCallback(data string) (Action, string) {
	a, arg, _ := strings.Cut(data, ":")
	return Action(a), arg
}

type EventKind int

const (
	EventCommand EventKind = iota
	EventButton
	EventMessage
)

// Event is one inbound user interaction.
type Event struct {
	Kind EventKind

	// Command is the slash command without the slash ("start", "recap").
	Command string

	Action Action
	Arg    string

	// Input carries text or media for EventMessage.
	Input extract.Input

	FirstName string
}

func Command(name string) Event {
	return Event{Kind: EventCommand, Command: strings.TrimPrefix(name, "/")}
}

func Button(data string) Event {
	a, arg := DecodeCallback(data)
	return Event{Kind: EventButton, Action: a, Arg: arg}
}

func Text(text string) Event {
	return Event{Kind: EventMessage, Input: extract.Input{Kind: extract.KindText, Text: text}}
}

func Media(in extract.Input) Event {
	return Event{Kind: EventMessage, Input: in}
}

// Choice is one quick-reply button.
type Choice struct {
	Label string
	Data  string
}

func choice(label string, a Action, arg string) Choice {
	return Choice{Label: label, Data: EncodeCallback(a, arg)}
}

// Document is a file attached to a reply.
type Document struct {
	Name    string
	Data    []byte
	Caption string
}

// Reply is one outbound message. Ephemeral replies are transient notices
// (for example a toast answering a button press) rather than chat messages.
type Reply struct {
	Text      string
	Buttons   [][]Choice
	Document  *Document
	Ephemeral bool
}

var menuRow = []Choice{choice("🏠 Menu principal", ActMenu, "")}
