package domain

import (
	"strings"
	"unicode"
	"unicode/utf8"
)

// TicketStatus is the canonical status value stored on a ticket.
type TicketStatus string

const (
	TicketStatusInProgress        TicketStatus = "diproses"
	TicketStatusOnHold            TicketStatus = "on hold"
	TicketStatusWaitingThirdParty TicketStatus = "waiting third party"
	TicketStatusDone              TicketStatus = "done"
)

// statusEntry ties an internal status to its display label and every
// accepted input spelling. Aliases are lower case.
type statusEntry struct {
	status  TicketStatus
	display string
	aliases []string
}

// statusTable is the only place status spellings are defined. Input
// parsing, display projection and list filters all read from it.
var statusTable = []statusEntry{
	{status: TicketStatusInProgress, aliases: []string{"diproses"}},
	{status: TicketStatusOnHold, aliases: []string{"on hold"}},
	{status: TicketStatusWaitingThirdParty, display: "Menunggu Approval", aliases: []string{"menunggu approval", "waiting third party"}},
	{status: TicketStatusDone, display: "Done", aliases: []string{"done"}},
}

var statusByAlias = func() map[string]TicketStatus {
	m := make(map[string]TicketStatus)
	for _, entry := range statusTable {
		for _, alias := range entry.aliases {
			m[alias] = entry.status
		}
	}
	return m
}()

// ParseStatus case-folds input and resolves it to an internal status.
// Surrounding whitespace is ignored.
func ParseStatus(input string) (TicketStatus, bool) {
	status, ok := statusByAlias[strings.ToLower(strings.TrimSpace(input))]
	return status, ok
}

// AcceptedStatusInputs lists every accepted input spelling in table order.
func AcceptedStatusInputs() []string {
	out := make([]string, 0, len(statusByAlias))
	for _, entry := range statusTable {
		out = append(out, entry.aliases...)
	}
	return out
}

// Statuses returns the internal statuses in lifecycle order.
func Statuses() []TicketStatus {
	out := make([]TicketStatus, len(statusTable))
	for i, entry := range statusTable {
		out[i] = entry.status
	}
	return out
}

// DisplayLabel projects a status to the label shown to staff and chat users.
// Statuses without an explicit label get their first letter capitalized.
func (s TicketStatus) DisplayLabel() string {
	folded := TicketStatus(strings.ToLower(string(s)))
	for _, entry := range statusTable {
		if entry.status == folded && entry.display != "" {
			return entry.display
		}
	}
	return capitalizeFirst(string(s))
}

// IsTerminal reports whether no further transition is permitted.
func (s TicketStatus) IsTerminal() bool {
	return strings.EqualFold(string(s), string(TicketStatusDone))
}

func capitalizeFirst(s string) string {
	if s == "" {
		return s
	}
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + s[size:]
}
