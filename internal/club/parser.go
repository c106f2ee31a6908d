package club

import (
	"regexp"
	"strconv"
	"strings"
)

// Command identifies one recognized command shape.
type Command int

const (
	CmdNone Command = iota
	CmdPocket
	CmdMyRole
	CmdTheirRole
	CmdCommands
	CmdClubInfo
	CmdRating
	CmdMembers
	CmdKeyHolders
	CmdRoles
	CmdLedger
	CmdGrant
	CmdTake
	CmdGive
	CmdBestow
	CmdStripRole
	CmdGrantKey
	CmdRevokeKey
	CmdWager
	CmdEmptyPocket
	CmdEmptyAllPockets
	CmdBurnClub
	CmdRoleImage
)

func (c Command) String() string {
	switch c {
	case CmdPocket:
		return "pocket"
	case CmdMyRole:
		return "my role"
	case CmdTheirRole:
		return "role"
	case CmdCommands:
		return "commands"
	case CmdClubInfo:
		return "club"
	case CmdRating:
		return "rating"
	case CmdMembers:
		return "members"
	case CmdKeyHolders:
		return "key holders"
	case CmdRoles:
		return "roles"
	case CmdLedger:
		return "ledger"
	case CmdGrant:
		return "grant"
	case CmdTake:
		return "take"
	case CmdGive:
		return "give"
	case CmdBestow:
		return "bestow"
	case CmdStripRole:
		return "strip role"
	case CmdGrantKey:
		return "grant key"
	case CmdRevokeKey:
		return "revoke key"
	case CmdWager:
		return "wager"
	case CmdEmptyPocket:
		return "empty pocket"
	case CmdEmptyAllPockets:
		return "empty all pockets"
	case CmdBurnClub:
		return "burn the club"
	case CmdRoleImage:
		return "role image"
	default:
		return "none"
	}
}

// DieToken is the fixed suffix a wager must carry.
const DieToken = "🎲"

// roleImageMarker starts the caption of a photo that sets a role image.
const roleImageMarker = "role image"

// Args carries the extracted, typed arguments of a parsed command. Amount
// keeps its sign; the executor enforces positivity separately so "must be
// positive" and "malformed" stay distinct failures.
type Args struct {
	Amount      int64
	Handle      string // @handle target without the @, empty when reply-targeted
	Title       string
	Description string
}

// FormatError is a recognized-command-with-bad-arguments failure. Its hint
// is shown to the user; unknown commands never produce one.
type FormatError struct {
	Hint string
}

func (e *FormatError) Error() string { return e.Hint }

// rule is one row of the command grammar: an ordered (predicate, extractor)
// pair. Rules are evaluated top to bottom and the first match wins, so exact
// phrases sit above the prefix verbs they would otherwise collide with
// ("grant key" before "grant N").
type rule struct {
	cmd     Command
	match   func(m *Message, lowered string) bool
	extract func(m *Message, trimmed string) (Args, error)
}

func exact(phrase string) func(*Message, string) bool {
	return func(_ *Message, lowered string) bool { return lowered == phrase }
}

func prefix(verb string) func(*Message, string) bool {
	return func(_ *Message, lowered string) bool { return strings.HasPrefix(lowered, verb+" ") }
}

func noArgs(*Message, string) (Args, error) { return Args{}, nil }

func replyOnly(hint string) func(*Message, string) (Args, error) {
	return func(m *Message, _ string) (Args, error) {
		if !m.IsReply() {
			return Args{}, &FormatError{Hint: hint}
		}
		return Args{}, nil
	}
}

var bestowPattern = regexp.MustCompile(`^(?i)bestow\s+"([^"]+)"\s*(.*)$`)

var rules = []rule{
	{cmd: CmdPocket, match: exact("pocket"), extract: noArgs},
	{cmd: CmdMyRole, match: exact("my role"), extract: noArgs},
	{cmd: CmdTheirRole, match: exact("role"),
		extract: replyOnly("Reply to someone's message with 'role' to see who they are.")},
	{cmd: CmdCommands, match: exact("commands"), extract: noArgs},
	{cmd: CmdClubInfo, match: exact("club"), extract: noArgs},
	{cmd: CmdRating, match: exact("rating"), extract: noArgs},
	{cmd: CmdMembers, match: exact("members"), extract: noArgs},
	{cmd: CmdKeyHolders, match: exact("key holders"), extract: noArgs},
	{cmd: CmdRoles, match: exact("roles"), extract: noArgs},
	{cmd: CmdLedger, match: exact("ledger"), extract: noArgs},

	// Exact key phrases must precede the amount verbs.
	{cmd: CmdGrantKey, match: exact("grant key"),
		extract: replyOnly("Reply to the member who should hold a key.")},
	{cmd: CmdRevokeKey, match: exact("revoke key"),
		extract: replyOnly("Reply to the member whose key should be taken.")},

	{cmd: CmdGrant, match: prefix("grant"), extract: extractTargetedAmount("grant")},
	{cmd: CmdTake, match: prefix("take"), extract: extractTargetedAmount("take")},
	{cmd: CmdGive, match: prefix("give"), extract: extractGive},
	{cmd: CmdBestow, match: prefix("bestow"), extract: extractBestow},
	{cmd: CmdStripRole, match: exact("strip role"),
		extract: replyOnly("Reply to the member whose role should be stripped.")},
	{cmd: CmdWager, match: prefix("wager"), extract: extractWager},
	{cmd: CmdEmptyPocket, match: exact("empty pocket"),
		extract: replyOnly("Reply to the member whose pocket should be emptied.")},
	{cmd: CmdEmptyAllPockets, match: exact("empty all pockets"), extract: noArgs},
	{cmd: CmdBurnClub, match: exact("burn the club"), extract: noArgs},
}

// Classify maps a message to a command without touching its arguments.
// Unrecognized text yields CmdNone, which the dispatcher ignores silently.
func Classify(m *Message) Command {
	lowered := strings.ToLower(strings.TrimSpace(m.Text))
	if m.PhotoRef != "" {
		if strings.HasPrefix(lowered, roleImageMarker) {
			return CmdRoleImage
		}
		return CmdNone
	}
	for _, r := range rules {
		if r.match(m, lowered) {
			return r.cmd
		}
	}
	return CmdNone
}

// Extract pulls the typed arguments for an already classified command. A
// *FormatError means the command was recognized but its arguments were not.
func Extract(m *Message, cmd Command) (Args, error) {
	if cmd == CmdRoleImage {
		if !m.IsReply() {
			return Args{}, &FormatError{Hint: "Send the image as a reply to the member it belongs to."}
		}
		return Args{}, nil
	}
	trimmed := strings.TrimSpace(m.Text)
	for _, r := range rules {
		if r.cmd == cmd {
			return r.extract(m, trimmed)
		}
	}
	return Args{}, nil
}

// extractTargetedAmount parses "verb N" when sent as a reply, or
// "verb @handle N" otherwise. The integer keeps its sign.
func extractTargetedAmount(verb string) func(*Message, string) (Args, error) {
	replyPattern := regexp.MustCompile(`^(?i)` + verb + `\s+(-?\d+)$`)
	handlePattern := regexp.MustCompile(`^(?i)` + verb + `\s+@(\w+)\s+(-?\d+)$`)
	return func(m *Message, trimmed string) (Args, error) {
		if m.IsReply() {
			match := replyPattern.FindStringSubmatch(trimmed)
			if match == nil {
				return Args{}, &FormatError{Hint: "Wrong format. Example: '" + verb + " 5'."}
			}
			amount, err := strconv.ParseInt(match[1], 10, 64)
			if err != nil {
				return Args{}, &FormatError{Hint: "That is not a number the ledger can hold."}
			}
			return Args{Amount: amount}, nil
		}
		match := handlePattern.FindStringSubmatch(trimmed)
		if match == nil {
			return Args{}, &FormatError{Hint: "Wrong format. Example: '" + verb + " @member 5'."}
		}
		amount, err := strconv.ParseInt(match[2], 10, 64)
		if err != nil {
			return Args{}, &FormatError{Hint: "That is not a number the ledger can hold."}
		}
		return Args{Handle: match[1], Amount: amount}, nil
	}
}

var givePattern = regexp.MustCompile(`^(?i)give\s+(-?\d+)$`)

func extractGive(m *Message, trimmed string) (Args, error) {
	if !m.IsReply() {
		return Args{}, &FormatError{Hint: "Reply to the member you want to give noirs to. Example: 'give 5'."}
	}
	match := givePattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Args{}, &FormatError{Hint: "Wrong format. Example: 'give 5'."}
	}
	amount, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Args{}, &FormatError{Hint: "That is not a number the ledger can hold."}
	}
	return Args{Amount: amount}, nil
}

func extractBestow(m *Message, trimmed string) (Args, error) {
	if !m.IsReply() {
		return Args{}, &FormatError{Hint: "Reply to the member receiving the role. Example: 'bestow \"Envoy\" keeper of quiet words'."}
	}
	match := bestowPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Args{}, &FormatError{Hint: "The title must be quoted. Example: 'bestow \"Envoy\" keeper of quiet words'."}
	}
	return Args{Title: match[1], Description: strings.TrimSpace(match[2])}, nil
}

var wagerPattern = regexp.MustCompile(`^(?i)wager\s+(-?\d+)\s+` + DieToken + `$`)

func extractWager(_ *Message, trimmed string) (Args, error) {
	match := wagerPattern.FindStringSubmatch(trimmed)
	if match == nil {
		return Args{}, &FormatError{Hint: "Wrong format. Example: 'wager 5 " + DieToken + "'."}
	}
	amount, err := strconv.ParseInt(match[1], 10, 64)
	if err != nil {
		return Args{}, &FormatError{Hint: "That is not a number the ledger can hold."}
	}
	return Args{Amount: amount}, nil
}
