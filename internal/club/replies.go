package club

import (
	"fmt"
	"strings"

	qrcode "github.com/skip2/go-qrcode"

	"github.com/denbedilov/the-archivist/internal/models"
)

// Reply phrasing lives here so the executor reads as business logic and the
// club's voice can be retuned in one place.

func textReply(format string, args ...any) *Reply {
	return &Reply{Text: fmt.Sprintf(format, args...)}
}

func replyNotAuthorized() *Reply {
	return textReply("Only key holders may open the safe.")
}

func replyMustBePositive() *Reply {
	return textReply("The amount must be a positive number of noirs.")
}

func replyBalance(balance int64) *Reply {
	return textReply("You carry %d noirs in your pocket.", balance)
}

func replyGranted(amount int64, target string) *Reply {
	return textReply("Handed %d noirs to %s.", amount, target)
}

func replyTaken(amount int64, target string) *Reply {
	return textReply("Took %d noirs from %s.", amount, target)
}

func replyInsufficient(target string, balance, requested int64) *Reply {
	return textReply("%s carries only %d noirs — %d cannot be taken.", target, balance, requested)
}

func replyGaveAway(amount int64, target string) *Reply {
	return textReply("You handed %d noirs to %s.", amount, target)
}

func replyThinPocket(balance, requested int64) *Reply {
	return textReply("Your pocket holds only %d noirs — you cannot part with %d.", balance, requested)
}

func replySelfTransfer() *Reply {
	return textReply("Moving noirs from one of your pockets to another changes nothing.")
}

func replyMemberNotFound(handle string) *Reply {
	return textReply("Nobody here answers to @%s.", handle)
}

func replyOwnRole(role *models.Role) *Reply {
	if role.Description != "" {
		return textReply("You are %q — %s.", role.Title, role.Description)
	}
	return textReply("You are %q.", role.Title)
}

func replyNoOwnRole() *Reply {
	return textReply("You hold no role. Yet.")
}

func replyTheirRole(who string, role *models.Role) *Reply {
	var text string
	if role.Description != "" {
		text = fmt.Sprintf("%s is %q — %s.", who, role.Title, role.Description)
	} else {
		text = fmt.Sprintf("%s is %q.", who, role.Title)
	}
	return &Reply{Text: text, PhotoRef: role.ImageRef}
}

func replyNoTheirRole(who string) *Reply {
	return textReply("%s holds no role.", who)
}

func replyBestowed(target, title string) *Reply {
	return textReply("%s is now %q.", target, title)
}

func replyRoleStripped(target string) *Reply {
	return textReply("%s walks untitled again.", target)
}

func replyRoleImageSet(target string) *Reply {
	return textReply("The portrait of %s has been archived.", target)
}

func replyKeyGranted(target string) *Reply {
	return textReply("%s now holds a key to the safe.", target)
}

func replyKeyRevoked(target string) *Reply {
	return textReply("%s no longer holds a key.", target)
}

func replyWagerWon(amount, payout, balance int64) *Reply {
	return textReply("The die shows %d. The safe pays %d noirs on your %d. You now carry %d.",
		WinningFace, payout, amount, balance)
}

func replyWagerLost(face int, amount, balance int64) *Reply {
	return textReply("The die shows %d. The safe keeps your %d noirs. You now carry %d.",
		face, amount, balance)
}

func replyPocketEmptied(target string) *Reply {
	return textReply("The pocket of %s has been emptied.", target)
}

func replyAllPocketsEmptied() *Reply {
	return textReply("Every pocket in the club is empty now.")
}

func replyPurgeAck() *Reply {
	return textReply("So be it. The club burns.")
}

func replyPurgeDone() *Reply {
	return textReply("Ashes. The archive starts over.")
}

func replyRating(accounts []models.Account, mention func(int64) string) *Reply {
	if len(accounts) == 0 {
		return textReply("Nobody carries any noirs yet.")
	}
	var b strings.Builder
	b.WriteString("The club's richest pockets:\n")
	for i, a := range accounts {
		fmt.Fprintf(&b, "%d. %s — %d noirs\n", i+1, mention(a.ID), a.Balance)
	}
	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func replyMembers(members []models.Member) *Reply {
	if len(members) == 0 {
		return textReply("The archive knows no members yet.")
	}
	var b strings.Builder
	b.WriteString("Known members of the club:\n")
	for _, m := range members {
		fmt.Fprintf(&b, "· %s\n", m.Mention())
	}
	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func replyKeyHolders(holders []models.Account, mention func(int64) string) *Reply {
	if len(holders) == 0 {
		return textReply("No one but the Curator holds a key.")
	}
	var b strings.Builder
	b.WriteString("Keys to the safe are held by:\n")
	for _, a := range holders {
		fmt.Fprintf(&b, "· %s\n", mention(a.ID))
	}
	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func replyRoles(roles []models.Role, mention func(int64) string) *Reply {
	if len(roles) == 0 {
		return textReply("No roles have been bestowed yet.")
	}
	var b strings.Builder
	b.WriteString("The club's appointed roles:\n")
	for _, r := range roles {
		fmt.Fprintf(&b, "· %s — %q\n", mention(r.AccountID), r.Title)
	}
	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func replyLedger(entries []models.LedgerEntry, mention func(int64) string) *Reply {
	if len(entries) == 0 {
		return textReply("The ledger is empty.")
	}
	var b strings.Builder
	b.WriteString("The last pages of the ledger:\n")
	for _, e := range entries {
		fmt.Fprintf(&b, "%s %+d — %s (by %s)\n", mention(e.AccountID), e.Delta, e.Reason, mention(e.ActorID))
	}
	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func replyCommands(isCurator bool) *Reply {
	var b strings.Builder
	b.WriteString("The Archivist answers to:\n")
	b.WriteString("· pocket — your balance\n")
	b.WriteString("· my role / role (as a reply) — who you or they are\n")
	b.WriteString("· give N (as a reply) — hand over your own noirs\n")
	b.WriteString("· wager N " + DieToken + " — stake noirs on a die\n")
	b.WriteString("· rating, members, roles, key holders, ledger, club — the records\n")
	b.WriteString("· grant N / take N — mint or burn noirs (key holders)\n")
	if isCurator {
		b.WriteString("· bestow \"Title\" description, strip role, grant key, revoke key\n")
		b.WriteString("· empty pocket, empty all pockets, burn the club\n")
	}
	return &Reply{Text: strings.TrimRight(b.String(), "\n")}
}

func replyClubInfo(inviteLink string) (*Reply, error) {
	text := "A closed club, a shared ledger, one Curator. Noirs move only by these commands."
	if inviteLink == "" {
		return &Reply{Text: text}, nil
	}
	png, err := qrcode.Encode(inviteLink, qrcode.Medium, 256)
	if err != nil {
		return nil, fmt.Errorf("encode invite qr: %w", err)
	}
	return &Reply{Text: text, Photo: png}, nil
}

func replyGenericFailure() *Reply {
	return textReply("The archive is unreachable. Try again later.")
}
