package club

import (
	"context"
	"fmt"
)

// Decision is the outcome of an authorization check.
type Decision int

const (
	// Allow lets the command proceed.
	Allow Decision = iota
	// Deny stops the command with an explicit "not authorized" reply.
	Deny
	// Ignore stops the command with no reply at all. Curator-only commands
	// are ignored for everyone else so their existence is not disclosed.
	Ignore
)

// tier is the minimum standing a command demands.
type tier int

const (
	tierEveryone tier = iota
	tierKeyHolder
	tierCurator
)

var commandTiers = map[Command]tier{
	CmdPocket:     tierEveryone,
	CmdMyRole:     tierEveryone,
	CmdTheirRole:  tierEveryone,
	CmdCommands:   tierEveryone,
	CmdClubInfo:   tierEveryone,
	CmdRating:     tierEveryone,
	CmdMembers:    tierEveryone,
	CmdKeyHolders: tierEveryone,
	CmdRoles:      tierEveryone,
	CmdLedger:     tierEveryone,
	CmdGive:       tierEveryone,
	CmdWager:      tierEveryone,

	CmdGrant: tierKeyHolder,
	CmdTake:  tierKeyHolder,

	CmdBestow:          tierCurator,
	CmdStripRole:       tierCurator,
	CmdGrantKey:        tierCurator,
	CmdRevokeKey:       tierCurator,
	CmdEmptyPocket:     tierCurator,
	CmdEmptyAllPockets: tierCurator,
	CmdBurnClub:        tierCurator,
	CmdRoleImage:       tierCurator,
}

// KeyChecker is the slice of the store the policy needs.
type KeyChecker interface {
	HasKey(ctx context.Context, accountID int64) (bool, error)
}

// Policy decides whether an actor may run a command. Tiers are strict: the
// Curator passes everything, key holders additionally pass the key tier,
// everyone passes the everyone tier.
type Policy struct {
	curatorID int64
	keys      KeyChecker
}

// NewPolicy builds a policy around the statically configured Curator id.
func NewPolicy(curatorID int64, keys KeyChecker) *Policy {
	return &Policy{curatorID: curatorID, keys: keys}
}

// IsCurator reports whether the actor is the Curator.
func (p *Policy) IsCurator(actorID int64) bool {
	return actorID == p.curatorID
}

// Decide evaluates the actor against the command's tier. Key-tier denials
// are explicit; Curator-tier denials are silent.
func (p *Policy) Decide(ctx context.Context, actorID int64, cmd Command) (Decision, error) {
	if p.IsCurator(actorID) {
		return Allow, nil
	}
	switch commandTiers[cmd] {
	case tierEveryone:
		return Allow, nil
	case tierKeyHolder:
		hasKey, err := p.keys.HasKey(ctx, actorID)
		if err != nil {
			return Ignore, fmt.Errorf("check key for %d: %w", actorID, err)
		}
		if hasKey {
			return Allow, nil
		}
		return Deny, nil
	default:
		return Ignore, nil
	}
}
