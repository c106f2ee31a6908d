package club

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"

	"github.com/denbedilov/the-archivist/internal/models"
	"github.com/denbedilov/the-archivist/internal/store"
)

// defaultReason is written to the ledger when a mutation carries no reason.
const defaultReason = "no reason given"

// ExecutorConfig carries the executor's deployment knobs.
type ExecutorConfig struct {
	InviteLink string        // club invite rendered as a QR on "club"
	PurgeGrace time.Duration // pause between the purge ack and the wipe
}

// Executor runs classified commands against the ledger store. One instance
// serves all chats; every mutation is a single store transaction, so
// concurrent commands against the same account serialize there.
type Executor struct {
	store     store.Store
	policy    *Policy
	directory Directory
	notifier  Notifier
	roll      Roller
	validator *ValidationHelper
	cfg       ExecutorConfig
}

// NewExecutor wires the executor. The roller is injectable so wager tests
// can force an outcome.
func NewExecutor(st store.Store, policy *Policy, directory Directory, notifier Notifier, roll Roller, cfg ExecutorConfig) *Executor {
	return &Executor{
		store:     st,
		policy:    policy,
		directory: directory,
		notifier:  notifier,
		roll:      roll,
		validator: NewValidationHelper(),
		cfg:       cfg,
	}
}

// Handle takes one inbound message through classify → authorize → extract →
// execute. A nil reply means stay silent. A non-nil error is a collaborator
// failure; it is logged here and the generic failure reply is returned so
// one broken message never poisons the next.
func (e *Executor) Handle(ctx context.Context, msg *Message) (*Reply, error) {
	cmd := Classify(msg)
	if cmd == CmdNone {
		return nil, nil
	}

	decision, err := e.policy.Decide(ctx, msg.Sender.ID, cmd)
	if err != nil {
		log.Printf("[EXEC] authorization check failed for %d on %q: %v", msg.Sender.ID, cmd, err)
		return replyGenericFailure(), err
	}
	switch decision {
	case Deny:
		log.Printf("[EXEC] denied %q to %d", cmd, msg.Sender.ID)
		return replyNotAuthorized(), nil
	case Ignore:
		log.Printf("[EXEC] ignored %q from %d", cmd, msg.Sender.ID)
		return nil, nil
	}

	args, err := Extract(msg, cmd)
	if err != nil {
		var malformed *FormatError
		if errors.As(err, &malformed) {
			return textReply("%s", malformed.Hint), nil
		}
		return replyGenericFailure(), err
	}

	reply, err := e.execute(ctx, cmd, msg, args)
	if err != nil {
		log.Printf("[EXEC] %q from %d failed: %v", cmd, msg.Sender.ID, err)
		return replyGenericFailure(), err
	}
	return reply, nil
}

func (e *Executor) execute(ctx context.Context, cmd Command, msg *Message, args Args) (*Reply, error) {
	switch cmd {
	case CmdPocket:
		return e.pocket(ctx, msg)
	case CmdMyRole:
		return e.myRole(ctx, msg)
	case CmdTheirRole:
		return e.theirRole(ctx, msg)
	case CmdCommands:
		return replyCommands(e.policy.IsCurator(msg.Sender.ID)), nil
	case CmdClubInfo:
		return replyClubInfo(e.cfg.InviteLink)
	case CmdRating:
		return e.rating(ctx, msg)
	case CmdMembers:
		return e.members(ctx, msg)
	case CmdKeyHolders:
		return e.keyHolders(ctx, msg)
	case CmdRoles:
		return e.roles(ctx, msg)
	case CmdLedger:
		return e.ledger(ctx, msg)
	case CmdGrant:
		return e.grant(ctx, msg, args)
	case CmdTake:
		return e.take(ctx, msg, args)
	case CmdGive:
		return e.give(ctx, msg, args)
	case CmdWager:
		return e.wager(ctx, msg, args)
	case CmdBestow:
		return e.bestow(ctx, msg, args)
	case CmdStripRole:
		return e.stripRole(ctx, msg)
	case CmdGrantKey:
		return e.setKey(ctx, msg, true)
	case CmdRevokeKey:
		return e.setKey(ctx, msg, false)
	case CmdRoleImage:
		return e.roleImage(ctx, msg)
	case CmdEmptyPocket:
		return e.emptyPocket(ctx, msg)
	case CmdEmptyAllPockets:
		return e.emptyAllPockets(ctx, msg)
	case CmdBurnClub:
		return e.burnClub(ctx, msg)
	default:
		return nil, nil
	}
}

func (e *Executor) pocket(ctx context.Context, msg *Message) (*Reply, error) {
	balance, err := e.store.Balance(ctx, msg.Sender.ID)
	if err != nil {
		return nil, err
	}
	return replyBalance(balance), nil
}

func (e *Executor) myRole(ctx context.Context, msg *Message) (*Reply, error) {
	role, err := e.store.Role(ctx, msg.Sender.ID)
	if errors.Is(err, store.ErrNoRole) {
		return replyNoOwnRole(), nil
	}
	if err != nil {
		return nil, err
	}
	if !role.HasTitle() {
		return replyNoOwnRole(), nil
	}
	return replyOwnRole(role), nil
}

func (e *Executor) theirRole(ctx context.Context, msg *Message) (*Reply, error) {
	target := *msg.ReplyTo
	role, err := e.store.Role(ctx, target.ID)
	if errors.Is(err, store.ErrNoRole) {
		return replyNoTheirRole(target.Mention()), nil
	}
	if err != nil {
		return nil, err
	}
	if !role.HasTitle() {
		// The title was stripped; a surviving portrait is still shown.
		reply := replyNoTheirRole(target.Mention())
		reply.PhotoRef = role.ImageRef
		return reply, nil
	}
	return replyTheirRole(target.Mention(), role), nil
}

func (e *Executor) rating(ctx context.Context, msg *Message) (*Reply, error) {
	top, err := e.store.TopBalances(ctx, 10)
	if err != nil {
		return nil, err
	}
	return replyRating(top, e.mention(ctx, msg.ChatID)), nil
}

func (e *Executor) members(ctx context.Context, msg *Message) (*Reply, error) {
	members, err := e.directory.List(ctx, msg.ChatID)
	if err != nil {
		return nil, err
	}
	return replyMembers(members), nil
}

func (e *Executor) keyHolders(ctx context.Context, msg *Message) (*Reply, error) {
	holders, err := e.store.KeyHolders(ctx)
	if err != nil {
		return nil, err
	}
	return replyKeyHolders(holders, e.mention(ctx, msg.ChatID)), nil
}

func (e *Executor) roles(ctx context.Context, msg *Message) (*Reply, error) {
	roles, err := e.store.RolesWithTitles(ctx)
	if err != nil {
		return nil, err
	}
	return replyRoles(roles, e.mention(ctx, msg.ChatID)), nil
}

func (e *Executor) ledger(ctx context.Context, msg *Message) (*Reply, error) {
	entries, err := e.store.RecentEntries(ctx, 5)
	if err != nil {
		return nil, err
	}
	return replyLedger(entries, e.mention(ctx, msg.ChatID)), nil
}

func (e *Executor) grant(ctx context.Context, msg *Message, args Args) (*Reply, error) {
	if err := e.validator.ValidateStruct(&amountArgs{Amount: args.Amount}); err != nil {
		return replyMustBePositive(), nil
	}
	target, reject, err := e.resolveTarget(ctx, msg, args)
	if reject != nil || err != nil {
		return reject, err
	}
	if _, err := e.store.Credit(ctx, target.ID, args.Amount, defaultReason, msg.Sender.ID); err != nil {
		return nil, err
	}
	return replyGranted(args.Amount, target.Mention()), nil
}

func (e *Executor) take(ctx context.Context, msg *Message, args Args) (*Reply, error) {
	if err := e.validator.ValidateStruct(&amountArgs{Amount: args.Amount}); err != nil {
		return replyMustBePositive(), nil
	}
	target, reject, err := e.resolveTarget(ctx, msg, args)
	if reject != nil || err != nil {
		return reject, err
	}
	_, err = e.store.Debit(ctx, target.ID, args.Amount, defaultReason, msg.Sender.ID)
	var insufficient *store.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return replyInsufficient(target.Mention(), insufficient.Balance, insufficient.Requested), nil
	}
	if err != nil {
		return nil, err
	}
	return replyTaken(args.Amount, target.Mention()), nil
}

func (e *Executor) give(ctx context.Context, msg *Message, args Args) (*Reply, error) {
	if err := e.validator.ValidateStruct(&amountArgs{Amount: args.Amount}); err != nil {
		return replyMustBePositive(), nil
	}
	target := *msg.ReplyTo
	reason := "transfer " + uuid.NewString()
	err := e.store.Transfer(ctx, msg.Sender.ID, target.ID, args.Amount, reason, msg.Sender.ID)
	if errors.Is(err, store.ErrSameAccount) {
		return replySelfTransfer(), nil
	}
	var insufficient *store.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return replyThinPocket(insufficient.Balance, insufficient.Requested), nil
	}
	if err != nil {
		return nil, err
	}
	return replyGaveAway(args.Amount, target.Mention()), nil
}

func (e *Executor) wager(ctx context.Context, msg *Message, args Args) (*Reply, error) {
	if err := e.validator.ValidateStruct(&amountArgs{Amount: args.Amount}); err != nil {
		return replyMustBePositive(), nil
	}
	balance, err := e.store.Balance(ctx, msg.Sender.ID)
	if err != nil {
		return nil, err
	}
	if balance < args.Amount {
		return replyThinPocket(balance, args.Amount), nil
	}

	face := e.roll()
	if face == WinningFace {
		payout := args.Amount * int64(WinningFace)
		reason := fmt.Sprintf("wager won on a %d", face)
		after, err := e.store.Credit(ctx, msg.Sender.ID, payout, reason, msg.Sender.ID)
		if err != nil {
			return nil, err
		}
		return replyWagerWon(args.Amount, payout, after), nil
	}

	reason := fmt.Sprintf("wager lost on a %d", face)
	after, err := e.store.Debit(ctx, msg.Sender.ID, args.Amount, reason, msg.Sender.ID)
	var insufficient *store.InsufficientBalanceError
	if errors.As(err, &insufficient) {
		return replyThinPocket(insufficient.Balance, insufficient.Requested), nil
	}
	if err != nil {
		return nil, err
	}
	return replyWagerLost(face, args.Amount, after), nil
}

func (e *Executor) bestow(ctx context.Context, msg *Message, args Args) (*Reply, error) {
	if err := e.validator.ValidateStruct(&bestowArgs{Title: args.Title}); err != nil {
		return textReply("A role needs a title."), nil
	}
	target := *msg.ReplyTo
	if err := e.store.UpsertRole(ctx, target.ID, args.Title, args.Description); err != nil {
		return nil, err
	}
	return replyBestowed(target.Mention(), args.Title), nil
}

func (e *Executor) stripRole(ctx context.Context, msg *Message) (*Reply, error) {
	target := *msg.ReplyTo
	if err := e.store.ClearRole(ctx, target.ID); err != nil {
		return nil, err
	}
	return replyRoleStripped(target.Mention()), nil
}

func (e *Executor) setKey(ctx context.Context, msg *Message, hasKey bool) (*Reply, error) {
	target := *msg.ReplyTo
	if err := e.store.SetKey(ctx, target.ID, hasKey); err != nil {
		return nil, err
	}
	if hasKey {
		return replyKeyGranted(target.Mention()), nil
	}
	return replyKeyRevoked(target.Mention()), nil
}

func (e *Executor) roleImage(ctx context.Context, msg *Message) (*Reply, error) {
	target := *msg.ReplyTo
	if err := e.store.SetRoleImage(ctx, target.ID, msg.PhotoRef); err != nil {
		return nil, err
	}
	return replyRoleImageSet(target.Mention()), nil
}

func (e *Executor) emptyPocket(ctx context.Context, msg *Message) (*Reply, error) {
	target := *msg.ReplyTo
	if err := e.store.ResetBalance(ctx, target.ID, msg.Sender.ID); err != nil {
		return nil, err
	}
	return replyPocketEmptied(target.Mention()), nil
}

func (e *Executor) emptyAllPockets(ctx context.Context, msg *Message) (*Reply, error) {
	if err := e.store.ResetAllBalances(ctx, msg.Sender.ID); err != nil {
		return nil, err
	}
	return replyAllPocketsEmptied(), nil
}

// burnClub destroys all ledger state. The ack lands first, then a short
// grace pause, then the wipe in one store transaction. The action is logged
// to the process log because the ledger it would be logged to is the thing
// being destroyed.
func (e *Executor) burnClub(ctx context.Context, msg *Message) (*Reply, error) {
	log.Printf("[PURGE] club purge ordered by %d in chat %d", msg.Sender.ID, msg.ChatID)
	if e.notifier != nil {
		e.notifier.Notify(msg.ChatID, replyPurgeAck().Text)
	}
	if e.cfg.PurgeGrace > 0 {
		select {
		case <-time.After(e.cfg.PurgeGrace):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err := e.store.Purge(ctx); err != nil {
		return nil, err
	}
	log.Printf("[PURGE] ledger state destroyed")
	return replyPurgeDone(), nil
}

// resolveTarget picks the command's target: the replied-to author when the
// message is a reply, otherwise the @handle looked up in the directory. A
// non-nil reject reply means the target could not be resolved.
func (e *Executor) resolveTarget(ctx context.Context, msg *Message, args Args) (models.Member, *Reply, error) {
	if msg.IsReply() {
		return *msg.ReplyTo, nil, nil
	}
	member, err := e.directory.Resolve(ctx, msg.ChatID, args.Handle)
	if errors.Is(err, ErrUnknownMember) {
		return models.Member{}, replyMemberNotFound(args.Handle), nil
	}
	if err != nil {
		return models.Member{}, nil, err
	}
	return member, nil, nil
}

// mention renders an account id the way the chat knows the member, falling
// back to the bare id for accounts the directory has never seen.
func (e *Executor) mention(ctx context.Context, chatID int64) func(int64) string {
	return func(accountID int64) string {
		member, err := e.directory.Lookup(ctx, chatID, accountID)
		if err != nil {
			return fmt.Sprintf("member %d", accountID)
		}
		return member.Mention()
	}
}
