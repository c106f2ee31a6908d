// Package members records chat participants in Redis so that @handle
// targeting works without scanning the chat. Every inbound message upserts
// its sender; resolution is a cache lookup, never a chat API call.
package members

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/go-redis/redis/v8"

	"github.com/denbedilov/the-archivist/internal/club"
	"github.com/denbedilov/the-archivist/internal/models"
)

// Directory implements club.Directory on Redis.
type Directory struct {
	redis *redis.Client
}

// NewDirectory wraps a connected Redis client.
func NewDirectory(rdb *redis.Client) *Directory {
	return &Directory{redis: rdb}
}

func handlesKey(chatID int64) string {
	return fmt.Sprintf("club:%d:handles", chatID)
}

func membersKey(chatID int64) string {
	return fmt.Sprintf("club:%d:members", chatID)
}

// Record upserts one member. Handles are stored lowercased because chat
// handle matching is case-insensitive.
func (d *Directory) Record(ctx context.Context, chatID int64, member models.Member) error {
	payload, err := json.Marshal(member)
	if err != nil {
		return fmt.Errorf("marshal member: %w", err)
	}
	if err := d.redis.HSet(ctx, membersKey(chatID),
		strconv.FormatInt(member.ID, 10), payload).Err(); err != nil {
		return fmt.Errorf("record member: %w", err)
	}
	if member.Handle != "" {
		if err := d.redis.HSet(ctx, handlesKey(chatID),
			strings.ToLower(member.Handle), member.ID).Err(); err != nil {
			return fmt.Errorf("record handle: %w", err)
		}
	}
	return nil
}

// Resolve maps an @handle (without the @) to the recorded member.
func (d *Directory) Resolve(ctx context.Context, chatID int64, handle string) (models.Member, error) {
	idField, err := d.redis.HGet(ctx, handlesKey(chatID), strings.ToLower(handle)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Member{}, club.ErrUnknownMember
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("resolve handle @%s: %w", handle, err)
	}
	accountID, err := strconv.ParseInt(idField, 10, 64)
	if err != nil {
		return models.Member{}, fmt.Errorf("corrupt handle record @%s: %w", handle, err)
	}
	return d.Lookup(ctx, chatID, accountID)
}

// Lookup returns the recorded member for an account id.
func (d *Directory) Lookup(ctx context.Context, chatID, accountID int64) (models.Member, error) {
	payload, err := d.redis.HGet(ctx, membersKey(chatID), strconv.FormatInt(accountID, 10)).Result()
	if errors.Is(err, redis.Nil) {
		return models.Member{}, club.ErrUnknownMember
	}
	if err != nil {
		return models.Member{}, fmt.Errorf("lookup member %d: %w", accountID, err)
	}
	var member models.Member
	if err := json.Unmarshal([]byte(payload), &member); err != nil {
		return models.Member{}, fmt.Errorf("corrupt member record %d: %w", accountID, err)
	}
	return member, nil
}

// List returns every recorded chat member, oldest id first.
func (d *Directory) List(ctx context.Context, chatID int64) ([]models.Member, error) {
	records, err := d.redis.HGetAll(ctx, membersKey(chatID)).Result()
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	members := make([]models.Member, 0, len(records))
	for _, payload := range records {
		var member models.Member
		if err := json.Unmarshal([]byte(payload), &member); err != nil {
			continue // skip corrupt records rather than fail the listing
		}
		members = append(members, member)
	}
	sort.Slice(members, func(i, j int) bool { return members[i].ID < members[j].ID })
	return members, nil
}
