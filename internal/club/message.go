// Package club implements the Archivist's command surface: the rule table
// that maps chat messages to commands, the authorization tiers, and the
// executor that mutates the ledger store. The package never touches a
// transport type; adapters build Message values and render Reply values.
package club

import (
	"context"
	"errors"

	"github.com/denbedilov/the-archivist/internal/models"
)

// Message is one inbound chat message as the transport hands it to the core.
type Message struct {
	ChatID   int64
	Sender   models.Member
	Text     string
	PhotoRef string         // opaque attachment reference, empty when none
	ReplyTo  *models.Member // author of the replied-to message, nil otherwise
}

// IsReply reports whether the message was sent as a reply to someone.
func (m *Message) IsReply() bool {
	return m.ReplyTo != nil
}

// Reply is what the core hands back for the transport to render. A nil
// *Reply means stay silent.
type Reply struct {
	Text     string
	Photo    []byte // inline PNG attachment (club invite QR)
	PhotoRef string // previously uploaded image to re-send (role image)
}

// ErrUnknownMember is returned by a Directory when a handle or account id
// cannot be resolved within the chat.
var ErrUnknownMember = errors.New("member not found")

// Directory resolves chat members. Backed by the transport-fed member cache;
// resolution failures are reported to the user, never retried.
type Directory interface {
	// Resolve maps an @handle (without the @) to the member who carries it.
	Resolve(ctx context.Context, chatID int64, handle string) (models.Member, error)

	// Lookup returns the recorded member for an account id.
	Lookup(ctx context.Context, chatID, accountID int64) (models.Member, error)

	// List returns every recorded member of the chat.
	List(ctx context.Context, chatID int64) ([]models.Member, error)
}

// Notifier lets long-running commands send an interim message before their
// final reply. Only the club purge uses it.
type Notifier interface {
	Notify(chatID int64, text string)
}
