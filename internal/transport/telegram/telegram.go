// Package telegram adapts Telegram updates to the club's Message/Reply
// contract. No telebot type leaks into internal/club.
package telegram

import (
	"bytes"
	"context"
	"log"
	"time"

	tele "gopkg.in/telebot.v3"

	"github.com/denbedilov/the-archivist/internal/club"
	"github.com/denbedilov/the-archivist/internal/members"
	"github.com/denbedilov/the-archivist/internal/models"
)

// handleTimeout bounds one command execution, store calls included.
const handleTimeout = 30 * time.Second

// Bot is the Telegram side of the Archivist.
type Bot struct {
	bot       *tele.Bot
	exec      *club.Executor
	directory *members.Directory // nil when no member cache is configured
}

// New connects to Telegram with long polling. Attach must be called before
// Start.
func New(token string) (*Bot, error) {
	b, err := tele.NewBot(tele.Settings{
		Token:  token,
		Poller: &tele.LongPoller{Timeout: 10 * time.Second},
	})
	if err != nil {
		return nil, err
	}
	return &Bot{bot: b}, nil
}

// Attach registers the executor and the optional member directory. Split
// from New because the executor needs the bot as its Notifier.
func (b *Bot) Attach(exec *club.Executor, directory *members.Directory) {
	b.exec = exec
	b.directory = directory
	b.bot.Handle(tele.OnText, b.onMessage)
	b.bot.Handle(tele.OnPhoto, b.onMessage)
}

// Start blocks, polling for updates.
func (b *Bot) Start() {
	log.Printf("[BOT] The Archivist is listening as @%s", b.bot.Me.Username)
	b.bot.Start()
}

// Stop halts polling.
func (b *Bot) Stop() {
	b.bot.Stop()
}

// Notify implements club.Notifier.
func (b *Bot) Notify(chatID int64, text string) {
	if _, err := b.bot.Send(&tele.Chat{ID: chatID}, text); err != nil {
		log.Printf("[BOT] notify chat %d failed: %v", chatID, err)
	}
}

func (b *Bot) onMessage(c tele.Context) error {
	m := c.Message()
	if m == nil || m.Sender == nil || m.Sender.IsBot {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()

	msg := b.buildMessage(ctx, m)
	reply, err := b.exec.Handle(ctx, msg)
	if err != nil {
		// Already logged by the executor; the reply carries the generic
		// failure text so the user is not left hanging.
		log.Printf("[BOT] command in chat %d failed", m.Chat.ID)
	}
	if reply == nil {
		return nil
	}
	return b.send(c, reply)
}

func (b *Bot) buildMessage(ctx context.Context, m *tele.Message) *club.Message {
	sender := memberFromUser(m.Sender)
	b.record(ctx, m.Chat.ID, sender)

	msg := &club.Message{
		ChatID: m.Chat.ID,
		Sender: sender,
		Text:   m.Text,
	}
	if m.Photo != nil {
		msg.Text = m.Caption
		msg.PhotoRef = m.Photo.FileID
	}
	if m.ReplyTo != nil && m.ReplyTo.Sender != nil {
		target := memberFromUser(m.ReplyTo.Sender)
		b.record(ctx, m.Chat.ID, target)
		msg.ReplyTo = &target
	}
	return msg
}

// record feeds the member cache; a cache failure only costs future @handle
// resolution, so it is logged and swallowed.
func (b *Bot) record(ctx context.Context, chatID int64, member models.Member) {
	if b.directory == nil {
		return
	}
	if err := b.directory.Record(ctx, chatID, member); err != nil {
		log.Printf("[BOT] record member %d: %v", member.ID, err)
	}
}

func (b *Bot) send(c tele.Context, reply *club.Reply) error {
	switch {
	case reply.Photo != nil:
		photo := &tele.Photo{File: tele.FromReader(bytes.NewReader(reply.Photo)), Caption: reply.Text}
		return c.Reply(photo)
	case reply.PhotoRef != "":
		photo := &tele.Photo{File: tele.File{FileID: reply.PhotoRef}, Caption: reply.Text}
		return c.Reply(photo)
	default:
		return c.Reply(reply.Text)
	}
}

func memberFromUser(u *tele.User) models.Member {
	name := u.FirstName
	if u.LastName != "" {
		name = name + " " + u.LastName
	}
	return models.Member{ID: u.ID, Handle: u.Username, Name: name}
}
