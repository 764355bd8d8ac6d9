// Package notification provides the Telegram transport for commands and notifications
package notification

import (
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/raykavin/cryptoalert/pkg/command"
	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/logger"
	tb "gopkg.in/tucnak/telebot.v2"
)

// sender is the part of *tb.Bot used to deliver messages
type sender interface {
	Send(to tb.Recipient, what interface{}, options ...interface{}) (*tb.Message, error)
}

// Telegram implements the core.NotifierWithStart interface and routes chat
// commands to a command.Handler
type Telegram struct {
	client  *tb.Bot
	sender  sender
	handler *command.Handler
	log     logger.Logger
	ctx     context.Context
}

// Option is a function that configures a Telegram instance
type Option func(telegram *Telegram)

// WithContext sets the context passed to command handlers
func WithContext(ctx context.Context) Option {
	return func(t *Telegram) {
		t.ctx = ctx
	}
}

// NewTelegram creates the bot client, publishes the command list and registers the handlers
func NewTelegram(settings core.TelegramSettings, handler *command.Handler, log logger.Logger, options ...Option) (*Telegram, error) {
	client, err := tb.NewBot(botSettings(settings, log))
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	bot := &Telegram{
		client:  client,
		sender:  client,
		handler: handler,
		log:     log,
		ctx:     context.Background(),
	}

	for _, option := range options {
		option(bot)
	}

	if err := bot.setupCommands(); err != nil {
		return nil, fmt.Errorf("failed to set commands: %w", err)
	}

	for _, cmd := range handler.Commands() {
		client.Handle("/"+cmd.Name, bot.dispatch(cmd))
	}

	return bot, nil
}

// botSettings builds the client settings. Updates are handled one at a time so
// the token cap check in /add and the insert that follows are never interleaved.
func botSettings(settings core.TelegramSettings, log logger.Logger) tb.Settings {
	poller := &tb.LongPoller{Timeout: 10 * time.Second}

	return tb.Settings{
		Token:       settings.Token,
		Poller:      tb.NewMiddlewarePoller(poller, authorize(settings.Users, log)),
		Synchronous: true,
	}
}

// authorize drops updates without a sender and, when users is not empty,
// updates from anyone outside the list
func authorize(users []int64, log logger.Logger) func(u *tb.Update) bool {
	return func(u *tb.Update) bool {
		if u.Message == nil || u.Message.Sender == nil {
			return false
		}

		if len(users) == 0 || slices.Contains(users, u.Message.Sender.ID) {
			return true
		}

		log.WithField("user", u.Message.Sender.ID).Warn("unauthorized user")
		return false
	}
}

func (t *Telegram) setupCommands() error {
	commands := t.handler.Commands()
	botCommands := make([]tb.Command, 0, len(commands))
	for _, cmd := range commands {
		botCommands = append(botCommands, tb.Command{Text: cmd.Name, Description: cmd.Description})
	}

	return t.client.SetCommands(botCommands)
}

// dispatch adapts a telebot message handler to a command
func (t *Telegram) dispatch(cmd command.Command) func(m *tb.Message) {
	return func(m *tb.Message) {
		if m.Sender == nil {
			return
		}

		c := &messageContext{message: m, sender: t.sender}
		if err := cmd.Handle(t.ctx, c); err != nil {
			t.log.WithError(err).WithFields(map[string]any{
				"command": cmd.Name,
				"user":    m.Sender.ID,
			}).Error("failed to handle command")
		}
	}
}

// Start begins polling for updates in the background
func (t *Telegram) Start() {
	go t.client.Start()
	t.log.Info("telegram bot started")
}

// Stop stops the poller
func (t *Telegram) Stop() {
	t.client.Stop()
	t.log.Info("telegram bot stopped")
}

// Send delivers text to a user. Errors such as a blocked bot are returned as is.
func (t *Telegram) Send(_ context.Context, telegramID int64, text string) error {
	_, err := t.sender.Send(&tb.User{ID: telegramID}, text)
	if err != nil {
		return fmt.Errorf("telegram: %w", err)
	}
	return nil
}

// messageContext exposes an incoming message as a core.CommandContext
type messageContext struct {
	message *tb.Message
	sender  sender
}

func (c *messageContext) Args() []string {
	return strings.Fields(c.message.Payload)
}

func (c *messageContext) UserID() int64 {
	return c.message.Sender.ID
}

func (c *messageContext) Reply(text string) error {
	_, err := c.sender.Send(c.message.Sender, text)
	return err
}
