// Package command implements the chat commands users run to manage their tracked tokens
package command

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/raykavin/cryptoalert/pkg/core"
	"github.com/raykavin/cryptoalert/pkg/logger"
	"github.com/raykavin/cryptoalert/pkg/metric"
)

// Replies sent back to users
const (
	MsgWelcome       = "Welcome to CryptoAlertBot! Use /add <token_address> to add a token for tracking."
	MsgAddUsage      = "Please provide a token address. Usage: /add <token_address>"
	MsgRemoveUsage   = "Please provide a token address. Usage: /remove <token_address>"
	MsgNoTokens      = "You are not tracking any tokens."
	MsgListHeader    = "Your tracked tokens:\n"
	MsgInternalError = "Something went wrong, please try again later."

	msgLimit   = "You have reached the maximum limit of %d tokens."
	msgAdded   = "Token %s added successfully!"
	msgRemoved = "Token %s removed successfully!"
	msgLine    = "%s (Last checked: %s)\n"
)

// TimeLayout is used to render last check timestamps
const TimeLayout = "2006-01-02 15:04:05 MST"

// HandlerFunc runs one command for the user behind c
type HandlerFunc func(ctx context.Context, c core.CommandContext) error

// Command describes a chat command
type Command struct {
	Name        string
	Description string
	Handle      HandlerFunc
}

// Handler holds the token commands and their dependencies
type Handler struct {
	storage   core.TokenStorage
	log       logger.Logger
	metrics   *metric.Metrics
	maxTokens int
	location  *time.Location
}

// Option configures a Handler
type Option func(*Handler)

// WithMetrics counts handled commands
func WithMetrics(m *metric.Metrics) Option {
	return func(h *Handler) {
		h.metrics = m
	}
}

// WithMaxTokens overrides the per-user token cap
func WithMaxTokens(max int) Option {
	return func(h *Handler) {
		h.maxTokens = max
	}
}

// WithLocation sets the timezone used when listing tokens, UTC by default
func WithLocation(loc *time.Location) Option {
	return func(h *Handler) {
		h.location = loc
	}
}

func NewHandler(storage core.TokenStorage, log logger.Logger, options ...Option) *Handler {
	h := &Handler{
		storage:   storage,
		log:       log,
		maxTokens: core.MaxTokensPerUser,
		location:  time.UTC,
	}

	for _, option := range options {
		option(h)
	}

	return h
}

// Commands returns the command table in the order it is shown to users
func (h *Handler) Commands() []Command {
	return []Command{
		{Name: "start", Description: "Show the welcome message", Handle: h.Start},
		{Name: "add", Description: "Track a token: /add <token_address>", Handle: h.Add},
		{Name: "list", Description: "List your tracked tokens", Handle: h.List},
		{Name: "remove", Description: "Stop tracking a token: /remove <token_address>", Handle: h.Remove},
		{Name: "help", Description: "Display help instructions", Handle: h.Help},
	}
}

// Start replies with the welcome message
func (h *Handler) Start(_ context.Context, c core.CommandContext) error {
	h.metrics.RecordCommand("start")
	return c.Reply(MsgWelcome)
}

// Add tracks a new token for the user, up to the per-user cap
func (h *Handler) Add(ctx context.Context, c core.CommandContext) error {
	h.metrics.RecordCommand("add")

	args := c.Args()
	if len(args) != 1 {
		return c.Reply(MsgAddUsage)
	}

	address, userID := args[0], c.UserID()

	count, err := h.storage.CountTokens(ctx, userID)
	if err != nil {
		return h.fail(c, "add", err)
	}

	if count >= h.maxTokens {
		return c.Reply(fmt.Sprintf(msgLimit, h.maxTokens))
	}

	if err := h.storage.AddToken(ctx, userID, address); err != nil {
		return h.fail(c, "add", err)
	}

	h.log.WithFields(map[string]any{"user": userID, "address": address}).Info("token added")
	return c.Reply(fmt.Sprintf(msgAdded, address))
}

// List replies with the user's tokens and when they were last checked
func (h *Handler) List(ctx context.Context, c core.CommandContext) error {
	h.metrics.RecordCommand("list")

	tokens, err := h.storage.ListTokens(ctx, c.UserID())
	if err != nil {
		return h.fail(c, "list", err)
	}

	return c.Reply(h.formatList(tokens))
}

func (h *Handler) formatList(tokens []core.TrackedToken) string {
	if len(tokens) == 0 {
		return MsgNoTokens
	}

	var sb strings.Builder
	sb.WriteString(MsgListHeader)
	for _, token := range tokens {
		fmt.Fprintf(&sb, msgLine, token.Address, token.LastCheck.In(h.location).Format(TimeLayout))
	}

	return sb.String()
}

// Remove stops tracking a token. The reply does not depend on whether a row matched.
func (h *Handler) Remove(ctx context.Context, c core.CommandContext) error {
	h.metrics.RecordCommand("remove")

	args := c.Args()
	if len(args) != 1 {
		return c.Reply(MsgRemoveUsage)
	}

	address, userID := args[0], c.UserID()

	if err := h.storage.RemoveToken(ctx, userID, address); err != nil {
		return h.fail(c, "remove", err)
	}

	h.log.WithFields(map[string]any{"user": userID, "address": address}).Info("token removed")
	return c.Reply(fmt.Sprintf(msgRemoved, address))
}

// Help lists the available commands
func (h *Handler) Help(_ context.Context, c core.CommandContext) error {
	h.metrics.RecordCommand("help")

	commands := h.Commands()
	lines := make([]string, 0, len(commands))
	for _, command := range commands {
		lines = append(lines, fmt.Sprintf("/%s - %s", command.Name, command.Description))
	}

	return c.Reply(strings.Join(lines, "\n"))
}

// fail logs a storage error and tells the user something went wrong
func (h *Handler) fail(c core.CommandContext, command string, err error) error {
	h.log.WithError(err).WithFields(map[string]any{
		"command": command,
		"user":    c.UserID(),
	}).Error("command failed")

	if replyErr := c.Reply(MsgInternalError); replyErr != nil {
		h.log.WithError(replyErr).Error("failed to send error reply")
	}

	return fmt.Errorf("%s: %w", command, err)
}
