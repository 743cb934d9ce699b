package telegram

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	log "github.com/sirupsen/logrus"
)

// Client wraps the bot API for the two things the backend needs from
// telegram: checking channel membership and pushing notifications.
type Client struct {
	bot *tgbotapi.BotAPI
}

func NewClient(token string) (*Client, error) {
	bot, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("init telegram bot: %w", err)
	}
	log.Infof("telegram bot authorized as @%s", bot.Self.UserName)
	return &Client{bot: bot}, nil
}

// IsChannelMember reports whether the telegram user is subscribed to the
// channel. Channel may be given with or without the leading @.
func (c *Client) IsChannelMember(_ context.Context, telegramID, channel string) (bool, error) {
	userID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		return false, fmt.Errorf("bad telegram id %q: %w", telegramID, err)
	}

	member, err := c.bot.GetChatMember(tgbotapi.GetChatMemberConfig{
		ChatConfigWithUser: tgbotapi.ChatConfigWithUser{
			SuperGroupUsername: "@" + strings.TrimPrefix(channel, "@"),
			UserID:             userID,
		},
	})
	if err != nil {
		return false, fmt.Errorf("get chat member: %w", err)
	}

	switch member.Status {
	case "member", "administrator", "creator":
		return true, nil
	}
	return false, nil
}

// Notify sends a plain message to a telegram user. Failures are logged,
// not returned; a missed notification must never fail the calling flow.
func (c *Client) Notify(telegramID, text string) {
	chatID, err := strconv.ParseInt(telegramID, 10, 64)
	if err != nil {
		log.Errorf("notify: bad telegram id %q", telegramID)
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := c.bot.Send(msg); err != nil {
		log.Errorf("notify telegram id %s: %v", telegramID, err)
	}
}
