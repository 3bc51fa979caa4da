// Package groupaccess wraps the Telegram chat-administration calls behind the
// narrow interfaces the services consume.
package groupaccess

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Telegram struct {
	bot *tgbotapi.BotAPI
}

func New(bot *tgbotapi.BotAPI) *Telegram {
	return &Telegram{bot: bot}
}

// CreateInviteLink issues a fresh invite link with an expiry and member cap.
// Every activation gets its own link; old links are not revoked.
func (t *Telegram) CreateInviteLink(ctx context.Context, chatID int64, ttl time.Duration, memberLimit int) (string, error) {
	cfg := tgbotapi.CreateChatInviteLinkConfig{
		ChatConfig:  tgbotapi.ChatConfig{ChatID: chatID},
		ExpireDate:  int(time.Now().Add(ttl).Unix()),
		MemberLimit: memberLimit,
	}
	resp, err := t.bot.Request(cfg)
	if err != nil {
		return "", fmt.Errorf("create invite link: %w", err)
	}
	var link tgbotapi.ChatInviteLink
	if err := json.Unmarshal(resp.Result, &link); err != nil {
		return "", fmt.Errorf("decode invite link: %w", err)
	}
	if link.InviteLink == "" {
		return "", fmt.Errorf("empty invite link in response")
	}
	return link.InviteLink, nil
}

// Ban kicks the member. The short until-date turns the ban into a removal
// rather than a permanent block, so a later invite works again.
func (t *Telegram) Ban(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.BanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		UntilDate:        time.Now().Add(35 * time.Second).Unix(),
	}
	if _, err := t.bot.Request(cfg); err != nil {
		return fmt.Errorf("ban member: %w", err)
	}
	return nil
}

func (t *Telegram) Unban(ctx context.Context, chatID, userID int64) error {
	cfg := tgbotapi.UnbanChatMemberConfig{
		ChatMemberConfig: tgbotapi.ChatMemberConfig{ChatID: chatID, UserID: userID},
		OnlyIfBanned:     true,
	}
	if _, err := t.bot.Request(cfg); err != nil {
		return fmt.Errorf("unban member: %w", err)
	}
	return nil
}

// Notify sends a plain text direct message.
func (t *Telegram) Notify(ctx context.Context, userID int64, text string) error {
	msg := tgbotapi.NewMessage(userID, text)
	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("notify user: %w", err)
	}
	return nil
}
