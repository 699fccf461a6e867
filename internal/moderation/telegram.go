package moderation

import (
	"context"
	"fmt"
	"sync"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// TelegramTransport implements Transport over the Bot API. Replies are
// collected via getUpdates long polling with a persistent offset, so a
// moderator message is observed exactly once.
type TelegramTransport struct {
	bot *tgbotapi.BotAPI

	mu           sync.Mutex
	updateOffset int
}

func NewTelegramTransport(bot *tgbotapi.BotAPI) *TelegramTransport {
	return &TelegramTransport{bot: bot}
}

func (t *TelegramTransport) SendProposal(_ context.Context, chatID int64, text string) (int, error) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	sent, err := t.bot.Send(msg)
	if err != nil {
		return 0, fmt.Errorf("send proposal: %w", err)
	}

	return sent.MessageID, nil
}

func (t *TelegramTransport) Send(_ context.Context, chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.DisableWebPagePreview = true

	if _, err := t.bot.Send(msg); err != nil {
		return fmt.Errorf("send message: %w", err)
	}

	return nil
}

func (t *TelegramTransport) FetchReplies(_ context.Context, chatID int64, afterMessageID int) ([]Reply, error) {
	t.mu.Lock()
	offset := t.updateOffset
	t.mu.Unlock()

	updates, err := t.bot.GetUpdates(tgbotapi.UpdateConfig{
		Offset:  offset,
		Timeout: 1,
	})
	if err != nil {
		return nil, fmt.Errorf("get updates: %w", err)
	}

	var replies []Reply

	maxUpdateID := offset - 1

	for _, u := range updates {
		if u.UpdateID > maxUpdateID {
			maxUpdateID = u.UpdateID
		}

		if u.Message == nil || u.Message.Chat == nil || u.Message.Chat.ID != chatID {
			continue
		}

		if u.Message.MessageID <= afterMessageID {
			continue
		}

		replies = append(replies, Reply{
			MessageID: u.Message.MessageID,
			Text:      u.Message.Text,
		})
	}

	t.mu.Lock()
	if maxUpdateID+1 > t.updateOffset {
		t.updateOffset = maxUpdateID + 1
	}
	t.mu.Unlock()

	return replies, nil
}
