package service

import (
	"context"
	"errors"
	"fmt"
	"html"
	"net/http"
	"strings"

	"github.com/PaulSonOfLars/gotgbot/v2"
	"github.com/joeyave/scala-roster/entity"
	"github.com/joeyave/scala-roster/helpers"
	"github.com/joeyave/scala-roster/txt"
)

// TelegramCourier mirrors notifications to members who have linked a
// Telegram account. Group recipients and unlinked members are skipped.
type TelegramCourier struct {
	bot             *gotgbot.Bot
	memberDirectory MemberDirectory
}

func NewTelegramCourier(token string, memberDirectory MemberDirectory) (*TelegramCourier, error) {
	bot, err := gotgbot.NewBot(token, &gotgbot.BotOpts{
		BotClient: &gotgbot.BaseBotClient{
			Client: http.Client{
				Transport: helpers.NewTransportWithLogger(http.DefaultTransport),
			},
			DefaultRequestOpts: &gotgbot.RequestOpts{
				Timeout: gotgbot.DefaultTimeout,
				APIURL:  gotgbot.DefaultAPIURL,
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create bot: %w", err)
	}

	return &TelegramCourier{
		bot:             bot,
		memberDirectory: memberDirectory,
	}, nil
}

func (c *TelegramCourier) Deliver(ctx context.Context, notification entity.Notification) error {
	member, err := c.memberDirectory.Resolve(ctx, notification.Recipient)
	if errors.Is(err, ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if member.TelegramID == 0 {
		return nil
	}

	text := fmt.Sprintf("<b>%s</b>\n\n%s", html.EscapeString(notification.Title), html.EscapeString(notification.Body))

	opts := &gotgbot.SendMessageOpts{
		ParseMode: "HTML",
	}
	if strings.HasPrefix(notification.Link, "https://") {
		opts.ReplyMarkup = gotgbot.InlineKeyboardMarkup{
			InlineKeyboard: [][]gotgbot.InlineKeyboardButton{{{
				Text: txt.Get("text.moreInfo", member.LanguageCode),
				Url:  notification.Link,
			}}},
		}
	}

	_, err = c.bot.SendMessage(member.TelegramID, text, opts)
	return err
}
