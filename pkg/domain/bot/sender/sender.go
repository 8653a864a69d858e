// Package sender delivers out-of-dialogue notifications to the configured
// administrators, e.g. when a client books through the bot.
package sender

import (
	"math"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/aeterna-studio/booking-bot/pkg/utils/errs"
)

type Processor struct {
	logger   zerolog.Logger
	adminIDs []int64

	bot *tgbotapi.BotAPI
}

func New(logger zerolog.Logger, bot *tgbotapi.BotAPI, adminIDs []int64) *Processor {
	return &Processor{
		logger:   logger,
		adminIDs: adminIDs,
		bot:      bot,
	}
}

// NotifyAdmins sends text to every configured administrator. Delivery
// failures are logged per recipient; one dead chat does not stop the rest.
func (p *Processor) NotifyAdmins(text string) {
	for _, id := range p.adminIDs {
		if _, err := p.send(id, text); err != nil {
			p.logger.Error().Err(err).Int64("admin_id", id).Msg("admin notification lost")
		}
	}
}

func (p *Processor) send(chatID int64, text string) (int, error) {
	p.logger.Trace().Msg("In")
	defer p.logger.Trace().Msg("Out")

	msgToSend := tgbotapi.NewMessage(chatID, text)
	msgToSend.ParseMode = tgbotapi.ModeHTML

	var err error
	var msg tgbotapi.Message

	for i := 0; i < 3; i++ {
		msg, err = p.bot.Send(msgToSend)
		if err == nil {
			return msg.MessageID, nil
		}
		p.logger.Warn().Err(err).Int("retry", i+1).Msg("send failed, retrying")

		if i != 0 {
			time.Sleep(time.Duration(math.Pow(2, float64(i))) * time.Second)
		}
	}
	p.logger.Error().Err(err).Msg("send permanently failed")

	return 0, errs.New("failed to send message").Arg("chat_id", chatID).Wrap(err)
}
