package service

import (
	"fmt"
	"html"
	"strings"

	"go.uber.org/zap/zapcore"
	tele "gopkg.in/telebot.v3"

	"github.com/cjfitness/notifier/pkg/logger/types"
)

const logSendFailure = "failed to send log to channel"

type telegramSender interface {
	Send(to tele.Recipient, what interface{}, opts ...interface{}) (*tele.Message, error)
}

// NotifyService forwards service logs to the coach's Telegram channel.
type NotifyService struct {
	bot    telegramSender
	logger *types.Logger
}

func NewNotifyService(bot telegramSender, logger *types.Logger) *NotifyService {
	return &NotifyService{
		bot:    bot,
		logger: logger,
	}
}

// LogHook returns a log hook for the specified channel
//
// Parameters:
//   - channelID is the channel to send the log to
//   - level is the minimum log level to send
//
// Entries are sent in the background so a slow Telegram API never blocks the
// caller that logged.
func (s *NotifyService) LogHook(channelID int64, level zapcore.Level) types.LogHook {
	chat := &tele.Chat{ID: channelID}
	return func(log types.Log) {
		if log.Level < level || strings.Contains(log.Message, logSendFailure) {
			return
		}
		go func() {
			_, err := s.bot.Send(chat, formatLog(log), tele.ModeHTML)
			if err != nil {
				s.logger.Errorf("%s %d: %v", logSendFailure, channelID, err)
			}
		}()
	}
}

func formatLog(log types.Log) string {
	return fmt.Sprintf("<b>%s</b> <code>%s</code>\n<i>%s</i> %s\n\n%s",
		log.Level.CapitalString(),
		log.Timestamp.Format("2006-01-02 15:04:05"),
		html.EscapeString(log.LoggerName),
		html.EscapeString(log.Caller),
		html.EscapeString(log.Message),
	)
}
