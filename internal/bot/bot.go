// Package bot is the Telegram transport. It turns updates into events for
// the service pipeline and delivers outcome strings back to the chat. All
// state and failure handling lives below it.
package bot

import (
	"context"
	"net/http"
	"sync"
	"time"

	"invoicedrop/internal/service"
	"invoicedrop/pkg/logger"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

type Config struct {
	Token          string
	PollTimeoutSec int
}

type Bot struct {
	api *tgbotapi.BotAPI
	svc *service.Service
	log *logger.Logger
	cfg Config

	httpClient *http.Client

	// One worker per chat keeps a user's events strictly ordered without
	// serializing unrelated users.
	workersMu sync.Mutex
	workers   map[int64]chan tgbotapi.Update
	wg        sync.WaitGroup
}

func New(cfg Config, svc *service.Service, log *logger.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, err
	}
	return &Bot{
		api:        api,
		svc:        svc,
		log:        log,
		cfg:        cfg,
		httpClient: &http.Client{Timeout: 5 * time.Minute},
		workers:    make(map[int64]chan tgbotapi.Update),
	}, nil
}

// Username reports the bot account name, for startup logging.
func (b *Bot) Username() string {
	return b.api.Self.UserName
}

// Run consumes the long-poll update stream until ctx is cancelled.
func (b *Bot) Run(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	if b.cfg.PollTimeoutSec > 0 {
		u.Timeout = b.cfg.PollTimeoutSec
	}
	updates := b.api.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			b.api.StopReceivingUpdates()
			b.drainWorkers()
			return ctx.Err()
		case update, ok := <-updates:
			if !ok {
				b.drainWorkers()
				return nil
			}
			if update.Message == nil {
				continue
			}
			b.dispatch(ctx, update)
		}
	}
}

// dispatch hands the update to the chat's worker, starting one on first use.
func (b *Bot) dispatch(ctx context.Context, update tgbotapi.Update) {
	chatID := update.Message.Chat.ID

	b.workersMu.Lock()
	ch, ok := b.workers[chatID]
	if !ok {
		ch = make(chan tgbotapi.Update, 16)
		b.workers[chatID] = ch
		b.wg.Add(1)
		go func() {
			defer b.wg.Done()
			for upd := range ch {
				b.handleMessage(ctx, upd.Message)
			}
		}()
	}
	b.workersMu.Unlock()

	select {
	case ch <- update:
	default:
		// A full queue means the user is flooding faster than uploads
		// complete; drop with a notice rather than blocking other chats.
		b.reply(chatID, "Too many pending files, please slow down and resend.")
	}
}

func (b *Bot) drainWorkers() {
	b.workersMu.Lock()
	for id, ch := range b.workers {
		close(ch)
		delete(b.workers, id)
	}
	b.workersMu.Unlock()
	b.wg.Wait()
}

func (b *Bot) reply(chatID int64, text string) {
	if text == "" {
		return
	}
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.log.Errorf("failed to send reply to chat %d: %v", chatID, err)
	}
}
