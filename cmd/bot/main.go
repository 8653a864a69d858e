package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/receiver"
	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/receiver/config"
	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/sender"
	"github.com/aeterna-studio/booking-bot/pkg/repository/store"
	"github.com/aeterna-studio/booking-bot/pkg/utils/errs"
)

func main() {

	// 1) Логгер
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()

	// 2) Загружаем конфиг
	cfg, err := config.LoadConfig()
	if err != nil {
		logger.Err(errs.New("failed to load config").Wrap(err)).Msg("config init")
		return
	}

	// Контекст, завершающийся по SIGINT/SIGTERM
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 3) Хранилище
	repo, err := store.NewRepo(ctx, cfg.PostgreAddr)
	if err != nil {
		logger.Error().Err(err).Msg("connect postgres")
		return
	}
	defer repo.Close()
	if err := repo.Init(ctx); err != nil {
		logger.Error().Err(err).Msg("init schema")
		return
	}

	bot, err := tgbotapi.NewBotAPI(cfg.BotToken)
	if err != nil {
		logger.Error().Err(err).Msg("create bot api")
		return
	}
	bot.Debug = false

	logger.Info().Str("bot", bot.Self.UserName).Msg("authorized")

	sessions := receiver.NewStore()
	flow := receiver.NewFlow(cfg, repo)
	notifier := sender.New(logger, bot, cfg.AdminIDs)
	handler := receiver.NewHandler(cfg, logger, bot, flow, sessions, repo, notifier)

	var updates <-chan tgbotapi.Update
	if cfg.Mode == config.ModeWebhook {
		updates, err = serveWebhook(ctx, cfg, bot, logger)
		if err != nil {
			logger.Error().Err(err).Msg("set up webhook")
			return
		}
	} else {
		u := tgbotapi.NewUpdate(0)
		u.Timeout = 10
		updates = bot.GetUpdatesChan(u)

		// Горутина для корректного завершения лонг-поллинга
		go func() {
			<-ctx.Done()
			logger.Info().Msg("shutting down bot")
			bot.StopReceivingUpdates()
		}()
	}

	// Воркеры: апдейты одного пользователя всегда попадают в один воркер,
	// поэтому его диалог обрабатывается строго по порядку, а разные
	// пользователи идут параллельно.
	lanes := make([]chan tgbotapi.Update, cfg.WorkerCount)
	var wg sync.WaitGroup
	for i := range lanes {
		lanes[i] = make(chan tgbotapi.Update, 16)
		wg.Add(1)
		go func(ch <-chan tgbotapi.Update) {
			defer wg.Done()
			for update := range ch {
				handler.HandleUpdate(ctx, update)
			}
		}(lanes[i])
	}

	for update := range updates {
		lanes[laneFor(update, len(lanes))] <- update
	}
	for _, ch := range lanes {
		close(ch)
	}
	wg.Wait()

	logger.Info().Msg("bot stopped")
}

func laneFor(update tgbotapi.Update, n int) int {
	var id int64
	switch {
	case update.Message != nil && update.Message.From != nil:
		id = update.Message.From.ID
	case update.CallbackQuery != nil:
		id = update.CallbackQuery.From.ID
	}
	if id < 0 {
		id = -id
	}
	return int(id % int64(n))
}

// serveWebhook registers the webhook with Telegram and serves it over chi,
// together with a health probe. The returned channel closes on shutdown.
func serveWebhook(ctx context.Context, cfg *config.Config, bot *tgbotapi.BotAPI, logger zerolog.Logger) (<-chan tgbotapi.Update, error) {
	path := "/webhook/" + cfg.BotToken

	wh, err := tgbotapi.NewWebhook(strings.TrimRight(cfg.WebhookBaseURL, "/") + path)
	if err != nil {
		return nil, errs.New("bad webhook url").Wrap(err)
	}
	if _, err := bot.Request(wh); err != nil {
		return nil, errs.New("failed to set webhook").Wrap(err)
	}

	updates := make(chan tgbotapi.Update, 128)

	r := chi.NewRouter()
	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Post(path, func(w http.ResponseWriter, req *http.Request) {
		if cfg.WebhookSecret != "" && req.Header.Get("X-Telegram-Bot-Api-Secret-Token") != cfg.WebhookSecret {
			w.WriteHeader(http.StatusForbidden)
			return
		}
		update, err := bot.HandleUpdate(req)
		if err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		updates <- *update
	})

	srv := &http.Server{Addr: fmt.Sprintf(":%d", cfg.HTTPPort), Handler: r}
	go func() {
		logger.Info().Str("addr", srv.Addr).Msg("webhook server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error().Err(err).Msg("webhook server failed")
		}
	}()
	go func() {
		<-ctx.Done()
		logger.Info().Msg("shutting down webhook server")
		shCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shCtx)
		if _, err := bot.Request(tgbotapi.DeleteWebhookConfig{}); err != nil {
			logger.Warn().Err(err).Msg("delete webhook")
		}
		close(updates)
	}()

	return updates, nil
}
