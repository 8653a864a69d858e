package receiver

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/receiver/config"
	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/receiver/keyboards"
	"github.com/aeterna-studio/booking-bot/pkg/domain/bot/sender"
	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
)

// Handler routes one inbound update to the matching dialogue transition and
// renders the reply. One call per update; per-user ordering is the caller's
// concern (see the worker pool in cmd/bot).
type Handler struct {
	cfg      *config.Config
	logger   zerolog.Logger
	bot      *tgbotapi.BotAPI
	flow     *Flow
	sessions *Store
	repo     model.Repo
	notifier *sender.Processor
}

func NewHandler(
	cfg *config.Config,
	logger zerolog.Logger,
	bot *tgbotapi.BotAPI,
	flow *Flow,
	sessions *Store,
	repo model.Repo,
	notifier *sender.Processor,
) *Handler {
	return &Handler{
		cfg:      cfg,
		logger:   logger,
		bot:      bot,
		flow:     flow,
		sessions: sessions,
		repo:     repo,
		notifier: notifier,
	}
}

func (h *Handler) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	if m := update.Message; m != nil {
		h.handleMessage(ctx, m)
		return
	}
	if cq := update.CallbackQuery; cq != nil {
		h.handleCallback(ctx, cq)
	}
}

// ---------- Сообщения ----------

func (h *Handler) handleMessage(ctx context.Context, m *tgbotapi.Message) {
	userID := m.From.ID
	chatID := m.Chat.ID
	sess := h.sessions.Get(userID)

	if m.IsCommand() {
		switch m.Command() {
		case "start":
			h.flow.CancelDialogue(sess)
			greeting := fmt.Sprintf(
				"👋 Здравствуйте, %s!\nДобро пожаловать в наш бот для записи. Выберите действие:",
				m.From.FirstName,
			)
			h.sendWithMarkup(chatID, greeting, keyboards.MainMenu())
		case "admin":
			if err := h.flow.EnterAdminPanel(sess, userID); err != nil {
				h.send(chatID, textNoAccess)
				return
			}
			h.sendWithMarkup(chatID, "Добро пожаловать в админ-панель!", keyboards.AdminMain())
		default:
			h.nudge(m)
		}
		return
	}

	switch m.Text {
	case "📅 Записаться":
		h.flow.StartBooking(sess, IntentSelf)
		h.sendWithMarkup(chatID, textChooseService, keyboards.Services(h.cfg.Services, keyboards.PService))
		return
	case "📔 Мои записи":
		bookings, err := h.repo.UserBookings(ctx, userID)
		if err != nil {
			h.logger.Error().Err(err).Int64("user_id", userID).Msg("list user bookings")
			h.send(chatID, textGenericTrouble)
			return
		}
		h.sendWithMarkup(chatID, "Ваши активные записи:", keyboards.MyBookings(bookings))
		return
	case "ℹ️ О нас":
		h.sendWithMarkup(chatID, aboutText, keyboards.About())
		return
	}

	// Свободный текст осмыслен только в состояниях ввода.
	switch sess.State {
	case StateEnteringName:
		if err := h.flow.EnterName(sess, m.Text); err != nil {
			h.sendWithMarkup(chatID, h.namePrompt(sess), keyboards.Cancel())
			return
		}
		h.sendWithMarkup(chatID, h.phonePrompt(sess), keyboards.Cancel())
	case StateEnteringPhone:
		if err := h.flow.EnterPhone(sess, m.Text); err != nil {
			h.sendWithMarkup(chatID, textBadPhone, keyboards.Cancel())
			return
		}
		h.sendWithMarkup(chatID, h.confirmSummary(sess), keyboards.Confirmation(h.confirmPrefix(sess)))
	case StateAdminSlotAddTime:
		if !h.cfg.IsAdmin(userID) {
			h.send(chatID, textNoAccess)
			return
		}
		at, err := h.flow.AdminAddSlot(ctx, sess, m.Text)
		if err != nil {
			if errors.Is(err, ErrBadClock) {
				h.send(chatID, "Неверный формат времени. Пожалуйста, введите в формате ЧЧ:ММ.")
				return
			}
			h.logger.Error().Err(err).Msg("add admin slot")
			h.send(chatID, textGenericTrouble)
			return
		}
		h.sendWithMarkup(chatID,
			fmt.Sprintf("✅ Слот <b>%s</b> успешно добавлен!", at.Format("02.01.2006 15:04")),
			keyboards.AdminBack())
	default:
		h.nudge(m)
	}
}

// nudge removes stray text (when possible) and reminds about the buttons.
// Напоминание само удаляется через несколько секунд.
func (h *Handler) nudge(m *tgbotapi.Message) {
	_, _ = h.bot.Request(tgbotapi.NewDeleteMessage(m.Chat.ID, m.MessageID))

	remind := tgbotapi.NewMessage(m.Chat.ID, textUseButtons)
	sent, err := h.bot.Send(remind)
	if err != nil {
		return
	}
	go func(chatID int64, mid int) {
		time.Sleep(5 * time.Second)
		_, _ = h.bot.Request(tgbotapi.NewDeleteMessage(chatID, mid))
	}(sent.Chat.ID, sent.MessageID)
}

// ---------- Нажатия inline-кнопок ----------

func (h *Handler) handleCallback(ctx context.Context, cq *tgbotapi.CallbackQuery) {
	userID := cq.From.ID
	sess := h.sessions.Get(userID)
	data := cq.Data
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	switch {
	case data == keyboards.CbIgnore:
		// только гасим "часики"

	case data == keyboards.CbPastDate:
		h.alert(cq.ID, textPastDate)
		return

	case data == keyboards.CbCancel:
		h.flow.CancelDialogue(sess)
		h.edit(chatID, messageID, "Действие отменено.")
		h.sendWithMarkup(chatID, textMainMenu, keyboards.MainMenu())

	case data == keyboards.CbMainMenu:
		sess.Reset()
		_, _ = h.bot.Request(tgbotapi.NewDeleteMessage(chatID, messageID))
		h.sendWithMarkup(chatID, textMainMenu, keyboards.MainMenu())

	case data == keyboards.CbBackToServices:
		h.backToServices(chatID, messageID, sess)

	case strings.HasPrefix(data, keyboards.PAdminService):
		if !h.adminOnly(cq) {
			return
		}
		h.chooseService(cq, sess, strings.TrimPrefix(data, keyboards.PAdminService), true)

	case strings.HasPrefix(data, keyboards.PService):
		h.chooseService(cq, sess, strings.TrimPrefix(data, keyboards.PService), false)

	case strings.HasPrefix(data, keyboards.PAdminPrevMonth):
		if !h.adminOnly(cq) {
			return
		}
		h.flipCalendar(chatID, messageID, strings.TrimPrefix(data, keyboards.PAdminPrevMonth), -1, true)

	case strings.HasPrefix(data, keyboards.PAdminNextMonth):
		if !h.adminOnly(cq) {
			return
		}
		h.flipCalendar(chatID, messageID, strings.TrimPrefix(data, keyboards.PAdminNextMonth), 1, true)

	case strings.HasPrefix(data, keyboards.PPrevMonth):
		h.flipCalendar(chatID, messageID, strings.TrimPrefix(data, keyboards.PPrevMonth), -1, false)

	case strings.HasPrefix(data, keyboards.PNextMonth):
		h.flipCalendar(chatID, messageID, strings.TrimPrefix(data, keyboards.PNextMonth), 1, false)

	case strings.HasPrefix(data, keyboards.PAdminDate):
		if !h.adminOnly(cq) {
			return
		}
		h.adminDatePicked(ctx, cq, sess, strings.TrimPrefix(data, keyboards.PAdminDate))

	case strings.HasPrefix(data, keyboards.PDate):
		h.datePicked(ctx, cq, sess, strings.TrimPrefix(data, keyboards.PDate))

	case strings.HasPrefix(data, keyboards.PAdminTime):
		if !h.adminOnly(cq) {
			return
		}
		h.timePicked(cq, sess, strings.TrimPrefix(data, keyboards.PAdminTime))

	case strings.HasPrefix(data, keyboards.PTime):
		h.timePicked(cq, sess, strings.TrimPrefix(data, keyboards.PTime))

	case data == keyboards.CbConfirm || data == keyboards.CbAdminConfirm:
		h.confirm(ctx, cq, sess)

	case strings.HasPrefix(data, keyboards.PCancelBooking):
		h.cancelBooking(ctx, cq, strings.TrimPrefix(data, keyboards.PCancelBooking))

	case data == keyboards.CbAdminPanel:
		if err := h.flow.EnterAdminPanel(sess, userID); err != nil {
			h.alert(cq.ID, textNoAccess)
			return
		}
		h.editWithMarkup(chatID, messageID, "Админ-панель:", keyboards.AdminMain())

	case data == keyboards.CbAdminView:
		if !h.adminOnly(cq) {
			return
		}
		sess.State = StateAdminViewDate
		h.editWithMarkup(chatID, messageID, "Выберите дату для просмотра записей:", h.calendarNow(true))

	case data == keyboards.CbAdminManageSlots:
		if !h.adminOnly(cq) {
			return
		}
		h.editWithMarkup(chatID, messageID, "Управление свободными слотами:", keyboards.AdminManageSlots())

	case data == keyboards.CbAdminAddSlot:
		if !h.adminOnly(cq) {
			return
		}
		sess.State = StateAdminSlotAddDate
		h.editWithMarkup(chatID, messageID, "Выберите дату для добавления слота:", h.calendarNow(true))

	case data == keyboards.CbAdminRemoveSlot:
		if !h.adminOnly(cq) {
			return
		}
		sess.State = StateAdminSlotRemoveDate
		h.editWithMarkup(chatID, messageID, "Выберите дату для удаления слота:", h.calendarNow(true))

	case data == keyboards.CbAdminManual:
		if !h.adminOnly(cq) {
			return
		}
		h.flow.StartBooking(sess, IntentOnBehalf)
		h.editWithMarkup(chatID, messageID, "Шаг 1: Выберите услугу для клиента",
			keyboards.Services(h.cfg.Services, keyboards.PAdminService))

	case strings.HasPrefix(data, keyboards.PAdminDeleteSlot):
		if !h.adminOnly(cq) {
			return
		}
		h.deleteSlot(ctx, cq, strings.TrimPrefix(data, keyboards.PAdminDeleteSlot))

	default:
		h.logger.Debug().Str("data", data).Msg("unknown callback")
	}

	_, _ = h.bot.Request(tgbotapi.NewCallback(cq.ID, ""))
}

// ---------- Шаги записи ----------

func (h *Handler) chooseService(cq *tgbotapi.CallbackQuery, sess *Session, serviceID string, admin bool) {
	svc, err := h.flow.ChooseService(sess, serviceID)
	if err != nil {
		h.alert(cq.ID, textGenericTrouble)
		return
	}
	h.editWithMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		fmt.Sprintf("Вы выбрали: <b>%s</b>\nТеперь выберите дату:", svc.Name),
		h.calendarNow(admin))
}

func (h *Handler) datePicked(ctx context.Context, cq *tgbotapi.CallbackQuery, sess *Session, date string) {
	slots, err := h.flow.ChooseDate(ctx, sess, date)
	if err != nil {
		switch {
		case errors.Is(err, ErrPastDate):
			h.alert(cq.ID, textPastDate)
		case errors.Is(err, ErrInconsistentState):
			h.alert(cq.ID, textGenericTrouble)
		default:
			h.logger.Error().Err(err).Str("date", date).Msg("compute available slots")
			h.alert(cq.ID, textGenericTrouble)
		}
		return
	}

	back := keyboards.CbBackToServices
	prefix := keyboards.PTime
	if sess.Intent == IntentOnBehalf {
		back = keyboards.CbAdminPanel
		prefix = keyboards.PAdminTime
	}
	day, _ := time.ParseInLocation("2006-01-02", date, time.Local)
	h.editWithMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		fmt.Sprintf("Доступное время на <b>%s</b>:", FormatDateRU(day)),
		keyboards.TimeSlots(slots, back, prefix))
}

// adminDatePicked multiplexes the admin calendar: the same admin_date
// callback serves the day view, slot add, slot removal and manual booking,
// depending on where the panel dialogue stands.
func (h *Handler) adminDatePicked(ctx context.Context, cq *tgbotapi.CallbackQuery, sess *Session, date string) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID

	switch sess.State {
	case StateChoosingDate:
		h.datePicked(ctx, cq, sess, date)

	case StateAdminViewDate:
		day, _ := time.ParseInLocation("2006-01-02", date, time.Local)
		bookings, err := h.repo.DailyBookings(ctx, date)
		if err != nil {
			h.logger.Error().Err(err).Str("date", date).Msg("daily bookings")
			h.alert(cq.ID, textGenericTrouble)
			return
		}
		var text string
		if len(bookings) == 0 {
			text = fmt.Sprintf("На %s записей нет.", FormatDateRU(day))
		} else {
			var b strings.Builder
			fmt.Fprintf(&b, "📋 <b>Записи на %s:</b>\n\n", FormatDateRU(day))
			for _, bk := range bookings {
				fmt.Fprintf(&b, "▪️ <b>%s</b> - %s, %s (<i>%s</i>)\n",
					bk.BookingAt.Format("15:04"), bk.UserName, bk.UserPhone, bk.ServiceName)
			}
			text = b.String()
		}
		h.editWithMarkup(chatID, messageID, text, keyboards.AdminBack())
		sess.State = StateAdminPanel

	case StateAdminSlotAddDate:
		sess.AdminDate = date
		sess.State = StateAdminSlotAddTime
		h.edit(chatID, messageID, "Введите время для нового слота в формате ЧЧ:ММ (например, 14:30).")

	case StateAdminSlotRemoveDate:
		day, _ := time.ParseInLocation("2006-01-02", date, time.Local)
		slots, err := h.repo.AdminSlotTimes(ctx, date)
		if err != nil {
			h.logger.Error().Err(err).Str("date", date).Msg("admin slots")
			h.alert(cq.ID, textGenericTrouble)
			return
		}
		h.editWithMarkup(chatID, messageID,
			fmt.Sprintf("Выберите слот для удаления на %s:", FormatDateRU(day)),
			keyboards.SlotsForRemoval(slots, date))
		sess.State = StateAdminPanel

	default:
		h.alert(cq.ID, textGenericTrouble)
	}
}

func (h *Handler) timePicked(cq *tgbotapi.CallbackQuery, sess *Session, t string) {
	if err := h.flow.ChooseTime(sess, t); err != nil {
		h.alert(cq.ID, textGenericTrouble)
		return
	}
	h.editWithMarkup(cq.Message.Chat.ID, cq.Message.MessageID, h.namePrompt(sess), keyboards.Cancel())
}

func (h *Handler) confirm(ctx context.Context, cq *tgbotapi.CallbackQuery, sess *Session) {
	chatID := cq.Message.Chat.ID
	messageID := cq.Message.MessageID
	intent := sess.Intent

	booking, err := h.flow.Confirm(ctx, sess, cq.From.ID)
	if err != nil {
		if errors.Is(err, ErrInconsistentState) {
			h.alert(cq.ID, textGenericTrouble)
			return
		}
		if !errors.Is(err, model.ErrSlotTaken) {
			h.logger.Error().Err(err).Msg("create booking")
		}
		h.edit(chatID, messageID, textBookingFailed)
		return
	}

	when := fmt.Sprintf("%s в %s", FormatDateRU(booking.BookingAt), booking.BookingAt.Format("15:04"))
	if intent == IntentOnBehalf {
		h.edit(chatID, messageID, fmt.Sprintf(
			"🎉 <b>Запись успешно создана!</b>\n\nКлиент %s записан на %s.",
			booking.UserName, when))
		_, _ = h.bot.Request(tgbotapi.NewCallback(cq.ID, ""))
		return
	}

	h.edit(chatID, messageID, fmt.Sprintf(
		"🎉 <b>Запись успешно создана!</b>\n\nМы ждем вас %s.\nЗа день до визита мы пришлем напоминание.",
		when))

	h.notifier.NotifyAdmins(fmt.Sprintf(
		"🔔 <b>Новая запись через бота!</b>\n\n"+
			"<b>Клиент:</b> %s, %s\n"+
			"<b>Услуга:</b> %s\n"+
			"<b>Когда:</b> %s\n"+
			"<b>ID клиента:</b> <code>%d</code>",
		booking.UserName, booking.UserPhone, booking.ServiceName, when, booking.UserID))
}

func (h *Handler) cancelBooking(ctx context.Context, cq *tgbotapi.CallbackQuery, rawID string) {
	id, err := strconv.ParseInt(rawID, 10, 64)
	if err != nil {
		h.alert(cq.ID, textGenericTrouble)
		return
	}
	if err := h.flow.CancelBooking(ctx, id); err != nil {
		h.logger.Error().Err(err).Int64("booking_id", id).Msg("cancel booking")
		h.alert(cq.ID, textGenericTrouble)
		return
	}
	h.edit(cq.Message.Chat.ID, cq.Message.MessageID, "Ваша запись успешно отменена.")
	_, _ = h.bot.Request(tgbotapi.NewCallback(cq.ID, "Запись отменена"))
}

func (h *Handler) deleteSlot(ctx context.Context, cq *tgbotapi.CallbackQuery, payload string) {
	date, clock, ok := strings.Cut(payload, "_")
	if !ok {
		h.alert(cq.ID, textGenericTrouble)
		return
	}
	at, err := h.flow.AdminRemoveSlot(ctx, date, clock)
	if err != nil {
		h.logger.Error().Err(err).Str("payload", payload).Msg("remove admin slot")
		h.alert(cq.ID, textGenericTrouble)
		return
	}
	h.editWithMarkup(cq.Message.Chat.ID, cq.Message.MessageID,
		fmt.Sprintf("🗑 Слот <b>%s</b> успешно удален.", at.Format("02.01.2006 15:04")),
		keyboards.AdminBack())
	_, _ = h.bot.Request(tgbotapi.NewCallback(cq.ID, "Слот удален"))
}

func (h *Handler) backToServices(chatID int64, messageID int, sess *Session) {
	switch sess.State {
	case StateChoosingDate, StateChoosingTime:
		prefix := keyboards.PService
		text := textChooseService
		if sess.Intent == IntentOnBehalf {
			prefix = keyboards.PAdminService
			text = "Шаг 1: Выберите услугу для клиента"
		}
		sess.Draft = Draft{}
		sess.State = StateChoosingService
		h.editWithMarkup(chatID, messageID, text, keyboards.Services(h.cfg.Services, prefix))
	case StateAdminViewDate, StateAdminSlotAddDate, StateAdminSlotRemoveDate:
		sess.State = StateAdminPanel
		h.editWithMarkup(chatID, messageID, "Админ-панель:", keyboards.AdminMain())
	default:
		sess.Reset()
		h.edit(chatID, messageID, "Действие отменено.")
		h.sendWithMarkup(chatID, textMainMenu, keyboards.MainMenu())
	}
}

func (h *Handler) flipCalendar(chatID int64, messageID int, nav string, shift int, admin bool) {
	rawYear, rawMonth, ok := strings.Cut(nav, "-")
	if !ok {
		return
	}
	year, err1 := strconv.Atoi(rawYear)
	month, err2 := strconv.Atoi(rawMonth)
	if err1 != nil || err2 != nil {
		return
	}
	// time.Date нормализует месяцы за границами 1..12
	target := time.Date(year, time.Month(month+shift), 1, 0, 0, 0, 0, time.Local)
	kb := keyboards.Calendar(target.Year(), target.Month(), time.Now(), admin)
	_, _ = h.bot.Send(tgbotapi.NewEditMessageReplyMarkup(chatID, messageID, kb))
}

// ---------- Вспомогательное ----------

func (h *Handler) calendarNow(admin bool) tgbotapi.InlineKeyboardMarkup {
	now := time.Now()
	return keyboards.Calendar(now.Year(), now.Month(), now, admin)
}

func (h *Handler) namePrompt(sess *Session) string {
	if sess.Intent == IntentOnBehalf {
		return "Введите имя клиента:"
	}
	return "Введите ваше имя:"
}

func (h *Handler) phonePrompt(sess *Session) string {
	if sess.Intent == IntentOnBehalf {
		return "Введите телефон клиента в формате +79123456789:"
	}
	return "Введите ваш номер телефона в формате +79123456789:"
}

func (h *Handler) confirmPrefix(sess *Session) string {
	if sess.Intent == IntentOnBehalf {
		return "admin_"
	}
	return ""
}

func (h *Handler) confirmSummary(sess *Session) string {
	svc, _ := h.cfg.ServiceByID(sess.Draft.ServiceID)
	at, _ := time.ParseInLocation("2006-01-02 15:04", sess.Draft.Date+" "+sess.Draft.Time, time.Local)
	return fmt.Sprintf(
		"✅ <b>Проверьте и подтвердите запись:</b>\n\n"+
			"<b>Услуга:</b> %s\n"+
			"<b>Дата и время:</b> %s, %s\n"+
			"<b>Имя:</b> %s\n"+
			"<b>Телефон:</b> %s",
		svc.Name, FormatDateRU(at), at.Format("15:04"), sess.Draft.Name, sess.Draft.Phone)
}

func (h *Handler) adminOnly(cq *tgbotapi.CallbackQuery) bool {
	if h.cfg.IsAdmin(cq.From.ID) {
		return true
	}
	h.alert(cq.ID, textNoAccess)
	return false
}

func (h *Handler) alert(callbackID, text string) {
	cb := tgbotapi.NewCallbackWithAlert(callbackID, text)
	_, _ = h.bot.Request(cb)
}

func (h *Handler) send(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn().Err(err).Msg("send message")
	}
}

func (h *Handler) sendWithMarkup(chatID int64, text string, markup interface{}) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	msg.ReplyMarkup = markup
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn().Err(err).Msg("send message")
	}
}

func (h *Handler) edit(chatID int64, messageID int, text string) {
	msg := tgbotapi.NewEditMessageText(chatID, messageID, text)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn().Err(err).Msg("edit message")
	}
}

func (h *Handler) editWithMarkup(chatID int64, messageID int, text string, markup tgbotapi.InlineKeyboardMarkup) {
	msg := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, text, markup)
	msg.ParseMode = tgbotapi.ModeHTML
	if _, err := h.bot.Send(msg); err != nil {
		h.logger.Warn().Err(err).Msg("edit message")
	}
}
