// Package keyboards builds the inline and reply keyboards of the dialogue.
// Callback data is "<prefix><value>" for parameterized buttons and a bare
// key for menu actions.
package keyboards

import (
	"fmt"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/aeterna-studio/booking-bot/pkg/repository/model"
)

// ---------- Callback keys ----------

const (
	CbMainMenu         = "to_main_menu"
	CbCancel           = "cancel_process"
	CbIgnore           = "ignore"
	CbPastDate         = "past_date"
	CbBackToServices   = "back_to_services"
	CbConfirm          = "confirm_booking"
	CbAdminConfirm     = "admin_confirm_booking"
	CbAdminPanel       = "admin_panel"
	CbAdminView        = "admin_view_bookings"
	CbAdminManageSlots = "admin_manage_slots"
	CbAdminAddSlot     = "admin_add_slot"
	CbAdminRemoveSlot  = "admin_remove_slot_start"
	CbAdminManual      = "admin_manual_booking_start"

	PService         = "service:"          // service:manicure
	PAdminService    = "admin_service:"    //
	PDate            = "date:"             // date:2025-06-20
	PAdminDate       = "admin_date:"       //
	PTime            = "time:"             // time:10:30
	PAdminTime       = "admin_time:"       //
	PCancelBooking   = "cancel_booking:"   // cancel_booking:42
	PAdminDeleteSlot = "admin_delete_slot:" // admin_delete_slot:2025-06-20_09:00
	PPrevMonth       = "prev_month:"       // prev_month:2025-6
	PNextMonth       = "next_month:"       //
	PAdminPrevMonth  = "admin_prev_month:" //
	PAdminNextMonth  = "admin_next_month:" //
)

// ---------- Главное меню ----------

func MainMenu() tgbotapi.ReplyKeyboardMarkup {
	kb := tgbotapi.NewReplyKeyboard(
		tgbotapi.NewKeyboardButtonRow(tgbotapi.NewKeyboardButton("📅 Записаться")),
		tgbotapi.NewKeyboardButtonRow(
			tgbotapi.NewKeyboardButton("📔 Мои записи"),
			tgbotapi.NewKeyboardButton("ℹ️ О нас"),
		),
	)
	kb.ResizeKeyboard = true
	return kb
}

func About() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", CbMainMenu)),
	)
}

// Cancel — универсальная кнопка отмены текущего действия.
func Cancel() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отмена", CbCancel)),
	)
}

// Services renders the catalog, one button per service with its price.
func Services(services []model.Service, prefix string) tgbotapi.InlineKeyboardMarkup {
	rows := make([][]tgbotapi.InlineKeyboardButton, 0, len(services)+1)
	for _, s := range services {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%s (%d руб.)", s.Name, s.Price), prefix+s.ID,
			),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", CbMainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// TimeSlots lays the offered times out four per row. An empty offer renders
// a single inert placeholder.
func TimeSlots(slots []string, backCallback, prefix string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(slots) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Свободных слотов нет", CbIgnore),
		))
	} else {
		var row []tgbotapi.InlineKeyboardButton
		for _, t := range slots {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData(t, prefix+t))
			if len(row) == 4 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад к выбору даты", backCallback),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// Confirmation asks to confirm the assembled booking; prefix распознаёт
// админский вариант подтверждения.
func Confirmation(prefix string) tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✅ Подтвердить", prefix+CbConfirm)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("❌ Отменить", CbCancel)),
	)
}

// MyBookings lists the user's active bookings, each with its own cancel
// button carrying the booking id.
func MyBookings(bookings []model.Booking) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(bookings) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("У вас нет активных записей", CbIgnore),
		))
	} else {
		for _, b := range bookings {
			label := fmt.Sprintf("❌ Отменить: %s - %s", b.ServiceName, b.BookingAt.Format("02.01.2006 15:04"))
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(
				tgbotapi.NewInlineKeyboardButtonData(label, fmt.Sprintf("%s%d", PCancelBooking, b.ID)),
			))
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад в меню", CbMainMenu),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// ---------- Админ клавиатуры ----------

func AdminMain() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("📋 Записи на день", CbAdminView)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("🗓️ Управление слотами", CbAdminManageSlots)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("✍️ Записать клиента", CbAdminManual)),
	)
}

func AdminManageSlots() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➕ Добавить слот", CbAdminAddSlot)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("➖ Удалить слот", CbAdminRemoveSlot)),
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", CbAdminPanel)),
	)
}

// SlotsForRemoval shows the admin-opened slots of one date, four per row.
// Callback data joins date and time with "_" so the time's colon survives.
func SlotsForRemoval(slots []string, date string) tgbotapi.InlineKeyboardMarkup {
	var rows [][]tgbotapi.InlineKeyboardButton
	if len(slots) == 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			tgbotapi.NewInlineKeyboardButtonData("Нет созданных слотов для удаления", CbIgnore),
		))
	} else {
		var row []tgbotapi.InlineKeyboardButton
		for _, t := range slots {
			row = append(row, tgbotapi.NewInlineKeyboardButtonData("❌ "+t, PAdminDeleteSlot+date+"_"+t))
			if len(row) == 4 {
				rows = append(rows, row)
				row = nil
			}
		}
		if len(row) > 0 {
			rows = append(rows, row)
		}
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", CbAdminManageSlots),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func AdminBack() tgbotapi.InlineKeyboardMarkup {
	return tgbotapi.NewInlineKeyboardMarkup(
		tgbotapi.NewInlineKeyboardRow(tgbotapi.NewInlineKeyboardButtonData("◀️ Назад в админ-панель", CbAdminPanel)),
	)
}
