package keyboards

import (
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

var monthNames = [...]string{
	"Январь", "Февраль", "Март", "Апрель", "Май", "Июнь",
	"Июль", "Август", "Сентябрь", "Октябрь", "Ноябрь", "Декабрь",
}

var weekdayNames = [...]string{"Пн", "Вт", "Ср", "Чт", "Пт", "Сб", "Вс"}

// Calendar renders one month, Monday first. Days before today are wired to
// the past_date callback (the handler answers with an alert); selectable
// days carry "<datePrefix>YYYY-MM-DD". The nav row pages by month.
func Calendar(year int, month time.Month, today time.Time, admin bool) tgbotapi.InlineKeyboardMarkup {
	datePrefix, prevPrefix, nextPrefix := PDate, PPrevMonth, PNextMonth
	if admin {
		datePrefix, prevPrefix, nextPrefix = PAdminDate, PAdminPrevMonth, PAdminNextMonth
	}
	todayDate := time.Date(today.Year(), today.Month(), today.Day(), 0, 0, 0, 0, time.Local)

	ignore := func(text string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(text, CbIgnore)
	}

	var rows [][]tgbotapi.InlineKeyboardButton
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		ignore(" "),
		ignore(fmt.Sprintf("%s %d", monthNames[month-1], year)),
		ignore(" "),
	))

	header := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for _, d := range weekdayNames {
		header = append(header, ignore(d))
	}
	rows = append(rows, header)

	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	daysInMonth := time.Date(year, month+1, 0, 0, 0, 0, 0, time.Local).Day()
	lead := (int(first.Weekday()) + 6) % 7 // Monday = 0

	week := make([]tgbotapi.InlineKeyboardButton, 0, 7)
	for i := 0; i < lead; i++ {
		week = append(week, ignore(" "))
	}
	for day := 1; day <= daysInMonth; day++ {
		date := time.Date(year, month, day, 0, 0, 0, 0, time.Local)
		if date.Before(todayDate) {
			week = append(week, tgbotapi.NewInlineKeyboardButtonData(fmt.Sprintf("%d", day), CbPastDate))
		} else {
			week = append(week, tgbotapi.NewInlineKeyboardButtonData(
				fmt.Sprintf("%d", day), datePrefix+date.Format("2006-01-02"),
			))
		}
		if len(week) == 7 {
			rows = append(rows, week)
			week = make([]tgbotapi.InlineKeyboardButton, 0, 7)
		}
	}
	if len(week) > 0 {
		for len(week) < 7 {
			week = append(week, ignore(" "))
		}
		rows = append(rows, week)
	}

	nav := fmt.Sprintf("%d-%d", year, int(month))
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		tgbotapi.NewInlineKeyboardButtonData("<", prevPrefix+nav),
		tgbotapi.NewInlineKeyboardButtonData("◀️ Назад", CbBackToServices),
		tgbotapi.NewInlineKeyboardButtonData(">", nextPrefix+nav),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}
