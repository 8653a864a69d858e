package receiver

import (
	"fmt"
	"time"
)

var ruMonths = [...]string{
	"января", "февраля", "марта", "апреля", "мая", "июня",
	"июля", "августа", "сентября", "октября", "ноября", "декабря",
}

// FormatDateRU renders a date the way the salon writes it: "20 июня 2025 г."
func FormatDateRU(t time.Time) string {
	return fmt.Sprintf("%d %s %d г.", t.Day(), ruMonths[t.Month()-1], t.Year())
}

const aboutText = `
Добро пожаловать в <b>Студию красоты "Aeterna"</b>!
<i>Место, где ваша красота становится вечной.</i>

Мы рады предложить вам первоклассный сервис и уютную атмосферу, в которой вы сможете по-настоящему расслабиться.

<b>Наши преимущества:</b>
✨ <b>Профессионализм:</b> Наши мастера — сертифицированные специалисты с многолетним опытом.
🛡️ <b>Безопасность:</b> Мы строго соблюдаем все нормы СанПиН. Инструменты проходят 3 этапа стерилизации.
💎 <b>Качество:</b> Работаем только на премиальных, гипоаллергенных материалах от ведущих брендов.
☕ <b>Атмосфера:</b> У нас вы сможете насладиться чашечкой ароматного кофе или чая и отдохнуть от городской суеты.

📍 <b>Наш адрес:</b>
г. Москва, ул. Тверская, д. 15, 2 этаж, офис 214

🕒 <b>Часы работы:</b>
Понедельник - Воскресенье, с 10:00 до 21:00

📞 <b>Телефон для связи:</b>
+7 (495) 123-45-67
`

const (
	textMainMenu       = "Вы вернулись в главное меню. Выберите действие:"
	textChooseService  = "Выберите услугу:"
	textPastDate       = "Эта дата уже прошла. Пожалуйста, выберите доступную дату."
	textGenericTrouble = "Что-то пошло не так. Попробуйте снова."
	textNoAccess       = "У вас нет прав доступа."
	textBadPhone       = "Неверный формат номера. Пожалуйста, введите номер в формате +79123456789."
	textBookingFailed  = "❌ Произошла ошибка при создании записи. Возможно, это время уже заняли."
	textUseButtons     = "Пожалуйста, используйте кнопки 👆"
)
