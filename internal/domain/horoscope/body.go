package horoscope

import (
	"fmt"
	"strings"
)

// Body is the six-section structure of a daily horoscope message.
type Body struct {
	Theme         string
	Work          string
	Relationships string
	Finances      string
	Energy        string
	Advice        string
}

// Render formats the body as the final message text sent to a subscriber.
func (b Body) Render(sign Sign, isoDate string) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("🔮 Гороскоп для знака %s на %s\n\n", sign, isoDate))
	sb.WriteString("Тема дня: " + b.Theme + "\n")
	sb.WriteString("Работа: " + b.Work + "\n")
	sb.WriteString("Отношения: " + b.Relationships + "\n")
	sb.WriteString("Финансы: " + b.Finances + "\n")
	sb.WriteString("Энергия: " + b.Energy + "\n")
	sb.WriteString("Совет: " + b.Advice)
	return sb.String()
}
