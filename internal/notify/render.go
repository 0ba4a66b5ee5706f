package notify

import (
	"bytes"
	"embed"
	"fmt"
	"html"
	"html/template"
)

//go:embed templates/*.html
var templateFS embed.FS

var emailTemplates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type emailView struct {
	BookingURL string
	Detail     string
	Time       string
	Checks     int64
}

func telegramText(n Notice) string {
	if n.Kind == KindTest {
		return fmt.Sprintf("✅ <b>TEST - Bot Funcionando</b>\n\n"+
			"🕐 Hora: %s\n📊 Verificaciones: %d\n\n"+
			"Este es un mensaje de prueba. Cuando haya turnos, recibirás una alerta similar pero con el link para reservar.",
			n.At.Format("15:04:05"), n.Checks)
	}
	return fmt.Sprintf("🚨🚨🚨 <b>¡TURNOS DISPONIBLES!</b> 🚨🚨🚨\n\n"+
		"Matrícula Consular - Consulado España BA\n\n"+
		"👉 <a href=\"%s\">CLICK AQUÍ PARA RESERVAR</a>\n\n"+
		"⚡ ¡CORRÉ! Se agotan en segundos",
		html.EscapeString(n.BookingURL))
}

func emailSubject(n Notice) string {
	if n.Kind == KindTest {
		return "✅ TEST - Bot Consulado España Funcionando"
	}
	return "🚨 ¡TURNOS DISPONIBLES! - Consulado España"
}

func emailHTML(n Notice) (string, error) {
	name := "alert.html"
	if n.Kind == KindTest {
		name = "test.html"
	}
	var buf bytes.Buffer
	view := emailView{
		BookingURL: n.BookingURL,
		Detail:     n.Detail,
		Time:       n.At.Format("15:04:05"),
		Checks:     n.Checks,
	}
	if err := emailTemplates.ExecuteTemplate(&buf, name, view); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}

func emailPlain(n Notice) string {
	if n.Kind == KindTest {
		return fmt.Sprintf("Test exitoso. El bot está funcionando correctamente.\nHora del test: %s\nVerificaciones realizadas: %d\n",
			n.At.Format("15:04:05"), n.Checks)
	}
	return fmt.Sprintf("¡TURNOS DISPONIBLES!\n¡Hay turnos! Entrá YA al link:\n%s\n", n.BookingURL)
}
