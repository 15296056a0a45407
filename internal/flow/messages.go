package flow

import (
	"fmt"
	"strings"

	"github.com/ndavila/comprobantes-bot/internal/model"
	"github.com/ndavila/comprobantes-bot/internal/session"
)

// User-facing texts. The bot speaks Spanish; every menu lists numbered
// options and unrecognized replies re-issue the menu in place.
const (
	msgCancelled = "🚫 Flujo cancelado."
	msgTimeout   = "⏰ El flujo se ha cancelado por inactividad (3 minutos). Envía un nuevo comprobante para comenzar nuevamente."

	msgConfirmMenu     = "❓ Por favor responde con:\n1. Sí\n2. No\n3. Cancelar"
	msgSaveMenu        = "❓ Por favor responde con:\n1. Guardar así\n2. Modificar datos\n3. Cancelar"
	msgNewNameMenu     = "❓ Por favor responde:\n1. Confirmar\n2. Escribir otro nombre\n3. Cancelar"
	msgAskPayeeName    = "❓ ¿Cuál es el nombre correcto del destinatario?\n\nEscribe el nombre o 'cancelar' para terminar."
	msgAskPayeeUnknown = "❓ No pude identificar el destinatario claramente.\n\n¿Podrías especificar el nombre del destinatario?\n\nEscribe el nombre o \"cancelar\" para terminar."
	msgWritePayeeName  = "✏️ Escribe el nombre del destinatario:"
	msgWriteMethodName = "✏️ Escribe el nombre del método de pago:"
	msgNoMethods       = "❌ No hay métodos de pago configurados."

	msgCannotInterpret = "❌ Ocurrió un error interpretando el mensaje. Intenta nuevamente."
	msgNoTextFound     = "❌ No pude leer texto en el mensaje. Envía un comprobante o escribe los datos."
	msgSaveFailed      = "❌ Error guardando el comprobante. Intenta nuevamente."
	msgPayeeSaveFailed = "❌ Error guardando el destinatario. Intenta nuevamente."
	msgMethodFailed    = "❌ Error guardando el método de pago. Intenta nuevamente."
	msgReportFailed    = "❌ Error generando el resumen. Intenta nuevamente."

	msgModificationWIP = "🚧 Funcionalidad de modificación en desarrollo."
)

func payeeConfirmPrompt(name string) string {
	return fmt.Sprintf("✅ El destinatario es *%s*\n\n¿Es correcto?\n\n1. Sí\n2. No\n3. Cancelar\n\nEscribe el número de tu opción:", name)
}

func payeeRetryConfirmPrompt(name string) string {
	return fmt.Sprintf("✅ ¿Te refieres a *%s*?\n\n1. Sí\n2. No\n3. Cancelar\n\nEscribe el número:", name)
}

func payeeSelectedPrompt(name string) string {
	return fmt.Sprintf("✅ Seleccionaste: *%s*\n\n¿Es correcto?\n\n1. Sí\n2. No\n3. Cancelar", name)
}

func payeeOptionsPrompt(searchTerm string, payees []model.Payee) string {
	var b strings.Builder
	fmt.Fprintf(&b, "❓ No encontré \"%s\" exactamente.\n\n", searchTerm)
	b.WriteString("¿Qué quieres hacer?\n\n")
	fmt.Fprintf(&b, "1. Crear nuevo destinatario: \"%s\"\n", searchTerm)
	b.WriteString("2. Elegir de la lista:\n")
	for i, p := range payees {
		fmt.Fprintf(&b, "   %d. %s\n", i+3, p.Name)
	}
	fmt.Fprintf(&b, "\n%d. Cancelar", len(payees)+3)
	return b.String()
}

func newPayeeNamePrompt(name string) string {
	return fmt.Sprintf("✏️ Confirma el nombre del nuevo destinatario:\n\n\"%s\"\n\n1. Confirmar\n2. Escribir otro nombre\n3. Cancelar", name)
}

func methodConfirmPrompt(name string) string {
	return fmt.Sprintf("💳 El método de pago es *%s*\n\n¿Es correcto?\n\n1. Sí\n2. No\n3. Cancelar", name)
}

func methodListPrompt(methods []model.PaymentMethod) string {
	var b strings.Builder
	b.WriteString("💳 Selecciona el método de pago:\n\n")
	for i, m := range methods {
		fmt.Fprintf(&b, "%d. %s\n", i+1, m.Name)
	}
	fmt.Fprintf(&b, "\n%d. Otro (especificar)\n", len(methods)+1)
	fmt.Fprintf(&b, "%d. Cancelar", len(methods)+2)
	return b.String()
}

func summaryPrompt(data session.Data) string {
	extraction := data.Extraction
	if extraction == nil {
		extraction = &model.Extraction{}
	}

	return fmt.Sprintf("📋 *RESUMEN DEL COMPROBANTE*\n\n"+
		"👤 Destinatario: %s\n"+
		"💰 Monto: $%s\n"+
		"📅 Fecha: %s\n"+
		"🕐 Hora: %s\n"+
		"📊 Tipo: %s\n"+
		"💳 Método: %s\n"+
		"📝 Observación: %s\n\n"+
		"¿Qué quieres hacer?\n\n"+
		"1. Guardar así\n"+
		"2. Modificar datos\n"+
		"3. Cancelar",
		data.PayeeMatch.Name,
		orDefault(formatAmount(extraction.Amount), "No especificado"),
		orDefault(extraction.Date, "No especificada"),
		orDefault(extraction.Time, "No especificada"),
		orDefault(movementLabel(extraction.MovementType), "No especificado"),
		data.Method.Name,
		orDefault(extraction.Note, "Ninguna"),
	)
}

func modificationMenuPrompt(data session.Data) string {
	extraction := data.Extraction
	if extraction == nil {
		extraction = &model.Extraction{}
	}

	return fmt.Sprintf("✏️ ¿Qué quieres modificar?\n\n"+
		"1. Destinatario (%s)\n"+
		"2. Monto ($%s)\n"+
		"3. Fecha (%s)\n"+
		"4. Tipo movimiento (%s)\n"+
		"5. Método pago (%s)\n"+
		"6. Volver al resumen\n"+
		"7. Cancelar",
		data.PayeeMatch.Name,
		formatAmount(extraction.Amount),
		extraction.Date,
		movementLabel(extraction.MovementType),
		data.Method.Name,
	)
}

func savedPrompt(id, payee string, amount float64) string {
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("✅ *COMPROBANTE GUARDADO EXITOSAMENTE*\n\n"+
		"📋 ID: %s\n"+
		"👤 Destinatario: %s\n"+
		"💰 Monto: $%s\n\n"+
		"¡Gracias! Puedes enviar otro comprobante cuando quieras.",
		short, payee, formatAmount(amount))
}

func movementLabel(t model.MovementType) string {
	switch t {
	case model.MovementIncome:
		return "ingreso"
	case model.MovementExpense:
		return "egreso"
	default:
		return ""
	}
}

func formatAmount(amount float64) string {
	if amount == 0 {
		return ""
	}
	return fmt.Sprintf("%.2f", amount)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
