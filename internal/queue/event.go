// Package queue defines the payment events exchanged over the broker.
package queue

// PagoAprobadoEvent is published when the gateway confirms a payment.
// The email consumer uses it to send the confirmation without touching
// the primary database.
type PagoAprobadoEvent struct {
	PagoID       string `json:"pago_id"`
	SolicitudID  uint   `json:"solicitud_id"`
	Referencia   string `json:"referencia"`
	MontoCents   int64  `json:"monto_cents"`
	Moneda       string `json:"moneda"`
	EmailCliente string `json:"email_cliente"`
	Servicio     string `json:"servicio"`
	ConfirmadoEn string `json:"confirmado_en"`
}
