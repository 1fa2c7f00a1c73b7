package pagos_test

import (
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/serviexpress/backend/internal/config"
	"github.com/serviexpress/backend/internal/models"
	"github.com/serviexpress/backend/internal/services/pagos"
	"github.com/serviexpress/backend/internal/services/wompi"
)

func setupDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Usuario{},
		&models.Servicio{},
		&models.Solicitud{},
		&models.Pago{},
		&models.Calificacion{},
	))
	return db
}

func testWompi() *wompi.Service {
	return wompi.New(config.WompiConfig{
		PublicKey:        "pub_test_abc",
		IntegritySecret:  "test_integrity_secret",
		EventsSecret:     "test_events_secret",
		Currency:         "COP",
		DeliveryFeeCents: 1000000,
		MinAmountCents:   500000,
		ExpirationMin:    20,
	})
}

func newService(t *testing.T) (*pagos.Service, *gorm.DB) {
	t.Helper()
	db := setupDB(t)
	svc := pagos.NewService(db, testWompi(), nil)
	svc.PublishEventos = false
	return svc, db
}

// crearEscenario seeds proveedor, cliente, servicio (80.000 COP) and a
// PENDIENTE solicitud.
func crearEscenario(t *testing.T, db *gorm.DB) *models.Solicitud {
	t.Helper()

	proveedor := models.Usuario{Nombre: "Marta", Email: "marta@example.com", Password: "x", Rol: models.RolProveedor, Activo: true}
	require.NoError(t, db.Create(&proveedor).Error)

	cliente := models.Usuario{Nombre: "Luis", Email: "luis@example.com", Password: "x", Rol: models.RolCliente, Activo: true}
	require.NoError(t, db.Create(&cliente).Error)

	servicio := models.Servicio{
		Nombre:      "Plomería a domicilio",
		Descripcion: "Reparación de fugas",
		Precio:      80000,
		Estado:      models.ServicioOcupado,
		ProveedorID: proveedor.ID,
		ClienteID:   &cliente.ID,
	}
	require.NoError(t, db.Create(&servicio).Error)

	solicitud := models.Solicitud{
		FechaSolicitud: time.Now(),
		Estado:         models.SolicitudPendiente,
		Detalles:       "Fuga en la cocina",
		ServicioID:     servicio.ID,
		ClienteID:      cliente.ID,
	}
	require.NoError(t, db.Create(&solicitud).Error)
	return &solicitud
}

func TestIniciarCheckout(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	// 80.000 COP -> 8.000.000 centavos + 1.000.000 de domicilio
	require.Equal(t, int64(9000000), session.MontoCents)
	require.Equal(t, "COP", session.Moneda)
	require.Contains(t, session.CheckoutURL, "amount-in-cents=9000000")
	require.Contains(t, session.Referencia, fmt.Sprintf("SOL-%d-", solicitud.ID))
	require.NotEmpty(t, session.Token)

	var pago models.Pago
	require.NoError(t, db.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error)
	require.Equal(t, models.PagoPendiente, pago.Estado)
	require.Equal(t, session.Referencia, pago.ReferenciaExterna)
	require.Equal(t, "luis@example.com", pago.EmailCliente)

	var actualizada models.Solicitud
	require.NoError(t, db.First(&actualizada, "id = ?", solicitud.ID).Error)
	require.Equal(t, models.SolicitudPagoEnProceso, actualizada.Estado)
	require.NotNil(t, actualizada.PagoID)
	require.Equal(t, pago.ID, *actualizada.PagoID)
}

func TestIniciarCheckoutSolicitudInexistente(t *testing.T) {
	svc, _ := newService(t)
	_, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: 999})
	require.ErrorIs(t, err, pagos.ErrSolicitudNoEncontrada)
}

func TestIniciarCheckoutReutilizaPago(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	primera, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	// el pago falla y el cliente reintenta
	require.NoError(t, db.Model(&models.Pago{}).
		Where("solicitud_id = ?", solicitud.ID).
		Update("estado", models.PagoFallido).Error)
	require.NoError(t, db.Model(&models.Solicitud{}).
		Where("id = ?", solicitud.ID).
		Update("estado", models.SolicitudPagoFallido).Error)

	segunda, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)
	require.NotEqual(t, primera.Token, segunda.Token)

	var total int64
	require.NoError(t, db.Model(&models.Pago{}).
		Where("solicitud_id = ?", solicitud.ID).Count(&total).Error)
	require.Equal(t, int64(1), total)

	var pago models.Pago
	require.NoError(t, db.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error)
	require.Equal(t, models.PagoPendiente, pago.Estado)
	require.Equal(t, segunda.Referencia, pago.ReferenciaExterna)
}

func TestIniciarCheckoutDesdeEstadoInvalido(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	require.NoError(t, db.Model(&models.Solicitud{}).
		Where("id = ?", solicitud.ID).
		Update("estado", models.SolicitudEnProceso).Error)

	_, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.Error(t, err)
	require.Contains(t, err.Error(), "transición inválida")
}

// eventoWebhook builds a signed gateway event body for the given pago.
func eventoWebhook(t *testing.T, w *wompi.Service, referencia, status string, amountInCents int64) (string, []byte) {
	t.Helper()

	timestamp := time.Now().Unix()
	trxID := "trx-" + referencia
	checksum := w.EventChecksum([]string{trxID, status, fmt.Sprint(amountInCents)}, timestamp)

	body := map[string]interface{}{
		"event": "transaction.updated",
		"data": map[string]interface{}{
			"transaction": map[string]interface{}{
				"id":              trxID,
				"amount_in_cents": amountInCents,
				"reference":       referencia,
				"status":          status,
				"currency":        "COP",
			},
		},
		"signature": map[string]interface{}{
			"properties": []string{"transaction.id", "transaction.status", "transaction.amount_in_cents"},
			"checksum":   checksum,
		},
		"timestamp": timestamp,
	}
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	return checksum, raw
}

func TestProcesarWebhookAprobado(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	checksum, body := eventoWebhook(t, testWompi(), session.Referencia, "APPROVED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	var pago models.Pago
	require.NoError(t, db.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error)
	require.Equal(t, models.PagoAprobado, pago.Estado)
	require.NotNil(t, pago.ConfirmadoEn)
	require.NotEmpty(t, pago.GatewayPayload)

	var actualizada models.Solicitud
	require.NoError(t, db.First(&actualizada, "id = ?", solicitud.ID).Error)
	require.Equal(t, models.SolicitudPagoAceptado, actualizada.Estado)
}

func TestProcesarWebhookFallido(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	checksum, body := eventoWebhook(t, testWompi(), session.Referencia, "DECLINED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	var actualizada models.Solicitud
	require.NoError(t, db.First(&actualizada, "id = ?", solicitud.ID).Error)
	require.Equal(t, models.SolicitudPagoFallido, actualizada.Estado)
}

func TestProcesarWebhookDuplicado(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	checksum, body := eventoWebhook(t, testWompi(), session.Referencia, "APPROVED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	// la pasarela reintenta la entrega
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	var pago models.Pago
	require.NoError(t, db.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error)
	require.Equal(t, models.PagoAprobado, pago.Estado)
}

func TestProcesarWebhookNoDegradaPagoAprobado(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	checksum, body := eventoWebhook(t, testWompi(), session.Referencia, "APPROVED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	// un DECLINED tardío con checksum válido no debe revertir el pago
	checksum, body = eventoWebhook(t, testWompi(), session.Referencia, "DECLINED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	var pago models.Pago
	require.NoError(t, db.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error)
	require.Equal(t, models.PagoAprobado, pago.Estado)

	var actualizada models.Solicitud
	require.NoError(t, db.First(&actualizada, "id = ?", solicitud.ID).Error)
	require.Equal(t, models.SolicitudPagoAceptado, actualizada.Estado)
}

func TestProcesarWebhookReembolsoTrasAprobacion(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	checksum, body := eventoWebhook(t, testWompi(), session.Referencia, "APPROVED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	checksum, body = eventoWebhook(t, testWompi(), session.Referencia, "VOIDED", session.MontoCents)
	require.NoError(t, svc.ProcesarWebhook(checksum, body))

	var pago models.Pago
	require.NoError(t, db.Where("solicitud_id = ?", solicitud.ID).First(&pago).Error)
	require.Equal(t, models.PagoReembolsado, pago.Estado)
}

func TestProcesarWebhookCuerpoInvalido(t *testing.T) {
	svc, _ := newService(t)
	err := svc.ProcesarWebhook("x", []byte("esto no es json"))
	require.ErrorIs(t, err, pagos.ErrEventoInvalido)
}

func TestProcesarWebhookChecksumInvalido(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	_, body := eventoWebhook(t, testWompi(), session.Referencia, "APPROVED", session.MontoCents)
	err = svc.ProcesarWebhook("deadbeef", body)
	require.ErrorIs(t, err, pagos.ErrFirmaInvalida)
}

func TestProcesarWebhookMontoNoCoincide(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	checksum, body := eventoWebhook(t, testWompi(), session.Referencia, "APPROVED", session.MontoCents-1)
	err = svc.ProcesarWebhook(checksum, body)
	require.ErrorIs(t, err, pagos.ErrMontoNoCoincide)
}

func TestProcesarWebhookReferenciaDesconocida(t *testing.T) {
	svc, _ := newService(t)

	checksum, body := eventoWebhook(t, testWompi(), "SOL-999-1", "APPROVED", 9000000)
	err := svc.ProcesarWebhook(checksum, body)
	require.ErrorIs(t, err, pagos.ErrPagoNoEncontrado)
}

func TestGetByToken(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	pago, err := svc.GetByToken(session.Token)
	require.NoError(t, err)
	require.Equal(t, session.Referencia, pago.ReferenciaExterna)

	_, err = svc.GetByToken("no-existe")
	require.ErrorIs(t, err, pagos.ErrPagoNoEncontrado)
}

func TestGetByTokenExpirado(t *testing.T) {
	svc, db := newService(t)
	solicitud := crearEscenario(t, db)

	session, err := svc.IniciarCheckout(pagos.CheckoutInit{SolicitudID: solicitud.ID})
	require.NoError(t, err)

	vencido := time.Now().Add(-time.Minute)
	require.NoError(t, db.Model(&models.Pago{}).
		Where("solicitud_id = ?", solicitud.ID).
		Update("token_expira_en", vencido).Error)

	_, err = svc.GetByToken(session.Token)
	require.ErrorIs(t, err, pagos.ErrTokenExpirado)
}
