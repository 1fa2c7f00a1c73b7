package lifecycle_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/serviexpress/backend/internal/lifecycle"
	"github.com/serviexpress/backend/internal/models"
)

func TestClienteInitiatesCheckout(t *testing.T) {
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudPendiente, models.SolicitudPagoEnProceso, lifecycle.ActorCliente))
}

func TestClienteRetriesAfterFailedPayment(t *testing.T) {
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudPagoFallido, models.SolicitudPagoEnProceso, lifecycle.ActorCliente))
}

func TestWebhookResolvesPayment(t *testing.T) {
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudPagoEnProceso, models.SolicitudPagoAceptado, lifecycle.ActorSistema))
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudPagoEnProceso, models.SolicitudPagoFallido, lifecycle.ActorSistema))
}

func TestAdminResolvesStuckPayment(t *testing.T) {
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudPagoEnProceso, models.SolicitudPagoAceptado, lifecycle.ActorAdmin))
}

func TestAdminCannotSkipCheckout(t *testing.T) {
	err := lifecycle.CanTransition(
		models.SolicitudPendiente, models.SolicitudPagoAceptado, lifecycle.ActorAdmin)
	require.Error(t, err)
	require.Contains(t, err.Error(), "transición inválida")
}

func TestClienteCannotApproveOwnPayment(t *testing.T) {
	require.Error(t, lifecycle.CanTransition(
		models.SolicitudPagoEnProceso, models.SolicitudPagoAceptado, lifecycle.ActorCliente))
}

func TestWorkFlow(t *testing.T) {
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudPagoAceptado, models.SolicitudEnProceso, lifecycle.ActorProveedor))
	require.NoError(t, lifecycle.CanTransition(
		models.SolicitudEnProceso, models.SolicitudFinalizado, lifecycle.ActorCliente))
}

func TestFinalizadoIsTerminal(t *testing.T) {
	require.Empty(t, lifecycle.ValidTransitionsFrom(models.SolicitudFinalizado))

	err := lifecycle.CanTransition(
		models.SolicitudFinalizado, models.SolicitudPendiente, lifecycle.ActorAdmin)
	require.Error(t, err)
	require.Contains(t, err.Error(), "estado terminal")
}

func TestValidTransitionsFromDeduplicates(t *testing.T) {
	// PAGO_EN_PROCESO tiene las mismas salidas para sistema y admin
	nexts := lifecycle.ValidTransitionsFrom(models.SolicitudPagoEnProceso)
	require.ElementsMatch(t, []models.EstadoSolicitud{
		models.SolicitudPagoAceptado,
		models.SolicitudPagoFallido,
	}, nexts)
}
