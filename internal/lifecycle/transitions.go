// Package lifecycle validates solicitud state changes. Every estado
// mutation in the handlers and the payment reconciliation goes through
// CanTransition, so a solicitud can never jump to an arbitrary state.
package lifecycle

import (
	"errors"
	"strings"

	"github.com/serviexpress/backend/internal/models"
)

// Actor identifies who is attempting a transition.
const (
	ActorCliente   = "cliente"
	ActorProveedor = "proveedor"
	ActorAdmin     = "admin"
	ActorSistema   = "sistema" // webhook reconciliation
)

type Transition struct {
	From  models.EstadoSolicitud
	To    models.EstadoSolicitud
	Actor string
}

var validTransitions = []Transition{
	// Client starts checkout, or retries after a failed payment
	{From: models.SolicitudPendiente, To: models.SolicitudPagoEnProceso, Actor: ActorCliente},
	{From: models.SolicitudPagoFallido, To: models.SolicitudPagoEnProceso, Actor: ActorCliente},

	// Gateway webhook resolves the pending payment
	{From: models.SolicitudPagoEnProceso, To: models.SolicitudPagoAceptado, Actor: ActorSistema},
	{From: models.SolicitudPagoEnProceso, To: models.SolicitudPagoFallido, Actor: ActorSistema},

	// Admin can resolve a stuck payment manually
	{From: models.SolicitudPagoEnProceso, To: models.SolicitudPagoAceptado, Actor: ActorAdmin},
	{From: models.SolicitudPagoEnProceso, To: models.SolicitudPagoFallido, Actor: ActorAdmin},

	// Work starts once the payment is accepted
	{From: models.SolicitudPagoAceptado, To: models.SolicitudEnProceso, Actor: ActorProveedor},
	{From: models.SolicitudPagoAceptado, To: models.SolicitudEnProceso, Actor: ActorCliente},

	// Either side marks the work finished
	{From: models.SolicitudEnProceso, To: models.SolicitudFinalizado, Actor: ActorProveedor},
	{From: models.SolicitudEnProceso, To: models.SolicitudFinalizado, Actor: ActorCliente},
}

type transitionKey struct {
	From  models.EstadoSolicitud
	To    models.EstadoSolicitud
	Actor string
}

var transitionMap = func() map[transitionKey]bool {
	m := make(map[transitionKey]bool, len(validTransitions))
	for _, t := range validTransitions {
		m[transitionKey{t.From, t.To, t.Actor}] = true
	}
	return m
}()

// ValidTransitionsFrom returns the states reachable from a given state,
// regardless of actor.
func ValidTransitionsFrom(estado models.EstadoSolicitud) []models.EstadoSolicitud {
	var nexts []models.EstadoSolicitud
	seen := map[models.EstadoSolicitud]bool{}
	for _, t := range validTransitions {
		if t.From == estado && !seen[t.To] {
			nexts = append(nexts, t.To)
			seen[t.To] = true
		}
	}
	return nexts
}

// CanTransition reports whether the actor may move a solicitud between
// the two states.
func CanTransition(from, to models.EstadoSolicitud, actor string) error {
	if transitionMap[transitionKey{From: from, To: to, Actor: actor}] {
		return nil
	}
	return errors.New("transición inválida: " + string(from) + " -> " + string(to) +
		" no permitida para " + actor + ". Desde " + string(from) +
		" se puede pasar a: " + describeValidFrom(from))
}

func describeValidFrom(estado models.EstadoSolicitud) string {
	nexts := ValidTransitionsFrom(estado)
	if len(nexts) == 0 {
		return "ninguno (estado terminal)"
	}
	parts := make([]string, len(nexts))
	for i, n := range nexts {
		parts[i] = string(n)
	}
	return strings.Join(parts, ", ")
}
