package queue

import (
	"context"
	"encoding/json"
	"fmt"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	KindAppointments = "appointments"
	KindLeads        = "leads"
	KindCompare      = "compare"
)

// SyncJobPayload é o job que os endpoints de sync publicam e o worker
// consome. O endpoint responde 202 na hora; a run acontece aqui.
type SyncJobPayload struct {
	RunID string `json:"run_id"`
	Kind  string `json:"kind"` // appointments | leads | compare

	PracticeID   string `json:"practice_id,omitempty"`
	PracticeName string `json:"practice_name,omitempty"`
	RequestedBy  string `json:"requested_by,omitempty"`

	// Credenciais resolvidas pelo handler (inline ou do banco)
	APIKey string `json:"api_key,omitempty"`
	APIURL string `json:"api_url,omitempty"`
}

type QueueProducerInterface interface {
	PublishSyncJob(ctx context.Context, payload SyncJobPayload) error
}

type RabbitMQProducer struct {
	Conn *amqp.Connection
	Ch   *amqp.Channel
}

func NewProducer(conn *amqp.Connection, ch *amqp.Channel) *RabbitMQProducer {
	return &RabbitMQProducer{
		Conn: conn,
		Ch:   ch,
	}
}

func (p *RabbitMQProducer) PublishSyncJob(ctx context.Context, payload SyncJobPayload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("erro ao converter payload: %v", err)
	}

	err = p.Ch.PublishWithContext(ctx,
		ExchangeName,
		RoutingKey,
		false, // Mandatory
		false, // Immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent, // Mensagem salva no disco
		},
	)

	if err != nil {
		return fmt.Errorf("falha ao publicar no RabbitMQ: %v", err)
	}

	return nil
}
