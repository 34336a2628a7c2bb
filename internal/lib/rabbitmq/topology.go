package rabbitmq

import "github.com/streadway/amqp"

// Обменники биллинга.
const (
	BillingExchange    = "billing"
	DeadLetterExchange = "billing.dlx"
)

// Ключи маршрутизации и очереди биллинга.
const (
	RoutingUnresolved    = "unresolved"
	RoutingPaymentFailed = "payment_failed"

	QueueUnresolved    = "billing.unresolved"
	QueuePaymentFailed = "billing.payment_failed"
	// QueueDead собирает отклонённые сообщения обеих очередей для ручного разбора.
	QueueDead = "billing.dead"
)

const defaultPrefetch = 10

// QueueConfig описывает очередь и ключ, которым она привязана к обменнику.
type QueueConfig struct {
	QueueName  string
	RoutingKey string
}

// Topology набор очередей одного обменника и лимит неподтверждённых сообщений на канал.
// Если задан DeadLetter, отклонённые без повтора сообщения уходят в него.
type Topology struct {
	Exchange   string
	Queues     []QueueConfig
	DeadLetter *QueueConfig
	Prefetch   int
}

// BillingTopology топология, которую объявляет каждый процесс сервиса.
func BillingTopology() Topology {
	return Topology{
		Exchange: BillingExchange,
		Queues: []QueueConfig{
			{QueueName: QueueUnresolved, RoutingKey: RoutingUnresolved},
			{QueueName: QueuePaymentFailed, RoutingKey: RoutingPaymentFailed},
		},
		DeadLetter: &QueueConfig{QueueName: QueueDead, RoutingKey: "#"},
		Prefetch:   defaultPrefetch,
	}
}

func (t Topology) prefetch() int {
	if t.Prefetch <= 0 {
		return defaultPrefetch
	}
	return t.Prefetch
}

func (t Topology) queueArgs() amqp.Table {
	if t.DeadLetter == nil {
		return nil
	}
	return amqp.Table{"x-dead-letter-exchange": DeadLetterExchange}
}
