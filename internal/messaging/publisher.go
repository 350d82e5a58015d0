package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// ChapterPublishedPayload — уведомление о публикации главы с развилкой.
type ChapterPublishedPayload struct {
	StoryID    uuid.UUID `json:"story_id"`
	ChapterID  uuid.UUID `json:"chapter_id"`
	Title      string    `json:"title"`
	Symbols    []string  `json:"symbols,omitempty"`
	VotingEnds time.Time `json:"voting_ends,omitempty"`
}

// WinnerResolvedPayload — уведомление о зафиксированном победителе.
type WinnerResolvedPayload struct {
	StoryID      uuid.UUID `json:"story_id"`
	ChapterID    uuid.UUID `json:"chapter_id"`
	Symbol       string    `json:"symbol"`
	TokenAddress string    `json:"token_address"`
	Method       string    `json:"method"`
}

// NotificationPublisher публикует события жизненного цикла для сервиса
// уведомлений. Вызовы fire-and-forget: ошибка публикации логируется
// и никогда не откатывает и не блокирует переход состояния.
type NotificationPublisher interface {
	PublishChapterPublished(ctx context.Context, payload ChapterPublishedPayload) error
	PublishWinnerResolved(ctx context.Context, payload WinnerResolvedPayload) error
}

// rabbitMQPublisher реализует NotificationPublisher поверх RabbitMQ.
type rabbitMQPublisher struct {
	channel   *amqp.Channel
	queueName string
}

// NewRabbitMQNotificationPublisher создает паблишер уведомлений.
// Паблишер объявляет очередь сам: это делает систему устойчивой
// к порядку запуска сервисов. Параметры очереди должны совпадать
// с параметрами у консьюмера.
func NewRabbitMQNotificationPublisher(conn *amqp.Connection, queueName string) (NotificationPublisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("notification publisher: не удалось открыть канал: %w", err)
	}
	_, err = ch.QueueDeclare(
		queueName, // name
		true,      // durable
		false,     // delete when unused
		false,     // exclusive
		false,     // no-wait
		nil,       // arguments
	)
	if err != nil {
		log.Printf("NotificationPublisher ERROR: Не удалось объявить очередь '%s': %v", queueName, err)
		ch.Close()
		return nil, fmt.Errorf("notification publisher: не удалось объявить очередь '%s': %w", queueName, err)
	}
	log.Printf("NotificationPublisher: Очередь '%s' успешно объявлена/найдена.", queueName)
	return &rabbitMQPublisher{channel: ch, queueName: queueName}, nil
}

type envelope struct {
	Event   string          `json:"event"`
	Payload json.RawMessage `json:"payload"`
}

func (p *rabbitMQPublisher) PublishChapterPublished(ctx context.Context, payload ChapterPublishedPayload) error {
	return p.publishEvent(ctx, "chapter.published", payload)
}

func (p *rabbitMQPublisher) PublishWinnerResolved(ctx context.Context, payload WinnerResolvedPayload) error {
	return p.publishEvent(ctx, "winner.resolved", payload)
}

func (p *rabbitMQPublisher) publishEvent(ctx context.Context, event string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		log.Printf("Publisher: Ошибка маршалинга события %s: %v", event, err)
		return fmt.Errorf("ошибка подготовки сообщения %s: %w", event, err)
	}
	body, err := json.Marshal(envelope{Event: event, Payload: raw})
	if err != nil {
		return fmt.Errorf("ошибка подготовки конверта %s: %w", event, err)
	}
	return p.publishMessage(ctx, body)
}

func (p *rabbitMQPublisher) publishMessage(ctx context.Context, body []byte) error {
	if p.channel == nil {
		log.Println("Ошибка публикации: канал RabbitMQ не инициализирован (nil)")
		return errors.New("канал RabbitMQ не инициализирован")
	}
	// Таймаут на публикацию
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	var err error
	// Попытка публикации с retry до 3 раз
	for attempt := 1; attempt <= 3; attempt++ {
		err = p.channel.PublishWithContext(ctx,
			"",          // exchange (используем default)
			p.queueName, // routing key (имя очереди)
			false,       // mandatory
			false,       // immediate
			amqp.Publishing{
				ContentType:  "application/json",
				DeliveryMode: amqp.Persistent,
				Body:         body,
				Timestamp:    time.Now(),
				AppId:        "plot-voting-engine",
			},
		)
		if err == nil {
			break
		}
		log.Printf("Ошибка публикации (attempt %d) в очередь '%s': %v", attempt, p.queueName, err)
		time.Sleep(time.Duration(attempt) * 100 * time.Millisecond)
	}
	if err != nil {
		return fmt.Errorf("не удалось опубликовать сообщение в '%s': %w", p.queueName, err)
	}
	return nil
}
