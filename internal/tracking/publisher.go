package tracking

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sqs"
	"github.com/aws/aws-sdk-go-v2/service/sqs/types"
	"github.com/google/uuid"

	"github.com/ignite/phish-tracker/internal/domain"
	"github.com/ignite/phish-tracker/internal/pkg/logger"
)

const publishTimeout = 5 * time.Second

// SQSSender is the subset of the SQS client used by Publisher.
type SQSSender interface {
	SendMessage(ctx context.Context, params *sqs.SendMessageInput, optFns ...func(*sqs.Options)) (*sqs.SendMessageOutput, error)
}

// Message is the body published for every recorded event.
type Message struct {
	MessageID  string           `json:"message_id"`
	EventID    int64            `json:"event_id"`
	EventType  domain.EventType `json:"event_type"`
	Email      string           `json:"email"`
	IP         string           `json:"ip"`
	CampaignID int64            `json:"campaign_id"`
	EmployeeID int64            `json:"employee_id"`
	Timestamp  time.Time        `json:"timestamp"`
}

// Publisher forwards committed events to an SQS queue for downstream
// consumers (reporting, alerting). Sends are asynchronous and best effort.
type Publisher struct {
	client   SQSSender
	queueURL string
	wg       sync.WaitGroup
}

func NewPublisher(client SQSSender, queueURL string) *Publisher {
	return &Publisher{client: client, queueURL: queueURL}
}

// Notify implements events.Notifier.
func (p *Publisher) Notify(_ context.Context, evt domain.Event) {
	msg := Message{
		MessageID:  uuid.NewString(),
		EventID:    evt.ID,
		EventType:  evt.EventType,
		Email:      evt.Email,
		IP:         evt.IP,
		CampaignID: evt.CampaignID,
		EmployeeID: evt.EmployeeID,
		Timestamp:  evt.Timestamp,
	}
	body, err := json.Marshal(msg)
	if err != nil {
		logger.Error("marshal tracking event", "event_id", evt.ID, "error", err)
		return
	}

	p.wg.Add(1)
	go func() {
		defer p.wg.Done()
		// Detached from the request: the response is already on its way.
		ctx, cancel := context.WithTimeout(context.Background(), publishTimeout)
		defer cancel()

		_, err := p.client.SendMessage(ctx, &sqs.SendMessageInput{
			QueueUrl:    aws.String(p.queueURL),
			MessageBody: aws.String(string(body)),
			MessageAttributes: map[string]types.MessageAttributeValue{
				"event_type": {
					DataType:    aws.String("String"),
					StringValue: aws.String(string(msg.EventType)),
				},
			},
		})
		if err != nil {
			logger.Error("publish tracking event", "event_id", evt.ID, "message_id", msg.MessageID, "error", err)
		}
	}()
}

// Wait blocks until in-flight sends finish or ctx is done.
func (p *Publisher) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
