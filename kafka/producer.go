package kafka

import (
	"encoding/json"
	"log"

	"github.com/IBM/sarama"
)

type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

func NewProducer(brokers []string, topic string, config *sarama.Config) (*Producer, error) {
	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, err
	}

	return &Producer{producer: producer, topic: topic}, nil
}

// PublishEvent 以房间 ID 为 key 发布事件，保证同房间事件有序
func (p *Producer) PublishEvent(event RoomEvent) error {
	jsonValue, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.Domain + ":" + event.RoomID),
		Value: sarama.ByteEncoder(jsonValue),
	}

	if _, _, err := p.producer.SendMessage(msg); err != nil {
		log.Printf("Failed to publish %s event for room %s: %v", event.Event, event.RoomID, err)
		return err
	}
	return nil
}

func (p *Producer) Close() error {
	return p.producer.Close()
}

// OriginInterceptor 给每条消息补上来源 header
type OriginInterceptor struct{}

func NewOriginInterceptor() *OriginInterceptor {
	return &OriginInterceptor{}
}

func (i *OriginInterceptor) OnSend(msg *sarama.ProducerMessage) {
	msg.Headers = append(msg.Headers, sarama.RecordHeader{
		Key:   []byte("origin"),
		Value: []byte("oasis-server"),
	})
}
