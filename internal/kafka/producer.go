package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/IBM/sarama"
	"github.com/auditguard/embedding-go/internal/logger"
	"go.uber.org/zap"
)

// Producer Kafka生产者
type Producer struct {
	producer sarama.SyncProducer
	topic    string
}

// 文档生命周期事件类型
const (
	EventDocumentProcessed = "document.processed"
	EventDocumentFailed    = "document.failed"
	EventDocumentDeleted   = "document.deleted"
)

// DocumentEvent 文档生命周期事件
type DocumentEvent struct {
	Type           string    `json:"type"`
	DocumentID     string    `json:"document_id"`
	WorkspaceID    string    `json:"workspace_id"`
	ChunkCount     int       `json:"chunk_count"`
	EmbeddingCount int       `json:"embedding_count"`
	Timestamp      time.Time `json:"timestamp"`
}

var globalProducer *Producer

// InitProducer 初始化Kafka生产者
func InitProducer(brokers []string, topic string) error {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Timeout = 10 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return fmt.Errorf("failed to create kafka producer: %w", err)
	}

	globalProducer = &Producer{
		producer: producer,
		topic:    topic,
	}

	logger.Info("Kafka producer initialized", zap.Strings("brokers", brokers), zap.String("topic", topic))
	return nil
}

// GetProducer 获取全局生产者实例，未初始化时返回nil
func GetProducer() *Producer {
	return globalProducer
}

// SendDocumentEvent 发送文档事件
// 事件发布是尽力而为的，失败只记录日志不影响主流程
func (p *Producer) SendDocumentEvent(event DocumentEvent) error {
	if p == nil || p.producer == nil {
		return nil
	}

	event.Timestamp = time.Now()
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal document event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(event.DocumentID),
		Value: sarama.ByteEncoder(payload),
	}

	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		logger.Warn("Failed to send document event",
			zap.String("document_id", event.DocumentID),
			zap.String("type", event.Type),
			zap.Error(err))
		return err
	}

	logger.Debug("Document event sent",
		zap.String("type", event.Type),
		zap.Int32("partition", partition),
		zap.Int64("offset", offset))
	return nil
}

// Close 关闭生产者
func Close() error {
	if globalProducer == nil || globalProducer.producer == nil {
		return nil
	}
	return globalProducer.producer.Close()
}
