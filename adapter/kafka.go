package adapter

import (
	"github.com/segmentio/kafka-go"

	"github.com/windofthesky/mysql-router/logging"
)

// Kafka 返回用于 kafka.Reader/Writer 的 Logger 字段的日志器。kafka-go 的常规输出很密，记为 Debug。
func Kafka(log logging.DomainLogger) kafka.Logger {
	return kafka.LoggerFunc(func(msg string, args ...any) {
		log.Debug(msg, args...)
	})
}

// KafkaErrors 返回用于 ErrorLogger 字段的日志器，记为 Error。
func KafkaErrors(log logging.DomainLogger) kafka.Logger {
	return kafka.LoggerFunc(func(msg string, args ...any) {
		log.Error(msg, args...)
	})
}
