package mq

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestQueueName(t *testing.T) {
	assert.Equal(t, "consultations.answered.notifier", queueName(ChannelConsultationAnswered, "notifier"))
	assert.Equal(t, "posts.created", queueName(ChannelPostCreated, ""))
}

func TestHeadersToAttributes(t *testing.T) {
	assert.Nil(t, headersToAttributes(nil))

	attrs := headersToAttributes(amqp.Table{
		AttrContentType: "application/json",
		"raw":           []byte("bytes"),
		"attempt":       int32(2),
	})
	assert.Equal(t, map[string]string{
		AttrContentType: "application/json",
		"raw":           "bytes",
		"attempt":       "2",
	}, attrs)
}

func TestContentType(t *testing.T) {
	assert.Equal(t, "application/json", contentType(map[string]string{AttrContentType: "application/json"}))
	assert.Equal(t, "application/octet-stream", contentType(nil))
}
