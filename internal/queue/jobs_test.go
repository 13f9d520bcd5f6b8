package queue

import (
	"testing"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
)

func TestJobIDFromDeliveryPrefersHeader(t *testing.T) {
	d := amqp.Delivery{
		Headers: amqp.Table{"job_id": "from-header"},
		Body:    []byte(`{"job_id":"from-body"}`),
	}

	id, ok := JobIDFromDelivery(d)
	assert.True(t, ok)
	assert.Equal(t, "from-header", id)
}

func TestJobIDFromDeliveryFallsBackToBody(t *testing.T) {
	d := amqp.Delivery{Body: []byte(`{"job_id":"from-body"}`)}

	id, ok := JobIDFromDelivery(d)
	assert.True(t, ok)
	assert.Equal(t, "from-body", id)
}

func TestJobIDFromDeliveryRejectsGarbage(t *testing.T) {
	_, ok := JobIDFromDelivery(amqp.Delivery{Body: []byte("not json")})
	assert.False(t, ok)

	_, ok = JobIDFromDelivery(amqp.Delivery{Body: []byte(`{"job_id":""}`)})
	assert.False(t, ok)
}
