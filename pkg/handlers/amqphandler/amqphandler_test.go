package amqphandler

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/JailtonJunior94/logkit/pkg/handlers/payload"
	"github.com/JailtonJunior94/logkit/pkg/logging"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type published struct {
	exchange string
	key      string
	msg      amqp.Publishing
}

type fakeChannel struct {
	mu   sync.Mutex
	msgs []published
	err  error
}

func (c *fakeChannel) PublishWithContext(_ context.Context, exchange, key string, _, _ bool, msg amqp.Publishing) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	c.msgs = append(c.msgs, published{exchange: exchange, key: key, msg: msg})
	return nil
}

func TestPublish(t *testing.T) {
	ch := &fakeChannel{}
	h, err := New(ch, DefaultConfig())
	require.NoError(t, err)

	h.Publish(logging.NewRecord(logging.Warning, "slow query", logging.WithLoggerName("svc.db")))

	require.Len(t, ch.msgs, 1)
	got := ch.msgs[0]
	assert.Equal(t, "logs", got.exchange)
	assert.Equal(t, "svc.db.warning", got.key)
	assert.Equal(t, payload.ContentTypeJSON, got.msg.ContentType)
	assert.Equal(t, amqp.Persistent, got.msg.DeliveryMode)
	assert.Equal(t, "WARNING", got.msg.Type)
	assert.Equal(t, "logkit", got.msg.AppId)
	assert.Equal(t, "svc.db", got.msg.Headers["logger"])
	assert.Equal(t, int32(900), got.msg.Headers["level_value"])

	_, err = uuid.Parse(got.msg.MessageId)
	assert.NoError(t, err)

	var doc payload.Document
	require.NoError(t, json.Unmarshal(got.msg.Body, &doc))
	assert.Equal(t, got.msg.CorrelationId, doc.ID)
	assert.Equal(t, "slow query", doc.Message)
}

func TestRoutingKey(t *testing.T) {
	scenarios := []struct {
		name     string
		key      string
		logger   string
		expected string
	}{
		{name: "fixed key", key: "audit", logger: "svc", expected: "audit"},
		{name: "named logger", logger: "svc.api", expected: "svc.api.info"},
		{name: "root logger", logger: "", expected: "info"},
	}

	for _, scenario := range scenarios {
		t.Run(scenario.name, func(t *testing.T) {
			ch := &fakeChannel{}
			cfg := DefaultConfig()
			cfg.RoutingKey = scenario.key
			cfg.Persistent = false
			h, err := New(ch, cfg)
			require.NoError(t, err)

			h.Publish(logging.NewRecord(logging.Info, "m", logging.WithLoggerName(scenario.logger)))

			require.Len(t, ch.msgs, 1)
			assert.Equal(t, scenario.expected, ch.msgs[0].key)
			assert.Equal(t, uint8(0), ch.msgs[0].msg.DeliveryMode)
		})
	}
}

func TestPublishFailureAndClose(t *testing.T) {
	var kinds []logging.ErrorKind
	em := logging.WithErrorManager(logging.ErrorManagerFunc(func(_ string, _ error, kind logging.ErrorKind) {
		kinds = append(kinds, kind)
	}))

	ch := &fakeChannel{err: errors.New("channel closed")}
	h, err := New(ch, DefaultConfig(), em)
	require.NoError(t, err)

	h.Publish(logging.NewRecord(logging.Severe, "lost"))
	assert.Equal(t, []logging.ErrorKind{logging.WriteFailure}, kinds)

	require.NoError(t, h.Close())
	h.Publish(logging.NewRecord(logging.Severe, "ignored"))
	assert.Len(t, kinds, 1)
}

func TestNewValidation(t *testing.T) {
	_, err := New(nil, DefaultConfig())
	assert.Error(t, err)

	cfg := DefaultConfig()
	cfg.PublishTimeout = 0
	_, err = New(&fakeChannel{}, cfg)
	assert.Error(t, err)
}

func TestRegister(t *testing.T) {
	ch := &fakeChannel{}
	m := logging.NewManager()
	Register(m, ch)

	config := strings.Join([]string{
		"audit.handlers=AMQPHandler",
		"audit.useParentHandlers=false",
		"AMQPHandler.exchange=audit-events",
		"AMQPHandler.publishTimeoutMillis=250",
		"",
	}, "\n")
	require.NoError(t, m.ReadConfiguration(strings.NewReader(config)))

	audit := m.Logger("audit")
	audit.Info("login")

	require.Len(t, ch.msgs, 1)
	assert.Equal(t, "audit-events", ch.msgs[0].exchange)
	assert.Equal(t, "audit.info", ch.msgs[0].key)

	h, ok := audit.Handlers()[0].(*Handler)
	require.True(t, ok)
	assert.Equal(t, 250*time.Millisecond, h.cfg.PublishTimeout)
}
