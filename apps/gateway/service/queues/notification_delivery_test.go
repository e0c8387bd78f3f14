package queues //nolint:testpackage // Tests drive the handler with a live registry

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/pitabwire/frame/queue"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shahadathhs/service-media/apps/gateway/config"
	"github.com/shahadathhs/service-media/apps/gateway/service/business"
	"github.com/shahadathhs/service-media/internal"
)

func setupHandler(t *testing.T) (*business.Registry, queue.SubscribeWorker) {
	t.Helper()

	registry := business.NewRegistry(100)
	handler := NewNotificationDeliveryQueueHandler(
		&config.GatewayConfig{},
		nil,
		business.NewDispatcher(registry),
	)
	return registry, handler
}

func registerConn(t *testing.T, registry *business.Registry, userID, connID string) business.Connection {
	t.Helper()

	conn := business.NewConnection(nil, connID)
	require.True(t, conn.SetAuthenticated(&business.User{ID: userID}))
	require.NoError(t, registry.Register(conn))
	return conn
}

func payloadFor(t *testing.T, data any) []byte {
	t.Helper()

	raw, err := json.Marshal(internal.SuccessEnvelope(data))
	require.NoError(t, err)
	return raw
}

func TestNotificationDelivery_FirstOnlineConnection(t *testing.T) {
	registry, handler := setupHandler(t)
	oldest := registerConn(t, registry, "user1", "conn1")
	newer := registerConn(t, registry, "user1", "conn2")

	headers := map[string]string{
		internal.HeaderUserID:    "user1",
		internal.HeaderEventName: internal.EventFileUploaded,
	}

	err := handler.Handle(context.Background(), headers, payloadFor(t, map[string]string{"file": "f1"}))
	require.NoError(t, err)

	frame := oldest.ConsumeDispatch(context.Background())
	require.NotNil(t, frame)
	assert.Equal(t, internal.EventFileUploaded, frame.Event)
	assert.True(t, frame.Payload.Success)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, newer.ConsumeDispatch(ctx), "newer connection receives nothing")
}

func TestNotificationDelivery_Broadcast(t *testing.T) {
	registry, handler := setupHandler(t)
	first := registerConn(t, registry, "user1", "conn1")
	second := registerConn(t, registry, "user1", "conn2")

	headers := map[string]string{
		internal.HeaderUserID:       "user1",
		internal.HeaderEventName:    internal.EventMergeCompleted,
		internal.HeaderDeliveryMode: internal.DeliveryModeBroadcast,
	}

	err := handler.Handle(context.Background(), headers, payloadFor(t, map[string]string{"job": "j1"}))
	require.NoError(t, err)

	for _, conn := range []business.Connection{first, second} {
		frame := conn.ConsumeDispatch(context.Background())
		require.NotNil(t, frame)
		assert.Equal(t, internal.EventMergeCompleted, frame.Event)
	}
}

func TestNotificationDelivery_DirectConnection(t *testing.T) {
	registry, handler := setupHandler(t)
	target := registerConn(t, registry, "user1", "conn1")
	other := registerConn(t, registry, "user1", "conn2")

	headers := map[string]string{
		internal.HeaderUserID:       "user1",
		internal.HeaderConnectionID: "conn1",
		internal.HeaderEventName:    internal.EventMergeSubmitted,
	}

	err := handler.Handle(context.Background(), headers, payloadFor(t, nil))
	require.NoError(t, err)

	frame := target.ConsumeDispatch(context.Background())
	require.NotNil(t, frame)
	assert.Equal(t, internal.EventMergeSubmitted, frame.Event)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Nil(t, other.ConsumeDispatch(ctx))
}

func TestNotificationDelivery_OfflineUserIsDropped(t *testing.T) {
	_, handler := setupHandler(t)

	headers := map[string]string{
		internal.HeaderUserID:    "ghost",
		internal.HeaderEventName: internal.EventFileUploaded,
	}

	// Offline users drop silently; the message must still ack
	err := handler.Handle(context.Background(), headers, payloadFor(t, nil))
	assert.NoError(t, err)
}

func TestNotificationDelivery_MissingAddressing(t *testing.T) {
	_, handler := setupHandler(t)

	err := handler.Handle(context.Background(), map[string]string{}, payloadFor(t, nil))
	assert.NoError(t, err)
}

func TestNotificationDelivery_MalformedPayload(t *testing.T) {
	registry, handler := setupHandler(t)
	registerConn(t, registry, "user1", "conn1")

	headers := map[string]string{
		internal.HeaderUserID:    "user1",
		internal.HeaderEventName: internal.EventFileUploaded,
	}

	err := handler.Handle(context.Background(), headers, []byte("{not json"))
	assert.NoError(t, err, "malformed payloads are dropped, not retried")
}
