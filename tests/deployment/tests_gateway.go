package deployment

import (
	"context"
	"time"
)

// GatewayTestSuite returns all realtime gateway connection tests.
func GatewayTestSuite() *TestSuite {
	return &TestSuite{
		Name:        "Gateway Connections",
		Description: "Tests for realtime gateway connections and push delivery",
		Tests: []TestCase{
			&GatewayConnectTest{},
			&GatewayRejectsMissingTokenTest{},
			&GatewayHeartbeatTest{},
			&GatewayUploadNotificationTest{},
		},
	}
}

// GatewayConnectTest establishes an authenticated websocket connection.
type GatewayConnectTest struct{}

func (t *GatewayConnectTest) Name() string        { return "Gateway_Connect" }
func (t *GatewayConnectTest) Description() string { return "Establish a connection to the gateway" }
func (t *GatewayConnectTest) Tags() []string      { return []string{"gateway", "connect", "smoke"} }

func (t *GatewayConnectTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	streamCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stream, err := client.ConnectToGateway(streamCtx)
	if err := a.NoError(err, "Gateway connection should be accepted"); err != nil {
		return err
	}
	defer stream.Close()

	return nil
}

// GatewayRejectsMissingTokenTest verifies unauthenticated dials are refused.
type GatewayRejectsMissingTokenTest struct{}

func (t *GatewayRejectsMissingTokenTest) Name() string { return "Gateway_RejectsMissingToken" }
func (t *GatewayRejectsMissingTokenTest) Description() string {
	return "Refuse a connection without credentials"
}
func (t *GatewayRejectsMissingTokenTest) Tags() []string { return []string{"gateway", "auth"} }

func (t *GatewayRejectsMissingTokenTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	streamCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stream, err := client.ConnectToGatewayWithToken(streamCtx, "")
	if err == nil {
		// Some deployments accept the upgrade and close during handshake.
		// Either path must end without a usable stream.
		defer stream.Close()
		_, waitErr := stream.WaitForEvent("PONG", 5*time.Second)
		return a.Error(waitErr, "Unauthenticated stream should be closed by the gateway")
	}
	return nil
}

// GatewayHeartbeatTest exchanges a heartbeat over an open connection.
type GatewayHeartbeatTest struct{}

func (t *GatewayHeartbeatTest) Name() string        { return "Gateway_Heartbeat" }
func (t *GatewayHeartbeatTest) Description() string { return "Send PING and receive PONG" }
func (t *GatewayHeartbeatTest) Tags() []string      { return []string{"gateway", "heartbeat", "smoke"} }

func (t *GatewayHeartbeatTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	streamCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	stream, err := client.ConnectToGateway(streamCtx)
	if err := a.NoError(err, "Gateway connection should be accepted"); err != nil {
		return err
	}
	defer stream.Close()

	if err := a.NoError(stream.SendPing(), "PING should send"); err != nil {
		return err
	}

	frame, err := stream.WaitForEvent("PONG", 10*time.Second)
	if err := a.NoError(err, "PONG should arrive"); err != nil {
		return err
	}
	return a.Equal("PONG", frame.Event, "Heartbeat response event")
}

// GatewayUploadNotificationTest uploads a file while connected and waits for
// the push notification.
type GatewayUploadNotificationTest struct{}

func (t *GatewayUploadNotificationTest) Name() string { return "Gateway_UploadNotification" }
func (t *GatewayUploadNotificationTest) Description() string {
	return "Receive an upload notification over the gateway"
}
func (t *GatewayUploadNotificationTest) Tags() []string {
	return []string{"gateway", "notification"}
}

func (t *GatewayUploadNotificationTest) Run(ctx context.Context, client *Client) error {
	var a Assert

	streamCtx, cancel := context.WithTimeout(ctx, 60*time.Second)
	defer cancel()

	stream, err := client.ConnectToGateway(streamCtx)
	if err := a.NoError(err, "Gateway connection should be accepted"); err != nil {
		return err
	}
	defer stream.Close()

	_, _, err = client.UploadFiles(ctx, client.MakeTestVideo("notified.mp4"))
	if err := a.NoError(err, "Upload should succeed"); err != nil {
		return err
	}

	// Delivery rides an async queue between the service and the gateway, so
	// allow generous time. A timeout here usually means the deployment's
	// notification queue is not wired between the two services.
	frame, err := stream.WaitForEvent("FILE_UPLOADED", 30*time.Second)
	if err := a.NoError(err, "Upload notification should arrive"); err != nil {
		return err
	}
	return a.True(frame.Payload.Success, "Notification payload should be successful")
}
