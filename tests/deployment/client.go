package deployment

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Client wraps HTTP and websocket access to a deployed media service.
type Client struct {
	config     *Config
	httpClient *http.Client

	mu             sync.Mutex
	createdFileIDs []string
}

// NewClient creates a new deployment test client.
func NewClient(cfg *Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		config: cfg,
		httpClient: &http.Client{
			Timeout:   cfg.RequestTimeout,
			Transport: &AuthTransport{Token: cfg.AuthToken},
		},
	}, nil
}

// Config returns the client configuration.
func (c *Client) Config() *Config {
	return c.config
}

// TestFile is one file to upload during a test.
type TestFile struct {
	Name     string
	MimeType string
	Content  []byte
}

// MakeTestVideo returns a small fake video payload. The service validates
// the declared mime type, not the bytes, so any content works.
func (c *Client) MakeTestVideo(name string) TestFile {
	return TestFile{
		Name:     c.config.TestDataPrefix + name,
		MimeType: "video/mp4",
		Content:  []byte("fake mp4 payload for " + name),
	}
}

// MakeTestImage returns a small fake image payload.
func (c *Client) MakeTestImage(name string) TestFile {
	return TestFile{
		Name:     c.config.TestDataPrefix + name,
		MimeType: "image/png",
		Content:  []byte("fake png payload for " + name),
	}
}

// FileRecord mirrors the stored file representation in API responses.
type FileRecord struct {
	ID               string `json:"id"`
	Filename         string `json:"filename"`
	OriginalFilename string `json:"originalFilename"`
	Path             string `json:"path"`
	URL              string `json:"url"`
	FileType         string `json:"fileType"`
	MimeType         string `json:"mimeType"`
	Size             int64  `json:"size"`
	OwnerID          string `json:"ownerId"`
}

// FileBatch is the payload of upload and delete responses.
type FileBatch struct {
	Files []FileRecord `json:"files"`
	Count int          `json:"count"`
}

// MergeSubmission is the payload of a merge-videos response.
type MergeSubmission struct {
	JobID       string       `json:"jobId"`
	OutputURL   string       `json:"outputUrl"`
	Status      string       `json:"status"`
	MergeID     string       `json:"mergeId"`
	SourceFiles []FileRecord `json:"sourceFiles"`
	Count       int          `json:"count"`
}

// MergeStatus is the payload of a merge-job status response.
type MergeStatus struct {
	MergeID   string `json:"mergeId"`
	JobID     string `json:"jobId"`
	Status    string `json:"status"`
	OutputURL string `json:"outputUrl"`
}

// PageMeta describes the pagination of a list response.
type PageMeta struct {
	Page  int   `json:"page"`
	Limit int   `json:"limit"`
	Total int64 `json:"total"`
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Meta    *PageMeta       `json:"meta,omitempty"`
}

// APIError is a non-success response from the service.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error (status %d): %s", e.StatusCode, e.Message)
}

// UploadFiles uploads one or more files and records their IDs for cleanup.
func (c *Client) UploadFiles(ctx context.Context, files ...TestFile) (*FileBatch, string, error) {
	env, err := c.postMultipart(ctx, "/upload", "files", files)
	if err != nil {
		return nil, "", err
	}

	var batch FileBatch
	if err = json.Unmarshal(env.Data, &batch); err != nil {
		return nil, "", fmt.Errorf("decoding upload response: %w", err)
	}

	for _, file := range batch.Files {
		c.trackFile(file.ID)
	}
	return &batch, env.Message, nil
}

// DeleteFiles removes files by ID.
func (c *Client) DeleteFiles(ctx context.Context, fileIDs []string) (*FileBatch, string, error) {
	body, err := json.Marshal(map[string][]string{"fileIds": fileIDs})
	if err != nil {
		return nil, "", err
	}

	env, err := c.do(ctx, http.MethodDelete, "/upload", bytes.NewReader(body), "application/json")
	if err != nil {
		return nil, "", err
	}

	var batch FileBatch
	if err = json.Unmarshal(env.Data, &batch); err != nil {
		return nil, "", fmt.Errorf("decoding delete response: %w", err)
	}

	c.untrackFiles(fileIDs)
	return &batch, env.Message, nil
}

// ListFiles retrieves a page of stored files.
func (c *Client) ListFiles(ctx context.Context, page, limit int) ([]FileRecord, *PageMeta, error) {
	path := fmt.Sprintf("/upload?page=%d&limit=%d", page, limit)
	env, err := c.do(ctx, http.MethodGet, path, nil, "")
	if err != nil {
		return nil, nil, err
	}

	var files []FileRecord
	if err = json.Unmarshal(env.Data, &files); err != nil {
		return nil, nil, fmt.Errorf("decoding list response: %w", err)
	}
	return files, env.Meta, nil
}

// GetFile retrieves a single file by ID.
func (c *Client) GetFile(ctx context.Context, fileID string) (*FileRecord, error) {
	env, err := c.do(ctx, http.MethodGet, "/upload/"+fileID, nil, "")
	if err != nil {
		return nil, err
	}

	var file FileRecord
	if err = json.Unmarshal(env.Data, &file); err != nil {
		return nil, fmt.Errorf("decoding file response: %w", err)
	}
	return &file, nil
}

// MergeVideos uploads videos and submits a merge job.
func (c *Client) MergeVideos(ctx context.Context, files ...TestFile) (*MergeSubmission, error) {
	env, err := c.postMultipart(ctx, "/upload/merge-videos", "videos", files)
	if err != nil {
		return nil, err
	}

	var submission MergeSubmission
	if err = json.Unmarshal(env.Data, &submission); err != nil {
		return nil, fmt.Errorf("decoding merge response: %w", err)
	}

	for _, file := range submission.SourceFiles {
		c.trackFile(file.ID)
	}
	return &submission, nil
}

// MergeJobStatus retrieves the current status of a merge job.
func (c *Client) MergeJobStatus(ctx context.Context, mergeID string) (*MergeStatus, error) {
	env, err := c.do(ctx, http.MethodGet, "/upload/merge-job/"+mergeID, nil, "")
	if err != nil {
		return nil, err
	}

	var status MergeStatus
	if err = json.Unmarshal(env.Data, &status); err != nil {
		return nil, fmt.Errorf("decoding merge status response: %w", err)
	}
	return &status, nil
}

// CheckHealth calls the liveness endpoint.
func (c *Client) CheckHealth(ctx context.Context) error {
	req, err := http.NewRequestWithContext(
		ctx, http.MethodGet, c.config.ServiceEndpoint+"/healthz", nil,
	)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("health check returned status %d", resp.StatusCode)
	}
	return nil
}

// Cleanup removes all files created during the test run.
func (c *Client) Cleanup(ctx context.Context) []error {
	c.mu.Lock()
	ids := make([]string, len(c.createdFileIDs))
	copy(ids, c.createdFileIDs)
	c.createdFileIDs = nil
	c.mu.Unlock()

	if len(ids) == 0 {
		return nil
	}

	var errs []error
	if _, _, err := c.DeleteFiles(ctx, ids); err != nil {
		errs = append(errs, err)
	}
	return errs
}

func (c *Client) trackFile(id string) {
	if id == "" {
		return
	}
	c.mu.Lock()
	c.createdFileIDs = append(c.createdFileIDs, id)
	c.mu.Unlock()
}

func (c *Client) untrackFiles(ids []string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	remaining := c.createdFileIDs[:0]
	for _, tracked := range c.createdFileIDs {
		removed := false
		for _, id := range ids {
			if tracked == id {
				removed = true
				break
			}
		}
		if !removed {
			remaining = append(remaining, tracked)
		}
	}
	c.createdFileIDs = remaining
}

func (c *Client) postMultipart(
	ctx context.Context,
	path, field string,
	files []TestFile,
) (*envelope, error) {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, file := range files {
		header := textproto.MIMEHeader{}
		header.Set("Content-Disposition",
			fmt.Sprintf(`form-data; name="%s"; filename="%s"`, field, file.Name))
		header.Set("Content-Type", file.MimeType)

		part, err := writer.CreatePart(header)
		if err != nil {
			return nil, err
		}
		if _, err = part.Write(file.Content); err != nil {
			return nil, err
		}
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	return c.do(ctx, http.MethodPost, path, body, writer.FormDataContentType())
}

func (c *Client) do(
	ctx context.Context,
	method, path string,
	body io.Reader,
	contentType string,
) (*envelope, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.config.ServiceEndpoint+path, body)
	if err != nil {
		return nil, err
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var env envelope
	if err = json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return nil, fmt.Errorf("decoding response (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success {
		return nil, &APIError{StatusCode: resp.StatusCode, Message: env.Message}
	}
	return &env, nil
}

// GatewayFrame is one websocket frame exchanged with the gateway.
type GatewayFrame struct {
	Event   string `json:"event"`
	Payload struct {
		Success bool            `json:"success"`
		Data    json.RawMessage `json:"data"`
		Message string          `json:"message"`
	} `json:"payload"`
}

// GatewayStream is an open websocket connection to the realtime gateway.
type GatewayStream struct {
	conn     *websocket.Conn
	frames   chan *GatewayFrame
	errs     chan error
	closeOne sync.Once
}

// ConnectToGateway opens an authenticated websocket connection.
func (c *Client) ConnectToGateway(ctx context.Context) (*GatewayStream, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.config.AuthToken)
	return c.dialGateway(ctx, "", header)
}

// ConnectToGatewayWithToken opens a websocket connection with an explicit
// token passed as a query parameter. An empty token omits credentials
// entirely.
func (c *Client) ConnectToGatewayWithToken(ctx context.Context, token string) (*GatewayStream, error) {
	query := ""
	if token != "" {
		query = "?token=" + url.QueryEscape(token)
	}
	return c.dialGateway(ctx, query, nil)
}

func (c *Client) dialGateway(
	ctx context.Context,
	query string,
	header http.Header,
) (*GatewayStream, error) {
	wsURL, err := gatewayWebsocketURL(c.config.GetGatewayEndpoint(), "/ws")
	if err != nil {
		return nil, err
	}

	conn, resp, err := websocket.DefaultDialer.DialContext(ctx, wsURL+query, header)
	if resp != nil && resp.Body != nil {
		defer resp.Body.Close()
	}
	if err != nil {
		return nil, fmt.Errorf("dialing gateway: %w", err)
	}

	stream := &GatewayStream{
		conn:   conn,
		frames: make(chan *GatewayFrame, 16),
		errs:   make(chan error, 1),
	}
	go stream.readLoop()
	return stream, nil
}

// SendPing sends a heartbeat frame.
func (s *GatewayStream) SendPing() error {
	frame := map[string]any{"event": "PING"}
	_ = s.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	return s.conn.WriteJSON(frame)
}

// Frames returns the channel of received frames.
func (s *GatewayStream) Frames() <-chan *GatewayFrame {
	return s.frames
}

// Errors returns the channel of read errors.
func (s *GatewayStream) Errors() <-chan error {
	return s.errs
}

// WaitForEvent blocks until a frame with the given event arrives or the
// timeout expires.
func (s *GatewayStream) WaitForEvent(event string, timeout time.Duration) (*GatewayFrame, error) {
	deadline := time.After(timeout)
	for {
		select {
		case frame, ok := <-s.frames:
			if !ok {
				return nil, fmt.Errorf("stream closed while waiting for %s", event)
			}
			if frame.Event == event {
				return frame, nil
			}
		case err := <-s.errs:
			return nil, err
		case <-deadline:
			return nil, fmt.Errorf("timed out waiting for %s event", event)
		}
	}
}

// Close terminates the websocket connection.
func (s *GatewayStream) Close() {
	s.closeOne.Do(func() {
		_ = s.conn.WriteControl(
			websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
			time.Now().Add(5*time.Second),
		)
		_ = s.conn.Close()
	})
}

func (s *GatewayStream) readLoop() {
	defer close(s.frames)
	for {
		var frame GatewayFrame
		if err := s.conn.ReadJSON(&frame); err != nil {
			select {
			case s.errs <- err:
			default:
			}
			return
		}
		select {
		case s.frames <- &frame:
		default:
			// Drop frames the test is not consuming
		}
	}
}

func gatewayWebsocketURL(endpoint, path string) (string, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return "", fmt.Errorf("parsing gateway endpoint: %w", err)
	}

	switch parsed.Scheme {
	case "https":
		parsed.Scheme = "wss"
	case "http":
		parsed.Scheme = "ws"
	case "ws", "wss":
	default:
		return "", fmt.Errorf("unsupported gateway scheme: %s", parsed.Scheme)
	}

	parsed.Path = strings.TrimSuffix(parsed.Path, "/") + path
	return parsed.String(), nil
}
