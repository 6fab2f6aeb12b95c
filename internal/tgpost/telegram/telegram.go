package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/blacktop/tgpost/internal/logutil"
	"github.com/blacktop/tgpost/internal/tgpost"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	methodSendMessage = "sendMessage"
	methodSendPhoto   = "sendPhoto"

	// DefaultTimeout bounds a single Bot API round trip.
	DefaultTimeout = 30 * time.Second

	// maxErrorBody caps how much of a failed response is kept.
	maxErrorBody = 64 << 10
)

// Client implements tgpost.Poster on top of the Telegram Bot API.
type Client struct {
	token    string
	endpoint string
	timeout  time.Duration
	http     *http.Client
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient replaces the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithEndpoint overrides the Bot API endpoint. The format takes the token and
// the method name, like tgbotapi.APIEndpoint.
func WithEndpoint(format string) Option {
	return func(c *Client) {
		if format = strings.TrimSpace(format); format != "" {
			c.endpoint = format
		}
	}
}

// WithTimeout sets the request timeout of the default HTTP client. It has no
// effect when WithHTTPClient is also given.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// New constructs a Telegram poster authenticated with the given bot token.
func New(token string, opts ...Option) (*Client, error) {
	token = strings.TrimSpace(token)
	if token == "" {
		return nil, &tgpost.MissingCredentialError{Key: "bot_token"}
	}

	c := &Client{
		token:    token,
		endpoint: tgbotapi.APIEndpoint,
		timeout:  DefaultTimeout,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = &http.Client{Timeout: c.timeout}
	}

	return c, nil
}

type sendMessageRequest struct {
	ChatID    string           `json:"chat_id"`
	Text      string           `json:"text"`
	ParseMode tgpost.ParseMode `json:"parse_mode,omitempty"`
}

// SendMessage posts a text message to chatID.
func (c *Client) SendMessage(ctx context.Context, chatID, text string, mode tgpost.ParseMode) (tgpost.PostResult, error) {
	body, err := json.Marshal(sendMessageRequest{ChatID: chatID, Text: text, ParseMode: mode})
	if err != nil {
		return tgpost.PostResult{}, fmt.Errorf("encode %s: %w", methodSendMessage, err)
	}

	logutil.Debug("sending message", "chat", chatID, "parse_mode", mode, "chars", len(text))
	return c.call(ctx, methodSendMessage, chatID, "application/json", bytes.NewReader(body))
}

// SendPhoto uploads the image at photoPath to chatID with an optional caption.
func (c *Client) SendPhoto(ctx context.Context, chatID, photoPath, caption string, mode tgpost.ParseMode) (tgpost.PostResult, error) {
	if err := tgpost.ValidateImage(photoPath); err != nil {
		return tgpost.PostResult{}, err
	}

	file, err := os.Open(photoPath)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return tgpost.PostResult{}, &tgpost.ImageNotFoundError{Path: photoPath, Err: err}
		}
		return tgpost.PostResult{}, fmt.Errorf("open image: %w", err)
	}
	defer file.Close()

	buf := &bytes.Buffer{}
	form := multipart.NewWriter(buf)

	fields := [][2]string{{"chat_id", chatID}}
	if caption != "" {
		fields = append(fields, [2]string{"caption", caption})
	}
	if mode != tgpost.ParseModeNone {
		fields = append(fields, [2]string{"parse_mode", string(mode)})
	}
	for _, field := range fields {
		if err := form.WriteField(field[0], field[1]); err != nil {
			return tgpost.PostResult{}, fmt.Errorf("encode %s: %w", methodSendPhoto, err)
		}
	}

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", mime.FormatMediaType("form-data", map[string]string{
		"name":     "photo",
		"filename": filepath.Base(photoPath),
	}))
	header.Set("Content-Type", tgpost.ImageContentType(photoPath))
	part, err := form.CreatePart(header)
	if err != nil {
		return tgpost.PostResult{}, fmt.Errorf("encode %s: %w", methodSendPhoto, err)
	}
	if _, err := io.Copy(part, file); err != nil {
		return tgpost.PostResult{}, fmt.Errorf("read image: %w", err)
	}
	if err := form.Close(); err != nil {
		return tgpost.PostResult{}, fmt.Errorf("encode %s: %w", methodSendPhoto, err)
	}

	logutil.Debug("uploading photo", "chat", chatID, "path", photoPath, "bytes", buf.Len(), "parse_mode", mode)
	return c.call(ctx, methodSendPhoto, chatID, form.FormDataContentType(), buf)
}

func (c *Client) call(ctx context.Context, method, chatID, contentType string, body io.Reader) (tgpost.PostResult, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf(c.endpoint, c.token, method), body)
	if err != nil {
		return tgpost.PostResult{}, fmt.Errorf("%s: %s", method, logutil.Scrub(err.Error(), c.token))
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := c.http.Do(req)
	if err != nil {
		return tgpost.PostResult{}, fmt.Errorf("%s: %w", method, c.scrubURLError(err))
	}
	defer resp.Body.Close()

	logutil.Debug("bot api responded", "method", method, "status", resp.StatusCode)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		remote := newRemoteError(method, resp.StatusCode, raw)
		if remote.RetryAfter > 0 {
			logutil.Warnf("rate limited by Telegram, retry after %ds", remote.RetryAfter)
		}
		return tgpost.PostResult{}, remote
	}

	var envelope tgbotapi.APIResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return tgpost.PostResult{}, fmt.Errorf("%s: decode response: %w", method, err)
	}

	if len(envelope.Result) == 0 {
		return tgpost.PostResult{}, fmt.Errorf("%s: response has no result", method)
	}
	var msg tgbotapi.Message
	if err := json.Unmarshal(envelope.Result, &msg); err != nil {
		return tgpost.PostResult{}, fmt.Errorf("%s: decode message: %w", method, err)
	}
	if msg.MessageID == 0 {
		return tgpost.PostResult{}, fmt.Errorf("%s: response has no message_id", method)
	}

	messageID := int64(msg.MessageID)
	return tgpost.PostResult{
		MessageID: messageID,
		URL:       tgpost.PostURL(chatID, messageID),
	}, nil
}

// scrubURLError strips the bot token from the request URL that net/http
// embeds in transport errors.
func (c *Client) scrubURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		urlErr.URL = logutil.Scrub(urlErr.URL, c.token)
	}
	return err
}

func newRemoteError(method string, status int, raw []byte) *tgpost.RemoteError {
	remote := &tgpost.RemoteError{
		Method:     method,
		StatusCode: status,
		Body:       string(raw),
	}

	var envelope tgbotapi.APIResponse
	if json.Unmarshal(raw, &envelope) == nil {
		remote.Description = envelope.Description
		if envelope.Parameters != nil {
			remote.RetryAfter = envelope.Parameters.RetryAfter
		}
	}

	return remote
}
