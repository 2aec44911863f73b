// Package api provides the REST pull-path client for the chat backend.
//
// The connection manager owns the live push path; this client covers
// everything request/response shaped: authoritative message history,
// the send fallback, unread counts, and read cursor updates. Responses
// use the server's JSON:API envelope (data/meta/links).
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"github.com/chancore/chancore/internal/logging"
	"github.com/chancore/chancore/internal/models"
)

// Client errors.
var (
	ErrChannelNotFound = errors.New("channel not found")
	ErrServerError     = errors.New("server error")
)

// Meta carries pagination metadata from list responses.
type Meta struct {
	HasNext bool `json:"has_next"`
	HasPrev bool `json:"has_prev"`
}

// Links carries pagination links from list responses.
type Links struct {
	First string `json:"first"`
	Next  string `json:"next,omitempty"`
	Prev  string `json:"prev,omitempty"`
}

// MessagePage is one page of newest-first message history.
type MessagePage struct {
	Messages []models.Message
	Meta     Meta
	Links    Links
}

// Client is an HTTP client for the chat backend's REST API.
type Client struct {
	baseURL  string
	clientID string
	http     *http.Client
	logger   zerolog.Logger
}

// NewClient creates a Client for the given base URL and client identity.
func NewClient(baseURL, clientID string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:  baseURL,
		clientID: clientID,
		http:     &http.Client{Timeout: timeout},
		logger:   logging.Component("api-client"),
	}
}

// resource is a JSON:API resource object.
type resource struct {
	Type       string          `json:"type"`
	ID         string          `json:"id"`
	Attributes json.RawMessage `json:"attributes"`
}

// listResponse is a JSON:API list envelope.
type listResponse struct {
	Data  []resource      `json:"data"`
	Meta  json.RawMessage `json:"meta,omitempty"`
	Links json.RawMessage `json:"links,omitempty"`
}

// singleResponse is a JSON:API single-resource envelope.
type singleResponse struct {
	Data resource `json:"data"`
}

// messageAttributes mirrors the server's message resource attributes.
type messageAttributes struct {
	Content              string    `json:"content"`
	MessageType          string    `json:"message_type"`
	SenderAgentID        string    `json:"sender_agent_id"`
	SenderUserIdentifier string    `json:"sender_user_identifier"`
	ChannelID            string    `json:"channel_id"`
	CreatedAt            time.Time `json:"created_at"`
}

// channelAttributes mirrors the server's channel resource attributes.
type channelAttributes struct {
	Name        string    `json:"name"`
	ChannelType string    `json:"channel_type"`
	CreatedAt   time.Time `json:"created_at"`
}

func (a messageAttributes) toMessage(id string) models.Message {
	msg := models.Message{
		ID:        id,
		ChannelID: a.ChannelID,
		Content:   a.Content,
		Type:      models.MessageType(a.MessageType),
		CreatedAt: a.CreatedAt,
	}
	switch {
	case a.SenderAgentID != "":
		msg.SenderKind = models.SenderKindAgent
		msg.SenderID = a.SenderAgentID
	case a.SenderUserIdentifier != "":
		msg.SenderKind = models.SenderKindUser
		msg.SenderID = a.SenderUserIdentifier
	default:
		msg.SenderKind = models.SenderKindSystem
	}
	return msg
}

// FetchMessages returns one page of a channel's history, newest first.
// Pass an empty cursor for the most recent page; pass links.Next's cursor
// to walk older history.
func (c *Client) FetchMessages(ctx context.Context, channelID, cursor string, pageSize int) (*MessagePage, error) {
	q := url.Values{}
	if pageSize > 0 {
		q.Set("page[size]", strconv.Itoa(pageSize))
	}
	if cursor != "" {
		q.Set("page[before]", cursor)
	}

	var envelope listResponse
	if err := c.get(ctx, fmt.Sprintf("/api/v1/channels/%s/messages", channelID), q, &envelope); err != nil {
		return nil, err
	}

	page := &MessagePage{Messages: make([]models.Message, 0, len(envelope.Data))}
	for _, res := range envelope.Data {
		var attrs messageAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			// Malformed resources are dropped, not fatal.
			c.logger.Debug().Str("id", res.ID).Msg("dropping malformed message resource")
			continue
		}
		if attrs.ChannelID == "" {
			attrs.ChannelID = channelID
		}
		page.Messages = append(page.Messages, attrs.toMessage(res.ID))
	}
	if len(envelope.Meta) > 0 {
		_ = json.Unmarshal(envelope.Meta, &page.Meta)
	}
	if len(envelope.Links) > 0 {
		_ = json.Unmarshal(envelope.Links, &page.Links)
	}
	return page, nil
}

// SendMessage posts a message to a channel over REST. This is the fallback
// delivery path used when the live transport is not connected.
func (c *Client) SendMessage(ctx context.Context, channelID, content string, messageType models.MessageType) (*models.Message, error) {
	if messageType == "" {
		messageType = models.MessageTypeChat
	}
	body := map[string]any{
		"data": map[string]any{
			"type": "messages",
			"attributes": map[string]any{
				"content":      content,
				"message_type": string(messageType),
			},
		},
	}

	q := url.Values{}
	q.Set("user_identifier", c.clientID)

	var envelope singleResponse
	if err := c.post(ctx, fmt.Sprintf("/api/v1/channels/%s/messages", channelID), q, body, &envelope); err != nil {
		return nil, err
	}

	var attrs messageAttributes
	if err := json.Unmarshal(envelope.Data.Attributes, &attrs); err != nil {
		return nil, fmt.Errorf("malformed message resource: %w", err)
	}
	if attrs.ChannelID == "" {
		attrs.ChannelID = channelID
	}
	msg := attrs.toMessage(envelope.Data.ID)
	return &msg, nil
}

// FetchUnreadCount returns the number of unread messages in a channel for
// this client identity.
func (c *Client) FetchUnreadCount(ctx context.Context, channelID string) (int, error) {
	q := url.Values{}
	q.Set("user_identifier", c.clientID)

	var envelope struct {
		Meta struct {
			UnreadCount int `json:"unread_count"`
		} `json:"meta"`
	}
	if err := c.get(ctx, fmt.Sprintf("/api/v1/channels/%s/messages/unread", channelID), q, &envelope); err != nil {
		return 0, err
	}
	return envelope.Meta.UnreadCount, nil
}

// MarkRead advances the server-side read cursor for this client identity.
func (c *Client) MarkRead(ctx context.Context, channelID, lastReadMessageID string) error {
	q := url.Values{}
	q.Set("user_identifier", c.clientID)
	q.Set("last_read_message_id", lastReadMessageID)

	var envelope singleResponse
	return c.post(ctx, fmt.Sprintf("/api/v1/channels/%s/messages/read", channelID), q, nil, &envelope)
}

// ListChannels returns every channel visible to this client.
func (c *Client) ListChannels(ctx context.Context) ([]models.Channel, error) {
	var envelope listResponse
	if err := c.get(ctx, "/api/v1/channels", nil, &envelope); err != nil {
		return nil, err
	}

	channels := make([]models.Channel, 0, len(envelope.Data))
	for _, res := range envelope.Data {
		var attrs channelAttributes
		if err := json.Unmarshal(res.Attributes, &attrs); err != nil {
			c.logger.Debug().Str("id", res.ID).Msg("dropping malformed channel resource")
			continue
		}
		channels = append(channels, models.Channel{
			ID:        res.ID,
			Name:      attrs.Name,
			Type:      models.ChannelType(attrs.ChannelType),
			CreatedAt: attrs.CreatedAt,
		})
	}
	return channels, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, out any) error {
	return c.do(ctx, http.MethodGet, path, query, nil, out)
}

func (c *Client) post(ctx context.Context, path string, query url.Values, body, out any) error {
	return c.do(ctx, http.MethodPost, path, query, body, out)
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrChannelNotFound
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: status %d", ErrServerError, resp.StatusCode)
	case resp.StatusCode >= 400:
		return fmt.Errorf("request rejected: status %d", resp.StatusCode)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
