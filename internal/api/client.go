// Package api is the REST client for the school platform's messaging
// endpoints: contact listing, conversation history and message sends.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/classchat/classchat/internal/chat"
)

// Error is a failed API call with the server-provided message, suitable
// for surfacing as a flash notification.
type Error struct {
	StatusCode int
	Message    string
}

func (e *Error) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("request failed with status %d", e.StatusCode)
}

// Outgoing describes one outbound message before submission.
type Outgoing struct {
	ReceiverID   string
	ReceiverRole chat.Role
	Content      string
}

// Client talks to the messaging REST API. All requests carry the session
// token; timeouts come from the embedded http.Client.
type Client struct {
	base  *url.URL
	token string
	httpc *http.Client
}

// New creates a client for the given base URL and session token.
func New(baseURL, token string) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("parse base URL: %w", err)
	}
	return &Client{
		base:  u,
		token: token,
		httpc: &http.Client{Timeout: 30 * time.Second},
	}, nil
}

// Contacts fetches the server-ordered contact list.
func (c *Client) Contacts(ctx context.Context) ([]chat.Contact, error) {
	var wires []wireContact
	if err := c.getJSON(ctx, "/messages/contacts", nil, &wires); err != nil {
		return nil, fmt.Errorf("fetch contacts: %w", err)
	}
	contacts := make([]chat.Contact, 0, len(wires))
	for _, w := range wires {
		contacts = append(contacts, w.toDomain())
	}
	return contacts, nil
}

// Conversation fetches one page of message history with contactID.
func (c *Client) Conversation(ctx context.Context, contactID string, page, limit int) ([]chat.Message, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}
	q := url.Values{
		"page":  {strconv.Itoa(page)},
		"limit": {strconv.Itoa(limit)},
	}
	var wires []wireMessage
	if err := c.getJSON(ctx, "/messages/"+url.PathEscape(contactID), q, &wires); err != nil {
		return nil, fmt.Errorf("fetch conversation: %w", err)
	}
	msgs := make([]chat.Message, 0, len(wires))
	for _, w := range wires {
		msgs = append(msgs, w.toDomain())
	}
	return msgs, nil
}

// SendText submits a text-only message and returns the created message as
// echoed back by the server (with its assigned id and timestamp).
func (c *Client) SendText(ctx context.Context, out Outgoing) (chat.Message, error) {
	body, err := json.Marshal(map[string]string{
		"receiverId":   out.ReceiverID,
		"receiverType": toWireRole(out.ReceiverRole),
		"content":      out.Content,
	})
	if err != nil {
		return chat.Message{}, err
	}
	req, err := c.newRequest(ctx, http.MethodPost, "/messages/send", nil, bytes.NewReader(body))
	if err != nil {
		return chat.Message{}, err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.doSend(req)
}

// SendFile submits a message with a binary attachment as multipart form
// data. contentType is the sniffed MIME type of the payload.
func (c *Client) SendFile(ctx context.Context, out Outgoing, filename, contentType string, r io.Reader) (chat.Message, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	fields := map[string]string{
		"receiverId":   out.ReceiverID,
		"receiverType": toWireRole(out.ReceiverRole),
		"content":      out.Content,
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			return chat.Message{}, fmt.Errorf("write field %s: %w", k, err)
		}
	}

	part, err := mw.CreateFormFile("file", filename)
	if err != nil {
		return chat.Message{}, fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, r); err != nil {
		return chat.Message{}, fmt.Errorf("copy attachment: %w", err)
	}
	if err := mw.Close(); err != nil {
		return chat.Message{}, err
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/messages/send", nil, &buf)
	if err != nil {
		return chat.Message{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if contentType != "" {
		req.Header.Set("X-Attachment-Type", contentType)
	}
	return c.doSend(req)
}

// AttachmentURL resolves a server-relative attachment path against the
// API base URL.
func (c *Client) AttachmentURL(path string) string {
	ref, err := url.Parse(path)
	if err != nil {
		return path
	}
	return c.base.ResolveReference(ref).String()
}

func (c *Client) newRequest(ctx context.Context, method, path string, q url.Values, body io.Reader) (*http.Request, error) {
	u := *c.base
	u.Path = strings.TrimRight(u.Path, "/") + path
	if q != nil {
		u.RawQuery = q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	return req, nil
}

func (c *Client) getJSON(ctx context.Context, path string, q url.Values, into any) error {
	req, err := c.newRequest(ctx, http.MethodGet, path, q, nil)
	if err != nil {
		return err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return decodeError(resp)
	}
	return json.NewDecoder(resp.Body).Decode(into)
}

func (c *Client) doSend(req *http.Request) (chat.Message, error) {
	resp, err := c.httpc.Do(req)
	if err != nil {
		return chat.Message{}, fmt.Errorf("send message: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		return chat.Message{}, fmt.Errorf("send message: %w", decodeError(resp))
	}
	var env sendEnvelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		return chat.Message{}, fmt.Errorf("decode send response: %w", err)
	}
	return env.Data.toDomain(), nil
}

func decodeError(resp *http.Response) error {
	apiErr := &Error{StatusCode: resp.StatusCode}
	var w wireError
	if err := json.NewDecoder(io.LimitReader(resp.Body, 64<<10)).Decode(&w); err == nil {
		apiErr.Message = w.Message
	}
	return apiErr
}
