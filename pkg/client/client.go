// Package client is a typed facade over the xchat HTTP API.
package client

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

	"github.com/google/uuid"
	"github.com/vedran77/xchat/pkg/api"
	"github.com/vedran77/xchat/pkg/domain"
)

type Client struct {
	baseURL string
	user    domain.Name
	token   string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithBearerToken authenticates with a signed token instead of the raw name.
func WithBearerToken(token string) Option {
	return func(c *Client) { c.token = token }
}

func New(baseURL string, user domain.Name, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		user:    user,
		http:    &http.Client{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Error is a non-2xx answer. It unwraps to the domain error of its code, so
// errors.Is(err, domain.ErrForbidden) works on the client side too.
type Error struct {
	Status  int
	Code    string
	Message string
	Fields  map[string]string
}

func (e *Error) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("xchat: %d %s", e.Status, e.Code)
	}
	return fmt.Sprintf("xchat: %d %s: %s", e.Status, e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return api.Sentinel(e.Code)
}

type ChannelQuery struct {
	Members      []domain.Name
	CreatedAfter *time.Time
	Page         int
	PageSize     int
}

type MessageQuery struct {
	SentBefore *time.Time
	Page       int
	PageSize   int
}

func (c *Client) ListChannels(ctx context.Context, q ChannelQuery) ([]domain.Channel, error) {
	v := url.Values{}
	if len(q.Members) > 0 {
		v.Set("members", strings.Join(domain.NameStrings(q.Members), ","))
	}
	if q.CreatedAfter != nil {
		v.Set("createdAfter", strconv.FormatInt(q.CreatedAfter.UnixMilli(), 10))
	}
	setPage(v, q.Page, q.PageSize)

	var out []api.Channel
	if err := c.doJSON(ctx, http.MethodGet, "/v1/channels?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	channels := make([]domain.Channel, 0, len(out))
	for _, ch := range out {
		channels = append(channels, ch.Domain())
	}
	return channels, nil
}

func (c *Client) CreateChannel(ctx context.Context, name *domain.Name, members []domain.Name) (*domain.Channel, error) {
	var out api.Channel
	body := api.CreateChannelRequest{Name: name, Members: members}
	if err := c.doJSON(ctx, http.MethodPost, "/v1/channels", body, &out); err != nil {
		return nil, err
	}
	ch := out.Domain()
	return &ch, nil
}

// CreatePrivateChannel opens an unnamed channel between the caller and
// recipient.
func (c *Client) CreatePrivateChannel(ctx context.Context, recipient domain.Name) (*domain.Channel, error) {
	return c.CreateChannel(ctx, nil, []domain.Name{recipient})
}

func (c *Client) GetChannel(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	var out api.Channel
	if err := c.doJSON(ctx, http.MethodGet, "/v1/channels/"+id.String(), nil, &out); err != nil {
		return nil, err
	}
	ch := out.Domain()
	return &ch, nil
}

func (c *Client) ListMessages(ctx context.Context, channelID uuid.UUID, q MessageQuery) ([]domain.Message, error) {
	v := url.Values{}
	if q.SentBefore != nil {
		v.Set("sentBefore", strconv.FormatInt(q.SentBefore.UnixMilli(), 10))
	}
	setPage(v, q.Page, q.PageSize)

	var out []api.Message
	if err := c.doJSON(ctx, http.MethodGet, messagesPath(channelID)+"?"+v.Encode(), nil, &out); err != nil {
		return nil, err
	}
	return toMessages(out)
}

func (c *Client) GetMessage(ctx context.Context, channelID, messageID uuid.UUID) (*domain.Message, error) {
	var out api.Message
	if err := c.doJSON(ctx, http.MethodGet, messagesPath(channelID)+"/"+messageID.String(), nil, &out); err != nil {
		return nil, err
	}
	return toMessage(out)
}

// SendMessage posts text or a reference to a file already uploaded to the
// channel.
func (c *Client) SendMessage(ctx context.Context, channelID uuid.UUID, content domain.Content) (*domain.Message, error) {
	var out api.Message
	body := api.SendMessageRequest{Content: api.FromContent(content)}
	if err := c.doJSON(ctx, http.MethodPost, messagesPath(channelID), body, &out); err != nil {
		return nil, err
	}
	return toMessage(out)
}

// UploadFile streams size bytes from r as a file named name. progress, when
// not nil, receives the fraction of the request body sent so far.
func (c *Client) UploadFile(ctx context.Context, channelID uuid.UUID, name string, size int64, r io.Reader, progress func(float64)) (*domain.Message, error) {
	var head bytes.Buffer
	mw := multipart.NewWriter(&head)
	if err := mw.WriteField("size", strconv.FormatInt(size, 10)); err != nil {
		return nil, err
	}
	if _, err := mw.CreateFormFile("file", name); err != nil {
		return nil, err
	}
	headLen := head.Len()
	if err := mw.Close(); err != nil {
		return nil, err
	}
	prefix, trailer := head.Bytes()[:headLen], head.Bytes()[headLen:]

	body := &progressReader{
		r:      io.MultiReader(bytes.NewReader(prefix), r, bytes.NewReader(trailer)),
		total:  int64(len(prefix)+len(trailer)) + size,
		report: progress,
	}
	req, err := c.newRequest(ctx, http.MethodPost, filesPath(channelID), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var out api.Message
	if err := c.do(req, &out); err != nil {
		return nil, err
	}
	return toMessage(out)
}

// DownloadFile returns the file content. The caller closes it. progress, when
// not nil, receives the fraction of the file read so far and 1 at its end.
func (c *Client) DownloadFile(ctx context.Context, channelID uuid.UUID, name string, progress func(float64)) (io.ReadCloser, error) {
	req, err := c.newRequest(ctx, http.MethodGet, filesPath(channelID)+"/"+url.PathEscape(name), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	if progress == nil {
		return resp.Body, nil
	}
	return &downloadReader{ReadCloser: resp.Body, total: resp.ContentLength, report: progress}, nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := c.newRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, path string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else {
		req.Header.Set("Authorization", c.user.String())
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return decodeError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

func decodeError(resp *http.Response) error {
	e := &Error{Status: resp.StatusCode}
	var body api.ErrorBody
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<16)).Decode(&body); err == nil {
		e.Code = body.Error.Code
		e.Message = body.Error.Message
		e.Fields = body.Error.Fields
	}
	return e
}

func setPage(v url.Values, page, size int) {
	if page != 0 {
		v.Set("page", strconv.Itoa(page))
	}
	if size != 0 {
		v.Set("pageSize", strconv.Itoa(size))
	}
}

func messagesPath(channelID uuid.UUID) string {
	return "/v1/channels/" + channelID.String() + "/messages"
}

func filesPath(channelID uuid.UUID) string {
	return "/v1/channels/" + channelID.String() + "/files"
}

func toMessage(m api.Message) (*domain.Message, error) {
	msg, err := m.Domain()
	if err != nil {
		return nil, fmt.Errorf("decoding message %s: %w", m.ID, err)
	}
	return &msg, nil
}

func toMessages(ms []api.Message) ([]domain.Message, error) {
	out := make([]domain.Message, 0, len(ms))
	for _, m := range ms {
		msg, err := toMessage(m)
		if err != nil {
			return nil, err
		}
		out = append(out, *msg)
	}
	return out, nil
}

type progressReader struct {
	r      io.Reader
	total  int64
	sent   int64
	report func(float64)
}

func (p *progressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	p.sent += int64(n)
	if n > 0 && p.report != nil && p.total > 0 {
		p.report(min(float64(p.sent)/float64(p.total), 1))
	}
	return n, err
}

// downloadReader reports progress against the response Content-Length, which
// is -1 when the server did not send one.
type downloadReader struct {
	io.ReadCloser
	total  int64
	read   int64
	ended  bool
	report func(float64)
}

func (d *downloadReader) Read(b []byte) (int, error) {
	n, err := d.ReadCloser.Read(b)
	d.read += int64(n)
	if n > 0 && d.total > 0 && d.read < d.total {
		d.report(float64(d.read) / float64(d.total))
	}
	if !d.ended && (err == io.EOF || (d.total >= 0 && d.read >= d.total)) {
		d.ended = true
		d.report(1)
	}
	return n, err
}
