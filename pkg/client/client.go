// Package client talks to the medtracker API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/jwalitptl/medtracker/internal/model"
	"github.com/jwalitptl/medtracker/internal/service/progress"
	apperrors "github.com/jwalitptl/medtracker/pkg/errors"
)

// ErrNothingFound is returned by Extract when the file was read but no medication was
// recognized. The user can retry with a clearer file.
var ErrNothingFound = apperrors.NothingFound("No medications were found in this file. Try a clearer photo.")

type Op string

const (
	OpLoad      Op = "load"
	OpSave      Op = "save"
	OpExtract   Op = "extract"
	OpProgress  Op = "progress"
	OpReminders Op = "reminders"
)

var prefixes = map[Op]string{
	OpLoad:      "Failed to load data",
	OpSave:      "Could not save your changes",
	OpProgress:  "Failed to load progress",
	OpReminders: "Failed to load reminders",
}

// APIError is a failed call, either at the network level (Status 0) or reported by the
// server. Error() is a single message fit to show the user.
type APIError struct {
	Op      Op
	Status  int
	Message string
	Details string
	Err     error
}

func (e *APIError) Error() string {
	prefix, ok := prefixes[e.Op]
	if !ok {
		return e.Message
	}
	reason := e.Message
	if e.Details != "" {
		reason = e.Details
	}
	return fmt.Sprintf("%s: %s", prefix, reason)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 60 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Load returns nil when nothing is stored for userID.
func (c *Client) Load(ctx context.Context, userID string) (*string, error) {
	var out struct {
		Data *string `json:"data"`
	}
	q := url.Values{"userId": {userID}}
	if err := c.do(ctx, OpLoad, http.MethodGet, "/api/load?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Data, nil
}

func (c *Client) Save(ctx context.Context, userID, data string) error {
	body, err := json.Marshal(map[string]string{"userId": userID, "data": data})
	if err != nil {
		return &APIError{Op: OpSave, Message: err.Error(), Err: err}
	}
	return c.do(ctx, OpSave, http.MethodPost, "/api/save", bytes.NewReader(body), "application/json", nil)
}

// Extract uploads a prescription file. An empty result is reported as ErrNothingFound.
func (c *Client) Extract(ctx context.Context, filename string, r io.Reader) ([]model.ParsedMedication, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err == nil {
		_, err = io.Copy(fw, r)
	}
	if err == nil {
		err = mw.Close()
	}
	if err != nil {
		return nil, &APIError{Op: OpExtract, Message: "Could not read the file", Err: err}
	}

	var out struct {
		Medications []model.ParsedMedication `json:"medications"`
	}
	if err := c.do(ctx, OpExtract, http.MethodPost, "/api/extract", &buf, mw.FormDataContentType(), &out); err != nil {
		return nil, err
	}
	if len(out.Medications) == 0 {
		return nil, ErrNothingFound
	}
	return out.Medications, nil
}

// Progress fetches the adherence report; zero year/month mean the current month.
func (c *Client) Progress(ctx context.Context, userID string, year int, month time.Month, tz string) (*progress.Report, error) {
	q := url.Values{"userId": {userID}}
	if year != 0 {
		q.Set("year", strconv.Itoa(year))
	}
	if month != 0 {
		q.Set("month", strconv.Itoa(int(month)))
	}
	if tz != "" {
		q.Set("tz", tz)
	}

	var out progress.Report
	if err := c.do(ctx, OpProgress, http.MethodGet, "/api/progress?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) Reminders(ctx context.Context, userID, tz string) ([]progress.Upcoming, error) {
	q := url.Values{"userId": {userID}}
	if tz != "" {
		q.Set("tz", tz)
	}

	var out struct {
		Reminders []progress.Upcoming `json:"reminders"`
	}
	if err := c.do(ctx, OpReminders, http.MethodGet, "/api/reminders?"+q.Encode(), nil, "", &out); err != nil {
		return nil, err
	}
	return out.Reminders, nil
}

func (c *Client) do(ctx context.Context, op Op, method, path string, body io.Reader, contentType string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return &APIError{Op: op, Message: err.Error(), Err: err}
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return &APIError{Op: op, Message: networkMessage(err), Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return decodeError(op, resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &APIError{Op: op, Status: resp.StatusCode, Message: "unexpected response from server", Err: err}
	}
	return nil
}

func decodeError(op Op, resp *http.Response) error {
	var body struct {
		Error   string `json:"error"`
		Details string `json:"details"`
	}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err := json.Unmarshal(raw, &body); err != nil || body.Error == "" {
		body.Error = strings.TrimSpace(string(raw))
		if body.Error == "" {
			body.Error = http.StatusText(resp.StatusCode)
		}
	}
	return &APIError{Op: op, Status: resp.StatusCode, Message: body.Error, Details: body.Details}
}

func networkMessage(err error) string {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		if urlErr.Timeout() {
			return "the server did not respond in time"
		}
		return urlErr.Err.Error()
	}
	return err.Error()
}
