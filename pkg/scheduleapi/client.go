// Package scheduleapi is a retry-free accessor for the teacher scheduling platform REST API.
package scheduleapi

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"

	"github.com/noah-isme/teacher-stats-api/internal/models"
	"github.com/noah-isme/teacher-stats-api/pkg/period"
)

// Endpoint labels used in errors and observations.
const (
	EndpointProducts = "products"
	EndpointShifts   = "shifts"
	EndpointDiary    = "diary"
)

const (
	defaultListTimeout  = 15 * time.Second
	defaultDiaryTimeout = 30 * time.Second
	excerptLimit        = 100
)

// ErrDiaryNotFound is returned by GetDiary when no diary was recorded for the class.
var ErrDiaryNotFound = errors.New("diary not found")

// StatusError reports a non-2xx response.
type StatusError struct {
	StatusCode int
	Endpoint   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s request failed with status %d", e.Endpoint, e.StatusCode)
}

// FormatError reports a successful response whose body is not JSON.
type FormatError struct {
	Endpoint    string
	ContentType string
	Excerpt     string
	Err         error
}

func (e *FormatError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s returned malformed JSON: %v", e.Endpoint, e.Err)
	}
	return fmt.Sprintf("%s returned non-JSON content %q: %s", e.Endpoint, e.ContentType, e.Excerpt)
}

func (e *FormatError) Unwrap() error {
	return e.Err
}

// StatusCode extracts the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.StatusCode
	}
	return 0
}

// IsTimeout reports whether err stems from an expired deadline.
func IsTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr interface{ Timeout() bool }
	return errors.As(err, &netErr) && netErr.Timeout()
}

// Observer receives one observation per upstream call. status is 0 when no response arrived.
type Observer interface {
	ObserveUpstream(endpoint string, status int, duration time.Duration)
}

// Config configures a Client.
type Config struct {
	BaseURL      string
	ListTimeout  time.Duration
	DiaryTimeout time.Duration
	HTTPClient   *http.Client
	Observer     Observer
}

// Client calls the scheduling platform on behalf of a bearer token holder.
type Client struct {
	baseURL      string
	listTimeout  time.Duration
	diaryTimeout time.Duration
	http         *http.Client
	observer     Observer
}

// New constructs a Client with sane defaults.
func New(cfg Config) *Client {
	if cfg.ListTimeout <= 0 {
		cfg.ListTimeout = defaultListTimeout
	}
	if cfg.DiaryTimeout <= 0 {
		cfg.DiaryTimeout = defaultDiaryTimeout
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{}
	}
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		listTimeout:  cfg.ListTimeout,
		diaryTimeout: cfg.DiaryTimeout,
		http:         cfg.HTTPClient,
		observer:     cfg.Observer,
	}
}

type envelope[T any] struct {
	Data T `json:"data"`
}

// ListActiveProducts returns the identifiers of the caller's schedulable products.
func (c *Client) ListActiveProducts(ctx context.Context, token string) ([]string, error) {
	var body envelope[[]models.Product]
	if err := c.get(ctx, EndpointProducts, "/teacher/products?page=SCHEDULE", token, c.listTimeout, &body); err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(body.Data))
	for _, product := range body.Data {
		ids = append(ids, product.ID.String())
	}
	return ids, nil
}

// ListShifts returns every ACTIVE shift of the given products overlapping window.
func (c *Client) ListShifts(ctx context.Context, token string, window period.Window, productIDs []string) ([]models.ClassShift, error) {
	var query strings.Builder
	query.WriteString("/teacher/shifts?status[]=ACTIVE")
	query.WriteString("&fromDate=" + url.QueryEscape(window.FromParam()))
	query.WriteString("&toDate=" + url.QueryEscape(window.ToParam()))
	for _, id := range productIDs {
		query.WriteString("&product_ids[]=" + url.QueryEscape(id))
	}

	var body envelope[[]models.ClassShift]
	if err := c.get(ctx, EndpointShifts, query.String(), token, c.listTimeout, &body); err != nil {
		return nil, err
	}
	if body.Data == nil {
		return []models.ClassShift{}, nil
	}
	return body.Data, nil
}

// GetDiary fetches the lesson diary of one class occurrence. A 404 yields ErrDiaryNotFound.
func (c *Client) GetDiary(ctx context.Context, token, classSessionID string) (*models.DiaryRecord, error) {
	var body envelope[*models.DiaryRecord]
	path := "/diary/" + url.PathEscape(classSessionID)
	if err := c.get(ctx, EndpointDiary, path, token, c.diaryTimeout, &body); err != nil {
		return nil, err
	}
	diary := body.Data
	if diary == nil {
		diary = &models.DiaryRecord{}
	}
	if diary.Details == nil {
		diary.Details = []models.ParticipationDetail{}
	}
	return diary, nil
}

func (c *Client) get(ctx context.Context, endpoint, path, token string, timeout time.Duration, out interface{}) error {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("build %s request: %w", endpoint, err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.observe(endpoint, 0, time.Since(start))
		return fmt.Errorf("%s request: %w", endpoint, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	c.observe(endpoint, resp.StatusCode, time.Since(start))
	if err != nil {
		return fmt.Errorf("read %s response: %w", endpoint, err)
	}

	if endpoint == EndpointDiary && resp.StatusCode == http.StatusNotFound {
		return ErrDiaryNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &StatusError{StatusCode: resp.StatusCode, Endpoint: endpoint}
	}

	contentType := resp.Header.Get("Content-Type")
	if mediaType, _, _ := mime.ParseMediaType(contentType); !strings.Contains(mediaType, "json") {
		return &FormatError{Endpoint: endpoint, ContentType: contentType, Excerpt: excerpt(payload)}
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return &FormatError{Endpoint: endpoint, ContentType: contentType, Excerpt: excerpt(payload), Err: err}
	}
	return nil
}

func (c *Client) observe(endpoint string, status int, duration time.Duration) {
	if c.observer != nil {
		c.observer.ObserveUpstream(endpoint, status, duration)
	}
}

func excerpt(payload []byte) string {
	if len(payload) > excerptLimit {
		payload = payload[:excerptLimit]
	}
	return string(payload)
}
