package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"skillswap/internal/pkg/reqctx"
	"skillswap/internal/wizard"
)

const (
	resourceAvailability = "availability"
	resourceSlots        = "available-slots"
	resourceSessions     = "sessions"

	headerAuthorization = "Authorization"
	headerContentType   = "Content-Type"
	mimeJSON            = "application/json"
)

// Client talks to the SkillSwap REST backend. It implements
// wizard.AvailabilityFetcher and wizard.SessionCreator.
type Client struct {
	baseURL string
	http    *http.Client
	log     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, log *zap.Logger) *Client {
	if log == nil {
		log = zap.NewNop()
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		log:     log,
	}
}

type availabilityResponse struct {
	Availability []wizard.DayAvailability `json:"availability"`
}

func (c *Client) WeeklyAvailability(ctx context.Context, teacherID string) ([]wizard.DayAvailability, error) {
	var out availabilityResponse
	path := "/availability/" + url.PathEscape(teacherID)
	if err := c.do(ctx, http.MethodGet, path, nil, nil, resourceAvailability, &out); err != nil {
		return nil, err
	}
	return out.Availability, nil
}

type slotsResponse struct {
	AvailableSlots []wizard.TimeSlot `json:"availableSlots"`
}

func (c *Client) AvailableSlots(ctx context.Context, teacherID string, date time.Time, durationMinutes int) ([]wizard.TimeSlot, error) {
	q := url.Values{}
	q.Set("date", date.Format(wizard.DateLayout))
	q.Set("duration", strconv.Itoa(durationMinutes))

	var out slotsResponse
	path := "/availability/" + url.PathEscape(teacherID) + "/slots"
	if err := c.do(ctx, http.MethodGet, path, q, nil, resourceSlots, &out); err != nil {
		return nil, err
	}
	return out.AvailableSlots, nil
}

type sessionBody struct {
	ID            string       `json:"id"`
	LegacyID      string       `json:"_id"`
	Status        string       `json:"status"`
	ScheduledAt   time.Time    `json:"scheduledAt"`
	TokensCharged int          `json:"tokensCharged"`
	Session       *sessionBody `json:"session"`
	Data          *sessionBody `json:"data"`
}

func (c *Client) CreateSession(ctx context.Context, req wizard.SessionRequest) (*wizard.CreatedSession, error) {
	req.ScheduledAt = req.ScheduledAt.UTC()

	var out sessionBody
	if err := c.do(ctx, http.MethodPost, "/sessions", nil, req, resourceSessions, &out); err != nil {
		return nil, err
	}

	body := &out
	for body.Data != nil || body.Session != nil {
		if body.Data != nil {
			body = body.Data
		} else {
			body = body.Session
		}
	}
	id := body.ID
	if id == "" {
		id = body.LegacyID
	}
	return &wizard.CreatedSession{
		ID:            id,
		Status:        body.Status,
		ScheduledAt:   body.ScheduledAt,
		TokensCharged: body.TokensCharged,
	}, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body any, resource string, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return wrap(ErrCreateRequest, resource, err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return wrap(ErrCreateRequest, resource, err)
	}
	req.Header.Set("Accept", mimeJSON)
	if body != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}
	if p, ok := reqctx.PrincipalFrom(ctx); ok && p.Token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+p.Token)
	}

	started := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return wrap(ErrSendRequest, resource, err)
	}
	defer resp.Body.Close()

	c.log.Debug("backend request",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("latency", time.Since(started)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp, resource)
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return wrap(ErrDecodeResponse, resource, err)
	}
	return nil
}

type errorBody struct {
	Message string `json:"message"`
	Error   any    `json:"error"`
}

func decodeAPIError(resp *http.Response, resource string) error {
	apiErr := &APIError{Status: resp.StatusCode, Resource: resource}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil || len(raw) == 0 {
		return apiErr
	}

	var eb errorBody
	if err := json.Unmarshal(raw, &eb); err != nil {
		return apiErr
	}
	switch {
	case eb.Message != "":
		apiErr.Message = eb.Message
	case eb.Error != nil:
		switch v := eb.Error.(type) {
		case string:
			apiErr.Message = v
		case map[string]any:
			if msg, ok := v["message"].(string); ok {
				apiErr.Message = msg
			}
		}
	}
	return apiErr
}
