package terminal

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/cmlabs-hris/hris-attendance-engine/internal/domain/biometric"
)

// HTTPSource talks to terminals through their HTTP gateway:
//
//	GET /api/ping                      liveness
//	GET /api/events?since=<RFC3339>    {"events":[{"user_id","ip","record_time"}]}
type HTTPSource struct {
	scheme string
}

func NewHTTPSource() *HTTPSource {
	return &HTTPSource{scheme: "http"}
}

type eventsResponse struct {
	Events []wireEvent `json:"events"`
}

type wireEvent struct {
	UserID     userID    `json:"user_id"`
	IP         string    `json:"ip"`
	RecordTime time.Time `json:"record_time"`
}

// userID accepts the device user id as a JSON string or number.
type userID string

func (u *userID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*u = userID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("user_id must be a string or number: %w", err)
	}
	*u = userID(n.String())
	return nil
}

type session struct {
	baseURL string
	client  *http.Client
}

// Connect implements biometric.Source.
func (s *HTTPSource) Connect(ctx context.Context, host string, port int, timeouts biometric.Timeouts) (biometric.Session, error) {
	dialer := &net.Dialer{Timeout: timeouts.Connect}
	transport := &http.Transport{
		DialContext:           dialer.DialContext,
		ResponseHeaderTimeout: timeouts.Read,
		MaxIdleConns:          1,
	}

	sess := &session{
		baseURL: fmt.Sprintf("%s://%s", s.scheme, net.JoinHostPort(host, strconv.Itoa(port))),
		client:  &http.Client{Transport: transport, Timeout: timeouts.Read},
	}

	if err := sess.ping(ctx); err != nil {
		sess.Close()
		return nil, err
	}
	return sess, nil
}

func (s *session) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/api/ping", nil)
	if err != nil {
		return err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", biometric.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: ping returned %s", biometric.ErrSourceUnavailable, resp.Status)
	}
	return nil
}

// FetchEvents implements biometric.Session.
func (s *session) FetchEvents(ctx context.Context, window biometric.Window) ([]biometric.RawEvent, error) {
	u := s.baseURL + "/api/events"
	if window.Since != nil {
		u += "?since=" + url.QueryEscape(window.Since.Format(time.RFC3339))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", biometric.ErrSourceUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: events returned %s", biometric.ErrSourceUnavailable, resp.Status)
	}

	var body eventsResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return nil, fmt.Errorf("decode terminal events: %w", err)
	}

	events := make([]biometric.RawEvent, 0, len(body.Events))
	for _, ev := range body.Events {
		events = append(events, biometric.RawEvent{
			DeviceLocalUserID: string(ev.UserID),
			IP:                ev.IP,
			RecordTime:        ev.RecordTime,
		})
	}
	return events, nil
}

// Close implements biometric.Session.
func (s *session) Close() error {
	s.client.CloseIdleConnections()
	return nil
}
