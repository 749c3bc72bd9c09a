// Package client is a Go API client for the booking service. It keeps the
// login state as an explicit Session value owned by the caller.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"hotel-booking/availability"
	"hotel-booking/models"
)

// Kind is the phase of a Session.
type Kind int

const (
	Idle Kind = iota
	LoggingIn
	Authenticated
	Failed
)

func (k Kind) String() string {
	switch k {
	case Idle:
		return "idle"
	case LoggingIn:
		return "logging_in"
	case Authenticated:
		return "authenticated"
	case Failed:
		return "failed"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// State is a snapshot of a Session. User is set only when Authenticated,
// Reason only when Failed.
type State struct {
	Kind   Kind
	User   *models.User
	Reason string
}

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

// ErrNotAuthenticated is returned by calls that need a logged-in session.
var ErrNotAuthenticated = errors.New("client: not authenticated")

// Session talks to one service instance. The access_token cookie is kept in
// its own jar, so two sessions never share a login.
type Session struct {
	baseURL    string
	httpClient *http.Client

	mu    sync.RWMutex
	state State
	token string
}

// New returns an Idle session for the service at baseURL.
func New(baseURL string) (*Session, error) {
	if _, err := url.Parse(baseURL); err != nil {
		return nil, fmt.Errorf("client: invalid base url: %w", err)
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, err
	}
	return &Session{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second, Jar: jar},
	}, nil
}

// State returns the current state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *Session) setState(st State, token string) {
	s.mu.Lock()
	s.state = st
	s.token = token
	s.mu.Unlock()
}

// Login moves the session to LoggingIn, then to Authenticated on success or
// Failed with the service's message otherwise.
func (s *Session) Login(ctx context.Context, username, password string) error {
	s.setState(State{Kind: LoggingIn}, "")

	var resp struct {
		models.User
		Token string `json:"token"`
	}
	err := s.do(ctx, http.MethodPost, "/api/auth/login", map[string]string{
		"username": username,
		"password": password,
	}, &resp)
	if err != nil {
		reason := err.Error()
		var apiErr *APIError
		if errors.As(err, &apiErr) {
			reason = apiErr.Message
		}
		s.setState(State{Kind: Failed, Reason: reason}, "")
		return err
	}

	user := resp.User
	s.setState(State{Kind: Authenticated, User: &user}, resp.Token)
	return nil
}

// Logout clears the server cookie and returns the session to Idle. The local
// state is reset even when the request fails.
func (s *Session) Logout(ctx context.Context) error {
	err := s.do(ctx, http.MethodPost, "/api/auth/logout", nil, nil)
	s.setState(State{Kind: Idle}, "")
	return err
}

// Register creates an account without logging in.
func (s *Session) Register(ctx context.Context, username, email, password string) (*models.User, error) {
	var resp struct {
		User models.User `json:"user"`
	}
	err := s.do(ctx, http.MethodPost, "/api/auth/register", map[string]string{
		"username": username,
		"email":    email,
		"password": password,
	}, &resp)
	if err != nil {
		return nil, err
	}
	return &resp.User, nil
}

// Hotels lists hotels matching query, e.g. url.Values{"city": {"Berlin"}}.
func (s *Session) Hotels(ctx context.Context, query url.Values) ([]models.Hotel, error) {
	path := "/api/hotel"
	if len(query) > 0 {
		path += "?" + query.Encode()
	}
	var hotels []models.Hotel
	if err := s.do(ctx, http.MethodGet, path, nil, &hotels); err != nil {
		return nil, err
	}
	return hotels, nil
}

// Room fetches a room with its units.
func (s *Session) Room(ctx context.Context, id string) (*models.Room, error) {
	var room models.Room
	if err := s.do(ctx, http.MethodGet, "/api/room/"+url.PathEscape(id), nil, &room); err != nil {
		return nil, err
	}
	return &room, nil
}

// Availability asks which units of a room are free for checkIn..checkOut.
func (s *Session) Availability(ctx context.Context, roomID string, checkIn, checkOut time.Time) (*availability.Report, error) {
	q := url.Values{
		"checkIn":  {availability.FormatDate(checkIn)},
		"checkOut": {availability.FormatDate(checkOut)},
	}
	path := "/api/room/" + url.PathEscape(roomID) + "/availability?" + q.Encode()
	var report availability.Report
	if err := s.do(ctx, http.MethodGet, path, nil, &report); err != nil {
		return nil, err
	}
	return &report, nil
}

// ReserveResponse is the answer to a batch reservation.
type ReserveResponse struct {
	Success  bool                  `json:"success"`
	CheckIn  string                `json:"checkIn"`
	CheckOut string                `json:"checkOut"`
	Results  []availability.Result `json:"results"`
}

// Reserve books units for checkIn..checkOut. A partial success is not an
// error; inspect Results. A batch where no unit was reserved returns the
// response together with an *APIError.
func (s *Session) Reserve(ctx context.Context, unitIDs []string, checkIn, checkOut time.Time) (*ReserveResponse, error) {
	if s.State().Kind != Authenticated {
		return nil, ErrNotAuthenticated
	}
	body := map[string]interface{}{
		"unitIds":  unitIDs,
		"checkIn":  availability.FormatDate(checkIn),
		"checkOut": availability.FormatDate(checkOut),
	}
	var resp ReserveResponse
	err := s.do(ctx, http.MethodPost, "/api/room/reserve", body, &resp)
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Status == http.StatusConflict && resp.Results != nil {
		return &resp, err
	}
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

func (s *Session) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, s.baseURL+path, body)
	if err != nil {
		return err
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("client: %s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var failure struct {
			Message string `json:"message"`
		}
		if json.Unmarshal(raw, &failure) == nil && failure.Message != "" {
			apiErr.Message = failure.Message
		}
		if out != nil {
			_ = json.Unmarshal(raw, out)
		}
		return apiErr
	}
	if out == nil || len(raw) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("client: decode %s: %w", path, err)
	}
	return nil
}
