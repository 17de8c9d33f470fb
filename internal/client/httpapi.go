// Package client talks to the LearnAssess API and runs attempts in a terminal.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"learnassess/internal/domain"
)

const DefaultBaseURL = "http://127.0.0.1:8080"

// APIError is a non-2xx response. Err carries the matching domain error so
// callers can use errors.Is.
type APIError struct {
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

func (e *APIError) Unwrap() error { return e.Err }

// Session is an authenticated login.
type Session struct {
	Token string      `json:"token"`
	User  domain.User `json:"user"`
}

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

// HTTPClient implements the engine's quiz source and result sink over REST.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

func NewHTTPClient(baseURL string, httpClient *http.Client) *HTTPClient {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPClient{baseURL: baseURL, httpClient: httpClient}
}

// SetToken sets the bearer token sent with every request.
func (c *HTTPClient) SetToken(token string) {
	c.token = token
}

// Login authenticates and keeps the returned token for later calls.
func (c *HTTPClient) Login(ctx context.Context, email, password string) (Session, error) {
	var session Session
	body := map[string]string{"email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login", body, &session); err != nil {
		return Session{}, err
	}
	c.token = session.Token
	return session, nil
}

// Register creates an account and keeps the returned token.
func (c *HTTPClient) Register(ctx context.Context, username, email, password string) (Session, error) {
	var session Session
	body := map[string]string{"username": username, "email": email, "password": password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register", body, &session); err != nil {
		return Session{}, err
	}
	c.token = session.Token
	return session, nil
}

func (c *HTTPClient) ListQuizzes(ctx context.Context) ([]domain.Quiz, error) {
	var quizzes []domain.Quiz
	if err := c.doJSON(ctx, http.MethodGet, "/api/quizzes", nil, &quizzes); err != nil {
		return nil, err
	}
	return quizzes, nil
}

// GetQuiz fetches the full quiz, correct flags included, for local scoring.
func (c *HTTPClient) GetQuiz(ctx context.Context, quizID string) (domain.Quiz, error) {
	if strings.TrimSpace(quizID) == "" {
		return domain.Quiz{}, domain.ErrQuizNotFound
	}
	var quiz domain.Quiz
	err := c.doJSON(ctx, http.MethodGet, "/api/quizzes/"+url.PathEscape(quizID), nil, &quiz)
	if err != nil {
		return domain.Quiz{}, notFoundAs(err, domain.ErrQuizNotFound)
	}
	return quiz, nil
}

// SaveResult posts a finished attempt and returns the stored record.
func (c *HTTPClient) SaveResult(ctx context.Context, result domain.Result) (domain.Result, error) {
	var saved domain.Result
	if err := c.doJSON(ctx, http.MethodPost, "/api/quiz-results", result, &saved); err != nil {
		return domain.Result{}, notFoundAs(err, domain.ErrQuizNotFound)
	}
	return saved, nil
}

func (c *HTTPClient) Results(ctx context.Context) ([]domain.ResultView, error) {
	var views []domain.ResultView
	if err := c.doJSON(ctx, http.MethodGet, "/api/quiz-results", nil, &views); err != nil {
		return nil, err
	}
	return views, nil
}

func (c *HTTPClient) Analytics(ctx context.Context) (domain.Analytics, error) {
	var summary domain.Analytics
	if err := c.doJSON(ctx, http.MethodGet, "/api/quiz-results/analytics", nil, &summary); err != nil {
		return domain.Analytics{}, err
	}
	return summary, nil
}

func (c *HTTPClient) doJSON(ctx context.Context, method, path string, requestBody any, responseBody any) error {
	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return err
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		request.Header.Set("Authorization", "Bearer "+c.token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNetwork, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		return decodeAPIError(response)
	}
	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil {
		return fmt.Errorf("%w: decode response: %v", domain.ErrNetwork, err)
	}
	return nil
}

func decodeAPIError(response *http.Response) error {
	apiErr := &APIError{StatusCode: response.StatusCode}
	var payload errorResponse
	if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
		apiErr.Message = strings.TrimSpace(payload.Error)
	}
	if apiErr.Message == "" {
		apiErr.Message = response.Status
	}

	switch response.StatusCode {
	case http.StatusBadRequest:
		fields := payload.Fields
		if len(fields) == 0 {
			fields = map[string]string{"request": apiErr.Message}
		}
		apiErr.Err = &domain.ValidationError{Fields: fields}
	case http.StatusUnauthorized:
		apiErr.Err = domain.ErrUnauthorized
	case http.StatusForbidden:
		apiErr.Err = domain.ErrForbidden
	case http.StatusNotFound:
		apiErr.Err = errNotFound
	default:
		if response.StatusCode >= http.StatusInternalServerError {
			apiErr.Err = domain.ErrNetwork
		}
	}
	return apiErr
}

var errNotFound = errors.New("not found")

// notFoundAs narrows a generic 404 to the sentinel the caller expects.
func notFoundAs(err error, sentinel error) error {
	var apiErr *APIError
	if errors.As(err, &apiErr) && apiErr.Err == errNotFound {
		apiErr.Err = sentinel
	}
	return err
}
