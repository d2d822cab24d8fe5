package analysis

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/hariseldon84/singlebrief-full-sub000/internal/platform/restclient"
)

// ErrNotAuthenticated is returned without a network call when there is no access token.
var ErrNotAuthenticated = errors.New("analysis: sign in to analyze a question")

// TokenSource yields the current access token.
type TokenSource interface {
	AccessToken() string
}

// HTTPService calls the remote analysis service.
type HTTPService struct {
	rest   *restclient.Client
	tokens TokenSource
}

// NewHTTPService returns a Service for baseURL (API_BASE_URL).
func NewHTTPService(baseURL string, timeout time.Duration, tokens TokenSource, opts ...restclient.Option) *HTTPService {
	return &HTTPService{rest: restclient.New(baseURL, timeout, opts...), tokens: tokens}
}

// Analyze implements Service.
func (s *HTTPService) Analyze(ctx context.Context, question string, recipients []Recipient) ([]Breakdown, error) {
	if len(recipients) == 0 {
		return nil, ErrNoRecipients
	}
	token := s.tokens.AccessToken()
	if token == "" {
		return nil, ErrNotAuthenticated
	}
	var out Response
	if err := s.rest.Do(ctx, http.MethodPost, "/analysis/breakdown", token, Request{Question: question, Recipients: recipients}, &out); err != nil {
		return nil, err
	}
	return Check(recipients, out.Breakdowns)
}

var _ Service = (*HTTPService)(nil)
