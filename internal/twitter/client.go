package twitter

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

const (
	DefaultBaseURL = "https://api.twitter.com"

	tokenPath       = "/oauth2/token"
	friendsListPath = "/1.1/friends/list.json"

	// Upper bound on how much of an upstream body we are willing to buffer.
	maxResponseBytes = 8 << 20
)

// Friend is a single user record from the friends list, passed through verbatim.
type Friend = json.RawMessage

// Client talks to the Twitter REST API on behalf of the application (no end user).
// It implements both the client-credentials token exchange and the friends list lookup.
type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials clientcredentials.Config

	requests metric.Int64Counter
}

// NewClient returns a client for the API rooted at baseURL. A nil httpClient
// falls back to http.DefaultClient.
func NewClient(baseURL, apiKey, apiSecret string, httpClient *http.Client) (*Client, error) {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	tokenURL, err := url.JoinPath(baseURL, tokenPath)
	if err != nil {
		return nil, fmt.Errorf("building token url from %q: %w", baseURL, err)
	}

	meter := otel.Meter("github.com/kylewelch/following/internal/twitter")
	requests, err := meter.Int64Counter(
		"following.upstream.requests",
		metric.WithDescription("Requests issued to the Twitter API"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating upstream request counter: %w", err)
	}

	return &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
		credentials: clientcredentials.Config{
			ClientID:     apiKey,
			ClientSecret: apiSecret,
			TokenURL:     tokenURL,
			// Twitter only accepts the credentials as HTTP Basic auth. x/oauth2
			// form-encodes key and secret before base64, per RFC 6749 2.3.1.
			AuthStyle: oauth2.AuthStyleInHeader,
		},
		requests: requests,
	}, nil
}

// Token exchanges the API key and secret for an application bearer token.
func (c *Client) Token(ctx context.Context) (*oauth2.Token, error) {
	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", tokenPath)))

	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
	token, err := c.credentials.Token(ctx)
	if err != nil {
		return nil, fmt.Errorf("exchanging client credentials: %w", err)
	}
	log.Debug().Str("token_type", token.Type()).Msg("obtained application bearer token")
	return token, nil
}

// FetchFriends lists the accounts screenName follows, authenticated with token.
func (c *Client) FetchFriends(ctx context.Context, token *oauth2.Token, screenName string) ([]Friend, error) {
	if token == nil || token.AccessToken == "" {
		return nil, fmt.Errorf("bearer token has no access token")
	}

	endpoint, err := url.JoinPath(c.baseURL, friendsListPath)
	if err != nil {
		return nil, fmt.Errorf("building friends list url: %w", err)
	}
	query := url.Values{"screen_name": {screenName}}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+query.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	token.SetAuthHeader(req)

	c.requests.Add(ctx, 1, metric.WithAttributes(attribute.String("endpoint", friendsListPath)))
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("requesting friends of %s: %w", screenName, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading friends list response: %w", err)
	}
	return parseFriendsList(resp.StatusCode, body)
}
