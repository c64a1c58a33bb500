package server

import (
	"context"
	"net/http"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/kylewelch/following/internal/twitter"
	"github.com/kylewelch/following/internal/utils"
)

const (
	// DefaultScreenName is the account whose friends /api/following lists.
	DefaultScreenName = "kylewelch"

	rootBody = "I built a TS server"
)

// TokenSource hands out the application bearer token, usually from a cache.
type TokenSource interface {
	Token(ctx context.Context) (*oauth2.Token, error)
}

// FriendsFetcher lists the friends of a screen name using a bearer token.
type FriendsFetcher interface {
	FetchFriends(ctx context.Context, token *oauth2.Token, screenName string) ([]twitter.Friend, error)
}

type Server struct {
	tokens  TokenSource
	friends FriendsFetcher
	// Fixed account to look up; never taken from the request.
	screenName string
}

// NewServer returns the HTTP surface of the proxy.
func NewServer(tokens TokenSource, friends FriendsFetcher, screenName string) *Server {
	if screenName == "" {
		screenName = DefaultScreenName
	}
	return &Server{
		tokens:     tokens,
		friends:    friends,
		screenName: screenName,
	}
}

// Routes lists every route the server exposes, ready for NewRouter.
func (s *Server) Routes() []Route {
	return []Route{
		NewBasicRoute(http.MethodGet, "/{$}", s.Root),
		NewBasicRoute(http.MethodGet, "/api/following", s.Following),
	}
}

// Root is a static health check.
func (s *Server) Root(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write([]byte(rootBody)); err != nil {
		log.Err(err).Msg("writing root response")
	}
}

// Following responds with the friends of the configured screen name. Any failure
// results in a single 500 carrying the error message.
func (s *Server) Following(w http.ResponseWriter, r *http.Request) {
	token, err := s.tokens.Token(r.Context())
	if err != nil {
		utils.LogAndHTTPError(w, err, "obtaining bearer token", http.StatusInternalServerError)
		return
	}

	friends, err := s.friends.FetchFriends(r.Context(), token, s.screenName)
	if err != nil {
		utils.LogAndHTTPError(w, err, "fetching friends of "+s.screenName, http.StatusInternalServerError)
		return
	}

	utils.WriteJSON(w, http.StatusOK, friends)
}
