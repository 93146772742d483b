// Package auth runs the OAuth2 installed-app flow for Google Calendar and
// keeps the resulting token on disk.
package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/taskplan/pkg/errors"
)

// DefaultPort is the local port that receives the OAuth redirect.
const DefaultPort = "6789"

// Scopes are the permissions taskplan asks for: read busy calendars, write plan events.
var Scopes = []string{calendar.CalendarEventsScope, calendar.CalendarReadonlyScope}

// Options locates the client secret and token files.
type Options struct {
	CredentialsFile string
	TokenFile       string
	Port            string
	Logger          zerolog.Logger
}

func (o Options) port() string {
	if o.Port == "" {
		return DefaultPort
	}
	return o.Port
}

// Config reads the client secret file and points its redirect at the local listener.
func Config(opts Options, scopes []string) (*oauth2.Config, error) {
	b, err := os.ReadFile(opts.CredentialsFile)
	if err != nil {
		return nil, errors.Wrapf(err, "read client secret file %s", opts.CredentialsFile)
	}
	cfg, err := google.ConfigFromJSON(b, scopes...)
	if err != nil {
		return nil, errors.Wrap(err, "parse client secret file")
	}
	cfg.RedirectURL = redirectURL(cfg.RedirectURL, opts.port(), opts.Logger)
	return cfg, nil
}

// redirectURL forces loopback and out-of-band redirects onto the local port.
func redirectURL(raw, port string, logger zerolog.Logger) string {
	if raw == "urn:ietf:wg:oauth:2.0:oob" {
		return fmt.Sprintf("http://localhost:%s/oauth2callback", port)
	}
	u, err := url.Parse(raw)
	if err != nil {
		logger.Warn().Err(err).Str("redirect_url", raw).Msg("unparsable redirect URL, using it as is")
		return raw
	}
	host := u.Hostname()
	if host != "localhost" && host != "127.0.0.1" {
		logger.Warn().Str("redirect_url", raw).Msg("redirect URL is not a loopback callback")
		return raw
	}
	if u.Port() != "" && u.Port() != port {
		logger.Warn().Str("configured", u.Port()).Str("port", port).Msg("overriding redirect port")
	}
	u.Host = net.JoinHostPort(host, port)
	return u.String()
}

// Client returns an HTTP client authorised with the stored token, running the
// browser flow first when no token exists. Refreshed tokens are written back.
func Client(ctx context.Context, opts Options, scopes []string) (*http.Client, error) {
	cfg, err := Config(opts, scopes)
	if err != nil {
		return nil, err
	}

	tok, err := tokenFromFile(opts.TokenFile)
	if err != nil {
		opts.Logger.Info().Str("token_file", opts.TokenFile).Msg("no stored token, starting browser authorization")
		tok, err = tokenFromWeb(ctx, cfg, opts)
		if err != nil {
			return nil, errors.Wrap(err, "get token from web")
		}
		if err := saveToken(opts.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	ts := &persistingSource{
		base:   cfg.TokenSource(ctx, tok),
		path:   opts.TokenFile,
		last:   tok,
		logger: opts.Logger,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, ts)), nil
}

// Login discards any stored token and runs the browser flow again.
func Login(ctx context.Context, opts Options) error {
	if err := os.Remove(opts.TokenFile); err != nil && !os.IsNotExist(err) {
		return errors.Wrapf(err, "remove token file %s", opts.TokenFile)
	}
	_, err := Client(ctx, opts, Scopes)
	return err
}

// CalendarService returns an authenticated Calendar API service.
func CalendarService(ctx context.Context, opts Options) (*calendar.Service, error) {
	client, err := Client(ctx, opts, Scopes)
	if err != nil {
		return nil, err
	}
	srv, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, errors.Wrap(err, "create calendar service")
	}
	return srv, nil
}

// persistingSource saves the token whenever the underlying source refreshes it.
type persistingSource struct {
	base   oauth2.TokenSource
	path   string
	logger zerolog.Logger

	mu   sync.Mutex
	last *oauth2.Token
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || tok.AccessToken != s.last.AccessToken || tok.RefreshToken != s.last.RefreshToken {
		if err := saveToken(s.path, tok); err != nil {
			s.logger.Warn().Err(err).Msg("could not save refreshed token")
		}
		s.last = tok
	}
	return tok, nil
}

// tokenFromWeb serves one redirect on the local port and exchanges its code.
func tokenFromWeb(ctx context.Context, cfg *oauth2.Config, opts Options) (*oauth2.Token, error) {
	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)

	listener, err := net.Listen("tcp", net.JoinHostPort("localhost", opts.port()))
	if err != nil {
		return nil, errors.Wrapf(err, "listen on port %s", opts.port())
	}
	defer listener.Close()

	server := &http.Server{
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			code := r.URL.Query().Get("code")
			if code == "" {
				http.Error(w, "authorization code not found", http.StatusBadRequest)
				select {
				case errCh <- errors.New("authorization code not found in redirect"):
				default:
				}
				return
			}
			fmt.Fprintln(w, "Authentication successful. You can close this window.")
			select {
			case codeCh <- code:
			default:
			}
		}),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  15 * time.Second,
	}
	go func() {
		if err := server.Serve(listener); err != nil && err != http.ErrServerClosed {
			select {
			case errCh <- err:
			default:
			}
		}
	}()
	defer server.Shutdown(context.Background())

	authURL := cfg.AuthCodeURL("state-token", oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintf(os.Stderr, "Open this URL in your browser to authorize taskplan:\n%s\n", authURL)

	select {
	case code := <-codeCh:
		exchangeCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		tok, err := cfg.Exchange(exchangeCtx, code)
		if err != nil {
			return nil, errors.Wrap(err, "exchange authorization code")
		}
		return tok, nil
	case err := <-errCh:
		return nil, err
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(5 * time.Minute):
		return nil, errors.New("authorization timed out")
	}
}

func tokenFromFile(path string) (*oauth2.Token, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	if err := json.NewDecoder(f).Decode(tok); err != nil {
		return nil, errors.Wrapf(err, "decode token file %s", path)
	}
	return tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return errors.Wrap(err, "create token directory")
	}
	f, err := os.OpenFile(path, os.O_RDWR|os.O_CREATE|os.O_TRUNC, 0o600)
	if err != nil {
		return errors.Wrapf(err, "open token file %s", path)
	}
	defer f.Close()
	return json.NewEncoder(f).Encode(tok)
}
