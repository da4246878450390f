// Package devtest runs the development server inside tests.
package devtest

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/config"
	"github.com/SARVESHVARADKAR123/dmsync/internal/devserver"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/SARVESHVARADKAR123/dmsync/internal/upload"
)

const (
	Alice = "user-alice"
	Bob   = "user-bob"
)

type Env struct {
	Server *httptest.Server
	State  *devserver.State
	ConvID string

	issuer *devserver.TokenIssuer
}

// Start runs a server with two users and one conversation between them.
func Start(t testing.TB) *Env {
	t.Helper()

	cfg := &config.Config{
		ServiceName:       "devserver-test",
		JWTSecret:         "test-secret",
		JWTIssuer:         "dmsync-auth",
		JWTAudience:       "dmsync-clients",
		RateLimitRequests: 100000,
		RateLimitWindow:   "1m",
	}

	state := devserver.NewState(upload.MaxFileSize, nil)
	state.AddUser(domain.User{ID: Alice, Name: "Alice"})
	state.AddUser(domain.User{ID: Bob, Name: "Bob"})
	convID, err := state.OpenConversation(Alice, Bob)
	if err != nil {
		t.Fatalf("open conversation: %v", err)
	}

	issuer := &devserver.TokenIssuer{Secret: cfg.JWTSecret, Issuer: cfg.JWTIssuer, Audience: cfg.JWTAudience}
	h := devserver.NewHandler(state, "", upload.MaxFileSize, issuer)
	srv := httptest.NewServer(devserver.NewRouter(h, cfg))
	t.Cleanup(srv.Close)

	return &Env{Server: srv, State: state, ConvID: convID, issuer: issuer}
}

func (e *Env) Token(t testing.TB, userID string) string {
	t.Helper()
	tok, err := e.issuer.Issue(userID)
	if err != nil {
		t.Fatalf("issue token: %v", err)
	}
	return tok
}

// Client returns an API client authenticated as userID.
func (e *Env) Client(t testing.TB, userID string, opts ...api.Option) *api.Client {
	t.Helper()
	opts = append([]api.Option{api.WithTimeouts(5*time.Second, 5*time.Second)}, opts...)
	c, err := api.New(e.Server.URL, api.StaticToken(e.Token(t, userID)), opts...)
	if err != nil {
		t.Fatalf("api client: %v", err)
	}
	return c
}

// Say posts a text message from userID and returns the stored message.
func (e *Env) Say(t testing.TB, userID, text string) domain.Message {
	t.Helper()
	msg, _, err := e.State.Create(e.ConvID, userID, devserver.CreateInput{Type: domain.KindText, Text: text}, func(string) string { return "" })
	if err != nil {
		t.Fatalf("say: %v", err)
	}
	return msg
}

// Seed writes n text messages from alternating users.
func (e *Env) Seed(t testing.TB, n int) []domain.Message {
	t.Helper()
	out := make([]domain.Message, 0, n)
	for i := 0; i < n; i++ {
		from := Alice
		if i%2 == 1 {
			from = Bob
		}
		out = append(out, e.Say(t, from, "seed message"))
	}
	return out
}

func Context(t testing.TB) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	t.Cleanup(cancel)
	return ctx
}
