package thread

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/cache"
	"github.com/SARVESHVARADKAR123/dmsync/internal/devserver/devtest"
	"github.com/SARVESHVARADKAR123/dmsync/internal/domain"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openView(t *testing.T, env *devtest.Env, userID string, opts Options) *View {
	t.Helper()
	opts.UserID = userID
	if opts.PollInterval == 0 {
		opts.PollInterval = 10 * time.Millisecond
	}
	v, err := Open(devtest.Context(t), env.Client(t, userID), env.ConvID, opts)
	require.NoError(t, err)
	t.Cleanup(v.Close)
	return v
}

func TestConversationBetweenTwoViews(t *testing.T) {
	env := devtest.Start(t)
	env.Seed(t, 3)

	alice := openView(t, env, devtest.Alice, Options{})
	bob := openView(t, env, devtest.Bob, Options{})

	assert.Equal(t, "Bob", alice.Conversation.OtherUser.Name)
	assert.Equal(t, 3, alice.Store.Len())

	p, err := alice.Sender.SendText(context.Background(), "Hello")
	require.NoError(t, err)
	require.NoError(t, p.Wait(devtest.Context(t)))

	require.Eventually(t, func() bool { return bob.Store.Len() == 4 }, 2*time.Second, 5*time.Millisecond)
	last := bob.Store.Messages()[3]
	assert.Equal(t, domain.TextPayload{Body: "Hello"}, last.Payload)
	assert.Equal(t, devtest.Alice, last.SenderID)

	// Bob's poll merge triggers a read receipt.
	require.Eventually(t, func() bool {
		return env.State.ReadMark(env.ConvID, devtest.Bob) == last.ID
	}, 2*time.Second, 5*time.Millisecond)

	// Alice's own poll must not duplicate her confirmed message.
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, 4, alice.Store.Len())
}

func TestOpenUnknownConversation(t *testing.T) {
	env := devtest.Start(t)

	_, err := Open(devtest.Context(t), env.Client(t, devtest.Alice), "missing", Options{UserID: devtest.Alice})
	assert.Error(t, err)
}

func TestConversationCached(t *testing.T) {
	env := devtest.Start(t)
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	cc := &cache.ConversationCache{R: rdb, TTL: time.Minute}

	v := openView(t, env, devtest.Alice, Options{Cache: cc})
	v.Close()

	cached, err := cc.Get(context.Background(), env.ConvID)
	require.NoError(t, err)
	assert.Equal(t, v.Conversation, *cached)

	// A cache hit needs no conversation endpoint.
	require.NoError(t, cc.Set(context.Background(), &domain.Conversation{ID: env.ConvID, OtherUser: domain.User{ID: "x", Name: "Cached"}}))
	v2 := openView(t, env, devtest.Alice, Options{Cache: cc})
	assert.Equal(t, "Cached", v2.Conversation.OtherUser.Name)
}

type failingCache struct{}

func (failingCache) Get(context.Context, string) (*domain.Conversation, error) {
	return nil, errors.New("redis down")
}

func (failingCache) Set(context.Context, *domain.Conversation) error {
	return errors.New("redis down")
}

func TestCacheFailureFallsBackToAPI(t *testing.T) {
	env := devtest.Start(t)
	v := openView(t, env, devtest.Alice, Options{Cache: failingCache{}})
	assert.Equal(t, devtest.Bob, v.Conversation.OtherUser.ID)
}

func TestCloseIsIdempotent(t *testing.T) {
	env := devtest.Start(t)
	v := openView(t, env, devtest.Alice, Options{})
	v.Close()
	v.Close()
}
