package history

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/SARVESHVARADKAR123/dmsync/internal/api"
	"github.com/SARVESHVARADKAR123/dmsync/internal/devserver/devtest"
	"github.com/SARVESHVARADKAR123/dmsync/internal/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// gatedLister blocks every call until release is closed.
type gatedLister struct {
	calls   atomic.Int32
	started chan struct{}
	release chan struct{}
	page    *api.MessagePage
	err     error
}

func (g *gatedLister) ListMessages(ctx context.Context, _ string, _ api.ListParams) (*api.MessagePage, error) {
	g.calls.Add(1)
	g.started <- struct{}{}
	<-g.release
	return g.page, g.err
}

func TestWalkBackToTheBeginning(t *testing.T) {
	env := devtest.Start(t)
	seeded := env.Seed(t, 7)
	st := store.New(env.ConvID)
	p := New(st, env.Client(t, devtest.Alice), WithPageSize(3))
	ctx := devtest.Context(t)

	made, err := p.LoadInitial(ctx)
	require.NoError(t, err)
	assert.True(t, made)
	assert.Equal(t, 3, st.Len())
	assert.Equal(t, seeded[4].ID, st.Messages()[0].ID)
	assert.True(t, p.HasMore())

	_, err = p.LoadOlder(ctx)
	require.NoError(t, err)
	_, err = p.LoadOlder(ctx)
	require.NoError(t, err)
	assert.Equal(t, 7, st.Len())
	assert.False(t, p.HasMore())

	made, err = p.LoadOlder(ctx)
	require.NoError(t, err)
	assert.False(t, made, "exhausted history makes no request")

	msgs := st.Messages()
	for i := range seeded {
		assert.Equal(t, seeded[i].ID, msgs[i].ID)
	}
}

func TestConcurrentLoadOlderMakesOneRequest(t *testing.T) {
	g := &gatedLister{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
		page:    &api.MessagePage{HasMore: true},
	}
	p := New(store.New("conv-1"), g)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		_, _ = p.LoadOlder(context.Background())
	}()

	select {
	case <-g.started:
	case <-time.After(time.Second):
		t.Fatal("first load never started")
	}
	assert.True(t, p.Loading())

	made, err := p.LoadOlder(context.Background())
	require.NoError(t, err)
	assert.False(t, made, "second call while in flight is dropped")

	close(g.release)
	wg.Wait()
	assert.Equal(t, int32(1), g.calls.Load())
}

func TestFailureLeavesStateRetryable(t *testing.T) {
	g := &gatedLister{
		started: make(chan struct{}, 4),
		release: make(chan struct{}),
		err:     errors.New("offline"),
	}
	close(g.release)
	st := store.New("conv-1")
	p := New(st, g)

	made, err := p.LoadInitial(context.Background())
	assert.True(t, made)
	require.Error(t, err)
	assert.Equal(t, 0, st.Len())
	assert.Equal(t, "", p.Cursor())
	assert.True(t, p.HasMore())
	assert.False(t, p.Loading())
}

func TestEmptyConversation(t *testing.T) {
	env := devtest.Start(t)
	p := New(store.New(env.ConvID), env.Client(t, devtest.Bob))

	_, err := p.LoadInitial(devtest.Context(t))
	require.NoError(t, err)
	assert.False(t, p.HasMore())
}
