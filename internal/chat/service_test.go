package chat

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(now func() time.Time) (*Service, *MemoryStore) {
	store := NewMemoryStore()
	svc := NewService(store, NewResolver(DefaultRules()))
	if now != nil {
		svc.now = now
	}
	return svc, store
}

func texts(msgs []Message) []string {
	out := make([]string, len(msgs))
	for i, m := range msgs {
		out[i] = m.Text
	}
	return out
}

func TestTranscript_OrderAndSessionFilter(t *testing.T) {
	base := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	tick := 0
	svc, _ := newTestService(func() time.Time {
		tick++
		return base.Add(time.Duration(tick) * time.Second)
	})
	ctx := context.Background()

	_, err := svc.Append(ctx, "u1", RoleUser, "hi", "s1")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "u1", RoleBot, "hello", "s1")
	require.NoError(t, err)
	_, err = svc.Append(ctx, "u1", RoleUser, "bye", "s2")
	require.NoError(t, err)

	s1, err := svc.History(ctx, "u1", "s1")
	require.NoError(t, err)
	assert.Equal(t, []string{"hi", "hello"}, texts(s1))
	assert.Equal(t, RoleUser, s1[0].Role)
	assert.Equal(t, RoleBot, s1[1].Role)

	s2, err := svc.History(ctx, "u1", "s2")
	require.NoError(t, err)
	assert.Equal(t, []string{"bye"}, texts(s2))
}

func TestTranscript_IsolatedPerUser(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	_, err := svc.Append(ctx, "owner", RoleUser, "secret", "s1")
	require.NoError(t, err)

	got, err := svc.History(ctx, "intruder", "s1")
	require.NoError(t, err)
	assert.NotNil(t, got)
	assert.Empty(t, got)
}

func TestTranscript_SameTimestampKeepsAppendOrder(t *testing.T) {
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	svc, _ := newTestService(func() time.Time { return fixed })
	ctx := context.Background()

	for _, txt := range []string{"a", "b", "c", "d"} {
		_, err := svc.Append(ctx, "u1", RoleUser, txt, "s")
		require.NoError(t, err)
	}
	got, err := svc.History(ctx, "u1", "s")
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b", "c", "d"}, texts(got))
}

func TestTranscript_AcceptsEmptyTextAndSession(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	m, err := svc.Append(ctx, "u1", RoleUser, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, m.ID)

	got, err := svc.History(ctx, "u1", "")
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "", got[0].Text)
}

func TestSend_AppendsUserThenBot(t *testing.T) {
	svc, _ := newTestService(nil)
	ctx := context.Background()

	reply, err := svc.Send(ctx, "u1", "What's the P0 status?", "default")
	require.NoError(t, err)
	assert.Equal(t, RoleBot, reply.Role)
	assert.Equal(t, DefaultRules().Rules[0].Reply, reply.Text)

	got, err := svc.History(ctx, "u1", "default")
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, RoleUser, got[0].Role)
	assert.Equal(t, "What's the P0 status?", got[0].Text)
	assert.Equal(t, RoleBot, got[1].Role)
}

type failingStore struct{ err error }

func (f failingStore) Append(context.Context, *Message) error { return f.err }
func (f failingStore) ListBySession(context.Context, string, string) ([]Message, error) {
	return nil, f.err
}

func TestSend_StoreFailure(t *testing.T) {
	boom := errors.New("store down")
	svc := NewService(failingStore{err: boom}, NewResolver(DefaultRules()))

	_, err := svc.Send(context.Background(), "u1", "hi", "s")
	assert.ErrorIs(t, err, boom)
}
