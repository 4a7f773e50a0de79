package forum

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dominicf2001/comfyforum/internal/auth"
	"github.com/dominicf2001/comfyforum/internal/database"
)

func newStore(t *testing.T) database.Store {
	t.Helper()
	store, err := database.OpenSQLite(filepath.Join(t.TempDir(), "forum.db"), database.ForumDesign)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func newBadgerStore(t *testing.T) database.Store {
	t.Helper()
	store, err := database.OpenBadger("", database.ForumDesign)
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

// clock returns successive times one minute apart starting at start.
func clock(start time.Time) func() time.Time {
	next := start
	return func() time.Time {
		now := next
		next = next.Add(time.Minute)
		return now
	}
}

func TestUsers_CreateAndAuthenticate(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(newStore(t))

	user, err := users.Create(ctx, "alice", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, "alice", user.Username)
	assert.Equal(t, database.TypeUser, user.Type)
	assert.Len(t, user.Salt, auth.SaltLength*2)
	assert.Len(t, user.Password, auth.HashLength*2)
	assert.Equal(t, auth.DeriveHash("correcthorse", user.Salt), user.Password)

	exists, err := users.Exists(ctx, "alice")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := users.Authenticate(ctx, "alice", "correcthorse")
	require.NoError(t, err)
	assert.Equal(t, "alice", got.Username)

	_, err = users.Authenticate(ctx, "alice", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = users.Authenticate(ctx, "bob", "correcthorse")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsers_DuplicateDoesNotOverwrite(t *testing.T) {
	ctx := context.Background()
	users := NewUsers(newStore(t))

	original, err := users.Create(ctx, "alice", "correcthorse")
	require.NoError(t, err)

	_, err = users.Create(ctx, "alice", "other")
	assert.ErrorIs(t, err, ErrDuplicateUser)

	stored, err := users.Get(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, original.Salt, stored.Salt)
	assert.Equal(t, original.Password, stored.Password)
}

func TestUsers_ExistsMissing(t *testing.T) {
	exists, err := NewUsers(newStore(t)).Exists(context.Background(), "nobody")
	require.NoError(t, err)
	assert.False(t, exists)
}

func TestUsers_GetIgnoresOtherDocumentTypes(t *testing.T) {
	ctx := context.Background()
	store := newStore(t)
	_, err := NewThreads(store).CreateForum(ctx, "general", "General")
	require.NoError(t, err)

	_, err = NewUsers(store).Get(ctx, "general")
	assert.ErrorIs(t, err, ErrUserNotFound)
}

func TestUsers_ConcurrentCreateHasOneWinner(t *testing.T) {
	stores := []struct {
		name string
		open func(t *testing.T) database.Store
	}{
		{"sqlite", newStore},
		{"badger", newBadgerStore},
	}

	for _, tc := range stores {
		t.Run(tc.name, func(t *testing.T) {
			users := NewUsers(tc.open(t))

			const attempts = 12
			errs := make([]error, attempts)
			var wg sync.WaitGroup
			for i := 0; i < attempts; i++ {
				i := i
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[i] = users.Create(context.Background(), "alice", "pw")
				}()
			}
			wg.Wait()

			var created, duplicates int
			for _, err := range errs {
				switch {
				case err == nil:
					created++
				case assert.ErrorIs(t, err, ErrDuplicateUser):
					duplicates++
				}
			}
			assert.Equal(t, 1, created)
			assert.Equal(t, attempts-1, duplicates)
		})
	}
}

func TestThreads_Forums(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(newStore(t))

	_, err := threads.CreateForum(ctx, "general", "General")
	require.NoError(t, err)
	_, err = threads.CreateForum(ctx, "announcements", "Announcements")
	require.NoError(t, err)

	forums, err := threads.ListForums(ctx)
	require.NoError(t, err)
	require.Len(t, forums, 2)
	assert.Equal(t, "announcements", forums[0].Id)
	assert.Equal(t, "General", forums[1].Name)

	forum, err := threads.GetForum(ctx, "general")
	require.NoError(t, err)
	assert.Equal(t, "General", forum.Name)

	_, err = threads.GetForum(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownForum)
}

func TestThreads_CreatePost(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(newStore(t))
	threads.now = func() time.Time {
		return time.Date(2024, 3, 5, 14, 30, 0, 0, time.FixedZone("EST", -5*3600))
	}

	post, err := threads.CreatePost(ctx, "f1", "Hi", "hello", "alice")
	require.NoError(t, err)
	assert.NotEmpty(t, post.Id)
	assert.Equal(t, "", post.Parent)
	assert.True(t, post.IsTopLevel())
	assert.Equal(t, database.TypeMessage, post.Type)
	assert.Equal(t, "2024-03-05T19:30:00+0000", post.Date)

	got, err := threads.GetMessage(ctx, post.Id)
	require.NoError(t, err)
	assert.Equal(t, post, got)

	_, err = threads.GetMessage(ctx, "missing")
	assert.ErrorIs(t, err, ErrUnknownMessage)
}

func TestThreads_ReplyResolvesToThreadRoot(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(newStore(t))

	post, err := threads.CreatePost(ctx, "f1", "Hi", "hello", "alice")
	require.NoError(t, err)

	reply, err := threads.CreateReply(ctx, "f1", post.Id, "Reply", "hey", "bob")
	require.NoError(t, err)
	assert.Equal(t, post.Id, reply.Parent)
	assert.NotEqual(t, post.Id, reply.Id)
	assert.Equal(t, post.Id, reply.ThreadId())
	assert.Equal(t, post.Id, post.ThreadId())
}

func TestThreads_ListTopLevelPostsNewestFirst(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(newStore(t))
	threads.now = clock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	t1, err := threads.CreatePost(ctx, "f1", "one", "1", "alice")
	require.NoError(t, err)
	t2, err := threads.CreatePost(ctx, "f1", "two", "2", "alice")
	require.NoError(t, err)
	_, err = threads.CreateReply(ctx, "f1", t1.Id, "re", "r", "bob")
	require.NoError(t, err)
	t3, err := threads.CreatePost(ctx, "f1", "three", "3", "alice")
	require.NoError(t, err)
	_, err = threads.CreatePost(ctx, "f2", "elsewhere", "x", "alice")
	require.NoError(t, err)

	posts, err := threads.ListTopLevelPosts(ctx, "f1")
	require.NoError(t, err)

	ids := make([]string, 0, len(posts))
	for _, p := range posts {
		assert.True(t, p.IsTopLevel())
		ids = append(ids, p.Id)
	}
	assert.Equal(t, []string{t3.Id, t2.Id, t1.Id}, ids)
}

func TestThreads_ListRepliesOldestFirst(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(newStore(t))
	threads.now = clock(time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC))

	root, err := threads.CreatePost(ctx, "f1", "root", "r", "alice")
	require.NoError(t, err)
	r1, err := threads.CreateReply(ctx, "f1", root.Id, "re", "1", "bob")
	require.NoError(t, err)
	r2, err := threads.CreateReply(ctx, "f1", root.Id, "re", "2", "carol")
	require.NoError(t, err)
	_, err = threads.CreateReply(ctx, "f1", r1.Id, "re", "nested", "dave")
	require.NoError(t, err)

	replies, err := threads.ListReplies(ctx, root.Id)
	require.NoError(t, err)
	require.Len(t, replies, 2)
	assert.Equal(t, r1.Id, replies[0].Id)
	assert.Equal(t, r2.Id, replies[1].Id)

	empty, err := threads.ListReplies(ctx, r2.Id)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestThreads_SameSecondKeepsCreationOrder(t *testing.T) {
	ctx := context.Background()
	threads := NewThreads(newStore(t))
	fixed := time.Date(2024, 1, 1, 9, 0, 0, 0, time.UTC)
	threads.now = func() time.Time { return fixed }

	a, err := threads.CreatePost(ctx, "f1", "a", "a", "alice")
	require.NoError(t, err)
	b, err := threads.CreatePost(ctx, "f1", "b", "b", "alice")
	require.NoError(t, err)

	posts, err := threads.ListTopLevelPosts(ctx, "f1")
	require.NoError(t, err)
	require.Len(t, posts, 2)
	assert.Equal(t, b.Id, posts[0].Id)
	assert.Equal(t, a.Id, posts[1].Id)
}
