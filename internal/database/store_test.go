package database

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openStores(t *testing.T) map[string]Store {
	t.Helper()

	sqlite, err := OpenSQLite(filepath.Join(t.TempDir(), "forum.db"), ForumDesign)
	require.NoError(t, err)
	t.Cleanup(func() { sqlite.Close() })

	bdg, err := OpenBadger("", ForumDesign)
	require.NoError(t, err)
	t.Cleanup(func() { bdg.Close() })

	return map[string]Store{"sqlite": sqlite, "badger": bdg}
}

func message(forum, parent, date string) Message {
	return Message{
		Type:   TypeMessage,
		Title:  "title",
		Body:   "body",
		User:   "alice",
		Forum:  forum,
		Parent: parent,
		Date:   date,
	}
}

func TestStore_CreateAssignsIdAndRev(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			id, rev, err := store.Create(ctx, message("f1", "", "2024-01-01T10:00:00+0000"))
			require.NoError(t, err)
			assert.NotEmpty(t, id)
			assert.Regexp(t, `^1-[0-9a-f]{32}$`, rev)

			var got Message
			require.NoError(t, store.Get(ctx, id, &got))
			assert.Equal(t, id, got.Id)
			assert.Equal(t, rev, got.Rev)
			assert.Equal(t, "f1", got.Forum)
			assert.True(t, got.IsTopLevel())
		})
	}
}

func TestStore_GetMissing(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			var u User
			err := store.Get(context.Background(), "nobody", &u)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestStore_CreateExplicitIdConflicts(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			first := User{Username: "alice", Type: TypeUser, Salt: "aa", Password: "first"}
			id, _, err := store.Create(ctx, first)
			require.NoError(t, err)
			assert.Equal(t, "alice", id)

			second := User{Username: "alice", Type: TypeUser, Salt: "bb", Password: "second"}
			_, _, err = store.Create(ctx, second)
			assert.ErrorIs(t, err, ErrConflict)

			var got User
			require.NoError(t, store.Get(ctx, "alice", &got))
			assert.Equal(t, "first", got.Password)
			assert.Equal(t, "aa", got.Salt)
		})
	}
}

func TestStore_ForumPostsView(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			p1, _, err := store.Create(ctx, message("f1", "", "2024-01-01T10:00:00+0000"))
			require.NoError(t, err)
			p2, _, err := store.Create(ctx, message("f1", "", "2024-01-01T11:00:00+0000"))
			require.NoError(t, err)
			_, _, err = store.Create(ctx, message("f1", p1, "2024-01-01T12:00:00+0000"))
			require.NoError(t, err)
			_, _, err = store.Create(ctx, message("f2", "", "2024-01-01T13:00:00+0000"))
			require.NoError(t, err)

			rows, err := store.Query(ctx, DesignForum, ViewForumPosts, ViewQuery{Keys: []string{"f1"}, Descending: true})
			require.NoError(t, err)

			ids := make([]string, 0, len(rows))
			for _, r := range rows {
				ids = append(ids, r.Id)
				assert.Equal(t, "f1", r.Key)
			}
			assert.Equal(t, []string{p2, p1}, ids)
		})
	}
}

func TestStore_ForumRepliesView(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			root, _, err := store.Create(ctx, message("f1", "", "2024-01-01T10:00:00+0000"))
			require.NoError(t, err)
			late, _, err := store.Create(ctx, message("f1", root, "2024-01-01T12:00:00+0000"))
			require.NoError(t, err)
			early, _, err := store.Create(ctx, message("f1", root, "2024-01-01T11:00:00+0000"))
			require.NoError(t, err)
			_, _, err = store.Create(ctx, message("f1", late, "2024-01-01T13:00:00+0000"))
			require.NoError(t, err)

			rows, err := store.Query(ctx, DesignForum, ViewForumReplies, ViewQuery{Keys: []string{root}})
			require.NoError(t, err)

			replies, err := Decode[Message](rows)
			require.NoError(t, err)
			require.Len(t, replies, 2)
			assert.Equal(t, early, replies[0].Id)
			assert.Equal(t, late, replies[1].Id)
		})
	}
}

func TestStore_ForumsViewListsAll(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			for _, f := range []Forum{
				{Id: "music", Type: TypeForum, Name: "Music"},
				{Id: "general", Type: TypeForum, Name: "General"},
			} {
				_, _, err := store.Create(ctx, f)
				require.NoError(t, err)
			}
			_, _, err := store.Create(ctx, message("general", "", "2024-01-01T10:00:00+0000"))
			require.NoError(t, err)

			rows, err := store.Query(ctx, DesignForum, ViewForums, ViewQuery{})
			require.NoError(t, err)

			forums, err := Decode[Forum](rows)
			require.NoError(t, err)
			require.Len(t, forums, 2)
			assert.Equal(t, "general", forums[0].Id)
			assert.Equal(t, "music", forums[1].Id)
		})
	}
}

func TestStore_UnknownView(t *testing.T) {
	for name, store := range openStores(t) {
		t.Run(name, func(t *testing.T) {
			_, err := store.Query(context.Background(), DesignForum, "nope", ViewQuery{})
			assert.ErrorIs(t, err, ErrUnknownView)
		})
	}
}

func TestMessage_ThreadId(t *testing.T) {
	post := Message{Id: "m1"}
	reply := Message{Id: "m2", Parent: "m1"}

	assert.Equal(t, "m1", post.ThreadId())
	assert.Equal(t, "m1", reply.ThreadId())
}
