package forum

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dominicf2001/comfyforum/internal/database"
)

type Threads struct {
	store database.Store
	now   func() time.Time
}

func NewThreads(store database.Store) *Threads {
	return &Threads{store: store, now: time.Now}
}

func (t *Threads) ListForums(ctx context.Context) ([]database.Forum, error) {
	rows, err := t.store.Query(ctx, database.DesignForum, database.ViewForums, database.ViewQuery{})
	if err != nil {
		return nil, err
	}
	return database.Decode[database.Forum](rows)
}

func (t *Threads) GetForum(ctx context.Context, id string) (database.Forum, error) {
	var forum database.Forum
	if err := t.store.Get(ctx, id, &forum); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Forum{}, ErrUnknownForum
		}
		return database.Forum{}, err
	}
	if forum.Type != database.TypeForum {
		return database.Forum{}, ErrUnknownForum
	}
	return forum, nil
}

// CreateForum seeds a forum. Forums are otherwise read-only.
func (t *Threads) CreateForum(ctx context.Context, id, name string) (database.Forum, error) {
	forum := database.Forum{Id: id, Type: database.TypeForum, Name: name}
	_, rev, err := t.store.Create(ctx, forum)
	if err != nil {
		return database.Forum{}, fmt.Errorf("create forum: %w", err)
	}
	forum.Rev = rev
	return forum, nil
}

func (t *Threads) GetMessage(ctx context.Context, id string) (database.Message, error) {
	var msg database.Message
	if err := t.store.Get(ctx, id, &msg); err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return database.Message{}, ErrUnknownMessage
		}
		return database.Message{}, err
	}
	if msg.Type != database.TypeMessage {
		return database.Message{}, ErrUnknownMessage
	}
	return msg, nil
}

// ListTopLevelPosts returns the forum's posts, newest first.
func (t *Threads) ListTopLevelPosts(ctx context.Context, forumId string) ([]database.Message, error) {
	rows, err := t.store.Query(ctx, database.DesignForum, database.ViewForumPosts, database.ViewQuery{
		Keys:       []string{forumId},
		Descending: true,
	})
	if err != nil {
		return nil, err
	}
	return database.Decode[database.Message](rows)
}

// ListReplies returns the direct replies to a message, oldest first.
func (t *Threads) ListReplies(ctx context.Context, messageId string) ([]database.Message, error) {
	rows, err := t.store.Query(ctx, database.DesignForum, database.ViewForumReplies, database.ViewQuery{
		Keys: []string{messageId},
	})
	if err != nil {
		return nil, err
	}
	return database.Decode[database.Message](rows)
}

func (t *Threads) CreatePost(ctx context.Context, forumId, title, body, author string) (database.Message, error) {
	return t.create(ctx, forumId, "", title, body, author)
}

func (t *Threads) CreateReply(ctx context.Context, forumId, parentId, title, body, author string) (database.Message, error) {
	return t.create(ctx, forumId, parentId, title, body, author)
}

func (t *Threads) create(ctx context.Context, forumId, parentId, title, body, author string) (database.Message, error) {
	msg := database.Message{
		Type:   database.TypeMessage,
		Title:  title,
		Body:   body,
		User:   author,
		Forum:  forumId,
		Parent: parentId,
		Date:   t.now().UTC().Format(database.DateLayout),
	}

	id, rev, err := t.store.Create(ctx, msg)
	if err != nil {
		return database.Message{}, fmt.Errorf("create message: %w", err)
	}
	msg.Id = id
	msg.Rev = rev

	return msg, nil
}
