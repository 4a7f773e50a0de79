// Package views renders forum pages as templ components.
package views

import "net/url"

// Context is the per-request data every page receives.
type Context struct {
	Username string
}

func (c Context) LoggedIn() bool {
	return c.Username != ""
}

func ForumURL(forumId string) string {
	return "/forum/" + url.PathEscape(forumId)
}

func MessageURL(forumId, messageId string) string {
	return ForumURL(forumId) + "/" + url.PathEscape(messageId)
}
