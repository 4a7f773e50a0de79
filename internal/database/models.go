package database

import "time"

// DateLayout is the textual format of Message.Date.
const DateLayout = "2006-01-02T15:04:05-0700"

const (
	TypeUser    = "user"
	TypeForum   = "forum"
	TypeMessage = "message"
)

type User struct {
	Username string `json:"_id"`
	Rev      string `json:"_rev,omitempty"`
	Type     string `json:"type"`
	Salt     string `json:"salt"`
	Password string `json:"password"`
}

type Forum struct {
	Id   string `json:"_id"`
	Rev  string `json:"_rev,omitempty"`
	Type string `json:"type"`
	Name string `json:"name"`
}

type Message struct {
	Id     string `json:"_id,omitempty"`
	Rev    string `json:"_rev,omitempty"`
	Type   string `json:"type"`
	Title  string `json:"title"`
	Body   string `json:"body"`
	User   string `json:"user"`
	Forum  string `json:"forum"`
	Parent string `json:"parent"`
	Date   string `json:"date"`
}

func (m Message) IsTopLevel() bool {
	return m.Parent == ""
}

// ThreadId is the id of the page the message is displayed on.
func (m Message) ThreadId() string {
	if m.IsTopLevel() {
		return m.Id
	}
	return m.Parent
}

func (m Message) CreatedAt() (time.Time, error) {
	return time.Parse(DateLayout, m.Date)
}
