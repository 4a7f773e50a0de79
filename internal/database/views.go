package database

// MapFunc inspects a decoded document and emits at most one index row.
type MapFunc func(doc map[string]any) (key string, sort string, ok bool)

type View struct {
	Name string
	Map  MapFunc
}

type Design struct {
	Name  string
	Views []View
}

const (
	DesignForum      = "forum"
	ViewForums       = "forums"
	ViewForumPosts   = "forum_posts"
	ViewForumReplies = "forum_replies"
)

// ForumDesign indexes forums, top-level posts by forum and replies by parent.
var ForumDesign = Design{
	Name: DesignForum,
	Views: []View{
		{
			Name: ViewForums,
			Map: func(doc map[string]any) (string, string, bool) {
				if str(doc, "type") != TypeForum {
					return "", "", false
				}
				return "", str(doc, "_id"), true
			},
		},
		{
			Name: ViewForumPosts,
			Map: func(doc map[string]any) (string, string, bool) {
				if str(doc, "type") != TypeMessage || str(doc, "parent") != "" {
					return "", "", false
				}
				return str(doc, "forum"), str(doc, "date"), true
			},
		},
		{
			Name: ViewForumReplies,
			Map: func(doc map[string]any) (string, string, bool) {
				if str(doc, "type") != TypeMessage || str(doc, "parent") == "" {
					return "", "", false
				}
				return str(doc, "parent"), str(doc, "date"), true
			},
		},
	},
}

func str(doc map[string]any, field string) string {
	s, _ := doc[field].(string)
	return s
}
