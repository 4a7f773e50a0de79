// Package web serves the forum over HTTP.
package web

import (
	"errors"
	"net/http"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dominicf2001/comfyforum/internal/auth"
	"github.com/dominicf2001/comfyforum/internal/database"
	"github.com/dominicf2001/comfyforum/internal/forum"
	"github.com/dominicf2001/comfyforum/internal/logging"
	"github.com/dominicf2001/comfyforum/internal/metrics"
	"github.com/dominicf2001/comfyforum/internal/util"
	"github.com/dominicf2001/comfyforum/web/views"
)

type Server struct {
	Users     *forum.Users
	Threads   *forum.Threads
	Sessions  *auth.Sessions
	Metrics   *metrics.Metrics
	StaticDir string
	Dev       bool
}

func NewServer(store database.Store, sessions *auth.Sessions, m *metrics.Metrics) *Server {
	return &Server{
		Users:     forum.NewUsers(store),
		Threads:   forum.NewThreads(store),
		Sessions:  sessions,
		Metrics:   m,
		StaticDir: "web/static",
	}
}

func (s *Server) disableCacheInDevMode(next http.Handler) http.Handler {
	if !s.Dev {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Cache-Control", "no-store")
		next.ServeHTTP(w, r)
	})
}

func (s *Server) Router() http.Handler {
	// -----------------
	// SETUP
	// -----------------

	r := chi.NewRouter()

	r.Use(logging.Middleware)
	r.Use(middleware.Recoverer)

	r.Handle("/static/*",
		s.disableCacheInDevMode(
			http.StripPrefix("/static",
				http.FileServer(http.Dir(s.StaticDir)))))

	r.Handle("/metrics", s.Metrics.Handler())

	// -----------------

	r.Group(func(r chi.Router) {
		r.Use(s.Sessions.Middleware)

		// -----------------
		// FORUM ROUTES
		// -----------------

		r.Get("/", s.home)
		r.Get("/forum/{forumId}", s.forumPage)
		r.Get("/forum/{forumId}/{messageId}", s.messagePage)
		r.Post("/forum/{forumId}", s.submitMessage)
		r.Post("/forum/{forumId}/{messageId}", s.submitMessage)

		// -----------------
		// USER ROUTES
		// -----------------

		r.Get("/users/login", s.loginPage)
		r.Post("/users/login", s.login)
		r.Get("/users/create", s.signupPage)
		r.Post("/users/create", s.signup)
		r.Post("/users/logout", s.logout)
	})

	return r
}

func (s *Server) render(w http.ResponseWriter, r *http.Request, c templ.Component) {
	if err := c.Render(r.Context(), w); err != nil {
		logging.FromRequest(r).Error().Err(err).Msg("render")
	}
}

// fail writes the HTTP response for err. Store failures answer 500 with the
// store's own message.
func fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.Is(err, util.ErrMissingFields):
		status, msg = http.StatusBadRequest, "Missing required fields"
	case errors.Is(err, util.ErrInvalidField):
		status = http.StatusBadRequest
	case errors.Is(err, forum.ErrUnknownForum), errors.Is(err, forum.ErrUnknownMessage):
		status = http.StatusNotFound
	case errors.Is(err, forum.ErrUserNotFound):
		status, msg = http.StatusBadRequest, "Unable to load user."
	case errors.Is(err, forum.ErrDuplicateUser):
		status, msg = http.StatusBadRequest, "User already exists"
	case errors.Is(err, forum.ErrInvalidCredentials):
		status, msg = http.StatusForbidden, "Incorrect username or password"
	default:
		logging.FromRequest(r).Error().Err(err).Str("op", op).Msg("store failure")
	}

	http.Error(w, msg, status)
}

// -----------------
// FORUMS
// -----------------

func (s *Server) home(w http.ResponseWriter, r *http.Request) {
	forums, err := s.Threads.ListForums(r.Context())
	if err != nil {
		fail(w, r, "ListForums", err)
		return
	}

	s.render(w, r, views.Home(BuildContext(r), forums))
}

func (s *Server) forumPage(w http.ResponseWriter, r *http.Request) {
	forumId := chi.URLParam(r, "forumId")

	f, err := s.Threads.GetForum(r.Context(), forumId)
	if err != nil {
		fail(w, r, "GetForum", err)
		return
	}

	posts, err := s.Threads.ListTopLevelPosts(r.Context(), forumId)
	if err != nil {
		fail(w, r, "ListTopLevelPosts", err)
		return
	}

	s.render(w, r, views.Forum(BuildContext(r), f, posts))
}

func (s *Server) messagePage(w http.ResponseWriter, r *http.Request) {
	forumId := chi.URLParam(r, "forumId")
	messageId := chi.URLParam(r, "messageId")

	f, err := s.Threads.GetForum(r.Context(), forumId)
	if err != nil {
		fail(w, r, "GetForum", err)
		return
	}

	message, err := s.Threads.GetMessage(r.Context(), messageId)
	if err == nil && message.Forum != forumId {
		err = forum.ErrUnknownMessage
	}
	if err != nil {
		fail(w, r, "GetMessage", err)
		return
	}

	replies, err := s.Threads.ListReplies(r.Context(), messageId)
	if err != nil {
		fail(w, r, "ListReplies", err)
		return
	}

	s.render(w, r, views.Message(BuildContext(r), f, message, replies))
}

// submitMessage creates a post, or a reply when the URL names a message, and
// redirects to the thread the new message is shown in.
func (s *Server) submitMessage(w http.ResponseWriter, r *http.Request) {
	forumId := chi.URLParam(r, "forumId")
	parentId := chi.URLParam(r, "messageId")

	username, ok := auth.CurrentUser(auth.FromContext(r.Context()))
	if !ok {
		http.Error(w, "You are not logged in", http.StatusForbidden)
		return
	}

	form, err := util.ParseMessageForm(r)
	if err != nil {
		if errors.Is(err, util.ErrMissingFields) {
			http.Error(w, "Missing required fields for post submission", http.StatusBadRequest)
			return
		}
		fail(w, r, "ParseMessageForm", err)
		return
	}

	if _, err := s.Threads.GetForum(r.Context(), forumId); err != nil {
		fail(w, r, "GetForum", err)
		return
	}

	var message database.Message
	if parentId == "" {
		message, err = s.Threads.CreatePost(r.Context(), forumId, form.Title, form.Body, username)
	} else {
		parent, perr := s.Threads.GetMessage(r.Context(), parentId)
		if perr == nil && parent.Forum != forumId {
			perr = forum.ErrUnknownMessage
		}
		if perr != nil {
			fail(w, r, "GetMessage", perr)
			return
		}
		message, err = s.Threads.CreateReply(r.Context(), forumId, parentId, form.Title, form.Body, username)
	}
	if err != nil {
		fail(w, r, "CreateMessage", err)
		return
	}

	kind := metrics.KindPost
	if !message.IsTopLevel() {
		kind = metrics.KindReply
	}
	s.Metrics.Messages.WithLabelValues(kind).Inc()

	http.Redirect(w, r, views.MessageURL(forumId, message.ThreadId()), http.StatusSeeOther)
}

// -----------------
// USERS
// -----------------

func (s *Server) loginPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, views.Login(BuildContext(r)))
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	form, err := util.ParseLoginForm(r)
	if err != nil {
		fail(w, r, "ParseLoginForm", err)
		return
	}

	user, err := s.Users.Authenticate(r.Context(), form.Username, form.Password)
	if err != nil {
		if errors.Is(err, forum.ErrInvalidCredentials) || errors.Is(err, forum.ErrUserNotFound) {
			s.Metrics.Logins.WithLabelValues(metrics.LoginFailure).Inc()
		}
		fail(w, r, "Authenticate", err)
		return
	}

	if err := s.Sessions.Login(w, r, user.Username); err != nil {
		fail(w, r, "Login", err)
		return
	}
	s.Metrics.Logins.WithLabelValues(metrics.LoginSuccess).Inc()

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) signupPage(w http.ResponseWriter, r *http.Request) {
	s.render(w, r, views.Signup(BuildContext(r)))
}

func (s *Server) signup(w http.ResponseWriter, r *http.Request) {
	form, err := util.ParseLoginForm(r)
	if err != nil {
		fail(w, r, "ParseLoginForm", err)
		return
	}

	user, err := s.Users.Create(r.Context(), form.Username, form.Password)
	if err != nil {
		fail(w, r, "CreateUser", err)
		return
	}
	s.Metrics.Signups.Inc()

	if err := s.Sessions.Login(w, r, user.Username); err != nil {
		fail(w, r, "Login", err)
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	if err := s.Sessions.Logout(w, r); err != nil {
		logging.FromRequest(r).Warn().Err(err).Msg("logout")
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}
