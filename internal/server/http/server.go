// Package httpserver exposes the user directory REST API.
package httpserver

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gofrs/uuid/v5"
	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/and161185/user-admin/internal/convert"
	"github.com/and161185/user-admin/internal/errs"
	"github.com/and161185/user-admin/internal/model"
	"github.com/and161185/user-admin/internal/service"
)

// defaultLimit applies when a list request omits limit.
const defaultLimit = 10

// Server wires services into HTTP handlers.
type Server struct {
	auth  service.AuthService
	users service.UserService
	log   *zap.Logger
}

type tokenBody struct {
	Token string `json:"token"`
}

// New builds the routed handler with logging and panic recovery.
func New(auth service.AuthService, users service.UserService, log *zap.Logger) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{auth: auth, users: users, log: log}

	authed := func(h http.HandlerFunc) http.Handler { return AuthMiddleware(auth, log)(h) }
	admin := func(h http.HandlerFunc) http.Handler { return AuthMiddleware(auth, log)(RequireAdmin(h)) }

	r := mux.NewRouter()
	r.Use(RecoverMiddleware(log), LoggingMiddleware(log))
	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusNotFound, errs.CodeNotFound, "no such endpoint")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fail(w, http.StatusMethodNotAllowed, errs.CodeInvalidPayload, "method not allowed")
	})

	r.HandleFunc("/healthz", s.health).Methods(http.MethodGet)
	r.HandleFunc("/auth/login", s.login).Methods(http.MethodPost)
	r.HandleFunc("/auth/register", s.register).Methods(http.MethodPost)
	r.HandleFunc("/auth/logout", s.logout).Methods(http.MethodPost)
	r.HandleFunc("/auth/refresh-token", s.refresh).Methods(http.MethodPost)
	r.HandleFunc("/send-email", s.sendEmail).Methods(http.MethodGet)

	// fixed /user/* paths go before /user/{id}
	r.HandleFunc("/user/active", s.activate).Methods(http.MethodGet)
	r.Handle("/user/myInfo", authed(s.myInfo)).Methods(http.MethodGet)
	r.Handle("/user/pagnition", admin(s.list)).Methods(http.MethodGet)
	r.Handle("/user/create", admin(s.create)).Methods(http.MethodPost)
	r.Handle("/user/update/{id}", admin(s.update)).Methods(http.MethodPut)
	r.Handle("/user/delete/{id}", admin(s.delete)).Methods(http.MethodDelete)
	r.Handle("/user/update-pass/{id}", authed(s.updatePassword)).Methods(http.MethodPut)
	r.Handle("/user/{id}", authed(s.get)).Methods(http.MethodGet)
	return r
}

func (s *Server) health(w http.ResponseWriter, _ *http.Request) {
	ok(w, "ok")
}

// --- Auth ---

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	var cr model.Credentials
	if err := decode(w, r, &cr); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	tok, _, err := s.auth.Login(r.Context(), cr, r.RemoteAddr)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, model.AuthResult{Token: tok.AccessToken, Authenticated: true})
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	var req model.RegisterRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	u, err := s.auth.Register(r.Context(), req)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, convert.ToRecord(u))
}

// tokenFrom reads the token from the body and falls back to the request credential.
func (s *Server) tokenFrom(w http.ResponseWriter, r *http.Request) (string, error) {
	var body tokenBody
	if r.ContentLength != 0 {
		if err := decode(w, r, &body); err != nil {
			return "", err
		}
	}
	if tok := strings.TrimSpace(body.Token); tok != "" {
		return tok, nil
	}
	if tok, found := bearerToken(r); found {
		return tok, nil
	}
	return "", errs.Validation(errors.New("token: cannot be blank"))
}

func (s *Server) logout(w http.ResponseWriter, r *http.Request) {
	tok, err := s.tokenFrom(w, r)
	if err == nil {
		err = s.auth.Logout(r.Context(), tok)
	}
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, struct{}{})
}

func (s *Server) refresh(w http.ResponseWriter, r *http.Request) {
	tok, err := s.tokenFrom(w, r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	fresh, err := s.auth.Refresh(r.Context(), tok)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, model.AuthResult{Token: fresh.AccessToken, Authenticated: true})
}

func (s *Server) sendEmail(w http.ResponseWriter, r *http.Request) {
	email := r.URL.Query().Get("email")
	if strings.TrimSpace(email) == "" {
		writeError(w, r, s.log, errs.Validation(errors.New("email: cannot be blank")))
		return
	}
	if err := s.auth.SendVerification(r.Context(), email); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, struct{}{})
}

func (s *Server) activate(w http.ResponseWriter, r *http.Request) {
	if err := s.auth.Activate(r.Context(), r.URL.Query().Get("token")); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, "account activated")
}

// --- Users ---

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.FromString(mux.Vars(r)["id"])
	if err != nil {
		return uuid.Nil, errs.ErrNotFound
	}
	return id, nil
}

func (s *Server) myInfo(w http.ResponseWriter, r *http.Request) {
	u, _ := UserFromCtx(r.Context())
	ok(w, convert.ToCurrentUser(u))
}

func intParam(r *http.Request, name string, def int) (int, error) {
	v := r.URL.Query().Get(name)
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, errs.Validation(errors.New(name + ": must be an integer"))
	}
	return n, nil
}

func (s *Server) list(w http.ResponseWriter, r *http.Request) {
	page, err := intParam(r, "page", 1)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	limit, err := intParam(r, "limit", defaultLimit)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	q := model.ListQuery{
		Page:     page,
		Limit:    limit,
		Search:   r.URL.Query().Get("search"),
		SearchBy: r.URL.Query().Get("searchBy"),
	}
	us, total, err := s.users.List(r.Context(), q)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, convert.ToPage(us, total, q.Page, q.Limit))
}

// get lets admins read any account and everyone else only their own.
func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	actor, _ := UserFromCtx(r.Context())
	if actor.ID != id && !actor.HasRole(model.RoleAdmin) {
		writeError(w, r, s.log, errs.ErrForbidden)
		return
	}
	u, err := s.users.Get(r.Context(), id)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, convert.ToRecord(u))
}

func (s *Server) create(w http.ResponseWriter, r *http.Request) {
	var p model.UserPayload
	if err := decode(w, r, &p); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	u, err := s.users.Create(r.Context(), p)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, convert.ToRecord(u))
}

func (s *Server) update(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var upd model.UserUpdate
	if err := decode(w, r, &upd); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	actor, _ := UserFromCtx(r.Context())
	if actor.ID == id && upd.Active != nil && !*upd.Active {
		writeError(w, r, s.log, errs.ErrConflict)
		return
	}
	u, err := s.users.Update(r.Context(), id, upd)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, convert.ToRecord(u))
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	actor, _ := UserFromCtx(r.Context())
	if err := s.users.Delete(r.Context(), actor, id); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, struct{}{})
}

func (s *Server) updatePassword(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, r, s.log, err)
		return
	}
	var ch model.PasswordChange
	if err := decode(w, r, &ch); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	actor, _ := UserFromCtx(r.Context())
	if err := s.users.UpdatePassword(r.Context(), actor, id, ch); err != nil {
		writeError(w, r, s.log, err)
		return
	}
	ok(w, struct{}{})
}
