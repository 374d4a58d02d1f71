package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/layr-ng/layr-api/pkg/apierrors"
	"github.com/layr-ng/layr-api/pkg/auth"
	"github.com/layr-ng/layr-api/pkg/httputil"
	"github.com/layr-ng/layr-api/pkg/middleware"
	"github.com/layr-ng/layr-api/pkg/users"
)

// AuthHandlers serves account routes for both users and admins: registration,
// login, logout, password resets, profile and email search.
type AuthHandlers struct {
	users  *users.Service
	tokens *auth.TokenManager
}

// NewAuthHandlers creates the account handlers.
func NewAuthHandlers(userSvc *users.Service, tokens *auth.TokenManager) *AuthHandlers {
	return &AuthHandlers{users: userSvc, tokens: tokens}
}

// RegisterRoutes registers the /users and /admins route families.
func (h *AuthHandlers) RegisterRoutes(router *mux.Router, session *middleware.Session) {
	router.HandleFunc("/users", h.registerUser).Methods("POST")
	router.HandleFunc("/users/login", h.loginUser).Methods("POST")
	router.HandleFunc("/users/logout", h.logout).Methods("DELETE")
	router.HandleFunc("/users/forgot_password", h.forgotPassword(auth.ActorUser)).Methods("POST")
	router.HandleFunc("/users/reset_password", h.resetPassword(auth.ActorUser)).Methods("POST")
	router.Handle("/users", session.RequireUser(http.HandlerFunc(h.getUser))).Methods("GET")
	router.Handle("/users", session.RequireUser(http.HandlerFunc(h.updateUser))).Methods("PATCH")
	router.Handle("/users/email", session.RequireUser(http.HandlerFunc(h.searchByEmail))).Methods("GET")

	router.HandleFunc("/admins", h.registerAdmin).Methods("POST")
	router.HandleFunc("/admins/login", h.loginAdmin).Methods("POST")
	router.HandleFunc("/admins/logout", h.logout).Methods("DELETE")
	router.HandleFunc("/admins/forgot_password", h.forgotPassword(auth.ActorAdmin)).Methods("POST")
	router.HandleFunc("/admins/reset_password", h.resetPassword(auth.ActorAdmin)).Methods("POST")
	router.Handle("/admins", session.RequireAdmin(http.HandlerFunc(h.getAdmin))).Methods("GET")
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandlers) registerUser(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}
	if input.Email == "" || input.Password == "" || input.FullName == "" {
		httputil.WriteAPIError(w, apierrors.Validation("Email, full name and password are required"))
		return
	}

	if err := h.users.Register(r.Context(), input); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}

	// Registration logs the account straight in.
	user, err := h.users.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if err := h.issueSession(w, r, auth.Actor{ID: user.ID, Kind: auth.ActorUser}); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Registration successful", user)
}

func (h *AuthHandlers) loginUser(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	user, err := h.users.Authenticate(r.Context(), input.Email, input.Password)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if err := h.issueSession(w, r, auth.Actor{ID: user.ID, Kind: auth.ActorUser}); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Login successful", user)
}

func (h *AuthHandlers) registerAdmin(w http.ResponseWriter, r *http.Request) {
	var input users.RegisterInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}
	if input.Email == "" || input.Password == "" || input.FullName == "" {
		httputil.WriteAPIError(w, apierrors.Validation("Email, full name and password are required"))
		return
	}

	if err := h.users.RegisterAdmin(r.Context(), input); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}

	admin, err := h.users.AuthenticateAdmin(r.Context(), input.Email, input.Password)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if err := h.issueSession(w, r, auth.Actor{ID: admin.ID, Kind: auth.ActorAdmin}); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteCreated(w, "Registration successful", admin)
}

func (h *AuthHandlers) loginAdmin(w http.ResponseWriter, r *http.Request) {
	var input loginRequest
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	admin, err := h.users.AuthenticateAdmin(r.Context(), input.Email, input.Password)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	if err := h.issueSession(w, r, auth.Actor{ID: admin.ID, Kind: auth.ActorAdmin}); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Login successful", admin)
}

func (h *AuthHandlers) logout(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, h.tokens.ClearSessionCookie())
	httputil.WriteOK(w, "Logout successful", nil)
}

func (h *AuthHandlers) forgotPassword(kind auth.ActorKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input forgotPasswordRequest
		if err := httputil.DecodeJSON(r, &input); err != nil {
			httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
			return
		}
		if input.Email == "" {
			httputil.WriteAPIError(w, apierrors.Validation("Email is required"))
			return
		}

		message, err := h.users.RequestPasswordReset(r.Context(), input.Email, kind)
		if err != nil {
			httputil.WriteAPIError(w, err)
			return
		}
		httputil.WriteOK(w, message, nil)
	}
}

func (h *AuthHandlers) resetPassword(kind auth.ActorKind) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var input resetPasswordRequest
		if err := httputil.DecodeJSON(r, &input); err != nil {
			httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
			return
		}
		if input.Token == "" || input.Email == "" || input.Password == "" {
			httputil.WriteAPIError(w, apierrors.Validation("Token, email and password are required"))
			return
		}

		if err := h.users.ResetPassword(r.Context(), input.Token, input.Email, input.Password, kind); err != nil {
			httputil.WriteAPIError(w, err)
			return
		}
		httputil.WriteOK(w, "Password reset successful", nil)
	}
}

func (h *AuthHandlers) getUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	user, err := h.users.GetUser(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", user)
}

func (h *AuthHandlers) updateUser(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)

	var input users.UpdateInput
	if err := httputil.DecodeJSON(r, &input); err != nil {
		httputil.WriteAPIError(w, apierrors.Validation(err.Error()))
		return
	}

	if err := h.users.UpdateUser(r.Context(), actor.ID, input); err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "Profile updated", nil)
}

func (h *AuthHandlers) searchByEmail(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("query")
	if query == "" {
		httputil.WriteAPIError(w, apierrors.Validation("Email query is required"))
		return
	}

	rows, err := h.users.SearchByEmail(r.Context(), query, middleware.PaginationFromContext(r))
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", rows)
}

func (h *AuthHandlers) getAdmin(w http.ResponseWriter, r *http.Request) {
	actor, _ := middleware.ActorFromContext(r)
	admin, err := h.users.GetAdmin(r.Context(), actor.ID)
	if err != nil {
		httputil.WriteAPIError(w, err)
		return
	}
	httputil.WriteOK(w, "", admin)
}

func (h *AuthHandlers) issueSession(w http.ResponseWriter, r *http.Request, actor auth.Actor) error {
	token, err := h.tokens.SignSessionFor(actor, auth.SessionClient{
		IP:        r.RemoteAddr,
		UserAgent: r.UserAgent(),
	})
	if err != nil {
		return apierrors.Internal("Login failed", err)
	}
	http.SetCookie(w, h.tokens.SessionCookie(token))
	return nil
}
