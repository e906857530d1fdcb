package web

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"github.com/Julien-B-py/online-shop/internal/account"
	"github.com/Julien-B-py/online-shop/internal/cartstore"
)

// AccountService is the slice of the account repository the handlers use.
type AccountService interface {
	Create(ctx context.Context, reg account.Registration) (*account.Account, error)
	Authenticate(ctx context.Context, email, password string) (*account.Account, error)
}

type AccountHandler struct {
	accounts AccountService
	sessions SessionBinder
	carts    cartstore.Store
}

func NewAccountHandler(accounts AccountService, sessions SessionBinder, carts cartstore.Store) *AccountHandler {
	return &AccountHandler{accounts: accounts, sessions: sessions, carts: carts}
}

type registerRequestDTO struct {
	Name                 string `json:"name"`
	Email                string `json:"email"`
	Password             string `json:"password"`
	PasswordConfirmation string `json:"password_confirmation"`
}

type loginRequestDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type accountResponseDTO struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (h *AccountHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	acc, err := h.accounts.Create(r.Context(), account.Registration{
		Name:                 req.Name,
		Email:                req.Email,
		Password:             req.Password,
		PasswordConfirmation: req.PasswordConfirmation,
	})
	if err != nil {
		handleAccountError(w, err)
		return
	}

	respondJSON(w, http.StatusCreated, accountResponseDTO{ID: acc.ID, Name: acc.Name, Email: acc.Email})
}

// Login verifies credentials, folds the anonymous session cart into the
// account cart, and binds the session token to the account.
func (h *AccountHandler) Login(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	var req loginRequestDTO
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid_request", "invalid JSON body")
		return
	}

	acc, err := h.accounts.Authenticate(r.Context(), req.Email, req.Password)
	if err != nil {
		handleAccountError(w, err)
		return
	}

	if err := h.mergeSessionCart(r.Context(), p, acc.ID); err != nil {
		log.Printf("failed to merge session cart for account %d: %v", acc.ID, err)
	}

	if err := h.sessions.Bind(r.Context(), p.Session, acc.ID); err != nil {
		respondError(w, http.StatusServiceUnavailable, "session_unavailable", "could not establish login session")
		return
	}

	respondJSON(w, http.StatusOK, accountResponseDTO{ID: acc.ID, Name: acc.Name, Email: acc.Email})
}

func (h *AccountHandler) Logout(w http.ResponseWriter, r *http.Request) {
	p := principalFromContext(r.Context())

	if err := h.sessions.Unbind(r.Context(), p.Session); err != nil {
		respondError(w, http.StatusServiceUnavailable, "session_unavailable", "could not end login session")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"message": "logged out"})
}

// mergeSessionCart adds everything from the anonymous cart into the
// account cart, then drops the anonymous cart so items are not counted
// twice on the next login.
func (h *AccountHandler) mergeSessionCart(ctx context.Context, p cartstore.Principal, accountID int64) error {
	if p.Authenticated() {
		return nil // already logged in, nothing anonymous to merge
	}

	sessionCart, err := h.carts.Load(ctx, p)
	if err != nil {
		return err
	}
	if sessionCart.IsEmpty() {
		return nil
	}

	authed := cartstore.Principal{Session: p.Session, Account: accountID}
	accountCart, err := h.carts.Load(ctx, authed)
	if err != nil {
		return err
	}

	for _, e := range sessionCart.Entries() {
		for i := 0; i < e.Quantity; i++ {
			accountCart = accountCart.Add(e.ItemID)
		}
	}

	if err := h.carts.Save(ctx, authed, accountCart); err != nil {
		return err
	}
	return h.carts.Delete(ctx, p)
}

func handleAccountError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, account.ErrEmailTaken):
		respondError(w, http.StatusConflict, "email_taken", "email already registered")
	case errors.Is(err, account.ErrInvalidEmail),
		errors.Is(err, account.ErrPasswordTooShort),
		errors.Is(err, account.ErrPasswordMismatch):
		respondError(w, http.StatusBadRequest, "invalid_registration", err.Error())
	case errors.Is(err, account.ErrBadCredentials):
		respondError(w, http.StatusUnauthorized, "bad_credentials", "wrong email or password")
	default:
		respondError(w, http.StatusInternalServerError, "internal_error", "internal server error")
	}
}
