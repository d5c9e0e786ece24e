package services

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/kerbaras/novels/pkg/auth"
	"github.com/kerbaras/novels/pkg/data"
	"github.com/kerbaras/novels/pkg/utils"
	"github.com/pkg/errors"
)

// CredentialStore is the part of data.CredentialFile the session needs.
type CredentialStore interface {
	Get(accountID int) (string, bool)
	FirstValid() *data.Credential
	Save(cred *data.Credential) error
}

// Session hands out cookies for accounts and renews them through the login
// provider when the store has none.
type Session struct {
	store        CredentialStore
	provider     auth.Provider
	accountsPath string
	loginDelay   time.Duration
	sleep        func(ctx context.Context, d time.Duration) error
}

func NewSession(store CredentialStore, provider auth.Provider, accountsPath string, loginDelay time.Duration) *Session {
	return &Session{
		store:        store,
		provider:     provider,
		accountsPath: accountsPath,
		loginDelay:   loginDelay,
		sleep:        utils.Sleep,
	}
}

// Accounts reads the configured account list.
func (s *Session) Accounts() ([]data.Account, error) {
	accounts, err := data.ReadAccounts(s.accountsPath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, data.NewError(data.KindConfig,
			fmt.Sprintf("accounts file %s not found, run `novels setup` and add an account", s.accountsPath), nil)
	}
	if err != nil {
		return nil, data.NewError(data.KindConfig, "read accounts", err)
	}
	if len(accounts) == 0 {
		return nil, data.NewError(data.KindConfig,
			fmt.Sprintf("no accounts in %s, add lines like `1. email password`", s.accountsPath), nil)
	}
	return accounts, nil
}

// Valid reports whether the account currently has a usable credential.
func (s *Session) Valid(accountID int) bool {
	_, ok := s.store.Get(accountID)
	return ok
}

// Cookie returns a usable cookie and the account it belongs to. accountID 0
// means any account: the first valid stored credential wins, and when there
// is none the only configured account is logged in.
func (s *Session) Cookie(ctx context.Context, accountID int) (string, int, error) {
	if accountID == 0 {
		if cred := s.store.FirstValid(); cred != nil {
			return cred.Cookie, cred.UserID, nil
		}
		accounts, err := s.Accounts()
		if err != nil {
			return "", 0, err
		}
		if len(accounts) > 1 {
			return "", 0, data.NewError(data.KindAuth, "no valid credential, choose an account with --user", nil)
		}
		accountID = accounts[0].ID
	}

	if cookie, ok := s.store.Get(accountID); ok {
		slog.DebugContext(ctx, "using stored credential", "user_id", accountID)
		return cookie, accountID, nil
	}
	slog.InfoContext(ctx, "credential missing or expired, logging in", "user_id", accountID)
	cookie, err := s.Renew(ctx, accountID)
	return cookie, accountID, err
}

// Renew logs the account in again and returns the new cookie.
func (s *Session) Renew(ctx context.Context, accountID int) (string, error) {
	cred, err := s.login(ctx, accountID)
	if err != nil {
		return "", err
	}
	return cred.Cookie, nil
}

// Login logs in one account unless it already has a valid credential and
// force is false. The returned credential is nil when the login was skipped.
func (s *Session) Login(ctx context.Context, accountID int, force bool) (*data.Credential, error) {
	if !force && s.Valid(accountID) {
		slog.InfoContext(ctx, "credential still valid, skipping login", "user_id", accountID)
		return nil, nil
	}
	return s.login(ctx, accountID)
}

func (s *Session) login(ctx context.Context, accountID int) (*data.Credential, error) {
	accounts, err := s.Accounts()
	if err != nil {
		return nil, err
	}
	account, ok := data.FindAccount(accounts, accountID)
	if !ok {
		return nil, data.NewError(data.KindAuth, fmt.Sprintf("account %d is not in %s", accountID, s.accountsPath), nil)
	}

	cred, err := s.provider.Login(ctx, account)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if data.KindOf(err) == data.KindUnknown {
			err = data.NewError(data.KindAuth, fmt.Sprintf("login user %d", accountID), err)
		}
		return nil, err
	}
	if err := s.store.Save(cred); err != nil {
		return nil, err
	}
	return cred, nil
}

type LoginOutcome string

const (
	LoginSkipped   LoginOutcome = "skipped"
	LoginSucceeded LoginOutcome = "succeeded"
	LoginFailed    LoginOutcome = "failed"
)

type LoginResult struct {
	Account    data.Account
	Outcome    LoginOutcome
	Credential *data.Credential
	Err        error
}

// LoginAll logs in every account in turn, skipping those with a valid
// credential. Accounts are never processed concurrently and each real login
// is followed by the login delay when more accounts remain. report is called
// after each account. A cancelled context stops the batch and returns the
// results gathered so far with ctx.Err().
func (s *Session) LoginAll(ctx context.Context, report func(LoginResult)) ([]LoginResult, error) {
	accounts, err := s.Accounts()
	if err != nil {
		return nil, err
	}

	var results []LoginResult
	for i, account := range accounts {
		if err := ctx.Err(); err != nil {
			return results, err
		}

		result := LoginResult{Account: account}
		if s.Valid(account.ID) {
			result.Outcome = LoginSkipped
		} else {
			cred, err := s.login(ctx, account.ID)
			if ctx.Err() != nil {
				return results, ctx.Err()
			}
			if err != nil {
				slog.ErrorContext(ctx, "login failed", "user_id", account.ID, "email", account.Email, "err", err)
				result.Outcome, result.Err = LoginFailed, err
			} else {
				result.Outcome, result.Credential = LoginSucceeded, cred
			}
		}

		results = append(results, result)
		if report != nil {
			report(result)
		}

		if result.Outcome != LoginSkipped && i < len(accounts)-1 {
			if err := s.sleep(ctx, s.loginDelay); err != nil {
				return results, err
			}
		}
	}
	return results, nil
}
