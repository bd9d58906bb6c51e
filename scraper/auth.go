package scraper

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/aluiziolira/go-scrape-fabrics/page"
)

// Authenticator logs the session in at most once per run.
type Authenticator struct {
	loginURL string
	email    string
	password string
	sel      LoginSelectors
	timeout  time.Duration

	once          sync.Once
	authenticated atomic.Bool
}

func NewAuthenticator(loginURL, email, password string, sel LoginSelectors, timeout time.Duration) *Authenticator {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Authenticator{
		loginURL: loginURL,
		email:    email,
		password: password,
		sel:      sel,
		timeout:  timeout,
	}
}

// Ensure runs Login on the first call only and reports its outcome to every
// caller. Concurrent callers block until the first attempt finishes.
func (a *Authenticator) Ensure(ctx context.Context, h page.Handle) bool {
	a.once.Do(func() {
		a.authenticated.Store(a.Login(ctx, h))
	})
	return a.authenticated.Load()
}

// Authenticated reports the outcome of the login attempt, false before it.
func (a *Authenticator) Authenticated() bool {
	return a.authenticated.Load()
}

// Login performs one login transaction on h. Any failure abandons the
// attempt; the crawl then continues without a session.
func (a *Authenticator) Login(ctx context.Context, h page.Handle) bool {
	if a.email == "" || a.password == "" {
		slog.Info("no credentials configured, crawling unauthenticated")
		return false
	}

	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	slog.Info("attempting login", slog.String("url", a.loginURL))
	if err := h.Navigate(ctx, a.loginURL); err != nil {
		slog.Warn("login page unreachable", slog.Any("error", err))
		return false
	}

	email, _ := page.First(h, a.sel.EmailInput)
	if email == nil {
		slog.Warn("login email input not found")
		return false
	}
	password, _ := page.First(h, a.sel.PasswordInput)
	if password == nil {
		slog.Warn("login password input not found")
		return false
	}
	submit, _ := page.First(h, a.sel.SubmitButton)
	if submit == nil {
		slog.Warn("login submit button not found")
		return false
	}

	if err := email.Fill(a.email); err != nil {
		slog.Warn("fill login email", slog.Any("error", err))
		return false
	}
	if err := password.Fill(a.password); err != nil {
		slog.Warn("fill login password", slog.Any("error", err))
		return false
	}
	if err := submit.Click(ctx); err != nil {
		slog.Warn("submit login form", slog.Any("error", err))
		return false
	}

	if indicator := page.SelectFirst(h, a.sel.AccountHeader); indicator != "" {
		slog.Info("login succeeded", slog.String("indicator", indicator))
		return true
	}
	if err := h.WaitFor(ctx, strings.Join(a.sel.AccountHeader, ", "), a.timeout); err == nil {
		slog.Info("login succeeded")
		return true
	}
	slog.Warn("no account indicator after login")
	return false
}
