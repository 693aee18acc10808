package auth

import (
	"net/http"
	"time"

	"github.com/gorilla/sessions"
	"github.com/markbates/goth"
	"github.com/markbates/goth/gothic"
	"github.com/markbates/goth/providers/google"

	"github.com/FACorreiaa/go-blog-api/config"
)

const googleHTTPTimeout = 10 * time.Second

// UseGoogleProvider registers the Google provider with goth and gives gothic
// a cookie store for the OAuth state. sessionSecret falls back to the JWT
// secret when empty.
func UseGoogleProvider(cfg config.GoogleConfig, jwtSecret string, secureCookie bool) {
	secret := cfg.SessionSecret
	if secret == "" {
		secret = jwtSecret
	}
	store := sessions.NewCookieStore([]byte(secret))
	store.MaxAge(int((10 * time.Minute).Seconds()))
	store.Options.Path = "/"
	store.Options.HttpOnly = true
	store.Options.Secure = secureCookie
	store.Options.SameSite = http.SameSiteLaxMode
	gothic.Store = store

	provider := google.New(cfg.ClientID, cfg.ClientSecret, cfg.CallbackURL, "email", "profile")
	provider.HTTPClient = &http.Client{Timeout: googleHTTPTimeout}
	goth.UseProviders(provider)
}
