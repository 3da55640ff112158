package cookies

import (
	"net/http"
	"time"
)

const (
	AccessToken  = "accessToken"
	RefreshToken = "refreshToken"
)

// Factory builds the session cookies. Secure is enabled in production.
type Factory struct {
	Secure bool
	Path   string
}

func (f Factory) path() string {
	if f.Path == "" {
		return "/"
	}
	return f.Path
}

func (f Factory) Create(name, value string, expTime time.Time) *http.Cookie {
	maxAge := int(time.Until(expTime).Seconds())
	if maxAge <= 0 {
		maxAge = -1
	}
	return &http.Cookie{
		Name:     name,
		Value:    value,
		Path:     f.path(),
		Expires:  expTime,
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   f.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

func (f Factory) Delete(name string) *http.Cookie {
	return &http.Cookie{
		Name:     name,
		Value:    "",
		Path:     f.path(),
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   f.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}
