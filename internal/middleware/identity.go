package middleware

// identity.go extracts the submitter's opaque identity token from the
// request and stores it in the Echo context. The token is read from the
// X-Identity-Token header; handlers fall back to a body field for
// clients that cannot set headers. No verification happens here: the
// token is an opaque string whose only meaning is equality with the
// token stored on a review.

import "github.com/labstack/echo/v4"

// HeaderIdentityToken is the request header carrying the identity token.
const HeaderIdentityToken = "X-Identity-Token"

// ExtractIdentity stores the request's identity token (if any) under
// the "identity_token" context key for handlers and the rate limiter.
func ExtractIdentity() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if tok := c.Request().Header.Get(HeaderIdentityToken); tok != "" {
				c.Set("identity_token", tok)
			}
			return next(c)
		}
	}
}

// identityToken returns the request's identity token or "anon" when the
// client did not present one. Used by the rate limiter key builder.
func identityToken(c echo.Context) string {
	if v := c.Get("identity_token"); v != nil {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return "anon"
}
