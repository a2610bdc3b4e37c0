package middleware

import "github.com/labstack/echo/v4"

// ActorID returns the subject JWTAuth stored for this request, or
// "anonymous" when the request was not authenticated.
func ActorID(c echo.Context) string {
	if s, ok := c.Get("user_id").(string); ok && s != "" {
		return s
	}
	return "anonymous"
}
