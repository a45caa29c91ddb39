package handler

import (
    "net/http"

    "github.com/labstack/echo/v4"
)

// DefaultPingMessage is returned by Ping when the request has no query
// parameters.
const DefaultPingMessage = "Thanks for the ping! Send parameters to see them returned to you."

// Ping echoes the query string back as JSON under "request" so that callers
// can check connectivity and see what reached the function.  Any method is
// accepted.  A parameter given once is echoed as a string, a repeated one
// as an array.
func Ping(c echo.Context) error {
    params := c.QueryParams()
    if len(params) == 0 {
        return c.JSON(http.StatusOK, echo.Map{"request": DefaultPingMessage})
    }
    echoed := make(map[string]any, len(params))
    for k, vs := range params {
        if len(vs) == 1 {
            echoed[k] = vs[0]
        } else {
            echoed[k] = vs
        }
    }
    return c.JSON(http.StatusOK, echo.Map{"request": echoed})
}
