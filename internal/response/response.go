package response

import (
	"github.com/labstack/echo/v4"
)

// Envelope is the uniform response body shared by every endpoint.
type Envelope struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Message string      `json:"message,omitempty"`
	Error   string      `json:"error,omitempty"`
}

// Success writes a successful envelope with optional data and message.
func Success(c echo.Context, status int, data interface{}, message string) error {
	return c.JSON(status, Envelope{
		Success: true,
		Data:    data,
		Message: message,
	})
}

// Error writes a failed envelope. The error field carries a short category
// label, the message a human-readable explanation.
func Error(c echo.Context, status int, errLabel, message string) error {
	return c.JSON(status, Envelope{
		Success: false,
		Error:   errLabel,
		Message: message,
	})
}
