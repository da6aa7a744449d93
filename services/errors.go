package services

import (
	"errors"

	"whoami/game"

	"github.com/gin-gonic/gin"
)

var ErrInvalidBallot = errors.New("vote must be yes or no")

// ErrorBody renders an error for API and socket clients. Game errors carry their kind.
func ErrorBody(err error) gin.H {
	var gameErr *game.Error
	if errors.As(err, &gameErr) {
		return gin.H{"error": gameErr.Reason, "kind": gameErr.Kind}
	}
	return gin.H{"error": err.Error()}
}
