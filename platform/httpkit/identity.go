package httpkit

import (
	"context"
	"net/http"
	"slices"

	"ipkwealth_backend/platform/logger"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// Actor is the authenticated caller as asserted by the identity provider.
type Actor struct {
	ID    uuid.UUID
	Roles []string
}

func (a Actor) HasRole(role string) bool {
	return slices.Contains(a.Roles, role)
}

// GetActor returns the caller, or false when the request is anonymous.
func GetActor(c *gin.Context) (Actor, bool) {
	raw, ok := c.Get(ContextActorKey)
	if !ok {
		return Actor{}, false
	}
	actor, ok := raw.(Actor)
	return actor, ok
}

// ActorID returns the caller id as a nullable value for journal authorship.
func ActorID(c *gin.Context) *uuid.UUID {
	actor, ok := GetActor(c)
	if !ok {
		return nil
	}
	id := actor.ID
	return &id
}

// MustGetActor aborts with 401 when no actor is present.
func MustGetActor(c *gin.Context) (Actor, bool) {
	actor, ok := GetActor(c)
	if !ok {
		c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Code: "UNAUTHORIZED"})
		return Actor{}, false
	}
	return actor, true
}

func withActor(ctx context.Context, actor Actor) context.Context {
	return context.WithValue(ctx, logger.ActorIDKey, actor.ID.String())
}
