package services

import (
	"context"

	"order_manager/internal/models"
	"order_manager/internal/repository"
	"order_manager/internal/workflow"

	"github.com/google/uuid"
)

// Scope describes which orders an actor may see and act on.
type Scope struct {
	All     bool
	UserIDs []uuid.UUID
}

type Scoper interface {
	ScopeFor(ctx context.Context, actor *models.User) (Scope, error)
}

type scoper struct {
	users repository.UserRepository
}

func NewScoper(users repository.UserRepository) Scoper {
	return &scoper{users: users}
}

// ScopeFor gives admins every order. Everyone else sees their own orders and
// those of the users that report directly to them; the hierarchy is not
// walked any deeper.
func (s *scoper) ScopeFor(ctx context.Context, actor *models.User) (Scope, error) {
	if actor.IsAdmin() {
		return Scope{All: true}, nil
	}
	team, err := s.users.TeamMemberIDs(ctx, actor.ID)
	if err != nil {
		return Scope{}, err
	}
	ids := []uuid.UUID{actor.ID}
	for _, id := range team {
		if id != actor.ID {
			ids = append(ids, id)
		}
	}
	return Scope{UserIDs: ids}, nil
}

// OrderFilter restricts a query to the scope. Dashboard views pass
// excludeCancelled to leave out cancelled orders.
func (s Scope) OrderFilter(excludeCancelled bool) workflow.Expr {
	var parts []workflow.Expr
	if !s.All {
		ids := make([]interface{}, len(s.UserIDs))
		for i, id := range s.UserIDs {
			ids[i] = id
		}
		parts = append(parts, workflow.Or(
			workflow.In("created_by", ids...),
			workflow.In("assigned_to", ids...),
		))
	}
	if excludeCancelled {
		parts = append(parts, workflow.NotCancelled())
	}
	return workflow.And(parts...)
}

// Allows reports whether a single order is inside the scope.
func (s Scope) Allows(o *models.Order) bool {
	if s.All {
		return true
	}
	for _, id := range s.UserIDs {
		if o.CreatedBy == id || (o.AssignedTo != nil && *o.AssignedTo == id) {
			return true
		}
	}
	return false
}

// NotificationUsers returns the user ids whose notifications are visible,
// or nil when every notification is.
func (s Scope) NotificationUsers() []uuid.UUID {
	if s.All {
		return nil
	}
	return s.UserIDs
}
