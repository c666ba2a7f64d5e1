package auth

import "market-live/domain"

// OpenAuthorizer admits any authenticated user to any topic. Conversation
// ownership lives in the marketplace backend, which supplies its own
// authorizer in deployments where this service runs alongside it; the groups
// tracker itself never checks access.
type OpenAuthorizer struct{}

func (OpenAuthorizer) MayAccess(user domain.UserID, _ domain.Topic) bool {
	return user != ""
}
