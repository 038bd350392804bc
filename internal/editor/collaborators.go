package editor

import (
	"context"
	"net/http"
	"strings"
)

// UserHeader is read by HeaderIdentifier, the dashboard gateway sets it after authentication
const UserHeader = "X-User-ID"

type User struct {
	ID string `json:"id"`
}

// Identifier resolves the user behind a request, nil means anonymous
type Identifier interface {
	Identify(r *http.Request) *User
}

// Entitlements answers whether a user may use paid features
type Entitlements interface {
	HasActiveSubscription(ctx context.Context, userID string) (bool, error)
}

type HeaderIdentifier struct {
	Header string
}

func (hi HeaderIdentifier) Identify(r *http.Request) *User {
	header := hi.Header
	if header == "" {
		header = UserHeader
	}

	id := strings.TrimSpace(r.Header.Get(header))
	if id == "" {
		return nil
	}

	return &User{ID: id}
}

// StaticEntitlements is an allow-list of subscribed user ids
type StaticEntitlements struct {
	subscribers map[string]struct{}
}

func NewStaticEntitlements(userIDs ...string) *StaticEntitlements {
	se := &StaticEntitlements{subscribers: make(map[string]struct{}, len(userIDs))}
	for _, id := range userIDs {
		if id = strings.TrimSpace(id); id != "" {
			se.subscribers[id] = struct{}{}
		}
	}

	return se
}

// ParseSubscribers splits a comma separated list of user ids
func ParseSubscribers(raw string) []string {
	var ids []string
	for _, id := range strings.Split(raw, ",") {
		if id = strings.TrimSpace(id); id != "" {
			ids = append(ids, id)
		}
	}

	return ids
}

func (se *StaticEntitlements) HasActiveSubscription(_ context.Context, userID string) (bool, error) {
	_, ok := se.subscribers[userID]
	return ok, nil
}
