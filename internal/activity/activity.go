package activity

import (
	"context"
	"time"

	"github.com/pkg/errors"
)

var ErrStoreWriteFailed = errors.New("activity store write error")
var ErrStoreReadFailed = errors.New("activity store read error")
var ErrInvalidUser = errors.New("activity requires a user")

// KindImageEditor marks entries produced by the image editor
const KindImageEditor = "image-editor"

// DefaultRecentLimit is used when Recent is called without a positive limit
const DefaultRecentLimit = 20

// Entry is one line of a user's activity feed
type Entry struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	Kind      string    `json:"kind"`
	UserID    string    `json:"userId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Store keeps the activity feed of dashboard users
type Store interface {
	// Record appends an entry for the user, the id and timestamp are generated
	Record(ctx context.Context, title, kind, userID string) (*Entry, error)
	// Recent lists the newest entries of the user first
	Recent(ctx context.Context, userID string, limit int) ([]Entry, error)
}

// EditedImageTitle is the feed title of a successful edit
func EditedImageTitle(filename string) string {
	if filename == "" {
		filename = "image"
	}

	return "Edited image " + filename
}

func normalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultRecentLimit
	}

	return limit
}
