package teacher

import (
	"strings"
	"time"

	"github.com/lib/pq"
)

const (
	StatusPending  = "pending"
	StatusApproved = "approved"
	StatusRejected = "rejected"
)

type Teacher struct {
	UserID          int            `db:"user_id" json:"id"`
	Name            string         `db:"name" json:"name"`
	HourlyRateCents int64          `db:"hourly_rate_cents" json:"hourly_rate_cents"`
	Languages       pq.StringArray `db:"languages" json:"languages" swaggertype:"array,string"`
	Status          string         `db:"status" json:"status"`
	IsActive        bool           `db:"is_active" json:"is_active"`
	Rating          float64        `db:"rating" json:"rating"`
	ReviewCount     int            `db:"review_count" json:"review_count"`
	CreatedAt       time.Time      `db:"created_at" json:"created_at"`
}

// Bookable reports whether students may book this teacher.
func (t *Teacher) Bookable() bool {
	return t.Status == StatusApproved && t.IsActive
}

// Teaches matches language against the profile, ignoring case.
func (t *Teacher) Teaches(language string) bool {
	language = strings.TrimSpace(language)
	for _, l := range t.Languages {
		if strings.EqualFold(l, language) {
			return true
		}
	}
	return false
}

// normalizeLanguages trims entries and drops blanks and case-insensitive duplicates.
func normalizeLanguages(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, l := range in {
		l = strings.TrimSpace(l)
		key := strings.ToLower(l)
		if l == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, l)
	}
	return out
}
