// Package content defines the entities served by the public site and edited
// through the admin panel. Each entity type is persisted as one flat JSON
// array document; records carry collection-unique numeric ids.
package content

import "time"

type Project struct {
	ID       int    `json:"id"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Location string `json:"location"`
	Year     string `json:"year"`
	Featured bool   `json:"featured"`
	Image    string `json:"image"`
}

type Service struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Features    []string `json:"features"`
	Image       string   `json:"image"`
}

type BitumenProduct struct {
	ID             int      `json:"id"`
	Title          string   `json:"title"`
	Description    string   `json:"description"`
	Specifications []string `json:"specifications"`
	Applications   []string `json:"applications"`
	Image          string   `json:"image"`
}

type TeamMember struct {
	ID       int    `json:"id"`
	Name     string `json:"name"`
	Position string `json:"position"`
	Bio      string `json:"bio"`
	Image    string `json:"image"`
}

// Activity is one entry of the admin dashboard change log.
type Activity struct {
	Action string `json:"action"`
	Item   string `json:"item"`
	Time   string `json:"time"`
}

// MaxActivities caps the activity log; older entries fall off the end.
const MaxActivities = 10

func (p Project) RecordID() int        { return p.ID }
func (s Service) RecordID() int        { return s.ID }
func (b BitumenProduct) RecordID() int { return b.ID }
func (m TeamMember) RecordID() int     { return m.ID }

// Record is any entity with a numeric collection-unique id.
type Record interface {
	RecordID() int
}

// NextID returns max(id)+1 over the given records, starting at 1 for an
// empty collection. Gaps left by deletions are not reused.
func NextID[T Record](items []T) int {
	next := 1
	for _, item := range items {
		if item.RecordID() >= next {
			next = item.RecordID() + 1
		}
	}
	return next
}

// Categories lists the valid project categories.
var Categories = []string{
	"Road Construction",
	"Bridge Construction",
	"Infrastructure Development",
}

func ValidCategory(category string) bool {
	for _, c := range Categories {
		if c == category {
			return true
		}
	}
	return false
}

// NewActivity stamps an activity record with the current UTC time.
func NewActivity(action, item string) Activity {
	return Activity{Action: action, Item: item, Time: time.Now().UTC().Format(time.RFC3339)}
}

// PrependActivity inserts the newest entry first and truncates the log to
// MaxActivities entries.
func PrependActivity(log []Activity, entry Activity) []Activity {
	keep := log
	if len(keep) > MaxActivities-1 {
		keep = keep[:MaxActivities-1]
	}
	updated := make([]Activity, 0, len(keep)+1)
	updated = append(updated, entry)
	return append(updated, keep...)
}
