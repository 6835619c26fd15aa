package domain

import "time"

// User is a registered identity in the profile's directory
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
	Name     string `json:"name"`
	// PasswordHash is a rolling hash, not a credential store. See identity.PasswordHash.
	PasswordHash int32     `json:"passwordHash"`
	Created      time.Time `json:"created"`
}

// Session points at the user every entry operation acts for
type Session struct {
	UserID   string    `json:"userId"`
	Username string    `json:"username"`
	Name     string    `json:"name"`
	Started  time.Time `json:"started"`
}

// Kind records which logging path created an entry. It is descriptive only.
type Kind string

const (
	KindFull     Kind = "full"
	KindSimple   Kind = "simple"
	KindQuick    Kind = "quick"
	KindEndOfDay Kind = "end-of-day"
)

// Entry is a single check-in. Fields that a kind does not collect stay zero.
type Entry struct {
	ID           string    `json:"id"`
	Date         string    `json:"date"`
	Time         string    `json:"time"`
	Timestamp    time.Time `json:"timestamp"`
	Task         string    `json:"task"`
	TaskType     string    `json:"taskType"`
	Duration     *int      `json:"duration"`
	Energy       int       `json:"energy"`
	Stress       int       `json:"stress"`
	Productivity int       `json:"productivity"`
	Notes        string    `json:"notes"`
	Kind         Kind      `json:"kind,omitempty"`
}

// Layouts of the user-editable Date and Time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

// Sentinel task and category values for the abbreviated kinds.
const (
	QuickTask          = "Quick check-in"
	EndOfDayTask       = "End of Day Reflection"
	CategoryCheckIn    = "Check-in"
	CategoryReflection = "Reflection"
	EndOfDayTime       = "23:59"
)

// Categories is the vocabulary offered for detailed entries, in display order.
var Categories = []string{
	"Study", "Portfolio", "Writing", "Class assignment", "Research",
	"Application prep", "Meetings", "Admin", "Exercise", "Rest", "Play",
}

// IsCategory reports whether name is a known detailed-entry category.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
