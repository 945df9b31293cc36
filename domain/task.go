package domain

// DateLayout is the calendar-date format used for due dates. Due dates carry
// no time component; two tasks are due on the same day iff their DueDate
// strings are equal.
const DateLayout = "2006-01-02"

// Task represents one scheduled maintenance obligation for a property.
type Task struct {
	ID              string `json:"id"`
	UserID          string `json:"userId"`
	PropertyID      string `json:"propertyId"`
	PropertyAddress string `json:"propertyAddress"`
	Title           string `json:"title"`
	Description     string `json:"description,omitempty"`
	DueDate         string `json:"dueDate"`
	Done            bool   `json:"done,omitempty"`
	Tier1Notified   bool   `json:"tier1Notified,omitempty"`
	Tier7Notified   bool   `json:"tier7Notified,omitempty"`
}
