package domain

import (
	"fmt"
	"html"
	"strings"
	"time"
)

// Message is a composed notification ready for dispatch.
type Message struct {
	Subject  string
	HTMLBody string
}

// Compose renders the consolidated reminder for one user's tier sublist. It
// is a pure function of its inputs; the caller guarantees tasks is non-empty.
// Every task appears in the one message, however many there are.
func Compose(tier Tier, tasks []Task, scheduleURL string) Message {
	var b strings.Builder
	b.WriteString("<h2>")
	b.WriteString(html.EscapeString(headingFor(tier, len(tasks))))
	b.WriteString("</h2>\n<ul>\n")
	for _, t := range tasks {
		b.WriteString("<li><strong>")
		b.WriteString(html.EscapeString(t.Title))
		b.WriteString("</strong>")
		if t.Description != "" {
			b.WriteString("<br>")
			b.WriteString(html.EscapeString(t.Description))
		}
		b.WriteString("<br>Property: ")
		b.WriteString(html.EscapeString(t.PropertyAddress))
		b.WriteString("<br>Due: ")
		b.WriteString(html.EscapeString(formatDueDate(t.DueDate)))
		b.WriteString("</li>\n")
	}
	b.WriteString("</ul>\n<p><a href=\"")
	b.WriteString(html.EscapeString(scheduleURL))
	b.WriteString("\">View your maintenance schedule</a></p>\n")

	return Message{
		Subject:  subjectFor(tier, len(tasks)),
		HTMLBody: b.String(),
	}
}

func subjectFor(tier Tier, count int) string {
	return fmt.Sprintf("Maintenance reminder: %d %s due %s", count, taskNoun(count), dueWording(tier))
}

func headingFor(tier Tier, count int) string {
	return fmt.Sprintf("You have %d maintenance %s due %s", count, taskNoun(count), dueWording(tier))
}

func dueWording(tier Tier) string {
	if tier.Code == TierWeekAhead.Code {
		return "in 7 days"
	}
	return "tomorrow"
}

func taskNoun(count int) string {
	if count == 1 {
		return "task"
	}
	return "tasks"
}

func formatDueDate(date string) string {
	d, err := time.Parse(DateLayout, date)
	if err != nil {
		return date
	}
	return d.Format("Monday, 2 January 2006")
}
