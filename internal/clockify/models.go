package clockify

import "time"

type User struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	Name             string `json:"name"`
	ActiveWorkspace  string `json:"activeWorkspace"`
	DefaultWorkspace string `json:"defaultWorkspace"`
}

type Project struct {
	ID         string `json:"id"`
	Name       string `json:"name"`
	Archived   bool   `json:"archived"`
	ClientName string `json:"clientName"`
}

// TimeEntry is a time entry as returned by the user time-entries endpoint.
// Running timers have a nil End.
type TimeEntry struct {
	ID           string `json:"id"`
	Description  string `json:"description"`
	ProjectID    string `json:"projectId"`
	TaskID       string `json:"taskId"`
	UserID       string `json:"userId"`
	Billable     bool   `json:"billable"`
	TimeInterval struct {
		Start time.Time  `json:"start"`
		End   *time.Time `json:"end"`
	} `json:"timeInterval"`
}
