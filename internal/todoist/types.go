package todoist

// Project is a Todoist project as returned by the REST API.
type Project struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	URL  string `json:"url"`
}

// Task is a Todoist task as returned by the REST API. Only the fields
// the exporter consumes are mapped.
type Task struct {
	ID          string `json:"id"`
	ProjectID   string `json:"project_id"`
	Content     string `json:"content"`
	Description string `json:"description"`
	IsCompleted bool   `json:"is_completed"`
	Priority    int    `json:"priority"`
	Due         *Due   `json:"due"`
	URL         string `json:"url"`
}

// Due carries a task's due information. Datetime is set for tasks due
// at a specific time, Date alone for all-day tasks. Both are the raw
// API strings; parsing happens in the normalizer.
type Due struct {
	Date        string `json:"date"`
	Datetime    string `json:"datetime"`
	String      string `json:"string"`
	IsRecurring bool   `json:"is_recurring"`
}

// CompletedItem is one entry of the sync v9 completed/get_all response.
// It references the underlying task by TaskID; full task detail needs a
// separate fetch.
type CompletedItem struct {
	ID          string `json:"id"`
	TaskID      string `json:"task_id"`
	Content     string `json:"content"`
	CompletedAt string `json:"completed_at"`
}
