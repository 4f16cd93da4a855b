package render

import (
	"strings"
	"testing"
	"time"

	"todoist-git-sync/internal/model"
)

var demoProject = Project{Name: "Demo", URL: "https://x/demo"}

// now is a Monday; tasks due before this week are overdue.
var now = time.Date(2026, 8, 24, 12, 0, 0, 0, time.UTC)

func task(id, title string, opts ...func(*model.TaskInfo)) model.TaskInfo {
	info := model.TaskInfo{
		ID:       id,
		URL:      "https://x/" + id,
		Title:    title,
		Priority: 1,
	}
	for _, opt := range opts {
		opt(&info)
	}
	return info
}

func completed(info *model.TaskInfo) { info.IsCompleted = true }

func due(date string) func(*model.TaskInfo) {
	return func(info *model.TaskInfo) {
		t, err := time.Parse("2006-01-02", date)
		if err != nil {
			panic(err)
		}
		info.DueAt = &t
	}
}

func priority(p int) func(*model.TaskInfo) {
	return func(info *model.TaskInfo) { info.Priority = p }
}

func describe(text string) func(*model.TaskInfo) {
	return func(info *model.TaskInfo) { info.Description = &text }
}

func TestDocumentGolden(t *testing.T) {
	completedTasks := []model.TaskInfo{task("1", "Write spec", completed)}
	openTasks := []model.TaskInfo{task("2", "Plan")}

	got := Document(demoProject, completedTasks, openTasks, now)
	want := "# Roadmap\n" +
		"\n" +
		"Tasks automatically exported from Todoist project [Demo](https://x/demo).\n" +
		"\n" +
		"Jump to [future tasks](#future-tasks) or to the [backlog](#backlog).\n" +
		"\n" +
		"## Completed tasks\n" +
		"\n" +
		"<details>\n" +
		"<summary>Show completed tasks</summary>\n" +
		"\n" +
		"- [x] Write spec [🔗][1]\n" +
		"\n" +
		"</details>\n" +
		"\n" +
		"## Overdue tasks\n" +
		"\n" +
		"## Future tasks\n" +
		"\n" +
		"## Backlog\n" +
		"\n" +
		"- [ ] Plan [🔗][2]\n" +
		"\n" +
		"\n" +
		"[1]: https://x/1\n" +
		"[2]: https://x/2\n"
	if got != want {
		t.Errorf("document mismatch\ngot:\n%s\nwant:\n%s", got, want)
	}
}

func TestDocumentIdempotent(t *testing.T) {
	completedTasks := []model.TaskInfo{task("1", "Write spec", completed)}
	openTasks := []model.TaskInfo{
		task("2", "Plan"),
		task("3", "Ship", due("2026-08-26"), priority(4)),
	}
	first := Document(demoProject, completedTasks, openTasks, now)
	second := Document(demoProject, completedTasks, openTasks, now)
	if first != second {
		t.Error("rendering the same input twice produced different output")
	}
}

func TestPriorityMarkers(t *testing.T) {
	tests := []struct {
		priority int
		want     string
	}{
		{1, "- [ ] T [🔗][9]\n"},
		{2, "- [ ] T ❕ [🔗][9]\n"},
		{3, "- [ ] T ❕ [🔗][9]\n"},
		{4, "- [ ] T ❗ [🔗][9]\n"},
		{5, "- [ ] T ❗ [🔗][9]\n"},
	}
	for _, tt := range tests {
		got := taskLine(task("9", "T", priority(tt.priority)))
		if got != tt.want {
			t.Errorf("priority %d: got %q, want %q", tt.priority, got, tt.want)
		}
	}
}

func TestTaskLineWithoutDescription(t *testing.T) {
	got := taskLine(task("7", "Bare"))
	if !strings.HasSuffix(got, "[🔗][7]\n") {
		t.Errorf("line without description must end at the link reference, got %q", got)
	}
	if strings.Contains(got, "  \n") {
		t.Errorf("line without description must not carry a hard break, got %q", got)
	}
}

func TestTaskLineDescriptionIndented(t *testing.T) {
	got := taskLine(task("7", "Detailed", describe("first line\nsecond line")))
	want := "- [ ] Detailed [🔗][7]  \n    first line\n    second line\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestTaskLineDescriptionParagraphBreaks(t *testing.T) {
	// A blank-line paragraph break collapses to one hard break so the
	// description stays a single indented block under the list item.
	got := taskLine(task("7", "Detailed", describe("first paragraph\n\nsecond paragraph")))
	want := "- [ ] Detailed [🔗][7]  \n    first paragraph  \n    second paragraph\n"
	if got != want {
		t.Errorf("got %q, want %q", got, want)
	}
	if strings.Contains(got, "\n\n") {
		t.Errorf("paragraph break survived normalization: %q", got)
	}
}

func TestWeekGrouping(t *testing.T) {
	// Monday and the following Sunday share a group; the next Monday
	// starts a new one.
	openTasks := []model.TaskInfo{
		task("1", "A", due("2026-08-24")),
		task("2", "B", due("2026-08-30")),
		task("3", "C", due("2026-08-31")),
	}
	got := Document(demoProject, nil, openTasks, now)

	headers := strings.Count(got, "### From ")
	if headers != 2 {
		t.Fatalf("expected 2 week groups, got %d\n%s", headers, got)
	}
	if !strings.Contains(got, "### From 2026/08/24 to 2026/08/30\n\n- [ ] A [🔗][1]\n- [ ] B [🔗][2]\n") {
		t.Errorf("first week group wrong:\n%s", got)
	}
	if !strings.Contains(got, "### From 2026/08/31 to 2026/09/06\n\n- [ ] C [🔗][3]\n") {
		t.Errorf("second week group wrong:\n%s", got)
	}
}

func TestOverdueFutureSplit(t *testing.T) {
	openTasks := []model.TaskInfo{
		task("1", "Late", due("2026-08-19")),  // previous week
		task("2", "Soon", due("2026-08-26")),  // current week
		task("3", "Later", due("2026-09-02")), // next week
		task("4", "Someday"),                  // backlog
	}
	got := Document(demoProject, nil, openTasks, now)

	overdueSection := between(t, got, "## Overdue tasks", "## Future tasks")
	futureSection := between(t, got, "## Future tasks", "## Backlog")
	backlogSection := between(t, got, "## Backlog", "\n\n[")

	if !strings.Contains(overdueSection, "Late") || strings.Contains(overdueSection, "Soon") {
		t.Errorf("overdue section wrong: %q", overdueSection)
	}
	if !strings.Contains(futureSection, "Soon") || !strings.Contains(futureSection, "Later") {
		t.Errorf("future section wrong: %q", futureSection)
	}
	if strings.Contains(futureSection, "Late ") {
		t.Errorf("overdue task leaked into future section: %q", futureSection)
	}
	if !strings.Contains(backlogSection, "Someday") {
		t.Errorf("backlog section wrong: %q", backlogSection)
	}

	// A current-week task lands in future, never overdue: the cutoff is
	// week >= current week.
	if strings.Contains(overdueSection, "Soon") {
		t.Error("current-week task classified as overdue")
	}
}

func TestReferenceBlockOrder(t *testing.T) {
	completedTasks := []model.TaskInfo{task("c1", "Done", completed)}
	openTasks := []model.TaskInfo{
		task("o1", "First", due("2026-08-26")),
		task("o2", "Second"),
	}
	got := Document(demoProject, completedTasks, openTasks, now)

	refs := got[strings.LastIndex(got, "\n\n")+2:]
	want := "[c1]: https://x/c1\n[o1]: https://x/o1\n[o2]: https://x/o2\n"
	if refs != want {
		t.Errorf("reference block = %q, want %q", refs, want)
	}
}

// between returns the slice of s strictly between the first occurrence
// of start and the next occurrence of end.
func between(t *testing.T, s, start, end string) string {
	t.Helper()
	i := strings.Index(s, start)
	if i < 0 {
		t.Fatalf("marker %q not found", start)
	}
	rest := s[i+len(start):]
	j := strings.Index(rest, end)
	if j < 0 {
		t.Fatalf("marker %q not found after %q", end, start)
	}
	return rest[:j]
}
