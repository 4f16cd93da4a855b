// Package render turns normalized task records into the exported
// Markdown roadmap. Document is a pure function: identical input yields
// byte-identical output.
package render

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"todoist-git-sync/internal/model"
)

// Project identifies the exported project in the document summary line.
type Project struct {
	Name string
	URL  string
}

// weekGroup is a run of scheduled tasks sharing a week number.
type weekGroup struct {
	week  int
	tasks []model.TaskInfo
}

// blankRun matches the blank-line paragraph breaks that are collapsed
// to a single hard line break inside descriptions, keeping the whole
// description one indented block under its list item.
var blankRun = regexp.MustCompile(`\n{2,}`)

// Document renders the full roadmap. Open tasks split into backlog (no
// due date) and scheduled; scheduled tasks group by week of their due
// date and land in the overdue or future section depending on how their
// week compares to now's week. Completed tasks render collapsed. The
// trailing reference block maps every task id to its url, completed
// tasks first.
func Document(project Project, completed, open []model.TaskInfo, now time.Time) string {
	var backlog, scheduled []model.TaskInfo
	for _, task := range open {
		if task.DueAt == nil {
			backlog = append(backlog, task)
		} else {
			scheduled = append(scheduled, task)
		}
	}

	currentWeek := model.WeekNumber(now)
	var overdue, future []weekGroup
	for _, group := range groupByWeek(scheduled) {
		if group.week < currentWeek {
			overdue = append(overdue, group)
		} else {
			future = append(future, group)
		}
	}

	var b strings.Builder
	b.WriteString("# Roadmap\n\n")
	fmt.Fprintf(&b,
		"Tasks automatically exported from Todoist project [%s](%s).\n\n",
		project.Name, project.URL)
	b.WriteString("Jump to [future tasks](#future-tasks) or to the [backlog](#backlog).\n\n")

	b.WriteString("## Completed tasks\n\n")
	b.WriteString("<details>\n<summary>Show completed tasks</summary>\n\n")
	for _, task := range completed {
		b.WriteString(taskLine(task))
	}
	b.WriteString("\n</details>\n\n")

	b.WriteString("## Overdue tasks\n\n")
	writeWeekGroups(&b, overdue)
	b.WriteString("## Future tasks\n\n")
	writeWeekGroups(&b, future)

	b.WriteString("## Backlog\n\n")
	for _, task := range backlog {
		b.WriteString(taskLine(task))
	}

	b.WriteString("\n\n")
	for _, task := range completed {
		b.WriteString(refLine(task))
	}
	for _, task := range open {
		b.WriteString(refLine(task))
	}
	return b.String()
}

// groupByWeek collects consecutive tasks sharing a week number into
// groups, in list order. The input is already ordered by the source, so
// group order follows task order, not week value.
func groupByWeek(scheduled []model.TaskInfo) []weekGroup {
	var groups []weekGroup
	for _, task := range scheduled {
		week := model.WeekNumber(*task.DueAt)
		if n := len(groups); n > 0 && groups[n-1].week == week {
			groups[n-1].tasks = append(groups[n-1].tasks, task)
			continue
		}
		groups = append(groups, weekGroup{week: week, tasks: []model.TaskInfo{task}})
	}
	return groups
}

func writeWeekGroups(b *strings.Builder, groups []weekGroup) {
	for _, group := range groups {
		start, end := model.WeekBounds(*group.tasks[0].DueAt)
		fmt.Fprintf(b, "### From %s to %s\n\n",
			start.Format("2006/01/02"), end.Format("2006/01/02"))
		for _, task := range group.tasks {
			b.WriteString(taskLine(task))
		}
		b.WriteString("\n")
	}
}

// taskLine renders one checklist line: checkbox, title, urgency marker
// for priority 2+ (4+ gets the strong glyph), the link icon referencing
// the task id, and the indented description block when present.
func taskLine(task model.TaskInfo) string {
	checkbox := " "
	if task.IsCompleted {
		checkbox = "x"
	}
	marker := ""
	switch {
	case task.Priority >= 4:
		marker = " ❗"
	case task.Priority >= 2:
		marker = " ❕"
	}
	line := fmt.Sprintf("- [%s] %s%s [🔗][%s]", checkbox, task.Title, marker, task.ID)
	if task.Description != nil {
		normalized := blankRun.ReplaceAllString(*task.Description, "  \n")
		line += "  \n" + indent(normalized, "    ")
	}
	return line + "\n"
}

func refLine(task model.TaskInfo) string {
	return fmt.Sprintf("[%s]: %s\n", task.ID, task.URL)
}

// indent prefixes every non-empty line of s.
func indent(s, prefix string) string {
	lines := strings.Split(s, "\n")
	for i, line := range lines {
		if line != "" {
			lines[i] = prefix + line
		}
	}
	return strings.Join(lines, "\n")
}
