// Package orgmode imports TODO headings from Org-mode files.
package orgmode

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// Source names tasks imported from Org-mode.
const Source = "orgmode"

var (
	headingRegex  = regexp.MustCompile(`^\*+\s+(TODO|NEXT|WAITING|DONE|CANCELLED|CANCELED)\s*(?:\[#([A-Z])\])?\s*(.*?)(?:\s+(:(\w+(:\w+)*):))?\s*$`)
	plainHeading  = regexp.MustCompile(`^\*+\s`)
	deadlineRegex = regexp.MustCompile(`DEADLINE:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?[^>]*>`)
	scheduleRegex = regexp.MustCompile(`SCHEDULED:\s+<(\d{4}-\d{2}-\d{2})(?:\s+[A-Za-z]{2,3})?(?:\s+(\d{1,2}:\d{2}))?[^>]*>`)
	propertyRegex = regexp.MustCompile(`^:([A-Za-z_]+):\s*(.*?)\s*$`)
)

var keywordStatus = map[string]model.Status{
	"TODO":      model.StatusTodo,
	"NEXT":      model.StatusTodo,
	"WAITING":   model.StatusWaiting,
	"DONE":      model.StatusDone,
	"CANCELLED": model.StatusCancelled,
	"CANCELED":  model.StatusCancelled,
}

var priorities = map[string]int{"A": 5, "B": 3, "C": 1}

// parseFile parses an Org-mode file and returns its tasks.
func parseFile(filePath string, loc *time.Location) ([]*model.Task, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return Parse(file, filePath, loc)
}

// ParseFiles parses multiple Org-mode files and returns their tasks in file order.
func ParseFiles(filePaths []string, loc *time.Location) ([]*model.Task, error) {
	var allTasks []*model.Task
	for _, filePath := range filePaths {
		tasks, err := parseFile(filePath, loc)
		if err != nil {
			return nil, errors.Wrapf(err, "parse %s", filePath)
		}
		allTasks = append(allTasks, tasks...)
	}
	return allTasks, nil
}

// Parse reads TODO headings from r. Timestamps are read in loc (UTC when nil).
// Headings without an :ID: property get an id derived from source and title,
// so importing the same file twice updates rather than duplicates.
//
// Recognised properties: ID, EFFORT, EFFORT_MAX, ENERGY, PROJECT, BLOCKED_BY,
// PRIVATE and PERCENT.
func Parse(r io.Reader, source string, loc *time.Location) ([]*model.Task, error) {
	if loc == nil {
		loc = time.UTC
	}
	scanner := bufio.NewScanner(r)
	var tasks []*model.Task
	var current *model.Task

	flush := func() error {
		if current == nil {
			return nil
		}
		task := current
		current = nil
		if task.ID == "" {
			task.ID = uuid.NewSHA1(uuid.NameSpaceURL, []byte(source+"#"+task.Title)).String()
		}
		if len(task.BlockedBy) > 0 && task.Status == model.StatusTodo {
			task.Status = model.StatusBlocked
		}
		if err := task.Validate(); err != nil {
			return err
		}
		tasks = append(tasks, task)
		return nil
	}

	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())

		if plainHeading.MatchString(line) {
			if err := flush(); err != nil {
				return nil, err
			}
			matches := headingRegex.FindStringSubmatch(line)
			if matches == nil {
				continue
			}
			current = model.NewTask(strings.TrimSpace(matches[3]))
			current.Source = Source
			current.Status = keywordStatus[matches[1]]
			if p, ok := priorities[matches[2]]; ok {
				current.Priority = p
			}
			if matches[4] != "" {
				current.Tags = strings.Split(strings.Trim(matches[4], ":"), ":")
			}
			continue
		}
		if current == nil {
			continue
		}

		if m := deadlineRegex.FindStringSubmatch(line); m != nil {
			due, err := parseTimestamp(m[1], m[2], loc)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
			}
			current.DueDate = &due
		}
		if m := scheduleRegex.FindStringSubmatch(line); m != nil && current.Status.IsActive() {
			ready, err := parseTimestamp(m[1], m[2], loc)
			if err != nil {
				return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
			}
			current.ReadySince = &ready
		}
		if m := propertyRegex.FindStringSubmatch(line); m != nil {
			if err := applyProperty(current, strings.ToUpper(m[1]), m[2]); err != nil {
				return nil, fmt.Errorf("%s:%d: %w", source, lineNo, err)
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}
	if err := flush(); err != nil {
		return nil, err
	}
	return tasks, nil
}

func applyProperty(t *model.Task, key, value string) error {
	var err error
	switch key {
	case "ID":
		t.ID = value
	case "EFFORT":
		t.DurationMin, err = parseEffort(value)
	case "EFFORT_MAX":
		t.DurationMax, err = parseEffort(value)
	case "ENERGY":
		t.EnergyRequired, err = strconv.Atoi(value)
	case "PERCENT":
		t.PercentComplete, err = strconv.Atoi(strings.TrimSuffix(value, "%"))
	case "PROJECT":
		t.ProjectID = value
	case "PRIVATE":
		t.IsPrivate = value == "t" || strings.EqualFold(value, "true") || strings.EqualFold(value, "yes")
	case "BLOCKED_BY":
		t.BlockedBy = strings.Fields(strings.ReplaceAll(value, ",", " "))
	}
	if err != nil {
		return fmt.Errorf("property %s: %w", key, err)
	}
	return nil
}

// parseEffort reads Org effort values: "1:30", "45" (minutes) or "1h30m".
func parseEffort(s string) (int, error) {
	if h, m, ok := strings.Cut(s, ":"); ok {
		hours, err := strconv.Atoi(h)
		if err != nil {
			return 0, err
		}
		mins, err := strconv.Atoi(m)
		if err != nil {
			return 0, err
		}
		return hours*60 + mins, nil
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	return int(d / time.Minute), nil
}

func parseTimestamp(date, clock string, loc *time.Location) (time.Time, error) {
	if clock == "" {
		return time.ParseInLocation("2006-01-02", date, loc)
	}
	return time.ParseInLocation("2006-01-02 15:04", date+" "+clock, loc)
}

// FilterTasks keeps the tasks carrying tag.
func FilterTasks(tasks []*model.Task, tag string) []*model.Task {
	var filteredTasks []*model.Task
	for _, task := range tasks {
		for _, t := range task.Tags {
			if t == tag {
				filteredTasks = append(filteredTasks, task)
				break
			}
		}
	}
	return filteredTasks
}
