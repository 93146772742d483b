package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harrisonrobin/taskplan/pkg/clock"
	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/scoring"
)

var now = time.Date(2026, 3, 4, 8, 0, 0, 0, time.UTC)

// harness runs commands against a configuration and store in a temp dir.
type harness struct {
	t      *testing.T
	dir    string
	config string
	app    *app
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: error\n"), 0o600))
	return &harness{
		t:      t,
		dir:    dir,
		config: path,
		app:    &app{flags: &GlobalFlags{}, clock: clock.Fixed(now)},
	}
}

func (h *harness) write(name, body string) string {
	h.t.Helper()
	path := filepath.Join(h.dir, name)
	require.NoError(h.t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func (h *harness) runWithInput(in string, args ...string) (string, error) {
	cmd := newRootCmd(h.app)
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetIn(strings.NewReader(in))
	cmd.SetArgs(append([]string{"--config", h.config}, args...))
	err := cmd.ExecuteContext(h.t.Context())
	return out.String(), err
}

func (h *harness) run(args ...string) (string, error) {
	return h.runWithInput("", args...)
}

func (h *harness) mustRun(args ...string) string {
	h.t.Helper()
	out, err := h.run(args...)
	require.NoError(h.t, err, "taskplan %s", strings.Join(args, " "))
	return out
}

func (h *harness) addTask(args ...string) string {
	h.t.Helper()
	return strings.TrimSpace(h.mustRun(append([]string{"add"}, args...)...))
}

func (h *harness) listTasks() map[string]taskView {
	h.t.Helper()
	var views []taskView
	require.NoError(h.t, json.Unmarshal([]byte(h.mustRun("list", "--json")), &views))
	out := make(map[string]taskView, len(views))
	for _, v := range views {
		out[v.ID] = v
	}
	return out
}

func TestRootCmd_Help(t *testing.T) {
	h := newHarness(t)
	out, err := h.run("--help")
	require.NoError(t, err)
	for _, want := range []string{"taskplan", "plan", "complete", "daemon", "--config", "--json"} {
		assert.Contains(t, out, want)
	}
}

func TestAddActivateComplete(t *testing.T) {
	h := newHarness(t)

	first := h.addTask("Write", "report", "--min", "60", "--activate")
	second := h.addTask("Ship report", "--blocked-by", first, "--activate")
	inbox := h.addTask("Someday")

	tasks := h.listTasks()
	require.Len(t, tasks, 3)
	assert.Equal(t, "Write report", tasks[first].Title)
	assert.Equal(t, "todo", tasks[first].Status)
	assert.Equal(t, 60, tasks[first].Minutes)
	assert.Equal(t, "blocked", tasks[second].Status)
	assert.Equal(t, []string{first}, tasks[second].BlockedBy)
	assert.Equal(t, "inbox", tasks[inbox].Status)

	out := h.mustRun("complete", first)
	assert.Contains(t, out, "Completed Write report")
	assert.Contains(t, out, "Unlocked Ship report ("+second+")")

	tasks = h.listTasks()
	assert.Equal(t, "done", tasks[first].Status)
	assert.Equal(t, "todo", tasks[second].Status)

	out = h.mustRun("list", "--status", "todo")
	assert.Contains(t, out, "Ship report")
	assert.NotContains(t, out, "Someday")
}

func TestComplete_UnknownTask(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("complete", "missing")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrTaskNotFound))
}

func TestAdd_RejectsBadPriority(t *testing.T) {
	h := newHarness(t)
	_, err := h.run("add", "Bad", "--priority", "9")
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTask))
}

func TestForceTodayAndResume(t *testing.T) {
	h := newHarness(t)
	id := h.addTask("Call bank", "--activate")

	out := h.mustRun("force-today", id)
	assert.Contains(t, out, "Call bank is due today")
	tasks := h.listTasks()
	assert.Equal(t, "scheduled", tasks[id].Status)
	assert.Equal(t, 5, tasks[id].Priority)

	_, err := h.run("resume", id)
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrInvalidTransition))
}

func TestPlan_StoreWithEventsFile(t *testing.T) {
	h := newHarness(t)
	report := h.addTask("Write report", "--min", "60", "--priority", "4", "--activate")
	review := h.addTask("Review", "--min", "30", "--activate")
	walk := h.addTask("Walk", "--min", "45", "--private", "--activate")
	events := h.write("busy.yaml", `
events:
  - title: Lunch
    start: 2026-03-04T12:00:00Z
    end: 2026-03-04T13:00:00Z
`)

	out := h.mustRun("plan", "--date", "2026-03-04", "--events", events, "--json")
	var days []dayView
	require.NoError(t, json.Unmarshal([]byte(out), &days))
	require.Len(t, days, 1)
	day := days[0]
	assert.Equal(t, "2026-03-04", day.Date)
	require.Len(t, day.Fixed, 1)
	assert.Equal(t, "Lunch", day.Fixed[0].Title)
	assert.Empty(t, day.Backlog)
	assert.Nil(t, day.Published)

	lunchStart := time.Date(2026, 3, 4, 12, 0, 0, 0, time.UTC)
	lunchEnd := lunchStart.Add(time.Hour)
	require.Len(t, day.Work, 2)
	ids := map[string]bool{}
	for _, it := range day.Work {
		ids[it.TaskID] = true
		assert.False(t, it.Start.Before(time.Date(2026, 3, 4, 9, 0, 0, 0, time.UTC)))
		assert.False(t, it.End.After(time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)))
		assert.True(t, !it.Start.Before(lunchEnd) || !it.End.After(lunchStart), "%s overlaps lunch", it.Title)
	}
	assert.True(t, ids[report] && ids[review])

	require.Len(t, day.Personal, 1)
	assert.Equal(t, walk, day.Personal[0].TaskID)
	assert.False(t, day.Personal[0].Start.Before(time.Date(2026, 3, 4, 17, 0, 0, 0, time.UTC)))
}

func TestPlan_FileSourceText(t *testing.T) {
	h := newHarness(t)
	tasks := h.write("tasks.yaml", `
tasks:
  - id: deck
    title: Build deck
    duration_min: 90
  - id: huge
    title: Rewrite everything
    duration_min: 600
`)

	out := h.mustRun("plan", "--date", "2026-03-04", "--source", "file", "--tasks", tasks, "--lunch")
	assert.Contains(t, out, "Plan for 2026-03-04 (Wednesday)")
	assert.Contains(t, out, "Lunch")
	assert.Contains(t, out, "Build deck")
	assert.Contains(t, out, "(nothing scheduled)")
	assert.Contains(t, out, "Backlog (1)")
	assert.Contains(t, out, "Rewrite everything")
}

func TestPlan_Week(t *testing.T) {
	h := newHarness(t)
	h.addTask("One", "--min", "30", "--activate")

	var days []dayView
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("plan", "--date", "2026-03-02", "--week", "--json")), &days))
	require.Len(t, days, 7)
	assert.Equal(t, "2026-03-02", days[0].Date)
	assert.Equal(t, "2026-03-08", days[6].Date)
	assert.Len(t, days[0].Work, 1)
	for _, d := range days[1:] {
		assert.Empty(t, d.Work)
	}
}

func TestPlan_BadInput(t *testing.T) {
	h := newHarness(t)

	_, err := h.run("plan", "--date", "04/03/2026")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = h.run("plan", "--source", "file")
	assert.True(t, errors.Is(err, errors.ErrInvalidInput))

	_, err = h.run("plan", "--source", "jira")
	assert.True(t, errors.Is(err, errors.ErrUnknownSource))

	_, err = h.run("plan", "--lunch", "--events", "x.yaml")
	assert.Error(t, err)
}

func TestExplain(t *testing.T) {
	h := newHarness(t)
	id := h.addTask("Tidy", "--min", "60", "--priority", "5", "--energy", "1", "--activate")

	var b scoring.Breakdown
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("explain", id, "--json")), &b))
	w := scoring.DefaultWeights()
	assert.InDelta(t, w.Priority, b.Priority, 1e-9)
	assert.InDelta(t, w.EnergyMatch/3, b.EnergyMatch, 1e-9)
	assert.Zero(t, b.Urgency)
	assert.Positive(t, b.Total)

	out := h.mustRun("explain", id)
	assert.Contains(t, out, "Tidy ("+id+")")
	assert.Contains(t, out, "total")
}

func TestProjectCPMAndPredict(t *testing.T) {
	h := newHarness(t)
	goal := strings.TrimSpace(h.mustRun("goal", "Grow", "--deadline", "2026-06-30"))
	require.NotEmpty(t, goal)
	assert.Equal(t, "p1", strings.TrimSpace(h.mustRun("project", "Launch", "--id", "p1", "--goal", goal)))

	a := h.addTask("Design", "--project", "p1", "--min", "10", "--activate")
	b := h.addTask("Build", "--project", "p1", "--min", "20", "--blocked-by", a, "--activate")
	side := h.addTask("Docs", "--project", "p1", "--min", "5", "--activate")

	var nodes []nodeView
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("cpm", "p1", "--json")), &nodes))
	require.Len(t, nodes, 3)
	byID := map[string]nodeView{}
	for _, n := range nodes {
		byID[n.TaskID] = n
	}
	assert.Equal(t, nodeView{TaskID: a, Duration: 10, ES: 0, EF: 10, LS: 0, LF: 10, Float: 0, Critical: true}, byID[a])
	assert.Equal(t, nodeView{TaskID: b, Duration: 20, ES: 10, EF: 30, LS: 10, LF: 30, Float: 0, Critical: true}, byID[b])
	assert.Equal(t, 25, byID[side].Float)
	assert.False(t, byID[side].Critical)

	tasks := h.listTasks()
	assert.Equal(t, "p1", tasks[a].ProjectID)

	// 35 minutes at 20 a day runs into Friday.
	var prediction map[string]string
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("predict", "p1", "--from", "2026-03-04", "--capacity", "20", "--json")), &prediction))
	assert.Equal(t, "2026-03-06", prediction["completion"])
	out := h.mustRun("predict", "p1", "--from", "2026-03-05", "--capacity", "15")
	assert.Contains(t, out, "2026-03-10 (Tuesday)")
}

func TestImportYAML(t *testing.T) {
	h := newHarness(t)
	path := h.write("tasks.yaml", `
tasks:
  - id: a
    title: Alpha
  - id: b
    title: Beta
    status: blocked
    blocked_by: [a]
`)
	assert.Contains(t, h.mustRun("import", "yaml", path), "Imported 2 tasks from file")
	// Importing again updates in place.
	h.mustRun("import", "yaml", path)

	tasks := h.listTasks()
	require.Len(t, tasks, 2)
	assert.Equal(t, "todo", tasks["a"].Status)
	assert.Equal(t, "blocked", tasks["b"].Status)
}

func TestImportOrg(t *testing.T) {
	h := newHarness(t)
	path := h.write("work.org", `* TODO [#A] Prepare talk :work:
  :PROPERTIES:
  :ID: talk
  :EFFORT: 1:30
  :END:
* TODO Water plants :home:
* DONE Old thing
`)
	assert.Contains(t, h.mustRun("import", "org", path, "--tag", "work"), "Imported 1 tasks from orgmode")
	tasks := h.listTasks()
	require.Len(t, tasks, 1)
	assert.Equal(t, "Prepare talk", tasks["talk"].Title)
	assert.Equal(t, 5, tasks["talk"].Priority)
	assert.Equal(t, 90, tasks["talk"].Minutes)
}

func TestHook(t *testing.T) {
	h := newHarness(t)

	added := `{"uuid":"a-1","description":"Draft","status":"pending","est":"PT1H","entry":"20260301T090000Z"}`
	out, err := h.runWithInput(added+"\n", "hook")
	require.NoError(t, err)
	assert.Equal(t, added+"\n", out)

	dependent := `{"uuid":"b-2","description":"Publish","status":"pending","depends":"a-1","entry":"20260301T090000Z"}`
	_, err = h.runWithInput(dependent+"\n", "hook")
	require.NoError(t, err)

	tasks := h.listTasks()
	assert.Equal(t, "blocked", tasks["b-2"].Status)
	assert.Equal(t, "todo", tasks["a-1"].Status)
	assert.Equal(t, 60, tasks["a-1"].Minutes)

	completed := `{"uuid":"a-1","description":"Draft","status":"completed","est":"PT1H","entry":"20260301T090000Z","end":"20260304T100000Z"}`
	out, err = h.runWithInput(added+"\n"+completed+"\n", "hook")
	require.NoError(t, err)
	assert.Equal(t, completed+"\n", out)

	tasks = h.listTasks()
	assert.Equal(t, "done", tasks["a-1"].Status)
	assert.Equal(t, "todo", tasks["b-2"].Status)

	// A later edit still lists the completed dependency.
	edited := `{"uuid":"b-2","description":"Publish v2","status":"pending","depends":"a-1","entry":"20260301T090000Z"}`
	_, err = h.runWithInput(dependent+"\n"+edited+"\n", "hook")
	require.NoError(t, err)

	tasks = h.listTasks()
	assert.Equal(t, "todo", tasks["b-2"].Status)
	assert.Equal(t, "Publish v2", tasks["b-2"].Title)
}

func TestHook_UnknownDependencyDoesNotBlock(t *testing.T) {
	h := newHarness(t)
	line := `{"uuid":"c-3","description":"Ship","status":"pending","depends":"never-imported","entry":"20260301T090000Z"}`
	_, err := h.runWithInput(line+"\n", "hook")
	require.NoError(t, err)
	assert.Equal(t, "todo", h.listTasks()["c-3"].Status)
}

func TestHook_BadTaskStillEchoes(t *testing.T) {
	h := newHarness(t)
	line := `{"description":"no uuid","status":"pending"}`
	out, err := h.runWithInput(line+"\n", "hook")
	require.NoError(t, err)
	assert.Equal(t, line+"\n", out)
	assert.Empty(t, h.listTasks())
}

func TestConfig_SetCalendarAndShow(t *testing.T) {
	h := newHarness(t)
	assert.Contains(t, h.mustRun("config", "set-calendar", "Plan"), "Plan calendar set to: Plan")

	var v configView
	require.NoError(t, json.Unmarshal([]byte(h.mustRun("config", "show", "--json")), &v))
	assert.Equal(t, "Plan", v.Calendar.Name)
	assert.Equal(t, "09:00", v.Profile.WorkStart)
	assert.Equal(t, filepath.Join(h.dir, "taskplan.db"), v.Store.Path)
	assert.Equal(t, "error", v.Log.Level)

	out := h.mustRun("config", "show")
	assert.Regexp(t, `work_end: "?17:00"?`, out)
	assert.Contains(t, out, "name: Plan")
}
