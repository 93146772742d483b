package google

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/harrisonrobin/taskplan/pkg/errors"
	"github.com/harrisonrobin/taskplan/pkg/index"
	"github.com/harrisonrobin/taskplan/pkg/model"
)

// fakeAPI serves the subset of the Calendar API the client calls.
type fakeAPI struct {
	mu      sync.Mutex
	busy    []*calendar.Event
	plan    map[string]*calendar.Event
	nextID  int
	inserts int
	patches int
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{plan: make(map[string]*calendar.Event)}
}

func (f *fakeAPI) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /users/me/calendarList", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, &calendar.CalendarList{Items: []*calendar.CalendarListEntry{
			{Id: "primary", Summary: "me@example.com"},
			{Id: "plan-cal", Summary: "Plan"},
		}})
	})
	mux.HandleFunc("GET /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		if prop := r.URL.Query().Get("privateExtendedProperty"); prop != "" {
			var items []*calendar.Event
			for _, ev := range f.plan {
				if fmt.Sprintf("%s=%s", PropertyKey, TaskIDFromEvent(ev)) == prop {
					items = append(items, ev)
				}
			}
			writeJSON(w, &calendar.Events{Items: items})
			return
		}
		writeJSON(w, &calendar.Events{Items: f.busy})
	})
	mux.HandleFunc("GET /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		ev, ok := f.plan[r.PathValue("id")]
		if !ok {
			http.Error(w, `{"error":{"code":404,"message":"Not Found"}}`, http.StatusNotFound)
			return
		}
		writeJSON(w, ev)
	})
	mux.HandleFunc("POST /calendars/{cal}/events", func(w http.ResponseWriter, r *http.Request) {
		var ev calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&ev); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		f.nextID++
		f.inserts++
		ev.Id = fmt.Sprintf("ev%d", f.nextID)
		f.plan[ev.Id] = &ev
		writeJSON(w, &ev)
	})
	mux.HandleFunc("PATCH /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		var patch calendar.Event
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		defer f.mu.Unlock()
		ev, ok := f.plan[r.PathValue("id")]
		if !ok {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		f.patches++
		if patch.Summary != "" {
			ev.Summary = patch.Summary
		}
		if patch.Description != "" {
			ev.Description = patch.Description
		}
		if patch.ColorId != "" {
			ev.ColorId = patch.ColorId
		}
		if patch.Start != nil {
			ev.Start, ev.End = patch.Start, patch.End
		}
		writeJSON(w, ev)
	})
	mux.HandleFunc("DELETE /calendars/{cal}/events/{id}", func(w http.ResponseWriter, r *http.Request) {
		f.mu.Lock()
		defer f.mu.Unlock()
		delete(f.plan, r.PathValue("id"))
		w.WriteHeader(http.StatusNoContent)
	})
	return mux
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newService(t *testing.T, api *fakeAPI) *calendar.Service {
	t.Helper()
	srv := httptest.NewServer(api.handler())
	t.Cleanup(srv.Close)
	svc, err := calendar.NewService(t.Context(), option.WithEndpoint(srv.URL+"/"), option.WithHTTPClient(srv.Client()))
	require.NoError(t, err)
	return svc
}

func newTestClient(t *testing.T, api *fakeAPI) (*CalendarClient, *index.EventIndex) {
	t.Helper()
	idx, err := index.New(filepath.Join(t.TempDir(), index.FileName))
	require.NoError(t, err)
	c, err := NewClient(t.Context(), newService(t, api), Options{PlanCalendar: "Plan", Index: idx, Logger: zerolog.Nop()})
	require.NoError(t, err)
	return c, idx
}

func TestNewClient_UnknownCalendar(t *testing.T) {
	_, err := NewClient(t.Context(), newService(t, newFakeAPI()), Options{PlanCalendar: "Nope"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, errors.ErrCalendarNotFound))
}

func TestEvents_FiltersAndSorts(t *testing.T) {
	api := newFakeAPI()
	api.busy = []*calendar.Event{
		{Id: "b", Summary: "Review", Start: &calendar.EventDateTime{DateTime: "2026-03-02T14:00:00Z"}, End: &calendar.EventDateTime{DateTime: "2026-03-02T15:00:00Z"}},
		{Id: "a", Summary: "Standup", Start: &calendar.EventDateTime{DateTime: "2026-03-02T09:00:00Z"}, End: &calendar.EventDateTime{DateTime: "2026-03-02T09:15:00Z"}},
		{Id: "d", Summary: "Holiday", Start: &calendar.EventDateTime{Date: "2026-03-02"}, End: &calendar.EventDateTime{Date: "2026-03-03"}},
		{Id: "p", Summary: "Plan item", Start: &calendar.EventDateTime{DateTime: "2026-03-02T11:00:00Z"}, End: &calendar.EventDateTime{DateTime: "2026-03-02T12:00:00Z"},
			ExtendedProperties: &calendar.EventExtendedProperties{Private: map[string]string{PropertyKey: "t1"}}},
	}
	c, _ := newTestClient(t, api)

	events, err := c.Events(t.Context(), time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, events, 2)
	assert.Equal(t, "Standup", events[0].Title)
	assert.Equal(t, "Review", events[1].Title)
}

func TestSyncItem_InsertThenNoop(t *testing.T) {
	api := newFakeAPI()
	c, idx := newTestClient(t, api)

	task := model.NewTask("Write report")
	task.ID = "t1"
	it := item(task, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 60)

	ev, err := c.SyncItem(t.Context(), it, "3")
	require.NoError(t, err)
	assert.Equal(t, "ev1", ev.Id)
	assert.Equal(t, "ev1", idx.Get("t1"))

	_, err = c.SyncItem(t.Context(), it, "3")
	require.NoError(t, err)
	assert.Equal(t, 1, api.inserts)
	assert.Equal(t, 0, api.patches)
}

func TestSyncItem_PatchesMovedItem(t *testing.T) {
	api := newFakeAPI()
	c, idx := newTestClient(t, api)

	task := model.NewTask("Write report")
	task.ID = "t1"
	_, err := c.SyncItem(t.Context(), item(task, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 60), "3")
	require.NoError(t, err)

	// Forget the mapping so the second sync has to find the event by property.
	idx.Remove("t1")
	ev, err := c.SyncItem(t.Context(), item(task, time.Date(2026, 3, 2, 13, 0, 0, 0, time.UTC), 60), "3")
	require.NoError(t, err)
	assert.Equal(t, 1, api.inserts)
	assert.Equal(t, 1, api.patches)
	assert.Equal(t, "2026-03-02T13:00:00Z", ev.Start.DateTime)
	assert.Equal(t, "ev1", idx.Get("t1"))
}

func TestMarkOverdueAndDelete(t *testing.T) {
	api := newFakeAPI()
	c, _ := newTestClient(t, api)

	task := model.NewTask("Email")
	task.ID = "t2"
	ev, err := c.SyncItem(t.Context(), item(task, time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC), 30), "3")
	require.NoError(t, err)

	require.NoError(t, c.MarkOverdue(t.Context(), ev.Id, "Email"))
	assert.True(t, strings.HasPrefix(api.plan[ev.Id].Summary, "! "))

	require.NoError(t, c.DeleteEvent(t.Context(), ev.Id))
	assert.Empty(t, api.plan)
}

func TestSyncItem_NoPlanCalendar(t *testing.T) {
	c := NewCalendarClient(newService(t, newFakeAPI()), "", nil, nil, zerolog.Nop())
	task := model.NewTask("x")
	_, err := c.SyncItem(t.Context(), item(task, time.Now(), 30), "1")
	assert.True(t, errors.Is(err, errors.ErrCalendarNotFound))
}
