package dashboard

import (
	"bufio"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestBroadcastHookDeliversOnlyMatchingScope(t *testing.T) {
	hook := NewBroadcastHook()
	mine, cancelMine := hook.Subscribe("token-a")
	defer cancelMine()
	theirs, cancelTheirs := hook.Subscribe("token-b")
	defer cancelTheirs()

	event := QueryEvent{Resource: ResourceUsers, Status: QueryStatusSuccess, Scope: "token-a"}
	if err := hook.QueryUpdated(context.Background(), event); err != nil {
		t.Fatalf("QueryUpdated returned error: %v", err)
	}
	select {
	case e := <-mine:
		if e.Resource != ResourceUsers {
			t.Fatalf("expected resource %s, got %s", ResourceUsers, e.Resource)
		}
	default:
		t.Fatalf("expected event to be delivered")
	}
	select {
	case e := <-theirs:
		t.Fatalf("event leaked to another scope: %#v", e)
	default:
	}
}

func TestBroadcastHookCancelClosesChannel(t *testing.T) {
	hook := NewBroadcastHook()
	ch, cancel := hook.Subscribe("token-a")
	cancel()
	cancel()
	if _, ok := <-ch; ok {
		t.Fatalf("expected closed channel")
	}
	if hook.Subscribers() != 0 {
		t.Fatalf("expected no subscribers, got %d", hook.Subscribers())
	}
}

func TestQueryEventOmitsZeroUpdatedAt(t *testing.T) {
	raw, err := json.Marshal(QueryEvent{Resource: ResourceUsers, Status: QueryStatusLoading, Scope: "token-a"})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if strings.Contains(string(raw), "updated_at") {
		t.Fatalf("loading event should not carry updated_at: %s", raw)
	}
	if strings.Contains(string(raw), "token-a") {
		t.Fatalf("scope leaked into payload: %s", raw)
	}
}

func TestBroadcastHookServeSSEFramesEvents(t *testing.T) {
	hook := NewBroadcastHook()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hook.ServeSSE(w, r, "token-a")
	}))
	defer server.Close()

	res, err := http.Get(server.URL)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	defer res.Body.Close()
	if ct := res.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("unexpected content type %q", ct)
	}

	deadline := time.Now().Add(2 * time.Second)
	for hook.Subscribers() == 0 {
		if time.Now().After(deadline) {
			t.Fatalf("stream never subscribed")
		}
		time.Sleep(5 * time.Millisecond)
	}
	_ = hook.QueryUpdated(context.Background(), QueryEvent{Resource: ResourceSales, Status: QueryStatusSuccess, Scope: "token-b"})
	_ = hook.QueryUpdated(context.Background(), QueryEvent{Resource: ResourceUsers, Status: QueryStatusSuccess, Scope: "token-a"})

	reader := bufio.NewReader(res.Body)
	line, err := reader.ReadString('\n')
	if err != nil || line != "event: query\n" {
		t.Fatalf("expected event line, got %q (%v)", line, err)
	}
	line, err = reader.ReadString('\n')
	if err != nil || !strings.HasPrefix(line, "data: ") {
		t.Fatalf("expected data line, got %q (%v)", line, err)
	}
	var event QueryEvent
	if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &event); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if event.Resource != ResourceUsers || event.Status != QueryStatusSuccess {
		t.Fatalf("unexpected event %+v", event)
	}
	if blank, _ := reader.ReadString('\n'); blank != "\n" {
		t.Fatalf("expected blank line terminating the frame, got %q", blank)
	}
}
