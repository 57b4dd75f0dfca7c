package settlement

import (
	"context"
	"encoding/json"
	"testing"
)

func TestMemoryDispatcherRecordsMessages(t *testing.T) {
	d := NewMemoryDispatcher()
	if err := d.DispatchEventFinished(context.Background(), "ev-1", 2, 1); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	msgs := d.Messages()
	if len(msgs) != 1 {
		t.Fatalf("got %d messages, want 1", len(msgs))
	}
	if msgs[0].Type != "event_finished" || msgs[0].EventID != "ev-1" {
		t.Errorf("unexpected message %+v", msgs[0])
	}
}

func TestMessageWireFormat(t *testing.T) {
	body, err := json.Marshal(Message{
		Type:    "event_finished",
		EventID: "ev-1",
		Result:  Result{HomeScore: 2, AwayScore: 1},
	})
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	want := `{"type":"event_finished","eventId":"ev-1","result":{"homeScore":2,"awayScore":1}}`
	if string(body) != want {
		t.Errorf("wire format = %s, want %s", body, want)
	}
}
