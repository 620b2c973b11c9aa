package event

import (
	"bufio"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestStreamDeliversEventsToClient(t *testing.T) {
	stream := NewStream()
	stream.SetHeartbeat(0)

	server := httptest.NewServer(stream)
	defer server.Close()

	client := server.Client()
	resp, err := client.Get(server.URL)
	if err != nil {
		t.Fatalf("connect failed: %v", err)
	}
	defer resp.Body.Close()
	if got := resp.Header.Get("Content-Type"); got != "text/event-stream" {
		t.Fatalf("content type = %q", got)
	}

	reader := bufio.NewReader(resp.Body)
	// First frame is the connect comment.
	line, err := reader.ReadString('\n')
	if err != nil {
		t.Fatalf("read greeting: %v", err)
	}
	if !strings.HasPrefix(line, ": connected") {
		t.Fatalf("greeting = %q", line)
	}
	if blank, err := reader.ReadString('\n'); err != nil || blank != "\n" {
		t.Fatalf("greeting terminator = %q, err = %v", blank, err)
	}

	// The greeting was written, so the subscriber is registered.
	evt := New(TypeTurnComplete, nil)
	if err := stream.Send(evt); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	var frame strings.Builder
	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			t.Fatalf("read frame: %v", err)
		}
		if line == "\n" {
			break
		}
		frame.WriteString(line)
	}
	text := frame.String()
	if !strings.Contains(text, "event: turn_complete") {
		t.Fatalf("frame = %q", text)
	}
	if !strings.Contains(text, "id: "+evt.ID) {
		t.Fatalf("frame missing id: %q", text)
	}
}

func TestStreamSinkBroadcasts(t *testing.T) {
	stream := NewStream()
	sink := stream.Sink()
	// No clients connected: sends are dropped without error.
	sink.Emit(New(TypeReset, nil))
}

func TestStreamDropsSlowClient(t *testing.T) {
	stream := NewStream()
	stream.SetHeartbeat(0)
	client := newSubscriber(1)
	stream.clients.Store(client.id, client)

	// Fill the buffer, then overflow it.
	if err := stream.Send(New(TypeTurnComplete, nil)); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if err := stream.Send(New(TypeTurnComplete, nil)); err != nil {
		t.Fatalf("send failed: %v", err)
	}

	if _, ok := stream.clients.Load(client.id); ok {
		t.Fatal("slow client not evicted")
	}
	// The queue was closed on eviction.
	select {
	case _, open := <-client.queue:
		if !open {
			t.Fatal("expected the buffered frame before close")
		}
	default:
		t.Fatal("buffered frame missing")
	}
	if _, open := <-client.queue; open {
		t.Fatal("queue not closed after eviction")
	}
}

func TestStreamSendAfterClientCloseIsDropped(t *testing.T) {
	stream := NewStream()
	stream.SetHeartbeat(0)
	client := newSubscriber(1)
	stream.clients.Store(client.id, client)

	// A client can close its queue while a broadcast is in flight; the
	// broadcast must drop the frame rather than write to a closed channel.
	client.close()
	if err := stream.Send(New(TypeTurnComplete, nil)); err != nil {
		t.Fatalf("send failed: %v", err)
	}
	if _, ok := stream.clients.Load(client.id); ok {
		t.Fatal("closed client not evicted")
	}
	// Eviction closes again; close is idempotent.
	client.close()
}
