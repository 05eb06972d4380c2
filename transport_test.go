package pulsefeed

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/jpalmerr/pulsefeed/internal/sse"
)

// transportRecorder collects TransportEvents on channels.
type transportRecorder struct {
	opened   chan struct{}
	messages chan string
	errs     chan error
}

func newTransportRecorder() *transportRecorder {
	return &transportRecorder{
		opened:   make(chan struct{}, 1),
		messages: make(chan string, 10),
		errs:     make(chan error, 1),
	}
}

func (r *transportRecorder) events() TransportEvents {
	return TransportEvents{
		OnOpen:    func() { r.opened <- struct{}{} },
		OnMessage: func(data []byte) { r.messages <- string(data) },
		OnError:   func(err error) { r.errs <- err },
	}
}

// sseHandler writes events, then holds the stream open until the client
// goes away, or ends it when hold is false.
func sseHandler(events []string, hold bool) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/event-stream")
		w.WriteHeader(http.StatusOK)
		flusher := w.(http.Flusher)
		flusher.Flush()
		for _, ev := range events {
			fmt.Fprintf(w, "%s\n\n", ev)
			flusher.Flush()
		}
		if hold {
			<-r.Context().Done()
		}
	}
}

func TestHTTPTransport_DeliversMessages(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{
		`data: {"power":200}`,
		": keep-alive comment",
		"event: update\ndata: {\"a\":1,\ndata: \"b\":2}",
	}, true))
	defer srv.Close()

	tr := NewHTTPTransport(nil)
	defer tr.Close()
	rec := newTransportRecorder()

	conn, err := tr.Open(srv.URL, rec.events())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	select {
	case <-rec.opened:
	case <-time.After(2 * time.Second):
		t.Fatal("OnOpen not called")
	}

	for _, want := range []string{`{"power":200}`, "{\"a\":1,\n\"b\":2}"} {
		select {
		case got := <-rec.messages:
			if got != want {
				t.Errorf("message = %q, want %q", got, want)
			}
		case <-time.After(2 * time.Second):
			t.Fatalf("message %q not delivered", want)
		}
	}
}

func TestHTTPTransport_ServerCloseIsError(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{`data: {}`}, false))
	defer srv.Close()

	tr := NewHTTPTransport(nil)
	defer tr.Close()
	rec := newTransportRecorder()

	if _, err := tr.Open(srv.URL, rec.events()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	select {
	case err := <-rec.errs:
		if !errors.Is(err, ErrStreamClosed) {
			t.Errorf("OnError(%v), want ErrStreamClosed", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError not called after the server ended the stream")
	}
}

func TestHTTPTransport_StatusError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "not running", http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(nil)
	defer tr.Close()
	rec := newTransportRecorder()

	if _, err := tr.Open(srv.URL, rec.events()); err != nil {
		t.Fatalf("Open() error = %v", err)
	}

	select {
	case err := <-rec.errs:
		var statusErr *sse.StatusError
		if !errors.As(err, &statusErr) || statusErr.StatusCode != http.StatusServiceUnavailable {
			t.Errorf("OnError(%v), want *sse.StatusError with 503", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("OnError not called for a 503")
	}
	select {
	case <-rec.opened:
		t.Error("OnOpen called for a rejected stream")
	default:
	}
}

func TestHTTPTransport_SendsHeaders(t *testing.T) {
	gotAuth := make(chan string, 1)
	gotAccept := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth <- r.Header.Get("Authorization")
		gotAccept <- r.Header.Get("Accept")
		sseHandler(nil, true)(w, r)
	}))
	defer srv.Close()

	tr := NewHTTPTransport(map[string]string{"Authorization": "Bearer abc"})
	defer tr.Close()

	conn, err := tr.Open(srv.URL, newTransportRecorder().events())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	defer conn.Close()

	select {
	case auth := <-gotAuth:
		if auth != "Bearer abc" {
			t.Errorf("Authorization = %q, want Bearer abc", auth)
		}
		if accept := <-gotAccept; accept != "text/event-stream" {
			t.Errorf("Accept = %q, want text/event-stream", accept)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("request not received")
	}
}

func TestHTTPTransport_CloseSuppressesEvents(t *testing.T) {
	srv := httptest.NewServer(sseHandler([]string{`data: {}`}, true))
	defer srv.Close()

	tr := NewHTTPTransport(nil)
	defer tr.Close()
	rec := newTransportRecorder()

	conn, err := tr.Open(srv.URL, rec.events())
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	<-rec.opened
	<-rec.messages

	if err := conn.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	select {
	case <-conn.(*httpConn).done:
	case <-time.After(2 * time.Second):
		t.Fatal("reader goroutine did not exit after Close")
	}
	select {
	case err := <-rec.errs:
		t.Errorf("OnError(%v) after Close", err)
	default:
	}
}

func TestHTTPTransport_RejectsRelativeURL(t *testing.T) {
	tr := NewHTTPTransport(nil)
	defer tr.Close()

	for _, u := range []string{"/metrics/stream", "ws://host/stream", "://bad"} {
		if _, err := tr.Open(u, newTransportRecorder().events()); err == nil {
			t.Errorf("Open(%q) error = nil, want error", u)
		}
	}
}
