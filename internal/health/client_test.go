package health_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/loykin/pipedeck/internal/health"
	"github.com/loykin/pipedeck/internal/recorderstub"
)

func newStubServer(t *testing.T) (*recorderstub.Stub, *health.Client) {
	t.Helper()
	stub := recorderstub.New()
	srv := httptest.NewServer(stub.Handler())
	t.Cleanup(srv.Close)
	return stub, health.NewClient(srv.URL+"/health", time.Second)
}

func TestGetHealthHealthy(t *testing.T) {
	_, c := newStubServer(t)
	st, err := c.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth: %v", err)
	}
	if !st.Healthy() {
		t.Fatalf("expected healthy, got %q", st.Status)
	}
	if st.FrameStatus != "ok" || st.AudioStatus != "ok" {
		t.Fatalf("unexpected payload: %+v", st)
	}
}

func TestGetHealthDegradedIsNotHealthy(t *testing.T) {
	stub, c := newStubServer(t)
	st := recorderstub.Healthy(time.Now())
	st.Status = "degraded"
	hint := "restart the recorder"
	st.VerboseInstructions = &hint
	stub.Set(st)

	got, err := c.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth: %v", err)
	}
	if got.Healthy() {
		t.Fatalf("degraded must not be healthy")
	}
	if got.VerboseInstructions == nil || *got.VerboseInstructions != hint {
		t.Fatalf("verbose instructions lost: %+v", got.VerboseInstructions)
	}
}

func TestGetHealthNon2xxIsNetworkError(t *testing.T) {
	stub, c := newStubServer(t)
	stub.Fail(http.StatusInternalServerError)
	_, err := c.GetHealth(context.Background())
	var ne *health.NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected NetworkError with 500, got %v", err)
	}
}

func TestGetHealthGarbageIsParseError(t *testing.T) {
	stub, c := newStubServer(t)
	stub.Raw("<html>nope</html>")
	_, err := c.GetHealth(context.Background())
	var pe *health.ParseError
	if !errors.As(err, &pe) {
		t.Fatalf("expected ParseError, got %v", err)
	}
}

func TestGetHealthNonObjectIsParseError(t *testing.T) {
	for _, body := range []string{"null", "[]", `"ok"`, "42", ""} {
		stub, c := newStubServer(t)
		stub.Raw(body)
		st, err := c.GetHealth(context.Background())
		var pe *health.ParseError
		if !errors.As(err, &pe) {
			t.Fatalf("body %q: expected ParseError, got %v (status %+v)", body, err, st)
		}
	}
}

func TestGetHealthUnreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL + "/health"
	srv.Close()

	_, err := health.NewClient(url, 500*time.Millisecond).GetHealth(context.Background())
	var ne *health.NetworkError
	if !errors.As(err, &ne) || ne.StatusCode != 0 {
		t.Fatalf("expected transport NetworkError, got %v", err)
	}
}

func TestGetHealthLenientShape(t *testing.T) {
	stub, c := newStubServer(t)
	stub.Raw(`{"status":"healthy","extra":42}`)
	st, err := c.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth: %v", err)
	}
	if !st.Healthy() || st.LastFrameTimestamp != nil {
		t.Fatalf("unexpected decode: %+v", st)
	}
}

func TestNewClientDefaults(t *testing.T) {
	if got := health.NewClient("", 0).URL(); got != health.DefaultURL {
		t.Fatalf("URL = %q", got)
	}
}

func TestGetHealthFixtureWithNulls(t *testing.T) {
	stub, c := newStubServer(t)
	stub.Raw(`{"status":"healthy","message":"ok","frame_status":"ok","audio_status":"ok","ui_status":"ok","last_frame_timestamp":"2024-01-01T00:00:00Z","last_audio_timestamp":"2024-01-01T00:00:00Z","last_ui_timestamp":null,"verbose_instructions":null}`)
	st, err := c.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth: %v", err)
	}
	if st.Status != "healthy" || st.LastUITimestamp != nil || st.VerboseInstructions != nil {
		t.Fatalf("unexpected decode: %+v", st)
	}
}

func TestStatusRoundTripThroughClient(t *testing.T) {
	stub, c := newStubServer(t)
	frame, audio := "2024-02-03T04:05:06Z", "2024-02-03T04:05:07Z"
	want := health.Status{
		Status:             "unhealthy",
		Message:            "audio stalled",
		FrameStatus:        "ok",
		AudioStatus:        "stale",
		UIStatus:           "disabled",
		LastFrameTimestamp: &frame,
		LastAudioTimestamp: &audio,
	}
	stub.Set(want)
	got, err := c.GetHealth(context.Background())
	if err != nil {
		t.Fatalf("GetHealth: %v", err)
	}
	if got.Status != want.Status || got.Message != want.Message || got.FrameStatus != want.FrameStatus ||
		got.AudioStatus != want.AudioStatus || got.UIStatus != want.UIStatus ||
		*got.LastFrameTimestamp != frame || *got.LastAudioTimestamp != audio {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, want)
	}
}
