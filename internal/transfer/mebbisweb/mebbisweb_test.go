package mebbisweb

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/rehberapp/rehber-go/internal/transfer"
)

// newPortal spins up a fake MEBBIS portal.
func newPortal(t *testing.T, approveAfterPolls int32) (*httptest.Server, *int32) {
	t.Helper()
	var polls int32
	mux := http.NewServeMux()
	mux.HandleFunc(qrLoginPath, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><body>
			<img id="qrKod" src="data:image/png;base64,ZmFrZQ==">
			<input name="oturumAnahtari" value="anahtar-123">
		</body></html>`)
	})
	mux.HandleFunc(qrStatusPath, func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&polls, 1) >= approveAfterPolls {
			fmt.Fprint(w, `{"durum":"onaylandi"}`)
			return
		}
		fmt.Fprint(w, `{"durum":"bekliyor"}`)
	})
	mux.HandleFunc(sessionPath, func(w http.ResponseWriter, r *http.Request) {
		r.ParseForm()
		if r.FormValue("gorusmeKonu") == "" {
			fmt.Fprint(w, `<html><body><div class="alert-danger">Görüşme konusu zorunludur</div></body></html>`)
			return
		}
		fmt.Fprint(w, `<html><body>
			<div class="alert-success">Kayıt başarıyla aktarıldı</div>
			<input type="hidden" name="kayitNo" value="2024-0042">
		</body></html>`)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server, &polls
}

func TestBeginAuthentication(t *testing.T) {
	server, _ := newPortal(t, 1)
	driver := New(server.URL)

	challenge, err := driver.BeginAuthentication(context.Background())
	if err != nil {
		t.Fatalf("BeginAuthentication failed: %v", err)
	}
	if challenge.Type != "qr" {
		t.Errorf("Challenge type = %s, want qr", challenge.Type)
	}
	if !strings.HasPrefix(challenge.Payload, "data:image/png") {
		t.Errorf("Challenge payload should be the QR image src, got %s", challenge.Payload)
	}
	if driver.sessionKey != "anahtar-123" {
		t.Errorf("Session key = %s, want anahtar-123", driver.sessionKey)
	}
}

func TestWaitForAuthenticationPollsUntilApproved(t *testing.T) {
	server, polls := newPortal(t, 2)
	driver := New(server.URL)
	if _, err := driver.BeginAuthentication(context.Background()); err != nil {
		t.Fatalf("BeginAuthentication failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := driver.WaitForAuthentication(ctx); err != nil {
		t.Fatalf("WaitForAuthentication failed: %v", err)
	}
	if got := atomic.LoadInt32(polls); got < 2 {
		t.Errorf("Expected at least 2 status polls, got %d", got)
	}
}

func TestWaitForAuthenticationTimeout(t *testing.T) {
	server, _ := newPortal(t, 1<<30) // never approves
	driver := New(server.URL)
	if _, err := driver.BeginAuthentication(context.Background()); err != nil {
		t.Fatalf("BeginAuthentication failed: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()
	if err := driver.WaitForAuthentication(ctx); err != context.DeadlineExceeded {
		t.Errorf("Expected context.DeadlineExceeded, got %v", err)
	}
}

func TestProcessItem(t *testing.T) {
	server, _ := newPortal(t, 1)
	driver := New(server.URL)

	result, err := driver.ProcessItem(context.Background(), transfer.Item{
		ID:          "session-42",
		SessionID:   42,
		StudentName: "Ayşe Yılmaz",
		Topic:       "Akademik gelişim",
	})
	if err != nil {
		t.Fatalf("ProcessItem failed: %v", err)
	}
	if result.Detail != "Kayıt başarıyla aktarıldı" {
		t.Errorf("Result detail = %q", result.Detail)
	}
}

func TestProcessItemPortalRejection(t *testing.T) {
	server, _ := newPortal(t, 1)
	driver := New(server.URL)

	_, err := driver.ProcessItem(context.Background(), transfer.Item{ID: "session-7", SessionID: 7})
	if err == nil {
		t.Fatal("Expected a rejection error for a session without a topic")
	}
	if !strings.Contains(err.Error(), "zorunludur") {
		t.Errorf("Error should carry the portal message, got %v", err)
	}
	var fatal *transfer.FatalError
	if errors.As(err, &fatal) {
		t.Error("A per-record rejection must not be fatal")
	}
}

func TestProcessItemUnreachablePortalIsFatal(t *testing.T) {
	server, _ := newPortal(t, 1)
	driver := New(server.URL)
	server.Close()

	_, err := driver.ProcessItem(context.Background(), transfer.Item{ID: "session-1", SessionID: 1, Topic: "x"})
	var fatal *transfer.FatalError
	if !errors.As(err, &fatal) {
		t.Errorf("Expected FatalError for an unreachable portal, got %v", err)
	}
}

func TestFirstHiddenValue(t *testing.T) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(`<html><body><form>
		<input type="text" name="kayitNo" value="wrong">
		<input type="hidden" name="kayitNo" value="2024-1">
	</form></body></html>`))
	if err != nil {
		t.Fatalf("Failed to parse fixture: %v", err)
	}
	if got := firstHiddenValue(doc, "kayitNo"); got != "2024-1" {
		t.Errorf("firstHiddenValue = %q, want 2024-1", got)
	}
	if got := firstHiddenValue(doc, "yok"); got != "" {
		t.Errorf("firstHiddenValue for missing input = %q, want empty", got)
	}
}
