package inspection

import (
	"testing"

	"github.com/ridgeline-iot/canopy-edge/internal/domain"
)

func TestHistoryStoreRoutesByValueKind(t *testing.T) {
	s := newHistoryStore()

	if !s.ingest(1, 10, domain.NumValue(1.5), 4, 0) {
		t.Fatalf("expected numeric ingest to succeed")
	}
	if !s.ingest(2, 10, domain.StringValue("hello"), 4, 0) {
		t.Fatalf("expected string ingest to succeed")
	}

	if _, ok := s.numeric[1]; !ok {
		t.Fatalf("expected signal 1 routed to the numeric ring")
	}
	if _, ok := s.strings[2]; !ok {
		t.Fatalf("expected signal 2 routed to the string store")
	}
	if _, ok := s.numeric[2]; ok {
		t.Fatalf("expected signal 2 to never enter the numeric ring")
	}
}

func TestHistoryStoreOutOfOrderCounter(t *testing.T) {
	s := newHistoryStore()
	s.ingest(1, 100, domain.NumValue(1), 4, 0)
	if s.ingest(1, 50, domain.NumValue(2), 4, 0) {
		t.Fatalf("expected out-of-order ingest to be rejected")
	}
	if s.outOfOrder != 1 {
		t.Fatalf("expected store out-of-order counter to increment, got %d", s.outOfOrder)
	}
}

func TestStringHistoryLatest(t *testing.T) {
	h := newStringHistory(2)
	h.append(1, "a")
	h.append(2, "b")
	latest, ok := h.latest()
	if !ok || latest.str != "b" {
		t.Fatalf("expected latest 'b', got %+v ok=%v", latest, ok)
	}
}
