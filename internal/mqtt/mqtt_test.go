package mqtt

import (
	"errors"
	"strings"
	"sync"
	"testing"
)

func TestQoSValid(t *testing.T) {
	for _, q := range []QoS{AtMostOnce, AtLeastOnce, ExactlyOnce} {
		if !q.Valid() {
			t.Errorf("qos %d should be valid", q)
		}
	}
	if QoS(3).Valid() {
		t.Error("qos 3 should be invalid")
	}
}

func TestUniformQoS(t *testing.T) {
	got := UniformQoS(AtLeastOnce, 3)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	for i, q := range got {
		if q != AtLeastOnce {
			t.Errorf("entry %d: got %d, want 1", i, q)
		}
	}
	if len(UniformQoS(AtMostOnce, 0)) != 0 {
		t.Error("expected empty slice for n=0")
	}
}

func TestClientID(t *testing.T) {
	if got := ClientID("fixed"); got != "fixed" {
		t.Errorf("explicit id: got %q", got)
	}
	a := ClientID("")
	b := ClientID("")
	if !strings.HasPrefix(a, "cover-control-") || len(a) != len("cover-control-")+8 {
		t.Errorf("derived id has unexpected shape: %q", a)
	}
	if a == b {
		t.Errorf("derived ids should differ: %q", a)
	}
}

func TestFakeTransportPublish(t *testing.T) {
	f := NewFakeTransport()

	if err := f.Publish("a/b", []byte("on"), AtLeastOnce); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got := f.Published()
	if len(got) != 1 {
		t.Fatalf("expected 1 message, got %d", len(got))
	}
	if got[0].Topic != "a/b" || string(got[0].Payload) != "on" || got[0].QoS != AtLeastOnce {
		t.Errorf("unexpected message: %+v", got[0])
	}
}

func TestFakeTransportCopiesPayload(t *testing.T) {
	f := NewFakeTransport()
	buf := []byte("on")
	f.Publish("a", buf, AtMostOnce)
	buf[0] = 'x'

	if p := f.PublishedOn("a"); p[0] != "on" {
		t.Errorf("recorded payload aliased caller buffer: %q", p[0])
	}
}

func TestFakeTransportPublishError(t *testing.T) {
	f := NewFakeTransport()
	f.PublishError = errors.New("simulated error")

	if err := f.Publish("a", nil, AtMostOnce); err == nil {
		t.Error("expected error")
	}
	if len(f.Published()) != 0 {
		t.Error("failed publish should not be recorded")
	}
}

func TestFakeTransportFailTopics(t *testing.T) {
	f := NewFakeTransport()
	f.FailTopics = map[string]error{"bad": errors.New("nope")}

	if err := f.Publish("bad", nil, AtMostOnce); err == nil {
		t.Error("expected error for failing topic")
	}
	if err := f.Publish("good", nil, AtMostOnce); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
	if len(f.Published()) != 1 {
		t.Errorf("expected only the good publish, got %d", len(f.Published()))
	}
}

func TestFakeTransportInvalidQoS(t *testing.T) {
	f := NewFakeTransport()
	if err := f.Publish("a", nil, QoS(7)); err == nil {
		t.Error("expected invalid qos error")
	}
}

func TestFakeTransportSubscribeMany(t *testing.T) {
	f := NewFakeTransport()

	if err := f.SubscribeMany([]string{"x", "y"}, []QoS{1, 2}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	subs := f.Subscriptions()
	if len(subs) != 1 || len(subs[0]) != 2 || subs[0][0] != "x" || subs[0][1] != "y" {
		t.Errorf("unexpected subscriptions: %v", subs)
	}
	qos := f.SubscribeQoS()
	if qos[0][0] != 1 || qos[0][1] != 2 {
		t.Errorf("unexpected qos: %v", qos)
	}

	if err := f.SubscribeMany([]string{"x"}, nil); err == nil {
		t.Error("expected length mismatch error")
	}
}

func TestFakeTransportSubscribeError(t *testing.T) {
	f := NewFakeTransport()
	f.SubscribeError = errors.New("refused")

	if err := f.SubscribeMany([]string{"x"}, []QoS{1}); err == nil {
		t.Error("expected error")
	}
	if len(f.Subscriptions()) != 0 {
		t.Error("failed subscribe should not be recorded")
	}
}

func TestFakeTransportReset(t *testing.T) {
	f := NewFakeTransport()
	f.Publish("a", nil, AtMostOnce)
	f.SubscribeMany([]string{"x"}, []QoS{1})
	f.PublishError = errors.New("err")
	f.Connected = true

	f.Reset()

	if len(f.Published()) != 0 || len(f.Subscriptions()) != 0 {
		t.Error("recorded calls should be cleared")
	}
	if f.PublishError != nil || f.IsConnected() {
		t.Error("injected state should be cleared")
	}
}

func TestFakeTransportConcurrentPublish(t *testing.T) {
	f := NewFakeTransport()
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			f.Publish("t", []byte("p"), AtLeastOnce)
		}()
	}
	wg.Wait()

	if n := len(f.Published()); n != 50 {
		t.Errorf("expected 50 messages, got %d", n)
	}
}

func TestFakeTransportSatisfiesInterfaces(t *testing.T) {
	var _ Transport = NewFakeTransport()
	var _ ConnectionStatus = NewFakeTransport()
	var _ Transport = (*RealTransport)(nil)
	var _ ConnectionStatus = (*RealTransport)(nil)
}
