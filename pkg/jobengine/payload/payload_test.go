package payload

import "testing"

type sample struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

func TestFromJSON_AsJSON_RoundTrip(t *testing.T) {
	in := sample{Name: "ping", Count: 3}
	p, err := FromJSON(in)
	if err != nil {
		t.Fatalf("FromJSON failed: %v", err)
	}
	if p.ContentType != "application/json" {
		t.Fatalf("unexpected content type: %s", p.ContentType)
	}

	var out sample
	if err := p.AsJSON(&out); err != nil {
		t.Fatalf("AsJSON failed: %v", err)
	}
	if out != in {
		t.Fatalf("round trip mismatch: got %+v, want %+v", out, in)
	}
}

func TestEmpty(t *testing.T) {
	var p Payload
	if !p.Empty() {
		t.Fatal("zero value payload should be empty")
	}
	p.Data = []byte("x")
	if p.Empty() {
		t.Fatal("payload with data should not be empty")
	}
}

func TestAsJSON_EmptyIsNoop(t *testing.T) {
	var p Payload
	var out sample
	if err := p.AsJSON(&out); err != nil {
		t.Fatalf("AsJSON on empty payload should not error: %v", err)
	}
}
