package v1

import (
	"encoding/json"
	"testing"
	"time"
)

func TestRawEvent_Validation(t *testing.T) {
	now := time.Now()

	tests := []struct {
		name    string
		event   RawEvent
		wantErr bool
	}{
		{
			name: "valid api event",
			event: RawEvent{
				ID:         "req-1",
				Family:     FamilyAPI,
				OccurredAt: now,
				Attributes: map[string]string{"method": "GET", "route": "/a"},
				Values:     map[string]float64{"status": 200, "latency_ms": 12},
			},
		},
		{
			name: "valid vitals event without values",
			event: RawEvent{
				ID:         "pv-1",
				Family:     FamilyVitals,
				OccurredAt: now,
			},
		},
		{
			name:    "missing id",
			event:   RawEvent{Family: FamilyAPI, OccurredAt: now},
			wantErr: true,
		},
		{
			name:    "unknown family",
			event:   RawEvent{ID: "x", Family: "logs", OccurredAt: now},
			wantErr: true,
		},
		{
			name:    "missing occurred_at",
			event:   RawEvent{ID: "x", Family: FamilyAPI},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.event.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestRawEvent_JSONOmitsShard(t *testing.T) {
	evt := RawEvent{
		ID:         "req-1",
		Family:     FamilyAPI,
		OccurredAt: time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC),
		Shard:      7,
	}

	data, err := json.Marshal(evt)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	var decoded map[string]interface{}
	if err := json.Unmarshal(data, &decoded); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if _, ok := decoded["shard"]; ok {
		t.Error("shard must not be serialized")
	}
	if decoded["family"] != "api" {
		t.Errorf("family = %v, want api", decoded["family"])
	}
}

func TestRawEvent_AttrTreatsEmptyAsMissing(t *testing.T) {
	evt := RawEvent{Attributes: map[string]string{"platform": "", "country": "US"}}

	if _, ok := evt.Attr("platform"); ok {
		t.Error("empty attribute should be reported missing")
	}
	if v, ok := evt.Attr("country"); !ok || v != "US" {
		t.Errorf("Attr(country) = %q, %v", v, ok)
	}
	if _, ok := evt.Attr("device"); ok {
		t.Error("absent attribute should be reported missing")
	}
}

func TestParseFamily(t *testing.T) {
	for _, f := range Families {
		got, err := ParseFamily(string(f))
		if err != nil || got != f {
			t.Errorf("ParseFamily(%q) = %q, %v", f, got, err)
		}
	}
	if _, err := ParseFamily("API"); err == nil {
		t.Error("family names are case-sensitive")
	}
}
