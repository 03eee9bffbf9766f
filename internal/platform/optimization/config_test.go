package optimization

import "testing"

func TestForProfile(t *testing.T) {
	for _, name := range []string{"", "default", "STRESS", "low"} {
		if _, err := ForProfile(name); err != nil {
			t.Errorf("%q: %v", name, err)
		}
	}
	if _, err := ForProfile("turbo"); err == nil {
		t.Error("expected an error for an unknown profile")
	}
}

func TestAnalyzeAndApply(t *testing.T) {
	snap := map[string]interface{}{
		"tick":      map[string]interface{}{"max_latency_ms": 150.0},
		"events":    map[string]interface{}{"max_write_lat_ms": 10.0, "errors": int64(0)},
		"websocket": map[string]interface{}{"errors": int64(3)},
		"actions":   map[string]interface{}{"total": int64(1000), "rate_limited": int64(200)},
	}
	rec := Analyze(snap)
	if !rec.IncreasePersistBuffer || !rec.IncreaseBroadcastBuffer || !rec.IncreaseRateLimit || rec.IncreaseDBConnections {
		t.Fatalf("unexpected recommendations %+v", rec)
	}
	if len(rec.Notes) != 3 {
		t.Errorf("expected 3 notes, got %v", rec.Notes)
	}

	cfg := ApplyRecommendations(LowResourceConfig(), rec)
	if cfg.EventPersistBuffer != 128 || cfg.ClientSendBuffer != 16 || cfg.HTTPBurst != 20 || cfg.DBMaxOpenConns != 2 {
		t.Errorf("unexpected tuned config %+v", cfg)
	}
}
