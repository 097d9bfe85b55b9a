package cache

import (
	"context"
	"testing"
	"time"

	"stockledger/backend/internal/domain"
)

func TestNoopTrendCacheAlwaysMisses(t *testing.T) {
	ctx := context.Background()
	var c TrendCache = NoopTrendCache{}

	if err := c.Set(ctx, "stockledger:trend:abc", &domain.TrendAssessment{Score: 8, Source: domain.TrendSourceAI}, time.Hour); err != nil {
		t.Fatalf("set: %v", err)
	}
	got, ok, err := c.Get(ctx, "stockledger:trend:abc")
	if err != nil || ok || got != nil {
		t.Fatalf("expected a miss, got %+v ok=%v err=%v", got, ok, err)
	}
}

func TestDecodeAssessment(t *testing.T) {
	cases := []struct {
		name    string
		payload string
		wantOK  bool
		score   float64
	}{
		{"ai entry", `{"score":7.5,"source":"ai","reason":"weekend demand"}`, true, 7.5},
		{"rules entry", `{"score":4,"source":"rules"}`, false, 0},
		{"garbage", `not-json`, false, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, ok := decodeAssessment([]byte(tc.payload))
			if ok != tc.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tc.wantOK)
			}
			if ok && got.Score != tc.score {
				t.Fatalf("score = %v, want %v", got.Score, tc.score)
			}
		})
	}
}
