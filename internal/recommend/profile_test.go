package recommend

import (
	"context"
	"math"
	"testing"

	"github.com/gymunity/feed/internal/store"
)

func TestBuildProfileEmptyUser(t *testing.T) {
	ds := &fakeDataSource{}
	e := newTestEngine(ds, nil, nil)

	p, err := e.BuildProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if len(p.Topics) != 0 || len(p.TopicAffinities) != 0 || len(p.SourceAffinities) != 0 {
		t.Fatalf("expected empty profile, got %+v", p)
	}
}

func TestBuildProfileAffinities(t *testing.T) {
	dwell := 65.0
	ds := &fakeDataSource{
		events: []store.EventRow{
			{ArticleID: "a1", SourceID: "s1", EventType: "save", Topics: []string{"strength"}},
			{ArticleID: "a2", SourceID: "s1", EventType: "click", Topics: []string{"strength", "nutrition"}},
			{ArticleID: "a3", SourceID: "s2", EventType: "hide", Topics: []string{"cardio"}},
			{ArticleID: "a4", SourceID: "s2", EventType: "dwell", DwellSeconds: &dwell, Topics: []string{"mobility"}},
		},
	}
	e := newTestEngine(ds, nil, nil)

	p, err := e.BuildProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}

	// strength accumulates 1.0 + 0.3 = 1.3, cardio -2.0 (the max abs).
	// Normalized: strength (1.3/2+1)/2 = 0.825, cardio 0.
	if got := p.TopicAffinities["strength"]; math.Abs(got-0.825) > 1e-9 {
		t.Errorf("strength affinity = %v, want 0.825", got)
	}
	if got := p.TopicAffinities["cardio"]; got != 0 {
		t.Errorf("cardio affinity = %v, want 0", got)
	}
	// dwell >= 60s carries weight 1.0.
	if got := p.TopicAffinities["mobility"]; math.Abs(got-0.75) > 1e-9 {
		t.Errorf("mobility affinity = %v, want 0.75", got)
	}
	for _, id := range []string{"a1", "a2", "a3", "a4"} {
		if _, ok := p.InteractedIDs[id]; !ok {
			t.Errorf("expected %s in interacted set", id)
		}
	}
}

func TestBuildProfileLowersBlockedKeywords(t *testing.T) {
	ds := &fakeDataSource{
		pref:      store.Preference{UserID: "u1", BlockedKeywords: []string{"Keto", "CROSSFIT"}},
		prefFound: true,
	}
	e := newTestEngine(ds, nil, nil)

	p, err := e.BuildProfile(context.Background(), "u1")
	if err != nil {
		t.Fatalf("BuildProfile: %v", err)
	}
	if p.BlockedKeywords[0] != "keto" || p.BlockedKeywords[1] != "crossfit" {
		t.Errorf("blocked keywords not lowercased: %v", p.BlockedKeywords)
	}
}

func TestDwellWeightThresholds(t *testing.T) {
	cases := []struct {
		seconds float64
		want    float64
	}{
		{75, 1.0},
		{60, 1.0},
		{45, 0.5},
		{30, 0.5},
		{10, 0.1},
	}
	for _, tc := range cases {
		if got := dwellWeight(tc.seconds); got != tc.want {
			t.Errorf("dwellWeight(%v) = %v, want %v", tc.seconds, got, tc.want)
		}
	}
}

func TestNormalizeAffinitiesEmpty(t *testing.T) {
	out := normalizeAffinities(map[string]float64{})
	if len(out) != 0 {
		t.Fatalf("expected empty map, got %v", out)
	}
}

func TestTopAffinityTopicsDeterministicTies(t *testing.T) {
	aff := map[string]float64{"b": 0.5, "a": 0.5, "c": 0.9}
	got := topAffinityTopics(aff, 3)
	want := []string{"c", "a", "b"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("topAffinityTopics = %v, want %v", got, want)
		}
	}
}
