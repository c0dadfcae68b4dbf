package profile

import (
	"reflect"
	"testing"
)

func f32(v float32) *float32 { return &v }

func featured(energy, valence float32) ListeningSample {
	return ListeningSample{
		TrackID: "t",
		Features: &AudioFeatures{
			Energy:  f32(energy),
			Valence: f32(valence),
		},
	}
}

func TestAggregateAudioInsufficient(t *testing.T) {
	tests := []struct {
		name    string
		samples []ListeningSample
	}{
		{name: "empty input", samples: nil},
		{
			name: "no features on any sample",
			samples: []ListeningSample{
				{TrackID: "1"}, {TrackID: "2"}, {TrackID: "3"},
				{TrackID: "4"}, {TrackID: "5"}, {TrackID: "6"},
			},
		},
		{
			name: "below minimum featured count",
			samples: []ListeningSample{
				featured(0.5, 0.5), featured(0.6, 0.4),
				featured(0.7, 0.3), featured(0.8, 0.2),
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AggregateAudio(tt.samples)
			if !got.Insufficient {
				t.Error("expected insufficient-data marker")
			}
			if len(got.Labels) != 0 || len(got.Means) != 0 {
				t.Errorf("insufficient result must not carry stats: %+v", got)
			}
		})
	}
}

func TestAggregateAudioLabels(t *testing.T) {
	samples := []ListeningSample{
		featured(0.9, 0.1),
		featured(0.8, 0.2),
		featured(0.9, 0.1),
		featured(0.7, 0.3),
		featured(0.8, 0.1),
	}
	// Tempo present on only two samples; the mean must ignore the rest
	// instead of treating them as zero.
	samples[0].Features.Tempo = f32(140)
	samples[1].Features.Tempo = f32(150)

	got := AggregateAudio(samples)

	if got.Insufficient {
		t.Fatal("unexpected insufficient-data marker")
	}
	if got.Labels["energy"] != "high energy" {
		t.Errorf("energy label = %q, want %q", got.Labels["energy"], "high energy")
	}
	if got.Labels["valence"] != "melancholic" {
		t.Errorf("valence label = %q, want %q", got.Labels["valence"], "melancholic")
	}
	if got.Labels["tempo"] != "fast tempo" {
		t.Errorf("tempo label = %q, want %q (mean 145)", got.Labels["tempo"], "fast tempo")
	}
	if got.Means["tempo"] != 145 {
		t.Errorf("tempo mean = %v, want 145", got.Means["tempo"])
	}
	if _, ok := got.Labels["danceability"]; ok {
		t.Error("danceability label present despite no sample carrying it")
	}
}

func TestAggregateAudioIdempotent(t *testing.T) {
	samples := []ListeningSample{
		featured(0.4, 0.5), featured(0.5, 0.6), featured(0.6, 0.4),
		featured(0.5, 0.5), featured(0.4, 0.6),
	}

	first := AggregateAudio(samples)
	second := AggregateAudio(samples)

	if !reflect.DeepEqual(first, second) {
		t.Errorf("repeated aggregate differs:\nfirst:  %+v\nsecond: %+v", first, second)
	}
}

func TestLabelBuckets(t *testing.T) {
	tests := []struct {
		attr string
		mean float64
		want string
	}{
		{"energy", 0.1, "low energy"},
		{"energy", 0.5, "medium energy"},
		{"energy", 0.9, "high energy"},
		{"valence", 0.2, "melancholic"},
		{"valence", 0.5, "mixed mood"},
		{"valence", 0.8, "upbeat"},
		{"tempo", 70, "slow tempo"},
		{"tempo", 110, "moderate tempo"},
		{"tempo", 160, "fast tempo"},
	}

	for _, tt := range tests {
		if got := labelFor(tt.attr, tt.mean); got != tt.want {
			t.Errorf("labelFor(%s, %v) = %q, want %q", tt.attr, tt.mean, got, tt.want)
		}
	}
}
