package profile

// MinAudioSamples is the minimum number of samples with audio features
// required before aggregate insights are reported. Below this the
// aggregator returns an explicit insufficient-data marker instead of
// statistics from a too-small sample.
const MinAudioSamples = 5

// Bucket thresholds for [0,1] attributes.
const (
	bucketLow  = 0.33
	bucketHigh = 0.66
)

// Tempo thresholds in BPM.
const (
	tempoSlow = 90
	tempoFast = 130
)

// AudioInsights maps averaged audio attributes to categorical labels.
type AudioInsights struct {
	// Insufficient is set when too few samples carried audio features
	// for the labels to be meaningful. Labels and Means are empty.
	Insufficient bool

	// Labels maps attribute name to its categorical label,
	// e.g. "energy" -> "high energy", "valence" -> "melancholic".
	Labels map[string]string

	// Means holds the raw arithmetic means, keyed by attribute.
	// Only attributes present on at least one sample appear.
	Means map[string]float64
}

// AggregateAudio averages the numeric audio attributes across samples and
// maps each mean into a descriptive label. Samples missing an attribute are
// excluded from that attribute's mean rather than treated as zero.
func AggregateAudio(samples []ListeningSample) AudioInsights {
	featured := 0
	sums := make(map[string]float64)
	counts := make(map[string]int)

	for _, sample := range samples {
		f := sample.Features
		if f == nil {
			continue
		}
		featured++
		accumulate(sums, counts, "energy", f.Energy)
		accumulate(sums, counts, "valence", f.Valence)
		accumulate(sums, counts, "danceability", f.Danceability)
		accumulate(sums, counts, "acousticness", f.Acousticness)
		accumulate(sums, counts, "instrumentalness", f.Instrumentalness)
		accumulate(sums, counts, "speechiness", f.Speechiness)
		accumulate(sums, counts, "liveness", f.Liveness)
		accumulate(sums, counts, "tempo", f.Tempo)
	}

	if featured < MinAudioSamples {
		return AudioInsights{Insufficient: true}
	}

	insights := AudioInsights{
		Labels: make(map[string]string, len(sums)),
		Means:  make(map[string]float64, len(sums)),
	}
	for name, sum := range sums {
		mean := sum / float64(counts[name])
		insights.Means[name] = mean
		insights.Labels[name] = labelFor(name, mean)
	}
	return insights
}

func accumulate(sums map[string]float64, counts map[string]int, name string, v *float32) {
	if v == nil {
		return
	}
	sums[name] += float64(*v)
	counts[name]++
}

// labelFor maps a mean into one of three ordinal buckets. Valence gets
// mood-specific labels and tempo uses BPM thresholds; everything else is
// a plain low/medium/high split at 0.33/0.66.
func labelFor(name string, mean float64) string {
	switch name {
	case "valence":
		switch {
		case mean < bucketLow:
			return "melancholic"
		case mean <= bucketHigh:
			return "mixed mood"
		default:
			return "upbeat"
		}
	case "tempo":
		switch {
		case mean < tempoSlow:
			return "slow tempo"
		case mean <= tempoFast:
			return "moderate tempo"
		default:
			return "fast tempo"
		}
	default:
		switch {
		case mean < bucketLow:
			return "low " + name
		case mean <= bucketHigh:
			return "medium " + name
		default:
			return "high " + name
		}
	}
}
