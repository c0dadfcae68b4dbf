package profile

import (
	"github.com/muesli/clusters"
	"github.com/muesli/kmeans"
)

// MoodConfig holds mood clustering parameters.
type MoodConfig struct {
	NumClusters    int // number of clusters to create (default: 3)
	MinClusterSize int // smaller clusters are ignored as noise
}

// DefaultMoodConfig returns the recommended default configuration.
func DefaultMoodConfig() MoodConfig {
	return MoodConfig{
		NumClusters:    3,
		MinClusterSize: 3,
	}
}

// MoodCluster is a group of samples with similar audio character.
type MoodCluster struct {
	Label    string             // e.g. "Upbeat Party", "Reflective & Melancholy"
	Size     int                // samples in the cluster
	Centroid map[string]float32 // average feature values
}

// moodFeatures defines the audio attributes used for clustering.
var moodFeatures = []string{"energy", "valence", "danceability", "acousticness"}

// sampleObservation wraps a sample's feature vector for k-means.
type sampleObservation struct {
	coords clusters.Coordinates
}

func (o sampleObservation) Coordinates() clusters.Coordinates {
	return o.coords
}

func (o sampleObservation) Distance(point clusters.Coordinates) float64 {
	return o.coords.Distance(point)
}

// DetectMoodClusters groups samples by audio feature similarity using
// k-means. Samples missing any of the clustering features are skipped.
// Clustering is advisory: on any failure, or with too few featured samples,
// it returns nil and the caller proceeds without a mood hint.
func DetectMoodClusters(samples []ListeningSample, cfg MoodConfig) []MoodCluster {
	if cfg.NumClusters <= 0 {
		cfg.NumClusters = DefaultMoodConfig().NumClusters
	}

	var obs clusters.Observations
	for _, sample := range samples {
		coords, ok := moodCoordinates(sample)
		if !ok {
			continue
		}
		obs = append(obs, sampleObservation{coords: coords})
	}

	if len(obs) < cfg.NumClusters || len(obs) < MinAudioSamples {
		return nil
	}

	km := kmeans.New()
	result, err := km.Partition(obs, cfg.NumClusters)
	if err != nil {
		return nil
	}

	var moods []MoodCluster
	for _, cluster := range result {
		if len(cluster.Observations) < cfg.MinClusterSize {
			continue
		}
		centroid := make(map[string]float32, len(moodFeatures))
		for i, name := range moodFeatures {
			centroid[name] = float32(cluster.Center[i])
		}
		moods = append(moods, MoodCluster{
			Label:    moodLabel(centroid),
			Size:     len(cluster.Observations),
			Centroid: centroid,
		})
	}
	return moods
}

// DominantMood returns the label of the largest cluster, or "" when no
// cluster was found.
func DominantMood(moods []MoodCluster) string {
	best := ""
	bestSize := 0
	for _, m := range moods {
		if m.Size > bestSize {
			best = m.Label
			bestSize = m.Size
		}
	}
	return best
}

func moodCoordinates(s ListeningSample) (clusters.Coordinates, bool) {
	f := s.Features
	if f == nil || f.Energy == nil || f.Valence == nil || f.Danceability == nil || f.Acousticness == nil {
		return nil, false
	}
	return clusters.Coordinates{
		float64(*f.Energy),
		float64(*f.Valence),
		float64(*f.Danceability),
		float64(*f.Acousticness),
	}, true
}

// moodLabel names a cluster from its centroid using a 2x2 energy/valence
// quadrant, with an acoustic modifier when acousticness dominates.
func moodLabel(centroid map[string]float32) string {
	energy := centroid["energy"]
	valence := centroid["valence"]
	acousticness := centroid["acousticness"]

	var base string
	highEnergy := energy > 0.6
	highValence := valence > 0.5

	switch {
	case highEnergy && highValence:
		base = "Upbeat Party"
	case highEnergy && !highValence:
		base = "Intense & Dark"
	case !highEnergy && highValence:
		base = "Chill & Happy"
	default:
		base = "Reflective & Melancholy"
	}

	if acousticness > 0.6 {
		return base + " (Acoustic)"
	}
	return base
}
