package prompt

import (
	"errors"
	"strings"
)

// ErrUnparseable is returned when no track can be extracted from LLM output.
var ErrUnparseable = errors.New("could not parse a track from LLM response")

// ParsedTrack is a track reference extracted from LLM output. It still has
// to be resolved against the Spotify catalog before it can be trusted.
type ParsedTrack struct {
	Title  string
	Artist string
}

// SearchQuery returns the text to search the catalog with.
func (t ParsedTrack) SearchQuery() string {
	return t.Title + " " + t.Artist
}

// ParseRecommendation extracts a single track from LLM output. The model is
// asked for `"Song Title" by Artist Name` but the contract on its output is
// only "text", so parsing is defensive about quotes, prefixes, markdown
// emphasis and surrounding chatter. Only the first plausible line is used.
func ParseRecommendation(text string) (ParsedTrack, error) {
	for _, line := range strings.Split(text, "\n") {
		track, ok := parseLine(line)
		if ok {
			return track, nil
		}
	}
	return ParsedTrack{}, ErrUnparseable
}

// ParsePlaylist extracts up to max tracks, one per line. Lines that don't
// parse are skipped rather than failing the whole response.
func ParsePlaylist(text string, max int) []ParsedTrack {
	var tracks []ParsedTrack
	for _, line := range strings.Split(text, "\n") {
		if len(tracks) >= max {
			break
		}
		if track, ok := parseLine(line); ok {
			tracks = append(tracks, track)
		}
	}
	return tracks
}

func parseLine(line string) (ParsedTrack, bool) {
	line = strings.TrimSpace(line)
	line = strings.Trim(line, "*_")
	line = stripListPrefix(line)

	// "Track: Testify by Rage Against The Machine" style prefixes.
	for _, prefix := range []string{"Track:", "Song:", "Recommendation:"} {
		if rest, ok := strings.CutPrefix(line, prefix); ok {
			line = strings.TrimSpace(rest)
			break
		}
	}

	if line == "" {
		return ParsedTrack{}, false
	}

	title, artist, ok := splitTitleArtist(line)
	if !ok {
		return ParsedTrack{}, false
	}

	title = strings.Trim(strings.TrimSpace(title), `"'“”*_`)
	artist = strings.Trim(strings.TrimSpace(artist), `"'“”*_.`)
	if title == "" || artist == "" {
		return ParsedTrack{}, false
	}
	return ParsedTrack{Title: title, Artist: artist}, true
}

// splitTitleArtist splits on the LAST ` by ` so titles containing "by"
// survive, then falls back to a dash separator.
func splitTitleArtist(line string) (title, artist string, ok bool) {
	if idx := strings.LastIndex(line, " by "); idx > 0 {
		return line[:idx], line[idx+len(" by "):], true
	}
	for _, sep := range []string{" - ", " – ", " — "} {
		if idx := strings.Index(line, sep); idx > 0 {
			return line[:idx], line[idx+len(sep):], true
		}
	}
	return "", "", false
}

// stripListPrefix removes leading bullet or numbering markers.
func stripListPrefix(line string) string {
	line = strings.TrimLeft(line, "-•* \t")
	// "1. ", "12) " style numbering
	i := 0
	for i < len(line) && line[i] >= '0' && line[i] <= '9' {
		i++
	}
	if i > 0 && i < len(line) && (line[i] == '.' || line[i] == ')') {
		return strings.TrimSpace(line[i+1:])
	}
	return line
}
