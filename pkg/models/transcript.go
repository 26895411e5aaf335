package models

// TranscriptSegment is one time-bounded span of recognized speech as returned
// by the speech-to-text engine. Start and End are seconds from the beginning
// of the audio. The engine's ordering is kept; End >= Start is expected but
// not enforced.
type TranscriptSegment struct {
	Text  string  `json:"text"`
	Start float64 `json:"start"`
	End   float64 `json:"end"`
}

// AlignedLine is a lyric line with the time span assigned to it.
// Text is always the lyric line as supplied, never the normalized form.
type AlignedLine struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}
