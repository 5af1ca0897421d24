// Package streamtypes defines the entities that flow through the broker
// streams connecting the pipeline stages, and the wire encoding used to
// read and write them.
package streamtypes

// SchemaVersion is the canonical payload-wrapped schema version emitted by
// this implementation.
const SchemaVersion = "1"

// RecordType discriminates the payload-wrapped wire shape.
type RecordType string

const (
	TypeSegment RecordType = "segment"
	TypeCommand RecordType = "command"
	TypeReply   RecordType = "reply"
	TypeAudio   RecordType = "audio"
)

// Segment is produced by the upstream recognizer onto the "transcripts"
// stream.
type Segment struct {
	Text          string  `json:"text"`
	SessionUID    string  `json:"session_uid"`
	MeetingID     string  `json:"meeting_id"`
	SegmentStartS float64 `json:"segment_start_s"`
	SegmentEndS   float64 `json:"segment_end_s"`
	Timestamp     string  `json:"timestamp"`
}

// Command is produced by the WakeDetector onto "hey_raven_commands".
type Command struct {
	Question    string  `json:"question"`
	SessionUID  string  `json:"session_uid"`
	MeetingID   string  `json:"meeting_id"`
	Context     string  `json:"context"`
	Confidence  float64 `json:"confidence"`
	PatternKind string  `json:"pattern_kind"`
	Timestamp   string  `json:"timestamp"`
}

// Reply is produced by the Responder onto "llm_responses". MeetingID is
// always serialized as a string regardless of the source type it arrived
// as on the Command.
type Reply struct {
	Response          string `json:"response"`
	SessionUID        string `json:"session_uid"`
	MeetingID         string `json:"meeting_id"`
	OriginalQuestion  string `json:"original_question"`
	OriginalTimestamp string `json:"original_timestamp"`
	Timestamp         string `json:"timestamp"`
	MessageID         string `json:"message_id"`
}

// AudioMetadata describes the synthesized blob carried by an Audio record.
type AudioMetadata struct {
	Format     string  `json:"format"`
	SizeBytes  int     `json:"size_bytes"`
	DurationS  float64 `json:"duration_s"`
	Engine     string  `json:"engine"`
}

// Audio is produced by the Synthesizer onto "tts_audio_queue".
type Audio struct {
	AudioData        string        `json:"audio_data"`
	AudioMetadata    AudioMetadata `json:"audio_metadata"`
	SessionUID       string        `json:"session_uid"`
	MeetingID        string        `json:"meeting_id"`
	OriginalQuestion string        `json:"original_question"`
	ResponseText     string        `json:"response_text"`
	MessageID        string        `json:"message_id"`
	Timestamp        string        `json:"timestamp"`
}

// Valid reports whether the Audio record satisfies the invariant that both
// AudioData and MessageID are non-empty.
func (a Audio) Valid() bool {
	return a.AudioData != "" && a.MessageID != ""
}

// SessionBinding is maintained in-process by the bot; it is never
// serialized onto a stream.
type SessionBinding struct {
	ConnectionID         string
	RecognizerSessionUID string
	MeetingID            string
}
