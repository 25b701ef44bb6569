package types

import "time"

// CallStageRecord is one row of call activity: a single step of an automated
// outbound call. A multi-stage call produces several records that share a
// number and, when the call platform tagged the session, a CallID.
type CallStageRecord struct {
	ID               int64     `json:"id"`
	CampaignID       int64     `json:"campaignId"`
	Number           string    `json:"number"`
	CallID           *int64    `json:"callId,omitempty"`
	Stage            *int      `json:"stage,omitempty"`
	Timestamp        time.Time `json:"timestamp"`
	Transferred      bool      `json:"transferred"`
	ResponseCategory *string   `json:"responseCategory,omitempty"`
	CategoryColor    *string   `json:"categoryColor,omitempty"`
	VoiceName        *string   `json:"voiceName,omitempty"`
	Transcription    *string   `json:"transcription,omitempty"`
	ListID           *string   `json:"listId,omitempty"`
}

// StageNumber returns the stage with a nil stage treated as 0, which is the
// sort key everywhere a stage ordering is needed.
func (r CallStageRecord) StageNumber() int {
	if r.Stage == nil {
		return 0
	}
	return *r.Stage
}

// Category returns the raw response category, or "" when none was recorded.
func (r CallStageRecord) Category() string {
	if r.ResponseCategory == nil {
		return ""
	}
	return *r.ResponseCategory
}

// Voice returns the voice name and whether one is assigned. Absence is
// meaningful: such records are the "null voice" calls tracked separately in
// aggregation.
func (r CallStageRecord) Voice() (string, bool) {
	if r.VoiceName == nil {
		return "", false
	}
	return *r.VoiceName, true
}

// HasTranscription reports whether a non-empty transcription was recorded.
func (r CallStageRecord) HasTranscription() bool {
	return r.Transcription != nil && *r.Transcription != ""
}
