// Package diary provides read-only access to users' diary entries for the
// feedback batch. The batch never mutates diaries.
package diary

import (
	"time"
)

// Mood is the closed set of mood labels a user can attach to an entry.
type Mood string

const (
	MoodHappy    Mood = "happy"
	MoodSad      Mood = "sad"
	MoodNeutral  Mood = "neutral"
	MoodExcited  Mood = "excited"
	MoodAngry    Mood = "angry"
	MoodAnxious  Mood = "anxious"
	MoodPeaceful Mood = "peaceful"
	MoodConfused Mood = "confused"
)

var moodLabels = map[Mood]string{
	MoodHappy:    "嬉しい",
	MoodSad:      "悲しい",
	MoodNeutral:  "普通",
	MoodExcited:  "興奮",
	MoodAngry:    "怒り",
	MoodAnxious:  "不安",
	MoodPeaceful: "平和",
	MoodConfused: "混乱",
}

// Label returns the display label for the mood, falling back to the raw
// value for moods outside the known set.
func (m Mood) Label() string {
	if label, ok := moodLabels[m]; ok {
		return label
	}
	return string(m)
}

// Entry is a single diary entry.
type Entry struct {
	ID        int64     `json:"id"`
	UserID    string    `json:"user_id"`
	Content   string    `json:"content"`
	Mood      Mood      `json:"mood"`
	CreatedAt time.Time `json:"created_at"`
}
