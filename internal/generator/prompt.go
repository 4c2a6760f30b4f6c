package generator

import (
	"fmt"
	"strings"
	"time"

	"github.com/kokorolog/feedback-service/internal/diary"
	"github.com/kokorolog/feedback-service/internal/persona"
	"github.com/kokorolog/feedback-service/internal/timewindow"
)

var jaWeekdays = [...]string{"日曜日", "月曜日", "火曜日", "水曜日", "木曜日", "金曜日", "土曜日"}

func formatJapaneseDate(t time.Time) string {
	local := t.In(timewindow.JST)
	return fmt.Sprintf("%d年%d月%d日%s", local.Year(), int(local.Month()), local.Day(), jaWeekdays[local.Weekday()])
}

// BuildPrompt renders the feedback instruction for one persona and one
// diary entry. previousFeedbacks carries up to the two most recent texts
// this persona already wrote for the user, so the voice stays continuous
// across days.
func BuildPrompt(p persona.Persona, entry diary.Entry, previousFeedbacks []string) string {
	moodLabel := entry.Mood.Label()

	var b strings.Builder
	fmt.Fprintf(&b, "あなたは%sという%sです。\n\n", p.Name, p.Role)
	fmt.Fprintf(&b, "【あなたの特徴】\n%s\n\n", p.Personality)
	fmt.Fprintf(&b, "【話し方】\n%s\n\n", p.SpeechStyle)
	b.WriteString("【フィードバックの目的】\n")
	b.WriteString("ユーザーが書いた日記に対して、あなたの個性を活かした温かいフィードバックを提供してください。\n")
	b.WriteString("ただの感想ではなく、ユーザーの気持ちに寄り添い、次の日への活力を与えるようなメッセージを心がけてください。\n\n")
	b.WriteString("【フィードバックのガイドライン】\n")
	b.WriteString("1. 日記の内容を丁寧に読み、ユーザーの感情や体験を理解する\n")
	fmt.Fprintf(&b, "2. あなたの個性（%sとして）を活かした独自の視点でコメント\n", p.Role)
	fmt.Fprintf(&b, "3. ユーザーの選んだ気分（%s）を考慮したトーン\n", moodLabel)
	b.WriteString("4. 100-150文字程度で簡潔にまとめる\n")
	b.WriteString("5. 押し付けがましくなく、自然で親しみやすい表現\n")
	b.WriteString("6. ユーザーの体験を否定せず、共感や肯定的な視点を含める")

	if len(previousFeedbacks) > 0 {
		recent := previousFeedbacks
		if len(recent) > 2 {
			recent = recent[len(recent)-2:]
		}
		b.WriteString("\n\n【これまでのやり取り】\n過去にあなたが送ったフィードバック：\n")
		b.WriteString(strings.Join(recent, "\n"))
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\n\n【今回の日記】\n日付: %s\n気分: %s\n内容: \"%s\"\n\n", formatJapaneseDate(entry.CreatedAt), moodLabel, entry.Content)
	fmt.Fprintf(&b, "上記の日記を読んで、%sとして心のこもったフィードバックを書いてください。", p.Name)

	return b.String()
}
