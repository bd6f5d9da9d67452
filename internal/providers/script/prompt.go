package script

import (
	"fmt"
	"strings"

	"github.com/angelmondragon/personacast-backend/internal/persona"
	"github.com/angelmondragon/personacast-backend/pkg/enums"
)

const maxTweetRunes = 280

var platformGuidance = map[enums.Platform]string{
	enums.PlatformTwitter: fmt.Sprintf("Write a single post of at most %d characters. Lead with the strongest idea. No hashtags unless they add meaning.", maxTweetRunes),
	enums.PlatformTikTok: "Write a spoken script for a 30 to 60 second vertical video. Open with a hook in the first sentence, " +
		"keep sentences short, and end with a call to action.",
	enums.PlatformInstagram: "Write a spoken script for a 30 to 60 second reel followed by a one-line caption. " +
		"Keep the tone personal and visual.",
}

// BuildPrompt renders the system and user messages for one script request.
func BuildPrompt(req Request) (system, user string) {
	var sb strings.Builder
	sb.WriteString("You write social media content in the creator's own voice.")
	p := req.Persona
	if p.Bio != "" {
		fmt.Fprintf(&sb, "\nCreator bio: %s", p.Bio)
	}
	if p.Style != "" {
		fmt.Fprintf(&sb, "\nStyle: %s", p.Style)
	}
	if p.TargetAudience != "" {
		fmt.Fprintf(&sb, "\nAudience: %s", p.TargetAudience)
	}
	if len(p.Topics) > 0 {
		fmt.Fprintf(&sb, "\nUsual topics: %s", strings.Join(p.Topics, ", "))
	}
	if len(p.Catchphrases) > 0 {
		fmt.Fprintf(&sb, "\nCatchphrases to weave in naturally: %s", strings.Join(p.Catchphrases, "; "))
	}
	system = sb.String()

	var ub strings.Builder
	if guidance, ok := platformGuidance[req.Platform]; ok {
		ub.WriteString(guidance)
		ub.WriteString("\n")
	}
	topic := strings.TrimSpace(req.Topic)
	if topic == "" && len(p.Topics) > 0 {
		topic = p.Topics[0]
	}
	if topic != "" {
		fmt.Fprintf(&ub, "Topic: %s\n", topic)
	}
	if tone := strings.TrimSpace(req.Tone); tone != "" {
		fmt.Fprintf(&ub, "Tone: %s\n", tone)
	}
	ub.WriteString("Return only the content, without preamble.")
	return system, ub.String()
}

// Request is the input to script generation.
type Request struct {
	Persona  persona.Context
	Platform enums.Platform
	Topic    string
	Tone     string
}
