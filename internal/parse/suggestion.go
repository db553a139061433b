package parse

import "strings"

// Icon names a pictogram in the front-end's closed vocabulary.
type Icon string

const (
	IconPersonFalling       Icon = "person-falling"
	IconBolt                Icon = "bolt"
	IconHelmetSafety        Icon = "helmet-safety"
	IconTriangleExclamation Icon = "triangle-exclamation"
	IconFire                Icon = "fire"
	IconTools               Icon = "tools"
	IconTruckMoving         Icon = "truck-moving"
	IconUserDoctor          Icon = "user-doctor"
	IconTemperatureHigh     Icon = "temperature-high"
	IconWind                Icon = "wind"
)

// DefaultIcon is assigned to suggestion lines that carry no icon tag.
const DefaultIcon = IconTriangleExclamation

// Icons is the vocabulary offered to the model, in prompt order.
var Icons = []Icon{
	IconPersonFalling, IconBolt, IconHelmetSafety, IconTriangleExclamation, IconFire,
	IconTools, IconTruckMoving, IconUserDoctor, IconTemperatureHigh, IconWind,
}

// KnownIcon reports whether icon is part of the vocabulary.
func KnownIcon(icon Icon) bool {
	for _, i := range Icons {
		if i == icon {
			return true
		}
	}
	return false
}

// Suggestion is one ranked safety suggestion.
type Suggestion struct {
	Text string `json:"text"`
	Icon Icon   `json:"icon"`
}

const iconTag = "icon:"

func lastIconTag(s string) int {
	idx := -1
	for _, tag := range []string{iconTag, "Icon:", "ICON:"} {
		if i := strings.LastIndex(s, tag); i > idx {
			idx = i
		}
	}
	return idx
}

// Suggestions parses the suggestion response line by line:
//
//	line := bullet? ws* text (ws* "icon:" ws* token)?
//
// A line with an icon tag yields {text, token}. A line without one, or with an
// empty token, yields {text, DefaultIcon}. Lines whose text is empty are
// dropped. Order is preserved; the icon is not checked against the vocabulary.
func Suggestions(text string) []Suggestion {
	var out []Suggestion
	for _, l := range lines(StripFences(text)) {
		if s, ok := suggestionLine(l); ok {
			out = append(out, s)
		}
	}
	return out
}

func suggestionLine(line string) (Suggestion, bool) {
	body := strings.TrimSpace(strings.ReplaceAll(line, "**", ""))
	body = strings.TrimSpace(listMarker.ReplaceAllString(body, ""))

	icon := DefaultIcon
	if idx := lastIconTag(body); idx >= 0 {
		fields := strings.Fields(body[idx+len(iconTag):])
		if len(fields) > 0 {
			if tok := strings.Trim(fields[0], "[]()\"'`.,;"); tok != "" {
				icon = Icon(tok)
			}
		}
		body = strings.TrimSpace(body[:idx])
	}

	body = strings.TrimSpace(strings.TrimRight(body, "(（[ "))
	if body == "" {
		return Suggestion{}, false
	}
	return Suggestion{Text: body, Icon: icon}, true
}
