package classifier

import "strings"

// Label is one of the five fixed issue categories.
type Label string

const (
	LabelPothole     Label = "pothole"
	LabelGarbage     Label = "garbage"
	LabelWaterLeak   Label = "water_leak"
	LabelStreetLight Label = "street_light"
	LabelUnknown     Label = "unknown"
)

// Prompt is sent with every image.
const Prompt = `
Return ONLY one label:
pothole
garbage
water_leak
street_light
unknown
`

// keywords are checked in order; the first substring found wins.
var keywords = []struct {
	substr string
	label  Label
}{
	{"pothole", LabelPothole},
	{"garbage", LabelGarbage},
	{"water", LabelWaterLeak},
	{"light", LabelStreetLight},
}

// ParseLabel maps free model text to a label by case-insensitive substring
// match in priority order pothole, garbage, water, light.
//
// The match is positional, not semantic: "light rain near a pothole" is a
// pothole. There is no confidence score.
// TODO: ask the model for JSON output with a confidence and drop substring matching.
func ParseLabel(text string) Label {
	lower := strings.ToLower(text)
	for _, k := range keywords {
		if strings.Contains(lower, k.substr) {
			return k.label
		}
	}
	return LabelUnknown
}

// Labels returns every label in priority order, unknown last.
func Labels() []Label {
	return []Label{LabelPothole, LabelGarbage, LabelWaterLeak, LabelStreetLight, LabelUnknown}
}
