package render

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/twojabajka/server/internal/infra"
)

// FontSet names the families used by one visual style and the TTF files to
// embed for them. File paths are relative to the fonts directory.
type FontSet struct {
	TitleFamily string
	BodyFamily  string
	Files       map[string]map[string]string
}

var defaultFontSet = FontSet{
	TitleFamily: "Luckiest Guy",
	BodyFamily:  "EB Garamond",
	Files: map[string]map[string]string{
		"Luckiest Guy":   {"regular": "Luckiest_Guy/LuckiestGuy-Regular.ttf"},
		"Pacifico":       {"regular": "Pacifico/Pacifico-Regular.ttf"},
		"Dancing Script": {"semibold": "Dancing_Script/DancingScript-SemiBold.ttf"},
		"Caveat Brush":   {"regular": "Caveat_Brush/CaveatBrush-Regular.ttf"},
		"Raleway":        {"light": "Raleway/Raleway-Light.ttf", "regular": "Raleway/Raleway-Regular.ttf"},
		"EB Garamond":    {"regular": "EB_Garamond/EBGaramond-Regular.ttf", "italic": "EB_Garamond/EBGaramond-Italic.ttf", "bold": "EB_Garamond/EBGaramond-Bold.ttf"},
	},
}

var styleFontSets = map[string]FontSet{
	"Bajkowy pastelowy (domyślny)": defaultFontSet,
	"Disney/Pixar": {
		TitleFamily: "Luckiest Guy",
		BodyFamily:  "Nunito",
		Files: map[string]map[string]string{
			"Luckiest Guy": {"regular": "Luckiest_Guy/LuckiestGuy-Regular.ttf"},
			"Nunito":       {"regular": "Nunito/Nunito-Regular.ttf", "bold": "Nunito/Nunito-Bold.ttf"},
		},
	},
	"Płaski i minimalistyczny": {
		TitleFamily: "Montserrat Alternates",
		BodyFamily:  "Montserrat",
		Files: map[string]map[string]string{
			"Montserrat Alternates": {"bold": "Montserrat_Alternates/MontserratAlternates-Bold.ttf"},
			"Montserrat":            {"regular": "Montserrat/Montserrat-Regular.ttf", "bold": "Montserrat/Montserrat-Bold.ttf"},
		},
	},
	"Akwarela": {
		TitleFamily: "Dancing Script",
		BodyFamily:  "Raleway",
		Files: map[string]map[string]string{
			"Dancing Script": {"semibold": "Dancing_Script/DancingScript-SemiBold.ttf"},
			"Raleway":        {"regular": "Raleway/Raleway-Regular.ttf", "semibold": "Raleway/Raleway-SemiBold.ttf"},
		},
	},
	"Komiksowy": {
		TitleFamily: "Bangers",
		BodyFamily:  "Comic Neue",
		Files: map[string]map[string]string{
			"Bangers":    {"regular": "Bangers/Bangers-Regular.ttf"},
			"Comic Neue": {"regular": "Comic_Neue/ComicNeue-Regular.ttf", "bold": "Comic_Neue/ComicNeue-Bold.ttf"},
		},
	},
	"Anime": {
		TitleFamily: "Orbitron",
		BodyFamily:  "M PLUS Rounded 1c",
		Files: map[string]map[string]string{
			"Orbitron":          {"medium": "Orbitron/Orbitron-Medium.ttf", "bold": "Orbitron/Orbitron-Bold.ttf"},
			"M PLUS Rounded 1c": {"regular": "M_PLUS_Rounded_1c/MPLUSRounded1c-Regular.ttf", "bold": "M_PLUS_Rounded_1c/MPLUSRounded1c-Bold.ttf"},
		},
	},
	"Ghibli": {
		TitleFamily: "Caveat Brush",
		BodyFamily:  "Merriweather Sans",
		Files: map[string]map[string]string{
			"Caveat Brush":      {"regular": "Caveat_Brush/CaveatBrush-Regular.ttf"},
			"Merriweather Sans": {"regular": "Merriweather_Sans/MerriweatherSans-Regular.ttf", "bold": "Merriweather_Sans/MerriweatherSans-Bold.ttf"},
		},
	},
	"Fotorealistyczny": {
		TitleFamily: "Anton",
		BodyFamily:  "Roboto",
		Files: map[string]map[string]string{
			"Anton":  {"regular": "Anton/Anton-Regular.ttf"},
			"Roboto": {"regular": "Roboto/Roboto-Regular.ttf", "bold": "Roboto/Roboto-Bold.ttf"},
		},
	},
}

func fontSetFor(styleID string) FontSet {
	if set, ok := styleFontSets[styleID]; ok {
		return set
	}
	return defaultFontSet
}

// buildFontFaces embeds every font of the set as a base64 @font-face rule.
// Unreadable files are skipped with a warning, the browser then substitutes
// a system font for that family.
func buildFontFaces(fontsDir string, set FontSet, logger *infra.Logger) string {
	var b strings.Builder
	families := make([]string, 0, len(set.Files))
	for family := range set.Files {
		families = append(families, family)
	}
	sort.Strings(families)
	for _, family := range families {
		variants := set.Files[family]
		keys := make([]string, 0, len(variants))
		for key := range variants {
			keys = append(keys, key)
		}
		sort.Strings(keys)
		for _, key := range keys {
			data, err := os.ReadFile(filepath.Join(fontsDir, variants[key]))
			if err != nil {
				logger.Warn().Err(err).Str("font", variants[key]).Msg("render: font file unreadable, skipping")
				continue
			}
			fmt.Fprintf(&b,
				"@font-face { font-family: '%s'; src: url(data:font/ttf;base64,%s) format('truetype'); font-weight: %d; font-style: %s; }\n",
				family, base64.StdEncoding.EncodeToString(data), fontWeight(key), fontStyle(key))
		}
	}
	return b.String()
}

func fontWeight(key string) int {
	key = strings.ToLower(key)
	switch {
	case strings.Contains(key, "extralight"):
		return 200
	case strings.Contains(key, "light"):
		return 300
	case strings.Contains(key, "regular"):
		return 400
	case strings.Contains(key, "medium"):
		return 500
	case strings.Contains(key, "semibold"):
		return 600
	case strings.Contains(key, "extrabold"):
		return 800
	case strings.Contains(key, "bold"):
		return 700
	case strings.Contains(key, "black"):
		return 900
	default:
		return 400
	}
}

func fontStyle(key string) string {
	if strings.Contains(strings.ToLower(key), "italic") {
		return "italic"
	}
	return "normal"
}
