package domain

// Decorative palettes new blocks draw from.

// Tapes are the washi-tape colors stuck on top of blocks.
var Tapes = []string{"#E6B89C", "#9CAF88", "#D4A373", "#CCD5AE", "#E07A5F"}

type Font struct {
	Name  string `json:"name"`
	Value string `json:"value"` // CSS font-family
	Label string `json:"label"`
}

var Fonts = []Font{
	{Name: "Architects Daughter", Value: "'Architects Daughter', cursive", Label: "Handwritten"},
	{Name: "Serif", Value: "serif", Label: "Classic"},
	{Name: "Courier New", Value: "'Courier New', monospace", Label: "Typewriter"},
	{Name: "Caveat", Value: "'Caveat', cursive", Label: "Casual"},
}

type Doodle struct {
	Label string `json:"label"`
	Path  string `json:"path"` // SVG path in a 24x24 viewBox
}

var Doodles = []Doodle{
	{Label: "Star", Path: "M12 17.27L18.18 21l-1.64-7.03L22 9.24l-7.19-.61L12 2 9.19 8.63 2 9.24l5.46 4.73L5.82 21z"},
	{Label: "Heart", Path: "M20.84 4.61a5.5 5.5 0 0 0-7.78 0L12 5.67l-1.06-1.06a5.5 5.5 0 0 0-7.78 7.78l1.06 1.06L12 21.23l7.78-7.78 1.06-1.06a5.5 5.5 0 0 0 0-7.78z"},
	{Label: "Wave", Path: "M2 12c2-4 6-4 8 0s6 4 8 0 6-4 8 0"},
	{Label: "Arrow", Path: "M16 2 L20 6 L16 10 M20 6 L2 6"},
	{Label: "Sparkle", Path: "M12 2C7 7 2 12 2 12s5 5 10 10 10-5 10-10S17 7 12 2zM12 22c0-5-5-10-5-10s5-5 10-10"},
	{Label: "Cloud", Path: "M4 12a8 8 0 0 1 16 0 8 8 0 0 1-8 8 8 8 0 0 1-8-8c0-2.21 1.79-4 4-4h.5"},
	{Label: "Big Star", Path: "M12 2L15.09 8.26L22 9.27L17 14.14L18.18 21.02L12 17.77L5.82 21.02L7 14.14L2 9.27L8.91 8.26L12 2Z"},
	{Label: "Moon", Path: "M3 12 Q12 3 21 12 Q12 21 3 12"},
	{Label: "Leaf", Path: "M12 2 C6 6 6 18 12 22 C18 18 18 6 12 2"},
}

type Sticker struct {
	Emoji string `json:"emoji"`
	Label string `json:"label"`
	Color string `json:"color"`
}

var Stickers = []Sticker{
	{Emoji: "☕", Label: "Coffee", Color: "#D4A373"},
	{Emoji: "🌸", Label: "Flower", Color: "#E6B89C"},
	{Emoji: "🎨", Label: "Art", Color: "#9CAF88"},
	{Emoji: "📷", Label: "Camera", Color: "#CCD5AE"},
	{Emoji: "✨", Label: "Sparkle", Color: "#E07A5F"},
	{Emoji: "🌿", Label: "Plant", Color: "#9CAF88"},
	{Emoji: "🎵", Label: "Music", Color: "#D4A373"},
	{Emoji: "📖", Label: "Book", Color: "#E6B89C"},
	{Emoji: "🌙", Label: "Moon", Color: "#CCD5AE"},
	{Emoji: "☀️", Label: "Sun", Color: "#E07A5F"},
	{Emoji: "🦋", Label: "Butterfly", Color: "#9CAF88"},
	{Emoji: "🎀", Label: "Ribbon", Color: "#E6B89C"},
}

var WashiPatterns = []string{"dots", "stripes", "grid", "floral", "solid"}

// FontByName finds a palette font by name or label, case-sensitively.
func FontByName(name string) (Font, bool) {
	for _, f := range Fonts {
		if f.Name == name || f.Label == name {
			return f, true
		}
	}
	return Font{}, false
}

// DoodleByLabel finds a palette doodle by its label.
func DoodleByLabel(label string) (Doodle, bool) {
	for _, d := range Doodles {
		if d.Label == label {
			return d, true
		}
	}
	return Doodle{}, false
}
