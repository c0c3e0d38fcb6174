package model

// Fixed presentation palettes. These are static reference data owned by the
// data model: clients pick a ColorID/icon key from here, and any ColorID
// that doesn't resolve falls back to the first palette entry rather than
// erroring. Not user-editable.

// HabitColor is one entry of the color palette.
type HabitColor struct {
	ID     string `json:"id"`
	Bg     string `json:"bg"`
	Accent string `json:"accent"`
	Label  string `json:"label"`
}

// HabitIcon is one entry of the icon palette.
type HabitIcon struct {
	Icon  string `json:"icon"` // mdi icon key, e.g. "mdi:run"
	Label string `json:"label"`
}

var HabitColors = []HabitColor{
	{ID: "burgundy", Bg: "#5C1A2A", Accent: "#FF3B6F", Label: "Burgundy"},
	{ID: "navy", Bg: "#1A3A5C", Accent: "#3B8FFF", Label: "Navy"},
	{ID: "olive", Bg: "#4A4520", Accent: "#C4B84D", Label: "Olive"},
	{ID: "brown", Bg: "#5C3A1A", Accent: "#FF8C3B", Label: "Brown"},
	{ID: "purple", Bg: "#2D1A5C", Accent: "#8B5CF6", Label: "Purple"},
	{ID: "emerald", Bg: "#1A5C3A", Accent: "#34D399", Label: "Emerald"},
	{ID: "amber", Bg: "#5C4A1A", Accent: "#FBBF24", Label: "Amber"},
	{ID: "coral", Bg: "#5C2A1A", Accent: "#FF6B6B", Label: "Coral"},
}

var HabitIcons = []HabitIcon{
	{Icon: "mdi:book-open-page-variant", Label: "Reading"},
	{Icon: "mdi:run", Label: "Running"},
	{Icon: "mdi:meditation", Label: "Meditate"},
	{Icon: "mdi:dumbbell", Label: "Workout"},
	{Icon: "mdi:water", Label: "Water"},
	{Icon: "mdi:food-apple", Label: "Eat Healthy"},
	{Icon: "mdi:sleep", Label: "Sleep"},
	{Icon: "mdi:music", Label: "Music"},
	{Icon: "mdi:code-tags", Label: "Code"},
	{Icon: "mdi:palette", Label: "Art"},
	{Icon: "mdi:tennis", Label: "Tennis"},
	{Icon: "mdi:bike", Label: "Cycling"},
	{Icon: "mdi:yoga", Label: "Yoga"},
	{Icon: "mdi:pill", Label: "Medicine"},
	{Icon: "mdi:heart-pulse", Label: "Health"},
	{Icon: "mdi:school", Label: "Study"},
	{Icon: "mdi:walk", Label: "Walk"},
	{Icon: "mdi:finance", Label: "Finance"},
	{Icon: "mdi:notebook", Label: "Journal"},
	{Icon: "mdi:smoking-off", Label: "No Smoking"},
}

// ColorByID resolves a ColorID against the palette, falling back to the
// first entry when the id is unknown (including the empty string).
func ColorByID(id string) HabitColor {
	for _, c := range HabitColors {
		if c.ID == id {
			return c
		}
	}
	return HabitColors[0]
}
