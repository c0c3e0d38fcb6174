package model_test

import (
	"testing"

	"github.com/sakif/habit-tracker/internal/model"
)

func TestColorByID(t *testing.T) {
	t.Run("known id resolves", func(t *testing.T) {
		c := model.ColorByID("emerald")
		if c.ID != "emerald" {
			t.Errorf("ColorByID(emerald).ID = %q", c.ID)
		}
	})

	t.Run("unknown id falls back to first entry", func(t *testing.T) {
		c := model.ColorByID("chartreuse")
		if c.ID != model.HabitColors[0].ID {
			t.Errorf("ColorByID(unknown) = %q, want first entry %q", c.ID, model.HabitColors[0].ID)
		}
	})

	t.Run("empty id falls back to first entry", func(t *testing.T) {
		c := model.ColorByID("")
		if c.ID != model.HabitColors[0].ID {
			t.Errorf("ColorByID(\"\") = %q, want first entry %q", c.ID, model.HabitColors[0].ID)
		}
	})
}

func TestPaletteIntegrity(t *testing.T) {
	if len(model.HabitColors) == 0 {
		t.Fatal("color palette is empty — ColorByID's fallback would panic")
	}

	seen := map[string]bool{}
	for _, c := range model.HabitColors {
		if c.ID == "" || c.Bg == "" || c.Accent == "" || c.Label == "" {
			t.Errorf("palette entry %+v has empty fields", c)
		}
		if seen[c.ID] {
			t.Errorf("duplicate palette id %q", c.ID)
		}
		seen[c.ID] = true
	}

	icons := map[string]bool{}
	for _, ic := range model.HabitIcons {
		if ic.Icon == "" || ic.Label == "" {
			t.Errorf("icon entry %+v has empty fields", ic)
		}
		if icons[ic.Icon] {
			t.Errorf("duplicate icon %q", ic.Icon)
		}
		icons[ic.Icon] = true
	}
}
