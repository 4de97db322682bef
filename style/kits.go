package style

// Kit maps 16 drum slots to MIDI notes
type Kit struct {
	Name  string    `yaml:"name"`
	Title string    `yaml:"title"`
	Slots [16]uint8 `yaml:"slots"`
}

// SlotNames labels the kit slots in order
var SlotNames = [16]string{
	"Kick", "Snare", "Closed HH", "Open HH",
	"Low Tom", "Mid Tom", "High Tom", "Crash",
	"Ride", "Clap", "Rimshot", "Cowbell",
	"Clave", "Maracas", "Low Conga", "High Conga",
}

// SlotOf returns the first slot mapped to pitch
func (k Kit) SlotOf(pitch int) (int, bool) {
	for i, n := range k.Slots {
		if int(n) == pitch {
			return i, true
		}
	}
	return 0, false
}

// NameOf labels a drum pitch, empty if the kit doesn't map it
func (k Kit) NameOf(pitch int) string {
	if slot, ok := k.SlotOf(pitch); ok {
		return SlotNames[slot]
	}
	return ""
}

// builtinKits are always available; YAML kits with the same name replace them
var builtinKits = map[string]Kit{
	"gm": {
		Name:  "gm",
		Title: "General MIDI",
		Slots: [16]uint8{36, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 64, 63},
	},
	"rd8": {
		Name:  "rd8",
		Title: "Behringer RD-8",
		// snare on 40, toms shifted up
		Slots: [16]uint8{36, 40, 42, 46, 45, 48, 50, 49, 51, 39, 37, 56, 75, 70, 64, 63},
	},
	"tr8s": {
		Name:  "tr8s",
		Title: "Roland TR-8S",
		Slots: [16]uint8{36, 38, 42, 46, 41, 43, 45, 49, 51, 39, 37, 56, 75, 70, 62, 63},
	},
}
