package model

// Font size range of the dashboard tables. DefaultFontSize is used until a
// session picks its own.
const (
	DefaultFontSize = 18
	MinFontSize     = 14
	MaxFontSize     = 30
)

// Preferences is the per-session dashboard state. It is handed to handlers
// and never read by the computations themselves.
type Preferences struct {
	FontSize         int      `json:"font_size"`
	FrontlineRegions []string `json:"frontline_regions"`
	SelectedGroups   []string `json:"selected_groups"`
	LastMember       string   `json:"last_member"`
}

// DefaultPreferences returns the state of a fresh session.
func DefaultPreferences() Preferences {
	return Preferences{
		FontSize:         DefaultFontSize,
		FrontlineRegions: []string{},
		SelectedGroups:   []string{},
	}
}

// Normalize clamps the font size and replaces nil lists with empty ones.
func (p Preferences) Normalize() Preferences {
	if p.FontSize < MinFontSize || p.FontSize > MaxFontSize {
		p.FontSize = DefaultFontSize
	}
	if p.FrontlineRegions == nil {
		p.FrontlineRegions = []string{}
	}
	if p.SelectedGroups == nil {
		p.SelectedGroups = []string{}
	}
	return p
}
