package manipulator

import (
	"sort"
	"strings"

	"github.com/pkg/errors"
)

// Preset is a named partial edit merged over the current state.
// Nil fields are left untouched; geometry is never part of a preset.
type Preset struct {
	Name       string   `json:"name"`
	Brightness *Percent `json:"brightness,omitempty"`
	Contrast   *Percent `json:"contrast,omitempty"`
	Saturation *Percent `json:"saturation,omitempty"`
	Blur       *Sigma   `json:"blur,omitempty"`
	Grayscale  *bool    `json:"grayscale,omitempty"`
}

// Merge returns a copy of s with the preset fields applied
func (p Preset) Merge(s EditState) EditState {
	if p.Brightness != nil {
		s.Brightness = *p.Brightness
	}

	if p.Contrast != nil {
		s.Contrast = *p.Contrast
	}

	if p.Saturation != nil {
		s.Saturation = *p.Saturation
	}

	if p.Blur != nil {
		s.Blur = *p.Blur
	}

	if p.Grayscale != nil {
		s.Grayscale = *p.Grayscale
	}

	return s
}

// clone copies the optional fields, callers never share them with the registry
func (p Preset) clone() Preset {
	c := Preset{Name: p.Name}
	if p.Brightness != nil {
		c.Brightness = percent(float64(*p.Brightness))
	}
	if p.Contrast != nil {
		c.Contrast = percent(float64(*p.Contrast))
	}
	if p.Saturation != nil {
		c.Saturation = percent(float64(*p.Saturation))
	}
	if p.Blur != nil {
		c.Blur = sigma(float64(*p.Blur))
	}
	if p.Grayscale != nil {
		c.Grayscale = flag(*p.Grayscale)
	}

	return c
}

const (
	PresetSoft         = "soft"
	PresetVivid        = "vivid"
	PresetBlackWhite   = "black & white"
	PresetQuickEnhance = "quick enhance"
)

var presets = map[string]Preset{
	PresetSoft: {
		Name:       PresetSoft,
		Brightness: percent(105),
		Contrast:   percent(90),
		Saturation: percent(85),
		Blur:       sigma(0.5),
	},
	PresetVivid: {
		Name:       PresetVivid,
		Brightness: percent(105),
		Contrast:   percent(120),
		Saturation: percent(140),
	},
	PresetBlackWhite: {
		Name:       PresetBlackWhite,
		Contrast:   percent(110),
		Saturation: percent(0),
		Grayscale:  flag(true),
	},
	PresetQuickEnhance: {
		Name:       PresetQuickEnhance,
		Brightness: percent(110),
		Contrast:   percent(115),
		Saturation: percent(110),
	},
}

// LookupPreset finds a preset by name. Matching ignores case and
// accepts dashes or underscores in place of spaces.
func LookupPreset(name string) (Preset, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	key = strings.NewReplacer("-", " ", "_", " ").Replace(key)
	key = strings.Join(strings.Fields(key), " ")

	if p, ok := presets[key]; ok {
		return p.clone(), nil
	}

	switch key {
	case "black and white", "bw", "b&w":
		return presets[PresetBlackWhite].clone(), nil
	}

	return Preset{}, errors.Wrapf(ErrUnknownPreset, "%q", name)
}

// Presets lists every preset sorted by name
func Presets() []Preset {
	result := make([]Preset, 0, len(presets))
	for _, p := range presets {
		result = append(result, p.clone())
	}

	sort.Slice(result, func(i, j int) bool { return result[i].Name < result[j].Name })

	return result
}

func percent(v float64) *Percent { p := Percent(v); return &p }
func sigma(v float64) *Sigma     { s := Sigma(v); return &s }
func flag(v bool) *bool          { return &v }
