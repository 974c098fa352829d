package deckcontent

// SupportedImageFormats lists the raster/vector file extensions accepted by
// AddImageElement, matched case-insensitively.
var SupportedImageFormats = []string{".jpg", ".jpeg", ".png", ".gif", ".bmp", ".webp", ".svg"}

// SupportedFontFamilies lists the font families guaranteed to be available
// to downstream renderers.
var SupportedFontFamilies = []string{"Arial", "Helvetica", "Times New Roman", "Calibri", "Roboto"}

// ElementStyle holds the visual style shared by every element variant.
type ElementStyle struct {
	Color           string  `json:"color"`
	BackgroundColor string  `json:"background_color"`
	BorderColor     string  `json:"border_color"`
	BorderWidth     int     `json:"border_width"`
	Opacity         float64 `json:"opacity"`  // 0-1
	Rotation        float64 `json:"rotation"` // in degrees
	Shadow          bool    `json:"shadow"`
	ShadowColor     string  `json:"shadow_color"`
	ShadowBlur      int     `json:"shadow_blur"`
	ShadowOffsetX   int     `json:"shadow_offset_x"`
	ShadowOffsetY   int     `json:"shadow_offset_y"`
}

// DefaultElementStyle returns the style every new element starts with.
func DefaultElementStyle() ElementStyle {
	return ElementStyle{
		Color:           "#000000",
		BackgroundColor: "transparent",
		BorderColor:     "transparent",
		BorderWidth:     0,
		Opacity:         1.0,
		Rotation:        0.0,
		Shadow:          false,
		ShadowColor:     "#000000",
		ShadowBlur:      5,
		ShadowOffsetX:   2,
		ShadowOffsetY:   2,
	}
}

// SetOpacity sets the opacity, clamped to 0-1.
func (s *ElementStyle) SetOpacity(opacity float64) *ElementStyle {
	s.Opacity = clampFloat(opacity, 0, 1)
	return s
}

// SetColor sets the foreground color.
func (s *ElementStyle) SetColor(color string) *ElementStyle {
	s.Color = color
	return s
}

// SetRotation sets the rotation in degrees.
func (s *ElementStyle) SetRotation(degrees float64) *ElementStyle {
	s.Rotation = degrees
	return s
}

// AnimationSettings holds the entrance/exit animation of an element.
type AnimationSettings struct {
	Entrance string `json:"entrance"`
	Exit     string `json:"exit"`
	Duration int    `json:"duration"` // in milliseconds
	Delay    int    `json:"delay"`    // in milliseconds
}

// DefaultAnimationSettings returns the animation every new element starts with.
func DefaultAnimationSettings() AnimationSettings {
	return AnimationSettings{
		Entrance: "none",
		Exit:     "none",
		Duration: 1000,
		Delay:    0,
	}
}

// clampFloat clamps v to the inclusive range lo-hi.
func clampFloat(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// clampInt clamps v to the inclusive range lo-hi.
func clampInt(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
