package deckcontent

// ElementUpdate is the interface implemented by the per-variant partial
// update records. Each record carries pointer-typed optional fields; a nil
// field leaves the element untouched. Applying a record to an element of a
// different variant rejects the whole operation.
type ElementUpdate interface {
	// applyTo applies the set fields to el. ok is false on a variant
	// mismatch, in which case el is untouched.
	applyTo(el Element) (result updateResult, ok bool)
}

// updateResult reports which side effects an applied update requires.
type updateResult struct {
	zChanged       bool
	filtersChanged bool
}

// Ptr returns a pointer to v, convenient for filling update records.
func Ptr[T any](v T) *T { return &v }

// StyleUpdate is a partial update of an element's style.
type StyleUpdate struct {
	Color           *string  `json:"color,omitempty"`
	BackgroundColor *string  `json:"background_color,omitempty"`
	BorderColor     *string  `json:"border_color,omitempty"`
	BorderWidth     *int     `json:"border_width,omitempty"`
	Opacity         *float64 `json:"opacity,omitempty"` // clamped to 0-1
	Rotation        *float64 `json:"rotation,omitempty"`
	Shadow          *bool    `json:"shadow,omitempty"`
	ShadowColor     *string  `json:"shadow_color,omitempty"`
	ShadowBlur      *int     `json:"shadow_blur,omitempty"`
	ShadowOffsetX   *int     `json:"shadow_offset_x,omitempty"`
	ShadowOffsetY   *int     `json:"shadow_offset_y,omitempty"`
}

func (u *StyleUpdate) apply(s *ElementStyle) {
	if u == nil {
		return
	}
	if u.Color != nil {
		s.Color = *u.Color
	}
	if u.BackgroundColor != nil {
		s.BackgroundColor = *u.BackgroundColor
	}
	if u.BorderColor != nil {
		s.BorderColor = *u.BorderColor
	}
	if u.BorderWidth != nil {
		s.BorderWidth = *u.BorderWidth
	}
	if u.Opacity != nil {
		s.Opacity = clampFloat(*u.Opacity, 0, 1)
	}
	if u.Rotation != nil {
		s.Rotation = *u.Rotation
	}
	if u.Shadow != nil {
		s.Shadow = *u.Shadow
	}
	if u.ShadowColor != nil {
		s.ShadowColor = *u.ShadowColor
	}
	if u.ShadowBlur != nil {
		s.ShadowBlur = *u.ShadowBlur
	}
	if u.ShadowOffsetX != nil {
		s.ShadowOffsetX = *u.ShadowOffsetX
	}
	if u.ShadowOffsetY != nil {
		s.ShadowOffsetY = *u.ShadowOffsetY
	}
}

// AnimationUpdate is a partial update of an element's animation settings.
type AnimationUpdate struct {
	Entrance *string `json:"entrance,omitempty"`
	Exit     *string `json:"exit,omitempty"`
	Duration *int    `json:"duration,omitempty"`
	Delay    *int    `json:"delay,omitempty"`
}

func (u *AnimationUpdate) apply(a *AnimationSettings) {
	if u == nil {
		return
	}
	if u.Entrance != nil {
		a.Entrance = *u.Entrance
	}
	if u.Exit != nil {
		a.Exit = *u.Exit
	}
	if u.Duration != nil {
		a.Duration = *u.Duration
	}
	if u.Delay != nil {
		a.Delay = *u.Delay
	}
}

// BaseUpdate carries the optional fields shared by every update record.
type BaseUpdate struct {
	X         *float64         `json:"x,omitempty"`
	Y         *float64         `json:"y,omitempty"`
	Width     *float64         `json:"width,omitempty"`
	Height    *float64         `json:"height,omitempty"`
	ZIndex    *int             `json:"z_index,omitempty"`
	Visible   *bool            `json:"visible,omitempty"`
	Locked    *bool            `json:"locked,omitempty"`
	Style     *StyleUpdate     `json:"style,omitempty"`
	Animation *AnimationUpdate `json:"animation,omitempty"`
}

func (u *BaseUpdate) apply(b *BaseElement) (zChanged bool) {
	if u.X != nil {
		b.X = *u.X
	}
	if u.Y != nil {
		b.Y = *u.Y
	}
	if u.Width != nil {
		b.Width = *u.Width
	}
	if u.Height != nil {
		b.Height = *u.Height
	}
	if u.ZIndex != nil {
		zChanged = b.ZIndex != *u.ZIndex
		b.ZIndex = *u.ZIndex
	}
	if u.Visible != nil {
		b.Visible = *u.Visible
	}
	if u.Locked != nil {
		b.Locked = *u.Locked
	}
	u.Style.apply(&b.Style)
	u.Animation.apply(&b.Animation)
	return zChanged
}

// TextUpdate is a partial update of a text element.
type TextUpdate struct {
	BaseUpdate
	Text           *string  `json:"text,omitempty"`
	FontFamily     *string  `json:"font_family,omitempty"`
	FontSize       *int     `json:"font_size,omitempty"`
	FontWeight     *string  `json:"font_weight,omitempty"`
	FontStyle      *string  `json:"font_style,omitempty"`
	TextAlign      *string  `json:"text_align,omitempty"`
	TextDecoration *string  `json:"text_decoration,omitempty"`
	LineHeight     *float64 `json:"line_height,omitempty"`
	LetterSpacing  *float64 `json:"letter_spacing,omitempty"`
	WordSpacing    *float64 `json:"word_spacing,omitempty"`
	MaxLines       **int    `json:"max_lines,omitempty"`
	TextTransform  *string  `json:"text_transform,omitempty"`
	VerticalAlign  *string  `json:"vertical_align,omitempty"`
	WhiteSpace     *string  `json:"white_space,omitempty"`
	WordWrap       *bool    `json:"word_wrap,omitempty"`
	TextOverflow   *string  `json:"text_overflow,omitempty"`
}

func (u TextUpdate) applyTo(el Element) (updateResult, bool) {
	t, ok := el.(*TextElement)
	if !ok {
		return updateResult{}, false
	}
	var res updateResult
	res.zChanged = u.BaseUpdate.apply(&t.BaseElement)
	if u.Text != nil {
		t.Text = *u.Text
	}
	if u.FontFamily != nil {
		t.FontFamily = *u.FontFamily
	}
	if u.FontSize != nil {
		t.FontSize = *u.FontSize
	}
	if u.FontWeight != nil {
		t.FontWeight = *u.FontWeight
	}
	if u.FontStyle != nil {
		t.FontStyle = *u.FontStyle
	}
	if u.TextAlign != nil {
		t.TextAlign = *u.TextAlign
	}
	if u.TextDecoration != nil {
		t.TextDecoration = *u.TextDecoration
	}
	if u.LineHeight != nil {
		t.LineHeight = *u.LineHeight
	}
	if u.LetterSpacing != nil {
		t.LetterSpacing = *u.LetterSpacing
	}
	if u.WordSpacing != nil {
		t.WordSpacing = *u.WordSpacing
	}
	if u.MaxLines != nil {
		t.MaxLines = *u.MaxLines
	}
	if u.TextTransform != nil {
		t.TextTransform = *u.TextTransform
	}
	if u.VerticalAlign != nil {
		t.VerticalAlign = *u.VerticalAlign
	}
	if u.WhiteSpace != nil {
		t.WhiteSpace = *u.WhiteSpace
	}
	if u.WordWrap != nil {
		t.WordWrap = *u.WordWrap
	}
	if u.TextOverflow != nil {
		t.TextOverflow = *u.TextOverflow
	}
	return res, true
}

// FilterUpdate is a partial update of an image's filter bank. Every set
// parameter is clamped to its documented range.
type FilterUpdate struct {
	Brightness *int `json:"brightness,omitempty"` // 0-200
	Contrast   *int `json:"contrast,omitempty"`   // 0-200
	Saturation *int `json:"saturation,omitempty"` // 0-200
	Hue        *int `json:"hue,omitempty"`        // 0-360
	Blur       *int `json:"blur,omitempty"`       // 0-20
	Grayscale  *int `json:"grayscale,omitempty"`  // 0-100
	Sepia      *int `json:"sepia,omitempty"`      // 0-100
	Invert     *int `json:"invert,omitempty"`     // 0-100
}

func (u *FilterUpdate) apply(f *FilterBank) (changed bool) {
	if u == nil {
		return false
	}
	set := func(dst *int, v *int, lo, hi int) {
		if v != nil {
			*dst = clampInt(*v, lo, hi)
			changed = true
		}
	}
	set(&f.Brightness, u.Brightness, 0, 200)
	set(&f.Contrast, u.Contrast, 0, 200)
	set(&f.Saturation, u.Saturation, 0, 200)
	set(&f.Hue, u.Hue, 0, 360)
	set(&f.Blur, u.Blur, 0, 20)
	set(&f.Grayscale, u.Grayscale, 0, 100)
	set(&f.Sepia, u.Sepia, 0, 100)
	set(&f.Invert, u.Invert, 0, 100)
	return changed
}

// CropUpdate is a partial update of an image's crop region percentages.
type CropUpdate struct {
	X      *float64 `json:"x,omitempty"`
	Y      *float64 `json:"y,omitempty"`
	Width  *float64 `json:"width,omitempty"`
	Height *float64 `json:"height,omitempty"`
}

func (u *CropUpdate) apply(c *CropRegion) {
	if u == nil {
		return
	}
	if u.X != nil {
		c.X = clampFloat(*u.X, 0, 100)
	}
	if u.Y != nil {
		c.Y = clampFloat(*u.Y, 0, 100)
	}
	if u.Width != nil {
		c.Width = clampFloat(*u.Width, 0, 100)
	}
	if u.Height != nil {
		c.Height = clampFloat(*u.Height, 0, 100)
	}
}

// ImageUpdate is a partial update of an image element.
type ImageUpdate struct {
	BaseUpdate
	AltText             *string       `json:"alt_text,omitempty"`
	FitMode             *string       `json:"fit_mode,omitempty"`
	Quality             *int          `json:"image_quality,omitempty"` // clamped to 1-100
	PreserveAspectRatio *bool         `json:"preserve_aspect_ratio,omitempty"`
	Filters             *FilterUpdate `json:"filter_effects,omitempty"`
	Crop                *CropUpdate   `json:"crop,omitempty"`
}

func (u ImageUpdate) applyTo(el Element) (updateResult, bool) {
	img, ok := el.(*ImageElement)
	if !ok {
		return updateResult{}, false
	}
	var res updateResult
	res.zChanged = u.BaseUpdate.apply(&img.BaseElement)
	if u.AltText != nil {
		img.AltText = *u.AltText
	}
	if u.FitMode != nil {
		img.FitMode = *u.FitMode
	}
	if u.Quality != nil {
		img.Quality = clampInt(*u.Quality, 1, 100)
	}
	if u.PreserveAspectRatio != nil {
		img.PreserveAspectRatio = *u.PreserveAspectRatio
	}
	res.filtersChanged = u.Filters.apply(&img.Filters)
	u.Crop.apply(&img.Crop)
	return res, true
}

// IconUpdate is a partial update of an icon element.
type IconUpdate struct {
	BaseUpdate
	IconCode        *string   `json:"icon_code,omitempty"`
	IconType        *IconType `json:"icon_type,omitempty"`
	IconFamily      *string   `json:"icon_family,omitempty"`
	IconSize        *int      `json:"icon_size,omitempty"`
	IconColor       *string   `json:"icon_color,omitempty"`
	IconLibrary     *string   `json:"icon_library,omitempty"`
	IconVariant     *string   `json:"icon_variant,omitempty"`
	CustomSVGPath   *string   `json:"custom_svg_path,omitempty"`
	CustomImagePath *string   `json:"custom_image_path,omitempty"`
}

func (u IconUpdate) applyTo(el Element) (updateResult, bool) {
	ic, ok := el.(*IconElement)
	if !ok {
		return updateResult{}, false
	}
	var res updateResult
	res.zChanged = u.BaseUpdate.apply(&ic.BaseElement)
	if u.IconCode != nil {
		ic.IconCode = *u.IconCode
	}
	if u.IconType != nil {
		ic.IconType = *u.IconType
	}
	if u.IconFamily != nil {
		ic.IconFamily = *u.IconFamily
	}
	if u.IconSize != nil {
		ic.IconSize = *u.IconSize
	}
	if u.IconColor != nil {
		ic.IconColor = *u.IconColor
	}
	if u.IconLibrary != nil {
		ic.IconLibrary = *u.IconLibrary
	}
	if u.IconVariant != nil {
		ic.IconVariant = *u.IconVariant
	}
	if u.CustomSVGPath != nil {
		ic.CustomSVGPath = *u.CustomSVGPath
	}
	if u.CustomImagePath != nil {
		ic.CustomImagePath = *u.CustomImagePath
	}
	return res, true
}

// SymbolUpdate is a partial update of a symbol element.
type SymbolUpdate struct {
	BaseUpdate
	Symbol         *string     `json:"symbol,omitempty"`
	SymbolType     *SymbolType `json:"symbol_type,omitempty"`
	SymbolSize     *int        `json:"symbol_size,omitempty"`
	SymbolUnicode  *string     `json:"symbol_unicode,omitempty"`
	SymbolName     *string     `json:"symbol_name,omitempty"`
	SymbolCategory *string     `json:"symbol_category,omitempty"`
	MathNotation   *string     `json:"math_notation,omitempty"`
	LatexCode      *string     `json:"latex_code,omitempty"`
}

func (u SymbolUpdate) applyTo(el Element) (updateResult, bool) {
	sym, ok := el.(*SymbolElement)
	if !ok {
		return updateResult{}, false
	}
	var res updateResult
	res.zChanged = u.BaseUpdate.apply(&sym.BaseElement)
	if u.Symbol != nil {
		sym.Symbol = *u.Symbol
	}
	if u.SymbolType != nil {
		sym.SymbolType = *u.SymbolType
	}
	if u.SymbolSize != nil {
		sym.SymbolSize = *u.SymbolSize
	}
	if u.SymbolUnicode != nil {
		sym.SymbolUnicode = *u.SymbolUnicode
	}
	if u.SymbolName != nil {
		sym.SymbolName = *u.SymbolName
	}
	if u.SymbolCategory != nil {
		sym.SymbolCategory = *u.SymbolCategory
	}
	if u.MathNotation != nil {
		sym.MathNotation = *u.MathNotation
	}
	if u.LatexCode != nil {
		sym.LatexCode = *u.LatexCode
	}
	return res, true
}
