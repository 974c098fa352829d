package deckcontent

import (
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"

	"github.com/google/uuid"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Element is the interface that all slide content elements implement.
type Element interface {
	// Kind reports the element variant.
	Kind() ElementType
	// ElementID returns the immutable element identifier.
	ElementID() string
	// base returns the underlying BaseElement (unexported, internal use only).
	base() *BaseElement
}

// ElementType represents the variant of a content element.
type ElementType string

const (
	ElementTypeText   ElementType = "text"
	ElementTypeImage  ElementType = "image"
	ElementTypeIcon   ElementType = "icon"
	ElementTypeSymbol ElementType = "symbol"
)

// errUnknownElementType is returned by UnmarshalElement when the type
// discriminator names no known variant. Containers skip such records.
var errUnknownElementType = errors.New("unknown element type")

// BaseElement contains the properties common to every element variant.
type BaseElement struct {
	ID         string            `json:"id"`
	Type       ElementType       `json:"type"`
	X          float64           `json:"x"`
	Y          float64           `json:"y"`
	Width      float64           `json:"width"`
	Height     float64           `json:"height"`
	ZIndex     int               `json:"z_index"`
	Visible    bool              `json:"visible"`
	Locked     bool              `json:"locked"`
	CreatedAt  Timestamp         `json:"created_at"`
	ModifiedAt Timestamp         `json:"modified_at"`
	Style      ElementStyle      `json:"style"`
	Animation  AnimationSettings `json:"animation"`
}

func newBaseElement(t ElementType) BaseElement {
	now := Now()
	return BaseElement{
		ID:         uuid.NewString(),
		Type:       t,
		X:          0,
		Y:          0,
		Width:      100,
		Height:     50,
		ZIndex:     0,
		Visible:    true,
		Locked:     false,
		CreatedAt:  now,
		ModifiedAt: now,
		Style:      DefaultElementStyle(),
		Animation:  DefaultAnimationSettings(),
	}
}

func (b *BaseElement) Kind() ElementType  { return b.Type }
func (b *BaseElement) ElementID() string  { return b.ID }
func (b *BaseElement) base() *BaseElement { return b }

// UpdatePosition moves the element and refreshes the modified timestamp.
// The owning slide's update path is responsible for version bookkeeping.
func (b *BaseElement) UpdatePosition(x, y float64) {
	b.X = x
	b.Y = y
	b.touch()
}

// UpdateSize resizes the element and refreshes the modified timestamp.
func (b *BaseElement) UpdateSize(width, height float64) {
	b.Width = width
	b.Height = height
	b.touch()
}

func (b *BaseElement) touch() {
	b.ModifiedAt = Timestamp{Time: time.Now()}
}

// fixTimestamps applies the decode fallback rules: a timestamp that failed
// to parse resets both created and modified to the current time.
func (b *BaseElement) fixTimestamps() {
	if b.CreatedAt.unparsable || b.ModifiedAt.unparsable {
		now := Now()
		b.CreatedAt = now
		b.ModifiedAt = now
	}
}

// TextElement is a block of literal text.
type TextElement struct {
	BaseElement
	Text           string  `json:"text"`
	FontFamily     string  `json:"font_family"`
	FontSize       int     `json:"font_size"`
	FontWeight     string  `json:"font_weight"`     // normal, bold, lighter, bolder
	FontStyle      string  `json:"font_style"`      // normal, italic, oblique
	TextAlign      string  `json:"text_align"`      // left, center, right, justify
	TextDecoration string  `json:"text_decoration"` // none, underline, line-through, overline
	LineHeight     float64 `json:"line_height"`
	LetterSpacing  float64 `json:"letter_spacing"`
	WordSpacing    float64 `json:"word_spacing"`
	MaxLines       *int    `json:"max_lines"`
	TextTransform  string  `json:"text_transform"` // none, uppercase, lowercase, capitalize
	VerticalAlign  string  `json:"vertical_align"` // top, middle, bottom
	WhiteSpace     string  `json:"white_space"`    // normal, nowrap, pre, pre-wrap
	WordWrap       bool    `json:"word_wrap"`
	TextOverflow   string  `json:"text_overflow"` // ellipsis, clip
}

// NewTextElement creates a text element with default formatting.
func NewTextElement(text string) *TextElement {
	return &TextElement{
		BaseElement:    newBaseElement(ElementTypeText),
		Text:           text,
		FontFamily:     "Arial",
		FontSize:       16,
		FontWeight:     "normal",
		FontStyle:      "normal",
		TextAlign:      "left",
		TextDecoration: "none",
		LineHeight:     1.2,
		LetterSpacing:  0,
		WordSpacing:    0,
		TextTransform:  "none",
		VerticalAlign:  "top",
		WhiteSpace:     "normal",
		WordWrap:       true,
		TextOverflow:   "ellipsis",
	}
}

// FormattedText returns the text with the case transform applied.
// "capitalize" uppercases the first rune and lowercases the remainder.
func (t *TextElement) FormattedText() string {
	switch t.TextTransform {
	case "uppercase":
		return cases.Upper(language.Und).String(t.Text)
	case "lowercase":
		return cases.Lower(language.Und).String(t.Text)
	case "capitalize":
		if t.Text == "" {
			return ""
		}
		_, size := utf8.DecodeRuneInString(t.Text)
		head := cases.Upper(language.Und).String(t.Text[:size])
		tail := cases.Lower(language.Und).String(t.Text[size:])
		return head + tail
	default:
		return t.Text
	}
}

// CropRegion describes a crop box in percentages of the source image.
type CropRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// ImageInfo caches metadata probed from an image file.
type ImageInfo struct {
	Format          string `json:"format"`
	Size            [2]int `json:"size"` // width, height in pixels
	FileSize        int64  `json:"file_size"`
	ColorMode       string `json:"color_mode"`
	HasTransparency bool   `json:"has_transparency"`
}

// ImageElement is a raster or vector image placed on a slide.
type ImageElement struct {
	BaseElement
	ImagePath           string     `json:"image_path"`    // relative to the media base, post-copy
	OriginalPath        string     `json:"original_path"` // caller-supplied source, provenance only
	AltText             string     `json:"alt_text"`
	FitMode             string     `json:"fit_mode"`      // contain, cover, fill, scale-down, none
	Quality             int        `json:"image_quality"` // 1-100
	PreserveAspectRatio bool       `json:"preserve_aspect_ratio"`
	Filters             FilterBank `json:"filter_effects"`
	Crop                CropRegion `json:"crop"`
	Info                ImageInfo  `json:"image_info"`
}

// NewImageElement creates an image element for the given path.
func NewImageElement(imagePath string) *ImageElement {
	return &ImageElement{
		BaseElement:         newBaseElement(ElementTypeImage),
		ImagePath:           imagePath,
		OriginalPath:        imagePath,
		FitMode:             "contain",
		Quality:             100,
		PreserveAspectRatio: true,
		Filters:             DefaultFilterBank(),
		Crop:                CropRegion{X: 0, Y: 0, Width: 100, Height: 100},
	}
}

// SetQuality sets the encode quality, clamped to 1-100.
func (e *ImageElement) SetQuality(q int) *ImageElement {
	e.Quality = clampInt(q, 1, 100)
	return e
}

// ProcessedPath returns the deterministic media-relative destination of the
// filtered render for the given slide. The name is keyed by a prefix of the
// element identifier so repeated runs overwrite the same file. Empty when
// the element holds no image path.
func (e *ImageElement) ProcessedPath(slideID int) string {
	if e.ImagePath == "" {
		return ""
	}
	base := filepath.Base(e.ImagePath)
	ext := filepath.Ext(base)
	stem := strings.TrimSuffix(base, ext)
	name := fmt.Sprintf("%s_processed_%s%s", stem, shortID(e.ID), ext)
	return filepath.Join(fmt.Sprintf("slide_%d", slideID), "images", "processed", name)
}

// ThumbnailPath returns the media-relative thumbnail location for the given
// slide. Thumbnails are always encoded as JPEG.
func (e *ImageElement) ThumbnailPath(slideID int) string {
	name := fmt.Sprintf("thumb_%s.jpg", shortID(e.ID))
	return filepath.Join(fmt.Sprintf("slide_%d", slideID), "images", "thumbnails", name)
}

// shortID returns the first 8 characters of an element identifier, used to
// key derived artifact filenames.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// IconType represents the taxonomy an icon code belongs to.
type IconType string

const (
	IconTypeUnicode     IconType = "unicode"
	IconTypeFontAwesome IconType = "fontawesome"
	IconTypeMaterial    IconType = "material"
	IconTypeCustom      IconType = "custom"
	IconTypeEmoji       IconType = "emoji"
)

// IconElement is a glyph drawn from an icon font or a custom asset.
type IconElement struct {
	BaseElement
	IconCode        string   `json:"icon_code"`
	IconType        IconType `json:"icon_type"`
	IconFamily      string   `json:"icon_family"`
	IconSize        int      `json:"icon_size"`
	IconColor       string   `json:"icon_color"`
	IconLibrary     string   `json:"icon_library"`
	IconVariant     string   `json:"icon_variant"` // regular, solid, light, duotone
	CustomSVGPath   string   `json:"custom_svg_path"`
	CustomImagePath string   `json:"custom_image_path"`
}

// NewIconElement creates an icon element with default styling.
func NewIconElement(code string, iconType IconType) *IconElement {
	if iconType == "" {
		iconType = IconTypeUnicode
	}
	return &IconElement{
		BaseElement: newBaseElement(ElementTypeIcon),
		IconCode:    code,
		IconType:    iconType,
		IconFamily:  "Arial",
		IconSize:    24,
		IconColor:   "#000000",
		IconVariant: "regular",
	}
}

// DisplayValue returns the renderable form of the icon code. FontAwesome
// codes are prefixed with "fa-"; every other taxonomy renders verbatim.
func (e *IconElement) DisplayValue() string {
	if e.IconType == IconTypeFontAwesome {
		return "fa-" + e.IconCode
	}
	return e.IconCode
}

// SymbolType represents the category of a symbol element.
type SymbolType string

const (
	SymbolTypeEmoji        SymbolType = "emoji"
	SymbolTypeMathematical SymbolType = "mathematical"
	SymbolTypeGeometric    SymbolType = "geometric"
	SymbolTypeCurrency     SymbolType = "currency"
	SymbolTypeArrow        SymbolType = "arrow"
)

// SymbolElement is a literal symbol such as an emoji or a mathematical sign.
type SymbolElement struct {
	BaseElement
	Symbol         string     `json:"symbol"`
	SymbolType     SymbolType `json:"symbol_type"`
	SymbolSize     int        `json:"symbol_size"`
	SymbolUnicode  string     `json:"symbol_unicode"`
	SymbolName     string     `json:"symbol_name"`
	SymbolCategory string     `json:"symbol_category"`
	MathNotation   string     `json:"math_notation"`
	LatexCode      string     `json:"latex_code"`
}

// NewSymbolElement creates a symbol element. An empty symbolType is
// auto-classified from the symbol's code points.
func NewSymbolElement(symbol string, symbolType SymbolType) *SymbolElement {
	if symbolType == "" {
		symbolType = ClassifySymbol(symbol)
	}
	return &SymbolElement{
		BaseElement: newBaseElement(ElementTypeSymbol),
		Symbol:      symbol,
		SymbolType:  symbolType,
		SymbolSize:  24,
	}
}

// UnicodeDescriptor holds the derived representations of a code point.
type UnicodeDescriptor struct {
	Decimal string `json:"decimal"`
	Hex     string `json:"hex"`
	HTML    string `json:"html"`
	CSS     string `json:"css"`
}

// UnicodeInfo derives the Unicode descriptor from the symbol's first code
// point. The zero descriptor is returned for an empty symbol.
func (e *SymbolElement) UnicodeInfo() UnicodeDescriptor {
	if e.Symbol == "" {
		return UnicodeDescriptor{}
	}
	r, _ := utf8.DecodeRuneInString(e.Symbol)
	return UnicodeDescriptor{
		Decimal: fmt.Sprintf("%d", r),
		Hex:     fmt.Sprintf("U+%04X", r),
		HTML:    fmt.Sprintf("&#%d;", r),
		CSS:     fmt.Sprintf("\\%04X", r),
	}
}

// MarshalJSON adds the computed unicode_info key to the serialized form.
// The key is ignored on decode.
func (e *SymbolElement) MarshalJSON() ([]byte, error) {
	type symbolAlias SymbolElement
	return json.Marshal(struct {
		*symbolAlias
		UnicodeInfo UnicodeDescriptor `json:"unicode_info"`
	}{(*symbolAlias)(e), e.UnicodeInfo()})
}

// mathRanges are the Unicode blocks treated as mathematical symbols:
// Mathematical Operators, Arrows and the two Miscellaneous Mathematical
// Symbols blocks.
var mathRanges = [][2]rune{
	{0x2200, 0x22FF},
	{0x2190, 0x21FF},
	{0x27C0, 0x27EF},
	{0x2980, 0x29FF},
}

// ClassifySymbol picks a symbol type from the code points: any rune in
// category So classifies as emoji, otherwise any rune in a mathematical
// block classifies as mathematical. Everything else defaults to emoji.
func ClassifySymbol(symbol string) SymbolType {
	for _, r := range symbol {
		if unicode.Is(unicode.So, r) {
			return SymbolTypeEmoji
		}
	}
	for _, r := range symbol {
		for _, rng := range mathRanges {
			if r >= rng[0] && r <= rng[1] {
				return SymbolTypeMathematical
			}
		}
	}
	return SymbolTypeEmoji
}

// UnmarshalElement decodes one serialized element, dispatching on the type
// discriminator. Missing keys keep their documented defaults. An unknown
// discriminator yields errUnknownElementType; containers skip the record.
func UnmarshalElement(data []byte) (Element, error) {
	var probe struct {
		Type ElementType `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("failed to probe element type: %w", err)
	}

	var el Element
	switch probe.Type {
	case ElementTypeText:
		el = NewTextElement("")
	case ElementTypeImage:
		el = NewImageElement("")
	case ElementTypeIcon:
		el = NewIconElement("", IconTypeUnicode)
	case ElementTypeSymbol:
		el = NewSymbolElement("", SymbolTypeEmoji)
	default:
		return nil, fmt.Errorf("%w: %q", errUnknownElementType, probe.Type)
	}

	if err := json.Unmarshal(data, el); err != nil {
		return nil, fmt.Errorf("failed to decode %s element: %w", probe.Type, err)
	}
	b := el.base()
	b.Type = probe.Type
	b.fixTimestamps()
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return el, nil
}
