package deckcontent

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/google/uuid"
)

// Default slide canvas size in pixels.
const (
	DefaultSlideWidth  = 1920
	DefaultSlideHeight = 1080
)

// Sentinel errors for rejected image additions.
var (
	ErrImageSourceNotFound    = errors.New("image source file not found")
	ErrUnsupportedImageFormat = errors.New("unsupported image format")
)

// SlideConfig holds per-slide display configuration.
type SlideConfig struct {
	Width           int     `json:"width"`
	Height          int     `json:"height"`
	AnimationIn     string  `json:"animation_in"`
	AnimationOut    string  `json:"animation_out"`
	Duration        int     `json:"duration"` // display duration in milliseconds
	AutoAdvance     bool    `json:"auto_advance"`
	Transition      string  `json:"transition"`
	BackgroundMusic *string `json:"background_music"`
	Notes           string  `json:"notes"`
}

// DefaultSlideConfig returns the configuration every new slide starts with.
func DefaultSlideConfig() SlideConfig {
	return SlideConfig{
		Width:        DefaultSlideWidth,
		Height:       DefaultSlideHeight,
		AnimationIn:  "none",
		AnimationOut: "none",
		Duration:     5000,
		AutoAdvance:  false,
		Transition:   "none",
		Notes:        "",
	}
}

// Slide is an ordered, keyed collection of elements with a monotonic
// version counter and a bounded mutation history.
type Slide struct {
	ID                 int
	Title              string
	BackgroundColor    string
	BackgroundImage    *string
	BackgroundGradient *string
	CreatedAt          Timestamp
	LastModified       Timestamp
	Version            int
	Config             SlideConfig

	elements  map[string]Element
	order     []string
	history   historyRing
	mediaBase string
	logger    *slog.Logger
}

// NewSlide creates an empty slide with the default media base. Slides
// created through a Store inherit the store's media base and logger.
func NewSlide(id int, title string) *Slide {
	return newSlide(id, title, defaultMediaBase, nil)
}

func newSlide(id int, title string, mediaBase string, logger *slog.Logger) *Slide {
	if logger == nil {
		logger = discardLogger()
	}
	now := Now()
	return &Slide{
		ID:              id,
		Title:           title,
		BackgroundColor: "#ffffff",
		CreatedAt:       now,
		LastModified:    now,
		Version:         1,
		Config:          DefaultSlideConfig(),
		elements:        make(map[string]Element),
		mediaBase:       mediaBase,
		logger:          logger,
	}
}

// recordChange appends a history entry carrying the pre-mutation version.
func (s *Slide) recordChange(action, elementID string, data map[string]any) {
	s.history.push(ChangeRecord{
		Timestamp: Now(),
		Action:    action,
		ElementID: elementID,
		Data:      data,
		Version:   s.Version,
	})
}

// markModified advances the version counter and refreshes LastModified.
// Every successful mutation calls it exactly once.
func (s *Slide) markModified() {
	s.Version++
	s.LastModified = Now()
}

// TextOptions customizes AddTextElement. Zero-valued fields keep the
// documented defaults.
type TextOptions struct {
	Width         float64 // default 200
	Height        float64 // default 50
	FontFamily    string
	FontSize      int
	FontWeight    string
	FontStyle     string
	TextAlign     string
	LineHeight    float64
	TextTransform string
}

// AddTextElement appends a text element to the slide and returns its
// identifier. It never fails.
func (s *Slide) AddTextElement(text string, x, y float64, opts *TextOptions) string {
	el := NewTextElement(text)
	el.X = x
	el.Y = y
	el.Width = 200
	el.Height = 50
	if opts != nil {
		if opts.Width > 0 {
			el.Width = opts.Width
		}
		if opts.Height > 0 {
			el.Height = opts.Height
		}
		if opts.FontFamily != "" {
			el.FontFamily = opts.FontFamily
		}
		if opts.FontSize > 0 {
			el.FontSize = opts.FontSize
		}
		if opts.FontWeight != "" {
			el.FontWeight = opts.FontWeight
		}
		if opts.FontStyle != "" {
			el.FontStyle = opts.FontStyle
		}
		if opts.TextAlign != "" {
			el.TextAlign = opts.TextAlign
		}
		if opts.LineHeight > 0 {
			el.LineHeight = opts.LineHeight
		}
		if opts.TextTransform != "" {
			el.TextTransform = opts.TextTransform
		}
	}

	s.insertElement(el)
	s.recordChange(actionAddElement, el.ID, map[string]any{"type": "text", "text": text})
	s.markModified()

	s.logger.Debug("added text element", "slide", s.ID, "element", el.ID)
	return el.ID
}

// ImageOptions customizes AddImageElement.
type ImageOptions struct {
	Width   float64 // default 100
	Height  float64 // default 100
	AltText string
	FitMode string // contain, cover, fill, scale-down, none
	Quality int    // 1-100, default 100
}

// AddImageElement copies the source image into the slide's media folder,
// probes its metadata, appends an image element and runs the filter
// pipeline with the element's default filter bank. The source must exist
// and bear a supported extension; on failure nothing is mutated and no
// identifier is returned.
func (s *Slide) AddImageElement(imagePath string, x, y float64, opts *ImageOptions) (string, error) {
	if _, err := os.Stat(imagePath); err != nil {
		s.logger.Error("image source not found", "slide", s.ID, "path", imagePath)
		return "", fmt.Errorf("%w: %s", ErrImageSourceNotFound, imagePath)
	}
	ext := strings.ToLower(filepath.Ext(imagePath))
	if !isSupportedImageFormat(ext) {
		s.logger.Error("unsupported image format", "slide", s.ID, "ext", ext)
		return "", fmt.Errorf("%w: %s", ErrUnsupportedImageFormat, ext)
	}

	relPath, err := s.copyImageToSlideFolder(imagePath)
	if err != nil {
		s.logger.Error("failed to copy image", "slide", s.ID, "path", imagePath, "error", err)
		return "", err
	}

	el := NewImageElement(relPath)
	el.OriginalPath = imagePath
	el.X = x
	el.Y = y
	el.Width = 100
	el.Height = 100
	if opts != nil {
		if opts.Width > 0 {
			el.Width = opts.Width
		}
		if opts.Height > 0 {
			el.Height = opts.Height
		}
		if opts.AltText != "" {
			el.AltText = opts.AltText
		}
		if opts.FitMode != "" {
			el.FitMode = opts.FitMode
		}
		if opts.Quality > 0 {
			el.SetQuality(opts.Quality)
		}
	}
	el.Info = probeImageInfo(imagePath)

	s.insertElement(el)
	s.recordChange(actionAddElement, el.ID, map[string]any{"type": "image", "path": imagePath})
	s.markModified()

	s.applyImageFilters(el)

	s.logger.Debug("added image element", "slide", s.ID, "element", el.ID, "file", filepath.Base(imagePath))
	return el.ID, nil
}

// IconOptions customizes AddIconElement.
type IconOptions struct {
	IconType    IconType
	IconFamily  string
	IconColor   string
	IconLibrary string
	IconVariant string
}

// AddIconElement appends an icon element sized size x size and returns its
// identifier.
func (s *Slide) AddIconElement(code string, x, y float64, size int, opts *IconOptions) string {
	if size <= 0 {
		size = 24
	}
	var iconType IconType
	if opts != nil {
		iconType = opts.IconType
	}
	el := NewIconElement(code, iconType)
	el.X = x
	el.Y = y
	el.Width = float64(size)
	el.Height = float64(size)
	el.IconSize = size
	if opts != nil {
		if opts.IconFamily != "" {
			el.IconFamily = opts.IconFamily
		}
		if opts.IconColor != "" {
			el.IconColor = opts.IconColor
		}
		if opts.IconLibrary != "" {
			el.IconLibrary = opts.IconLibrary
		}
		if opts.IconVariant != "" {
			el.IconVariant = opts.IconVariant
		}
	}

	s.insertElement(el)
	s.recordChange(actionAddElement, el.ID, map[string]any{"type": "icon", "code": code})
	s.markModified()

	s.logger.Debug("added icon element", "slide", s.ID, "element", el.ID)
	return el.ID
}

// SymbolOptions customizes AddSymbolElement.
type SymbolOptions struct {
	SymbolType     SymbolType // auto-classified from the symbol when empty
	SymbolName     string
	SymbolCategory string
}

// AddSymbolElement appends a symbol element sized size x size and returns
// its identifier. An unspecified symbol type is classified from the
// symbol's code points.
func (s *Slide) AddSymbolElement(symbol string, x, y float64, size int, opts *SymbolOptions) string {
	if size <= 0 {
		size = 24
	}
	var symbolType SymbolType
	if opts != nil {
		symbolType = opts.SymbolType
	}
	el := NewSymbolElement(symbol, symbolType)
	el.X = x
	el.Y = y
	el.Width = float64(size)
	el.Height = float64(size)
	el.SymbolSize = size
	if opts != nil {
		if opts.SymbolName != "" {
			el.SymbolName = opts.SymbolName
		}
		if opts.SymbolCategory != "" {
			el.SymbolCategory = opts.SymbolCategory
		}
	}

	s.insertElement(el)
	s.recordChange(actionAddElement, el.ID, map[string]any{"type": "symbol", "symbol": symbol})
	s.markModified()

	s.logger.Debug("added symbol element", "slide", s.ID, "element", el.ID)
	return el.ID
}

func (s *Slide) insertElement(el Element) {
	if s.elements == nil {
		s.elements = make(map[string]Element)
	}
	s.elements[el.ElementID()] = el
	s.order = append(s.order, el.ElementID())
}

// RemoveElement deletes an element from the slide. The full serialized
// element is captured into history before deletion and any image-derived
// files are removed best-effort. Returns false for an unknown id.
func (s *Slide) RemoveElement(id string) bool {
	el, ok := s.elements[id]
	if !ok {
		return false
	}

	s.recordChange(actionRemoveElement, id, elementToMap(el))

	if img, ok := el.(*ImageElement); ok {
		s.removeImageFiles(img)
	}

	delete(s.elements, id)
	for i, oid := range s.order {
		if oid == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}

	s.markModified()
	s.logger.Debug("removed element", "slide", s.ID, "element", id)
	return true
}

// UpdateElement applies a partial update to an element. Returns false for
// an unknown id or a variant mismatch, leaving the slide untouched. When a
// filter parameter of an image was set, the filter pipeline re-runs
// synchronously before returning.
func (s *Slide) UpdateElement(id string, update ElementUpdate) bool {
	el, ok := s.elements[id]
	if !ok {
		return false
	}

	old := elementToMap(el)
	res, ok := update.applyTo(el)
	if !ok {
		return false
	}
	el.base().touch()

	if res.filtersChanged {
		if img, ok := el.(*ImageElement); ok {
			s.applyImageFilters(img)
		}
	}
	if res.zChanged {
		s.sortOrderByZIndex()
	}

	s.recordChange(actionUpdateElement, id, map[string]any{
		"old": old,
		"new": toJSONMap(update),
	})
	s.markModified()

	s.logger.Debug("updated element", "slide", s.ID, "element", id)
	return true
}

// ReorderElement sets an element's z-index and re-sorts the paint order.
// The sort is stable: elements with equal z-index keep their previous
// relative order. Returns false for an unknown id.
func (s *Slide) ReorderElement(id string, newZIndex int) bool {
	el, ok := s.elements[id]
	if !ok {
		return false
	}

	oldZIndex := el.base().ZIndex
	el.base().ZIndex = newZIndex
	s.sortOrderByZIndex()

	s.recordChange(actionReorderElement, id, map[string]any{
		"old_z_index": oldZIndex,
		"new_z_index": newZIndex,
	})
	s.markModified()

	s.logger.Debug("reordered element", "slide", s.ID, "element", id, "z", newZIndex)
	return true
}

func (s *Slide) sortOrderByZIndex() {
	sort.SliceStable(s.order, func(i, j int) bool {
		return s.elements[s.order[i]].base().ZIndex < s.elements[s.order[j]].base().ZIndex
	})
}

// Element returns the element with the given id.
func (s *Slide) Element(id string) (Element, bool) {
	el, ok := s.elements[id]
	return el, ok
}

// ElementIDs returns a copy of the paint order.
func (s *Slide) ElementIDs() []string {
	out := make([]string, len(s.order))
	copy(out, s.order)
	return out
}

// ElementCount returns the number of elements on the slide.
func (s *Slide) ElementCount() int { return len(s.elements) }

// ElementsInOrder returns the elements in paint order.
func (s *Slide) ElementsInOrder() []Element {
	out := make([]Element, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.elements[id])
	}
	return out
}

// ElementsByType returns the elements of the given variant, in paint order.
func (s *Slide) ElementsByType(t ElementType) []Element {
	var out []Element
	for _, id := range s.order {
		if el := s.elements[id]; el.Kind() == t {
			out = append(out, el)
		}
	}
	return out
}

// AllTextContent concatenates the literal text of every text element,
// newline-joined in paint order.
func (s *Slide) AllTextContent() string {
	var parts []string
	for _, el := range s.ElementsByType(ElementTypeText) {
		parts = append(parts, el.(*TextElement).Text)
	}
	return strings.Join(parts, "\n")
}

// History returns the retained change records, oldest first.
func (s *Slide) History() []ChangeRecord {
	return s.history.all()
}

// SlideStatistics aggregates per-slide content counts.
type SlideStatistics struct {
	TotalElements   int                 `json:"total_elements"`
	ByType          map[ElementType]int `json:"by_type"`
	TotalCharacters int                 `json:"total_characters"`
	TotalWords      int                 `json:"total_words"`
	ImageCount      int                 `json:"image_count"`
	FileSizes       map[string]int64    `json:"file_sizes"`
}

// Statistics computes the slide's aggregate statistics. Read-only.
func (s *Slide) Statistics() SlideStatistics {
	stats := SlideStatistics{
		TotalElements: len(s.elements),
		ByType:        make(map[ElementType]int),
		FileSizes:     make(map[string]int64),
	}
	for _, el := range s.elements {
		stats.ByType[el.Kind()]++
		switch e := el.(type) {
		case *TextElement:
			stats.TotalCharacters += len(e.Text)
			stats.TotalWords += len(strings.Fields(e.Text))
		case *ImageElement:
			stats.ImageCount++
			if e.Info.FileSize > 0 {
				stats.FileSizes[e.ID] = e.Info.FileSize
			}
		}
	}
	return stats
}

// SlideBackground groups the background fields in a snapshot.
type SlideBackground struct {
	Color    string  `json:"color"`
	Image    *string `json:"image"`
	Gradient *string `json:"gradient"`
}

// SlideSnapshot is a display-ready projection of a slide.
type SlideSnapshot struct {
	SlideID      int                       `json:"slide_id"`
	Title        string                    `json:"title"`
	Background   SlideBackground           `json:"background"`
	Config       SlideConfig               `json:"config"`
	Elements     map[string]map[string]any `json:"elements"`
	ElementOrder []string                  `json:"element_order"`
	ProcessedAt  Timestamp                 `json:"processed_at"`
	Version      int                       `json:"version"`
}

// CreateProcessedSnapshot produces a display-ready projection: background,
// config and every element's serialized form plus variant-specific derived
// fields. Text elements gain a formatted_text key; image elements gain a
// display_path (the processed render if present, else the stored path) and
// a thumbnail path. Thumbnails missing on disk are generated here; an
// existing thumbnail file is reused verbatim. Never mutates version or
// history.
func (s *Slide) CreateProcessedSnapshot() SlideSnapshot {
	snap := SlideSnapshot{
		SlideID: s.ID,
		Title:   s.Title,
		Background: SlideBackground{
			Color:    s.BackgroundColor,
			Image:    s.BackgroundImage,
			Gradient: s.BackgroundGradient,
		},
		Config:       s.Config,
		Elements:     make(map[string]map[string]any, len(s.elements)),
		ElementOrder: s.ElementIDs(),
		ProcessedAt:  Now(),
		Version:      s.Version,
	}

	for id, el := range s.elements {
		m := elementToMap(el)
		switch e := el.(type) {
		case *TextElement:
			m["formatted_text"] = e.FormattedText()
		case *ImageElement:
			processed := e.ProcessedPath(s.ID)
			if _, err := os.Stat(filepath.Join(s.mediaBase, processed)); err == nil {
				m["display_path"] = processed
			} else {
				m["display_path"] = e.ImagePath
			}
			m["thumbnail"] = s.ensureThumbnail(e)
		}
		snap.Elements[id] = m
	}
	return snap
}

// applyImageFilters runs the filter pipeline for an image element from the
// copied original. Failures are logged and reported, never raised; callers
// proceed with the element unfiltered.
func (s *Slide) applyImageFilters(el *ImageElement) bool {
	if el.ImagePath == "" {
		return false
	}
	src := filepath.Join(s.mediaBase, el.ImagePath)
	dst := filepath.Join(s.mediaBase, el.ProcessedPath(s.ID))
	if err := runFilterPipeline(src, dst, el.Filters, el.Quality); err != nil {
		s.logger.Error("filter pipeline failed", "slide", s.ID, "element", el.ID, "error", err)
		return false
	}
	return true
}

// ensureThumbnail returns the media-relative thumbnail path, generating the
// file from the copied original when it does not exist yet. Returns ""
// when generation fails.
func (s *Slide) ensureThumbnail(el *ImageElement) string {
	rel := el.ThumbnailPath(s.ID)
	src := filepath.Join(s.mediaBase, el.ImagePath)
	if err := createThumbnail(src, filepath.Join(s.mediaBase, rel)); err != nil {
		s.logger.Error("thumbnail creation failed", "slide", s.ID, "element", el.ID, "error", err)
		return ""
	}
	return rel
}

// copyImageToSlideFolder duplicates a source image into the slide's
// "original" media directory under a collision-proof name and returns the
// media-relative path of the copy.
func (s *Slide) copyImageToSlideFolder(imagePath string) (string, error) {
	relDir := filepath.Join(fmt.Sprintf("slide_%d", s.ID), "images", "original")
	dir := filepath.Join(s.mediaBase, relDir)
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create media directory: %w", err)
	}

	name := uuid.NewString() + "_" + filepath.Base(imagePath)
	dest := filepath.Join(dir, name)
	if err := copyFile(imagePath, dest); err != nil {
		return "", fmt.Errorf("failed to copy image: %w", err)
	}
	return filepath.Join(relDir, name), nil
}

// removeImageFiles deletes the copied original, the processed render and
// the thumbnail of an image element. Best-effort: individual failures are
// logged and ignored.
func (s *Slide) removeImageFiles(el *ImageElement) {
	paths := []string{
		filepath.Join(s.mediaBase, el.ImagePath),
		filepath.Join(s.mediaBase, el.ProcessedPath(s.ID)),
		filepath.Join(s.mediaBase, el.ThumbnailPath(s.ID)),
	}
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			s.logger.Error("failed to remove image file", "slide", s.ID, "path", p, "error", err)
		}
	}
}

func isSupportedImageFormat(ext string) bool {
	for _, supported := range SupportedImageFormats {
		if ext == supported {
			return true
		}
	}
	return false
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()
	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		os.Remove(dst)
		return err
	}
	return out.Close()
}

// elementToMap serializes an element into a generic map, used for history
// capture and snapshots.
func elementToMap(el Element) map[string]any {
	return toJSONMap(el)
}

// toJSONMap round-trips a value through JSON into a generic map.
func toJSONMap(v any) map[string]any {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(raw, &m); err != nil {
		return nil
	}
	return m
}

// slideDocument is the JSON wire form of a slide.
type slideDocument struct {
	SlideID            int                        `json:"slide_id"`
	Title              string                     `json:"title"`
	BackgroundColor    string                     `json:"background_color"`
	BackgroundImage    *string                    `json:"background_image"`
	BackgroundGradient *string                    `json:"background_gradient"`
	CreatedAt          Timestamp                  `json:"created_at"`
	LastModified       Timestamp                  `json:"last_modified"`
	Version            int                        `json:"version"`
	Config             SlideConfig                `json:"config"`
	Elements           map[string]json.RawMessage `json:"elements"`
	ElementOrder       []string                   `json:"element_order"`
	ChangeHistory      []ChangeRecord             `json:"change_history"`
	Statistics         *SlideStatistics           `json:"statistics,omitempty"`
}

// MarshalJSON writes the slide document, including every serialized
// element, the 10 most recent history entries and computed statistics.
func (s *Slide) MarshalJSON() ([]byte, error) {
	doc := slideDocument{
		SlideID:            s.ID,
		Title:              s.Title,
		BackgroundColor:    s.BackgroundColor,
		BackgroundImage:    s.BackgroundImage,
		BackgroundGradient: s.BackgroundGradient,
		CreatedAt:          s.CreatedAt,
		LastModified:       s.LastModified,
		Version:            s.Version,
		Config:             s.Config,
		Elements:           make(map[string]json.RawMessage, len(s.elements)),
		ElementOrder:       s.ElementIDs(),
		ChangeHistory:      s.history.tail(historyTailSize),
	}
	for id, el := range s.elements {
		raw, err := json.Marshal(el)
		if err != nil {
			return nil, fmt.Errorf("failed to serialize element %s: %w", id, err)
		}
		doc.Elements[id] = raw
	}
	stats := s.Statistics()
	doc.Statistics = &stats
	return json.Marshal(doc)
}

// UnmarshalJSON decodes a slide document tolerantly: missing keys keep
// defaults, records with an unknown element variant are skipped, the paint
// order is filtered to surviving ids (missing ids are appended by
// z-index) and the history ring is seeded from the stored tail.
func (s *Slide) UnmarshalJSON(data []byte) error {
	doc := slideDocument{
		SlideID:         1,
		BackgroundColor: "#ffffff",
		Version:         1,
		Config:          DefaultSlideConfig(),
	}
	if err := json.Unmarshal(data, &doc); err != nil {
		return fmt.Errorf("failed to decode slide document: %w", err)
	}

	if s.mediaBase == "" {
		s.mediaBase = defaultMediaBase
	}
	if s.logger == nil {
		s.logger = discardLogger()
	}

	s.ID = doc.SlideID
	s.Title = doc.Title
	s.BackgroundColor = doc.BackgroundColor
	s.BackgroundImage = doc.BackgroundImage
	s.BackgroundGradient = doc.BackgroundGradient
	s.Version = doc.Version
	s.Config = doc.Config

	now := Now()
	s.CreatedAt = doc.CreatedAt
	s.LastModified = doc.LastModified
	if s.CreatedAt.unparsable || s.LastModified.unparsable {
		s.CreatedAt = now
		s.LastModified = now
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = now
	}
	if s.LastModified.IsZero() {
		s.LastModified = now
	}

	s.elements = make(map[string]Element, len(doc.Elements))
	for id, raw := range doc.Elements {
		el, err := UnmarshalElement(raw)
		if err != nil {
			// Unknown variants and malformed records are dropped silently.
			continue
		}
		s.elements[id] = el
	}

	s.order = s.order[:0]
	seen := make(map[string]bool, len(s.elements))
	for _, id := range doc.ElementOrder {
		if _, ok := s.elements[id]; ok && !seen[id] {
			s.order = append(s.order, id)
			seen[id] = true
		}
	}
	var unordered []string
	for id := range s.elements {
		if !seen[id] {
			unordered = append(unordered, id)
		}
	}
	sort.Slice(unordered, func(i, j int) bool {
		zi, zj := s.elements[unordered[i]].base().ZIndex, s.elements[unordered[j]].base().ZIndex
		if zi != zj {
			return zi < zj
		}
		return unordered[i] < unordered[j]
	})
	s.order = append(s.order, unordered...)

	s.history.seed(doc.ChangeHistory)
	return nil
}
