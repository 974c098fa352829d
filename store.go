package deckcontent

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// Default directory layout. The media base holds per-slide image artifacts
// under content/slide_<id>/images/{original,processed,thumbnails}/; the
// data dir holds primary saves, with exports/ for YAML exports and
// backups/ reserved.
const (
	defaultMediaBase = "content"
	defaultDataDir   = "data"
)

// ErrSlideNotFound is returned by store operations addressing an unknown
// slide id.
var ErrSlideNotFound = errors.New("slide not found")

// PresentationMetadata holds presentation-level document fields.
type PresentationMetadata struct {
	Title       string     `json:"title"`
	Author      string     `json:"author"`
	Version     string     `json:"version"`
	CreatedAt   Timestamp  `json:"created_at"`
	LastSaved   *Timestamp `json:"last_saved"`
	TotalSlides int        `json:"total_slides"`
	Template    string     `json:"template"`
}

// StoreOptions configures a Store. The zero value of every field selects
// its documented default.
type StoreOptions struct {
	MediaBase string       // default "content"
	DataDir   string       // default "data"
	Title     string       // default "Untitled Presentation"
	Author    string
	Template  string       // default "default"
	Logger    *slog.Logger // nil discards log output
}

// DefaultStoreOptions returns the default store configuration.
func DefaultStoreOptions() *StoreOptions {
	return &StoreOptions{
		MediaBase: defaultMediaBase,
		DataDir:   defaultDataDir,
		Title:     "Untitled Presentation",
		Template:  "default",
	}
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// ContentAction identifies the kind of a content event.
type ContentAction string

const (
	ActionCreate ContentAction = "create"
	ActionUpdate ContentAction = "update"
	ActionDelete ContentAction = "delete"
	ActionLoad   ContentAction = "load"
)

// ContentEvent describes a slide-level change delivered to listeners.
// Slide is nil for delete events.
type ContentEvent struct {
	SlideID int
	Slide   *Slide
	Action  ContentAction
}

// ContentListener receives content events from a Store.
type ContentListener interface {
	ContentChanged(event ContentEvent)
}

// ContentListenerFunc adapts a function to the ContentListener interface.
type ContentListenerFunc func(event ContentEvent)

func (f ContentListenerFunc) ContentChanged(event ContentEvent) { f(event) }

// Store is the aggregate of all slides. It owns persistence, the media
// root for image-derived artifacts and listener notification. A Store has
// no internal locking; a caller needing concurrent access must wrap it.
type Store struct {
	slides         map[int]*Slide
	mediaBase      string
	dataDir        string
	currentSlideID int
	metadata       PresentationMetadata
	listeners      map[int]ContentListener
	nextListenerID int
	logger         *slog.Logger
}

// NewStore creates a Store and bootstraps its directory layout. A nil
// options value selects all defaults.
func NewStore(opts *StoreOptions) (*Store, error) {
	if opts == nil {
		opts = DefaultStoreOptions()
	}
	mediaBase := opts.MediaBase
	if mediaBase == "" {
		mediaBase = defaultMediaBase
	}
	dataDir := opts.DataDir
	if dataDir == "" {
		dataDir = defaultDataDir
	}
	title := opts.Title
	if title == "" {
		title = "Untitled Presentation"
	}
	template := opts.Template
	if template == "" {
		template = "default"
	}
	logger := opts.Logger
	if logger == nil {
		logger = discardLogger()
	}

	st := &Store{
		slides:         make(map[int]*Slide),
		mediaBase:      mediaBase,
		dataDir:        dataDir,
		currentSlideID: 1,
		metadata: PresentationMetadata{
			Title:     title,
			Author:    opts.Author,
			Version:   Version,
			CreatedAt: Now(),
			Template:  template,
		},
		listeners: make(map[int]ContentListener),
		logger:    logger,
	}

	for _, dir := range []string{
		mediaBase,
		dataDir,
		filepath.Join(dataDir, "exports"),
		filepath.Join(dataDir, "backups"), // reserved
	} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}
	return st, nil
}

// CreateSlide creates a slide with an auto-assigned id (one above the
// highest existing id) and returns the id.
func (st *Store) CreateSlide(title string) int {
	id := 0
	for existing := range st.slides {
		if existing > id {
			id = existing
		}
	}
	return st.CreateSlideWithID(id+1, title)
}

// CreateSlideWithID creates a slide with an explicit id. An existing id is
// never overwritten: the conflict is logged and the existing id returned
// with nothing mutated.
func (st *Store) CreateSlideWithID(id int, title string) int {
	if _, exists := st.slides[id]; exists {
		st.logger.Warn("slide already exists", "slide", id)
		return id
	}

	st.slides[id] = newSlide(id, title, st.mediaBase, st.logger)
	st.metadata.TotalSlides = len(st.slides)

	st.notify(ContentEvent{SlideID: id, Slide: st.slides[id], Action: ActionCreate})
	st.logger.Info("created slide", "slide", id, "title", title)
	return id
}

// DeleteSlide removes a slide and, best-effort, every image-derived file
// its elements own. Returns false for an unknown id.
func (st *Store) DeleteSlide(id int) bool {
	slide, ok := st.slides[id]
	if !ok {
		return false
	}

	for _, el := range slide.ElementsInOrder() {
		if img, ok := el.(*ImageElement); ok {
			slide.removeImageFiles(img)
		}
	}

	delete(st.slides, id)
	st.metadata.TotalSlides = len(st.slides)

	st.notify(ContentEvent{SlideID: id, Slide: nil, Action: ActionDelete})
	st.logger.Info("deleted slide", "slide", id)
	return true
}

// Slide returns the slide with the given id.
func (st *Store) Slide(id int) (*Slide, bool) {
	s, ok := st.slides[id]
	return s, ok
}

// Slides returns a copy of the slide map.
func (st *Store) Slides() map[int]*Slide {
	out := make(map[int]*Slide, len(st.slides))
	for id, s := range st.slides {
		out[id] = s
	}
	return out
}

// SlideIDs returns the slide ids in ascending order.
func (st *Store) SlideIDs() []int {
	ids := make([]int, 0, len(st.slides))
	for id := range st.slides {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

// SlideCount returns the number of slides.
func (st *Store) SlideCount() int { return len(st.slides) }

// CurrentSlideID returns the active slide id.
func (st *Store) CurrentSlideID() int { return st.currentSlideID }

// SetCurrentSlideID sets the active slide. Unknown ids are rejected.
func (st *Store) SetCurrentSlideID(id int) error {
	if _, ok := st.slides[id]; !ok {
		return fmt.Errorf("%w: %d", ErrSlideNotFound, id)
	}
	st.currentSlideID = id
	return nil
}

// AddTextToSlide adds a text element to the given slide and fires an
// update event.
func (st *Store) AddTextToSlide(slideID int, text string, x, y float64, opts *TextOptions) (string, error) {
	slide, ok := st.slides[slideID]
	if !ok {
		st.logger.Error("slide not found", "slide", slideID)
		return "", fmt.Errorf("%w: %d", ErrSlideNotFound, slideID)
	}
	id := slide.AddTextElement(text, x, y, opts)
	st.notify(ContentEvent{SlideID: slideID, Slide: slide, Action: ActionUpdate})
	return id, nil
}

// AddImageToSlide adds an image element to the given slide and fires an
// update event on success.
func (st *Store) AddImageToSlide(slideID int, imagePath string, x, y float64, opts *ImageOptions) (string, error) {
	slide, ok := st.slides[slideID]
	if !ok {
		st.logger.Error("slide not found", "slide", slideID)
		return "", fmt.Errorf("%w: %d", ErrSlideNotFound, slideID)
	}
	id, err := slide.AddImageElement(imagePath, x, y, opts)
	if err != nil {
		return "", err
	}
	st.notify(ContentEvent{SlideID: slideID, Slide: slide, Action: ActionUpdate})
	return id, nil
}

// AddIconToSlide adds an icon element to the given slide and fires an
// update event.
func (st *Store) AddIconToSlide(slideID int, code string, x, y float64, size int, opts *IconOptions) (string, error) {
	slide, ok := st.slides[slideID]
	if !ok {
		st.logger.Error("slide not found", "slide", slideID)
		return "", fmt.Errorf("%w: %d", ErrSlideNotFound, slideID)
	}
	id := slide.AddIconElement(code, x, y, size, opts)
	st.notify(ContentEvent{SlideID: slideID, Slide: slide, Action: ActionUpdate})
	return id, nil
}

// AddSymbolToSlide adds a symbol element to the given slide and fires an
// update event.
func (st *Store) AddSymbolToSlide(slideID int, symbol string, x, y float64, size int, opts *SymbolOptions) (string, error) {
	slide, ok := st.slides[slideID]
	if !ok {
		st.logger.Error("slide not found", "slide", slideID)
		return "", fmt.Errorf("%w: %d", ErrSlideNotFound, slideID)
	}
	id := slide.AddSymbolElement(symbol, x, y, size, opts)
	st.notify(ContentEvent{SlideID: slideID, Slide: slide, Action: ActionUpdate})
	return id, nil
}

// versionInfo names the document format in the persisted document.
type versionInfo struct {
	LibraryVersion string `json:"library_version"`
	FormatVersion  string `json:"format_version"`
}

// presentationDocument is the primary persisted document shape.
type presentationDocument struct {
	Metadata      PresentationMetadata `json:"metadata"`
	Slides        map[string]*Slide    `json:"slides"`
	MediaBasePath string               `json:"media_base_path"`
	VersionInfo   versionInfo          `json:"version_info"`
}

// Save serializes the presentation to a JSON document. An empty path picks
// a timestamp-derived file under the data dir. On success two best-effort
// secondary artifacts are produced: a complete archive bundling the
// document with every referenced image, and a processed-snapshot document
// under a sibling processed/ directory. Their failures are logged but do
// not invalidate the primary save.
func (st *Store) Save(path string) (string, error) {
	if path == "" {
		stamp := time.Now().Format("20060102_150405")
		path = filepath.Join(st.dataDir, fmt.Sprintf("presentation_%s.json", stamp))
	}

	now := Now()
	st.metadata.LastSaved = &now
	st.metadata.TotalSlides = len(st.slides)

	doc := presentationDocument{
		Metadata:      st.metadata,
		Slides:        st.slidesByKey(),
		MediaBasePath: st.mediaBase,
		VersionInfo: versionInfo{
			LibraryVersion: Version,
			FormatVersion:  FormatVersion,
		},
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize presentation: %w", err)
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write presentation: %w", err)
	}
	st.logger.Info("saved presentation", "path", path, "slides", len(st.slides))

	if archive, err := st.writeCompleteArchive(path); err != nil {
		st.logger.Error("failed to create complete archive", "error", err)
	} else {
		st.logger.Info("created complete archive", "path", archive)
	}
	if snapshot, err := st.writeProcessedSnapshot(path); err != nil {
		st.logger.Error("failed to create processed snapshot", "error", err)
	} else {
		st.logger.Info("created processed snapshot", "path", snapshot)
	}

	return path, nil
}

func (st *Store) slidesByKey() map[string]*Slide {
	out := make(map[string]*Slide, len(st.slides))
	for id, slide := range st.slides {
		out[strconv.Itoa(id)] = slide
	}
	return out
}

// writeCompleteArchive bundles the saved document and, for every image
// element across every slide, the copied original (relative path
// preserved), the processed render under processed/ and the thumbnail
// under thumbnails/.
func (st *Store) writeCompleteArchive(docPath string) (string, error) {
	archivePath := trimJSONExt(docPath) + "_complete.zip"

	f, err := os.Create(archivePath)
	if err != nil {
		return "", fmt.Errorf("failed to create archive: %w", err)
	}
	zw := zip.NewWriter(f)

	writeErr := func() error {
		if err := addFileToZip(zw, docPath, filepath.Base(docPath)); err != nil {
			return err
		}
		for _, id := range st.SlideIDs() {
			slide := st.slides[id]
			for _, el := range slide.ElementsInOrder() {
				img, ok := el.(*ImageElement)
				if !ok {
					continue
				}
				original := filepath.Join(st.mediaBase, img.ImagePath)
				if fileExists(original) {
					if err := addFileToZip(zw, original, filepath.ToSlash(img.ImagePath)); err != nil {
						return err
					}
				}
				processed := filepath.Join(st.mediaBase, img.ProcessedPath(slide.ID))
				if fileExists(processed) {
					if err := addFileToZip(zw, processed, "processed/"+filepath.Base(processed)); err != nil {
						return err
					}
				}
				thumb := filepath.Join(st.mediaBase, img.ThumbnailPath(slide.ID))
				if fileExists(thumb) {
					if err := addFileToZip(zw, thumb, "thumbnails/"+filepath.Base(thumb)); err != nil {
						return err
					}
				}
			}
		}
		return nil
	}()

	closeErr := zw.Close()
	fileErr := f.Close()
	if writeErr != nil {
		os.Remove(archivePath)
		return "", writeErr
	}
	if closeErr != nil {
		os.Remove(archivePath)
		return "", closeErr
	}
	if fileErr != nil {
		return "", fileErr
	}
	return archivePath, nil
}

// processedSnapshotDocument is the write-only processed snapshot shape.
// It is never read back by Load.
type processedSnapshotDocument struct {
	PresentationInfo PresentationMetadata     `json:"presentation_info"`
	Slides           map[string]SlideSnapshot `json:"slides"`
	CreatedAt        Timestamp                `json:"created_at"`
}

func (st *Store) writeProcessedSnapshot(docPath string) (string, error) {
	dir := filepath.Join(filepath.Dir(docPath), "processed")
	if err := os.MkdirAll(dir, 0750); err != nil {
		return "", fmt.Errorf("failed to create processed directory: %w", err)
	}

	doc := processedSnapshotDocument{
		PresentationInfo: st.metadata,
		Slides:           make(map[string]SlideSnapshot, len(st.slides)),
		CreatedAt:        Now(),
	}
	for id, slide := range st.slides {
		doc.Slides[strconv.Itoa(id)] = slide.CreateProcessedSnapshot()
	}

	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to serialize processed snapshot: %w", err)
	}
	path := filepath.Join(dir, "processed_presentation.json")
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write processed snapshot: %w", err)
	}
	return path, nil
}

// loadDocument is the subset of the persisted document that Load reads.
type loadDocument struct {
	Metadata      PresentationMetadata       `json:"metadata"`
	Slides        map[string]json.RawMessage `json:"slides"`
	MediaBasePath string                     `json:"media_base_path"`
}

// Load replaces the in-memory slides wholesale with the document's
// content. No merge happens. Slides with unparsable ids and elements with
// unknown variants are dropped silently. After loading, a load event fires
// for every slide in id order.
func (st *Store) Load(path string) error {
	raw, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read presentation: %w", err)
	}

	var doc loadDocument
	if err := json.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("failed to decode presentation: %w", err)
	}

	st.metadata = doc.Metadata
	st.mediaBase = doc.MediaBasePath
	if st.mediaBase == "" {
		st.mediaBase = defaultMediaBase
	}

	st.slides = make(map[int]*Slide, len(doc.Slides))
	for key, slideRaw := range doc.Slides {
		id, err := strconv.Atoi(key)
		if err != nil {
			st.logger.Warn("skipping slide with unparsable id", "key", key)
			continue
		}
		slide := newSlide(id, "", st.mediaBase, st.logger)
		if err := json.Unmarshal(slideRaw, slide); err != nil {
			st.logger.Warn("skipping undecodable slide", "slide", id, "error", err)
			continue
		}
		slide.mediaBase = st.mediaBase
		slide.logger = st.logger
		st.slides[id] = slide
	}

	st.logger.Info("loaded presentation", "path", path, "slides", len(st.slides))
	for _, id := range st.SlideIDs() {
		st.notify(ContentEvent{SlideID: id, Slide: st.slides[id], Action: ActionLoad})
	}
	return nil
}

// yamlDocument is the YAML export shape: the Save document plus an
// exported_at stamp, without version_info or side-effect artifacts.
type yamlDocument struct {
	Metadata   any    `yaml:"metadata"`
	Slides     any    `yaml:"slides"`
	ExportedAt string `yaml:"exported_at"`
}

// ExportYAML writes the presentation in YAML encoding. An empty path picks
// a timestamp-derived file under the exports directory. Independent of the
// archive and snapshot side effects of Save.
func (st *Store) ExportYAML(path string) (string, error) {
	if path == "" {
		stamp := time.Now().Format("20060102_150405")
		path = filepath.Join(st.dataDir, "exports", fmt.Sprintf("presentation_%s.yaml", stamp))
	}

	// Round-trip through the JSON wire form so the YAML document carries
	// exactly the same shape and key names as the primary save format.
	metadata, err := jsonToAny(st.metadata)
	if err != nil {
		return "", fmt.Errorf("failed to serialize metadata: %w", err)
	}
	slides, err := jsonToAny(st.slidesByKey())
	if err != nil {
		return "", fmt.Errorf("failed to serialize slides: %w", err)
	}

	raw, err := yaml.Marshal(yamlDocument{
		Metadata:   metadata,
		Slides:     slides,
		ExportedAt: time.Now().Format(time.RFC3339Nano),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode yaml: %w", err)
	}

	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return "", fmt.Errorf("failed to create directory: %w", err)
		}
	}
	if err := os.WriteFile(path, raw, 0644); err != nil {
		return "", fmt.Errorf("failed to write yaml export: %w", err)
	}

	st.logger.Info("exported presentation to yaml", "path", path)
	return path, nil
}

// PresentationStatistics aggregates statistics across all slides.
type PresentationStatistics struct {
	TotalSlides         int                  `json:"total_slides"`
	TotalElements       int                  `json:"total_elements"`
	ElementsByType      map[ElementType]int  `json:"elements_by_type"`
	TotalTextCharacters int                  `json:"total_text_characters"`
	TotalImages         int                  `json:"total_images"`
	PresentationInfo    PresentationMetadata `json:"presentation_info"`
}

// Statistics sums the per-slide statistics across the presentation.
func (st *Store) Statistics() PresentationStatistics {
	stats := PresentationStatistics{
		TotalSlides:      len(st.slides),
		ElementsByType:   make(map[ElementType]int),
		PresentationInfo: st.metadata,
	}
	for _, slide := range st.slides {
		slideStats := slide.Statistics()
		stats.TotalElements += slideStats.TotalElements
		stats.TotalTextCharacters += slideStats.TotalCharacters
		stats.TotalImages += slideStats.ImageCount
		for t, count := range slideStats.ByType {
			stats.ElementsByType[t] += count
		}
	}
	return stats
}

// Metadata returns the presentation metadata.
func (st *Store) Metadata() PresentationMetadata { return st.metadata }

// SetTitle sets the presentation title.
func (st *Store) SetTitle(title string) { st.metadata.Title = title }

// SetAuthor sets the presentation author.
func (st *Store) SetAuthor(author string) { st.metadata.Author = author }

// SetTemplate sets the presentation template name.
func (st *Store) SetTemplate(template string) { st.metadata.Template = template }

// MediaBase returns the media root under which image artifacts live.
func (st *Store) MediaBase() string { return st.mediaBase }

// AddListener registers a content listener and returns its registration
// id for later removal.
func (st *Store) AddListener(l ContentListener) int {
	st.nextListenerID++
	st.listeners[st.nextListenerID] = l
	return st.nextListenerID
}

// RemoveListener unregisters a listener. Returns false for an unknown id.
func (st *Store) RemoveListener(id int) bool {
	if _, ok := st.listeners[id]; !ok {
		return false
	}
	delete(st.listeners, id)
	return true
}

// notify delivers an event to every listener in registration order. A
// panic in one listener is recovered and logged without suppressing
// delivery to the rest.
func (st *Store) notify(event ContentEvent) {
	ids := make([]int, 0, len(st.listeners))
	for id := range st.listeners {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	for _, id := range ids {
		l := st.listeners[id]
		func() {
			defer func() {
				if r := recover(); r != nil {
					st.logger.Error("content listener panicked", "listener", id, "panic", r)
				}
			}()
			l.ContentChanged(event)
		}()
	}
}

// jsonToAny round-trips a value through its JSON wire form into generic
// maps and slices.
func jsonToAny(v any) (any, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func addFileToZip(zw *zip.Writer, path, name string) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()
	w, err := zw.Create(name)
	if err != nil {
		return fmt.Errorf("failed to create archive entry %s: %w", name, err)
	}
	if _, err := io.Copy(w, f); err != nil {
		return fmt.Errorf("failed to write archive entry %s: %w", name, err)
	}
	return nil
}

// trimJSONExt strips a trailing .json extension.
func trimJSONExt(path string) string {
	ext := filepath.Ext(path)
	if ext == ".json" {
		return path[:len(path)-len(ext)]
	}
	return path
}
