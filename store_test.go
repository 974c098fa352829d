package deckcontent

import (
	"archive/zip"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"gopkg.in/yaml.v3"
)

// helper: a store backed by throwaway media and data directories
func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	st, err := NewStore(&StoreOptions{
		MediaBase: filepath.Join(dir, "content"),
		DataDir:   filepath.Join(dir, "data"),
		Title:     "Test Deck",
		Author:    "tester",
	})
	if err != nil {
		t.Fatalf("NewStore failed: %v", err)
	}
	return st
}

// helper: a listener that records every event it receives
type recordingListener struct {
	events []ContentEvent
}

func (r *recordingListener) ContentChanged(event ContentEvent) {
	r.events = append(r.events, event)
}

func TestNewStoreBootstrapsLayout(t *testing.T) {
	st := newTestStore(t)
	for _, dir := range []string{
		st.mediaBase,
		st.dataDir,
		filepath.Join(st.dataDir, "exports"),
		filepath.Join(st.dataDir, "backups"),
	} {
		info, err := os.Stat(dir)
		if err != nil || !info.IsDir() {
			t.Errorf("expected directory %s: %v", dir, err)
		}
	}
	meta := st.Metadata()
	if meta.Title != "Test Deck" || meta.Author != "tester" || meta.Template != "default" {
		t.Errorf("metadata = %+v", meta)
	}
	if st.CurrentSlideID() != 1 {
		t.Errorf("CurrentSlideID = %d, want 1", st.CurrentSlideID())
	}
}

func TestCreateSlideAssignsSequentialIDs(t *testing.T) {
	st := newTestStore(t)
	if id := st.CreateSlide("first"); id != 1 {
		t.Errorf("first id = %d, want 1", id)
	}
	if id := st.CreateSlide("second"); id != 2 {
		t.Errorf("second id = %d, want 2", id)
	}
	st.CreateSlideWithID(10, "tenth")
	if id := st.CreateSlide("next"); id != 11 {
		t.Errorf("id after gap = %d, want 11", id)
	}
	if !reflect.DeepEqual(st.SlideIDs(), []int{1, 2, 10, 11}) {
		t.Errorf("SlideIDs = %v", st.SlideIDs())
	}
}

func TestCreateSlideWithIDConflict(t *testing.T) {
	st := newTestStore(t)
	st.CreateSlideWithID(3, "original")

	var rec recordingListener
	st.AddListener(&rec)

	if id := st.CreateSlideWithID(3, "usurper"); id != 3 {
		t.Errorf("conflicting create returned %d, want 3", id)
	}
	slide, _ := st.Slide(3)
	if slide.Title != "original" {
		t.Errorf("title = %q, existing slide must not change", slide.Title)
	}
	if st.SlideCount() != 1 {
		t.Errorf("SlideCount = %d, want 1", st.SlideCount())
	}
	if len(rec.events) != 0 {
		t.Errorf("conflicting create must not fire events, got %d", len(rec.events))
	}
}

func TestDeleteSlide(t *testing.T) {
	st := newTestStore(t)
	id := st.CreateSlide("doomed")
	if !st.DeleteSlide(id) {
		t.Fatal("delete failed")
	}
	if st.SlideCount() != 0 {
		t.Error("slide not removed")
	}
	if st.DeleteSlide(id) {
		t.Error("deleting an unknown id must report failure")
	}
}

func TestDeleteSlideRemovesImageFiles(t *testing.T) {
	st := newTestStore(t)
	id := st.CreateSlide("pics")
	src := writeTestPNG(t, filepath.Join(t.TempDir(), "photo.png"), 8, 8)
	elID, err := st.AddImageToSlide(id, src, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	slide, _ := st.Slide(id)
	el, _ := slide.Element(elID)
	img := el.(*ImageElement)
	copied := filepath.Join(st.MediaBase(), img.ImagePath)

	st.DeleteSlide(id)
	if _, err := os.Stat(copied); !os.IsNotExist(err) {
		t.Error("deleting a slide should remove its copied images")
	}
}

func TestSetCurrentSlideID(t *testing.T) {
	st := newTestStore(t)
	id := st.CreateSlide("only")
	if err := st.SetCurrentSlideID(id); err != nil {
		t.Errorf("SetCurrentSlideID failed: %v", err)
	}
	if err := st.SetCurrentSlideID(99); !errors.Is(err, ErrSlideNotFound) {
		t.Errorf("error = %v, want ErrSlideNotFound", err)
	}
}

func TestAddToUnknownSlide(t *testing.T) {
	st := newTestStore(t)
	if _, err := st.AddTextToSlide(9, "x", 0, 0, nil); !errors.Is(err, ErrSlideNotFound) {
		t.Errorf("text error = %v", err)
	}
	if _, err := st.AddImageToSlide(9, "x.png", 0, 0, nil); !errors.Is(err, ErrSlideNotFound) {
		t.Errorf("image error = %v", err)
	}
	if _, err := st.AddIconToSlide(9, "star", 0, 0, 0, nil); !errors.Is(err, ErrSlideNotFound) {
		t.Errorf("icon error = %v", err)
	}
	if _, err := st.AddSymbolToSlide(9, "∀", 0, 0, 0, nil); !errors.Is(err, ErrSlideNotFound) {
		t.Errorf("symbol error = %v", err)
	}
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	st := newTestStore(t)
	a := st.CreateSlide("Alpha")
	b := st.CreateSlide("Beta")
	if _, err := st.AddTextToSlide(a, "Hello", 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddTextToSlide(a, "World", 0, 50, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddSymbolToSlide(b, "⭐", 0, 0, 32, nil); err != nil {
		t.Fatal(err)
	}

	path, err := st.Save("")
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	if filepath.Dir(path) != st.dataDir {
		t.Errorf("default save path %q not under the data dir", path)
	}
	if st.Metadata().LastSaved == nil {
		t.Error("LastSaved not stamped")
	}

	other := newTestStore(t)
	if err := other.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(other.SlideIDs(), []int{a, b}) {
		t.Fatalf("loaded ids = %v, want [%d %d]", other.SlideIDs(), a, b)
	}
	gotA, _ := other.Slide(a)
	if gotA.Title != "Alpha" || gotA.ElementCount() != 2 {
		t.Errorf("slide A = %q with %d elements", gotA.Title, gotA.ElementCount())
	}
	if gotA.AllTextContent() != "Hello\nWorld" {
		t.Errorf("text content = %q", gotA.AllTextContent())
	}
	gotB, _ := other.Slide(b)
	if len(gotB.ElementsByType(ElementTypeSymbol)) != 1 {
		t.Error("symbol element not restored")
	}
	if other.Metadata().Title != "Test Deck" {
		t.Errorf("metadata title = %q", other.Metadata().Title)
	}
	if other.MediaBase() != st.MediaBase() {
		t.Errorf("media base = %q, want the saved one", other.MediaBase())
	}
}

func TestSaveWritesArchiveAndSnapshot(t *testing.T) {
	st := newTestStore(t)
	id := st.CreateSlide("pics")
	src := writeTestPNG(t, filepath.Join(t.TempDir(), "photo.png"), 8, 8)
	elID, err := st.AddImageToSlide(id, src, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	path, err := st.Save("")
	if err != nil {
		t.Fatal(err)
	}

	archivePath := trimJSONExt(path) + "_complete.zip"
	zr, err := zip.OpenReader(archivePath)
	if err != nil {
		t.Fatalf("archive not readable: %v", err)
	}
	defer zr.Close()

	slide, _ := st.Slide(id)
	el, _ := slide.Element(elID)
	img := el.(*ImageElement)
	wantNames := []string{
		filepath.Base(path),
		filepath.ToSlash(img.ImagePath),
		"processed/" + filepath.Base(img.ProcessedPath(id)),
	}
	names := make(map[string]bool, len(zr.File))
	for _, f := range zr.File {
		names[f.Name] = true
	}
	for _, want := range wantNames {
		if !names[want] {
			t.Errorf("archive missing entry %q (have %v)", want, names)
		}
	}

	snapPath := filepath.Join(filepath.Dir(path), "processed", "processed_presentation.json")
	raw, err := os.ReadFile(snapPath)
	if err != nil {
		t.Fatalf("processed snapshot missing: %v", err)
	}
	var snap map[string]json.RawMessage
	if err := json.Unmarshal(raw, &snap); err != nil {
		t.Fatal(err)
	}
	for _, key := range []string{"presentation_info", "slides", "created_at"} {
		if _, ok := snap[key]; !ok {
			t.Errorf("snapshot missing key %q", key)
		}
	}
}

func TestLoadFiresEventsInOrder(t *testing.T) {
	st := newTestStore(t)
	st.CreateSlideWithID(2, "two")
	st.CreateSlideWithID(1, "one")
	path, err := st.Save("")
	if err != nil {
		t.Fatal(err)
	}

	other := newTestStore(t)
	var rec recordingListener
	other.AddListener(&rec)
	if err := other.Load(path); err != nil {
		t.Fatal(err)
	}

	if len(rec.events) != 2 {
		t.Fatalf("event count = %d, want 2", len(rec.events))
	}
	if rec.events[0].SlideID != 1 || rec.events[1].SlideID != 2 {
		t.Errorf("event order = %d,%d, want 1,2", rec.events[0].SlideID, rec.events[1].SlideID)
	}
	for _, ev := range rec.events {
		if ev.Action != ActionLoad || ev.Slide == nil {
			t.Errorf("event = %+v, want a load event carrying the slide", ev)
		}
	}
}

func TestLoadSkipsUnparsableSlideKeys(t *testing.T) {
	st := newTestStore(t)
	doc := `{
		"metadata": {"title": "Mixed"},
		"slides": {
			"1": {"slide_id": 1, "title": "good"},
			"nope": {"slide_id": 2, "title": "bad key"}
		},
		"media_base_path": ""
	}`
	path := filepath.Join(t.TempDir(), "deck.json")
	if err := os.WriteFile(path, []byte(doc), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := st.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !reflect.DeepEqual(st.SlideIDs(), []int{1}) {
		t.Errorf("SlideIDs = %v, want [1]", st.SlideIDs())
	}
}

func TestListenerEventsAndRemoval(t *testing.T) {
	st := newTestStore(t)
	var rec recordingListener
	id := st.AddListener(&rec)

	slideID := st.CreateSlide("s")
	if _, err := st.AddTextToSlide(slideID, "x", 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	st.DeleteSlide(slideID)

	if len(rec.events) != 3 {
		t.Fatalf("event count = %d, want 3", len(rec.events))
	}
	wantActions := []ContentAction{ActionCreate, ActionUpdate, ActionDelete}
	for i, want := range wantActions {
		if rec.events[i].Action != want {
			t.Errorf("event %d action = %q, want %q", i, rec.events[i].Action, want)
		}
	}
	if rec.events[2].Slide != nil {
		t.Error("delete events must not carry the slide")
	}

	if !st.RemoveListener(id) {
		t.Error("RemoveListener failed")
	}
	if st.RemoveListener(id) {
		t.Error("removing twice must report failure")
	}
	st.CreateSlide("quiet")
	if len(rec.events) != 3 {
		t.Error("removed listener must not receive further events")
	}
}

func TestListenerPanicDoesNotBlockOthers(t *testing.T) {
	st := newTestStore(t)
	var before, after recordingListener
	st.AddListener(&before)
	st.AddListener(ContentListenerFunc(func(ContentEvent) { panic("boom") }))
	st.AddListener(&after)

	st.CreateSlide("s")

	if len(before.events) != 1 || len(after.events) != 1 {
		t.Errorf("deliveries = %d/%d, want 1/1 despite the panicking listener",
			len(before.events), len(after.events))
	}
}

func TestExportYAML(t *testing.T) {
	st := newTestStore(t)
	id := st.CreateSlide("Yams")
	if _, err := st.AddTextToSlide(id, "hello", 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	path, err := st.ExportYAML("")
	if err != nil {
		t.Fatalf("ExportYAML failed: %v", err)
	}
	if filepath.Dir(path) != filepath.Join(st.dataDir, "exports") {
		t.Errorf("default export path %q not under exports", path)
	}

	raw, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	var doc struct {
		Metadata   map[string]any            `yaml:"metadata"`
		Slides     map[string]map[string]any `yaml:"slides"`
		ExportedAt string                    `yaml:"exported_at"`
	}
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("export not parseable: %v", err)
	}
	if doc.Metadata["title"] != "Test Deck" {
		t.Errorf("metadata title = %v", doc.Metadata["title"])
	}
	slide, ok := doc.Slides["1"]
	if !ok {
		t.Fatalf("slides = %v, want key \"1\"", doc.Slides)
	}
	// The YAML document mirrors the JSON wire form's key names.
	if slide["title"] != "Yams" {
		t.Errorf("slide title = %v", slide["title"])
	}
	if _, ok := slide["element_order"]; !ok {
		t.Error("slide missing element_order key")
	}
	if doc.ExportedAt == "" {
		t.Error("exported_at not stamped")
	}
}

func TestPresentationStatistics(t *testing.T) {
	st := newTestStore(t)
	a := st.CreateSlide("one")
	b := st.CreateSlide("two")
	if _, err := st.AddTextToSlide(a, "abc", 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddTextToSlide(b, "de", 0, 0, nil); err != nil {
		t.Fatal(err)
	}
	if _, err := st.AddIconToSlide(b, "star", 0, 0, 0, nil); err != nil {
		t.Fatal(err)
	}

	stats := st.Statistics()
	if stats.TotalSlides != 2 || stats.TotalElements != 3 {
		t.Errorf("totals = %d slides / %d elements", stats.TotalSlides, stats.TotalElements)
	}
	if stats.TotalTextCharacters != 5 {
		t.Errorf("TotalTextCharacters = %d, want 5", stats.TotalTextCharacters)
	}
	if stats.ElementsByType[ElementTypeText] != 2 || stats.ElementsByType[ElementTypeIcon] != 1 {
		t.Errorf("ElementsByType = %v", stats.ElementsByType)
	}
	if stats.PresentationInfo.Title != "Test Deck" {
		t.Errorf("PresentationInfo title = %q", stats.PresentationInfo.Title)
	}
}
