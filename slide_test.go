package deckcontent

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"testing"
)

// helper: a slide backed by a throwaway media directory
func testSlide(t *testing.T) *Slide {
	t.Helper()
	return newSlide(1, "Test Slide", t.TempDir(), nil)
}

func TestNewSlideDefaults(t *testing.T) {
	s := NewSlide(5, "Intro")
	if s.ID != 5 || s.Title != "Intro" {
		t.Errorf("identity = %d/%q", s.ID, s.Title)
	}
	if s.Version != 1 {
		t.Errorf("Version = %d, want 1", s.Version)
	}
	if s.BackgroundColor != "#ffffff" {
		t.Errorf("BackgroundColor = %q, want #ffffff", s.BackgroundColor)
	}
	cfg := s.Config
	if cfg.Width != 1920 || cfg.Height != 1080 || cfg.Duration != 5000 || cfg.Transition != "none" {
		t.Errorf("config defaults wrong: %+v", cfg)
	}
	if s.ElementCount() != 0 || len(s.History()) != 0 {
		t.Error("new slide must start empty")
	}
}

func TestAddTextElement(t *testing.T) {
	s := testSlide(t)
	id := s.AddTextElement("Hello", 10, 20, &TextOptions{FontSize: 32, FontWeight: "bold"})
	if id == "" {
		t.Fatal("expected an element id")
	}
	el, ok := s.Element(id)
	if !ok {
		t.Fatal("element not retrievable by id")
	}
	text := el.(*TextElement)
	if text.X != 10 || text.Y != 20 || text.Width != 200 || text.Height != 50 {
		t.Errorf("geometry = %v,%v %vx%v", text.X, text.Y, text.Width, text.Height)
	}
	if text.FontSize != 32 || text.FontWeight != "bold" {
		t.Errorf("options not applied: %d/%q", text.FontSize, text.FontWeight)
	}
	if s.Version != 2 {
		t.Errorf("Version = %d, want 2 after one mutation", s.Version)
	}

	hist := s.History()
	if len(hist) != 1 {
		t.Fatalf("history length = %d, want 1", len(hist))
	}
	if hist[0].Action != actionAddElement || hist[0].ElementID != id || hist[0].Version != 1 {
		t.Errorf("history entry wrong: %+v", hist[0])
	}
}

func TestVersionAdvancesOncePerMutation(t *testing.T) {
	s := testSlide(t)
	a := s.AddTextElement("a", 0, 0, nil)
	s.AddIconElement("star", 0, 0, 0, nil)
	s.UpdateElement(a, TextUpdate{Text: Ptr("b")})
	s.ReorderElement(a, 5)
	s.RemoveElement(a)
	if s.Version != 6 {
		t.Errorf("Version = %d, want 6 after five mutations", s.Version)
	}
}

func TestReadsDoNotAdvanceVersion(t *testing.T) {
	s := testSlide(t)
	s.AddTextElement("a", 0, 0, nil)
	before := s.Version
	s.Statistics()
	s.CreateProcessedSnapshot()
	s.ElementsInOrder()
	s.AllTextContent()
	if s.Version != before {
		t.Errorf("Version changed from %d to %d on read-only calls", before, s.Version)
	}
	if len(s.History()) != 1 {
		t.Error("read-only calls must not record history")
	}
}

func TestOrderIsPermutationOfElements(t *testing.T) {
	s := testSlide(t)
	var ids []string
	for i := 0; i < 5; i++ {
		ids = append(ids, s.AddTextElement(fmt.Sprintf("t%d", i), 0, 0, nil))
	}
	s.ReorderElement(ids[0], 10)
	s.RemoveElement(ids[2])
	s.ReorderElement(ids[4], -1)

	order := s.ElementIDs()
	if len(order) != s.ElementCount() {
		t.Fatalf("order length %d != element count %d", len(order), s.ElementCount())
	}
	seen := make(map[string]bool, len(order))
	for _, id := range order {
		if seen[id] {
			t.Fatalf("duplicate id %q in order", id)
		}
		seen[id] = true
		if _, ok := s.Element(id); !ok {
			t.Fatalf("order references unknown id %q", id)
		}
	}
}

func TestReorderIsStableForEqualZIndex(t *testing.T) {
	s := testSlide(t)
	a := s.AddTextElement("a", 0, 0, nil)
	b := s.AddTextElement("b", 0, 0, nil)
	c := s.AddTextElement("c", 0, 0, nil)

	if !s.ReorderElement(a, 1) {
		t.Fatal("reorder failed")
	}
	if got := s.ElementIDs(); !reflect.DeepEqual(got, []string{b, c, a}) {
		t.Errorf("order after first reorder = %v, want [b c a]", got)
	}

	// b joins a at z-index 1; their relative order (b before a) is kept.
	s.ReorderElement(b, 1)
	if got := s.ElementIDs(); !reflect.DeepEqual(got, []string{c, b, a}) {
		t.Errorf("order after second reorder = %v, want [c b a]", got)
	}
}

func TestUpdateElementVariantMismatch(t *testing.T) {
	s := testSlide(t)
	id := s.AddTextElement("a", 0, 0, nil)
	before := s.Version
	histBefore := len(s.History())

	if s.UpdateElement(id, ImageUpdate{AltText: Ptr("x")}) {
		t.Error("image update on a text element must report failure")
	}
	if s.Version != before || len(s.History()) != histBefore {
		t.Error("failed update must leave version and history untouched")
	}
}

func TestUpdateElementUnknownID(t *testing.T) {
	s := testSlide(t)
	if s.UpdateElement("nope", TextUpdate{Text: Ptr("x")}) {
		t.Error("unknown id must report failure")
	}
	if s.RemoveElement("nope") {
		t.Error("removing an unknown id must report failure")
	}
	if s.ReorderElement("nope", 3) {
		t.Error("reordering an unknown id must report failure")
	}
}

func TestUpdateElementRecordsOldAndNew(t *testing.T) {
	s := testSlide(t)
	id := s.AddTextElement("before", 0, 0, nil)
	s.UpdateElement(id, TextUpdate{Text: Ptr("after"), BaseUpdate: BaseUpdate{X: Ptr(50.0)}})

	el, _ := s.Element(id)
	text := el.(*TextElement)
	if text.Text != "after" || text.X != 50 {
		t.Errorf("update not applied: %q %v", text.Text, text.X)
	}

	hist := s.History()
	last := hist[len(hist)-1]
	if last.Action != actionUpdateElement {
		t.Fatalf("last action = %q", last.Action)
	}
	oldMap, ok := last.Data["old"].(map[string]any)
	if !ok {
		t.Fatal("history entry missing old snapshot")
	}
	if oldMap["text"] != "before" {
		t.Errorf("old snapshot text = %v, want before", oldMap["text"])
	}
	newMap, ok := last.Data["new"].(map[string]any)
	if !ok {
		t.Fatal("history entry missing new payload")
	}
	if newMap["text"] != "after" {
		t.Errorf("new payload text = %v, want after", newMap["text"])
	}
}

func TestZIndexUpdateResortsOrder(t *testing.T) {
	s := testSlide(t)
	a := s.AddTextElement("a", 0, 0, nil)
	b := s.AddTextElement("b", 0, 0, nil)
	s.UpdateElement(a, TextUpdate{BaseUpdate: BaseUpdate{ZIndex: Ptr(9)}})
	if got := s.ElementIDs(); !reflect.DeepEqual(got, []string{b, a}) {
		t.Errorf("order = %v, want [b a] after z-index bump", got)
	}
}

func TestHistoryCapAndRetention(t *testing.T) {
	s := testSlide(t)
	id := s.AddTextElement("x", 0, 0, nil)
	for i := 0; i < 149; i++ {
		s.UpdateElement(id, TextUpdate{Text: Ptr(fmt.Sprintf("v%d", i))})
	}

	hist := s.History()
	if len(hist) != historyCapacity {
		t.Fatalf("history length = %d, want %d", len(hist), historyCapacity)
	}
	// 150 mutations total; the ring keeps the most recent 100. Entries carry
	// the pre-mutation version, so the oldest retained one is version 51.
	if hist[0].Version != 51 {
		t.Errorf("oldest retained version = %d, want 51", hist[0].Version)
	}
	if hist[len(hist)-1].Version != 150 {
		t.Errorf("newest retained version = %d, want 150", hist[len(hist)-1].Version)
	}
}

func TestAllTextContent(t *testing.T) {
	s := testSlide(t)
	s.AddTextElement("Hello", 0, 0, nil)
	s.AddIconElement("star", 0, 0, 0, nil)
	s.AddTextElement("World", 0, 0, nil)
	if got := s.AllTextContent(); got != "Hello\nWorld" {
		t.Errorf("AllTextContent = %q, want Hello\\nWorld", got)
	}
}

func TestAddIconAndSymbolSizing(t *testing.T) {
	s := testSlide(t)
	iconID := s.AddIconElement("check", 1, 2, 48, &IconOptions{IconType: IconTypeFontAwesome})
	el, _ := s.Element(iconID)
	icon := el.(*IconElement)
	if icon.Width != 48 || icon.Height != 48 || icon.IconSize != 48 {
		t.Errorf("icon sizing wrong: %vx%v size %d", icon.Width, icon.Height, icon.IconSize)
	}

	symID := s.AddSymbolElement("∑", 1, 2, 0, nil)
	el, _ = s.Element(symID)
	sym := el.(*SymbolElement)
	if sym.Width != 24 || sym.SymbolSize != 24 {
		t.Error("symbol default size should be 24")
	}
	if sym.SymbolType != SymbolTypeMathematical {
		t.Errorf("symbol type = %q, want mathematical", sym.SymbolType)
	}
}

func TestAddImageElementRejectsMissingSource(t *testing.T) {
	s := testSlide(t)
	_, err := s.AddImageElement(filepath.Join(t.TempDir(), "nope.png"), 0, 0, nil)
	if !errors.Is(err, ErrImageSourceNotFound) {
		t.Errorf("error = %v, want ErrImageSourceNotFound", err)
	}
	if s.Version != 1 || s.ElementCount() != 0 || len(s.History()) != 0 {
		t.Error("failed add must leave the slide untouched")
	}
}

func TestAddImageElementRejectsUnsupportedFormat(t *testing.T) {
	s := testSlide(t)
	src := filepath.Join(t.TempDir(), "scan.tiff")
	if err := os.WriteFile(src, []byte("not an image"), 0o644); err != nil {
		t.Fatal(err)
	}
	_, err := s.AddImageElement(src, 0, 0, nil)
	if !errors.Is(err, ErrUnsupportedImageFormat) {
		t.Errorf("error = %v, want ErrUnsupportedImageFormat", err)
	}
	if s.Version != 1 || s.ElementCount() != 0 {
		t.Error("failed add must leave the slide untouched")
	}
}

func TestAddImageElementCopiesAndProcesses(t *testing.T) {
	s := testSlide(t)
	src := writeTestPNG(t, filepath.Join(t.TempDir(), "photo.png"), 8, 8)

	id, err := s.AddImageElement(src, 5, 5, &ImageOptions{Quality: 90, AltText: "photo"})
	if err != nil {
		t.Fatalf("AddImageElement failed: %v", err)
	}
	el, _ := s.Element(id)
	img := el.(*ImageElement)

	if img.OriginalPath != src || img.AltText != "photo" || img.Quality != 90 {
		t.Errorf("element fields wrong: %+v", img)
	}
	if img.ImagePath == "" {
		t.Fatal("image path not set")
	}
	if _, err := os.Stat(filepath.Join(s.mediaBase, img.ImagePath)); err != nil {
		t.Errorf("copied original missing: %v", err)
	}
	if _, err := os.Stat(filepath.Join(s.mediaBase, img.ProcessedPath(s.ID))); err != nil {
		t.Errorf("processed render missing: %v", err)
	}
	if img.Info.Format != "PNG" || img.Info.Size != [2]int{8, 8} {
		t.Errorf("probed info wrong: %+v", img.Info)
	}
}

func TestRemoveImageElementDeletesFiles(t *testing.T) {
	s := testSlide(t)
	src := writeTestPNG(t, filepath.Join(t.TempDir(), "photo.png"), 8, 8)
	id, err := s.AddImageElement(src, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}
	el, _ := s.Element(id)
	img := el.(*ImageElement)
	copied := filepath.Join(s.mediaBase, img.ImagePath)
	processed := filepath.Join(s.mediaBase, img.ProcessedPath(s.ID))

	if !s.RemoveElement(id) {
		t.Fatal("remove failed")
	}
	if _, err := os.Stat(copied); !os.IsNotExist(err) {
		t.Error("copied original should be deleted")
	}
	if _, err := os.Stat(processed); !os.IsNotExist(err) {
		t.Error("processed render should be deleted")
	}
	// The original source outside the media folder stays.
	if _, err := os.Stat(src); err != nil {
		t.Error("source file outside the media folder must not be touched")
	}
}

func TestStatistics(t *testing.T) {
	s := testSlide(t)
	s.AddTextElement("one two three", 0, 0, nil)
	s.AddTextElement("four", 0, 0, nil)
	s.AddIconElement("star", 0, 0, 0, nil)

	stats := s.Statistics()
	if stats.TotalElements != 3 {
		t.Errorf("TotalElements = %d, want 3", stats.TotalElements)
	}
	if stats.ByType[ElementTypeText] != 2 || stats.ByType[ElementTypeIcon] != 1 {
		t.Errorf("ByType = %v", stats.ByType)
	}
	if stats.TotalWords != 4 {
		t.Errorf("TotalWords = %d, want 4", stats.TotalWords)
	}
	if stats.TotalCharacters != len("one two three")+len("four") {
		t.Errorf("TotalCharacters = %d", stats.TotalCharacters)
	}
}

func TestCreateProcessedSnapshot(t *testing.T) {
	s := testSlide(t)
	textID := s.AddTextElement("shout", 0, 0, &TextOptions{TextTransform: "uppercase"})
	src := writeTestPNG(t, filepath.Join(t.TempDir(), "photo.png"), 8, 8)
	imgID, err := s.AddImageElement(src, 0, 0, nil)
	if err != nil {
		t.Fatal(err)
	}

	snap := s.CreateProcessedSnapshot()
	if snap.SlideID != s.ID || snap.Version != s.Version {
		t.Errorf("snapshot identity wrong: %+v", snap)
	}
	if !reflect.DeepEqual(snap.ElementOrder, s.ElementIDs()) {
		t.Error("snapshot order must mirror the paint order")
	}

	textMap := snap.Elements[textID]
	if textMap["formatted_text"] != "SHOUT" {
		t.Errorf("formatted_text = %v, want SHOUT", textMap["formatted_text"])
	}

	el, _ := s.Element(imgID)
	img := el.(*ImageElement)
	imgMap := snap.Elements[imgID]
	if imgMap["display_path"] != img.ProcessedPath(s.ID) {
		t.Errorf("display_path = %v, want the processed render", imgMap["display_path"])
	}
	thumb, _ := imgMap["thumbnail"].(string)
	if thumb == "" {
		t.Fatal("snapshot missing thumbnail path")
	}
	if _, err := os.Stat(filepath.Join(s.mediaBase, thumb)); err != nil {
		t.Errorf("thumbnail file missing: %v", err)
	}
}

func TestSlideJSONRoundTrip(t *testing.T) {
	s := testSlide(t)
	s.Title = "Serialized"
	s.BackgroundColor = "#112233"
	a := s.AddTextElement("alpha", 1, 2, nil)
	s.AddSymbolElement("⭐", 3, 4, 32, nil)
	s.ReorderElement(a, 2)

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("Marshal failed: %v", err)
	}

	got := newSlide(0, "", s.mediaBase, nil)
	if err := json.Unmarshal(raw, got); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got.ID != s.ID || got.Title != s.Title || got.BackgroundColor != s.BackgroundColor {
		t.Errorf("identity mismatch: %d/%q/%q", got.ID, got.Title, got.BackgroundColor)
	}
	if got.Version != s.Version {
		t.Errorf("Version = %d, want %d", got.Version, s.Version)
	}
	if !reflect.DeepEqual(got.ElementIDs(), s.ElementIDs()) {
		t.Errorf("order = %v, want %v", got.ElementIDs(), s.ElementIDs())
	}
	if got.AllTextContent() != "alpha" {
		t.Errorf("text content = %q", got.AllTextContent())
	}
	if len(got.History()) != len(s.history.tail(historyTailSize)) {
		t.Errorf("restored history length = %d", len(got.History()))
	}
}

func TestSlideHistoryTailSerialized(t *testing.T) {
	s := testSlide(t)
	id := s.AddTextElement("x", 0, 0, nil)
	for i := 0; i < 30; i++ {
		s.UpdateElement(id, TextUpdate{Text: Ptr(fmt.Sprintf("v%d", i))})
	}

	raw, err := json.Marshal(s)
	if err != nil {
		t.Fatal(err)
	}
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatal(err)
	}
	var hist []ChangeRecord
	if err := json.Unmarshal(doc["change_history"], &hist); err != nil {
		t.Fatal(err)
	}
	if len(hist) != historyTailSize {
		t.Errorf("serialized history length = %d, want %d", len(hist), historyTailSize)
	}
	if hist[len(hist)-1].Version != 31 {
		t.Errorf("serialized tail must end with the newest entry, got version %d", hist[len(hist)-1].Version)
	}
}

func TestSlideUnmarshalSkipsUnknownVariants(t *testing.T) {
	doc := `{
		"slide_id": 7,
		"title": "Mixed",
		"version": 4,
		"elements": {
			"t1": {"type": "text", "id": "t1", "text": "keep"},
			"v1": {"type": "video", "id": "v1", "url": "x"}
		},
		"element_order": ["t1", "v1"]
	}`
	s := newSlide(0, "", t.TempDir(), nil)
	if err := json.Unmarshal([]byte(doc), s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s.ElementCount() != 1 {
		t.Fatalf("element count = %d, want 1", s.ElementCount())
	}
	if got := s.ElementIDs(); !reflect.DeepEqual(got, []string{"t1"}) {
		t.Errorf("order = %v, want [t1]", got)
	}
	if s.Version != 4 || s.ID != 7 {
		t.Errorf("identity = %d v%d", s.ID, s.Version)
	}
}

func TestSlideUnmarshalRepairsOrder(t *testing.T) {
	doc := `{
		"slide_id": 1,
		"elements": {
			"a": {"type": "text", "id": "a", "z_index": 2},
			"b": {"type": "text", "id": "b", "z_index": 1}
		},
		"element_order": ["a", "ghost", "a"]
	}`
	s := newSlide(0, "", t.TempDir(), nil)
	if err := json.Unmarshal([]byte(doc), s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	order := s.ElementIDs()
	sorted := append([]string(nil), order...)
	sort.Strings(sorted)
	if !reflect.DeepEqual(sorted, []string{"a", "b"}) {
		t.Fatalf("order = %v, want a permutation of [a b]", order)
	}
	// "b" was missing from the stored order; it is appended after the valid
	// entries, sorted by z-index.
	if !reflect.DeepEqual(order, []string{"a", "b"}) {
		t.Errorf("order = %v, want [a b]", order)
	}
}

func TestSlideUnmarshalDefaults(t *testing.T) {
	s := newSlide(0, "", t.TempDir(), nil)
	if err := json.Unmarshal([]byte(`{"slide_id": 3}`), s); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}
	if s.Version != 1 || s.BackgroundColor != "#ffffff" {
		t.Errorf("defaults = v%d %q", s.Version, s.BackgroundColor)
	}
	if s.Config.Duration != 5000 {
		t.Errorf("config defaults not applied: %+v", s.Config)
	}
}
