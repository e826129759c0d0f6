package extract

import "testing"

func TestRegistryAddIfAbsent(t *testing.T) {
	reg := NewRegistry()

	if !reg.AddIfAbsent("https://example.com/a.jpg") {
		t.Fatal("first insert should succeed")
	}
	if reg.AddIfAbsent("https://example.com/a.jpg") {
		t.Fatal("duplicate insert should be rejected")
	}
	for _, bad := range []string{"", "undefined", "null"} {
		if reg.AddIfAbsent(bad) {
			t.Fatalf("insert of %q should be rejected", bad)
		}
	}
	if reg.Len() != 1 {
		t.Fatalf("expected 1 record, got %d", reg.Len())
	}
}

func TestRegistrySizeHintAtInsert(t *testing.T) {
	reg := NewRegistry()
	reg.AddIfAbsent("https://example.com/img_800x600.jpg")

	rec, ok := reg.Get("https://example.com/img_800x600.jpg")
	if !ok {
		t.Fatal("record not found")
	}
	if rec.Width != 800 || rec.Height != 600 {
		t.Fatalf("expected hint 800x600, got %dx%d", rec.Width, rec.Height)
	}
	if rec.Loaded {
		t.Fatal("hinted record must not be marked loaded")
	}
	if want := int64(800) * 600 * 4; rec.EstimatedSize != want {
		t.Fatalf("expected advisory estimate %d, got %d", want, rec.EstimatedSize)
	}
}

func TestRegistryUpdateOnLoad(t *testing.T) {
	reg := NewRegistry()
	url := "https://example.com/photo.jpg"
	reg.AddIfAbsent(url)

	if !reg.UpdateOnLoad(url, 1200, 900) {
		t.Fatal("update should succeed for known url")
	}
	rec, _ := reg.Get(url)
	if !rec.Loaded || rec.Width != 1200 || rec.Height != 900 {
		t.Fatalf("unexpected record after load: %+v", rec)
	}
	if rec.Format != FormatJPG {
		t.Fatalf("format must not change on load, got %q", rec.Format)
	}
	if rec.EstimatedSize != EstimateBytes(1200, 900, FormatJPG) {
		t.Fatalf("estimated size not recomputed: %d", rec.EstimatedSize)
	}

	if reg.UpdateOnLoad("https://example.com/unknown.jpg", 1, 1) {
		t.Fatal("update of unknown url should fail")
	}
}

func TestRegistrySelection(t *testing.T) {
	reg := NewRegistry()
	reg.AddIfAbsent("https://example.com/a.jpg")
	reg.AddIfAbsent("https://example.com/b.jpg")

	reg.SetSelected("https://example.com/a.jpg", true)
	if got := len(reg.Selected()); got != 1 {
		t.Fatalf("expected 1 selected, got %d", got)
	}

	reg.SelectAll()
	if got := len(reg.Selected()); got != 2 {
		t.Fatalf("expected 2 selected, got %d", got)
	}

	reg.DeselectAll()
	if got := len(reg.Selected()); got != 0 {
		t.Fatalf("expected 0 selected, got %d", got)
	}
}

func TestRegistryUnloadedAndClear(t *testing.T) {
	reg := NewRegistry()
	reg.AddIfAbsent("https://example.com/a.jpg")
	reg.AddIfAbsent("https://example.com/b.jpg")
	reg.UpdateOnLoad("https://example.com/a.jpg", 10, 10)

	unloaded := reg.Unloaded()
	if len(unloaded) != 1 || unloaded[0] != "https://example.com/b.jpg" {
		t.Fatalf("unexpected unloaded list: %v", unloaded)
	}

	reg.Clear()
	if reg.Len() != 0 {
		t.Fatalf("expected empty registry after clear, got %d", reg.Len())
	}
	if !reg.AddIfAbsent("https://example.com/a.jpg") {
		t.Fatal("insert after clear should succeed")
	}
}
