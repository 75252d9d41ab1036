package agent

import (
	"testing"

	"github.com/hbbio/nanoagent/pkg/errmodel"
)

func setKey(k string, v any) Patch[MapMemory] {
	return func(m MapMemory) MapMemory {
		if m == nil {
			m = MapMemory{}
		}
		m[k] = v
		return m
	}
}

func TestComposePatchesDisjointKeys(t *testing.T) {
	base := MapMemory{"keep": "original"}
	out, err := ComposePatches(base, setKey("a", 1), setKey("b", 2))
	if err != nil {
		t.Fatal(err)
	}
	if out["a"] != 1 || out["b"] != 2 || out["keep"] != "original" {
		t.Fatalf("merged memory wrong: %v", out)
	}
	if _, ok := base["a"]; ok {
		t.Fatal("base memory mutated")
	}
}

func TestComposePatchesConflictRegardlessOfOrder(t *testing.T) {
	a := setKey("x", 1)
	b := setKey("x", 2)
	if _, err := ComposePatches(MapMemory{}, a, b); err == nil {
		t.Fatal("expected conflict a,b")
	} else if !errmodel.IsCategory(err, errmodel.CategoryMemory) {
		t.Fatalf("wrong category: %v", err)
	}
	if _, err := ComposePatches(MapMemory{}, b, a); err == nil {
		t.Fatal("expected conflict b,a")
	}
}

func TestComposePatchesSameValueStillConflicts(t *testing.T) {
	a := setKey("x", 1)
	b := setKey("x", 1)
	if _, err := ComposePatches(MapMemory{}, a, b); err == nil {
		t.Fatal("expected conflict for identical writes")
	} else if !errmodel.IsCategory(err, errmodel.CategoryMemory) {
		t.Fatalf("wrong category: %v", err)
	}
}

func TestComposePatchesBaseValueIsNotAWrite(t *testing.T) {
	// Writing a key back to its base value records nothing, so another patch
	// may still claim the key.
	out, err := ComposePatches(MapMemory{"x": 1}, setKey("x", 1), setKey("x", 2))
	if err != nil {
		t.Fatal(err)
	}
	if out["x"] != 2 {
		t.Fatalf("x=%v", out["x"])
	}
}

func TestComposePatchesOverwriteExistingKey(t *testing.T) {
	out, err := ComposePatches(MapMemory{"x": "old"}, setKey("x", "new"))
	if err != nil {
		t.Fatal(err)
	}
	if out["x"] != "new" {
		t.Fatalf("x=%v", out["x"])
	}
}

func TestComposePatchesNilAndEmpty(t *testing.T) {
	out, err := ComposePatches(MapMemory{"x": 1}, nil, nil)
	if err != nil {
		t.Fatal(err)
	}
	if out["x"] != 1 {
		t.Fatalf("memory lost: %v", out)
	}

	out, err = ComposePatches[MapMemory](nil, setKey("x", 1))
	if err != nil {
		t.Fatal(err)
	}
	if out["x"] != 1 {
		t.Fatalf("x=%v", out["x"])
	}
}

func TestComposePatchesDeleteIsNotAWrite(t *testing.T) {
	del := func(m MapMemory) MapMemory {
		delete(m, "x")
		return m
	}
	// Deleting a key leaves no entry in the result, so it records no write;
	// a later patch may claim the key.
	out, err := ComposePatches(MapMemory{"x": 1}, del, setKey("x", 2))
	if err != nil {
		t.Fatal(err)
	}
	if out["x"] != 2 {
		t.Fatalf("x=%v", out["x"])
	}
}
