package handle

import (
	"errors"
	"testing"

	bridgeerrors "github.com/wippyai/hostbridge/errors"
)

func TestRegistry_IndependentCategories(t *testing.T) {
	r := NewRegistry()

	tex, _ := r.Create(CategoryTexture, "tex")
	sock, _ := r.Create(CategorySocket, "sock")
	if tex != 0 || sock != 0 {
		t.Fatalf("handles = %d, %d; each category starts at 0", tex, sock)
	}

	v, err := r.Get(CategorySocket, sock)
	if err != nil || v != "sock" {
		t.Fatalf("Get socket = %v, %v", v, err)
	}
	if err := r.Remove(CategoryTexture, tex); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Get(CategorySocket, sock); err != nil {
		t.Error("removing a texture invalidated a socket")
	}
	if r.Len() != 1 {
		t.Errorf("Len = %d, want 1", r.Len())
	}
}

func TestRegistry_CustomCategory(t *testing.T) {
	r := NewRegistry()
	obs := &testObserver{}
	r.Subscribe(obs)

	h, err := r.Create("framebuffer", 7)
	if err != nil {
		t.Fatal(err)
	}
	if len(obs.events) != 1 || obs.events[0].Category != "framebuffer" {
		t.Errorf("observer not attached to new table: %v", obs.events)
	}

	v, err := r.Take("framebuffer", h)
	if err != nil || v != 7 {
		t.Errorf("Take = %v, %v", v, err)
	}
}

func TestRegistry_GetAs(t *testing.T) {
	r := NewRegistry()
	h, _ := r.Create(CategoryProgram, &dropCounter{})

	if _, err := GetAs[*dropCounter](r, CategoryProgram, h); err != nil {
		t.Errorf("GetAs correct type: %v", err)
	}
	if _, err := GetAs[string](r, CategoryProgram, h); !errors.Is(err, bridgeerrors.ErrInvalidHandle) {
		t.Errorf("GetAs wrong type err = %v", err)
	}
	if _, err := GetAs[string](r, CategoryProgram, 99); !errors.Is(err, bridgeerrors.ErrInvalidHandle) {
		t.Errorf("GetAs missing err = %v", err)
	}
}

func TestRegistry_Close(t *testing.T) {
	r := NewRegistry()
	d := &dropCounter{}
	_, _ = r.Create(CategoryBuffer, d)

	_ = r.Close()
	if d.drops != 1 {
		t.Errorf("drops = %d", d.drops)
	}
	if _, err := r.Create(CategoryBuffer, 1); !errors.Is(err, bridgeerrors.ErrClosed) {
		t.Errorf("Create after Close err = %v", err)
	}
	if _, err := r.Create("late", 1); !errors.Is(err, bridgeerrors.ErrClosed) {
		t.Errorf("Create in new category after Close err = %v", err)
	}
}

func TestCategoryByID(t *testing.T) {
	for i, c := range Categories {
		got, ok := CategoryByID(uint32(i))
		if !ok || got != c {
			t.Errorf("CategoryByID(%d) = %q, %v", i, got, ok)
		}
	}
	if _, ok := CategoryByID(uint32(len(Categories))); ok {
		t.Error("out-of-range id resolved")
	}
}
