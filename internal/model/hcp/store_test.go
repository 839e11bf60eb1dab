package hcp

import "testing"

func TestFindByNameMatchesAliasesAndTitle(t *testing.T) {
	store := NewMemoryStore(Seed())

	for _, query := range []string{"Dr. Lee", "lee", "  DR. MIN-JUN   LEE ", "dr-lee"} {
		got, ok := store.FindByName(query)
		if !ok {
			t.Fatalf("expected %q to resolve", query)
		}
		if got.ID != "dr-lee" {
			t.Fatalf("query %q: got %s want dr-lee", query, got.ID)
		}
	}
}

func TestFindByNameUnknown(t *testing.T) {
	store := NewMemoryStore(Seed())
	if _, ok := store.FindByName("Dr. House"); ok {
		t.Fatal("expected unknown HCP to miss")
	}
	if _, ok := store.FindByName("   "); ok {
		t.Fatal("expected blank query to miss")
	}
}

func TestListReturnsCopy(t *testing.T) {
	store := NewMemoryStore(Seed())
	list := store.List()
	list[0].Name = "changed"

	if store.List()[0].Name == "changed" {
		t.Fatal("List must not expose internal slice")
	}
}

func TestFindByID(t *testing.T) {
	store := NewMemoryStore(Seed())
	if got, ok := store.FindByID("dr-garcia"); !ok || got.Specialty != "Oncology" {
		t.Fatalf("expected dr-garcia, got %+v ok=%v", got, ok)
	}
	if _, ok := store.FindByID("Dr. Garcia"); ok {
		t.Fatal("FindByID must not match names")
	}
}
