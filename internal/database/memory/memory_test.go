package memory

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/kozaktomas/missing-persons/internal/database"
	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

func newPerson(nationalID string) *database.StoredPerson {
	return &database.StoredPerson{
		Name:         "سارة خالد",
		FatherName:   "خالد سعيد",
		NationalID:   nationalID,
		LostLocation: "القاهرة - مدينة نصر",
		LostDate:     time.Date(2023, 8, 20, 0, 0, 0, 0, time.UTC),
		Gender:       database.GenderFemale,
		Age:          7,
	}
}

func TestStore_AddAndGet(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p := newPerson("1")
	if err := s.Add(ctx, p); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	if p.ID == "" {
		t.Fatal("Add() should assign an ID")
	}

	got, err := s.Get(ctx, p.ID)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if got == nil || got.NationalID != "1" || got.Status != database.StatusMissing {
		t.Fatalf("Get() = %+v", got)
	}

	missing, err := s.Get(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("Get() of unknown id = %v, %v; want nil, nil", missing, err)
	}

	byNID, err := s.GetByNationalID(ctx, "1")
	if err != nil || byNID == nil || byNID.ID != p.ID {
		t.Errorf("GetByNationalID() = %v, %v", byNID, err)
	}
}

func TestStore_AddDuplicateNationalID(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	if err := s.Add(ctx, newPerson("1")); err != nil {
		t.Fatalf("Add() error = %v", err)
	}
	dup := newPerson("1")
	if err := s.Add(ctx, dup); !errors.Is(err, database.ErrDuplicateNationalID) {
		t.Errorf("expected ErrDuplicateNationalID, got %v", err)
	}
	if n, _ := s.Count(ctx); n != 1 {
		t.Errorf("Count() = %d, want 1", n)
	}
}

func TestStore_AddInvalid(t *testing.T) {
	p := newPerson("1")
	p.Name = ""
	if err := NewStore().Add(context.Background(), p); !errors.Is(err, database.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord, got %v", err)
	}
}

func TestStore_Update(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a, b := newPerson("1"), newPerson("2")
	s.Add(ctx, a)
	s.Add(ctx, b)

	a.Status = database.StatusFound
	a.NationalID = "10"
	if err := s.Update(ctx, a); err != nil {
		t.Fatalf("Update() error = %v", err)
	}
	got, _ := s.GetByNationalID(ctx, "10")
	if got == nil || got.Status != database.StatusFound {
		t.Errorf("updated record not found by new national id: %+v", got)
	}
	if old, _ := s.GetByNationalID(ctx, "1"); old != nil {
		t.Error("old national id should be released")
	}

	b.NationalID = "10"
	if err := s.Update(ctx, b); !errors.Is(err, database.ErrDuplicateNationalID) {
		t.Errorf("expected ErrDuplicateNationalID, got %v", err)
	}

	ghost := newPerson("3")
	ghost.ID = "ghost"
	if err := s.Update(ctx, ghost); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_Delete(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	p := newPerson("1")
	s.Add(ctx, p)

	if err := s.Delete(ctx, p.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := s.Delete(ctx, p.ID); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound on second delete, got %v", err)
	}

	// national id is free again
	if err := s.Add(ctx, newPerson("1")); err != nil {
		t.Errorf("re-adding after delete failed: %v", err)
	}
}

func TestStore_ListKeepsOrder(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	for i := range 5 {
		s.Add(ctx, newPerson(fmt.Sprint(i)))
	}

	list, _ := s.List(ctx)
	for i, p := range list {
		if p.NationalID != fmt.Sprint(i) {
			t.Errorf("List()[%d] = %s, want %d", i, p.NationalID, i)
		}
	}

	all, _ := s.Search(ctx, database.SearchFilters{})
	if len(all) != 5 {
		t.Errorf("empty filter search returned %d, want 5", len(all))
	}
}

func TestStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newPerson("1")
	s.Add(ctx, p)

	got, _ := s.Get(ctx, p.ID)
	got.Name = "changed"
	p.Name = "changed too"

	again, _ := s.Get(ctx, p.ID)
	if again.Name != "سارة خالد" {
		t.Errorf("store state leaked: %q", again.Name)
	}
}

func TestStore_FindSimilar(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a, b := newPerson("1"), newPerson("2")
	s.Add(ctx, a)
	s.Add(ctx, b)

	vec := make([]float32, descriptor.Dim)
	vec[0] = 1
	if err := s.SetDescriptor(ctx, a.ID, vec, descriptor.SourcePixels); err != nil {
		t.Fatalf("SetDescriptor() error = %v", err)
	}

	matches, err := s.FindSimilar(ctx, vec, database.MatchOptions{Threshold: 0.3})
	if err != nil {
		t.Fatalf("FindSimilar() error = %v", err)
	}
	if len(matches) != 1 || matches[0].Person.ID != a.ID {
		t.Fatalf("FindSimilar() = %+v", matches)
	}
	if matches[0].Confidence < 0.999 {
		t.Errorf("confidence = %v, want 1", matches[0].Confidence)
	}

	if err := s.SetDescriptor(ctx, a.ID, []float32{1}, descriptor.SourceManual); !errors.Is(err, database.ErrInvalidRecord) {
		t.Errorf("expected ErrInvalidRecord for short descriptor, got %v", err)
	}
	if err := s.SetDescriptor(ctx, "ghost", vec, descriptor.SourceManual); !errors.Is(err, database.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestStore_SetImage(t *testing.T) {
	ctx := context.Background()
	s := NewStore()
	p := newPerson("1")
	s.Add(ctx, p)

	if err := s.SetImage(ctx, p.ID, "/uploads/a.jpg"); err != nil {
		t.Fatalf("SetImage() error = %v", err)
	}
	got, _ := s.Get(ctx, p.ID)
	if got.ImageURL != "/uploads/a.jpg" {
		t.Errorf("ImageURL = %q", got.ImageURL)
	}
	stats, _ := s.Stats(ctx)
	if stats.WithImage != 1 {
		t.Errorf("Stats().WithImage = %d, want 1", stats.WithImage)
	}
}

func TestStore_ConcurrentAdds(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	var wg sync.WaitGroup
	errs := make(chan error, 50)
	for i := range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			// every national id is used twice, only one insert may win
			errs <- s.Add(ctx, newPerson(fmt.Sprint(i%25)))
		}()
	}
	wg.Wait()
	close(errs)

	dups := 0
	for err := range errs {
		if errors.Is(err, database.ErrDuplicateNationalID) {
			dups++
		} else if err != nil {
			t.Errorf("unexpected error: %v", err)
		}
	}
	if n, _ := s.Count(ctx); n != 25 || dups != 25 {
		t.Errorf("Count() = %d, duplicates = %d; want 25, 25", n, dups)
	}
}

func TestRegister(t *testing.T) {
	defer database.ResetBackends()

	s := NewStore()
	Register(s)

	repo, err := database.GetPersonRepository(context.Background())
	if err != nil {
		t.Fatalf("GetPersonRepository() error = %v", err)
	}
	if repo != s {
		t.Error("registered repository is not the store")
	}
	if database.BackendName() != "memory" {
		t.Errorf("BackendName() = %q", database.BackendName())
	}
}
