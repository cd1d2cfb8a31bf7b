package database

import (
	"time"

	"github.com/kozaktomas/missing-persons/internal/descriptor"
)

func date(s string) time.Time {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		panic(err)
	}
	return t
}

// samplePersons mirrors the bundled sample dataset.
func samplePersons() []StoredPerson {
	return []StoredPerson{
		{ID: "person-1", Name: "محمد أحمد", NationalID: "1", Age: 12, Gender: GenderMale, LostLocation: "القاهرة - العباسية", LostDate: date("2023-05-10"), Status: StatusMissing},
		{ID: "person-2", Name: "علي حسن", NationalID: "2", Age: 9, Gender: GenderMale, LostLocation: "الإسكندرية - المنتزه", LostDate: date("2023-07-15"), Status: StatusMissing},
		{ID: "person-3", Name: "سارة خالد", NationalID: "3", Age: 7, Gender: GenderFemale, LostLocation: "القاهرة - مدينة نصر", LostDate: date("2023-08-20"), Status: StatusFound},
	}
}

// unitVector returns a descriptor with a single non-zero slot.
func unitVector(slot int) []float32 {
	v := make([]float32, descriptor.Dim)
	v[slot] = 1
	return v
}
