package reviews

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// listingLess mirrors the ORDER BY used for review listings:
// year DESC, semester DESC, created_at DESC, id DESC.
func listingLess(a, b Review) bool {
	if a.Year != b.Year {
		return a.Year > b.Year
	}
	if oa, ob := SemesterOrder(a.Semester), SemesterOrder(b.Semester); oa != ob {
		return oa > ob
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.After(b.CreatedAt)
	}
	return a.ID > b.ID
}

func TestSemesterOrder(t *testing.T) {
	require.Equal(t, 1, SemesterOrder("Semester 1"))
	require.Equal(t, 2, SemesterOrder("Special Term 1"))
	require.Equal(t, 3, SemesterOrder("Winter Session"))
	require.Equal(t, 4, SemesterOrder("Semester 2"))
	require.Equal(t, 5, SemesterOrder("Special Term 2"))
	require.Equal(t, 6, SemesterOrder("Summer Session"))
	require.Equal(t, 0, SemesterOrder("AY2024/25 Sem 1"))
	require.Equal(t, 0, SemesterOrder("semester 1"), "matching is exact")
}

func TestListingOrderByYearSemesterThenRecency(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	reviews := []Review{
		{ID: 1, Year: 2023, Semester: SummerSession, CreatedAt: base},
		{ID: 2, Year: 2024, Semester: SemesterOne, CreatedAt: base},
		{ID: 3, Year: 2024, Semester: SemesterTwo, CreatedAt: base},
		{ID: 4, Year: 2024, Semester: "Unknown", CreatedAt: base.Add(time.Hour)},
		{ID: 5, Year: 2024, Semester: SemesterTwo, CreatedAt: base.Add(time.Minute)},
		{ID: 6, Year: 2024, Semester: SemesterTwo, CreatedAt: base.Add(time.Minute)},
	}

	sort.Slice(reviews, func(i, j int) bool { return listingLess(reviews[i], reviews[j]) })

	ids := make([]int64, len(reviews))
	for i, r := range reviews {
		ids[i] = r.ID
	}
	require.Equal(t, []int64{6, 5, 3, 2, 4, 1}, ids)
}
