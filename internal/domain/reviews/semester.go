package reviews

const (
	SemesterOne    = "Semester 1"
	SpecialTermOne = "Special Term 1"
	WinterSession  = "Winter Session"
	SemesterTwo    = "Semester 2"
	SpecialTermTwo = "Special Term 2"
	SummerSession  = "Summer Session"
)

const unknownSemesterOrder = 0

// Semesters lists the academic terms in calendar order.
var Semesters = []string{
	SemesterOne,
	SpecialTermOne,
	WinterSession,
	SemesterTwo,
	SpecialTermTwo,
	SummerSession,
}

// SemesterOrder ranks a term within its academic year. Unknown terms rank 0 and sort last
// under descending order.
func SemesterOrder(semester string) int {
	for i, s := range Semesters {
		if s == semester {
			return i + 1
		}
	}
	return unknownSemesterOrder
}

func IsValidSemester(semester string) bool {
	return SemesterOrder(semester) != unknownSemesterOrder
}
