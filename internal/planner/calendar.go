package planner

var dayNames = [...]string{
	"Sunday",
	"Monday",
	"Tuesday",
	"Wednesday",
	"Thursday",
	"Friday",
	"Saturday",
}

// DayName returns the name of a plan day (1=Sunday .. 7=Saturday), or "" for
// any other value.
func DayName(day int) string {
	if day < 1 || day > len(dayNames) {
		return ""
	}
	return dayNames[day-1]
}

// Project groups meals by their Day field. Entries keep their relative input
// order inside a day, days without entries are absent, and out-of-range days
// are grouped like any other value.
func Project(meals []MealEntry) map[int][]MealEntry {
	byDay := make(map[int][]MealEntry)
	for _, m := range meals {
		byDay[m.Day] = append(byDay[m.Day], m)
	}
	return byDay
}

// DayColumn is one column of the weekly calendar.
type DayColumn struct {
	Day   int
	Name  string
	Meals []MealEntry
}

// Week lays the meals out as seven columns, Sunday first. Days outside 1..7
// are not shown.
func Week(meals []MealEntry) [7]DayColumn {
	byDay := Project(meals)
	var week [7]DayColumn
	for i := range week {
		day := i + 1
		week[i] = DayColumn{Day: day, Name: DayName(day), Meals: byDay[day]}
	}
	return week
}
