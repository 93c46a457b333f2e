// Package policy maps monetary amounts to the approval tier required to
// authorise them. Amounts are integer minor currency units.
package policy

// Level is an approval tier. Higher levels may authorise everything a
// lower level can.
type Level int

const (
	LevelDepartmentHead Level = 1
	LevelUnitManager    Level = 2
	LevelFinanceManager Level = 3
	LevelCEO            Level = 4
)

// Threshold bounds in minor units, inclusive upper bounds, evaluated in order.
const (
	departmentHeadMax = 500_000
	unitManagerMax    = 1_500_000
	financeManagerMax = 5_000_000
)

var titles = map[Level]string{
	LevelDepartmentHead: "Department Head",
	LevelUnitManager:    "Unit Manager",
	LevelFinanceManager: "Finance Manager",
	LevelCEO:            "CEO Approval",
}

// RequiredLevel returns the approval tier for an amount. The function is
// total; callers reject non-positive amounts before routing.
func RequiredLevel(amountCents int64) Level {
	switch {
	case amountCents <= departmentHeadMax:
		return LevelDepartmentHead
	case amountCents <= unitManagerMax:
		return LevelUnitManager
	case amountCents <= financeManagerMax:
		return LevelFinanceManager
	default:
		return LevelCEO
	}
}

// Title returns the human-readable tier name.
func (l Level) Title() string {
	if title, ok := titles[l]; ok {
		return title
	}
	return "Unknown"
}

// Authorises reports whether an actor holding l may decide a record
// requiring the given tier.
func (l Level) Authorises(required Level) bool {
	return l >= required
}
