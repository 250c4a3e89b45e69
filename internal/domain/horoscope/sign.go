package horoscope

// Sign is one of the twelve zodiac sign labels assigned to a subscriber.
// Labels are the Russian-locale names used across the bot's messages and
// in the authored corpus files.
type Sign string

const (
	SignAries       Sign = "Овен"
	SignTaurus      Sign = "Телец"
	SignGemini      Sign = "Близнецы"
	SignCancer      Sign = "Рак"
	SignLeo         Sign = "Лев"
	SignVirgo       Sign = "Дева"
	SignLibra       Sign = "Весы"
	SignScorpio     Sign = "Скорпион"
	SignSagittarius Sign = "Стрелец"
	SignCapricorn   Sign = "Козерог"
	SignAquarius    Sign = "Водолей"
	SignPisces      Sign = "Рыбы"
)

// AllSigns lists every sign in zodiac order, starting from Aries.
var AllSigns = []Sign{
	SignAries, SignTaurus, SignGemini, SignCancer,
	SignLeo, SignVirgo, SignLibra, SignScorpio,
	SignSagittarius, SignCapricorn, SignAquarius, SignPisces,
}

// ParseSign returns the Sign matching the given label, if any.
func ParseSign(label string) (Sign, bool) {
	for _, s := range AllSigns {
		if string(s) == label {
			return s, true
		}
	}
	return "", false
}

// signBoundary marks the earliest (month, day) on which a sign begins.
type signBoundary struct {
	month int
	day   int
	sign  Sign
}

// Boundaries are walked from the latest threshold to the earliest; the first
// one at or before the birth date wins. Capricorn spans the year wrap
// (December 22 through January 19) and is handled separately.
var signBoundaries = []signBoundary{
	{1, 20, SignAquarius},
	{2, 19, SignPisces},
	{3, 21, SignAries},
	{4, 20, SignTaurus},
	{5, 21, SignGemini},
	{6, 22, SignCancer},
	{7, 23, SignLeo},
	{8, 23, SignVirgo},
	{9, 23, SignLibra},
	{10, 23, SignScorpio},
	{11, 22, SignSagittarius},
}

// SignByBirthDate maps a birth day and month to a zodiac sign.
// Inputs are expected to be a valid calendar day (1-31) and month (1-12);
// the caller validates. Out-of-range values do not panic but the result is
// unspecified.
func SignByBirthDate(day, month int) Sign {
	if (month == 12 && day >= 22) || (month == 1 && day <= 19) {
		return SignCapricorn
	}
	for i := len(signBoundaries) - 1; i >= 0; i-- {
		b := signBoundaries[i]
		if month > b.month || (month == b.month && day >= b.day) {
			return b.sign
		}
	}
	return SignCapricorn
}
