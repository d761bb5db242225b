package samplelog

// Trend результат проверки монотонности
type Trend int

const (
	// TrendInputError неверный диапазон
	TrendInputError Trend = iota - 1
	// TrendNonMonotonic разности меняют знак
	TrendNonMonotonic
	// TrendConstant все разности нулевые
	TrendConstant
	// TrendIncreasing значения растут с индексом: log[i+1] >= log[i].
	// Индекс 0 самый свежий, поэтому во времени температура падала.
	TrendIncreasing
	// TrendDecreasing значения убывают с индексом (во времени температура росла)
	TrendDecreasing
)

// IsMonotonic true для TrendIncreasing и TrendDecreasing
func (t Trend) IsMonotonic() bool {
	return t == TrendIncreasing || t == TrendDecreasing
}

func (t Trend) String() string {
	switch t {
	case TrendInputError:
		return "input_error"
	case TrendNonMonotonic:
		return "non_monotonic"
	case TrendConstant:
		return "constant"
	case TrendIncreasing:
		return "increasing"
	case TrendDecreasing:
		return "decreasing"
	}
	return "unknown"
}

// Change результат поиска резкого изменения
type Change int

const (
	// ChangeInputError неверный диапазон или окно
	ChangeInputError Change = iota - 1
	// ChangeNone резких изменений нет
	ChangeNone
	// ChangeDetected найдено изменение не меньше порога
	ChangeDetected
)

func (c Change) String() string {
	switch c {
	case ChangeInputError:
		return "input_error"
	case ChangeNone:
		return "none"
	case ChangeDetected:
		return "detected"
	}
	return "unknown"
}

// Monotonicity проверяет монотонность диапазона [start, finish] включительно.
// Направление задает первая ненулевая разность log[i+1]-log[i]; нулевые
// разности монотонность не нарушают.
func (l *Log) Monotonicity(start, finish int) Trend {
	if start < 0 || finish <= start || finish >= l.NumFilled() {
		return TrendInputError
	}
	vals := l.Values()

	dirKnown := false
	increasing := false
	for i := start; i < finish; i++ {
		d := vals[i+1] - vals[i]
		if !dirKnown {
			if d > 0 {
				increasing, dirKnown = true, true
			} else if d < 0 {
				increasing, dirKnown = false, true
			}
			continue
		}
		if (d > 0 && !increasing) || (d < 0 && increasing) {
			return TrendNonMonotonic
		}
	}

	switch {
	case !dirKnown:
		return TrendConstant
	case increasing:
		return TrendIncreasing
	default:
		return TrendDecreasing
	}
}

// FastChange ищет в диапазоне [start, finish] окно из nRecords записей,
// внутри которого накопленное от начала окна изменение достигает dLimit
// по модулю.
//
// Для dLimit=1.0 и nRecords=3:
//
//	[32, 32.5, 33]       -> ChangeDetected
//	[32, 32.5, 32.5, 33] -> ChangeNone
//	[32, 32.5, 32]       -> ChangeNone
//	[32, 33, 32]         -> ChangeDetected
//	[32, 31.5, 32.5]     -> ChangeNone
func (l *Log) FastChange(start, finish, nRecords int, dLimit float64) Change {
	if start < 0 || start >= finish || finish >= l.NumFilled() {
		return ChangeInputError
	}
	if nRecords < 1 || finish+1-start < nRecords {
		return ChangeInputError
	}
	vals := l.Values()

	for i := start; i <= finish+1-nRecords; i++ {
		d := 0.0
		for j := i; j < i+nRecords-1; j++ {
			d += vals[j+1] - vals[j]
			if d >= dLimit || d <= -dLimit {
				return ChangeDetected
			}
		}
	}
	return ChangeNone
}

// IsWarming true если самое свежее показание выше показания rng записей
// назад и на отрезке [0, rng] есть резкое изменение не меньше vChange
func (l *Log) IsWarming(vChange float64, rng int) bool {
	newest, err := l.Get(0)
	if err != nil {
		return false
	}
	past, err := l.Get(rng)
	if err != nil {
		return false
	}
	return newest > past && l.FastChange(0, rng, rng+1, vChange) == ChangeDetected
}

// IsCooling true если за последние rng записей значение упало больше чем
// на vChange, падение монотонно и не содержит скачков (wLimit за window записей)
func (l *Log) IsCooling(vChange float64, rng, window int, wLimit float64) bool {
	newest, err := l.Get(0)
	if err != nil {
		return false
	}
	past, err := l.Get(rng)
	if err != nil {
		return false
	}
	if past-newest <= vChange {
		return false
	}
	if !l.Monotonicity(0, rng).IsMonotonic() {
		return false
	}
	return l.FastChange(0, rng, window, wLimit) == ChangeNone
}
