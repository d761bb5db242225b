// Package ring реализует кольцевой буфер фиксированной емкости,
// в котором индекс 0 всегда указывает на самую свежую запись
package ring

// Ring хранит до size значений, от новых к старым
type Ring[T any] struct {
	values []T
	size   int
	head   int
	count  int
}

// New создает пустой буфер заданной емкости
func New[T any](size int) *Ring[T] {
	if size <= 0 {
		panic("ring: size must be positive")
	}
	return &Ring[T]{
		values: make([]T, size),
		size:   size,
	}
}

// Push помещает значение в позицию 0; при заполненном буфере
// самая старая запись вытесняется
func (r *Ring[T]) Push(v T) {
	r.head = (r.head - 1 + r.size) % r.size
	r.values[r.head] = v
	if r.count < r.size {
		r.count++
	}
}

// At возвращает значение по логическому индексу (0 = самое свежее)
func (r *Ring[T]) At(i int) (T, bool) {
	if i < 0 || i >= r.count {
		var zero T
		return zero, false
	}
	return r.values[r.physical(i)], true
}

// Update применяет fn ко всем заполненным ячейкам
func (r *Ring[T]) Update(fn func(v *T)) {
	for i := 0; i < r.count; i++ {
		fn(&r.values[r.physical(i)])
	}
}

// Values возвращает копию заполненных значений, от новых к старым
func (r *Ring[T]) Values() []T {
	out := make([]T, r.count)
	for i := range out {
		out[i] = r.values[r.physical(i)]
	}
	return out
}

// Len возвращает количество заполненных ячеек
func (r *Ring[T]) Len() int {
	return r.count
}

// Cap возвращает емкость буфера
func (r *Ring[T]) Cap() int {
	return r.size
}

func (r *Ring[T]) physical(i int) int {
	return (r.head + i) % r.size
}
