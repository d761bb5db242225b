// Package samplelog реализует журнал показаний датчика фиксированной емкости
// с анализом тренда (монотонность, резкие изменения, нагрев и остывание)
package samplelog

import (
	"errors"
	"fmt"

	"shower-monitor/internal/ring"
)

const (
	// DefaultCapacity емкость журнала по умолчанию (60 показаний)
	DefaultCapacity = 60
)

var (
	// ErrIndexOutOfRange индекс вне диапазона [0, Size())
	ErrIndexOutOfRange = errors.New("samplelog: index out of range")
	// ErrEmptySlot ячейка по индексу еще не заполнена
	ErrEmptySlot = errors.New("samplelog: empty slot")
)

// Log хранит показания от новых к старым: индекс 0 самое свежее
type Log struct {
	buf *ring.Ring[float64]
}

// New создает пустой журнал заданной емкости
func New(capacity int) *Log {
	return &Log{buf: ring.New[float64](capacity)}
}

// Add добавляет показание в позицию 0, сдвигая остальные к хвосту
func (l *Log) Add(v float64) {
	l.buf.Push(v)
}

// Get возвращает показание в позиции i
func (l *Log) Get(i int) (float64, error) {
	if i < 0 || i >= l.Size() {
		return 0, fmt.Errorf("get %d: %w", i, ErrIndexOutOfRange)
	}
	v, ok := l.buf.At(i)
	if !ok {
		return 0, fmt.Errorf("get %d: %w", i, ErrEmptySlot)
	}
	return v, nil
}

// Oldest возвращает значение последней ячейки журнала (Size()-1),
// ok=false если журнал еще не заполнен до конца
func (l *Log) Oldest() (float64, bool) {
	return l.buf.At(l.Size() - 1)
}

// Size возвращает емкость журнала
func (l *Log) Size() int {
	return l.buf.Cap()
}

// NumFilled возвращает количество заполненных ячеек
func (l *Log) NumFilled() int {
	return l.buf.Len()
}

// Values возвращает копию заполненных показаний, от новых к старым
func (l *Log) Values() []float64 {
	return l.buf.Values()
}
