// Package eventlog реализует журнал сеансов душа фиксированной емкости
// с контрольной суммой для простого обнаружения порчи данных
package eventlog

import (
	"errors"
	"fmt"

	"github.com/samber/lo"

	"shower-monitor/internal/ring"
)

const (
	// DefaultCapacity емкость журнала по умолчанию (10 сеансов)
	DefaultCapacity = 10
)

var (
	// ErrIndexOutOfRange индекс вне диапазона [0, Size())
	ErrIndexOutOfRange = errors.New("eventlog: index out of range")
	// ErrEmptySlot ячейка по индексу еще не заполнена
	ErrEmptySlot = errors.New("eventlog: empty slot")
)

// Entry запись о завершенном сеансе
type Entry struct {
	Temperature uint8  `json:"temperature"`
	Duration    uint8  `json:"duration"`
	Age         uint16 `json:"age_in_cycles"`
}

func (e Entry) sum() uint16 {
	return uint16(e.Temperature) + uint16(e.Duration) + e.Age
}

// Log хранит сеансы от новых к старым
type Log struct {
	buf      *ring.Ring[Entry]
	checksum uint16
}

// New создает пустой журнал заданной емкости
func New(capacity int) *Log {
	return &Log{buf: ring.New[Entry](capacity)}
}

// Add добавляет сеанс с нулевым возрастом
func (l *Log) Add(temperature, duration uint8) {
	l.AddAged(temperature, duration, 0)
}

// AddAged добавляет сеанс в позицию 0, вытесняя самый старый
func (l *Log) AddAged(temperature, duration uint8, age uint16) {
	l.buf.Push(Entry{Temperature: temperature, Duration: duration, Age: age})
	l.calcChecksum()
}

// IncrementAll увеличивает возраст всех сеансов на один цикл.
// Переполнение uint16 не контролируется.
func (l *Log) IncrementAll() {
	l.buf.Update(func(e *Entry) { e.Age++ })
	l.calcChecksum()
}

// At возвращает запись в позиции i
func (l *Log) At(i int) (Entry, error) {
	if i < 0 || i >= l.Size() {
		return Entry{}, fmt.Errorf("entry %d: %w", i, ErrIndexOutOfRange)
	}
	e, ok := l.buf.At(i)
	if !ok {
		return Entry{}, fmt.Errorf("entry %d: %w", i, ErrEmptySlot)
	}
	return e, nil
}

// Temp возвращает среднюю температуру сеанса i
func (l *Log) Temp(i int) (uint8, error) {
	e, err := l.At(i)
	return e.Temperature, err
}

// Duration возвращает длительность сеанса i
func (l *Log) Duration(i int) (uint8, error) {
	e, err := l.At(i)
	return e.Duration, err
}

// Age возвращает возраст сеанса i в циклах
func (l *Log) Age(i int) (uint16, error) {
	e, err := l.At(i)
	return e.Age, err
}

// Entries возвращает копию заполненных записей, от новых к старым
func (l *Log) Entries() []Entry {
	return l.buf.Values()
}

// Size возвращает емкость журнала
func (l *Log) Size() int {
	return l.buf.Cap()
}

// NumFilled возвращает количество заполненных записей
func (l *Log) NumFilled() int {
	return l.buf.Len()
}

// Checksum возвращает контрольную сумму текущего содержимого
func (l *Log) Checksum() uint16 {
	return l.checksum
}

// calcChecksum пересчитывает сумму по модулю 2^16;
// вызывается из каждого метода, изменяющего журнал
func (l *Log) calcChecksum() {
	l.checksum = lo.SumBy(l.buf.Values(), Entry.sum)
}
