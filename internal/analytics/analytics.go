// Package analytics связывает журнал показаний и журнал сеансов
// Выполняет детекцию фронтов нагрева и остывания для каждого нового показания
package analytics

import (
	"sync"

	"github.com/montanaflynn/stats"
	"github.com/samber/lo"

	"shower-monitor/internal/config"
	"shower-monitor/internal/eventlog"
	"shower-monitor/internal/models"
	"shower-monitor/internal/samplelog"
)

// Analyzer владеет обоими журналами и сериализует доступ к ним.
// Журналы не потокобезопасны, поэтому все обращения идут под mu.
type Analyzer struct {
	mu       sync.RWMutex
	samples  *samplelog.Log
	sessions *eventlog.Log
	trend    config.TrendConfig

	// предыдущее состояние для детекции фронтов
	warming bool
	cooling bool

	readingsTotal int64
	warmingEdges  int64
	coolingEdges  int64

	readingsChan chan models.Reading
	resultsChan  chan models.AnalysisResult
	stopChan     chan struct{}
	wg           sync.WaitGroup
}

// NewAnalyzer создает анализатор с пустыми журналами
func NewAnalyzer(logs config.LogsConfig, trend config.TrendConfig, bufferSize int) *Analyzer {
	return &Analyzer{
		samples:      samplelog.New(logs.SampleCapacity),
		sessions:     eventlog.New(logs.EventCapacity),
		trend:        trend,
		readingsChan: make(chan models.Reading, bufferSize),
		resultsChan:  make(chan models.AnalysisResult, bufferSize),
		stopChan:     make(chan struct{}),
	}
}

// Start запускает единственную горутину-писателя: показания должны
// попадать в журнал строго в порядке поступления
func (a *Analyzer) Start() {
	a.wg.Add(1)
	go a.worker()
}

// worker горутина для обработки показаний
func (a *Analyzer) worker() {
	defer a.wg.Done()
	for {
		select {
		case reading := <-a.readingsChan:
			result := a.analyze(reading)
			select {
			case a.resultsChan <- result:
			default:
				// Канал результатов переполнен, пропускаем
			}
		case <-a.stopChan:
			return
		}
	}
}

// analyze добавляет показание и оценивает тренд
func (a *Analyzer) analyze(r models.Reading) models.AnalysisResult {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.samples.Add(r.Value)
	a.readingsTotal++

	warming := a.samples.IsWarming(a.trend.WarmingChange, a.trend.WarmingRange)
	cooling := a.samples.IsCooling(a.trend.CoolingChange, a.trend.CoolingRange,
		a.trend.CoolingWindow, a.trend.CoolingLimit)

	result := models.AnalysisResult{
		Timestamp:   r.Timestamp,
		Value:       r.Value,
		Filled:      a.samples.NumFilled(),
		Warming:     warming,
		Cooling:     cooling,
		WarmingEdge: warming && !a.warming,
		CoolingEdge: cooling && !a.cooling,
	}
	a.warming, a.cooling = warming, cooling

	if result.WarmingEdge {
		a.warmingEdges++
	}
	if result.CoolingEdge {
		a.coolingEdges++
	}
	return result
}

// Submit отправляет показание на обработку
func (a *Analyzer) Submit(r models.Reading) bool {
	select {
	case a.readingsChan <- r:
		return true
	default:
		return false
	}
}

// AnalyzeSync синхронно добавляет и анализирует показание
func (a *Analyzer) AnalyzeSync(r models.Reading) models.AnalysisResult {
	return a.analyze(r)
}

// Results возвращает канал результатов
func (a *Analyzer) Results() <-chan models.AnalysisResult {
	return a.resultsChan
}

// Reading возвращает показание в позиции i журнала
func (a *Analyzer) Reading(i int) (float64, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.samples.Get(i)
}

// Readings возвращает содержимое журнала показаний со статистикой
func (a *Analyzer) Readings() models.ReadingsResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()

	values := a.samples.Values()
	return models.ReadingsResponse{
		Capacity: a.samples.Size(),
		Filled:   len(values),
		Values:   values,
		Summary:  summarize(values),
	}
}

// Trend проверяет монотонность и резкие изменения в диапазоне [start, finish]
func (a *Analyzer) Trend(start, finish, window int, limit float64) models.TrendResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return models.TrendResponse{
		Start:      start,
		Finish:     finish,
		Trend:      a.samples.Monotonicity(start, finish).String(),
		Window:     window,
		Limit:      limit,
		FastChange: a.samples.FastChange(start, finish, window, limit).String(),
	}
}

// RecordSession добавляет сеанс и возвращает новую контрольную сумму
func (a *Analyzer) RecordSession(s models.Session) uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sessions.AddAged(s.Temperature, s.Duration, s.Age)
	return a.sessions.Checksum()
}

// Tick увеличивает возраст всех сеансов на один цикл
func (a *Analyzer) Tick() uint16 {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.sessions.IncrementAll()
	return a.sessions.Checksum()
}

// Session возвращает сеанс в позиции i журнала
func (a *Analyzer) Session(i int) (models.Session, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()

	e, err := a.sessions.At(i)
	if err != nil {
		return models.Session{}, err
	}
	return toSession(e), nil
}

// Sessions возвращает содержимое журнала сеансов
func (a *Analyzer) Sessions() models.SessionsResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()

	entries := a.sessions.Entries()
	return models.SessionsResponse{
		Capacity: a.sessions.Size(),
		Filled:   len(entries),
		Checksum: a.sessions.Checksum(),
		Sessions: lo.Map(entries, func(e eventlog.Entry, _ int) models.Session {
			return toSession(e)
		}),
	}
}

// Stats возвращает счетчики и заполненность журналов
func (a *Analyzer) Stats() models.StatsResponse {
	a.mu.RLock()
	defer a.mu.RUnlock()

	return models.StatsResponse{
		ReadingsTotal:   a.readingsTotal,
		WarmingEdges:    a.warmingEdges,
		CoolingEdges:    a.coolingEdges,
		SamplesFilled:   a.samples.NumFilled(),
		SessionsFilled:  a.sessions.NumFilled(),
		SessionChecksum: a.sessions.Checksum(),
	}
}

// Stop останавливает анализатор
func (a *Analyzer) Stop() {
	close(a.stopChan)
	a.wg.Wait()
}

func toSession(e eventlog.Entry) models.Session {
	return models.Session{Temperature: e.Temperature, Duration: e.Duration, Age: e.Age}
}

// summarize считает статистику; при пустом журнале возвращает нули
func summarize(values []float64) models.Summary {
	if len(values) == 0 {
		return models.Summary{}
	}
	data := stats.Float64Data(values)

	s := models.Summary{Count: len(values)}
	s.Mean, _ = stats.Mean(data)
	s.Median, _ = stats.Median(data)
	s.Min, _ = stats.Min(data)
	s.Max, _ = stats.Max(data)
	s.StdDev, _ = stats.StandardDeviation(data)
	return s
}
