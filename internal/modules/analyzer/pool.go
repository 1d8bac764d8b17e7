package analyzer

import (
	"sync"

	"github.com/aristath/riskpulse/internal/domain"
)

// workerPool fans assets out to a fixed number of goroutines.
type workerPool struct {
	numWorkers int
}

func newWorkerPool(numWorkers int) *workerPool {
	if numWorkers <= 0 {
		numWorkers = DefaultConcurrency
	}
	return &workerPool{numWorkers: numWorkers}
}

type jobItem struct {
	index int
	asset domain.AssetConfig
}

type resultItem struct {
	index  int
	report domain.RiskReport
}

// run applies fn to every asset and returns the reports in input order.
func (wp *workerPool) run(assets []domain.AssetConfig, fn func(domain.AssetConfig) domain.RiskReport) []domain.RiskReport {
	numAssets := len(assets)
	if numAssets == 0 {
		return []domain.RiskReport{}
	}

	jobs := make(chan jobItem, numAssets)
	results := make(chan resultItem, numAssets)

	var wg sync.WaitGroup
	numActualWorkers := wp.numWorkers
	if numAssets < numActualWorkers {
		numActualWorkers = numAssets
	}

	for i := 0; i < numActualWorkers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for job := range jobs {
				results <- resultItem{index: job.index, report: fn(job.asset)}
			}
		}()
	}

	for idx, asset := range assets {
		jobs <- jobItem{index: idx, asset: asset}
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	reports := make([]domain.RiskReport, numAssets)
	for result := range results {
		reports[result.index] = result.report
	}
	return reports
}
