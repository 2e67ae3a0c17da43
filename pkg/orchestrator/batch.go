package orchestrator

import (
	"context"
	"sync"

	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/analyzer"
	"github.com/mehdi-lakhzouri/kanban-criticality-agent/pkg/models"
)

// analyzedCard pairs one queued card with its Analyzer verdict.
type analyzedCard struct {
	index  int
	queued queuedCard
	result analyzer.Result
}

// queueChunk is a contiguous slice of queue plus its starting offset,
// so a worker goroutine can write its verdicts straight into the
// pre-sized out slice without a shared counter or lock.
type queueChunk struct {
	start int
	items []queuedCard
}

// analyzeQueue splits queue into fixed-size groups (spec.md §4.1 step 3,
// §6.3 ANALYSIS_BATCH_SIZE) and runs up to ConcurrentBatches groups
// concurrently through a bounded semaphore, the same small worker-pool
// idiom the teacher's pkg/indexer/pipeline uses for concurrent steps
// (spec.md §5: "a small worker pool (recommended: 2-4 concurrent
// in-flight batches) bounds external concurrency").
func (o *Orchestrator) analyzeQueue(ctx context.Context, queue []queuedCard) []analyzedCard {
	if len(queue) == 0 {
		return nil
	}

	chunks := chunkQueue(queue, o.batchSize())
	out := make([]analyzedCard, len(queue))

	sem := make(chan struct{}, o.concurrentBatches())
	var wg sync.WaitGroup

	for _, chunk := range chunks {
		chunk := chunk
		wg.Add(1)
		sem <- struct{}{}
		go func() {
			defer wg.Done()
			defer func() { <-sem }()

			payloads := make([]models.CardPayload, len(chunk.items))
			for i, q := range chunk.items {
				payloads[i] = q.payload
			}

			results := o.analyzer.AnalyzeBatch(ctx, payloads)
			for i, q := range chunk.items {
				r := analyzer.Result{CardID: q.payload.ID, CardName: q.payload.Name, Level: analyzer.LevelLow, Success: false, Error: "missing from batch result"}
				if i < len(results) {
					r = results[i]
				}
				out[chunk.start+i] = analyzedCard{index: q.index, queued: q, result: r}
			}
		}()
	}

	wg.Wait()
	return out
}

func chunkQueue(queue []queuedCard, size int) []queueChunk {
	if size <= 0 {
		size = defaultBatchSize
	}
	var chunks []queueChunk
	for start := 0; start < len(queue); start += size {
		end := start + size
		if end > len(queue) {
			end = len(queue)
		}
		chunks = append(chunks, queueChunk{start: start, items: queue[start:end]})
	}
	return chunks
}
