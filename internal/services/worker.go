package services

import (
	"context"
	"log"
	"sync"
)

// Worker runs stage jobs off a queue so HTTP handlers can return immediately
// and clients poll session state.
type Worker interface {
	Start(ctx context.Context)
	Stop()
	Enqueue(job *StageJob) bool
}

type worker struct {
	orchestrator OrchestratorService
	jobQueue     chan *StageJob
	concurrency  int
	wg           sync.WaitGroup
	stopChan     chan struct{}
}

func NewWorker(orchestrator OrchestratorService, concurrency int) Worker {
	return &worker{
		orchestrator: orchestrator,
		jobQueue:     make(chan *StageJob, 100),
		concurrency:  concurrency,
		stopChan:     make(chan struct{}),
	}
}

// Start implements Worker.
func (w *worker) Start(ctx context.Context) {
	log.Printf("🚀 Starting worker with %d concurrent workers", w.concurrency)

	for i := 0; i < w.concurrency; i++ {
		w.wg.Add(1)
		go w.processJobs(ctx, i+1)
	}
}

// Stop implements Worker.
func (w *worker) Stop() {
	log.Println("🛑 Stopping worker...")
	close(w.stopChan)
	w.wg.Wait()
	log.Println("✅ Worker stopped")
}

// Enqueue implements Worker. It reports false when the queue is full or the
// worker is shutting down; the stage stays running and the caller decides
// how to surface it.
func (w *worker) Enqueue(job *StageJob) bool {
	select {
	case w.jobQueue <- job:
		log.Printf("📥 Stage %s enqueued for session %s", job.Stage, job.SessionID)
		return true
	case <-w.stopChan:
		log.Printf("⚠️  Worker stopped, cannot enqueue stage %s for session %s", job.Stage, job.SessionID)
		return false
	default:
		log.Printf("⚠️  Job queue full, rejecting stage %s for session %s", job.Stage, job.SessionID)
		return false
	}
}

func (w *worker) processJobs(ctx context.Context, workerID int) {
	defer w.wg.Done()
	log.Printf("👷 Worker #%d started", workerID)

	for {
		select {
		case <-w.stopChan:
			log.Printf("👷 Worker #%d stopped", workerID)
			return
		case job := <-w.jobQueue:
			log.Printf("👷 Worker #%d processing stage %s for session %s", workerID, job.Stage, job.SessionID)
			if err := w.orchestrator.Execute(ctx, job); err != nil {
				log.Printf("❌ Worker #%d: %v", workerID, err)
			}
		}
	}
}
