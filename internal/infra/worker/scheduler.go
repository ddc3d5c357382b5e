package worker

import (
	"context"
	"log"
	"sync"
	"time"
)

// Job é uma tarefa periódica declarada no boot (sync Asaas, retry de webhooks, campanhas...).
type Job struct {
	Name     string
	Interval time.Duration
	Run      func(ctx context.Context) error
}

type Scheduler struct {
	jobs []Job
	wg   sync.WaitGroup
}

func NewScheduler() *Scheduler {
	return &Scheduler{}
}

func (s *Scheduler) Register(name string, interval time.Duration, run func(ctx context.Context) error) {
	s.jobs = append(s.jobs, Job{Name: name, Interval: interval, Run: run})
}

func (s *Scheduler) Jobs() []Job {
	return s.jobs
}

// Start sobe um ticker por job; cada job roda uma vez no boot e depois a cada intervalo.
func (s *Scheduler) Start(ctx context.Context) {
	for _, job := range s.jobs {
		s.wg.Add(1)
		go func(job Job) {
			defer s.wg.Done()
			runTicker(ctx, job)
		}(job)
	}
}

// Wait bloqueia até todos os jobs saírem após o cancelamento do contexto.
func (s *Scheduler) Wait() {
	s.wg.Wait()
}

func runTicker(ctx context.Context, job Job) {
	log.Printf("🕒 Job %s iniciado (a cada %s)", job.Name, job.Interval)

	ticker := time.NewTicker(job.Interval)
	defer ticker.Stop()

	runOnce(ctx, job)

	for {
		select {
		case <-ctx.Done():
			log.Printf("⚠️ Job %s encerrado", job.Name)
			return
		case <-ticker.C:
			runOnce(ctx, job)
		}
	}
}

func runOnce(ctx context.Context, job Job) {
	start := time.Now()
	if err := job.Run(ctx); err != nil {
		log.Printf("❌ Job %s falhou: %v", job.Name, err)
		return
	}
	log.Printf("✅ Job %s concluído em %s", job.Name, time.Since(start).Round(time.Millisecond))
}
