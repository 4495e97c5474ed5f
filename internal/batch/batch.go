// Package batch plays many scenes headless at once. Every job owns its own
// host, world and clock, so jobs share nothing but the logger.
package batch

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/san-kum/scenelab/internal/sandbox"
	"github.com/san-kum/scenelab/internal/scene"
	"github.com/san-kum/scenelab/internal/telemetry"
	"github.com/san-kum/scenelab/internal/viewport"
)

// Job is one scene to play. Seed drives the job's spawns and interaction
// randomness.
type Job struct {
	Snapshot scene.Snapshot
	Seed     int64
}

type Result struct {
	Job     Job
	Frames  []telemetry.Frame
	Metrics map[string]float64
	Steps   int
	Bodies  int
	Removed int
	Elapsed time.Duration
}

// buildMu serialises session construction; only stepping runs in parallel.
var buildMu sync.Mutex

// Ensemble runs jobs on a bounded number of workers.
type Ensemble struct {
	Width, Height float64
	Frames        int
	FrameDur      time.Duration
	// Workers caps concurrent jobs; zero uses GOMAXPROCS.
	Workers int
	// Options builds the session options for one job. The returned options
	// must not share a *rand.Rand with other jobs.
	Options func(job Job, rng *rand.Rand) sandbox.Options
}

// Jobs turns every scene in the store into a job, seeded from base.
func Jobs(store *scene.Store, base int64) []Job {
	scenes := store.Scenes()
	jobs := make([]Job, len(scenes))
	for i, sc := range scenes {
		jobs[i] = Job{Snapshot: sc.Snapshot(), Seed: base + int64(i)}
	}
	return jobs
}

// Run plays every job and returns results in job order. The first failing
// job cancels the rest.
func (e *Ensemble) Run(ctx context.Context, jobs []Job) ([]Result, error) {
	if e.Frames < 0 {
		return nil, fmt.Errorf("batch: frames must be non-negative, got %d", e.Frames)
	}
	workers := e.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	results := make([]Result, len(jobs))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i, job := range jobs {
		i, job := i, job
		g.Go(func() error {
			res, err := e.play(ctx, job)
			if err != nil {
				return fmt.Errorf("batch: scene %d (%s): %w", job.Snapshot.ID, job.Snapshot.Name, err)
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func (e *Ensemble) play(ctx context.Context, job Job) (Result, error) {
	started := time.Now()
	rng := rand.New(rand.NewSource(job.Seed))
	var opts sandbox.Options
	if e.Options != nil {
		opts = e.Options(job, rng)
	}
	frameDur := e.FrameDur
	if frameDur <= 0 {
		frameDur = time.Second / 60
	}

	host := viewport.NewHost(e.Width, e.Height)
	buildMu.Lock()
	s, err := sandbox.Activate(host, job.Snapshot, opts)
	buildMu.Unlock()
	if err != nil {
		return Result{}, err
	}
	defer func() {
		buildMu.Lock()
		s.Close()
		buildMu.Unlock()
	}()
	s.Clock().Start()

	rec := telemetry.NewRecorder(0, telemetry.DefaultMetrics()...)
	rec.Observe(s.World(), 0, 0)
	err = s.Run(ctx, e.Frames, frameDur, func(frame int) error {
		rec.Observe(s.World(), frame+1, float64(s.Clock().Steps())*s.Clock().Dt())
		return nil
	})
	if err != nil {
		return Result{}, err
	}
	return Result{
		Job:     job,
		Frames:  rec.Frames(),
		Metrics: rec.Metrics(),
		Steps:   s.Clock().Steps(),
		Bodies:  s.World().Count(),
		Removed: s.Removed(),
		Elapsed: time.Since(started),
	}, nil
}
