// Command cloudsim runs a cloud/star/supernova particle simulation.
package main

import (
	"flag"
	"fmt"
	"os"
	"sync"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/quillaja/cloudsim/internal/archive"
	"github.com/quillaja/cloudsim/internal/config"
	"github.com/quillaja/cloudsim/internal/engine"
	"github.com/quillaja/cloudsim/internal/errs"
	"github.com/quillaja/cloudsim/internal/logging"
	"github.com/quillaja/cloudsim/internal/pip"
	"github.com/quillaja/cloudsim/internal/registry"
	"github.com/quillaja/cloudsim/internal/render"
	"github.com/quillaja/cloudsim/internal/sim"
	"github.com/quillaja/cloudsim/internal/stream"
)

type options struct {
	config    string
	clouds    int
	steps     int
	dt        float64
	seed      int64
	every     int
	state     string
	save      string
	db        string
	chunks    string
	chunkSize int
	img       string
	logLevel  string
	logJSON   bool
}

func main() {
	var opt options
	flag.StringVar(&opt.config, "config", "", "gcfg configuration file")
	flag.IntVar(&opt.clouds, "n", 1000, "number of clouds to seed")
	flag.IntVar(&opt.steps, "steps", 100, "number of steps to simulate")
	flag.Float64Var(&opt.dt, "dt", 1e-3, "step length in code units")
	flag.Int64Var(&opt.seed, "seed", 1, "random seed")
	flag.IntVar(&opt.every, "every", 1, "steps per recorded frame")
	flag.StringVar(&opt.state, "state", "", "particle stream to start from instead of seeding")
	flag.StringVar(&opt.save, "save", "", "write the final state as a particle stream")
	flag.StringVar(&opt.db, "db", "", "sqlite frame archive to create")
	flag.StringVar(&opt.chunks, "chunks", "", "directory for compressed frame chunks")
	flag.IntVar(&opt.chunkSize, "chunksize", 48, "frames per chunk")
	flag.StringVar(&opt.img, "img", "", "directory for rendered frames")
	flag.StringVar(&opt.logLevel, "log", "info", "log level")
	flag.BoolVar(&opt.logJSON, "json", false, "log as JSON")
	flag.Parse()

	log := logging.New(os.Stderr, opt.logLevel)
	if opt.logJSON {
		log = logging.JSON(os.Stderr, opt.logLevel)
	}
	if err := run(opt, log); err != nil {
		log.Fatal().Err(err).Msg("cloudsim")
	}
}

func run(opt options, log zerolog.Logger) error {
	if opt.steps < 0 || opt.dt <= 0 || opt.every <= 0 {
		return fmt.Errorf("steps %d dt %g every %d: %w", opt.steps, opt.dt, opt.every, errs.ErrInvalidArgument)
	}
	cfg := config.Default()
	if opt.config != "" {
		var err error
		if cfg, err = config.ReadFile(opt.config); err != nil {
			return err
		}
	}

	reg := registry.New()
	if _, err := pip.RegisterStandard(reg); err != nil {
		return err
	}
	session := sim.NewSession(reg, opt.seed)
	s, err := session.NewSimulation("main")
	if err != nil {
		return err
	}
	eng := engine.New(s, cfg, log)

	if opt.state != "" {
		if err := load(s, opt.state, cfg.IO.Platform); err != nil {
			return err
		}
		log.Info().Str("state", opt.state).Int("particles", s.Len()).Msg("loaded")
	} else if _, err := eng.Seed(seeding(opt.clouds)); err != nil {
		return err
	}

	rec, err := newRecorder(opt, log)
	if err != nil {
		return err
	}
	runID := uuid.New()
	log.Info().
		Stringer("run", runID).
		Int("particles", s.Len()).
		Int("steps", opt.steps).
		Float64("dt", opt.dt).
		Str("root", cfg.Tree.Root.String()).
		Float64("theta", cfg.Tree.Theta).
		Msg("starting")

	start := time.Now()
	for step := 0; step < opt.steps; step++ {
		if step%opt.every == 0 {
			rec.frames <- archive.Capture(s, runID, step)
		}
		if _, err := eng.Step(opt.dt); err != nil {
			rec.close()
			return fmt.Errorf("step %d: %w", step+1, err)
		}
		if problems := s.Scan(); len(problems) > 0 {
			for _, p := range problems {
				log.Warn().Int("particle", p.Index).Str("reason", p.Reason).Msg("scan")
			}
		}
	}
	rec.frames <- archive.Capture(s, runID, opt.steps)
	if err := rec.close(); err != nil {
		return err
	}
	log.Info().Dur("took", time.Since(start).Truncate(time.Millisecond)).Int("particles", s.Len()).Msg("done")

	if opt.save != "" {
		return save(s, opt.save, cfg.IO.Platform)
	}
	return nil
}

// seeding places the clouds in two rotating groups about massive cores.
func seeding(clouds int) engine.Seeding {
	return engine.Seeding{
		Clouds:    clouds,
		MeanMass:  0.05,
		Spread:    1,
		CloudType: pip.CloudName,
		CoreType:  "star",
		Cores: []engine.Core{
			{Mass: 10, Pos: mgl64.Vec3{-3, -0.1, -0.7}, Vel: mgl64.Vec3{0.04, 0, -0.01}, Axis: mgl64.Vec3{0, 1, 0}},
			{Mass: 10, Pos: mgl64.Vec3{3, 0.1, 0.7}, Vel: mgl64.Vec3{-0.03, 0, 0.02}, Axis: mgl64.Vec3{0, 0, -1}},
		},
	}
}

func load(s *sim.Simulation, name, platform string) error {
	file, err := os.Open(name)
	if err != nil {
		return err
	}
	defer file.Close()
	_, err = stream.Read(file, s, platform)
	return err
}

func save(s *sim.Simulation, name, platform string) error {
	file, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := stream.Write(file, s.Registry(), s.Particles(), platform); err != nil {
		file.Close()
		os.Remove(name)
		return err
	}
	return file.Close()
}

// recorder drains captured frames into the configured sinks on its own
// goroutine so the simulation does not wait on disk.
type recorder struct {
	frames chan archive.Frame
	wg     sync.WaitGroup
	err    error

	db      *archive.DB
	chunker *archive.Chunker
	img     string
	render  *render.Renderer
	log     zerolog.Logger
}

func newRecorder(opt options, log zerolog.Logger) (*recorder, error) {
	rec := &recorder{frames: make(chan archive.Frame, 32), img: opt.img, log: log}
	var err error
	if opt.db != "" {
		if rec.db, err = archive.Create(opt.db); err != nil {
			return nil, err
		}
	}
	if opt.chunks != "" {
		if rec.chunker, err = archive.NewChunker(opt.chunks, opt.chunkSize); err != nil {
			return nil, err
		}
	}
	if opt.img != "" {
		if err := os.MkdirAll(opt.img, 0755); err != nil {
			return nil, err
		}
		rec.render = render.New(render.DefaultCamera(20), 8)
	}
	rec.wg.Add(1)
	go rec.loop()
	return rec, nil
}

func (rec *recorder) loop() {
	defer rec.wg.Done()
	for f := range rec.frames {
		if rec.err != nil {
			continue // drain
		}
		rec.err = rec.record(f)
	}
}

func (rec *recorder) record(f archive.Frame) error {
	if rec.db != nil {
		if err := rec.db.WriteFrame(f); err != nil {
			return err
		}
	}
	if rec.chunker != nil {
		if err := rec.chunker.Add(f); err != nil {
			return err
		}
	}
	if rec.render != nil {
		if _, err := rec.render.WriteFile(rec.img, f); err != nil {
			return err
		}
	}
	rec.log.Debug().Int("frame", f.Frame).Int("bodies", len(f.Bodies)).Msg("recorded")
	return nil
}

// close waits for pending frames and finalizes the sinks.
func (rec *recorder) close() error {
	close(rec.frames)
	rec.wg.Wait()
	err := rec.err
	if rec.chunker != nil && err == nil {
		err = rec.chunker.Flush()
	}
	if rec.db != nil {
		if err == nil {
			err = rec.db.CreateIndices()
		}
		if cerr := rec.db.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
