package project

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ivlev/vizdeck/internal/config"
	"github.com/ivlev/vizdeck/internal/director"
	"github.com/ivlev/vizdeck/internal/engine"
	"github.com/ivlev/vizdeck/internal/script"
	"github.com/ivlev/vizdeck/internal/system"
)

// BenchmarkLog receives one line per run when stats are enabled
var BenchmarkLog = "benchmark.log"

// Presentation loads a story and plays a navigation script on the
// reference engine
type Presentation struct {
	Config   *config.Config
	Engine   *engine.SimEngine
	Director *director.Director

	clk clock.Clock
	log *zap.SugaredLogger
	out io.Writer
}

func NewPresentation(cfg *config.Config, clk clock.Clock, log *zap.SugaredLogger, out io.Writer) *Presentation {
	if clk == nil {
		clk = clock.New()
	}
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if out == nil {
		out = io.Discard
	}

	eng := engine.NewSimEngine(
		engine.WithClock(clk),
		engine.WithLogger(log.Named("engine")),
		engine.WithTick(cfg.TickInterval),
		engine.WithDefaultDuration(cfg.DefaultDuration),
	)

	return &Presentation{
		Config:   cfg,
		Engine:   eng,
		Director: director.New(eng, cfg.Queue, log.Named("director")),
		clk:      clk,
		log:      log,
		out:      &lockedWriter{w: out},
	}
}

// lockedWriter serialises console output from the engine and script goroutines
type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

// Run plays the presentation until the script ends or ctx is done
func (p *Presentation) Run(ctx context.Context) error {
	defer p.Director.Close()
	startTime := time.Now()

	story, storyPath, err := p.loadStory()
	if err != nil {
		return err
	}
	if len(story.Slides) == 0 {
		return director.ErrNoSlides
	}
	fmt.Fprintf(p.out, "[*] Используется история: %s | Слайдов: %d\n", storyPath, len(story.Slides))

	lines := p.Config.Script
	if len(lines) == 0 {
		lines = DefaultScript(len(story.Slides))
		fmt.Fprintf(p.out, "[*] Скрипт не задан, показываем все слайды по порядку\n")
	}
	cmds, err := script.Parse(lines)
	if err != nil {
		return errors.Wrap(err, "invalid script")
	}

	start := director.NormalizeSlideNumber(p.Config.StartSlide, len(story.Slides))

	off := p.Director.OnUpdate(p.printSlide())
	defer off()

	runCtx, stop := context.WithCancel(ctx)
	defer stop()
	g, gctx := errgroup.WithContext(runCtx)

	g.Go(func() error {
		return p.Engine.Run(gctx)
	})

	var conversion time.Duration
	g.Go(func() error {
		// The engine loop only ends when the script is done
		defer stop()

		convStart := time.Now()
		if err := p.Director.SetStory(gctx, story, start); err != nil {
			return errors.Wrap(err, "failed to prepare slides")
		}
		conversion = time.Since(convStart)
		fmt.Fprintf(p.out, "[*] Слайды подготовлены за %.2fs, старт со слайда %d\n", conversion.Seconds(), start+1)

		runner := script.NewRunner(p.Director, p.clk, p.log.Named("script"))
		runner.Idle = p.Engine.Idle
		runner.OnCommand = func(i int, cmd script.Command) {
			fmt.Fprintf(p.out, "[>] %d/%d: %s\n", i+1, len(cmds), cmd)
		}
		return runner.Run(gctx, cmds)
	})

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	fmt.Fprintf(p.out, "[+++] Готово! Текущий слайд: %d/%d\n", p.Director.CurrentSlide()+1, p.Director.Length())

	if p.Config.ShowStats {
		p.report(ctx, storyPath, len(story.Slides), time.Since(startTime), conversion)
	}
	return nil
}

func (p *Presentation) loadStory() (*director.Story, string, error) {
	path := p.Config.StoryPath
	if path == "" {
		latest, err := director.FindLatestStory(director.StoriesDir)
		if err != nil {
			return nil, "", errors.Wrapf(err, "no story given, put one into %s", director.StoriesDir)
		}
		path = latest
	}

	story, err := director.ReadStory(path)
	if err != nil {
		return nil, "", err
	}
	return story, path, nil
}

// printSlide reports slide changes on the console
func (p *Presentation) printSlide() func(director.State) {
	var last atomic.Int64
	last.Store(-1)
	return func(st director.State) {
		if st.Length == 0 || last.Swap(int64(st.CurrentSlide)) == int64(st.CurrentSlide) {
			return
		}
		fmt.Fprintf(p.out, "[*] Слайд %d/%d (%s)\n", st.CurrentSlide+1, st.Length, st.Direction)
	}
}

func (p *Presentation) report(ctx context.Context, storyPath string, slides int, total, conversion time.Duration) {
	usage, err := system.CollectUsage(ctx)
	if err != nil {
		fmt.Fprintf(p.out, "[!] Не удалось получить статистику процесса: %v\n", err)
	}

	r := system.Report{
		Build:      p.Config.BuildVersion,
		Story:      filepath.Base(storyPath),
		Slides:     slides,
		Animations: p.Engine.Submitted(),
		Total:      total,
		Conversion: conversion,
		Usage:      usage,
	}
	system.WriteReport(p.out, r)

	if err := system.AppendBenchmark(BenchmarkLog, r, time.Now()); err != nil {
		fmt.Fprintf(os.Stderr, "[!] Не удалось записать %s: %v\n", BenchmarkLog, err)
	}
}

// DefaultScript walks through every slide once
func DefaultScript(slides int) []string {
	lines := []string{string(script.OpSettle)}
	for i := 1; i < slides; i++ {
		lines = append(lines, string(script.OpNext), string(script.OpSettle))
	}
	return lines
}
