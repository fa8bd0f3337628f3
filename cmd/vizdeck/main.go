package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"go.uber.org/zap"

	"github.com/ivlev/vizdeck/internal/config"
	"github.com/ivlev/vizdeck/internal/director"
	"github.com/ivlev/vizdeck/internal/project"
	"github.com/ivlev/vizdeck/internal/system"
)

// Set with -ldflags "-X main.buildVersion=..."
var buildVersion = "dev"

func main() {
	// Создаем нужные директории, если их нет
	if err := system.EnsureDirs(director.StoriesDir); err != nil {
		log.Printf("[!] %v", err)
	}

	configPtr := flag.String("config", "", "Путь к YAML-конфигу (флаги ниже имеют приоритет)")
	storyPtr := flag.String("story", "", "Путь к истории (по умолчанию: самый свежий файл в input/stories/)")
	startPtr := flag.Int("start", 0, "Номер стартового слайда (с 1, отрицательный считается с конца)")
	scriptPtr := flag.String("script", "", "Команды через запятую: next,prev,start,end,goto:N,pause,resume,reverse,seek:P,scrub:P,release,abort,wait:1s,settle")
	tickPtr := flag.Duration("tick", 0, "Шаг движка (по умолчанию 16ms)")
	durationPtr := flag.Duration("duration", 0, "Длительность шага анимации без явных опций (по умолчанию 1s)")
	speedUpPtr := flag.Duration("speed-up", 0, "Длительность ускоренного шага при очереди запросов (по умолчанию 500ms)")
	policyPtr := flag.String("on-activation-error", "", "Что делать при ошибке запуска анимации: halt, advance")
	statsPtr := flag.Bool("stats", false, "Показать отчет о производительности и записать benchmark.log")
	debugPtr := flag.Bool("debug", false, "Подробный лог")

	flag.Parse()

	cfg := config.Default()
	if *configPtr != "" {
		loaded, err := config.Load(*configPtr)
		if err != nil {
			log.Fatalf("[-] Ошибка конфигурации: %v", err)
		}
		cfg = loaded
		fmt.Printf("[*] Загружен конфиг: %s\n", *configPtr)
	}

	// Явно заданные флаги перекрывают конфиг
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "story":
			cfg.StoryPath = *storyPtr
		case "start":
			cfg.StartSlide = *startPtr
		case "script":
			cfg.Script = splitScript(*scriptPtr)
		case "tick":
			cfg.TickInterval = *tickPtr
		case "duration":
			cfg.DefaultDuration = *durationPtr
		case "speed-up":
			cfg.Queue.SpeedUpDuration = *speedUpPtr
		case "on-activation-error":
			cfg.Queue.OnActivationError = *policyPtr
		case "debug":
			cfg.Debug = *debugPtr
		}
	})
	cfg.ShowStats = *statsPtr
	cfg.BuildVersion = buildVersion

	if err := cfg.Validate(); err != nil {
		log.Fatalf("[-] Ошибка конфигурации: %v", err)
	}

	logger, err := newLogger(cfg.Debug)
	if err != nil {
		log.Fatalf("[-] Ошибка инициализации логгера: %v", err)
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	p := project.NewPresentation(cfg, nil, logger.Sugar(), os.Stdout)
	if err := p.Run(ctx); err != nil {
		log.Fatalf("[-] Ошибка проекта: %v", err)
	}
}

func newLogger(debug bool) (*zap.Logger, error) {
	if debug {
		return zap.NewDevelopment()
	}
	zcfg := zap.NewProductionConfig()
	zcfg.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	zcfg.Encoding = "console"
	return zcfg.Build()
}

func splitScript(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
