package main

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"runtime"
	"sync"
	"sync/atomic"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/codewandler/postbox-go/core/actor"
	"github.com/codewandler/postbox-go/core/mailbox"
	"github.com/codewandler/postbox-go/core/system"
)

// === Config ===

type Config struct {
	Publishers  int           `env:"PUBLISHERS" envDefault:"4"`
	Subscribers int           `env:"SUBSCRIBERS" envDefault:"8"`
	Tags        int           `env:"TAGS" envDefault:"16"`
	Messages    int           `env:"N" envDefault:"200000"`
	BatchSize   int           `env:"B" envDefault:"20000"`
	PayloadSize int           `env:"PAYLOAD" envDefault:"64"`
	SlotSize    int           `env:"SLOT_SIZE" envDefault:"256"`
	Depth       int           `env:"DEPTH" envDefault:"1024"`
	Timeout     time.Duration `env:"TIMEOUT" envDefault:"60s"`
	LogLevel    slog.Level    `env:"LOG_LEVEL" envDefault:"INFO"`
}

func loadConfig() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if cfg.PayloadSize < 8 {
		cfg.PayloadSize = 8
	}
	if cfg.SlotSize < cfg.PayloadSize {
		return Config{}, fmt.Errorf("SLOT_SIZE %d < PAYLOAD %d", cfg.SlotSize, cfg.PayloadSize)
	}
	if cfg.Publishers < 1 || cfg.Subscribers < 1 || cfg.Tags < 1 || cfg.BatchSize < 1 {
		return Config{}, errors.New("PUBLISHERS, SUBSCRIBERS, TAGS and B must be positive")
	}
	return cfg, nil
}

func main() {
	cfg, err := loadConfig()
	checkErr(err)

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: cfg.LogLevel,
	}))

	fmt.Printf("Publishers:  %d\n", cfg.Publishers)
	fmt.Printf("Subscribers: %d\n", cfg.Subscribers)
	fmt.Printf("Tags:        %d\n", cfg.Tags)
	fmt.Printf("Depth:       %d x %d bytes\n", cfg.Depth, cfg.SlotSize)

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Timeout)
	defer cancel()

	sys := system.New(system.Config{
		Context: ctx,
		Log:     log,
		Actor:   system.ActorDefaults{SlotSize: cfg.SlotSize, Depth: cfg.Depth},
	})

	// === subscribers ===

	var received, corrupt atomic.Uint64
	for i := 0; i < cfg.Subscribers; i++ {
		sub, err := sys.Spawn(actor.Options{
			ID: fmt.Sprintf("sub-%d", i),
			Handler: func(msg mailbox.Message) {
				seq := binary.BigEndian.Uint64(msg.Payload)
				if msg.Tag != mailbox.Tag(seq%uint64(cfg.Tags)) {
					corrupt.Add(1)
				}
				received.Add(1)
			},
		})
		checkErr(err)
		for tag := 0; tag < cfg.Tags; tag++ {
			sub.Subscribe(mailbox.Tag(tag))
		}
	}

	// === START ===

	log.Info("==================================")
	log.Info("Starting ...")

	var (
		published atomic.Uint64
		delivered atomic.Uint64
		startAt   = time.Now()
		lastTime  = startAt
		statsMu   sync.Mutex
		router    = sys.Router()
		perPub    = cfg.Messages / cfg.Publishers
	)

	var g errgroup.Group
	for p := 0; p < cfg.Publishers; p++ {
		g.Go(func() error {
			payload := make([]byte, cfg.PayloadSize)
			for i := 0; i < perPub; i++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				seq := uint64(p*perPub + i)
				binary.BigEndian.PutUint64(payload, seq)
				n := router.Publish(mailbox.NewMessage(mailbox.Tag(seq%uint64(cfg.Tags)), payload))
				delivered.Add(uint64(n))
				if n < cfg.Subscribers {
					// let the subscribers catch up
					runtime.Gosched()
				}

				if c := published.Add(1); c%uint64(cfg.BatchSize) == 0 {
					statsMu.Lock()
					mu := getMemUsage()
					now := time.Now()
					took := now.Sub(lastTime)
					lastTime = now
					statsMu.Unlock()
					fmt.Printf(" | %7d published | %6d ms | %8d msg/s | (%d / %d) MiB mem (sys) |\n",
						c, took.Milliseconds(), int(float64(cfg.BatchSize)/took.Seconds()), mu.Alloc/1024/1024, mu.Sys/1024/1024)
				}
			}
			return nil
		})
	}
	checkErr(g.Wait())

	// wait for the subscribers to drain their mailboxes
	for received.Load() < delivered.Load() && ctx.Err() == nil {
		time.Sleep(time.Millisecond)
	}
	took := time.Since(startAt)

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	checkErr(sys.Shutdown(shutdownCtx))

	// === stats ===
	println("")
	println("==========================================")

	expected := published.Load() * uint64(cfg.Subscribers)
	fmt.Printf("total runtime:   %.3f seconds\n", took.Seconds())
	fmt.Printf("published:       %d\n", published.Load())
	fmt.Printf("delivered:       %d / %d (%.1f%%)\n", delivered.Load(), expected, 100*float64(delivered.Load())/float64(max(expected, 1)))
	fmt.Printf("handled:         %d\n", received.Load())
	fmt.Printf("corrupt:         %d\n", corrupt.Load())
	fmt.Printf("avg. handled/s:  %d\n", int(float64(received.Load())/took.Seconds()))
}

// === stats helpers ===

type MemUsage struct {
	Alloc uint64 // bytes allocated and not yet freed (heap)
	Sys   uint64 // total bytes obtained from OS
}

func getMemUsage() MemUsage {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	return MemUsage{Alloc: m.Alloc, Sys: m.Sys}
}

// === Helpers ===

func checkErr(err error) {
	if err != nil {
		panic(err)
	}
}
