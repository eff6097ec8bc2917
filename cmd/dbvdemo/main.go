package main

import (
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand"
	"os"

	"github.com/arborwave/dbv/dbv"
	"gopkg.in/yaml.v3"
)

// demoConfig mirrors dbv.Options in a form the YAML decoder can target.
type demoConfig struct {
	Capacity uint64 `yaml:"capacity"`
}

func defaultConfig() demoConfig {
	return demoConfig{Capacity: 10000}
}

// loadConfig reads the YAML configuration file using strict parsing. An
// empty path returns the defaults unmodified.
func loadConfig(path string) (demoConfig, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to open config: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	decoder.KnownFields(true)
	if err := decoder.Decode(&cfg); err != nil {
		return cfg, fmt.Errorf("YAML syntax error in config: %w", err)
	}
	return cfg, nil
}

func main() {
	configPath := flag.String("config", "", "path to a YAML config file (optional)")
	seed := flag.Int64("seed", 1, "seed for the random insertion schedule")
	inserts := flag.Int("inserts", 2000, "number of random bits to insert after the fixed scenarios")
	flag.Parse()

	cfg, err := loadConfig(*configPath)
	if err != nil {
		log.Fatalf("cannot load config: %v", err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))

	t, err := dbv.New(dbv.Options{Capacity: cfg.Capacity, Logger: logger})
	if err != nil {
		log.Fatalf("cannot construct tree: %v", err)
	}

	// Scenario: alternating bits.
	for i := uint64(0); i < 1000 && !t.Full(); i++ {
		if err := t.Insert(t.Size(), i%2); err != nil {
			log.Fatalf("insert failed: %v", err)
		}
	}
	fmt.Printf("after alternating-bit scenario: %+v\n", t.Stats())

	// Scenario: always insert ones at the front.
	for i := 0; i < 500 && !t.Full(); i++ {
		if err := t.Insert(0, 1); err != nil {
			log.Fatalf("insert failed: %v", err)
		}
	}
	fmt.Printf("after head-insert scenario: %+v\n", t.Stats())

	// Scenario: random insertion schedule.
	r := rand.New(rand.NewSource(*seed))
	for i := 0; i < *inserts && !t.Full(); i++ {
		idx := uint64(r.Int63n(int64(t.Size() + 1)))
		bit := uint64(r.Int63n(2))
		if err := t.Insert(idx, bit); err != nil {
			log.Fatalf("insert failed: %v", err)
		}
	}
	fmt.Printf("after random schedule: %+v\n", t.Stats())

	ones := uint64(0)
	for i := uint64(0); i < t.Size(); i++ {
		b, err := t.Access(i)
		if err != nil {
			log.Fatalf("access failed: %v", err)
		}
		ones += b
	}
	if ones != t.Rank() {
		log.Fatalf("rank mismatch: counted %d ones, Rank() reports %d", ones, t.Rank())
	}
	fmt.Printf("verified: %d ones out of %d bits, matches Rank()\n", ones, t.Size())
}
