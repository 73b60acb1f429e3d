package main

import (
	"bytes"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"go.uber.org/zap"

	"github.com/rawbytedev/bincast"
	"github.com/rawbytedev/bincast/pkg/compactwire"
)

func main() {
	cfg := bincast.Config{}
	if path := os.Getenv("BINCAST_CONFIG"); path != "" {
		c, err := bincast.LoadConfig(path)
		if err != nil {
			panic(err)
		}
		cfg = c
	}
	logger, err := cfg.Logger()
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	bincast.SetLogger(logger)

	go func() {
		logger.Info("pprof listening", zap.Error(http.ListenAndServe("localhost:6060", nil)))
	}()
	f, err := os.Create("mem.prof")
	if err != nil {
		logger.Fatal("create profile", zap.Error(err))
	}
	defer f.Close()
	runtime.MemProfileRate = 1

	type NewStruct struct {
		Val      []string
		Mod      []int8
		Integers []int16
		Float3   []float32
		Float6   []float64
	}
	Val := []string{"azerty", "hello", "world", "random"}
	z := NewStruct{Val: Val,
		Mod: []int8{12, 10, 13, 0}, Integers: []int16{100, 250, 300},
		Float3: []float32{12.13, 16.23, 75.1}, Float6: []float64{100.5, 165.63, 153.5}}
	opts, err := cfg.Options()
	if err != nil {
		logger.Fatal("config", zap.Error(err))
	}
	y := bincast.NewEngine(opts...)
	frame := compactwire.DataFrame{Flags: compactwire.FlagFinal}

	start := time.Now()
	var stream bytes.Buffer
	w := compactwire.NewWriter(&stream)
	for i := 0; i < 10000; i++ {
		data, err := y.Marshal(z)
		if err != nil {
			logger.Fatal("marshal", zap.Error(err))
		}
		res := &NewStruct{}
		if err := y.Unmarshal(data, res); err != nil {
			logger.Fatal("unmarshal", zap.Error(err))
		}
		frame.Payload = data
		if _, err := w.Write(frame); err != nil {
			logger.Fatal("write frame", zap.Error(err))
		}
	}
	r := compactwire.NewReader(&stream)
	frames := 0
	for {
		if _, err := r.Next(); err != nil {
			break
		}
		frames++
	}
	logger.Info("loop done", zap.Int("frames", frames), zap.Duration("took", time.Since(start)))

	pprof.WriteHeapProfile(f)
	time.Sleep(5 * time.Minute)
}
