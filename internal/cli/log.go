package cli

import (
	"context"
	"io"
	"time"

	"github.com/charmbracelet/log"
)

// progressEvery is how many batches generate writes between progress lines.
const progressEvery = 10

// newLogger returns a logger writing to w at level, with "HH:MM:SS.ms"
// timestamps.
func newLogger(w io.Writer, level log.Level) *log.Logger {
	return log.NewWithOptions(w, log.Options{
		ReportTimestamp: true,
		TimeFormat:      "15:04:05.00",
		Level:           level,
	})
}

// progress tracks batch throughput over a run. It is not safe for
// concurrent use; the runner invokes its callback from one goroutine.
type progress struct {
	logger  *log.Logger
	start   time.Time
	every   int64
	batches int64
	blends  int64
}

// newProgress starts a tracker that logs every n batches. n <= 0 logs only
// at done.
func newProgress(l *log.Logger, n int64) *progress {
	return &progress{logger: l, start: time.Now(), every: n}
}

// step records one batch of blends.
func (p *progress) step(blends int) {
	p.batches++
	p.blends += int64(blends)
	if p.every > 0 && p.batches%p.every == 0 {
		p.logger.Info("progress", "batches", p.batches, "blends", p.blends, "rate", p.rateString())
	}
}

// rate returns blends per second since the tracker started.
func (p *progress) rate() float64 {
	elapsed := time.Since(p.start).Seconds()
	if elapsed <= 0 {
		return 0
	}
	return float64(p.blends) / elapsed
}

func (p *progress) rateString() string {
	return formatRate(p.rate())
}

// done logs msg with the elapsed time and throughput, e.g.
// "Generated batches (1.234s, 81.0 blends/s)".
func (p *progress) done(msg string) {
	p.logger.Infof("%s (%s, %s)", msg, time.Since(p.start).Round(time.Millisecond), p.rateString())
}

type ctxKey int

const loggerKey ctxKey = 0

// withLogger attaches l to ctx.
func withLogger(ctx context.Context, l *log.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, l)
}

// loggerFromContext returns the logger attached to ctx, or log.Default().
func loggerFromContext(ctx context.Context) *log.Logger {
	if l, ok := ctx.Value(loggerKey).(*log.Logger); ok {
		return l
	}
	return log.Default()
}
