// Command feedgen publishes a random order flow to the feed topic.
package main

import (
	"context"
	"flag"
	"fmt"
	"math/rand"
	"os"
	"os/signal"
	"strings"
	"time"

	"go.uber.org/zap"

	"matchcore/domain/event"
	"matchcore/domain/orderbook"
	"matchcore/infra/kafka"
	"matchcore/infra/logging"
)

func main() {
	brokers := flag.String("brokers", "localhost:9092", "comma separated kafka brokers")
	topic := flag.String("topic", "matchcore.feed", "feed topic")
	symbol := flag.String("symbol", "DEMO", "message key")
	total := flag.Int("orders", 10000, "number of events to publish")
	batch := flag.Int("batch", 100, "events per write")
	mid := flag.Float64("mid", 100, "mid price")
	levels := flag.Int("levels", 20, "price levels on each side of mid")
	tick := flag.Float64("tick", 0.01, "price increment")
	cancelEvery := flag.Int("cancel-every", 5, "cancel a random earlier order every N events, 0 disables")
	marketEvery := flag.Int("market-every", 20, "send a market order every N events, 0 disables")
	seed := flag.Int64("seed", time.Now().UnixNano(), "random seed")
	flag.Parse()

	log, err := logging.New("info", true)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	p := kafka.NewProducer(strings.Split(*brokers, ","), *topic, *symbol)
	defer p.Close()

	g := generator{
		rng:         rand.New(rand.NewSource(*seed)),
		mid:         *mid,
		levels:      *levels,
		tick:        *tick,
		cancelEvery: *cancelEvery,
		marketEvery: *marketEvery,
	}

	start := time.Now()
	sent := 0
	buf := make([]event.Event, 0, *batch)
	for sent < *total && ctx.Err() == nil {
		buf = buf[:0]
		for len(buf) < *batch && sent+len(buf) < *total {
			buf = append(buf, g.nextEvent())
		}
		if err := p.Send(ctx, buf...); err != nil {
			log.Error("publish failed", zap.Int("sent", sent), zap.Error(err))
			return
		}
		sent += len(buf)
	}

	elapsed := time.Since(start)
	log.Info("feed published",
		zap.Int("events", sent),
		zap.Duration("elapsed", elapsed),
		zap.Float64("events_per_sec", float64(sent)/elapsed.Seconds()),
	)
}

type generator struct {
	rng         *rand.Rand
	mid         float64
	levels      int
	tick        float64
	cancelEvery int
	marketEvery int

	n      int
	lastID uint64
}

func (g *generator) nextEvent() event.Event {
	g.n++
	if g.cancelEvery > 0 && g.n%g.cancelEvery == 0 && g.lastID > 0 {
		return event.CancelOrder{ID: 1 + uint64(g.rng.Int63n(int64(g.lastID)))}
	}

	g.lastID++
	side := orderbook.Buy
	if g.rng.Intn(2) == 1 {
		side = orderbook.Sell
	}
	qty := uint64(1 + g.rng.Intn(10))
	if g.marketEvery > 0 && g.n%g.marketEvery == 0 {
		return event.MarketOrder{ID: g.lastID, Side: side, Qty: qty}
	}

	offset := float64(1+g.rng.Intn(g.levels)) * g.tick
	px := g.mid - offset
	if side == orderbook.Sell {
		px = g.mid + offset
	}
	// occasionally cross the spread
	if g.rng.Intn(10) == 0 {
		px = g.mid*2 - px
	}
	return event.NewOrder{ID: g.lastID, Side: side, Price: px, Qty: qty}
}
