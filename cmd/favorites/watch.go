package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"weatherapp/internal/env"
	"weatherapp/internal/favorites"
	"weatherapp/internal/service"
	"weatherapp/internal/session"
	"weatherapp/pkg/geo"
	"weatherapp/pkg/graceful"
	"weatherapp/pkg/kafkaclient"
)

const shutdownTimeout = 10 * time.Second

type watchOptions struct {
	kafka    bool
	selected string
	interval time.Duration
}

func newWatchCmd() *cobra.Command {
	var opts watchOptions
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Keep favorites in sync and refresh the forecast until interrupted",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runWatch(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().BoolVar(&opts.kafka, "kafka", false, "re-sync on bucket notifications read from Kafka")
	cmd.Flags().StringVar(&opts.selected, "select", "", "favorite (id or name) to follow instead of the device location")
	cmd.Flags().DurationVar(&opts.interval, "interval", 10*time.Minute, "forecast refresh interval")
	return cmd
}

func runWatch(parent context.Context, out io.Writer, opts watchOptions) error {
	cfg, err := env.Load()
	if err != nil {
		return err
	}
	ctx, cancel := graceful.Context(parent)
	defer cancel()

	a, err := newApp(ctx, cfg)
	if err != nil {
		return err
	}
	steps := []func(){a.close}

	updates, unsubscribe := a.sync.Subscribe()
	defer unsubscribe()
	go a.session.Watch(ctx)
	a.sync.Start(ctx)

	if opts.selected != "" {
		p, err := findPlace(a.sync.Places(), opts.selected)
		if err != nil {
			a.close()
			return err
		}
		if err := a.session.Select(p); err != nil {
			a.close()
			return err
		}
	}

	if opts.kafka {
		if a.identity == nil {
			log.Println("Remote store disabled, ignoring --kafka")
		} else {
			consumer, err := kafkaclient.NewKafkaConsumer(cfg.KafkaTopic, cfg.KafkaGroupID, cfg.KafkaBroker)
			if err != nil {
				a.close()
				return err
			}
			consumer.StartConsuming(ctx)
			steps = append([]func(){consumer.Stop}, steps...)
			go func() {
				if err := service.NewWatcher(consumer, a.identity, a.sync).Run(ctx); err != nil && ctx.Err() == nil {
					log.Printf("Change watcher stopped: %v", err)
				}
			}()
		}
	}

	ticker := time.NewTicker(opts.interval)
	defer ticker.Stop()

	var r refresher
	r.refresh(ctx, out, a)
	for {
		select {
		case <-ctx.Done():
			graceful.Shutdown(shutdownTimeout, steps...)
			return nil
		case snap := <-updates:
			printSnapshot(out, snap)
			r.refresh(ctx, out, a)
		case <-ticker.C:
			r.force = true
			r.refresh(ctx, out, a)
		}
	}
}

// refresher refetches the forecast only when the source moved: another
// favorite got selected, the selection went away, or the device position
// changed by more than the jitter tolerance.
type refresher struct {
	last     *geo.Coordinates
	selected uuid.UUID
	force    bool
}

func (r *refresher) refresh(ctx context.Context, out io.Writer, a *app) {
	coords, err := a.session.ActiveCoordinates(ctx, a.device)
	if err != nil {
		log.Printf("No forecast source: %v", err)
		return
	}

	var selected uuid.UUID
	if p, ok := a.session.Current(); ok {
		selected = p.ID
	}
	if !r.force && selected == r.selected && !session.NeedsRefresh(r.last, coords) {
		return
	}

	if err := showForecast(ctx, out, a); err != nil {
		log.Printf("Forecast failed: %v", err)
		return
	}
	r.last, r.selected, r.force = &coords, selected, false
}

func printSnapshot(w io.Writer, snap favorites.Snapshot) {
	fmt.Fprintf(w, "favorites %s (%d)\n", snap.State, len(snap.Places))
	printPlaces(w, snap.Places)
}
