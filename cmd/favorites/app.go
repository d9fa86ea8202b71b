package main

import (
	"context"
	"fmt"
	"log"
	"strings"

	"github.com/google/uuid"

	"weatherapp/internal/env"
	"weatherapp/internal/favorites"
	"weatherapp/internal/identity"
	"weatherapp/internal/models"
	"weatherapp/internal/session"
	"weatherapp/internal/storage"
	"weatherapp/internal/weather"
	"weatherapp/internal/writequeue"
	"weatherapp/pkg/location"
)

// app holds the wired collaborators for one command run.
type app struct {
	cfg env.Config

	sync    *favorites.Synchronizer
	session *session.Session
	// identity and queue are nil when favorites are local-only.
	identity *identity.Provider
	queue    *writequeue.Queue

	weather *weather.Client
	places  *location.Client
	device  *location.StaticProvider

	closers []func()
}

func newApp(ctx context.Context, cfg env.Config) (*app, error) {
	a := &app{
		cfg:     cfg,
		weather: weather.NewClient(cfg.WeatherBaseURL, cfg.HTTPTimeout),
		places:  location.NewClient(cfg.NominatimBaseURL, cfg.HTTPTimeout),
		device:  location.NewStaticProvider(cfg.Device),
	}

	cache, err := a.openCache()
	if err != nil {
		return nil, err
	}

	remote, err := a.openRemote(ctx)
	if err != nil {
		a.close()
		return nil, err
	}

	if remote == nil {
		a.sync = favorites.NewSynchronizer(cache, nil, nil, nil)
	} else {
		var b identity.Bootstrapper = identity.NewHTTPBootstrapper(cfg.IdentityEndpoint, cfg.IdentityAPIKey, cfg.HTTPTimeout)
		if cfg.IdentityPath != "" {
			b = identity.NewPersistentBootstrapper(b, cfg.IdentityPath)
		}
		a.identity = identity.NewProvider(b)

		qcfg := writequeue.DefaultConfig()
		qcfg.MaxAttempts = cfg.RemoteWriteAttempts
		a.queue = writequeue.New(qcfg)

		a.sync = favorites.NewSynchronizer(cache, remote, a.identity, a.queue)
	}
	a.session = session.New(a.sync)
	return a, nil
}

func (a *app) openCache() (favorites.LocalCache, error) {
	switch a.cfg.CacheBackend {
	case env.CacheBolt:
		c, err := storage.NewBoltCache(a.cfg.CachePath)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, func() {
			if err := c.Close(); err != nil {
				log.Printf("Closing cache: %v", err)
			}
		})
		return c, nil
	default:
		return storage.NewFileCache(a.cfg.CachePath), nil
	}
}

// openRemote returns a nil store for the local-only configuration.
func (a *app) openRemote(ctx context.Context) (favorites.RemoteStore, error) {
	switch a.cfg.RemoteBackend {
	case env.RemoteS3:
		s, err := storage.NewS3Store(ctx, a.cfg.S3)
		if err != nil {
			return nil, err
		}
		return s, nil
	case env.RemotePostgres:
		s, err := storage.NewPostgresStore(ctx, a.cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	default:
		return nil, nil
	}
}

// close drains pending remote writes before releasing the stores.
func (a *app) close() {
	if a.queue != nil {
		a.queue.Close()
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
}

// wait blocks on a background write so a short-lived command does not exit
// before it reaches the remote store. The failure is reported, not returned:
// the local change already happened.
func wait(ctx context.Context, task *writequeue.Task) {
	if task == nil {
		return
	}
	if err := task.Wait(ctx); err != nil {
		log.Printf("Remote write %s failed: %v", task.Name, err)
	}
}

// findPlace matches a favorite by id or, case-insensitively, by name.
func findPlace(places []models.Place, ref string) (models.Place, error) {
	if id, err := uuid.Parse(ref); err == nil {
		if i := models.IndexOf(places, id); i >= 0 {
			return places[i], nil
		}
	}

	var matches []models.Place
	for _, p := range places {
		if strings.EqualFold(p.Name, ref) {
			matches = append(matches, p)
		}
	}
	switch len(matches) {
	case 0:
		return models.Place{}, fmt.Errorf("no favorite matches %q", ref)
	case 1:
		return matches[0], nil
	default:
		return models.Place{}, fmt.Errorf("%d favorites are named %q, use the id", len(matches), ref)
	}
}
