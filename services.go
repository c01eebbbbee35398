package main

import (
	"context"
	"fmt"

	"sjsage522/shopcollagebot/config"
	"sjsage522/shopcollagebot/internal"
	"sjsage522/shopcollagebot/internal/catalog"
	"sjsage522/shopcollagebot/internal/collage"
	"sjsage522/shopcollagebot/internal/crawler"
	"sjsage522/shopcollagebot/internal/dispatch"
	"sjsage522/shopcollagebot/logger"
	"sjsage522/shopcollagebot/services/discord"
	"sjsage522/shopcollagebot/services/lock"
	"sjsage522/shopcollagebot/services/publisher"
	"sjsage522/shopcollagebot/services/telegram"
)

const lockKey = "shopbot:pass"

// listenFunc runs a command listener until its context is done
type listenFunc func(ctx context.Context, pass func(ctx context.Context) error) error

// Services holds all the initialized services
type Services struct {
	Deps   internal.Dependencies
	Runner *dispatch.Runner
	Listen listenFunc

	closers []func() error
}

// Cleanup cleans up all services
func (s *Services) Cleanup() {
	log := logger.Default
	for _, closeFn := range s.closers {
		if err := closeFn(); err != nil {
			log.Warn().Err(err).Msg("Failed to close service")
		}
	}
}

// initializeServices wires the storefront, collage builder, catalog and pass
// lock around pub. A nil pub selects the configured messaging platform.
func initializeServices(cfg *config.Config, pub publisher.Publisher) (*Services, error) {
	services := &Services{}
	log := logger.Default

	if pub == nil {
		primary, listen, err := newPlatform(cfg)
		if err != nil {
			return nil, err
		}
		services.Listen = listen
		pub = primary

		if cfg.RedisMirrorStream != "" {
			mirror := publisher.NewRedisPublisher(cfg.RedisAddr, cfg.RedisDB, cfg.RedisMirrorStream, cfg.RedisStreamMaxLength)
			pub = publisher.NewFanout(primary, mirror)
			log.Info().
				Str("addr", cfg.RedisAddr).
				Int("db", cfg.RedisDB).
				Str("stream", cfg.RedisMirrorStream).
				Msg("Mirroring posts to Redis stream")
		}
	}
	services.closers = append(services.closers, pub.Close)

	cat := catalog.Default()
	if cfg.PriceCatalogFile != "" {
		loaded, err := catalog.Load(cfg.PriceCatalogFile)
		if err != nil {
			return nil, err
		}
		cat = loaded
		log.Info().Str("file", cfg.PriceCatalogFile).Int("entries", len(cat.Entries)).Msg("Loaded price catalog")
	}

	locker, closeLocker, err := newLocker(cfg)
	if err != nil {
		return nil, err
	}
	if closeLocker != nil {
		services.closers = append(services.closers, closeLocker)
	}

	services.Deps = internal.Dependencies{
		Source: crawler.NewShopCrawler(crawler.CrawlerConfig{
			URL:            cfg.ShopURL,
			ImagePrefix:    cfg.ShopImagePrefix,
			UseBrowser:     cfg.ShopUseBrowser,
			BrowserTimeout: cfg.BrowserTimeout,
		}),
		Builder:      collage.NewBuilder(collage.NewHTTPFetcher(cfg.ImageFetchTimeout)),
		Publisher:    pub,
		Catalog:      cat,
		Announcement: catalog.DefaultAnnouncement(),
		Locker:       locker,
	}
	services.Runner = dispatch.NewRunner(services.Deps)

	return services, nil
}

func newPlatform(cfg *config.Config) (publisher.Publisher, listenFunc, error) {
	switch cfg.DeliveryPlatform {
	case "telegram":
		bot, err := telegram.New(cfg.BotToken, cfg.ChannelID, cfg.CommandName)
		if err != nil {
			return nil, nil, err
		}
		return bot, func(ctx context.Context, pass func(ctx context.Context) error) error {
			return bot.Listen(ctx, pass)
		}, nil
	case "discord":
		bot, err := discord.New(cfg.BotToken, cfg.ChannelID, cfg.CommandPrefix, cfg.CommandName)
		if err != nil {
			return nil, nil, err
		}
		return bot, func(ctx context.Context, pass func(ctx context.Context) error) error {
			return bot.Listen(ctx, pass)
		}, nil
	default:
		return nil, nil, fmt.Errorf("unknown delivery platform %q", cfg.DeliveryPlatform)
	}
}

func newLocker(cfg *config.Config) (lock.Locker, func() error, error) {
	log := logger.Default

	switch cfg.LockBackend {
	case "redis":
		l := lock.NewRedisLocker(cfg.RedisAddr, cfg.RedisDB, lockKey, cfg.LockTTL)
		log.Info().Str("addr", cfg.RedisAddr).Int("db", cfg.RedisDB).Msg("Using Redis pass lock")
		return l, l.Close, nil
	case "memcache":
		log.Info().Str("addr", cfg.MemcacheAddr).Msg("Using Memcache pass lock")
		return lock.NewMemcacheLocker(cfg.MemcacheAddr, lockKey, cfg.LockTTL), nil, nil
	case "local":
		return lock.NewLocalLocker(), nil, nil
	default:
		return nil, nil, fmt.Errorf("unknown lock backend %q", cfg.LockBackend)
	}
}
