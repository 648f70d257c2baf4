package cmd

import (
	"fmt"
	"strings"

	"github.com/rustyeddy/papertrader/config"
	"github.com/rustyeddy/papertrader/feed"
	"github.com/rustyeddy/papertrader/journal"
	"github.com/rustyeddy/papertrader/market"
	"github.com/rustyeddy/papertrader/sim"
	"github.com/rustyeddy/papertrader/store"
)

func openJournal(jc config.JournalConfig) (journal.Journal, error) {
	switch jc.Type {
	case "csv":
		return journal.NewCSV(jc.OrdersFile, jc.EquityFile)
	case "sqlite":
		return journal.NewSQLite(jc.DBPath)
	default:
		return journal.Nop{}, nil
	}
}

func openFeed(fc config.FeedConfig) feed.PriceFeed {
	if !fc.Enabled() {
		return nil
	}
	return feed.NewHTTPFeed(fc.URL, fc.Timeout, feed.WithToken(fc.Token), feed.WithRateLimit(fc.MinInterval))
}

// openCommentary serves insights from feed.commentary_url, or the fixed
// fallback headlines when none is configured.
func openCommentary(fc config.FeedConfig) feed.Commentary {
	if fc.CommentaryURL == "" {
		return feed.Static{Headlines: feed.FallbackHeadlines}
	}
	return feed.NewHTTPCommentary(fc.CommentaryURL, fc.Timeout, feed.WithToken(fc.Token))
}

// openSession loads the saved session with every collaborator the config
// asks for. Call the returned func when done to close the journal.
func openSession() (*sim.Session, func(), error) {
	j, err := openJournal(cfg.Journal)
	if err != nil {
		return nil, nil, fmt.Errorf("create journal: %w", err)
	}

	s, err := sim.Open(sim.Options{
		Balance:    cfg.Account.Balance,
		Volatility: cfg.Market.Volatility,
		Seed:       cfg.Market.Seed,
		Feed:       openFeed(cfg.Feed),
		Store:      store.NewFileStore(cfg.State.Path),
		Journal:    j,
		Logger:     logger,
	})
	if err != nil {
		j.Close()
		return nil, nil, err
	}

	closeFn := func() {
		if err := j.Close(); err != nil {
			logger.WithError(err).Warn("close journal")
		}
	}
	return s, closeFn, nil
}

// resolveInstrument accepts an instrument id or a symbol on exchange.
func resolveInstrument(reg *market.Registry, arg, exchange string) (market.Instrument, error) {
	if inst, err := reg.Get(arg); err == nil {
		return inst, nil
	}
	ex, err := market.ParseExchange(exchange)
	if err != nil {
		return market.Instrument{}, err
	}
	return reg.Find(strings.ToUpper(arg), ex)
}
