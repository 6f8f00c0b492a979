// Storelens - E-commerce Analytics and Recommendations
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/storelens

// Command datagen writes a synthetic product catalog and purchase
// histories for local development:
//
//	datagen [-dir data] [-users 100] [-max-purchases 50] [-seed 42]
//
// It produces dir/product_data.csv and dir/user_data/user_<id>.csv, the
// default locations the server reads.
package main

import (
	"flag"

	"github.com/tomtom215/storelens/internal/datagen"
	"github.com/tomtom215/storelens/internal/logging"
)

func main() {
	def := datagen.DefaultConfig()

	dir := flag.String("dir", "data", "output directory")
	users := flag.Int("users", def.Users, "number of users")
	minPurchases := flag.Int("min-purchases", def.MinPurchases, "minimum purchases per user")
	maxPurchases := flag.Int("max-purchases", def.MaxPurchases, "maximum purchases per user")
	days := flag.Int("days", def.Days, "days after 2024-01-01 purchases may fall on")
	seed := flag.Uint64("seed", def.Seed, "random seed")
	logFormat := flag.String("log-format", "console", "json or console")
	flag.Parse()

	logging.Init(logging.Config{Level: "info", Format: *logFormat})

	cfg := def
	cfg.Users = *users
	cfg.MinPurchases = *minPurchases
	cfg.MaxPurchases = *maxPurchases
	cfg.Days = *days
	cfg.Seed = *seed

	if _, err := datagen.Generate(*dir, cfg); err != nil {
		logging.Fatal().Err(err).Msg("Data generation failed")
	}
}
