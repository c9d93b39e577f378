// Copyright 2024 The Go Authors. All rights reserved.
// Use of this source code is governed by a BSD-style
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"io"
	"log/slog"

	"go.opentelemetry.io/otel/exporters/stdout/stdoutmetric"
	ometric "go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
)

// newMeter returns the meter for the fixer's counters and a function
// to call before exiting.
// If dump is set, the counters are printed as JSON to w on shutdown;
// otherwise they are discarded.
func newMeter(lg *slog.Logger, w io.Writer, dump bool) (ometric.Meter, func(), error) {
	if !dump {
		return noop.NewMeterProvider().Meter("daxfix"), func() {}, nil
	}
	ex, err := stdoutmetric.New(stdoutmetric.WithWriter(w), stdoutmetric.WithPrettyPrint())
	if err != nil {
		return nil, nil, err
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(sdkmetric.NewPeriodicReader(ex)))
	shutdown := func() {
		// Shutdown exports the final values.
		if err := mp.Shutdown(context.Background()); err != nil {
			lg.Warn("metric export failed", "err", err)
		}
	}
	return mp.Meter("daxfix"), shutdown, nil
}
