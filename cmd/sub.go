// Copyright 2024 The kxtap Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package cmd

import (
	"context"
	"fmt"
	"net/http"
	"reflect"
	"sync"
	"sync/atomic"
	"time"

	"github.com/alwitt/kxtap/apis"
	"github.com/alwitt/kxtap/common"
	"github.com/alwitt/kxtap/core"
	"github.com/alwitt/kxtap/dataplane"
	"github.com/apex/log"
	"github.com/go-playground/validator/v10"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"
)

// samplesReceivedMetric counts delivered samples by kind
var samplesReceivedMetric = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Name: "kxtap_samples_received_total",
		Help: "Number of samples the tap subscription has delivered",
	},
	[]string{"kind"},
)

// tapCounters delivery counters shared between the print loop, the periodic
// report, and the monitor API
type tapCounters struct {
	receivedTotal  uint64
	receivedPut    uint64
	receivedDelete uint64
}

func (c *tapCounters) observe(sample dataplane.Sample) {
	atomic.AddUint64(&c.receivedTotal, 1)
	switch sample.Kind {
	case dataplane.SampleKindDelete:
		atomic.AddUint64(&c.receivedDelete, 1)
	default:
		atomic.AddUint64(&c.receivedPut, 1)
	}
	samplesReceivedMetric.WithLabelValues(string(sample.Kind)).Inc()
}

// RunTapSubscriber run the tap subscriber until the runtime context is cancelled
func RunTapSubscriber(
	runtimeContext context.Context,
	config *common.SystemConfig,
	instance string,
	session *core.Session,
	wg *sync.WaitGroup,
) error {
	logTags := log.Fields{
		"module":    "cmd",
		"component": "tap-subscriber",
		"instance":  instance,
	}

	validate := validator.New()
	if err := validate.Struct(config); err != nil {
		log.WithError(err).WithFields(logTags).Error("Invalid subscriber config")
		return err
	}

	// Declare the subscription before anything is printed
	subscriber, err := dataplane.GetSampleSubscriber(
		runtimeContext, session, config.Subscriber.KeyExpression,
	)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf(
			"Unable to declare subscriber on %s", config.Subscriber.KeyExpression,
		)
		return err
	}

	counters := &tapCounters{}
	startedAt := time.Now().UTC()

	// Sample prints run through one event loop so deliveries arriving on
	// middleware-managed goroutines never interleave on the console.
	printer, err := common.GetNewTaskProcessorInstance("sample-print", 64)
	if err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Unable to define print processor")
		return err
	}
	if err := printer.SetTaskExecutionMap(map[reflect.Type]common.TaskHandler{
		reflect.TypeOf(dataplane.Sample{}): func(param interface{}) error {
			sample, ok := param.(dataplane.Sample)
			if !ok {
				return fmt.Errorf("print processor received %s", reflect.TypeOf(param))
			}
			counters.observe(sample)
			fmt.Printf("Received %s\n", sample)
			return nil
		},
	}); err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Unable to define print handlers")
		return err
	}
	if err := printer.StartEventLoop(wg); err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Unable to start print processor")
		return err
	}
	defer func() {
		if err := printer.StopEventLoop(); err != nil {
			log.WithError(err).WithFields(logTags).Error("Print processor stop failed")
		}
	}()

	sampleHandler := func(_ context.Context, sample dataplane.Sample) error {
		return printer.Submit(sample)
	}
	readFailure := func(err error) {
		// The read loop ends when the runtime context is cancelled. Anything
		// else is a middleware-side failure worth surfacing.
		if runtimeContext.Err() == nil {
			log.WithError(err).WithFields(logTags).Error("Sample read loop failed")
		}
	}
	if err := subscriber.StartListening(sampleHandler, readFailure, wg); err != nil {
		log.WithError(err).WithFields(logTags).Errorf("Unable to start listening")
		return err
	}

	log.WithFields(logTags).Infof(
		"Listening on '%s'", config.Subscriber.KeyExpression,
	)

	// Periodic received-count report
	if config.Subscriber.ReportInterval > 0 {
		reportTimer, err := common.GetIntervalTimerInstance(
			"tap-report", runtimeContext, wg,
		)
		if err != nil {
			log.WithError(err).WithFields(logTags).Errorf("Unable to define report timer")
			return err
		}
		interval := time.Second * time.Duration(config.Subscriber.ReportInterval)
		if err := reportTimer.Start(interval, func() error {
			log.WithFields(logTags).Infof(
				"Delivered %d samples since start", atomic.LoadUint64(&counters.receivedTotal),
			)
			return nil
		}, false); err != nil {
			log.WithError(err).WithFields(logTags).Errorf("Unable to start report timer")
			return err
		}
		defer func() {
			_ = reportTimer.Stop()
		}()
	}

	// -------------------------------------------------------------------
	// Start the monitor HTTP server

	var httpSrv *http.Server
	if config.Monitor.Enabled {
		statsSource := func() apis.StatsSnapshot {
			return apis.StatsSnapshot{
				KeyExpression:  config.Subscriber.KeyExpression,
				StartedAt:      startedAt,
				ReceivedTotal:  atomic.LoadUint64(&counters.receivedTotal),
				ReceivedPut:    atomic.LoadUint64(&counters.receivedPut),
				ReceivedDelete: atomic.LoadUint64(&counters.receivedDelete),
			}
		}
		httpHandler, err := apis.GetAPIRestTapMonitorHandler(
			session, &config.Monitor, statsSource,
		)
		if err != nil {
			log.WithError(err).WithFields(logTags).Errorf("Unable to define HTTP handler")
			return err
		}

		router := mux.NewRouter()
		mainRouter := apis.RegisterPathPrefix(router, config.Monitor.PathPrefix, nil)

		// Tap stats
		_ = apis.RegisterPathPrefix(mainRouter, "/v1/stats", map[string]http.HandlerFunc{
			"get": httpHandler.GetStatsHandler(),
		})

		// Prometheus metrics
		mainRouter.Path("/metrics").Handler(promhttp.Handler())

		// Health check
		_ = apis.RegisterPathPrefix(mainRouter, "/alive", map[string]http.HandlerFunc{
			"get": httpHandler.AliveHandler(),
		})
		_ = apis.RegisterPathPrefix(mainRouter, "/ready", map[string]http.HandlerFunc{
			"get": httpHandler.ReadyHandler(),
		})

		// Add logging
		router.Use(func(next http.Handler) http.Handler {
			return handlers.CombinedLoggingHandler(httpHandler, next)
		})

		serverListen := fmt.Sprintf(
			"%s:%d", config.Monitor.Server.ListenOn, config.Monitor.Server.Port,
		)
		httpSrv = &http.Server{
			Addr:         serverListen,
			ReadTimeout:  time.Second * time.Duration(config.Monitor.Server.ReadTimeout),
			WriteTimeout: time.Second * time.Duration(config.Monitor.Server.WriteTimeout),
			Handler:      h2c.NewHandler(router, &http2.Server{}),
		}

		// Start the server
		go func() {
			if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				log.WithError(err).Error("HTTP Server Failure")
			}
		}()

		log.WithFields(logTags).Infof("Started HTTP server on http://%s", serverListen)
	}

	// ============================================================================

	<-runtimeContext.Done()

	fmt.Println("Shutting down subscriber...")

	// Stop the HTTP server
	if httpSrv != nil {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second*10)
		defer cancel()
		if err := httpSrv.Shutdown(ctx); err != nil {
			log.WithError(err).Error("Failure during HTTP shutdown")
		}
	}

	return nil
}
