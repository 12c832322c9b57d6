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

package apis

import (
	"net/http"
	"time"

	"github.com/alwitt/goutils"
	"github.com/alwitt/kxtap/common"
	"github.com/alwitt/kxtap/core"
	"github.com/apex/log"
)

// StatsSnapshot current tap delivery counters
type StatsSnapshot struct {
	// KeyExpression is the pattern the tap listens on
	KeyExpression string `json:"key_expression"`
	// StartedAt is when the tap began listening
	StartedAt time.Time `json:"started_at"`
	// ReceivedTotal is the number of samples delivered so far
	ReceivedTotal uint64 `json:"received_total"`
	// ReceivedPut is the number of put samples delivered so far
	ReceivedPut uint64 `json:"received_put"`
	// ReceivedDelete is the number of delete samples delivered so far
	ReceivedDelete uint64 `json:"received_delete"`
}

// StatsSource callback returning the current tap delivery counters
type StatsSource func() StatsSnapshot

// APIRestTapMonitorHandler REST handler for observing a running tap
type APIRestTapMonitorHandler struct {
	goutils.RestAPIHandler
	session *core.Session
	stats   StatsSource
}

// GetAPIRestTapMonitorHandler define APIRestTapMonitorHandler
func GetAPIRestTapMonitorHandler(
	session *core.Session,
	monitorConfig *common.MonitorServerConfig,
	stats StatsSource,
) (APIRestTapMonitorHandler, error) {
	logTags := log.Fields{
		"module":    "rest",
		"component": "tap-monitor",
	}
	return APIRestTapMonitorHandler{
		RestAPIHandler: goutils.RestAPIHandler{
			Component: goutils.Component{
				LogTags: logTags,
				LogTagModifiers: []goutils.LogMetadataModifier{
					goutils.ModifyLogMetadataByRestRequestParam,
				},
			},
			CallRequestIDHeaderField: &monitorConfig.Logging.RequestIDHeader,
			DoNotLogHeaders: func() map[string]bool {
				result := map[string]bool{}
				for _, v := range monitorConfig.Logging.DoNotLogHeaders {
					result[v] = true
				}
				return result
			}(),
		},
		session: session,
		stats:   stats,
	}, nil
}

// =======================================================================
// Tap stats

// -----------------------------------------------------------------------

// TapStatsResponse response carrying the current tap delivery counters
type TapStatsResponse struct {
	goutils.RestAPIBaseResponse
	// Stats the current tap delivery counters
	Stats StatsSnapshot `json:"stats"`
}

// GetStats godoc
// @Summary Fetch tap delivery counters
// @Description Returns the sample counters of the running tap subscription
// @tags Monitor
// @Produce json
// @Param Kxtap-Request-ID header string false "User provided request ID to match against logs"
// @Success 200 {object} TapStatsResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /v1/stats [get]
func (h APIRestTapMonitorHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	resp := TapStatsResponse{
		RestAPIBaseResponse: h.GetStdRESTSuccessMsg(r.Context()), Stats: h.stats(),
	}
	if err := h.WriteRESTResponse(w, http.StatusOK, &resp, nil); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// GetStatsHandler Wrapper around GetStats
func (h APIRestTapMonitorHandler) GetStatsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.GetStats(w, r)
	}
}

// =======================================================================
// Health Checks

// -----------------------------------------------------------------------

// Alive godoc
// @Summary For tap monitor REST API liveness check
// @Description Will return success to indicate the tap monitor REST API is live
// @tags Monitor
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /alive [get]
func (h APIRestTapMonitorHandler) Alive(w http.ResponseWriter, r *http.Request) {
	localLogTags := h.GetLogTagsForContext(r.Context())
	if err := h.WriteRESTResponse(
		w, http.StatusOK, h.GetStdRESTSuccessMsg(r.Context()), nil,
	); err != nil {
		log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
	}
}

// AliveHandler Wrapper around Alive
func (h APIRestTapMonitorHandler) AliveHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Alive(w, r)
	}
}

// -----------------------------------------------------------------------

// Ready godoc
// @Summary For tap monitor REST API readiness check
// @Description Will return success if the tap session is still connected
// @tags Monitor
// @Produce json
// @Success 200 {object} goutils.RestAPIBaseResponse "success"
// @Failure 500 {object} goutils.RestAPIBaseResponse "error"
// @Router /ready [get]
func (h APIRestTapMonitorHandler) Ready(w http.ResponseWriter, r *http.Request) {
	msg := "not ready"
	localLogTags := h.GetLogTagsForContext(r.Context())
	var respCode int
	var respBody interface{}
	defer func() {
		if err := h.WriteRESTResponse(w, respCode, respBody, nil); err != nil {
			log.WithError(err).WithFields(localLogTags).Error("Failed to form response")
		}
	}()

	if ready, err := h.session.Ready(); err != nil {
		respCode = http.StatusInternalServerError
		respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, err.Error())
	} else {
		if ready {
			respCode = http.StatusOK
			respBody = h.GetStdRESTSuccessMsg(r.Context())
		} else {
			respCode = http.StatusInternalServerError
			respBody = h.GetStdRESTErrorMsg(r.Context(), http.StatusInternalServerError, msg, msg)
		}
	}
}

// ReadyHandler Wrapper around Ready
func (h APIRestTapMonitorHandler) ReadyHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		h.Ready(w, r)
	}
}
