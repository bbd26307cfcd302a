// Copyright 2021 Matrix Origin
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

package v2

import "github.com/prometheus/client_golang/prometheus"

var (
	rleAppendRowsCounter = prometheus.NewCounter(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "append_rows_total",
			Help:      "Total number of rows appended to rle segments.",
		})
	RLEAppendRowsCounter = rleAppendRowsCounter

	rleRunCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "run_total",
			Help:      "Total number of runs written or extended by appends.",
		}, []string{"type"})
	RLERunWrittenCounter  = rleRunCounter.WithLabelValues("written")
	RLERunExtendedCounter = rleRunCounter.WithLabelValues("extended")

	rleUpdateCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "update_total",
			Help:      "Total number of update overlay operations.",
		}, []string{"type"})
	RLEUpdateNodeCounter     = rleUpdateCounter.WithLabelValues("node")
	RLEUpdateMergedCounter   = rleUpdateCounter.WithLabelValues("merged")
	RLEUpdateConflictCounter = rleUpdateCounter.WithLabelValues("conflict")
	RLEUpdateRollbackCounter = rleUpdateCounter.WithLabelValues("rollback")

	rleScanCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "scan_total",
			Help:      "Total number of vectors scanned from rle segments.",
		}, []string{"type"})
	RLEScanBaseCounter   = rleScanCounter.WithLabelValues("base")
	RLEScanMergedCounter = rleScanCounter.WithLabelValues("merged")
	RLEFetchRowCounter   = rleScanCounter.WithLabelValues("fetch")

	rleSelectRowsCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "select_rows_total",
			Help:      "Total number of rows evaluated by select.",
		}, []string{"type"})
	RLESelectInputCounter    = rleSelectRowsCounter.WithLabelValues("input")
	RLESelectApprovedCounter = rleSelectRowsCounter.WithLabelValues("approved")

	overflowPayloadCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "overflow_payload_total",
			Help:      "Total number of update payloads moved through the overflow store.",
		}, []string{"type"})
	OverflowSpillCounter  = overflowPayloadCounter.WithLabelValues("spill")
	OverflowLoadCounter   = overflowPayloadCounter.WithLabelValues("load")
	OverflowDeleteCounter = overflowPayloadCounter.WithLabelValues("delete")

	overflowBytesCounter = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "mo",
			Subsystem: "rle",
			Name:      "overflow_bytes_total",
			Help:      "Total bytes of update payloads spilled, before and after compression.",
		}, []string{"type"})
	OverflowRawBytesCounter        = overflowBytesCounter.WithLabelValues("raw")
	OverflowCompressedBytesCounter = overflowBytesCounter.WithLabelValues("compressed")
)
