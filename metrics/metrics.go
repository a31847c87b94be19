/*
 * MIT License
 *
 * Copyright (c) 2025 Nicolas JUHEL
 *
 * Permission is hereby granted, free of charge, to any person obtaining a copy
 * of this software and associated documentation files (the "Software"), to deal
 * in the Software without restriction, including without limitation the rights
 * to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
 * copies of the Software, and to permit persons to whom the Software is
 * furnished to do so, subject to the following conditions:
 *
 * The above copyright notice and this permission notice shall be included in all
 * copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
 * IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
 * FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
 * AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
 * LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
 * OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
 * SOFTWARE.
 *
 *
 */

// Package metrics exposes a socket's traffic counters (spec §3: ToApp/
// FromApp/ToLower/FromLower, each in msgs and bytes) as a prometheus.Collector.
// It is ambient, not user-facing: nothing in transport or utls depends on it,
// and a socket works identically whether or not its collector is ever
// registered into a prometheus.Registerer.
package metrics

import (
	"strconv"

	prmsdk "github.com/prometheus/client_golang/prometheus"

	libtrp "github.com/nabbar/xcm/transport"
)

// CounterSource is satisfied by *transport.Socket; split out so tests can
// supply a fake without standing up a real socket.
type CounterSource interface {
	ID() uint64
	ResolvedTransport() string
	GetCnt() libtrp.Counters
}

const namespace = "xcm"

var descs = struct {
	toAppMsgs, fromAppMsgs, toLowerMsgs, fromLowerMsgs     *prmsdk.Desc
	toAppBytes, fromAppBytes, toLowerBytes, fromLowerBytes *prmsdk.Desc
}{
	toAppMsgs: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "to_app_msgs_total"),
		"Messages delivered to the application.",
		[]string{"socket_id", "transport"}, nil,
	),
	fromAppMsgs: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "from_app_msgs_total"),
		"Messages accepted from the application for sending.",
		[]string{"socket_id", "transport"}, nil,
	),
	toLowerMsgs: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "to_lower_msgs_total"),
		"Messages handed to the lower transport.",
		[]string{"socket_id", "transport"}, nil,
	),
	fromLowerMsgs: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "from_lower_msgs_total"),
		"Messages received from the lower transport.",
		[]string{"socket_id", "transport"}, nil,
	),
	toAppBytes: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "to_app_bytes_total"),
		"Bytes delivered to the application.",
		[]string{"socket_id", "transport"}, nil,
	),
	fromAppBytes: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "from_app_bytes_total"),
		"Bytes accepted from the application for sending.",
		[]string{"socket_id", "transport"}, nil,
	),
	toLowerBytes: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "to_lower_bytes_total"),
		"Bytes handed to the lower transport.",
		[]string{"socket_id", "transport"}, nil,
	),
	fromLowerBytes: prmsdk.NewDesc(
		prmsdk.BuildFQName(namespace, "socket", "from_lower_bytes_total"),
		"Bytes received from the lower transport.",
		[]string{"socket_id", "transport"}, nil,
	),
}

// SocketCollector adapts one socket's counters to prometheus.Collector.
// Collect reads the counters fresh on every scrape (Socket.GetCnt already
// forwards to the active sub-socket for utls, per §4.5.5), so it never goes
// stale the way a cached gauge would.
type SocketCollector struct {
	sock CounterSource
}

var _ prmsdk.Collector = &SocketCollector{}

// NewSocketCollector wraps sock for registration into a prometheus.Registerer.
func NewSocketCollector(sock CounterSource) *SocketCollector {
	return &SocketCollector{sock: sock}
}

func (c *SocketCollector) Describe(ch chan<- *prmsdk.Desc) {
	ch <- descs.toAppMsgs
	ch <- descs.fromAppMsgs
	ch <- descs.toLowerMsgs
	ch <- descs.fromLowerMsgs
	ch <- descs.toAppBytes
	ch <- descs.fromAppBytes
	ch <- descs.toLowerBytes
	ch <- descs.fromLowerBytes
}

func (c *SocketCollector) Collect(ch chan<- prmsdk.Metric) {
	cnt := c.sock.GetCnt()
	id := strconv.FormatUint(c.sock.ID(), 10)
	tr := c.sock.ResolvedTransport()

	ch <- prmsdk.MustNewConstMetric(descs.toAppMsgs, prmsdk.CounterValue, float64(cnt.ToAppMsgs), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.fromAppMsgs, prmsdk.CounterValue, float64(cnt.FromAppMsgs), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.toLowerMsgs, prmsdk.CounterValue, float64(cnt.ToLowerMsgs), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.fromLowerMsgs, prmsdk.CounterValue, float64(cnt.FromLowerMsgs), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.toAppBytes, prmsdk.CounterValue, float64(cnt.ToAppBytes), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.fromAppBytes, prmsdk.CounterValue, float64(cnt.FromAppBytes), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.toLowerBytes, prmsdk.CounterValue, float64(cnt.ToLowerBytes), id, tr)
	ch <- prmsdk.MustNewConstMetric(descs.fromLowerBytes, prmsdk.CounterValue, float64(cnt.FromLowerBytes), id, tr)
}
