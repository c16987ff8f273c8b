package probes

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/user/meshwatch/internal/model"
)

// coapClient fetches a resource from a device's CoAP endpoint using the
// coap-client-notls command.
type coapClient struct {
	port   int
	budget time.Duration
}

func newCoapClient(port int, budget time.Duration) coapClient {
	if port <= 0 {
		port = 5683
	}
	if budget <= 0 {
		budget = 100 * time.Second
	}
	return coapClient{port: port, budget: budget}
}

// fetch posts to coap://[address]:port/path and returns the response body.
// Non-zero exit and empty output both report an error.
func (c coapClient) fetch(address, path string, stop func() bool) (string, error) {
	args := []string{
		"-m", "post",
		"-N",
		"-B", strconv.Itoa(int(c.budget.Seconds())),
		"-t", "text",
		fmt.Sprintf("coap://[%s]:%d/%s", address, c.port, path),
	}

	output, err := RunCommand("coap-client-notls", args, c.budget, stop)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(output) == "" {
		return "", fmt.Errorf("empty CoAP response from %s", address)
	}
	return output, nil
}

// SignalProbe reads the RSL in/out level pair from a device.
type SignalProbe struct {
	client coapClient
}

// NewSignalProbe creates a signal level probe.
func NewSignalProbe(port int, budget time.Duration) *SignalProbe {
	return &SignalProbe{client: newCoapClient(port, budget)}
}

// Kind reports the test kind this probe serves.
func (p *SignalProbe) Kind() model.Kind { return model.KindSignal }

// Check fetches the device status document and extracts rsl_in and rsl_out.
// A field missing from an otherwise valid document keeps its zero placeholder.
func (p *SignalProbe) Check(address string, stop func() bool) model.Outcome {
	output, err := p.client.fetch(address, "om2m", stop)
	if err != nil {
		return model.SignalOutcome{}
	}

	var doc struct {
		RSLIn  *float64 `json:"rsl_in"`
		RSLOut *float64 `json:"rsl_out"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil {
		return model.SignalOutcome{}
	}
	if doc.RSLIn == nil && doc.RSLOut == nil {
		return model.SignalOutcome{}
	}

	result := model.SignalOutcome{Received: true}
	if doc.RSLIn != nil {
		result.RSLIn = int(*doc.RSLIn)
	}
	if doc.RSLOut != nil {
		result.RSLOut = int(*doc.RSLOut)
	}
	return result
}

// RankProbe reads a device's routing rank.
type RankProbe struct {
	client coapClient
}

// NewRankProbe creates a routing rank probe.
func NewRankProbe(port int, budget time.Duration) *RankProbe {
	return &RankProbe{client: newCoapClient(port, budget)}
}

// Kind reports the test kind this probe serves.
func (p *RankProbe) Kind() model.Kind { return model.KindRank }

// Check fetches the device status document and extracts rpl_rank.
func (p *RankProbe) Check(address string, stop func() bool) model.Outcome {
	output, err := p.client.fetch(address, "om2m", stop)
	if err != nil {
		return model.RankOutcome{}
	}

	var doc struct {
		Rank *float64 `json:"rpl_rank"`
	}
	if err := json.Unmarshal([]byte(output), &doc); err != nil || doc.Rank == nil {
		return model.RankOutcome{}
	}
	return model.RankOutcome{Rank: int(*doc.Rank), Received: true}
}

// DisconnectionsProbe reads a device's lifetime disconnection counter.
type DisconnectionsProbe struct {
	client coapClient
}

// NewDisconnectionsProbe creates a disconnection counter probe.
func NewDisconnectionsProbe(port int, budget time.Duration) *DisconnectionsProbe {
	return &DisconnectionsProbe{client: newCoapClient(port, budget)}
}

// Kind reports the test kind this probe serves.
func (p *DisconnectionsProbe) Kind() model.Kind { return model.KindDisconnections }

// Check fetches the disconnection counter. A response carrying an ERR marker
// counts as failure even when the command exited cleanly.
func (p *DisconnectionsProbe) Check(address string, stop func() bool) model.Outcome {
	output, err := p.client.fetch(address, "statistics/app/disconnected_total", stop)
	if err != nil || hasErrorMarker(output) {
		return model.DisconnectionsOutcome{}
	}

	result := model.DisconnectionsOutcome{Raw: strings.TrimSpace(output), Received: true}
	if n, ok := firstInt(output); ok {
		result.Total = n
	}
	return result
}

// AvailabilityProbe reads a device's availability percentage.
type AvailabilityProbe struct {
	client coapClient
}

// NewAvailabilityProbe creates an availability probe.
func NewAvailabilityProbe(port int, budget time.Duration) *AvailabilityProbe {
	return &AvailabilityProbe{client: newCoapClient(port, budget)}
}

// Kind reports the test kind this probe serves.
func (p *AvailabilityProbe) Kind() model.Kind { return model.KindAvailability }

// Check fetches the availability statistic. A numeric token in the response
// is the percentage; a non-empty response without one reads as fully
// available, matching the device firmware's terse "up" replies.
func (p *AvailabilityProbe) Check(address string, stop func() bool) model.Outcome {
	output, err := p.client.fetch(address, "statistics/app/availability", stop)
	if err != nil || hasErrorMarker(output) {
		return model.AvailabilityOutcome{}
	}

	result := model.AvailabilityOutcome{Raw: strings.TrimSpace(output), Received: true, Percent: 100.0}
	if v, ok := firstFloat(output); ok {
		result.Percent = v
	}
	return result
}

var (
	intRe   = regexp.MustCompile(`-?\d+`)
	floatRe = regexp.MustCompile(`[0-9]+\.?[0-9]*`)
)

// hasErrorMarker reports whether the response embeds an explicit error token.
func hasErrorMarker(s string) bool {
	return strings.Contains(strings.ToUpper(s), "ERR")
}

func firstInt(s string) (int, bool) {
	m := intRe.FindString(s)
	if m == "" {
		return 0, false
	}
	n, err := strconv.Atoi(m)
	if err != nil {
		return 0, false
	}
	return n, true
}

func firstFloat(s string) (float64, bool) {
	m := floatRe.FindString(s)
	if m == "" {
		return 0, false
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return 0, false
	}
	return v, true
}
