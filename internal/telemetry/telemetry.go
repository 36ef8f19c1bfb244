/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except
 * in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the
 *  specific language governing permissions and limitations under the License.
 */

// Package telemetry sends anonymous, strictly opt-in usage events and crash
// reports. With no endpoint configured every call is a no-op.
package telemetry

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	applog "notefield/internal/log"
	"notefield/internal/version"
)

// Config controls the sender. Read from the environment by FromEnv:
//
//	NF_TELEMETRY_OPT_IN      "1", "true", "yes" or "on" enables events
//	NF_TELEMETRY_URL         endpoint for JSON event posts
//	NF_CRASH_UPLOAD_URL      endpoint for crash report posts
//	NF_TELEMETRY_TIMEOUT_MS  request timeout, default 1500
//	NF_TELEMETRY_DEBUG       log send attempts when non-empty
type Config struct {
	OptIn        bool
	EventsURL    string
	CrashURL     string
	Timeout      time.Duration
	DebugLogging bool
}

// FromEnv builds a Config from NF_TELEMETRY_* variables.
func FromEnv() Config {
	cfg := Config{
		OptIn:        truthy(os.Getenv("NF_TELEMETRY_OPT_IN")),
		EventsURL:    strings.TrimSpace(os.Getenv("NF_TELEMETRY_URL")),
		CrashURL:     strings.TrimSpace(os.Getenv("NF_CRASH_UPLOAD_URL")),
		Timeout:      1500 * time.Millisecond,
		DebugLogging: os.Getenv("NF_TELEMETRY_DEBUG") != "",
	}
	if raw := strings.TrimSpace(os.Getenv("NF_TELEMETRY_TIMEOUT_MS")); raw != "" {
		if d, err := time.ParseDuration(raw + "ms"); err == nil {
			cfg.Timeout = d
		}
	}
	return cfg
}

func truthy(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}

// event is the wire shape of a single usage event. Props must not carry PII.
type event struct {
	Name    string         `json:"name"`
	TS      string         `json:"ts"`
	Session string         `json:"session"`
	Version string         `json:"version"`
	OS      string         `json:"os"`
	Arch    string         `json:"arch"`
	Props   map[string]any `json:"props,omitempty"`
}

// Client queues events on a bounded channel and posts them from a background
// goroutine. Full queue or failed sends drop silently; interaction code must
// never block on telemetry.
type Client struct {
	cfg     Config
	log     *slog.Logger
	http    *http.Client
	session string
	queue   chan event
	stop    chan struct{}
	once    sync.Once
}

// New starts a client and its sender goroutine.
func New(cfg Config) *Client {
	c := &Client{
		cfg:     cfg,
		log:     applog.WithComponent("telemetry"),
		http:    &http.Client{Timeout: cfg.Timeout},
		session: uuid.NewString(),
		queue:   make(chan event, 64),
		stop:    make(chan struct{}),
	}
	go func() {
		for {
			select {
			case <-c.stop:
				return
			case ev := <-c.queue:
				c.post(c.cfg.EventsURL, "application/json", mustJSON(ev), "event sent", "event send failed")
			}
		}
	}()
	return c
}

func mustJSON(v any) []byte {
	b, _ := json.Marshal(v)
	return b
}

// Enabled reports whether events will actually be sent.
func (c *Client) Enabled() bool { return c != nil && c.cfg.OptIn && c.cfg.EventsURL != "" }

// Event enqueues a named usage event. No-op when disabled or unnamed.
func (c *Client) Event(name string, props map[string]any) {
	if !c.Enabled() || name == "" {
		return
	}
	ev := event{
		Name:    name,
		TS:      time.Now().UTC().Format(time.RFC3339Nano),
		Session: c.session,
		Version: version.String(),
		OS:      runtime.GOOS,
		Arch:    runtime.GOARCH,
		Props:   props,
	}
	select {
	case c.queue <- ev:
	default:
	}
}

// UploadCrash posts a serialized crash report when crash uploads are opted in.
func (c *Client) UploadCrash(report []byte) {
	if c == nil || !c.cfg.OptIn || c.cfg.CrashURL == "" {
		return
	}
	body := append([]byte(nil), report...)
	go c.post(c.cfg.CrashURL, "text/plain; charset=utf-8", body, "crash report uploaded", "crash upload failed")
}

// Flush waits up to half a second for queued events to drain.
func (c *Client) Flush(ctx context.Context) {
	deadline := time.Now().Add(500 * time.Millisecond)
	for len(c.queue) > 0 && time.Now().Before(deadline) {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return
			case <-time.After(25 * time.Millisecond):
			}
			continue
		}
		time.Sleep(25 * time.Millisecond)
	}
}

// Close stops the sender goroutine.
func (c *Client) Close() { c.once.Do(func() { close(c.stop) }) }

func (c *Client) post(url, contentType string, body []byte, okMsg, failMsg string) {
	req, err := http.NewRequest(http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return
	}
	req.Header.Set("Content-Type", contentType)
	resp, err := c.http.Do(req)
	if err != nil {
		if c.cfg.DebugLogging {
			c.log.Debug(failMsg, slog.Any("err", err))
		}
		return
	}
	_ = resp.Body.Close()
	if c.cfg.DebugLogging {
		c.log.Debug(okMsg)
	}
}

var (
	defaultClient *Client
	defaultOnce   sync.Once
)

// InitDefault lazily builds the package-level client from the environment.
func InitDefault() {
	defaultOnce.Do(func() { NewDefault(FromEnv()) })
}

// NewDefault installs cfg as the package-level client.
func NewDefault(cfg Config) { defaultClient = New(cfg) }

// Enabled reports whether the default client will send events.
func Enabled() bool {
	InitDefault()
	return defaultClient.Enabled()
}

// Event sends through the default client.
func Event(name string, props map[string]any) { InitDefault(); defaultClient.Event(name, props) }

// UploadCrash sends through the default client.
func UploadCrash(report []byte) { InitDefault(); defaultClient.UploadCrash(report) }
