package api

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sdr-control/sdrc/internal/auth"
	"github.com/sdr-control/sdrc/internal/devtree"
	"github.com/sdr-control/sdrc/internal/driver"
	"github.com/sdr-control/sdrc/internal/hints"
	"github.com/sdr-control/sdrc/internal/periph"
	"github.com/sdr-control/sdrc/internal/periph/sim"
	"github.com/sdr-control/sdrc/internal/subdev"
	"github.com/sdr-control/sdrc/internal/telemetry"
)

func newTestServer(t *testing.T, secret string) (*httptest.Server, *sim.Synchronizer) {
	t.Helper()
	tree := devtree.New()
	mb := sim.NewMotherboard(0, 2, periph.PathEthernet)
	mb.MB.TickRate = 200e6
	for _, slot := range []string{"A", "B"} {
		pair := subdev.Pair{DB: slot, SD: "0"}
		tree.SetString(subdev.ConnectionPath(0, subdev.RX, pair), "IQ")
		tree.SetString(subdev.ConnectionPath(0, subdev.TX, pair), "QI")
	}
	synchronizer := &sim.Synchronizer{}
	hub := telemetry.NewHub()
	t.Cleanup(hub.Stop)

	drv := driver.New(driver.Options{
		Mboards:      []*periph.Motherboard{mb.MB},
		Tree:         tree,
		Synchronizer: synchronizer,
		Compat:       subdev.TreeChecker{Tree: tree},
		Platform:     hints.PlatformLinux,
		Hub:          hub,
		Logger:       log.New(io.Discard),
	})
	srv := NewServer(drv, hub, auth.NewVerifier(secret), log.New(io.Discard))
	ts := httptest.NewServer(srv.Routes())
	t.Cleanup(ts.Close)
	return ts, synchronizer
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var decoded map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&decoded))
	return resp, decoded
}

func TestHealth(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, Version, body["version"])
}

func TestListMboards(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/mboards", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	items := body["items"].([]any)
	require.Len(t, items, 1)
	first := items[0].(map[string]any)
	assert.Equal(t, 200e6, first["tickRate"])
	assert.Equal(t, "eth", first["transport"])
	assert.Equal(t, float64(2), first["numRadios"])
}

func TestSubdevSpec(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/mboards/0/subdev_spec",
		`{"direction":"rx","spec":"A:0 B:0"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, mb := doJSON(t, http.MethodGet, ts.URL+"/api/v1/mboards/0", "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "A:0 B:0", mb["rxSubdevSpec"])

	// Same slot twice is an invalid pairing.
	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/v1/mboards/0/subdev_spec",
		`{"direction":"rx","spec":"A:0 A:0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_CONFIGURATION", body["code"])
}

func TestTickRate(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, _ := doJSON(t, http.MethodPut, ts.URL+"/api/v1/mboards/0/tick_rate", `{"rate":184.32e6}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/v1/mboards/0/tick_rate", `{"rate":-5}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_CONFIGURATION", body["code"])

	resp, _ = doJSON(t, http.MethodPut, ts.URL+"/api/v1/mboards/zero/tick_rate", `{"rate":1}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestSampRateBadDirection(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPut, ts.URL+"/api/v1/mboards/0/samp_rate",
		`{"direction":"sideways","dsp":0,"rate":25e6}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "BAD_REQUEST", body["code"])
}

func TestStreamLifecycle(t *testing.T) {
	ts, synchronizer := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodPost, ts.URL+"/api/v1/streams",
		`{"direction":"tx","mboard":0,"dsps":[0,1]}`)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "0/Radio_0", body["channel"])
	assert.Equal(t, 1, synchronizer.CallCount())

	resp, _ = doJSON(t, http.MethodPost, ts.URL+"/api/v1/streams/release",
		`{"direction":"tx","channel":"0/Radio_0"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body = doJSON(t, http.MethodPost, ts.URL+"/api/v1/streams/release",
		`{"direction":"tx","channel":"0/Radio_0"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "INVALID_CONFIGURATION", body["code"])
}

func TestHints(t *testing.T) {
	ts, _ := newTestServer(t, "")

	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/mboards/0/hints?direction=rx", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "33554432", body["recv_buff_size"])

	resp, _ = doJSON(t, http.MethodGet, ts.URL+"/api/v1/mboards/0/hints?direction=both", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAuthGuard(t *testing.T) {
	const secret = "api-secret"
	ts, _ := newTestServer(t, secret)

	// Health stays open.
	resp, _ := doJSON(t, http.MethodGet, ts.URL+"/api/v1/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Everything else wants a token.
	resp, body := doJSON(t, http.MethodGet, ts.URL+"/api/v1/mboards", "")
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	assert.Equal(t, "UNAUTHORIZED", body["code"])

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "operator",
		"exp": time.Now().Add(time.Minute).Unix(),
	})
	signed, err := token.SignedString([]byte(secret))
	require.NoError(t, err)

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/api/v1/mboards", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer "+signed)
	authed, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer authed.Body.Close()
	assert.Equal(t, http.StatusOK, authed.StatusCode)
}
