package tracker

import (
	"bytes"
	"encoding/json"
	"net/http"
	"time"

	"mabletask/tracker/models"
)

// BeaconSender is the teardown fallback transport: one shot, unacknowledged,
// no retry, no response handling. Hosts with a real reliable teardown
// primitive (a sendBeacon equivalent) should supply their own implementation;
// delivery is best-effort either way.
type BeaconSender interface {
	Send(endpoint string, payload BeaconPayload)
}

// BeaconPayload aliases the wire type so embedders implementing BeaconSender
// only import this package.
type BeaconPayload = models.BeaconPayload

type httpBeacon struct {
	client *http.Client
}

func newHTTPBeacon() *httpBeacon {
	return &httpBeacon{client: &http.Client{Timeout: 3 * time.Second}}
}

// Send fires the request without awaiting it. Errors are dropped: once the
// host page is tearing down there is nobody left to tell.
func (h *httpBeacon) Send(endpoint string, payload BeaconPayload) {
	body, err := json.Marshal(payload)
	if err != nil {
		return
	}
	go func() {
		resp, err := h.client.Post(endpoint+"/track/beacon", "application/json", bytes.NewReader(body))
		if err != nil {
			return
		}
		resp.Body.Close()
	}()
}
