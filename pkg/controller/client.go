package controller

import (
	"bytes"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/sdnlab/harness-go/pkg/cerrors"
	"github.com/sdnlab/harness-go/pkg/utils"
)

// Config carries the controller connection parameters. Credentials are opaque
// here, they come from the run configuration.
type Config struct {
	BaseURL            string
	Username           string
	Password           string
	Timeout            time.Duration
	InsecureSkipVerify bool
}

// Client polls an OpenDaylight-style RESTCONF surface. Every call is a single
// synchronous fetch; waiting for a condition is the convergence monitor's job.
type Client struct {
	cfg        Config
	httpClient *http.Client
}

func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 10 * time.Second
	}
	client := &http.Client{Timeout: timeout}
	if cfg.InsecureSkipVerify {
		transCfg := &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
		client = &http.Client{Transport: transCfg, Timeout: timeout}
	}
	return &Client{cfg: cfg, httpClient: client}
}

// FlowEntry is one installed forwarding rule. Match and Actions are canonical
// JSON renderings so two entries compare bytewise.
type FlowEntry struct {
	ID       string `json:"id"`
	Table    int    `json:"table"`
	Priority int    `json:"priority"`
	Match    string `json:"match"`
	Actions  string `json:"actions"`
}

// Link is one discovered topology edge
type Link struct {
	ID  string `json:"id"`
	Src string `json:"src"`
	Dst string `json:"dst"`
}

// Snapshot is a point-in-time view of the controller's discovered state. It
// is immutable once fetched and superseded by the next poll.
type Snapshot struct {
	FetchedAt time.Time              `json:"fetchedAt"`
	Nodes     []string               `json:"nodes"`
	Links     []Link                 `json:"links"`
	Flows     map[string][]FlowEntry `json:"flows"`
}

// PortStats carries the counters of one node connector
type PortStats struct {
	ConnectorID      string `json:"connectorId"`
	BytesReceived    int64  `json:"bytesReceived"`
	BytesTransmitted int64  `json:"bytesTransmitted"`
}

// PollInventory fetches discovered nodes, links and installed flows in one
// synchronous pass over the operational tree
func (c *Client) PollInventory() (*Snapshot, error) {
	snapshot := &Snapshot{FetchedAt: time.Now(), Flows: map[string][]FlowEntry{}}

	body, err := c.get("/operational/opendaylight-inventory:nodes")
	if err != nil {
		return nil, err
	}
	var inv inventoryResponse
	if err := json.Unmarshal(body, &inv); err != nil {
		return nil, cerrors.ControllerUnreachable{Endpoint: "opendaylight-inventory:nodes", Reason: fmt.Sprintf("malformed inventory response, %v", err)}
	}
	for _, node := range inv.Nodes.Node {
		snapshot.Nodes = append(snapshot.Nodes, node.ID)
		snapshot.Flows[node.ID] = flowEntries(node.Tables)
	}

	body, err = c.get("/operational/network-topology:network-topology")
	if err != nil {
		return nil, err
	}
	var topo topologyResponse
	if err := json.Unmarshal(body, &topo); err != nil {
		return nil, cerrors.ControllerUnreachable{Endpoint: "network-topology", Reason: fmt.Sprintf("malformed topology response, %v", err)}
	}
	for _, t := range topo.NetworkTopology.Topology {
		for _, l := range t.Link {
			snapshot.Links = append(snapshot.Links, Link{
				ID:  l.LinkID,
				Src: l.Source.SourceNode,
				Dst: l.Destination.DestNode,
			})
		}
	}

	return snapshot, nil
}

// PollFlows fetches the flow rules currently installed on one switch
func (c *Client) PollFlows(switchID string) ([]FlowEntry, error) {
	body, err := c.get(fmt.Sprintf("/operational/opendaylight-inventory:nodes/node/%s/flow-node-inventory:table/0", switchID))
	if err != nil {
		return nil, err
	}
	var resp tableResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, cerrors.ControllerUnreachable{Endpoint: switchID, Reason: fmt.Sprintf("malformed flow table response, %v", err)}
	}
	return flowEntries(resp.Table), nil
}

// InstallFlow installs a flow rule on a switch through the config tree
func (c *Client) InstallFlow(switchID, flowID string, flowBody interface{}) error {
	payload, err := json.Marshal(flowBody)
	if err != nil {
		return cerrors.Generic{Phase: "InstallFlow", Reason: fmt.Sprintf("unable to encode flow body, %v", err)}
	}
	path := fmt.Sprintf("/config/opendaylight-inventory:nodes/node/%s/flow-node-inventory:table/0/flow/%s", switchID, flowID)
	return c.send(http.MethodPut, path, payload)
}

// DeleteFlow removes a flow rule from a switch through the config tree
func (c *Client) DeleteFlow(switchID, flowID string) error {
	path := fmt.Sprintf("/config/opendaylight-inventory:nodes/node/%s/flow-node-inventory:table/0/flow/%s", switchID, flowID)
	return c.send(http.MethodDelete, path, nil)
}

// NodeConnectorStats fetches the port counters of one switch
func (c *Client) NodeConnectorStats(switchID string) ([]PortStats, error) {
	body, err := c.get(fmt.Sprintf("/operational/opendaylight-inventory:nodes/node/%s", switchID))
	if err != nil {
		return nil, err
	}
	var resp nodeResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, cerrors.ControllerUnreachable{Endpoint: switchID, Reason: fmt.Sprintf("malformed node response, %v", err)}
	}

	var stats []PortStats
	for _, node := range resp.Node {
		for _, conn := range node.NodeConnector {
			stats = append(stats, PortStats{
				ConnectorID:      conn.ID,
				BytesReceived:    conn.Statistics.Bytes.Received,
				BytesTransmitted: conn.Statistics.Bytes.Transmitted,
			})
		}
	}
	return stats, nil
}

// Fingerprint renders a flow-entry set into a canonical, order-insensitive
// string used for convergence comparison
func Fingerprint(flows []FlowEntry) string {
	keys := make([]string, 0, len(flows))
	for _, f := range flows {
		keys = append(keys, fmt.Sprintf("%s|%d|%d|%s|%s", f.ID, f.Table, f.Priority, f.Match, f.Actions))
	}
	sort.Strings(keys)
	return strings.Join(keys, ";")
}

func (c *Client) get(path string) ([]byte, error) {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequest(http.MethodGet, url, nil)
	if err != nil {
		return nil, cerrors.ControllerUnreachable{Endpoint: path, Reason: err.Error()}
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		reason := err.Error()
		if utils.HTTPTimeout(err) {
			reason = "request timed out"
		}
		return nil, cerrors.ControllerUnreachable{Endpoint: path, Reason: reason}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, cerrors.ControllerUnreachable{Endpoint: path, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, cerrors.ControllerUnreachable{Endpoint: path, Reason: err.Error()}
	}
	return body, nil
}

func (c *Client) send(method, path string, payload []byte) error {
	url := strings.TrimRight(c.cfg.BaseURL, "/") + path
	req, err := http.NewRequest(method, url, bytes.NewReader(payload))
	if err != nil {
		return cerrors.ControllerUnreachable{Endpoint: path, Reason: err.Error()}
	}
	req.SetBasicAuth(c.cfg.Username, c.cfg.Password)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return cerrors.ControllerUnreachable{Endpoint: path, Reason: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return cerrors.ControllerUnreachable{Endpoint: path, Reason: fmt.Sprintf("unexpected status %d", resp.StatusCode)}
	}
	return nil
}
