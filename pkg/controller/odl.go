package controller

import (
	"encoding/json"
	"fmt"
)

// Wire shapes of the OpenDaylight RESTCONF operational tree, reduced to the
// fields the harness reads.

type inventoryResponse struct {
	Nodes struct {
		Node []inventoryNode `json:"node"`
	} `json:"nodes"`
}

type inventoryNode struct {
	ID     string      `json:"id"`
	Tables []flowTable `json:"flow-node-inventory:table"`
}

type tableResponse struct {
	Table []flowTable `json:"flow-node-inventory:table"`
}

type flowTable struct {
	ID   int       `json:"id"`
	Flow []odlFlow `json:"flow"`
}

type odlFlow struct {
	ID           string          `json:"id"`
	Priority     int             `json:"priority"`
	TableID      int             `json:"table_id"`
	Match        json.RawMessage `json:"match"`
	Instructions json.RawMessage `json:"instructions"`
}

type topologyResponse struct {
	NetworkTopology struct {
		Topology []struct {
			TopologyID string `json:"topology-id"`
			Node       []struct {
				NodeID string `json:"node-id"`
			} `json:"node"`
			Link []struct {
				LinkID string `json:"link-id"`
				Source struct {
					SourceNode string `json:"source-node"`
				} `json:"source"`
				Destination struct {
					DestNode string `json:"dest-node"`
				} `json:"destination"`
			} `json:"link"`
		} `json:"topology"`
	} `json:"network-topology"`
}

type nodeResponse struct {
	Node []struct {
		ID            string `json:"id"`
		NodeConnector []struct {
			ID         string `json:"id"`
			Statistics struct {
				Bytes struct {
					Received    int64 `json:"received"`
					Transmitted int64 `json:"transmitted"`
				} `json:"bytes"`
			} `json:"opendaylight-port-statistics:flow-capable-node-connector-statistics"`
		} `json:"node-connector"`
	} `json:"node"`
}

// flowEntries flattens ODL flow tables into comparable entries. Match and
// instruction blocks are re-marshalled so map keys come out sorted and two
// equal rules render identically.
func flowEntries(tables []flowTable) []FlowEntry {
	var entries []FlowEntry
	for _, table := range tables {
		for _, f := range table.Flow {
			entries = append(entries, FlowEntry{
				ID:       f.ID,
				Table:    f.TableID,
				Priority: f.Priority,
				Match:    canonicalJSON(f.Match),
				Actions:  canonicalJSON(f.Instructions),
			})
		}
	}
	return entries
}

func canonicalJSON(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var v interface{}
	if err := json.Unmarshal(raw, &v); err != nil {
		return string(raw)
	}
	out, err := json.Marshal(v)
	if err != nil {
		return string(raw)
	}
	return string(out)
}

// PathFlow builds a minimal ODL flow body forwarding traffic for a /32
// destination out of one port, the shape the lab uses for path steering
func PathFlow(flowID, dstIP string, outputPort int, priority int) map[string]interface{} {
	return map[string]interface{}{
		"flow": []map[string]interface{}{
			{
				"id":       flowID,
				"priority": priority,
				"table_id": 0,
				"match": map[string]interface{}{
					"ethernet-match": map[string]interface{}{
						"ethernet-type": map[string]interface{}{"type": 2048},
					},
					"ipv4-destination": fmt.Sprintf("%s/32", dstIP),
				},
				"instructions": map[string]interface{}{
					"instruction": []map[string]interface{}{
						{
							"order": 0,
							"apply-actions": map[string]interface{}{
								"action": []map[string]interface{}{
									{
										"order": 0,
										"output-action": map[string]interface{}{
											"output-node-connector": fmt.Sprintf("%d", outputPort),
										},
									},
								},
							},
						},
					},
				},
			},
		},
	}
}
