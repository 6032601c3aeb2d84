package status

import (
	"time"

	"github.com/pkg/errors"

	"github.com/sdnlab/harness-go/pkg/controller"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/topology"
	"github.com/sdnlab/harness-go/pkg/utils/retry"
)

// InventoryPoller is the slice of the controller client the discovery
// check needs.
type InventoryPoller interface {
	PollInventory() (*controller.Snapshot, error)
}

// CheckDiscovery waits until the controller has discovered every switch in
// the topology and at least one inter-switch link. The emulated switches
// connect asynchronously after instantiation, so the first polls are
// expected to come back short.
func CheckDiscovery(poller InventoryPoller, topo *topology.Topology, timeout, delay int) error {
	log.Info("[Status]: Waiting for the controller to discover the topology")
	return retry.
		Times(uint(timeout / delay)).
		Wait(time.Duration(delay) * time.Second).
		Try(func(attempt uint) error {
			snapshot, err := poller.PollInventory()
			if err != nil {
				return err
			}
			discovered := make(map[string]bool, len(snapshot.Nodes))
			for _, node := range snapshot.Nodes {
				discovered[node] = true
			}
			for _, sw := range topo.Switches() {
				if !discovered[topo.NodeID(sw.ID)] {
					return errors.Errorf("switch %v not yet discovered by the controller", sw.ID)
				}
			}
			if len(snapshot.Links) == 0 {
				return errors.Errorf("controller has not discovered any links yet")
			}
			log.InfoWithValues("[Status]: Topology discovery complete", map[string]interface{}{
				"Switches": len(snapshot.Nodes),
				"Links":    len(snapshot.Links),
			})
			return nil
		})
}
