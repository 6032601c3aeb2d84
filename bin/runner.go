package main

import (
	"flag"

	trafficEngineering "github.com/sdnlab/harness-go/experiments/traffic-engineering/experiment"
	"github.com/sdnlab/harness-go/pkg/environment"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sirupsen/logrus"
)

func init() {
	// Log as JSON instead of the default ASCII formatter.
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:          true,
		DisableSorting:         true,
		DisableLevelTruncation: true,
	})
}

func main() {

	// parse the experiment name and the run configuration
	experimentName := flag.String("name", "traffic-engineering", "name of the experiment")
	configPath := flag.String("config", environment.Getenv("CONFIG_FILE", "config/lab.yaml"), "path of the run configuration")
	flag.Parse()

	log.Infof("Experiment Name: %v", *experimentName)

	// invoke the corresponding experiment based on the the (-name) flag
	switch *experimentName {
	case "traffic-engineering":
		trafficEngineering.TrafficEngineering(*configPath)
	default:
		log.Fatalf("Unsupported -name %v, please provide the correct value of -name flag", *experimentName)
	}
}
