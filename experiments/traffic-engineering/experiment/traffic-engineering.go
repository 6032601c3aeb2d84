package experiment

import (
	"github.com/sdnlab/harness-go/pkg/controller"
	"github.com/sdnlab/harness-go/pkg/environment"
	"github.com/sdnlab/harness-go/pkg/experiment"
	"github.com/sdnlab/harness-go/pkg/log"
	"github.com/sdnlab/harness-go/pkg/types"
)

// TrafficEngineering runs the configured fault-tolerance scenarios against
// an emulated topology and reports per-scenario convergence figures.
func TrafficEngineering(configPath string) {

	log.Infof("[PreReq]: Loading the run configuration from %v", configPath)
	cfg, err := environment.LoadConfig(configPath)
	if err != nil {
		log.Fatalf("Unable to load the run configuration, err: %v", err)
	}

	driver, err := experiment.BuildDriver(cfg)
	if err != nil {
		log.Fatalf("Unable to build the emulator driver, err: %v", err)
	}

	client := controller.NewClient(controller.Config{
		BaseURL:            cfg.Controller.BaseURL,
		Username:           cfg.Controller.Username,
		Password:           cfg.Controller.Password,
		Timeout:            cfg.ControllerTimeout(),
		InsecureSkipVerify: cfg.Controller.Insecure,
	})

	runner, err := experiment.New(cfg, driver, client)
	if err != nil {
		log.Fatalf("Invalid run configuration, err: %v", err)
	}

	report, err := runner.Run()
	if err != nil {
		log.Fatalf("Run failed, err: %v", err)
	}

	failed := 0
	for _, record := range report.Records {
		if record.Verdict != types.PassVerdict {
			failed++
		}
		for _, measurement := range record.Convergence {
			if measurement.TimedOut {
				log.Warnf("[Result]: %v: %v of %v never reconverged", record.Scenario, measurement.Action, measurement.LinkID)
				continue
			}
			log.InfoWithValues("[Result]: Convergence measured", map[string]interface{}{
				"Scenario": record.Scenario,
				"Link":     measurement.LinkID,
				"Action":   measurement.Action,
				"Latency":  measurement.LatencySec,
			})
		}
	}
	log.Infof("[The End]: %v scenario(s) run, %v failed, report at %v", len(report.Records), failed, cfg.ReportPath)
}
