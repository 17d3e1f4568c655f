package main

import (
	"flag"
	"fmt"
	"log"
	"time"

	townabm "github.com/Dynamical-Systems-Laboratory/DSL-ABM-TwoVariants"
)

func main() {
	loggerType := flag.String("logger", "csv", "data logger type (csv|sqlite)")
	seedPtr := flag.Int64("seed", time.Now().UTC().UnixNano(), "random seed. Uses Unix time in nanoseconds as default")
	outOfTown := flag.Float64("frac-inf-out", 0, "uniform out-of-town infection fraction applied to every strain")
	flag.Parse()

	configPath := flag.Arg(0)
	if configPath == "" {
		log.Fatal("usage: townabm [flags] <config.toml>")
	}

	conf, err := townabm.LoadRunConfig(configPath)
	if err != nil {
		log.Fatal(err)
	}
	if err := conf.Validate(); err != nil {
		log.Fatal(err)
	}
	if conf.Simulation.Seed == 0 {
		conf.Simulation.Seed = *seedPtr
	}

	numInstances := conf.Simulation.NumInstances
	if numInstances < 1 {
		numInstances = 1
	}
	fracInfOut := make([]float64, conf.Simulation.NumStrains)
	for i := range fracInfOut {
		fracInfOut[i] = *outOfTown
	}

	firstStart := time.Now()
	for i := 1; i <= numInstances; i++ {
		log.Printf("starting instance %03d\n\n", i)
		start := time.Now()

		engine, err := townabm.Setup(conf)
		if err != nil {
			log.Fatalf("error setting up instance %03d: %s", i, err)
		}

		var logger townabm.DataLogger
		switch *loggerType {
		case "csv":
			logger = townabm.NewCSVLogger(conf.Logging.BasePath, i)
		case "sqlite":
			logger = townabm.NewSQLiteLogger(conf.Logging.BasePath, i)
		default:
			log.Fatalf("%s is not a valid logger type (csv|sqlite)", *loggerType)
		}

		if err := engine.Run(logger, fracInfOut); err != nil {
			log.Fatalf("error running instance %03d: %s", i, err)
		}
		log.Printf("Finished instance %03d in %s.\n\n", i, time.Since(start))
	}
	fmt.Printf("Completed all runs in %s.\n", time.Since(firstStart))
}
