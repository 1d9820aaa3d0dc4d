package main

import (
	"runtime"

	"github.com/spf13/viper"

	"github.com/jcalabro/fastset"
)

// Config keys.
const (
	ConfLogVerbose = "log.verbose"
	ConfLogJSON    = "log.json"

	ConfRunFile       = "run.file"
	ConfRunLimit      = "run.limit"
	ConfRunWorkers    = "run.workers"
	ConfRunBytes      = "run.bytes"
	ConfRunEraseBatch = "run.erase_batch"

	ConfSetPartitionBits = "set.partition_bits"
	ConfSetCapacityBits  = "set.capacity_bits"
	ConfSetLoadFactor    = "set.load_factor"

	ConfMetricsAddr = "metrics.addr"
)

func init() {
	viper.SetDefault(ConfLogVerbose, false)
	viper.SetDefault(ConfLogJSON, false)

	viper.SetDefault(ConfRunFile, "")
	viper.SetDefault(ConfRunLimit, 1_000_000)
	viper.SetDefault(ConfRunWorkers, runtime.GOMAXPROCS(0))
	viper.SetDefault(ConfRunBytes, false)
	viper.SetDefault(ConfRunEraseBatch, 4096)

	viper.SetDefault(ConfSetPartitionBits, -1)
	viper.SetDefault(ConfSetCapacityBits, 0)
	viper.SetDefault(ConfSetLoadFactor, fastset.DefaultLoadFactor)

	viper.SetDefault(ConfMetricsAddr, "")
}

// setOptionsFromEnv builds set options from the resolved configuration.
func setOptionsFromEnv() []fastset.Option {
	opts := []fastset.Option{
		fastset.WithPartitionBits(viper.GetInt(ConfSetPartitionBits)),
		fastset.WithCapacityBits(viper.GetInt(ConfSetCapacityBits)),
		fastset.WithLoadFactor(viper.GetInt(ConfSetLoadFactor)),
		fastset.WithLogger(log),
	}
	log.Info("Using set parameters",
		ConfSetPartitionBits, viper.GetInt(ConfSetPartitionBits),
		ConfSetCapacityBits, viper.GetInt(ConfSetCapacityBits),
		ConfSetLoadFactor, viper.GetInt(ConfSetLoadFactor))
	return opts
}
