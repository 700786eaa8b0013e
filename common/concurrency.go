package common

import (
	"log"
	"os"
	"strconv"
)

// Get the value of environment variable INGEST_CONCURRENCY_VALUE
// If the environment variable is set, its value is returned. If not set, a
// default is computed from the number of CPUs. The transfer coordinator does
// not read this value; its worker count comes from Config.WorkerCount.
func ComputeConcurrencyValue(numOfCPUs int) int {
	concurrencyValueOverride := os.Getenv("INGEST_CONCURRENCY_VALUE")
	if concurrencyValueOverride != "" {
		val, err := strconv.ParseInt(concurrencyValueOverride, 10, 64)
		if err != nil {
			log.Fatalf("error parsing the env INGEST_CONCURRENCY_VALUE %q failed with error %v",
				concurrencyValueOverride, err)
		}
		return int(val)
	}

	// fix the concurrency value for smaller machines
	if numOfCPUs <= 4 {
		return 32
	}

	// for machines that are extremely powerful, fix to 300 to avoid running out of file descriptors
	if 16*numOfCPUs > 300 {
		return 300
	}

	// for moderately powerful machines, compute a reasonable number
	return 16 * numOfCPUs
}
