package bench

import (
	"encoding/csv"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/ValentinKolb/dTxn/cmd/util"
	"github.com/ValentinKolb/dTxn/lib/engine"
	"github.com/ValentinKolb/dTxn/lib/txn"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var (
	// BenchCmd benchmarks the schedulers against synthetic workloads.
	BenchCmd = &cobra.Command{
		Use:     "bench",
		Short:   "Benchmark the transaction schedulers",
		Long:    "",
		RunE:    run,
		PreRunE: processBenchConfig,
	}
	benchNumThreads = 10
	benchKeySpread  = 100
	benchTxnSize    = 2
	benchSkip       = make([]string, 0)
	benchModes      = make([]engine.Mode, 0)
)

func init() {
	// add flags
	key := "skip"
	BenchCmd.Flags().String(key, "", util.WrapString("Workloads to skip (comma separated - e.g. write,rmw)"))
	key = "threads"
	BenchCmd.Flags().Int(key, 10, util.WrapString("Number of client threads submitting transactions"))
	key = "keys"
	BenchCmd.Flags().Int(key, 100, util.WrapString("How many different keys to spread the workload over"))
	key = "txn-size"
	BenchCmd.Flags().Int(key, 2, util.WrapString("How many keys each transaction touches"))
	key = "modes"
	BenchCmd.Flags().String(key, "", util.WrapString("Scheduler modes to benchmark (comma separated, empty = all)"))
	key = "csv"
	BenchCmd.Flags().String(key, "", util.WrapString("Optional path to save benchmark results as CSV"))
}

func processBenchConfig(cmd *cobra.Command, _ []string) error {
	if err := util.BindCommandFlags(cmd); err != nil {
		return err
	}

	// Read the configuration from the command line flags and environment variables
	benchNumThreads = viper.GetInt("threads")
	benchKeySpread = viper.GetInt("keys")
	benchTxnSize = viper.GetInt("txn-size")
	if skip := viper.GetString("skip"); skip != "" {
		benchSkip = strings.Split(skip, ",")
	}

	benchModes = benchModes[:0]
	if names := viper.GetString("modes"); names != "" {
		for _, name := range strings.Split(names, ",") {
			mode, err := engine.ParseMode(strings.TrimSpace(name))
			if err != nil {
				return err
			}
			benchModes = append(benchModes, mode)
		}
	} else {
		benchModes = engine.AllModes()
	}

	return nil
}

func run(_ *cobra.Command, _ []string) error {

	fmt.Println("Benchmark tool for the dTxn schedulers")

	// Print configuration
	fmt.Println()
	fmt.Println("Configuration:")
	fmt.Printf("Threads:  %d\n", benchNumThreads)
	fmt.Printf("Keys:     %d\n", benchKeySpread)
	fmt.Printf("Txn size: %d\n", benchTxnSize)
	fmt.Println()

	fmt.Println("starting benchmarks...")

	// Create results map
	results := make(map[string]benchResult)

	for _, mode := range benchModes {
		for _, workload := range []string{"write", "read", "rmw"} {
			name := fmt.Sprintf("%s/%s", mode, workload)
			result := runWorkload(mode, workload)
			results[name] = result
			printResult(name, result)
		}
	}

	// Write results to csv if specified
	if csvPath := viper.GetString("csv"); csvPath != "" {
		fmt.Printf("\nExporting results to CSV: %s\n", csvPath)
		if err := writeResultsToCSV(csvPath, results); err != nil {
			return fmt.Errorf("failed to export results to CSV: %v", err)
		}
		fmt.Println("Export complete")
	}

	return nil
}

// --------------------------------------------------------------------------
// Workloads
// --------------------------------------------------------------------------

// benchResult bundles the timing with the commit/abort/restart deltas of
// the measured run.
type benchResult struct {
	testing.BenchmarkResult
	committed uint64
	aborted   uint64
	restarted uint64
}

// runWorkload measures one workload on a fresh processor. Every
// iteration submits a transaction and polls one result, so the number
// of Result calls always balances the number of Submits regardless of
// how the pollers interleave.
func runWorkload(mode engine.Mode, workload string) benchResult {
	var stats benchResult
	stats.BenchmarkResult = testing.Benchmark(func(b *testing.B) {
		if shouldSkip(workload) {
			return
		}

		p := engine.NewTxnProcessor(mode, &engine.Options{Workers: viper.GetInt("workers")})
		b.Cleanup(p.Close)

		keys := makeKeys(workload)
		preload(p, keys)

		c0, a0, r0 := p.Stats()

		b.SetParallelism(benchNumThreads)

		b.ResetTimer()

		b.RunParallel(func(pb *testing.PB) {
			counter := 0
			for pb.Next() {
				p.Submit(makeTxn(workload, keys, counter))
				p.Result()
				counter++
			}
		})

		b.StopTimer()

		// The largest b.N run is the one reported, so its deltas are
		// the ones to keep.
		c1, a1, r1 := p.Stats()
		stats.committed, stats.aborted, stats.restarted = c1-c0, a1-a0, r1-r0
	})
	return stats
}

func makeTxn(workload string, keys []txn.Key, counter int) *txn.Transaction {
	set := make([]txn.Key, benchTxnSize)
	for i := range set {
		set[i] = keys[(counter+i)%len(keys)]
	}

	switch workload {
	case "write":
		return txn.New(nil, set, func(tx *txn.Transaction) {
			for _, key := range set {
				tx.Write(key, txn.Value("bench"))
			}
			tx.Commit()
		})
	case "read":
		return txn.New(set, nil, func(tx *txn.Transaction) {
			tx.Commit()
		})
	default: // rmw
		return txn.New(set, set, func(tx *txn.Transaction) {
			for _, key := range set {
				v, _ := tx.Read(key)
				tx.Write(key, append(v[:len(v):len(v)], '.'))
			}
			tx.Commit()
		})
	}
}

func makeKeys(workload string) []txn.Key {
	keys := make([]txn.Key, benchKeySpread)
	for i := range keys {
		keys[i] = txn.Key(fmt.Sprintf("__bench-%s-%d", workload, i))
	}
	return keys
}

// preload commits an initial value for every key so read workloads
// never observe an empty store.
func preload(p *engine.TxnProcessor, keys []txn.Key) {
	for _, key := range keys {
		p.Submit(txn.New(nil, []txn.Key{key}, func(tx *txn.Transaction) {
			tx.Write(key, txn.Value("seed"))
			tx.Commit()
		}))
		p.Result()
	}
}

// --------------------------------------------------------------------------
// Helper
// --------------------------------------------------------------------------

func shouldSkip(workload string) bool {
	// Check if the workload is in the skip list
	for _, skip := range benchSkip {
		if workload == skip {
			return true
		}
	}
	return false
}

// printResult prints the result of a benchmark in a formatted way
func printResult(name string, result benchResult) {
	if result.NsPerOp() == 0 {
		fmt.Printf("%-30sskipped\n", name)
		return
	}

	nsPerOp := math.Max(float64(result.NsPerOp()), 1) // prevent division by zero
	opsPerSec := 1.0 / (nsPerOp / 1e9)

	// Print the formatted result
	fmt.Printf("%-30s%.0fns/op (%s/op)\t%.0f txns/sec\tcommitted=%d aborted=%d restarted=%d\n",
		name, nsPerOp, time.Duration(nsPerOp), opsPerSec,
		result.committed, result.aborted, result.restarted)
}

// writeResultsToCSV writes benchmark results to a CSV file
func writeResultsToCSV(csvPath string, results map[string]benchResult) error {
	file, err := os.Create(csvPath)
	if err != nil {
		return fmt.Errorf("failed to create CSV file: %v", err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	// Write header
	header := []string{
		"Benchmark", "NsPerOp", "DurationPerOp", "TxnsPerSec", "Skipped",
		"Committed", "Aborted", "Restarted",
		"Threads", "Keys", "TxnSize", "Workers",
	}
	if err := writer.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %v", err)
	}

	// Write benchmark results
	for name, result := range results {
		var nsPerOp float64
		var opsPerSec float64
		var skipped string

		if result.NsPerOp() == 0 {
			skipped = "true"
			nsPerOp = 0
			opsPerSec = 0
		} else {
			skipped = "false"
			nsPerOp = math.Max(float64(result.NsPerOp()), 1)
			opsPerSec = 1.0 / (nsPerOp / 1e9)
		}

		row := []string{
			name,
			fmt.Sprintf("%.0f", nsPerOp),
			time.Duration(nsPerOp).String(),
			fmt.Sprintf("%.0f", opsPerSec),
			skipped,
			strconv.FormatUint(result.committed, 10),
			strconv.FormatUint(result.aborted, 10),
			strconv.FormatUint(result.restarted, 10),
			strconv.Itoa(benchNumThreads),
			strconv.Itoa(benchKeySpread),
			strconv.Itoa(benchTxnSize),
			strconv.Itoa(viper.GetInt("workers")),
		}

		if err := writer.Write(row); err != nil {
			return fmt.Errorf("failed to write row for benchmark %s: %v", name, err)
		}
	}

	return nil
}
